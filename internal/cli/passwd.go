package cli

// This file implements the "passwd" command, which prints a password
// stored in the password file so scripts can build connect strings.

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbakit/internal/passwd"
)

// PasswdManager reads stored credentials.
type PasswdManager struct {
	session *Session
	logger  *zap.Logger
}

// NewPasswdManager creates a PasswdManager with the given dependencies.
func NewPasswdManager(session *Session, logger *zap.Logger) *PasswdManager {
	return &PasswdManager{session: session, logger: logger}
}

// NewPasswdCmd returns the passwd subcommand.
func NewPasswdCmd(logger *zap.Logger) *cobra.Command {
	return NewPasswdCmdWithManager(NewPasswdManager(DefaultSession(logger), logger))
}

// NewPasswdCmdWithManager returns the passwd subcommand using the provided manager.
func NewPasswdCmdWithManager(mgr *PasswdManager) *cobra.Command {
	var file string
	var decode bool
	cmd := &cobra.Command{
		Use:   "passwd <name> <user>",
		Short: "Print a stored password",
		Long: `Print the password stored for a database name and user. The file holds
name:user:password lines; --decode treats the password as base64.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Lookup(cmd, file, args[0], args[1], decode)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Password file (default ~/"+passwd.DefaultPath+")")
	cmd.Flags().BoolVar(&decode, "decode", false, "Base64 decode the stored password")
	return cmd
}

// Lookup prints the password for name and user.
func (m *PasswdManager) Lookup(cmd *cobra.Command, file, name, user string, decode bool) error {
	if file == "" {
		cfg, err := m.session.Config(cmd)
		if err != nil {
			Error("Failed to load configuration")
			logStructuredError(m.logger, err, "Failed to load configuration")
			return err
		}
		file = cfg.PasswordFile
	}
	if file == "" {
		err := wrapWithSentinel(ErrFieldRequired, nil, "no password file configured")
		Error("Password file required")
		logStructuredError(m.logger, err, "Password file required")
		return err
	}
	pw, err := passwd.Lookup(file, name, user, decode)
	if err != nil {
		Error("Failed to look up password")
		logStructuredError(m.logger, err, "Failed to look up password")
		return err
	}
	NewPrinter(cmd.OutOrStdout()).Println(pw)
	return nil
}

package cli

// This file implements the "db" command with database checks built on
// SQL*Plus, RMAN and tnsping.

import (
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbakit/internal/dba"
	"dbakit/internal/runner"
)

// DBManager handles database checks.
type DBManager struct {
	session *Session
	logger  *zap.Logger

	connect       string
	instantClient bool
}

// NewDBManager creates a DBManager with the given dependencies.
func NewDBManager(session *Session, logger *zap.Logger) *DBManager {
	return &DBManager{session: session, logger: logger}
}

// DefaultDBManager returns a DBManager using the default session.
func DefaultDBManager(logger *zap.Logger) *DBManager {
	return NewDBManager(DefaultSession(logger), logger)
}

// NewDBCmd returns the db subcommand.
func NewDBCmd(logger *zap.Logger) *cobra.Command {
	return NewDBCmdWithManager(DefaultDBManager(logger))
}

// NewDBCmdWithManager returns the db subcommand using the provided manager.
func NewDBCmdWithManager(mgr *DBManager) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database checks",
		Long:  "Query instance state, parameters, version and backup configuration",
		Args:  cobra.ArbitraryArgs,
		RunE:  groupRunE,
	}
	cmd.PersistentFlags().StringVar(&mgr.connect, "connect", "", "Connect string (default \"/ as sysdba\")")
	cmd.PersistentFlags().BoolVar(&mgr.instantClient, "instant-client", false, "Home is an instant client directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "state",
		Short: "Print the instance status, or STOPPED",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.print(cmd, "Failed to query instance state", func(c *dba.Client) (string, error) {
				return c.State(contextOf(cmd))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "param <name>",
		Short: "Print the value of an instance parameter, hidden ones included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.print(cmd, "Failed to query parameter", func(c *dba.Client) (string, error) {
				return c.Parameter(contextOf(cmd), args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "cdb",
		Short: "Print true for a container database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.print(cmd, "Failed to query database type", func(c *dba.Client) (string, error) {
				cdb, err := c.IsCDB(contextOf(cmd))
				return strconv.FormatBool(cdb), err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the client release of the home",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.print(cmd, "Failed to query version", func(c *dba.Client) (string, error) {
				return c.Version(contextOf(cmd))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "tnsping <alias>",
		Short: "Check that a net service name resolves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.run(cmd, "tnsping failed", func(c *dba.Client) (*runner.Result, error) {
				return c.TNSPing(contextOf(cmd), args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rman-config",
		Short: "Print the RMAN CONFIGURE settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.RMANConfig(cmd)
		},
	})

	var since string
	backups := &cobra.Command{
		Use:   "backups",
		Short: "List backups completed after a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.run(cmd, "Failed to list backups", func(c *dba.Client) (*runner.Result, error) {
				return c.BackupsSince(contextOf(cmd), since)
			})
		},
	}
	backups.Flags().StringVar(&since, "since", "", "Date as YYYY-MM-DD[ HH24[:MI[:SS]]]")
	_ = backups.MarkFlagRequired("since")
	cmd.AddCommand(backups)

	return cmd
}

func (m *DBManager) client(cmd *cobra.Command) (*dba.Client, error) {
	r, err := m.session.Runner(cmd)
	if err != nil {
		return nil, err
	}
	connect, err := m.session.Connect(m.connect)
	if err != nil {
		return nil, err
	}
	return dba.New(r, dba.WithConnect(connect), dba.WithInstantClient(m.instantClient)), nil
}

// print runs a check returning one value and prints it.
func (m *DBManager) print(cmd *cobra.Command, failure string, check func(*dba.Client) (string, error)) error {
	c, err := m.client(cmd)
	if err != nil {
		Error(failure)
		logStructuredError(m.logger, err, failure)
		return err
	}
	value, err := check(c)
	if err != nil {
		m.session.WriteFindings(cmd.OutOrStdout(), err)
		Error(failure)
		logStructuredError(m.logger, err, failure)
		return err
	}
	NewPrinter(cmd.OutOrStdout()).Println(value)
	return nil
}

// run runs a check whose tool output is printed as is.
func (m *DBManager) run(cmd *cobra.Command, failure string, check func(*dba.Client) (*runner.Result, error)) error {
	c, err := m.client(cmd)
	if err != nil {
		Error(failure)
		logStructuredError(m.logger, err, failure)
		return err
	}
	res, err := check(c)
	if m.session.WriteFindings(cmd.OutOrStdout(), err) || err != nil {
		Error(failure)
		logStructuredError(m.logger, err, failure)
		return err
	}
	if res.Output != "" {
		NewPrinter(cmd.OutOrStdout()).Println(res.Output)
	}
	return nil
}

// RMANConfig prints the CONFIGURE lines of "show all".
func (m *DBManager) RMANConfig(cmd *cobra.Command) error {
	c, err := m.client(cmd)
	if err != nil {
		Error("Failed to query RMAN configuration")
		logStructuredError(m.logger, err, "Failed to query RMAN configuration")
		return err
	}
	lines, err := c.RMANConfig(contextOf(cmd))
	if err != nil {
		m.session.WriteFindings(cmd.OutOrStdout(), err)
		Error("Failed to query RMAN configuration")
		logStructuredError(m.logger, err, "Failed to query RMAN configuration")
		return err
	}
	out := NewPrinter(cmd.OutOrStdout())
	for _, line := range lines {
		out.Println(line)
	}
	return nil
}

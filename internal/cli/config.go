package cli

// This file implements the "config" command for writing and showing the
// dbakit configuration file.

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbakit/internal/config"
	"dbakit/internal/humanfmt"
)

// ConfigManager handles the configuration file.
type ConfigManager struct {
	session *Session
	logger  *zap.Logger
}

// NewConfigManager creates a ConfigManager with the given dependencies.
func NewConfigManager(session *Session, logger *zap.Logger) *ConfigManager {
	return &ConfigManager{session: session, logger: logger}
}

// NewConfigCmd returns the config subcommand.
func NewConfigCmd(logger *zap.Logger) *cobra.Command {
	return NewConfigCmdWithManager(NewConfigManager(DefaultSession(logger), logger))
}

// NewConfigCmdWithManager returns the config subcommand using the provided manager.
func NewConfigCmdWithManager(mgr *ConfigManager) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		Args:  cobra.ArbitraryArgs,
		RunE:  groupRunE,
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective settings to the config file",
		Long: `Write the effective settings to the config file (--config or
~/.dbakit/config.yaml). Flags given on this command line are saved too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Init(cmd, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Show(cmd)
		},
	})
	return cmd
}

// Init writes the effective settings. A missing explicit --config path is
// the file to create, so it is not loaded first.
func (m *ConfigManager) Init(cmd *cobra.Command, force bool) error {
	path, _ := cmd.Flags().GetString(FlagConfig)
	opts := config.Options{Flags: cmd.Flags()}
	if _, err := os.Stat(path); path != "" && err == nil {
		opts.Path = path
	}
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			Error("Failed to locate config file")
			logStructuredError(m.logger, err, "Failed to locate config file")
			return err
		}
	}

	p := NewPrinter(cmd.OutOrStdout())
	p.Step("Loading effective settings")
	cfg, err := config.Load(opts)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	p.Step("Writing " + path)
	if err := config.Write(path, cfg, force); err != nil {
		Error("Failed to write config file")
		logStructuredError(m.logger, err, "Failed to write config file")
		return err
	}
	Success("Wrote " + path)
	return nil
}

// Show prints the effective settings.
func (m *ConfigManager) Show(cmd *cobra.Command) error {
	cfg, err := m.session.Config(cmd)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	data, err := cfg.YAML()
	if err != nil {
		err = wrapWithSentinel(config.ErrConfigInvalid, err, "cannot render configuration")
		Error("Failed to render configuration")
		logStructuredError(m.logger, err, "Failed to render configuration")
		return err
	}
	out := NewPrinter(cmd.OutOrStdout())
	if cfg.Source != "" {
		out.Printf("# %s\n", cfg.Source)
		if info, err := os.Stat(cfg.Source); err == nil {
			Info("Config file modified " + humanfmt.Ago(info.ModTime()))
		}
	}
	out.Printf("%s", data)
	return nil
}

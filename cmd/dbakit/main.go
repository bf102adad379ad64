package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dbakit/internal/cli"
	"dbakit/pkg/errx"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	debug   = false
)

// level is raised to Debug once flags are parsed.
var level = zap.NewAtomicLevelAt(zap.ErrorLevel)

func main() {
	logger, err := newConsoleLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Decorations go to stderr; stdout carries data only.
	pterm.SetDefaultOutput(os.Stderr)
	initCommands(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if debug {
			fmt.Fprintf(os.Stderr, "Error: %s\n", errx.DebugString(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", errx.UserString(err))
		}
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dbakit",
	Short: "Oracle DBA automation CLI",
	Long: `dbakit runs the Oracle command line tools with a resolved environment
and checks their output for coded errors:
- sqlplus, rman and dgmgrl scripts
- message code lookups and output scans
- instance registry and cluster queries
- database state, parameter and backup checks`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Set debug mode globally so logStructuredError can check it
		cli.SetDebugMode(debug)
		if debug {
			level.SetLevel(zap.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, cli.FlagDebug, false, "Enable debug mode with structured error logging")
	cli.AddGlobalFlags(rootCmd)
}

func initCommands(logger *zap.Logger) {
	rootCmd.AddCommand(cli.NewSQLCmd(logger))
	rootCmd.AddCommand(cli.NewRMANCmd(logger))
	rootCmd.AddCommand(cli.NewDGMGRLCmd(logger))
	rootCmd.AddCommand(cli.NewDiagCmds(logger)...)
	rootCmd.AddCommand(cli.NewClusterCmd(logger))
	rootCmd.AddCommand(cli.NewDBCmd(logger))
	rootCmd.AddCommand(cli.NewPasswdCmd(logger))
	rootCmd.AddCommand(cli.NewConfigCmd(logger))
}

// newConsoleLogger returns a human-friendly console logger on stderr.
// Stdout carries tool output, so logs never go there.
func newConsoleLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = level
	cfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "",
		CallerKey:      "",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg.Build()
}

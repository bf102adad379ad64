package cli

// This file defines the CLI-level sentinel errors and the helpers that wrap
// causes with them and log them with structured fields in debug mode.

import (
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbakit/pkg/errx"
)

var debugMode atomic.Bool

// SetDebugMode toggles structured error logging.
func SetDebugMode(on bool) { debugMode.Store(on) }

// IsDebugMode reports whether --debug was given.
func IsDebugMode() bool { return debugMode.Load() }

var (
	// Argument errors.
	ErrFieldRequired  = errx.Define(errx.CodeCLI, "required field missing")
	ErrInvalidArgs    = errx.Define(errx.CodeCLI, "invalid arguments")
	ErrInputRequired  = errx.Define(errx.CodeCLI, "no input given")
	ErrReadInput      = errx.Define(errx.CodeCLI, "failed to read input")
	ErrUnknownCommand = errx.Define(errx.CodeCLI, "unknown subcommand")

	// Findings.
	ErrErrorsFound = errx.Define(errx.CodeToolError, "coded errors found")
	ErrLookupMiss  = errx.Define(errx.CodeLookup, "one or more codes could not be explained")
)

// wrapWithSentinel wraps cause in the category registered for sentinel.
func wrapWithSentinel(sentinel, cause error, msg string) error {
	return errx.From(sentinel, msg, cause)
}

// wrapWithSentinelAndContext is wrapWithSentinel with structured context.
func wrapWithSentinelAndContext(sentinel, cause error, msg string, ctx map[string]any) error {
	return errx.From(sentinel, msg, cause).WithContextMap(ctx)
}

// logStructuredError logs err with its code, category, message and context
// as separate fields. It only logs in debug mode; the console encoder keeps
// the fields readable in a terminal.
func logStructuredError(logger *zap.Logger, err error, msg string) {
	if logger == nil || err == nil || !IsDebugMode() {
		return
	}
	logger.Error(msg, errx.Fields(err)...)
}

// groupRunE prints help for a bare group command and rejects anything
// that is not one of its subcommands.
func groupRunE(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}
	return wrapWithSentinelAndContext(ErrUnknownCommand, nil,
		"unknown subcommand "+args[0]+" for "+cmd.CommandPath(),
		map[string]any{"command": cmd.CommandPath(), "subcommand": args[0]})
}

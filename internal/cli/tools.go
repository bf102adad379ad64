package cli

// This file implements the sql, rman and dgmgrl commands, which feed a
// script to the tool and print its output, or the diagnostic block when
// the output carries coded errors.

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbakit/internal/dba"
	"dbakit/internal/humanfmt"
	"dbakit/internal/runner"
	"dbakit/pkg/errx"
)

// ErrToolExited is returned when a tool exits nonzero without coded errors.
var ErrToolExited = errx.Define(errx.CodeExecution, "tool exited with nonzero status")

// ToolManager runs scripts through the command-line tools.
type ToolManager struct {
	session *Session
	logger  *zap.Logger
}

// NewToolManager creates a ToolManager with the given dependencies.
func NewToolManager(session *Session, logger *zap.Logger) *ToolManager {
	return &ToolManager{session: session, logger: logger}
}

// DefaultToolManager returns a ToolManager that runs real processes.
func DefaultToolManager(logger *zap.Logger) *ToolManager {
	return NewToolManager(DefaultSession(logger), logger)
}

// ToolOptions are the per-run settings shared by the tool commands.
type ToolOptions struct {
	Connect    string
	NoCheck    bool
	Args       []string
	Components []string
	// RawConnect skips connect string normalization.
	RawConnect bool
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// NewSQLCmd returns the sql command.
func NewSQLCmd(logger *zap.Logger) *cobra.Command {
	return NewSQLCmdWithManager(DefaultToolManager(logger))
}

// NewSQLCmdWithManager returns the sql command using the provided manager.
func NewSQLCmdWithManager(mgr *ToolManager) *cobra.Command {
	var opts ToolOptions
	var execute, colsep string
	var query, instantClient bool

	cmd := &cobra.Command{
		Use:   "sql [file|-]",
		Short: "Run a SQL*Plus script",
		Long: `Run a SQL*Plus script read from a file, stdin or --execute.

The script is preceded by a formatting preamble and its output is scanned
for SP2, ORA and ORT errors. With --query the input is run as a single
query and its rows are printed tab separated.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := execute
			if input == "" {
				var err error
				if input, err = mgr.session.ReadInput(args); err != nil {
					Error("No SQL to run")
					logStructuredError(mgr.logger, err, "No SQL to run")
					return err
				}
			}
			if query {
				return mgr.Query(cmd, input, opts.Connect, colsep, instantClient)
			}
			tool := runner.SQLPlus
			if instantClient {
				tool = runner.SQLPlusInstantClient
				tool.Preamble = runner.SQLPlus.Preamble
				tool.Terminator = ""
			}
			return mgr.Run(cmd, tool, input, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Connect, "connect", "", "Connect string (default \"/ as sysdba\")")
	cmd.Flags().StringVarP(&execute, "execute", "e", "", "SQL text to run instead of reading a file")
	cmd.Flags().BoolVar(&query, "query", false, "Run the input as one query and print its rows")
	cmd.Flags().StringVar(&colsep, "colsep", dba.DefaultColsep, "Column separator used with --query")
	cmd.Flags().BoolVar(&opts.NoCheck, "no-check", false, "Do not scan the output for coded errors")
	cmd.Flags().BoolVar(&instantClient, "instant-client", false, "Home is an instant client directory")

	return cmd
}

// NewRMANCmd returns the rman command.
func NewRMANCmd(logger *zap.Logger) *cobra.Command {
	return NewRMANCmdWithManager(DefaultToolManager(logger))
}

// NewRMANCmdWithManager returns the rman command using the provided manager.
func NewRMANCmdWithManager(mgr *ToolManager) *cobra.Command {
	opts := ToolOptions{RawConnect: true}
	cmd := &cobra.Command{
		Use:   "rman [file|-]",
		Short: "Run a Recovery Manager script",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := mgr.session.ReadInput(args)
			if err != nil {
				Error("No RMAN script to run")
				logStructuredError(mgr.logger, err, "No RMAN script to run")
				return err
			}
			return mgr.Run(cmd, runner.RMAN, input, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Connect, "connect", "", "RMAN connect clause (default \"target /\")")
	cmd.Flags().BoolVar(&opts.NoCheck, "no-check", false, "Do not scan the output for coded errors")
	return cmd
}

// NewDGMGRLCmd returns the dgmgrl command.
func NewDGMGRLCmd(logger *zap.Logger) *cobra.Command {
	return NewDGMGRLCmdWithManager(DefaultToolManager(logger))
}

// NewDGMGRLCmdWithManager returns the dgmgrl command using the provided manager.
func NewDGMGRLCmdWithManager(mgr *ToolManager) *cobra.Command {
	var opts ToolOptions
	cmd := &cobra.Command{
		Use:   "dgmgrl [file|-]",
		Short: "Run Data Guard broker commands",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := mgr.session.ReadInput(args)
			if err != nil {
				Error("No broker commands to run")
				logStructuredError(mgr.logger, err, "No broker commands to run")
				return err
			}
			return mgr.Run(cmd, runner.DGMGRL, input, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Connect, "connect", "", "Connect string (default \"/\")")
	cmd.Flags().BoolVar(&opts.NoCheck, "no-check", false, "Do not scan the output for coded errors")
	return cmd
}

// Run feeds input to tool and prints the output. Coded errors print the
// diagnostic block instead and fail the command.
func (m *ToolManager) Run(cmd *cobra.Command, tool runner.Tool, input string, opts ToolOptions) error {
	r, err := m.session.Runner(cmd)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	connect := opts.Connect
	if !opts.RawConnect {
		if connect, err = m.session.Connect(opts.Connect); err != nil {
			Error("Invalid connect string")
			logStructuredError(m.logger, err, "Invalid connect string")
			return err
		}
	}

	res, err := r.Run(contextOf(cmd), tool, runner.Request{
		Input:      input,
		Connect:    connect,
		Args:       opts.Args,
		ErrorCheck: !opts.NoCheck,
		Components: opts.Components,
	})
	out := cmd.OutOrStdout()
	if m.session.WriteFindings(out, err) {
		Error(fmt.Sprintf("%s reported %d error(s)", tool.Name, len(res.Errors)))
		logStructuredError(m.logger, err, "Tool reported errors")
		return err
	}
	if err != nil {
		Error(fmt.Sprintf("Failed to run %s", tool.Name))
		logStructuredError(m.logger, err, "Failed to run tool")
		return err
	}

	if res.Output != "" {
		fmt.Fprintln(out, strings.TrimRight(res.Output, "\n"))
	}
	if res.ExitStatus != 0 {
		err := wrapWithSentinelAndContext(ErrToolExited, nil,
			fmt.Sprintf("%s exited with status %d", tool.Name, res.ExitStatus),
			map[string]any{"tool": tool.Name, "exit_status": res.ExitStatus, "run_id": res.RunID})
		logStructuredError(m.logger, err, "Tool exited nonzero")
		return err
	}
	return nil
}

// Query runs sql as one query and prints the rows tab separated.
func (m *ToolManager) Query(cmd *cobra.Command, sql, connect, colsep string, instantClient bool) error {
	r, err := m.session.Runner(cmd)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	if connect, err = m.session.Connect(connect); err != nil {
		Error("Invalid connect string")
		logStructuredError(m.logger, err, "Invalid connect string")
		return err
	}
	client := dba.New(r, dba.WithConnect(connect), dba.WithColsep(colsep), dba.WithInstantClient(instantClient))
	rs, err := client.Query(contextOf(cmd), sql)
	out := cmd.OutOrStdout()
	if m.session.WriteFindings(out, err) {
		Error("Query reported errors")
		logStructuredError(m.logger, err, "Query reported errors")
		return err
	}
	if err != nil {
		Error("Failed to run query")
		logStructuredError(m.logger, err, "Failed to run query")
		return err
	}
	for _, row := range rs.Rows {
		fmt.Fprintln(out, strings.Join(row, "\t"))
	}
	Info(humanfmt.Number(int64(rs.RowCount())) + " row(s)")
	return nil
}

package cli

// This file implements the diagnostic commands: oerr explains message
// codes, scan checks arbitrary tool output, oratab lists the instance
// registry and env prints the environment a tool would run in.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dbakit/internal/errscan"
	"dbakit/internal/facility"
	"dbakit/internal/humanfmt"
	"dbakit/internal/oerr"
	"dbakit/internal/oraenv"
	"dbakit/internal/oratab"
	"dbakit/internal/runner"
)

// DiagManager handles the diagnostic commands.
type DiagManager struct {
	session *Session
	logger  *zap.Logger
}

// NewDiagManager creates a DiagManager with the given dependencies.
func NewDiagManager(session *Session, logger *zap.Logger) *DiagManager {
	return &DiagManager{session: session, logger: logger}
}

// DefaultDiagManager returns a DiagManager using the default session.
func DefaultDiagManager(logger *zap.Logger) *DiagManager {
	return NewDiagManager(DefaultSession(logger), logger)
}

// NewDiagCmds returns the oerr, scan, oratab and env commands.
func NewDiagCmds(logger *zap.Logger) []*cobra.Command {
	return NewDiagCmdsWithManager(DefaultDiagManager(logger))
}

// NewDiagCmdsWithManager returns the diagnostic commands using the provided manager.
func NewDiagCmdsWithManager(mgr *DiagManager) []*cobra.Command {
	return []*cobra.Command{
		mgr.newOerrCmd(),
		mgr.newScanCmd(),
		mgr.newOratabCmd(),
		mgr.newEnvCmd(),
	}
}

func (m *DiagManager) newOerrCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "oerr <code>...",
		Short: "Explain message codes",
		Long: `Print the catalog text for each code, e.g. ORA-00001 or SP2-0734.
The message files are read from the resolved installation home.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Explain(cmd, args)
		},
	}
}

func (m *DiagManager) newScanCmd() *cobra.Command {
	var components []string
	var explain bool
	cmd := &cobra.Command{
		Use:   "scan [file|-]",
		Short: "Scan tool output for coded errors",
		Long: `Scan saved tool output for coded errors of the given components.
Each finding is printed as "<code>\t<line>"; the command fails if
anything was found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, err := m.session.ReadInput(args)
			if err != nil {
				Error("No output to scan")
				logStructuredError(m.logger, err, "No output to scan")
				return err
			}
			return m.Scan(cmd, output, components, explain)
		},
	}
	cmd.Flags().StringSliceVar(&components, "components", nil, "Components to check (default ALL_COMPONENTS)")
	cmd.Flags().BoolVar(&explain, "explain", false, "Print the catalog text for each distinct code")
	return cmd
}

func (m *DiagManager) newOratabCmd() *cobra.Command {
	var asm bool
	cmd := &cobra.Command{
		Use:   "oratab",
		Short: "List instance registry entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Oratab(cmd, asm)
		},
	}
	cmd.Flags().BoolVar(&asm, "asm", false, "Print only the grid home of the ASM instance")
	return cmd
}

func (m *DiagManager) newEnvCmd() *cobra.Command {
	var toolName, connect string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the environment a tool would run in",
		Long: `Resolve the installation home and instance for a tool and print the
variables as shell export lines, e.g. eval "$(dbakit env)".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Env(cmd, toolName, connect)
		},
	}
	cmd.Flags().StringVar(&toolName, "tool", "sqlplus", "Tool whose layout is resolved")
	cmd.Flags().StringVar(&connect, "connect", "", "Connect string; local connects require an instance")
	return cmd
}

// resolveHome resolves the installation home without requiring an instance.
func (m *DiagManager) resolveHome(cmd *cobra.Command) (*oraenv.Environment, error) {
	r, err := m.session.Runner(cmd)
	if err != nil {
		return nil, err
	}
	return r.Resolve(runner.SQLPlusVersion, runner.Request{})
}

// Explain prints the catalog text for each code. Codes without an entry
// are reported and fail the command after all codes were tried.
func (m *DiagManager) Explain(cmd *cobra.Command, codes []string) error {
	env, err := m.resolveHome(cmd)
	if err != nil {
		Error("Failed to resolve installation home")
		logStructuredError(m.logger, err, "Failed to resolve installation home")
		return err
	}
	lookup, err := oerr.NewLookup(env.Home)
	if err != nil {
		Error("Failed to load facility catalog")
		logStructuredError(m.logger, err, "Failed to load facility catalog")
		return err
	}

	out := NewPrinter(cmd.OutOrStdout())
	var missed []string
	for i, code := range codes {
		if i > 0 {
			out.Println()
		}
		msg, err := lookup.Explain(code)
		if err != nil {
			logStructuredError(m.logger, err, "Lookup failed")
			if errors.Is(err, oerr.ErrMalformedCode) || errors.Is(err, oerr.ErrUnknownFacility) ||
				errors.Is(err, oerr.ErrCodeNotFound) || errors.Is(err, oerr.ErrMessagesUnavailable) {
				Warn(fmt.Sprintf("%s: %s", code, errWithoutCategory(err)))
				missed = append(missed, code)
				continue
			}
			return err
		}
		out.Println(msg.Code.String())
		for _, line := range msg.Text() {
			out.Println("  " + line)
		}
	}
	if len(missed) > 0 {
		return wrapWithSentinelAndContext(ErrLookupMiss, nil,
			"no explanation for "+strings.Join(missed, ", "), map[string]any{"codes": missed})
	}
	return nil
}

// Scan checks output against the resolved home's catalog.
func (m *DiagManager) Scan(cmd *cobra.Command, output string, components []string, explain bool) error {
	env, err := m.resolveHome(cmd)
	if err != nil {
		Error("Failed to resolve installation home")
		logStructuredError(m.logger, err, "Failed to resolve installation home")
		return err
	}
	if cfg, err := m.session.Config(cmd); err == nil && len(components) == 0 {
		components = cfg.Components
	}
	if len(components) == 0 {
		components = []string{facility.AllComponents}
	}

	cat, err := facility.LoadHome(env.Home)
	if err != nil {
		Error("Failed to load facility catalog")
		logStructuredError(m.logger, err, "Failed to load facility catalog")
		return err
	}
	m.logger.Debug("scanning output",
		zap.String("size", humanfmt.Bytes(uint64(len(output)))),
		zap.Strings("components", components))
	result := errscan.Scan(cat, output, components)

	out := NewPrinter(cmd.OutOrStdout())
	for _, occ := range result.Errors {
		out.Printf("%s\t%s\n", occ.Code, occ.Line)
	}
	if !result.Failed() {
		return nil
	}
	if explain {
		lookup := oerr.NewLookupWithCatalog(env.Home, cat)
		for _, code := range result.Codes() {
			out.Println()
			out.Println(code)
			msg, err := lookup.Explain(code)
			if err != nil {
				out.Println("  (no catalog entry)")
				continue
			}
			for _, line := range msg.Text() {
				out.Println("  " + line)
			}
		}
	}
	err = wrapWithSentinelAndContext(ErrErrorsFound, nil,
		fmt.Sprintf("found %s", strings.Join(result.Codes(), ", ")),
		map[string]any{"codes": result.Codes(), "components": components})
	logStructuredError(m.logger, err, "Coded errors found")
	return err
}

// Oratab lists the first registry found, or the ASM grid home.
func (m *DiagManager) Oratab(cmd *cobra.Command, asm bool) error {
	cfg, err := m.session.Config(cmd)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	reg, err := oratab.LoadFrom(cfg.OratabCandidates())
	if err != nil {
		Error("Failed to read instance registry")
		logStructuredError(m.logger, err, "Failed to read instance registry")
		return err
	}
	if !reg.Found() {
		Warn("No instance registry found in " + strings.Join(cfg.OratabCandidates(), ", "))
		return nil
	}

	out := NewPrinter(cmd.OutOrStdout())
	if asm {
		home := reg.ASMHome()
		if home == "" {
			Warn("No +ASM instance in " + reg.Path())
			return nil
		}
		out.Println(home)
		return nil
	}

	rows := [][]string{{"SID", "HOME", "FLAG"}}
	for _, e := range reg.Entries() {
		rows = append(rows, []string{e.SID, e.Home, flagColor(e.Flag)})
	}
	m.logger.Debug("registry loaded", zap.String("path", reg.Path()), zap.Int("entries", reg.Len()))
	if reg.Len() == 0 {
		Warn("No entries in " + reg.Path())
		return nil
	}
	out.Table(rows)
	return nil
}

// Env prints the resolved environment as export lines.
func (m *DiagManager) Env(cmd *cobra.Command, toolName, connect string) error {
	tool, ok := toolByName(toolName)
	if !ok {
		err := wrapWithSentinelAndContext(ErrInvalidArgs, nil, "unknown tool "+toolName,
			map[string]any{"tool": toolName})
		Error("Unknown tool")
		logStructuredError(m.logger, err, "Unknown tool")
		return err
	}
	r, err := m.session.Runner(cmd)
	if err != nil {
		Error("Failed to load configuration")
		logStructuredError(m.logger, err, "Failed to load configuration")
		return err
	}
	env, err := r.Resolve(tool, runner.Request{Connect: connect})
	if err != nil {
		Error("Failed to resolve environment")
		logStructuredError(m.logger, err, "Failed to resolve environment")
		return err
	}
	if env.Registry != "" {
		Info("Home from " + env.Registry)
	}
	out := NewPrinter(cmd.OutOrStdout())
	for _, line := range env.Exports() {
		out.Println(line)
	}
	return nil
}

// flagColor marks instances started at boot.
func flagColor(flag string) string {
	if flag == "Y" {
		return Green(flag)
	}
	return Yellow(flag)
}

func toolByName(name string) (runner.Tool, bool) {
	for _, t := range runner.Tools() {
		if t.Name == name {
			return t, true
		}
	}
	return runner.Tool{}, false
}

// errWithoutCategory returns the message of err without the category.
func errWithoutCategory(err error) string {
	type messager interface{ Message() string }
	var m messager
	if errors.As(err, &m) && m.Message() != "" {
		return m.Message()
	}
	return err.Error()
}

package cli

// This file holds the per-invocation state every command shares: the
// effective configuration, the runner built from it and the terminal
// helpers used for input and credential prompts.

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"dbakit/internal/config"
	"dbakit/internal/connstr"
	"dbakit/internal/oerr"
	"dbakit/internal/runner"
)

// Persistent flag names registered by AddGlobalFlags.
const (
	FlagDebug   = "debug"
	FlagConfig  = "config"
	FlagOratab  = "oratab"
	FlagSID     = "sid"
	FlagHome    = "home"
	FlagTimeout = "timeout"
	FlagEnvFile = "env-file"
)

// AddGlobalFlags registers the flags every command inherits. Defaults
// live in the config package so that file and environment settings are
// not shadowed by flag defaults.
func AddGlobalFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.String(FlagConfig, "", "Config file (default ~/.dbakit/config.yaml)")
	fs.String(FlagOratab, "", "Instance registry file (default /etc/oratab, then /var/opt/oracle/oratab)")
	fs.String(FlagSID, "", "Instance id (default $ORACLE_SID)")
	fs.String(FlagHome, "", "Installation home (default $ORACLE_HOME or the registry entry)")
	fs.Duration(FlagTimeout, 0, "Per-tool timeout, 0 disables (default 10m)")
	fs.String(FlagEnvFile, "", "KEY=VALUE file merged into the tools' environment")
}

// Session lazily resolves configuration and the runner for one command.
type Session struct {
	logger *zap.Logger
	exec   runner.Executor
	stdin  io.Reader

	// prompt overrides the terminal prompter; tests set it.
	prompt connstr.Prompter

	cfg *config.Config
	run *runner.Runner
}

// NewSession returns a Session that launches tools through exec.
func NewSession(logger *zap.Logger, exec runner.Executor) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exec == nil {
		exec = runner.OSExecutor()
	}
	return &Session{logger: logger, exec: exec, stdin: os.Stdin}
}

// DefaultSession uses os/exec.
func DefaultSession(logger *zap.Logger) *Session {
	return NewSession(logger, runner.OSExecutor())
}

// Config loads the effective configuration from the command's flags.
func (s *Session) Config(cmd *cobra.Command) (*config.Config, error) {
	if s.cfg != nil {
		return s.cfg, nil
	}
	var path string
	if f := cmd.Flags().Lookup(FlagConfig); f != nil {
		path = f.Value.String()
	}
	cfg, err := config.Load(config.Options{Path: path, Flags: cmd.Flags()})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("config loaded",
		zap.String("source", cfg.Source),
		zap.String("sid", cfg.SID),
		zap.String("home", cfg.Home),
		zap.Duration("timeout", cfg.Timeout))
	s.cfg = cfg
	return cfg, nil
}

// Runner builds the runner from the effective configuration.
func (s *Session) Runner(cmd *cobra.Command) (*runner.Runner, error) {
	if s.run != nil {
		return s.run, nil
	}
	cfg, err := s.Config(cmd)
	if err != nil {
		return nil, err
	}
	base, err := cfg.BaseEnv()
	if err != nil {
		return nil, err
	}
	s.run = runner.New(
		runner.WithExecutor(s.exec),
		runner.WithLogger(s.logger),
		runner.WithIdentity(cfg.SID, cfg.Home),
		runner.WithOratab(cfg.OratabCandidates()),
		runner.WithBaseEnv(base),
		runner.WithTimeout(cfg.Timeout),
	)
	return s.run, nil
}

// Connect normalizes a user supplied connect string. Local OS
// authenticated connects pass through; anything else is completed by
// prompting on the terminal.
func (s *Session) Connect(in string) (string, error) {
	if strings.TrimSpace(in) == "" || runner.IsLocalConnect(in) {
		return in, nil
	}
	parts, err := connstr.Parse(in, s.prompter())
	if err != nil {
		return "", err
	}
	s.logger.Debug("connect string completed", zap.String("connect", parts.Redacted()))
	return parts.String(), nil
}

func (s *Session) prompter() connstr.Prompter {
	if s.prompt != nil {
		return s.prompt
	}
	f, ok := s.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return &termPrompter{in: f, out: os.Stderr}
}

// ReadInput returns the command text from the named file, or from stdin
// for "-" or no argument. A terminal on stdin is not read.
func (s *Session) ReadInput(args []string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", wrapWithSentinelAndContext(ErrReadInput, err,
				"cannot read "+args[0], map[string]any{"path": args[0]})
		}
		return string(data), nil
	}
	if f, ok := s.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", wrapWithSentinel(ErrInputRequired, nil, "pass a file or pipe commands on stdin")
	}
	data, err := io.ReadAll(s.stdin)
	if err != nil {
		return "", wrapWithSentinel(ErrReadInput, err, "cannot read stdin")
	}
	return string(data), nil
}

// WriteFindings prints the diagnostic block when err carries findings.
// It reports whether it printed anything.
func (s *Session) WriteFindings(out io.Writer, err error) bool {
	res, ok := runner.AsReported(err)
	if !ok {
		return false
	}
	var lookup *oerr.Lookup
	if res.Env != nil {
		if l, lerr := oerr.NewLookup(res.Env.Home); lerr == nil {
			lookup = l
		} else {
			s.logger.Debug("explanations unavailable", zap.Error(lerr))
		}
	}
	report := oerr.Report{Command: res.Display, Output: res.Output, Result: res.Scan()}
	if werr := oerr.WriteReport(out, report, lookup); werr != nil {
		s.logger.Debug("write report", zap.Error(werr))
	}
	return true
}

// termPrompter reads credentials from a terminal.
type termPrompter struct {
	in  *os.File
	out io.Writer
}

func (p *termPrompter) Username() (string, error) {
	if _, err := io.WriteString(p.out, "Username: "); err != nil {
		return "", err
	}
	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *termPrompter) Password() (string, error) {
	if _, err := io.WriteString(p.out, "Password: "); err != nil {
		return "", err
	}
	pw, err := term.ReadPassword(int(p.in.Fd()))
	_, _ = io.WriteString(p.out, "\n")
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

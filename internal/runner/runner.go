// Package runner launches the DBA command-line tools with a resolved
// environment, feeds them command text on stdin, captures the merged
// output and optionally scans it for coded errors.
package runner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dbakit/internal/connstr"
	"dbakit/internal/errscan"
	"dbakit/internal/facility"
	"dbakit/internal/oraenv"
	"dbakit/pkg/errx"
)

// DefaultTimeout bounds one tool invocation.
const DefaultTimeout = 10 * time.Minute

var (
	ErrToolExecutionFailed = errx.Define(errx.CodeExecution, "tool execution failed")
	ErrToolTimedOut        = errx.Define(errx.CodeExecution, "tool timed out")
	ErrToolCancelled       = errx.Define(errx.CodeExecution, "tool run cancelled")
	// ErrToolReportedErrors marks a run whose output carried coded errors.
	// The Result returned alongside it holds the findings.
	ErrToolReportedErrors = errx.Define(errx.CodeToolError, "tool reported errors")
)

// Request is one invocation.
type Request struct {
	// Input is the command text written after the tool's preamble.
	Input string
	// Connect overrides the tool's default connect string.
	Connect string
	// Args are appended after the connect arguments.
	Args []string
	// SID and Home override the runner's defaults.
	SID  string
	Home string
	// ErrorCheck scans the output for coded errors.
	ErrorCheck bool
	// Components overrides the tool's component filter.
	Components []string
}

// Result is the outcome of one invocation.
type Result struct {
	RunID   string
	Tool    string
	Command []string
	// Display is Command with connect string passwords masked. Reports,
	// logs and error context use it.
	Display    []string
	Env        *oraenv.Environment
	ExitStatus int
	Output     string
	// Checked reports whether the output was scanned.
	Checked bool
	Errors  []errscan.Occurrence
}

// Status is 1 when coded errors were found, 0 otherwise.
func (r *Result) Status() int {
	if len(r.Errors) > 0 {
		return 1
	}
	return 0
}

// Scan returns the findings as a scan result.
func (r *Result) Scan() errscan.Result {
	return errscan.Result{Status: r.Status(), Errors: r.Errors}
}

// Runner carries the settings shared by every invocation.
type Runner struct {
	exec    Executor
	logger  *zap.Logger
	sid     string
	home    string
	oratab  []string
	baseEnv map[string]string
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor replaces the os/exec backed executor.
func WithExecutor(e Executor) Option { return func(r *Runner) { r.exec = e } }

// WithLogger sets the logger used for per-run debug lines.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithIdentity sets the default instance and home.
func WithIdentity(sid, home string) Option {
	return func(r *Runner) { r.sid, r.home = sid, home }
}

// WithOratab sets the registry candidates consulted during resolution.
func WithOratab(candidates []string) Option { return func(r *Runner) { r.oratab = candidates } }

// WithBaseEnv sets the environment inherited by child processes.
func WithBaseEnv(env map[string]string) Option { return func(r *Runner) { r.baseEnv = env } }

// WithTimeout bounds each invocation; zero disables the bound.
func WithTimeout(d time.Duration) Option { return func(r *Runner) { r.timeout = d } }

// New returns a Runner. Without options it uses os/exec, the process
// environment and DefaultTimeout.
func New(opts ...Option) *Runner {
	r := &Runner{
		exec:    osExecutor{},
		logger:  zap.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.baseEnv == nil {
		r.baseEnv = oraenv.FromOS()
	}
	return r
}

// Resolve resolves the environment tool would run in.
func (r *Runner) Resolve(tool Tool, req Request) (*oraenv.Environment, error) {
	sid, home := req.SID, req.Home
	if sid == "" {
		sid = r.sid
	}
	if home == "" {
		home = r.home
	}
	return oraenv.Resolve(oraenv.Request{
		SID:          sid,
		Home:         home,
		LocalSession: IsLocalConnect(tool.connect(req.Connect)),
		Layout:       tool.Layout,
		BaseEnv:      r.baseEnv,
		Oratab:       r.oratab,
	})
}

// Run executes tool. Environment and spawn failures return a nil Result.
// When ErrorCheck finds coded errors, Run returns the Result together
// with ErrToolReportedErrors. A nonzero exit status alone is not an
// error; it is reported in Result.ExitStatus.
func (r *Runner) Run(ctx context.Context, tool Tool, req Request) (*Result, error) {
	env, err := r.Resolve(tool, req)
	if err != nil {
		return nil, err
	}

	connect := tool.connect(req.Connect)
	args := tool.argv(connect, req.Args)
	res := &Result{
		RunID:   uuid.NewString(),
		Tool:    tool.Name,
		Command: append([]string{env.Executable}, args...),
		Display: append([]string{env.Executable}, connstr.MaskArgs(args)...),
		Env:     env,
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd, err := r.exec.Command(ctx, env.Executable, args,
		AllowlistBins(tool.Layout.Binary), NoControlChars(), BinaryUnder(env.Home))
	if err != nil {
		return nil, r.execFailure(res, "refusing to run "+tool.Name, err)
	}
	cmd.SetEnv(env.Environ())
	if tool.Stdin {
		cmd.SetStdin(strings.NewReader(tool.payload(req.Input)))
	}

	out, runErr := cmd.CombinedOutput()
	res.Output = string(out)
	if tool.TrimOutput {
		res.Output = strings.TrimRight(res.Output, " \t\r\n")
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, errx.From(ErrToolTimedOut, tool.Name+" did not finish: "+ctx.Err().Error(), ctx.Err()).
			WithContext("tool", tool.Name).
			WithContext("timeout", r.timeout.String()).
			WithContext("run_id", res.RunID)
	case ctx.Err() != nil:
		return nil, errx.From(ErrToolCancelled, tool.Name+" was cancelled", ctx.Err()).
			WithContext("tool", tool.Name).
			WithContext("run_id", res.RunID)
	case errors.As(runErr, &exitErr):
		res.ExitStatus = exitErr.ExitCode()
	case runErr != nil:
		return nil, r.execFailure(res, "cannot run "+tool.Name, runErr)
	}

	var scanErr error
	if req.ErrorCheck {
		scanErr = r.check(tool, req, res)
	}
	r.logRun(res, time.Since(start))
	return res, scanErr
}

func (r *Runner) check(tool Tool, req Request, res *Result) error {
	cat, err := facility.LoadHome(res.Env.Home)
	if err != nil {
		return err
	}
	components := req.Components
	if len(components) == 0 {
		components = tool.Components
	}
	res.Checked = true
	res.Errors = errscan.Scan(cat, res.Output, components).Errors
	if len(res.Errors) == 0 {
		return nil
	}
	codes := res.Scan().Codes()
	return &ReportedError{
		Result: res,
		err: errx.From(ErrToolReportedErrors, tool.Name+" reported "+strings.Join(codes, ", "), nil).
			WithContext("tool", tool.Name).
			WithContext("codes", codes).
			WithContext("run_id", res.RunID),
	}
}

// ReportedError is returned when the output carried coded errors. It
// matches ErrToolReportedErrors and exposes the run for diagnostics.
type ReportedError struct {
	Result *Result
	err    *errx.Error
}

func (e *ReportedError) Error() string { return e.err.Error() }
func (e *ReportedError) Unwrap() error { return e.err }

// AsReported extracts the run behind an ErrToolReportedErrors failure.
func AsReported(err error) (*Result, bool) {
	var rep *ReportedError
	if errors.As(err, &rep) {
		return rep.Result, true
	}
	return nil, false
}

func (r *Runner) execFailure(res *Result, msg string, cause error) error {
	r.logger.Debug("tool execution failed",
		zap.String("run_id", res.RunID),
		zap.String("tool", res.Tool),
		zap.Strings("command", res.Display),
		zap.Error(cause))
	return errx.From(ErrToolExecutionFailed, msg+": "+cause.Error(), cause).
		WithContext("tool", res.Tool).
		WithContext("command", strings.Join(res.Display, " ")).
		WithContext("run_id", res.RunID)
}

func (r *Runner) logRun(res *Result, took time.Duration) {
	r.logger.Debug("tool finished",
		zap.String("run_id", res.RunID),
		zap.String("tool", res.Tool),
		zap.String("executable", res.Env.Executable),
		zap.String("sid", res.Env.SID),
		zap.String("home", res.Env.Home),
		zap.Int("exit_status", res.ExitStatus),
		zap.Duration("duration", took),
		zap.Int("errors", len(res.Errors)))
}

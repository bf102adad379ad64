package runner

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
)

// execCommand is a test seam for stubbing command creation in tests.
var execCommand = exec.CommandContext

// Command represents a command that can be executed.
type Command interface {
	CombinedOutput() ([]byte, error)
	Run() error
	SetStdout(w io.Writer)
	SetStderr(w io.Writer)
	SetStdin(r io.Reader)
	SetEnv(env []string)
}

// Executor creates commands for execution.
type Executor interface {
	Command(ctx context.Context, name string, args []string, validators ...ExecValidator) (Command, error)
}

// execCmd wraps exec.Cmd to implement Command interface.
type execCmd struct {
	cmd *exec.Cmd
}

func (c *execCmd) CombinedOutput() ([]byte, error) { return c.cmd.CombinedOutput() }
func (c *execCmd) Run() error                      { return c.cmd.Run() }
func (c *execCmd) SetStdout(w io.Writer)           { c.cmd.Stdout = w }
func (c *execCmd) SetStderr(w io.Writer)           { c.cmd.Stderr = w }
func (c *execCmd) SetStdin(r io.Reader)            { c.cmd.Stdin = r }
func (c *execCmd) SetEnv(env []string)             { c.cmd.Env = env }

// osExecutor is the production implementation using os/exec.
type osExecutor struct{}

func (osExecutor) Command(ctx context.Context, name string, args []string, validators ...ExecValidator) (Command, error) {
	spec := ExecSpec{Name: name, Args: args}
	for _, validate := range validators {
		if err := validate(spec); err != nil {
			return nil, err
		}
	}
	return &execCmd{cmd: execCommand(ctx, name, args...)}, nil
}

// OSExecutor returns the os/exec backed Executor.
func OSExecutor() Executor { return osExecutor{} }

type ExecSpec struct {
	Name string
	Args []string
}

type ExecValidator func(ExecSpec) error

var (
	errBinaryNotAllowed = errors.New("exec: binary not allowed")
	errControlChars     = errors.New("exec: control characters not allowed")
	errBinaryOutside    = errors.New("exec: binary outside installation home")
)

// AllowlistBins accepts only executables whose base name is listed.
func AllowlistBins(allowed ...string) ExecValidator {
	set := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		set[name] = struct{}{}
	}
	return func(spec ExecSpec) error {
		if _, ok := set[filepath.Base(spec.Name)]; !ok {
			return errBinaryNotAllowed
		}
		return nil
	}
}

// NoControlChars rejects arguments carrying line breaks or tabs. Command
// text goes over stdin, never through argv.
func NoControlChars() ExecValidator {
	return func(spec ExecSpec) error {
		for _, arg := range spec.Args {
			if strings.ContainsAny(arg, "\r\n\t") {
				return errControlChars
			}
		}
		return nil
	}
}

// BinaryUnder requires the executable to live beneath root.
func BinaryUnder(root string) ExecValidator {
	absRoot := root
	if abs, err := filepath.Abs(root); err == nil {
		absRoot = abs
	}
	return func(spec ExecSpec) error {
		candidate := spec.Name
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(absRoot, candidate)
		}
		candidate = filepath.Clean(candidate)
		rel, err := filepath.Rel(absRoot, candidate)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return errBinaryOutside
		}
		return nil
	}
}

package runner

import (
	"context"
	"io"
	"sync"
)

// MockExecutor records commands instead of running them. Tests in this
// and dependent packages use it through WithExecutor.
type MockExecutor struct {
	// CommandFunc builds the command for a spec; nil uses the defaults.
	CommandFunc func(spec ExecSpec) *MockCommand
	// DefaultOutput and DefaultErr are returned by CombinedOutput.
	DefaultOutput []byte
	DefaultErr    error
	// DefaultRunErr is returned by Run.
	DefaultRunErr error

	mu       sync.Mutex
	Commands []ExecSpec
	Issued   []*MockCommand
}

func (m *MockExecutor) Command(_ context.Context, name string, args []string, validators ...ExecValidator) (Command, error) {
	spec := ExecSpec{Name: name, Args: append([]string(nil), args...)}
	for _, validate := range validators {
		if err := validate(spec); err != nil {
			return nil, err
		}
	}
	var cmd *MockCommand
	if m.CommandFunc != nil {
		cmd = m.CommandFunc(spec)
	}
	if cmd == nil {
		cmd = &MockCommand{OutputData: m.DefaultOutput, OutputErr: m.DefaultErr, RunErr: m.DefaultRunErr}
	}
	cmd.Name = name
	cmd.Args = spec.Args

	m.mu.Lock()
	m.Commands = append(m.Commands, spec)
	m.Issued = append(m.Issued, cmd)
	m.mu.Unlock()
	return cmd, nil
}

// LastCommand returns the most recently created command spec.
func (m *MockExecutor) LastCommand() ExecSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return ExecSpec{}
	}
	return m.Commands[len(m.Commands)-1]
}

// Last returns the most recently created command.
func (m *MockExecutor) Last() *MockCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Issued) == 0 {
		return nil
	}
	return m.Issued[len(m.Issued)-1]
}

// MockCommand is a recorded command. Stdin is drained into StdinData when
// the command runs.
type MockCommand struct {
	Name       string
	Args       []string
	Env        []string
	OutputData []byte
	OutputErr  error
	RunErr     error
	// RunFunc, when set, replaces the canned output. It receives the
	// drained stdin.
	RunFunc func(stdin string) ([]byte, error)

	StdinData []byte
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
}

func (c *MockCommand) drain() {
	if c.stdin == nil {
		return
	}
	data, _ := io.ReadAll(c.stdin)
	c.StdinData = data
}

func (c *MockCommand) CombinedOutput() ([]byte, error) {
	c.drain()
	if c.RunFunc != nil {
		return c.RunFunc(string(c.StdinData))
	}
	return c.OutputData, c.OutputErr
}

func (c *MockCommand) Run() error {
	c.drain()
	out, err := c.OutputData, c.RunErr
	if c.RunFunc != nil {
		out, err = c.RunFunc(string(c.StdinData))
	}
	if c.stdout != nil && len(out) > 0 {
		_, _ = c.stdout.Write(out)
	}
	return err
}

func (c *MockCommand) SetStdout(w io.Writer) { c.stdout = w }
func (c *MockCommand) SetStderr(w io.Writer) { c.stderr = w }
func (c *MockCommand) SetStdin(r io.Reader)  { c.stdin = r }
func (c *MockCommand) SetEnv(env []string)   { c.Env = append([]string(nil), env...) }

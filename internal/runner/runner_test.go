package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dbakit/internal/oraenv"
	"dbakit/internal/oratest"
	"dbakit/pkg/errx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestRunner(t *testing.T, home *oratest.Home, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithIdentity("orcl", home.Dir),
		WithOratab([]string{oratest.Missing(t)}),
		WithBaseEnv(map[string]string{"PATH": "/usr/bin:/bin", "SQLPATH": "/tmp"}),
	}
	return New(append(base, opts...)...)
}

func TestRun_WritesPreambleAndInput(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("sqlplus", "exit 0")
	mock := &MockExecutor{DefaultOutput: []byte("ok\n\n")}
	r := newTestRunner(t, home, WithExecutor(mock))

	res, err := r.Run(context.Background(), SQLPlus, Request{Input: "select 1 from dual;\n"})
	require.NoError(t, err)

	cmd := mock.Last()
	require.NotNil(t, cmd)
	assert.Equal(t, filepath.Join(home.Dir, "bin", "sqlplus"), cmd.Name)
	assert.Equal(t, []string{"-S", "-L", "/ as sysdba"}, cmd.Args)
	assert.True(t, strings.HasPrefix(string(cmd.StdinData), "btitle"))
	assert.True(t, strings.HasSuffix(string(cmd.StdinData), "\nselect 1 from dual;\n"))
	assert.Contains(t, string(cmd.StdinData), "column VIEW_TYPE")
	assert.Contains(t, cmd.Env, "ORACLE_SID=orcl")
	assert.Contains(t, cmd.Env, "ORACLE_HOME="+home.Dir)
	assert.NotContains(t, strings.Join(cmd.Env, "\n"), "SQLPATH=")

	assert.Equal(t, "ok", res.Output)
	assert.False(t, res.Checked)
	assert.Equal(t, 0, res.Status())
	assert.NotEmpty(t, res.RunID)
}

func TestRun_QueryTerminator(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("sqlplus", "exit 0")
	mock := &MockExecutor{}
	r := newTestRunner(t, home, WithExecutor(mock))

	_, err := r.Run(context.Background(), SQLPlusQuery, Request{Input: "select name from v$database  \n"})
	require.NoError(t, err)
	stdin := string(mock.Last().StdinData)
	assert.True(t, strings.HasSuffix(stdin, "select name from v$database;\n"))
	assert.Contains(t, stdin, "set pagesize                   0\n")
}

func TestRun_ConnectVariants(t *testing.T) {
	home := oratest.NewStandardHome(t)
	for _, name := range []string{"rman", "dgmgrl", "olsnodes", "tnsping"} {
		home.Script(name, "exit 0")
	}

	tests := []struct {
		name     string
		tool     Tool
		req      Request
		wantArgs []string
		stdin    bool
	}{
		{"rman default", RMAN, Request{}, []string{"target /"}, true},
		{"rman catalog", RMAN, Request{Connect: "target / catalog rco@rcat"}, []string{"target / catalog rco@rcat"}, true},
		{"dgmgrl", DGMGRL, Request{}, []string{"-silent", "/"}, true},
		{"olsnodes", Olsnodes, Request{Args: []string{"-n"}}, []string{"-n"}, false},
		{"tnsping", Tnsping, Request{Args: []string{"PROD"}}, []string{"PROD"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockExecutor{}
			r := newTestRunner(t, home, WithExecutor(mock))
			_, err := r.Run(context.Background(), tt.tool, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, mock.Last().Args)
			assert.Equal(t, tt.stdin, mock.Last().StdinData != nil)
		})
	}
}

func TestRun_ErrorCheck(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("sqlplus", "exit 0")
	mock := &MockExecutor{DefaultOutput: []byte("ERROR at line 1:\nORA-00942: table or view does not exist\nTNS-12154: not scanned\n")}
	r := newTestRunner(t, home, WithExecutor(mock))

	res, err := r.Run(context.Background(), SQLPlus, Request{Input: "select * from nope;", ErrorCheck: true})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.True(t, errors.Is(err, ErrToolReportedErrors))
	assert.Equal(t, errx.CodeToolError, errx.CodeOf(err))
	assert.True(t, res.Checked)
	assert.Equal(t, 1, res.Status())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "ORA-00942", res.Errors[0].Code)

	t.Run("components override", func(t *testing.T) {
		res, err := r.Run(context.Background(), SQLPlus, Request{ErrorCheck: true, Components: []string{"network"}})
		require.Error(t, err)
		assert.Equal(t, []string{"TNS-12154"}, res.Scan().Codes())
	})
}

func TestRun_ErrorCheckWithoutCatalog(t *testing.T) {
	home := oratest.NewHome(t)
	home.Script("sqlplus", "exit 0")
	r := newTestRunner(t, home, WithExecutor(&MockExecutor{}))

	res, err := r.Run(context.Background(), SQLPlus, Request{ErrorCheck: true})
	require.Error(t, err)
	assert.Equal(t, errx.CodeConfig, errx.CodeOf(err))
	assert.NotNil(t, res)
	assert.False(t, res.Checked)
}

func TestRun_ResolveFailure(t *testing.T) {
	mock := &MockExecutor{}
	r := New(WithExecutor(mock), WithOratab([]string{oratest.Missing(t)}), WithBaseEnv(map[string]string{}))

	res, err := r.Run(context.Background(), SQLPlus, Request{})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, oraenv.ErrIdentityRequired))
	assert.Empty(t, mock.Commands, "nothing is spawned when resolution fails")
}

func TestRun_ValidatorRejectsArgs(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("tnsping", "exit 0")
	r := newTestRunner(t, home, WithExecutor(&MockExecutor{}))

	_, err := r.Run(context.Background(), Tnsping, Request{Args: []string{"PROD\nrm -rf /"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolExecutionFailed))
}

func TestRun_RealProcess(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("sqlplus", `cat > "$ORACLE_HOME/stdin.txt"
echo "connected to $ORACLE_SID via $1 $2 $3"
echo "LD=$LD_LIBRARY_PATH" >&2
exit 3`)
	core, logs := observer.New(zap.DebugLevel)
	r := newTestRunner(t, home, WithLogger(zap.New(core)))

	res, err := r.Run(context.Background(), SQLPlus, Request{Input: "exit"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitStatus)
	assert.Equal(t, "connected to orcl via -S -L / as sysdba\nLD="+filepath.Join(home.Dir, "lib"), res.Output)

	entries := logs.FilterMessage("tool finished").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "sqlplus", fields["tool"])
	assert.Equal(t, int64(3), fields["exit_status"])
	assert.Equal(t, res.RunID, fields["run_id"])
}

func TestRun_Timeout(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("rman", "exec sleep 5")
	r := newTestRunner(t, home, WithTimeout(100*time.Millisecond))

	start := time.Now()
	res, err := r.Run(context.Background(), RMAN, Request{})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrToolTimedOut), "got %v", err)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestIsLocalConnect(t *testing.T) {
	local := []string{"/ as sysdba", "/ AS SYSASM", "/", "target /", "TARGET / nocatalog"}
	remote := []string{"", "system/manager@prod", "/@prod as sysdba", "target sys/pw@prod", "scott/tiger"}
	for _, c := range local {
		assert.True(t, IsLocalConnect(c), c)
	}
	for _, c := range remote {
		assert.False(t, IsLocalConnect(c), c)
	}
}

func TestRun_RemoteConnectNeedsNoSID(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("sqlplus", "exit 0")
	mock := &MockExecutor{}
	r := New(WithExecutor(mock), WithIdentity("", home.Dir), WithOratab([]string{oratest.Missing(t)}), WithBaseEnv(map[string]string{}))

	res, err := r.Run(context.Background(), SQLPlus, Request{Connect: "scott/tiger@prod"})
	require.NoError(t, err)
	assert.Equal(t, "", res.Env.SID)
	assert.Equal(t, []string{"-S", "-L", "scott/tiger@prod"}, mock.Last().Args)
}

func TestAsReported(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("rman", "exit 0")
	mock := &MockExecutor{DefaultOutput: []byte("RMAN-06062: can not backup")}
	r := newTestRunner(t, home, WithExecutor(mock))

	_, err := r.Run(context.Background(), RMAN, Request{Input: "backup database;", ErrorCheck: true})
	res, ok := AsReported(err)
	require.True(t, ok)
	assert.Equal(t, []string{"RMAN-06062"}, res.Scan().Codes())

	_, ok = AsReported(errors.New("other"))
	assert.False(t, ok)
}

func TestRun_Cancelled(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("rman", "exec sleep 5")
	r := newTestRunner(t, home, WithTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	res, err := r.Run(ctx, RMAN, Request{})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrToolCancelled), "got %v", err)
	assert.False(t, errors.Is(err, ErrToolTimedOut), "cancellation is not a timeout")
}

func TestRun_DisplayMasksPasswords(t *testing.T) {
	home := oratest.NewStandardHome(t)
	home.Script("sqlplus", "exit 0")

	t.Run("result", func(t *testing.T) {
		mock := &MockExecutor{DefaultOutput: []byte("ok")}
		r := newTestRunner(t, home, WithExecutor(mock))
		res, err := r.Run(context.Background(), SQLPlus, Request{Connect: "scott/tiger@prod"})
		require.NoError(t, err)
		assert.Equal(t, []string{"-S", "-L", "scott/tiger@prod"}, mock.Last().Args, "the tool gets the real password")
		assert.Equal(t, filepath.Join(home.Dir, "bin", "sqlplus"), res.Display[0])
		assert.Equal(t, "scott/***@prod", res.Display[len(res.Display)-1])
	})

	t.Run("error context", func(t *testing.T) {
		r := newTestRunner(t, home, WithExecutor(&MockExecutor{}))
		_, err := r.Run(context.Background(), SQLPlus, Request{Connect: "scott/tiger@prod", Args: []string{"a\nb"}})
		require.True(t, errors.Is(err, ErrToolExecutionFailed), "got %v", err)
		var xe *errx.Error
		require.True(t, errors.As(err, &xe))
		command, _ := xe.Context()["command"].(string)
		assert.Contains(t, command, "scott/***@prod")
		assert.NotContains(t, command, "tiger")
	})
}

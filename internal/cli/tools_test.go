package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dbakit/internal/config"
	"dbakit/internal/connstr"
	"dbakit/internal/runner"
)

func newToolManager(f *fixture, stdin string) *ToolManager {
	return NewToolManager(f.session(stdin), zap.NewNop())
}

func TestSQLCmd(t *testing.T) {
	t.Run("runs inline sql with the report preamble", func(t *testing.T) {
		f := newFixture(t, answer("  1\n\n"))
		out, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
			f.args("sql", "-e", "select 1 from dual;")...)
		require.NoError(t, err)
		assert.Equal(t, "  1\n", out)

		cmd := f.mock.Last()
		require.NotNil(t, cmd)
		assert.Equal(t, filepath.Join(f.home.Dir, "bin", "sqlplus"), cmd.Name)
		assert.Equal(t, []string{"-S", "-L", "/ as sysdba"}, cmd.Args)
		stdin := string(cmd.StdinData)
		assert.Contains(t, stdin, "set heading                    on")
		assert.True(t, strings.HasSuffix(stdin, "select 1 from dual;"), "script follows the preamble")
		assert.True(t, contains(cmd.Env, "ORACLE_SID=orcl"))
		assert.True(t, contains(cmd.Env, "ORACLE_HOME="+f.home.Dir))
	})

	t.Run("reads the script from a file", func(t *testing.T) {
		f := newFixture(t, nil)
		script := filepath.Join(t.TempDir(), "report.sql")
		require.NoError(t, os.WriteFile(script, []byte("select * from v$instance;\n"), 0o644))

		_, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")), f.args("sql", script)...)
		require.NoError(t, err)
		assert.Contains(t, string(f.mock.Last().StdinData), "select * from v$instance;")
	})

	t.Run("reads the script from stdin", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "select sysdate from dual;\n")),
			f.args("sql", "-")...)
		require.NoError(t, err)
		assert.Contains(t, string(f.mock.Last().StdinData), "select sysdate from dual;")
	})

	t.Run("missing file", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
			f.args("sql", filepath.Join(t.TempDir(), "nope.sql"))...)
		assert.ErrorIs(t, err, ErrReadInput)
		assert.Empty(t, f.mock.Commands)
	})

	t.Run("prints the diagnostic block on coded errors", func(t *testing.T) {
		f := newFixture(t, answer("ORA-00001: unique constraint (APP.PK) violated\n"))
		out, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
			f.args("sql", "-e", "insert into t values (1);")...)
		require.Error(t, err)
		assert.ErrorIs(t, err, runner.ErrToolReportedErrors)
		assert.Contains(t, out, "Command: ")
		assert.Contains(t, out, "Output:\n  ORA-00001: unique constraint (APP.PK) violated\n")
		assert.Contains(t, out, `00001, 00000, "unique constraint (%s.%s) violated"`)
	})

	t.Run("diagnostic block masks the password", func(t *testing.T) {
		f := newFixture(t, answer("ORA-01017: invalid username/password; logon denied\n"))
		out, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
			f.args("sql", "--connect", "scott/tiger@prod", "-e", "select 1 from dual;")...)
		require.Error(t, err)
		assert.ErrorIs(t, err, runner.ErrToolReportedErrors)
		assert.Equal(t, []string{"-S", "-L", "scott/tiger@prod"}, f.mock.Last().Args)
		assert.Contains(t, out, "Command: ")
		assert.Contains(t, out, "scott/***@prod")
		assert.NotContains(t, out, "tiger")
		assert.NotContains(t, err.Error(), "tiger")
	})

	t.Run("no-check prints the output", func(t *testing.T) {
		f := newFixture(t, answer("ORA-00001: unique constraint (APP.PK) violated"))
		out, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
			f.args("sql", "--no-check", "-e", "insert into t values (1);")...)
		require.NoError(t, err)
		assert.Equal(t, "ORA-00001: unique constraint (APP.PK) violated\n", out)
	})

	t.Run("completes a partial connect string", func(t *testing.T) {
		f := newFixture(t, nil)
		mgr := newToolManager(f, "")
		prompt := &fakePrompter{password: "tiger"}
		mgr.session.prompt = prompt
		_, err := execute(t, NewSQLCmdWithManager(mgr),
			f.args("sql", "--connect", "scott@pdb1", "-e", "select 1 from dual;")...)
		require.NoError(t, err)
		assert.Equal(t, 1, prompt.asked)
		assert.Equal(t, []string{"-S", "-L", "scott/tiger@pdb1"}, f.mock.Last().Args)
	})

	t.Run("fails without a terminal to prompt on", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
			f.args("sql", "--connect", "pdb1", "-e", "select 1 from dual;")...)
		assert.ErrorIs(t, err, connstr.ErrCredentialsRequired)
		assert.Empty(t, f.mock.Commands)
	})

	t.Run("query prints rows tab separated", func(t *testing.T) {
		f := newFixture(t, answer("SYSTEM~ONLINE\nUSERS ~ OFFLINE\n"))
		out, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
			f.args("sql", "--query", "-e", "select tablespace_name, status from dba_tablespaces")...)
		require.NoError(t, err)
		assert.Equal(t, "SYSTEM\tONLINE\nUSERS\tOFFLINE\n", out)

		stdin := string(f.mock.Last().StdinData)
		assert.Contains(t, stdin, "set pagesize                   0")
		assert.Contains(t, stdin, `set colsep "~"`)
		assert.True(t, strings.HasSuffix(stdin, "from dba_tablespaces;\n"), "query is terminated")
	})

	t.Run("instant client layout", func(t *testing.T) {
		f := newFixture(t, nil)
		f.home.ScriptAt("sqlplus", "exit 0")
		_, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
			f.args("sql", "--instant-client", "--no-check", "-e", "select 1 from dual;")...)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(f.home.Dir, "sqlplus"), f.mock.Last().Name)
	})
}

func TestSQLCmd_NonzeroExit(t *testing.T) {
	f := newFixture(t, nil)
	f.home.Script("sqlplus", "echo partial\nexit 3")
	mgr := NewToolManager(NewSession(zap.NewNop(), runner.OSExecutor()), zap.NewNop())
	mgr.session.stdin = strings.NewReader("")

	out, err := execute(t, NewSQLCmdWithManager(mgr), f.args("sql", "-e", "select 1 from dual;")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolExited)
	assert.Equal(t, "partial\n", out)
}

func TestRMANCmd(t *testing.T) {
	t.Run("default connect", func(t *testing.T) {
		f := newFixture(t, answer("RMAN> \nRecovery Manager complete.\n"))
		out, err := execute(t, NewRMANCmdWithManager(newToolManager(f, "backup database;\n")),
			f.args("rman")...)
		require.NoError(t, err)
		assert.Contains(t, out, "Recovery Manager complete.")

		cmd := f.mock.Last()
		assert.Equal(t, filepath.Join(f.home.Dir, "bin", "rman"), cmd.Name)
		assert.Equal(t, []string{"target /"}, cmd.Args)
		assert.Equal(t, "backup database;\n", string(cmd.StdinData))
	})

	t.Run("connect clause is passed verbatim", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := execute(t, NewRMANCmdWithManager(newToolManager(f, "list backup;\n")),
			f.args("rman", "--connect", "target sys/pw@prod catalog rco/pw@rcat")...)
		require.NoError(t, err)
		assert.Equal(t, []string{"target sys/pw@prod catalog rco/pw@rcat"}, f.mock.Last().Args)
	})

	t.Run("any facility is an error", func(t *testing.T) {
		f := newFixture(t, answer("RMAN-03002: failure of backup command\nORA-19502: write error\n"))
		_, err := execute(t, NewRMANCmdWithManager(newToolManager(f, "backup database;\n")), f.args("rman")...)
		res, ok := runner.AsReported(err)
		require.True(t, ok, "expected findings, got %v", err)
		assert.Equal(t, []string{"RMAN-03002", "ORA-19502"}, res.Scan().Codes())
	})
}

func TestDGMGRLCmd(t *testing.T) {
	f := newFixture(t, answer("Configuration - prod\n  Protection Mode: MaxPerformance"))
	out, err := execute(t, NewDGMGRLCmdWithManager(newToolManager(f, "show configuration;\n")), f.args("dgmgrl")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Protection Mode: MaxPerformance")
	assert.Equal(t, []string{"-silent", "/"}, f.mock.Last().Args)
}

func TestToolManager_ConfigErrors(t *testing.T) {
	f := newFixture(t, nil)
	_, err := execute(t, NewSQLCmdWithManager(newToolManager(f, "")),
		f.args("sql", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "-e", "select 1 from dual;")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrConfigNotFound)
	assert.Empty(t, f.mock.Commands)
}

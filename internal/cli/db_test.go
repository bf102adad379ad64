package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dbakit/internal/humanfmt"
	"dbakit/internal/runner"
)

// scripted answers an invocation whose stdin or argv contains a key.
func scripted(answers map[string]string) *runner.MockExecutor {
	return &runner.MockExecutor{
		CommandFunc: func(spec runner.ExecSpec) *runner.MockCommand {
			argv := strings.Join(spec.Args, " ")
			return &runner.MockCommand{RunFunc: func(stdin string) ([]byte, error) {
				for key, out := range answers {
					if strings.Contains(stdin, key) || strings.Contains(argv, key) {
						return []byte(out), nil
					}
				}
				return nil, nil
			}}
		},
	}
}

func runDB(t *testing.T, answers map[string]string, args ...string) (string, *fixture, error) {
	t.Helper()
	f := newFixture(t, scripted(answers))
	out, err := execute(t, NewDBCmdWithManager(NewDBManager(f.session(""), zap.NewNop())), f.args(append([]string{"db"}, args...)...)...)
	return out, f, err
}

func TestDBCmd(t *testing.T) {
	t.Run("state", func(t *testing.T) {
		out, _, err := runDB(t, map[string]string{"v$instance": "DB_STATUS!~!OPEN"}, "state")
		require.NoError(t, err)
		assert.Equal(t, "OPEN\n", out)
	})

	t.Run("state of a stopped instance", func(t *testing.T) {
		out, _, err := runDB(t, map[string]string{"v$instance": "ORA-01034: ORACLE not available"}, "state")
		require.NoError(t, err)
		assert.Equal(t, "STOPPED\n", out)
	})

	t.Run("param", func(t *testing.T) {
		out, f, err := runDB(t, map[string]string{"x$ksppi": "8192"}, "param", "db_block_size")
		require.NoError(t, err)
		assert.Equal(t, "8192\n", out)
		assert.Contains(t, string(f.mock.Last().StdinData), "i.ksppinm = 'db_block_size'")
	})

	t.Run("param rejects odd names", func(t *testing.T) {
		_, f, err := runDB(t, nil, "param", "x'; drop table t; --")
		require.Error(t, err)
		assert.Empty(t, f.mock.Commands)
	})

	t.Run("cdb", func(t *testing.T) {
		out, _, err := runDB(t, map[string]string{
			"desc v$database": " Name    Null?    Type\n CDB              VARCHAR2(3)\n",
			"select cdb":      "YES",
		}, "cdb")
		require.NoError(t, err)
		assert.Equal(t, "true\n", out)
	})

	t.Run("version", func(t *testing.T) {
		out, f, err := runDB(t, map[string]string{"-v": "SQL*Plus: Release 19.0.0.0.0 - Production\nVersion 19.3.0.0.0"}, "version")
		require.NoError(t, err)
		assert.Equal(t, "19.0.0.0.0\n", out)
		assert.Equal(t, []string{"-v"}, f.mock.Last().Args)
	})

	t.Run("tnsping failure prints the diagnostic block", func(t *testing.T) {
		out, _, err := runDB(t, map[string]string{"prod": "TNS-03505: Failed to resolve name"}, "tnsping", "prod")
		require.Error(t, err)
		assert.ErrorIs(t, err, runner.ErrToolReportedErrors)
		assert.Contains(t, out, "TNS-03505")
	})

	t.Run("tnsping", func(t *testing.T) {
		out, _, err := runDB(t, map[string]string{"prod": "OK (10 msec)"}, "tnsping", "prod")
		require.NoError(t, err)
		assert.Equal(t, "OK (10 msec)\n", out)
	})

	t.Run("rman-config", func(t *testing.T) {
		out, f, err := runDB(t, map[string]string{"show all": "RMAN configuration parameters are:\n" +
			"CONFIGURE RETENTION POLICY TO REDUNDANCY 1; # default\n" +
			"CONFIGURE BACKUP OPTIMIZATION OFF; # default\n"}, "rman-config")
		require.NoError(t, err)
		assert.Equal(t, "CONFIGURE RETENTION POLICY TO REDUNDANCY 1; # default\nCONFIGURE BACKUP OPTIMIZATION OFF; # default\n", out)
		assert.Equal(t, []string{"target /"}, f.mock.Last().Args)
	})

	t.Run("backups validates the date", func(t *testing.T) {
		_, f, err := runDB(t, nil, "backups", "--since", "yesterday")
		assert.ErrorIs(t, err, humanfmt.ErrInvalidDate)
		assert.Empty(t, f.mock.Commands)
	})

	t.Run("backups", func(t *testing.T) {
		_, f, err := runDB(t, map[string]string{"list backup": "List of Backup Sets"}, "backups", "--since", "2024-01-31 12:00")
		require.NoError(t, err)
		assert.Contains(t, string(f.mock.Last().StdinData),
			`list backup completed after "to_date('2024-01-31 12:00','YYYY-MM-DD HH24:MI')";`)
	})
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"dbakit/internal/runner"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	// Empty variables count as unset.
	for _, key := range keys {
		t.Setenv(EnvPrefix+"_"+strings.ToUpper(key), "")
	}
	return home
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, runner.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, filepath.Join(home, "dba", "etc", ".passwd"), cfg.PasswordFile)
	assert.Empty(t, cfg.Source)
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".dbakit", "config.yaml")
	writeConfig(t, path, "sid: filesid\nhome: /u01/file\ntimeout: 30s\ncomponents: [rdbms, network]\n")

	t.Run("file", func(t *testing.T) {
		cfg, err := Load(Options{})
		require.NoError(t, err)
		assert.Equal(t, path, cfg.Source)
		assert.Equal(t, "filesid", cfg.SID)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
		assert.Equal(t, []string{"rdbms", "network"}, cfg.Components)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("DBAKIT_SID", "envsid")
		t.Setenv("DBAKIT_COMPONENTS", "sqlplus,oracore")
		cfg, err := Load(Options{})
		require.NoError(t, err)
		assert.Equal(t, "envsid", cfg.SID)
		assert.Equal(t, "/u01/file", cfg.Home)
		assert.Equal(t, []string{"sqlplus", "oracore"}, cfg.Components)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("DBAKIT_SID", "envsid")
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.String("sid", "", "")
		flags.String("home", "", "")
		flags.Duration("timeout", 0, "")
		require.NoError(t, flags.Parse([]string{"--sid", "flagsid", "--timeout", "2m"}))

		cfg, err := Load(Options{Flags: flags})
		require.NoError(t, err)
		assert.Equal(t, "flagsid", cfg.SID)
		assert.Equal(t, "/u01/file", cfg.Home, "unset flags do not mask the file")
		assert.Equal(t, 2*time.Minute, cfg.Timeout)
	})
}

func TestLoad_ExplicitPath(t *testing.T) {
	isolate(t)
	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.True(t, errors.Is(err, ErrConfigNotFound))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	writeConfig(t, bad, "sid: [unterminated\n")
	_, err = Load(Options{Path: bad})
	assert.True(t, errors.Is(err, ErrConfigInvalid))

	negative := filepath.Join(t.TempDir(), "neg.yaml")
	writeConfig(t, negative, "timeout: -1s\n")
	_, err = Load(Options{Path: negative})
	assert.True(t, errors.Is(err, ErrConfigInvalid))
}

func TestWrite(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := &Config{SID: "orcl", Home: "/u01/db", Timeout: 90 * time.Second, Components: []string{"rdbms"}}

	require.NoError(t, Write(path, cfg, false))
	err := Write(path, cfg, false)
	assert.True(t, errors.Is(err, ErrConfigExists))
	require.NoError(t, Write(path, cfg, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, "1m30s", raw["timeout"])
	assert.Equal(t, "orcl", raw["sid"])
	assert.NotContains(t, raw, "source")

	loaded, err := Load(Options{Path: path})
	require.NoError(t, err)
	assert.Equal(t, cfg.Timeout, loaded.Timeout)
	assert.Equal(t, cfg.Components, loaded.Components)
}

func TestBaseEnv(t *testing.T) {
	isolate(t)
	t.Setenv("ORACLE_SID", "fromprocess")
	envFile := filepath.Join(t.TempDir(), "db.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ORACLE_SID=fromfile\nTNS_ADMIN=/u01/net\n"), 0o600))

	cfg := &Config{EnvFile: envFile}
	env, err := cfg.BaseEnv()
	require.NoError(t, err)
	assert.Equal(t, "fromfile", env["ORACLE_SID"])
	assert.Equal(t, "/u01/net", env["TNS_ADMIN"])
	assert.Equal(t, "fromprocess", os.Getenv("ORACLE_SID"), "process environment is untouched")

	_, err = (&Config{EnvFile: filepath.Join(t.TempDir(), "none.env")}).BaseEnv()
	assert.True(t, errors.Is(err, ErrEnvFileInvalid))
}

func TestOratabCandidates(t *testing.T) {
	assert.Equal(t, "/tmp/oratab", (&Config{Oratab: "/tmp/oratab"}).OratabCandidates()[0])
}

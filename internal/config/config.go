// Package config loads dbakit settings from ~/.dbakit/config.yaml,
// DBAKIT_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"dbakit/internal/oraenv"
	"dbakit/internal/oratab"
	"dbakit/internal/runner"
	"dbakit/pkg/errx"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. DBAKIT_SID.
	EnvPrefix = "DBAKIT"
	dirName   = ".dbakit"
	fileName  = "config.yaml"
)

// Setting keys. Flags with the same name (dashes for underscores) bind to them.
const (
	KeyOratab       = "oratab"
	KeySID          = "sid"
	KeyHome         = "home"
	KeyTimeout      = "timeout"
	KeyPasswordFile = "password_file"
	KeyEnvFile      = "env_file"
	KeyComponents   = "components"
)

var keys = []string{KeyOratab, KeySID, KeyHome, KeyTimeout, KeyPasswordFile, KeyEnvFile, KeyComponents}

var (
	ErrConfigNotFound  = errx.Define(errx.CodeConfig, "config file not found")
	ErrConfigInvalid   = errx.Define(errx.CodeConfig, "config file invalid")
	ErrConfigExists    = errx.Define(errx.CodeConfig, "config file already exists")
	ErrWriteConfig     = errx.Define(errx.CodeConfig, "failed to write config file")
	ErrEnvFileInvalid  = errx.Define(errx.CodeConfig, "env file unreadable")
	ErrHomeDirNotFound = errx.Define(errx.CodeConfig, "failed to get home directory")
)

// Config is the effective configuration.
type Config struct {
	Oratab       string        `yaml:"oratab,omitempty"`
	SID          string        `yaml:"sid,omitempty"`
	Home         string        `yaml:"home,omitempty"`
	Timeout      time.Duration `yaml:"-"`
	PasswordFile string        `yaml:"password_file,omitempty"`
	EnvFile      string        `yaml:"env_file,omitempty"`
	Components   []string      `yaml:"components,omitempty"`

	// Source is the file the settings were read from, if any.
	Source string `yaml:"-"`
}

// fileConfig is the on-disk form; durations are written as strings.
type fileConfig struct {
	Config  `yaml:",inline"`
	Timeout string `yaml:"timeout,omitempty"`
}

// Default returns the built-in settings.
func Default() *Config {
	cfg := &Config{Timeout: runner.DefaultTimeout}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.PasswordFile = filepath.Join(home, "dba", "etc", ".passwd")
	}
	return cfg
}

// DefaultPath returns ~/.dbakit/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errx.From(ErrHomeDirNotFound, "", err)
	}
	return filepath.Join(home, dirName, fileName), nil
}

// Options controls Load.
type Options struct {
	// Path is an explicit config file; it must exist.
	Path string
	// Flags are bound by key name when present.
	Flags *pflag.FlagSet
}

// Load resolves the effective configuration.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	defaults := Default()
	v.SetDefault(KeyTimeout, defaults.Timeout)
	v.SetDefault(KeyPasswordFile, defaults.PasswordFile)

	path := opts.Path
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	source := ""
	switch _, err := os.Stat(path); {
	case err == nil:
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errx.From(ErrConfigInvalid, "cannot parse config file "+path, err).
				WithContext("path", path)
		}
		source = path
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, errx.From(ErrConfigNotFound, "config file not found: "+path, err).
			WithContext("path", path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if opts.Flags != nil {
		for _, key := range keys {
			if flag := opts.Flags.Lookup(strings.ReplaceAll(key, "_", "-")); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, errx.WrapConfig("bind flag "+flag.Name, err)
				}
			}
		}
	}

	cfg := &Config{
		Oratab:       v.GetString(KeyOratab),
		SID:          v.GetString(KeySID),
		Home:         v.GetString(KeyHome),
		Timeout:      v.GetDuration(KeyTimeout),
		PasswordFile: v.GetString(KeyPasswordFile),
		EnvFile:      v.GetString(KeyEnvFile),
		Components:   splitList(v.GetStringSlice(KeyComponents)),
		Source:       source,
	}
	if cfg.Timeout < 0 {
		return nil, errx.From(ErrConfigInvalid, "timeout must not be negative", nil).
			WithContext("timeout", cfg.Timeout.String())
	}
	return cfg, nil
}

// splitList accepts both YAML lists and comma separated strings.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ReadEnvFile parses a KEY=VALUE file.
func ReadEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, errx.From(ErrEnvFileInvalid, "cannot read env file "+path, err).
			WithContext("path", path)
	}
	return vars, nil
}

// BaseEnv returns the process environment with the env file, if any,
// layered on top. The process environment itself is left untouched.
func (c *Config) BaseEnv() (map[string]string, error) {
	env := oraenv.FromOS()
	if c.EnvFile == "" {
		return env, nil
	}
	extra, err := ReadEnvFile(c.EnvFile)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		env[k] = v
	}
	return env, nil
}

// OratabCandidates returns the registry search order.
func (c *Config) OratabCandidates() []string {
	return oratab.Candidates(c.Oratab)
}

// YAML renders the configuration in file form.
func (c *Config) YAML() ([]byte, error) {
	fc := fileConfig{Config: *c}
	if c.Timeout > 0 {
		fc.Timeout = c.Timeout.String()
	}
	return yaml.Marshal(fc)
}

// Write saves cfg to path, creating the parent directory. An existing
// file is only replaced when force is set.
func Write(path string, cfg *Config, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errx.From(ErrConfigExists, "config file already exists: "+path, nil).
			WithContext("path", path)
	}
	data, err := cfg.YAML()
	if err != nil {
		return errx.From(ErrWriteConfig, "", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errx.From(ErrWriteConfig, "cannot create "+filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errx.From(ErrWriteConfig, "cannot write "+path, err).WithContext("path", path)
	}
	return nil
}

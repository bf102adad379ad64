// Package oraenv resolves the installation home and instance identity for
// a tool invocation and builds the child-process environment from them.
//
// Resolution is purely functional: the process environment is never
// modified. The returned Environment carries the variables to hand to
// the child process.
package oraenv

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dbakit/internal/oratab"
	"dbakit/pkg/errx"
)

// Environment variable names consumed and produced by the resolver.
const (
	VarHome        = "ORACLE_HOME"
	VarSID         = "ORACLE_SID"
	VarLibraryPath = "LD_LIBRARY_PATH"
)

// scrubbed variables break the tools' own script path resolution.
var scrubbed = []string{"SQLPATH", "ORACLE_PATH"}

var (
	ErrIdentityRequired      = errx.Define(errx.CodeIdentity, "instance identity required")
	ErrInstanceNotRegistered = errx.Define(errx.CodeIdentity, "instance not registered")
	ErrNoRegisteredHome      = errx.Define(errx.CodeIdentity, "no installation home registered")

	ErrHomeNotFound          = errx.Define(errx.CodeEnvironment, "installation home not found")
	ErrHomeNotDirectory      = errx.Define(errx.CodeEnvironment, "installation home is not a directory")
	ErrHomeNotAccessible     = errx.Define(errx.CodeEnvironment, "installation home not accessible")
	ErrExecutableNotFound    = errx.Define(errx.CodeEnvironment, "executable not found")
	ErrExecutableNotRunnable = errx.Define(errx.CodeEnvironment, "executable not readable and executable")
)

// Layout describes where a tool's executable and libraries live relative
// to the installation home. An empty directory means the home itself.
type Layout struct {
	Binary string
	BinDir string
	LibDir string
}

// StandardLayout is the server installation layout: home/bin and home/lib.
func StandardLayout(binary string) Layout {
	return Layout{Binary: binary, BinDir: "bin", LibDir: "lib"}
}

// FlatLayout is the instant client layout with everything directly under
// the home.
func FlatLayout(binary string) Layout {
	return Layout{Binary: binary}
}

// Request is the input to Resolve.
type Request struct {
	// SID and Home are the explicit identity. Empty values fall back to
	// ORACLE_SID and ORACLE_HOME in BaseEnv.
	SID  string
	Home string

	// LocalSession marks a local privileged connection, which needs an
	// instance identity to attach to.
	LocalSession bool

	Layout Layout

	// BaseEnv is the environment the child inherits. Nil means empty.
	BaseEnv map[string]string

	// Oratab lists registry candidates; nil uses oratab.Candidates("").
	Oratab []string
}

// Environment is a resolved and validated tool environment.
type Environment struct {
	SID         string
	Home        string
	Executable  string
	LibraryPath string
	// Registry is the registry file consulted, if any.
	Registry string
	Vars     map[string]string
}

// Resolve applies the resolution rules in order:
//
//  1. explicit (or inherited) home is validated and used
//  2. a local session without an instance identity fails
//  3. a known instance with no home is looked up in the registry
//  4. otherwise the first registry entry is adopted
//
// The library search path is the home's library directory prefixed onto
// any inherited value.
func Resolve(req Request) (*Environment, error) {
	sid := req.SID
	if sid == "" {
		sid = req.BaseEnv[VarSID]
	}
	home := req.Home
	if home == "" {
		home = req.BaseEnv[VarHome]
	}

	if req.LocalSession && sid == "" {
		return nil, errx.From(ErrIdentityRequired,
			"ORACLE_SID must be set for a local privileged connection", nil)
	}

	env := &Environment{SID: sid}
	if home == "" {
		entry, source, err := homeFromRegistry(sid, req.Oratab)
		if err != nil {
			return nil, err
		}
		home = entry.Home
		env.SID = entry.SID
		env.Registry = source
	}

	exe, err := Validate(home, req.Layout)
	if err != nil {
		return nil, err
	}
	env.Home = home
	env.Executable = exe
	env.LibraryPath = libraryPath(home, req.Layout, req.BaseEnv[VarLibraryPath])
	env.Vars = buildVars(req.BaseEnv, env)
	return env, nil
}

func homeFromRegistry(sid string, candidates []string) (oratab.Entry, string, error) {
	if candidates == nil {
		candidates = oratab.Candidates("")
	}
	reg, loadErr := oratab.LoadFrom(candidates)

	if sid != "" {
		if h, ok := reg.Lookup(sid); ok {
			return oratab.Entry{SID: sid, Home: h}, reg.Path(), nil
		}
		return oratab.Entry{}, "", errx.From(ErrInstanceNotRegistered,
			"instance "+sid+" has no installation home in the registry", loadErr).
			WithContext("sid", sid).
			WithContext("registry", registryLabel(reg))
	}

	first, ok := reg.First()
	if !ok {
		return oratab.Entry{}, "", errx.From(ErrNoRegisteredHome,
			"no ORACLE_HOME given and the instance registry is empty", loadErr).
			WithContext("registry", registryLabel(reg))
	}
	return first, reg.Path(), nil
}

func registryLabel(reg *oratab.Registry) string {
	if !reg.Found() {
		return "not found"
	}
	return reg.Path()
}

// Validate checks that home is an accessible directory holding a readable
// and executable binary for layout, and returns the binary's path.
func Validate(home string, layout Layout) (string, error) {
	info, err := os.Stat(home)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "", pathError(ErrHomeNotFound, "ORACLE_HOME "+home+" does not exist", home, err)
	case err != nil:
		return "", pathError(ErrHomeNotAccessible, "cannot stat ORACLE_HOME "+home, home, err)
	case !info.IsDir():
		return "", pathError(ErrHomeNotDirectory, "ORACLE_HOME "+home+" is not a directory", home, nil)
	}
	if err := accessible(home); err != nil {
		return "", pathError(ErrHomeNotAccessible, "ORACLE_HOME "+home+" is not readable and searchable", home, err)
	}

	exe := filepath.Join(home, layout.BinDir, layout.Binary)
	info, err = os.Stat(exe)
	if err != nil || !info.Mode().IsRegular() {
		return "", pathError(ErrExecutableNotFound, layout.Binary+" not found under "+home, exe, err)
	}
	if err := accessible(exe); err != nil {
		return "", pathError(ErrExecutableNotRunnable, exe+" is not readable and executable", exe, err)
	}
	return exe, nil
}

func pathError(sentinel error, msg, path string, cause error) error {
	return errx.From(sentinel, msg, cause).WithContext("path", path)
}

func libraryPath(home string, layout Layout, inherited string) string {
	lib := filepath.Join(home, layout.LibDir)
	if inherited == "" {
		return lib
	}
	return lib + string(os.PathListSeparator) + inherited
}

func buildVars(base map[string]string, env *Environment) map[string]string {
	vars := make(map[string]string, len(base)+3)
	for k, v := range base {
		vars[k] = v
	}
	for _, name := range scrubbed {
		delete(vars, name)
	}
	vars[VarHome] = env.Home
	vars[VarLibraryPath] = env.LibraryPath
	if env.SID != "" {
		vars[VarSID] = env.SID
	}
	return vars
}

// Environ returns the variables as sorted KEY=VALUE pairs suitable for
// exec.Cmd.Env.
func (e *Environment) Environ() []string {
	out := make([]string, 0, len(e.Vars))
	for k, v := range e.Vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Exports renders the resolved variables as shell export lines.
func (e *Environment) Exports() []string {
	lines := []string{
		"export " + VarHome + "=" + e.Home,
		"export " + VarLibraryPath + "=" + e.LibraryPath,
	}
	if e.SID != "" {
		lines = append(lines, "export "+VarSID+"="+e.SID)
	}
	for _, name := range scrubbed {
		lines = append(lines, "unset "+name)
	}
	return lines
}

// FromOS converts os.Environ into the map form taken by Request.BaseEnv.
func FromOS() map[string]string {
	return fromPairs(os.Environ())
}

func fromPairs(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		m[k] = v
	}
	return m
}

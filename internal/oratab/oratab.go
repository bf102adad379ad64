// Package oratab reads the colon-delimited instance registry that maps
// instance identifiers to installation homes.
//
// Each line has the form
//
//	sid:home[:flag]
//
// where everything after a '#' is a comment. The registry is re-read on
// every call to Load; nothing is cached between calls.
package oratab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"slices"
	"sort"
	"strings"

	"dbakit/pkg/errx"
)

// DefaultLocations is the fixed search order for registry files.
var DefaultLocations = []string{"/etc/oratab", "/var/opt/oracle/oratab"}

var (
	// ErrRegistryUnreadable is returned when a candidate file exists but
	// cannot be opened or read. The registry returned alongside it holds
	// whatever was parsed before the failure.
	ErrRegistryUnreadable = errx.Define(errx.CodeConfig, "instance registry unreadable")
)

var asmInstance = regexp.MustCompile(`^\+ASM`)

// Entry is one registry line.
type Entry struct {
	SID  string
	Home string
	Flag string
}

// Registry is an immutable snapshot of one registry file.
type Registry struct {
	path    string
	entries []Entry
	index   map[string]int
}

// Candidates returns the search order used by Load. A non-empty explicit
// path is prepended unless it is already one of the defaults.
func Candidates(explicit string) []string {
	out := slices.Clone(DefaultLocations)
	if explicit != "" && !slices.Contains(out, explicit) {
		out = append([]string{explicit}, out...)
	}
	return out
}

// Load probes Candidates(explicit) and parses the first existing file.
func Load(explicit string) (*Registry, error) {
	return LoadFrom(Candidates(explicit))
}

// LoadFrom parses the first candidate that exists as a regular file.
//
// When no candidate exists the returned registry is empty, Found reports
// false and the error is nil: an absent registry means "not configured".
func LoadFrom(candidates []string) (*Registry, error) {
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		// #nosec G304 -- registry paths come from a fixed list or the operator.
		f, err := os.Open(path)
		if err != nil {
			return &Registry{path: path, index: map[string]int{}}, unreadable(path, err)
		}
		reg, err := parse(f, path)
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = unreadable(path, closeErr)
		}
		return reg, err
	}
	return &Registry{index: map[string]int{}}, nil
}

// Parse reads registry lines from r.
func Parse(r io.Reader) (*Registry, error) {
	return parse(r, "")
}

func parse(r io.Reader, path string) (*Registry, error) {
	reg := &Registry{path: path, index: map[string]int{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line, _, _ := strings.Cut(scanner.Text(), "#")
		line = strings.TrimSpace(line)
		if strings.Count(line, ":") < 1 {
			continue
		}
		fields := strings.Split(line, ":")
		entry := Entry{
			SID:  strings.TrimSpace(fields[0]),
			Home: strings.TrimSpace(fields[1]),
		}
		if len(fields) > 2 {
			entry.Flag = strings.TrimSpace(fields[2])
		}
		if entry.SID == "" {
			continue
		}
		reg.add(entry)
	}
	if err := scanner.Err(); err != nil {
		return reg, unreadable(path, err)
	}
	return reg, nil
}

// add stores entry with last-write-wins semantics; a redefined SID keeps
// the position of its first appearance.
func (r *Registry) add(entry Entry) {
	if i, ok := r.index[entry.SID]; ok {
		r.entries[i] = entry
		return
	}
	r.index[entry.SID] = len(r.entries)
	r.entries = append(r.entries, entry)
}

func unreadable(path string, cause error) error {
	msg := "cannot read instance registry"
	if path != "" {
		msg = fmt.Sprintf("cannot read instance registry %s: %v", path, cause)
	}
	err := errx.From(ErrRegistryUnreadable, msg, cause)
	if path != "" {
		err = err.WithContext("path", path)
	}
	if errors.Is(cause, fs.ErrPermission) {
		err = err.WithContext("reason", "permission denied")
	}
	return err
}

// Path returns the file the registry was read from, or "" when none was found.
func (r *Registry) Path() string { return r.path }

// Found reports whether a registry file was located.
func (r *Registry) Found() bool { return r.path != "" }

// Len returns the number of distinct instances.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup returns the installation home registered for sid.
func (r *Registry) Lookup(sid string) (string, bool) {
	i, ok := r.index[sid]
	if !ok {
		return "", false
	}
	return r.entries[i].Home, true
}

// Entries returns the entries in file order.
func (r *Registry) Entries() []Entry {
	return slices.Clone(r.entries)
}

// First returns the first entry in file order.
func (r *Registry) First() (Entry, bool) {
	if len(r.entries) == 0 {
		return Entry{}, false
	}
	return r.entries[0], true
}

// Map returns the registry as a sid → home mapping.
func (r *Registry) Map() map[string]string {
	m := make(map[string]string, len(r.entries))
	for _, entry := range r.entries {
		m[entry.SID] = entry.Home
	}
	return m
}

// ASMHome returns the home of the ASM instance. Instances matching +ASM
// are visited in sorted order and the last one wins.
func (r *Registry) ASMHome() string {
	sids := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		if asmInstance.MatchString(entry.SID) {
			sids = append(sids, entry.SID)
		}
	}
	sort.Strings(sids)
	if len(sids) == 0 {
		return ""
	}
	home, _ := r.Lookup(sids[len(sids)-1])
	return home
}

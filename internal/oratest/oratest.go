// Package oratest builds throwaway installation homes for tests: a
// directory tree with shell-script stand-ins for the tools, a facility
// catalog and message files.
package oratest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Catalog is a small facility catalog covering the tools' default
// component filters.
const Catalog = `# facility:component:legacy name:description
ora:rdbms:oracle:RDBMS server
sp2:sqlplus:sqlplus:SQL*Plus
rman:rdbms:rman:Recovery Manager
ort:oracore:ort:Core library
tns:network:net:Oracle Net
dgm:rdbms:dgmgrl:Data Guard broker
`

// Messages is a message file for the ORA facility.
const Messages = `/ Copyright (c) 1994, 2019, Oracle.
/
00000, 00000, "normal, successful completion"
// *Cause:  Normal exit.
// *Action: None.
00001, 00000, "unique constraint (%s.%s) violated"
// *Cause:  An UPDATE or INSERT statement attempted to insert a duplicate key.
// *Action: Either remove the unique restriction or do not insert the key.
1034, 00000, "ORACLE not available"
// *Cause:  Oracle was not started up.
// *Action: Start up the instance.
`

// Home is a fake installation home rooted at Dir.
type Home struct {
	Dir string
	t   testing.TB
}

// NewHome creates an empty home with bin and lib directories.
func NewHome(t testing.TB) *Home {
	t.Helper()
	dir := t.TempDir()
	for _, sub := range []string{"bin", "lib"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			t.Fatalf("create %s: %v", sub, err)
		}
	}
	return &Home{Dir: dir, t: t}
}

// NewStandardHome creates a home with the default catalog and the ORA
// message file installed.
func NewStandardHome(t testing.TB) *Home {
	t.Helper()
	h := NewHome(t)
	h.Catalog(Catalog)
	h.Messages("rdbms", "ora", Messages)
	return h
}

// Script installs an executable /bin/sh script at bin/name and returns
// its path.
func (h *Home) Script(name, body string) string {
	h.t.Helper()
	return h.ScriptAt(filepath.Join("bin", name), body)
}

// ScriptAt installs an executable script at rel, relative to the home.
func (h *Home) ScriptAt(rel, body string) string {
	h.t.Helper()
	if !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	return h.write(rel, "#!/bin/sh\n"+body, 0o755)
}

// File writes a plain file at rel.
func (h *Home) File(rel, content string) string {
	h.t.Helper()
	return h.write(rel, content, 0o644)
}

// Catalog writes lib/facility.lis.
func (h *Home) Catalog(content string) string {
	h.t.Helper()
	return h.File(filepath.Join("lib", "facility.lis"), content)
}

// Messages writes <component>/mesg/<facility>us.msg.
func (h *Home) Messages(component, facility, content string) string {
	h.t.Helper()
	return h.File(filepath.Join(component, "mesg", facility+"us.msg"), content)
}

func (h *Home) write(rel, content string, mode os.FileMode) string {
	h.t.Helper()
	path := filepath.Join(h.Dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		h.t.Fatalf("create dir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		h.t.Fatalf("write %s: %v", rel, err)
	}
	if err := os.Chmod(path, mode); err != nil {
		h.t.Fatalf("chmod %s: %v", rel, err)
	}
	return path
}

// Oratab writes a registry file with the given "sid:home" lines and
// returns its path.
func Oratab(t testing.TB, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oratab")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write oratab: %v", err)
	}
	return path
}

// Missing returns a path inside a fresh temp dir that does not exist.
func Missing(t testing.TB) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing")
}

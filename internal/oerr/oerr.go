// Package oerr looks up the cause/action explanation of a coded message
// in the installed per-facility message files.
package oerr

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"dbakit/internal/facility"
	"dbakit/pkg/errx"
)

var (
	ErrMalformedCode       = errx.Define(errx.CodeLookup, "malformed error code")
	ErrUnknownFacility     = errx.Define(errx.CodeLookup, "unknown facility")
	ErrMessagesUnavailable = errx.Define(errx.CodeLookup, "message file unavailable")
	// ErrCodeNotFound is a lookup miss: the message file exists but has no
	// entry for the code.
	ErrCodeNotFound = errx.Define(errx.CodeLookup, "no message for code")
)

const continuationPrefix = "//"

var digits = regexp.MustCompile(`^\d+$`)

// Code is a parsed FACILITY-NUMBER pair.
type Code struct {
	Facility string
	Number   string
}

// ParseCode splits s on the single '-' separator. The facility is
// canonicalized; the number must be all digits.
func ParseCode(s string) (Code, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Code{}, malformed(s, "expected FACILITY-NUMBER")
	}
	c := Code{Facility: facility.Canonical(parts[0]), Number: strings.TrimSpace(parts[1])}
	if c.Facility == "" {
		return Code{}, malformed(s, "missing facility")
	}
	if !digits.MatchString(c.Number) {
		return Code{}, malformed(s, "number must be digits")
	}
	return c, nil
}

func malformed(s, why string) error {
	return errx.From(ErrMalformedCode, "malformed error code "+strconv.Quote(s)+": "+why, nil).
		WithContext("code", s)
}

func (c Code) String() string { return c.Facility + "-" + c.Number }

// Message is the explanation block of one code. Header is the matched
// header line; Lines are the continuation lines that follow it.
type Message struct {
	Code   Code
	Path   string
	Header string
	Lines  []string
}

// Found reports whether a header line matched.
func (m *Message) Found() bool { return m != nil && m.Header != "" }

// Text returns the header followed by the continuation lines.
func (m *Message) Text() []string {
	if !m.Found() {
		return nil
	}
	return append([]string{m.Header}, m.Lines...)
}

// Search scans a message file for number. When no header matches as
// given, it retries once with leading zeros removed.
func Search(r io.Reader, number string) (header string, lines []string, err error) {
	var all []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		all = append(all, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return "", nil, err
	}

	header, lines = searchLines(all, number)
	if header != "" {
		return header, lines, nil
	}
	n, convErr := strconv.Atoi(number)
	if convErr != nil {
		return "", nil, nil
	}
	if stripped := strconv.Itoa(n); stripped != number {
		header, lines = searchLines(all, stripped)
	}
	return header, lines, nil
}

func searchLines(all []string, number string) (string, []string) {
	re := regexp.MustCompile(`^0*` + regexp.QuoteMeta(number) + `,`)
	for i, line := range all {
		if !re.MatchString(line) {
			continue
		}
		var body []string
		for _, next := range all[i+1:] {
			if !strings.HasPrefix(next, continuationPrefix) {
				break
			}
			body = append(body, next)
		}
		return line, body
	}
	return "", nil
}

// Lookup resolves codes against one installation home.
type Lookup struct {
	home    string
	catalog *facility.Catalog
}

// NewLookup loads the facility catalog of home.
func NewLookup(home string) (*Lookup, error) {
	cat, err := facility.LoadHome(home)
	if err != nil {
		return nil, err
	}
	return &Lookup{home: home, catalog: cat}, nil
}

// NewLookupWithCatalog uses an already loaded catalog.
func NewLookupWithCatalog(home string, cat *facility.Catalog) *Lookup {
	return &Lookup{home: home, catalog: cat}
}

// MessagePath returns <home>/<component>/mesg/<facility>us.msg.
func (l *Lookup) MessagePath(c Code) (string, error) {
	d, ok := l.catalog.Lookup(c.Facility)
	if !ok {
		return "", errx.From(ErrUnknownFacility, "facility "+c.Facility+" is not in the catalog", nil).
			WithContext("facility", c.Facility).
			WithContext("catalog", l.catalog.Path())
	}
	name := strings.ToLower(c.Facility) + "us.msg"
	return filepath.Join(l.home, d.Component, "mesg", name), nil
}

// Explain returns the explanation for code.
//
// A miss returns an empty Message together with ErrCodeNotFound. A
// missing or unreadable message file is reported as ErrMessagesUnavailable
// so it is never mistaken for a miss.
func (l *Lookup) Explain(code string) (*Message, error) {
	c, err := ParseCode(code)
	if err != nil {
		return nil, err
	}
	path, err := l.MessagePath(c)
	if err != nil {
		return &Message{Code: c}, err
	}
	msg := &Message{Code: c, Path: path}

	// #nosec G304 -- path is built from the installation home and catalog.
	f, err := os.Open(path)
	if err != nil {
		return msg, errx.From(ErrMessagesUnavailable, "cannot open message file "+path, err).
			WithContext("path", path)
	}
	defer f.Close()

	msg.Header, msg.Lines, err = Search(f, c.Number)
	if err != nil {
		return msg, errx.From(ErrMessagesUnavailable, "cannot read message file "+path, err).
			WithContext("path", path)
	}
	if !msg.Found() {
		return msg, errx.From(ErrCodeNotFound, "no message for "+c.String(), nil).
			WithContext("code", c.String()).
			WithContext("path", path)
	}
	return msg, nil
}

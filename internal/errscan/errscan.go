// Package errscan finds coded messages such as ORA-00942 in tool output.
package errscan

import (
	"regexp"
	"strings"

	"dbakit/internal/facility"
)

// Occurrence is one coded message found in the output.
type Occurrence struct {
	Code string
	Line string
}

// Result is the outcome of a scan. Status is 1 when any occurrence was
// found and 0 otherwise.
type Result struct {
	Status int
	Errors []Occurrence
}

// Failed reports whether the scan found anything.
func (r Result) Failed() bool { return r.Status != 0 }

// Codes returns the distinct codes in order of first appearance.
func (r Result) Codes() []string {
	seen := make(map[string]struct{}, len(r.Errors))
	var codes []string
	for _, occ := range r.Errors {
		if _, ok := seen[occ.Code]; ok {
			continue
		}
		seen[occ.Code] = struct{}{}
		codes = append(codes, occ.Code)
	}
	return codes
}

// Scanner matches the facilities selected from a catalog.
type Scanner struct {
	facilities []string
	patterns   []*regexp.Regexp
}

// New builds a scanner for the facilities in cat owned by components.
func New(cat *facility.Catalog, components []string) *Scanner {
	return ForFacilities(cat.CodesFor(components))
}

// ForFacilities builds a scanner for an explicit set of facility codes.
func ForFacilities(codes []string) *Scanner {
	s := &Scanner{}
	for _, code := range codes {
		code = facility.Canonical(code)
		if code == "" {
			continue
		}
		s.facilities = append(s.facilities, code)
		s.patterns = append(s.patterns, regexp.MustCompile(regexp.QuoteMeta(code)+`-\d{5}`))
	}
	return s
}

// Facilities returns the facility codes the scanner looks for.
func (s *Scanner) Facilities() []string {
	return append([]string(nil), s.facilities...)
}

// Scan checks every line of output against every facility. Each facility
// contributes at most one occurrence per line, its first match.
func (s *Scanner) Scan(output string) Result {
	var res Result
	for _, line := range strings.Split(output, "\n") {
		for _, re := range s.patterns {
			if code := re.FindString(line); code != "" {
				res.Errors = append(res.Errors, Occurrence{Code: code, Line: line})
			}
		}
	}
	if len(res.Errors) > 0 {
		res.Status = 1
	}
	return res
}

// Scan is a convenience for New(cat, components).Scan(output).
func Scan(cat *facility.Catalog, output string, components []string) Result {
	return New(cat, components).Scan(output)
}

// ScanHome loads the catalog of home and scans output with it.
func ScanHome(home, output string, components []string) (Result, error) {
	cat, err := facility.LoadHome(home)
	if err != nil {
		return Result{}, err
	}
	return Scan(cat, output, components), nil
}

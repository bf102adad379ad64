// Package facility loads the component catalog (lib/facility.lis) that
// maps message facility codes to the product component owning them.
package facility

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dbakit/pkg/errx"
)

// AllComponents is the component filter that selects every facility.
const AllComponents = "ALL_COMPONENTS"

// ErrCatalogUnavailable is returned when the catalog file cannot be read.
var ErrCatalogUnavailable = errx.Define(errx.CodeConfig, "facility catalog unavailable")

// Descriptor describes one facility.
type Descriptor struct {
	// Code is the facility code in canonical (upper) case.
	Code        string
	Component   string
	LegacyName  string
	Description string
}

// Catalog maps canonical facility codes to descriptors.
type Catalog struct {
	path        string
	descriptors map[string]Descriptor
}

// CatalogPath returns the catalog location for an installation home.
func CatalogPath(home string) string {
	return filepath.Join(home, "lib", "facility.lis")
}

// Canonical returns the canonical form of a facility code. Every stored
// key and every lookup goes through it.
func Canonical(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LoadHome loads the catalog of an installation home.
func LoadHome(home string) (*Catalog, error) {
	return Load(CatalogPath(home))
}

// Load reads the catalog at path. A missing or unreadable file is a
// configuration error.
func Load(path string) (*Catalog, error) {
	// #nosec G304 -- path is derived from a validated installation home.
	f, err := os.Open(path)
	if err != nil {
		return nil, errx.From(ErrCatalogUnavailable, "cannot open facility catalog "+path, err).
			WithContext("path", path)
	}
	defer f.Close()

	cat, err := Parse(f)
	if err != nil {
		return nil, errx.From(ErrCatalogUnavailable, "cannot read facility catalog "+path, err).
			WithContext("path", path)
	}
	cat.path = path
	return cat, nil
}

// Parse reads catalog lines of the form
//
//	facility:component:legacy name:description
//
// Lines without exactly three separators or with an empty facility are
// ignored. Later lines redefine earlier ones.
func Parse(r io.Reader) (*Catalog, error) {
	cat := &Catalog{descriptors: make(map[string]Descriptor)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		line, _, _ = strings.Cut(line, "#")
		if strings.Count(line, ":") != 3 {
			continue
		}
		f := strings.Split(line, ":")
		d := Descriptor{
			Code:        Canonical(f[0]),
			Component:   strings.TrimSpace(f[1]),
			LegacyName:  strings.TrimSpace(f[2]),
			Description: strings.TrimSpace(f[3]),
		}
		if d.Code == "" {
			continue
		}
		cat.descriptors[d.Code] = d
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Path returns the file the catalog was loaded from.
func (c *Catalog) Path() string { return c.path }

// Len returns the number of facilities.
func (c *Catalog) Len() int { return len(c.descriptors) }

// Lookup returns the descriptor for code, matched case-insensitively.
func (c *Catalog) Lookup(code string) (Descriptor, bool) {
	d, ok := c.descriptors[Canonical(code)]
	return d, ok
}

// Codes returns every facility code in sorted order.
func (c *Catalog) Codes() []string {
	codes := make([]string, 0, len(c.descriptors))
	for code := range c.descriptors {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Descriptors returns every descriptor ordered by code.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.descriptors))
	for _, code := range c.Codes() {
		out = append(out, c.descriptors[code])
	}
	return out
}

// CodesFor returns the sorted codes whose component exactly matches one
// of components. A filter consisting of AllComponents alone selects every
// code.
func (c *Catalog) CodesFor(components []string) []string {
	if IsWildcard(components) {
		return c.Codes()
	}
	want := make(map[string]struct{}, len(components))
	for _, comp := range components {
		want[comp] = struct{}{}
	}
	var codes []string
	for _, code := range c.Codes() {
		if _, ok := want[c.descriptors[code].Component]; ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// IsWildcard reports whether components is the all-components selector.
func IsWildcard(components []string) bool {
	return len(components) == 1 && strings.EqualFold(strings.TrimSpace(components[0]), AllComponents)
}

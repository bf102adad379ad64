// Package humanfmt formats numbers and sizes for terminal output and
// validates the date formats accepted by the backup listing commands.
package humanfmt

import (
	"time"

	"github.com/dustin/go-humanize"

	"dbakit/pkg/errx"
)

// ErrInvalidDate is returned for a date in none of the accepted formats.
var ErrInvalidDate = errx.Define(errx.CodeCLI, "invalid date")

// Number renders n with thousands separators.
func Number(n int64) string {
	return humanize.Comma(n)
}

// Bytes renders a size in binary units (KiB, MiB, ...).
func Bytes(n uint64) string {
	return humanize.IBytes(n)
}

// Ago renders t relative to now ("3 hours ago").
func Ago(t time.Time) string {
	return humanize.Time(t)
}

var dateFormats = []struct {
	layout string
	mask   string
}{
	{"2006-01-02", "YYYY-MM-DD"},
	{"2006-01-02 15", "YYYY-MM-DD HH24"},
	{"2006-01-02 15:04", "YYYY-MM-DD HH24:MI"},
	{"2006-01-02 15:04:05", "YYYY-MM-DD HH24:MI:SS"},
}

// DateMask validates s and returns the matching database format mask for
// use in TO_DATE.
func DateMask(s string) (string, error) {
	for _, f := range dateFormats {
		if _, err := time.Parse(f.layout, s); err == nil {
			return f.mask, nil
		}
	}
	return "", errx.From(ErrInvalidDate,
		"invalid date "+s+": expected YYYY-MM-DD[ HH24[:MI[:SS]]]", nil).
		WithContext("date", s)
}

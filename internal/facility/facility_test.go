package facility

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbakit/internal/oratest"
	"dbakit/pkg/errx"
)

func TestParse_FieldStrictness(t *testing.T) {
	input := strings.Join([]string{
		"ora:rdbms:oracle:RDBMS",
		"   ",
		"two:colons:only",
		"five:colons:are:too:many",
		" :rdbms:empty:facility",
		"sp2 : sqlplus : sqlplus : SQL*Plus # trailing comment",
		"# ora:comment:only:line",
		"amd:rdbms:amd:has # a:b:c comment with colons",
	}, "\n")

	cat, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	want := []Descriptor{
		{Code: "AMD", Component: "rdbms", LegacyName: "amd", Description: "has"},
		{Code: "ORA", Component: "rdbms", LegacyName: "oracle", Description: "RDBMS"},
		{Code: "SP2", Component: "sqlplus", LegacyName: "sqlplus", Description: "SQL*Plus"},
	}
	if diff := cmp.Diff(want, cat.Descriptors()); diff != "" {
		t.Errorf("Descriptors() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_LastOccurrenceWins(t *testing.T) {
	cat, err := Parse(strings.NewReader("ora:old:x:y\nORA:rdbms:oracle:RDBMS\n"))
	require.NoError(t, err)
	d, ok := cat.Lookup("ora")
	require.True(t, ok)
	assert.Equal(t, "rdbms", d.Component)
	assert.Equal(t, 1, cat.Len())
}

func TestCatalog_CodesFor(t *testing.T) {
	cat, err := Parse(strings.NewReader(oratest.Catalog))
	require.NoError(t, err)

	tests := []struct {
		name       string
		components []string
		want       []string
	}{
		{"wildcard", []string{AllComponents}, []string{"DGM", "ORA", "ORT", "RMAN", "SP2", "TNS"}},
		{"wildcard any case", []string{"all_components"}, []string{"DGM", "ORA", "ORT", "RMAN", "SP2", "TNS"}},
		{"single component", []string{"network"}, []string{"TNS"}},
		{"several components", []string{"sqlplus", "oracore"}, []string{"ORT", "SP2"}},
		{"component match is exact", []string{"RDBMS"}, nil},
		{"wildcard among others is literal", []string{AllComponents, "network"}, []string{"TNS"}},
		{"empty filter", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cat.CodesFor(tt.components))
		})
	}
}

func TestLoad(t *testing.T) {
	home := oratest.NewStandardHome(t)

	cat, err := LoadHome(home.Dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home.Dir, "lib", "facility.lis"), cat.Path())

	again, err := Load(cat.Path())
	require.NoError(t, err)
	assert.Equal(t, cat.Descriptors(), again.Descriptors())
}

func TestLoad_Missing(t *testing.T) {
	_, err := LoadHome(oratest.Missing(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCatalogUnavailable))
	assert.Equal(t, errx.CodeConfig, errx.CodeOf(err))
}

func TestLoad_Idempotent(t *testing.T) {
	home := oratest.NewStandardHome(t)
	path := CatalogPath(home.Dir)

	first, err := Load(path)
	require.NoError(t, err)
	second, err := Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Descriptors(), second.Descriptors()); diff != "" {
		t.Errorf("descriptors differ between loads (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Codes(), second.Codes())
	assert.Equal(t, first.CodesFor([]string{AllComponents}), second.CodesFor([]string{AllComponents}))
}

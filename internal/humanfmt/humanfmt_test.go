package humanfmt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber(t *testing.T) {
	assert.Equal(t, "0", Number(0))
	assert.Equal(t, "1,234,567", Number(1234567))
	assert.Equal(t, "-1,000", Number(-1000))
}

func TestBytes(t *testing.T) {
	assert.Equal(t, "0 B", Bytes(0))
	assert.Equal(t, "1.0 KiB", Bytes(1024))
	assert.Equal(t, "1.5 GiB", Bytes(3<<29))
}

func TestAgo(t *testing.T) {
	assert.Equal(t, "3 hours ago", Ago(time.Now().Add(-3*time.Hour)))
}

func TestDateMask(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-02-29", "YYYY-MM-DD"},
		{"2024-02-29 13", "YYYY-MM-DD HH24"},
		{"2024-02-29 13:05", "YYYY-MM-DD HH24:MI"},
		{"2024-02-29 13:05:59", "YYYY-MM-DD HH24:MI:SS"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := DateMask(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "2023-02-29", "2024/01/01", "2024-01-01T10:00", "2024-01-01 25"} {
		_, err := DateMask(bad)
		assert.True(t, errors.Is(err, ErrInvalidDate), bad)
	}
}

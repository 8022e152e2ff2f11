package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidAddress(t *testing.T) {
	tests := []struct {
		addr     string
		expected bool
	}{
		{"user@example.com", true},
		{"a@b", true},
		{"user.name+tag@mail.example.io", true},
		{"", false},
		{"not-an-email", false},
		{"@example.com", false},
		{"user@", false},
		{"two@@ats.com", false},
		{"a@b@c", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidAddress(tt.addr))
		})
	}
}

func TestNormalizeDedup(t *testing.T) {
	got, err := Normalize([]string{"a@x.com, a@x.com; b@y.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, got)
}

func TestNormalizeMixedDelimiters(t *testing.T) {
	got, err := Normalize([]string{"a@x.com,b@y.com;c@z.com d@w.com\ne@v.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@y.com", "c@z.com", "d@w.com", "e@v.com"}, got)
}

func TestNormalizeListInput(t *testing.T) {
	got, err := Normalize([]string{"a@x.com", "bad", "B@Y.com", "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, got)
}

func TestNormalizeLowercases(t *testing.T) {
	got, err := Normalize([]string{"User@Example.COM"})
	require.NoError(t, err)
	assert.Equal(t, []string{"user@example.com"}, got)
}

func TestNormalizeRejectsAllMalformed(t *testing.T) {
	_, err := Normalize([]string{"not-an-email", "", "   "})
	assert.ErrorIs(t, err, ErrNoRecipients)
}

func TestNormalizeIdempotent(t *testing.T) {
	input := []string{"a@x.com, B@y.com a@x.com", "c@z.com;bad"}

	once, err := Normalize(input)
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

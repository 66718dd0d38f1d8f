package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1.2K"},
		{1234567, "1.2M"},
		{1234567890, "1.2B"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTokens(tt.in), "input %d", tt.in)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0s"},
		{-5, "0s"},
		{45_000, "45s"},
		{125_000, "2m"},
		{3_725_000, "1h 2m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.ms), "input %d", tt.ms)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,234,567", FormatNumber(1234567))
	assert.Equal(t, "-1,234", FormatNumber(-1234))
	assert.Equal(t, "999", FormatNumber(999))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "long…", Truncate("long text here", 5))
	assert.Equal(t, "one two", Truncate("one\ntwo", 20), "newlines collapse")
	assert.Equal(t, "", Truncate("anything", 0))
}

func TestHighlightSnippetStripsDelimiters(t *testing.T) {
	out := HighlightSnippet("found the <mark>needle</mark> here")
	assert.NotContains(t, out, "<mark>")
	assert.NotContains(t, out, "</mark>")
	assert.Contains(t, out, "needle")
}

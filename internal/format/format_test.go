package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5*1024*1024 + 256*1024, "5.2 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
		// GB is the largest unit; bigger values keep dividing no further.
		{2048 * 1024 * 1024 * 1024, "2048.0 GB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Size(tt.in), "Size(%d)", tt.in)
	}
}

func TestParameters(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{950, "950"},
		{999, "999"},
		{1000, "1.0K"},
		{1500, "1.5K"},
		{1_500_000, "1.5M"},
		{999_999_999, "1000.0M"},
		{7_000_000_000, "7.0B"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Parameters(tt.in), "Parameters(%d)", tt.in)
	}
}

func TestShape(t *testing.T) {
	assert.Equal(t, "(2, 3)", Shape([]int64{2, 3}))
	assert.Equal(t, "(4096)", Shape([]int64{4096}))
	assert.Equal(t, "()", Shape(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exactly10!", Truncate("exactly10!", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijk", 10))

	// The cut backs up to a rune boundary instead of splitting one.
	got := Truncate(strings.Repeat("é", 20), 10)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 3)+"...", got)
	assert.LessOrEqual(t, len(got), 10)
}

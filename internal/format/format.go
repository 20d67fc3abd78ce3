// Package format provides the human-readable renderings of byte counts,
// element counts, and shapes used across the CLI and HTTP explorer. The
// numeric semantics are owned here so they stay testable independent of any
// presentation surface.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var sizeUnits = [...]string{"B", "KB", "MB", "GB"}

// Size renders a byte count with binary (1024) unit steps. Bytes print as a
// bare integer; KB and above print with exactly one decimal digit.
//
//	Size(512)  == "512 B"
//	Size(1536) == "1.5 KB"
func Size(sizeBytes int64) string {
	size := float64(sizeBytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", int64(size), sizeUnits[unit])
	}
	return fmt.Sprintf("%.1f %s", size, sizeUnits[unit])
}

// Parameters renders an element count with decimal (1000) unit steps and
// the K/M/B suffixes used for model parameter totals.
//
//	Parameters(950)       == "950"
//	Parameters(1_500_000) == "1.5M"
func Parameters(params int64) string {
	switch {
	case params < 1_000:
		return strconv.FormatInt(params, 10)
	case params < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(params)/1_000)
	case params < 1_000_000_000:
		return fmt.Sprintf("%.1fM", float64(params)/1_000_000)
	default:
		return fmt.Sprintf("%.1fB", float64(params)/1_000_000_000)
	}
}

// Truncate shortens s to at most max bytes, replacing the cut tail with
// "...". The cut never lands mid-rune, so the result is always valid UTF-8.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// Shape renders tensor dimensions as "(2, 3)". An empty shape renders as
// "()".
func Shape(shape []int64) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.FormatInt(d, 10)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

package tree

import "strings"

// natToken is one comparable unit of a natural-sort key: either a run of
// digits (compared by numeric value) or a run of non-digits (compared
// case-insensitively).
type natToken struct {
	numeric bool
	text    string // lowercase text, or digit run with leading zeros stripped
}

// NaturalKey splits s into maximal digit and non-digit runs. Digit runs keep
// their numeric value (leading zeros stripped, empty run becomes "0"),
// non-digit runs are lowercased.
func NaturalKey(s string) []natToken {
	var tokens []natToken
	i := 0
	for i < len(s) {
		j := i
		if isDigit(s[i]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			tokens = append(tokens, natToken{numeric: true, text: trimLeadingZeros(s[i:j])})
		} else {
			for j < len(s) && !isDigit(s[j]) {
				j++
			}
			tokens = append(tokens, natToken{text: strings.ToLower(s[i:j])})
		}
		i = j
	}
	return tokens
}

// NaturalCompare orders a and b the way a human expects: "layer2" before
// "layer10". Digit runs compare by value with no magnitude limit (shorter
// digit string is smaller once leading zeros are gone, equal lengths compare
// lexicographically). At the same position a numeric token sorts before a
// text token.
func NaturalCompare(a, b string) int {
	ta, tb := NaturalKey(a), NaturalKey(b)
	for i := 0; i < len(ta) && i < len(tb); i++ {
		if c := compareToken(ta[i], tb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ta) < len(tb):
		return -1
	case len(ta) > len(tb):
		return 1
	default:
		return 0
	}
}

// NaturalLess reports whether a sorts before b in natural order.
func NaturalLess(a, b string) bool {
	return NaturalCompare(a, b) < 0
}

func compareToken(a, b natToken) int {
	if a.numeric != b.numeric {
		// Numeric tokens sort before text tokens.
		if a.numeric {
			return -1
		}
		return 1
	}
	if a.numeric {
		if len(a.text) != len(b.text) {
			if len(a.text) < len(b.text) {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a.text, b.text)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}

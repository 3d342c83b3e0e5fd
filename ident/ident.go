// Package ident normalizes national product codes.
//
// The normalized code is the system's primary join and dedup key: the same
// function must be applied everywhere a code is derived (feed presentations,
// nomenclator rows, change-feed fallback ids) or joins silently fail.
package ident

import (
	"fmt"
	"strings"
)

// Width is the fixed width of a normalized national code. Upstream national
// codes are six digits; shorter values are historical exports that dropped
// leading zeros.
const Width = 6

// Normalize canonicalizes an arbitrary value into a fixed-width,
// digits-only national code.
//
// Everything but decimal digits is stripped from the value's string form and
// the result is left-padded with zeros to Width. The second return is false
// when no code can be derived (nil input or no digits); there is no error
// path. Normalize is idempotent over its own output.
func Normalize(v any) (string, bool) {
	if v == nil {
		return "", false
	}

	var text string
	switch t := v.(type) {
	case string:
		text = t
	case float64:
		// JSON numbers decode as float64; national codes are integral.
		text = fmt.Sprintf("%.0f", t)
	case int:
		text = fmt.Sprintf("%d", t)
	case int64:
		text = fmt.Sprintf("%d", t)
	default:
		text = fmt.Sprint(t)
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(text) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	if len(digits) < Width {
		digits = strings.Repeat("0", Width-len(digits)) + digits
	}
	return digits, true
}

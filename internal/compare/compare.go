// Package compare implements type-aware field value comparison.
//
// Two comparators live here and they are intentionally different:
//
//   - Equal is the strict training-metric comparator. Numeric values must
//     parse as plain floats (no symbol stripping) and match within an
//     absolute 0.01 tolerance.
//   - Match is the lenient production-verifier comparator. Numeric values
//     are parsed after stripping currency symbols and thousands separators
//     and match within a relative 1% tolerance.
//
// Unifying them would silently change both training feedback and production
// auto-accept rates, so both are kept exactly as specified.
package compare

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ocrmate/ocrmate/internal/schema"
)

// Equal is the strict comparator used by the training metric.
//
// Both nil match; exactly one nil does not. NUMBER and CURRENCY values must
// both parse as plain floats and differ by less than 0.01 absolute. BOOLEAN
// values are coerced to truthiness. Everything else compares as
// case-insensitive, whitespace-trimmed strings. DATE gets no format
// normalization: "02/06/2007" and "2007-02-06" do not match.
func Equal(expected, actual any, ft schema.FieldType) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch {
	case ft.IsNumeric():
		e, okE := ParseNumber(expected)
		a, okA := ParseNumber(actual)
		if !okE || !okA {
			return false
		}
		return math.Abs(e-a) < 0.01
	case ft == schema.TypeBoolean:
		return Truthy(expected) == Truthy(actual)
	default:
		return normalize(expected) == normalize(actual)
	}
}

// Match is the lenient comparator used by the field verifier.
//
// Trimmed case-insensitive string equality matches for any type. Beyond
// that, NUMBER and CURRENCY values are parsed after stripping currency
// symbols ($, €, £) and thousands separators, and match when
// |a-b| / max(|a|, |b|, 1) < 0.01. DATE stays raw string equality.
func Match(a, b any, ft schema.FieldType) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	if normalize(a) == normalize(b) {
		return true
	}

	if ft.IsNumeric() {
		na, okA := ParseLenientNumber(a)
		nb, okB := ParseLenientNumber(b)
		if !okA || !okB {
			return false
		}
		return math.Abs(na-nb)/math.Max(math.Max(math.Abs(na), math.Abs(nb)), 1) < 0.01
	}

	return false
}

// ParseNumber converts a scalar to float64 without any string cleanup.
// A string like "$25.30" or "1,000" fails here.
func ParseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// numericCleaner strips currency symbols and thousands separators.
var numericCleaner = strings.NewReplacer("$", "", "€", "", "£", "", ",", "")

// ParseLenientNumber converts a scalar to float64, stripping currency
// symbols and thousands separators from string input first.
func ParseLenientNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		return ParseNumber(numericCleaner.Replace(s))
	}
	return ParseNumber(v)
}

// Truthy coerces a scalar to boolean truthiness: nil and zero values are
// false, non-empty strings are true regardless of content.
func Truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	default:
		f, ok := ParseNumber(v)
		return ok && f != 0
	}
}

// Coerce converts a raw extracted string to the field's native type. Parse
// failure is not an error: the original string comes back unchanged and the
// comparators treat it as a parse failure downstream.
func Coerce(value string, ft schema.FieldType) any {
	switch ft {
	case schema.TypeNumber:
		if f, ok := ParseNumber(strings.ReplaceAll(value, ",", "")); ok {
			return f
		}
		return value
	case schema.TypeCurrency:
		if f, ok := ParseLenientNumber(value); ok {
			return f
		}
		return value
	case schema.TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "yes", "true", "1", "y":
			return true
		case "no", "false", "0", "n":
			return false
		}
		return value
	default:
		return value
	}
}

// normalize renders a scalar as a trimmed lowercase string.
func normalize(v any) string {
	return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", v)))
}

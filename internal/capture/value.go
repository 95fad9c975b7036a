// Package capture parses exported oscilloscope captures.
package capture

import (
	"strconv"
	"strings"
)

// ValueKind identifies the decoded type of a header value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindBool
	KindNumber
)

// Value is a decoded header scalar.
type Value struct {
	Kind ValueKind
	Bool bool
	Num  float64
	Str  string
}

// IsTrue reports whether v is the boolean true.
func (v Value) IsTrue() bool {
	return v.Kind == KindBool && v.Bool
}

// Number returns the numeric value and whether v is numeric.
func (v Value) Number() (float64, bool) {
	return v.Num, v.Kind == KindNumber
}

// DecodeHeaderValue decodes the text after the first colon of a "key: value"
// line. The second return is false when the line has no colon or the value is
// empty; callers skip the setting in that case.
func DecodeHeaderValue(line string) (Value, bool) {
	_, raw, ok := strings.Cut(line, ":")
	if !ok {
		return Value{}, false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Value{}, false
	}
	switch strings.ToLower(raw) {
	case "yes":
		return Value{Kind: KindBool, Bool: true}, true
	case "no":
		return Value{Kind: KindBool, Bool: false}, true
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Value{Kind: KindNumber, Num: f}, true
	}
	return Value{Kind: KindString, Str: raw}, true
}

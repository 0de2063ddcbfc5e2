package model

import (
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical textual form of date values.
const DateLayout = "2006-01-02"

// Kind enumerates the payloads a Value can carry.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindString
	KindNumber
	KindDate
	KindChoice
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindChoice:
		return "choice"
	default:
		return "unknown"
	}
}

// Value is the typed union stored for every field. The zero Value is absent.
type Value struct {
	kind    Kind
	str     string
	num     float64
	date    time.Time
	numeric bool // choice payload is a number
}

// Absent returns the "no value" marker.
func Absent() Value {
	return Value{}
}

// String wraps a text value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number wraps a numeric value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// Date wraps a calendar date; the time of day is dropped.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Choice wraps an option value. The option must be a String or Number.
func Choice(option Value) Value {
	switch option.kind {
	case KindString:
		return Value{kind: KindChoice, str: option.str}
	case KindNumber:
		return Value{kind: KindChoice, num: option.num, numeric: true}
	case KindChoice:
		return option
	default:
		return Value{}
	}
}

// Kind reports the payload kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// Str returns the string payload of String and textual Choice values.
func (v Value) Str() (string, bool) {
	if v.kind == KindString || (v.kind == KindChoice && !v.numeric) {
		return v.str, true
	}
	return "", false
}

// Num returns the numeric payload of Number and numeric Choice values.
func (v Value) Num() (float64, bool) {
	if v.kind == KindNumber || (v.kind == KindChoice && v.numeric) {
		return v.num, true
	}
	return 0, false
}

// Time returns the payload of Date values.
func (v Value) Time() (time.Time, bool) {
	if v.kind == KindDate {
		return v.date, true
	}
	return time.Time{}, false
}

// Option returns the scalar option value wrapped by a Choice.
func (v Value) Option() Value {
	if v.kind != KindChoice {
		return v
	}
	if v.numeric {
		return Number(v.num)
	}
	return String(v.str)
}

// Text renders the value the way a widget displays it.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindDate:
		return v.date.Format(DateLayout)
	case KindChoice:
		if v.numeric {
			return formatNumber(v.num)
		}
		return v.str
	default:
		return ""
	}
}

// IsBlank reports whether v is absent or whitespace-only text.
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindAbsent:
		return true
	case KindString:
		return strings.TrimSpace(v.str) == ""
	default:
		return false
	}
}

// Interface returns the plain Go value used in snapshots: nil, string,
// float64, time.Time, or the choice payload.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindDate:
		return v.date
	case KindChoice:
		if v.numeric {
			return v.num
		}
		return v.str
	default:
		return nil
	}
}

// Equal compares kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindAbsent:
		return true
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindDate:
		return v.date.Equal(other.date)
	case KindChoice:
		if v.numeric != other.numeric {
			return false
		}
		if v.numeric {
			return v.num == other.num
		}
		return v.str == other.str
	default:
		return false
	}
}

func (v Value) String() string {
	if v.kind == KindAbsent {
		return "<absent>"
	}
	return v.Text()
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// ParseInput converts raw widget input into a typed Value for field. It is
// the single boundary where untyped input enters the engine.
func ParseInput(field Field, raw string) (Value, error) {
	switch field.Widget {
	case WidgetText, WidgetSecret, WidgetMultiline:
		if raw == "" {
			return Absent(), nil
		}
		return String(raw), nil
	case WidgetDate:
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return Absent(), nil
		}
		t, err := parseDate(trimmed)
		if err != nil {
			return Value{}, fmt.Errorf("model: %s: invalid date %q", field.Path, raw)
		}
		return Date(t), nil
	case WidgetChoice:
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return Absent(), nil
		}
		for _, opt := range field.Options {
			if opt.Value.Text() == trimmed {
				return Choice(opt.Value), nil
			}
		}
		return Value{}, fmt.Errorf("model: %s: %q is not one of the options", field.Path, raw)
	default:
		return Value{}, fmt.Errorf("model: %s: unknown widget kind %q", field.Path, field.Widget)
	}
}

// ValueOf converts a plain Go value (as found in initial values or decoded
// documents) into a Value for field.
func ValueOf(field Field, raw any) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return Absent(), nil
	case Value:
		return typed, nil
	case string:
		return ParseInput(field, typed)
	case time.Time:
		if field.Widget != WidgetDate {
			return Value{}, configErrorf(field.Path.String(), "time value for %s widget", field.Widget)
		}
		return Date(typed), nil
	}

	n, ok := numeric(raw)
	if !ok {
		return Value{}, configErrorf(field.Path.String(), "unsupported initial value type %T", raw)
	}
	if field.Widget == WidgetChoice {
		for _, opt := range field.Options {
			if m, isNum := opt.Value.Num(); isNum && m == n {
				return Choice(opt.Value), nil
			}
		}
		return Value{}, configErrorf(field.Path.String(), "%v is not one of the options", raw)
	}
	return Number(n), nil
}

// OptionValue converts a decoded option payload (string or number).
func OptionValue(raw any) (Value, error) {
	if s, ok := raw.(string); ok {
		return String(s), nil
	}
	if n, ok := numeric(raw); ok {
		return Number(n), nil
	}
	return Value{}, fmt.Errorf("model: option value must be a string or number, got %T", raw)
}

func numeric(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

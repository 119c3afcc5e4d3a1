package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Record is a loosely typed row as sent by offline clients: snake_case keys,
// values that may be strings, numbers, booleans or null.
type Record map[string]interface{}

// FieldError reports a value that could not be coerced to its column type.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Reason)
}

// Has reports whether key is present with a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// HasAny reports whether any of keys is present with a non-null value.
func (r Record) HasAny(keys ...string) bool {
	for _, k := range keys {
		if r.Has(k) {
			return true
		}
	}
	return false
}

// String returns the first of keys holding a non-empty value, rendered as a string.
func (r Record) String(keys ...string) (string, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v == nil {
			continue
		}
		s := stringify(v)
		if s != "" {
			return s, true
		}
	}
	return "", false
}

// StringPtr is String returning nil when no key holds a value.
func (r Record) StringPtr(keys ...string) *string {
	if s, ok := r.String(keys...); ok {
		return &s
	}
	return nil
}

// ID returns the record's "id" value or "".
func (r Record) ID() string {
	s, _ := r.String("id")
	return s
}

// Bool coerces key to a boolean. Numeric flags follow non-zero = true;
// strings accept "1"/"0", "true"/"false" and "yes"/"no", and any other text
// reads as false. present is false when the key is absent or null.
func (r Record) Bool(key string) (value bool, present bool, err error) {
	v, ok := r[key]
	if !ok || v == nil {
		return false, false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, true, nil
	case float64:
		return t != 0 && !math.IsNaN(t), true, nil
	case int:
		return t != 0, true, nil
	case int64:
		return t != 0, true, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return false, true, &FieldError{Field: key, Reason: "not a number"}
		}
		return f != 0, true, nil
	case string:
		s := strings.TrimSpace(strings.ToLower(t))
		switch s {
		case "", "0", "false", "no":
			return false, true, nil
		case "1", "true", "yes":
			return true, true, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f != 0 && !math.IsNaN(f), true, nil
		}
		return false, true, nil
	default:
		return false, true, &FieldError{Field: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

// Float coerces key to a float64. Absent or null yields nil.
func (r Record) Float(key string) (*float64, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil, &FieldError{Field: key, Reason: "not a number"}
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil, &FieldError{Field: key, Reason: fmt.Sprintf("cannot interpret %q as number", t)}
		}
		f = parsed
	default:
		return nil, &FieldError{Field: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, &FieldError{Field: key, Reason: "not a finite number"}
	}
	return &f, nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses key as a timestamp. Strings may use any common ISO-8601 form;
// numbers are milliseconds since the Unix epoch. Absent, null or empty yields nil.
func (r Record) Time(key string) (*time.Time, error) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case time.Time:
		return &t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return &parsed, nil
			}
		}
		return nil, &FieldError{Field: key, Reason: fmt.Sprintf("cannot parse %q as a date", t)}
	case float64, int, int64, json.Number:
		ms, err := r.Float(key)
		if err != nil {
			return nil, err
		}
		parsed := time.UnixMilli(int64(*ms)).UTC()
		return &parsed, nil
	default:
		return nil, &FieldError{Field: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

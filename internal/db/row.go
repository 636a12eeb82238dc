package db

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Row is one result row keyed by column name. Backends decode into the
// closest Go type they have (string, []byte, int64, float64, json.Number,
// bool, time.Time or nil); the accessors normalize those.
type Row map[string]any

// String returns the column as a string. Missing or NULL columns return "", nil.
func (r Row) String(col string) (string, error) {
	switch v := r[col].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.Number:
		return v.String(), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

// Int64 returns the column as an integer. Missing or NULL columns return 0, nil.
func (r Row) Int64(col string) (int64, error) {
	switch v := r[col].(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("column %s: non-integer %v", col, v)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("column %s: %w", col, err)
		}
		return n, nil
	case string:
		return parseInt(col, v)
	case []byte:
		return parseInt(col, string(v))
	default:
		return 0, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

// Time returns the column as a timestamp. Missing or NULL columns return the zero time.
func (r Row) Time(col string) (time.Time, error) {
	switch v := r[col].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v, nil
	case string:
		return parseTime(col, v)
	case []byte:
		return parseTime(col, string(v))
	default:
		return time.Time{}, fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}

func parseInt(col, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return n, nil
}

// timeLayouts covers PostgREST output and SQLite text timestamps.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTime(col, s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: unparseable timestamp %q", col, s)
}

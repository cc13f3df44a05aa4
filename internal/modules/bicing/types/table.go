package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a raw query result: named columns and rows of cells, nil for SQL NULL.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// DropNulls removes every row holding at least one nil cell. Applying it twice is a no-op.
func (t *Table) DropNulls() {
	if t == nil {
		return
	}
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		if hasNull(row) {
			continue
		}
		kept = append(kept, row)
	}
	clear(t.Rows[len(kept):])
	t.Rows = kept
}

func hasNull(row []any) bool {
	for _, c := range row {
		if c == nil {
			return true
		}
	}
	return false
}

// AsInt64 coerces a scanned or JSON-decoded cell to int64.
func AsInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%w: non-finite number %v", ErrSchema, x)
		}
		return int64(x), nil
	case float32:
		return AsInt64(float64(x))
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrSchema, x.String())
		}
		return AsInt64(f)
	case string:
		return parseIntString(x)
	case []byte:
		return parseIntString(string(x))
	default:
		return 0, fmt.Errorf("%w: cannot use %T as integer", ErrSchema, v)
	}
}

func parseIntString(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrSchema, s)
	}
	return AsInt64(f)
}

// AsBool coerces a cell to bool. Numbers are true when non-zero.
func AsBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return parseBoolString(x)
	case []byte:
		return parseBoolString(string(x))
	default:
		n, err := AsInt64(v)
		if err != nil {
			return false, err
		}
		return n != 0, nil
	}
}

func parseBoolString(s string) (bool, error) {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	n, err := parseIntString(s)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// AsString coerces a cell to string.
func AsString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case json.Number:
		return x.String(), nil
	case int64, int, float64, bool:
		return fmt.Sprint(x), nil
	default:
		return "", fmt.Errorf("%w: cannot use %T as text", ErrSchema, v)
	}
}

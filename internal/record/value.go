package record

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrTypeMismatch = errors.New("record: value type does not match column type")
	ErrNullValue    = errors.New("record: column is NOT NULL")
)

// CheckValue reports whether v is stored exactly as col's declared Go type.
// There is no implicit coercion: int64(1) is not a valid ColInt32 value.
func CheckValue(col Column, v any) error {
	if v == nil {
		if !col.Nullable {
			return fmt.Errorf("%w: %s", ErrNullValue, col.Name)
		}
		return nil
	}
	ok := false
	switch col.Type {
	case ColInt32:
		_, ok = v.(int32)
	case ColInt64:
		_, ok = v.(int64)
	case ColBool:
		_, ok = v.(bool)
	case ColFloat64:
		_, ok = v.(float64)
	case ColText:
		_, ok = v.(string)
	case ColBytes:
		_, ok = v.([]byte)
	}
	if !ok {
		return fmt.Errorf("%w: column %s expects %s, got %T", ErrTypeMismatch, col.Name, col.Type, v)
	}
	return nil
}

// Coerce normalizes loosely typed literals (from YAML/JSON decoders) into the
// column's declared Go type. Only lossless conversions are accepted.
func Coerce(col Column, v any) (any, error) {
	if v == nil {
		if !col.Nullable {
			return nil, fmt.Errorf("%w: %s", ErrNullValue, col.Name)
		}
		return nil, nil
	}

	switch col.Type {
	case ColInt32:
		x, ok := asInt64(v)
		if !ok || x < math.MinInt32 || x > math.MaxInt32 {
			break
		}
		return int32(x), nil
	case ColInt64:
		if x, ok := asInt64(v); ok {
			return x, nil
		}
	case ColBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case ColFloat64:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			if f, ok := exactFloat(int64(x)); ok {
				return f, nil
			}
		case int64:
			if f, ok := exactFloat(x); ok {
				return f, nil
			}
		}
	case ColText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case ColBytes:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
	}
	return nil, fmt.Errorf("%w: column %s expects %s, got %T", ErrTypeMismatch, col.Name, col.Type, v)
}

// CoercePayload applies Coerce to every schema column present in payload.
// Unknown columns are rejected.
func CoercePayload(s Schema, payload map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(payload))
	for name, v := range payload {
		col, ok := s.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %s", ErrTypeMismatch, name)
		}
		cv, err := Coerce(col, v)
		if err != nil {
			return nil, err
		}
		out[name] = cv
	}
	return out, nil
}

// CheckPayload validates a full row payload against s.
func CheckPayload(s Schema, payload map[string]any) error {
	for name := range payload {
		if s.ColPos(name) < 0 {
			return fmt.Errorf("%w: unknown column %s", ErrTypeMismatch, name)
		}
	}
	for _, col := range s.Cols {
		if err := CheckValue(col, payload[col.Name]); err != nil {
			return err
		}
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	case float64:
		// YAML/JSON integers sometimes surface as float64.
		// MaxInt64 is not representable as float64; 2^63 is the first value out of range.
		if x != math.Trunc(x) || x < -0x1p63 || x >= 0x1p63 {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

// exactFloat converts x only when the float64 holds it without rounding.
func exactFloat(x int64) (float64, bool) {
	f := float64(x)
	if f >= 0x1p63 || int64(f) != x {
		return 0, false
	}
	return f, true
}

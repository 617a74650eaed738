package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrUnsupportedKeyType = errors.New("index: unsupported key value type")

// Key is the encoded form of a (possibly composite) primary-key value.
// Every part is tagged with its type and length-prefixed, so values of
// different types never compare equal and tuple boundaries are unambiguous.
//
// Layout per part: [tag u8][len u32 BE][bytes]
type Key string

const (
	tagInt32   byte = 'i'
	tagInt64   byte = 'l'
	tagBool    byte = 'b'
	tagFloat64 byte = 'f'
	tagText    byte = 's'
	tagBytes   byte = 'x'
)

// fixedWidth is the body length of tags whose values have a fixed size.
var fixedWidth = map[byte]int{
	tagInt32:   4,
	tagInt64:   8,
	tagBool:    1,
	tagFloat64: 8,
}

// EncodeKey builds a Key from the key column values in key order.
func EncodeKey(parts ...any) (Key, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: empty key", ErrUnsupportedKeyType)
	}
	buf := make([]byte, 0, 16*len(parts))
	for _, p := range parts {
		var (
			tag  byte
			body []byte
		)
		switch v := p.(type) {
		case int32:
			tag, body = tagInt32, binary.BigEndian.AppendUint32(nil, uint32(v))
		case int64:
			tag, body = tagInt64, binary.BigEndian.AppendUint64(nil, uint64(v))
		case bool:
			tag, body = tagBool, []byte{0}
			if v {
				body[0] = 1
			}
		case float64:
			if math.IsNaN(v) {
				return "", fmt.Errorf("%w: NaN", ErrUnsupportedKeyType)
			}
			if v == 0 {
				v = 0 // -0 == 0
			}
			tag, body = tagFloat64, binary.BigEndian.AppendUint64(nil, math.Float64bits(v))
		case string:
			tag, body = tagText, []byte(v)
		case []byte:
			tag, body = tagBytes, v
		default:
			return "", fmt.Errorf("%w: %T", ErrUnsupportedKeyType, p)
		}
		buf = append(buf, tag)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(body)))
		buf = append(buf, body...)
	}
	return Key(buf), nil
}

// Parts decodes the key back into its typed values.
func (k Key) Parts() ([]any, error) {
	b := []byte(k)
	var out []any
	for len(b) > 0 {
		if len(b) < 5 {
			return nil, fmt.Errorf("index: truncated key")
		}
		tag := b[0]
		n := int(binary.BigEndian.Uint32(b[1:5]))
		b = b[5:]
		if len(b) < n {
			return nil, fmt.Errorf("index: truncated key")
		}
		body := b[:n]
		b = b[n:]
		if w, fixed := fixedWidth[tag]; fixed && n != w {
			return nil, fmt.Errorf("index: truncated key")
		}
		switch tag {
		case tagInt32:
			out = append(out, int32(binary.BigEndian.Uint32(body)))
		case tagInt64:
			out = append(out, int64(binary.BigEndian.Uint64(body)))
		case tagBool:
			out = append(out, body[0] == 1)
		case tagFloat64:
			out = append(out, math.Float64frombits(binary.BigEndian.Uint64(body)))
		case tagText:
			out = append(out, string(body))
		case tagBytes:
			out = append(out, append([]byte(nil), body...))
		default:
			return nil, fmt.Errorf("index: unknown key tag %q", tag)
		}
	}
	return out, nil
}

// String renders the key for diagnostics: a single value as-is, composite
// keys as a parenthesized tuple.
func (k Key) String() string {
	parts, err := k.Parts()
	if err != nil {
		return strconv.Quote(string(k))
	}
	ss := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case string:
			ss[i] = strconv.Quote(v)
		case []byte:
			ss[i] = fmt.Sprintf("0x%x", v)
		default:
			ss[i] = fmt.Sprint(v)
		}
	}
	if len(ss) == 1 {
		return ss[0]
	}
	return "(" + strings.Join(ss, ", ") + ")"
}

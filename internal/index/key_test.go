package index

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeKey_TypesNeverCollide(t *testing.T) {
	values := []any{int32(1), int64(1), "1", []byte("1"), true, float64(1)}
	seen := make(map[Key]any)
	for _, v := range values {
		k, err := EncodeKey(v)
		require.NoError(t, err)
		prev, dup := seen[k]
		require.False(t, dup, "%T collides with %T", v, prev)
		seen[k] = v
	}
}

func TestEncodeKey_CompositeBoundaries(t *testing.T) {
	a, err := EncodeKey("ab", "c")
	require.NoError(t, err)
	b, err := EncodeKey("a", "bc")
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	same, err := EncodeKey("ab", "c")
	require.NoError(t, err)
	require.Equal(t, a, same)
}

func TestEncodeKey_Floats(t *testing.T) {
	pos, err := EncodeKey(0.0)
	require.NoError(t, err)
	neg, err := EncodeKey(math.Copysign(0, -1))
	require.NoError(t, err)
	require.Equal(t, pos, neg)

	_, err = EncodeKey(math.NaN())
	require.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestEncodeKey_Unsupported(t *testing.T) {
	_, err := EncodeKey()
	require.ErrorIs(t, err, ErrUnsupportedKeyType)

	_, err = EncodeKey(struct{}{})
	require.ErrorIs(t, err, ErrUnsupportedKeyType)

	_, err = EncodeKey(5) // plain int is not a column type
	require.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestKey_PartsAndString(t *testing.T) {
	k, err := EncodeKey("acme", int64(-7), int32(3), true, 2.5, []byte{0xAB})
	require.NoError(t, err)

	parts, err := k.Parts()
	require.NoError(t, err)
	require.Equal(t, []any{"acme", int64(-7), int32(3), true, 2.5, []byte{0xAB}}, parts)
	require.Equal(t, `("acme", -7, 3, true, 2.5, 0xab)`, k.String())

	single, err := EncodeKey("100")
	require.NoError(t, err)
	require.Equal(t, `"100"`, single.String())
}

func TestKey_PartsTruncated(t *testing.T) {
	k, err := EncodeKey("hello")
	require.NoError(t, err)

	_, err = Key(k[:len(k)-2]).Parts()
	require.Error(t, err)
	_, err = Key(k[:3]).Parts()
	require.Error(t, err)
}

func TestKey_PartsBadFixedWidth(t *testing.T) {
	for name, k := range map[string]Key{
		"empty bool":   Key("b\x00\x00\x00\x00"),
		"short int32":  Key("i\x00\x00\x00\x02\x00\x01"),
		"short int64":  Key("l\x00\x00\x00\x04\x00\x00\x00\x01"),
		"long float64": Key("f\x00\x00\x00\x09" + "\x00\x00\x00\x00\x00\x00\x00\x00\x00"),
	} {
		t.Run(name, func(t *testing.T) {
			require.NotPanics(t, func() {
				_, err := k.Parts()
				require.Error(t, err)
				require.Equal(t, strconv.Quote(string(k)), k.String())
			})
		})
	}
}

package codec

import (
	"testing"

	"smallurl/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Hashids {
	t.Helper()
	c, err := New(Config{Salt: "my salt", MinLength: 5})
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadConfig(t *testing.T) {
	_, err := New(Config{Salt: "", MinLength: 5})
	assert.Error(t, err)

	_, err = New(Config{Salt: "my salt", MinLength: -1})
	assert.Error(t, err)
}

func TestEncode_KnownValue(t *testing.T) {
	c, err := New(Config{Salt: "this is my salt"})
	require.NoError(t, err)

	code, err := c.Encode(12345)
	require.NoError(t, err)
	assert.Equal(t, "NkK9", code)
}

func TestEncode_Deterministic(t *testing.T) {
	a := newTestCodec(t)
	b := newTestCodec(t)

	for _, id := range []int64{0, 1, 2, 42, 1000, 1 << 40} {
		codeA, err := a.Encode(id)
		require.NoError(t, err)
		codeB, err := b.Encode(id)
		require.NoError(t, err)
		assert.Equal(t, codeA, codeB, "id %d", id)
	}
}

func TestEncode_NegativeID(t *testing.T) {
	c := newTestCodec(t)

	_, err := c.Encode(-1)
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestEncodeDecode_Roundtrip(t *testing.T) {
	c := newTestCodec(t)

	for id := int64(0); id < 100000; id += 137 {
		code, err := c.Encode(id)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(code), 5, "code %q for id %d", code, id)
		assert.Equal(t, []int64{id}, c.Decode(code), "code %q", code)
	}
}

func TestEncode_LargeIDsGrowPastMinLength(t *testing.T) {
	c := newTestCodec(t)

	code, err := c.Encode(1 << 62)
	require.NoError(t, err)
	assert.Greater(t, len(code), 5)
	assert.Equal(t, []int64{1 << 62}, c.Decode(code))
}

func TestEncode_DistinctIDsDistinctCodes(t *testing.T) {
	c := newTestCodec(t)
	seen := make(map[string]int64)

	for id := int64(1); id <= 5000; id++ {
		code, err := c.Encode(id)
		require.NoError(t, err)
		if prev, ok := seen[code]; ok {
			t.Fatalf("ids %d and %d share code %q", prev, id, code)
		}
		seen[code] = id
	}
}

func TestDecode_ForeignInput(t *testing.T) {
	c := newTestCodec(t)

	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"symbols", "!!!!!"},
		{"path-like", "a/b/c"},
		{"whitespace", "     "},
		{"unicode", "ñññññ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, c.Decode(tt.code))
		})
	}
}

func TestDecode_OtherSaltIsRejected(t *testing.T) {
	ours := newTestCodec(t)
	theirs, err := New(Config{Salt: "another salt", MinLength: 5})
	require.NoError(t, err)

	rejected := 0
	for id := int64(1); id <= 200; id++ {
		code, err := theirs.Encode(id)
		require.NoError(t, err)

		ids := ours.Decode(code)
		if len(ids) == 0 {
			rejected++
			continue
		}
		// Anything that does decode must be a code we would issue ourselves.
		again, err := ours.h.EncodeInt64(ids)
		require.NoError(t, err)
		assert.Equal(t, code, again)
	}
	assert.Greater(t, rejected, 150)
}

func FuzzDecode(f *testing.F) {
	c, err := New(Config{Salt: "my salt", MinLength: 5})
	if err != nil {
		f.Fatal(err)
	}

	for _, seed := range []string{"", "abcde", "zzzzz", "12345", "gY2pX", "!@#$%"} {
		f.Add(seed)
	}
	if code, err := c.Encode(7); err == nil {
		f.Add(code)
	}

	f.Fuzz(func(t *testing.T, s string) {
		ids := c.Decode(s)
		if len(ids) == 0 {
			return
		}
		// A non-empty result is only allowed for strings the encoder produces.
		code, err := c.h.EncodeInt64(ids)
		if err != nil {
			t.Fatalf("decoded ids %v cannot be re-encoded: %v", ids, err)
		}
		if code != s {
			t.Fatalf("Decode(%q) = %v, but Encode gives %q", s, ids, code)
		}
	})
}

package kvdict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"string", "hello"},
		{"empty string", ""},
		{"int", int64(42)},
		{"negative int", int64(-7)},
		{"float", 3.14159},
		{"bool", true},
		{"nil", nil},
		{"list", []any{"apple", int64(2), 3.5, true, nil}},
		{"map", map[string]any{"name": "ada", "age": int64(36), "scores": []any{int64(1), int64(2)}}},
		{"empty list", []any{}},
		{"empty map", map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.value)
			require.NoError(t, err)
			got, err := Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}
}

func TestCodecPreservesIntegralFloat(t *testing.T) {
	raw, err := Encode(float64(2))
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, float64(2), got, "a whole-number float must not come back as an int")
}

func TestEncodeRejectsUnsupportedType(t *testing.T) {
	_, err := Encode(make(chan int))
	assert.Equal(t, KindUnsupportedValue, KindOf(err))
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	tests := []string{
		"no tag here",
		"int:not-a-number",
		"list:{",
		"mystery:payload",
	}
	for _, raw := range tests {
		_, err := Decode(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestChainKey(t *testing.T) {
	key, err := ChainKey([]string{"user", "ada", "email"})
	require.NoError(t, err)
	assert.Equal(t, "user:ada:email", key)

	key, err = ChainKey([]string{"solo"})
	require.NoError(t, err)
	assert.Equal(t, "solo", key)

	_, err = ChainKey(nil)
	assert.Equal(t, KindUnsupportedValue, KindOf(err))

	_, err = ChainKey([]string{"user", "", "email"})
	assert.Equal(t, KindUnsupportedValue, KindOf(err))
}

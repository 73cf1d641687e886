package reading

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grillworks/smokewatch/errors"
)

func TestDecode_UnitSuffixedTemperature(t *testing.T) {
	r, err := Decode([]byte(`{"temperature": "225.5 F", "timestamp": "t2"}`))

	require.NoError(t, err)
	assert.Equal(t, 225.5, r.Value)
	assert.Equal(t, "t2", r.Timestamp)
}

func TestDecode_CelsiusSuffix(t *testing.T) {
	r, err := Decode([]byte(`{"temperature": "107.3 C", "timestamp": "2025-01-01T12:00:00Z"}`))

	require.NoError(t, err)
	assert.Equal(t, 107.3, r.Value)
	assert.Equal(t, "2025-01-01T12:00:00Z", r.Timestamp)
}

func TestDecode_NumericTemperature(t *testing.T) {
	r, err := Decode([]byte(`{"temperature": 198.25, "timestamp": "t9"}`))

	require.NoError(t, err)
	assert.Equal(t, 198.25, r.Value)
}

func TestDecode_BareNumericString(t *testing.T) {
	r, err := Decode([]byte(`{"temperature": "212", "timestamp": "t1"}`))

	require.NoError(t, err)
	assert.Equal(t, 212.0, r.Value)
}

func TestDecode_NegativeValue(t *testing.T) {
	r, err := Decode([]byte(`{"temperature": "-4.5 C", "timestamp": "t1"}`))

	require.NoError(t, err)
	assert.Equal(t, -4.5, r.Value)
}

func TestDecode_MissingTemperature(t *testing.T) {
	_, err := Decode([]byte(`{"timestamp": "t1"}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingField)
	assert.Contains(t, err.Error(), "temperature")
}

func TestDecode_MissingTimestamp(t *testing.T) {
	_, err := Decode([]byte(`{"temperature": "225.5 F"}`))

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrMissingField)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestDecode_MalformedJSON(t *testing.T) {
	for _, payload := range []string{
		"not json at all",
		`{"temperature": `,
		`[1, 2, 3]`,
		`"just a string"`,
		`null`,
	} {
		_, err := Decode([]byte(payload))
		assert.ErrorIs(t, err, errors.ErrMalformedPayload, "payload: %s", payload)
	}
}

func TestDecode_InvalidNumericValue(t *testing.T) {
	for _, payload := range []string{
		`{"temperature": "hot", "timestamp": "t1"}`,
		`{"temperature": "", "timestamp": "t1"}`,
		`{"temperature": " F", "timestamp": "t1"}`,
		`{"temperature": true, "timestamp": "t1"}`,
		`{"temperature": null, "timestamp": "t1"}`,
	} {
		_, err := Decode([]byte(payload))
		assert.ErrorIs(t, err, errors.ErrInvalidNumericValue, "payload: %s", payload)
	}
}

func TestDecode_NonStringTimestamp(t *testing.T) {
	_, err := Decode([]byte(`{"temperature": "225.5 F", "timestamp": 12345}`))
	assert.ErrorIs(t, err, errors.ErrMalformedPayload)
}

func TestDecode_ErrorsClassifyAsDecodeErrors(t *testing.T) {
	_, err := Decode([]byte(`{"timestamp": "t1"}`))
	require.Error(t, err)
	assert.True(t, errors.IsDecodeError(err))
	assert.Equal(t, errors.ErrorInvalid, errors.Classify(err))
}

func TestStripUnitSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"225.5 F", "225.5"},
		{"225.5F", "225.5"},
		{"107 C", "107"},
		{" 98.6 ", "98.6"},
		{"12.5", "12.5"},
		{"F", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripUnitSuffix(tt.in), "input %q", tt.in)
	}
}

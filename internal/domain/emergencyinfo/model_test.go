package emergencyinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeList(t *testing.T) {
	got, err := DecodeList(`["Penicillin", "Peanuts"]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Penicillin", "Peanuts"}, got)

	for _, raw := range []string{"", "  ", "null", "[]"} {
		got, err := DecodeList(raw)
		require.NoError(t, err, raw)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}

	for _, raw := range []string{"not-json", `{"a":1}`, `[1,2]`, `["ok"`} {
		got, err := DecodeList(raw)
		assert.Error(t, err, raw)
		assert.Equal(t, []string{}, got)
	}
}

func TestEncodeList(t *testing.T) {
	assert.Equal(t, `[]`, EncodeList(nil))
	assert.Equal(t, `["Asthma"]`, EncodeList([]string{"Asthma"}))
}

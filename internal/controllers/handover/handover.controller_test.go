package handoverController

import (
	"testing"

	. "drivemate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHandoverType(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("nil means infer from dates", func(t *testing.T) {
		parsed, err := parseHandoverType(nil)
		require.NoError(t, err)
		assert.Nil(t, parsed)
	})

	t.Run("empty string means infer from dates", func(t *testing.T) {
		parsed, err := parseHandoverType(strPtr(""))
		require.NoError(t, err)
		assert.Nil(t, parsed)
	})

	t.Run("pickup", func(t *testing.T) {
		parsed, err := parseHandoverType(strPtr("pickup"))
		require.NoError(t, err)
		require.NotNil(t, parsed)
		assert.Equal(t, HandoverTypePickup, *parsed)
	})

	t.Run("return", func(t *testing.T) {
		parsed, err := parseHandoverType(strPtr("return"))
		require.NoError(t, err)
		require.NotNil(t, parsed)
		assert.Equal(t, HandoverTypeReturn, *parsed)
	})

	t.Run("unknown value", func(t *testing.T) {
		_, err := parseHandoverType(strPtr("exchange"))
		assert.Error(t, err)
	})
}

package services

import (
	"testing"
	"time"

	. "drivemate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDamagesFromData(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		assert.Nil(t, damagesFromData(datatypes.JSONMap{}))
	})

	t.Run("typed entries from the same process", func(t *testing.T) {
		stored := []DamageReport{
			{ID: "d1", Location: "hood", Severity: SeverityMinor},
		}
		damages := damagesFromData(datatypes.JSONMap{"damages": stored})
		require.Len(t, damages, 1)
		assert.Equal(t, stored[0], damages[0])
	})

	t.Run("generic maps after a database round trip", func(t *testing.T) {
		damages := damagesFromData(datatypes.JSONMap{
			"damages": []any{
				map[string]any{
					"id":          "d2",
					"location":    "rear bumper",
					"severity":    "major",
					"description": "dent with paint transfer",
					"photos":      []any{"https://cdn/d2-1.jpg", "https://cdn/d2-2.jpg"},
					"timestamp":   "2024-03-09T10:15:00Z",
				},
				"garbage entry",
			},
		})

		require.Len(t, damages, 1)
		assert.Equal(t, "d2", damages[0].ID)
		assert.Equal(t, "rear bumper", damages[0].Location)
		assert.Equal(t, SeverityMajor, damages[0].Severity)
		assert.Equal(t, []string{"https://cdn/d2-1.jpg", "https://cdn/d2-2.jpg"}, damages[0].Photos)
		assert.Equal(t, time.Date(2024, 3, 9, 10, 15, 0, 0, time.UTC), damages[0].Timestamp)
	})

	t.Run("unparseable payload", func(t *testing.T) {
		assert.Nil(t, damagesFromData(datatypes.JSONMap{"damages": "nope"}))
	})
}

func TestDamageSeverityValid(t *testing.T) {
	assert.True(t, SeverityMinor.Valid())
	assert.True(t, SeverityModerate.Valid())
	assert.True(t, SeverityMajor.Valid())
	assert.False(t, DamageSeverity("catastrophic").Valid())
	assert.False(t, DamageSeverity("").Valid())
}

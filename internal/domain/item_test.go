package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateItemID(t *testing.T) {
	ts := time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC)

	t.Run("includes source prefix", func(t *testing.T) {
		id := GenerateItemID("citizen", "ravi", "high waves at marina beach", ts)
		assert.True(t, strings.HasPrefix(id, "citizen-"))
	})

	t.Run("deterministic", func(t *testing.T) {
		id1 := GenerateItemID("citizen", "ravi", "high waves at marina beach", ts)
		id2 := GenerateItemID("citizen", "ravi", "high waves at marina beach", ts)
		assert.Equal(t, id1, id2)
	})

	t.Run("different inputs produce different IDs", func(t *testing.T) {
		id1 := GenerateItemID("citizen", "ravi", "high waves", ts)
		id2 := GenerateItemID("citizen", "ravi", "high waves", ts.Add(time.Second))
		assert.NotEqual(t, id1, id2)
	})

	t.Run("empty source", func(t *testing.T) {
		id := GenerateItemID("", "ravi", "high waves", ts)
		assert.NotEmpty(t, id)
		assert.False(t, strings.Contains(id, "-"))
	})
}

func TestEngagementTotal(t *testing.T) {
	tests := []struct {
		name     string
		eng      Engagement
		expected int
	}{
		{"known counters", Engagement{Likes: 10, Shares: 5, Comments: 2, Known: true}, 17},
		{"known zero", Engagement{Known: true}, 0},
		{"unknown with values ignored", Engagement{Likes: 10, Shares: 5, Known: false}, 0},
		{"unknown zero", Engagement{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.eng.Total())
		})
	}
}

func TestValidHazardLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"tsunami", "Tsunami", true},
		{"other", "Other", true},
		{"lowercase rejected", "tsunami", false},
		{"unknown rejected", "Blizzard", false},
		{"empty rejected", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidHazardLabel(tt.input))
		})
	}
}

func TestNewFeatureCollection(t *testing.T) {
	t.Run("nil features becomes empty slice", func(t *testing.T) {
		fc := NewFeatureCollection(nil)
		assert.Equal(t, "FeatureCollection", fc.Type)
		assert.NotNil(t, fc.Features)
		assert.Empty(t, fc.Features)
	})

	t.Run("point feature coordinate order", func(t *testing.T) {
		f := NewPointFeature(Geo{Lat: 13.08, Lon: 80.27}, map[string]any{"label": "HighWaves"})
		assert.Equal(t, [2]float64{80.27, 13.08}, f.Geometry.Coordinates)
		assert.Equal(t, "Point", f.Geometry.Type)
	})
}

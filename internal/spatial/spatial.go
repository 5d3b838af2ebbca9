// Package spatial converts scored hazard items into GeoJSON views for map
// rendering: raw points, heat-weighted points, and grid-binned hotspots.
// Every transform is pure and recomputes its view from scratch; items
// without a coordinate are skipped.
package spatial

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
)

const (
	heatPriorityWeight   = 0.4
	heatEngagementWeight = 0.6
	heatMinWeight        = 0.1

	hotspotGeohashPrecision = 6
)

// ToPointFeatures emits one feature per located item, carrying the fields a
// map popup needs.
func ToPointFeatures(items []domain.ClassifiedItem) domain.FeatureCollection {
	var features []domain.Feature
	for _, item := range items {
		if item.Location == nil {
			continue
		}
		features = append(features, domain.NewPointFeature(*item.Location, map[string]any{
			"id":        item.ID,
			"label":     string(item.Classification.Label),
			"score":     item.PriorityScore,
			"sentiment": string(item.Sentiment),
			"source":    item.Source,
			"timestamp": item.Timestamp.UTC().Format(time.RFC3339),
		}))
	}
	return domain.NewFeatureCollection(features)
}

// HeatWeight blends priority and engagement into a rendering weight,
// floored so every located item remains visible on the heat layer.
func HeatWeight(item domain.ClassifiedItem) float64 {
	w := heatPriorityWeight*item.PriorityScore +
		heatEngagementWeight*math.Log10(1+float64(item.Engagement.Total()))
	if w < heatMinWeight {
		w = heatMinWeight
	}
	return w
}

// ToHeatFeatures emits one weighted feature per located item.
func ToHeatFeatures(items []domain.ClassifiedItem) domain.FeatureCollection {
	var features []domain.Feature
	for _, item := range items {
		if item.Location == nil {
			continue
		}
		features = append(features, domain.NewPointFeature(*item.Location, map[string]any{
			"id":     item.ID,
			"weight": HeatWeight(item),
		}))
	}
	return domain.NewFeatureCollection(features)
}

// cellKey identifies one grid cell by its quantized coordinate.
type cellKey struct {
	x, y int
}

type cell struct {
	key       cellKey
	count     int
	sumWeight float64
	labels    map[domain.HazardLabel]bool
	first     domain.Geo // coordinate of the first item binned into the cell
	order     int        // first-seen position, for stable output ordering
}

// ToHotspotFeatures bins located items into fixed-size grid cells and emits
// one feature per non-empty cell. The representative coordinate is the first
// item seen in the cell, not a centroid; cells are independent of each other
// and of input order apart from that first-seen pick.
func ToHotspotFeatures(items []domain.ClassifiedItem, cellSize float64) domain.FeatureCollection {
	cells := make(map[cellKey]*cell)
	for _, item := range items {
		if item.Location == nil {
			continue
		}
		key := cellKey{
			x: int(math.Floor(item.Location.Lon / cellSize)),
			y: int(math.Floor(item.Location.Lat / cellSize)),
		}
		c, ok := cells[key]
		if !ok {
			c = &cell{
				key:    key,
				labels: make(map[domain.HazardLabel]bool),
				first:  *item.Location,
				order:  len(cells),
			}
			cells[key] = c
		}
		c.count++
		c.sumWeight += item.PriorityScore
		c.labels[item.Classification.Label] = true
	}

	ordered := make([]*cell, 0, len(cells))
	for _, c := range cells {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	var features []domain.Feature
	for _, c := range ordered {
		labels := make([]string, 0, len(c.labels))
		for l := range c.labels {
			labels = append(labels, string(l))
		}
		sort.Strings(labels)

		features = append(features, domain.NewPointFeature(c.first, map[string]any{
			"cell":      fmt.Sprintf("%d:%d", c.key.x, c.key.y),
			"geohash":   geohash.EncodeWithPrecision(c.first.Lat, c.first.Lon, hotspotGeohashPrecision),
			"count":     c.count,
			"sum_score": c.sumWeight,
			"avg_score": c.sumWeight / float64(c.count),
			"labels":    labels,
		}))
	}
	return domain.NewFeatureCollection(features)
}

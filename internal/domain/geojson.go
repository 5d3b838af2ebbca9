package domain

// GeoJSON output types for map consumers. Only Point geometries are emitted,
// so the geometry type is fixed rather than modeled as a tagged union.

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"` // always "FeatureCollection"
	Features []Feature `json:"features"`
}

// Feature is a GeoJSON Feature with a Point geometry.
type Feature struct {
	Type       string         `json:"type"` // always "Feature"
	Geometry   PointGeometry  `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// PointGeometry holds a GeoJSON Point in [lon, lat] order.
type PointGeometry struct {
	Type        string     `json:"type"` // always "Point"
	Coordinates [2]float64 `json:"coordinates"`
}

// NewFeatureCollection wraps features, normalizing nil to an empty slice so
// the JSON form is always an array.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{Type: "FeatureCollection", Features: features}
}

// NewPointFeature builds a Feature at the given coordinate.
func NewPointFeature(geo Geo, properties map[string]any) Feature {
	return Feature{
		Type: "Feature",
		Geometry: PointGeometry{
			Type:        "Point",
			Coordinates: [2]float64{geo.Lon, geo.Lat},
		},
		Properties: properties,
	}
}

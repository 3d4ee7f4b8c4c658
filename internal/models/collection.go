package models

import (
	"sort"
	"time"
)

// FeatureCollection is the GeoJSON result document written for one suburb.
type FeatureCollection struct {
	Type      string    `json:"type"`
	Generated string    `json:"generated"`
	Suburb    string    `json:"suburb"`
	Features  []Feature `json:"features"`
}

// Feature is a single enriched address in GeoJSON form.
type Feature struct {
	Type       string            `json:"type"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// Geometry is always a Point of [longitude, latitude].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type FeatureProperties struct {
	Name       string `json:"name"`
	LocationID string `json:"locID"`
	Tech       string `json:"tech"`
	Upgrade    string `json:"upgrade"`
	GnafPID    string `json:"gnaf_pid"`
}

// NewFeatureCollection converts addresses into a result collection. Only addresses with both
// technology and upgrade are included, sorted by GNAF PID. Features is never nil.
func NewFeatureCollection(suburb string, addresses []Address, generated time.Time) FeatureCollection {
	features := []Feature{}
	for _, a := range addresses {
		if !a.HasStatus() {
			continue
		}
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: [2]float64{a.Longitude, a.Latitude}},
			Properties: FeatureProperties{
				Name:       a.Name,
				LocationID: a.LocationID,
				Tech:       a.Tech,
				Upgrade:    a.Upgrade,
				GnafPID:    a.GnafPID,
			},
		})
	}
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].Properties.GnafPID < features[j].Properties.GnafPID
	})
	return FeatureCollection{
		Type:      "FeatureCollection",
		Generated: FormatTimestamp(generated),
		Suburb:    suburb,
		Features:  features,
	}
}

// GeneratedAt parses the generated timestamp.
func (fc FeatureCollection) GeneratedAt() (time.Time, error) {
	return ParseTimestamp(fc.Generated)
}

// Addresses converts the features back into enriched addresses.
func (fc FeatureCollection) Addresses() []Address {
	out := make([]Address, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, Address{
			Name:       f.Properties.Name,
			GnafPID:    f.Properties.GnafPID,
			Longitude:  f.Geometry.Coordinates[0],
			Latitude:   f.Geometry.Coordinates[1],
			LocationID: f.Properties.LocationID,
			Tech:       f.Properties.Tech,
			Upgrade:    f.Properties.Upgrade,
		})
	}
	return out
}

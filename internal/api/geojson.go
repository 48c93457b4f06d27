package api

import (
	"strings"

	"github.com/discentra/discentra/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(records []models.DisasterRecord) FeatureCollection {
	features := make([]Feature, 0, len(records))

	for _, rec := range records {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{rec.Coordinates.Lng, rec.Coordinates.Lat},
			},
			Properties: map[string]any{
				"id":          rec.ID,
				"name":        rec.Name,
				"type":        strings.ToLower(rec.Type),
				"status":      strings.ToLower(rec.Status),
				"countries":   rec.Countries,
				"description": rec.Description,
				"source":      rec.Source,
				"date":        rec.OccurredAt,
			},
		}
		if rec.AlertLevel != "" {
			f.Properties["alert_level"] = strings.ToLower(rec.AlertLevel)
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

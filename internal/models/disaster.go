package models

import "time"

// Coordinates is a WGS84 point. Lat is clamped to [-90,90] and Lng to
// [-180,180] at the ingestion boundary; {0,0} is the documented fallback for
// records that arrive without a location.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DisasterRecord is one normalized entry of the live disaster feed. Every
// field is coerced to a safe default at the boundary, so the render layer
// never sees a missing or mistyped value.
type DisasterRecord struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`   // taxonomy tag, e.g. "Flood"
	Status      string      `json:"status"` // taxonomy tag, e.g. "Ongoing"
	OccurredAt  time.Time   `json:"date"`
	Countries   []string    `json:"countries"`
	Description string      `json:"description"`
	Coordinates Coordinates `json:"coordinates"`
	Source      string      `json:"source"`
	AlertLevel  string      `json:"alertLevel,omitempty"`
}

// EvacuationCenter is a per-message rendering target recovered from a
// structured assistant reply. It shares the lifetime of the message that
// produced it. Field names mirror the wire shape the assistant is instructed
// to emit.
type EvacuationCenter struct {
	Name      string  `json:"Name"`
	Latitude  float64 `json:"Latitude"`
	Longitude float64 `json:"Longitude"`
}

// TrackedHazard is a storm/typhoon entry recovered from a structured
// assistant reply, with the same per-message lifetime as EvacuationCenter.
type TrackedHazard struct {
	Name             string  `json:"Name"`
	Category         string  `json:"Category"`
	Latitude         float64 `json:"Latitude"`
	Longitude        float64 `json:"Longitude"`
	WindSpeedKPH     float64 `json:"WindSpeedKPH"`
	EstimatedArrival string  `json:"ETA"`
}

// FetchState is the feed fetcher's process-local state. The record list is
// replaced atomically on every successful refresh; RetryCount resets to zero
// on any success.
type FetchState struct {
	Records     []DisasterRecord `json:"records"`
	LastUpdated time.Time        `json:"last_updated"` // zero when never fetched
	LastError   string           `json:"last_error,omitempty"`
	RetryCount  int              `json:"retry_count"`
}

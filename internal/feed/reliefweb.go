package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/discentra/discentra/internal/models"
)

// Source is any backing provider of current disaster records.
type Source interface {
	Fetch(ctx context.Context) ([]models.DisasterRecord, error)
}

// ReliefWeb fetches the latest disasters from the ReliefWeb API. Every field
// of the upstream shape is treated as untyped and coerced with an explicit
// fallback before it enters the data model.
type ReliefWeb struct {
	baseURL string
	appName string
	limit   int
	client  *http.Client
}

func NewReliefWeb(baseURL, appName string, limit int, timeout time.Duration) *ReliefWeb {
	return &ReliefWeb{
		baseURL: baseURL,
		appName: appName,
		limit:   limit,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upstream wire shapes. Fields are decoded as `any` on purpose: the upstream
// source is never trusted to match its documented schema.
type rwEnvelope struct {
	Data []rwItem `json:"data"`
}

type rwItem struct {
	ID     any      `json:"id"`
	Fields rwFields `json:"fields"`
}

type rwFields struct {
	Name        any    `json:"name"`
	Type        any    `json:"type"`
	Status      any    `json:"status"`
	Date        rwDate `json:"date"`
	Country     any    `json:"country"`
	Description any    `json:"description"`
	Location    any    `json:"location"`
	AlertLevel  any    `json:"alert_level"`
}

type rwDate struct {
	Created any `json:"created"`
}

func (r *ReliefWeb) Fetch(ctx context.Context) ([]models.DisasterRecord, error) {
	params := url.Values{
		"appname": {r.appName},
		"profile": {"list"},
		"preset":  {"latest"},
		"limit":   {strconv.Itoa(r.limit)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.appName+"/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var envelope rwEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	records := make([]models.DisasterRecord, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		records = append(records, toRecord(item))
	}

	return records, nil
}

// toRecord coerces one upstream item field by field. Each field falls back
// independently, so a single malformed field never poisons the record.
func toRecord(item rwItem) models.DisasterRecord {
	f := item.Fields
	return models.DisasterRecord{
		ID:          coerceString(item.ID, "unknown"),
		Name:        coerceString(f.Name, "Unknown Disaster"),
		Type:        coerceTag(f.Type, "Unknown"),
		Status:      coerceString(f.Status, "Ongoing"),
		OccurredAt:  coerceTime(f.Date.Created),
		Countries:   coerceCountries(f.Country),
		Description: coerceString(f.Description, "No description available"),
		Coordinates: coerceCoordinates(f.Location),
		Source:      "ReliefWeb",
		AlertLevel:  coerceString(f.AlertLevel, ""),
	}
}

func coerceString(v any, fallback string) string {
	switch s := v.(type) {
	case string:
		if strings.TrimSpace(s) != "" {
			return s
		}
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return fallback
}

// coerceTag accepts either a bare tag or an array of tags (ReliefWeb sends
// types as a list; the first entry is the primary tag).
func coerceTag(v any, fallback string) string {
	switch t := v.(type) {
	case string:
		return coerceString(t, fallback)
	case []any:
		if len(t) > 0 {
			if obj, ok := t[0].(map[string]any); ok {
				return coerceString(obj["name"], fallback)
			}
			return coerceString(t[0], fallback)
		}
	case map[string]any:
		return coerceString(t["name"], fallback)
	}
	return fallback
}

func coerceTime(v any) time.Time {
	if s, ok := v.(string); ok {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-07:00", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Now().UTC()
}

func coerceCountries(v any) []string {
	arr, ok := v.([]any)
	if !ok || len(arr) == 0 {
		return []string{"Unknown Location"}
	}

	countries := make([]string, 0, len(arr))
	for _, el := range arr {
		switch c := el.(type) {
		case map[string]any:
			countries = append(countries, coerceString(c["name"], "Unknown Country"))
		case string:
			countries = append(countries, coerceString(c, "Unknown Country"))
		default:
			countries = append(countries, "Unknown Country")
		}
	}
	return countries
}

// coerceCoordinates pulls the first location's coordinate pair. ReliefWeb
// sends [longitude, latitude]; anything missing or out of range collapses to
// the {0,0} fallback.
func coerceCoordinates(v any) models.Coordinates {
	locations, ok := v.([]any)
	if !ok || len(locations) == 0 {
		return models.Coordinates{}
	}
	loc, ok := locations[0].(map[string]any)
	if !ok {
		return models.Coordinates{}
	}
	pair, ok := loc["coordinates"].([]any)
	if !ok || len(pair) < 2 {
		return models.Coordinates{}
	}

	lng, okLng := pair[0].(float64)
	lat, okLat := pair[1].(float64)
	if !okLng || !okLat {
		return models.Coordinates{}
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return models.Coordinates{}
	}
	return models.Coordinates{Lat: lat, Lng: lng}
}

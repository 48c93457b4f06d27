package assistant

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/discentra/discentra/internal/models"
)

// Mode selects how an assistant reply is rendered.
type Mode int

const (
	ModePlainText Mode = iota
	ModeEvacuationList
	ModeHazardList
)

func (m Mode) String() string {
	switch m {
	case ModeEvacuationList:
		return "evacuation_list"
	case ModeHazardList:
		return "hazard_list"
	default:
		return "plain_text"
	}
}

func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "evacuation_list":
		*m = ModeEvacuationList
	case "hazard_list":
		*m = ModeHazardList
	default:
		*m = ModePlainText
	}
	return nil
}

// Classification is the classifier's tagged result. Exactly one of Centers
// and Hazards is populated for the structured modes; both are nil for
// ModePlainText, where the caller renders the original raw text instead.
type Classification struct {
	Mode    Mode
	Centers []models.EvacuationCenter
	Hazards []models.TrackedHazard
}

// Key aliases accepted when sniffing payload shapes. The upstream model is
// not consistent about casing or spelling, so matching is tolerant.
var (
	nameKeys     = []string{"name"}
	latKeys      = []string{"latitude", "lat"}
	lngKeys      = []string{"longitude", "lng", "lon", "long"}
	categoryKeys = []string{"category"}
	windKeys     = []string{"windspeedkph", "wind_speed_kph", "windspeed", "wind_speed"}
	etaKeys      = []string{"eta", "estimatedarrival", "estimated_arrival", "arrival"}
)

// Classify decides the render mode for a payload. Rules apply in order,
// first match wins:
//
//  1. An unstructured payload is plain text.
//  2. An object with some field holding a non-empty array of objects that
//     each carry name/latitude/longitude keys is an evacuation-center list.
//  3. An array whose first element carries both a name and a category key is
//     a hazard list.
//  4. Everything else is plain text.
//
// The evacuation shape is checked first: both structured shapes are
// array-of-object at heart and must be told apart by field signature, not by
// the container type alone.
func Classify(p Payload) Classification {
	switch v := p.value.(type) {
	case map[string]any:
		// Walk fields in a stable order so replies with several array fields
		// classify deterministically.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if centers, ok := asCenterList(v[k]); ok {
				return Classification{Mode: ModeEvacuationList, Centers: centers}
			}
		}
	case []any:
		if hazards, ok := asHazardList(v); ok {
			return Classification{Mode: ModeHazardList, Hazards: hazards}
		}
	}
	return Classification{Mode: ModePlainText}
}

func asCenterList(field any) ([]models.EvacuationCenter, bool) {
	arr, ok := field.([]any)
	if !ok || len(arr) == 0 {
		return nil, false
	}

	centers := make([]models.EvacuationCenter, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, false
		}
		name, hasName := lookup(obj, nameKeys)
		lat, hasLat := lookup(obj, latKeys)
		lng, hasLng := lookup(obj, lngKeys)
		if !hasName || !hasLat || !hasLng {
			return nil, false
		}
		centers = append(centers, models.EvacuationCenter{
			Name:      asString(name),
			Latitude:  asFloat(lat),
			Longitude: asFloat(lng),
		})
	}
	return centers, true
}

func asHazardList(arr []any) ([]models.TrackedHazard, bool) {
	if len(arr) == 0 {
		return nil, false
	}

	first, ok := arr[0].(map[string]any)
	if !ok {
		return nil, false
	}
	if _, hasName := lookup(first, nameKeys); !hasName {
		return nil, false
	}
	if _, hasCategory := lookup(first, categoryKeys); !hasCategory {
		return nil, false
	}

	hazards := make([]models.TrackedHazard, 0, len(arr))
	for _, el := range arr {
		obj, ok := el.(map[string]any)
		if !ok {
			continue
		}
		h := models.TrackedHazard{}
		if v, ok := lookup(obj, nameKeys); ok {
			h.Name = asString(v)
		}
		if v, ok := lookup(obj, categoryKeys); ok {
			h.Category = asString(v)
		}
		if v, ok := lookup(obj, latKeys); ok {
			h.Latitude = asFloat(v)
		}
		if v, ok := lookup(obj, lngKeys); ok {
			h.Longitude = asFloat(v)
		}
		if v, ok := lookup(obj, windKeys); ok {
			h.WindSpeedKPH = asFloat(v)
		}
		if v, ok := lookup(obj, etaKeys); ok {
			h.EstimatedArrival = asString(v)
		}
		hazards = append(hazards, h)
	}
	return hazards, true
}

// lookup finds the first object field whose lowercased key matches one of the
// aliases.
func lookup(obj map[string]any, aliases []string) (any, bool) {
	for k, v := range obj {
		lk := strings.ToLower(k)
		for _, alias := range aliases {
			if lk == alias {
				return v, true
			}
		}
	}
	return nil, false
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func asFloat(v any) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(f), 64); err == nil {
			return parsed
		}
	}
	return 0
}

package board

import (
	"encoding/json"
	"math"
	"strconv"
)

// ParseRow normalizes an arbitrary persisted row into a well-formed Scoreboard.
// The input may come from an older schema version, a partial write, or a
// hand-edited record; malformed pieces degrade to empty values and never fail.
func ParseRow(raw map[string]any) Scoreboard {
	if raw == nil {
		raw = map[string]any{}
	}
	sb := Scoreboard{
		ID:              asString(raw["id"]),
		Title:           asString(raw["title"]),
		Pin:             asString(raw["pin"]),
		BackgroundColor: asString(raw["background_color"]),
		CreatedAt:       asString(raw["created_at"]),
	}
	if n, ok := asNumber(raw["timer_seconds"]); ok {
		sb.TimerSeconds = int(n)
	}
	sb.Data = ParseData(raw["data"], sb.BackgroundColor)
	return sb
}

// ParseData normalizes the raw data field of a row. outerBackground is the
// row-level background_color, used when the document carries no color of its
// own. Normalizing an already-normalized document yields an identical value.
func ParseData(raw any, outerBackground string) ScoreboardData {
	m, ok := raw.(map[string]any)
	if !ok {
		m = map[string]any{}
	}

	data := ScoreboardData{
		Participants: parseParticipants(m["participants"]),
		Activities:   parseActivities(m["activities"]),
	}
	data.Logo = asString(m["logo"])
	data.BackgroundColor = asString(m["backgroundColor"])
	if data.BackgroundColor == "" {
		data.BackgroundColor = outerBackground
	}
	data.IncrementButtons = parseNumberList(m["incrementButtons"])

	// Pre-activities rows stored columns plus per-participant score maps.
	// Translate that shape on read; nothing is written back until an edit
	// persists the current schema.
	if len(data.Activities) == 0 {
		migrateLegacyColumns(m, &data)
	}

	return data
}

// MergeRow applies a raw update payload on top of a previously normalized
// record. Outer scalar fields are replaced only where the payload carries the
// key. A present data field (even null) replaces the document wholesale; an
// absent one keeps the prior document, so a narrow-projection update can never
// wipe the working state.
func MergeRow(prev Scoreboard, payload map[string]any) Scoreboard {
	next := prev
	if v, ok := payload["id"]; ok {
		next.ID = asString(v)
	}
	if v, ok := payload["title"]; ok {
		next.Title = asString(v)
	}
	if v, ok := payload["pin"]; ok {
		next.Pin = asString(v)
	}
	if v, ok := payload["background_color"]; ok {
		next.BackgroundColor = asString(v)
	}
	if v, ok := payload["created_at"]; ok {
		next.CreatedAt = asString(v)
	}
	if v, ok := payload["timer_seconds"]; ok {
		n, _ := asNumber(v)
		next.TimerSeconds = int(n)
	}
	if v, ok := payload["data"]; ok {
		next.Data = ParseData(v, next.BackgroundColor)
	}
	return next
}

// parseParticipants keeps only array elements that are objects with a string
// id and a string name. Malformed entries are dropped silently, never repaired.
func parseParticipants(raw any) []Participant {
	items, _ := raw.([]any)
	out := make([]Participant, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, idOK := obj["id"].(string)
		name, nameOK := obj["name"].(string)
		if !idOK || !nameOK {
			continue
		}
		out = append(out, Participant{ID: id, Name: name})
	}
	return out
}

func parseActivities(raw any) []Activity {
	items, _ := raw.([]any)
	out := make([]Activity, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, idOK := obj["id"].(string)
		name, nameOK := obj["name"].(string)
		if !idOK || !nameOK {
			continue
		}
		out = append(out, Activity{
			ID:           id,
			Name:         name,
			SubGames:     parseSubGames(obj["subGames"]),
			DirectScores: parseScores(obj["directScores"]),
		})
	}
	return out
}

func parseSubGames(raw any) []SubGame {
	items, _ := raw.([]any)
	out := make([]SubGame, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, idOK := obj["id"].(string)
		name, nameOK := obj["name"].(string)
		if !idOK || !nameOK {
			continue
		}
		out = append(out, SubGame{ID: id, Name: name, Scores: parseScores(obj["scores"])})
	}
	return out
}

// parseScores coerces every map value numerically, defaulting to 0. Keys are
// participant-id references, so unconvertible entries keep their key with a
// zero value rather than being dropped.
func parseScores(raw any) map[string]float64 {
	obj, _ := raw.(map[string]any)
	out := make(map[string]float64, len(obj))
	for key, value := range obj {
		n, _ := asNumber(value)
		out[key] = n
	}
	return out
}

// migrateLegacyColumns synthesizes one direct-scored activity per legacy
// column and copies the per-participant score maps into them.
func migrateLegacyColumns(m map[string]any, data *ScoreboardData) {
	columns, _ := m["columns"].([]any)
	if len(columns) == 0 {
		return
	}

	index := make(map[string]int)
	for _, item := range columns {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, idOK := obj["id"].(string)
		name, nameOK := obj["name"].(string)
		if !idOK || !nameOK {
			continue
		}
		index[id] = len(data.Activities)
		data.Activities = append(data.Activities, Activity{
			ID:           id,
			Name:         name,
			SubGames:     []SubGame{},
			DirectScores: map[string]float64{},
		})
	}

	participants, _ := m["participants"].([]any)
	for _, item := range participants {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, idOK := obj["id"].(string)
		if _, nameOK := obj["name"].(string); !idOK || !nameOK {
			continue
		}
		scores, _ := obj["scores"].(map[string]any)
		for columnID, value := range scores {
			if i, ok := index[columnID]; ok {
				n, _ := asNumber(value)
				data.Activities[i].DirectScores[id] = n
			}
		}
	}
}

// parseNumberList returns the finite numbers from a raw array, or nil when the
// input is absent, invalid, or holds nothing usable.
func parseNumberList(raw any) []float64 {
	items, _ := raw.([]any)
	var out []float64
	for _, item := range items {
		if n, ok := asNumber(item); ok {
			out = append(out, n)
		}
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asNumber converts a raw value to a finite float64. Non-numeric input and
// NaN/Inf report false and yield 0.
func asNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

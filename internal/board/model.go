package board

import (
	"github.com/google/uuid"
)

// Participant represents one team or player on a scoreboard. Identity is the
// caller-generated id; display order is insertion order.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SubGame is a named scoring component inside an activity.
type SubGame struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Scores map[string]float64 `json:"scores"`
}

// Activity is a scoring round. DirectScores is meaningful only while SubGames
// is empty; once a sub-game exists the direct scores are dead data (kept, never
// displayed) and totals come from the sub-games.
type Activity struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	SubGames     []SubGame          `json:"subGames"`
	DirectScores map[string]float64 `json:"directScores"`
}

// ScoreboardData is the canonical scoring document. Participants and
// Activities are never nil after normalization, so consumers can iterate
// unconditionally.
type ScoreboardData struct {
	Participants     []Participant `json:"participants"`
	Activities       []Activity    `json:"activities"`
	Logo             string        `json:"logo,omitempty"`
	BackgroundColor  string        `json:"backgroundColor,omitempty"`
	IncrementButtons []float64     `json:"incrementButtons,omitempty"`
}

// Scoreboard is the full persisted record. An empty Pin means the board is
// unrestricted.
type Scoreboard struct {
	ID              string         `json:"id"`
	Title           string         `json:"title"`
	Data            ScoreboardData `json:"data"`
	Pin             string         `json:"pin,omitempty"`
	BackgroundColor string         `json:"background_color,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
	TimerSeconds    int            `json:"timer_seconds,omitempty"`
}

// Summary is the lightweight board listing used by the dashboard.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at,omitempty"`
	Logo      string `json:"logo,omitempty"`
}

// NewID returns a fresh opaque entity id. Uniqueness is caller-enforced and
// never validated by the store.
func NewID() string {
	return uuid.New().String()
}

// SeedData returns the document every new board starts with: two participants
// and a single direct-scored activity.
func SeedData() ScoreboardData {
	return ScoreboardData{
		Participants: []Participant{
			{ID: NewID(), Name: "Team A"},
			{ID: NewID(), Name: "Team B"},
		},
		Activities: []Activity{
			{ID: NewID(), Name: "ROUND 1", SubGames: []SubGame{}, DirectScores: map[string]float64{}},
		},
	}
}

// Clone returns a deep copy of the document. Edits operate on copies so the
// store's held document is never mutated in place.
func (d ScoreboardData) Clone() ScoreboardData {
	out := ScoreboardData{
		Participants:    make([]Participant, len(d.Participants)),
		Activities:      make([]Activity, len(d.Activities)),
		Logo:            d.Logo,
		BackgroundColor: d.BackgroundColor,
	}
	copy(out.Participants, d.Participants)
	for i, act := range d.Activities {
		a := Activity{
			ID:           act.ID,
			Name:         act.Name,
			SubGames:     make([]SubGame, len(act.SubGames)),
			DirectScores: cloneScores(act.DirectScores),
		}
		for j, sg := range act.SubGames {
			a.SubGames[j] = SubGame{ID: sg.ID, Name: sg.Name, Scores: cloneScores(sg.Scores)}
		}
		out.Activities[i] = a
	}
	if d.IncrementButtons != nil {
		out.IncrementButtons = make([]float64, len(d.IncrementButtons))
		copy(out.IncrementButtons, d.IncrementButtons)
	}
	return out
}

func cloneScores(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

package board

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestActivityTotalDirectScores(t *testing.T) {
	d := ScoreboardData{
		Activities: []Activity{
			{ID: "a1", Name: "R1", DirectScores: map[string]float64{"p1": 7}},
		},
	}

	assert.Equal(t, 7.0, d.ActivityTotal("a1", "p1"))
	assert.Equal(t, 0.0, d.ActivityTotal("a1", "p2"))
	assert.Equal(t, 0.0, d.ActivityTotal("missing", "p1"))
}

func TestActivityTotalSubGamesOverrideDirect(t *testing.T) {
	// Stale direct score of 999 must not leak once sub-games exist.
	d := ScoreboardData{
		Activities: []Activity{
			{
				ID:   "a1",
				Name: "R1",
				SubGames: []SubGame{
					{ID: "sg1", Name: "G1", Scores: map[string]float64{"p1": 3}},
					{ID: "sg2", Name: "G2", Scores: map[string]float64{"p1": 4}},
				},
				DirectScores: map[string]float64{"p1": 999},
			},
		},
	}

	assert.Equal(t, 7.0, d.ActivityTotal("a1", "p1"))
}

func TestActivityTotalEmptySubGameScores(t *testing.T) {
	d := ScoreboardData{
		Activities: []Activity{
			{
				ID:           "a1",
				Name:         "R1",
				SubGames:     []SubGame{{ID: "sg1", Name: "G1", Scores: map[string]float64{}}},
				DirectScores: map[string]float64{"p1": 50},
			},
		},
	}

	// A sub-game with no scores still overrides the direct score.
	assert.Equal(t, 0.0, d.ActivityTotal("a1", "p1"))
}

func TestGrandTotal(t *testing.T) {
	d := ScoreboardData{
		Activities: []Activity{
			{ID: "a1", Name: "R1", DirectScores: map[string]float64{"p1": 5}},
			{
				ID:       "a2",
				Name:     "R2",
				SubGames: []SubGame{{ID: "sg1", Name: "G1", Scores: map[string]float64{"p1": 10}}},
			},
			{ID: "a3", Name: "R3", DirectScores: map[string]float64{"p2": 8}},
		},
	}

	assert.Equal(t, 15.0, d.GrandTotal("p1"))
	assert.Equal(t, 8.0, d.GrandTotal("p2"))
	assert.Equal(t, 0.0, d.GrandTotal("ghost"))
}

func TestRankedParticipants(t *testing.T) {
	d := ScoreboardData{
		Participants: []Participant{
			{ID: "p1", Name: "A"},
			{ID: "p2", Name: "B"},
			{ID: "p3", Name: "C"},
		},
		Activities: []Activity{
			{ID: "a1", Name: "R1", DirectScores: map[string]float64{"p1": 3, "p2": 10, "p3": 5}},
		},
	}

	want := []Standing{
		{Rank: 1, Participant: Participant{ID: "p2", Name: "B"}, Total: 10},
		{Rank: 2, Participant: Participant{ID: "p3", Name: "C"}, Total: 5},
		{Rank: 3, Participant: Participant{ID: "p1", Name: "A"}, Total: 3},
	}
	assert.Empty(t, cmp.Diff(want, d.RankedParticipants()))
}

func TestRankedParticipantsStableOnTies(t *testing.T) {
	d := ScoreboardData{
		Participants: []Participant{
			{ID: "p1", Name: "A"},
			{ID: "p2", Name: "B"},
			{ID: "p3", Name: "C"},
		},
		Activities: []Activity{
			{ID: "a1", Name: "R1", DirectScores: map[string]float64{"p1": 5, "p2": 5, "p3": 5}},
		},
	}

	first := d.RankedParticipants()
	for i := 0; i < 10; i++ {
		assert.Empty(t, cmp.Diff(first, d.RankedParticipants()))
	}
	// Tied participants keep document order.
	assert.Equal(t, "p1", first[0].Participant.ID)
	assert.Equal(t, "p2", first[1].Participant.ID)
	assert.Equal(t, "p3", first[2].Participant.ID)
}

func TestRankedParticipantsEmpty(t *testing.T) {
	var d ScoreboardData
	assert.Len(t, d.RankedParticipants(), 0)
}

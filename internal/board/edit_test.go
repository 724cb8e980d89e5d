package board

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddParticipantNaming(t *testing.T) {
	d := ScoreboardData{Participants: []Participant{}, Activities: []Activity{}}

	d = d.AddParticipant()
	d = d.AddParticipant()
	d = d.AddParticipant()

	require.Len(t, d.Participants, 3)
	assert.Equal(t, "Team A", d.Participants[0].Name)
	assert.Equal(t, "Team B", d.Participants[1].Name)
	assert.Equal(t, "Team C", d.Participants[2].Name)
	assert.NotEqual(t, d.Participants[0].ID, d.Participants[1].ID)
}

func TestAddActivityNaming(t *testing.T) {
	d := ScoreboardData{}
	d = d.AddActivity()
	d = d.AddActivity()

	require.Len(t, d.Activities, 2)
	assert.Equal(t, "ROUND 1", d.Activities[0].Name)
	assert.Equal(t, "ROUND 2", d.Activities[1].Name)
	assert.NotNil(t, d.Activities[0].SubGames)
	assert.NotNil(t, d.Activities[0].DirectScores)
}

func TestEditsDoNotMutateReceiver(t *testing.T) {
	orig := SeedData()
	actID := orig.Activities[0].ID
	pID := orig.Participants[0].ID
	snapshot := orig.Clone()

	_, err := orig.AdjustDirectScore(actID, pID, 10)
	require.NoError(t, err)
	_ = orig.AddParticipant()
	_, err = orig.AddSubGame(actID)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(snapshot, orig))
}

func TestRenameAndRemoveParticipant(t *testing.T) {
	d := SeedData()
	pID := d.Participants[0].ID

	renamed, err := d.RenameParticipant(pID, "The Sharks")
	require.NoError(t, err)
	assert.Equal(t, "The Sharks", renamed.Participants[0].Name)

	_, err = d.RenameParticipant("missing", "x")
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	removed, err := renamed.RemoveParticipant(pID)
	require.NoError(t, err)
	assert.Len(t, removed.Participants, 1)

	_, err = removed.RemoveParticipant(pID)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestRemoveParticipantLeavesOrphanedScores(t *testing.T) {
	d := SeedData()
	actID := d.Activities[0].ID
	pID := d.Participants[0].ID

	d, err := d.SetDirectScore(actID, pID, 9)
	require.NoError(t, err)
	d, err = d.RemoveParticipant(pID)
	require.NoError(t, err)

	// Orphaned score stays in the map but no longer surfaces anywhere.
	assert.Equal(t, 9.0, d.Activities[0].DirectScores[pID])
	for _, s := range d.RankedParticipants() {
		assert.NotEqual(t, pID, s.Participant.ID)
	}
}

func TestSubGameLifecycle(t *testing.T) {
	d := SeedData()
	actID := d.Activities[0].ID
	pID := d.Participants[0].ID

	d, err := d.SetDirectScore(actID, pID, 42)
	require.NoError(t, err)

	d, err = d.AddSubGame(actID)
	require.NoError(t, err)
	require.Len(t, d.Activities[0].SubGames, 1)
	assert.Equal(t, "Game 1", d.Activities[0].SubGames[0].Name)
	// Direct scores survive as dead data.
	assert.Equal(t, 42.0, d.Activities[0].DirectScores[pID])
	assert.Equal(t, 0.0, d.ActivityTotal(actID, pID))

	sgID := d.Activities[0].SubGames[0].ID
	d, err = d.RenameSubGame(actID, sgID, "Finals")
	require.NoError(t, err)
	assert.Equal(t, "Finals", d.Activities[0].SubGames[0].Name)

	// Removing the last sub-game makes the old direct score visible again.
	d, err = d.RemoveSubGame(actID, sgID)
	require.NoError(t, err)
	assert.Equal(t, 42.0, d.ActivityTotal(actID, pID))

	_, err = d.RemoveSubGame(actID, sgID)
	assert.ErrorIs(t, err, ErrSubGameNotFound)
	_, err = d.AddSubGame("missing")
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestScoreFloorClamp(t *testing.T) {
	d := SeedData()
	actID := d.Activities[0].ID
	pID := d.Participants[0].ID

	// 0 - 10 clamps to 0.
	d, err := d.AdjustDirectScore(actID, pID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Activities[0].DirectScores[pID])

	// 50 - 100 clamps to 0, not -50.
	d, err = d.SetDirectScore(actID, pID, 50)
	require.NoError(t, err)
	d, err = d.AdjustDirectScore(actID, pID, -100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Activities[0].DirectScores[pID])

	// Negative set value clamps too.
	d, err = d.SetDirectScore(actID, pID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Activities[0].DirectScores[pID])

	// No ceiling.
	d, err = d.AdjustDirectScore(actID, pID, 1e6)
	require.NoError(t, err)
	assert.Equal(t, 1e6, d.Activities[0].DirectScores[pID])
}

func TestSubGameScoreClamp(t *testing.T) {
	d := SeedData()
	actID := d.Activities[0].ID
	pID := d.Participants[0].ID

	d, err := d.AddSubGame(actID)
	require.NoError(t, err)
	sgID := d.Activities[0].SubGames[0].ID

	d, err = d.AdjustSubGameScore(actID, sgID, pID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Activities[0].SubGames[0].Scores[pID])

	d, err = d.SetSubGameScore(actID, sgID, pID, 15)
	require.NoError(t, err)
	d, err = d.AdjustSubGameScore(actID, sgID, pID, -20)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.Activities[0].SubGames[0].Scores[pID])

	_, err = d.SetSubGameScore(actID, "missing", pID, 1)
	assert.ErrorIs(t, err, ErrSubGameNotFound)
}

func TestSetIncrementButtons(t *testing.T) {
	d := SeedData()

	d = d.SetIncrementButtons([]float64{1, 5, 10})
	assert.Equal(t, []float64{1, 5, 10}, d.IncrementButtons)

	d = d.SetIncrementButtons(nil)
	assert.Nil(t, d.IncrementButtons)
}

func TestSetLogoAndBackground(t *testing.T) {
	d := SeedData()
	d = d.SetLogo("data:image/png;base64,xyz")
	d = d.SetBackgroundColor("#101010")

	assert.Equal(t, "data:image/png;base64,xyz", d.Logo)
	assert.Equal(t, "#101010", d.BackgroundColor)
}

// Full editing pass: seed a board, add a sub-game to the seeded activity, score
// it, and confirm the totals line up.
func TestSeededBoardScenario(t *testing.T) {
	d := SeedData()
	require.Len(t, d.Participants, 2)
	require.Len(t, d.Activities, 1)
	assert.Equal(t, "Team A", d.Participants[0].Name)
	assert.Equal(t, "Team B", d.Participants[1].Name)
	assert.Equal(t, "ROUND 1", d.Activities[0].Name)

	actID := d.Activities[0].ID
	pID := d.Participants[0].ID

	d, err := d.AddSubGame(actID)
	require.NoError(t, err)
	sgID := d.Activities[0].SubGames[0].ID

	d, err = d.SetSubGameScore(actID, sgID, pID, 15)
	require.NoError(t, err)

	assert.Equal(t, 15.0, d.ActivityTotal(actID, pID))
	assert.Equal(t, 15.0, d.GrandTotal(pID))

	standings := d.RankedParticipants()
	require.Len(t, standings, 2)
	assert.Equal(t, pID, standings[0].Participant.ID)
	assert.Equal(t, 15.0, standings[0].Total)
	assert.Equal(t, 2, standings[1].Rank)
	assert.Equal(t, 0.0, standings[1].Total)
}

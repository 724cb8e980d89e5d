package board

import "fmt"

// Edit operations are pure document transforms: each returns a new document
// built from a deep copy, leaving the receiver untouched. Callers write the
// returned document back wholesale; there is no field-level update protocol.

// AddParticipant appends a participant with a generated id and a default name.
func (d ScoreboardData) AddParticipant() ScoreboardData {
	out := d.Clone()
	out.Participants = append(out.Participants, Participant{
		ID:   NewID(),
		Name: fmt.Sprintf("Team %c", 'A'+rune(len(out.Participants)%26)),
	})
	return out
}

// RenameParticipant renames a participant in place.
func (d ScoreboardData) RenameParticipant(participantID, name string) (ScoreboardData, error) {
	out := d.Clone()
	for i := range out.Participants {
		if out.Participants[i].ID == participantID {
			out.Participants[i].Name = name
			return out, nil
		}
	}
	return d, ErrParticipantNotFound
}

// RemoveParticipant drops a participant from the collection. Scores keyed by
// the removed id are left behind in activities and sub-games; lookups for a
// missing participant fail safe to zero.
func (d ScoreboardData) RemoveParticipant(participantID string) (ScoreboardData, error) {
	out := d.Clone()
	for i := range out.Participants {
		if out.Participants[i].ID == participantID {
			out.Participants = append(out.Participants[:i], out.Participants[i+1:]...)
			return out, nil
		}
	}
	return d, ErrParticipantNotFound
}

// AddActivity appends a direct-scored activity with a generated id.
func (d ScoreboardData) AddActivity() ScoreboardData {
	out := d.Clone()
	out.Activities = append(out.Activities, Activity{
		ID:           NewID(),
		Name:         fmt.Sprintf("ROUND %d", len(out.Activities)+1),
		SubGames:     []SubGame{},
		DirectScores: map[string]float64{},
	})
	return out
}

// RenameActivity renames an activity in place.
func (d ScoreboardData) RenameActivity(activityID, name string) (ScoreboardData, error) {
	out := d.Clone()
	for i := range out.Activities {
		if out.Activities[i].ID == activityID {
			out.Activities[i].Name = name
			return out, nil
		}
	}
	return d, ErrActivityNotFound
}

// RemoveActivity drops an activity and everything under it.
func (d ScoreboardData) RemoveActivity(activityID string) (ScoreboardData, error) {
	out := d.Clone()
	for i := range out.Activities {
		if out.Activities[i].ID == activityID {
			out.Activities = append(out.Activities[:i], out.Activities[i+1:]...)
			return out, nil
		}
	}
	return d, ErrActivityNotFound
}

// AddSubGame appends a sub-game to an activity. The activity's direct scores
// are kept as-is; sub-game presence alone switches the activity to composed
// scoring.
func (d ScoreboardData) AddSubGame(activityID string) (ScoreboardData, error) {
	out := d.Clone()
	for i := range out.Activities {
		if out.Activities[i].ID == activityID {
			out.Activities[i].SubGames = append(out.Activities[i].SubGames, SubGame{
				ID:     NewID(),
				Name:   fmt.Sprintf("Game %d", len(out.Activities[i].SubGames)+1),
				Scores: map[string]float64{},
			})
			return out, nil
		}
	}
	return d, ErrActivityNotFound
}

// RenameSubGame renames a sub-game in place.
func (d ScoreboardData) RenameSubGame(activityID, subGameID, name string) (ScoreboardData, error) {
	out := d.Clone()
	act, err := out.activity(activityID)
	if err != nil {
		return d, err
	}
	for i := range act.SubGames {
		if act.SubGames[i].ID == subGameID {
			act.SubGames[i].Name = name
			return out, nil
		}
	}
	return d, ErrSubGameNotFound
}

// RemoveSubGame drops a sub-game from an activity. When the last sub-game
// goes, any old direct scores become visible again.
func (d ScoreboardData) RemoveSubGame(activityID, subGameID string) (ScoreboardData, error) {
	out := d.Clone()
	act, err := out.activity(activityID)
	if err != nil {
		return d, err
	}
	for i := range act.SubGames {
		if act.SubGames[i].ID == subGameID {
			act.SubGames = append(act.SubGames[:i], act.SubGames[i+1:]...)
			return out, nil
		}
	}
	return d, ErrSubGameNotFound
}

// AdjustDirectScore applies a delta to an activity's direct score. The result
// is clamped at a floor of zero; there is no ceiling.
func (d ScoreboardData) AdjustDirectScore(activityID, participantID string, delta float64) (ScoreboardData, error) {
	out := d.Clone()
	act, err := out.activity(activityID)
	if err != nil {
		return d, err
	}
	act.DirectScores[participantID] = clampScore(act.DirectScores[participantID] + delta)
	return out, nil
}

// SetDirectScore sets an activity's direct score, clamped at zero.
func (d ScoreboardData) SetDirectScore(activityID, participantID string, value float64) (ScoreboardData, error) {
	out := d.Clone()
	act, err := out.activity(activityID)
	if err != nil {
		return d, err
	}
	act.DirectScores[participantID] = clampScore(value)
	return out, nil
}

// AdjustSubGameScore applies a delta to a sub-game score, clamped at zero.
func (d ScoreboardData) AdjustSubGameScore(activityID, subGameID, participantID string, delta float64) (ScoreboardData, error) {
	out := d.Clone()
	sg, err := out.subGame(activityID, subGameID)
	if err != nil {
		return d, err
	}
	sg.Scores[participantID] = clampScore(sg.Scores[participantID] + delta)
	return out, nil
}

// SetSubGameScore sets a sub-game score, clamped at zero.
func (d ScoreboardData) SetSubGameScore(activityID, subGameID, participantID string, value float64) (ScoreboardData, error) {
	out := d.Clone()
	sg, err := out.subGame(activityID, subGameID)
	if err != nil {
		return d, err
	}
	sg.Scores[participantID] = clampScore(value)
	return out, nil
}

// SetLogo replaces the board logo (a pre-compressed base64 image string).
func (d ScoreboardData) SetLogo(logo string) ScoreboardData {
	out := d.Clone()
	out.Logo = logo
	return out
}

// SetBackgroundColor replaces the document background color.
func (d ScoreboardData) SetBackgroundColor(color string) ScoreboardData {
	out := d.Clone()
	out.BackgroundColor = color
	return out
}

// SetIncrementButtons replaces the controller's quick-increment values.
func (d ScoreboardData) SetIncrementButtons(values []float64) ScoreboardData {
	out := d.Clone()
	if len(values) == 0 {
		out.IncrementButtons = nil
		return out
	}
	out.IncrementButtons = make([]float64, len(values))
	copy(out.IncrementButtons, values)
	return out
}

func (d *ScoreboardData) activity(activityID string) (*Activity, error) {
	for i := range d.Activities {
		if d.Activities[i].ID == activityID {
			return &d.Activities[i], nil
		}
	}
	return nil, ErrActivityNotFound
}

func (d *ScoreboardData) subGame(activityID, subGameID string) (*SubGame, error) {
	act, err := d.activity(activityID)
	if err != nil {
		return nil, err
	}
	for i := range act.SubGames {
		if act.SubGames[i].ID == subGameID {
			return &act.SubGames[i], nil
		}
	}
	return nil, ErrSubGameNotFound
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

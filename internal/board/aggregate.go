package board

import "sort"

// Standing pairs a participant with its derived rank and total.
type Standing struct {
	Rank        int         `json:"rank"`
	Participant Participant `json:"participant"`
	Total       float64     `json:"total"`
}

// ActivityTotal returns a participant's total for one activity. With no
// sub-games the activity's direct score applies; any sub-game overrides the
// direct scores entirely, even when they still hold stale values.
func (d ScoreboardData) ActivityTotal(activityID, participantID string) float64 {
	for _, act := range d.Activities {
		if act.ID != activityID {
			continue
		}
		if len(act.SubGames) == 0 {
			return act.DirectScores[participantID]
		}
		var sum float64
		for _, sg := range act.SubGames {
			sum += sg.Scores[participantID]
		}
		return sum
	}
	return 0
}

// GrandTotal sums a participant's activity totals in document order.
func (d ScoreboardData) GrandTotal(participantID string) float64 {
	var sum float64
	for _, act := range d.Activities {
		sum += d.ActivityTotal(act.ID, participantID)
	}
	return sum
}

// RankedParticipants returns all participants ordered by grand total,
// descending. The sort is stable so tied participants keep their insertion
// order instead of jittering between reads.
func (d ScoreboardData) RankedParticipants() []Standing {
	standings := make([]Standing, len(d.Participants))
	for i, p := range d.Participants {
		standings[i] = Standing{Participant: p, Total: d.GrandTotal(p.ID)}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Total > standings[j].Total
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings
}

package tournament

import (
	"cmp"
	"slices"
)

type Standing struct {
	Participant Participant `json:"participant"`
	Wins        int         `json:"wins"`
	Losses      int         `json:"losses"`
	Played      int         `json:"played"`
}

// ComputeStandings tallies decided matches per participant and ranks them by
// wins (desc) then losses (asc). Equal records keep their input order; there
// is no further tie-break.
func ComputeStandings(participants []Participant, matches []Match) []Standing {
	standings := make([]Standing, len(participants))
	index := make(map[int64]int, len(participants))
	for i, p := range participants {
		standings[i] = Standing{Participant: p}
		index[p.ID] = i
	}

	for _, m := range matches {
		if !m.Decided() {
			continue
		}
		for _, id := range []int64{m.Player1ID, m.Player2ID} {
			i, ok := index[id]
			if !ok {
				continue
			}
			standings[i].Played++
			if m.IsWinner(id) {
				standings[i].Wins++
			}
		}
	}

	for i := range standings {
		standings[i].Losses = standings[i].Played - standings[i].Wins
	}

	slices.SortStableFunc(standings, func(a, b Standing) int {
		if c := cmp.Compare(b.Wins, a.Wins); c != 0 {
			return c
		}
		return cmp.Compare(a.Losses, b.Losses)
	})

	return standings
}

package tournament

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// Shuffler is satisfied by *rand.Rand. Tests inject a seeded one.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type Pairing struct {
	Player1 int64
	Player2 int64
}

// Schedule maps a round number (1..rounds) to that round's pairings.
type Schedule map[int][]Pairing

// GenerateSchedule pairs the roster independently for every round: shuffle,
// then pair neighbours. With an odd roster the last participant of the
// permutation sits the round out. Pairs may repeat across rounds.
//
// Fewer than 2 participants yields every round with no pairings.
func GenerateSchedule(participantIDs []int64, rounds int, rng Shuffler) (Schedule, error) {
	if rounds < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRoundCount, rounds)
	}

	schedule := make(Schedule, rounds)
	for round := 1; round <= rounds; round++ {
		order := slices.Clone(participantIDs)
		shuffle(rng, len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		pairs := make([]Pairing, 0, len(order)/2)
		for i := 0; i+1 < len(order); i += 2 {
			pairs = append(pairs, Pairing{Player1: order[i], Player2: order[i+1]})
		}
		schedule[round] = pairs
	}

	return schedule, nil
}

func shuffle(rng Shuffler, n int, swap func(i, j int)) {
	if rng == nil {
		rand.Shuffle(n, swap)
		return
	}
	rng.Shuffle(n, swap)
}

// Rounds returns the round numbers in ascending order.
func (s Schedule) Rounds() []int {
	rounds := make([]int, 0, len(s))
	for round := range s {
		rounds = append(rounds, round)
	}
	slices.Sort(rounds)
	return rounds
}

// MatchCount is the total number of pairings across all rounds.
func (s Schedule) MatchCount() int {
	total := 0
	for _, pairs := range s {
		total += len(pairs)
	}
	return total
}

// Matches turns the schedule into unplayed matches, ordered by round.
func (s Schedule) Matches(tournamentID int64) []Match {
	matches := make([]Match, 0, s.MatchCount())
	for _, round := range s.Rounds() {
		for _, p := range s[round] {
			matches = append(matches, Match{
				TournamentID: tournamentID,
				Round:        round,
				Player1ID:    p.Player1,
				Player2ID:    p.Player2,
			})
		}
	}
	return matches
}

// ValidateMatches checks that every player belongs to the roster and that no
// one is booked twice in a round.
func ValidateMatches(participants []Participant, matches []Match) error {
	roster := make(map[int64]int64, len(participants))
	for _, p := range participants {
		roster[p.ID] = p.TournamentID
	}

	type slot struct {
		round int
		id    int64
	}
	booked := make(map[slot]bool, len(matches)*2)

	for _, m := range matches {
		if m.Player1ID == m.Player2ID {
			return fmt.Errorf("%w: participant %d", ErrParticipantDoubleBooked, m.Player1ID)
		}
		for _, id := range []int64{m.Player1ID, m.Player2ID} {
			tournamentID, ok := roster[id]
			if !ok || tournamentID != m.TournamentID {
				return fmt.Errorf("%w: participant %d", ErrParticipantNotInTournament, id)
			}
			key := slot{round: m.Round, id: id}
			if booked[key] {
				return fmt.Errorf("%w: participant %d in round %d", ErrParticipantDoubleBooked, id, m.Round)
			}
			booked[key] = true
		}
	}
	return nil
}

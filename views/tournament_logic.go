package views

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
)

type ScheduleData struct {
	Rounds         map[int][]tournament.Match
	RoundNums      []int
	ParticipantMap map[int64]tournament.Participant
}

func PrepareScheduleData(participants []tournament.Participant, matches []tournament.Match) ScheduleData {
	participantMap := make(map[int64]tournament.Participant, len(participants))
	for _, p := range participants {
		participantMap[p.ID] = p
	}

	rounds := make(map[int][]tournament.Match)
	var roundNums []int
	for _, m := range matches {
		if _, exists := rounds[m.Round]; !exists {
			roundNums = append(roundNums, m.Round)
		}
		rounds[m.Round] = append(rounds[m.Round], m)
	}

	sort.Ints(roundNums)
	for _, r := range roundNums {
		sort.Slice(rounds[r], func(i, j int) bool {
			return rounds[r][i].ID < rounds[r][j].ID
		})
	}

	return ScheduleData{
		Rounds:         rounds,
		RoundNums:      roundNums,
		ParticipantMap: participantMap,
	}
}

// PlayerName falls back to a placeholder for participants that were removed.
func (d ScheduleData) PlayerName(id int64) string {
	if p, ok := d.ParticipantMap[id]; ok {
		return p.Name
	}
	return "Ukjent"
}

func ScoreLabel(m tournament.Match) string {
	if m.Player1Score == nil || m.Player2Score == nil {
		return "-"
	}
	return fmt.Sprintf("%d - %d", *m.Player1Score, *m.Player2Score)
}

// RoundWindow is the informational play window of a round: rounds follow
// each other back to back from the start date.
func RoundWindow(t *tournament.Tournament, round int) (time.Time, time.Time, bool) {
	if t.StartDate == nil || t.RoundDurationWeeks < 1 {
		return time.Time{}, time.Time{}, false
	}
	length := time.Duration(t.RoundDurationWeeks) * 7 * 24 * time.Hour
	from := t.StartDate.Add(time.Duration(round-1) * length)
	return from, from.Add(length), true
}

func StatusLabel(s tournament.Status) string {
	switch s {
	case tournament.StatusRegistration:
		return "Påmelding åpen"
	case tournament.StatusActive:
		return "Pågår"
	case tournament.StatusCompleted:
		return "Avsluttet"
	}
	return string(s)
}

func roundWindowLabel(t *tournament.Tournament, round int) string {
	from, to, ok := RoundWindow(t, round)
	if !ok {
		return ""
	}
	return fmt.Sprintf(" (%s – %s)", from.Format("02.01"), to.Format("02.01"))
}

// NextStatuses lists the statuses a tournament in from may move to.
func NextStatuses(from tournament.Status) []tournament.Status {
	var next []tournament.Status
	for _, to := range []tournament.Status{tournament.StatusRegistration, tournament.StatusActive, tournament.StatusCompleted} {
		if tournament.CheckTransition(from, to) == nil {
			next = append(next, to)
		}
	}
	return next
}

func AdminTournamentPath(id int64) string {
	return "/admin/tournaments/" + strconv.FormatInt(id, 10)
}

func scoreValue(score *int) string {
	if score == nil {
		return ""
	}
	return strconv.Itoa(*score)
}

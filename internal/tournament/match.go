package tournament

import (
	"time"
)

type Match struct {
	ID           int64      `db:"id" json:"id"`
	TournamentID int64      `db:"tournament_id" json:"tournamentId"`
	Round        int        `db:"round" json:"round"`
	Player1ID    int64      `db:"player1_id" json:"player1Id"`
	Player2ID    int64      `db:"player2_id" json:"player2Id"`
	Player1Score *int       `db:"player1_score" json:"player1Score"`
	Player2Score *int       `db:"player2_score" json:"player2Score"`
	WinnerID     *int64     `db:"winner_id" json:"winnerId"`
	PlayedAt     *time.Time `db:"played_at" json:"playedAt"`
	ReportedBy   *string    `db:"reported_by" json:"reportedBy"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// Decided reports whether a winner has been recorded.
func (m *Match) Decided() bool {
	return m.WinnerID != nil
}

func (m *Match) HasPlayer(participantID int64) bool {
	return m.Player1ID == participantID || m.Player2ID == participantID
}

func (m *Match) IsWinner(participantID int64) bool {
	return m.WinnerID != nil && *m.WinnerID == participantID
}

// MatchResult is the result-entry patch for a match. Leaving both scores nil
// clears a previously recorded result.
type MatchResult struct {
	Player1Score *int       `json:"player1Score"`
	Player2Score *int       `json:"player2Score"`
	WinnerID     *int64     `json:"winnerId,omitempty"`
	PlayedAt     *time.Time `json:"playedAt,omitempty"`
	ReportedBy   *string    `json:"-"`
}

// DecideWinner returns the participant with the higher score.
func DecideWinner(m *Match, player1Score, player2Score int) (int64, error) {
	if player1Score < 0 || player2Score < 0 {
		return 0, ErrInvalidScore
	}
	if player1Score == player2Score {
		return 0, ErrDrawNotAllowed
	}
	if player1Score > player2Score {
		return m.Player1ID, nil
	}
	return m.Player2ID, nil
}

// ApplyResult validates r and writes it onto m. Nothing is changed on error.
func (m *Match) ApplyResult(r MatchResult, now time.Time) error {
	if r.WinnerID != nil && !m.HasPlayer(*r.WinnerID) {
		return ErrWinnerNotInMatch
	}

	if r.Player1Score == nil && r.Player2Score == nil {
		if r.WinnerID != nil {
			return ErrInvalidScore
		}
		m.Player1Score = nil
		m.Player2Score = nil
		m.WinnerID = nil
		m.PlayedAt = nil
		m.ReportedBy = r.ReportedBy
		return nil
	}
	if r.Player1Score == nil || r.Player2Score == nil {
		return ErrInvalidScore
	}

	winner, err := DecideWinner(m, *r.Player1Score, *r.Player2Score)
	if err != nil {
		return err
	}
	if r.WinnerID != nil && *r.WinnerID != winner {
		return ErrWinnerScoreMismatch
	}

	s1, s2 := *r.Player1Score, *r.Player2Score
	m.Player1Score = &s1
	m.Player2Score = &s2
	m.WinnerID = &winner
	playedAt := now
	if r.PlayedAt != nil {
		playedAt = *r.PlayedAt
	}
	m.PlayedAt = &playedAt
	m.ReportedBy = r.ReportedBy
	return nil
}

package tournament

import (
	"strings"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/utils"
)

type Participant struct {
	ID           int64     `db:"id" json:"id"`
	TournamentID int64     `db:"tournament_id" json:"tournamentId"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	NavIdent     *string   `db:"nav_ident" json:"navIdent"`
	SlackHandle  *string   `db:"slack_handle" json:"slackHandle"`
	RegisteredAt time.Time `db:"registered_at" json:"registeredAt"`
}

// ParticipantPatch lists the fields an administrator may change.
type ParticipantPatch struct {
	Name        *string `json:"name,omitempty"`
	Email       *string `json:"email,omitempty"`
	SlackHandle *string `json:"slackHandle,omitempty"`
}

func (p ParticipantPatch) Apply(participant *Participant) {
	if p.Name != nil {
		participant.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		participant.Email = strings.TrimSpace(*p.Email)
	}
	if p.SlackHandle != nil {
		participant.SlackHandle = utils.StringOrNil(*p.SlackHandle)
	}
}

func (p *Participant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(p.Email) == "" {
		return ErrEmailRequired
	}
	return nil
}

// SameEmail compares contact addresses the way the unique index does:
// SQLite's NOCASE folds ASCII letters only, so "Å" and "å" stay distinct.
func SameEmail(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

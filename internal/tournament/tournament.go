package tournament

import (
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/utils"
)

type Status string

const (
	StatusRegistration Status = "registration"
	StatusActive       Status = "active"
	StatusCompleted    Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRegistration, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// Only round-robin is implemented.
type Format string

const RoundRobin Format = "round-robin"

const (
	DefaultRounds             = 10
	DefaultRoundDurationWeeks = 2
)

type Tournament struct {
	ID                   int64      `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Description          *string    `db:"description" json:"description"`
	Format               Format     `db:"format" json:"type"`
	Rounds               int        `db:"rounds" json:"rounds"`
	RoundDurationWeeks   int        `db:"round_duration_weeks" json:"roundDurationWeeks"`
	RegistrationDeadline *time.Time `db:"registration_deadline" json:"registrationDeadline"`
	StartDate            *time.Time `db:"start_date" json:"startDate"`
	EndDate              *time.Time `db:"end_date" json:"endDate"`
	Status               Status     `db:"status" json:"status"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
}

func (t *Tournament) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ErrNameRequired
	}
	if t.Rounds < 1 {
		return ErrInvalidRoundCount
	}
	if t.Format != RoundRobin {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, t.Format)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	return nil
}

// CheckRegistrationOpen reports whether a participant may register at now.
func (t *Tournament) CheckRegistrationOpen(now time.Time) error {
	if t.Status != StatusRegistration {
		return ErrRegistrationClosed
	}
	if t.RegistrationDeadline != nil && t.RegistrationDeadline.Before(now) {
		return ErrRegistrationDeadlinePassed
	}
	return nil
}

// CheckTransition validates a status change. registration -> active is the
// only edge that schedules matches; completed -> active reopens without
// touching them.
func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	switch {
	case from == StatusRegistration && to == StatusActive,
		from == StatusActive && to == StatusCompleted,
		from == StatusCompleted && to == StatusActive:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}

// TournamentPatch lists the fields an administrator may change. Status is
// applied separately through CheckTransition.
type TournamentPatch struct {
	Name                 *string    `json:"name,omitempty"`
	Description          *string    `json:"description,omitempty"`
	Rounds               *int       `json:"rounds,omitempty"`
	RoundDurationWeeks   *int       `json:"roundDurationWeeks,omitempty"`
	RegistrationDeadline *time.Time `json:"registrationDeadline,omitempty"`
	StartDate            *time.Time `json:"startDate,omitempty"`
	EndDate              *time.Time `json:"endDate,omitempty"`
	Status               *Status    `json:"status,omitempty"`
}

func (p TournamentPatch) Apply(t *Tournament) {
	if p.Name != nil {
		t.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		t.Description = utils.StringOrNil(*p.Description)
	}
	if p.Rounds != nil {
		t.Rounds = *p.Rounds
	}
	if p.RoundDurationWeeks != nil {
		t.RoundDurationWeeks = *p.RoundDurationWeeks
	}
	if p.RegistrationDeadline != nil {
		t.RegistrationDeadline = p.RegistrationDeadline
	}
	if p.StartDate != nil {
		t.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = p.EndDate
	}
}

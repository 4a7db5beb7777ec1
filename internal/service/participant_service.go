package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/metrics"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/AdamBeresnev/round-robin-app/internal/utils"
)

type ParticipantService struct {
	store   tournament.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewParticipantService(store tournament.Store, m *metrics.Metrics) *ParticipantService {
	return &ParticipantService{store: store, metrics: m, now: time.Now}
}

type RegistrationInput struct {
	TournamentID int64  `json:"tournamentId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	SlackHandle  string `json:"slackHandle"`
	// NavIdent comes from the caller's token, never from the request body.
	NavIdent string `json:"-"`
}

// Register signs a participant up. The tournament must still be taking
// registrations and the email must be new to it (case-insensitive).
func (s *ParticipantService) Register(ctx context.Context, input RegistrationInput) (*tournament.Participant, error) {
	p := &tournament.Participant{
		TournamentID: input.TournamentID,
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		NavIdent:     utils.StringOrNil(input.NavIdent),
		SlackHandle:  utils.StringOrNil(input.SlackHandle),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, func(repo tournament.Repository) error {
		t, err := repo.GetTournament(ctx, input.TournamentID)
		if err != nil {
			return err
		}
		if err := t.CheckRegistrationOpen(s.now()); err != nil {
			return err
		}

		existing, err := repo.ListParticipants(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		for _, e := range existing {
			if tournament.SameEmail(e.Email, p.Email) {
				return tournament.ErrDuplicateEmail
			}
		}

		if err := repo.CreateParticipant(ctx, p); err != nil {
			return err
		}
		created, err := repo.GetParticipant(ctx, p.ID)
		if err != nil {
			return err
		}
		p = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RegistrationRecorded()
	slog.Info("participant registered", "tournament_id", p.TournamentID, "participant_id", p.ID)
	return p, nil
}

func (s *ParticipantService) GetParticipant(ctx context.Context, id int64) (*tournament.Participant, error) {
	return s.store.GetParticipant(ctx, id)
}

// UpdateParticipant applies an administrator's corrections.
func (s *ParticipantService) UpdateParticipant(ctx context.Context, id int64, patch tournament.ParticipantPatch) (*tournament.Participant, error) {
	var updated *tournament.Participant
	err := s.store.InTx(ctx, func(repo tournament.Repository) error {
		p, err := repo.GetParticipant(ctx, id)
		if err != nil {
			return err
		}
		patch.Apply(p)
		if err := p.Validate(); err != nil {
			return err
		}
		if err := repo.UpdateParticipant(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	return updated, err
}

// RemoveParticipant deletes the participant together with every match they
// were scheduled in. The rest of the schedule is left as is.
func (s *ParticipantService) RemoveParticipant(ctx context.Context, id int64) error {
	if err := s.store.DeleteParticipant(ctx, id); err != nil {
		return err
	}
	slog.Info("participant removed", "participant_id", id)
	return nil
}

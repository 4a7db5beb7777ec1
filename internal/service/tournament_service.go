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

type TournamentService struct {
	store   tournament.Store
	metrics *metrics.Metrics
	// rng is nil in production (global source). Tests inject a seeded one.
	rng tournament.Shuffler
}

func NewTournamentService(store tournament.Store, m *metrics.Metrics) *TournamentService {
	return &TournamentService{store: store, metrics: m}
}

type TournamentInput struct {
	Name                 string     `json:"name"`
	Description          string     `json:"description"`
	Format               string     `json:"type"`
	Rounds               int        `json:"rounds"`
	RoundDurationWeeks   int        `json:"roundDurationWeeks"`
	RegistrationDeadline *time.Time `json:"registrationDeadline"`
	StartDate            *time.Time `json:"startDate"`
	EndDate              *time.Time `json:"endDate"`
}

type TournamentData struct {
	Tournament   *tournament.Tournament   `json:"tournament"`
	Participants []tournament.Participant `json:"participants"`
	Matches      []tournament.Match       `json:"matches"`
	Standings    []tournament.Standing    `json:"standings"`
}

func (s *TournamentService) ListTournaments(ctx context.Context) ([]tournament.Tournament, error) {
	return s.store.ListTournaments(ctx)
}

// GetTournamentData loads a tournament with everything needed to render it.
// All reads share one snapshot so the schedule and standings agree.
func (s *TournamentService) GetTournamentData(ctx context.Context, id int64) (*TournamentData, error) {
	var data TournamentData
	err := s.store.ReadTx(ctx, func(repo tournament.Repository) error {
		t, err := repo.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		participants, err := repo.ListParticipants(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		matches, err := repo.ListMatches(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list matches: %w", err)
		}

		data = TournamentData{
			Tournament:   t,
			Participants: participants,
			Matches:      matches,
			Standings:    tournament.ComputeStandings(participants, matches),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &data, nil
}

func (s *TournamentService) CreateTournament(ctx context.Context, input TournamentInput) (*tournament.Tournament, error) {
	t := &tournament.Tournament{
		Name:                 strings.TrimSpace(input.Name),
		Description:          utils.StringOrNil(input.Description),
		Format:               tournament.RoundRobin,
		Rounds:               input.Rounds,
		RoundDurationWeeks:   input.RoundDurationWeeks,
		RegistrationDeadline: input.RegistrationDeadline,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		Status:               tournament.StatusRegistration,
	}
	if input.Format != "" {
		t.Format = tournament.Format(input.Format)
	}
	if t.Rounds == 0 {
		t.Rounds = tournament.DefaultRounds
	}
	if t.RoundDurationWeeks == 0 {
		t.RoundDurationWeeks = tournament.DefaultRoundDurationWeeks
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateTournament(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	slog.Info("tournament created", "tournament_id", t.ID, "name", t.Name, "rounds", t.Rounds)
	return s.store.GetTournament(ctx, t.ID)
}

// UpdateTournament applies patch. A status change must be a legal
// transition; registration -> active also writes the schedule in the same
// transaction, so a failed activation leaves the tournament untouched.
func (s *TournamentService) UpdateTournament(ctx context.Context, id int64, patch tournament.TournamentPatch) (*tournament.Tournament, error) {
	var (
		updated   *tournament.Tournament
		activated bool
		scheduled int
		took      time.Duration
	)

	err := s.store.InTx(ctx, func(repo tournament.Repository) error {
		t, err := repo.GetTournament(ctx, id)
		if err != nil {
			return err
		}

		from := t.Status
		patch.Apply(t)
		if err := t.Validate(); err != nil {
			return err
		}

		if patch.Status != nil && *patch.Status != from {
			to := *patch.Status
			if err := tournament.CheckTransition(from, to); err != nil {
				return err
			}
			if from == tournament.StatusRegistration && to == tournament.StatusActive {
				participants, err := repo.ListParticipants(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to list participants: %w", err)
				}
				if len(participants) < 2 {
					return fmt.Errorf("%w: have %d", tournament.ErrNotEnoughParticipants, len(participants))
				}
				start := time.Now()
				if scheduled, err = s.writeSchedule(ctx, repo, t, participants); err != nil {
					return err
				}
				took = time.Since(start)
				activated = true
			}
			t.Status = to
		}

		if err := repo.UpdateTournament(ctx, t); err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}
		updated, err = repo.GetTournament(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	if activated {
		s.metrics.ScheduleGenerated("activation", scheduled, took)
		slog.Info("tournament activated", "tournament_id", id, "matches", scheduled)
	}
	return updated, nil
}

func (s *TournamentService) DeleteTournament(ctx context.Context, id int64) error {
	if err := s.store.DeleteTournament(ctx, id); err != nil {
		return err
	}
	slog.Info("tournament deleted", "tournament_id", id)
	return nil
}

// RegenerateSchedule throws away every match of an active tournament,
// recorded results included, and draws a fresh schedule. On failure the
// previous schedule is kept.
func (s *TournamentService) RegenerateSchedule(ctx context.Context, id int64) ([]tournament.Match, error) {
	var matches []tournament.Match
	start := time.Now()

	err := s.store.InTx(ctx, func(repo tournament.Repository) error {
		t, err := repo.GetTournament(ctx, id)
		if err != nil {
			return err
		}
		if t.Status != tournament.StatusActive {
			return fmt.Errorf("%w: status is %s", tournament.ErrTournamentNotActive, t.Status)
		}

		participants, err := repo.ListParticipants(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list participants: %w", err)
		}
		if _, err := s.writeSchedule(ctx, repo, t, participants); err != nil {
			return err
		}

		matches, err = repo.ListMatches(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ScheduleGenerated("regeneration", len(matches), time.Since(start))
	slog.Info("schedule regenerated", "tournament_id", id, "matches", len(matches))
	return matches, nil
}

// writeSchedule replaces the tournament's matches with a freshly drawn
// schedule. Must run inside InTx.
func (s *TournamentService) writeSchedule(ctx context.Context, repo tournament.Repository, t *tournament.Tournament, participants []tournament.Participant) (int, error) {
	ids := make([]int64, len(participants))
	for i, p := range participants {
		ids[i] = p.ID
	}

	schedule, err := tournament.GenerateSchedule(ids, t.Rounds, s.rng)
	if err != nil {
		return 0, err
	}
	matches := schedule.Matches(t.ID)
	if err := tournament.ValidateMatches(participants, matches); err != nil {
		return 0, err
	}

	if err := repo.DeleteMatchesByTournament(ctx, t.ID); err != nil {
		return 0, fmt.Errorf("%w: %w", tournament.ErrRegenerationFailed, err)
	}
	if err := repo.CreateMatches(ctx, matches); err != nil {
		return 0, fmt.Errorf("%w: %w", tournament.ErrRegenerationFailed, err)
	}
	return len(matches), nil
}

func (s *TournamentService) Standings(ctx context.Context, id int64) ([]tournament.Standing, error) {
	var standings []tournament.Standing
	err := s.store.ReadTx(ctx, func(repo tournament.Repository) error {
		if _, err := repo.GetTournament(ctx, id); err != nil {
			return err
		}
		participants, err := repo.ListParticipants(ctx, id)
		if err != nil {
			return err
		}
		matches, err := repo.ListMatches(ctx, id)
		if err != nil {
			return err
		}
		standings = tournament.ComputeStandings(participants, matches)
		return nil
	})
	return standings, err
}

func (s *TournamentService) ListMatchesByRound(ctx context.Context, id int64, round int) ([]tournament.Match, error) {
	var matches []tournament.Match
	err := s.store.ReadTx(ctx, func(repo tournament.Repository) error {
		if _, err := repo.GetTournament(ctx, id); err != nil {
			return err
		}
		var err error
		matches, err = repo.ListMatchesByRound(ctx, id, round)
		return err
	})
	return matches, err
}

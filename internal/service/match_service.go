package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/metrics"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
)

type MatchService struct {
	store   tournament.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewMatchService(store tournament.Store, m *metrics.Metrics) *MatchService {
	return &MatchService{store: store, metrics: m, now: time.Now}
}

func (s *MatchService) GetMatch(ctx context.Context, id int64) (*tournament.Match, error) {
	return s.store.GetMatch(ctx, id)
}

// RecordResult stores a result for the match. The winner is derived from the
// scores; an explicit winner must agree with them. Both scores nil clears the
// result.
func (s *MatchService) RecordResult(ctx context.Context, id int64, result tournament.MatchResult) (*tournament.Match, error) {
	var updated *tournament.Match
	err := s.store.InTx(ctx, func(repo tournament.Repository) error {
		m, err := repo.GetMatch(ctx, id)
		if err != nil {
			return err
		}

		if err := m.ApplyResult(result, s.now().UTC()); err != nil {
			return err
		}
		if err := repo.UpdateMatch(ctx, m); err != nil {
			return fmt.Errorf("failed to update match: %w", err)
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ResultRecorded()
	slog.Info("match result recorded", "match_id", id, "tournament_id", updated.TournamentID, "decided", updated.Decided())
	return updated, nil
}

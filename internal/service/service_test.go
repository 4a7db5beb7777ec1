package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/AdamBeresnev/round-robin-app/internal/metrics"
	"github.com/AdamBeresnev/round-robin-app/internal/store"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	t.Cleanup(func() { database.Close() })
	return database
}

type fixture struct {
	store        *store.TournamentStore
	tournaments  *TournamentService
	participants *ParticipantService
	matches      *MatchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := store.NewTournamentStore(setupTestDB(t))
	m := metrics.New(prometheus.NewRegistry())

	tournaments := NewTournamentService(st, m)
	tournaments.rng = rand.New(rand.NewPCG(1, 2))

	return &fixture{
		store:        st,
		tournaments:  tournaments,
		participants: NewParticipantService(st, m),
		matches:      NewMatchService(st, m),
	}
}

func (f *fixture) createTournament(t *testing.T, rounds int) *tournament.Tournament {
	t.Helper()
	tr, err := f.tournaments.CreateTournament(context.Background(), TournamentInput{
		Name:   "Bordtennis",
		Rounds: rounds,
	})
	require.NoError(t, err)
	return tr
}

func (f *fixture) register(t *testing.T, tournamentID int64, n int) []tournament.Participant {
	t.Helper()
	out := make([]tournament.Participant, 0, n)
	for i := 1; i <= n; i++ {
		p, err := f.participants.Register(context.Background(), RegistrationInput{
			TournamentID: tournamentID,
			Name:         fmt.Sprintf("Player %d", i),
			Email:        fmt.Sprintf("player%d@nav.no", i),
		})
		require.NoError(t, err)
		out = append(out, *p)
	}
	return out
}

func (f *fixture) setStatus(t *testing.T, id int64, status tournament.Status) *tournament.Tournament {
	t.Helper()
	tr, err := f.tournaments.UpdateTournament(context.Background(), id, tournament.TournamentPatch{Status: &status})
	require.NoError(t, err)
	return tr
}

// failingStore runs transactions against the real store but hands out a
// repository whose CreateMatches always fails.
type failingStore struct {
	*store.TournamentStore
}

func (f failingStore) InTx(ctx context.Context, fn func(repo tournament.Repository) error) error {
	return f.TournamentStore.InTx(ctx, func(repo tournament.Repository) error {
		return fn(failingRepo{repo})
	})
}

type failingRepo struct {
	tournament.Repository
}

func (failingRepo) CreateMatches(context.Context, []tournament.Match) error {
	return fmt.Errorf("disk I/O error")
}

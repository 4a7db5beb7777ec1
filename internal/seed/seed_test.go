package seed

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/round-robin-app/internal/db"
	"github.com/AdamBeresnev/round-robin-app/internal/store"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store.TournamentStore {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, db.RunMigrations(database.DB))
	return store.NewTournamentStore(database)
}

func TestRun(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	seeder := New(st, 42)

	plans := []Plan{
		{Name: "Open", Participants: 6, Status: tournament.StatusRegistration},
		{Name: "Running", Participants: 5, Status: tournament.StatusActive, Rounds: 3},
		{Name: "Done", Participants: 4, Status: tournament.StatusCompleted},
	}

	created, err := seeder.Run(ctx, plans)
	require.NoError(t, err)
	require.Len(t, created, 3)

	for i, plan := range plans {
		tr := created[i]
		assert.Equal(t, plan.Status, tr.Status, plan.Name)

		participants, err := st.ListParticipants(ctx, tr.ID)
		require.NoError(t, err)
		assert.Len(t, participants, plan.Participants)

		emails := map[string]bool{}
		for _, p := range participants {
			assert.False(t, emails[p.Email], "duplicate email %s", p.Email)
			emails[p.Email] = true
			assert.NotNil(t, p.NavIdent)
			assert.NotNil(t, p.SlackHandle)
		}

		matches, err := st.ListMatches(ctx, tr.ID)
		require.NoError(t, err)
		if plan.Status == tournament.StatusRegistration {
			assert.Empty(t, matches)
			continue
		}
		assert.Len(t, matches, tr.Rounds*(plan.Participants/2))
		require.NoError(t, tournament.ValidateMatches(participants, matches))
		for _, m := range matches {
			if m.Decided() {
				assert.NotEqual(t, *m.Player1Score, *m.Player2Score)
			}
		}
	}

	assert.Equal(t, 5, created[2].Rounds, "default rounds is max(5, ceil(n/2))")
}

func TestRun_AllResults(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	seeder := New(st, 7)
	seeder.ResultRate = 1

	created, err := seeder.Run(ctx, []Plan{{Name: "Full", Participants: 4, Status: tournament.StatusActive, Rounds: 2}})
	require.NoError(t, err)

	matches, err := st.ListMatches(ctx, created[0].ID)
	require.NoError(t, err)
	require.Len(t, matches, 4)
	for _, m := range matches {
		assert.True(t, m.Decided())
		assert.Equal(t, "seed", *m.ReportedBy)
	}
}

func TestClean(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	seeder := New(st, 1)

	_, err := seeder.Run(ctx, []Plan{{Name: "Gone", Participants: 2, Status: tournament.StatusActive, Rounds: 1}})
	require.NoError(t, err)
	require.NoError(t, seeder.Clean(ctx))

	tournaments, err := st.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Empty(t, tournaments)
}

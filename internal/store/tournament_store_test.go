package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	database "github.com/AdamBeresnev/round-robin-app/internal/db"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/AdamBeresnev/round-robin-app/internal/utils"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	// Every pooled connection would otherwise get its own empty database.
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

	return database
}

func createTestTournament(t *testing.T, s *TournamentStore, name string) *tournament.Tournament {
	t.Helper()
	tr := &tournament.Tournament{
		Name:               name,
		Description:        utils.StringOrNil("Bordtennis i kantina"),
		Format:             tournament.RoundRobin,
		Rounds:             3,
		RoundDurationWeeks: 2,
		Status:             tournament.StatusRegistration,
	}
	require.NoError(t, s.CreateTournament(context.Background(), tr))
	return tr
}

func createTestParticipants(t *testing.T, s *TournamentStore, tournamentID int64, emails ...string) []tournament.Participant {
	t.Helper()
	var out []tournament.Participant
	for _, email := range emails {
		p := tournament.Participant{TournamentID: tournamentID, Name: email, Email: email}
		require.NoError(t, s.CreateParticipant(context.Background(), &p))
		out = append(out, p)
	}
	return out
}

func TestCreateTournament(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	deadline := time.Now().UTC().Add(7 * 24 * time.Hour).Truncate(time.Second)
	tr := &tournament.Tournament{
		Name:                 "Test Tournament",
		Format:               tournament.RoundRobin,
		Rounds:               10,
		RoundDurationWeeks:   2,
		RegistrationDeadline: &deadline,
		Status:               tournament.StatusRegistration,
	}

	err := store.CreateTournament(ctx, tr)
	require.NoError(t, err)
	require.NotZero(t, tr.ID)

	fetched, err := store.GetTournament(ctx, tr.ID)
	require.NoError(t, err)

	assert.Equal(t, tr.ID, fetched.ID)
	assert.Equal(t, tr.Name, fetched.Name)
	assert.Nil(t, fetched.Description)
	assert.Equal(t, tournament.RoundRobin, fetched.Format)
	assert.Equal(t, 10, fetched.Rounds)
	assert.Equal(t, tournament.StatusRegistration, fetched.Status)
	require.NotNil(t, fetched.RegistrationDeadline)
	assert.WithinDuration(t, deadline, *fetched.RegistrationDeadline, time.Second)
	assert.WithinDuration(t, time.Now().UTC(), fetched.CreatedAt, time.Minute)
}

func TestGetTournament_NotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := NewTournamentStore(db).GetTournament(context.Background(), 404)
	assert.ErrorIs(t, err, tournament.ErrTournamentNotFound)
}

func TestUpdateAndDeleteTournament(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Old Name")
	tr.Name = "New Name"
	tr.Status = tournament.StatusActive
	require.NoError(t, store.UpdateTournament(ctx, tr))

	fetched, err := store.GetTournament(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Name", fetched.Name)
	assert.Equal(t, tournament.StatusActive, fetched.Status)

	missing := *tr
	missing.ID = 999
	assert.ErrorIs(t, store.UpdateTournament(ctx, &missing), tournament.ErrTournamentNotFound)

	require.NoError(t, store.DeleteTournament(ctx, tr.ID))
	assert.ErrorIs(t, store.DeleteTournament(ctx, tr.ID), tournament.ErrTournamentNotFound)
}

func TestDeleteTournament_Cascades(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Cascade")
	ps := createTestParticipants(t, store, tr.ID, "a@nav.no", "b@nav.no")
	require.NoError(t, store.CreateMatches(ctx, []tournament.Match{
		{TournamentID: tr.ID, Round: 1, Player1ID: ps[0].ID, Player2ID: ps[1].ID},
	}))

	require.NoError(t, store.DeleteTournament(ctx, tr.ID))

	participants, err := store.ListParticipants(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, participants)

	matches, err := store.ListMatches(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestListTournaments_NewestFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	first := createTestTournament(t, store, "First")
	second := createTestTournament(t, store, "Second")

	tournaments, err := store.ListTournaments(context.Background())
	require.NoError(t, err)
	require.Len(t, tournaments, 2)
	assert.Equal(t, second.ID, tournaments[0].ID)
	assert.Equal(t, first.ID, tournaments[1].ID)
}

func TestCreateParticipant_UniqueEmailPerTournament(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Unique")
	other := createTestTournament(t, store, "Other")
	createTestParticipants(t, store, tr.ID, "ola@nav.no")

	dup := tournament.Participant{TournamentID: tr.ID, Name: "Ola", Email: "OLA@nav.no"}
	err := store.CreateParticipant(ctx, &dup)
	assert.ErrorIs(t, err, tournament.ErrDuplicateEmail)

	elsewhere := tournament.Participant{TournamentID: other.ID, Name: "Ola", Email: "ola@nav.no"}
	assert.NoError(t, store.CreateParticipant(ctx, &elsewhere))
}

func TestUpdateParticipant(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Update")
	ps := createTestParticipants(t, store, tr.ID, "kari@nav.no", "ola@nav.no")

	p := ps[0]
	p.Name = "Kari Nordmann"
	p.SlackHandle = utils.Ptr("kari.n")
	require.NoError(t, store.UpdateParticipant(ctx, &p))

	fetched, err := store.GetParticipant(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kari Nordmann", fetched.Name)
	assert.Equal(t, "kari.n", *fetched.SlackHandle)

	p.Email = "ola@nav.no"
	assert.ErrorIs(t, store.UpdateParticipant(ctx, &p), tournament.ErrDuplicateEmail)
}

func TestDeleteParticipant_RemovesTheirMatches(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Remove")
	ps := createTestParticipants(t, store, tr.ID, "a@nav.no", "b@nav.no", "c@nav.no", "d@nav.no")
	require.NoError(t, store.CreateMatches(ctx, []tournament.Match{
		{TournamentID: tr.ID, Round: 1, Player1ID: ps[0].ID, Player2ID: ps[1].ID},
		{TournamentID: tr.ID, Round: 1, Player1ID: ps[2].ID, Player2ID: ps[3].ID},
	}))

	require.NoError(t, store.DeleteParticipant(ctx, ps[0].ID))

	matches, err := store.ListMatches(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, ps[2].ID, matches[0].Player1ID)

	_, err = store.GetParticipant(ctx, ps[0].ID)
	assert.ErrorIs(t, err, tournament.ErrParticipantNotFound)
}

func TestCreateMatches(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Matches")
	ps := createTestParticipants(t, store, tr.ID, "a@nav.no", "b@nav.no", "c@nav.no", "d@nav.no")

	matches := []tournament.Match{
		{TournamentID: tr.ID, Round: 2, Player1ID: ps[0].ID, Player2ID: ps[2].ID},
		{TournamentID: tr.ID, Round: 1, Player1ID: ps[0].ID, Player2ID: ps[1].ID},
		{TournamentID: tr.ID, Round: 1, Player1ID: ps[2].ID, Player2ID: ps[3].ID},
	}
	require.NoError(t, store.CreateMatches(ctx, matches))
	require.NoError(t, store.CreateMatches(ctx, nil))

	fetched, err := store.ListMatches(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, fetched, 3)
	assert.Equal(t, 1, fetched[0].Round)
	assert.Equal(t, 1, fetched[1].Round)
	assert.Equal(t, 2, fetched[2].Round)
	for _, m := range fetched {
		assert.Nil(t, m.WinnerID)
		assert.Nil(t, m.Player1Score)
		assert.Nil(t, m.Player2Score)
		assert.Nil(t, m.PlayedAt)
	}

	round1, err := store.ListMatchesByRound(ctx, tr.ID, 1)
	require.NoError(t, err)
	assert.Len(t, round1, 2)
}

func TestCreateMatches_RejectsWinnerOutsideMatch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Checks")
	ps := createTestParticipants(t, store, tr.ID, "a@nav.no", "b@nav.no", "c@nav.no")

	err := store.CreateMatches(ctx, []tournament.Match{
		{TournamentID: tr.ID, Round: 1, Player1ID: ps[0].ID, Player2ID: ps[1].ID, WinnerID: utils.Ptr(ps[2].ID)},
	})
	assert.Error(t, err)
}

func TestUpdateMatch(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Results")
	ps := createTestParticipants(t, store, tr.ID, "a@nav.no", "b@nav.no")
	require.NoError(t, store.CreateMatches(ctx, []tournament.Match{
		{TournamentID: tr.ID, Round: 1, Player1ID: ps[0].ID, Player2ID: ps[1].ID},
	}))

	matches, err := store.ListMatches(ctx, tr.ID)
	require.NoError(t, err)
	m := matches[0]

	playedAt := time.Now().UTC().Truncate(time.Second)
	m.Player1Score = utils.Ptr(3)
	m.Player2Score = utils.Ptr(1)
	m.WinnerID = utils.Ptr(ps[0].ID)
	m.PlayedAt = &playedAt
	m.ReportedBy = utils.Ptr("admin@nav.no")
	require.NoError(t, store.UpdateMatch(ctx, &m))

	fetched, err := store.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, *fetched.Player1Score)
	assert.Equal(t, 1, *fetched.Player2Score)
	assert.Equal(t, ps[0].ID, *fetched.WinnerID)
	assert.WithinDuration(t, playedAt, *fetched.PlayedAt, time.Second)
	assert.Equal(t, "admin@nav.no", *fetched.ReportedBy)

	_, err = store.GetMatch(ctx, 12345)
	assert.ErrorIs(t, err, tournament.ErrMatchNotFound)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Atomic")
	ps := createTestParticipants(t, store, tr.ID, "a@nav.no", "b@nav.no")
	require.NoError(t, store.CreateMatches(ctx, []tournament.Match{
		{TournamentID: tr.ID, Round: 1, Player1ID: ps[0].ID, Player2ID: ps[1].ID},
	}))

	boom := errors.New("boom")
	err := store.InTx(ctx, func(repo tournament.Repository) error {
		if err := repo.DeleteMatchesByTournament(ctx, tr.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	matches, err := store.ListMatches(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 1, "delete must be rolled back")
}

func TestPingAndReset(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	tr := createTestTournament(t, store, "Reset")
	createTestParticipants(t, store, tr.ID, "a@nav.no")

	require.NoError(t, store.Reset(ctx))

	tournaments, err := store.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Empty(t, tournaments)
}

func TestCreateMatches_LargeScheduleIsBatched(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	ctx := context.Background()

	tr := createTestTournament(t, store, "Stor")
	players := createTestParticipants(t, store, tr.ID, "a@nav.no", "b@nav.no")

	// More rows than one statement can bind at 9 variables each.
	const n = 4000
	matches := make([]tournament.Match, n)
	for i := range matches {
		matches[i] = tournament.Match{TournamentID: tr.ID, Round: i + 1, Player1ID: players[0].ID, Player2ID: players[1].ID}
	}

	err := store.InTx(ctx, func(repo tournament.Repository) error {
		return repo.CreateMatches(ctx, matches)
	})
	require.NoError(t, err)

	stored, err := store.ListMatches(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, stored, n)
	assert.Equal(t, n, stored[n-1].Round)
}

func TestCreateParticipant_NonASCIIEmailsDiffer(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := NewTournamentStore(db)
	tr := createTestTournament(t, store, "Unicode")

	// NOCASE folds ASCII only.
	createTestParticipants(t, store, tr.ID, "åse@nav.no", "ÅSE@nav.no")

	participants, err := store.ListParticipants(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Len(t, participants, 2)
}

func TestReadTx_DoesNotWaitForWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tournament.db")

	writer, err := database.InitDB(path)
	require.NoError(t, err)
	defer writer.Close()
	require.NoError(t, database.RunMigrations(writer.DB))

	reader, err := database.InitReadDB(path)
	require.NoError(t, err)
	defer reader.Close()

	store := NewTournamentStore(writer).WithReader(reader)
	ctx := context.Background()
	createTestTournament(t, store, "Committed")

	err = store.InTx(ctx, func(repo tournament.Repository) error {
		pending := &tournament.Tournament{
			Name:               "Pending",
			Format:             tournament.RoundRobin,
			Rounds:             1,
			RoundDurationWeeks: 2,
			Status:             tournament.StatusRegistration,
		}
		if err := repo.CreateTournament(ctx, pending); err != nil {
			return err
		}

		start := time.Now()
		err := store.ReadTx(ctx, func(r tournament.Repository) error {
			list, err := r.ListTournaments(ctx)
			if err != nil {
				return err
			}
			assert.Len(t, list, 1, "uncommitted rows are not visible")
			return nil
		})
		assert.Less(t, time.Since(start), time.Second, "reader waited for the write lock")
		return err
	})
	require.NoError(t, err)

	list, err := store.ListTournaments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

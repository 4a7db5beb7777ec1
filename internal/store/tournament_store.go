package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// TournamentStore implements tournament.Store on SQLite. Inside InTx and
// ReadTx the store is rebound to the transaction so every call shares it.
type TournamentStore struct {
	db *sqlx.DB
	// reader serves ReadTx. It defaults to db.
	reader *sqlx.DB
	q      sqlx.ExtContext
}

var _ tournament.Store = (*TournamentStore)(nil)

const (
	listTournamentsQuery  = "SELECT * FROM tournaments ORDER BY created_at DESC, id DESC"
	getTournamentQuery    = "SELECT * FROM tournaments WHERE id = ?"
	createTournamentQuery = `
		INSERT INTO tournaments (name, description, format, rounds, round_duration_weeks, registration_deadline, start_date, end_date, status)
		VALUES (:name, :description, :format, :rounds, :round_duration_weeks, :registration_deadline, :start_date, :end_date, :status)
	`
	updateTournamentQuery = `
		UPDATE tournaments SET
		name = :name,
		description = :description,
		rounds = :rounds,
		round_duration_weeks = :round_duration_weeks,
		registration_deadline = :registration_deadline,
		start_date = :start_date,
		end_date = :end_date,
		status = :status
		WHERE id = :id
	`

	listParticipantsQuery  = "SELECT * FROM participants WHERE tournament_id = ? ORDER BY registered_at ASC, id ASC"
	getParticipantQuery    = "SELECT * FROM participants WHERE id = ?"
	createParticipantQuery = `
		INSERT INTO participants (tournament_id, name, email, nav_ident, slack_handle)
		VALUES (:tournament_id, :name, :email, :nav_ident, :slack_handle)
	`
	updateParticipantQuery = `
		UPDATE participants SET
		name = :name,
		email = :email,
		slack_handle = :slack_handle
		WHERE id = :id
	`

	listMatchesQuery        = "SELECT * FROM matches WHERE tournament_id = ? ORDER BY round ASC, id ASC"
	listMatchesByRoundQuery = "SELECT * FROM matches WHERE tournament_id = ? AND round = ? ORDER BY id ASC"
	getMatchQuery           = "SELECT * FROM matches WHERE id = ?"
	createMatchesQuery      = `
		INSERT INTO matches (tournament_id, round, player1_id, player2_id, player1_score, player2_score, winner_id, played_at, reported_by)
		VALUES (:tournament_id, :round, :player1_id, :player2_id, :player1_score, :player2_score, :winner_id, :played_at, :reported_by)
	`
	updateMatchQuery = `
		UPDATE matches SET
		player1_score = :player1_score,
		player2_score = :player2_score,
		winner_id = :winner_id,
		played_at = :played_at,
		reported_by = :reported_by
		WHERE id = :id
	`
)

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db, reader: db, q: db}
}

// WithReader returns a copy of the store whose ReadTx runs on reader, a pool
// opened without the immediate write lock (see db.InitReadDB).
func (s *TournamentStore) WithReader(reader *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: s.db, reader: reader, q: s.q}
}

func (s *TournamentStore) InTx(ctx context.Context, fn func(repo tournament.Repository) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&TournamentStore{db: s.db, reader: s.reader, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// ReadTx runs fn in a deferred transaction on the reader pool: a consistent
// snapshot that never waits for the writer.
func (s *TournamentStore) ReadTx(ctx context.Context, fn func(repo tournament.Repository) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.reader.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&TournamentStore{db: s.db, reader: s.reader, q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *TournamentStore) Ping(ctx context.Context) error {
	var one int
	return sqlx.GetContext(ctx, s.q, &one, "SELECT 1")
}

// Reset wipes all tournament data. Development only.
func (s *TournamentStore) Reset(ctx context.Context) error {
	return s.InTx(ctx, func(repo tournament.Repository) error {
		tx := repo.(*TournamentStore)
		for _, table := range []string{"matches", "participants", "tournaments"} {
			if _, err := tx.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *TournamentStore) ListTournaments(ctx context.Context) ([]tournament.Tournament, error) {
	tournaments := []tournament.Tournament{}
	err := sqlx.SelectContext(ctx, s.q, &tournaments, listTournamentsQuery)
	return tournaments, err
}

func (s *TournamentStore) GetTournament(ctx context.Context, id int64) (*tournament.Tournament, error) {
	var t tournament.Tournament
	err := sqlx.GetContext(ctx, s.q, &t, getTournamentQuery, id)
	if err != nil {
		return nil, notFound(err, tournament.ErrTournamentNotFound)
	}
	return &t, nil
}

func (s *TournamentStore) CreateTournament(ctx context.Context, t *tournament.Tournament) error {
	res, err := sqlx.NamedExecContext(ctx, s.q, createTournamentQuery, t)
	if err != nil {
		return err
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (s *TournamentStore) UpdateTournament(ctx context.Context, t *tournament.Tournament) error {
	res, err := sqlx.NamedExecContext(ctx, s.q, updateTournamentQuery, t)
	if err != nil {
		return err
	}
	return expectAffected(res, tournament.ErrTournamentNotFound)
}

// DeleteTournament relies on ON DELETE CASCADE for participants and matches.
func (s *TournamentStore) DeleteTournament(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM tournaments WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(res, tournament.ErrTournamentNotFound)
}

func (s *TournamentStore) ListParticipants(ctx context.Context, tournamentID int64) ([]tournament.Participant, error) {
	participants := []tournament.Participant{}
	err := sqlx.SelectContext(ctx, s.q, &participants, listParticipantsQuery, tournamentID)
	return participants, err
}

func (s *TournamentStore) GetParticipant(ctx context.Context, id int64) (*tournament.Participant, error) {
	var p tournament.Participant
	err := sqlx.GetContext(ctx, s.q, &p, getParticipantQuery, id)
	if err != nil {
		return nil, notFound(err, tournament.ErrParticipantNotFound)
	}
	return &p, nil
}

func (s *TournamentStore) CreateParticipant(ctx context.Context, p *tournament.Participant) error {
	res, err := sqlx.NamedExecContext(ctx, s.q, createParticipantQuery, p)
	if err != nil {
		return uniqueViolation(err, tournament.ErrDuplicateEmail)
	}
	p.ID, err = res.LastInsertId()
	return err
}

func (s *TournamentStore) UpdateParticipant(ctx context.Context, p *tournament.Participant) error {
	res, err := sqlx.NamedExecContext(ctx, s.q, updateParticipantQuery, p)
	if err != nil {
		return uniqueViolation(err, tournament.ErrDuplicateEmail)
	}
	return expectAffected(res, tournament.ErrParticipantNotFound)
}

// DeleteParticipant also removes the participant's matches through the
// foreign key cascade.
func (s *TournamentStore) DeleteParticipant(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM participants WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectAffected(res, tournament.ErrParticipantNotFound)
}

func (s *TournamentStore) ListMatches(ctx context.Context, tournamentID int64) ([]tournament.Match, error) {
	matches := []tournament.Match{}
	err := sqlx.SelectContext(ctx, s.q, &matches, listMatchesQuery, tournamentID)
	return matches, err
}

func (s *TournamentStore) ListMatchesByRound(ctx context.Context, tournamentID int64, round int) ([]tournament.Match, error) {
	matches := []tournament.Match{}
	err := sqlx.SelectContext(ctx, s.q, &matches, listMatchesByRoundQuery, tournamentID, round)
	return matches, err
}

func (s *TournamentStore) GetMatch(ctx context.Context, id int64) (*tournament.Match, error) {
	var m tournament.Match
	err := sqlx.GetContext(ctx, s.q, &m, getMatchQuery, id)
	if err != nil {
		return nil, notFound(err, tournament.ErrMatchNotFound)
	}
	return &m, nil
}

// matchInsertBatch keeps a multi-row insert (9 variables per row) under
// SQLite's host parameter limit, including the 999 of older builds.
const matchInsertBatch = 100

// CreateMatches inserts matches in batches. Callers wanting all-or-nothing
// run it inside InTx.
func (s *TournamentStore) CreateMatches(ctx context.Context, matches []tournament.Match) error {
	for batch := range slices.Chunk(matches, matchInsertBatch) {
		if _, err := sqlx.NamedExecContext(ctx, s.q, createMatchesQuery, batch); err != nil {
			return err
		}
	}
	return nil
}

func (s *TournamentStore) UpdateMatch(ctx context.Context, m *tournament.Match) error {
	res, err := sqlx.NamedExecContext(ctx, s.q, updateMatchQuery, m)
	if err != nil {
		return err
	}
	return expectAffected(res, tournament.ErrMatchNotFound)
}

func (s *TournamentStore) DeleteMatchesByTournament(ctx context.Context, tournamentID int64) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ?", tournamentID)
	return err
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return err
}

func expectAffected(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

func uniqueViolation(err error, sentinel error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}

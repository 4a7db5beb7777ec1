package tournament

import "context"

// Repository is the persistence capability the services depend on.
type Repository interface {
	ListTournaments(ctx context.Context) ([]Tournament, error)
	GetTournament(ctx context.Context, id int64) (*Tournament, error)
	CreateTournament(ctx context.Context, t *Tournament) error
	UpdateTournament(ctx context.Context, t *Tournament) error
	DeleteTournament(ctx context.Context, id int64) error

	ListParticipants(ctx context.Context, tournamentID int64) ([]Participant, error)
	GetParticipant(ctx context.Context, id int64) (*Participant, error)
	CreateParticipant(ctx context.Context, p *Participant) error
	UpdateParticipant(ctx context.Context, p *Participant) error
	DeleteParticipant(ctx context.Context, id int64) error

	ListMatches(ctx context.Context, tournamentID int64) ([]Match, error)
	ListMatchesByRound(ctx context.Context, tournamentID int64, round int) ([]Match, error)
	GetMatch(ctx context.Context, id int64) (*Match, error)
	CreateMatches(ctx context.Context, matches []Match) error
	UpdateMatch(ctx context.Context, m *Match) error
	DeleteMatchesByTournament(ctx context.Context, tournamentID int64) error
}

// Store adds transactions on top of Repository. Everything fn does through
// the repository it is given commits or rolls back as one unit. ReadTx gives
// a read-only snapshot and must not be used for writes.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(repo Repository) error) error
	ReadTx(ctx context.Context, fn func(repo Repository) error) error
	Ping(ctx context.Context) error
	Reset(ctx context.Context) error
}

package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/service"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/AdamBeresnev/round-robin-app/internal/utils"
	"github.com/brianvoe/gofakeit/v7"
)

// Plan describes one tournament to generate.
type Plan struct {
	Name         string
	Description  string
	Participants int
	Status       tournament.Status
	// Rounds defaults to max(5, ceil(participants/2)).
	Rounds int
}

func DefaultPlans() []Plan {
	return []Plan{
		{Name: "Vårens Biljardturnering", Description: "Tradisjonell vårturnering med mange deltakere. Alle er velkomne!", Participants: 24, Status: tournament.StatusRegistration},
		{Name: "Sommer Cup Quick Fire", Description: "Kort og intens turnering før ferien starter.", Participants: 8, Status: tournament.StatusActive},
		{Name: "Høstmesterskap", Description: "Den store årets turnering med premier til topp 3!", Participants: 16, Status: tournament.StatusActive},
		{Name: "Juleturnering", Description: "Avsluttet juleturnering med gode minner.", Participants: 12, Status: tournament.StatusCompleted},
		{Name: "Mini Turnering", Description: "Test med få deltakere.", Participants: 4, Status: tournament.StatusActive, Rounds: 3},
		{Name: "Mega Turnering", Description: "Stort arrangement med mange runder.", Participants: 32, Status: tournament.StatusRegistration},
	}
}

// Seeder fills the database with fake tournaments through the regular
// services, so seeded data obeys the same rules as real data.
type Seeder struct {
	faker        *gofakeit.Faker
	store        tournament.Store
	tournaments  *service.TournamentService
	participants *service.ParticipantService
	matches      *service.MatchService
	// ResultRate is the share of scheduled matches that get a result.
	ResultRate float64
}

func New(store tournament.Store, seed uint64) *Seeder {
	return &Seeder{
		faker:        gofakeit.New(seed),
		store:        store,
		tournaments:  service.NewTournamentService(store, nil),
		participants: service.NewParticipantService(store, nil),
		matches:      service.NewMatchService(store, nil),
		ResultRate:   0.7,
	}
}

// Clean removes every tournament, participant and match.
func (s *Seeder) Clean(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to clean database: %w", err)
	}
	slog.Info("database cleaned")
	return nil
}

func (s *Seeder) Run(ctx context.Context, plans []Plan) ([]tournament.Tournament, error) {
	created := make([]tournament.Tournament, 0, len(plans))
	for _, plan := range plans {
		t, err := s.runPlan(ctx, plan)
		if err != nil {
			return created, fmt.Errorf("failed to seed %q: %w", plan.Name, err)
		}
		created = append(created, *t)
	}
	return created, nil
}

func (s *Seeder) runPlan(ctx context.Context, plan Plan) (*tournament.Tournament, error) {
	rounds := plan.Rounds
	if rounds == 0 {
		rounds = max(5, (plan.Participants+1)/2)
	}
	deadline := time.Now().UTC().AddDate(0, 0, 7).Truncate(time.Second)
	start := deadline.AddDate(0, 0, 1)

	t, err := s.tournaments.CreateTournament(ctx, service.TournamentInput{
		Name:                 plan.Name,
		Description:          plan.Description,
		Rounds:               rounds,
		RegistrationDeadline: &deadline,
		StartDate:            &start,
	})
	if err != nil {
		return nil, err
	}

	used := make(map[string]bool, plan.Participants)
	for range plan.Participants {
		if _, err := s.participants.Register(ctx, s.person(t.ID, used)); err != nil {
			return nil, err
		}
	}
	slog.Info("seeded tournament", "tournament_id", t.ID, "name", t.Name, "participants", plan.Participants)

	if plan.Status == tournament.StatusRegistration {
		return t, nil
	}

	if t, err = s.setStatus(ctx, t.ID, tournament.StatusActive); err != nil {
		return nil, err
	}
	if err := s.recordResults(ctx, t.ID); err != nil {
		return nil, err
	}
	if plan.Status == tournament.StatusCompleted {
		return s.setStatus(ctx, t.ID, tournament.StatusCompleted)
	}
	return t, nil
}

func (s *Seeder) setStatus(ctx context.Context, id int64, status tournament.Status) (*tournament.Tournament, error) {
	return s.tournaments.UpdateTournament(ctx, id, tournament.TournamentPatch{Status: &status})
}

func (s *Seeder) person(tournamentID int64, used map[string]bool) service.RegistrationInput {
	var first, last, email string
	for {
		first, last = s.faker.FirstName(), s.faker.LastName()
		email = strings.ToLower(first + "." + last + "@nav.no")
		if !used[email] {
			break
		}
	}
	used[email] = true

	return service.RegistrationInput{
		TournamentID: tournamentID,
		Name:         first + " " + last,
		Email:        email,
		SlackHandle:  strings.ToLower(first + "." + last),
		NavIdent:     strings.ToUpper(first[:1]) + s.faker.Numerify("######"),
	}
}

func (s *Seeder) recordResults(ctx context.Context, tournamentID int64) error {
	matches, err := s.store.ListMatches(ctx, tournamentID)
	if err != nil {
		return err
	}

	recorded := 0
	for _, m := range matches {
		if s.faker.Float64Range(0, 1) >= s.ResultRate {
			continue
		}
		p1, p2 := s.score()
		playedAt := time.Now().UTC().AddDate(0, 0, -s.faker.Number(0, 29))
		_, err := s.matches.RecordResult(ctx, m.ID, tournament.MatchResult{
			Player1Score: &p1,
			Player2Score: &p2,
			PlayedAt:     &playedAt,
			ReportedBy:   utils.Ptr("seed"),
		})
		if err != nil {
			return err
		}
		recorded++
	}
	slog.Info("seeded results", "tournament_id", tournamentID, "matches", len(matches), "results", recorded)
	return nil
}

// score draws a best-of-five style result. Draws are not allowed.
func (s *Seeder) score() (int, int) {
	winner, loser := 3, s.faker.Number(0, 2)
	if s.faker.Bool() {
		return winner, loser
	}
	return loser, winner
}

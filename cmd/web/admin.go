package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/httputil"
	"github.com/AdamBeresnev/round-robin-app/internal/middleware"
	"github.com/AdamBeresnev/round-robin-app/internal/service"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/AdamBeresnev/round-robin-app/views"
)

const (
	formDateLayout     = "2006-01-02"
	formDateTimeLayout = "2006-01-02T15:04"
)

func parseForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: %v", httputil.ErrInvalidInput, err)
	}
	return nil
}

// formInt reads an optional integer field. Empty means zero.
func formInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.PostForm.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", httputil.ErrInvalidInput, key)
	}
	return n, nil
}

func formScore(r *http.Request, key string) (*int, error) {
	if strings.TrimSpace(r.PostForm.Get(key)) == "" {
		return nil, nil
	}
	n, err := formInt(r, key)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// formTime reads an optional date or datetime-local field in server local time.
func formTime(r *http.Request, key, layout string) (*time.Time, error) {
	v := strings.TrimSpace(r.PostForm.Get(key))
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(layout, v, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid date", httputil.ErrInvalidInput, key)
	}
	return &t, nil
}

func redirectToAdminTournament(w http.ResponseWriter, r *http.Request, id int64) {
	http.Redirect(w, r, views.AdminTournamentPath(id), http.StatusSeeOther)
}

func (app *application) adminPage(w http.ResponseWriter, r *http.Request) {
	tournaments, err := app.tournaments.ListTournaments(r.Context())
	if err != nil {
		app.renderError(w, r, err)
		return
	}
	app.renderPage(r, func() error {
		return views.Render(w, r, views.AdminPage(tournaments))
	})
}

func (app *application) adminTournamentPage(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		app.renderError(w, r, tournament.ErrTournamentNotFound)
		return
	}
	data, err := app.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		app.renderError(w, r, err)
		return
	}
	app.renderPage(r, func() error {
		return views.Render(w, r, views.AdminTournamentPage(data.Tournament, data.Participants, data.Matches))
	})
}

func (app *application) createTournamentForm(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		app.renderError(w, r, err)
		return
	}

	input := service.TournamentInput{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
	}
	var err error
	if input.Rounds, err = formInt(r, "rounds"); err != nil {
		app.renderError(w, r, err)
		return
	}
	if input.RoundDurationWeeks, err = formInt(r, "roundDurationWeeks"); err != nil {
		app.renderError(w, r, err)
		return
	}
	if input.RegistrationDeadline, err = formTime(r, "registrationDeadline", formDateTimeLayout); err != nil {
		app.renderError(w, r, err)
		return
	}
	if input.StartDate, err = formTime(r, "startDate", formDateLayout); err != nil {
		app.renderError(w, r, err)
		return
	}
	if input.EndDate, err = formTime(r, "endDate", formDateLayout); err != nil {
		app.renderError(w, r, err)
		return
	}

	t, err := app.tournaments.CreateTournament(r.Context(), input)
	if err != nil {
		app.renderError(w, r, err)
		return
	}
	redirectToAdminTournament(w, r, t.ID)
}

func (app *application) tournamentStatusForm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		app.renderError(w, r, tournament.ErrTournamentNotFound)
		return
	}
	if err := parseForm(r); err != nil {
		app.renderError(w, r, err)
		return
	}

	status := tournament.Status(r.PostForm.Get("status"))
	if _, err := app.tournaments.UpdateTournament(r.Context(), id, tournament.TournamentPatch{Status: &status}); err != nil {
		app.renderError(w, r, err)
		return
	}
	redirectToAdminTournament(w, r, id)
}

func (app *application) regenerateScheduleForm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		app.renderError(w, r, tournament.ErrTournamentNotFound)
		return
	}
	if _, err := app.tournaments.RegenerateSchedule(r.Context(), id); err != nil {
		app.renderError(w, r, err)
		return
	}
	redirectToAdminTournament(w, r, id)
}

func (app *application) deleteTournamentForm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		app.renderError(w, r, tournament.ErrTournamentNotFound)
		return
	}
	if err := app.tournaments.DeleteTournament(r.Context(), id); err != nil {
		app.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (app *application) removeParticipantForm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		app.renderError(w, r, tournament.ErrParticipantNotFound)
		return
	}
	p, err := app.participants.GetParticipant(r.Context(), id)
	if err != nil {
		app.renderError(w, r, err)
		return
	}
	if err := app.participants.RemoveParticipant(r.Context(), id); err != nil {
		app.renderError(w, r, err)
		return
	}
	redirectToAdminTournament(w, r, p.TournamentID)
}

func (app *application) recordResultForm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		app.renderError(w, r, tournament.ErrMatchNotFound)
		return
	}
	if err := parseForm(r); err != nil {
		app.renderError(w, r, err)
		return
	}

	var result tournament.MatchResult
	if result.Player1Score, err = formScore(r, "player1Score"); err != nil {
		app.renderError(w, r, err)
		return
	}
	if result.Player2Score, err = formScore(r, "player2Score"); err != nil {
		app.renderError(w, r, err)
		return
	}
	reporter := middleware.GetAuthenticatedUser(r.Context()).Email
	result.ReportedBy = &reporter

	m, err := app.matches.RecordResult(r.Context(), id, result)
	if err != nil {
		app.renderError(w, r, err)
		return
	}
	redirectToAdminTournament(w, r, m.TournamentID)
}

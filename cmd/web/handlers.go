package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/round-robin-app/internal/httputil"
	"github.com/AdamBeresnev/round-robin-app/internal/middleware"
	"github.com/AdamBeresnev/round-robin-app/internal/service"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/AdamBeresnev/round-robin-app/views"
	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth/gothic"
)

type successResponse struct {
	Success bool `json:"success"`
}

type registrationResponse struct {
	Success       bool   `json:"success"`
	ParticipantID int64  `json:"participantId"`
	Message       string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	if err := httputil.WriteJSON(w, status, data); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func urlID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

func (app *application) isReady(w http.ResponseWriter, r *http.Request) {
	if err := app.store.Ping(r.Context()); err != nil {
		slog.Error("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// API

func (app *application) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := app.tournaments.ListTournaments(r.Context())
	if err != nil {
		httputil.InternalServerError(w, "Failed to list tournaments", err)
		return
	}
	writeJSON(w, http.StatusOK, tournaments)
}

func (app *application) getTournament(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	data, err := app.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.ServiceError(w, "Failed to get tournament", err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (app *application) getStandings(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	standings, err := app.tournaments.Standings(r.Context(), id)
	if err != nil {
		httputil.ServiceError(w, "Failed to compute standings", err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (app *application) getRound(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	round, err := strconv.Atoi(chi.URLParam(r, "round"))
	if err != nil || round < 1 {
		httputil.BadRequest(w, "invalid round", err)
		return
	}
	matches, err := app.tournaments.ListMatchesByRound(r.Context(), id, round)
	if err != nil {
		httputil.ServiceError(w, "Failed to list matches", err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (app *application) register(w http.ResponseWriter, r *http.Request) {
	var input service.RegistrationInput
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	if user := middleware.GetAuthenticatedUser(r.Context()); user != nil {
		input.NavIdent = user.NavIdent
	}

	p, err := app.participants.Register(r.Context(), input)
	if err != nil {
		httputil.ServiceError(w, "Failed to register participant", err)
		return
	}
	writeJSON(w, http.StatusCreated, registrationResponse{
		Success:       true,
		ParticipantID: p.ID,
		Message:       "Du er nå påmeldt turneringen!",
	})
}

func (app *application) debugUser(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetAuthenticatedUser(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"user":          user,
		"adminGroupId":  app.cfg.Auth.AdminGroupID,
		"hasAdminGroup": user.InGroup(app.cfg.Auth.AdminGroupID),
	})
}

func (app *application) devReset(w http.ResponseWriter, r *http.Request) {
	if !app.cfg.Server.DevMode {
		httputil.NotFound(w, "Not found", nil)
		return
	}
	if err := app.store.Reset(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to reset database", err)
		return
	}
	slog.Warn("database reset", "by", middleware.GetAuthenticatedUser(r.Context()).Email)
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (app *application) createTournament(w http.ResponseWriter, r *http.Request) {
	var input service.TournamentInput
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	t, err := app.tournaments.CreateTournament(r.Context(), input)
	if err != nil {
		httputil.ServiceError(w, "Failed to create tournament", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (app *application) updateTournament(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	var patch tournament.TournamentPatch
	if err := httputil.ReadJSON(w, r, &patch); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	t, err := app.tournaments.UpdateTournament(r.Context(), id, patch)
	if err != nil {
		httputil.ServiceError(w, "Failed to update tournament", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (app *application) deleteTournament(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	if err := app.tournaments.DeleteTournament(r.Context(), id); err != nil {
		httputil.ServiceError(w, "Failed to delete tournament", err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (app *application) regenerateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	matches, err := app.tournaments.RegenerateSchedule(r.Context(), id)
	if err != nil {
		httputil.ServiceError(w, "Failed to regenerate schedule", err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

func (app *application) updateParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	var patch tournament.ParticipantPatch
	if err := httputil.ReadJSON(w, r, &patch); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	p, err := app.participants.UpdateParticipant(r.Context(), id, patch)
	if err != nil {
		httputil.ServiceError(w, "Failed to update participant", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (app *application) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	if err := app.participants.RemoveParticipant(r.Context(), id); err != nil {
		httputil.ServiceError(w, "Failed to remove participant", err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (app *application) recordResult(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		httputil.BadRequest(w, err.Error(), nil)
		return
	}
	var result tournament.MatchResult
	if err := httputil.ReadJSON(w, r, &result); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	reporter := middleware.GetAuthenticatedUser(r.Context()).Email
	result.ReportedBy = &reporter

	m, err := app.matches.RecordResult(r.Context(), id, result)
	if err != nil {
		httputil.ServiceError(w, "Failed to record result", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HTML

func (app *application) renderPage(r *http.Request, render func() error) {
	if err := render(); err != nil {
		slog.Error("failed to render page", "path", r.URL.Path, "error", err)
	}
}

func (app *application) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := httputil.StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		msg = "Noe gikk galt. Prøv igjen senere."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	app.renderPage(r, func() error {
		return views.ErrorPage(status, msg).Render(r.Context(), w)
	})
}

func (app *application) indexPage(w http.ResponseWriter, r *http.Request) {
	tournaments, err := app.tournaments.ListTournaments(r.Context())
	if err != nil {
		app.renderError(w, r, err)
		return
	}
	app.renderPage(r, func() error {
		return views.Render(w, r, views.Index(tournaments))
	})
}

func (app *application) tournamentPage(w http.ResponseWriter, r *http.Request) {
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
		return views.Render(w, r, views.TournamentPage(data.Tournament, data.Participants, data.Matches, data.Standings))
	})
}

func (app *application) registerForm(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		app.renderError(w, r, tournament.ErrTournamentNotFound)
		return
	}
	if err := parseForm(r); err != nil {
		app.renderError(w, r, err)
		return
	}

	input := service.RegistrationInput{
		TournamentID: id,
		Name:         r.PostForm.Get("name"),
		Email:        r.PostForm.Get("email"),
		SlackHandle:  r.PostForm.Get("slackHandle"),
	}
	if user := middleware.GetAuthenticatedUser(r.Context()); user != nil {
		input.NavIdent = user.NavIdent
	}

	if _, err := app.participants.Register(r.Context(), input); err != nil {
		app.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, "/tournaments/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

// Browser login

func (app *application) loginPage(w http.ResponseWriter, r *http.Request) {
	app.renderPage(r, func() error {
		return views.Render(w, r, views.LoginPage(app.cfg.Auth.Azure.Enabled()))
	})
}

func (app *application) beginAuth(w http.ResponseWriter, r *http.Request) {
	if !app.cfg.Auth.Azure.Enabled() {
		http.NotFound(w, r)
		return
	}
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
	gothic.BeginAuthHandler(w, r)
}

func (app *application) authCallback(w http.ResponseWriter, r *http.Request) {
	if !app.cfg.Auth.Azure.Enabled() {
		http.NotFound(w, r)
		return
	}
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		httputil.BadRequest(w, "Authentication failure", err)
		return
	}
	if err := app.auth.Login(r.Context(), gothUser); err != nil {
		httputil.InternalServerError(w, "Failed to store login", err)
		return
	}

	slog.Info("user logged in", "email", gothUser.Email)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.auth.Logout(r.Context()); err != nil {
		slog.Error("failed to destroy session", "error", err)
	}
	if err := gothic.Logout(w, r); err != nil {
		slog.Debug("no provider session to clear", "error", err)
	}
	if r.Header.Get("HX-Request") != "" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

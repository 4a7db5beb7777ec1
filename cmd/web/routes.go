package main

import (
	"net/http"

	"github.com/AdamBeresnev/round-robin-app/internal/config"
	"github.com/AdamBeresnev/round-robin-app/internal/metrics"
	"github.com/AdamBeresnev/round-robin-app/internal/middleware"
	"github.com/AdamBeresnev/round-robin-app/internal/service"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type application struct {
	cfg      *config.Config
	store    tournament.Store
	sessions *scs.SessionManager
	auth     *middleware.Authenticator
	metrics  *metrics.Metrics

	tournaments  *service.TournamentService
	participants *service.ParticipantService
	matches      *service.MatchService

	registerLimiter *middleware.IPRateLimiter
}

func newApplication(cfg *config.Config, st tournament.Store, sessions *scs.SessionManager, m *metrics.Metrics) *application {
	return &application{
		cfg:             cfg,
		store:           st,
		sessions:        sessions,
		auth:            middleware.NewAuthenticator(cfg.Auth, cfg.Server.DevMode, sessions),
		metrics:         m,
		tournaments:     service.NewTournamentService(st, m),
		participants:    service.NewParticipantService(st, m),
		matches:         service.NewMatchService(st, m),
		registerLimiter: middleware.NewIPRateLimiter(cfg.RateLimit.RegisterRate, cfg.RateLimit.RegisterBurst),
	}
}

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if len(app.cfg.Server.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   app.cfg.Server.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	r.Use(app.metrics.Middleware)
	r.Use(app.sessions.LoadAndSave)
	r.Use(app.auth.LoadUser)

	r.Get("/api/internal/isReady", app.isReady)
	r.Get("/api/internal/isAlive", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Browser login
	r.Get("/login", app.loginPage)
	r.Get("/auth/{provider}", app.beginAuth)
	r.Get("/auth/{provider}/callback", app.authCallback)
	r.Post("/logout", app.logout)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Get("/tournaments", app.listTournaments)
			r.Get("/tournaments/{id}", app.getTournament)
			r.Get("/tournaments/{id}/standings", app.getStandings)
			r.Get("/tournaments/{id}/rounds/{round}", app.getRound)
			r.With(app.registerLimiter.Middleware).Post("/register", app.register)
			r.Get("/debug-user", app.debugUser)
			r.Post("/dev/reset", app.devReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Post("/tournaments", app.createTournament)
			r.Put("/tournaments/{id}", app.updateTournament)
			r.Delete("/tournaments/{id}", app.deleteTournament)
			r.Post("/tournaments/{id}/schedule", app.regenerateSchedule)
			r.Put("/participants/{id}", app.updateParticipant)
			r.Delete("/participants/{id}", app.deleteParticipant)
			r.Put("/matches/{id}", app.recordResult)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Get("/", app.indexPage)
		r.Get("/tournaments/{id}", app.tournamentPage)
		r.With(app.registerLimiter.Middleware).Post("/tournaments/{id}/register", app.registerForm)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/", app.adminPage)
			r.Post("/tournaments", app.createTournamentForm)
			r.Get("/tournaments/{id}", app.adminTournamentPage)
			r.Post("/tournaments/{id}/status", app.tournamentStatusForm)
			r.Post("/tournaments/{id}/schedule", app.regenerateScheduleForm)
			r.Post("/tournaments/{id}/delete", app.deleteTournamentForm)
			r.Post("/participants/{id}/delete", app.removeParticipantForm)
			r.Post("/matches/{id}/result", app.recordResultForm)
		})
	})

	return r
}

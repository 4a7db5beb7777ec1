package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/config"
	"github.com/AdamBeresnev/round-robin-app/internal/db"
	"github.com/AdamBeresnev/round-robin-app/internal/metrics"
	"github.com/AdamBeresnev/round-robin-app/internal/middleware"
	"github.com/AdamBeresnev/round-robin-app/internal/service"
	"github.com/AdamBeresnev/round-robin-app/internal/store"
	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "routes-test-secret"

func setupTestRouter(t *testing.T, devMode bool) http.Handler {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database.DB))

	cfg := config.Default()
	cfg.Server.DevMode = devMode
	cfg.Auth.AdminGroupID = "admin-group"
	cfg.Auth.JWTSecret = testSecret
	cfg.RateLimit.RegisterRate = 100
	cfg.RateLimit.RegisterBurst = 100

	app := newApplication(cfg, store.NewTournamentStore(database), scs.New(), metrics.New(prometheus.NewRegistry()))
	return app.routes()
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func createTournament(t *testing.T, router http.Handler, name string, rounds int) tournament.Tournament {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/tournaments", map[string]any{"name": name, "rounds": rounds})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[tournament.Tournament](t, rec)
}

func TestIsReady(t *testing.T) {
	router := setupTestRouter(t, false)

	rec := do(t, router, http.MethodGet, "/api/internal/isReady", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestTournamentFlow(t *testing.T) {
	router := setupTestRouter(t, true)

	tr := createTournament(t, router, "Sjakk", 3)
	assert.Equal(t, tournament.StatusRegistration, tr.Status)
	assert.Equal(t, tournament.RoundRobin, tr.Format)

	for i := 1; i <= 4; i++ {
		rec := do(t, router, http.MethodPost, "/api/register", map[string]any{
			"tournamentId": tr.ID,
			"name":         fmt.Sprintf("Spiller %d", i),
			"email":        fmt.Sprintf("spiller%d@nav.no", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		resp := decode[registrationResponse](t, rec)
		assert.True(t, resp.Success)
		assert.NotZero(t, resp.ParticipantID)
	}

	rec := do(t, router, http.MethodPost, "/api/register", map[string]any{
		"tournamentId": tr.ID,
		"name":         "Igjen",
		"email":        "SPILLER1@nav.no",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodPut, fmt.Sprintf("/api/tournaments/%d", tr.ID), map[string]any{"status": "active"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, tournament.StatusActive, decode[tournament.Tournament](t, rec).Status)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/tournaments/%d/rounds/1", tr.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	round := decode[[]tournament.Match](t, rec)
	require.Len(t, round, 2)

	match := round[0]
	rec = do(t, router, http.MethodPut, fmt.Sprintf("/api/matches/%d", match.ID), map[string]any{
		"player1Score": 3,
		"player2Score": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	recorded := decode[tournament.Match](t, rec)
	require.NotNil(t, recorded.WinnerID)
	assert.Equal(t, match.Player1ID, *recorded.WinnerID)
	require.NotNil(t, recorded.ReportedBy)
	assert.Equal(t, "dev@nav.no", *recorded.ReportedBy)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/tournaments/%d/standings", tr.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	standings := decode[[]tournament.Standing](t, rec)
	require.Len(t, standings, 4)
	assert.Equal(t, match.Player1ID, standings[0].Participant.ID)
	assert.Equal(t, 1, standings[0].Wins)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/tournaments/%d", tr.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decode[service.TournamentData](t, rec)
	assert.Len(t, data.Participants, 4)
	assert.Len(t, data.Matches, 6)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/api/tournaments/%d/schedule", tr.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decode[[]tournament.Match](t, rec), 6)

	rec = do(t, router, http.MethodDelete, fmt.Sprintf("/api/tournaments/%d", tr.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/tournaments/%d", tr.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIErrors(t *testing.T) {
	router := setupTestRouter(t, true)
	tr := createTournament(t, router, "Padel", 2)

	tests := []struct {
		name   string
		method string
		target string
		body   any
		status int
	}{
		{"unknown tournament", http.MethodGet, "/api/tournaments/9999", nil, http.StatusNotFound},
		{"invalid id", http.MethodGet, "/api/tournaments/abc", nil, http.StatusBadRequest},
		{"invalid round", http.MethodGet, fmt.Sprintf("/api/tournaments/%d/rounds/0", tr.ID), nil, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/tournaments", map[string]any{"rounds": 2}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/tournaments", map[string]any{"name": "X", "id": 5}, http.StatusBadRequest},
		{"activate without players", http.MethodPut, fmt.Sprintf("/api/tournaments/%d", tr.ID), map[string]any{"status": "active"}, http.StatusBadRequest},
		{"regenerate in registration", http.MethodPost, fmt.Sprintf("/api/tournaments/%d/schedule", tr.ID), nil, http.StatusBadRequest},
		{"register for unknown tournament", http.MethodPost, "/api/register", map[string]any{"tournamentId": 9999, "name": "A", "email": "a@nav.no"}, http.StatusNotFound},
		{"unknown match", http.MethodPut, "/api/matches/9999", map[string]any{"player1Score": 1, "player2Score": 0}, http.StatusNotFound},
		{"unknown participant", http.MethodDelete, "/api/participants/9999", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	router := setupTestRouter(t, true)

	rec := do(t, router, http.MethodPost, "/api/tournaments?admin=false", map[string]any{"name": "Bowling"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/tournaments?admin=false", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "reading is open to every user")
}

func TestProductionAuth(t *testing.T) {
	router := setupTestRouter(t, false)

	rec := do(t, router, http.MethodGet, "/api/tournaments", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	raw, err := middleware.IssueToken(testSecret, middleware.Claims{
		Name:              "Kari Nordmann",
		PreferredUsername: "kari@nav.no",
		NavIdent:          "K123456",
		Groups:            []string{"admin-group"},
	}, time.Hour)
	require.NoError(t, err)

	withToken := func(method, target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec = withToken(http.MethodGet, "/api/debug-user")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["hasAdminGroup"])
	assert.Equal(t, "admin-group", body["adminGroupId"])

	rec = withToken(http.MethodPost, "/api/dev/reset")
	assert.Equal(t, http.StatusNotFound, rec.Code, "reset is only mounted in dev mode")
}

func TestRegisterStoresNavIdent(t *testing.T) {
	router := setupTestRouter(t, true)
	tr := createTournament(t, router, "Bordtennis", 1)

	rec := do(t, router, http.MethodPost, "/api/register", map[string]any{
		"tournamentId": tr.ID,
		"name":         "Dev",
		"email":        "dev@nav.no",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/tournaments/%d", tr.ID), nil)
	data := decode[service.TournamentData](t, rec)
	require.Len(t, data.Participants, 1)
	require.NotNil(t, data.Participants[0].NavIdent)
	assert.Equal(t, "D123456", *data.Participants[0].NavIdent)
}

func TestDevReset(t *testing.T) {
	router := setupTestRouter(t, true)
	createTournament(t, router, "Sjakk", 2)

	rec := do(t, router, http.MethodPost, "/api/dev/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/tournaments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]tournament.Tournament](t, rec))
}

func TestHTMLPages(t *testing.T) {
	router := setupTestRouter(t, true)
	tr := createTournament(t, router, "Sjakk <lunsj>", 2)

	rec := do(t, router, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Sjakk &lt;lunsj&gt;")

	form := url.Values{"name": {"Ola"}, "email": {"ola@nav.no"}}
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/tournaments/%d/register", tr.ID), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, fmt.Sprintf("/tournaments/%d", tr.ID), rec.Header().Get("Location"))

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/tournaments/%d", tr.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ola")

	rec = do(t, router, http.MethodGet, "/tournaments/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/login", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Innlogging er ikke konfigurert")
}

func postForm(t *testing.T, router http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterFormRejectsMalformedBody(t *testing.T) {
	router := setupTestRouter(t, true)
	tr := createTournament(t, router, "Sjakk", 2)

	rec := postForm(t, router, fmt.Sprintf("/tournaments/%d/register", tr.ID), "name=%zz")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "invalid input")
}

func TestAdminPages(t *testing.T) {
	router := setupTestRouter(t, true)

	rec := do(t, router, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `action="/admin/tournaments"`)

	form := url.Values{"name": {"Sjakk"}, "rounds": {"2"}, "startDate": {"2026-11-02"}}
	rec = postForm(t, router, "/admin/tournaments", form.Encode())
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	id, err := strconv.ParseInt(strings.TrimPrefix(location, "/admin/tournaments/"), 10, 64)
	require.NoError(t, err, location)

	for _, name := range []string{"Kari", "Ola"} {
		rec = do(t, router, http.MethodPost, "/api/register", map[string]any{
			"tournamentId": id,
			"name":         name,
			"email":        strings.ToLower(name) + "@nav.no",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodGet, location, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<option value="active">`)
	assert.Contains(t, rec.Body.String(), "kari@nav.no")

	rec = postForm(t, router, location+"/status", "status=active")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, location, rec.Header().Get("Location"))

	rec = postForm(t, router, location+"/status", "status=registration")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "active cannot go back to registration")

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/tournaments/%d/rounds/1", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	round := decode[[]tournament.Match](t, rec)
	require.Len(t, round, 1)
	m := round[0]

	rec = postForm(t, router, fmt.Sprintf("/admin/matches/%d/result", m.ID), "player1Score=3&player2Score=1")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, location, rec.Header().Get("Location"))

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/api/tournaments/%d", id), nil)
	data := decode[service.TournamentData](t, rec)
	require.Len(t, data.Standings, 2)
	assert.Equal(t, m.Player1ID, data.Standings[0].Participant.ID)
	assert.Equal(t, 1, data.Standings[0].Wins)

	rec = postForm(t, router, fmt.Sprintf("/admin/matches/%d/result", m.ID), "player1Score=tre&player2Score=1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	rec = postForm(t, router, location+"/schedule", "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rec = postForm(t, router, fmt.Sprintf("/admin/participants/%d/delete", data.Participants[0].ID), "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, location, rec.Header().Get("Location"))

	rec = postForm(t, router, location+"/delete", "")
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = do(t, router, http.MethodGet, fmt.Sprintf("/tournaments/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminPagesRequireAdmin(t *testing.T) {
	router := setupTestRouter(t, true)

	rec := do(t, router, http.MethodGet, "/admin?admin=false", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postForm(t, router, "/admin/tournaments?admin=false", "name=Bowling")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/tournaments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]tournament.Tournament](t, rec))
}

package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/round-robin-app/internal/tournament"
)

// ErrInvalidInput marks malformed request bodies, forms and parameters.
var ErrInvalidInput = errors.New("invalid input")

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if err := WriteJSON(w, status, errorResponse{Error: msg}); err != nil {
		slog.Error("failed to write error response", "error", err)
	}
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, "Internal Server Error")
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	writeError(w, http.StatusBadRequest, msg)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	writeError(w, http.StatusNotFound, msg)
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	writeError(w, http.StatusConflict, msg)
}

func Unauthorized(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusUnauthorized, msg)
}

func Forbidden(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusForbidden, msg)
}

func TooManyRequests(w http.ResponseWriter) {
	writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
}

// StatusFor maps domain errors to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, tournament.ErrTournamentNotFound),
		errors.Is(err, tournament.ErrParticipantNotFound),
		errors.Is(err, tournament.ErrMatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, tournament.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, tournament.ErrRegenerationFailed):
		return http.StatusInternalServerError
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, tournament.ErrInvalidRoundCount),
		errors.Is(err, tournament.ErrNotEnoughParticipants),
		errors.Is(err, tournament.ErrInvalidStatus),
		errors.Is(err, tournament.ErrInvalidStatusTransition),
		errors.Is(err, tournament.ErrTournamentNotActive),
		errors.Is(err, tournament.ErrRegistrationClosed),
		errors.Is(err, tournament.ErrRegistrationDeadlinePassed),
		errors.Is(err, tournament.ErrNameRequired),
		errors.Is(err, tournament.ErrEmailRequired),
		errors.Is(err, tournament.ErrInvalidScore),
		errors.Is(err, tournament.ErrDrawNotAllowed),
		errors.Is(err, tournament.ErrWinnerNotInMatch),
		errors.Is(err, tournament.ErrWinnerScoreMismatch),
		errors.Is(err, tournament.ErrParticipantNotInTournament),
		errors.Is(err, tournament.ErrParticipantDoubleBooked),
		errors.Is(err, tournament.ErrUnsupportedFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ServiceError writes err with the status StatusFor picks. The text of
// unknown errors is not shown to the client.
func ServiceError(w http.ResponseWriter, msg string, err error) {
	switch StatusFor(err) {
	case http.StatusNotFound:
		NotFound(w, err.Error(), err)
	case http.StatusConflict:
		Conflict(w, tournament.ErrDuplicateEmail.Error(), err)
	case http.StatusBadRequest:
		BadRequest(w, err.Error(), err)
	default:
		InternalServerError(w, msg, err)
	}
}

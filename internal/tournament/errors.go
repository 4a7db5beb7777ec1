package tournament

import "errors"

// Precondition violations.
var (
	ErrInvalidRoundCount          = errors.New("round count must be at least 1")
	ErrNotEnoughParticipants      = errors.New("at least 2 participants are required")
	ErrInvalidStatus              = errors.New("invalid tournament status")
	ErrUnsupportedFormat          = errors.New("unsupported tournament format")
	ErrInvalidStatusTransition    = errors.New("invalid tournament status transition")
	ErrTournamentNotActive        = errors.New("tournament is not active")
	ErrRegistrationClosed         = errors.New("registration is closed for this tournament")
	ErrRegistrationDeadlinePassed = errors.New("registration deadline has passed")
	ErrNameRequired               = errors.New("name is required")
	ErrEmailRequired              = errors.New("email is required")
	ErrInvalidScore               = errors.New("scores must be non-negative and both set")
	ErrDrawNotAllowed             = errors.New("draws are not allowed")
)

// Referential violations.
var (
	ErrWinnerNotInMatch           = errors.New("winner is not part of this match")
	ErrWinnerScoreMismatch        = errors.New("winner does not match the higher score")
	ErrParticipantNotInTournament = errors.New("participant does not belong to this tournament")
	ErrParticipantDoubleBooked    = errors.New("participant appears twice in the same round")
	ErrDuplicateEmail             = errors.New("email is already registered for this tournament")
)

// Lookups.
var (
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrMatchNotFound       = errors.New("match not found")
)

// ErrRegenerationFailed wraps storage failures while replacing a schedule.
// The previous schedule is left in place and the caller may retry.
var ErrRegenerationFailed = errors.New("schedule regeneration failed")

package tournament

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/round-robin-app/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	testCases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusRegistration, StatusActive, true},
		{StatusActive, StatusCompleted, true},
		{StatusCompleted, StatusActive, true},
		{StatusRegistration, StatusCompleted, false},
		{StatusActive, StatusRegistration, false},
		{StatusCompleted, StatusRegistration, false},
		{StatusActive, StatusActive, false},
		{StatusRegistration, Status("archived"), false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			err := CheckTransition(tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	assert.ErrorIs(t, CheckTransition(StatusActive, StatusRegistration), ErrInvalidStatusTransition)
	assert.ErrorIs(t, CheckTransition(StatusActive, Status("bogus")), ErrInvalidStatus)
}

func TestTournamentValidate(t *testing.T) {
	valid := func() Tournament {
		return Tournament{Name: "Bordtennis", Format: RoundRobin, Rounds: 3, Status: StatusRegistration}
	}

	tr := valid()
	assert.NoError(t, tr.Validate())

	tr = valid()
	tr.Rounds = 0
	assert.ErrorIs(t, tr.Validate(), ErrInvalidRoundCount)

	tr = valid()
	tr.Name = "  "
	assert.ErrorIs(t, tr.Validate(), ErrNameRequired)

	tr = valid()
	tr.Format = "swiss"
	assert.Error(t, tr.Validate())

	tr = valid()
	tr.Status = "paused"
	assert.ErrorIs(t, tr.Validate(), ErrInvalidStatus)
}

func TestCheckRegistrationOpen(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	tomorrow := now.Add(24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)

	tr := Tournament{Status: StatusRegistration}
	assert.NoError(t, tr.CheckRegistrationOpen(now))

	tr.RegistrationDeadline = &tomorrow
	assert.NoError(t, tr.CheckRegistrationOpen(now))

	tr.RegistrationDeadline = &yesterday
	assert.ErrorIs(t, tr.CheckRegistrationOpen(now), ErrRegistrationDeadlinePassed)

	tr = Tournament{Status: StatusActive}
	assert.ErrorIs(t, tr.CheckRegistrationOpen(now), ErrRegistrationClosed)
}

func TestTournamentPatchApply(t *testing.T) {
	tr := Tournament{Name: "Old", Description: utils.Ptr("desc"), Rounds: 10, RoundDurationWeeks: 2, Status: StatusRegistration}

	TournamentPatch{
		Name:        utils.Ptr("  New  "),
		Description: utils.Ptr(""),
		Rounds:      utils.Ptr(4),
		Status:      utils.Ptr(StatusActive),
	}.Apply(&tr)

	assert.Equal(t, "New", tr.Name)
	assert.Nil(t, tr.Description)
	assert.Equal(t, 4, tr.Rounds)
	assert.Equal(t, 2, tr.RoundDurationWeeks)
	assert.Equal(t, StatusRegistration, tr.Status, "status is applied through CheckTransition")
}

func TestParticipantPatchApply(t *testing.T) {
	p := Participant{Name: "Kari", Email: "kari@nav.no", SlackHandle: utils.Ptr("kari")}

	ParticipantPatch{Email: utils.Ptr(" kari.n@nav.no "), SlackHandle: utils.Ptr(" ")}.Apply(&p)

	assert.Equal(t, "Kari", p.Name)
	assert.Equal(t, "kari.n@nav.no", p.Email)
	assert.Nil(t, p.SlackHandle)
	assert.NoError(t, p.Validate())

	p.Email = ""
	assert.ErrorIs(t, p.Validate(), ErrEmailRequired)
}

func TestSameEmail(t *testing.T) {
	assert.True(t, SameEmail("Ola.Nordmann@NAV.no", "ola.nordmann@nav.no "))
	assert.False(t, SameEmail("ola@nav.no", "kari@nav.no"))
	assert.False(t, SameEmail("ola@nav.no", "ola@nav.no.com"))
	assert.False(t, SameEmail("åse@nav.no", "ÅSE@nav.no"), "non-ASCII letters are not folded")
	assert.True(t, SameEmail("åSE@nav.no", "åse@NAV.no"))
}

package accounts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestAvailabilityPredicate(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		want    bool
	}{
		{"active with quota", Account{Status: StatusActive, DailyLimit: 25, ActionsToday: 3, LastResetDate: base}, true},
		{"banned", Account{Status: StatusBanned, DailyLimit: 25, LastResetDate: base}, false},
		{"cooldown running", Account{Status: StatusCooldown, DailyLimit: 25, LastResetDate: base, CooldownUntil: ptr(base.Add(time.Hour))}, false},
		{"cooldown expired", Account{Status: StatusCooldown, DailyLimit: 25, ActionsToday: 20, LastResetDate: base, CooldownUntil: ptr(base.Add(-time.Minute))}, true},
		{"quota exhausted", Account{Status: StatusActive, DailyLimit: 25, ActionsToday: 25, LastResetDate: base}, false},
		{"error is still selectable", Account{Status: StatusError, DailyLimit: 25, LastResetDate: base}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.account
			assert.Equal(t, tt.want, a.IsAvailable(base))
		})
	}
}

func TestExpiredCooldownKeepsPersistedStatus(t *testing.T) {
	a := Account{Status: StatusCooldown, DailyLimit: 25, ActionsToday: 20, LastResetDate: base, CooldownUntil: ptr(base.Add(-time.Second))}

	require.True(t, a.IsAvailable(base))
	assert.Equal(t, StatusCooldown, a.Status, "предикат не меняет статус")
}

func TestDailyResetHappensOncePerDay(t *testing.T) {
	a := Account{Status: StatusActive, DailyLimit: 25, ActionsToday: 25, LastResetDate: base.Add(-24 * time.Hour)}

	assert.False(t, a.ResetDayIfNeeded(base.Add(-23*time.Hour)), "тот же календарный день")

	require.True(t, a.IsAvailable(base))
	assert.Equal(t, 0, a.ActionsToday)
	assert.Equal(t, base, a.LastResetDate)

	a.ActionsToday = 7
	assert.False(t, a.ResetDayIfNeeded(base.Add(3*time.Hour)))
	assert.Equal(t, 7, a.ActionsToday)
}

func TestRecordActionEntersCooldownAtEightyPercent(t *testing.T) {
	a := Account{Status: StatusActive, DailyLimit: 25, ActionsToday: 19, LastResetDate: base}

	cooldown := CooldownDuration(func() float64 { return 0.37 }, 0)
	a.RecordAction(base, cooldown)

	assert.Equal(t, 20, a.ActionsToday)
	assert.Equal(t, int64(1), a.TotalActions)
	assert.Equal(t, StatusCooldown, a.Status)
	require.NotNil(t, a.CooldownUntil)
	assert.False(t, a.CooldownUntil.Before(base.Add(2*time.Hour)))
	assert.False(t, a.CooldownUntil.After(base.Add(4*time.Hour)))
	require.NotNil(t, a.LastUsed)
	assert.Equal(t, base, *a.LastUsed)
}

func TestRecordActionBelowThresholdStaysActive(t *testing.T) {
	a := Account{Status: StatusActive, DailyLimit: 25, ActionsToday: 18, LastResetDate: base}
	a.RecordAction(base, time.Hour)

	assert.Equal(t, 19, a.ActionsToday)
	assert.Equal(t, StatusActive, a.Status)
	assert.Nil(t, a.CooldownUntil)
}

func TestRecordActionNeverExceedsDailyLimit(t *testing.T) {
	a := Account{Status: StatusActive, DailyLimit: 5, LastResetDate: base}
	for i := 0; i < 12; i++ {
		a.RecordAction(base, time.Hour)
		assert.LessOrEqual(t, a.ActionsToday, a.DailyLimit)
	}
	assert.Equal(t, int64(12), a.TotalActions)
}

func TestCooldownDurationBounds(t *testing.T) {
	assert.Equal(t, 2*time.Hour, CooldownDuration(func() float64 { return 0 }, 0))
	assert.Less(t, CooldownDuration(func() float64 { return 0.999999 }, 0), 4*time.Hour)
	assert.Equal(t, 6*time.Hour, CooldownDuration(func() float64 { return 0.5 }, 6))
}

func TestBannedIsTerminal(t *testing.T) {
	a := Account{Status: StatusBanned, DailyLimit: 25, ActionsToday: 19, LastResetDate: base}

	a.RecordAction(base, time.Hour)
	assert.Equal(t, StatusBanned, a.Status)

	a.LoginSucceeded(base)
	assert.Equal(t, StatusBanned, a.Status)

	a.LoginFailed()
	assert.Equal(t, StatusBanned, a.Status)
}

func TestLoginTransitions(t *testing.T) {
	a := Account{Status: StatusActive}
	a.LoginFailed()
	assert.Equal(t, StatusError, a.Status)

	a.LoginSucceeded(base)
	assert.Equal(t, StatusActive, a.Status)

	cooling := Account{Status: StatusCooldown, CooldownUntil: ptr(base.Add(time.Hour))}
	cooling.LoginSucceeded(base)
	assert.Equal(t, StatusCooldown, cooling.Status, "идущий кулдаун логином не снимается")

	cooling.LoginSucceeded(base.Add(2 * time.Hour))
	assert.Equal(t, StatusActive, cooling.Status)

	cooling.Status = StatusCooldown
	cooling.LoginFailed()
	assert.Equal(t, StatusError, cooling.Status)
}

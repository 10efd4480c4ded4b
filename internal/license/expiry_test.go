package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateTrial(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := start.Add(30 * 24 * time.Hour)
	rec := &Record{State: StateTrial, TrialExpiresAt: expiry}

	tests := []struct {
		name      string
		now       time.Time
		wantState State
		wantDays  int
	}{
		{name: "day zero", now: start, wantState: StateTrial, wantDays: 30},
		{name: "partial day rounds up", now: start.Add(12 * time.Hour), wantState: StateTrial, wantDays: 30},
		{name: "one day left", now: expiry.Add(-24 * time.Hour), wantState: StateTrial, wantDays: 1},
		{name: "last hour", now: expiry.Add(-time.Hour), wantState: StateTrial, wantDays: 1},
		{name: "exactly at expiry", now: expiry, wantState: StateExpired, wantDays: 0},
		{name: "past expiry", now: expiry.Add(31 * 24 * time.Hour), wantState: StateExpired, wantDays: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eff := Evaluate(rec, tt.now)
			assert.Equal(t, tt.wantState, eff.State)
			assert.Equal(t, tt.wantDays, eff.DaysRemaining)
			require.NotNil(t, eff.ExpiresAt)
			assert.True(t, eff.ExpiresAt.Equal(expiry))
		})
	}
}

// Days remaining strictly decreases as time advances and never goes
// negative.
func TestTrialDaysRemainingMonotonic(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &Record{State: StateTrial, TrialExpiresAt: start.Add(30 * 24 * time.Hour)}

	prev := Evaluate(rec, start).DaysRemaining
	for now := start.Add(24 * time.Hour); now.Before(start.Add(40 * 24 * time.Hour)); now = now.Add(24 * time.Hour) {
		days := Evaluate(rec, now).DaysRemaining
		assert.LessOrEqual(t, days, prev)
		assert.GreaterOrEqual(t, days, 0)
		prev = days
	}
	assert.Equal(t, 0, prev)
}

func TestEvaluateActivatedPerpetual(t *testing.T) {
	rec := &Record{State: StateActivated, Customer: "st-mary-parish"}

	// Perpetual activations stay activated no matter how far time runs.
	for _, now := range []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2126, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		eff := Evaluate(rec, now)
		assert.Equal(t, StateActivated, eff.State)
		assert.Equal(t, DaysPerpetual, eff.DaysRemaining)
		assert.Nil(t, eff.ExpiresAt)
	}
}

func TestEvaluateActivatedDated(t *testing.T) {
	expiry := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	rec := &Record{State: StateActivated, Customer: "st-mary-parish", LicenseExpiresAt: &expiry}

	eff := Evaluate(rec, expiry.Add(-10*24*time.Hour))
	assert.Equal(t, StateActivated, eff.State)
	assert.Equal(t, 10, eff.DaysRemaining)

	// The lapse is observed, not persisted, at the evaluation layer.
	eff = Evaluate(rec, expiry.Add(time.Minute))
	assert.Equal(t, StateExpired, eff.State)
	assert.Equal(t, 0, eff.DaysRemaining)
	assert.Equal(t, StateActivated, rec.State)
}

func TestEvaluatePersistedExpiredAndRevoked(t *testing.T) {
	trialExpiry := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	now := trialExpiry.Add(24 * time.Hour)

	expired := &Record{State: StateExpired, TrialExpiresAt: trialExpiry}
	eff := Evaluate(expired, now)
	assert.Equal(t, StateExpired, eff.State)
	assert.Equal(t, 0, eff.DaysRemaining)
	require.NotNil(t, eff.ExpiresAt)
	assert.True(t, eff.ExpiresAt.Equal(trialExpiry))

	licExpiry := trialExpiry.Add(90 * 24 * time.Hour)
	expiredDated := &Record{State: StateExpired, TrialExpiresAt: trialExpiry, LicenseExpiresAt: &licExpiry}
	eff = Evaluate(expiredDated, now)
	require.NotNil(t, eff.ExpiresAt)
	assert.True(t, eff.ExpiresAt.Equal(licExpiry))

	revoked := &Record{State: StateRevoked, TrialExpiresAt: trialExpiry, RevokedReason: "chargeback"}
	eff = Evaluate(revoked, now)
	assert.Equal(t, StateRevoked, eff.State)
	assert.Equal(t, 0, eff.DaysRemaining)
}

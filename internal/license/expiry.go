package license

import (
	"math"
	"time"
)

// DaysPerpetual is the days_remaining sentinel reported for perpetual
// activations.
const DaysPerpetual = math.MaxInt32

// Effective is the observed status derived from a record and the current
// time. A lapse shows up here before it is persisted; the manager writes
// it through on the next status call.
type Effective struct {
	State State

	// ExpiresAt is the effective expiry. Nil for perpetual activations.
	ExpiresAt *time.Time

	DaysRemaining int
}

// Evaluate derives the effective status of a record at the given instant.
// Callers normalize now to UTC before calling; no timezone conversion
// happens here.
func Evaluate(rec *Record, now time.Time) Effective {
	switch rec.State {
	case StateTrial:
		exp := rec.TrialExpiresAt
		eff := Effective{State: StateTrial, ExpiresAt: &exp, DaysRemaining: daysRemaining(exp, now)}
		if !now.Before(exp) {
			eff.State = StateExpired
		}
		return eff

	case StateActivated:
		if rec.LicenseExpiresAt == nil {
			return Effective{State: StateActivated, DaysRemaining: DaysPerpetual}
		}
		exp := *rec.LicenseExpiresAt
		eff := Effective{State: StateActivated, ExpiresAt: &exp, DaysRemaining: daysRemaining(exp, now)}
		if !now.Before(exp) {
			eff.State = StateExpired
		}
		return eff

	case StateRevoked:
		return Effective{State: StateRevoked}

	default: // StateExpired
		exp := rec.TrialExpiresAt
		if rec.LicenseExpiresAt != nil {
			exp = *rec.LicenseExpiresAt
		}
		return Effective{State: StateExpired, ExpiresAt: &exp}
	}
}

// daysRemaining is ceil(expiry - now) in whole days, floored at zero. It
// reaches zero exactly at the expiry instant, never goes negative.
func daysRemaining(expiry, now time.Time) int {
	if !now.Before(expiry) {
		return 0
	}
	const day = 24 * time.Hour
	left := expiry.Sub(now)
	days := int(left / day)
	if left%day != 0 {
		days++
	}
	return days
}

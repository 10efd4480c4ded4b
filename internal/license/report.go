package license

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Status is the outward license status payload returned to the request
// layer. Message text is determined entirely by the state, never
// free-form.
type Status struct {
	State          State      `json:"state"`
	Message        string     `json:"message"`
	Customer       string     `json:"customer,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at"`
	TrialExpiresAt *time.Time `json:"trial_expires_at"`
	DaysRemaining  int        `json:"days_remaining"`
}

// Render maps a record and its effective status to the outward payload.
func Render(rec *Record, eff Effective) Status {
	st := Status{
		State:         eff.State,
		Customer:      rec.Customer,
		ExpiresAt:     eff.ExpiresAt,
		DaysRemaining: eff.DaysRemaining,
	}
	if !rec.TrialExpiresAt.IsZero() {
		trial := rec.TrialExpiresAt
		st.TrialExpiresAt = &trial
	}

	switch eff.State {
	case StateTrial:
		st.Message = fmt.Sprintf("Trial: %d days remaining", eff.DaysRemaining)
	case StateActivated:
		if eff.ExpiresAt == nil {
			st.Message = fmt.Sprintf("Licensed to %s", rec.Customer)
		} else {
			st.Message = fmt.Sprintf("Licensed to %s until %s", rec.Customer, eff.ExpiresAt.Format(dateLayout))
		}
	case StateExpired:
		expired := "unknown date"
		if eff.ExpiresAt != nil {
			expired = eff.ExpiresAt.Format(dateLayout)
		}
		st.Message = fmt.Sprintf("License expired on %s; activate to continue", expired)
	case StateRevoked:
		st.Message = fmt.Sprintf("License revoked: %s", rec.RevokedReason)
	}
	return st
}

// InvalidStatus is the pseudo-status reported when the store itself
// cannot be read. It carries a diagnostic instead of entitlement data.
func InvalidStatus(diagnostic string) Status {
	return Status{
		State:   StateInvalid,
		Message: fmt.Sprintf("License state unreadable: %s", diagnostic),
	}
}

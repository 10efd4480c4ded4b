package license

import "time"

// State is the lifecycle state of the deployment license.
type State string

const (
	StateTrial     State = "trial"
	StateActivated State = "activated"
	StateExpired   State = "expired"
	StateRevoked   State = "revoked"

	// StateInvalid is an error-reporting pseudo-state returned when the
	// store cannot be read. It is never persisted.
	StateInvalid State = "invalid"
)

// Record is the single persisted license record for a deployment. It is
// replaced through the Store's compare-and-replace, never duplicated and
// never deleted.
type Record struct {
	// Revision is the store's optimistic-concurrency counter. Zero means
	// the record has never been persisted.
	Revision int64 `json:"revision"`

	State State `json:"state"`

	// Customer is set once the deployment is activated.
	Customer string `json:"customer,omitempty"`

	// TrialExpiresAt is set exactly once, at first initialization, and is
	// never mutated by activation.
	TrialExpiresAt time.Time `json:"trial_expires_at"`

	// LicenseExpiresAt is present only for dated activations. Nil means
	// the activation is perpetual.
	LicenseExpiresAt *time.Time `json:"license_expires_at,omitempty"`

	// TokenFingerprint is the SHA-256 fingerprint of the last successfully
	// applied token, used to reject replays.
	TokenFingerprint string `json:"token_fingerprint,omitempty"`

	// TokenIssuedAt is the issuance time of the applied token. Tokens
	// issued earlier than this are rejected, preventing rollback to a
	// token with looser terms.
	TokenIssuedAt time.Time `json:"token_issued_at,omitempty"`

	// RevokedReason holds the administrative reason for a revocation.
	RevokedReason string `json:"revoked_reason,omitempty"`

	// LastCheckedAt is refreshed on state-changing writes only. It exists
	// for observability and plays no part in decisions.
	LastCheckedAt time.Time `json:"last_checked_at,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	if r.LicenseExpiresAt != nil {
		exp := *r.LicenseExpiresAt
		c.LicenseExpiresAt = &exp
	}
	return &c
}

type transition struct {
	from, to State
}

// validTransitions enumerates every allowed state change. Revoked
// deployments may be re-activated with a fresh token once the underlying
// dispute is resolved.
var validTransitions = map[transition]bool{
	{StateTrial, StateActivated}:     true,
	{StateTrial, StateExpired}:       true,
	{StateExpired, StateActivated}:   true,
	{StateActivated, StateActivated}: true, // renewal
	{StateActivated, StateExpired}:   true,
	{StateActivated, StateRevoked}:   true,
	{StateRevoked, StateActivated}:   true,
}

// CanTransition reports whether moving from one state to another is a
// valid license state change.
func CanTransition(from, to State) bool {
	return validTransitions[transition{from, to}]
}

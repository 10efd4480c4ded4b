package license

import "errors"

// Sentinel errors for token decoding and activation.
var (
	ErrInvalidToken          = errors.New("invalid activation token")
	ErrTokenAlreadyApplied   = errors.New("activation token already applied")
	ErrTokenOlderThanCurrent = errors.New("activation token older than currently applied token")
	ErrInvalidTransition     = errors.New("invalid license state transition")
)

// Sentinel errors for the store.
var (
	ErrRecordNotFound   = errors.New("license record not found")
	ErrRevisionConflict = errors.New("license record revision conflict")
	ErrStoreUnavailable = errors.New("license store unavailable")
)

// ErrActivationPersistFailed is returned when an otherwise valid activation
// could not be persisted. Unlike status checks, which degrade to the
// invalid pseudo-state, activations fail loudly: silently dropping one is
// unacceptable.
var ErrActivationPersistFailed = errors.New("failed to persist license activation")

package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// activateAttempts bounds the compare-and-replace retry loop. Two reads
// are enough: a loser re-validates once against the winner's record and
// either succeeds or reports why it cannot.
const activateAttempts = 2

// Manager is the license state machine. It orchestrates the store, the
// token codec, and the clock to answer status queries and to process
// activations and revocations.
type Manager struct {
	store       Store
	codec       *TokenCodec
	clock       Clock
	trialLength time.Duration
	logger      *slog.Logger
	metrics     *Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source, mainly for tests.
func WithClock(c Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = c
	}
}

// WithMetrics attaches OpenTelemetry instruments to the manager.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates the state machine. trialLength is the entitlement
// window granted at first boot, before any token is applied.
func NewManager(store Store, codec *TokenCodec, trialLength time.Duration, logger *slog.Logger, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if codec == nil {
		return nil, fmt.Errorf("token codec cannot be nil")
	}
	if trialLength <= 0 {
		return nil, fmt.Errorf("trial length must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:       store,
		codec:       codec,
		clock:       SystemClock{},
		trialLength: trialLength,
		logger:      logger.With(slog.String("component", "license")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Status reports the current license status. It never fails for a
// well-formed record: a store read failure degrades to the invalid
// pseudo-state with a diagnostic instead of an error, so a transient
// persistence outage does not hard-fail every protected request. A lapse
// observed here is written back exactly once; there is no background
// timer.
func (m *Manager) Status(ctx context.Context) Status {
	now := m.clock.Now().UTC()

	rec, err := m.store.Read(ctx)
	if errors.Is(err, ErrRecordNotFound) {
		rec, err = m.initTrial(ctx, now)
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "license store unreadable",
			slog.String("error", err.Error()))
		m.metrics.recordStatus(ctx, StateInvalid)
		return InvalidStatus(err.Error())
	}

	eff := Evaluate(rec, now)
	if eff.State == StateExpired && rec.State != StateExpired {
		m.persistLapse(ctx, rec, now)
	}
	m.metrics.recordStatus(ctx, eff.State)
	return Render(rec, eff)
}

// Activate verifies the token, enforces replay and rollback protection,
// and atomically replaces the license record. The distinct sentinel
// errors let the caller tell "already licensed" apart from "bad token".
func (m *Manager) Activate(ctx context.Context, token string) (Status, error) {
	start := m.clock.Now()
	now := start.UTC()

	dec, err := m.codec.Decode(token)
	if err != nil {
		m.logger.WarnContext(ctx, "activation token rejected",
			slog.String("token", maskToken(token)),
			slog.String("error", err.Error()))
		m.metrics.recordActivation(ctx, "invalid_token", m.clock.Now().Sub(start))
		return Status{}, err
	}

	for attempt := 0; attempt < activateAttempts; attempt++ {
		rec, err := m.store.Read(ctx)
		if errors.Is(err, ErrRecordNotFound) {
			rec, err = m.initTrial(ctx, now)
		}
		if err != nil {
			m.metrics.recordActivation(ctx, "store_error", m.clock.Now().Sub(start))
			return Status{}, fmt.Errorf("%w: %v", ErrActivationPersistFailed, err)
		}

		if rec.TokenFingerprint == dec.Fingerprint {
			m.metrics.recordActivation(ctx, "already_applied", m.clock.Now().Sub(start))
			return Status{}, ErrTokenAlreadyApplied
		}
		if rec.TokenFingerprint != "" && dec.IssuedAt.Before(rec.TokenIssuedAt) {
			m.logger.WarnContext(ctx, "activation rollback rejected",
				slog.String("token", maskToken(token)),
				slog.Time("token_issued_at", dec.IssuedAt),
				slog.Time("applied_issued_at", rec.TokenIssuedAt))
			m.metrics.recordActivation(ctx, "older_than_current", m.clock.Now().Sub(start))
			return Status{}, ErrTokenOlderThanCurrent
		}
		if !CanTransition(rec.State, StateActivated) {
			m.metrics.recordActivation(ctx, "invalid_transition", m.clock.Now().Sub(start))
			return Status{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.State, StateActivated)
		}

		next := rec.Clone()
		next.State = StateActivated
		next.Customer = dec.Customer
		next.LicenseExpiresAt = nil
		if dec.ExpiresAt != nil {
			exp := *dec.ExpiresAt
			next.LicenseExpiresAt = &exp
		}
		next.TokenFingerprint = dec.Fingerprint
		next.TokenIssuedAt = dec.IssuedAt
		next.RevokedReason = ""
		next.LastCheckedAt = now

		err = m.store.Replace(ctx, rec.Revision, next)
		if errors.Is(err, ErrRevisionConflict) {
			// Lost the race; re-read and re-validate against the winner.
			continue
		}
		if err != nil {
			m.logger.ErrorContext(ctx, "activation persist failed",
				slog.String("token", maskToken(token)),
				slog.String("error", err.Error()))
			m.metrics.recordActivation(ctx, "persist_failed", m.clock.Now().Sub(start))
			return Status{}, fmt.Errorf("%w: %v", ErrActivationPersistFailed, err)
		}

		m.logger.InfoContext(ctx, "license activated",
			slog.String("token", maskToken(token)),
			slog.String("customer", dec.Customer),
			slog.String("from_state", string(rec.State)),
			slog.Bool("perpetual", dec.ExpiresAt == nil))
		m.metrics.recordActivation(ctx, "success", m.clock.Now().Sub(start))
		return Render(next, Evaluate(next, now)), nil
	}

	m.metrics.recordActivation(ctx, "conflict", m.clock.Now().Sub(start))
	return Status{}, fmt.Errorf("%w: concurrent activation conflict", ErrActivationPersistFailed)
}

// Revoke is the administrative path used by the billing collaborator for
// chargebacks. It clears the customer-visible entitlement but keeps the
// token fingerprint, so rollback protection survives revocation.
func (m *Manager) Revoke(ctx context.Context, reason string) (Status, error) {
	now := m.clock.Now().UTC()

	for attempt := 0; attempt < activateAttempts; attempt++ {
		rec, err := m.store.Read(ctx)
		if err != nil {
			return Status{}, err
		}
		if !CanTransition(rec.State, StateRevoked) {
			return Status{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, rec.State, StateRevoked)
		}

		next := rec.Clone()
		next.State = StateRevoked
		next.LicenseExpiresAt = nil
		next.RevokedReason = reason
		next.LastCheckedAt = now

		err = m.store.Replace(ctx, rec.Revision, next)
		if errors.Is(err, ErrRevisionConflict) {
			continue
		}
		if err != nil {
			return Status{}, err
		}

		m.logger.InfoContext(ctx, "license revoked",
			slog.String("reason", reason),
			slog.String("from_state", string(rec.State)))
		return Render(next, Evaluate(next, now)), nil
	}
	return Status{}, ErrRevisionConflict
}

// initTrial creates the first-boot trial record. A conflict means another
// request initialized first, which is fine; we adopt its record.
func (m *Manager) initTrial(ctx context.Context, now time.Time) (*Record, error) {
	rec := &Record{
		State:          StateTrial,
		TrialExpiresAt: now.Add(m.trialLength),
		LastCheckedAt:  now,
	}
	err := m.store.Replace(ctx, 0, rec)
	if errors.Is(err, ErrRevisionConflict) {
		return m.store.Read(ctx)
	}
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "trial started",
		slog.Time("trial_expires_at", rec.TrialExpiresAt))
	return rec, nil
}

// persistLapse writes the observed expiry through to the store. It is
// idempotent: a revision conflict means a concurrent request persisted
// the same deterministic record first, and any other failure only delays
// the write to the next status call.
func (m *Manager) persistLapse(ctx context.Context, rec *Record, now time.Time) {
	lapsed := rec.Clone()
	lapsed.State = StateExpired
	lapsed.LastCheckedAt = now

	err := m.store.Replace(ctx, rec.Revision, lapsed)
	switch {
	case errors.Is(err, ErrRevisionConflict):
		m.logger.DebugContext(ctx, "lapse already persisted by concurrent request")
	case err != nil:
		m.logger.WarnContext(ctx, "failed to persist license lapse",
			slog.String("error", err.Error()))
	default:
		m.logger.InfoContext(ctx, "license lapsed",
			slog.String("from_state", string(rec.State)),
			slog.Time("observed_at", now))
	}
}

// maskToken redacts a token for log output.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}

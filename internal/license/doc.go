// Package license implements license validation and activation for a
// parish-management deployment. It decides, for every protected request,
// whether the deployment is in trial, activated, expired, revoked, or
// unreadable, and it processes signed activation tokens that move the
// deployment between those states.
//
// # Architecture Overview
//
// The package is built from small, separately testable pieces:
//
//	- Clock: current-time source, injectable for tests
//	- TokenCodec: parses and verifies Ed25519-signed activation tokens
//	- Store: atomic read/compare-and-replace persistence of the one record
//	- Evaluate: derives effective state and days remaining from a record
//	- Manager: the state machine orchestrating status, activate, and revoke
//	- Render: maps internal state to the outward status payload
//
// # State Machine
//
// A deployment owns exactly one Record. It is created in trial state on
// first use with a fixed trial window, and replaced (never duplicated) by
// activation, revocation, or lazy expiry detection:
//
//	trial     -> activated, expired
//	expired   -> activated
//	activated -> activated (renewal), expired (lapse), revoked
//	revoked   -> activated
//
// The "invalid" state is never persisted; it is reported when the store
// itself cannot be read, so a persistence outage degrades status checks
// instead of failing every protected request.
//
// # Activation Tokens
//
// Tokens are self-contained credentials issued by the billing side. The
// wire format is a versioned dotted string carrying a JSON payload and an
// Ed25519 signature, so the verification key can ship inside the deployed
// artifact without exposing any signing capability. The SHA-256
// fingerprint of an applied token is stored to reject replays, and its
// issuance time is stored to reject rollback to older tokens.
//
// # Expiry
//
// There are no background timers. A lapse is observed on the next status
// call and persisted once through the store's compare-and-replace, which
// keeps concurrent observers safe: they either win the write or lose the
// revision race against an identical record.
package license

package license

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TokenVersion is the wire version tag carried at the front of every
// token, so the signature scheme can evolve without invalidating tokens
// already issued under this one.
const TokenVersion = "PML1"

// MinTokenLength rejects obviously truncated input before any parsing.
const MinTokenLength = 32

// DecodedToken is the verified content of an activation token.
type DecodedToken struct {
	Customer string

	// IssuedAt is when the billing side minted the token.
	IssuedAt time.Time

	// ExpiresAt bounds the entitlement window. Nil means perpetual.
	ExpiresAt *time.Time

	// Fingerprint is the SHA-256 hex digest of the full token string.
	Fingerprint string
}

type tokenPayload struct {
	Customer  string     `json:"customer"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TokenCodec parses and cryptographically verifies activation tokens.
// The wire format is "PML1.<base64url payload>.<base64url signature>"
// where the signature is Ed25519 over the raw payload bytes. Decoding is
// free of side effects.
type TokenCodec struct {
	verifyKey ed25519.PublicKey
	skew      time.Duration
	clock     Clock
}

// NewTokenCodec creates a codec with the embedded verification key and a
// clock-skew tolerance for the not-yet-valid check.
func NewTokenCodec(verifyKey ed25519.PublicKey, skew time.Duration, clock Clock) (*TokenCodec, error) {
	if len(verifyKey) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("verification key length %d, expected %d", len(verifyKey), ed25519.PublicKeySize)
	}
	if skew < 0 {
		return nil, fmt.Errorf("clock skew tolerance must not be negative")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenCodec{verifyKey: verifyKey, skew: skew, clock: clock}, nil
}

// Decode verifies the token's signature and extracts its contents. Any
// structural or signature failure yields ErrInvalidToken; no field is
// trusted before the signature checks out.
func (c *TokenCodec) Decode(token string) (*DecodedToken, error) {
	if len(token) < MinTokenLength {
		return nil, fmt.Errorf("%w: token too short", ErrInvalidToken)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: malformed envelope", ErrInvalidToken)
	}
	if parts[0] != TokenVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidToken, parts[0])
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload encoding: %v", ErrInvalidToken, err)
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature encoding: %v", ErrInvalidToken, err)
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: signature length %d", ErrInvalidToken, len(sig))
	}
	if !ed25519.Verify(c.verifyKey, payload, sig) {
		return nil, fmt.Errorf("%w: signature verification failed", ErrInvalidToken)
	}

	var p tokenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: payload parse: %v", ErrInvalidToken, err)
	}
	if p.Customer == "" || p.IssuedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing customer or issuance time", ErrInvalidToken)
	}
	if p.IssuedAt.After(c.clock.Now().Add(c.skew)) {
		return nil, fmt.Errorf("%w: not yet valid", ErrInvalidToken)
	}

	dec := &DecodedToken{
		Customer:    p.Customer,
		IssuedAt:    p.IssuedAt.UTC(),
		Fingerprint: Fingerprint(token),
	}
	if p.ExpiresAt != nil {
		exp := p.ExpiresAt.UTC()
		dec.ExpiresAt = &exp
	}
	return dec, nil
}

// Fingerprint derives the opaque replay-detection hash for a token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SignToken mints a signed activation token. The service only ever
// verifies; this exists for the issuing side's tooling and for tests. A
// nil expiresAt produces a perpetual token.
func SignToken(key ed25519.PrivateKey, customer string, issuedAt time.Time, expiresAt *time.Time) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signing key length %d, expected %d", len(key), ed25519.PrivateKeySize)
	}
	p := tokenPayload{Customer: customer, IssuedAt: issuedAt.UTC()}
	if expiresAt != nil {
		exp := expiresAt.UTC()
		p.ExpiresAt = &exp
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal token payload: %w", err)
	}
	sig := ed25519.Sign(key, payload)
	return TokenVersion + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString(sig), nil
}

package services

import (
	"context"
	"crypto/ed25519"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javannnn/salitemihret-system-sub001/internal/license"
)

func newTestService(t *testing.T) (LicenseService, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	codec, err := license.NewTokenCodec(pub, 5*time.Minute, nil)
	require.NoError(t, err)

	manager, err := license.NewManager(license.NewMemoryStore(), codec, 30*24*time.Hour, slog.Default())
	require.NoError(t, err)

	return NewLicenseService(manager, slog.Default()), priv
}

func TestServiceStatusInitializesTrial(t *testing.T) {
	svc, _ := newTestService(t)

	resp := svc.GetStatus(context.Background())
	require.NotNil(t, resp)
	assert.Equal(t, license.StateTrial, resp.State)
	assert.Equal(t, 30, resp.DaysRemaining)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestServiceActivate(t *testing.T) {
	ctx := context.Background()
	svc, priv := newTestService(t)

	token, err := license.SignToken(priv, "st-mary-parish", time.Now().UTC().Add(-time.Hour), nil)
	require.NoError(t, err)

	resp, err := svc.Activate(ctx, token)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, license.StateActivated, resp.Status.State)
	assert.NotEmpty(t, resp.ActivationID)

	// Errors from the core pass through with their sentinel kinds.
	_, err = svc.Activate(ctx, token)
	assert.ErrorIs(t, err, license.ErrTokenAlreadyApplied)

	_, err = svc.Activate(ctx, "not-a-token-but-at-least-32-characters")
	assert.ErrorIs(t, err, license.ErrInvalidToken)
}

func TestServiceRevoke(t *testing.T) {
	ctx := context.Background()
	svc, priv := newTestService(t)

	token, err := license.SignToken(priv, "st-mary-parish", time.Now().UTC().Add(-time.Hour), nil)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, token)
	require.NoError(t, err)

	resp, err := svc.Revoke(ctx, "chargeback")
	require.NoError(t, err)
	assert.Equal(t, license.StateRevoked, resp.State)

	status := svc.GetStatus(ctx)
	assert.Equal(t, license.StateRevoked, status.State)
	assert.Contains(t, status.Message, "chargeback")
}

package app

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) *Application {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	t.Setenv("PML_STORE_BACKEND", "memory")
	t.Setenv("PML_LICENSE_VERIFICATION_KEY", base64.StdEncoding.EncodeToString(pub))
	t.Setenv("PML_LICENSE_REVOKE_SECRET", "test-secret")
	t.Setenv("PML_LOGGING_LEVEL", "error")

	application, err := NewApplication(context.Background())
	require.NoError(t, err)
	return application
}

func TestApplicationWiring(t *testing.T) {
	application := newTestApplication(t)

	require.NotNil(t, application.Router)
	require.NotNil(t, application.Manager)
	require.NotNil(t, application.LicenseService)
	assert.Equal(t, ":8080", application.Server.Addr)
}

func TestApplicationRoutes(t *testing.T) {
	application := newTestApplication(t)
	srv := httptest.NewServer(application.Router)
	defer srv.Close()

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"health", "/api/health", http.StatusOK},
		{"metrics", "/metrics", http.StatusOK},
		{"license status", "/api/license/status", http.StatusOK},
		{"gated route on fresh trial", "/api/members", http.StatusOK},
		{"unknown route", "/api/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestApplicationRejectsBadConfig(t *testing.T) {
	t.Setenv("PML_STORE_BACKEND", "memory")
	t.Setenv("PML_LICENSE_VERIFICATION_KEY", "not-a-key")

	_, err := NewApplication(context.Background())
	assert.Error(t, err)
}

package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVerificationKey(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(pub)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PML_LICENSE_VERIFICATION_KEY", testVerificationKey(t))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.License.TrialLength)
	assert.Equal(t, 5*time.Minute, cfg.License.ClockSkew)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "license.dat", cfg.Store.FilePath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PML_LICENSE_VERIFICATION_KEY", testVerificationKey(t))
	t.Setenv("PML_SERVER_PORT", "9090")
	t.Setenv("PML_LICENSE_TRIAL_LENGTH", "336h")
	t.Setenv("PML_STORE_BACKEND", "memory")
	t.Setenv("PML_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 14*24*time.Hour, cfg.License.TrialLength)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: 7070\nlicense:\n  verification_key: " + testVerificationKey(t) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("PML_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)

	// Environment wins over the file.
	t.Setenv("PML_SERVER_PORT", "7071")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 7071, cfg.Server.Port)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing verification key",
			env:  map[string]string{},
		},
		{
			name: "verification key not base64",
			env:  map[string]string{"PML_LICENSE_VERIFICATION_KEY": "!!!"},
		},
		{
			name: "verification key wrong length",
			env:  map[string]string{"PML_LICENSE_VERIFICATION_KEY": base64.StdEncoding.EncodeToString([]byte("short"))},
		},
		{
			name: "unknown store backend",
			env:  map[string]string{"PML_STORE_BACKEND": "etcd"},
		},
		{
			name: "postgres without dsn",
			env:  map[string]string{"PML_STORE_BACKEND": "postgres"},
		},
	}

	validKey := testVerificationKey(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.env["PML_LICENSE_VERIFICATION_KEY"]; !ok && tt.name != "missing verification key" {
				t.Setenv("PML_LICENSE_VERIFICATION_KEY", validKey)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestPublicKeyRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	lc := LicenseConfig{VerificationKey: base64.StdEncoding.EncodeToString(pub)}
	got, err := lc.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, pub, got)
}

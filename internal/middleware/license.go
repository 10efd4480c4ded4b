// Package middleware contains HTTP middleware shared across the service,
// most importantly the license gate that protects the parish resource
// routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	apperrors "github.com/javannnn/salitemihret-system-sub001/internal/errors"
	"github.com/javannnn/salitemihret-system-sub001/internal/license"
	"github.com/javannnn/salitemihret-system-sub001/internal/services"
)

// StatusProvider is the slice of the license service the gate needs.
type StatusProvider interface {
	GetStatus(ctx context.Context) *services.StatusResponse
}

// LicenseGate blocks protected requests on expired or revoked
// deployments. Trial and activated deployments pass. The invalid
// pseudo-state fails open: a store outage must not lock out a paying
// customer, and the expiry check will run again on the next request.
type LicenseGate struct {
	provider        StatusProvider
	logger          *slog.Logger
	excludePaths    map[string]struct{}
	excludePrefixes []string
}

// NewLicenseGate creates the gate. License, health, and metrics
// endpoints are always excluded so a locked-out deployment can still
// activate and be observed.
func NewLicenseGate(provider StatusProvider, logger *slog.Logger) *LicenseGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &LicenseGate{
		provider: provider,
		logger:   logger.With(slog.String("component", "license_gate")),
		excludePaths: map[string]struct{}{
			"/":           {},
			"/api/health": {},
			"/metrics":    {},
		},
		excludePrefixes: []string{
			"/api/license",
		},
	}
}

// Handler returns the middleware handler function.
func (g *LicenseGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.excluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		st := g.provider.GetStatus(ctx)

		switch st.State {
		case license.StateTrial, license.StateActivated:
			next.ServeHTTP(w, r)

		case license.StateInvalid:
			g.logger.WarnContext(ctx, "license state unreadable, failing open",
				slog.String("path", r.URL.Path),
				slog.String("message", st.Message))
			next.ServeHTTP(w, r)

		default: // expired, revoked
			g.logger.InfoContext(ctx, "request blocked by license gate",
				slog.String("path", r.URL.Path),
				slog.String("state", string(st.State)))

			problem := apperrors.NewProblemDetails(
				http.StatusForbidden,
				"/errors/license-required",
				"License Required",
				st.Message,
				r.URL.Path,
			).WithExtension("state", string(st.State))
			render.Render(w, r, problem)
		}
	})
}

func (g *LicenseGate) excluded(path string) bool {
	if _, ok := g.excludePaths[path]; ok {
		return true
	}
	for _, prefix := range g.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Package http contains the chi HTTP handlers that expose the license
// core to the request layer.
package http

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	apperrors "github.com/javannnn/salitemihret-system-sub001/internal/errors"
	"github.com/javannnn/salitemihret-system-sub001/internal/services"
)

// LicenseHandler handles license-related HTTP requests.
type LicenseHandler struct {
	service      services.LicenseService
	logger       *slog.Logger
	validate     *validator.Validate
	limiter      *rate.Limiter
	revokeSecret string
}

// NewLicenseHandler creates a new license handler. The limiter throttles
// activation attempts; revokeSecret guards the administrative revocation
// endpoint and disables it entirely when empty.
func NewLicenseHandler(service services.LicenseService, logger *slog.Logger, limiter *rate.Limiter, revokeSecret string) *LicenseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(1), 5)
	}
	return &LicenseHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "license")),
		validate:     validator.New(),
		limiter:      limiter,
		revokeSecret: revokeSecret,
	}
}

// ActivationRequest is the activation payload. Tokens are opaque to this
// layer; only a minimum length is enforced before the codec sees them.
type ActivationRequest struct {
	Token string `json:"token" validate:"required,min=32"`
}

// RevocationRequest is the administrative revocation payload.
type RevocationRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// Routes returns a chi router for license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.GetStatus)
	r.Post("/activate", h.Activate)
	r.Post("/revoke", h.Revoke)
	return r
}

// GetStatus handles GET /api/license/status.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.get_status",
		trace.WithAttributes(
			attribute.String("http.route", "/api/license/status"),
		),
	)
	defer span.End()

	resp := h.service.GetStatus(ctx)
	span.SetAttributes(
		attribute.String("license.state", string(resp.State)),
		attribute.Int("license.days_remaining", resp.DaysRemaining),
	)
	render.JSON(w, r, resp)
}

// Activate handles POST /api/license/activate.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("license-handler")
	instance := r.URL.Path + "#" + reqID

	ctx, span := tracer.Start(ctx, "license_handler.activate",
		trace.WithAttributes(
			attribute.String("http.route", "/api/license/activate"),
		),
	)
	defer span.End()

	if !h.limiter.Allow() {
		w.Header().Set("Retry-After", "60")
		problem := apperrors.NewProblemDetails(
			http.StatusTooManyRequests,
			"/errors/rate-limited",
			"Too Many Requests",
			"Too many activation attempts. Please wait before trying again.",
			instance,
		)
		render.Render(w, r, problem)
		return
	}

	var req ActivationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.logger.WarnContext(ctx, "activation request decode failed",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
		render.Render(w, r, apperrors.NewValidationProblem(err.Error(), instance))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apperrors.NewValidationProblem(
			fmt.Sprintf("token must be present and at least 32 characters: %v", err),
			instance,
		))
		return
	}

	resp, err := h.service.Activate(ctx, req.Token)
	if err != nil {
		span.RecordError(err)
		problem := apperrors.MapLicenseError(err, instance).
			WithExtension("request_id", reqID)
		render.Render(w, r, problem)
		return
	}

	span.SetAttributes(attribute.String("license.result", "activated"))
	render.JSON(w, r, resp)
}

// Revoke handles POST /api/license/revoke. This is the billing
// collaborator's chargeback path, never exposed to end users, so it is
// locked behind a shared secret.
func (h *LicenseHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	instance := r.URL.Path + "#" + reqID

	if !h.authorizedToRevoke(r) {
		problem := apperrors.NewProblemDetails(
			http.StatusUnauthorized,
			"/errors/unauthorized",
			"Unauthorized",
			"Revocation requires a valid administrative secret.",
			instance,
		)
		render.Render(w, r, problem)
		return
	}

	var req RevocationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apperrors.NewValidationProblem(err.Error(), instance))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		render.Render(w, r, apperrors.NewValidationProblem("reason is required", instance))
		return
	}

	resp, err := h.service.Revoke(ctx, req.Reason)
	if err != nil {
		render.Render(w, r, apperrors.MapLicenseError(err, instance))
		return
	}

	h.logger.InfoContext(ctx, "license revoked by administrator",
		slog.String("request_id", reqID),
		slog.String("reason", req.Reason))
	render.JSON(w, r, resp)
}

func (h *LicenseHandler) authorizedToRevoke(r *http.Request) bool {
	if h.revokeSecret == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Secret")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.revokeSecret)) == 1
}

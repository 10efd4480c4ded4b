// Package services holds the business-logic layer between HTTP transport
// and the license core.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/javannnn/salitemihret-system-sub001/internal/license"
)

// LicenseService exposes license operations to the transport layer.
type LicenseService interface {
	// GetStatus reports the current license status. It never fails: a
	// store outage is reported as the invalid pseudo-state.
	GetStatus(ctx context.Context) *StatusResponse

	// Activate applies an activation token and returns the refreshed
	// status. Errors carry the license package's sentinel kinds.
	Activate(ctx context.Context, token string) (*ActivationResponse, error)

	// Revoke is the administrative revocation path for the billing
	// collaborator.
	Revoke(ctx context.Context, reason string) (*StatusResponse, error)
}

// StatusResponse is the outward status payload with request correlation.
type StatusResponse struct {
	license.Status
	TraceID   string    `json:"trace_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivationResponse reports a successful activation.
type ActivationResponse struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	Status       license.Status `json:"status"`
	ActivationID string         `json:"activation_id"`
	TraceID      string         `json:"trace_id,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

type licenseService struct {
	manager *license.Manager
	logger  *slog.Logger
}

// NewLicenseService creates the service around the license state machine.
func NewLicenseService(manager *license.Manager, logger *slog.Logger) LicenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &licenseService{
		manager: manager,
		logger:  logger.With(slog.String("service", "license")),
	}
}

func (s *licenseService) GetStatus(ctx context.Context) *StatusResponse {
	st := s.manager.Status(ctx)
	return &StatusResponse{
		Status:    st,
		TraceID:   middleware.GetReqID(ctx),
		Timestamp: time.Now().UTC(),
	}
}

func (s *licenseService) Activate(ctx context.Context, token string) (*ActivationResponse, error) {
	st, err := s.manager.Activate(ctx, token)
	if err != nil {
		return nil, err
	}

	activationID := uuid.NewString()
	s.logger.InfoContext(ctx, "activation completed",
		slog.String("activation_id", activationID),
		slog.String("customer", st.Customer))

	return &ActivationResponse{
		Success:      true,
		Message:      "License activated successfully.",
		Status:       st,
		ActivationID: activationID,
		TraceID:      middleware.GetReqID(ctx),
		Timestamp:    time.Now().UTC(),
	}, nil
}

func (s *licenseService) Revoke(ctx context.Context, reason string) (*StatusResponse, error) {
	st, err := s.manager.Revoke(ctx, reason)
	if err != nil {
		return nil, err
	}
	return &StatusResponse{
		Status:    st,
		TraceID:   middleware.GetReqID(ctx),
		Timestamp: time.Now().UTC(),
	}, nil
}

package errors

import (
	"errors"
	"net/http"

	"github.com/javannnn/salitemihret-system-sub001/internal/license"
)

// Error kind codes surfaced in problem extensions so UIs can branch
// without parsing messages.
const (
	KindInvalidToken     = "invalid_token"
	KindAlreadyApplied   = "token_already_applied"
	KindOlderThanCurrent = "token_older_than_current"
	KindStoreUnavailable = "store_unavailable"
	KindPersistFailed    = "activation_persist_failed"
	KindBadTransition    = "invalid_transition"
	KindNotFound         = "license_not_found"
)

// MapLicenseError converts a license core error into an outward RFC 7807
// problem. TokenAlreadyApplied is deliberately distinguishable from
// InvalidToken: the former means "already licensed", not "bad token".
func MapLicenseError(err error, instance string) *ProblemDetails {
	switch {
	case errors.Is(err, license.ErrTokenAlreadyApplied):
		return NewProblemDetails(
			http.StatusConflict,
			"/errors/token-already-applied",
			"Token Already Applied",
			"This activation token has already been applied; the deployment is licensed.",
			instance,
		).WithExtension("kind", KindAlreadyApplied)

	case errors.Is(err, license.ErrTokenOlderThanCurrent):
		return NewProblemDetails(
			http.StatusConflict,
			"/errors/token-older-than-current",
			"Token Older Than Current License",
			"The submitted token was issued before the currently applied one and cannot downgrade the license.",
			instance,
		).WithExtension("kind", KindOlderThanCurrent)

	case errors.Is(err, license.ErrInvalidToken):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/invalid-token",
			"Invalid Activation Token",
			err.Error(),
			instance,
		).WithExtension("kind", KindInvalidToken)

	case errors.Is(err, license.ErrActivationPersistFailed):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/activation-persist-failed",
			"Activation Not Persisted",
			"The activation could not be saved. The token was not consumed; retry once the store recovers.",
			instance,
		).WithExtension("kind", KindPersistFailed)

	case errors.Is(err, license.ErrStoreUnavailable):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/license-store-unavailable",
			"License Store Unavailable",
			"The license store cannot be reached.",
			instance,
		).WithExtension("kind", KindStoreUnavailable)

	case errors.Is(err, license.ErrInvalidTransition):
		return NewProblemDetails(
			http.StatusConflict,
			"/errors/invalid-transition",
			"Invalid License Transition",
			err.Error(),
			instance,
		).WithExtension("kind", KindBadTransition)

	case errors.Is(err, license.ErrRecordNotFound):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/license-not-found",
			"License Not Found",
			"No license record exists for this deployment yet.",
			instance,
		).WithExtension("kind", KindNotFound)

	default:
		return NewInternalProblem(instance)
	}
}

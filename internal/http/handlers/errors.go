// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants and the translation from
// service-layer sentinel errors to HTTP responses (via the `fail()` helper in
// this package). These codes provide clients with a stable, machine-readable
// error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, forbidden, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Service sentinels map onto four families: not-found → 404, unauthorized
//     → 403, invalid-state and duplicates → 409, invalid-argument → 400.
//     Anything unrecognized is a 500 with a generic message; the raw error is
//     logged server-side, never echoed to the client.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "conflict",
//	  "message": "review already exists for this booking"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/servx/servx-server/internal/http/middleware"
	"github.com/servx/servx-server/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeStaleState       = "stale_state"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// failService translates a service-layer error into the standard envelope.
// The message of a recognized sentinel is stable and safe to expose.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrBookingNotFound),
		errors.Is(err, services.ErrMessageNotFound),
		errors.Is(err, services.ErrServiceNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())

	case errors.Is(err, services.ErrNotProvider),
		errors.Is(err, services.ErrNotSeeker),
		errors.Is(err, services.ErrNotParticipant):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())

	case errors.Is(err, services.ErrStaleState):
		fail(c, http.StatusConflict, ErrCodeStaleState, err.Error())

	case errors.Is(err, services.ErrRequestNotPending),
		errors.Is(err, services.ErrRequestNotAccepted),
		errors.Is(err, services.ErrChatInactive),
		errors.Is(err, services.ErrNoProposal),
		errors.Is(err, services.ErrBookingNotUpcoming),
		errors.Is(err, services.ErrBookingNotCompleted),
		errors.Is(err, services.ErrProviderNotMarkedComplete),
		errors.Is(err, services.ErrDuplicateReview):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())

	case errors.Is(err, services.ErrRecipientMismatch),
		errors.Is(err, services.ErrMessageRequestMismatch),
		errors.Is(err, services.ErrIncompleteProposal),
		errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrEmptyContent):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())

	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// Package services defines the business logic for service requests, chat,
// bookings, reviews, and notifications. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// The sentinels fall into five families that the handler layer maps onto
// HTTP statuses: not-found (404), unauthorized (403), invalid-state (409),
// invalid-argument (400), and duplicate (409). Errors are raised at the
// point of detection and propagate unmodified to the boundary; unexpected
// DB errors bubble raw and are only logged at the outermost layer.
package services

import "errors"

// Not-found errors: the referenced entity does not exist.
var (
	// ErrRequestNotFound indicates the service request does not exist.
	ErrRequestNotFound = errors.New("service request not found")

	// ErrBookingNotFound indicates the booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrMessageNotFound indicates the chat message does not exist.
	ErrMessageNotFound = errors.New("chat message not found")

	// ErrServiceNotFound indicates the service profile does not exist.
	ErrServiceNotFound = errors.New("service profile not found")

	// ErrUserNotFound indicates the user directory has no such entry.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotificationNotFound indicates the notification does not exist or
	// is not addressed to the caller.
	ErrNotificationNotFound = errors.New("notification not found")
)

// Unauthorized errors: the acting identity is not a permitted party.
var (
	// ErrNotProvider is returned when an action reserved for the request's
	// or booking's provider is attempted by someone else.
	ErrNotProvider = errors.New("acting user is not the provider")

	// ErrNotSeeker is returned when an action reserved for the request's or
	// booking's seeker is attempted by someone else.
	ErrNotSeeker = errors.New("acting user is not the seeker")

	// ErrNotParticipant is returned when the acting user is neither party of
	// the request or booking.
	ErrNotParticipant = errors.New("acting user is not a party to this conversation")
)

// Invalid-state errors: the entity exists but its current state forbids the
// requested transition.
var (
	// ErrRequestNotPending is returned when accepting a request that is no
	// longer PENDING.
	ErrRequestNotPending = errors.New("request is not pending")

	// ErrRequestNotAccepted is returned when confirming or rejecting a
	// proposal on a request that is not currently ACCEPTED.
	ErrRequestNotAccepted = errors.New("request is not accepted")

	// ErrChatInactive is returned when sending a message while the owning
	// request's status does not permit negotiation.
	ErrChatInactive = errors.New("chat is not active for this service request")

	// ErrNoProposal is returned when redeeming a message that carries no
	// booking proposal.
	ErrNoProposal = errors.New("message does not contain a booking proposal")

	// ErrBookingNotUpcoming is returned when mutating a booking that has
	// already reached a terminal state.
	ErrBookingNotUpcoming = errors.New("booking is not upcoming")

	// ErrBookingNotCompleted is returned when reviewing a booking that has
	// not completed the handshake.
	ErrBookingNotCompleted = errors.New("booking is not completed")

	// ErrProviderNotMarkedComplete is returned when the seeker confirms
	// completion before the provider's phase of the handshake.
	ErrProviderNotMarkedComplete = errors.New("provider has not marked this booking complete")

	// ErrStaleState is returned when a concurrent writer won a race on the
	// same entity and the observed state is no longer current.
	ErrStaleState = errors.New("entity was modified concurrently")
)

// Invalid-argument errors: malformed or inconsistent input.
var (
	// ErrRecipientMismatch is returned when a caller-supplied recipient hint
	// does not match the computed other party.
	ErrRecipientMismatch = errors.New("recipient does not match the other party of the request")

	// ErrMessageRequestMismatch is returned when the referenced message does
	// not belong to the referenced request.
	ErrMessageRequestMismatch = errors.New("message does not belong to this request")

	// ErrIncompleteProposal is returned when a proposal lacks the agreed
	// time or the duration.
	ErrIncompleteProposal = errors.New("proposal requires agreed date/time and duration")

	// ErrInvalidRating is returned when a review rating is outside [1,5].
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrEmptyContent is returned when a chat message has no content.
	ErrEmptyContent = errors.New("message content is empty")
)

// Duplicate errors: uniqueness violations.
var (
	// ErrDuplicateReview is returned when a reviewer already reviewed the
	// booking.
	ErrDuplicateReview = errors.New("review already exists for this booking")
)

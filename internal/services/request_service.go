// Package services – RequestService
//
// This file implements the service-request state machine. A seeker opens a
// request against a published service profile (PENDING), the provider
// accepts it (ACCEPTED), and the seeker may redeem a booking proposal from
// the chat thread (BOOKING_CONFIRMED) or reject it (status unchanged, so a
// new proposal can follow). Every transition runs inside a transaction and
// is guarded by a conditional update on the current status, so two racing
// mutations on the same request resolve to one winner and one ErrStaleState.
//
// Service-level errors (ErrRequestNotFound, ErrNotProvider, ...) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/repo"
)

// RequestAddress is the address snapshot supplied when creating a request.
type RequestAddress struct {
	AddressLine string
	City        string
	ZipCode     string
	Country     string
}

// CreateRequestInput carries the seeker's payload for a new request.
type CreateRequestInput struct {
	ServiceID   string
	Description string
	Severity    domain.RequestSeverity
	Address     RequestAddress
}

// RequestService owns the request lifecycle and the proposal-redemption
// path. It delegates booking materialization to BookingService so that a
// Booking can only ever come into existence through a confirmed proposal.
type RequestService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Bookings materializes bookings from redeemed proposals.
	Bookings *BookingService
	// Notifier records state-transition events. Best-effort.
	Notifier Notifier
}

// Create builds a request in PENDING state against the given service
// profile. The provider is derived from the profile owner and never changes
// afterwards; the address is stored as a snapshot.
func (s *RequestService) Create(ctx context.Context, seekerID string, in CreateRequestInput) (*domain.ServiceRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", seekerID),
			attribute.String("service.id", in.ServiceID),
		),
	)
	defer span.End()

	if strings.TrimSpace(in.Description) == "" {
		return nil, ErrEmptyContent
	}

	seeker, err := repo.GetUser(ctx, s.DB, seekerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	profile, err := repo.GetServiceProfile(ctx, s.DB, in.ServiceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	req := &domain.ServiceRequest{
		Description: strings.TrimSpace(in.Description),
		Severity:    in.Severity,
		Status:      domain.RequestPending,
		AddressLine: in.Address.AddressLine,
		City:        in.Address.City,
		ZipCode:     in.Address.ZipCode,
		Country:     in.Address.Country,
		ServiceID:   profile.ID,
		SeekerID:    seeker.ID,
		ProviderID:  profile.ProviderID,
	}
	if err := repo.CreateServiceRequest(ctx, s.DB, req); err != nil {
		return nil, err
	}

	s.Notifier.Emit(ctx, profile.ProviderID, domain.NotificationNewRequest, domain.NotificationPayload{
		ServiceRequestID: req.ID,
		Message:          "New service request from " + seeker.FullName(),
		ActingUserID:     seeker.ID,
	})
	return req, nil
}

// Accept moves a PENDING request to ACCEPTED, unlocking the chat. Only the
// request's provider may accept, and only while the request is still
// PENDING; accepting twice or after a confirmed booking fails.
func (s *RequestService) Accept(ctx context.Context, providerID, requestID string) (*domain.ServiceRequest, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "Accept",
		trace.WithAttributes(
			attribute.String("user.id", providerID),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	var req *domain.ServiceRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := repo.GetServiceRequest(ctx, tx, requestID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if r.ProviderID != providerID {
			return ErrNotProvider
		}
		if r.Status != domain.RequestPending {
			return ErrRequestNotPending
		}
		n, err := repo.UpdateRequestStatus(ctx, tx, r.ID, domain.RequestPending, domain.RequestAccepted)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleState
		}
		r.Status = domain.RequestAccepted
		req = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notifier.Emit(ctx, req.SeekerID, domain.NotificationRequestAccepted, domain.NotificationPayload{
		ServiceRequestID: req.ID,
		Message:          "Your service request has been accepted",
		ActingUserID:     providerID,
	})
	return req, nil
}

// ConfirmBooking redeems the proposal carried by messageID into a Booking
// and moves the request to BOOKING_CONFIRMED. This is the single path by
// which a Booking comes into existence. Only the seeker may confirm, only
// while the request is ACCEPTED, and only with a message that belongs to
// this request and carries a proposal.
func (s *RequestService) ConfirmBooking(ctx context.Context, seekerID, requestID, messageID string) (*domain.Booking, error) {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "ConfirmBooking",
		trace.WithAttributes(
			attribute.String("user.id", seekerID),
			attribute.String("request.id", requestID),
			attribute.String("message.id", messageID),
		),
	)
	defer span.End()

	seeker, err := repo.GetUser(ctx, s.DB, seekerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var booking *domain.Booking
	var providerID string
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := repo.GetServiceRequest(ctx, tx, requestID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		if req.SeekerID != seeker.ID {
			return ErrNotSeeker
		}
		if req.Status != domain.RequestAccepted {
			return ErrRequestNotAccepted
		}

		msg, err := repo.GetChatMessage(ctx, tx, messageID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrMessageNotFound
			}
			return err
		}
		if msg.ServiceRequestID != req.ID {
			return ErrMessageRequestMismatch
		}
		if msg.Proposal == nil {
			return ErrNoProposal
		}

		b, err := s.Bookings.createFromProposal(ctx, tx, req, msg.Proposal)
		if err != nil {
			return err
		}

		n, err := repo.UpdateRequestStatus(ctx, tx, req.ID, domain.RequestAccepted, domain.RequestBookingConfirmed)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleState
		}

		booking = b
		providerID = req.ProviderID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Notifier.Emit(ctx, providerID, domain.NotificationBookingConfirmed, domain.NotificationPayload{
		ServiceRequestID: requestID,
		BookingID:        booking.ID,
		Message:          "Booking confirmed by " + seeker.FirstName,
		ActingUserID:     seeker.ID,
	})
	return booking, nil
}

// RejectBooking declines the outstanding proposal. The request stays
// ACCEPTED so the parties can negotiate a new proposal in the chat; only the
// provider is told the terms were declined.
func (s *RequestService) RejectBooking(ctx context.Context, seekerID, requestID string) error {
	tr := otel.Tracer("services/RequestService")
	ctx, span := tr.Start(ctx, "RejectBooking",
		trace.WithAttributes(
			attribute.String("user.id", seekerID),
			attribute.String("request.id", requestID),
		),
	)
	defer span.End()

	req, err := repo.GetServiceRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrRequestNotFound
		}
		return err
	}
	if req.SeekerID != seekerID {
		return ErrNotSeeker
	}
	if req.Status != domain.RequestAccepted {
		return ErrRequestNotAccepted
	}

	s.Notifier.Emit(ctx, req.ProviderID, domain.NotificationRequestDeclined, domain.NotificationPayload{
		ServiceRequestID: req.ID,
		Message:          "Booking proposal for this request was declined by the client",
		ActingUserID:     seekerID,
	})
	return nil
}

// Get returns a request to one of its parties.
func (s *RequestService) Get(ctx context.Context, userID, requestID string) (*domain.ServiceRequest, error) {
	req, err := repo.GetServiceRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if _, ok := req.OtherParty(userID); !ok {
		return nil, ErrNotParticipant
	}
	return req, nil
}

// ListForSeeker returns the user's requests as seeker, newest first.
func (s *RequestService) ListForSeeker(ctx context.Context, seekerID string) ([]domain.ServiceRequest, error) {
	return repo.ListRequestsBySeeker(ctx, s.DB, seekerID)
}

// ListForProvider returns the user's requests as provider, newest first.
func (s *RequestService) ListForProvider(ctx context.Context, providerID string) ([]domain.ServiceRequest, error) {
	return repo.ListRequestsByProvider(ctx, s.DB, providerID)
}

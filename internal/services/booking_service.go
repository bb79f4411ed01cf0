// Package services – BookingService
//
// This file implements the booking lifecycle: materialization from a
// redeemed proposal, the two-phase completion handshake (provider marks
// complete, seeker confirms), cancellation by either party, and the query
// surface. UPCOMING is the only mutable state; every mutation is guarded by
// a conditional update so racing writers resolve to one winner.
//
// Bookings are never created directly: createFromProposal is only reachable
// through RequestService.ConfirmBooking, inside that call's transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/repo"
)

// Column names selecting which side of the marketplace a booking query
// addresses. Only these constants are ever passed to the repo layer.
const (
	seekerColumn   = "seeker_id"
	providerColumn = "provider_id"
)

// BookingService implements the booking lifecycle use-cases.
type BookingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Notifier records state-transition events. Best-effort.
	Notifier Notifier
}

// newBookingNumber generates the human-readable booking reference:
// "BK-" plus eight uppercase hex characters.
func newBookingNumber() string {
	return "BK-" + strings.ToUpper(uuid.NewString()[:8])
}

// createFromProposal materializes a Booking from a redeemed proposal, using
// the caller's transaction handle. Price bounds fall back to the profile
// list price when the proposal omits them; the location is copied verbatim
// from the request's address snapshot.
func (s *BookingService) createFromProposal(ctx context.Context, tx *gorm.DB, req *domain.ServiceRequest, p *domain.BookingProposal) (*domain.Booking, error) {
	if !p.Complete() {
		return nil, ErrIncompleteProposal
	}

	profile, err := repo.GetServiceProfile(ctx, tx, req.ServiceID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}

	priceMin := profile.Price
	if p.PriceMin != nil {
		priceMin = *p.PriceMin
	}
	priceMax := priceMin
	if p.PriceMax != nil {
		priceMax = *p.PriceMax
	}

	b := &domain.Booking{
		BookingNumber:          newBookingNumber(),
		ScheduledStart:         p.AgreedDateTime,
		DurationMinutes:        p.DurationMinutes,
		PriceMin:               priceMin,
		PriceMax:               priceMax,
		Notes:                  p.Notes,
		Status:                 domain.BookingUpcoming,
		ProviderMarkedComplete: false,
		LocationAddressLine:    req.AddressLine,
		LocationCity:           req.City,
		LocationZipCode:        req.ZipCode,
		LocationCountry:        req.Country,
		ServiceRequestID:       req.ID,
		ProviderID:             req.ProviderID,
		SeekerID:               req.SeekerID,
		ServiceID:              req.ServiceID,
	}
	if err := repo.CreateBooking(ctx, tx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// MarkCompletedByProvider is phase one of the completion handshake. The
// booking stays UPCOMING; only the flag flips. Re-marking while still
// UPCOMING is harmless, but once the booking left UPCOMING the call fails.
func (s *BookingService) MarkCompletedByProvider(ctx context.Context, providerID, bookingID string) error {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "MarkCompletedByProvider",
		trace.WithAttributes(
			attribute.String("user.id", providerID),
			attribute.String("booking.id", bookingID),
		),
	)
	defer span.End()

	provider, err := repo.GetUser(ctx, s.DB, providerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	var booking *domain.Booking
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := repo.GetBooking(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.ProviderID != provider.ID {
			return ErrNotProvider
		}
		if b.Status != domain.BookingUpcoming {
			return ErrBookingNotUpcoming
		}
		n, err := repo.MarkProviderComplete(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleState
		}
		booking = b
		return nil
	})
	if err != nil {
		return err
	}

	s.Notifier.Emit(ctx, booking.SeekerID, domain.NotificationProviderMarkedDone, domain.NotificationPayload{
		ServiceRequestID: booking.ServiceRequestID,
		BookingID:        booking.ID,
		Message:          fmt.Sprintf("Provider %s marked booking #%s as completed. Please confirm.", provider.FirstName, booking.BookingNumber),
		ActingUserID:     provider.ID,
	})
	return nil
}

// ConfirmCompletionBySeeker is phase two of the handshake and the only path
// to COMPLETED. Confirming an already COMPLETED booking succeeds as a no-op
// without re-emitting the notification, so duplicate clicks and retries are
// safe.
func (s *BookingService) ConfirmCompletionBySeeker(ctx context.Context, seekerID, bookingID string) error {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "ConfirmCompletionBySeeker",
		trace.WithAttributes(
			attribute.String("user.id", seekerID),
			attribute.String("booking.id", bookingID),
		),
	)
	defer span.End()

	seeker, err := repo.GetUser(ctx, s.DB, seekerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	var booking *domain.Booking
	alreadyCompleted := false
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := repo.GetBooking(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.SeekerID != seeker.ID {
			return ErrNotSeeker
		}
		if !b.ProviderMarkedComplete {
			return ErrProviderNotMarkedComplete
		}
		if b.Status == domain.BookingCompleted {
			alreadyCompleted = true
			return nil
		}
		if b.Status != domain.BookingUpcoming {
			return ErrBookingNotUpcoming
		}
		n, err := repo.UpdateBookingStatus(ctx, tx, b.ID, domain.BookingCompleted)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleState
		}
		booking = b
		return nil
	})
	if err != nil {
		return err
	}
	if alreadyCompleted {
		return nil
	}

	s.Notifier.Emit(ctx, booking.ProviderID, domain.NotificationSeekerConfirmedDone, domain.NotificationPayload{
		ServiceRequestID: booking.ServiceRequestID,
		BookingID:        booking.ID,
		Message:          fmt.Sprintf("Seeker %s confirmed completion for booking #%s.", seeker.FirstName, booking.BookingNumber),
		ActingUserID:     seeker.ID,
	})
	return nil
}

// Cancel moves an UPCOMING booking to the cancelled state matching the
// caller's role and tells the other party. Completed or already-cancelled
// bookings cannot be cancelled again.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID string) error {
	tr := otel.Tracer("services/BookingService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("booking.id", bookingID),
		),
	)
	defer span.End()

	var booking *domain.Booking
	var otherParty string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := repo.GetBooking(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		var cancelled domain.BookingStatus
		switch userID {
		case b.SeekerID:
			cancelled = domain.BookingCancelledBySeeker
			otherParty = b.ProviderID
		case b.ProviderID:
			cancelled = domain.BookingCancelledByProvider
			otherParty = b.SeekerID
		default:
			return ErrNotParticipant
		}

		if b.Status != domain.BookingUpcoming {
			return ErrBookingNotUpcoming
		}
		n, err := repo.UpdateBookingStatus(ctx, tx, b.ID, cancelled)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleState
		}
		booking = b
		return nil
	})
	if err != nil {
		return err
	}

	s.Notifier.Emit(ctx, otherParty, domain.NotificationBookingCancelled, domain.NotificationPayload{
		ServiceRequestID: booking.ServiceRequestID,
		BookingID:        booking.ID,
		Message:          "Booking #" + booking.BookingNumber + " has been cancelled.",
		ActingUserID:     userID,
	})
	return nil
}

// Get returns a booking to one of its parties.
func (s *BookingService) Get(ctx context.Context, userID, bookingID string) (*domain.Booking, error) {
	b, err := repo.GetBooking(ctx, s.DB, bookingID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if userID != b.SeekerID && userID != b.ProviderID {
		return nil, ErrNotParticipant
	}
	return b, nil
}

// GetByRequest returns the booking a confirmed request materialized into, to
// one of the request's parties. A request has at most one booking; before a
// proposal is redeemed there is none and ErrBookingNotFound is returned.
func (s *BookingService) GetByRequest(ctx context.Context, userID, requestID string) (*domain.Booking, error) {
	b, err := repo.GetBookingByRequest(ctx, s.DB, requestID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if userID != b.SeekerID && userID != b.ProviderID {
		return nil, ErrNotParticipant
	}
	return b, nil
}

// ListForProvider returns a page of the provider's bookings in the given
// status, ordered by scheduled start ascending, plus the total count.
func (s *BookingService) ListForProvider(ctx context.Context, providerID string, status domain.BookingStatus, page, pageSize int) ([]domain.Booking, int64, error) {
	return s.listPage(ctx, providerColumn, providerID, status, page, pageSize)
}

// ListForSeeker returns a page of the seeker's bookings in the given status,
// ordered by scheduled start ascending, plus the total count.
func (s *BookingService) ListForSeeker(ctx context.Context, seekerID string, status domain.BookingStatus, page, pageSize int) ([]domain.Booking, int64, error) {
	return s.listPage(ctx, seekerColumn, seekerID, status, page, pageSize)
}

func (s *BookingService) listPage(ctx context.Context, column, userID string, status domain.BookingStatus, page, pageSize int) ([]domain.Booking, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountBookingsByParty(ctx, s.DB, column, userID, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Booking{}, 0, nil
	}

	items, err := repo.ListBookingsByParty(ctx, s.DB, column, userID, status, offset, pageSize)
	return items, total, err
}

// ListForProviderByDateRange returns the provider's bookings whose scheduled
// start falls within [startDate 00:00, endDate+1day 00:00) UTC.
func (s *BookingService) ListForProviderByDateRange(ctx context.Context, providerID string, startDate, endDate time.Time) ([]domain.Booking, error) {
	return s.listRange(ctx, providerColumn, providerID, startDate, endDate)
}

// ListForSeekerByDateRange returns the seeker's bookings whose scheduled
// start falls within [startDate 00:00, endDate+1day 00:00) UTC.
func (s *BookingService) ListForSeekerByDateRange(ctx context.Context, seekerID string, startDate, endDate time.Time) ([]domain.Booking, error) {
	return s.listRange(ctx, seekerColumn, seekerID, startDate, endDate)
}

func (s *BookingService) listRange(ctx context.Context, column, userID string, startDate, endDate time.Time) ([]domain.Booking, error) {
	start := startOfDayUTC(startDate)
	end := startOfDayUTC(endDate).AddDate(0, 0, 1)
	return repo.ListBookingsByDateRange(ctx, s.DB, column, userID, start, end)
}

// startOfDayUTC truncates a timestamp to midnight UTC of its calendar day.
func startOfDayUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

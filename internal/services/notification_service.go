// Package services – NotificationService
//
// This file implements the notification emitter and the user-facing
// notification feed. State transitions in the request/booking services call
// Emit after their primary transaction commits; emission is best-effort and
// a failed insert or push is logged, never propagated, so it can never roll
// back or fail the transition that produced it.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/repo"
)

// Notifier is the contract the state machines depend on. It is satisfied by
// NotificationService and trivially fakeable in tests.
type Notifier interface {
	// Emit records an event addressed to recipientID. Best-effort.
	Emit(ctx context.Context, recipientID string, typ domain.NotificationType, payload domain.NotificationPayload)
}

// Pusher hands a payload to a realtime delivery channel addressed to one
// user. Implementations must not block; delivery failure is acceptable.
type Pusher interface {
	Push(userID string, event any)
}

// NotificationService persists notification events and optionally forwards
// them to a realtime channel.
type NotificationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Push is the optional realtime channel; nil disables forwarding.
	Push Pusher
}

// Emit records the event and forwards it to the realtime channel. Failures
// are logged with full context and swallowed.
func (s *NotificationService) Emit(ctx context.Context, recipientID string, typ domain.NotificationType, payload domain.NotificationPayload) {
	n, err := repo.CreateNotification(ctx, s.DB, recipientID, typ, payload)
	if err != nil {
		log.Error().
			Err(err).
			Str("recipient_id", recipientID).
			Str("type", string(typ)).
			Str("service_request_id", payload.ServiceRequestID).
			Str("booking_id", payload.BookingID).
			Msg("notification emit failed")
		return
	}
	if s.Push != nil {
		s.Push.Push(recipientID, n)
	}
}

// List returns the caller's notifications, optionally unread only.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	return repo.ListNotifications(ctx, s.DB, userID, unreadOnly)
}

// MarkRead flips one notification to read. Only the addressee can do so;
// anyone else observes ErrNotificationNotFound rather than a hint that the
// row exists.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	n, err := repo.MarkNotificationRead(ctx, s.DB, notificationID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Notification model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
)

// CreateNotification inserts one event row addressed to recipientID.
func CreateNotification(ctx context.Context, db *gorm.DB, recipientID string, typ domain.NotificationType, payload domain.NotificationPayload) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Type:        typ,
		Payload:     payload,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first, optionally
// restricted to unread rows.
func ListNotifications(ctx context.Context, db *gorm.DB, recipientID string, unreadOnly bool) ([]domain.Notification, error) {
	q := db.WithContext(ctx).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var out []domain.Notification
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

// MarkNotificationRead flips the read flag on one notification owned by
// recipientID. Returns the affected-row count (0 = absent or not owned).
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id, recipientID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read", true)
	return res.RowsAffected, res.Error
}

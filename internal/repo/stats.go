// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the aggregate query behind the
// conversation-list ETag in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
)

// ConversationDigest summarizes everything that can change a user's
// conversation list: the message ledger (count + newest timestamp), the
// viewer's unread total (mark-read mutates it without adding rows), and the
// newest request update (status transitions bump updated_at without touching
// messages). Any mutation of the list representation moves at least one
// field, which makes the digest a sound ETag source.
type ConversationDigest struct {
	Messages      int64
	Unread        int64
	LastMessageAt *time.Time
	LastChangeAt  *time.Time
}

// ConversationStats computes the digest for userID's conversation list.
func ConversationStats(ctx context.Context, db *gorm.DB, userID string) (ConversationDigest, error) {
	var d ConversationDigest

	msgs := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("sender_id = ? OR recipient_id = ?", userID, userID)
	if err := msgs.Count(&d.Messages).Error; err != nil {
		return ConversationDigest{}, err
	}

	if err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&d.Unread).Error; err != nil {
		return ConversationDigest{}, err
	}

	// Newest timestamps via ORDER BY + LIMIT 1 (avoid MAX() -> TEXT in SQLite).
	if d.Messages > 0 {
		var row struct {
			CreatedAt time.Time
		}
		if err := msgs.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
			return ConversationDigest{}, err
		}
		d.LastMessageAt = &row.CreatedAt
	}

	var reqRow struct {
		UpdatedAt time.Time
	}
	res := db.WithContext(ctx).
		Model(&domain.ServiceRequest{}).
		Where("seeker_id = ? OR provider_id = ?", userID, userID).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&reqRow)
	if res.Error != nil {
		return ConversationDigest{}, res.Error
	}
	if res.RowsAffected > 0 {
		d.LastChangeAt = &reqRow.UpdatedAt
	}

	return d, nil
}

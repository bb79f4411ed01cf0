// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ChatMessage model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
)

// CreateChatMessage inserts a new message row with a server-assigned
// timestamp. The optional proposal is stored through the JSON serializer on
// the model, never as a caller-built string.
func CreateChatMessage(ctx context.Context, db *gorm.DB, requestID, senderID, recipientID, content string, proposal *domain.BookingProposal) (*domain.ChatMessage, error) {
	m := &domain.ChatMessage{
		ID:               uuid.NewString(),
		ServiceRequestID: requestID,
		SenderID:         senderID,
		RecipientID:      recipientID,
		Content:          content,
		Proposal:         proposal,
		CreatedAt:        time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetChatMessage fetches a message by ID, or ErrNotFound if missing.
func GetChatMessage(ctx context.Context, db *gorm.DB, id string) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// CountMessages returns the total number of messages for a request.
func CountMessages(ctx context.Context, db *gorm.DB, requestID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("service_request_id = ?", requestID).
		Count(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered newest first
// (CreatedAt DESC, ID DESC for determinism within one timestamp).
func ListMessagesPage(ctx context.Context, db *gorm.DB, requestID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("service_request_id = ?", requestID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// LatestMessage returns the most recent message of a request, or ErrNotFound
// when the thread is empty.
func LatestMessage(ctx context.Context, db *gorm.DB, requestID string) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	err := db.WithContext(ctx).
		Where("service_request_id = ?", requestID).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountUnread returns how many messages addressed to userID in the request
// are still unread.
func CountUnread(ctx context.Context, db *gorm.DB, requestID, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("service_request_id = ? AND recipient_id = ? AND read = ?", requestID, userID, false).
		Count(&total).Error
	return total, err
}

// MarkMessagesRead flips the read flag for every unread message addressed to
// userID in the request, as one conditional bulk update. The affected-row
// count is returned; repeated calls affect zero rows.
func MarkMessagesRead(ctx context.Context, db *gorm.DB, requestID, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("service_request_id = ? AND recipient_id = ? AND read = ?", requestID, userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Review
// model and the co-located ServiceProfile aggregate update.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
)

// CreateReview inserts a review row. The unique index on
// (booking_id, reviewer_id) turns duplicate submissions into a constraint
// violation that the service layer maps to its Duplicate sentinel.
func CreateReview(ctx context.Context, db *gorm.DB, r *domain.Review) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(r).Error
}

// ReviewExists reports whether userID already reviewed the booking.
func ReviewExists(ctx context.Context, db *gorm.DB, bookingID, userID string) (bool, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("booking_id = ? AND reviewer_id = ?", bookingID, userID).
		Count(&total).Error
	return total > 0, err
}

// CountReviewsByService returns the total reviews for a profile.
func CountReviewsByService(ctx context.Context, db *gorm.DB, serviceID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Review{}).
		Where("service_id = ?", serviceID).
		Count(&total).Error
	return total, err
}

// ListReviewsByServicePage returns a page of reviews for a profile, newest
// first.
func ListReviewsByServicePage(ctx context.Context, db *gorm.DB, serviceID string, offset, limit int) ([]domain.Review, error) {
	var out []domain.Review
	err := db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// IncrementReviewAggregates bumps the profile's review count by one and adds
// rating to its running sum in a single UPDATE, so the aggregate write stays
// atomic with respect to concurrent reviewers.
func IncrementReviewAggregates(ctx context.Context, db *gorm.DB, serviceID string, rating float64) error {
	return db.WithContext(ctx).
		Model(&domain.ServiceProfile{}).
		Where("id = ?", serviceID).
		Updates(map[string]any{
			"review_count": gorm.Expr("review_count + 1"),
			"rating":       gorm.Expr("rating + ?", rating),
		}).Error
}

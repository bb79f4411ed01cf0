// Package services – ReviewService
//
// This file implements review submission and the per-profile review listing.
// A review is only accepted from the seeker of a COMPLETED booking, at most
// once per booking, and its rating is folded into the profile's running
// aggregates inside the same transaction as the insert.
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

// ReviewView is a review enriched with the reviewer's display identity, as
// returned by the per-profile listing.
type ReviewView struct {
	domain.Review
	ReviewerName     string `json:"reviewer_name"`
	ReviewerPhotoURL string `json:"reviewer_photo_url,omitempty"`
}

// ReviewService implements the review use-cases.
type ReviewService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// isDuplicate reports whether err is a uniqueness violation. GORM translates
// these where the dialect supports it; the SQLite driver sometimes surfaces
// the raw constraint message instead, so both are checked.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Submit records the seeker's review of a completed booking and bumps the
// profile aggregates atomically. The pre-insert existence check gives the
// common duplicate a clean error; the unique index catches the race where two
// submissions slip past it, and that violation maps to the same sentinel.
func (s *ReviewService) Submit(ctx context.Context, reviewerID, bookingID string, rating float64, comment string) (*domain.Review, error) {
	tr := otel.Tracer("services/ReviewService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("user.id", reviewerID),
			attribute.String("booking.id", bookingID),
			attribute.Float64("review.rating", rating),
		),
	)
	defer span.End()

	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var review *domain.Review
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := repo.GetBooking(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.SeekerID != reviewerID {
			return ErrNotSeeker
		}
		if b.Status != domain.BookingCompleted {
			return ErrBookingNotCompleted
		}

		exists, err := repo.ReviewExists(ctx, tx, b.ID, reviewerID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReview
		}

		r := &domain.Review{
			BookingID:  b.ID,
			ServiceID:  b.ServiceID,
			ReviewerID: reviewerID,
			Rating:     rating,
			Comment:    strings.TrimSpace(comment),
		}
		if err := repo.CreateReview(ctx, tx, r); err != nil {
			if isDuplicate(err) {
				return ErrDuplicateReview
			}
			return err
		}
		if err := repo.IncrementReviewAggregates(ctx, tx, b.ServiceID, rating); err != nil {
			return err
		}
		review = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ListForService returns one page of a profile's reviews, newest first, with
// the reviewer's name and photo resolved, plus the total count.
func (s *ReviewService) ListForService(ctx context.Context, serviceID string, page, pageSize int) ([]ReviewView, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	ok, err := repo.ServiceProfileExists(ctx, s.DB, serviceID)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, ErrServiceNotFound
	}

	total, err := repo.CountReviewsByService(ctx, s.DB, serviceID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []ReviewView{}, 0, nil
	}

	rows, err := repo.ListReviewsByServicePage(ctx, s.DB, serviceID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ReviewerID)
	}
	users, err := repo.GetUsers(ctx, s.DB, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]ReviewView, 0, len(rows))
	for i := range rows {
		v := ReviewView{Review: rows[i]}
		if u, ok := users[rows[i].ReviewerID]; ok {
			v.ReviewerName = u.FullName()
			v.ReviewerPhotoURL = u.PhotoURL
		}
		out = append(out, v)
	}
	return out, total, nil
}

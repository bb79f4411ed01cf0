// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Booking
// model.
//
// Mutations on bookings are conditional bulk updates guarded by the
// expected current status (and, for completion, the handshake flag), so two
// racing writers cannot both get past a state guard. Callers inspect the
// returned affected-row count.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
)

// CreateBooking inserts a new booking row. The unique index on
// service_request_id enforces the one-booking-per-request invariant at the
// storage level.
func CreateBooking(ctx context.Context, db *gorm.DB, b *domain.Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = domain.BookingUpcoming
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	return db.WithContext(ctx).Create(b).Error
}

// GetBooking fetches a booking by ID, or ErrNotFound if missing.
func GetBooking(ctx context.Context, db *gorm.DB, id string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBookingByRequest fetches the booking belonging to a service request.
func GetBookingByRequest(ctx context.Context, db *gorm.DB, requestID string) (*domain.Booking, error) {
	var b domain.Booking
	if err := db.WithContext(ctx).Where("service_request_id = ?", requestID).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// MarkProviderComplete sets the handshake flag while the booking is still
// UPCOMING. Re-setting an already true flag is harmless, so the guard is on
// status only. Returns the affected-row count (0 = not UPCOMING anymore).
func MarkProviderComplete(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, domain.BookingUpcoming).
		Updates(map[string]any{
			"provider_marked_complete": true,
			"updated_at":               time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// UpdateBookingStatus moves a booking out of UPCOMING into a terminal state.
// For COMPLETED the handshake flag must already be set; the extra predicate
// keeps a racing cancel and confirm from both succeeding. Returns the
// affected-row count.
func UpdateBookingStatus(ctx context.Context, db *gorm.DB, id string, to domain.BookingStatus) (int64, error) {
	q := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, domain.BookingUpcoming)
	if to == domain.BookingCompleted {
		q = q.Where("provider_marked_complete = ?", true)
	}
	res := q.Updates(map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	})
	return res.RowsAffected, res.Error
}

// CountBookingsByParty returns the total bookings for one side of the
// marketplace in a given status, for pagination.
func CountBookingsByParty(ctx context.Context, db *gorm.DB, column, userID string, status domain.BookingStatus) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where(column+" = ? AND status = ?", userID, status).
		Count(&total).Error
	return total, err
}

// ListBookingsByParty returns a page of bookings for one side of the
// marketplace filtered by status, ordered by scheduled start ascending.
// column must be "seeker_id" or "provider_id" (callers pass constants, never
// user input).
func ListBookingsByParty(ctx context.Context, db *gorm.DB, column, userID string, status domain.BookingStatus, offset, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where(column+" = ? AND status = ?", userID, status).
		Order("scheduled_start ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListBookingsByDateRange returns bookings for one side of the marketplace
// whose scheduled start falls in the half-open interval [start, end),
// ordered by scheduled start ascending.
func ListBookingsByDateRange(ctx context.Context, db *gorm.DB, column, userID string, start, end time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := db.WithContext(ctx).
		Where(column+" = ? AND scheduled_start >= ? AND scheduled_start < ?", userID, start, end).
		Order("scheduled_start ASC, id ASC").
		Find(&out).Error
	return out, err
}

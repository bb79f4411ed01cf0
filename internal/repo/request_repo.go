// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ServiceRequest model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// State transitions go through UpdateRequestStatus, which is a conditional
// bulk update guarded by the expected current status. Callers check the
// returned affected-row count: zero means another writer won the race and
// the caller should surface a stale-state failure.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateServiceRequest inserts a new request row in PENDING state. The
// address snapshot is copied verbatim from the arguments; provider must
// already be resolved from the service profile owner.
func CreateServiceRequest(ctx context.Context, db *gorm.DB, r *domain.ServiceRequest) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = domain.RequestPending
	}
	r.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(r).Error
}

// GetServiceRequest fetches a request by ID, or ErrNotFound if missing.
func GetServiceRequest(ctx context.Context, db *gorm.DB, id string) (*domain.ServiceRequest, error) {
	var r domain.ServiceRequest
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRequestStatus moves a request from one status to another. The update
// is conditional on the current status so two racing transitions cannot both
// succeed; the number of affected rows is returned (0 = lost the race or
// wrong state).
func UpdateRequestStatus(ctx context.Context, db *gorm.DB, id string, from, to domain.RequestStatus) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.ServiceRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

// ListRequestsBySeeker returns a seeker's requests, newest first.
func ListRequestsBySeeker(ctx context.Context, db *gorm.DB, seekerID string) ([]domain.ServiceRequest, error) {
	var out []domain.ServiceRequest
	err := db.WithContext(ctx).
		Where("seeker_id = ?", seekerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListRequestsByProvider returns a provider's requests, newest first.
func ListRequestsByProvider(ctx context.Context, db *gorm.DB, providerID string) ([]domain.ServiceRequest, error) {
	var out []domain.ServiceRequest
	err := db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// ListRequestsForUser unions the requests where the user is seeker or
// provider, newest first. A user can never be both parties of one request,
// so no deduplication is needed at the SQL level.
func ListRequestsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.ServiceRequest, error) {
	var out []domain.ServiceRequest
	err := db.WithContext(ctx).
		Where("seeker_id = ? OR provider_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the read-side lookups for the user
// directory and the service-profile catalog. The core only reads these
// tables (aggregate fields excepted, see review_repo.go); their write paths
// live outside this codebase.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
)

// GetUser resolves a directory entry by ID, or ErrNotFound if missing.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUsers resolves several directory entries at once, keyed by ID. Missing
// IDs are simply absent from the map; callers decide whether that is fatal.
func GetUsers(ctx context.Context, db *gorm.DB, ids []string) (map[string]domain.User, error) {
	if len(ids) == 0 {
		return map[string]domain.User{}, nil
	}
	var rows []domain.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]domain.User, len(rows))
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}

// GetServiceProfile resolves a catalog entry by ID, or ErrNotFound.
func GetServiceProfile(ctx context.Context, db *gorm.DB, id string) (*domain.ServiceProfile, error) {
	var p domain.ServiceProfile
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ServiceProfileExists reports whether a catalog entry exists.
func ServiceProfileExists(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ServiceProfile{}).
		Where("id = ?", id).
		Count(&total).Error
	return total > 0, err
}

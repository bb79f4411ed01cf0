package repo

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/servx/servx-server/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// testGraph is the minimal object graph most repo tests need: two users, one
// profile, and one request between them.
type testGraph struct {
	Seeker   *domain.User
	Provider *domain.User
	Profile  *domain.ServiceProfile
	Request  *domain.ServiceRequest
}

func seedGraph(t *testing.T, db *gorm.DB, status domain.RequestStatus) testGraph {
	t.Helper()
	seeker := &domain.User{
		ID:        uuid.NewString(),
		FirstName: "Sam",
		LastName:  "Seeker",
		Email:     uuid.NewString() + "@example.test",
		Role:      "SEEKER",
	}
	provider := &domain.User{
		ID:        uuid.NewString(),
		FirstName: "Pat",
		LastName:  "Provider",
		Email:     uuid.NewString() + "@example.test",
		Role:      "PROVIDER",
	}
	if err := db.Create(seeker).Error; err != nil {
		t.Fatalf("seed seeker: %v", err)
	}
	if err := db.Create(provider).Error; err != nil {
		t.Fatalf("seed provider: %v", err)
	}
	profile := &domain.ServiceProfile{
		ID:           uuid.NewString(),
		ProviderID:   provider.ID,
		CategoryName: "Plumbing",
		AreaName:     "Centrum",
		Price:        60,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	req := &domain.ServiceRequest{
		ID:          uuid.NewString(),
		Description: "leaking sink",
		Severity:    domain.SeverityMedium,
		Status:      status,
		AddressLine: "Main St 1",
		City:        "Utrecht",
		ZipCode:     "3511",
		Country:     "NL",
		ServiceID:   profile.ID,
		SeekerID:    seeker.ID,
		ProviderID:  provider.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.Create(req).Error; err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return testGraph{Seeker: seeker, Provider: provider, Profile: profile, Request: req}
}

func seedGraphBooking(t *testing.T, db *gorm.DB, g testGraph, start time.Time) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		ID:                  uuid.NewString(),
		BookingNumber:       "BK-" + uuid.NewString()[:8],
		ScheduledStart:      start,
		DurationMinutes:     60,
		PriceMin:            60,
		PriceMax:            60,
		Status:              domain.BookingUpcoming,
		LocationAddressLine: g.Request.AddressLine,
		LocationCity:        g.Request.City,
		LocationZipCode:     g.Request.ZipCode,
		LocationCountry:     g.Request.Country,
		ServiceRequestID:    g.Request.ID,
		ProviderID:          g.Provider.ID,
		SeekerID:            g.Seeker.ID,
		ServiceID:           g.Profile.ID,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

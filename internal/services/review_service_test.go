package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/repo"
)

func seedCompletedBooking(t *testing.T, db *gorm.DB, req *domain.ServiceRequest) *domain.Booking {
	t.Helper()
	b := seedBooking(t, db, req, time.Now().Add(-24*time.Hour).UTC())
	db.Model(b).Updates(map[string]any{
		"provider_marked_complete": true,
		"status":                   domain.BookingCompleted,
	})
	b.Status = domain.BookingCompleted
	b.ProviderMarkedComplete = true
	return b
}

func TestReview_Submit_HappyPath(t *testing.T) {
	db := newTestDB(t)
	seeker, provider, profile := seedMarketplace(t, db)
	req := seedRequest(t, db, profile.ID, seeker.ID, provider.ID, domain.RequestCompleted)
	b := seedCompletedBooking(t, db, req)
	svc := &ReviewService{DB: db}

	review, err := svc.Submit(context.Background(), seeker.ID, b.ID, 4, "  solid work  ")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if review.Rating != 4 || review.Comment != "solid work" {
		t.Fatalf("unexpected review %+v", review)
	}
	if review.ServiceID != profile.ID {
		t.Fatalf("service id not denormalized from booking")
	}

	// Aggregates: one review of 4 -> sum 4, count 1, average 4.
	p, err := repo.GetServiceProfile(context.Background(), db, profile.ID)
	if err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if p.ReviewCount != 1 || p.Rating != 4 || p.AverageRating() != 4 {
		t.Fatalf("aggregates wrong: count=%d sum=%v avg=%v", p.ReviewCount, p.Rating, p.AverageRating())
	}
}

func TestReview_Submit_Guards(t *testing.T) {
	db := newTestDB(t)
	seeker, provider, profile := seedMarketplace(t, db)
	svc := &ReviewService{DB: db}
	ctx := context.Background()

	// Rating bounds are rejected before any lookup.
	if _, err := svc.Submit(ctx, seeker.ID, uuid.NewString(), 0, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating for 0, got %v", err)
	}
	if _, err := svc.Submit(ctx, seeker.ID, uuid.NewString(), 5.5, ""); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating for 5.5, got %v", err)
	}
	if _, err := svc.Submit(ctx, seeker.ID, uuid.NewString(), 3, ""); !errors.Is(err, ErrBookingNotFound) {
		t.Fatalf("expected ErrBookingNotFound, got %v", err)
	}

	// An UPCOMING booking cannot be reviewed, and neither can the provider.
	req := seedRequest(t, db, profile.ID, seeker.ID, provider.ID, domain.RequestBookingConfirmed)
	upcoming := seedBooking(t, db, req, time.Now().Add(24*time.Hour).UTC())
	if _, err := svc.Submit(ctx, seeker.ID, upcoming.ID, 3, ""); !errors.Is(err, ErrBookingNotCompleted) {
		t.Fatalf("expected ErrBookingNotCompleted, got %v", err)
	}
	if _, err := svc.Submit(ctx, provider.ID, upcoming.ID, 3, ""); !errors.Is(err, ErrNotSeeker) {
		t.Fatalf("expected ErrNotSeeker, got %v", err)
	}
}

func TestReview_Submit_DuplicateRejected(t *testing.T) {
	db := newTestDB(t)
	seeker, provider, profile := seedMarketplace(t, db)
	req := seedRequest(t, db, profile.ID, seeker.ID, provider.ID, domain.RequestCompleted)
	b := seedCompletedBooking(t, db, req)
	svc := &ReviewService{DB: db}
	ctx := context.Background()

	if _, err := svc.Submit(ctx, seeker.ID, b.ID, 5, "great"); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	if _, err := svc.Submit(ctx, seeker.ID, b.ID, 1, "changed my mind"); !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}

	// The rejected duplicate must not have touched the aggregates.
	p, _ := repo.GetServiceProfile(ctx, db, profile.ID)
	if p.ReviewCount != 1 || p.Rating != 5 {
		t.Fatalf("aggregates corrupted by duplicate: count=%d sum=%v", p.ReviewCount, p.Rating)
	}
}

func TestReview_Averages_AcrossBookings(t *testing.T) {
	db := newTestDB(t)
	seeker, provider, profile := seedMarketplace(t, db)
	other := seedUser(t, db, uuid.NewString(), "Noor", "Visser", "SEEKER")
	svc := &ReviewService{DB: db}
	ctx := context.Background()

	r1 := seedRequest(t, db, profile.ID, seeker.ID, provider.ID, domain.RequestCompleted)
	b1 := seedCompletedBooking(t, db, r1)
	r2 := seedRequest(t, db, profile.ID, other.ID, provider.ID, domain.RequestCompleted)
	b2 := seedCompletedBooking(t, db, r2)

	if _, err := svc.Submit(ctx, seeker.ID, b1.ID, 5, ""); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if _, err := svc.Submit(ctx, other.ID, b2.ID, 4, ""); err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	p, _ := repo.GetServiceProfile(ctx, db, profile.ID)
	if p.ReviewCount != 2 || p.Rating != 9 {
		t.Fatalf("expected sum=9 count=2, got sum=%v count=%d", p.Rating, p.ReviewCount)
	}
	if p.AverageRating() != 4.5 {
		t.Fatalf("expected average 4.5, got %v", p.AverageRating())
	}
}

func TestReview_ListForService(t *testing.T) {
	db := newTestDB(t)
	seeker, provider, profile := seedMarketplace(t, db)
	req := seedRequest(t, db, profile.ID, seeker.ID, provider.ID, domain.RequestCompleted)
	b := seedCompletedBooking(t, db, req)
	svc := &ReviewService{DB: db}
	ctx := context.Background()

	if _, err := svc.Submit(ctx, seeker.ID, b.ID, 5, "spotless"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	views, total, err := svc.ListForService(ctx, profile.ID, 1, 10)
	if err != nil {
		t.Fatalf("ListForService: %v", err)
	}
	if total != 1 || len(views) != 1 {
		t.Fatalf("expected one review, got total=%d len=%d", total, len(views))
	}
	if views[0].ReviewerName != seeker.FullName() {
		t.Fatalf("reviewer identity not resolved, got %q", views[0].ReviewerName)
	}

	if _, _, err := svc.ListForService(ctx, uuid.NewString(), 1, 10); !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

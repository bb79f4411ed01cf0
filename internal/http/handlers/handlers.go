// Handler wiring shared by all endpoint files.
//
// Handlers are transport-thin: they validate input, resolve the caller
// identity, call application services, and translate results (including
// sentinel errors) into HTTP responses. Business rules live exclusively in
// the services package.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/servx/servx-server/internal/domain"
	"github.com/servx/servx-server/internal/services"
	"github.com/servx/servx-server/internal/utils"
)

//
// Service contracts (context-aware)
//

// RequestService defines the service-request lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type RequestService interface {
	// Create opens a PENDING request for seekerID against a service profile.
	Create(ctx context.Context, seekerID string, in services.CreateRequestInput) (*domain.ServiceRequest, error)
	// Accept moves a PENDING request to ACCEPTED on behalf of its provider.
	Accept(ctx context.Context, providerID, requestID string) (*domain.ServiceRequest, error)
	// ConfirmBooking redeems a proposal message into a Booking.
	ConfirmBooking(ctx context.Context, seekerID, requestID, messageID string) (*domain.Booking, error)
	// RejectBooking declines the outstanding proposal without a status change.
	RejectBooking(ctx context.Context, seekerID, requestID string) error
	// Get returns a request to one of its parties.
	Get(ctx context.Context, userID, requestID string) (*domain.ServiceRequest, error)
	// ListForSeeker returns the user's requests as seeker, newest first.
	ListForSeeker(ctx context.Context, seekerID string) ([]domain.ServiceRequest, error)
	// ListForProvider returns the user's requests as provider, newest first.
	ListForProvider(ctx context.Context, providerID string) ([]domain.ServiceRequest, error)
}

// BookingService defines the booking lifecycle operations consumed by HTTP
// handlers.
type BookingService interface {
	// MarkCompletedByProvider is phase one of the completion handshake.
	MarkCompletedByProvider(ctx context.Context, providerID, bookingID string) error
	// ConfirmCompletionBySeeker is phase two and the only path to COMPLETED.
	ConfirmCompletionBySeeker(ctx context.Context, seekerID, bookingID string) error
	// Cancel moves an UPCOMING booking to the caller's cancelled state.
	Cancel(ctx context.Context, userID, bookingID string) error
	// Get returns a booking to one of its parties.
	Get(ctx context.Context, userID, bookingID string) (*domain.Booking, error)
	// GetByRequest returns the booking a confirmed request materialized into.
	GetByRequest(ctx context.Context, userID, requestID string) (*domain.Booking, error)
	// ListForProvider pages the provider's bookings in one status.
	ListForProvider(ctx context.Context, providerID string, status domain.BookingStatus, page, pageSize int) ([]domain.Booking, int64, error)
	// ListForSeeker pages the seeker's bookings in one status.
	ListForSeeker(ctx context.Context, seekerID string, status domain.BookingStatus, page, pageSize int) ([]domain.Booking, int64, error)
	// ListForProviderByDateRange returns the provider's schedule window.
	ListForProviderByDateRange(ctx context.Context, providerID string, startDate, endDate time.Time) ([]domain.Booking, error)
	// ListForSeekerByDateRange returns the seeker's schedule window.
	ListForSeekerByDateRange(ctx context.Context, seekerID string, startDate, endDate time.Time) ([]domain.Booking, error)
}

// ChatService defines the negotiation-chat operations consumed by HTTP
// handlers.
type ChatService interface {
	// Send appends a message (optionally carrying a proposal) to a thread.
	Send(ctx context.Context, senderID, requestID, content, recipientHint string, proposal *domain.BookingProposal) (*domain.ChatMessage, error)
	// Conversations builds the caller's inbox, newest activity first.
	Conversations(ctx context.Context, userID string) ([]services.ConversationSummary, error)
	// History pages a thread newest first and returns the total count.
	History(ctx context.Context, userID, requestID string, page, pageSize int) ([]domain.ChatMessage, int64, error)
	// MarkRead marks the caller's unread messages in a thread as read.
	MarkRead(ctx context.Context, userID, requestID string) (int64, error)
}

// ReviewService defines the review operations consumed by HTTP handlers.
type ReviewService interface {
	// Submit records a review of a completed booking.
	Submit(ctx context.Context, reviewerID, bookingID string, rating float64, comment string) (*domain.Review, error)
	// ListForService pages a profile's reviews with reviewer identity.
	ListForService(ctx context.Context, serviceID string, page, pageSize int) ([]services.ReviewView, int64, error)
}

// NotificationService defines the notification-feed operations consumed by
// HTTP handlers.
type NotificationService interface {
	// List returns the caller's notifications, optionally unread only.
	List(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
	// MarkRead flips one of the caller's notifications to read.
	MarkRead(ctx context.Context, userID, notificationID string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for requests, bookings, chat, reviews,
// and notifications. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	requestSvc RequestService
	bookingSvc BookingService
	chatSvc    ChatService
	reviewSvc  ReviewService
	notifSvc   NotificationService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(requestSvc RequestService, bookingSvc BookingService, chatSvc ChatService, reviewSvc ReviewService, notifSvc NotificationService) *Handlers {
	return &Handlers{
		requestSvc: requestSvc,
		bookingSvc: bookingSvc,
		chatSvc:    chatSvc,
		reviewSvc:  reviewSvc,
		notifSvc:   notifSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header. The core
// trusts the deployment edge to have authenticated the caller.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

// requireUser resolves the caller identity or fails the request with 401.
func requireUser(c *gin.Context) (string, bool) {
	uid := userID(c)
	if uid == "" {
		fail(c, 401, ErrCodeUnauthorized, "caller identity required (X-User-ID)")
		return "", false
	}
	return uid, true
}

//
// Shared DTOs and helpers
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// newPagination derives the metadata block from a page request and total.
func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// Package domain defines the persistence models for the service marketplace:
// users, service profiles, service requests, chat messages, bookings, and
// reviews. These types are mapped with GORM and form the core data layer of
// the application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// RequestSeverity ranks how urgent a service request is. Severity is
// informational only; it never influences state transitions.
type RequestSeverity string

// Request severity levels.
const (
	SeverityUrgent RequestSeverity = "URGENT"
	SeverityHigh   RequestSeverity = "HIGH"
	SeverityMedium RequestSeverity = "MEDIUM"
	SeverityLow    RequestSeverity = "LOW"
)

// RequestStatus is the lifecycle state of a ServiceRequest.
//
// Transitions: PENDING → {ACCEPTED, DECLINED}; ACCEPTED → BOOKING_CONFIRMED
// (by redeeming a proposal). BOOKING_CONFIRMED is terminal for the request;
// further lifecycle lives on the Booking.
type RequestStatus string

// Request lifecycle states.
const (
	RequestPending          RequestStatus = "PENDING"
	RequestAccepted         RequestStatus = "ACCEPTED"
	RequestDeclined         RequestStatus = "DECLINED"
	RequestCompleted        RequestStatus = "COMPLETED"
	RequestBookingConfirmed RequestStatus = "BOOKING_CONFIRMED"
)

// BookingStatus is the lifecycle state of a Booking.
//
// Transitions: UPCOMING → COMPLETED (two-phase handshake) and
// UPCOMING → CANCELLED_BY_*. All non-UPCOMING states are final.
type BookingStatus string

// Booking lifecycle states.
const (
	BookingUpcoming            BookingStatus = "UPCOMING"
	BookingCompleted           BookingStatus = "COMPLETED"
	BookingCancelledBySeeker   BookingStatus = "CANCELLED_BY_SEEKER"
	BookingCancelledByProvider BookingStatus = "CANCELLED_BY_PROVIDER"
)

// User is a directory entry for a marketplace participant. The core trusts
// an already-authenticated caller identity; credential data lives elsewhere.
type User struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	FirstName string    `json:"first_name" gorm:"type:varchar(64);not null"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(64);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:role IN ('SEEKER','PROVIDER')"`
	PhotoURL  string    `json:"photo_url,omitempty"  gorm:"type:varchar(512)"`
	Verified  bool      `json:"verified"   gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// FullName joins first and last name for display.
func (u *User) FullName() string { return u.FirstName + " " + u.LastName }

// ServiceProfile is a provider's published offering. Rating holds the
// running sum of review ratings; the average is Rating/ReviewCount,
// computed at read time and never stored.
type ServiceProfile struct {
	ID           string  `json:"id"            gorm:"type:char(36);primaryKey"`
	ProviderID   string  `json:"provider_id"   gorm:"type:char(36);not null;index"`
	CategoryName string  `json:"category_name" gorm:"type:varchar(128);not null"`
	AreaName     string  `json:"area_name"     gorm:"type:varchar(128);not null"`
	Price        float64 `json:"price"         gorm:"not null"`
	Rating       float64 `json:"-"             gorm:"not null;default:0"`
	ReviewCount  int     `json:"review_count"  gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Provider User `json:"-" gorm:"foreignKey:ProviderID;references:ID"`
}

// TableName returns the database table name for ServiceProfile.
func (ServiceProfile) TableName() string { return "service_profiles" }

// AverageRating returns Rating/ReviewCount, or 0 when unreviewed.
func (p *ServiceProfile) AverageRating() float64 {
	if p.ReviewCount == 0 {
		return 0
	}
	return p.Rating / float64(p.ReviewCount)
}

// ServiceRequest is a seeker's ask for work against a provider's profile.
//
// The address fields are a snapshot copied at creation time, not a live
// reference. Provider is derived from the profile owner at creation and
// never changes. Requests are never hard-deleted; Status reflects terminal
// states.
type ServiceRequest struct {
	ID          string          `json:"id"          gorm:"type:char(36);primaryKey"`
	Description string          `json:"description" gorm:"type:varchar(500);not null"`
	Severity    RequestSeverity `json:"severity"    gorm:"type:varchar(16);not null;check:severity IN ('URGENT','HIGH','MEDIUM','LOW')"`
	Status      RequestStatus   `json:"status"      gorm:"type:varchar(32);not null;default:'PENDING';index"`

	// Address snapshot, copied from the create payload.
	AddressLine string `json:"address_line" gorm:"type:varchar(255);not null"`
	City        string `json:"city"         gorm:"type:varchar(128);not null"`
	ZipCode     string `json:"zip_code"     gorm:"type:varchar(32);not null"`
	Country     string `json:"country"      gorm:"type:varchar(64);not null"`

	ServiceID  string `json:"service_id"  gorm:"type:char(36);not null;index"`
	SeekerID   string `json:"seeker_id"   gorm:"type:char(36);not null;index"`
	ProviderID string `json:"provider_id" gorm:"type:char(36);not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Service  ServiceProfile `json:"-" gorm:"foreignKey:ServiceID;references:ID"`
	Seeker   User           `json:"-" gorm:"foreignKey:SeekerID;references:ID"`
	Provider User           `json:"-" gorm:"foreignKey:ProviderID;references:ID"`
}

// TableName returns the database table name for ServiceRequest.
func (ServiceRequest) TableName() string { return "service_requests" }

// OtherParty returns the counterpart of userID on this request, and whether
// userID is a party at all.
func (r *ServiceRequest) OtherParty(userID string) (string, bool) {
	switch userID {
	case r.SeekerID:
		return r.ProviderID, true
	case r.ProviderID:
		return r.SeekerID, true
	}
	return "", false
}

// ChatActive reports whether messaging is allowed for the given request
// status. Negotiation is meaningful only once the provider has accepted.
func ChatActive(s RequestStatus) bool {
	return s == RequestAccepted || s == RequestBookingConfirmed
}

// BookingProposal is the structured scheduling/price terms a party embeds in
// a chat message. It is redeemed (at most once per request) into a Booking.
// PriceMin/PriceMax are optional; redemption falls back to the profile list
// price when absent.
type BookingProposal struct {
	AgreedDateTime  time.Time `json:"agreed_date_time"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceMin        *float64  `json:"price_min,omitempty"`
	PriceMax        *float64  `json:"price_max,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// Complete reports whether the proposal carries both required fields for
// redemption.
func (p *BookingProposal) Complete() bool {
	return p != nil && !p.AgreedDateTime.IsZero() && p.DurationMinutes > 0
}

// ChatMessage is one utterance in a request's negotiation thread. Recipient
// is always the other party relative to Sender. A message may carry at most
// one proposal. Messages are created on send, mutated only to flip Read,
// and never deleted.
type ChatMessage struct {
	ID               string           `json:"id"                 gorm:"type:char(36);primaryKey"`
	ServiceRequestID string           `json:"service_request_id" gorm:"type:char(36);not null;index:idx_request_msgs,priority:1"`
	SenderID         string           `json:"sender_id"          gorm:"type:char(36);not null"`
	RecipientID      string           `json:"recipient_id"       gorm:"type:char(36);not null;index"`
	Content          string           `json:"content"            gorm:"type:text;not null"`
	Read             bool             `json:"read"               gorm:"not null;default:false"`
	Proposal         *BookingProposal `json:"proposal,omitempty" gorm:"serializer:json"`
	CreatedAt        time.Time        `json:"created_at"         gorm:"index:idx_request_msgs,priority:2"`

	ServiceRequest ServiceRequest `json:"-" gorm:"foreignKey:ServiceRequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Sender         User           `json:"-" gorm:"foreignKey:SenderID;references:ID"`
	Recipient      User           `json:"-" gorm:"foreignKey:RecipientID;references:ID"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }

// Booking is the confirmed, scheduled engagement materialized from a
// redeemed proposal. Exactly one Booking exists per ServiceRequest.
//
// The location fields are copied from the request's address snapshot at
// creation time and are independently mutable thereafter.
type Booking struct {
	ID              string        `json:"id"                gorm:"type:char(36);primaryKey"`
	BookingNumber   string        `json:"booking_number"    gorm:"type:varchar(16);not null;uniqueIndex"`
	ScheduledStart  time.Time     `json:"scheduled_start_time" gorm:"not null;index"`
	DurationMinutes int           `json:"duration_minutes"  gorm:"not null"`
	PriceMin        float64       `json:"price_min"         gorm:"not null"`
	PriceMax        float64       `json:"price_max"         gorm:"not null"`
	Notes           string        `json:"notes,omitempty"   gorm:"type:text"`
	Status          BookingStatus `json:"status"            gorm:"type:varchar(32);not null;default:'UPCOMING';index"`

	// ProviderMarkedComplete is phase one of the completion handshake. The
	// booking stays UPCOMING until the seeker independently confirms.
	ProviderMarkedComplete bool `json:"provider_marked_complete" gorm:"not null;default:false"`

	LocationAddressLine string `json:"location_address_line" gorm:"type:varchar(255);not null"`
	LocationCity        string `json:"location_city"         gorm:"type:varchar(128);not null"`
	LocationZipCode     string `json:"location_zip_code"     gorm:"type:varchar(32);not null"`
	LocationCountry     string `json:"location_country"      gorm:"type:varchar(64);not null"`

	ServiceRequestID string `json:"service_request_id" gorm:"type:char(36);not null;uniqueIndex"`
	ProviderID       string `json:"provider_id"        gorm:"type:char(36);not null;index"`
	SeekerID         string `json:"seeker_id"          gorm:"type:char(36);not null;index"`
	ServiceID        string `json:"service_id"         gorm:"type:char(36);not null;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ServiceRequest ServiceRequest `json:"-" gorm:"foreignKey:ServiceRequestID;references:ID"`
	Provider       User           `json:"-" gorm:"foreignKey:ProviderID;references:ID"`
	Seeker         User           `json:"-" gorm:"foreignKey:SeekerID;references:ID"`
	Service        ServiceProfile `json:"-" gorm:"foreignKey:ServiceID;references:ID"`
}

// TableName returns the database table name for Booking.
func (Booking) TableName() string { return "bookings" }

// Review is a seeker's rating of a COMPLETED booking, at most one per
// (booking, reviewer). ServiceID is denormalized from the booking so
// per-profile listings avoid a join.
type Review struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	BookingID  string         `json:"booking_id"  gorm:"type:char(36);not null;index;uniqueIndex:ux_review_booking_reviewer"`
	ServiceID  string         `json:"service_id"  gorm:"type:char(36);not null;index"`
	ReviewerID string         `json:"reviewer_id" gorm:"type:char(36);not null;uniqueIndex:ux_review_booking_reviewer"`
	Rating     float64        `json:"rating"      gorm:"not null;check:rating >= 1 AND rating <= 5"`
	Comment    string         `json:"comment,omitempty" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	Booking  Booking        `json:"-" gorm:"foreignKey:BookingID;references:ID"`
	Service  ServiceProfile `json:"-" gorm:"foreignKey:ServiceID;references:ID"`
	Reviewer User           `json:"-" gorm:"foreignKey:ReviewerID;references:ID"`
}

// TableName returns the database table name for Review.
func (Review) TableName() string { return "reviews" }

// Notification model and its closed type/payload vocabulary.
//
// Notifications are recorded by the core whenever a state transition happens
// (request created/accepted, booking confirmed/cancelled, handshake steps).
// Delivery is best-effort; the rows double as the user-facing notification
// feed.
package domain

import "time"

// NotificationType enumerates every event the core emits. The set is closed:
// handlers and clients may branch on it exhaustively.
type NotificationType string

// Notification event types.
const (
	NotificationNewRequest          NotificationType = "NEW_REQUEST"
	NotificationRequestAccepted     NotificationType = "REQUEST_ACCEPTED"
	NotificationRequestDeclined     NotificationType = "REQUEST_DECLINED"
	NotificationBookingConfirmed    NotificationType = "BOOKING_CONFIRMED"
	NotificationBookingCancelled    NotificationType = "BOOKING_CANCELLED"
	NotificationProviderMarkedDone  NotificationType = "PROVIDER_MARKED_COMPLETE"
	NotificationSeekerConfirmedDone NotificationType = "SEEKER_CONFIRMED_COMPLETION"
	NotificationServiceCompleted    NotificationType = "SERVICE_COMPLETED"
	NotificationSystemAlert         NotificationType = "SYSTEM_ALERT"
)

// NotificationPayload carries the entity references for an event. BookingID
// is only set for booking-scoped types; the NotificationType tags which
// variant of the payload a row holds.
type NotificationPayload struct {
	ServiceRequestID string `json:"service_request_id,omitempty"`
	BookingID        string `json:"booking_id,omitempty"`
	Message          string `json:"message"`
	ActingUserID     string `json:"acting_user_id,omitempty"`
}

// Notification is one recorded event addressed to a user.
type Notification struct {
	ID          string              `json:"id"           gorm:"type:char(36);primaryKey"`
	RecipientID string              `json:"recipient_id" gorm:"type:char(36);not null;index"`
	Type        NotificationType    `json:"type"         gorm:"type:varchar(40);not null"`
	Payload     NotificationPayload `json:"payload"      gorm:"serializer:json"`
	Read        bool                `json:"read"         gorm:"not null;default:false"`
	CreatedAt   time.Time           `json:"created_at"`

	Recipient User `json:"-" gorm:"foreignKey:RecipientID;references:ID"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

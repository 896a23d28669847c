package models

import "time"

// Domain event types pushed to the broadcast sink.
const (
	EventCheckIn            = "check_in"
	EventCheckOut           = "check_out"
	EventPromotion          = "promotion"
	EventRegistration       = "registration"
	EventCancellation       = "cancellation"
	EventAttendanceReviewed = "attendance_reviewed"
)

// Notification types delivered to users.
const (
	NotificationPromoted      = "waitlist_promoted"
	NotificationPointsAwarded = "points_awarded"
	NotificationReviewed      = "attendance_reviewed"
)

// Notification is sent to a single user.
type Notification struct {
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	RelatedID string `json:"related_id,omitempty"`
}

// DomainEvent is a state change broadcast to real-time observers.
type DomainEvent struct {
	Type       string      `json:"type"`
	MissionID  string      `json:"mission_id"`
	Payload    interface{} `json:"payload"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// Outbox collects the side effects of a committed operation.
type Outbox struct {
	Notifications []Notification
	Events        []DomainEvent
}

// Notify appends a notification.
func (o *Outbox) Notify(n Notification) {
	o.Notifications = append(o.Notifications, n)
}

// Broadcast appends a domain event.
func (o *Outbox) Broadcast(e DomainEvent) {
	o.Events = append(o.Events, e)
}

// Empty reports whether nothing needs to be emitted.
func (o *Outbox) Empty() bool {
	return o == nil || (len(o.Notifications) == 0 && len(o.Events) == 0)
}

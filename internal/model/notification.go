package model

import (
	"github.com/google/uuid"
)

// EventKey identifies a business occurrence that can trigger notifications.
type EventKey string

// Ticket events
const (
	EventTicketCreated       EventKey = "TICKET_CREATED"
	EventTicketAssigned      EventKey = "TICKET_ASSIGNED"
	EventTicketScheduled     EventKey = "TICKET_SCHEDULED"
	EventTicketStatusChanged EventKey = "TICKET_STATUS_CHANGED"
	EventTicketResolved      EventKey = "TICKET_RESOLVED"
	EventTicketUrgent        EventKey = "TICKET_URGENT"
)

// Inspection events
const (
	EventInspectionAssigned  EventKey = "INSPECTION_ASSIGNED"
	EventInspectionScheduled EventKey = "INSPECTION_SCHEDULED"
	EventInspectionCompleted EventKey = "INSPECTION_COMPLETED"
	EventInspectionDeficient EventKey = "INSPECTION_DEFICIENT"
)

// User events
const (
	EventUserWelcome EventKey = "USER_WELCOME"
	EventUserUpdated EventKey = "USER_UPDATED"
)

// Bulk events
const (
	EventBulkTicketsCreated EventKey = "BULK_TICKETS_CREATED"
)

// Reminder events fired by the scheduler.
const (
	EventTicketReminderToday        EventKey = "TICKET_REMINDER_TODAY"
	EventTicketReminderTomorrow     EventKey = "TICKET_REMINDER_TOMORROW"
	EventTicketOverdue              EventKey = "TICKET_OVERDUE"
	EventInspectionReminderToday    EventKey = "INSPECTION_REMINDER_TODAY"
	EventInspectionReminderTomorrow EventKey = "INSPECTION_REMINDER_TOMORROW"
)

// Priority of an event's delivery.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ChannelName identifies a delivery transport.
type ChannelName string

const (
	ChannelEmail ChannelName = "email"
	ChannelPush  ChannelName = "push"
)

// Event is an immutable descriptor of a notifiable occurrence. Channels is
// an ordered set: dispatch walks it in declared order.
type Event struct {
	Key      EventKey      `json:"key"`
	Title    string        `json:"title"`
	Channels []ChannelName `json:"channels"`
	Priority Priority      `json:"priority"`
}

// Recipient is a normalized addressable target. The opt-in flags are
// tri-state: nil means the user never set a preference and counts as
// opted in.
type Recipient struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       string    `json:"role"`
	EmailOptIn *bool     `json:"email_opt_in,omitempty"`
	PushOptIn  *bool     `json:"push_opt_in,omitempty"`
	PushToken  string    `json:"-"`
}

// EmailEnabled reports whether the recipient may receive email. Absent
// preference counts as opted in.
func (r Recipient) EmailEnabled() bool {
	return r.EmailOptIn == nil || *r.EmailOptIn
}

// PushEnabled reports whether the recipient may receive push messages.
func (r Recipient) PushEnabled() bool {
	return r.PushOptIn == nil || *r.PushOptIn
}

// Meta carries dispatch metadata.
type Meta struct {
	TriggeredBy *uuid.UUID `json:"triggered_by,omitempty"`
}

// NotificationPayload is what callers hand to Notify. Data is event
// specific and opaque to the orchestrator; the channel templates own
// interpreting it.
type NotificationPayload struct {
	Recipients []Recipient            `json:"recipients"`
	Data       map[string]interface{} `json:"data"`
	Meta       Meta                   `json:"meta"`
}

// DeliveryDetail records one per-recipient send attempt.
type DeliveryDetail struct {
	UserID    uuid.UUID `json:"user_id,omitempty"`
	Address   string    `json:"address,omitempty"`
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id,omitempty"`
	LogOnly   bool      `json:"log_only,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// DeliveryReport aggregates a channel's batch send.
type DeliveryReport struct {
	Skipped bool             `json:"skipped,omitempty"`
	Reason  string           `json:"reason,omitempty"`
	Sent    int              `json:"sent"`
	Failed  int              `json:"failed"`
	Details []DeliveryDetail `json:"details,omitempty"`
}

// SkippedReport builds the skip marker used when a channel has nothing to do.
func SkippedReport(reason string) *DeliveryReport {
	return &DeliveryReport{Skipped: true, Reason: reason}
}

// ChannelOutcome is the per-channel entry in a dispatch result.
type ChannelOutcome struct {
	Success bool            `json:"success"`
	Skipped bool            `json:"skipped,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Error   string          `json:"error,omitempty"`
	Report  *DeliveryReport `json:"report,omitempty"`
}

// NotifyResult is the aggregate outcome of one dispatch. It never carries a
// Go error: failures are converted to typed outcomes so fire-and-forget
// callers cannot be crashed by a transport.
type NotifyResult struct {
	Skipped  bool                           `json:"skipped,omitempty"`
	Reason   string                         `json:"reason,omitempty"`
	Err      string                         `json:"error,omitempty"`
	Channels map[ChannelName]ChannelOutcome `json:"channels,omitempty"`
}

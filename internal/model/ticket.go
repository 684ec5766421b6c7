package model

import (
	"time"

	"github.com/google/uuid"
)

// Ticket status constants
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusVerified   = "verified"
)

// Ticket priority constants
const (
	TicketPriorityLow    = "low"
	TicketPriorityMedium = "medium"
	TicketPriorityHigh   = "high"
	TicketPriorityUrgent = "urgent"
)

// Ticket represents a facility work ticket.
type Ticket struct {
	Base
	Title         string     `json:"title" db:"title"`
	Category      string     `json:"category" db:"category"`
	Priority      string     `json:"priority" db:"priority"`
	Status        string     `json:"status" db:"status"`
	LocationID    uuid.UUID  `json:"location_id" db:"location_id"`
	LocationName  string     `json:"location_name" db:"location_name"`
	AssignedTo    *uuid.UUID `json:"assigned_to" db:"assigned_to"`
	ScheduledDate *time.Time `json:"scheduled_date" db:"scheduled_date"`
	DueDate       *time.Time `json:"due_date" db:"due_date"`
}

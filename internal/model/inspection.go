package model

import (
	"time"

	"github.com/google/uuid"
)

// Inspection status constants
const (
	InspectionStatusPending    = "pending"
	InspectionStatusInProgress = "in_progress"
	InspectionStatusCompleted  = "completed"
	InspectionStatusSubmitted  = "submitted"
)

// Inspection represents a scheduled facility inspection.
type Inspection struct {
	Base
	LocationID    uuid.UUID  `json:"location_id" db:"location_id"`
	LocationName  string     `json:"location_name" db:"location_name"`
	TemplateName  string     `json:"template_name" db:"template_name"`
	InspectorID   *uuid.UUID `json:"inspector_id" db:"inspector_id"`
	Status        string     `json:"status" db:"status"`
	TotalScore    *float64   `json:"total_score" db:"total_score"`
	ScheduledDate *time.Time `json:"scheduled_date" db:"scheduled_date"`
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cleanguard/qc-api/internal/model"
)

// UserRepository exposes the user-store queries the notification core
// consumes, plus the single mutation it performs (push token invalidation).
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListByRoles(ctx context.Context, roles ...string) ([]*model.User, error)
	ListClientsForLocation(ctx context.Context, locationID uuid.UUID) ([]*model.User, error)
	ClearPushToken(ctx context.Context, id uuid.UUID) error
}

// TicketRepository exposes the due-item scans the scheduler runs.
type TicketRepository interface {
	// ListScheduledBetween returns open or in-progress tickets with an
	// assignee whose scheduled date falls within [start, end].
	ListScheduledBetween(ctx context.Context, start, end time.Time) ([]*model.Ticket, error)
	// ListOverdue returns open or in-progress tickets due strictly before
	// the given instant.
	ListOverdue(ctx context.Context, before time.Time) ([]*model.Ticket, error)
}

// InspectionRepository exposes the due-item scans the scheduler runs.
type InspectionRepository interface {
	// ListScheduledBetween returns pending or in-progress inspections whose
	// scheduled date falls within [start, end].
	ListScheduledBetween(ctx context.Context, start, end time.Time) ([]*model.Inspection, error)
}

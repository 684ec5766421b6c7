package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/internal/repository"
)

type ticketRepository struct {
	BaseRepository
}

func NewTicketRepository(base BaseRepository) repository.TicketRepository {
	return &ticketRepository{base}
}

func (r *ticketRepository) ListScheduledBetween(ctx context.Context, start, end time.Time) ([]*model.Ticket, error) {
	query := `
		SELECT t.id, t.created_at, t.updated_at, t.deleted_at,
		       t.title, t.category, t.priority, t.status,
		       t.location_id, t.assigned_to, t.scheduled_date, t.due_date,
		       COALESCE(l.name, 'N/A') AS location_name
		FROM tickets t
		LEFT JOIN locations l ON l.id = t.location_id
		WHERE t.scheduled_date >= $1 AND t.scheduled_date <= $2
		  AND t.status IN ($3, $4)
		  AND t.assigned_to IS NOT NULL
		  AND t.deleted_at IS NULL
		ORDER BY t.scheduled_date
	`

	var tickets []*model.Ticket
	err := r.db.SelectContext(ctx, &tickets, query, start, end,
		model.TicketStatusOpen, model.TicketStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled tickets: %w", err)
	}

	return tickets, nil
}

func (r *ticketRepository) ListOverdue(ctx context.Context, before time.Time) ([]*model.Ticket, error) {
	query := `
		SELECT t.id, t.created_at, t.updated_at, t.deleted_at,
		       t.title, t.category, t.priority, t.status,
		       t.location_id, t.assigned_to, t.scheduled_date, t.due_date,
		       COALESCE(l.name, 'N/A') AS location_name
		FROM tickets t
		LEFT JOIN locations l ON l.id = t.location_id
		WHERE t.due_date < $1
		  AND t.status IN ($2, $3)
		  AND t.deleted_at IS NULL
		ORDER BY t.due_date
	`

	var tickets []*model.Ticket
	err := r.db.SelectContext(ctx, &tickets, query, before,
		model.TicketStatusOpen, model.TicketStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue tickets: %w", err)
	}

	return tickets, nil
}

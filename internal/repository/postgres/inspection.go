package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/internal/repository"
)

type inspectionRepository struct {
	BaseRepository
}

func NewInspectionRepository(base BaseRepository) repository.InspectionRepository {
	return &inspectionRepository{base}
}

func (r *inspectionRepository) ListScheduledBetween(ctx context.Context, start, end time.Time) ([]*model.Inspection, error) {
	query := `
		SELECT i.id, i.created_at, i.updated_at, i.deleted_at,
		       i.location_id, i.inspector_id, i.status, i.total_score,
		       i.scheduled_date,
		       COALESCE(l.name, 'N/A') AS location_name,
		       COALESCE(tp.name, 'N/A') AS template_name
		FROM inspections i
		LEFT JOIN locations l ON l.id = i.location_id
		LEFT JOIN templates tp ON tp.id = i.template_id
		WHERE i.scheduled_date >= $1 AND i.scheduled_date <= $2
		  AND i.status IN ($3, $4)
		  AND i.deleted_at IS NULL
		ORDER BY i.scheduled_date
	`

	var inspections []*model.Inspection
	err := r.db.SelectContext(ctx, &inspections, query, start, end,
		model.InspectionStatusPending, model.InspectionStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled inspections: %w", err)
	}

	return inspections, nil
}

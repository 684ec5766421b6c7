package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, created_at, updated_at, deleted_at,
		       email, name, role, notify_email, notify_push,
		       push_token, assigned_locations
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) ListByRoles(ctx context.Context, roles ...string) ([]*model.User, error) {
	query := `
		SELECT id, created_at, updated_at, deleted_at,
		       email, name, role, notify_email, notify_push,
		       push_token, assigned_locations
		FROM users
		WHERE role = ANY($1) AND deleted_at IS NULL
		ORDER BY created_at
	`

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(roles)); err != nil {
		return nil, fmt.Errorf("failed to list users by roles: %w", err)
	}

	return users, nil
}

func (r *userRepository) ListClientsForLocation(ctx context.Context, locationID uuid.UUID) ([]*model.User, error) {
	query := `
		SELECT id, created_at, updated_at, deleted_at,
		       email, name, role, notify_email, notify_push,
		       push_token, assigned_locations
		FROM users
		WHERE role = $1
		  AND $2 = ANY(assigned_locations)
		  AND deleted_at IS NULL
		ORDER BY created_at
	`

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, model.RoleClient, locationID.String()); err != nil {
		return nil, fmt.Errorf("failed to list clients for location: %w", err)
	}

	return users, nil
}

// ClearPushToken nulls the stored device token. Idempotent: clearing an
// already-null token affects zero rows and is not an error.
func (r *userRepository) ClearPushToken(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET push_token = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to clear push token: %w", err)
	}

	return nil
}

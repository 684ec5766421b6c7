package notifier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cleanguard/qc-api/internal/model"
	"github.com/cleanguard/qc-api/internal/repository"
)

// Resolver turns role/location/user criteria into recipient lists. Every
// call re-queries the user store: recipients are derived at notify time,
// never cached, so preference changes take effect immediately.
type Resolver struct {
	users repository.UserRepository
}

func NewResolver(users repository.UserRepository) *Resolver {
	return &Resolver{users: users}
}

// AdminRecipients returns all admin and sub-admin users.
func (r *Resolver) AdminRecipients(ctx context.Context) ([]model.Recipient, error) {
	admins, err := r.users.ListByRoles(ctx, model.RoleAdmin, model.RoleSubAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve admin recipients: %w", err)
	}
	return toRecipients(admins), nil
}

// UserRecipient returns a single user as a recipient, or nil when the user
// does not exist.
func (r *Resolver) UserRecipient(ctx context.Context, userID uuid.UUID) (*model.Recipient, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	user, err := r.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve user recipient: %w", err)
	}
	rec := user.Recipient()
	return &rec, nil
}

// ClientRecipientsForLocation returns client users assigned to a location.
func (r *Resolver) ClientRecipientsForLocation(ctx context.Context, locationID uuid.UUID) ([]model.Recipient, error) {
	if locationID == uuid.Nil {
		return nil, nil
	}
	clients, err := r.users.ListClientsForLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve client recipients: %w", err)
	}
	return toRecipients(clients), nil
}

// MergeRecipients concatenates recipient groups and de-duplicates by email.
// First occurrence wins, in the order the groups were passed; entries
// without an email are dropped.
func MergeRecipients(groups ...[]model.Recipient) []model.Recipient {
	seen := make(map[string]struct{})
	var merged []model.Recipient
	for _, group := range groups {
		for _, rec := range group {
			if rec.Email == "" {
				continue
			}
			if _, ok := seen[rec.Email]; ok {
				continue
			}
			seen[rec.Email] = struct{}{}
			merged = append(merged, rec)
		}
	}
	return merged
}

func toRecipients(users []*model.User) []model.Recipient {
	out := make([]model.Recipient, 0, len(users))
	for _, u := range users {
		out = append(out, u.Recipient())
	}
	return out
}

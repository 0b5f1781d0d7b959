package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindFirstActiveByRole returns the first active user holding the
	// given role, ordered by creation time. Used to pick a warehouse
	// assignee when an order is confirmed.
	FindFirstActiveByRole(ctx context.Context, role UserRole) (*User, error)

	// FindAll finds all users matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]User, error)

	// Save creates or updates a user
	Save(ctx context.Context, user *User) error
}

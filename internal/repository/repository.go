// Package repository declares the persistence interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite); the
// services only ever see these interfaces, which is what makes them testable
// with in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/accounts-api/internal/model"
)

// UserRepository is the data-access seam for user records.
//
// Contract:
//   - Create assigns ID/CreatedAt/UpdatedAt on the passed record and fails
//     with apperror.ErrConflict on a username or email collision.
//   - GetByEmail compares emails case-insensitively.
//   - Lookup misses return apperror.ErrNotFound, never (nil, nil).
//   - Update persists profile fields and the credential, and merges
//     OAuthProviders without ever duplicating a provider ID.
//   - List returns an empty slice (not an error) when there are no users.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

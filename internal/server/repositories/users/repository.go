// Package users is the credential store: persistence of user records,
// password hashes and the single current refresh token per user.
package users

import (
	"context"

	"github.com/dmitrijs2005/vidtube/internal/server/models"
)

// Repository is implemented by PostgresRepository. Lookups by username or
// email are case-insensitive. Missing users yield common.ErrNotFound and
// uniqueness violations common.ErrConflict.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetUserByLogin matches login against username or email.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	ExistsByUserNameOrEmail(ctx context.Context, username, email string) (bool, error)

	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateAccountDetails(ctx context.Context, id, fullName, email string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (*models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (*models.User, error)

	// SetRefreshToken overwrites whatever refresh token the user holds.
	SetRefreshToken(ctx context.Context, id, token string) error
	// SwapRefreshToken replaces expected with next in a single conditional
	// update and reports whether expected was the stored token.
	SwapRefreshToken(ctx context.Context, id, expected, next string) (bool, error)
	// ClearRefreshToken removes the stored token; clearing twice is not an error.
	ClearRefreshToken(ctx context.Context, id string) error
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/quillside/quillside-api/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no record matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail and ErrDuplicateUsername are returned by Create when
	// the store's unique constraint fires. They back up the pre-check so a
	// concurrent registration race still yields the same user-facing error.
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
)

// UserRepository defines the store operations the account service relies on.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetByEmailOrUsername resolves a login handle against either column.
	GetByEmailOrUsername(ctx context.Context, handle string) (*entity.User, error)
	// GetByVerifyToken finds the account currently holding the exact pending
	// verification token value.
	GetByVerifyToken(ctx context.Context, token string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetVerifyToken(ctx context.Context, id, token string) error
	// SetVerified marks the account verified and clears the pending token.
	SetVerified(ctx context.Context, id string) error
	SetResetOTP(ctx context.Context, id, code string, issuedAt time.Time) error
	ClearResetOTP(ctx context.Context, id string) error
}

package repository

import (
	"context"
	"errors"

	"github.com/linkstack/referral-api/internal/domain/entity"
)

// Store-level sentinels. Implementations must map backend constraint
// violations onto these so the service layer can stay storage-agnostic.
var (
	// ErrNotFound is returned when a point lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateIdentity is returned when an insert collides on the
	// username or email unique constraints.
	ErrDuplicateIdentity = errors.New("username or email already registered")
	// ErrCodeCollision is returned when an insert collides on the referral
	// code unique constraint; the caller re-rolls the code and retries.
	ErrCodeCollision = errors.New("referral code collision")
)

// UserRepository defines user persistence operations.
type UserRepository interface {
	// Create inserts the user and, when referrerID is non-nil, a successful
	// referral edge from referrerID to the new user in the same unit of
	// work. Neither row exists if either insert fails.
	Create(ctx context.Context, u *entity.User, referrerID *int64) error
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByReferralCode(ctx context.Context, code string) (*entity.User, error)
	// UsernameOrEmailExists is the combined pre-insert existence check.
	UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// ReferralRepository defines read access to the referral ledger.
type ReferralRepository interface {
	// ListByReferrer returns the referrer's edges, newest date_referred first.
	ListByReferrer(ctx context.Context, referrerID int64) ([]entity.Referral, error)
	// StatsByReferrer counts successful edges for the referrer.
	StatsByReferrer(ctx context.Context, referrerID int64) (entity.ReferralStats, error)
}

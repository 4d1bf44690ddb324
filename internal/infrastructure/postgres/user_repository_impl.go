package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkstack/referral-api/internal/domain/entity"
	"github.com/linkstack/referral-api/internal/domain/repository"
)

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// translateUnique maps a unique-constraint violation onto the store
// sentinels by constraint name; other errors pass through untouched.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "referral_code"):
		return repository.ErrCodeCollision
	case strings.Contains(pgErr.ConstraintName, "username"),
		strings.Contains(pgErr.ConstraintName, "email"):
		return repository.ErrDuplicateIdentity
	}
	return err
}

// Create inserts the user and, when referrerID is set, the referral edge in
// one transaction so a user can never exist without its edge.
func (r *UserRepository) Create(ctx context.Context, u *entity.User, referrerID *int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, u.Username, u.Email, u.PasswordHash, u.ReferralCode, referrerID)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return translateUnique(err)
	}
	u.ReferredBy = referrerID

	if referrerID != nil {
		_, err := tx.Exec(ctx, `
			INSERT INTO referrals (referrer_id, referred_user_id, status)
			VALUES ($1, $2, $3)
		`, *referrerID, u.ID, entity.ReferralStatusSuccessful)
		if err != nil {
			return translateUnique(err)
		}
	}

	return tx.Commit(ctx)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	return r.getBy(ctx, "username = $1", username)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*entity.User, error) {
	return r.getBy(ctx, "referral_code = $1", code)
}

func (r *UserRepository) getBy(ctx context.Context, where string, arg any) (*entity.User, error) {
	u := &entity.User{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, referral_code, referred_by, created_at
		FROM users
		WHERE `+where, arg)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.ReferralCode, &u.ReferredBy, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)
	`, username, email).Scan(&exists)
	return exists, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $1 WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)

package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/linkstack/referral-api/internal/domain/entity"
	repo "github.com/linkstack/referral-api/internal/domain/repository"
	"github.com/linkstack/referral-api/pkg/helpers"
)

var (
	ErrDuplicateIdentity    = errors.New("email or username already registered")
	ErrInvalidReferralCode  = errors.New("invalid referral code")
	ErrAuthenticationFailed = errors.New("incorrect username or password")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrNotFound             = errors.New("not found")
)

// ResetTokenLedger records consumed reset-token IDs so each token is
// accepted at most once.
type ResetTokenLedger interface {
	IsConsumed(ctx context.Context, jti string) (bool, error)
	MarkConsumed(ctx context.Context, jti string, ttl time.Duration) error
}

// Service orchestrates registration, login, password reset and referral
// queries. The ledger is optional; when present, confirmed reset tokens
// are recorded so they cannot be replayed.
type Service struct {
	Users     repo.UserRepository
	Referrals repo.ReferralRepository
	Tokens    *helpers.TokenManager
	Ledger    ResetTokenLedger
	Logger    *logrus.Logger
}

func NewService(users repo.UserRepository, referrals repo.ReferralRepository, tokens *helpers.TokenManager, ledger ResetTokenLedger, logger *logrus.Logger) *Service {
	return &Service{
		Users:     users,
		Referrals: referrals,
		Tokens:    tokens,
		Ledger:    ledger,
		Logger:    logger,
	}
}

type RegisterInput struct {
	Username     string
	Email        string
	Password     string
	ReferralCode string // optional
}

// Register creates a user, assigning a fresh unique referral code. When a
// referral code is supplied it must resolve to an existing user; the new
// user and the referral edge are then persisted in one unit of work.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	exists, err := s.Users.UsernameOrEmailExists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateIdentity
	}

	var referrerID *int64
	if in.ReferralCode != "" {
		referrer, err := s.Users.GetByReferralCode(ctx, in.ReferralCode)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrInvalidReferralCode
			}
			return nil, err
		}
		referrerID = &referrer.ID
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	// Re-roll the code until the insert lands without a code collision.
	for {
		code, err := helpers.GenerateReferralCode()
		if err != nil {
			return nil, err
		}
		u.ReferralCode = code
		err = s.Users.Create(ctx, u, referrerID)
		if errors.Is(err, repo.ErrCodeCollision) {
			if s.Logger != nil {
				s.Logger.WithField("code", code).Debug("referral code collision, regenerating")
			}
			continue
		}
		if errors.Is(err, repo.ErrDuplicateIdentity) {
			// A concurrent registration won the race; same outcome as the
			// pre-insert check.
			return nil, ErrDuplicateIdentity
		}
		if err != nil {
			return nil, err
		}
		break
	}

	if s.Logger != nil {
		fields := logrus.Fields{"user_id": u.ID, "username": u.Username}
		if referrerID != nil {
			fields["referrer_id"] = *referrerID
		}
		s.Logger.WithFields(fields).Info("user registered")
	}
	return u, nil
}

// Login verifies the credential and issues an access token whose subject is
// the username. Unknown user and bad password yield the same error; store
// failures propagate untouched.
func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", time.Time{}, ErrAuthenticationFailed
		}
		return "", time.Time{}, err
	}
	if !helpers.CompareHashAndPassword(u.PasswordHash, password) {
		return "", time.Time{}, ErrAuthenticationFailed
	}
	token, exp, err := s.Tokens.GenerateAccessToken(u.Username)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("username", username).Error("generate access token failed")
		}
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// RequestPasswordReset issues a reset token for the account owning the
// email. Delivery is the caller's concern; the token itself is the result.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, time.Time, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", time.Time{}, ErrNotFound
		}
		return "", time.Time{}, err
	}
	token, exp, err := s.Tokens.GenerateResetToken(u.Email)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("email", email).Error("generate reset token failed")
		}
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ConfirmPasswordReset validates the token, resolves its subject to a user
// by email and replaces the credential hash. With Redis configured each
// token is accepted at most once.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.Tokens.ParseToken(token)
	if err != nil {
		return ErrInvalidToken
	}
	if s.Ledger != nil && claims.ID != "" {
		consumed, err := s.Ledger.IsConsumed(ctx, claims.ID)
		if err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).Warn("consumed reset token lookup failed, accepting token")
			}
		} else if consumed {
			return ErrInvalidToken
		}
	}

	u, err := s.Users.GetByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	if s.Ledger != nil && claims.ID != "" && claims.ExpiresAt != nil {
		ttl := time.Until(claims.ExpiresAt.Time)
		if ttl > 0 {
			if err := s.Ledger.MarkConsumed(ctx, claims.ID, ttl); err != nil && s.Logger != nil {
				s.Logger.WithError(err).Warn("failed to record consumed reset token")
			}
		}
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("password reset confirmed")
	}
	return nil
}

// GetUserByUsername resolves an access-token subject to a user.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*entity.User, error) {
	u, err := s.Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListReferrals returns the user's referral edges, newest first.
func (s *Service) ListReferrals(ctx context.Context, referrerID int64) ([]entity.Referral, error) {
	return s.Referrals.ListByReferrer(ctx, referrerID)
}

// ReferralStats returns the referral counters for the user.
func (s *Service) ReferralStats(ctx context.Context, referrerID int64) (entity.ReferralStats, error) {
	return s.Referrals.StatsByReferrer(ctx, referrerID)
}

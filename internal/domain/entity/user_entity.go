package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// PasswordHash holds a bcrypt hash and must never leave the service layer.
//
// ReferredBy is set once at registration and never changes afterwards.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	ReferralCode string
	ReferredBy   *int64
	CreatedAt    time.Time
}

package entity

import "time"

// Referral status values. "pending" exists in the schema for compatibility
// but no code path creates it today; registration writes "successful"
// directly.
const (
	ReferralStatusPending    = "pending"
	ReferralStatusSuccessful = "successful"
)

// Referral links a referrer to the user who signed up with their code.
// Each user can be the referred side of at most one edge.
type Referral struct {
	ID             int64
	ReferrerID     int64
	ReferredUserID int64
	DateReferred   time.Time
	Status         string
}

// ReferralStats summarizes a referrer's edges. ActiveReferrals mirrors
// TotalReferrals and PendingReferrals is always zero; the shapes are kept
// for API compatibility with the existing clients.
type ReferralStats struct {
	TotalReferrals   int `json:"total_referrals"`
	ActiveReferrals  int `json:"active_referrals"`
	PendingReferrals int `json:"pending_referrals"`
}

package helpers

import (
	"crypto/rand"
	"math/big"
)

// ReferralCodeLength is the fixed length of generated referral codes.
const ReferralCodeLength = 8

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateReferralCode returns a random fixed-length alphanumeric code.
// Uniqueness against persisted codes is the caller's job; on a storage
// collision the caller re-rolls until the insert succeeds.
func GenerateReferralCode() (string, error) {
	max := big.NewInt(int64(len(referralAlphabet)))
	b := make([]byte, ReferralCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = referralAlphabet[n.Int64()]
	}
	return string(b), nil
}

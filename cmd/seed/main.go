package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/linkstack/referral-api/config"
	"github.com/linkstack/referral-api/pkg/helpers"
)

// Seeds a demo referrer plus one referred user so the referral endpoints
// have data to show locally.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	password := "password123"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	referrerID, referrerCode := seedUser(db, "demoReferrer", "referrer@example.com", hash, nil)
	fmt.Printf("seeded referrer: id=%d code=%s password=%s\n", referrerID, referrerCode, password)

	referredID, _ := seedUser(db, "demoReferred", "referred@example.com", hash, &referrerID)
	fmt.Printf("seeded referred user: id=%d referred_by=%d\n", referredID, referrerID)

	if _, err := db.Exec(`
		INSERT INTO referrals (referrer_id, referred_user_id, status)
		VALUES ($1, $2, 'successful')
		ON CONFLICT (referred_user_id) DO NOTHING
	`, referrerID, referredID); err != nil {
		log.Fatalf("failed to seed referral edge: %v", err)
	}
	fmt.Println("referral edge ensured")
}

func seedUser(db *sql.DB, username, email, hash string, referredBy *int64) (int64, string) {
	code, err := helpers.GenerateReferralCode()
	if err != nil {
		log.Fatalf("failed to generate referral code: %v", err)
	}
	var id int64
	var assigned string
	err = db.QueryRow(`
		INSERT INTO users (username, email, password_hash, referral_code, referred_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET username = EXCLUDED.username
		RETURNING id, referral_code
	`, username, email, hash, code, referredBy).Scan(&id, &assigned)
	if err != nil {
		log.Fatalf("failed to seed user %s: %v", username, err)
	}
	return id, assigned
}

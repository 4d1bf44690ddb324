package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkstack/referral-api/internal/domain/entity"
	"github.com/linkstack/referral-api/internal/domain/repository"
)

type ReferralRepository struct {
	pool *pgxpool.Pool
}

func NewReferralRepository(pool *pgxpool.Pool) *ReferralRepository {
	return &ReferralRepository{pool: pool}
}

func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID int64) ([]entity.Referral, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, referrer_id, referred_user_id, date_referred, status
		FROM referrals
		WHERE referrer_id = $1
		ORDER BY date_referred DESC
	`, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Referral, 0)
	for rows.Next() {
		var ref entity.Referral
		if err := rows.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredUserID,
			&ref.DateReferred, &ref.Status); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// StatsByReferrer counts successful edges; active mirrors the successful
// count and pending stays zero (see ReferralStats).
func (r *ReferralRepository) StatsByReferrer(ctx context.Context, referrerID int64) (entity.ReferralStats, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM referrals
		WHERE referrer_id = $1 AND status = $2
	`, referrerID, entity.ReferralStatusSuccessful).Scan(&total)
	if err != nil {
		return entity.ReferralStats{}, err
	}
	return entity.ReferralStats{
		TotalReferrals:   total,
		ActiveReferrals:  total,
		PendingReferrals: 0,
	}, nil
}

var _ repository.ReferralRepository = (*ReferralRepository)(nil)

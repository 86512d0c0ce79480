package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cryptonary/referral-service/internal/models"
)

type ReferralRepository interface {
	Create(ctx context.Context, referral *models.Referral) error
	GetByUserID(ctx context.Context, userID uint64) (*models.Referral, error)
	ListByPromoterID(ctx context.Context, promoterID uint64) ([]*models.Referral, error)
	// UpdateStatusTx flips the referral state inside the caller's transaction,
	// but only when the referral is still in the expected state. The returned
	// bool reports whether the transition happened, which makes duplicate
	// webhook deliveries a detectable no-op instead of a second transition.
	UpdateStatusTx(ctx context.Context, tx *sql.Tx, referralID uint64, from, to models.ReferralStatus) (bool, error)
}

type referralRepository struct {
	db *sql.DB
}

func NewReferralRepository(db *sql.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) Create(ctx context.Context, referral *models.Referral) error {
	query := `
		INSERT INTO referrals (user_id, promoter_id, invitation_method, status, commission_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		referral.UserID, referral.PromoterID, string(referral.InvitationMethod),
		string(referral.Status), referral.CommissionRate.StringFixed(2), now, now)
	if err != nil {
		return fmt.Errorf("failed to create referral: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		referral.ID = uint64(id)
	}
	return nil
}

func (r *referralRepository) GetByUserID(ctx context.Context, userID uint64) (*models.Referral, error) {
	query := `
		SELECT id, user_id, promoter_id, invitation_method, status, commission_rate, created_at, updated_at
		FROM referrals
		WHERE user_id = ?
		LIMIT 1
	`
	referral, err := scanReferral(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return referral, err
}

func (r *referralRepository) ListByPromoterID(ctx context.Context, promoterID uint64) ([]*models.Referral, error) {
	query := `
		SELECT id, user_id, promoter_id, invitation_method, status, commission_rate, created_at, updated_at
		FROM referrals
		WHERE promoter_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, promoterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", err)
	}
	defer rows.Close()

	var referrals []*models.Referral
	for rows.Next() {
		referral, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, referral)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate referrals: %w", err)
	}
	return referrals, nil
}

func (r *referralRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, referralID uint64, from, to models.ReferralStatus) (bool, error) {
	query := `UPDATE referrals SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := tx.ExecContext(ctx, query, string(to), time.Now(), referralID, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update referral status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected == 1, nil
}

func scanReferral(row rowScanner) (*models.Referral, error) {
	referral := &models.Referral{}
	var method, status, rate string
	err := row.Scan(
		&referral.ID, &referral.UserID, &referral.PromoterID,
		&method, &status, &rate,
		&referral.CreatedAt, &referral.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan referral: %w", err)
	}

	referral.InvitationMethod = models.InvitationMethod(method)
	referral.Status = models.ReferralStatus(status)
	referral.CommissionRate, err = parseDecimal(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid commission rate for referral %d: %w", referral.ID, err)
	}
	return referral, nil
}

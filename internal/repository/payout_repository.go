package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cryptonary/referral-service/internal/models"
)

type PayoutRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, payout *models.PromoterPayout) error
	SumAmountByPromoter(ctx context.Context, promoterID uint64) (int64, error)
	ListByUserID(ctx context.Context, userID uint64) ([]*models.PromoterPayout, error)
}

type payoutRepository struct {
	db *sql.DB
}

func NewPayoutRepository(db *sql.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) CreateTx(ctx context.Context, tx *sql.Tx, payout *models.PromoterPayout) error {
	query := `
		INSERT INTO promoter_payouts (promoter_id, amount, payout_method, tx_signature, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		payout.PromoterID, payout.Amount, payout.PayoutMethod, payout.TxSignature, now, now)
	if err != nil {
		return fmt.Errorf("failed to create payout: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		payout.ID = uint64(id)
	}
	return nil
}

func (r *payoutRepository) SumAmountByPromoter(ctx context.Context, promoterID uint64) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM promoter_payouts WHERE promoter_id = ?`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, promoterID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum payouts: %w", err)
	}
	return total, nil
}

func (r *payoutRepository) ListByUserID(ctx context.Context, userID uint64) ([]*models.PromoterPayout, error) {
	query := `
		SELECT po.id, po.promoter_id, po.amount, po.payout_method, po.tx_signature, po.created_at, po.updated_at
		FROM promoter_payouts po
		JOIN promoters p ON p.id = po.promoter_id
		WHERE p.user_id = ?
		ORDER BY po.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []*models.PromoterPayout
	for rows.Next() {
		payout := &models.PromoterPayout{}
		var txSignature sql.NullString
		err := rows.Scan(
			&payout.ID, &payout.PromoterID, &payout.Amount, &payout.PayoutMethod,
			&txSignature, &payout.CreatedAt, &payout.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		if txSignature.Valid {
			payout.TxSignature = &txSignature.String
		}
		payouts = append(payouts, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payouts: %w", err)
	}
	return payouts, nil
}

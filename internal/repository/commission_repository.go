package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cryptonary/referral-service/internal/models"
)

type CommissionRepository interface {
	CreateTx(ctx context.Context, tx *sql.Tx, commission *models.PromoterCommission) error
	// ExistsForReferralTx reports whether the referral already produced any
	// commission. Runs inside the caller's transaction so the check is
	// serialized with the referral row lock taken by the state transition.
	ExistsForReferralTx(ctx context.Context, tx *sql.Tx, referralID uint64) (bool, error)
	// GetReferralPositiveCommissionTx returns the referral's original earning
	// commission (status pending or paid), the row a refund claws back against.
	GetReferralPositiveCommissionTx(ctx context.Context, tx *sql.Tx, referralID uint64) (*models.PromoterCommission, error)
	SumAmountByPromoter(ctx context.Context, promoterID uint64) (int64, error)
	MarkPaidTx(ctx context.Context, tx *sql.Tx, promoterID uint64) error
	MarkFailedWithReason(ctx context.Context, promoterID uint64, failureReason string) error
	ListByUserSince(ctx context.Context, userID uint64, since time.Time) ([]*models.PromoterCommission, error)
	GetReferralPositiveCommission(ctx context.Context, referralID uint64) (*models.PromoterCommission, error)
}

type commissionRepository struct {
	db *sql.DB
}

func NewCommissionRepository(db *sql.DB) CommissionRepository {
	return &commissionRepository{db: db}
}

const commissionColumns = `id, promoter_id, referral_id, amount, status, failure_reason, invoice_external_id, created_at, updated_at`

func (r *commissionRepository) CreateTx(ctx context.Context, tx *sql.Tx, commission *models.PromoterCommission) error {
	query := `
		INSERT INTO promoter_commissions (promoter_id, referral_id, amount, status, failure_reason, invoice_external_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		commission.PromoterID, commission.ReferralID, commission.Amount,
		string(commission.Status), commission.FailureReason, commission.InvoiceExternalID, now, now)
	if err != nil {
		return fmt.Errorf("failed to create commission: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		commission.ID = uint64(id)
	}
	return nil
}

func (r *commissionRepository) ExistsForReferralTx(ctx context.Context, tx *sql.Tx, referralID uint64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM promoter_commissions WHERE referral_id = ? AND amount > 0)`
	var exists bool
	if err := tx.QueryRowContext(ctx, query, referralID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing commission: %w", err)
	}
	return exists, nil
}

func (r *commissionRepository) GetReferralPositiveCommissionTx(ctx context.Context, tx *sql.Tx, referralID uint64) (*models.PromoterCommission, error) {
	query := `
		SELECT ` + commissionColumns + `
		FROM promoter_commissions
		WHERE referral_id = ? AND status IN (?, ?)
		ORDER BY id
		LIMIT 1
	`
	return scanCommissionNoRowsNil(tx.QueryRowContext(ctx, query, referralID,
		string(models.CommissionStatusPending), string(models.CommissionStatusPaid)))
}

func (r *commissionRepository) GetReferralPositiveCommission(ctx context.Context, referralID uint64) (*models.PromoterCommission, error) {
	query := `
		SELECT ` + commissionColumns + `
		FROM promoter_commissions
		WHERE referral_id = ? AND status IN (?, ?)
		ORDER BY id
		LIMIT 1
	`
	return scanCommissionNoRowsNil(r.db.QueryRowContext(ctx, query, referralID,
		string(models.CommissionStatusPending), string(models.CommissionStatusPaid)))
}

// SumAmountByPromoter aggregates every commission ever recorded for the
// promoter. Negative refund rows are included, so clawbacks reduce the total.
func (r *commissionRepository) SumAmountByPromoter(ctx context.Context, promoterID uint64) (int64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM promoter_commissions WHERE promoter_id = ?`
	var total int64
	if err := r.db.QueryRowContext(ctx, query, promoterID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum commissions: %w", err)
	}
	return total, nil
}

// MarkPaidTx settles every pending and failed commission for the promoter.
// A failed commission that is later successfully paid out becomes paid,
// clearing the earlier failure.
func (r *commissionRepository) MarkPaidTx(ctx context.Context, tx *sql.Tx, promoterID uint64) error {
	query := `
		UPDATE promoter_commissions
		SET status = ?, updated_at = ?
		WHERE promoter_id = ? AND status IN (?, ?)
	`
	_, err := tx.ExecContext(ctx, query,
		string(models.CommissionStatusPaid), time.Now(), promoterID,
		string(models.CommissionStatusPending), string(models.CommissionStatusFailed))
	if err != nil {
		return fmt.Errorf("failed to mark commissions paid: %w", err)
	}
	return nil
}

func (r *commissionRepository) MarkFailedWithReason(ctx context.Context, promoterID uint64, failureReason string) error {
	query := `
		UPDATE promoter_commissions
		SET status = ?, failure_reason = ?, updated_at = ?
		WHERE promoter_id = ? AND status = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		string(models.CommissionStatusFailed), failureReason, time.Now(), promoterID,
		string(models.CommissionStatusPending))
	if err != nil {
		return fmt.Errorf("failed to mark commissions failed: %w", err)
	}
	return nil
}

func (r *commissionRepository) ListByUserSince(ctx context.Context, userID uint64, since time.Time) ([]*models.PromoterCommission, error) {
	query := `
		SELECT c.id, c.promoter_id, c.referral_id, c.amount, c.status, c.failure_reason, c.invoice_external_id, c.created_at, c.updated_at
		FROM promoter_commissions c
		JOIN promoters p ON p.id = c.promoter_id
		WHERE p.user_id = ? AND c.created_at >= ?
		ORDER BY c.created_at
	`
	rows, err := r.db.QueryContext(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}
	defer rows.Close()

	var commissions []*models.PromoterCommission
	for rows.Next() {
		commission, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		commissions = append(commissions, commission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate commissions: %w", err)
	}
	return commissions, nil
}

func scanCommission(row rowScanner) (*models.PromoterCommission, error) {
	commission := &models.PromoterCommission{}
	var status string
	var failureReason, invoiceID sql.NullString
	err := row.Scan(
		&commission.ID, &commission.PromoterID, &commission.ReferralID,
		&commission.Amount, &status, &failureReason, &invoiceID,
		&commission.CreatedAt, &commission.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan commission: %w", err)
	}

	commission.Status = models.CommissionStatus(status)
	if failureReason.Valid {
		commission.FailureReason = &failureReason.String
	}
	if invoiceID.Valid {
		commission.InvoiceExternalID = &invoiceID.String
	}
	return commission, nil
}

func scanCommissionNoRowsNil(row *sql.Row) (*models.PromoterCommission, error) {
	commission, err := scanCommission(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return commission, err
}

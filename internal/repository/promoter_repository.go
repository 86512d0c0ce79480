package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cryptonary/referral-service/internal/models"
)

type PromoterRepository interface {
	Create(ctx context.Context, promoter *models.Promoter) error
	GetByUserID(ctx context.Context, userID uint64) (*models.Promoter, error)
	GetByReferralToken(ctx context.Context, token string) (*models.Promoter, error)
	GetByPayoutMethod(ctx context.Context, method string) ([]*models.Promoter, error)
	IncrementLinkClicked(ctx context.Context, promoterID uint64) error
	UpdateMinWithdrawalBalance(ctx context.Context, promoterID uint64, amount int64) error
	UpsertPayoutMethod(ctx context.Context, promoterID uint64, method, paymentAddress string) error
}

type promoterRepository struct {
	db *sql.DB
}

func NewPromoterRepository(db *sql.DB) PromoterRepository {
	return &promoterRepository{db: db}
}

const promoterColumns = `
	p.id, p.user_id, p.referral_token, p.referral_link, p.active_payout_method_id,
	p.link_clicked, p.min_withdrawal_balance, p.created_at, p.updated_at,
	u.email, u.full_name, pm.id, pm.method, pm.payment_address
`

const promoterJoins = `
	FROM promoters p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN payout_methods pm ON pm.id = p.active_payout_method_id
`

func (r *promoterRepository) Create(ctx context.Context, promoter *models.Promoter) error {
	query := `
		INSERT INTO promoters (user_id, referral_token, referral_link, link_clicked, min_withdrawal_balance, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		promoter.UserID, promoter.ReferralToken, promoter.ReferralLink,
		promoter.MinWithdrawalBalance, now, now)
	if err != nil {
		return fmt.Errorf("failed to create promoter: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		promoter.ID = uint64(id)
	}
	return nil
}

func (r *promoterRepository) GetByUserID(ctx context.Context, userID uint64) (*models.Promoter, error) {
	query := `SELECT` + promoterColumns + promoterJoins + `WHERE p.user_id = ? LIMIT 1`
	return r.scanPromoter(r.db.QueryRowContext(ctx, query, userID))
}

func (r *promoterRepository) GetByReferralToken(ctx context.Context, token string) (*models.Promoter, error) {
	query := `SELECT` + promoterColumns + promoterJoins + `WHERE p.referral_token = ? LIMIT 1`
	return r.scanPromoter(r.db.QueryRowContext(ctx, query, token))
}

// GetByPayoutMethod returns promoters whose active payout method matches,
// ordered by promoter id so batch runs are deterministic.
func (r *promoterRepository) GetByPayoutMethod(ctx context.Context, method string) ([]*models.Promoter, error) {
	query := `SELECT` + promoterColumns + promoterJoins + `WHERE pm.method = ? ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, query, method)
	if err != nil {
		return nil, fmt.Errorf("failed to list promoters by payout method: %w", err)
	}
	defer rows.Close()

	var promoters []*models.Promoter
	for rows.Next() {
		promoter, err := r.scanPromoterRow(rows)
		if err != nil {
			return nil, err
		}
		promoters = append(promoters, promoter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate promoters: %w", err)
	}
	return promoters, nil
}

func (r *promoterRepository) IncrementLinkClicked(ctx context.Context, promoterID uint64) error {
	query := `UPDATE promoters SET link_clicked = link_clicked + 1, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, time.Now(), promoterID)
	if err != nil {
		return fmt.Errorf("failed to increment link clicked: %w", err)
	}
	return nil
}

func (r *promoterRepository) UpdateMinWithdrawalBalance(ctx context.Context, promoterID uint64, amount int64) error {
	query := `UPDATE promoters SET min_withdrawal_balance = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, amount, time.Now(), promoterID)
	if err != nil {
		return fmt.Errorf("failed to update min withdrawal balance: %w", err)
	}
	return nil
}

// UpsertPayoutMethod updates the promoter's active payout method in place,
// or creates one and links it when the promoter has none yet.
func (r *promoterRepository) UpsertPayoutMethod(ctx context.Context, promoterID uint64, method, paymentAddress string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var activeID sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT active_payout_method_id FROM promoters WHERE id = ? FOR UPDATE`, promoterID,
	).Scan(&activeID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("promoter %d not found", promoterID)
	}
	if err != nil {
		return fmt.Errorf("failed to load promoter: %w", err)
	}

	if activeID.Valid {
		_, err = tx.ExecContext(ctx,
			`UPDATE payout_methods SET method = ?, payment_address = ? WHERE id = ?`,
			method, paymentAddress, activeID.Int64)
		if err != nil {
			return fmt.Errorf("failed to update payout method: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO payout_methods (method, payment_address) VALUES (?, ?)`,
			method, paymentAddress)
		if err != nil {
			return fmt.Errorf("failed to create payout method: %w", err)
		}
		methodID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read payout method id: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE promoters SET active_payout_method_id = ?, updated_at = ? WHERE id = ?`,
			methodID, time.Now(), promoterID)
		if err != nil {
			return fmt.Errorf("failed to link payout method: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payout method change: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *promoterRepository) scanPromoter(row *sql.Row) (*models.Promoter, error) {
	promoter, err := r.scanPromoterRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return promoter, err
}

func (r *promoterRepository) scanPromoterRow(row rowScanner) (*models.Promoter, error) {
	promoter := &models.Promoter{}
	var activeMethodID sql.NullInt64
	var methodID sql.NullInt64
	var method, paymentAddress sql.NullString

	err := row.Scan(
		&promoter.ID, &promoter.UserID, &promoter.ReferralToken, &promoter.ReferralLink,
		&activeMethodID, &promoter.LinkClicked, &promoter.MinWithdrawalBalance,
		&promoter.CreatedAt, &promoter.UpdatedAt,
		&promoter.Email, &promoter.FullName, &methodID, &method, &paymentAddress,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan promoter: %w", err)
	}

	if activeMethodID.Valid {
		id := uint64(activeMethodID.Int64)
		promoter.ActivePayoutMethodID = &id
	}
	if methodID.Valid {
		promoter.ActivePayoutMethod = &models.PayoutMethod{
			ID:             uint64(methodID.Int64),
			Method:         method.String,
			PaymentAddress: paymentAddress.String,
		}
	}
	return promoter, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cryptonary/referral-service/internal/models"
)

type ProgramRepository interface {
	Create(ctx context.Context, program *models.ReferralProgram) error
	GetByID(ctx context.Context, id uint64) (*models.ReferralProgram, error)
	GetActive(ctx context.Context) (*models.ReferralProgram, error)
	Activate(ctx context.Context, id uint64) error
}

type programRepository struct {
	db *sql.DB
}

func NewProgramRepository(db *sql.DB) ProgramRepository {
	return &programRepository{db: db}
}

func (r *programRepository) Create(ctx context.Context, program *models.ReferralProgram) error {
	query := `
		INSERT INTO referral_programs (name, commission_rate, is_active, min_withdrawal_balance, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		program.Name, program.CommissionRate.StringFixed(2), program.IsActive,
		program.MinWithdrawalBalance, now, now)
	if err != nil {
		return fmt.Errorf("failed to create referral program: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		program.ID = uint64(id)
	}
	return nil
}

func (r *programRepository) GetByID(ctx context.Context, id uint64) (*models.ReferralProgram, error) {
	query := `
		SELECT id, name, commission_rate, is_active, min_withdrawal_balance, created_at, updated_at
		FROM referral_programs
		WHERE id = ?
	`
	return r.scanProgram(r.db.QueryRowContext(ctx, query, id))
}

func (r *programRepository) GetActive(ctx context.Context) (*models.ReferralProgram, error) {
	query := `
		SELECT id, name, commission_rate, is_active, min_withdrawal_balance, created_at, updated_at
		FROM referral_programs
		WHERE is_active = 1
		LIMIT 1
	`
	return r.scanProgram(r.db.QueryRowContext(ctx, query))
}

// Activate makes one program the single active one. Deactivating the rest
// and raising promoter minimums that sit below the new program minimum happen
// in the same transaction, so no reader ever observes two active programs or
// a partially bumped promoter set. Custom promoter minimums above the program
// minimum are left untouched.
func (r *programRepository) Activate(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var minWithdrawal int64
	err = tx.QueryRowContext(ctx,
		`SELECT min_withdrawal_balance FROM referral_programs WHERE id = ? FOR UPDATE`, id,
	).Scan(&minWithdrawal)
	if err == sql.ErrNoRows {
		return fmt.Errorf("referral program %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to load referral program: %w", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`UPDATE referral_programs SET is_active = 0, updated_at = ? WHERE is_active = 1 AND id != ?`, now, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate programs: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE referral_programs SET is_active = 1, updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("failed to activate program: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE promoters SET min_withdrawal_balance = ?, updated_at = ? WHERE min_withdrawal_balance < ?`,
		minWithdrawal, now, minWithdrawal)
	if err != nil {
		return fmt.Errorf("failed to raise promoter minimums: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

func (r *programRepository) scanProgram(row *sql.Row) (*models.ReferralProgram, error) {
	program := &models.ReferralProgram{}
	var rate string
	err := row.Scan(
		&program.ID, &program.Name, &rate, &program.IsActive,
		&program.MinWithdrawalBalance, &program.CreatedAt, &program.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan referral program: %w", err)
	}

	program.CommissionRate, err = parseDecimal(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid commission rate for program %d: %w", program.ID, err)
	}
	return program, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Transact runs fn inside a single database transaction, rolling back on
// error or panic. State transitions that must land together with their
// side-effect writes (referral activation + commission creation, payout
// creation + commission settlement) go through this.
func Transact(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

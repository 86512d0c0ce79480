package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/pkg/logger"
	"cryptonary/referral-service/pkg/metrics"
)

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetricsWithRegistry("test", prometheus.NewRegistry())
}

func testTime() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func TestCommissionAmount(t *testing.T) {
	tests := []struct {
		name       string
		amountPaid int64
		rate       string
		expected   int64
	}{
		{"twenty percent of 150 dollars", 15000, "20.00", 3000},
		{"rounds down", 999, "33.00", 329},
		{"small amount floors to zero", 100, "0.05", 0},
		{"fractional rate", 15000, "12.50", 1875},
		{"zero paid", 0, "20.00", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate := decimal.RequireFromString(tt.rate)
			assert.Equal(t, tt.expected, CommissionAmount(tt.amountPaid, rate))
		})
	}
}

func TestRefundAmount(t *testing.T) {
	tests := []struct {
		name           string
		originalAmount int64
		amountRefunded int64
		amountPaid     int64
		expected       int64
	}{
		{"partial refund", 3000, 5000, 15000, -1000},
		{"full refund", 3000, 15000, 15000, -3000},
		{"tiny refund floors to zero", 3000, 1, 15000, 0},
		{"two thirds", 3000, 10000, 15000, -2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RefundAmount(tt.originalAmount, tt.amountRefunded, tt.amountPaid))
		})
	}
}

func TestCommissionEngine_CalculateCommissionTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	commissionRepo := repository.NewCommissionRepository(db)
	engine := NewCommissionEngine(commissionRepo, logger.NewLogger("test"), newTestMetrics())

	ctx := context.Background()
	referral := &models.Referral{
		ID:             10,
		UserID:         2,
		PromoterID:     1,
		Status:         models.ReferralStatusSignup,
		CommissionRate: decimal.RequireFromString("20.00"),
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(referral.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("INSERT INTO promoter_commissions").
			WithArgs(referral.PromoterID, referral.ID, int64(3000), "pending", nil, "inv_1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(5, 1))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)

		commission, err := engine.CalculateCommissionTx(ctx, tx, referral, 15000, "inv_1")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		require.NotNil(t, commission)
		assert.Equal(t, int64(3000), commission.Amount)
		assert.Equal(t, models.CommissionStatusPending, commission.Status)
		assert.Equal(t, uint64(5), commission.ID)
	})

	t.Run("AlreadyCommissioned", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(referral.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		defer tx.Rollback()

		commission, err := engine.CalculateCommissionTx(ctx, tx, referral, 15000, "inv_2")
		require.NoError(t, err)
		assert.Nil(t, commission)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCommissionEngine_CalculateRefundTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	commissionRepo := repository.NewCommissionRepository(db)
	engine := NewCommissionEngine(commissionRepo, logger.NewLogger("test"), newTestMetrics())

	ctx := context.Background()
	referral := &models.Referral{
		ID:             10,
		UserID:         2,
		PromoterID:     1,
		Status:         models.ReferralStatusActive,
		CommissionRate: decimal.RequireFromString("20.00"),
	}

	commissionCols := []string{"id", "promoter_id", "referral_id", "amount", "status", "failure_reason", "invoice_external_id", "created_at", "updated_at"}

	t.Run("ProportionalClawback", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("FROM promoter_commissions").
			WithArgs(referral.ID, "pending", "paid").
			WillReturnRows(sqlmock.NewRows(commissionCols).
				AddRow(5, 1, 10, 3000, "pending", nil, "inv_1", testTime(), testTime()))
		mock.ExpectExec("INSERT INTO promoter_commissions").
			WithArgs(referral.PromoterID, referral.ID, int64(-1000), "refund", nil, "inv_3", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(6, 1))
		mock.ExpectCommit()

		tx, err := db.Begin()
		require.NoError(t, err)

		commission, err := engine.CalculateRefundTx(ctx, tx, referral, 5000, 15000, "inv_3")
		require.NoError(t, err)
		require.NoError(t, tx.Commit())

		require.NotNil(t, commission)
		assert.Equal(t, int64(-1000), commission.Amount)
		assert.Equal(t, models.CommissionStatusRefund, commission.Status)
	})

	t.Run("NoCommissionToRefund", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("FROM promoter_commissions").
			WithArgs(referral.ID, "pending", "paid").
			WillReturnRows(sqlmock.NewRows(commissionCols))
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		defer tx.Rollback()

		commission, err := engine.CalculateRefundTx(ctx, tx, referral, 5000, 15000, "inv_4")
		assert.ErrorIs(t, err, ErrNoCommissionToRefund)
		assert.Nil(t, commission)
	})

	t.Run("ZeroAmountPaid", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()

		tx, err := db.Begin()
		require.NoError(t, err)
		defer tx.Rollback()

		commission, err := engine.CalculateRefundTx(ctx, tx, referral, 5000, 0, "inv_5")
		assert.ErrorIs(t, err, ErrZeroAmountPaid)
		assert.Nil(t, commission)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

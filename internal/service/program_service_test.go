package service

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/pkg/logger"
)

func TestProgramService_CreateProgram(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewProgramService(repository.NewProgramRepository(db), logger.NewLogger("test"))
	ctx := context.Background()

	t.Run("RejectsTooSmallRate", func(t *testing.T) {
		_, err := service.CreateProgram(ctx, "Bad", decimal.RequireFromString("0.001"), 2500, false)
		assert.ErrorIs(t, err, ErrInvalidCommissionRate)
	})

	t.Run("CreatesInactive", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO referral_programs").
			WithArgs("Launch", "20.00", false, int64(2500), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		program, err := service.CreateProgram(ctx, "Launch", decimal.RequireFromString("20.00"), 2500, false)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), program.ID)
		assert.False(t, program.IsActive)
	})

	t.Run("CreatesAndActivates", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO referral_programs").
			WithArgs("Spring", "15.00", false, int64(5000), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT min_withdrawal_balance FROM referral_programs").
			WithArgs(uint64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"min_withdrawal_balance"}).AddRow(5000))
		mock.ExpectExec("UPDATE referral_programs SET is_active = 0").
			WithArgs(sqlmock.AnyArg(), uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE referral_programs SET is_active = 1").
			WithArgs(sqlmock.AnyArg(), uint64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE promoters SET min_withdrawal_balance").
			WithArgs(int64(5000), sqlmock.AnyArg(), int64(5000)).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		program, err := service.CreateProgram(ctx, "Spring", decimal.RequireFromString("15.00"), 5000, true)
		require.NoError(t, err)
		assert.True(t, program.IsActive)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramService_ActivateProgram(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := NewProgramService(repository.NewProgramRepository(db), logger.NewLogger("test"))
	ctx := context.Background()

	t.Run("UnknownProgram", func(t *testing.T) {
		mock.ExpectQuery("FROM referral_programs").
			WithArgs(uint64(9)).
			WillReturnRows(sqlmock.NewRows(programCols))

		err := service.ActivateProgram(ctx, 9)
		assert.ErrorIs(t, err, ErrProgramNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceAggregator_GetBalance(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	commissionRepo := repository.NewCommissionRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	aggregator := NewBalanceAggregator(commissionRepo, payoutRepo)

	mock.ExpectQuery("FROM promoter_commissions").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(5000))
	mock.ExpectQuery("FROM promoter_payouts").
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(2000))

	balance, err := aggregator.GetBalance(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), balance.TotalEarned)
	assert.Equal(t, int64(2000), balance.TotalPaid)
	assert.Equal(t, int64(3000), balance.CurrentBalance)

	require.NoError(t, mock.ExpectationsWereMet())
}

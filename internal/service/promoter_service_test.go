package service

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/pkg/logger"
)

func newPromoterService(db *sql.DB) PromoterService {
	log := logger.NewLogger("test")
	return NewPromoterService(
		repository.NewPromoterRepository(db),
		repository.NewCommissionRepository(db),
		repository.NewPayoutRepository(db),
		NewProgramService(repository.NewProgramRepository(db), log),
		"https://cryptonary.com/signup",
		log,
	)
}

func TestGenerateReferralToken(t *testing.T) {
	token := GenerateReferralToken(42)

	assert.Len(t, token, 10)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{10}$`), token)

	// Deterministic per user, distinct across users.
	assert.Equal(t, token, GenerateReferralToken(42))
	assert.NotEqual(t, token, GenerateReferralToken(43))
}

func TestPromoterService_GetOrCreatePromoter(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newPromoterService(db)
	ctx := context.Background()

	t.Run("ExistingPromoter", func(t *testing.T) {
		mock.ExpectQuery("FROM promoters").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows(promoterCols).
				AddRow(1, 7, "AB12CD34EF", "https://cryptonary.com/signup?ref=AB12CD34EF", nil,
					3, 2500, testTime(), testTime(), "promoter@example.com", "Promo Ter", nil, nil, nil))

		promoter, err := service.GetOrCreatePromoter(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), promoter.ID)
		assert.Equal(t, "promoter@example.com", promoter.Email)
	})

	t.Run("LazyCreation", func(t *testing.T) {
		token := GenerateReferralToken(8)
		link := "https://cryptonary.com/signup?ref=" + token

		mock.ExpectQuery("FROM promoters").
			WithArgs(uint64(8)).
			WillReturnRows(sqlmock.NewRows(promoterCols))
		mock.ExpectQuery("FROM referral_programs").
			WillReturnRows(sqlmock.NewRows(programCols).
				AddRow(1, "Launch", "20.00", true, 2500, testTime(), testTime()))
		mock.ExpectExec("INSERT INTO promoters").
			WithArgs(uint64(8), token, link, int64(2500), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectQuery("FROM promoters").
			WithArgs(uint64(8)).
			WillReturnRows(sqlmock.NewRows(promoterCols).
				AddRow(2, 8, token, link, nil,
					0, 2500, testTime(), testTime(), "new@example.com", "New Promoter", nil, nil, nil))

		promoter, err := service.GetOrCreatePromoter(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), promoter.ID)
		assert.Equal(t, token, promoter.ReferralToken)
		assert.Equal(t, link, promoter.ReferralLink)
		assert.Equal(t, int64(2500), promoter.MinWithdrawalBalance)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoterService_SetMinWithdrawalBalance(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newPromoterService(db)
	ctx := context.Background()

	t.Run("BelowProgramMinimum", func(t *testing.T) {
		mock.ExpectQuery("FROM promoters").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows(promoterCols).
				AddRow(1, 7, "AB12CD34EF", "https://cryptonary.com/signup?ref=AB12CD34EF", nil,
					0, 2500, testTime(), testTime(), "promoter@example.com", "Promo Ter", nil, nil, nil))
		mock.ExpectQuery("FROM referral_programs").
			WillReturnRows(sqlmock.NewRows(programCols).
				AddRow(1, "Launch", "20.00", true, 2500, testTime(), testTime()))

		_, err := service.SetMinWithdrawalBalance(ctx, 7, 1000)
		assert.ErrorIs(t, err, ErrBelowProgramMinimum)
	})

	t.Run("RaisesMinimum", func(t *testing.T) {
		mock.ExpectQuery("FROM promoters").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows(promoterCols).
				AddRow(1, 7, "AB12CD34EF", "https://cryptonary.com/signup?ref=AB12CD34EF", nil,
					0, 2500, testTime(), testTime(), "promoter@example.com", "Promo Ter", nil, nil, nil))
		mock.ExpectQuery("FROM referral_programs").
			WillReturnRows(sqlmock.NewRows(programCols).
				AddRow(1, "Launch", "20.00", true, 2500, testTime(), testTime()))
		mock.ExpectExec("UPDATE promoters SET min_withdrawal_balance").
			WithArgs(int64(10000), sqlmock.AnyArg(), uint64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM promoters").
			WithArgs(uint64(7)).
			WillReturnRows(sqlmock.NewRows(promoterCols).
				AddRow(1, 7, "AB12CD34EF", "https://cryptonary.com/signup?ref=AB12CD34EF", nil,
					0, 10000, testTime(), testTime(), "promoter@example.com", "Promo Ter", nil, nil, nil))

		promoter, err := service.SetMinWithdrawalBalance(ctx, 7, 10000)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), promoter.MinWithdrawalBalance)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoterService_IncrementLinkClicked(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newPromoterService(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery("FROM promoters").
			WithArgs("AB12CD34EF").
			WillReturnRows(sqlmock.NewRows(promoterCols).
				AddRow(1, 7, "AB12CD34EF", "https://cryptonary.com/signup?ref=AB12CD34EF", nil,
					3, 2500, testTime(), testTime(), "promoter@example.com", "Promo Ter", nil, nil, nil))
		mock.ExpectExec("UPDATE promoters SET link_clicked").
			WithArgs(sqlmock.AnyArg(), uint64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, service.IncrementLinkClicked(ctx, "AB12CD34EF"))
	})

	t.Run("UnknownToken", func(t *testing.T) {
		mock.ExpectQuery("FROM promoters").
			WithArgs("NOPE123456").
			WillReturnRows(sqlmock.NewRows(promoterCols))

		err := service.IncrementLinkClicked(ctx, "NOPE123456")
		assert.ErrorIs(t, err, ErrPromoterNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoterService_RecentEarnings(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	service := newPromoterService(db)
	ctx := context.Background()

	commissionCols := []string{"id", "promoter_id", "referral_id", "amount", "status", "failure_reason", "invoice_external_id", "created_at", "updated_at"}

	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)

	mock.ExpectQuery("FROM promoter_commissions").
		WithArgs(uint64(7), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(commissionCols).
			AddRow(1, 1, 10, 3000, "pending", nil, nil, yesterday, yesterday).
			AddRow(2, 1, 11, 500, "pending", nil, nil, now, now).
			AddRow(3, 1, 11, -200, "refund", nil, nil, now, now))

	earnings, err := service.RecentEarnings(ctx, 7)
	require.NoError(t, err)
	require.Len(t, earnings, 7)

	// Oldest day first; today is the last bucket and nets refunds against
	// earnings.
	assert.Equal(t, now.Format("Mon")[:2], earnings[6].Day)
	assert.Equal(t, int64(300), earnings[6].Value)
	assert.Equal(t, int64(3000), earnings[5].Value)
	for i := 0; i < 5; i++ {
		assert.Zero(t, earnings[i].Value)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

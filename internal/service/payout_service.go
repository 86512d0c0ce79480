package service

import (
	"context"
	"database/sql"
	"fmt"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/pkg/logger"
	"cryptonary/referral-service/pkg/metrics"
)

// PayoutRow is one executed payout as it appears in the batch report.
type PayoutRow struct {
	Name           string
	Address        string
	Amount         int64
	SourceCurrency string
	TargetCurrency string
}

// PayoutExecutor moves money to a promoter through one payout channel.
// Execute returns the channel's transfer reference, which may be empty when
// the channel settles out of band.
type PayoutExecutor interface {
	Execute(ctx context.Context, promoter *models.Promoter, amount int64) (txSignature string, err error)
}

type PayoutService interface {
	// RunPayoutBatch pays every promoter on the given payout method whose
	// balance reaches their minimum withdrawal threshold. One promoter's
	// failure never blocks the rest of the batch. Returns the rows that were
	// actually paid out.
	RunPayoutBatch(ctx context.Context, method string) ([]PayoutRow, error)
}

type payoutService struct {
	db             *sql.DB
	promoterRepo   repository.PromoterRepository
	commissionRepo repository.CommissionRepository
	payoutRepo     repository.PayoutRepository
	balances       BalanceAggregator
	executors      map[string]PayoutExecutor
	log            *logger.Logger
	metrics        *metrics.Metrics
}

func NewPayoutService(
	db *sql.DB,
	promoterRepo repository.PromoterRepository,
	commissionRepo repository.CommissionRepository,
	payoutRepo repository.PayoutRepository,
	balances BalanceAggregator,
	executors map[string]PayoutExecutor,
	log *logger.Logger,
	m *metrics.Metrics,
) PayoutService {
	return &payoutService{
		db:             db,
		promoterRepo:   promoterRepo,
		commissionRepo: commissionRepo,
		payoutRepo:     payoutRepo,
		balances:       balances,
		executors:      executors,
		log:            log,
		metrics:        m,
	}
}

func (s *payoutService) RunPayoutBatch(ctx context.Context, method string) ([]PayoutRow, error) {
	executor, ok := s.executors[method]
	if !ok {
		return nil, fmt.Errorf("no payout executor registered for method %q", method)
	}

	promoters, err := s.promoterRepo.GetByPayoutMethod(ctx, method)
	if err != nil {
		return nil, fmt.Errorf("failed to list promoters for payout: %w", err)
	}

	rows := make([]PayoutRow, 0, len(promoters))
	for _, promoter := range promoters {
		row, err := s.payPromoter(ctx, executor, method, promoter)
		if err != nil {
			// Already recorded against the promoter's commissions; keep going.
			s.log.WithPromoterID(promoter.ID).Errorf("Payout failed: %v", err)
			continue
		}
		if row != nil {
			rows = append(rows, *row)
		}
	}

	s.log.Infof("Payout batch for method %q completed, %d promoters paid", method, len(rows))
	return rows, nil
}

// payPromoter settles one promoter's full balance. Returns (nil, nil) when the
// promoter is simply not eligible this run.
func (s *payoutService) payPromoter(ctx context.Context, executor PayoutExecutor, method string, promoter *models.Promoter) (*PayoutRow, error) {
	if promoter.ActivePayoutMethod == nil {
		return nil, ErrNoActivePayoutMethod
	}

	balance, err := s.balances.GetBalance(ctx, promoter.ID)
	if err != nil {
		return nil, err
	}
	if balance.CurrentBalance <= 0 || balance.CurrentBalance < promoter.MinWithdrawalBalance {
		s.log.WithPromoterID(promoter.ID).Debugf(
			"Skipping payout, balance %d below minimum %d", balance.CurrentBalance, promoter.MinWithdrawalBalance)
		return nil, nil
	}

	txSignature, err := executor.Execute(ctx, promoter, balance.CurrentBalance)
	if err != nil {
		reason := err.Error()
		if markErr := s.commissionRepo.MarkFailedWithReason(ctx, promoter.ID, reason); markErr != nil {
			s.log.WithPromoterID(promoter.ID).Errorf("Failed to record payout failure: %v", markErr)
		}
		s.metrics.PayoutsFailed.WithLabelValues(method).Inc()
		return nil, err
	}

	payout := &models.PromoterPayout{
		PromoterID:   promoter.ID,
		Amount:       balance.CurrentBalance,
		PayoutMethod: method,
	}
	if txSignature != "" {
		payout.TxSignature = &txSignature
	}

	err = repository.Transact(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.payoutRepo.CreateTx(ctx, tx, payout); err != nil {
			return err
		}
		return s.commissionRepo.MarkPaidTx(ctx, tx, promoter.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record payout: %w", err)
	}

	s.metrics.PayoutsExecuted.WithLabelValues(method).Inc()
	s.log.WithPromoterID(promoter.ID).Infof("Paid out %d via %s", payout.Amount, method)

	return &PayoutRow{
		Name:           promoter.FullName,
		Address:        promoter.ActivePayoutMethod.PaymentAddress,
		Amount:         payout.Amount,
		SourceCurrency: sourceCurrency,
		TargetCurrency: targetCurrency,
	}, nil
}

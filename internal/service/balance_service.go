package service

import (
	"context"
	"fmt"

	"cryptonary/referral-service/internal/repository"
)

// Balance is a promoter's derived financial position, in minor units.
type Balance struct {
	TotalEarned    int64 `json:"totalEarned"`
	TotalPaid      int64 `json:"totalPaid"`
	CurrentBalance int64 `json:"currentBalance"`
}

// BalanceAggregator derives balances from the authoritative commission and
// payout records. Nothing is cached across calls, so a stale counter can
// never disagree with the rows it was derived from.
type BalanceAggregator interface {
	GetBalance(ctx context.Context, promoterID uint64) (*Balance, error)
}

type balanceAggregator struct {
	commissionRepo repository.CommissionRepository
	payoutRepo     repository.PayoutRepository
}

func NewBalanceAggregator(
	commissionRepo repository.CommissionRepository,
	payoutRepo repository.PayoutRepository,
) BalanceAggregator {
	return &balanceAggregator{
		commissionRepo: commissionRepo,
		payoutRepo:     payoutRepo,
	}
}

func (s *balanceAggregator) GetBalance(ctx context.Context, promoterID uint64) (*Balance, error) {
	earned, err := s.commissionRepo.SumAmountByPromoter(ctx, promoterID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate earnings: %w", err)
	}

	paid, err := s.payoutRepo.SumAmountByPromoter(ctx, promoterID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate payouts: %w", err)
	}

	return &Balance{
		TotalEarned:    earned,
		TotalPaid:      paid,
		CurrentBalance: earned - paid,
	}, nil
}

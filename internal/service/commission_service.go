package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/internal/repository"
	"cryptonary/referral-service/pkg/logger"
	"cryptonary/referral-service/pkg/metrics"
)

var (
	ErrNoCommissionToRefund = errors.New("no commission found for referral")
	ErrZeroAmountPaid       = errors.New("amount paid must be greater than zero")
)

// CommissionEngine turns payment and refund events into commission rows.
// Both methods run inside the caller's transaction so a commission is only
// ever persisted together with the referral state transition that caused it.
type CommissionEngine interface {
	CalculateCommissionTx(ctx context.Context, tx *sql.Tx, referral *models.Referral, amountPaid int64, invoiceExternalID string) (*models.PromoterCommission, error)
	CalculateRefundTx(ctx context.Context, tx *sql.Tx, referral *models.Referral, amountRefunded, amountPaid int64, invoiceExternalID string) (*models.PromoterCommission, error)
}

type commissionEngine struct {
	commissionRepo repository.CommissionRepository
	log            *logger.Logger
	metrics        *metrics.Metrics
}

func NewCommissionEngine(
	commissionRepo repository.CommissionRepository,
	log *logger.Logger,
	m *metrics.Metrics,
) CommissionEngine {
	return &commissionEngine{
		commissionRepo: commissionRepo,
		log:            log,
		metrics:        m,
	}
}

// CalculateCommissionTx creates the pending commission for a referral's first
// payment. Returns (nil, nil) when the promoter already earned a commission
// from this referral, so duplicate payment-webhook deliveries stay idempotent.
func (s *commissionEngine) CalculateCommissionTx(ctx context.Context, tx *sql.Tx, referral *models.Referral, amountPaid int64, invoiceExternalID string) (*models.PromoterCommission, error) {
	exists, err := s.commissionRepo.ExistsForReferralTx(ctx, tx, referral.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing commission: %w", err)
	}
	if exists {
		s.log.WithPromoterID(referral.PromoterID).Infof(
			"Promoter already received commission from referral %d", referral.ID)
		return nil, nil
	}

	commission := &models.PromoterCommission{
		PromoterID: referral.PromoterID,
		ReferralID: referral.ID,
		Amount:     CommissionAmount(amountPaid, referral.CommissionRate),
		Status:     models.CommissionStatusPending,
	}
	if invoiceExternalID != "" {
		commission.InvoiceExternalID = &invoiceExternalID
	}

	if err := s.commissionRepo.CreateTx(ctx, tx, commission); err != nil {
		return nil, err
	}

	s.metrics.CommissionsCreated.Inc()
	s.log.WithPromoterID(referral.PromoterID).Infof(
		"Commission %d created for referral %d, amount %d", commission.ID, referral.ID, commission.Amount)
	return commission, nil
}

// CalculateRefundTx claws back a proportional share of the referral's
// original commission as a new negative row. The original row is never
// mutated.
func (s *commissionEngine) CalculateRefundTx(ctx context.Context, tx *sql.Tx, referral *models.Referral, amountRefunded, amountPaid int64, invoiceExternalID string) (*models.PromoterCommission, error) {
	if amountPaid == 0 {
		return nil, ErrZeroAmountPaid
	}

	original, err := s.commissionRepo.GetReferralPositiveCommissionTx(ctx, tx, referral.ID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		s.log.WithPromoterID(referral.PromoterID).Errorf(
			"No commission found for referral %d to refund against", referral.ID)
		return nil, ErrNoCommissionToRefund
	}

	commission := &models.PromoterCommission{
		PromoterID: referral.PromoterID,
		ReferralID: referral.ID,
		Amount:     RefundAmount(original.Amount, amountRefunded, amountPaid),
		Status:     models.CommissionStatusRefund,
	}
	if invoiceExternalID != "" {
		commission.InvoiceExternalID = &invoiceExternalID
	}

	if err := s.commissionRepo.CreateTx(ctx, tx, commission); err != nil {
		return nil, err
	}

	s.metrics.RefundsClawedBack.Inc()
	s.log.WithPromoterID(referral.PromoterID).Infof(
		"Refund commission %d created for referral %d, amount %d", commission.ID, referral.ID, commission.Amount)
	return commission, nil
}

// CommissionAmount computes the commission owed on a payment, in minor units:
// the payment amount multiplied by the rate fraction with exact decimal
// arithmetic, floored. 15000 at 20.00% yields 3000, never 3000.5 rounded up.
func CommissionAmount(amountPaid int64, commissionRate decimal.Decimal) int64 {
	return decimal.NewFromInt(amountPaid).
		Mul(commissionRate).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
}

// RefundAmount computes the proportional clawback for a partial refund:
// -floor(original * refunded / paid). A refund of a third of the payment
// claws back a third of the commission, rounded down in magnitude.
func RefundAmount(originalAmount, amountRefunded, amountPaid int64) int64 {
	return -decimal.NewFromInt(originalAmount).
		Mul(decimal.NewFromInt(amountRefunded)).
		Div(decimal.NewFromInt(amountPaid)).
		Floor().
		IntPart()
}

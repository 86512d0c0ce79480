package service

import (
	"context"
	"errors"
	"net/mail"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/pkg/helpers"
	"cryptonary/referral-service/pkg/logger"
)

// All payouts are denominated in USD minor units. Crypto settlement is in
// USDC, which is pegged 1:1.
const (
	sourceCurrency = "USD"
	targetCurrency = "USDC"
)

var ErrInvalidPaymentAddress = errors.New("payout method has an invalid payment address")

// wiseExecutor handles bank-transfer payouts. The actual transfer is uploaded
// to Wise as a CSV batch by the finance team, so the executor only validates
// the destination and returns no transfer reference.
type wiseExecutor struct {
	log *logger.Logger
}

func NewWiseExecutor(log *logger.Logger) PayoutExecutor {
	return &wiseExecutor{log: log}
}

func (e *wiseExecutor) Execute(ctx context.Context, promoter *models.Promoter, amount int64) (string, error) {
	if _, err := mail.ParseAddress(promoter.ActivePayoutMethod.PaymentAddress); err != nil {
		return "", ErrInvalidPaymentAddress
	}

	e.log.WithPromoterID(promoter.ID).Infof("Queued wise transfer of %d", amount)
	return "", nil
}

// OnchainSender submits a stablecoin transfer and returns its transaction
// signature once accepted by the network.
type OnchainSender interface {
	Send(ctx context.Context, recipient string, amount int64) (string, error)
}

type cryptoExecutor struct {
	sender OnchainSender
	log    *logger.Logger
}

func NewCryptoExecutor(sender OnchainSender, log *logger.Logger) PayoutExecutor {
	return &cryptoExecutor{sender: sender, log: log}
}

func (e *cryptoExecutor) Execute(ctx context.Context, promoter *models.Promoter, amount int64) (string, error) {
	address := promoter.ActivePayoutMethod.PaymentAddress
	if !helpers.IsWalletAddress(address) {
		return "", ErrInvalidPaymentAddress
	}

	signature, err := e.sender.Send(ctx, address, amount)
	if err != nil {
		return "", err
	}

	e.log.WithPromoterID(promoter.ID).Infof("Sent on-chain transfer %s of %d", signature, amount)
	return signature, nil
}

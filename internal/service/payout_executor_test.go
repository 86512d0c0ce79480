package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonary/referral-service/internal/models"
	"cryptonary/referral-service/pkg/logger"
)

type fakeSender struct {
	signature string
	err       error
	recipient string
	amount    int64
}

func (s *fakeSender) Send(ctx context.Context, recipient string, amount int64) (string, error) {
	s.recipient = recipient
	s.amount = amount
	return s.signature, s.err
}

func promoterWithAddress(method, address string) *models.Promoter {
	return &models.Promoter{
		ID:       1,
		UserID:   7,
		FullName: "Promo Ter",
		ActivePayoutMethod: &models.PayoutMethod{
			ID:             20,
			Method:         method,
			PaymentAddress: address,
		},
	}
}

func TestWiseExecutor(t *testing.T) {
	executor := NewWiseExecutor(logger.NewLogger("test"))
	ctx := context.Background()

	t.Run("AcceptsEmailAddress", func(t *testing.T) {
		signature, err := executor.Execute(ctx, promoterWithAddress("wise", "promoter@example.com"), 5000)
		require.NoError(t, err)
		assert.Empty(t, signature)
	})

	t.Run("RejectsNonEmail", func(t *testing.T) {
		_, err := executor.Execute(ctx, promoterWithAddress("wise", "not-an-email"), 5000)
		assert.ErrorIs(t, err, ErrInvalidPaymentAddress)
	})
}

func TestCryptoExecutor(t *testing.T) {
	ctx := context.Background()
	walletAddress := "A2b3C4d5E6f7G8h9J1k2m3n4p5q6r7s8t9u1v2w3"

	t.Run("SendsOnChain", func(t *testing.T) {
		sender := &fakeSender{signature: "sig123"}
		executor := NewCryptoExecutor(sender, logger.NewLogger("test"))

		signature, err := executor.Execute(ctx, promoterWithAddress("crypto", walletAddress), 5000)
		require.NoError(t, err)
		assert.Equal(t, "sig123", signature)
		assert.Equal(t, walletAddress, sender.recipient)
		assert.Equal(t, int64(5000), sender.amount)
	})

	t.Run("RejectsInvalidAddress", func(t *testing.T) {
		sender := &fakeSender{signature: "sig123"}
		executor := NewCryptoExecutor(sender, logger.NewLogger("test"))

		_, err := executor.Execute(ctx, promoterWithAddress("crypto", "0xdeadbeef"), 5000)
		assert.ErrorIs(t, err, ErrInvalidPaymentAddress)
		assert.Empty(t, sender.recipient)
	})

	t.Run("PropagatesSenderError", func(t *testing.T) {
		sendErr := errors.New("rpc unavailable")
		executor := NewCryptoExecutor(&fakeSender{err: sendErr}, logger.NewLogger("test"))

		_, err := executor.Execute(ctx, promoterWithAddress("crypto", walletAddress), 5000)
		assert.ErrorIs(t, err, sendErr)
	})
}

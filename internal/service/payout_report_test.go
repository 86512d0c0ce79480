package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonary/referral-service/pkg/logger"
)

type fakeEmailSender struct {
	calls      int
	to         string
	subject    string
	attachment []byte
}

func (s *fakeEmailSender) Send(ctx context.Context, to, subject, body string, attachmentName string, attachment []byte) error {
	s.calls++
	s.to = to
	s.subject = subject
	s.attachment = attachment
	return nil
}

func TestRenderPayoutCSV(t *testing.T) {
	rows := []PayoutRow{
		{Name: "Promo Ter", Address: "promoter@example.com", Amount: 3000, SourceCurrency: "USD", TargetCurrency: "USDC"},
		{Name: "Other One", Address: "other@example.com", Amount: 12345, SourceCurrency: "USD", TargetCurrency: "USDC"},
	}

	out, err := RenderPayoutCSV(rows)
	require.NoError(t, err)

	expected := "name,recipientEmail,amount,sourceCurrency,targetCurrency\n" +
		"Promo Ter,promoter@example.com,30.00,USD,USDC\n" +
		"Other One,other@example.com,123.45,USD,USDC\n"
	assert.Equal(t, expected, string(out))
}

func TestPayoutReporter_SendPayoutReport(t *testing.T) {
	ctx := context.Background()

	t.Run("SendsCSVAttachment", func(t *testing.T) {
		sender := &fakeEmailSender{}
		reporter := NewPayoutReporter(sender, "finance@cryptonary.com", logger.NewLogger("test"))

		rows := []PayoutRow{
			{Name: "Promo Ter", Address: "promoter@example.com", Amount: 3000, SourceCurrency: "USD", TargetCurrency: "USDC"},
		}
		require.NoError(t, reporter.SendPayoutReport(ctx, "wise", rows))

		assert.Equal(t, 1, sender.calls)
		assert.Equal(t, "finance@cryptonary.com", sender.to)
		assert.Contains(t, sender.subject, "wise")
		assert.Contains(t, string(sender.attachment), "30.00")
	})

	t.Run("SkipsEmptyBatch", func(t *testing.T) {
		sender := &fakeEmailSender{}
		reporter := NewPayoutReporter(sender, "finance@cryptonary.com", logger.NewLogger("test"))

		require.NoError(t, reporter.SendPayoutReport(ctx, "wise", nil))
		assert.Zero(t, sender.calls)
	})
}

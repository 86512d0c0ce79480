package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cryptonary/referral-service/pkg/logger"
)

// EmailSender delivers a payout report with its CSV attachment to the
// finance mailbox.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string, attachmentName string, attachment []byte) error
}

// PayoutReporter renders a finished payout batch as a CSV in the format the
// Wise batch-upload tool expects and mails it out.
type PayoutReporter interface {
	SendPayoutReport(ctx context.Context, method string, rows []PayoutRow) error
}

type payoutReporter struct {
	sender    EmailSender
	recipient string
	log       *logger.Logger
}

func NewPayoutReporter(sender EmailSender, recipient string, log *logger.Logger) PayoutReporter {
	return &payoutReporter{
		sender:    sender,
		recipient: recipient,
		log:       log,
	}
}

func (r *payoutReporter) SendPayoutReport(ctx context.Context, method string, rows []PayoutRow) error {
	if len(rows) == 0 {
		r.log.Infof("No payouts executed for method %q, skipping report", method)
		return nil
	}

	attachment, err := RenderPayoutCSV(rows)
	if err != nil {
		return fmt.Errorf("failed to render payout report: %w", err)
	}

	date := time.Now().Format("2006-01-02")
	subject := fmt.Sprintf("Referral payouts (%s) %s", method, date)
	body := fmt.Sprintf("%d promoters paid out via %s. Batch file attached.", len(rows), method)
	name := fmt.Sprintf("payouts-%s-%s.csv", method, date)

	if err := r.sender.Send(ctx, r.recipient, subject, body, name, attachment); err != nil {
		return fmt.Errorf("failed to send payout report: %w", err)
	}

	r.log.Infof("Payout report for %d rows sent to %s", len(rows), r.recipient)
	return nil
}

// RenderPayoutCSV writes payout rows in the Wise batch format. Amounts are
// converted from minor units to a two-decimal string.
func RenderPayoutCSV(rows []PayoutRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"name", "recipientEmail", "amount", "sourceCurrency", "targetCurrency"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.Name,
			row.Address,
			minorUnitsToDecimalString(row.Amount),
			row.SourceCurrency,
			row.TargetCurrency,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func minorUnitsToDecimalString(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

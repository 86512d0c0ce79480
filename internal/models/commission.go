package models

import "time"

// CommissionStatus is the state of a single commission row. Statuses only
// move forward (pending -> paid/failed, failed -> paid on a later successful
// payout). Refunds are recorded as new negative rows with status refund,
// never as mutations of the original commission.
type CommissionStatus string

const (
	CommissionStatusPending CommissionStatus = "pending"
	CommissionStatusPaid    CommissionStatus = "paid"
	CommissionStatusFailed  CommissionStatus = "failed"
	CommissionStatusRefund  CommissionStatus = "refund"
)

// PromoterCommission is a monetary credit (or negative clawback) owed to a
// promoter for a referral's payment activity. Amount is in minor units and
// signed: refund adjustments are negative.
type PromoterCommission struct {
	ID                uint64           `db:"id"`
	PromoterID        uint64           `db:"promoter_id"`
	ReferralID        uint64           `db:"referral_id"`
	Amount            int64            `db:"amount"`
	Status            CommissionStatus `db:"status"`
	FailureReason     *string          `db:"failure_reason"`
	InvoiceExternalID *string          `db:"invoice_external_id"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

// PromoterPayout is an actual disbursement of accumulated commission.
// Append-only, created exclusively by the payout batch processor.
type PromoterPayout struct {
	ID           uint64    `db:"id"`
	PromoterID   uint64    `db:"promoter_id"`
	Amount       int64     `db:"amount"` // minor units
	PayoutMethod string    `db:"payout_method"`
	TxSignature  *string   `db:"tx_signature"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

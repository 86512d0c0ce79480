package models

import "time"

// PayoutMethod holds a promoter's payout rail and destination.
// PaymentAddress is an email for bank-transfer rails (wise) and a wallet
// address for crypto rails.
type PayoutMethod struct {
	ID             uint64 `db:"id"`
	Method         string `db:"method"`
	PaymentAddress string `db:"payment_address"`
}

const (
	PayoutMethodWise   = "wise"
	PayoutMethodCrypto = "crypto"
)

// Promoter is a user who refers others and earns commission.
// Balances are never stored on the row; they are aggregated from
// commission and payout records on demand.
type Promoter struct {
	ID                   uint64     `db:"id"`
	UserID               uint64     `db:"user_id"`
	ReferralToken        string     `db:"referral_token"`
	ReferralLink         string     `db:"referral_link"`
	ActivePayoutMethodID *uint64    `db:"active_payout_method_id"`
	LinkClicked          int64      `db:"link_clicked"`
	MinWithdrawalBalance int64      `db:"min_withdrawal_balance"` // minor units
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`

	// Populated by joins, not columns of the promoters table.
	Email              string        `db:"-"`
	FullName           string        `db:"-"`
	ActivePayoutMethod *PayoutMethod `db:"-"`
}

// User is a read-only view over the shared users table. Identity management
// lives in another service; this service only reads id, email and name.
type User struct {
	ID       uint64 `db:"id"`
	Email    string `db:"email"`
	FullName string `db:"full_name"`
}

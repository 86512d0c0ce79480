package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralProgram is the commission configuration. At most one program is
// active at any time; activating a program deactivates all others and raises
// promoter minimum withdrawal balances that sit below the new program minimum.
type ReferralProgram struct {
	ID                   uint64          `db:"id"`
	Name                 string          `db:"name"`
	CommissionRate       decimal.Decimal `db:"commission_rate"` // percentage, 2 decimal places
	IsActive             bool            `db:"is_active"`
	MinWithdrawalBalance int64           `db:"min_withdrawal_balance"` // minor units
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

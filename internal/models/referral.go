package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReferralStatus is the lifecycle state of a referral.
// signup -> active -> refund, forward only.
type ReferralStatus string

const (
	ReferralStatusSignup ReferralStatus = "signup"
	ReferralStatusActive ReferralStatus = "active"
	ReferralStatusRefund ReferralStatus = "refund"
)

// InvitationMethod records how the referred user was invited.
type InvitationMethod string

const (
	InvitationMethodEmail InvitationMethod = "email"
	InvitationMethodLink  InvitationMethod = "link"
)

// Referral links one referred user to exactly one promoter.
// CommissionRate is snapshotted from the active program at creation time,
// so later program edits never change what an existing referral earns.
type Referral struct {
	ID               uint64           `db:"id"`
	UserID           uint64           `db:"user_id"`
	PromoterID       uint64           `db:"promoter_id"`
	InvitationMethod InvitationMethod `db:"invitation_method"`
	Status           ReferralStatus   `db:"status"`
	CommissionRate   decimal.Decimal  `db:"commission_rate"` // percentage, 2 decimal places
	CreatedAt        time.Time        `db:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at"`
}

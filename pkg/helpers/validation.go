package helpers

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps go-playground validator with referral-domain rules
type CustomValidator struct {
	validate *validator.Validate
}

// NewCustomValidator creates a new custom validator with payout rules
func NewCustomValidator() *CustomValidator {
	v := validator.New()

	// Register custom validators
	v.RegisterValidation("payout_method", validatePayoutMethod)
	v.RegisterValidation("wallet_address", validateWalletAddress)

	return &CustomValidator{validate: v}
}

// Validate validates a struct
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validate.Struct(i)
}

// validatePayoutMethod restricts payout methods to the supported rails
func validatePayoutMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "wise", "crypto":
		return true
	}
	return false
}

// validateWalletAddress validates a base58 solana wallet address
func validateWalletAddress(fl validator.FieldLevel) bool {
	return IsWalletAddress(fl.Field().String())
}

// IsWalletAddress reports whether s is a base58 solana wallet address
func IsWalletAddress(s string) bool {
	return walletAddressRegex.MatchString(s)
}

var walletAddressRegex = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

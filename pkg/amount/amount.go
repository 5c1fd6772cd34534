package amount

import (
	"errors"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMaxFractionDigits is how many fractional digits are shown to users.
const DefaultMaxFractionDigits = 6

// ErrInvalidAmount is returned when an amount string is not a non-negative decimal.
var ErrInvalidAmount = errors.New("invalid amount")

// ToRaw converts a human-readable decimal amount into the token's smallest
// unit, scaling by 10^decimals. Fractional digits beyond the token's decimals
// are truncated, never rounded up, so the on-chain amount can only be equal
// to or lower than what the user typed.
func ToRaw(human string, decimals int) (*big.Int, error) {
	human = strings.TrimSpace(human)
	if human == "" {
		return nil, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(human)
	if err != nil {
		return nil, ErrInvalidAmount
	}
	if d.IsNegative() {
		return nil, ErrInvalidAmount
	}

	raw := d.Shift(int32(decimals)).Truncate(0)
	return raw.BigInt(), nil
}

// ToHuman formats a raw smallest-unit amount with the implied decimal point,
// truncating the fractional part to maxFrac digits. Truncation keeps the
// displayed amount consistent with ToRaw's behavior.
func ToHuman(raw *big.Int, decimals int, maxFrac int) string {
	if raw == nil {
		return "0"
	}
	d := decimal.NewFromBigInt(raw, -int32(decimals))
	return d.Truncate(int32(maxFrac)).String()
}

// RequiredSourceAmount computes how much of the source token is needed to
// cover targetUSD, pricing the token from the donor's own balance valuation:
// pricePerToken = balanceUSD / humanBalance.
//
// A zero result means the token cannot be priced (zero balance, missing USD
// valuation, or a non-positive target). Callers must treat zero as "selection
// invalid" and keep the send action disabled; token pricing is transiently
// unavailable often enough that this is deliberately not an error.
func RequiredSourceAmount(targetUSD decimal.Decimal, rawBalance *big.Int, decimals int, balanceUSD decimal.Decimal) decimal.Decimal {
	if targetUSD.Sign() <= 0 {
		return decimal.Zero
	}
	if rawBalance == nil || rawBalance.Sign() == 0 {
		return decimal.Zero
	}
	if balanceUSD.Sign() <= 0 {
		return decimal.Zero
	}

	humanBalance := decimal.NewFromBigInt(rawBalance, -int32(decimals))
	if humanBalance.Sign() <= 0 {
		return decimal.Zero
	}

	pricePerToken := balanceUSD.Div(humanBalance)
	if pricePerToken.Sign() <= 0 {
		return decimal.Zero
	}

	return targetUSD.Div(pricePerToken)
}

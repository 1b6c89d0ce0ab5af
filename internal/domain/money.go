package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// Money is a monetary value in a single currency. Amount is a fixed-point
// decimal in major units (naira); kobo conversion happens only at the
// gateway boundary.
type Money struct {
	Amount   decimal.Decimal
	Currency string // ISO 4217
}

// NewMoney creates a Money value from a major-unit decimal.
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// ToMinorUnits converts the major-unit amount to the smallest currency
// unit (kobo for NGN). The gateway speaks minor units exclusively.
func (m Money) ToMinorUnits() int64 {
	return m.Amount.Mul(minorUnitsPerMajor).IntPart()
}

// FromMinorUnits converts a minor-unit amount into a major-unit decimal.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorUnitsPerMajor)
}

// HasValidScale reports whether the amount fits the ledger's two
// fractional digits exactly. Amounts with sub-kobo precision must be
// rejected up front: the store rounds to two digits while the kobo
// conversion truncates, and the two would disagree forever after.
func HasValidScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(2))
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// String returns the value formatted with two fractional digits.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

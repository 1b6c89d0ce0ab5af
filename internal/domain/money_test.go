package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_ToMinorUnits(t *testing.T) {
	m := NewMoney(decimal.RequireFromString("10.50"), "NGN")
	assert.Equal(t, int64(1050), m.ToMinorUnits())
}

func TestMoney_ToMinorUnits_WholeAmount(t *testing.T) {
	m := NewMoney(decimal.NewFromInt(5000), "NGN")
	assert.Equal(t, int64(500_000), m.ToMinorUnits())
}

func TestFromMinorUnits(t *testing.T) {
	d := FromMinorUnits(1050)
	assert.Equal(t, "10.5", d.String())
}

func TestMinorUnitsRoundTrip(t *testing.T) {
	original := decimal.RequireFromString("12345.67")
	m := NewMoney(original, "NGN")
	assert.True(t, FromMinorUnits(m.ToMinorUnits()).Equal(original))
}

func TestHasValidScale(t *testing.T) {
	assert.True(t, HasValidScale(decimal.NewFromInt(100)))
	assert.True(t, HasValidScale(decimal.RequireFromString("100.01")))
	assert.True(t, HasValidScale(decimal.RequireFromString("100.050"))) // trailing zero, still two digits of value

	// Sub-kobo precision would truncate to 10000 kobo while the store
	// rounds to 100.01; such amounts never enter the ledger.
	assert.False(t, HasValidScale(decimal.RequireFromString("100.005")))
	assert.False(t, HasValidScale(decimal.RequireFromString("0.001")))
}

func TestMoney_IsPositive(t *testing.T) {
	assert.True(t, NewMoney(decimal.NewFromInt(1), "NGN").IsPositive())
	assert.False(t, NewMoney(decimal.Zero, "NGN").IsPositive())
	assert.False(t, NewMoney(decimal.NewFromInt(-1), "NGN").IsPositive())
}

func TestMoney_String(t *testing.T) {
	m := NewMoney(decimal.RequireFromString("250.5"), "NGN")
	assert.Equal(t, "250.50 NGN", m.String())
}

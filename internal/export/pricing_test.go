package export

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWithVAT(t *testing.T) {
	assert.Equal(t, "118.00", WithVAT(dec("100")).StringFixed(2))
	// 12.095 rounds half up
	assert.Equal(t, "12.10", WithVAT(dec("10.25")).StringFixed(2))
	assert.Equal(t, "0.00", WithVAT(decimal.Zero).StringFixed(2))
}

func TestBalance(t *testing.T) {
	balance := Balance(dec("1000.00"), []decimal.Decimal{dec("300.00"), dec("50.00")}, dec("-20.00"))

	assert.True(t, balance.Equal(dec("630.00")), balance.String())
}

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 29, DaysInMonth(time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 31, DaysInMonth(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 30, DaysInMonth(time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDailyWriteOffCorrection(t *testing.T) {
	c := DailyWriteOffCorrection(dec("290"), time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

	assert.True(t, c.Equal(dec("-10")), c.String())
}

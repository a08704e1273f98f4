package export

import (
	"time"

	"github.com/shopspring/decimal"
)

// VATRate is applied to every fee taken from the source tariffs and services
var VATRate = decimal.RequireFromString("1.18")

// Date layouts of the target loader
const (
	DateLayout      = "02.01.2006"
	DateTimeLayout  = "02.01.2006 15:04"
	TimestampLayout = "02.01.2006 15:04:05"
)

// WithVAT inflates a fee by VATRate rounded half up to 2 decimals
func WithVAT(fee decimal.Decimal) decimal.Decimal {
	return fee.Mul(VATRate).Round(2)
}

// DaysInMonth returns the number of days in the month of t
func DaysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// DailyWriteOffCorrection is the negative pro-rated fee for one day of the month of now
func DailyWriteOffCorrection(monthlyFee decimal.Decimal, now time.Time) decimal.Decimal {
	return monthlyFee.Neg().Div(decimal.NewFromInt(int64(DaysInMonth(now))))
}

// Balance is child balance minus promised payments plus correction
func Balance(childBalance decimal.Decimal, promised []decimal.Decimal, correction decimal.Decimal) decimal.Decimal {
	balance := childBalance
	for _, p := range promised {
		balance = balance.Sub(p)
	}
	return balance.Add(correction)
}

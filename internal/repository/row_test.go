package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRowAccessors(t *testing.T) {
	ts := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)
	row := Row{
		"s":     "text",
		"n":     int64(42),
		"nstr":  "17.00",
		"f":     float64(3),
		"dec":   "12.345",
		"t":     ts,
		"tstr":  "2023-05-01",
		"b":     true,
		"bnum":  int64(0),
		"bstr":  "Y",
		"null":  nil,
		"bogus": "abc",
	}

	assert.Equal(t, "text", row.String("s"))
	assert.Equal(t, "42", row.String("n"))
	assert.Equal(t, "", row.String("null"))
	assert.Equal(t, "", row.String("absent"))

	assert.Equal(t, int64(42), row.Int64("n"))
	assert.Equal(t, int64(17), row.Int64("nstr"))
	assert.Equal(t, int64(3), row.Int64("f"))
	assert.Equal(t, int64(0), row.Int64("null"))
	assert.Nil(t, row.NullInt64("null"))
	assert.Nil(t, row.NullInt64("bogus"))

	assert.True(t, row.Decimal("dec").Equal(decimal.RequireFromString("12.345")))
	assert.True(t, row.Decimal("n").Equal(decimal.NewFromInt(42)))
	assert.False(t, row.NullDecimal("null").Valid)
	assert.False(t, row.NullDecimal("bogus").Valid)

	assert.Equal(t, ts, row.Time("t"))
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), row.Time("tstr"))
	assert.True(t, row.Time("null").IsZero())
	assert.Nil(t, row.NullTime("null"))

	assert.True(t, row.Bool("b"))
	assert.False(t, row.Bool("bnum"))
	assert.True(t, row.Bool("bstr"))
	assert.False(t, row.Bool("null"))

	assert.True(t, row.IsNull("null"))
	assert.True(t, row.IsNull("absent"))
	assert.False(t, row.IsNull("s"))
}

package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one result row keyed by lower-cased column name
type Row map[string]any

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	for i := range columns {
		columns[i] = strings.ToLower(columns[i])
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, name := range columns {
			// drivers may reuse byte buffers between rows
			if b, ok := values[i].([]byte); ok {
				row[name] = string(b)
			} else {
				row[name] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// IsNull reports whether the column is absent or NULL
func (r Row) IsNull(col string) bool {
	return r[col] == nil
}

// String returns the column as text, "" for NULL
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 returns the column as integer, 0 for NULL
func (r Row) Int64(col string) int64 {
	if v := r.NullInt64(col); v != nil {
		return *v
	}
	return 0
}

// NullInt64 returns the column as integer, nil for NULL or non-numeric values
func (r Row) NullInt64(col string) *int64 {
	var n int64
	switch v := r[col].(type) {
	case nil:
		return nil
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case float64:
		n = int64(v)
	case bool:
		if v {
			n = 1
		}
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		n = d.IntPart()
	default:
		parsed, err := strconv.ParseInt(fmt.Sprint(v), 10, 64)
		if err != nil {
			return nil
		}
		n = parsed
	}
	return &n
}

// Decimal returns the column as exact decimal, zero for NULL
func (r Row) Decimal(col string) decimal.Decimal {
	return r.NullDecimal(col).Decimal
}

// NullDecimal returns the column as exact decimal
func (r Row) NullDecimal(col string) decimal.NullDecimal {
	switch v := r[col].(type) {
	case nil:
		return decimal.NullDecimal{}
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v))
	case int32:
		return decimal.NewNullDecimal(decimal.NewFromInt32(v))
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v)))
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	case decimal.Decimal:
		return decimal.NewNullDecimal(v)
	default:
		d, err := decimal.NewFromString(fmt.Sprint(v))
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	}
}

// Time returns the column as time, zero time for NULL
func (r Row) Time(col string) time.Time {
	if t := r.NullTime(col); t != nil {
		return *t
	}
	return time.Time{}
}

// NullTime returns the column as time, nil for NULL
func (r Row) NullTime(col string) *time.Time {
	switch v := r[col].(type) {
	case time.Time:
		return &v
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return &t
			}
		}
	}
	return nil
}

// Bool returns the column as boolean; numeric columns are true when not zero
func (r Row) Bool(col string) bool {
	switch v := r[col].(type) {
	case bool:
		return v
	case nil:
		return false
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s != "" && s != "0" && s != "f" && s != "false" && s != "n"
	default:
		return r.Int64(col) != 0
	}
}

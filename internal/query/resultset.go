package query

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ResultSet is the tabular outcome of one query: named columns and rows of
// driver values (int64, float64, string, nil, time.Time).
type ResultSet struct {
	Columns []string `msgpack:"columns" json:"columns"`
	Rows    [][]any  `msgpack:"rows" json:"rows"`
}

func (rs ResultSet) Len() int {
	return len(rs.Rows)
}

func (rs ResultSet) Empty() bool {
	return len(rs.Rows) == 0
}

// Clone copies the row slices so callers cannot mutate a cached result.
func (rs ResultSet) Clone() ResultSet {
	out := ResultSet{
		Columns: append([]string(nil), rs.Columns...),
		Rows:    make([][]any, len(rs.Rows)),
	}
	for i, row := range rs.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

func (rs ResultSet) index(col string) int {
	for i, c := range rs.Columns {
		if c == col {
			return i
		}
	}
	return -1
}

// Value returns the raw value at row/col, or nil if either is out of range.
func (rs ResultSet) Value(row int, col string) any {
	i := rs.index(col)
	if i < 0 || row < 0 || row >= len(rs.Rows) || i >= len(rs.Rows[row]) {
		return nil
	}
	return rs.Rows[row][i]
}

func (rs ResultSet) IsNull(row int, col string) bool {
	return rs.Value(row, col) == nil
}

func (rs ResultSet) String(row int, col string) string {
	switch v := rs.Value(row, col).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.DateOnly)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		if n, ok := toInt64(v); ok {
			return strconv.FormatInt(n, 10)
		}
		return ""
	}
}

// Int64 returns the value as an integer; NULL and non-numeric values are 0.
func (rs ResultSet) Int64(row int, col string) int64 {
	n, _ := toInt64(rs.Value(row, col))
	return n
}

// Decimal returns the value as a decimal; NULL is zero.
func (rs ResultSet) Decimal(row int, col string) decimal.Decimal {
	return rs.NullDecimal(row, col).Decimal
}

// NullDecimal keeps SQL NULL distinguishable from zero.
func (rs ResultSet) NullDecimal(row int, col string) decimal.NullDecimal {
	d, ok := toDecimal(rs.Value(row, col))
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	case []byte:
		i, err := strconv.ParseInt(string(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	case []byte:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	default:
		if i, ok := toInt64(v); ok {
			return decimal.NewFromInt(i), true
		}
		return decimal.Zero, false
	}
}

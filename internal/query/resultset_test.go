package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResultSet_Accessors(t *testing.T) {
	rs := ResultSet{
		Columns: []string{"id", "name", "amount", "maybe", "day", "raw"},
		Rows: [][]any{
			{int64(7), "Widget", 29.97, nil, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), []byte("12.5")},
			{uint64(8), []byte("Gadget"), int64(100), 1.5, "2026-10-02", "3"},
		},
	}

	assert.Equal(t, 2, rs.Len())
	assert.False(t, rs.Empty())

	assert.Equal(t, int64(7), rs.Int64(0, "id"))
	assert.Equal(t, int64(8), rs.Int64(1, "id"))
	assert.Equal(t, "Widget", rs.String(0, "name"))
	assert.Equal(t, "Gadget", rs.String(1, "name"))
	assert.Equal(t, "29.97", rs.Decimal(0, "amount").String())
	assert.Equal(t, "100", rs.Decimal(1, "amount").String())
	assert.Equal(t, "2026-10-01", rs.String(0, "day"))
	assert.Equal(t, "2026-10-02", rs.String(1, "day"))
	assert.Equal(t, "12.5", rs.Decimal(0, "raw").String())
	assert.Equal(t, int64(3), rs.Int64(1, "raw"))

	assert.True(t, rs.IsNull(0, "maybe"))
	assert.False(t, rs.NullDecimal(0, "maybe").Valid)
	assert.True(t, rs.Decimal(0, "maybe").IsZero())
	assert.True(t, rs.NullDecimal(1, "maybe").Valid)
}

func TestResultSet_OutOfRange(t *testing.T) {
	rs := ResultSet{Columns: []string{"a"}, Rows: [][]any{{int64(1)}}}

	assert.Nil(t, rs.Value(5, "a"))
	assert.Nil(t, rs.Value(0, "missing"))
	assert.Equal(t, int64(0), rs.Int64(-1, "a"))
	assert.Equal(t, "", rs.String(0, "missing"))
	assert.True(t, ResultSet{}.Empty())
}

func TestResultSet_CloneIsIndependent(t *testing.T) {
	rs := ResultSet{Columns: []string{"a"}, Rows: [][]any{{int64(1)}}}
	cp := rs.Clone()
	cp.Rows[0][0] = int64(99)
	cp.Columns[0] = "b"

	assert.Equal(t, int64(1), rs.Int64(0, "a"))
	assert.Equal(t, "a", rs.Columns[0])
}

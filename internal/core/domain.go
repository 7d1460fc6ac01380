package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	SegmentVIP     Segment = "VIP"
	SegmentPremium Segment = "Premium"
	SegmentRegular Segment = "Regular"
	SegmentNew     Segment = "New"
)

type (
	// Segment buckets a customer by total spend.
	Segment string

	Customer struct {
		ID      int64  `json:"customer_id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Country string `json:"country"`
	}

	Product struct {
		ID       int64           `json:"product_id"`
		Name     string          `json:"product_name"`
		Category string          `json:"category"`
		Price    decimal.Decimal `json:"price"`
	}

	Order struct {
		ID         int64  `json:"order_id"`
		CustomerID int64  `json:"customer_id"`
		ProductID  int64  `json:"product_id"`
		Quantity   int64  `json:"quantity"`
		OrderDate  string `json:"order_date"` // YYYY-MM-DD as stored
	}

	// Thresholds are the minimum total spend for each segment, in the base currency unit.
	// Anything below Regular is New.
	Thresholds struct {
		VIP     decimal.Decimal
		Premium decimal.Decimal
		Regular decimal.Decimal
	}
)

var ErrInvalidThresholds = errors.New("segment thresholds must be positive and strictly decreasing from VIP to Regular")

// DefaultThresholds returns VIP ≥ 10000, Premium ≥ 5000, Regular ≥ 1000.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VIP:     decimal.NewFromInt(10000),
		Premium: decimal.NewFromInt(5000),
		Regular: decimal.NewFromInt(1000),
	}
}

func (t Thresholds) Validate() error {
	if !t.Regular.IsPositive() || !t.Premium.GreaterThan(t.Regular) || !t.VIP.GreaterThan(t.Premium) {
		return ErrInvalidThresholds
	}
	return nil
}

// Segments lists every segment from highest to lowest spend.
func Segments() []Segment {
	return []Segment{SegmentVIP, SegmentPremium, SegmentRegular, SegmentNew}
}

package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder messages shown in place of an empty panel.
const (
	NoticeNoData         = "No data available for the selected period"
	NoticeNoProducts     = "No product data available"
	NoticeNoCountries    = "No geographic data available"
	NoticeNoSegments     = "No customer segment data available"
	NoticeNoCustomers    = "No customer data available"
	NoticeNoPerformance  = "No product performance data available"
	NoticeNoRecentOrders = "No recent orders data available"
	NoticeQueryFailed    = "Data could not be loaded; showing an empty result"
)

// KPIs are the headline metrics. Missing values are zero.
type KPIs struct {
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalOrders    int64           `json:"total_orders"`
	TotalCustomers int64           `json:"total_customers"`
	AvgOrderValue  decimal.Decimal `json:"avg_order_value"`
}

type MonthlyPoint struct {
	Month   string          `json:"month"` // YYYY-MM
	Revenue decimal.Decimal `json:"monthly_revenue"`
	Orders  int64           `json:"monthly_orders"`
}

type ProductSales struct {
	ProductName string          `json:"product_name"`
	UnitsSold   int64           `json:"total_sold"`
	Revenue     decimal.Decimal `json:"total_revenue"`
}

type CountryRevenue struct {
	Country   string          `json:"country"`
	Revenue   decimal.Decimal `json:"revenue"`
	Customers int64           `json:"customers"`
	Orders    int64           `json:"orders"`
}

type SegmentSummary struct {
	Segment       Segment         `json:"segment"`
	CustomerCount int64           `json:"customer_count"`
	AvgSpending   decimal.Decimal `json:"avg_spending"`
}

type CustomerSpend struct {
	Customer      Customer        `json:"customer"`
	Orders        int64           `json:"total_orders"`
	Items         int64           `json:"total_items"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	LastOrderDate string          `json:"last_order_date"`
}

// ProductPerformance carries the average selling price only when units were sold;
// otherwise AvgSellingPrice.Valid is false.
type ProductPerformance struct {
	Product         Product             `json:"product"`
	UnitsSold       int64               `json:"units_sold"`
	Revenue         decimal.Decimal     `json:"total_revenue"`
	UniqueCustomers int64               `json:"unique_customers"`
	AvgSellingPrice decimal.NullDecimal `json:"avg_selling_price"`
}

type RecentOrder struct {
	Order        Order           `json:"order"`
	CustomerName string          `json:"customer_name"`
	ProductName  string          `json:"product_name"`
	Price        decimal.Decimal `json:"price"`
	Value        decimal.Decimal `json:"order_value"`
}

// Panel is one renderable section. Notice is set whenever Rows is empty, and
// Failed marks that the emptiness came from a query failure.
type Panel[T any] struct {
	Rows   []T    `json:"rows"`
	Notice string `json:"notice,omitempty"`
	Failed bool   `json:"failed,omitempty"`
}

// Empty reports whether the panel has nothing to draw.
func (p Panel[T]) Empty() bool {
	return len(p.Rows) == 0
}

// Report is everything one render cycle produces for a filter.
type Report struct {
	Filter      Filter    `json:"filter"`
	GeneratedAt time.Time `json:"generated_at"`

	KPIs       KPIs   `json:"kpis"`
	KPINotice  string `json:"kpi_notice,omitempty"`
	KPIsFailed bool   `json:"kpis_failed,omitempty"`

	MonthlyTrend     Panel[MonthlyPoint]   `json:"monthly_trend"`
	TopProducts      Panel[ProductSales]   `json:"top_products"`
	RevenueByCountry Panel[CountryRevenue] `json:"revenue_by_country"`
	CustomerSegments Panel[SegmentSummary] `json:"customer_segments"`

	// Detail panels are populated only when Filter.ShowDetails is set.
	TopCustomers       *Panel[CustomerSpend]      `json:"top_customers,omitempty"`
	ProductPerformance *Panel[ProductPerformance] `json:"product_performance,omitempty"`
	RecentOrders       *Panel[RecentOrder]        `json:"recent_orders,omitempty"`
}

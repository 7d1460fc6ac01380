package query

import (
	"context"

	"github.com/shopspring/decimal"

	"ecomdash/internal/core"
)

// Analytics turns aggregate result sets into typed report rows. Scalar
// aggregates over no rows (SQL NULL) read as zero.
type Analytics struct {
	exec    Executor
	builder *Builder
}

func NewAnalytics(exec Executor, builder *Builder) *Analytics {
	return &Analytics{exec: exec, builder: builder}
}

func (a *Analytics) scalarDecimal(ctx context.Context, q Query, col string) (decimal.Decimal, error) {
	rs, err := a.exec.Execute(ctx, q)
	if err != nil || rs.Empty() {
		return decimal.Zero, err
	}
	return rs.Decimal(0, col), nil
}

func (a *Analytics) scalarInt(ctx context.Context, q Query, col string) (int64, error) {
	rs, err := a.exec.Execute(ctx, q)
	if err != nil || rs.Empty() {
		return 0, err
	}
	return rs.Int64(0, col), nil
}

func (a *Analytics) TotalRevenue(ctx context.Context, f core.Filter) (decimal.Decimal, error) {
	return a.scalarDecimal(ctx, a.builder.TotalRevenue(f), "total_revenue")
}

func (a *Analytics) TotalOrders(ctx context.Context, f core.Filter) (int64, error) {
	return a.scalarInt(ctx, a.builder.TotalOrders(f), "total_orders")
}

func (a *Analytics) TotalCustomers(ctx context.Context, f core.Filter) (int64, error) {
	return a.scalarInt(ctx, a.builder.TotalCustomers(f), "total_customers")
}

func (a *Analytics) AverageOrderValue(ctx context.Context, f core.Filter) (decimal.Decimal, error) {
	return a.scalarDecimal(ctx, a.builder.AverageOrderValue(f), "avg_order_value")
}

func (a *Analytics) MonthlyTrend(ctx context.Context, f core.Filter) ([]core.MonthlyPoint, error) {
	rs, err := a.exec.Execute(ctx, a.builder.MonthlyTrend(f))
	if err != nil {
		return nil, err
	}
	out := make([]core.MonthlyPoint, 0, rs.Len())
	for i := range rs.Rows {
		out = append(out, core.MonthlyPoint{
			Month:   rs.String(i, "month"),
			Revenue: rs.Decimal(i, "monthly_revenue"),
			Orders:  rs.Int64(i, "monthly_orders"),
		})
	}
	return out, nil
}

func (a *Analytics) TopProducts(ctx context.Context, f core.Filter) ([]core.ProductSales, error) {
	rs, err := a.exec.Execute(ctx, a.builder.TopProducts(f))
	if err != nil {
		return nil, err
	}
	out := make([]core.ProductSales, 0, rs.Len())
	for i := range rs.Rows {
		out = append(out, core.ProductSales{
			ProductName: rs.String(i, "product_name"),
			UnitsSold:   rs.Int64(i, "total_sold"),
			Revenue:     rs.Decimal(i, "total_revenue"),
		})
	}
	return out, nil
}

func (a *Analytics) RevenueByCountry(ctx context.Context, f core.Filter) ([]core.CountryRevenue, error) {
	rs, err := a.exec.Execute(ctx, a.builder.RevenueByCountry(f))
	if err != nil {
		return nil, err
	}
	out := make([]core.CountryRevenue, 0, rs.Len())
	for i := range rs.Rows {
		out = append(out, core.CountryRevenue{
			Country:   rs.String(i, "country"),
			Revenue:   rs.Decimal(i, "revenue"),
			Customers: rs.Int64(i, "customers"),
			Orders:    rs.Int64(i, "orders"),
		})
	}
	return out, nil
}

func (a *Analytics) CustomerSegments(ctx context.Context, f core.Filter) ([]core.SegmentSummary, error) {
	rs, err := a.exec.Execute(ctx, a.builder.CustomerSegments(f))
	if err != nil {
		return nil, err
	}
	out := make([]core.SegmentSummary, 0, rs.Len())
	for i := range rs.Rows {
		out = append(out, core.SegmentSummary{
			Segment:       core.Segment(rs.String(i, "segment")),
			CustomerCount: rs.Int64(i, "customer_count"),
			AvgSpending:   rs.Decimal(i, "avg_spending"),
		})
	}
	return out, nil
}

func (a *Analytics) TopCustomers(ctx context.Context, f core.Filter) ([]core.CustomerSpend, error) {
	rs, err := a.exec.Execute(ctx, a.builder.TopCustomers(f))
	if err != nil {
		return nil, err
	}
	out := make([]core.CustomerSpend, 0, rs.Len())
	for i := range rs.Rows {
		out = append(out, core.CustomerSpend{
			Customer: core.Customer{
				ID:      rs.Int64(i, "customer_id"),
				Name:    rs.String(i, "name"),
				Email:   rs.String(i, "email"),
				Country: rs.String(i, "country"),
			},
			Orders:        rs.Int64(i, "total_orders"),
			Items:         rs.Int64(i, "total_items"),
			TotalSpent:    rs.Decimal(i, "total_spent"),
			LastOrderDate: rs.String(i, "last_order_date"),
		})
	}
	return out, nil
}

func (a *Analytics) ProductPerformance(ctx context.Context, f core.Filter) ([]core.ProductPerformance, error) {
	rs, err := a.exec.Execute(ctx, a.builder.ProductPerformance(f))
	if err != nil {
		return nil, err
	}
	out := make([]core.ProductPerformance, 0, rs.Len())
	for i := range rs.Rows {
		out = append(out, core.ProductPerformance{
			Product: core.Product{
				ID:       rs.Int64(i, "product_id"),
				Name:     rs.String(i, "product_name"),
				Category: rs.String(i, "category"),
				Price:    rs.Decimal(i, "price"),
			},
			UnitsSold:       rs.Int64(i, "units_sold"),
			Revenue:         rs.Decimal(i, "total_revenue"),
			UniqueCustomers: rs.Int64(i, "unique_customers"),
			AvgSellingPrice: rs.NullDecimal(i, "avg_selling_price"),
		})
	}
	return out, nil
}

func (a *Analytics) RecentOrders(ctx context.Context, f core.Filter) ([]core.RecentOrder, error) {
	rs, err := a.exec.Execute(ctx, a.builder.RecentOrders(f))
	if err != nil {
		return nil, err
	}
	out := make([]core.RecentOrder, 0, rs.Len())
	for i := range rs.Rows {
		out = append(out, core.RecentOrder{
			Order: core.Order{
				ID:         rs.Int64(i, "order_id"),
				CustomerID: rs.Int64(i, "customer_id"),
				ProductID:  rs.Int64(i, "product_id"),
				Quantity:   rs.Int64(i, "quantity"),
				OrderDate:  rs.String(i, "order_date"),
			},
			CustomerName: rs.String(i, "customer_name"),
			ProductName:  rs.String(i, "product_name"),
			Price:        rs.Decimal(i, "price"),
			Value:        rs.Decimal(i, "order_value"),
		})
	}
	return out, nil
}

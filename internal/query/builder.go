package query

import (
	"fmt"
	"strings"

	"ecomdash/internal/core"
)

// Aggregate names, used as query names in logs, metrics and cache entries.
const (
	AggTotalRevenue       = "total_revenue"
	AggTotalOrders        = "total_orders"
	AggTotalCustomers     = "total_customers"
	AggAverageOrderValue  = "avg_order_value"
	AggMonthlyTrend       = "monthly_trend"
	AggTopProducts        = "top_products"
	AggRevenueByCountry   = "revenue_by_country"
	AggCustomerSegments   = "customer_segments"
	AggTopCustomers       = "top_customers"
	AggProductPerformance = "product_performance"
	AggRecentOrders       = "recent_orders"
)

// dateFilterMarker is replaced by the order-date predicate, or by nothing for
// the all-time range.
const dateFilterMarker = "{{date_filter}}"

const dateFilterSQL = "AND o.order_date >= ?"

// Query is one parameterized statement. Args are bound positionally in the
// order their placeholders appear in SQL.
type Query struct {
	Name string
	SQL  string
	Args []any
}

// Rendered returns the statement text together with its bound arguments. Two
// queries with the same rendering always produce the same result.
func (q Query) Rendered() string {
	var b strings.Builder
	b.WriteString(q.SQL)
	for i, arg := range q.Args {
		fmt.Fprintf(&b, "\n-- $%d %T=%v", i+1, arg, arg)
	}
	return b.String()
}

// Options controls ranking limits and segmentation thresholds.
type Options struct {
	Thresholds   core.Thresholds
	TopProducts  int
	TopCountries int
	TopCustomers int
	RecentOrders int
}

func DefaultOptions() Options {
	return Options{
		Thresholds:   core.DefaultThresholds(),
		TopProducts:  5,
		TopCountries: 10,
		TopCustomers: 10,
		RecentOrders: 20,
	}
}

// Builder renders the dashboard aggregates for a filter. Nothing taken from
// the filter is ever spliced into SQL text; it is always bound.
type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts}
}

func (b *Builder) Options() Options {
	return b.opts
}

// build substitutes the date predicate and assembles the argument list. before
// holds args whose placeholders precede the predicate, after those following it.
func build(name, tmpl string, f core.Filter, before []any, after ...any) Query {
	args := append([]any(nil), before...)
	predicate := ""
	if since, ok := f.SinceParam(); ok {
		predicate = dateFilterSQL
		args = append(args, since)
	}
	args = append(args, after...)
	return Query{
		Name: name,
		SQL:  strings.TrimSpace(strings.ReplaceAll(tmpl, dateFilterMarker, predicate)),
		Args: args,
	}
}

func (b *Builder) TotalRevenue(f core.Filter) Query {
	return build(AggTotalRevenue, `
SELECT SUM(p.price * o.quantity) AS total_revenue
FROM orders o
JOIN products p ON o.product_id = p.product_id
WHERE 1=1 {{date_filter}}`, f, nil)
}

func (b *Builder) TotalOrders(f core.Filter) Query {
	return build(AggTotalOrders, `
SELECT COUNT(DISTINCT o.order_id) AS total_orders
FROM orders o
WHERE 1=1 {{date_filter}}`, f, nil)
}

func (b *Builder) TotalCustomers(f core.Filter) Query {
	return build(AggTotalCustomers, `
SELECT COUNT(DISTINCT o.customer_id) AS total_customers
FROM orders o
WHERE 1=1 {{date_filter}}`, f, nil)
}

func (b *Builder) AverageOrderValue(f core.Filter) Query {
	return build(AggAverageOrderValue, `
SELECT AVG(order_total) AS avg_order_value
FROM (
    SELECT o.order_id, SUM(p.price * o.quantity) AS order_total
    FROM orders o
    JOIN products p ON o.product_id = p.product_id
    WHERE 1=1 {{date_filter}}
    GROUP BY o.order_id
) order_totals`, f, nil)
}

func (b *Builder) MonthlyTrend(f core.Filter) Query {
	return build(AggMonthlyTrend, `
SELECT strftime('%Y-%m', o.order_date) AS month,
       SUM(p.price * o.quantity) AS monthly_revenue,
       COUNT(DISTINCT o.order_id) AS monthly_orders
FROM orders o
JOIN products p ON o.product_id = p.product_id
WHERE 1=1 {{date_filter}}
GROUP BY month
ORDER BY month`, f, nil)
}

func (b *Builder) TopProducts(f core.Filter) Query {
	return build(AggTopProducts, `
SELECT p.product_id,
       p.product_name,
       SUM(o.quantity) AS total_sold,
       SUM(p.price * o.quantity) AS total_revenue
FROM orders o
JOIN products p ON o.product_id = p.product_id
WHERE 1=1 {{date_filter}}
GROUP BY p.product_id, p.product_name
ORDER BY total_sold DESC, p.product_id ASC
LIMIT ?`, f, nil, b.opts.TopProducts)
}

func (b *Builder) RevenueByCountry(f core.Filter) Query {
	return build(AggRevenueByCountry, `
SELECT c.country,
       SUM(p.price * o.quantity) AS revenue,
       COUNT(DISTINCT o.customer_id) AS customers,
       COUNT(DISTINCT o.order_id) AS orders
FROM orders o
JOIN customers c ON o.customer_id = c.customer_id
JOIN products p ON o.product_id = p.product_id
WHERE 1=1 {{date_filter}}
GROUP BY c.country
ORDER BY revenue DESC, c.country ASC
LIMIT ?`, f, nil, b.opts.TopCountries)
}

// CustomerSegments buckets every customer with spend in the period into
// exactly one segment. Threshold placeholders precede the date predicate.
func (b *Builder) CustomerSegments(f core.Filter) Query {
	t := b.opts.Thresholds
	return build(AggCustomerSegments, `
SELECT CASE
           WHEN total_spent >= ? THEN 'VIP'
           WHEN total_spent >= ? THEN 'Premium'
           WHEN total_spent >= ? THEN 'Regular'
           ELSE 'New'
       END AS segment,
       COUNT(*) AS customer_count,
       AVG(total_spent) AS avg_spending
FROM (
    SELECT c.customer_id, SUM(p.price * o.quantity) AS total_spent
    FROM customers c
    JOIN orders o ON c.customer_id = o.customer_id
    JOIN products p ON o.product_id = p.product_id
    WHERE 1=1 {{date_filter}}
    GROUP BY c.customer_id
) customer_totals
GROUP BY segment
ORDER BY avg_spending DESC`, f,
		[]any{t.VIP.InexactFloat64(), t.Premium.InexactFloat64(), t.Regular.InexactFloat64()})
}

func (b *Builder) TopCustomers(f core.Filter) Query {
	return build(AggTopCustomers, `
SELECT c.customer_id,
       c.name,
       c.email,
       c.country,
       COUNT(o.order_id) AS total_orders,
       SUM(o.quantity) AS total_items,
       SUM(p.price * o.quantity) AS total_spent,
       MAX(o.order_date) AS last_order_date
FROM customers c
JOIN orders o ON c.customer_id = o.customer_id
JOIN products p ON o.product_id = p.product_id
WHERE 1=1 {{date_filter}}
GROUP BY c.customer_id, c.name, c.email, c.country
ORDER BY total_spent DESC, c.customer_id ASC
LIMIT ?`, f, nil, b.opts.TopCustomers)
}

// ProductPerformance yields NULL avg_selling_price for products with no units
// sold in the period.
func (b *Builder) ProductPerformance(f core.Filter) Query {
	return build(AggProductPerformance, `
SELECT p.product_id,
       p.product_name,
       p.category,
       p.price,
       SUM(o.quantity) AS units_sold,
       SUM(p.price * o.quantity) AS total_revenue,
       COUNT(DISTINCT o.customer_id) AS unique_customers,
       CASE
           WHEN SUM(o.quantity) > 0
           THEN ROUND(SUM(p.price * o.quantity) * 1.0 / SUM(o.quantity), 2)
       END AS avg_selling_price
FROM products p
JOIN orders o ON p.product_id = o.product_id
WHERE 1=1 {{date_filter}}
GROUP BY p.product_id, p.product_name, p.category, p.price
ORDER BY total_revenue DESC, p.product_id ASC`, f, nil)
}

func (b *Builder) RecentOrders(f core.Filter) Query {
	return build(AggRecentOrders, `
SELECT o.order_id,
       o.order_date,
       o.customer_id,
       o.product_id,
       c.name AS customer_name,
       p.product_name,
       o.quantity,
       p.price,
       (p.price * o.quantity) AS order_value
FROM orders o
JOIN customers c ON o.customer_id = c.customer_id
JOIN products p ON o.product_id = p.product_id
WHERE 1=1 {{date_filter}}
ORDER BY o.order_date DESC, o.order_id DESC
LIMIT ?`, f, nil, b.opts.RecentOrders)
}

// All returns the queries a render issues for f, detail aggregates included
// only when f.ShowDetails is set.
func (b *Builder) All(f core.Filter) []Query {
	qs := []Query{
		b.TotalRevenue(f),
		b.TotalOrders(f),
		b.TotalCustomers(f),
		b.AverageOrderValue(f),
		b.MonthlyTrend(f),
		b.TopProducts(f),
		b.RevenueByCountry(f),
		b.CustomerSegments(f),
	}
	if f.ShowDetails {
		qs = append(qs, b.TopCustomers(f), b.ProductPerformance(f), b.RecentOrders(f))
	}
	return qs
}

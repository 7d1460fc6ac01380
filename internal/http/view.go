package http

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"ecomdash/internal/core"
)

// notAvailable is shown where a value is undefined, such as the average
// selling price of a product with no units sold.
const notAvailable = "n/a"

type rangeOption struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

type refreshOption struct {
	Seconds  int    `json:"seconds"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// refreshChoices are the auto-refresh periods offered in the form, in seconds.
var refreshChoices = []int{0, 30, 60, 300}

type kpiCard struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type panelView[T any] struct {
	Rows   []T    `json:"rows"`
	Notice string `json:"notice,omitempty"`
	Failed bool   `json:"failed,omitempty"`
}

type monthRow struct {
	Month   string `json:"month"`
	Revenue string `json:"revenue"`
	Orders  string `json:"orders"`
	Width   int    `json:"width"`
}

type productRow struct {
	Name    string `json:"product_name"`
	Units   string `json:"units_sold"`
	Revenue string `json:"revenue"`
	Width   int    `json:"width"`
}

type countryRow struct {
	Country   string `json:"country"`
	Revenue   string `json:"revenue"`
	Share     string `json:"share"`
	Customers string `json:"customers"`
	Orders    string `json:"orders"`
	Width     int    `json:"width"`
}

type segmentRow struct {
	Segment     string `json:"segment"`
	Customers   string `json:"customers"`
	AvgSpending string `json:"avg_spending"`
	Width       int    `json:"width"`
}

type customerRow struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Country    string `json:"country"`
	Orders     int64  `json:"orders"`
	Items      int64  `json:"items"`
	TotalSpent string `json:"total_spent"`
	LastOrder  string `json:"last_order"`
}

type performanceRow struct {
	Product         string `json:"product"`
	Category        string `json:"category"`
	Price           string `json:"price"`
	UnitsSold       int64  `json:"units_sold"`
	Revenue         string `json:"revenue"`
	UniqueCustomers int64  `json:"unique_customers"`
	AvgSellingPrice string `json:"avg_selling_price"`
}

type orderRow struct {
	ID       int64  `json:"order_id"`
	Date     string `json:"order_date"`
	Customer string `json:"customer"`
	Product  string `json:"product"`
	Quantity int64  `json:"quantity"`
	Price    string `json:"price"`
	Value    string `json:"order_value"`
}

// dashboardView is the display-ready form of a core.Report: every amount is
// formatted and every panel has either rows or a notice.
type dashboardView struct {
	Range        string          `json:"range"`
	RangeLabel   string          `json:"range_label"`
	Ranges       []rangeOption   `json:"-"`
	ShowDetails  bool            `json:"show_details"`
	Refresh      int             `json:"refresh,omitempty"`
	Refreshes    []refreshOption `json:"-"`
	RangeWarning string          `json:"range_warning,omitempty"`
	GeneratedAt  string          `json:"generated_at"`

	KPIs      []kpiCard `json:"kpis"`
	KPINotice string    `json:"kpi_notice,omitempty"`

	MonthlyTrend     panelView[monthRow]   `json:"monthly_trend"`
	TopProducts      panelView[productRow] `json:"top_products"`
	RevenueByCountry panelView[countryRow] `json:"revenue_by_country"`
	CustomerSegments panelView[segmentRow] `json:"customer_segments"`

	TopCustomers       *panelView[customerRow]    `json:"top_customers,omitempty"`
	ProductPerformance *panelView[performanceRow] `json:"product_performance,omitempty"`
	RecentOrders       *panelView[orderRow]       `json:"recent_orders,omitempty"`
}

func newPanelView[S, T any](p core.Panel[S], row func(S) T) panelView[T] {
	v := panelView[T]{Rows: make([]T, 0, len(p.Rows)), Notice: p.Notice, Failed: p.Failed}
	for _, r := range p.Rows {
		v.Rows = append(v.Rows, row(r))
	}
	return v
}

func buildView(rep core.Report, req dashboardRequest, f core.Formatter) dashboardView {
	v := dashboardView{
		Range:        string(rep.Filter.Range),
		RangeLabel:   rep.Filter.Range.Label(),
		ShowDetails:  rep.Filter.ShowDetails,
		Refresh:      req.Refresh,
		RangeWarning: req.RangeWarning,
		GeneratedAt:  rep.GeneratedAt.UTC().Format(time.DateTime + " MST"),
		KPINotice:    rep.KPINotice,
	}
	for _, r := range core.DateRanges() {
		v.Ranges = append(v.Ranges, rangeOption{Code: string(r), Label: r.Label(), Selected: r == rep.Filter.Range})
	}

	v.Refreshes = refreshOptions(req.Refresh)

	v.KPIs = []kpiCard{
		{Label: "Total Revenue", Value: f.Currency(rep.KPIs.TotalRevenue)},
		{Label: "Total Orders", Value: core.FormatCount(rep.KPIs.TotalOrders)},
		{Label: "Active Customers", Value: core.FormatCount(rep.KPIs.TotalCustomers)},
		{Label: "Avg Order Value", Value: f.Currency(rep.KPIs.AvgOrderValue)},
	}

	maxMonth := maxOf(rep.MonthlyTrend.Rows, func(p core.MonthlyPoint) decimal.Decimal { return p.Revenue })
	v.MonthlyTrend = newPanelView(rep.MonthlyTrend, func(p core.MonthlyPoint) monthRow {
		return monthRow{
			Month:   p.Month,
			Revenue: f.Currency(p.Revenue),
			Orders:  core.FormatCount(p.Orders),
			Width:   barWidth(p.Revenue, maxMonth),
		}
	})

	maxUnits := maxOf(rep.TopProducts.Rows, func(p core.ProductSales) decimal.Decimal { return decimal.NewFromInt(p.UnitsSold) })
	v.TopProducts = newPanelView(rep.TopProducts, func(p core.ProductSales) productRow {
		return productRow{
			Name:    p.ProductName,
			Units:   core.FormatCount(p.UnitsSold),
			Revenue: f.Currency(p.Revenue),
			Width:   barWidth(decimal.NewFromInt(p.UnitsSold), maxUnits),
		}
	})

	total := decimal.Zero
	for _, c := range rep.RevenueByCountry.Rows {
		total = total.Add(c.Revenue)
	}
	v.RevenueByCountry = newPanelView(rep.RevenueByCountry, func(c core.CountryRevenue) countryRow {
		return countryRow{
			Country:   c.Country,
			Revenue:   f.Currency(c.Revenue),
			Share:     share(c.Revenue, total),
			Customers: core.FormatCount(c.Customers),
			Orders:    core.FormatCount(c.Orders),
			Width:     barWidth(c.Revenue, total),
		}
	})

	maxCustomers := maxOf(rep.CustomerSegments.Rows, func(s core.SegmentSummary) decimal.Decimal { return decimal.NewFromInt(s.CustomerCount) })
	v.CustomerSegments = newPanelView(rep.CustomerSegments, func(s core.SegmentSummary) segmentRow {
		return segmentRow{
			Segment:     string(s.Segment),
			Customers:   core.FormatCount(s.CustomerCount),
			AvgSpending: f.Currency(s.AvgSpending),
			Width:       barWidth(decimal.NewFromInt(s.CustomerCount), maxCustomers),
		}
	})

	if rep.TopCustomers != nil {
		p := newPanelView(*rep.TopCustomers, func(c core.CustomerSpend) customerRow {
			return customerRow{
				Name:       c.Customer.Name,
				Email:      c.Customer.Email,
				Country:    c.Customer.Country,
				Orders:     c.Orders,
				Items:      c.Items,
				TotalSpent: f.Currency(c.TotalSpent),
				LastOrder:  c.LastOrderDate,
			}
		})
		v.TopCustomers = &p
	}
	if rep.ProductPerformance != nil {
		p := newPanelView(*rep.ProductPerformance, func(pp core.ProductPerformance) performanceRow {
			asp := notAvailable
			if pp.AvgSellingPrice.Valid {
				asp = f.Currency(pp.AvgSellingPrice.Decimal)
			}
			return performanceRow{
				Product:         pp.Product.Name,
				Category:        pp.Product.Category,
				Price:           f.Currency(pp.Product.Price),
				UnitsSold:       pp.UnitsSold,
				Revenue:         f.Currency(pp.Revenue),
				UniqueCustomers: pp.UniqueCustomers,
				AvgSellingPrice: asp,
			}
		})
		v.ProductPerformance = &p
	}
	if rep.RecentOrders != nil {
		p := newPanelView(*rep.RecentOrders, func(o core.RecentOrder) orderRow {
			return orderRow{
				ID:       o.Order.ID,
				Date:     o.Order.OrderDate,
				Customer: o.CustomerName,
				Product:  o.ProductName,
				Quantity: o.Order.Quantity,
				Price:    f.Currency(o.Price),
				Value:    f.Currency(o.Value),
			}
		})
		v.RecentOrders = &p
	}

	return v
}

func maxOf[T any](rows []T, val func(T) decimal.Decimal) decimal.Decimal {
	m := decimal.Zero
	for _, r := range rows {
		m = decimal.Max(m, val(r))
	}
	return m
}

// barWidth is v as a rounded percentage of top, at least 2 when v is positive
// so small values stay visible.
func barWidth(v, top decimal.Decimal) int {
	if !top.IsPositive() || !v.IsPositive() {
		return 0
	}
	w := int(v.Mul(decimal.NewFromInt(100)).Div(top).Round(0).IntPart())
	return min(max(w, 2), 100)
}

func share(v, total decimal.Decimal) string {
	if !total.IsPositive() {
		return "0%"
	}
	pct := v.Mul(decimal.NewFromInt(100)).Div(total)
	return pct.StringFixed(1) + "%"
}

// refreshOptions lists refreshChoices, plus current when it came from a URL
// with a period the form does not offer, so the selection survives a submit.
func refreshOptions(current int) []refreshOption {
	opts := make([]refreshOption, 0, len(refreshChoices)+1)
	found := false
	for _, s := range refreshChoices {
		opts = append(opts, refreshOption{Seconds: s, Label: refreshLabel(s), Selected: s == current})
		found = found || s == current
	}
	if !found {
		opts = append(opts, refreshOption{Seconds: current, Label: refreshLabel(current), Selected: true})
	}
	return opts
}

// refreshLabel renders the auto-refresh interval for the page footer.
func refreshLabel(seconds int) string {
	if seconds <= 0 {
		return "off"
	}
	if seconds%60 == 0 {
		return fmt.Sprintf("every %d min", seconds/60)
	}
	return fmt.Sprintf("every %ds", seconds)
}

// queryString rebuilds dashboard links preserving the current selection.
func queryString(rng string, details bool, refresh int) string {
	s := "?range=" + rng + "&details=" + strconv.FormatBool(details)
	if refresh > 0 {
		s += "&refresh=" + strconv.Itoa(refresh)
	}
	return s
}

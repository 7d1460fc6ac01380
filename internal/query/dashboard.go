package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ecomdash/internal/core"
	applog "ecomdash/internal/log"
	"ecomdash/internal/metrics"
)

// Dashboard runs one render cycle: every enabled aggregate, concurrently, each
// failure isolated to its own panel.
type Dashboard struct {
	analytics   *Analytics
	concurrency int
	now         func() time.Time
}

func NewDashboard(analytics *Analytics, concurrency int) *Dashboard {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dashboard{
		analytics:   analytics,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Render never fails. A query that errors or times out leaves its panel empty
// with a notice and Failed set; the other panels are unaffected.
func (d *Dashboard) Render(ctx context.Context, f core.Filter) core.Report {
	start := d.now()
	report := core.Report{Filter: f, GeneratedAt: start.UTC()}

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	var (
		kpiMu     sync.Mutex
		kpiFailed bool
	)
	kpi := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				logFailure(ctx, name, f, err)
				kpiMu.Lock()
				kpiFailed = true
				kpiMu.Unlock()
			}
			return nil
		})
	}

	kpi(AggTotalRevenue, func() (err error) {
		report.KPIs.TotalRevenue, err = d.analytics.TotalRevenue(ctx, f)
		return err
	})
	kpi(AggTotalOrders, func() (err error) {
		report.KPIs.TotalOrders, err = d.analytics.TotalOrders(ctx, f)
		return err
	})
	kpi(AggTotalCustomers, func() (err error) {
		report.KPIs.TotalCustomers, err = d.analytics.TotalCustomers(ctx, f)
		return err
	})
	kpi(AggAverageOrderValue, func() (err error) {
		report.KPIs.AvgOrderValue, err = d.analytics.AverageOrderValue(ctx, f)
		return err
	})

	g.Go(func() error {
		rows, err := d.analytics.MonthlyTrend(ctx, f)
		report.MonthlyTrend = newPanel(ctx, AggMonthlyTrend, f, rows, err, core.NoticeNoData)
		return nil
	})
	g.Go(func() error {
		rows, err := d.analytics.TopProducts(ctx, f)
		report.TopProducts = newPanel(ctx, AggTopProducts, f, rows, err, core.NoticeNoProducts)
		return nil
	})
	g.Go(func() error {
		rows, err := d.analytics.RevenueByCountry(ctx, f)
		report.RevenueByCountry = newPanel(ctx, AggRevenueByCountry, f, rows, err, core.NoticeNoCountries)
		return nil
	})
	g.Go(func() error {
		rows, err := d.analytics.CustomerSegments(ctx, f)
		report.CustomerSegments = newPanel(ctx, AggCustomerSegments, f, rows, err, core.NoticeNoSegments)
		return nil
	})

	if f.ShowDetails {
		report.TopCustomers = &core.Panel[core.CustomerSpend]{}
		report.ProductPerformance = &core.Panel[core.ProductPerformance]{}
		report.RecentOrders = &core.Panel[core.RecentOrder]{}

		g.Go(func() error {
			rows, err := d.analytics.TopCustomers(ctx, f)
			*report.TopCustomers = newPanel(ctx, AggTopCustomers, f, rows, err, core.NoticeNoCustomers)
			return nil
		})
		g.Go(func() error {
			rows, err := d.analytics.ProductPerformance(ctx, f)
			*report.ProductPerformance = newPanel(ctx, AggProductPerformance, f, rows, err, core.NoticeNoPerformance)
			return nil
		})
		g.Go(func() error {
			rows, err := d.analytics.RecentOrders(ctx, f)
			*report.RecentOrders = newPanel(ctx, AggRecentOrders, f, rows, err, core.NoticeNoRecentOrders)
			return nil
		})
	}

	_ = g.Wait()

	if kpiFailed {
		report.KPIsFailed = true
		report.KPINotice = core.NoticeQueryFailed
	}

	metrics.RecordRender(string(f.Range), d.now().Sub(start))
	return report
}

func newPanel[T any](ctx context.Context, name string, f core.Filter, rows []T, err error, notice string) core.Panel[T] {
	p := core.Panel[T]{Rows: rows}
	if err != nil {
		logFailure(ctx, name, f, err)
		p.Rows = nil
		p.Failed = true
	}
	if p.Rows == nil {
		p.Rows = []T{}
	}
	if len(p.Rows) == 0 {
		p.Notice = notice
	}
	return p
}

func logFailure(ctx context.Context, name string, f core.Filter, err error) {
	slog.WarnContext(ctx, "Aggregate query failed, rendering empty result",
		applog.FieldComponent, applog.ComponentQuery,
		applog.FieldAggregate, name,
		applog.FieldRange, string(f.Range),
		applog.FieldErrorType, ErrorType(err),
		applog.FieldError, err)
}

package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecomdash/internal/core"
)

var testNow = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

type fakeDashboard struct {
	mu      sync.Mutex
	filters []core.Filter
	mutate  func(*core.Report)
}

func (f *fakeDashboard) Render(_ context.Context, flt core.Filter) core.Report {
	f.mu.Lock()
	f.filters = append(f.filters, flt)
	f.mu.Unlock()

	rep := sampleReport(flt)
	if f.mutate != nil {
		f.mutate(&rep)
	}
	return rep
}

func (f *fakeDashboard) lastFilter(t *testing.T) core.Filter {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.filters)
	return f.filters[len(f.filters)-1]
}

type fakeCache struct {
	size   int
	purges int
}

func (c *fakeCache) Purge() { c.purges++; c.size = 0 }
func (c *fakeCache) Size() int { return c.size }

func sampleReport(f core.Filter) core.Report {
	rep := core.Report{
		Filter:      f,
		GeneratedAt: testNow,
		KPIs: core.KPIs{
			TotalRevenue:   decimal.NewFromInt(1234567),
			TotalOrders:    1500,
			TotalCustomers: 42,
			AvgOrderValue:  decimal.RequireFromString("823.04"),
		},
		MonthlyTrend: core.Panel[core.MonthlyPoint]{Rows: []core.MonthlyPoint{
			{Month: "2026-09", Revenue: decimal.NewFromInt(500), Orders: 2},
			{Month: "2026-10", Revenue: decimal.NewFromInt(1000), Orders: 3},
		}},
		TopProducts: core.Panel[core.ProductSales]{Rows: []core.ProductSales{
			{ProductName: "Widget", UnitsSold: 8, Revenue: decimal.NewFromInt(4000)},
		}},
		RevenueByCountry: core.Panel[core.CountryRevenue]{Rows: []core.CountryRevenue{
			{Country: "India", Revenue: decimal.NewFromInt(750), Customers: 2, Orders: 3},
			{Country: "Germany", Revenue: decimal.NewFromInt(250), Customers: 1, Orders: 1},
		}},
		CustomerSegments: core.Panel[core.SegmentSummary]{Rows: []core.SegmentSummary{
			{Segment: core.SegmentVIP, CustomerCount: 1, AvgSpending: decimal.NewFromInt(12000)},
		}},
	}
	if f.ShowDetails {
		rep.TopCustomers = &core.Panel[core.CustomerSpend]{Rows: []core.CustomerSpend{{
			Customer:      core.Customer{ID: 1, Name: "Asha <Rao>", Email: "asha@example.com", Country: "India"},
			Orders:        2,
			Items:         3,
			TotalSpent:    decimal.NewFromInt(12000),
			LastOrderDate: "2026-10-17",
		}}}
		rep.ProductPerformance = &core.Panel[core.ProductPerformance]{Rows: []core.ProductPerformance{{
			Product: core.Product{ID: 4, Name: "Unsold", Category: "Misc", Price: decimal.NewFromInt(10)},
		}}}
		rep.RecentOrders = &core.Panel[core.RecentOrder]{Rows: []core.RecentOrder{}, Notice: core.NoticeNoRecentOrders}
	}
	return rep
}

func newTestServer(t *testing.T, opts Options) (*Server, *fakeDashboard, *fakeCache) {
	t.Helper()
	dash := &fakeDashboard{}
	cache := &fakeCache{size: 7}
	if opts.Dashboard == nil {
		opts.Dashboard = dash
	}
	if opts.Cache == nil {
		opts.Cache = cache
	}
	if opts.Formatter.Symbol == "" {
		opts.Formatter = core.NewFormatter("₹")
	}
	srv := NewServer(":0", opts)
	srv.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	require.NotNil(t, srv.templates, "embedded templates should parse")
	return srv, dash, cache
}

func do(t *testing.T, srv *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestDashboardPage(t *testing.T) {
	srv, dash, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Header().Get("Content-Security-Policy"), "script-src 'none'")
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	assert.Contains(t, body, "E-commerce Analytics Dashboard")
	assert.Contains(t, body, "₹1,234,567")
	assert.Contains(t, body, "1.5K")
	assert.Contains(t, body, "₹823")
	assert.Contains(t, body, "Monthly Revenue Trend")
	assert.Contains(t, body, "width: 100%")
	assert.Contains(t, body, "75.0%")
	assert.Contains(t, body, "generated 2026-10-18 15:30:00 UTC")
	assert.NotContains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, `<option value="0" selected>off</option>`)
	assert.Contains(t, body, `<option value="60">every 1 min</option>`)

	// details default on
	f := dash.lastFilter(t)
	assert.Equal(t, core.RangeAllTime, f.Range)
	assert.True(t, f.ShowDetails)
	assert.Contains(t, body, "Top Customers")
	assert.Contains(t, body, "Asha &lt;Rao&gt;")
	assert.Contains(t, body, notAvailable)
	assert.Contains(t, body, core.NoticeNoRecentOrders)
}

func TestDashboardPage_Filters(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantRange   core.DateRange
		wantDetails bool
		wantSince   string
	}{
		{"range code", "/?range=30d", core.RangeLast30Days, true, "2026-09-18"},
		{"range label", "/?range=Last+90+Days", core.RangeLast90Days, true, "2026-07-20"},
		{"last year", "/?range=1y", core.RangeLastYear, true, "2025-10-18"},
		{"checkbox unchecked", "/?range=all&details=0", core.RangeAllTime, false, ""},
		{"checkbox checked", "/?range=all&details=1&details=0", core.RangeAllTime, true, ""},
		{"garbage details keeps default", "/?details=maybe", core.RangeAllTime, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, dash, _ := newTestServer(t, Options{})
			rr := do(t, srv, http.MethodGet, tt.target)
			require.Equal(t, http.StatusOK, rr.Code)

			f := dash.lastFilter(t)
			assert.Equal(t, tt.wantRange, f.Range)
			assert.Equal(t, tt.wantDetails, f.ShowDetails)
			since, ok := f.SinceParam()
			assert.Equal(t, tt.wantSince != "", ok)
			assert.Equal(t, tt.wantSince, since)
			assert.Equal(t, tt.wantDetails, strings.Contains(rr.Body.String(), "Top Customers"))
		})
	}
}

func TestDashboardPage_UnknownRange(t *testing.T) {
	srv, dash, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/?range=forever")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, core.RangeAllTime, dash.lastFilter(t).Range)
	assert.Contains(t, rr.Body.String(), "Unknown date range &#34;forever&#34;, showing All Time")
}

func TestDashboardPage_AutoRefresh(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/?range=30d&refresh=30")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, `content="30;url=?range=30d`)
	assert.Contains(t, body, "auto-refresh every 30s")
	assert.Contains(t, body, `<select id="refresh" name="refresh">`)
	assert.Contains(t, body, `<option value="30" selected>every 30s</option>`)
	assert.Contains(t, body, `<option value="0">off</option>`)

	rr = do(t, srv, http.MethodGet, "/?refresh=1")
	assert.Contains(t, rr.Body.String(), "auto-refresh every 5s")
}

func TestDashboardPage_FailedPanels(t *testing.T) {
	srv, dash, _ := newTestServer(t, Options{})
	dash.mutate = func(r *core.Report) {
		r.KPIs = core.KPIs{}
		r.KPIsFailed = true
		r.KPINotice = core.NoticeQueryFailed
		r.TopProducts = core.Panel[core.ProductSales]{Rows: []core.ProductSales{}, Notice: core.NoticeNoProducts, Failed: true}
	}

	rr := do(t, srv, http.MethodGet, "/?details=0")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, core.NoticeQueryFailed)
	assert.Contains(t, body, `class="notice error">`+core.NoticeNoProducts)
	assert.Contains(t, body, "₹0")
	// other panels still render
	assert.Contains(t, body, "India")
}

func TestDashboardJSON(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/dashboard?range=30d&details=false")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp struct {
		Report    core.Report `json:"report"`
		Formatted struct {
			Range        string    `json:"range"`
			ShowDetails  bool      `json:"show_details"`
			KPIs         []kpiCard `json:"kpis"`
			TopCustomers *struct{} `json:"top_customers"`
		} `json:"formatted"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.Equal(t, core.RangeLast30Days, resp.Report.Filter.Range)
	assert.True(t, resp.Report.KPIs.TotalRevenue.Equal(decimal.NewFromInt(1234567)))
	assert.Nil(t, resp.Report.TopCustomers)

	assert.Equal(t, "30d", resp.Formatted.Range)
	assert.False(t, resp.Formatted.ShowDetails)
	require.Len(t, resp.Formatted.KPIs, 4)
	assert.Equal(t, "Total Revenue", resp.Formatted.KPIs[0].Label)
	assert.Equal(t, "₹1,234,567", resp.Formatted.KPIs[0].Value)
	assert.Nil(t, resp.Formatted.TopCustomers)
}

func TestCachePurge(t *testing.T) {
	srv, _, cache := newTestServer(t, Options{PurgePerMinute: 2})

	rr := do(t, srv, http.MethodPost, "/api/cache/purge")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, cache.purges)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "purged", body["status"])
	assert.EqualValues(t, 7, body["entries"])

	rr = do(t, srv, http.MethodPost, "/api/cache/purge")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/cache/purge")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "rate limit exceeded")
	assert.Equal(t, 2, cache.purges)

	rr = do(t, srv, http.MethodGet, "/api/cache/purge")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHealthAndReady(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv, _, _ := newTestServer(t, Options{Ready: func(context.Context) error { return nil }})

		rr := do(t, srv, http.MethodGet, "/healthz")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"status":"ok"`)

		rr = do(t, srv, http.MethodGet, "/readyz")
		require.Equal(t, http.StatusOK, rr.Code)
		var body struct {
			Status string         `json:"status"`
			Checks map[string]any `json:"checks"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, "ok", body.Checks["database"])
		assert.Equal(t, "ok", body.Checks["templates"])
	})

	t.Run("database unavailable", func(t *testing.T) {
		srv, _, _ := newTestServer(t, Options{Ready: func(context.Context) error { return errors.New("unable to open database file") }})

		rr := do(t, srv, http.MethodGet, "/readyz")
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "not_ready")
		assert.Contains(t, rr.Body.String(), "unable to open database file")
	})
}

func TestStaticAndMetrics(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/static/style.css")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Body.String(), ".kpi")

	rr = do(t, srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	assert.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Shutdown(context.Background()))
}

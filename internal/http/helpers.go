package http

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ecomdash/internal/core"
)

const (
	minRefresh = 5
	maxRefresh = 3600
)

// dashboardRequest is the normalized form of the dashboard query string.
type dashboardRequest struct {
	Filter core.Filter
	// Refresh is the auto-refresh period in seconds; 0 disables it.
	Refresh int
	// RangeWarning is set when the requested range was not recognized.
	RangeWarning string
}

// parseDashboardRequest reads range, details and refresh. Nothing here can
// fail: bad values fall back to All Time, details shown and no refresh.
func parseDashboardRequest(r *http.Request, now time.Time) dashboardRequest {
	q := r.URL.Query()

	var req dashboardRequest
	raw := strings.TrimSpace(q.Get("range"))
	rng, err := core.ParseDateRange(raw)
	if errors.Is(err, core.ErrUnknownRange) {
		req.RangeWarning = "Unknown date range \"" + raw + "\", showing " + core.RangeAllTime.Label()
	}

	req.Filter = core.ResolveFilter(rng, parseBool(q.Get("details"), true), now)
	req.Refresh = parseRefresh(q.Get("refresh"))
	return req
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "on", "yes":
		return true
	case "off", "no":
		return false
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseRefresh(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0
	}
	return min(max(n, minRefresh), maxRefresh)
}

// clientIP keys rate limiting; chi's RealIP middleware has already applied
// X-Forwarded-For / X-Real-IP to RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

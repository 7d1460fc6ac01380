package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	applog "ecomdash/internal/log"
	"ecomdash/internal/metrics"
)

// handleDashboard renders the HTML dashboard for the requested filter.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	logger := applog.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded")
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	req := parseDashboardRequest(r, s.now())
	if req.RangeWarning != "" {
		logger.WarnContext(r.Context(), "Unknown date range requested", applog.FieldRange, r.URL.Query().Get("range"))
	}

	report := s.opts.Dashboard.Render(r.Context(), req.Filter)
	view := buildView(report, req, s.opts.Formatter)

	// Render into a buffer so a template failure still yields a clean 500.
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard.html", view); err != nil {
		logger.ErrorContext(r.Context(), "Dashboard template execution failed", applog.FieldError, err)
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

type dashboardResponse struct {
	Report    any           `json:"report"`
	Formatted dashboardView `json:"formatted"`
}

// handleDashboardJSON returns the same report as the HTML page, raw and formatted.
func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	req := parseDashboardRequest(r, s.now())
	report := s.opts.Dashboard.Render(r.Context(), req.Filter)

	writeJSON(r.Context(), w, http.StatusOK, dashboardResponse{
		Report:    report,
		Formatted: buildView(report, req, s.opts.Formatter),
	})
}

// handlePurge drops every cached query result.
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	before := s.opts.Cache.Size()
	s.opts.Cache.Purge()
	metrics.RecordInvalidation("http")

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Query cache purged",
		applog.FieldOperation, "cache_purge",
		"entries", before)

	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":  "purged",
		"entries": before,
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, clientIP(r))
	writeJSON(r.Context(), w, http.StatusTooManyRequests, map[string]string{
		"error": "rate limit exceeded, try again later",
	})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates are loaded and the database answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.opts.Ready != nil {
		if err := s.opts.Ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			checks["database"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}

	if s.opts.Cache != nil {
		checks["cache"] = map[string]any{"entries": s.opts.Cache.Size(), "status": "ok"}
	}

	writeJSON(ctx, w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "JSON encoding failed", applog.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

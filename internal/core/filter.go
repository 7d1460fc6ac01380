package core

import (
	"errors"
	"strings"
	"time"
)

const (
	RangeAllTime    DateRange = "all"
	RangeLast30Days DateRange = "30d"
	RangeLast90Days DateRange = "90d"
	RangeLastYear   DateRange = "1y"
)

// DateLayout is the layout order dates are stored and compared in.
const DateLayout = "2006-01-02"

// DateRange is one of the enumerated period selections offered to the user.
type DateRange string

// Filter is the normalized selection every aggregate query is parameterized by.
type Filter struct {
	Range       DateRange  `json:"range"`
	Since       *time.Time `json:"since,omitempty"`
	ShowDetails bool       `json:"show_details"`
}

var ErrUnknownRange = errors.New("unknown date range")

var rangeLabels = map[DateRange]string{
	RangeAllTime:    "All Time",
	RangeLast30Days: "Last 30 Days",
	RangeLast90Days: "Last 90 Days",
	RangeLastYear:   "Last Year",
}

// DateRanges returns the supported ranges in display order.
func DateRanges() []DateRange {
	return []DateRange{RangeAllTime, RangeLast30Days, RangeLast90Days, RangeLastYear}
}

// Label returns the user-facing name of the range.
func (r DateRange) Label() string {
	if l, ok := rangeLabels[r]; ok {
		return l
	}
	return string(r)
}

// ParseDateRange accepts either a range code ("30d") or its label ("Last 30 Days"),
// case-insensitively. An empty string is All Time.
func ParseDateRange(s string) (DateRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RangeAllTime, nil
	}
	for _, r := range DateRanges() {
		if strings.EqualFold(s, string(r)) || strings.EqualFold(s, r.Label()) {
			return r, nil
		}
	}
	return RangeAllTime, ErrUnknownRange
}

// ResolveFilter computes the lower date bound for r relative to now. Bounds are
// calendar dates in UTC, matching SQLite's date('now', ...) arithmetic.
func ResolveFilter(r DateRange, showDetails bool, now time.Time) Filter {
	f := Filter{Range: r, ShowDetails: showDetails}

	today := now.UTC().Truncate(24 * time.Hour)
	var since time.Time
	switch r {
	case RangeLast30Days:
		since = today.AddDate(0, 0, -30)
	case RangeLast90Days:
		since = today.AddDate(0, 0, -90)
	case RangeLastYear:
		since = today.AddDate(-1, 0, 0)
	default:
		f.Range = RangeAllTime
		return f
	}
	f.Since = &since
	return f
}

// SinceParam returns the bound value for the date predicate, if any.
func (f Filter) SinceParam() (string, bool) {
	if f.Since == nil {
		return "", false
	}
	return f.Since.Format(DateLayout), true
}

package scoring

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// Window names an analysis period ending now.
type Window string

const (
	WindowWeekly    Window = "weekly"
	WindowMonthly   Window = "monthly"
	WindowTrimester Window = "trimester"
	WindowSixMonth  Window = "six_month"
)

var ErrUnknownWindow = errors.New("unknown window")

var windowAliases = map[string]Window{
	"weekly":    WindowWeekly,
	"week":      WindowWeekly,
	"monthly":   WindowMonthly,
	"month":     WindowMonthly,
	"trimester": WindowTrimester,
	"six_month": WindowSixMonth,
	"sixmonth":  WindowSixMonth,
	"six-month": WindowSixMonth,
}

// ParseWindow is the strict parser used at request boundaries. An empty
// value selects weekly.
func ParseWindow(raw string) (Window, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return WindowWeekly, nil
	}
	w, ok := windowAliases[normalized]
	if !ok {
		return "", ErrUnknownWindow
	}
	return w, nil
}

// WindowStart returns the inclusive lower bound of the window. Monthly is
// exactly 28 days; trimester and six_month step calendar months. Unknown
// kinds fall back to weekly.
func WindowStart(kind Window, now time.Time) time.Time {
	switch kind {
	case WindowMonthly:
		return now.Add(-28 * 24 * time.Hour)
	case WindowTrimester:
		return now.AddDate(0, -3, 0)
	case WindowSixMonth:
		return now.AddDate(0, -6, 0)
	default:
		return now.Add(-7 * 24 * time.Hour)
	}
}

// PreviousWindow returns the equal-length range immediately before
// [start, end).
func PreviousWindow(start, end time.Time) (time.Time, time.Time) {
	duration := end.Sub(start)
	prevEnd := start.Add(-time.Nanosecond)
	prevStart := prevEnd.Add(-duration + time.Nanosecond)
	return prevStart, prevEnd
}

// SelectInWindow keeps ratings at or after start, preserving input order.
func SelectInWindow(records []Rating, start time.Time) []Rating {
	out := make([]Rating, 0, len(records))
	for _, r := range records {
		if !r.Timestamp.Before(start) {
			out = append(out, r)
		}
	}
	return out
}

// SelectBetween keeps ratings in [start, end], preserving input order.
func SelectBetween(records []Rating, start, end time.Time) []Rating {
	out := make([]Rating, 0, len(records))
	for _, r := range records {
		if !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			out = append(out, r)
		}
	}
	return out
}

// SortMostRecentFirst returns a copy ordered newest first, the order trend
// classification expects.
func SortMostRecentFirst(records []Rating) []Rating {
	out := make([]Rating, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// SortChronological returns a copy ordered oldest first for charting.
func SortChronological(records []Rating) []Rating {
	out := make([]Rating, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

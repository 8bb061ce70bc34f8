package scoring

import (
	"fmt"
	"sort"
	"time"
)

// Point is one bucket of a chart series.
type Point struct {
	Period  string `json:"period"`
	Average int    `json:"average"`
	Count   int    `json:"count"`
}

func isAtLeastOneMonth(start, end time.Time) bool {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	oneMonthLater := s.AddDate(0, 1, 0)
	return !oneMonthLater.After(e)
}

// IsWeeklyBucketing reports whether a range is long enough to chart by week
// rather than by day.
func IsWeeklyBucketing(start, end time.Time) bool {
	if isAtLeastOneMonth(start, end) {
		return true
	}
	return end.Sub(start) >= 28*24*time.Hour
}

func periodKey(ts time.Time, weekly bool) string {
	ts = ts.UTC()
	if weekly {
		year, week := ts.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return ts.Format("2006-01-02")
}

// Series buckets the ratings inside [start, end] by day or ISO week and
// returns the points oldest first.
func Series(records []Rating, start, end time.Time) []Point {
	weekly := IsWeeklyBucketing(start, end)

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[string]*bucket)
	for _, r := range SelectBetween(records, start, end) {
		key := periodKey(r.Timestamp, weekly)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.sum += r.AveragePercentage
		b.count++
	}

	points := make([]Point, 0, len(buckets))
	for period, b := range buckets {
		points = append(points, Point{
			Period:  period,
			Average: roundPercent(safeDiv(b.sum, b.count)),
			Count:   b.count,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Period < points[j].Period
	})
	return points
}

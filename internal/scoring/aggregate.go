package scoring

import (
	"math"
	"time"
)

// Rating is one immutable evaluation of a staff member.
type Rating struct {
	Timestamp         time.Time
	CategoryScores    map[Category]float64
	AveragePercentage float64
}

// Trend compares the most recent ratings against the ones before them.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// TrendWindow is the size of the recent and older partitions.
const TrendWindow = 4

// MissingCategoryPolicy decides how a rating without a category score counts
// toward that category's mean.
type MissingCategoryPolicy int

const (
	// MissingAsZero divides by every rating; absent scores add nothing.
	MissingAsZero MissingCategoryPolicy = iota
	// MissingExcluded divides only by the ratings that carry the category.
	MissingExcluded
)

type options struct {
	missing MissingCategoryPolicy
}

// Option tunes Aggregate.
type Option func(*options)

// WithMissingCategories selects the missing-category policy.
func WithMissingCategories(policy MissingCategoryPolicy) Option {
	return func(o *options) { o.missing = policy }
}

// StaffAggregate is derived on demand and never stored.
type StaffAggregate struct {
	TotalAverage     int
	CategoryAverages map[Category]int
	Trend            Trend
	CategoryTrends   map[Category]Trend
	Count            int
}

// Aggregate summarizes ratings ordered most-recent-first. Averages do not
// depend on order; trends do.
func Aggregate(records []Rating, opts ...Option) StaffAggregate {
	o := &options{missing: MissingAsZero}
	for _, opt := range opts {
		opt(o)
	}

	agg := StaffAggregate{
		CategoryAverages: make(map[Category]int, len(categories)),
		CategoryTrends:   make(map[Category]Trend, len(categories)),
		Trend:            TrendStable,
		Count:            len(records),
	}
	for _, c := range categories {
		agg.CategoryAverages[c] = 0
		agg.CategoryTrends[c] = TrendStable
	}
	if len(records) == 0 {
		return agg
	}

	var total float64
	sums := make(map[Category]float64, len(categories))
	present := make(map[Category]int, len(categories))
	for _, r := range records {
		total += r.AveragePercentage
		for c, score := range r.CategoryScores {
			sums[c] += score
			present[c]++
		}
	}

	agg.TotalAverage = roundPercent(total / float64(len(records)))
	for _, c := range categories {
		divisor := len(records)
		if o.missing == MissingExcluded {
			divisor = present[c]
		}
		agg.CategoryAverages[c] = roundPercent(safeDiv(sums[c], divisor))

		cat := c
		agg.CategoryTrends[c] = TrendOf(records, func(r Rating) float64 {
			return r.CategoryScores[cat]
		})
	}
	agg.Trend = TrendOf(records, func(r Rating) float64 {
		return r.AveragePercentage
	})

	return agg
}

// TrendOf compares the mean of the first TrendWindow values against the mean
// of the next TrendWindow. An empty partition has mean 0.
func TrendOf(records []Rating, value func(Rating) float64) Trend {
	if len(records) < 2 {
		return TrendStable
	}

	recentEnd := min(TrendWindow, len(records))
	olderEnd := min(2*TrendWindow, len(records))

	recent := meanOf(records[:recentEnd], value)
	older := meanOf(records[recentEnd:olderEnd], value)

	switch {
	case recent < older:
		return TrendDeclining
	case recent > older:
		return TrendImproving
	default:
		return TrendStable
	}
}

// MeanPercentage is the unrounded mean of AveragePercentage, 0 when empty.
func MeanPercentage(records []Rating) float64 {
	return meanOf(records, func(r Rating) float64 { return r.AveragePercentage })
}

func meanOf(records []Rating, value func(Rating) float64) float64 {
	var sum float64
	for _, r := range records {
		sum += value(r)
	}
	return safeDiv(sum, len(records))
}

func safeDiv(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func roundPercent(v float64) int {
	return int(math.Round(v))
}

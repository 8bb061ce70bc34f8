package scoring

import (
	"fmt"
	"strings"
)

// Tier buckets a percentage for color-coding and dashboard filters.
type Tier string

const (
	TierTop      Tier = "top"
	TierAverage  Tier = "average"
	TierPriority Tier = "priority"
)

// Color is the presentation color attached to a tier.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

const (
	topThreshold     = 80.0
	averageThreshold = 50.0
)

// Classify maps a percentage to its tier. Values outside [0,100] are not
// rejected; they fall through the same comparisons.
func Classify(score float64) Tier {
	switch {
	case score >= topThreshold:
		return TierTop
	case score >= averageThreshold:
		return TierAverage
	default:
		return TierPriority
	}
}

// Color returns the badge color for the tier.
func (t Tier) Color() Color {
	switch t {
	case TierTop:
		return ColorGreen
	case TierAverage:
		return ColorYellow
	default:
		return ColorRed
	}
}

// ParseTier resolves a tier filter value.
func ParseTier(raw string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(raw))) {
	case TierTop:
		return TierTop, nil
	case TierAverage:
		return TierAverage, nil
	case TierPriority:
		return TierPriority, nil
	}
	return "", fmt.Errorf("unknown tier %q", raw)
}

package feed

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	priceToken = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
	whitespace = regexp.MustCompile(`\s+`)
)

// ParsePrice returns the first numeric token of a free-text price with commas
// stripped. Strings without digits parse to 0.
func ParsePrice(price string) float64 {
	token := priceToken.FindString(price)
	if token == "" {
		return 0
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(token, ",", ""), 64)
	if err != nil {
		return 0
	}
	return value
}

// NormalizeAvailability lower-cases and replaces whitespace runs with "_".
func NormalizeAvailability(availability string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(availability)), "_")
}

var availabilityRanks = map[string]int{
	"in_stock":             1,
	"backorder":            2,
	"preorder":             3,
	"limited_availability": 4,
	"out_of_stock":         5,
}

func availabilityRank(availability string) int {
	if rank, ok := availabilityRanks[NormalizeAvailability(availability)]; ok {
		return rank
	}
	return 6
}

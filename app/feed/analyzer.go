package feed

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

type PatternStat struct {
	Value         string `json:"value"`
	ExcludedCount int    `json:"excludedCount"`
	TotalCount    int    `json:"totalCount"`
	Percentage    int    `json:"percentage"`
}

type CountStat struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type PriceBand struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"` // 0 means unbounded
	Count int     `json:"count"`
}

// Analysis is the per-dimension breakdown of an exclusion set against the
// full snapshot it was taken from.
type Analysis struct {
	TotalItems    int           `json:"totalItems"`
	TotalExcluded int           `json:"totalExcluded"`
	Brands        []PatternStat `json:"brands"`
	Categories    []PatternStat `json:"categories"`
	Keywords      []CountStat   `json:"keywords"`
	PriceRanges   []PriceBand   `json:"priceRanges"`
	ItemGroups    []PatternStat `json:"itemGroups"`
	Availability  []CountStat   `json:"availability"`
	Conditions    []CountStat   `json:"conditions"`
}

var priceBands = []PriceBand{
	{Label: "Under 50", Min: 0, Max: 50},
	{Label: "50-100", Min: 50, Max: 100},
	{Label: "100-200", Min: 100, Max: 200},
	{Label: "200-500", Min: 200, Max: 500},
	{Label: "500+", Min: 500},
}

var (
	stopwords = map[string]bool{
		"the": true, "and": true, "or": true, "for": true, "with": true, "in": true,
		"on": true, "at": true, "to": true, "a": true, "an": true,
	}
	digitsOnly = regexp.MustCompile(`^\d+$`)
)

type Analyzer struct {
	thresholds Thresholds
}

func NewAnalyzer(thresholds Thresholds) *Analyzer {
	return &Analyzer{thresholds: thresholds}
}

// Run analyzes the excluded items of a snapshot. Totals are always counted
// over the whole snapshot, never over the exclusion set.
func (a *Analyzer) Run(snapshot *Snapshot, excluded *ExclusionSet) Analysis {
	excludedItems := lo.Filter(snapshot.Items, func(item Item, _ int) bool {
		return excluded.Has(item.ID)
	})

	return Analysis{
		TotalItems:    snapshot.Len(),
		TotalExcluded: len(excludedItems),
		Brands: a.patterns(snapshot.Items, excludedItems, func(i Item) string { return i.Brand }, func(s PatternStat) bool {
			return s.ExcludedCount >= a.thresholds.RetainMinCount || s.Percentage > a.thresholds.BrandRetainPercent
		}),
		Categories: a.patterns(snapshot.Items, excludedItems, func(i Item) string { return i.ProductType }, func(s PatternStat) bool {
			return s.ExcludedCount >= a.thresholds.RetainMinCount || s.Percentage > a.thresholds.CategoryRetainPercent
		}),
		Keywords:    a.keywords(excludedItems),
		PriceRanges: a.priceRanges(excludedItems),
		ItemGroups: a.patterns(snapshot.Items, excludedItems, func(i Item) string { return i.ItemGroupID }, func(s PatternStat) bool {
			return s.Percentage > a.thresholds.GroupRetainPercent
		}),
		Availability: a.counts(excludedItems, func(i Item) string { return NormalizeAvailability(i.Availability) }),
		Conditions:   a.counts(excludedItems, func(i Item) string { return strings.ToLower(strings.TrimSpace(i.Condition)) }),
	}
}

func (a *Analyzer) patterns(all, excluded []Item, field func(Item) string, retain func(PatternStat) bool) []PatternStat {
	excludedCounts := orderedCounts(excluded, field)
	totals := lo.SliceToMap(orderedCounts(all, field), func(c CountStat) (string, int) { return c.Value, c.Count })

	stats := make([]PatternStat, 0, len(excludedCounts))
	for _, c := range excludedCounts {
		total := max(totals[c.Value], c.Count)
		stat := PatternStat{
			Value:         c.Value,
			ExcludedCount: c.Count,
			TotalCount:    total,
			Percentage:    percentage(c.Count, total),
		}
		if retain(stat) {
			stats = append(stats, stat)
		}
	}

	slices.SortStableFunc(stats, func(x, y PatternStat) int { return y.ExcludedCount - x.ExcludedCount })
	return stats
}

func (a *Analyzer) counts(excluded []Item, field func(Item) string) []CountStat {
	stats := lo.Filter(orderedCounts(excluded, field), func(c CountStat, _ int) bool {
		return c.Count >= a.thresholds.RetainMinCount
	})
	slices.SortStableFunc(stats, func(x, y CountStat) int { return y.Count - x.Count })
	return stats
}

func (a *Analyzer) keywords(excluded []Item) []CountStat {
	var tokens []string
	for _, item := range excluded {
		for _, token := range strings.Fields(strings.ToLower(item.Title)) {
			if utf8.RuneCountInString(token) < a.thresholds.KeywordMinLength || digitsOnly.MatchString(token) || stopwords[token] {
				continue
			}
			tokens = append(tokens, token)
		}
	}

	counted := make([]CountStat, 0)
	index := make(map[string]int)
	for _, token := range tokens {
		if pos, ok := index[token]; ok {
			counted[pos].Count++
			continue
		}
		index[token] = len(counted)
		counted = append(counted, CountStat{Value: token, Count: 1})
	}

	kept := lo.Filter(counted, func(c CountStat, _ int) bool { return c.Count >= a.thresholds.KeywordMinCount })
	slices.SortStableFunc(kept, func(x, y CountStat) int { return y.Count - x.Count })
	if len(kept) > a.thresholds.KeywordLimit {
		kept = kept[:a.thresholds.KeywordLimit]
	}
	return kept
}

func (a *Analyzer) priceRanges(excluded []Item) []PriceBand {
	bands := slices.Clone(priceBands)
	for _, item := range excluded {
		price := ParsePrice(item.Price)
		if price <= 0 {
			continue
		}
		for i := range bands {
			if price >= bands[i].Min && (bands[i].Max == 0 || price < bands[i].Max) {
				bands[i].Count++
				break
			}
		}
	}
	return lo.Filter(bands, func(b PriceBand, _ int) bool { return b.Count > 0 })
}

// orderedCounts counts non-empty values in first-seen order.
func orderedCounts(items []Item, field func(Item) string) []CountStat {
	var counts []CountStat
	index := make(map[string]int)
	for _, item := range items {
		value := field(item)
		if value == "" {
			continue
		}
		if pos, ok := index[value]; ok {
			counts[pos].Count++
			continue
		}
		index[value] = len(counts)
		counts = append(counts, CountStat{Value: value, Count: 1})
	}
	return counts
}

func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return min(100, int(math.Round(float64(part)/float64(total)*100)))
}

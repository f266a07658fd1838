package feed

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

type RuleType string

const (
	RuleBrand        RuleType = "brand"
	RuleCategory     RuleType = "category"
	RuleTitleKeyword RuleType = "title_keyword"
	RulePriceRange   RuleType = "price_range"
	RuleItemGroup    RuleType = "item_group"
	RuleAvailability RuleType = "availability"
)

// Rule is a derived exclusion rule. It is recomputed on every request and
// never stored.
type Rule struct {
	Type          RuleType `json:"type"`
	Priority      Priority `json:"priority"`
	Field         string   `json:"field"`
	Operator      string   `json:"operator"`
	Value         string   `json:"value"`
	Description   string   `json:"description"`
	GoogleRule    string   `json:"googleRule"`
	FacebookRule  string   `json:"facebookRule,omitempty"`
	Confidence    int      `json:"confidence"`
	AffectedCount int      `json:"affectedCount"`
}

type RuleGenerator struct {
	thresholds Thresholds
}

func NewRuleGenerator(thresholds Thresholds) *RuleGenerator {
	return &RuleGenerator{thresholds: thresholds}
}

// Run turns an analysis into rules ordered by priority, then confidence.
func (g *RuleGenerator) Run(analysis Analysis) []Rule {
	t := g.thresholds
	var rules []Rule

	for _, brand := range analysis.Brands {
		switch {
		case brand.Percentage >= t.BrandHighPercent:
			rules = append(rules, g.brandRule(brand, PriorityHigh))
		case brand.ExcludedCount >= t.BrandMediumCount:
			rules = append(rules, g.brandRule(brand, PriorityMedium))
		}
	}

	for _, category := range analysis.Categories {
		if category.Percentage < t.CategoryHighPercent {
			continue
		}
		rules = append(rules, Rule{
			Type:          RuleCategory,
			Priority:      PriorityHigh,
			Field:         "product_type",
			Operator:      "equals",
			Value:         category.Value,
			Description:   fmt.Sprintf("Exclude category \"%s\" (%d of %d items excluded, %d%%)", category.Value, category.ExcludedCount, category.TotalCount, category.Percentage),
			GoogleRule:    googleRule("product_type", "equals", quote(category.Value)),
			FacebookRule:  facebookRule("product_type", "eq", category.Value),
			Confidence:    category.Percentage,
			AffectedCount: category.TotalCount,
		})
	}

	for _, keyword := range analysis.Keywords {
		if keyword.Count < t.KeywordRuleCount {
			continue
		}
		rules = append(rules, Rule{
			Type:          RuleTitleKeyword,
			Priority:      PriorityMedium,
			Field:         "title",
			Operator:      "contains",
			Value:         keyword.Value,
			Description:   fmt.Sprintf("Exclude titles containing \"%s\" (found in %d excluded items)", keyword.Value, keyword.Count),
			GoogleRule:    googleRule("title", "contains", quote(keyword.Value)),
			FacebookRule:  facebookRule("name", "i_contains", keyword.Value),
			Confidence:    min(t.KeywordMaxConfidence, percentage(keyword.Count, analysis.TotalExcluded)),
			AffectedCount: keyword.Count,
		})
	}

	for _, band := range analysis.PriceRanges {
		if band.Count < t.PriceRuleCount {
			continue
		}
		rules = append(rules, Rule{
			Type:          RulePriceRange,
			Priority:      PriorityLow,
			Field:         "price",
			Operator:      "between",
			Value:         band.Label,
			Description:   fmt.Sprintf("Review price range %s (%d excluded items)", band.Label, band.Count),
			GoogleRule:    googleRule("price", "between", priceBounds(band)),
			Confidence:    percentage(band.Count, analysis.TotalExcluded),
			AffectedCount: band.Count,
		})
	}

	for _, group := range analysis.ItemGroups {
		if group.Percentage < t.GroupHighPercent {
			continue
		}
		rules = append(rules, Rule{
			Type:          RuleItemGroup,
			Priority:      PriorityHigh,
			Field:         "item_group_id",
			Operator:      "equals",
			Value:         group.Value,
			Description:   fmt.Sprintf("Exclude item group \"%s\" (%d of %d variants excluded, %d%%)", group.Value, group.ExcludedCount, group.TotalCount, group.Percentage),
			GoogleRule:    googleRule("item_group_id", "equals", quote(group.Value)),
			Confidence:    group.Percentage,
			AffectedCount: group.TotalCount,
		})
	}

	availabilityMin := math.Max(float64(t.AvailabilityMinCount), float64(analysis.TotalExcluded)*t.AvailabilityMinShare)
	for _, availability := range analysis.Availability {
		if float64(availability.Count) < availabilityMin {
			continue
		}
		rules = append(rules, Rule{
			Type:          RuleAvailability,
			Priority:      PriorityMedium,
			Field:         "availability",
			Operator:      "equals",
			Value:         availability.Value,
			Description:   fmt.Sprintf("Exclude items with availability \"%s\" (%d excluded items)", availability.Value, availability.Count),
			GoogleRule:    googleRule("availability", "equals", quote(availability.Value)),
			FacebookRule:  facebookRule("availability", "eq", availability.Value),
			Confidence:    percentage(availability.Count, analysis.TotalExcluded),
			AffectedCount: availability.Count,
		})
	}

	slices.SortStableFunc(rules, func(a, b Rule) int {
		if d := b.Priority.rank() - a.Priority.rank(); d != 0 {
			return d
		}
		return b.Confidence - a.Confidence
	})

	return rules
}

func (g *RuleGenerator) brandRule(brand PatternStat, priority Priority) Rule {
	return Rule{
		Type:          RuleBrand,
		Priority:      priority,
		Field:         "brand",
		Operator:      "equals",
		Value:         brand.Value,
		Description:   fmt.Sprintf("Exclude brand \"%s\" (%d of %d items excluded, %d%%)", brand.Value, brand.ExcludedCount, brand.TotalCount, brand.Percentage),
		GoogleRule:    googleRule("brand", "equals", quote(brand.Value)),
		FacebookRule:  facebookRule("brand", "eq", brand.Value),
		Confidence:    brand.Percentage,
		AffectedCount: brand.TotalCount,
	}
}

func quote(value string) string {
	return strconv.Quote(value)
}

func priceBounds(band PriceBand) string {
	if band.Max == 0 {
		return fmt.Sprintf("%g and above", band.Min)
	}
	return fmt.Sprintf("%g and %g", band.Min, band.Max)
}

// googleRule renders a Merchant Center feed rule that drops matching items
// from Shopping ads.
func googleRule(field, operator, value string) string {
	return fmt.Sprintf("IF %s %s %s THEN set excluded_destination = Shopping_ads", field, operator, value)
}

// facebookRule renders a Commerce Manager product set filter.
func facebookRule(field, operator, value string) string {
	filter := map[string]map[string]string{field: {operator: value}}
	data, err := json.Marshal(filter)
	if err != nil {
		return ""
	}
	return string(data)
}

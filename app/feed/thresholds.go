package feed

// Thresholds are the hand-tuned constants of the analyzer and the rule
// generator. Zero values in a preset override fall back to the defaults.
type Thresholds struct {
	BrandRetainPercent    int `yaml:"brand_retain_percent" json:"brandRetainPercent"`
	CategoryRetainPercent int `yaml:"category_retain_percent" json:"categoryRetainPercent"`
	GroupRetainPercent    int `yaml:"group_retain_percent" json:"groupRetainPercent"`
	RetainMinCount        int `yaml:"retain_min_count" json:"retainMinCount"`

	KeywordMinLength int `yaml:"keyword_min_length" json:"keywordMinLength"`
	KeywordMinCount  int `yaml:"keyword_min_count" json:"keywordMinCount"`
	KeywordLimit     int `yaml:"keyword_limit" json:"keywordLimit"`

	BrandHighPercent     int     `yaml:"brand_high_percent" json:"brandHighPercent"`
	BrandMediumCount     int     `yaml:"brand_medium_count" json:"brandMediumCount"`
	CategoryHighPercent  int     `yaml:"category_high_percent" json:"categoryHighPercent"`
	KeywordRuleCount     int     `yaml:"keyword_rule_count" json:"keywordRuleCount"`
	KeywordMaxConfidence int     `yaml:"keyword_max_confidence" json:"keywordMaxConfidence"`
	PriceRuleCount       int     `yaml:"price_rule_count" json:"priceRuleCount"`
	GroupHighPercent     int     `yaml:"group_high_percent" json:"groupHighPercent"`
	AvailabilityMinCount int     `yaml:"availability_min_count" json:"availabilityMinCount"`
	AvailabilityMinShare float64 `yaml:"availability_min_share" json:"availabilityMinShare"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		BrandRetainPercent:    50,
		CategoryRetainPercent: 30,
		GroupRetainPercent:    50,
		RetainMinCount:        2,

		KeywordMinLength: 4,
		KeywordMinCount:  2,
		KeywordLimit:     10,

		BrandHighPercent:     80,
		BrandMediumCount:     3,
		CategoryHighPercent:  60,
		KeywordRuleCount:     3,
		KeywordMaxConfidence: 95,
		PriceRuleCount:       3,
		GroupHighPercent:     70,
		AvailabilityMinCount: 3,
		AvailabilityMinShare: 0.3,
	}
}

// Merge returns the defaults with every non-zero field of t applied.
func (t *Thresholds) Merge() Thresholds {
	merged := DefaultThresholds()
	if t == nil {
		return merged
	}

	overrideInt(&merged.BrandRetainPercent, t.BrandRetainPercent)
	overrideInt(&merged.CategoryRetainPercent, t.CategoryRetainPercent)
	overrideInt(&merged.GroupRetainPercent, t.GroupRetainPercent)
	overrideInt(&merged.RetainMinCount, t.RetainMinCount)
	overrideInt(&merged.KeywordMinLength, t.KeywordMinLength)
	overrideInt(&merged.KeywordMinCount, t.KeywordMinCount)
	overrideInt(&merged.KeywordLimit, t.KeywordLimit)
	overrideInt(&merged.BrandHighPercent, t.BrandHighPercent)
	overrideInt(&merged.BrandMediumCount, t.BrandMediumCount)
	overrideInt(&merged.CategoryHighPercent, t.CategoryHighPercent)
	overrideInt(&merged.KeywordRuleCount, t.KeywordRuleCount)
	overrideInt(&merged.KeywordMaxConfidence, t.KeywordMaxConfidence)
	overrideInt(&merged.PriceRuleCount, t.PriceRuleCount)
	overrideInt(&merged.GroupHighPercent, t.GroupHighPercent)
	overrideInt(&merged.AvailabilityMinCount, t.AvailabilityMinCount)
	if t.AvailabilityMinShare > 0 {
		merged.AvailabilityMinShare = t.AvailabilityMinShare
	}

	return merged
}

func overrideInt(dst *int, value int) {
	if value > 0 {
		*dst = value
	}
}

package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string `json:"title,omitempty"`
	Link        string `json:"link,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	FeedType    string `json:"feedType,omitempty"`
}

// Item is one normalized product record. Empty string means the field was not
// provided by the feed.
type Item struct {
	ID                    string `json:"id"`
	Title                 string `json:"title"`
	Price                 string `json:"price"`
	Availability          string `json:"availability"`
	Condition             string `json:"condition"`
	Link                  string `json:"link"`
	ImageLink             string `json:"imageLink"`
	ItemGroupID           string `json:"itemGroupId"`
	ProductType           string `json:"productType"`
	GoogleProductCategory string `json:"googleProductCategory"`
	Description           string `json:"description"`
	Brand                 string `json:"brand"`
	GTIN                  string `json:"gtin"`
	MPN                   string `json:"mpn"`
}

// ItemSummary is the lightweight copy of an excluded item kept with a save so
// that items which later disappear from the feed can still be reported.
type ItemSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Price        string `json:"price"`
	Availability string `json:"availability"`
	ProductType  string `json:"productType"`
	ItemGroupID  string `json:"itemGroupId"`
	Brand        string `json:"brand"`
	Link         string `json:"link"`
}

func (i Item) Summary() ItemSummary {
	return ItemSummary{
		ID:           i.ID,
		Title:        i.Title,
		Price:        i.Price,
		Availability: i.Availability,
		ProductType:  i.ProductType,
		ItemGroupID:  i.ItemGroupID,
		Brand:        i.Brand,
		Link:         i.Link,
	}
}

// Preset configuration types

type Preset struct {
	Key        string         // Derived from filename (without .yml extension)
	Client     string         `yaml:"client"`
	Name       string         `yaml:"name"`
	URL        string         `yaml:"url"`
	Settings   PresetSettings `yaml:"settings"`
	Thresholds *Thresholds    `yaml:"thresholds"`
}

type PresetSettings struct {
	Enabled       bool `yaml:"enabled"`
	CheckInterval int  `yaml:"check_interval"` // seconds
	Timeout       int  `yaml:"timeout"`        // seconds
}

func (s PresetSettings) GetCheckInterval() time.Duration {
	if s.CheckInterval <= 0 {
		return time.Hour
	}
	return time.Duration(s.CheckInterval) * time.Second
}

func (s PresetSettings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

package feed

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

const (
	StatusAny      = "any"
	StatusExcluded = "excluded"
	StatusIncluded = "included"

	PriceAny     = "any"
	PriceHas     = "has_price"
	PriceMissing = "no_price"
)

var sortKeys = []string{"title_asc", "title_desc", "price_asc", "price_desc", "id_asc", "id_desc", "availability"}

// FilterOptions holds the active predicates of one filtered view. Zero values
// mean "not active".
type FilterOptions struct {
	Search         string   `form:"search" json:"search"`
	ProductType    string   `form:"productType" json:"productType"`
	GoogleCategory string   `form:"googleCategory" json:"googleCategory"`
	Status         string   `form:"status" json:"status"`
	Availability   string   `form:"availability" json:"availability"`
	MinPrice       *float64 `form:"minPrice" json:"minPrice"`
	MaxPrice       *float64 `form:"maxPrice" json:"maxPrice"`
	Price          string   `form:"price" json:"price"`
	Sort           string   `form:"sort" json:"sort"`
}

func (o FilterOptions) Validate() error {
	switch o.Status {
	case "", StatusAny, StatusExcluded, StatusIncluded:
	default:
		return NewValidationError("status", fmt.Sprintf("unknown status filter '%s'", o.Status))
	}

	switch o.Price {
	case "", PriceAny, PriceHas, PriceMissing:
	default:
		return NewValidationError("price", fmt.Sprintf("unknown price filter '%s'", o.Price))
	}

	if o.Sort != "" && !slices.Contains(sortKeys, o.Sort) {
		return NewValidationError("sort", fmt.Sprintf("unknown sort key '%s'", o.Sort))
	}

	return nil
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the items passing every active predicate, sorted by opts.Sort.
// The result is always a subset of the snapshot in a new slice.
func (f *Filterer) Run(snapshot *Snapshot, excluded *ExclusionSet, opts FilterOptions) ([]Item, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	filtered := make([]Item, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		if f.matches(item, excluded, opts) {
			filtered = append(filtered, item)
		}
	}

	f.sort(filtered, opts.Sort)

	return filtered, nil
}

func (f *Filterer) matches(item Item, excluded *ExclusionSet, opts FilterOptions) bool {
	if opts.Search != "" && !f.matchesSearch(item, opts.Search) {
		return false
	}

	if opts.ProductType != "" && item.ProductType != opts.ProductType {
		return false
	}

	if opts.GoogleCategory != "" && item.GoogleProductCategory != opts.GoogleCategory {
		return false
	}

	isExcluded := excluded != nil && excluded.Has(item.ID)
	switch opts.Status {
	case StatusExcluded:
		if !isExcluded {
			return false
		}
	case StatusIncluded:
		if isExcluded {
			return false
		}
	}

	if opts.Availability != "" && NormalizeAvailability(item.Availability) != NormalizeAvailability(opts.Availability) {
		return false
	}

	price := ParsePrice(item.Price)
	if opts.MinPrice != nil && price < *opts.MinPrice {
		return false
	}
	if opts.MaxPrice != nil && price > *opts.MaxPrice {
		return false
	}

	switch opts.Price {
	case PriceHas:
		if price <= 0 {
			return false
		}
	case PriceMissing:
		if price > 0 {
			return false
		}
	}

	return true
}

func (f *Filterer) matchesSearch(item Item, search string) bool {
	needle := strings.ToLower(search)
	for _, value := range []string{item.Title, item.ProductType, item.ID, item.GoogleProductCategory} {
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

func (f *Filterer) sort(items []Item, key string) {
	if key == "" {
		return
	}

	// Collator keeps internal buffers; one per call.
	collator := collate.New(language.English)

	var compare func(a, b Item) int
	switch key {
	case "title_asc":
		compare = func(a, b Item) int { return collator.CompareString(a.Title, b.Title) }
	case "title_desc":
		compare = func(a, b Item) int { return collator.CompareString(b.Title, a.Title) }
	case "id_asc":
		compare = func(a, b Item) int { return collator.CompareString(a.ID, b.ID) }
	case "id_desc":
		compare = func(a, b Item) int { return collator.CompareString(b.ID, a.ID) }
	case "price_asc":
		compare = func(a, b Item) int { return compareFloat(ParsePrice(a.Price), ParsePrice(b.Price)) }
	case "price_desc":
		compare = func(a, b Item) int { return compareFloat(ParsePrice(b.Price), ParsePrice(a.Price)) }
	case "availability":
		compare = func(a, b Item) int { return availabilityRank(a.Availability) - availabilityRank(b.Availability) }
	default:
		return
	}

	slices.SortStableFunc(items, compare)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

package feed

import (
	"errors"
	"slices"
	"testing"
)

func filterSnapshot() *Snapshot {
	return NewSnapshot(nil, []Item{
		{ID: "A1", Title: "Blue Widget", Price: "GBP 20.00", Availability: "in stock", ProductType: "Widgets", GoogleProductCategory: "111"},
		{ID: "B2", Title: "apple corer", Price: "GBP 120.00", Availability: "out of stock", ProductType: "Kitchen", GoogleProductCategory: "222"},
		{ID: "C3", Title: "Zebra Mug", Price: "", Availability: "preorder", ProductType: "Kitchen", GoogleProductCategory: "222"},
		{ID: "D4", Title: "Red Widget", Price: "GBP 20.00", Availability: "In Stock", ProductType: "Widgets", GoogleProductCategory: "111"},
		{ID: "E5", Title: "Gadget", Price: "GBP 1,050.00", Availability: "backorder", ProductType: "Gadgets", GoogleProductCategory: "333"},
	})
}

func ids(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestFilterer_NoOptionsKeepsSnapshotOrder(t *testing.T) {
	filterer := NewFilterer()
	snapshot := filterSnapshot()

	result, err := filterer.Run(snapshot, NewExclusionSet(), FilterOptions{})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !slices.Equal(ids(result), snapshot.IDs()) {
		t.Errorf("Expected snapshot order %v, got %v", snapshot.IDs(), ids(result))
	}
}

func TestFilterer_Predicates(t *testing.T) {
	excluded := NewExclusionSet("B2", "E5")

	testCases := []struct {
		name     string
		opts     FilterOptions
		expected []string
	}{
		{"search title case-insensitive", FilterOptions{Search: "WIDGET"}, []string{"A1", "D4"}},
		{"search product type", FilterOptions{Search: "kitchen"}, []string{"B2", "C3"}},
		{"search id", FilterOptions{Search: "e5"}, []string{"E5"}},
		{"search google category", FilterOptions{Search: "333"}, []string{"E5"}},
		{"product type exact", FilterOptions{ProductType: "Kitchen"}, []string{"B2", "C3"}},
		{"product type is not substring", FilterOptions{ProductType: "Kitch"}, []string{}},
		{"google category exact", FilterOptions{GoogleCategory: "111"}, []string{"A1", "D4"}},
		{"status excluded", FilterOptions{Status: StatusExcluded}, []string{"B2", "E5"}},
		{"status included", FilterOptions{Status: StatusIncluded}, []string{"A1", "C3", "D4"}},
		{"status any", FilterOptions{Status: StatusAny}, []string{"A1", "B2", "C3", "D4", "E5"}},
		{"availability normalized", FilterOptions{Availability: "in_stock"}, []string{"A1", "D4"}},
		{"availability with spaces", FilterOptions{Availability: "Out Of Stock"}, []string{"B2"}},
		{"min price inclusive", FilterOptions{MinPrice: floatPtr(120)}, []string{"B2", "E5"}},
		{"max price inclusive", FilterOptions{MaxPrice: floatPtr(20)}, []string{"A1", "C3", "D4"}},
		{"price range", FilterOptions{MinPrice: floatPtr(20), MaxPrice: floatPtr(120)}, []string{"A1", "B2", "D4"}},
		{"has price", FilterOptions{Price: PriceHas}, []string{"A1", "B2", "D4", "E5"}},
		{"no price", FilterOptions{Price: PriceMissing}, []string{"C3"}},
		{"combined with AND", FilterOptions{Search: "widget", Status: StatusIncluded, MaxPrice: floatPtr(50)}, []string{"A1", "D4"}},
		{"combined no match", FilterOptions{ProductType: "Kitchen", Status: StatusIncluded, Price: PriceHas}, []string{}},
	}

	filterer := NewFilterer()
	snapshot := filterSnapshot()

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := filterer.Run(snapshot, excluded, tc.opts)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if !slices.Equal(ids(result), tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, ids(result))
			}
			for _, item := range result {
				if !snapshot.Has(item.ID) {
					t.Errorf("Result item %s is not part of the snapshot", item.ID)
				}
			}
		})
	}
}

func TestFilterer_Sort(t *testing.T) {
	testCases := []struct {
		sort     string
		expected []string
	}{
		{"title_asc", []string{"B2", "A1", "E5", "D4", "C3"}},
		{"title_desc", []string{"C3", "D4", "E5", "A1", "B2"}},
		{"price_asc", []string{"C3", "A1", "D4", "B2", "E5"}},
		{"price_desc", []string{"E5", "B2", "A1", "D4", "C3"}},
		{"id_asc", []string{"A1", "B2", "C3", "D4", "E5"}},
		{"id_desc", []string{"E5", "D4", "C3", "B2", "A1"}},
		{"availability", []string{"A1", "D4", "E5", "C3", "B2"}},
	}

	filterer := NewFilterer()
	snapshot := filterSnapshot()

	for _, tc := range testCases {
		t.Run(tc.sort, func(t *testing.T) {
			result, err := filterer.Run(snapshot, nil, FilterOptions{Sort: tc.sort})
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if !slices.Equal(ids(result), tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, ids(result))
			}
		})
	}
}

func TestFilterer_SortIsStable(t *testing.T) {
	snapshot := NewSnapshot(nil, []Item{
		{ID: "3", Price: "10"},
		{ID: "1", Price: "5"},
		{ID: "2", Price: "10"},
		{ID: "4", Price: "10"},
		{ID: "0", Price: "5"},
	})

	result, err := NewFilterer().Run(snapshot, nil, FilterOptions{Sort: "price_desc"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expected := []string{"3", "2", "4", "1", "0"}
	if !slices.Equal(ids(result), expected) {
		t.Errorf("Expected equal prices to keep relative order %v, got %v", expected, ids(result))
	}
}

func TestFilterer_DoesNotMutateSnapshot(t *testing.T) {
	snapshot := filterSnapshot()
	before := snapshot.IDs()

	if _, err := NewFilterer().Run(snapshot, nil, FilterOptions{Sort: "id_desc"}); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !slices.Equal(snapshot.IDs(), before) {
		t.Errorf("Expected snapshot order to be unchanged, got %v", snapshot.IDs())
	}
}

func TestFilterOptions_ValidateRejectsUnknownValues(t *testing.T) {
	testCases := []FilterOptions{
		{Status: "deleted"},
		{Price: "cheap"},
		{Sort: "brand_asc"},
	}

	for _, opts := range testCases {
		_, err := NewFilterer().Run(filterSnapshot(), nil, opts)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("Expected ValidationError for %+v, got: %v", opts, err)
		}
	}
}

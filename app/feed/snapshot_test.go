package feed

import (
	"slices"
	"testing"
)

func TestNewSnapshotDeduplicatesLastWins(t *testing.T) {
	items := []Item{
		{ID: "1", Title: "First"},
		{ID: "2", Title: "Second"},
		{ID: "1", Title: "First (updated)"},
		{ID: "", Title: "No id"},
	}

	snapshot := NewSnapshot(&Metadata{Title: "Store"}, items)

	if snapshot.Len() != 2 {
		t.Fatalf("Expected 2 items, got %d", snapshot.Len())
	}
	if snapshot.Skipped != 1 {
		t.Errorf("Expected 1 skipped item, got %d", snapshot.Skipped)
	}
	if !slices.Equal(snapshot.IDs(), []string{"1", "2"}) {
		t.Errorf("Expected ids [1 2] in first-seen order, got %v", snapshot.IDs())
	}

	item, ok := snapshot.Get("1")
	if !ok {
		t.Fatal("Expected item '1' to exist")
	}
	if item.Title != "First (updated)" {
		t.Errorf("Expected last occurrence to win, got title %q", item.Title)
	}
	if snapshot.Metadata.Title != "Store" {
		t.Errorf("Expected metadata title 'Store', got %q", snapshot.Metadata.Title)
	}
	if snapshot.Has("missing") {
		t.Error("Expected Has to be false for unknown id")
	}
}

func TestSnapshotCategories(t *testing.T) {
	snapshot := NewSnapshot(nil, []Item{
		{ID: "1", ProductType: "Shoes", GoogleProductCategory: "187"},
		{ID: "2", ProductType: "Bags", GoogleProductCategory: "187"},
		{ID: "3", ProductType: "Shoes"},
		{ID: "4"},
	})

	if !slices.Equal(snapshot.Categories(), []string{"Bags", "Shoes"}) {
		t.Errorf("Expected categories [Bags Shoes], got %v", snapshot.Categories())
	}
	if !slices.Equal(snapshot.GoogleCategories(), []string{"187"}) {
		t.Errorf("Expected google categories [187], got %v", snapshot.GoogleCategories())
	}
}

func TestExclusionSet(t *testing.T) {
	set := NewExclusionSet("a", "b", "a")

	if set.Len() != 2 {
		t.Fatalf("Expected 2 ids, got %d", set.Len())
	}
	if added := set.Add("b", "c", ""); added != 1 {
		t.Errorf("Expected 1 new id, got %d", added)
	}
	if removed := set.Remove("a", "zzz"); removed != 1 {
		t.Errorf("Expected 1 removed id, got %d", removed)
	}
	if !slices.Equal(set.IDs(), []string{"b", "c"}) {
		t.Errorf("Expected [b c], got %v", set.IDs())
	}

	set.Clear()
	if set.Len() != 0 || set.Has("b") {
		t.Error("Expected empty set after Clear")
	}
}

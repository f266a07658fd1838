package feed

import (
	"errors"
	"slices"
	"testing"
)

func TestExtractBaseTitle(t *testing.T) {
	testCases := []struct {
		title    string
		expected string
	}{
		{"Widget - Large", "Widget"},
		{"Widget - Red", "Widget"},
		{"Widget (XL)", "Widget"},
		{"Widget (blue)", "Widget"},
		{"Widget ( XL )", "Widget"},
		{"Widget ( Red )", "Widget"},
		{"Widget - xxl", "Widget"},
		{"Widget - S", "Widget"},
		{"Poster - 50cm", "Poster"},
		{"Poster - 2.5 m", "Poster"},
		{"Rug - 120 x 180 cm", "Rug"},
		{"Frame - 10x8", "Frame"},
		{"Widget - Large - Red", "Widget - Large"},
		{"Red Widget", "Red Widget"},
		{"Widget - Magenta", "Widget - Magenta"},
		{"Widget Large", "Widget Large"},
		{"  Widget  ", "Widget"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := ExtractBaseTitle(tc.title); got != tc.expected {
			t.Errorf("ExtractBaseTitle(%q): expected %q, got %q", tc.title, tc.expected, got)
		}
	}
}

func variantSnapshot() *Snapshot {
	return NewSnapshot(nil, []Item{
		{ID: "1", Title: "Tee - Small", ItemGroupID: "TEE"},
		{ID: "2", Title: "Tee - Large", ItemGroupID: "TEE"},
		{ID: "3", Title: "Tee (Red)", ItemGroupID: ""},
		{ID: "4", Title: "Mug", ItemGroupID: "MUG"},
		{ID: "5", Title: "Hoodie - Black", ItemGroupID: "TEE"},
		{ID: "6", Title: "Poster"},
	})
}

func TestFindVariants(t *testing.T) {
	snapshot := variantSnapshot()
	target, _ := snapshot.Get("1")

	variants := FindVariants(snapshot, target)

	if variants.BaseTitle != "Tee" {
		t.Errorf("Expected base title 'Tee', got %q", variants.BaseTitle)
	}
	if !slices.Equal(ids(variants.Group), []string{"2", "5"}) {
		t.Errorf("Expected group variants [2 5], got %v", ids(variants.Group))
	}
	if !slices.Equal(ids(variants.Title), []string{"2", "3"}) {
		t.Errorf("Expected title variants [2 3], got %v", ids(variants.Title))
	}
	if !slices.Equal(variants.Choices(), []ExclusionScope{ScopeSingle, ScopeGroup, ScopeTitle}) {
		t.Errorf("Expected all three choices, got %v", variants.Choices())
	}
}

func TestFindVariantsNoneForUniqueItem(t *testing.T) {
	snapshot := variantSnapshot()
	target, _ := snapshot.Get("6")

	variants := FindVariants(snapshot, target)
	if variants.Any() {
		t.Errorf("Expected no variants, got %+v", variants)
	}
	if !slices.Equal(variants.Choices(), []ExclusionScope{ScopeSingle}) {
		t.Errorf("Expected only single choice, got %v", variants.Choices())
	}
}

func TestGroupVariantsAreSymmetric(t *testing.T) {
	snapshot := variantSnapshot()

	for _, a := range snapshot.Items {
		for _, b := range FindVariants(snapshot, a).Group {
			back := FindVariants(snapshot, b)
			if !slices.Contains(ids(back.Group), a.ID) {
				t.Errorf("Expected %s to be a group variant of %s", a.ID, b.ID)
			}
		}
	}
}

func TestResolveScope(t *testing.T) {
	snapshot := variantSnapshot()
	target, _ := snapshot.Get("1")

	testCases := []struct {
		scope    ExclusionScope
		expected []string
	}{
		{ScopeSingle, []string{"1"}},
		{ScopeGroup, []string{"1", "2", "5"}},
		{ScopeTitle, []string{"1", "2", "3"}},
	}

	for _, tc := range testCases {
		got, err := ResolveScope(snapshot, target, tc.scope)
		if err != nil {
			t.Fatalf("Expected no error for scope %s, got: %v", tc.scope, err)
		}
		if !slices.Equal(got, tc.expected) {
			t.Errorf("Scope %s: expected %v, got %v", tc.scope, tc.expected, got)
		}
	}
}

func TestResolveScopeWithoutGroupID(t *testing.T) {
	snapshot := variantSnapshot()
	target, _ := snapshot.Get("3")

	_, err := ResolveScope(snapshot, target, ScopeGroup)
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError, got: %v", err)
	}

	_, err = ResolveScope(snapshot, target, ExclusionScope("everything"))
	if !errors.As(err, &validationErr) {
		t.Errorf("Expected ValidationError for unknown scope, got: %v", err)
	}
}

func TestParseScope(t *testing.T) {
	if scope, err := ParseScope(" Group "); err != nil || scope != ScopeGroup {
		t.Errorf("Expected group scope, got %q (%v)", scope, err)
	}
	if _, err := ParseScope("all"); err == nil {
		t.Error("Expected error for unknown scope")
	}
}

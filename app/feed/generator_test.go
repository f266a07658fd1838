package feed

import (
	"strings"
	"testing"
)

func TestGenerateFilteredFeed(t *testing.T) {
	generator := NewGenerator("https://curator.example.com/", "1.2.3")

	snapshot := NewSnapshot(&Metadata{Title: "Test Store", Link: "https://shop.example.com", Language: "en-gb"}, []Item{
		{ID: "1", Title: "Kept & Sound", Price: "GBP 10.00", Brand: "Acme"},
		{ID: "2", Title: "Excluded", Price: "GBP 20.00"},
	})
	excluded := NewExclusionSet("2")

	doc, err := generator.Run(snapshot, excluded, "https://shop.example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(doc, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("Feed should contain XML declaration")
	}
	if !strings.Contains(doc, `xmlns:g="http://base.google.com/ns/1.0"`) {
		t.Error("Feed should declare the Google namespace")
	}
	if !strings.Contains(doc, "<title>Test Store</title>") {
		t.Error("Feed should carry the source title")
	}
	if !strings.Contains(doc, "<language>en-gb</language>") {
		t.Error("Feed should carry the source language")
	}
	if !strings.Contains(doc, "<title>Kept &amp; Sound</title>") {
		t.Error("Feed should escape item text")
	}
	if strings.Contains(doc, "<g:id>2</g:id>") {
		t.Error("Excluded item must not be generated")
	}
	if !strings.Contains(doc, "<generator>Feed-Curator/1.2.3</generator>") {
		t.Error("Feed should name its generator and version")
	}
	if !strings.Contains(doc, `href="https://curator.example.com/api/workspace/export?format=xml&amp;feedUrl=https%3A%2F%2Fshop.example.com%2Ffeed.xml"`) {
		t.Errorf("Feed should carry a self link under the base URL, got:\n%s", doc)
	}
}

func TestGenerateWithoutBaseURL(t *testing.T) {
	snapshot := NewSnapshot(nil, []Item{{ID: "1", Title: "One"}})

	doc, err := NewGenerator("", "").Run(snapshot, nil, "https://shop.example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(doc, "atom:link") {
		t.Error("Expected no self link without a base URL")
	}
	if !strings.Contains(doc, "<generator>Feed-Curator/dev</generator>") {
		t.Error("Expected default generator version 'dev'")
	}
}

func TestGeneratedFeedRoundTrip(t *testing.T) {
	_, original, err := NewParser().Run([]byte(googleShoppingFeed))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	original = append(original, Item{
		ID:          "3",
		Title:       `Quote "marks" <and> tags`,
		Description: "Line one\nLine two",
		ProductType: "Home > Garden & Patio",
	})
	snapshot := NewSnapshot(nil, original)

	doc, err := NewGenerator("https://curator.example.com", "test").Run(snapshot, NewExclusionSet(), "https://shop.example.com/feed.xml")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	_, reparsed, err := NewParser().Run([]byte(doc))
	if err != nil {
		t.Fatalf("Expected generated feed to parse, got: %v", err)
	}

	if len(reparsed) != len(original) {
		t.Fatalf("Expected %d items, got %d", len(original), len(reparsed))
	}
	for i := range original {
		if reparsed[i] != original[i] {
			t.Errorf("Item %d changed in round trip:\nexpected %+v\ngot      %+v", i, original[i], reparsed[i])
		}
	}
}

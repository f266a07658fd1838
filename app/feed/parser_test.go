package feed

import (
	"errors"
	"testing"
)

const googleShoppingFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0">
  <channel>
    <title>Test Store</title>
    <link>https://shop.example.com</link>
    <description>Test Store Products</description>
    <language>en-gb</language>
    <item>
      <g:id>SKU-1</g:id>
      <title>Trail Shoe - Large</title>
      <link>https://shop.example.com/p/1</link>
      <description>Waterproof &amp; light</description>
      <g:price>GBP 120.00</g:price>
      <g:availability>in stock</g:availability>
      <g:condition>new</g:condition>
      <g:image_link>https://shop.example.com/i/1.jpg</g:image_link>
      <g:item_group_id>TRAIL</g:item_group_id>
      <g:product_type>Shoes &gt; Trail</g:product_type>
      <g:google_product_category>187</g:google_product_category>
      <g:brand>Acme</g:brand>
      <g:gtin>0001</g:gtin>
      <g:mpn>TR-1</g:mpn>
    </item>
    <item>
      <g:id>SKU-2</g:id>
      <title>Trail Shoe - Small</title>
      <g:price>GBP 1,020.50</g:price>
      <g:availability>out of stock</g:availability>
      <g:item_group_id>TRAIL</g:item_group_id>
    </item>
  </channel>
</rss>`

func TestParseGoogleShoppingFeed(t *testing.T) {
	parser := NewParser()
	metadata, items, err := parser.Run([]byte(googleShoppingFeed))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Store" {
		t.Errorf("Expected title 'Test Store', got: %s", metadata.Title)
	}
	if metadata.Link != "https://shop.example.com" {
		t.Errorf("Expected link 'https://shop.example.com', got: %s", metadata.Link)
	}
	if metadata.Language != "en-gb" {
		t.Errorf("Expected language 'en-gb', got: %s", metadata.Language)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	item := items[0]
	expected := Item{
		ID:                    "SKU-1",
		Title:                 "Trail Shoe - Large",
		Price:                 "GBP 120.00",
		Availability:          "in stock",
		Condition:             "new",
		Link:                  "https://shop.example.com/p/1",
		ImageLink:             "https://shop.example.com/i/1.jpg",
		ItemGroupID:           "TRAIL",
		ProductType:           "Shoes > Trail",
		GoogleProductCategory: "187",
		Description:           "Waterproof & light",
		Brand:                 "Acme",
		GTIN:                  "0001",
		MPN:                   "TR-1",
	}
	if item != expected {
		t.Errorf("Expected item %+v, got: %+v", expected, item)
	}

	if items[1].Brand != "" {
		t.Errorf("Expected empty brand for item without one, got: %s", items[1].Brand)
	}
	if items[1].Link != "" {
		t.Errorf("Expected empty link for item without one, got: %s", items[1].Link)
	}
}

func TestParseAtomEntries(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:g="http://base.google.com/ns/1.0">
  <title>Atom Store</title>
  <id>urn:store</id>
  <entry>
    <g:id>A-1</g:id>
    <title>Entry Product</title>
    <g:price>9.99 USD</g:price>
  </entry>
</feed>`

	parser := NewParser()
	metadata, items, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Atom Store" {
		t.Errorf("Expected title 'Atom Store', got: %s", metadata.Title)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}
	if items[0].ID != "A-1" {
		t.Errorf("Expected id 'A-1', got: %s", items[0].ID)
	}
	if items[0].Price != "9.99 USD" {
		t.Errorf("Expected price '9.99 USD', got: %s", items[0].Price)
	}
}

func TestParseWithoutRecognisableFeedMetadata(t *testing.T) {
	data := `<products><item><id>1</id><title>Plain</title></item></products>`

	parser := NewParser()
	metadata, items, err := parser.Run([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if metadata == nil {
		t.Fatal("Expected metadata to be non-nil")
	}
	if metadata.Title != "" {
		t.Errorf("Expected empty metadata title, got: %s", metadata.Title)
	}
	if len(items) != 1 || items[0].Title != "Plain" {
		t.Errorf("Expected one item titled 'Plain', got: %+v", items)
	}
}

func TestParseInvalidFeed(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{"not xml", "invalid xml"},
		{"empty", "   "},
		{"mismatched end tag", `<rss><channel><item><id>1</id></channel></rss>`},
		{"unclosed element", `<rss><channel><item><id>1</id></item>`},
		{"stray end tag", `<rss></rss></channel>`},
		{"broken attribute", `<rss version="2.0><item></item></rss>`},
		{"unknown entity", `<rss><item><title>A &bogus; B</title></item></rss>`},
		{"second root element", `<rss><item><id>A</id></item></rss><rss><item><id>B</id></item></rss>`},
		{"text after root", `<rss><item><id>A</id></item></rss>trailing garbage`},
		{"text before root", `garbage<rss><item><id>A</id></item></rss>`},
	}

	parser := NewParser()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			metadata, items, err := parser.Run([]byte(tc.data))
			if err == nil {
				t.Fatal("Expected error for malformed document")
			}

			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Errorf("Expected ParseError, got: %T", err)
			}
			if metadata != nil || items != nil {
				t.Error("Expected no partial results on parse failure")
			}
		})
	}
}

func TestParseHTMLEntities(t *testing.T) {
	data := `<rss><channel><item>
  <id>E-1</id>
  <title>Caf&eacute; &amp;amp; Bar &nbsp;</title>
  <price>&pound;12</price>
</item></channel></rss>`

	_, items, err := NewParser().Run([]byte(data))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if items[0].Title != "Café & Bar" {
		t.Errorf("Expected title 'Café & Bar', got: %q", items[0].Title)
	}
	if items[0].Price != "£12" {
		t.Errorf("Expected price '£12', got: %q", items[0].Price)
	}
}

func TestLooksLikeXML(t *testing.T) {
	testCases := []struct {
		data     string
		expected bool
	}{
		{`<?xml version="1.0"?><rss/>`, true},
		{"  \n<rss></rss>", true},
		{"{\"json\": true}", false},
		{"", false},
		{"hello <rss>", false},
	}

	for _, tc := range testCases {
		if got := LooksLikeXML([]byte(tc.data)); got != tc.expected {
			t.Errorf("LooksLikeXML(%q): expected %v, got %v", tc.data, tc.expected, got)
		}
	}
}

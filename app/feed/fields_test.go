package feed

import "testing"

func firstItemNode(t *testing.T, doc string) *node {
	t.Helper()

	root, err := buildTree([]byte(doc))
	if err != nil {
		t.Fatalf("Expected no error building tree, got: %v", err)
	}
	items := root.collect("item")
	if len(items) == 0 {
		t.Fatal("Expected at least one item element")
	}
	return items[0]
}

func TestLookupFieldNamespaceVariants(t *testing.T) {
	testCases := []struct {
		name     string
		doc      string
		field    string
		expected string
	}{
		{
			name:     "unprefixed tag",
			doc:      `<rss><item><id>plain</id></item></rss>`,
			field:    "id",
			expected: "plain",
		},
		{
			name:     "google prefix",
			doc:      `<rss xmlns:g="http://base.google.com/ns/1.0"><item><g:id>google</g:id></item></rss>`,
			field:    "id",
			expected: "google",
		},
		{
			name:     "facebook prefix",
			doc:      `<rss xmlns:fb="https://www.facebook.com/catalog"><item><fb:id>facebook</fb:id></item></rss>`,
			field:    "id",
			expected: "facebook",
		},
		{
			name:     "unprefixed wins over google regardless of order",
			doc:      `<rss><item><g:id>google</g:id><id>plain</id></item></rss>`,
			field:    "id",
			expected: "plain",
		},
		{
			name:     "google wins over facebook regardless of order",
			doc:      `<rss><item><fb:price>1</fb:price><g:price>2</g:price></item></rss>`,
			field:    "price",
			expected: "2",
		},
		{
			name:     "google namespace under another prefix",
			doc:      `<rss xmlns:gs="http://base.google.com/ns/1.0" xmlns:x="urn:other"><item><x:brand>Other</x:brand><gs:brand>Acme</gs:brand></item></rss>`,
			field:    "brand",
			expected: "Acme",
		},
		{
			name:     "facebook namespace under another prefix",
			doc:      `<rss xmlns:cat="http://www.facebook.com/2014/catalog"><item><cat:mpn>M-1</cat:mpn></item></rss>`,
			field:    "mpn",
			expected: "M-1",
		},
		{
			name:     "unknown prefix found as descendant",
			doc:      `<rss><item><x:gtin>123</x:gtin></item></rss>`,
			field:    "gtin",
			expected: "123",
		},
		{
			name:     "nested descendant",
			doc:      `<rss><item><details><spec><brand>Deep</brand></spec></details></item></rss>`,
			field:    "brand",
			expected: "Deep",
		},
		{
			name:     "first descendant in document order",
			doc:      `<rss><item><a><color>first</color></a><b><color>second</color></b></item></rss>`,
			field:    "color",
			expected: "first",
		},
		{
			name:     "absent field",
			doc:      `<rss><item><id>1</id></item></rss>`,
			field:    "brand",
			expected: "",
		},
		{
			name:     "trimmed text",
			doc:      "<rss><item><title>\n   Widget   \n</title></item></rss>",
			field:    "title",
			expected: "Widget",
		},
		{
			name:     "cdata text",
			doc:      `<rss><item><description><![CDATA[<b>Bold</b> &amp; more]]></description></item></rss>`,
			field:    "description",
			expected: "<b>Bold</b> & more",
		},
		{
			name:     "mixed content in document order",
			doc:      `<rss><item><description>Soft <em>cotton</em> shirt</description></item></rss>`,
			field:    "description",
			expected: "Soft cotton shirt",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			item := firstItemNode(t, tc.doc)
			if got := lookupField(item, tc.field); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestProductTypeFallback(t *testing.T) {
	testCases := []struct {
		name     string
		doc      string
		expected string
	}{
		{"product_type", `<rss><item><g:product_type>Shoes</g:product_type><category>Other</category></item></rss>`, "Shoes"},
		{"fb_product_category", `<rss><item><fb_product_category>Bags</fb_product_category><category>Other</category></item></rss>`, "Bags"},
		{"category", `<rss><item><category>Hats</category></item></rss>`, "Hats"},
		{"none", `<rss><item><id>1</id></item></rss>`, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			item := itemFromNode(firstItemNode(t, tc.doc))
			if item.ProductType != tc.expected {
				t.Errorf("Expected product type %q, got %q", tc.expected, item.ProductType)
			}
		})
	}
}

func TestCollectOutermostItems(t *testing.T) {
	root, err := buildTree([]byte(`<rss><channel><item><id>1</id><item><id>nested</id></item></item><item><id>2</id></item></channel></rss>`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	items := root.collect("item")
	if len(items) != 2 {
		t.Fatalf("Expected 2 outermost items, got %d", len(items))
	}
	if got := lookupField(items[1], "id"); got != "2" {
		t.Errorf("Expected second item id '2', got %q", got)
	}
}

func TestTextIsStoredOnce(t *testing.T) {
	root, err := buildTree([]byte(`<rss><channel><item><title>Widget</title></item></channel></rss>`))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	channel := root.children[0].children[0]
	if channel.data != nil {
		t.Errorf("Expected no text on <channel>, got %q", channel.data)
	}

	title := channel.children[0].children[0]
	if len(title.children) != 1 || string(title.children[0].data) != "Widget" {
		t.Errorf("Expected a single text node 'Widget' under <title>, got %d children", len(title.children))
	}
	if got := channel.value(); got != "Widget" {
		t.Errorf("Expected channel text 'Widget', got %q", got)
	}
}

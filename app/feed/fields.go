package feed

import (
	"strings"

	"golang.org/x/net/html"
)

type nsKind int

const (
	nsNone nsKind = iota
	nsGoogle
	nsFacebook
	nsOther
)

// node is a detached element tree built from one document. Field lookup works
// on it without any live DOM. Character data is kept as text nodes (empty
// local name) in document order.
type node struct {
	prefix   string
	local    string
	space    string
	data     []byte
	children []*node
}

func (n *node) writeText(b *strings.Builder) {
	b.Write(n.data)
	for _, c := range n.children {
		c.writeText(b)
	}
}

func (n *node) kind() nsKind {
	switch {
	case n.prefix == "":
		return nsNone
	case n.prefix == "g" || strings.Contains(n.space, "base.google.com"):
		return nsGoogle
	case n.prefix == "fb" || strings.Contains(n.space, "facebook.com"):
		return nsFacebook
	default:
		return nsOther
	}
}

func (n *node) value() string {
	var b strings.Builder
	n.writeText(&b)
	return strings.TrimSpace(html.UnescapeString(strings.TrimSpace(b.String())))
}

func (n *node) findDescendant(local string) *node {
	for _, c := range n.children {
		if c.local == "" {
			continue
		}
		if c.local == local {
			return c
		}
		if d := c.findDescendant(local); d != nil {
			return d
		}
	}
	return nil
}

// collect returns the outermost elements with the given local name.
func (n *node) collect(local string) []*node {
	var found []*node
	for _, c := range n.children {
		if c.local == local {
			found = append(found, c)
			continue
		}
		found = append(found, c.collect(local)...)
	}
	return found
}

var namespaceOrder = []nsKind{nsNone, nsGoogle, nsFacebook}

// lookupField resolves a logical field on an item element: unprefixed child,
// then g: child, then fb: child, then any descendant with that local name.
func lookupField(item *node, name string) string {
	for _, kind := range namespaceOrder {
		for _, c := range item.children {
			if c.local == name && c.kind() == kind {
				return c.value()
			}
		}
	}
	if d := item.findDescendant(name); d != nil {
		return d.value()
	}
	return ""
}

func lookupFirst(item *node, names ...string) string {
	for _, name := range names {
		if v := lookupField(item, name); v != "" {
			return v
		}
	}
	return ""
}

func itemFromNode(n *node) Item {
	return Item{
		ID:                    lookupField(n, "id"),
		Title:                 lookupField(n, "title"),
		Price:                 lookupField(n, "price"),
		Availability:          lookupField(n, "availability"),
		Condition:             lookupField(n, "condition"),
		Link:                  lookupField(n, "link"),
		ImageLink:             lookupField(n, "image_link"),
		ItemGroupID:           lookupField(n, "item_group_id"),
		ProductType:           lookupFirst(n, "product_type", "fb_product_category", "category"),
		GoogleProductCategory: lookupField(n, "google_product_category"),
		Description:           lookupField(n, "description"),
		Brand:                 lookupField(n, "brand"),
		GTIN:                  lookupField(n, "gtin"),
		MPN:                   lookupField(n, "mpn"),
	}
}

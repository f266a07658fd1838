package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
)

// Generator renders the filtered feed. baseURL is the public address of the
// service used for the self link; without it the link is left out.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: cmp.Or(version, "dev"),
	}
}

// Run writes a Google Shopping RSS document with the items of the snapshot
// that are not excluded. Parsing the output again yields the same items.
func (g *Generator) Run(snapshot *Snapshot, excluded *ExclusionSet, feedURL string) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:g="http://base.google.com/ns/1.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	meta := snapshot.Metadata
	g.writeElement(&buf, "title", cmp.Or(meta.Title, "Filtered shopping feed"), 4)
	g.writeElement(&buf, "link", cmp.Or(meta.Link, feedURL), 4)
	description := meta.Description
	if description == "" {
		description = fmt.Sprintf("Filtered feed from %s", feedURL)
	}
	g.writeElement(&buf, "description", description, 4)

	if g.baseURL != "" {
		selfLink := fmt.Sprintf("%s/api/workspace/export?format=xml&feedUrl=%s", g.baseURL, url.QueryEscape(feedURL))
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(selfLink)))
	}

	g.writeElement(&buf, "lastBuildDate", time.Now().In(time.Local).Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Feed-Curator/%s", g.version), 4)
	if meta.Language != "" {
		g.writeElement(&buf, "language", meta.Language, 4)
	}

	for _, item := range snapshot.Items {
		if excluded != nil && excluded.Has(item.ID) {
			continue
		}
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>\n")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item Item) {
	buf.WriteString("    <item>\n")

	g.writeElement(buf, "g:id", item.ID, 6)
	g.writeElement(buf, "title", item.Title, 6)
	g.writeElement(buf, "description", item.Description, 6)
	g.writeElement(buf, "link", item.Link, 6)
	g.writeElement(buf, "g:image_link", item.ImageLink, 6)
	g.writeElement(buf, "g:price", item.Price, 6)
	g.writeElement(buf, "g:availability", item.Availability, 6)
	g.writeElement(buf, "g:condition", item.Condition, 6)
	g.writeElement(buf, "g:brand", item.Brand, 6)
	g.writeElement(buf, "g:gtin", item.GTIN, 6)
	g.writeElement(buf, "g:mpn", item.MPN, 6)
	g.writeElement(buf, "g:item_group_id", item.ItemGroupID, 6)
	g.writeElement(buf, "g:product_type", item.ProductType, 6)
	g.writeElement(buf, "g:google_product_category", item.GoogleProductCategory, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

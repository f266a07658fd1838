package feed

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run normalizes every <item> of the document. Any well-formedness problem
// fails the whole document with a *ParseError.
func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	if !LooksLikeXML(data) {
		return nil, nil, &ParseError{Err: errors.New("document is not XML")}
	}

	root, err := buildTree(data)
	if err != nil {
		return nil, nil, &ParseError{Err: err}
	}

	nodes := root.collect("item")
	if len(nodes) == 0 {
		nodes = root.collect("entry")
	}

	items := make([]Item, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, itemFromNode(n))
	}

	return p.metadata(data), items, nil
}

func (p *Parser) metadata(data []byte) *Metadata {
	metadata := &Metadata{}

	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Debug("Feed metadata unavailable", "error", err)
		return metadata
	}

	metadata.Title = parsed.Title
	metadata.Link = parsed.Link
	metadata.Description = parsed.Description
	metadata.Language = parsed.Language
	metadata.FeedType = parsed.FeedType

	return metadata
}

// LooksLikeXML is the plausibility check applied to fetched and uploaded
// documents before parsing.
func LooksLikeXML(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<"))
}

func buildTree(data []byte) (*node, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = true
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	root := &node{}
	stack := []*node{root}
	scopes := []map[string]string{{}}

	for {
		tok, err := decoder.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 1 && len(root.children) > 0 {
				return nil, fmt.Errorf("second root element <%s>", qualifiedName(t.Name))
			}
			scope := make(map[string]string, len(scopes[len(scopes)-1]))
			for k, v := range scopes[len(scopes)-1] {
				scope[k] = v
			}
			for _, attr := range t.Attr {
				switch {
				case attr.Name.Space == "xmlns":
					scope[attr.Name.Local] = attr.Value
				case attr.Name.Space == "" && attr.Name.Local == "xmlns":
					scope[""] = attr.Value
				}
			}

			el := &node{
				prefix: t.Name.Space,
				local:  t.Name.Local,
				space:  scope[t.Name.Space],
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, el)
			stack = append(stack, el)
			scopes = append(scopes, scope)

		case xml.EndElement:
			if len(stack) == 1 {
				return nil, fmt.Errorf("unexpected end element </%s>", qualifiedName(t.Name))
			}
			open := stack[len(stack)-1]
			if open.prefix != t.Name.Space || open.local != t.Name.Local {
				return nil, fmt.Errorf("element <%s> closed by </%s>",
					qualifiedName(xml.Name{Space: open.prefix, Local: open.local}), qualifiedName(t.Name))
			}
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]

		case xml.CharData:
			if len(stack) == 1 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, errors.New("character data outside the root element")
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, &node{data: bytes.Clone(t)})
		}
	}

	if len(stack) != 1 {
		open := stack[len(stack)-1]
		return nil, fmt.Errorf("unclosed element <%s>", qualifiedName(xml.Name{Space: open.prefix, Local: open.local}))
	}
	if len(root.children) == 0 {
		return nil, errors.New("document has no root element")
	}

	return root, nil
}

func qualifiedName(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return strings.Join([]string{name.Space, name.Local}, ":")
}

package feed

import (
	"slices"

	"github.com/samber/lo"
)

// Snapshot is the ordered item set of exactly one document parse.
type Snapshot struct {
	Metadata Metadata
	Items    []Item
	Skipped  int // items dropped for having no id

	index map[string]int
}

// NewSnapshot deduplicates by id: the slot of the first occurrence is kept and
// the values of the last occurrence win.
func NewSnapshot(metadata *Metadata, items []Item) *Snapshot {
	s := &Snapshot{
		Items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	if metadata != nil {
		s.Metadata = *metadata
	}

	for _, item := range items {
		if item.ID == "" {
			s.Skipped++
			continue
		}
		if pos, ok := s.index[item.ID]; ok {
			s.Items[pos] = item
			continue
		}
		s.index[item.ID] = len(s.Items)
		s.Items = append(s.Items, item)
	}

	return s
}

func (s *Snapshot) Len() int {
	return len(s.Items)
}

func (s *Snapshot) Get(id string) (Item, bool) {
	pos, ok := s.index[id]
	if !ok {
		return Item{}, false
	}
	return s.Items[pos], true
}

func (s *Snapshot) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Snapshot) IDs() []string {
	return lo.Map(s.Items, func(item Item, _ int) string { return item.ID })
}

// Categories returns the sorted distinct non-empty product types.
func (s *Snapshot) Categories() []string {
	return distinctSorted(lo.Map(s.Items, func(item Item, _ int) string { return item.ProductType }))
}

func (s *Snapshot) GoogleCategories() []string {
	return distinctSorted(lo.Map(s.Items, func(item Item, _ int) string { return item.GoogleProductCategory }))
}

func distinctSorted(values []string) []string {
	out := lo.Uniq(lo.Filter(values, func(v string, _ int) bool { return v != "" }))
	slices.Sort(out)
	return out
}

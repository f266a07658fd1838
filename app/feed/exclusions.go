package feed

import "slices"

// ExclusionSet is an insertion-ordered set of item ids.
type ExclusionSet struct {
	ids   []string
	index map[string]struct{}
}

func NewExclusionSet(ids ...string) *ExclusionSet {
	s := &ExclusionSet{index: make(map[string]struct{}, len(ids))}
	s.Add(ids...)
	return s
}

// Add inserts ids not yet present and returns how many were new.
func (s *ExclusionSet) Add(ids ...string) int {
	added := 0
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := s.index[id]; ok {
			continue
		}
		s.index[id] = struct{}{}
		s.ids = append(s.ids, id)
		added++
	}
	return added
}

// Remove deletes ids and returns how many were present.
func (s *ExclusionSet) Remove(ids ...string) int {
	removed := 0
	for _, id := range ids {
		if _, ok := s.index[id]; !ok {
			continue
		}
		delete(s.index, id)
		removed++
	}
	if removed > 0 {
		s.ids = slices.DeleteFunc(s.ids, func(id string) bool {
			_, ok := s.index[id]
			return !ok
		})
	}
	return removed
}

func (s *ExclusionSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *ExclusionSet) Len() int {
	return len(s.ids)
}

func (s *ExclusionSet) IDs() []string {
	return slices.Clone(s.ids)
}

func (s *ExclusionSet) Clear() {
	s.ids = nil
	s.index = make(map[string]struct{})
}

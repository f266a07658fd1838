package feed

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"
)

var ErrNoFeedLoaded = NewValidationError("feed", "no feed loaded")

// ThresholdSource picks analysis thresholds for a feed URL.
type ThresholdSource func(feedURL string) Thresholds

type LoadResult struct {
	FeedURL    string        `json:"feedUrl"`
	Metadata   Metadata      `json:"metadata"`
	ItemCount  int           `json:"itemCount"`
	Skipped    int           `json:"skipped"`
	Categories []string      `json:"categories"`
	Missing    []ItemSummary `json:"missing"`
}

type ExcludeResult struct {
	Scope ExclusionScope `json:"scope"`
	Added []string       `json:"added"`
}

type BulkResult struct {
	Changed int      `json:"changed"`
	Unknown []string `json:"unknown"`
}

// SaveRequest is what a session hands to exclusion persistence.
type SaveRequest struct {
	FeedURL       string
	ExcludedIDs   []string
	ExcludedItems []ItemSummary
	AllFeedIDs    []string
	SavedBy       string
}

type ApplyResult struct {
	Loaded  int           `json:"loaded"`
	Missing []ItemSummary `json:"missing"`
}

type Stats struct {
	FeedURL    string    `json:"feedUrl"`
	Loaded     bool      `json:"loaded"`
	Total      int       `json:"total"`
	Excluded   int       `json:"excluded"`
	Included   int       `json:"included"`
	Missing    int       `json:"missing"`
	Skipped    int       `json:"skipped"`
	Categories int       `json:"categories"`
	Seen       int       `json:"seen"`
	LoadedAt   time.Time `json:"loadedAt,omitzero"`
}

// Session is the state of one operator's workspace: the current snapshot,
// the exclusion set and what was learnt from the last loaded save. All
// methods are safe for concurrent use; each one is all-or-nothing.
type Session struct {
	ID string

	mu         sync.Mutex
	feedURL    string
	snapshot   *Snapshot
	categories []string
	excluded   *ExclusionSet
	seen       map[string]struct{}
	summaries  map[string]ItemSummary
	loadedAt   time.Time
	lastUsed   time.Time

	parser     *Parser
	filterer   *Filterer
	exporter   *Exporter
	generator  *Generator
	thresholds ThresholdSource
}

func NewSession(id string, parser *Parser, generator *Generator, thresholds ThresholdSource) *Session {
	if generator == nil {
		generator = NewGenerator("", "")
	}
	if thresholds == nil {
		thresholds = func(string) Thresholds { return DefaultThresholds() }
	}
	return &Session{
		ID:         id,
		excluded:   NewExclusionSet(),
		seen:       make(map[string]struct{}),
		summaries:  make(map[string]ItemSummary),
		lastUsed:   time.Now(),
		parser:     parser,
		filterer:   NewFilterer(),
		exporter:   NewExporter(),
		generator:  generator,
		thresholds: thresholds,
	}
}

// LoadDocument parses a document and replaces the snapshot and its
// categories together. On a parse error nothing changes. The exclusion set
// is kept; ids absent from the new snapshot are reported as missing.
func (s *Session) LoadDocument(feedURL string, data []byte) (LoadResult, error) {
	metadata, items, err := s.parser.Run(data)
	if err != nil {
		return LoadResult{}, err
	}
	snapshot := NewSnapshot(metadata, items)
	categories := snapshot.Categories()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.feedURL = feedURL
	s.snapshot = snapshot
	s.categories = categories
	s.loadedAt = time.Now()
	for _, id := range snapshot.IDs() {
		s.seen[id] = struct{}{}
	}

	return LoadResult{
		FeedURL:    feedURL,
		Metadata:   snapshot.Metadata,
		ItemCount:  snapshot.Len(),
		Skipped:    snapshot.Skipped,
		Categories: categories,
		Missing:    s.missingLocked(),
	}, nil
}

func (s *Session) FeedURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedURL
}

func (s *Session) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories
}

// ListedItem is an item of a filtered listing with its exclusion state at
// the time of filtering.
type ListedItem struct {
	Item
	Excluded bool `json:"excluded"`
}

// Listing is one filtered view of the snapshot. Items, flags and categories
// are read under the same lock.
type Listing struct {
	Items      []ListedItem
	Categories []string
}

func (s *Session) Items(opts FilterOptions) (Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.snapshot == nil {
		return Listing{}, ErrNoFeedLoaded
	}

	items, err := s.filterer.Run(s.snapshot, s.excluded, opts)
	if err != nil {
		return Listing{}, err
	}

	listed := make([]ListedItem, len(items))
	for i, item := range items {
		listed[i] = ListedItem{Item: item, Excluded: s.excluded.Has(item.ID)}
	}
	return Listing{Items: listed, Categories: s.categories}, nil
}

func (s *Session) IsExcluded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.excluded.Has(id)
}

func (s *Session) Variants(id string) (Variants, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	item, err := s.itemLocked(id)
	if err != nil {
		return Variants{}, err
	}
	return FindVariants(s.snapshot, item), nil
}

// Exclude excludes an item. When the item has variants the decider picks the
// scope; otherwise only the item itself is excluded.
func (s *Session) Exclude(id string, decide Decider) (ExcludeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	item, err := s.itemLocked(id)
	if err != nil {
		return ExcludeResult{}, err
	}

	scope := ScopeSingle
	if variants := FindVariants(s.snapshot, item); variants.Any() {
		if decide == nil {
			decide = AskScope
		}
		scope, err = decide(item, variants)
		if err != nil {
			return ExcludeResult{}, err
		}
	}

	return s.excludeLocked(item, scope)
}

// ExcludeScope excludes exactly the ids covered by scope.
func (s *Session) ExcludeScope(id string, scope ExclusionScope) (ExcludeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	item, err := s.itemLocked(id)
	if err != nil {
		return ExcludeResult{}, err
	}
	return s.excludeLocked(item, scope)
}

func (s *Session) excludeLocked(item Item, scope ExclusionScope) (ExcludeResult, error) {
	ids, err := ResolveScope(s.snapshot, item, scope)
	if err != nil {
		return ExcludeResult{}, err
	}

	added := lo.Filter(ids, func(id string, _ int) bool { return !s.excluded.Has(id) })
	s.excluded.Add(added...)

	return ExcludeResult{Scope: scope, Added: nonNil(added)}, nil
}

// Include removes an id from the exclusion set. Ids missing from the
// snapshot can be included too.
func (s *Session) Include(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if id == "" {
		return false, NewValidationError("id", "item id is required")
	}
	return s.excluded.Remove(id) > 0, nil
}

// BulkExclude excludes every given id present in the snapshot.
func (s *Session) BulkExclude(ids []string) (BulkResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.snapshot == nil {
		return BulkResult{}, ErrNoFeedLoaded
	}

	known, unknown := partition(lo.Uniq(ids), s.snapshot.Has)
	return BulkResult{Changed: s.excluded.Add(known...), Unknown: nonNil(unknown)}, nil
}

func (s *Session) BulkInclude(ids []string) BulkResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return BulkResult{Changed: s.excluded.Remove(ids...), Unknown: []string{}}
}

// Clear empties the exclusion set and forgets stored summaries.
func (s *Session) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	cleared := s.excluded.Len()
	s.excluded.Clear()
	s.summaries = make(map[string]ItemSummary)
	return cleared
}

// Import adds the ids of an exclusion file that match the snapshot. Ids that
// do not match are reported, not treated as errors.
func (s *Session) Import(filename string, data []byte) (ImportResult, error) {
	ids, err := ParseExclusionFile(filename, data)
	if err != nil {
		return ImportResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.snapshot == nil {
		return ImportResult{}, ErrNoFeedLoaded
	}

	ids = lo.Uniq(ids)
	matched, unmatched := partition(ids, s.snapshot.Has)
	s.excluded.Add(matched...)

	return ImportResult{
		Imported:  len(ids),
		Matched:   len(matched),
		Unmatched: nonNil(unmatched),
	}, nil
}

// SaveRequest captures the exclusion set with lightweight item summaries so
// that items which later leave the feed can still be reported.
func (s *Session) SaveRequest(savedBy string) (SaveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.snapshot == nil || s.feedURL == "" {
		return SaveRequest{}, ErrNoFeedLoaded
	}

	ids := s.excluded.IDs()
	summaries := lo.FilterMap(ids, func(id string, _ int) (ItemSummary, bool) {
		if item, ok := s.snapshot.Get(id); ok {
			return item.Summary(), true
		}
		summary, ok := s.summaries[id]
		return summary, ok
	})

	return SaveRequest{
		FeedURL:       s.feedURL,
		ExcludedIDs:   ids,
		ExcludedItems: summaries,
		AllFeedIDs:    s.snapshot.IDs(),
		SavedBy:       savedBy,
	}, nil
}

// ApplySave replaces the exclusion set with a stored one and reports the
// stored ids absent from the current snapshot.
func (s *Session) ApplySave(ids []string, items []ItemSummary) ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	s.excluded = NewExclusionSet(ids...)
	s.summaries = lo.SliceToMap(items, func(item ItemSummary) (string, ItemSummary) { return item.ID, item })
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}

	return ApplyResult{Loaded: s.excluded.Len(), Missing: s.missingLocked()}
}

func (s *Session) Missing() []ItemSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missingLocked()
}

func (s *Session) missingLocked() []ItemSummary {
	missing := make([]ItemSummary, 0)
	for _, id := range s.excluded.IDs() {
		if s.snapshot != nil && s.snapshot.Has(id) {
			continue
		}
		summary, ok := s.summaries[id]
		if !ok {
			summary = ItemSummary{ID: id}
		}
		missing = append(missing, summary)
	}
	return missing
}

func (s *Session) Analyze() (Analysis, []Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.snapshot == nil {
		return Analysis{}, nil, ErrNoFeedLoaded
	}

	thresholds := s.thresholds(s.feedURL)
	analysis := NewAnalyzer(thresholds).Run(s.snapshot, s.excluded)
	rules := NewRuleGenerator(thresholds).Run(analysis)
	return analysis, nonNil(rules), nil
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		FeedURL:  s.feedURL,
		Loaded:   s.snapshot != nil,
		Excluded: s.excluded.Len(),
		Missing:  len(s.missingLocked()),
		Seen:     len(s.seen),
		LoadedAt: s.loadedAt,
	}
	if s.snapshot != nil {
		stats.Total = s.snapshot.Len()
		stats.Skipped = s.snapshot.Skipped
		stats.Categories = len(s.categories)
		stats.Included = stats.Total - (stats.Excluded - stats.Missing)
	}
	return stats
}

// ExcludedItems returns the excluded items present in the snapshot, in
// exclusion order.
func (s *Session) ExcludedItems() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.excludedItemsLocked()
}

func (s *Session) excludedItemsLocked() []Item {
	if s.snapshot == nil {
		return []Item{}
	}
	return lo.FilterMap(s.excluded.IDs(), func(id string, _ int) (Item, bool) {
		return s.snapshot.Get(id)
	})
}

// ExportData collects everything the export sinks need in one consistent view.
func (s *Session) ExportData(now time.Time) (ExportData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.snapshot == nil {
		return ExportData{}, ErrNoFeedLoaded
	}

	thresholds := s.thresholds(s.feedURL)
	analysis := NewAnalyzer(thresholds).Run(s.snapshot, s.excluded)

	return ExportData{
		FeedURL:     s.feedURL,
		ExcludedIDs: s.excluded.IDs(),
		Items:       s.excludedItemsLocked(),
		Missing:     s.missingLocked(),
		Analysis:    analysis,
		Rules:       NewRuleGenerator(thresholds).Run(analysis),
		GeneratedAt: now,
	}, nil
}

// Export renders one export format into a byte slice.
func (s *Session) Export(format ExportFormat, now time.Time) ([]byte, error) {
	if format == FormatXML {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.snapshot == nil {
			return nil, ErrNoFeedLoaded
		}
		doc, err := s.generator.Run(s.snapshot, s.excluded, s.feedURL)
		if err != nil {
			return nil, err
		}
		return []byte(doc), nil
	}

	data, err := s.ExportData(now)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.exporter.Run(&buf, format, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) itemLocked(id string) (Item, error) {
	if s.snapshot == nil {
		return Item{}, ErrNoFeedLoaded
	}
	if id == "" {
		return Item{}, NewValidationError("id", "item id is required")
	}
	item, ok := s.snapshot.Get(id)
	if !ok {
		return Item{}, NewNotFoundError("item", id)
	}
	return item, nil
}

func partition(ids []string, keep func(string) bool) (kept, rejected []string) {
	for _, id := range ids {
		if keep(id) {
			kept = append(kept, id)
		} else {
			rejected = append(rejected, id)
		}
	}
	return kept, rejected
}

func (s *Session) touch() {
	s.lastUsed = time.Now()
}

// IsScopeRequired reports whether err asks the caller to choose a scope.
func IsScopeRequired(err error) (*ErrScopeRequired, bool) {
	var scopeErr *ErrScopeRequired
	if errors.As(err, &scopeErr) {
		return scopeErr, true
	}
	return nil, false
}

package feed

import (
	"fmt"
	"regexp"
	"strings"
)

type ExclusionScope string

const (
	ScopeSingle ExclusionScope = "single"
	ScopeGroup  ExclusionScope = "group"
	ScopeTitle  ExclusionScope = "title"
)

func ParseScope(value string) (ExclusionScope, error) {
	switch scope := ExclusionScope(strings.ToLower(strings.TrimSpace(value))); scope {
	case ScopeSingle, ScopeGroup, ScopeTitle:
		return scope, nil
	default:
		return "", NewValidationError("scope", fmt.Sprintf("unknown exclusion scope '%s'", value))
	}
}

// Each pattern is tried once, in order, against the tail of the title.
var variantSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*-\s*(Small|Medium|Large|XL|XXL|S|M|L)\s*$`),
	regexp.MustCompile(`(?i)\s*-\s*(Red|Blue|Green|Black|White|Yellow|Pink|Purple|Orange|Brown|Grey|Gray)\s*$`),
	regexp.MustCompile(`(?i)\s*-\s*\d+(\.\d+)?\s*(cm|mm|m|inch|in|ft)\s*$`),
	regexp.MustCompile(`(?i)\s*-\s*\d+\s*x\s*\d+\s*(cm|mm|m|inch|in|ft)?\s*$`),
	regexp.MustCompile(`(?i)\s*\(\s*(Small|Medium|Large|XL|XXL|S|M|L)\s*\)\s*$`),
	regexp.MustCompile(`(?i)\s*\(\s*(Red|Blue|Green|Black|White|Yellow|Pink|Purple|Orange|Brown|Grey|Gray)\s*\)\s*$`),
}

// ExtractBaseTitle strips variant-indicating suffixes (size, color,
// dimensions) from a product title.
func ExtractBaseTitle(title string) string {
	base := title
	for _, re := range variantSuffixes {
		base = re.ReplaceAllString(base, "")
	}
	return strings.TrimSpace(base)
}

// Variants are the other items of a snapshot related to one target item.
type Variants struct {
	Group     []Item `json:"groupVariants"`
	Title     []Item `json:"titleVariants"`
	BaseTitle string `json:"baseTitle"`
}

func (v Variants) Any() bool {
	return len(v.Group) > 0 || len(v.Title) > 0
}

// Choices lists the scopes an operator may pick from. single is always first.
func (v Variants) Choices() []ExclusionScope {
	choices := []ExclusionScope{ScopeSingle}
	if len(v.Group) > 0 {
		choices = append(choices, ScopeGroup)
	}
	if len(v.Title) > 0 {
		choices = append(choices, ScopeTitle)
	}
	return choices
}

// FindVariants never lists the target as its own variant.
func FindVariants(snapshot *Snapshot, target Item) Variants {
	variants := Variants{BaseTitle: ExtractBaseTitle(target.Title)}

	for _, item := range snapshot.Items {
		if item.ID == target.ID {
			continue
		}
		if target.ItemGroupID != "" && item.ItemGroupID == target.ItemGroupID {
			variants.Group = append(variants.Group, item)
		}
		if variants.BaseTitle != "" && ExtractBaseTitle(item.Title) == variants.BaseTitle {
			variants.Title = append(variants.Title, item)
		}
	}

	return variants
}

// ResolveScope returns exactly the ids covered by the chosen scope, target first.
func ResolveScope(snapshot *Snapshot, target Item, scope ExclusionScope) ([]string, error) {
	variants := FindVariants(snapshot, target)

	var related []Item
	switch scope {
	case ScopeSingle:
	case ScopeGroup:
		if target.ItemGroupID == "" {
			return nil, NewValidationError("scope", fmt.Sprintf("item '%s' has no item group id", target.ID))
		}
		related = variants.Group
	case ScopeTitle:
		if variants.BaseTitle == "" {
			return nil, NewValidationError("scope", fmt.Sprintf("item '%s' has no base title", target.ID))
		}
		related = variants.Title
	default:
		return nil, NewValidationError("scope", fmt.Sprintf("unknown exclusion scope '%s'", scope))
	}

	ids := make([]string, 0, len(related)+1)
	ids = append(ids, target.ID)
	for _, item := range related {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// Decider picks an exclusion scope for an item that has variants. It is only
// consulted when at least one variant exists.
type Decider func(item Item, variants Variants) (ExclusionScope, error)

// FixedScope answers every decision with the same scope.
func FixedScope(scope ExclusionScope) Decider {
	return func(Item, Variants) (ExclusionScope, error) {
		return scope, nil
	}
}

// ErrScopeRequired is returned by a Decider that cannot decide on its own; the
// caller is expected to present the choices.
type ErrScopeRequired struct {
	ItemID   string
	Variants Variants
}

func (e *ErrScopeRequired) Error() string {
	return fmt.Sprintf("item '%s' has variants, exclusion scope required", e.ItemID)
}

func AskScope(item Item, variants Variants) (ExclusionScope, error) {
	return "", &ErrScopeRequired{ItemID: item.ID, Variants: variants}
}

package library

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/normalize"
)

// CategoryAll is the catch-all category value. An empty category means the same.
const CategoryAll = "all"

// Completeness filters on whether an optional field is populated.
type Completeness int

const (
	// CompletenessAny disables the check.
	CompletenessAny Completeness = iota
	// CompletenessHas passes when at least one item has the field.
	CompletenessHas
	// CompletenessMissing passes when no item has the field.
	CompletenessMissing
)

// String returns the wire name.
func (c Completeness) String() string {
	switch c {
	case CompletenessAny:
		return "any"
	case CompletenessHas:
		return "has"
	case CompletenessMissing:
		return "missing"
	default:
		return fmt.Sprintf("Completeness(%d)", int(c))
	}
}

// ParseCompleteness parses "any", "has" or "missing". Empty input means any.
func ParseCompleteness(s string) (Completeness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return CompletenessAny, nil
	case "has":
		return CompletenessHas, nil
	case "missing":
		return CompletenessMissing, nil
	default:
		return CompletenessAny, fmt.Errorf("unknown completeness %q", s)
	}
}

// IDSet is an immutable set of item IDs used to scope a filter.
type IDSet struct {
	ids map[string]struct{}
}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) *IDSet {
	s := &IDSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s *IDSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of IDs in the set.
func (s *IDSet) Len() int {
	return len(s.ids)
}

// Filter is an immutable snapshot of the user's filter choices.
// Zero values disable the corresponding check.
type Filter struct {
	Search           string
	Category         string
	CollectionStatus domain.CollectionStatus
	Ownership        domain.OwnershipStatus
	Progress         domain.ProgressStatus
	IncludeTags      []string
	ExcludeTags      []string
	Cover            Completeness
	ExternalID       Completeness

	// Scope restricts matches to the given items. Nil means no scope;
	// an empty set matches nothing.
	Scope *IDSet
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Search) == "" &&
		isCatchAll(f.Category) &&
		f.CollectionStatus == "" &&
		f.Ownership == "" &&
		f.Progress == "" &&
		len(domain.NormalizeTags(f.IncludeTags)) == 0 &&
		len(domain.NormalizeTags(f.ExcludeTags)) == 0 &&
		f.Cover == CompletenessAny &&
		f.ExternalID == CompletenessAny &&
		f.Scope == nil
}

// Check identifies one predicate of the filter.
type Check int

const (
	CheckSearch Check = iota
	CheckCategory
	CheckCollectionStatus
	CheckOwnership
	CheckProgress
	CheckIncludeTags
	CheckExcludeTags
	CheckCover
	CheckExternalID
	CheckScope

	checkCount
)

// String returns the check name.
func (c Check) String() string {
	switch c {
	case CheckSearch:
		return "search"
	case CheckCategory:
		return "category"
	case CheckCollectionStatus:
		return "collection_status"
	case CheckOwnership:
		return "ownership"
	case CheckProgress:
		return "progress"
	case CheckIncludeTags:
		return "include_tags"
	case CheckExcludeTags:
		return "exclude_tags"
	case CheckCover:
		return "cover"
	case CheckExternalID:
		return "external_id"
	case CheckScope:
		return "scope"
	default:
		return fmt.Sprintf("Check(%d)", int(c))
	}
}

// AllChecks returns every check in declaration order.
func AllChecks() []Check {
	out := make([]Check, 0, checkCount)
	for c := Check(0); c < checkCount; c++ {
		out = append(out, c)
	}
	return out
}

// DefaultOrder returns the checks cheapest first: collection fields, then
// scans over items, then text search.
func DefaultOrder() []Check {
	return []Check{
		CheckCategory,
		CheckCollectionStatus,
		CheckIncludeTags,
		CheckExcludeTags,
		CheckScope,
		CheckOwnership,
		CheckProgress,
		CheckCover,
		CheckExternalID,
		CheckSearch,
	}
}

// MatchCollection reports whether the collection, with its items, passes f.
func MatchCollection(c domain.Collection, items []domain.Item, f Filter) bool {
	return MatchCollectionInOrder(c, items, f, DefaultOrder())
}

// MatchCollectionInOrder is MatchCollection evaluating checks in the given
// order. The result does not depend on the order.
func MatchCollectionInOrder(c domain.Collection, items []domain.Item, f Filter, order []Check) bool {
	ptrs := make([]*domain.Item, len(items))
	for i := range items {
		ptrs[i] = &items[i]
	}
	return compileFilter(f).matchCollection(&c, ptrs, order)
}

// MatchItem reports whether item passes f. Owner is the collection the item
// is filed under, or nil for an unassigned item.
func MatchItem(item domain.Item, owner *domain.Collection, f Filter) bool {
	return MatchItemInOrder(item, owner, f, DefaultOrder())
}

// MatchItemInOrder is MatchItem evaluating checks in the given order.
func MatchItemInOrder(item domain.Item, owner *domain.Collection, f Filter, order []Check) bool {
	return compileFilter(f).matchItem(&item, owner, order)
}

// matcher is a filter with its text inputs folded once per query.
type matcher struct {
	f        Filter
	search   string
	isbn     string
	number   *float64
	category string
	include  []string
	exclude  []string
}

func compileFilter(f Filter) *matcher {
	m := &matcher{f: f}
	if q := strings.TrimSpace(f.Search); q != "" {
		m.search = normalize.Fold(q)
		m.isbn = normalize.ISBN(q)
		if n, err := strconv.ParseFloat(q, 64); err == nil {
			m.number = &n
		}
	}
	if !isCatchAll(f.Category) {
		m.category = normalize.Category(f.Category)
	}
	for _, t := range domain.NormalizeTags(f.IncludeTags) {
		m.include = append(m.include, normalize.Fold(t))
	}
	for _, t := range domain.NormalizeTags(f.ExcludeTags) {
		m.exclude = append(m.exclude, normalize.Fold(t))
	}
	return m
}

func isCatchAll(category string) bool {
	category = strings.TrimSpace(category)
	return category == "" || strings.EqualFold(category, CategoryAll)
}

func (m *matcher) matchCollection(c *domain.Collection, items []*domain.Item, order []Check) bool {
	for _, check := range order {
		if !m.collectionCheck(check, c, items) {
			return false
		}
	}
	return true
}

func (m *matcher) matchItem(item *domain.Item, owner *domain.Collection, order []Check) bool {
	for _, check := range order {
		if !m.itemCheck(check, item, owner) {
			return false
		}
	}
	return true
}

func (m *matcher) collectionCheck(check Check, c *domain.Collection, items []*domain.Item) bool {
	switch check {
	case CheckSearch:
		return m.searchCollection(c)
	case CheckCategory:
		return m.category == "" || normalize.Category(c.Category) == m.category
	case CheckCollectionStatus:
		return m.f.CollectionStatus == "" || c.Status == m.f.CollectionStatus
	case CheckOwnership:
		return m.f.Ownership == "" || anyItem(items, func(it *domain.Item) bool { return it.Ownership == m.f.Ownership })
	case CheckProgress:
		return m.f.Progress == "" || anyItem(items, func(it *domain.Item) bool { return it.Progress == m.f.Progress })
	case CheckIncludeTags:
		return m.includesTags(c.Tags)
	case CheckExcludeTags:
		return m.excludesTags(c.Tags)
	case CheckCover:
		return completenessOK(m.f.Cover, anyItem(items, (*domain.Item).HasCover))
	case CheckExternalID:
		return completenessOK(m.f.ExternalID, anyItem(items, (*domain.Item).HasExternalID))
	case CheckScope:
		return m.f.Scope == nil || anyItem(items, func(it *domain.Item) bool { return m.f.Scope.Has(it.ID) })
	default:
		panic(fmt.Sprintf("library: unhandled filter check %v", check))
	}
}

func (m *matcher) itemCheck(check Check, item *domain.Item, owner *domain.Collection) bool {
	switch check {
	case CheckSearch:
		return m.searchItem(item, owner)
	case CheckCategory:
		if m.category == "" {
			return true
		}
		return owner != nil && normalize.Category(owner.Category) == m.category
	case CheckCollectionStatus:
		if m.f.CollectionStatus == "" {
			return true
		}
		return owner != nil && owner.Status == m.f.CollectionStatus
	case CheckOwnership:
		return m.f.Ownership == "" || item.Ownership == m.f.Ownership
	case CheckProgress:
		return m.f.Progress == "" || item.Progress == m.f.Progress
	case CheckIncludeTags:
		if len(m.include) == 0 {
			return true
		}
		return owner != nil && m.includesTags(owner.Tags)
	case CheckExcludeTags:
		return owner == nil || m.excludesTags(owner.Tags)
	case CheckCover:
		return completenessOK(m.f.Cover, item.HasCover())
	case CheckExternalID:
		return completenessOK(m.f.ExternalID, item.HasExternalID())
	case CheckScope:
		return m.f.Scope == nil || m.f.Scope.Has(item.ID)
	default:
		panic(fmt.Sprintf("library: unhandled filter check %v", check))
	}
}

func (m *matcher) searchCollection(c *domain.Collection) bool {
	if m.search == "" {
		return true
	}
	return normalize.Contains(c.Title, m.search) ||
		normalize.Contains(c.Creator, m.search) ||
		normalize.Contains(c.Description, m.search)
}

func (m *matcher) searchItem(item *domain.Item, owner *domain.Collection) bool {
	if m.search == "" {
		return true
	}
	if owner != nil && m.searchCollection(owner) {
		return true
	}
	if normalize.Contains(item.Title, m.search) {
		return true
	}
	if m.isbn != "" && item.ISBN != "" && strings.Contains(normalize.ISBN(item.ISBN), m.isbn) {
		return true
	}
	// Volume numbers match exactly: "1" finds volume 1, not 10 or 1.5.
	return m.number != nil && item.Number == *m.number
}

// includesTags is conjunctive: every included tag must be carried.
func (m *matcher) includesTags(tags []string) bool {
	if len(m.include) == 0 {
		return true
	}
	carried := foldedSet(tags)
	for _, t := range m.include {
		if _, ok := carried[t]; !ok {
			return false
		}
	}
	return true
}

// excludesTags fails if any excluded tag is carried.
func (m *matcher) excludesTags(tags []string) bool {
	if len(m.exclude) == 0 {
		return true
	}
	carried := foldedSet(tags)
	for _, t := range m.exclude {
		if _, ok := carried[t]; ok {
			return false
		}
	}
	return true
}

func foldedSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		set[normalize.Fold(strings.TrimSpace(t))] = struct{}{}
	}
	return set
}

func anyItem(items []*domain.Item, pred func(*domain.Item) bool) bool {
	for _, it := range items {
		if pred(it) {
			return true
		}
	}
	return false
}

func completenessOK(want Completeness, has bool) bool {
	switch want {
	case CompletenessHas:
		return has
	case CompletenessMissing:
		return !has
	default:
		return true
	}
}

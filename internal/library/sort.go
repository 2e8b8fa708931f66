package library

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

// SortField is a field collections can be ordered by.
type SortField int

const (
	SortTitle SortField = iota
	SortCreator
	SortCreatedAt
	SortUpdatedAt
	SortItemCount
	SortAverageRating
	SortTotalPrice
	SortFirstStatusChange
	SortLastStatusChange

	sortFieldCount
)

// SortFields returns every sort field in declaration order.
func SortFields() []SortField {
	out := make([]SortField, 0, sortFieldCount)
	for f := SortField(0); f < sortFieldCount; f++ {
		out = append(out, f)
	}
	return out
}

// String returns the wire name of the field.
func (f SortField) String() string {
	switch f {
	case SortTitle:
		return "title"
	case SortCreator:
		return "creator"
	case SortCreatedAt:
		return "created_at"
	case SortUpdatedAt:
		return "updated_at"
	case SortItemCount:
		return "item_count"
	case SortAverageRating:
		return "average_rating"
	case SortTotalPrice:
		return "total_price"
	case SortFirstStatusChange:
		return "first_status_change"
	case SortLastStatusChange:
		return "last_status_change"
	default:
		return fmt.Sprintf("SortField(%d)", int(f))
	}
}

// ParseSortField maps a wire name to a field. Empty input means title.
func ParseSortField(s string) (SortField, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortTitle, nil
	}
	for _, f := range SortFields() {
		if f.String() == s {
			return f, nil
		}
	}
	return SortTitle, fmt.Errorf("unknown sort field %q", s)
}

// Expensive reports whether the field is derived from all of a collection's
// items and is therefore precomputed before sorting.
func (f SortField) Expensive() bool {
	switch f {
	case SortTitle, SortCreator, SortCreatedAt, SortUpdatedAt, SortItemCount:
		return false
	case SortAverageRating, SortTotalPrice, SortFirstStatusChange, SortLastStatusChange:
		return true
	default:
		panic(fmt.Sprintf("library: unhandled sort field %v", f))
	}
}

// Direction is the sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// String returns "asc" or "desc".
func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection parses "asc"/"ascending" or "desc"/"descending". Empty input means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("unknown sort direction %q", s)
	}
}

// SortOptions tunes locale-aware comparison of text fields.
type SortOptions struct {
	// Language selects collation rules. The zero value uses the root locale.
	Language language.Tag
}

// aggregate is a precomputed per-collection value. ok is false when the
// collection has no item contributing a value.
type aggregate struct {
	value float64
	ok    bool
}

// computeAggregate derives the value of an expensive field over all of a
// collection's items. lookup resolves item IDs; unknown IDs are skipped.
func computeAggregate(field SortField, c *domain.Collection, lookup func(string) *domain.Item) aggregate {
	switch field {
	case SortAverageRating:
		var sum float64
		var n int
		for _, id := range c.ItemIDs {
			if it := lookup(id); it != nil && it.Rating != nil {
				sum += *it.Rating
				n++
			}
		}
		if n == 0 {
			return aggregate{}
		}
		return aggregate{value: sum / float64(n), ok: true}

	case SortTotalPrice:
		var sum float64
		for _, id := range c.ItemIDs {
			if it := lookup(id); it != nil && it.Price != nil {
				sum += *it.Price
			}
		}
		return aggregate{value: sum, ok: true}

	case SortFirstStatusChange, SortLastStatusChange:
		var agg aggregate
		for _, id := range c.ItemIDs {
			it := lookup(id)
			if it == nil || it.StatusChangedAt == nil {
				continue
			}
			v := float64(it.StatusChangedAt.UnixMicro())
			switch {
			case !agg.ok:
				agg = aggregate{value: v, ok: true}
			case field == SortFirstStatusChange && v < agg.value:
				agg.value = v
			case field == SortLastStatusChange && v > agg.value:
				agg.value = v
			}
		}
		return agg

	case SortTitle, SortCreator, SortCreatedAt, SortUpdatedAt, SortItemCount:
		return aggregate{}
	default:
		panic(fmt.Sprintf("library: unhandled sort field %v", field))
	}
}

// sorter orders collections by one field. Aggregates for expensive fields are
// computed once up front so each comparison is a map lookup.
type sorter struct {
	field      SortField
	dir        Direction
	collator   *collate.Collator
	aggregates map[string]aggregate
}

func newSorter(field SortField, dir Direction, opts SortOptions, collections []*domain.Collection, lookup func(string) *domain.Item) *sorter {
	s := &sorter{
		field:    field,
		dir:      dir,
		collator: collate.New(opts.Language, collate.IgnoreCase),
	}
	if field.Expensive() {
		s.aggregates = make(map[string]aggregate, len(collections))
		for _, c := range collections {
			s.aggregates[c.ID] = computeAggregate(field, c, lookup)
		}
	}
	return s
}

func (s *sorter) sort(collections []*domain.Collection) {
	slices.SortStableFunc(collections, s.compare)
}

func (s *sorter) compare(a, b *domain.Collection) int {
	if c := s.comparePrimary(a, b); c != 0 {
		return c
	}
	if c := s.collator.CompareString(a.Title, b.Title); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// comparePrimary applies the direction to the field comparison. Collections
// without an aggregate value sort last in either direction.
func (s *sorter) comparePrimary(a, b *domain.Collection) int {
	if s.field.Expensive() {
		av, bv := s.aggregates[a.ID], s.aggregates[b.ID]
		switch {
		case !av.ok && !bv.ok:
			return 0
		case !av.ok:
			return 1
		case !bv.ok:
			return -1
		}
		return s.directed(cmp.Compare(av.value, bv.value))
	}

	switch s.field {
	case SortTitle:
		return s.directed(s.collator.CompareString(a.Title, b.Title))
	case SortCreator:
		return s.directed(s.collator.CompareString(a.Creator, b.Creator))
	case SortCreatedAt:
		return s.directed(a.CreatedAt.Compare(b.CreatedAt))
	case SortUpdatedAt:
		return s.directed(a.UpdatedAt.Compare(b.UpdatedAt))
	case SortItemCount:
		return s.directed(cmp.Compare(len(a.ItemIDs), len(b.ItemIDs)))
	case SortAverageRating, SortTotalPrice, SortFirstStatusChange, SortLastStatusChange:
		return 0
	default:
		panic(fmt.Sprintf("library: unhandled sort field %v", s.field))
	}
}

func (s *sorter) directed(c int) int {
	if s.dir == Descending {
		return -c
	}
	return c
}

// Sort returns collections ordered by field and direction. items supplies the
// item records referenced by the collections; aggregates cover every item a
// collection lists. Ties break by title ascending, then by ID.
func Sort(collections []domain.Collection, items []domain.Item, field SortField, dir Direction, opts SortOptions) []domain.Collection {
	byID := make(map[string]*domain.Item, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}
	ptrs := make([]*domain.Collection, len(collections))
	for i := range collections {
		ptrs[i] = &collections[i]
	}

	newSorter(field, dir, opts, ptrs, func(id string) *domain.Item { return byID[id] }).sort(ptrs)

	out := make([]domain.Collection, len(ptrs))
	for i, c := range ptrs {
		out[i] = c.Clone()
	}
	return out
}

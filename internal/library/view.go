package library

import (
	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

// Query is one filter/sort combination a screen asks the store to derive.
type Query struct {
	Filter    Filter
	Sort      SortField
	Direction Direction
	Options   SortOptions

	// Checks overrides the filter evaluation order. Nil uses DefaultOrder.
	Checks []Check
}

// CollectionRow is a visible collection with its matching items in item-list order.
type CollectionRow struct {
	Collection domain.Collection
	Items      []domain.Item
}

// ItemRow is a visible item in item-level order. CollectionTitle is empty for
// unassigned items.
type ItemRow struct {
	Item            domain.Item
	CollectionTitle string
}

// Totals summarizes the item-level rows of a view.
type Totals struct {
	Collections int
	Items       int
	Unassigned  int
	Owned       int
	Read        int
	Price       float64
}

// View is the derived, read-only result of a Query. It is a snapshot: later
// store mutations do not change it.
type View struct {
	// Collections are the collections passing the filter, sorted.
	Collections []CollectionRow
	// Items are the items passing the item-level filter: items of collections
	// in sort order, then unassigned items.
	Items []ItemRow

	CollectionOrder []string
	ItemOrder       []string
	Totals          Totals

	unassigned map[string]struct{}
}

// Order returns the visible ID ordering for level.
func (v *View) Order(level Level) []string {
	if v == nil {
		return nil
	}
	if level == LevelItem {
		return v.ItemOrder
	}
	return v.CollectionOrder
}

// IsUnassigned reports whether id is a visible unassigned item.
func (v *View) IsUnassigned(id string) bool {
	if v == nil {
		return false
	}
	_, ok := v.unassigned[id]
	return ok
}

// View evaluates q against the current contents under a single read lock.
func (s *Store) View(q Query) *View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := compileFilter(q.Filter)
	order := q.Checks
	if order == nil {
		order = DefaultOrder()
	}
	lookup := func(id string) *domain.Item { return s.items[id] }

	type candidate struct {
		matched bool
		items   []*domain.Item
	}
	candidates := make(map[string]candidate)
	var visible []*domain.Collection

	for _, cid := range s.order {
		c := s.collections[cid]
		items := make([]*domain.Item, 0, len(c.ItemIDs))
		for _, iid := range c.ItemIDs {
			if it, ok := s.items[iid]; ok {
				items = append(items, it)
			}
		}

		matched := m.matchCollection(c, items, order)
		var hits []*domain.Item
		for _, it := range items {
			if m.matchItem(it, c, order) {
				hits = append(hits, it)
			}
		}
		if !matched && len(hits) == 0 {
			continue
		}
		candidates[cid] = candidate{matched: matched, items: hits}
		visible = append(visible, c)
	}

	newSorter(q.Sort, q.Direction, q.Options, visible, lookup).sort(visible)

	v := &View{unassigned: make(map[string]struct{})}
	for _, c := range visible {
		cand := candidates[c.ID]
		rowItems := make([]domain.Item, 0, len(cand.items))
		for _, it := range cand.items {
			rowItems = append(rowItems, it.Clone())
			v.addItem(it, c.Title)
		}
		if cand.matched {
			v.Collections = append(v.Collections, CollectionRow{Collection: c.Clone(), Items: rowItems})
			v.CollectionOrder = append(v.CollectionOrder, c.ID)
		}
	}

	for _, iid := range s.unassigned {
		it := s.items[iid]
		if !m.matchItem(it, nil, order) {
			continue
		}
		v.addItem(it, "")
		v.unassigned[iid] = struct{}{}
		v.Totals.Unassigned++
	}
	v.Totals.Collections = len(v.Collections)

	return v
}

func (v *View) addItem(it *domain.Item, collectionTitle string) {
	v.Items = append(v.Items, ItemRow{Item: it.Clone(), CollectionTitle: collectionTitle})
	v.ItemOrder = append(v.ItemOrder, it.ID)

	v.Totals.Items++
	if it.Ownership == domain.OwnershipOwned {
		v.Totals.Owned++
	}
	if it.Progress == domain.ProgressRead {
		v.Totals.Read++
	}
	if it.Price != nil {
		v.Totals.Price += *it.Price
	}
}

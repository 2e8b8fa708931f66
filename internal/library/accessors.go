package library

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

// Counts reports the number of entities held by the store.
type Counts struct {
	Collections int
	Items       int
	Unassigned  int
}

// Len returns the current entity counts.
func (s *Store) Len() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Counts{
		Collections: len(s.collections),
		Items:       len(s.items),
		Unassigned:  len(s.unassigned),
	}
}

// Collections returns copies of all collections in insertion order.
func (s *Store) Collections() []domain.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Collection, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.collections[id].Clone())
	}
	return out
}

// Collection returns a copy of the collection.
func (s *Store) Collection(id string) (domain.Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[id]
	if !ok {
		return domain.Collection{}, false
	}
	return c.Clone(), true
}

// CollectionWithItems returns a copy of the collection with its items embedded.
func (s *Store) CollectionWithItems(id string) (domain.CollectionWithItems, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[id]
	if !ok {
		return domain.CollectionWithItems{}, false
	}
	return s.materialize(c), true
}

// Item returns a copy of the item.
func (s *Store) Item(id string) (domain.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[id]
	if !ok {
		return domain.Item{}, false
	}
	return it.Clone(), true
}

// ItemsOf returns copies of a collection's items in item-list order.
// Unknown collections yield nil.
func (s *Store) ItemsOf(collectionID string) []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collectionID]
	if !ok {
		return nil
	}
	return s.materialize(c).Items
}

// Unassigned returns copies of the unassigned items in insertion order.
func (s *Store) Unassigned() []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Item, 0, len(s.unassigned))
	for _, id := range s.unassigned {
		out = append(out, s.items[id].Clone())
	}
	return out
}

// Tags returns the distinct tags across all collections, sorted for display.
// Tags that differ only in case are reported once, using the first spelling seen.
func (s *Store) Tags() []string {
	s.mu.RLock()
	var all []string
	for _, id := range s.order {
		all = append(all, s.collections[id].Tags...)
	}
	s.mu.RUnlock()

	tags := domain.NormalizeTags(all)
	collate.New(language.Und, collate.IgnoreCase).SortStrings(tags)
	return tags
}

// SuggestTags returns up to limit known tags that fuzzily match query, best
// match first. A limit of zero or less means no limit.
func (s *Store) SuggestTags(query string, limit int) []string {
	tags := s.Tags()
	if query == "" {
		return truncate(tags, limit)
	}

	ranks := fuzzy.RankFindNormalizedFold(query, tags)
	sort.Sort(ranks)

	out := make([]string, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, r.Target)
	}
	return truncate(out, limit)
}

func truncate(s []string, limit int) []string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// CheckInvariants verifies the normalized-form invariants and returns every
// violation joined into one error, or nil.
func (s *Store) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	listed := make(map[string]string, len(s.items))

	if len(s.order) != len(s.collections) {
		errs = append(errs, fmt.Errorf("collection order has %d ids, map has %d", len(s.order), len(s.collections)))
	}

	seenCollections := make(map[string]struct{}, len(s.order))
	for _, cid := range s.order {
		if _, dup := seenCollections[cid]; dup {
			errs = append(errs, fmt.Errorf("collection %s listed twice", cid))
		}
		seenCollections[cid] = struct{}{}

		c, ok := s.collections[cid]
		if !ok {
			errs = append(errs, fmt.Errorf("collection %s in order but not in map", cid))
			continue
		}
		for _, iid := range c.ItemIDs {
			it, ok := s.items[iid]
			if !ok {
				errs = append(errs, fmt.Errorf("collection %s lists missing item %s", cid, iid))
				continue
			}
			if prev, dup := listed[iid]; dup {
				errs = append(errs, fmt.Errorf("item %s listed by both %q and %q", iid, prev, cid))
			}
			listed[iid] = cid
			if it.CollectionID != cid {
				errs = append(errs, fmt.Errorf("item %s listed by %s but filed under %q", iid, cid, it.CollectionID))
			}
		}
	}

	for _, iid := range s.unassigned {
		it, ok := s.items[iid]
		if !ok {
			errs = append(errs, fmt.Errorf("unassigned list has missing item %s", iid))
			continue
		}
		if prev, dup := listed[iid]; dup {
			errs = append(errs, fmt.Errorf("item %s listed by both %q and the unassigned list", iid, prev))
		}
		listed[iid] = ""
		if it.CollectionID != "" {
			errs = append(errs, fmt.Errorf("unassigned item %s filed under %s", iid, it.CollectionID))
		}
	}

	for iid := range s.items {
		if _, ok := listed[iid]; !ok {
			errs = append(errs, fmt.Errorf("item %s is not listed anywhere", iid))
		}
	}

	for _, it := range s.pending {
		if owned, ok := s.items[it.ID]; !ok || owned.CollectionID == "" {
			errs = append(errs, fmt.Errorf("pending item %s is not owned by a collection", it.ID))
		}
	}

	return errors.Join(errs...)
}

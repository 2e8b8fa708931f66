// Package library is the in-memory catalog engine: a normalized store of
// collections and items, the filter and sort computation over it, and the
// two-level selection state shared by list screens.
package library

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
)

// Store holds collections and items in normalized form.
//
// Items live in a single map. A collection references its items by ID in
// item-list order; items without a collection are listed in the unassigned
// list. Every item appears in exactly one of those lists.
//
// All operations are total: unknown IDs are silent no-ops, so responses that
// arrive out of order can never corrupt state. Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	logger *slog.Logger
	now    func() time.Time

	collections map[string]*domain.Collection
	items       map[string]*domain.Item
	order       []string // collection IDs in insertion order
	unassigned  []string // unassigned item IDs in insertion order

	// pending holds items the unassigned listing reported while a loaded
	// collection still owned them. A collection listing that no longer
	// files one re-files it as unassigned.
	pending []domain.Item

	openID string
	open   *domain.CollectionWithItems
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug tracing of mutations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp local edits.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		logger:      logger.Discard(),
		now:         time.Now,
		collections: make(map[string]*domain.Collection),
		items:       make(map[string]*domain.Item),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReplaceCollections normalizes a full collection listing into the store.
//
// Unassigned items loaded separately survive unless the payload now files
// them under a collection. Items owned by collections missing from the
// payload are dropped along with those collections, except pending items,
// which become unassigned. Duplicate collection or item IDs in the payload
// keep their first occurrence.
func (s *Store) ReplaceCollections(list []domain.CollectionWithItems) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accepted := make([]domain.CollectionWithItems, 0, len(list))
	seenCollections := make(map[string]struct{}, len(list))
	incoming := make(map[string]struct{})
	for _, cw := range list {
		if cw.ID == "" {
			continue
		}
		if _, dup := seenCollections[cw.ID]; dup {
			s.logger.Debug("duplicate collection in payload ignored", "collection_id", cw.ID)
			continue
		}
		seenCollections[cw.ID] = struct{}{}
		accepted = append(accepted, cw)
		for _, it := range cw.Items {
			incoming[it.ID] = struct{}{}
		}
	}

	items := make(map[string]*domain.Item, len(incoming)+len(s.unassigned))
	unassigned := make([]string, 0, len(s.unassigned))
	for _, id := range s.unassigned {
		if _, claimed := incoming[id]; claimed {
			continue
		}
		items[id] = s.items[id]
		unassigned = append(unassigned, id)
	}

	collections := make(map[string]*domain.Collection, len(accepted))
	order := make([]string, 0, len(accepted))
	seenItems := make(map[string]struct{}, len(incoming))

	for _, cw := range accepted {
		c := cw.Collection.Clone()
		c.ItemIDs = make([]string, 0, len(cw.Items))
		for _, it := range cw.Items {
			if it.ID == "" {
				continue
			}
			if _, dup := seenItems[it.ID]; dup {
				continue
			}
			seenItems[it.ID] = struct{}{}
			item := it.Clone()
			item.CollectionID = c.ID
			items[item.ID] = &item
			c.ItemIDs = append(c.ItemIDs, item.ID)
		}
		collections[c.ID] = &c
		order = append(order, c.ID)
	}

	for _, it := range s.pending {
		if _, ok := items[it.ID]; ok {
			continue
		}
		item := it.Clone()
		items[item.ID] = &item
		unassigned = append(unassigned, item.ID)
	}
	s.pending = nil

	s.collections = collections
	s.items = items
	s.order = order
	s.unassigned = unassigned
	s.refreshOpen()

	s.logger.Debug("collections replaced",
		"collections", len(order),
		"items", len(items),
		"unassigned", len(unassigned))
}

// ReplaceUnassignedItems normalizes a full unassigned-item listing.
//
// Previously unassigned items missing from the list are dropped. Items in the
// list that a loaded collection already owns stay with that collection and
// are kept as pending until a collection listing settles their place.
func (s *Store) ReplaceUnassignedItems(list []domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.unassigned {
		delete(s.items, id)
	}
	s.unassigned = s.unassigned[:0]
	s.pending = nil

	kept := s.mergeUnassigned(list)
	s.logger.Debug("unassigned items replaced", "received", len(list), "kept", kept, "pending", len(s.pending))
}

// MergeCollections upserts one page of a collection listing. Collections
// absent from the page are left alone. Each listed collection's fields and
// item list are taken from the page; items it no longer lists are dropped,
// or re-filed as unassigned when pending.
func (s *Store) MergeCollections(list []domain.CollectionWithItems) {
	s.mu.Lock()
	defer s.mu.Unlock()

	affected := make([]string, 0, len(list))
	seenCollections := make(map[string]struct{}, len(list))
	seenItems := make(map[string]struct{})
	for _, cw := range list {
		if cw.ID == "" {
			continue
		}
		if _, dup := seenCollections[cw.ID]; dup {
			continue
		}
		seenCollections[cw.ID] = struct{}{}

		c, exists := s.collections[cw.ID]
		var previous []string
		if exists {
			previous = c.ItemIDs
			*c = cw.Collection.Clone()
		} else {
			fresh := cw.Collection.Clone()
			c = &fresh
			s.collections[c.ID] = c
			s.order = append(s.order, c.ID)
		}
		affected = append(affected, c.ID)

		listed := make(map[string]struct{}, len(cw.Items))
		ids := make([]string, 0, len(cw.Items))
		for _, it := range cw.Items {
			if it.ID == "" {
				continue
			}
			if _, dup := seenItems[it.ID]; dup {
				continue
			}
			seenItems[it.ID] = struct{}{}
			listed[it.ID] = struct{}{}

			if existing, ok := s.items[it.ID]; ok && existing.CollectionID != c.ID {
				affected = append(affected, existing.CollectionID)
				s.detach(existing)
			}
			item := it.Clone()
			item.CollectionID = c.ID
			s.items[item.ID] = &item
			s.dropPending(item.ID)
			ids = append(ids, item.ID)
		}

		for _, id := range previous {
			if _, ok := listed[id]; ok {
				continue
			}
			if item, ok := s.takePending(id); ok {
				item.CollectionID = ""
				s.items[id] = &item
				s.unassigned = append(s.unassigned, id)
				continue
			}
			delete(s.items, id)
		}
		c.ItemIDs = ids
	}

	s.touchOpen(affected...)
	s.logger.Debug("collections merged", "received", len(list), "collections", len(s.order), "items", len(s.items))
}

// MergeUnassignedItems upserts one page of the unassigned-item listing.
// Unassigned items absent from the page are left alone.
func (s *Store) MergeUnassignedItems(list []domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.mergeUnassigned(list)
	s.logger.Debug("unassigned items merged", "received", len(list), "kept", kept, "pending", len(s.pending))
}

// mergeUnassigned files listed items as unassigned, updating ones that are
// already unassigned in place. Items a collection owns become pending.
func (s *Store) mergeUnassigned(list []domain.Item) int {
	kept := 0
	for _, it := range list {
		if it.ID == "" {
			continue
		}
		item := it.Clone()
		item.CollectionID = ""
		if existing, ok := s.items[it.ID]; ok {
			if existing.CollectionID != "" {
				s.logger.Debug("unassigned payload item already owned, keeping owner",
					"item_id", it.ID,
					"collection_id", existing.CollectionID)
				s.dropPending(item.ID)
				s.pending = append(s.pending, item)
				continue
			}
			*existing = item
			continue
		}
		s.items[item.ID] = &item
		s.unassigned = append(s.unassigned, item.ID)
		kept++
	}
	return kept
}

func (s *Store) dropPending(id string) {
	s.pending = slices.DeleteFunc(s.pending, func(it domain.Item) bool { return it.ID == id })
}

func (s *Store) takePending(id string) (domain.Item, bool) {
	i := slices.IndexFunc(s.pending, func(it domain.Item) bool { return it.ID == id })
	if i < 0 {
		return domain.Item{}, false
	}
	item := s.pending[i]
	s.pending = slices.Delete(s.pending, i, i+1)
	return item, true
}

// AddCollection inserts a collection, or updates it if the ID is already known.
//
// Fields of an existing collection are replaced; its items are kept. Embedded
// items are filed under the collection, moving them from wherever they were.
func (s *Store) AddCollection(cw domain.CollectionWithItems) {
	if cw.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.collections[cw.ID]
	if exists {
		keep := c.ItemIDs
		*c = cw.Collection.Clone()
		c.ItemIDs = keep
	} else {
		fresh := cw.Collection.Clone()
		fresh.ItemIDs = nil
		c = &fresh
		s.collections[c.ID] = c
		s.order = append(s.order, c.ID)
	}

	affected := []string{c.ID}
	for _, it := range cw.Items {
		if it.ID == "" {
			continue
		}
		if existing, ok := s.items[it.ID]; ok && existing.CollectionID != c.ID {
			affected = append(affected, existing.CollectionID)
		}
		s.fileItem(c.ID, it.Clone())
	}

	s.touchOpen(affected...)
	s.logger.Debug("collection added", "collection_id", c.ID, "upsert", exists, "items", len(cw.Items))
}

// UpdateCollection merges patch into the collection. Unknown IDs are ignored.
func (s *Store) UpdateCollection(id string, patch domain.CollectionPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[id]
	if !ok {
		return
	}
	if patch.ApplyTo(c) {
		c.TouchAt(s.now())
	}
	s.touchOpen(id)
}

// DeleteCollection removes a collection and every item filed under it.
func (s *Store) DeleteCollection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[id]
	if !ok {
		return
	}
	for _, itemID := range c.ItemIDs {
		delete(s.items, itemID)
		s.dropPending(itemID)
	}
	delete(s.collections, id)
	s.order = deleteID(s.order, id)
	s.touchOpen(id)

	s.logger.Debug("collection deleted", "collection_id", id, "cascaded_items", len(c.ItemIDs))
}

// AddItem files an item under collectionID, or as unassigned when collectionID
// is empty. An item already in the store is moved. An unknown, non-empty
// collectionID is a no-op.
func (s *Store) AddItem(collectionID string, item domain.Item) {
	if item.ID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if collectionID != "" {
		if _, ok := s.collections[collectionID]; !ok {
			return
		}
	}

	previous := ""
	if existing, ok := s.items[item.ID]; ok {
		previous = existing.CollectionID
	}
	s.fileItem(collectionID, item.Clone())
	s.touchOpen(collectionID, previous)
}

// UpdateItem merges patch into the item. It is a no-op unless the item exists
// and is filed under collectionID (empty for unassigned).
func (s *Store) UpdateItem(collectionID, itemID string, patch domain.ItemPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok || item.CollectionID != collectionID {
		return
	}
	now := s.now()
	if patch.ApplyTo(item, now) {
		item.TouchAt(now)
	}
	s.touchOpen(collectionID)
}

// DeleteItem removes the item. It is a no-op unless the item exists and is
// filed under collectionID (empty for unassigned).
func (s *Store) DeleteItem(collectionID, itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok || item.CollectionID != collectionID {
		return
	}
	s.detach(item)
	delete(s.items, itemID)
	s.dropPending(itemID)
	s.touchOpen(collectionID)
}

// MoveItems re-files existing items under collectionID, or as unassigned when
// collectionID is empty. Unknown item IDs are skipped; an unknown non-empty
// collectionID makes the whole call a no-op.
func (s *Store) MoveItems(collectionID string, itemIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if collectionID != "" {
		if _, ok := s.collections[collectionID]; !ok {
			return
		}
	}

	affected := []string{collectionID}
	for _, id := range itemIDs {
		item, ok := s.items[id]
		if !ok || item.CollectionID == collectionID {
			continue
		}
		affected = append(affected, item.CollectionID)
		s.fileItem(collectionID, *item)
	}
	s.touchOpen(affected...)
}

// fileItem stores item under collectionID, detaching any previous copy first.
// The caller holds the write lock and has checked that the collection exists.
func (s *Store) fileItem(collectionID string, item domain.Item) {
	item.CollectionID = collectionID
	s.dropPending(item.ID)
	if existing, ok := s.items[item.ID]; ok {
		if existing.CollectionID == collectionID {
			// Same list: replace the record in place to keep its position.
			*existing = item
			return
		}
		s.detach(existing)
	}
	s.items[item.ID] = &item

	if collectionID == "" {
		s.unassigned = append(s.unassigned, item.ID)
		return
	}
	s.collections[collectionID].AddItem(item.ID)
}

// detach removes the item ID from whichever list currently holds it.
func (s *Store) detach(item *domain.Item) {
	if item.CollectionID == "" {
		s.unassigned = deleteID(s.unassigned, item.ID)
		return
	}
	if c, ok := s.collections[item.CollectionID]; ok {
		c.RemoveItem(item.ID)
	}
}

func deleteID(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}

package library

import (
	"slices"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

// Open materializes the collection with its items as the open projection.
// It returns false and leaves the projection unchanged if the ID is unknown.
func (s *Store) Open(collectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collectionID]; !ok {
		return false
	}
	s.openID = collectionID
	s.refreshOpen()
	return true
}

// CloseOpen clears the open projection.
func (s *Store) CloseOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.openID = ""
	s.open = nil
}

// Opened returns a copy of the open projection.
// Edits to the copy do not reach the store; use the store mutators.
func (s *Store) Opened() (domain.CollectionWithItems, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.open == nil {
		return domain.CollectionWithItems{}, false
	}
	return s.open.Clone(), true
}

// touchOpen re-materializes the projection if any of ids is the open collection.
func (s *Store) touchOpen(ids ...string) {
	if s.openID == "" || !slices.Contains(ids, s.openID) {
		return
	}
	s.refreshOpen()
}

// refreshOpen rebuilds the projection from the maps, closing it if the
// collection is gone. The caller holds the write lock.
func (s *Store) refreshOpen() {
	if s.openID == "" {
		return
	}
	c, ok := s.collections[s.openID]
	if !ok {
		s.logger.Debug("open collection removed, closing projection", "collection_id", s.openID)
		s.openID = ""
		s.open = nil
		return
	}
	cw := s.materialize(c)
	s.open = &cw
}

// materialize embeds the collection's items in item-list order.
func (s *Store) materialize(c *domain.Collection) domain.CollectionWithItems {
	cw := domain.CollectionWithItems{
		Collection: c.Clone(),
		Items:      make([]domain.Item, 0, len(c.ItemIDs)),
	}
	for _, id := range c.ItemIDs {
		if it, ok := s.items[id]; ok {
			cw.Items = append(cw.Items, it.Clone())
		}
	}
	return cw
}

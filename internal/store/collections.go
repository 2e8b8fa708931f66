package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/sse"
)

// CreateCollection stores a collection together with its embedded items in
// one transaction. Items are filed under the collection in the given order;
// their OwnerID and CollectionID are overwritten to match.
func (s *Store) CreateCollection(ctx context.Context, c *domain.CollectionWithItems) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.ItemIDs = make([]string, 0, len(c.Items))
	for i := range c.Items {
		it := &c.Items[i]
		it.OwnerID = c.OwnerID
		it.CollectionID = c.ID
		if !c.AddItem(it.ID) {
			return ErrInvalidInput.WithMessage(fmt.Sprintf("duplicate item %s", it.ID))
		}
	}

	err := s.update(func(txn *badger.Txn) error {
		if exists, err := keyExists(txn, collectionKey(c.ID)); err != nil {
			return err
		} else if exists {
			return ErrAlreadyExists.WithMessage("collection already exists")
		}

		for i := range c.Items {
			if err := insertItem(txn, &c.Items[i]); err != nil {
				return err
			}
		}
		return writeCollection(txn, &c.Collection, nil)
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(sse.NewCollectionCreatedEvent(&c.Collection))
	for i := range c.Items {
		s.emitter.Emit(sse.NewItemCreatedEvent(&c.Items[i]))
	}
	s.logger.Debug("collection created",
		"collection_id", c.ID,
		"owner_id", c.OwnerID,
		"items", len(c.Items))
	return nil
}

// GetCollection loads an owner's collection without its items.
func (s *Store) GetCollection(ctx context.Context, ownerID, id string) (*domain.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c *domain.Collection
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		c, err = loadCollection(txn, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCollectionWithItems loads an owner's collection and its items in
// item-list order.
func (s *Store) GetCollectionWithItems(ctx context.Context, ownerID, id string) (*domain.CollectionWithItems, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out *domain.CollectionWithItems
	err := s.db.View(func(txn *badger.Txn) error {
		c, err := loadCollection(txn, ownerID, id)
		if err != nil {
			return err
		}
		out, err = withItems(txn, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateCollection replaces an owner's collection record. The stored item
// list is kept; items are filed through the item operations.
func (s *Store) UpdateCollection(ctx context.Context, c *domain.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.update(func(txn *badger.Txn) error {
		old, err := loadCollection(txn, c.OwnerID, c.ID)
		if err != nil {
			return err
		}
		c.ItemIDs = old.ItemIDs
		c.CreatedAt = old.CreatedAt
		return writeCollection(txn, c, old)
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(sse.NewCollectionUpdatedEvent(c))
	s.logger.Debug("collection updated", "collection_id", c.ID)
	return nil
}

// DeleteCollection removes an owner's collection and every item filed under
// it. It returns the IDs of the deleted items.
func (s *Store) DeleteCollection(ctx context.Context, ownerID, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var itemIDs []string
	err := s.update(func(txn *badger.Txn) error {
		c, err := loadCollection(txn, ownerID, id)
		if err != nil {
			return err
		}
		itemIDs = c.ItemIDs

		for _, itemID := range c.ItemIDs {
			var it domain.Item
			if err := getJSON(txn, itemKey(itemID), &it); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return fmt.Errorf("get item %s: %w", itemID, err)
			}
			if err := removeItem(txn, &it); err != nil {
				return err
			}
		}

		for _, key := range collectionIndexKeys(c) {
			if err := deleteKey(txn, key); err != nil {
				return err
			}
		}
		return deleteKey(txn, collectionKey(id))
	})
	if err != nil {
		return nil, err
	}

	s.emitter.Emit(sse.NewCollectionDeletedEvent(ownerID, id, itemIDs, time.Now()))
	s.logger.Debug("collection deleted", "collection_id", id, "items", len(itemIDs))
	return itemIDs, nil
}

// ListCollections returns one page of an owner's collections with their
// items embedded, ordered by the requested field. Total counts every
// collection of the owner.
func (s *Store) ListCollections(ctx context.Context, ownerID string, params CollectionListParams) (*PaginatedResult[domain.CollectionWithItems], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params.Validate()
	if params.Sort == "" {
		params.Sort = SortByTitle
	}
	cursor, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	scope := collectionIndexScope(params.Sort, ownerID)
	result := &PaginatedResult[domain.CollectionWithItems]{
		Items: []domain.CollectionWithItems{},
	}

	err = s.db.View(func(txn *badger.Txn) error {
		page, err := pageIndex(txn, scope, cursor, params.Limit, params.Direction == Descending)
		if err != nil {
			return err
		}

		for _, id := range page.ids {
			c, err := loadCollection(txn, ownerID, id)
			if err != nil {
				return fmt.Errorf("load indexed collection %s: %w", id, err)
			}
			full, err := withItems(txn, c)
			if err != nil {
				return err
			}
			result.Items = append(result.Items, *full)
		}

		result.HasMore = page.hasMore
		if page.hasMore {
			result.NextCursor = EncodeCursor(page.lastKey)
		}
		result.Total = countPrefix(txn, []byte(scope))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// loadCollection reads a collection, hiding other owners' and soft-deleted
// records behind ErrCollectionNotFound.
func loadCollection(txn *badger.Txn, ownerID, id string) (*domain.Collection, error) {
	var c domain.Collection
	if err := getJSON(txn, collectionKey(id), &c); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("get collection %s: %w", id, err)
	}
	if c.OwnerID != ownerID || c.IsDeleted() {
		return nil, ErrCollectionNotFound
	}
	return &c, nil
}

// withItems embeds c's items. Dangling IDs are skipped.
func withItems(txn *badger.Txn, c *domain.Collection) (*domain.CollectionWithItems, error) {
	out := &domain.CollectionWithItems{
		Collection: *c,
		Items:      make([]domain.Item, 0, len(c.ItemIDs)),
	}
	for _, itemID := range c.ItemIDs {
		var it domain.Item
		if err := getJSON(txn, itemKey(itemID), &it); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			return nil, fmt.Errorf("get item %s: %w", itemID, err)
		}
		out.Items = append(out.Items, it)
	}
	return out, nil
}

// writeCollection stores c and moves its listing index entries from old.
func writeCollection(txn *badger.Txn, c, old *domain.Collection) error {
	if old != nil {
		for _, key := range collectionIndexKeys(old) {
			if err := deleteKey(txn, key); err != nil {
				return err
			}
		}
	}
	if err := setJSON(txn, collectionKey(c.ID), c); err != nil {
		return err
	}
	for _, key := range collectionIndexKeys(c) {
		if err := txn.Set(key, nil); err != nil {
			return fmt.Errorf("set collection index: %w", err)
		}
	}
	return nil
}

func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

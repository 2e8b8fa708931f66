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

// CreateItem stores a new item. A non-empty CollectionID must name one of the
// owner's collections; the item is appended to its list. Otherwise the item
// is filed as unassigned.
func (s *Store) CreateItem(ctx context.Context, item *domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.update(func(txn *badger.Txn) error {
		if item.CollectionID != "" {
			c, err := loadCollection(txn, item.OwnerID, item.CollectionID)
			if err != nil {
				return err
			}
			if err := fileUnder(txn, c, item.ID); err != nil {
				return err
			}
		}
		return insertItem(txn, item)
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(sse.NewItemCreatedEvent(item))
	s.logger.Debug("item created",
		"item_id", item.ID,
		"collection_id", item.CollectionID)
	return nil
}

// GetItem loads one of an owner's items.
func (s *Store) GetItem(ctx context.Context, ownerID, id string) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var it *domain.Item
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		it, err = loadItem(txn, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return it, nil
}

// UpdateItem replaces an owner's item. When CollectionID differs from the
// stored one the item is re-filed: removed from its old collection (or the
// unassigned index) and appended to the new one. It returns the previous
// collection ID.
func (s *Store) UpdateItem(ctx context.Context, item *domain.Item) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var from string
	err := s.update(func(txn *badger.Txn) error {
		old, err := loadItem(txn, item.OwnerID, item.ID)
		if err != nil {
			return err
		}
		from = old.CollectionID
		item.CreatedAt = old.CreatedAt

		if item.CollectionID != old.CollectionID {
			if item.CollectionID != "" {
				target, err := loadCollection(txn, item.OwnerID, item.CollectionID)
				if err != nil {
					return err
				}
				if err := fileUnder(txn, target, item.ID); err != nil {
					return err
				}
			} else if err := txn.Set(itemUnassignedKey(item), nil); err != nil {
				return fmt.Errorf("set unassigned index: %w", err)
			}
			if err := unfile(txn, old); err != nil {
				return err
			}
		}
		return setJSON(txn, itemKey(item.ID), item)
	})
	if err != nil {
		return "", err
	}

	if from != item.CollectionID {
		s.emitter.Emit(sse.NewItemMovedEvent(item, from))
		s.logger.Debug("item moved",
			"item_id", item.ID,
			"from", from,
			"to", item.CollectionID)
	} else {
		s.emitter.Emit(sse.NewItemUpdatedEvent(item))
		s.logger.Debug("item updated", "item_id", item.ID)
	}
	return from, nil
}

// DeleteItem removes an owner's item and repairs its collection's list.
func (s *Store) DeleteItem(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var collectionID string
	err := s.update(func(txn *badger.Txn) error {
		it, err := loadItem(txn, ownerID, id)
		if err != nil {
			return err
		}
		collectionID = it.CollectionID
		if err := unfile(txn, it); err != nil {
			return err
		}
		return removeItem(txn, it)
	})
	if err != nil {
		return err
	}

	s.emitter.Emit(sse.NewItemDeletedEvent(ownerID, id, collectionID, time.Now()))
	s.logger.Debug("item deleted", "item_id", id, "collection_id", collectionID)
	return nil
}

// ListItems returns one page of an owner's items in creation order,
// optionally only the unassigned ones.
func (s *Store) ListItems(ctx context.Context, ownerID string, params ItemListParams) (*PaginatedResult[domain.Item], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params.Validate()
	cursor, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	scope := itemScope(itemsByOwnerPrefix, ownerID)
	if params.UnassignedOnly {
		scope = itemScope(itemsUnassignedPrefix, ownerID)
	}
	result := &PaginatedResult[domain.Item]{Items: []domain.Item{}}

	err = s.db.View(func(txn *badger.Txn) error {
		page, err := pageIndex(txn, scope, cursor, params.Limit, false)
		if err != nil {
			return err
		}
		for _, id := range page.ids {
			it, err := loadItem(txn, ownerID, id)
			if err != nil {
				return fmt.Errorf("load indexed item %s: %w", id, err)
			}
			result.Items = append(result.Items, *it)
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

func loadItem(txn *badger.Txn, ownerID, id string) (*domain.Item, error) {
	var it domain.Item
	if err := getJSON(txn, itemKey(id), &it); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	if it.OwnerID != ownerID || it.IsDeleted() {
		return nil, ErrItemNotFound
	}
	return &it, nil
}

// insertItem writes a new item record and its indexes. The caller files it
// under its collection; unassigned items get the unassigned index here.
func insertItem(txn *badger.Txn, it *domain.Item) error {
	if exists, err := keyExists(txn, itemKey(it.ID)); err != nil {
		return err
	} else if exists {
		return ErrAlreadyExists.WithMessage(fmt.Sprintf("item %s already exists", it.ID))
	}

	if err := setJSON(txn, itemKey(it.ID), it); err != nil {
		return err
	}
	if err := txn.Set(itemOwnerKey(it), nil); err != nil {
		return fmt.Errorf("set owner index: %w", err)
	}
	if it.IsUnassigned() {
		if err := txn.Set(itemUnassignedKey(it), nil); err != nil {
			return fmt.Errorf("set unassigned index: %w", err)
		}
	}
	return nil
}

// removeItem deletes an item record and its owner index entry.
func removeItem(txn *badger.Txn, it *domain.Item) error {
	if err := deleteKey(txn, itemOwnerKey(it)); err != nil {
		return err
	}
	return deleteKey(txn, itemKey(it.ID))
}

// fileUnder appends itemID to c's list and saves c.
func fileUnder(txn *badger.Txn, c *domain.Collection, itemID string) error {
	if !c.AddItem(itemID) {
		return nil
	}
	return setJSON(txn, collectionKey(c.ID), c)
}

// unfile detaches it from wherever it is currently filed.
func unfile(txn *badger.Txn, it *domain.Item) error {
	if it.IsUnassigned() {
		return deleteKey(txn, itemUnassignedKey(it))
	}

	c, err := loadCollection(txn, it.OwnerID, it.CollectionID)
	if errors.Is(err, ErrCollectionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !c.RemoveItem(it.ID) {
		return nil
	}
	return setJSON(txn, collectionKey(c.ID), c)
}

package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

// AllCollections iterates over every stored collection of every owner,
// soft-deleted records included, in key order.
func (s *Store) AllCollections(ctx context.Context) iter.Seq2[*domain.Collection, error] {
	return scanPrefix[domain.Collection](ctx, s.db, []byte(collectionPrefix))
}

// AllItems iterates over every stored item of every owner.
func (s *Store) AllItems(ctx context.Context) iter.Seq2[*domain.Item, error] {
	return scanPrefix[domain.Item](ctx, s.db, []byte(itemPrefix))
}

// RestoreCollection writes a collection record as-is, keeping its ID,
// timestamps and item order. Items are restored separately.
func (s *Store) RestoreCollection(ctx context.Context, c *domain.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		if exists, err := keyExists(txn, collectionKey(c.ID)); err != nil {
			return err
		} else if exists {
			return ErrAlreadyExists.WithMessage(fmt.Sprintf("collection %s already exists", c.ID))
		}
		return writeCollection(txn, c, nil)
	})
}

// RestoreItem writes an item record as-is. An item whose collection is
// missing is filed as unassigned; otherwise it is added to the collection's
// list if the restored collection does not already name it.
func (s *Store) RestoreItem(ctx context.Context, it *domain.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.update(func(txn *badger.Txn) error {
		if it.CollectionID != "" {
			c, err := loadCollection(txn, it.OwnerID, it.CollectionID)
			switch {
			case errors.Is(err, ErrCollectionNotFound):
				it.CollectionID = ""
			case err != nil:
				return err
			default:
				if err := fileUnder(txn, c, it.ID); err != nil {
					return err
				}
			}
		}
		return insertItem(txn, it)
	})
}

// RestoreUser writes a user record as-is.
func (s *Store) RestoreUser(ctx context.Context, u *domain.User) error {
	return s.Users.Create(ctx, u.ID, u)
}

func scanPrefix[T any](ctx context.Context, db *badger.DB, prefix []byte) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		err := db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				var v T
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &v)
				}); err != nil {
					return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
				}
				if !yield(&v, nil) {
					return errStopIteration
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(nil, err)
		}
	}
}

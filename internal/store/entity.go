package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity is a generic keyed record type with unique secondary indexes.
// Records live at {prefix}{id}; index entries at {prefix}idx:{name}:{value}
// and hold the record ID.
type Entity[T any] struct {
	store    *Store
	prefix   string
	notFound error
	indexes  []Index[T]
}

// Index is a unique secondary index on an entity.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string
	conflict        error
}

// NewEntity creates an Entity stored under prefix. notFound is returned for
// missing IDs; nil means ErrNotFound.
func NewEntity[T any](s *Store, prefix string, notFound error) *Entity[T] {
	if notFound == nil {
		notFound = ErrNotFound
	}
	return &Entity[T]{store: s, prefix: prefix, notFound: notFound}
}

// WithIndex adds a unique index. Lookups pass through transform when it is
// non-nil, and a duplicate value fails with conflict (ErrAlreadyExists when nil).
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string, transform func(string) string, conflict error) *Entity[T] {
	if conflict == nil {
		conflict = ErrAlreadyExists
	}
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: transform,
		conflict:        conflict,
	})
	return e
}

func (e *Entity[T]) key(id string) []byte {
	return []byte(e.prefix + id)
}

func (e *Entity[T]) indexKey(name, value string) []byte {
	return []byte(e.prefix + "idx:" + name + ":" + value)
}

// Create stores a new entity. It fails with ErrAlreadyExists when the ID is
// taken, or with the index's conflict error when an indexed value is.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.update(func(txn *badger.Txn) error {
		_, err := txn.Get(e.key(id))
		if err == nil {
			return ErrAlreadyExists.WithMessage(fmt.Sprintf("%s%s already exists", e.prefix, id))
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check existing key: %w", err)
		}

		if err := e.checkIndexes(txn, entity, nil); err != nil {
			return err
		}
		if err := setJSON(txn, e.key(id), entity); err != nil {
			return err
		}
		return e.writeIndexes(txn, id, entity)
	})
}

// Get loads an entity by ID.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity T
	err := e.store.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, e.key(id), &entity)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, e.notFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s%s: %w", e.prefix, id, err)
	}
	return &entity, nil
}

// GetByIndex loads the entity whose indexed value equals value.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, idx := range e.indexes {
		if idx.name == indexName && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}

	var id string
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, e.notFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s by %s: %w", e.prefix, indexName, err)
	}
	return e.Get(ctx, id)
}

// Update replaces an existing entity and moves its index entries.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.update(func(txn *badger.Txn) error {
		var old T
		if err := getJSON(txn, e.key(id), &old); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return e.notFound
			}
			return fmt.Errorf("get existing entity: %w", err)
		}

		if err := e.checkIndexes(txn, entity, &old); err != nil {
			return err
		}
		if err := e.deleteIndexes(txn, &old); err != nil {
			return err
		}
		if err := setJSON(txn, e.key(id), entity); err != nil {
			return err
		}
		return e.writeIndexes(txn, id, entity)
	})
}

// Delete removes an entity and its index entries. Deleting a missing ID is
// not an error.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.update(func(txn *badger.Txn) error {
		var entity T
		if err := getJSON(txn, e.key(id), &entity); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return fmt.Errorf("get entity: %w", err)
		}
		if err := e.deleteIndexes(txn, &entity); err != nil {
			return err
		}
		return deleteKey(txn, e.key(id))
	})
}

// List iterates over all entities in key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		prefix := []byte(e.prefix)
		indexPrefix := e.prefix + "idx:"

		err := e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				if strings.HasPrefix(string(it.Item().Key()), indexPrefix) {
					continue
				}

				var entity T
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				}); err != nil {
					return err
				}
				if !yield(&entity, nil) {
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

// errStopIteration ends a View early when the consumer stops ranging.
var errStopIteration = errors.New("stop iteration")

// checkIndexes rejects values already claimed by another record. Values
// carried over from old are the record's own and are skipped.
func (e *Entity[T]) checkIndexes(txn *badger.Txn, entity, old *T) error {
	for _, idx := range e.indexes {
		owned := make(map[string]bool)
		if old != nil {
			for _, k := range idx.keyGen(old) {
				owned[k] = true
			}
		}
		for _, value := range idx.keyGen(entity) {
			if owned[value] {
				continue
			}
			_, err := txn.Get(e.indexKey(idx.name, value))
			if err == nil {
				return idx.conflict
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("check index %s: %w", idx.name, err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) writeIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if err := txn.Set(e.indexKey(idx.name, value), []byte(id)); err != nil {
				return fmt.Errorf("set index %s: %w", idx.name, err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) deleteIndexes(txn *badger.Txn, entity *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if err := deleteKey(txn, e.indexKey(idx.name, value)); err != nil {
				return fmt.Errorf("delete index %s: %w", idx.name, err)
			}
		}
	}
	return nil
}

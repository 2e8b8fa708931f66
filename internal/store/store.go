// Package store persists users, collections and items in Badger. Every
// collection and item operation is scoped to an owner.
package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
	"github.com/shelfkeeper/shelfkeeper/internal/sse"
)

// maxTxnRetries bounds retries of a write transaction that lost a conflict.
const maxTxnRetries = 3

// EventEmitter receives change events after a write commits.
type EventEmitter interface {
	Emit(event sse.Event)
}

// NoopEmitter discards events.
type NoopEmitter struct{}

// Emit implements EventEmitter.
func (NoopEmitter) Emit(sse.Event) {}

// NewNoopEmitter creates a no-op emitter for tests and tools.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// Store wraps a Badger database.
type Store struct {
	db      *badger.DB
	logger  *slog.Logger
	emitter EventEmitter

	Users *Entity[domain.User]
}

// Options tunes how the database is opened.
type Options struct {
	// InMemory keeps everything in RAM; path is ignored.
	InMemory bool
}

// New opens (or creates) the database at path.
func New(path string, log *slog.Logger, emitter EventEmitter) (*Store, error) {
	return Open(path, log, emitter, Options{})
}

// Open opens the database with explicit options.
func Open(path string, log *slog.Logger, emitter EventEmitter, o Options) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = !o.InMemory
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	if emitter == nil {
		emitter = NoopEmitter{}
	}

	s := &Store{
		db:      db,
		logger:  logger.OrDiscard(log),
		emitter: emitter,
	}
	s.initUsers()

	s.logger.Info("Badger database opened", "path", path, "in_memory", o.InMemory)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.logger.Info("Closing database connection")
	return s.db.Close()
}

// Ping reports whether the database still serves reads.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(*badger.Txn) error { return nil })
}

// update runs fn in a read-write transaction, retrying when another writer
// committed a conflicting change first.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := range maxTxnRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("transaction conflict, retrying", "attempt", attempt+1)
	}
	return err
}

// getJSON decodes the value at key into dest, returning badger.ErrKeyNotFound
// when the key is absent.
func getJSON(txn *badger.Txn, key []byte, dest any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dest)
	})
}

func setJSON(txn *badger.Txn, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	return txn.Set(key, data)
}

// deleteKey deletes key, ignoring absence.
func deleteKey(txn *badger.Txn, key []byte) error {
	if err := txn.Delete(key); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return nil
}

// countPrefix counts keys under prefix without reading values.
func countPrefix(txn *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

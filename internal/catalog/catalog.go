// Package catalog pairs remote writes with local store updates and runs bulk
// operations over the current selection.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/fetch"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
	"github.com/shelfkeeper/shelfkeeper/internal/library"
)

// bulkConcurrency caps in-flight remote calls during bulk operations.
const bulkConcurrency = 4

// Remote persists writes for the authenticated owner and returns the stored record.
type Remote interface {
	CreateCollection(ctx context.Context, c domain.CollectionWithItems) (domain.CollectionWithItems, error)
	UpdateCollection(ctx context.Context, id string, patch domain.CollectionPatch) (domain.Collection, error)
	DeleteCollection(ctx context.Context, id string) error

	CreateItem(ctx context.Context, item domain.Item) (domain.Item, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error)
	// MoveItem re-files an item; an empty collectionID un-assigns it.
	MoveItem(ctx context.Context, id, collectionID string) (domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// Catalog owns the store, the fetch orchestrator and the selection for one
// signed-in client. Writes reach the store only after the remote accepted them.
type Catalog struct {
	remote    Remote
	store     *library.Store
	fetcher   *fetch.Orchestrator
	selection *library.Selection
	logger    *slog.Logger
}

// New creates a catalog. A nil logger discards output.
func New(remote Remote, store *library.Store, fetcher *fetch.Orchestrator, log *slog.Logger) *Catalog {
	return &Catalog{
		remote:    remote,
		store:     store,
		fetcher:   fetcher,
		selection: library.NewSelection(),
		logger:    logger.OrDiscard(log),
	}
}

// Store returns the underlying store for reads.
func (c *Catalog) Store() *library.Store { return c.store }

// Selection returns the shared selection state.
func (c *Catalog) Selection() *library.Selection { return c.selection }

// Refresh loads listings through the orchestrator.
func (c *Catalog) Refresh(ctx context.Context, force bool) (fetch.Result, error) {
	return c.fetcher.Refresh(ctx, force)
}

// View derives the visible rows for q.
func (c *Catalog) View(q library.Query) *library.View {
	return c.store.View(q)
}

// CreateCollection creates a collection, with optional embedded items.
func (c *Catalog) CreateCollection(ctx context.Context, in domain.CollectionWithItems) (domain.CollectionWithItems, error) {
	created, err := c.remote.CreateCollection(ctx, in)
	if err != nil {
		return domain.CollectionWithItems{}, fmt.Errorf("create collection: %w", err)
	}
	c.store.AddCollection(created)
	c.logger.Debug("collection created", "collection_id", created.ID)
	return created, nil
}

// UpdateCollection applies patch remotely and stores the persisted record.
func (c *Catalog) UpdateCollection(ctx context.Context, id string, patch domain.CollectionPatch) (domain.Collection, error) {
	updated, err := c.remote.UpdateCollection(ctx, id, patch)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("update collection %s: %w", id, err)
	}
	c.store.AddCollection(domain.CollectionWithItems{Collection: updated})
	return updated, nil
}

// DeleteCollection deletes a collection and, locally, its items.
func (c *Catalog) DeleteCollection(ctx context.Context, id string) error {
	if err := c.deleteCollection(ctx, id); err != nil {
		return err
	}
	c.selection.Deselect(library.LevelCollection, id)
	return nil
}

func (c *Catalog) deleteCollection(ctx context.Context, id string) error {
	if err := c.remote.DeleteCollection(ctx, id); err != nil {
		return fmt.Errorf("delete collection %s: %w", id, err)
	}
	c.store.DeleteCollection(id)
	return nil
}

// CreateItem creates an item, unassigned when CollectionID is empty.
func (c *Catalog) CreateItem(ctx context.Context, in domain.Item) (domain.Item, error) {
	created, err := c.remote.CreateItem(ctx, in)
	if err != nil {
		return domain.Item{}, fmt.Errorf("create item: %w", err)
	}
	c.apply(created)
	return created, nil
}

// UpdateItem applies patch remotely and stores the persisted record.
func (c *Catalog) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	updated, err := c.remote.UpdateItem(ctx, id, patch)
	if err != nil {
		return domain.Item{}, fmt.Errorf("update item %s: %w", id, err)
	}
	c.apply(updated)
	return updated, nil
}

// MoveItem re-files an item under collectionID, or un-assigns it.
func (c *Catalog) MoveItem(ctx context.Context, id, collectionID string) (domain.Item, error) {
	moved, err := c.remote.MoveItem(ctx, id, collectionID)
	if err != nil {
		return domain.Item{}, fmt.Errorf("move item %s: %w", id, err)
	}
	c.apply(moved)
	return moved, nil
}

// DeleteItem deletes an item.
func (c *Catalog) DeleteItem(ctx context.Context, id string) error {
	if err := c.deleteItem(ctx, id); err != nil {
		return err
	}
	c.selection.Deselect(library.LevelItem, id)
	return nil
}

func (c *Catalog) deleteItem(ctx context.Context, id string) error {
	if err := c.remote.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	if local, ok := c.store.Item(id); ok {
		c.store.DeleteItem(local.CollectionID, id)
	}
	return nil
}

// apply files a persisted item locally. If its collection is not loaded the
// local copy is dropped and the next refresh is forced to pick it up.
func (c *Catalog) apply(item domain.Item) {
	if item.CollectionID != "" {
		if _, ok := c.store.Collection(item.CollectionID); !ok {
			c.logger.Debug("item filed under unloaded collection, invalidating",
				"item_id", item.ID,
				"collection_id", item.CollectionID)
			if local, ok := c.store.Item(item.ID); ok {
				c.store.DeleteItem(local.CollectionID, item.ID)
			}
			c.fetcher.Invalidate()
			return
		}
	}
	c.store.AddItem(item.CollectionID, item)
}

// BulkResult reports which IDs a bulk operation completed.
type BulkResult struct {
	Done   []string
	Failed []string
}

// DeleteSelected deletes every selected entry of level that v shows.
func (c *Catalog) DeleteSelected(ctx context.Context, v *library.View, level library.Level) (BulkResult, error) {
	ids := c.selection.SelectedInOrder(v, level)
	op := c.deleteItem
	if level == library.LevelCollection {
		op = c.deleteCollection
	}
	res, err := c.bulk(ctx, ids, op)
	c.selection.Deselect(level, res.Done...)
	return res, err
}

// AssignSelected files the selected unassigned items under collectionID.
// Selected items that already belong to a collection are left alone.
func (c *Catalog) AssignSelected(ctx context.Context, v *library.View, collectionID string) (BulkResult, error) {
	if _, ok := c.store.Collection(collectionID); !ok {
		return BulkResult{}, fmt.Errorf("assign selected: unknown collection %q", collectionID)
	}
	ids := c.selection.SelectedUnassigned(v)
	res, err := c.bulk(ctx, ids, func(ctx context.Context, id string) error {
		_, err := c.MoveItem(ctx, id, collectionID)
		return err
	})
	c.selection.Deselect(library.LevelItem, res.Done...)
	return res, err
}

// MarkSelected applies patch to every selected item that v shows.
func (c *Catalog) MarkSelected(ctx context.Context, v *library.View, patch domain.ItemPatch) (BulkResult, error) {
	if patch.IsEmpty() {
		return BulkResult{}, nil
	}
	ids := c.selection.SelectedInOrder(v, library.LevelItem)
	return c.bulk(ctx, ids, func(ctx context.Context, id string) error {
		_, err := c.UpdateItem(ctx, id, patch)
		return err
	})
}

// bulk runs op for each id with bounded concurrency. Failures do not stop
// the remaining calls; they are joined into the returned error. op must not
// touch the selection.
func (c *Catalog) bulk(ctx context.Context, ids []string, op func(context.Context, string) error) (BulkResult, error) {
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(bulkConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = op(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	var res BulkResult
	for i, id := range ids {
		if errs[i] != nil {
			res.Failed = append(res.Failed, id)
			continue
		}
		res.Done = append(res.Done, id)
	}

	c.logger.Debug("bulk operation finished", "done", len(res.Done), "failed", len(res.Failed))
	return res, errors.Join(errs...)
}

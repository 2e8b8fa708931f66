package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/fetch"
	"github.com/shelfkeeper/shelfkeeper/internal/library"
)

var errRemote = errors.New("remote unavailable")

// fakeRemote keeps items by ID so updates can return merged records.
type fakeRemote struct {
	mu    sync.Mutex
	items map[string]domain.Item
	fail  map[string]bool
	calls []string
}

func newFakeRemote(items ...domain.Item) *fakeRemote {
	r := &fakeRemote{items: make(map[string]domain.Item), fail: make(map[string]bool)}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *fakeRemote) record(call, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call+":"+id)
	if r.fail[id] {
		return errRemote
	}
	return nil
}

func (r *fakeRemote) CreateCollection(_ context.Context, c domain.CollectionWithItems) (domain.CollectionWithItems, error) {
	if err := r.record("create-collection", c.ID); err != nil {
		return domain.CollectionWithItems{}, err
	}
	if c.ID == "" {
		c.ID = "col-new"
	}
	return c, nil
}

func (r *fakeRemote) UpdateCollection(_ context.Context, id string, patch domain.CollectionPatch) (domain.Collection, error) {
	if err := r.record("update-collection", id); err != nil {
		return domain.Collection{}, err
	}
	c := domain.Collection{Syncable: domain.Syncable{ID: id}}
	patch.ApplyTo(&c)
	return c, nil
}

func (r *fakeRemote) DeleteCollection(_ context.Context, id string) error {
	return r.record("delete-collection", id)
}

func (r *fakeRemote) CreateItem(_ context.Context, item domain.Item) (domain.Item, error) {
	if err := r.record("create-item", item.ID); err != nil {
		return domain.Item{}, err
	}
	r.mu.Lock()
	r.items[item.ID] = item
	r.mu.Unlock()
	return item, nil
}

func (r *fakeRemote) UpdateItem(_ context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	if err := r.record("update-item", id); err != nil {
		return domain.Item{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.items[id]
	patch.ApplyTo(&it, it.UpdatedAt)
	r.items[id] = it
	return it, nil
}

func (r *fakeRemote) MoveItem(_ context.Context, id, collectionID string) (domain.Item, error) {
	if err := r.record("move-item", id); err != nil {
		return domain.Item{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	it := r.items[id]
	it.CollectionID = collectionID
	r.items[id] = it
	return it, nil
}

func (r *fakeRemote) DeleteItem(_ context.Context, id string) error {
	return r.record("delete-item", id)
}

func newItem(id, collectionID string, ownership domain.OwnershipStatus) domain.Item {
	return domain.Item{
		Syncable:     domain.Syncable{ID: id},
		CollectionID: collectionID,
		Title:        "Volume " + id,
		Ownership:    ownership,
		Progress:     domain.ProgressUnread,
	}
}

// setupCatalog loads S1 {v1, v2} and S2 {v3} with unassigned v4 and v5.
func setupCatalog(t *testing.T) (*Catalog, *fakeRemote) {
	t.Helper()

	items := []domain.Item{
		newItem("v1", "S1", domain.OwnershipOwned),
		newItem("v2", "S1", domain.OwnershipWishlist),
		newItem("v3", "S2", domain.OwnershipOwned),
		newItem("v4", "", domain.OwnershipOwned),
		newItem("v5", "", domain.OwnershipWishlist),
	}
	remote := newFakeRemote(items...)

	store := library.NewStore()
	store.ReplaceCollections([]domain.CollectionWithItems{
		{Collection: domain.Collection{Syncable: domain.Syncable{ID: "S1"}, Title: "Berserk"}, Items: items[0:2]},
		{Collection: domain.Collection{Syncable: domain.Syncable{ID: "S2"}, Title: "Monster"}, Items: items[2:3]},
	})
	store.ReplaceUnassignedItems(items[3:])
	require.NoError(t, store.CheckInvariants())

	fetcher := fetch.New(nil, store, fetch.DefaultConfig(), nil)
	return New(remote, store, fetcher, nil), remote
}

func TestCatalog_CreateAndUpdate(t *testing.T) {
	c, _ := setupCatalog(t)
	ctx := context.Background()

	created, err := c.CreateCollection(ctx, domain.CollectionWithItems{
		Collection: domain.Collection{Title: "Pluto"},
		Items:      []domain.Item{newItem("p1", "", domain.OwnershipOwned)},
	})
	require.NoError(t, err)
	assert.Equal(t, "col-new", created.ID)
	assert.Len(t, c.Store().ItemsOf("col-new"), 1)

	title := "Monster Perfect Edition"
	_, err = c.UpdateCollection(ctx, "S2", domain.CollectionPatch{Title: &title})
	require.NoError(t, err)
	got, _ := c.Store().Collection("S2")
	assert.Equal(t, title, got.Title)
	assert.Equal(t, []string{"v3"}, got.ItemIDs, "local items survive a collection update")

	_, err = c.CreateItem(ctx, newItem("v6", "S2", domain.OwnershipPreordered))
	require.NoError(t, err)
	assert.Len(t, c.Store().ItemsOf("S2"), 2)

	read := domain.ProgressRead
	_, err = c.UpdateItem(ctx, "v1", domain.ItemPatch{Progress: &read})
	require.NoError(t, err)
	v1, _ := c.Store().Item("v1")
	assert.Equal(t, domain.ProgressRead, v1.Progress)

	require.NoError(t, c.Store().CheckInvariants())
}

func TestCatalog_RemoteFailureLeavesStoreUntouched(t *testing.T) {
	c, remote := setupCatalog(t)
	remote.fail["S1"] = true
	remote.fail["v1"] = true

	err := c.DeleteCollection(context.Background(), "S1")
	require.ErrorIs(t, err, errRemote)
	_, ok := c.Store().Collection("S1")
	assert.True(t, ok)

	read := domain.ProgressRead
	_, err = c.UpdateItem(context.Background(), "v1", domain.ItemPatch{Progress: &read})
	require.ErrorIs(t, err, errRemote)
	v1, _ := c.Store().Item("v1")
	assert.Equal(t, domain.ProgressUnread, v1.Progress)
}

func TestCatalog_ItemMovedToUnloadedCollectionInvalidates(t *testing.T) {
	c, _ := setupCatalog(t)

	_, err := c.MoveItem(context.Background(), "v4", "elsewhere")
	require.NoError(t, err)

	_, ok := c.Store().Item("v4")
	assert.False(t, ok)
	assert.False(t, c.fetcher.Fresh())
	require.NoError(t, c.Store().CheckInvariants())
}

func TestCatalog_AssignSelected(t *testing.T) {
	c, remote := setupCatalog(t)
	ctx := context.Background()
	v := c.View(library.Query{})
	sel := c.Selection()

	sel.SelectAll(library.LevelItem, v)
	res, err := c.AssignSelected(ctx, v, "S2")
	require.NoError(t, err)

	assert.Equal(t, []string{"v4", "v5"}, res.Done, "only unassigned items are moved")
	assert.Empty(t, c.Store().Unassigned())
	assert.Len(t, c.Store().ItemsOf("S2"), 3)
	assert.ElementsMatch(t, []string{"move-item:v4", "move-item:v5"}, remote.calls)
	assert.Equal(t, []string{"v1", "v2", "v3"}, sel.Selected(library.LevelItem), "moved items leave the selection")
	require.NoError(t, c.Store().CheckInvariants())

	_, err = c.AssignSelected(ctx, v, "missing")
	assert.Error(t, err)
}

func TestCatalog_DeleteSelectedPartialFailure(t *testing.T) {
	c, remote := setupCatalog(t)
	remote.fail["v2"] = true
	v := c.View(library.Query{})
	sel := c.Selection()
	sel.Toggle(library.LevelItem, "v1")
	sel.Toggle(library.LevelItem, "v2")
	sel.Toggle(library.LevelItem, "v4")

	res, err := c.DeleteSelected(context.Background(), v, library.LevelItem)

	require.Error(t, err)
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, []string{"v1", "v4"}, res.Done)
	assert.Equal(t, []string{"v2"}, res.Failed)
	assert.Equal(t, []string{"v2"}, sel.Selected(library.LevelItem))
	_, ok := c.Store().Item("v2")
	assert.True(t, ok)
	_, ok = c.Store().Item("v1")
	assert.False(t, ok)
	require.NoError(t, c.Store().CheckInvariants())
}

func TestCatalog_DeleteSelectedCollections(t *testing.T) {
	c, _ := setupCatalog(t)
	v := c.View(library.Query{})
	c.Selection().SelectAll(library.LevelCollection, v)

	res, err := c.DeleteSelected(context.Background(), v, library.LevelCollection)
	require.NoError(t, err)

	assert.Equal(t, []string{"S1", "S2"}, res.Done)
	assert.Equal(t, library.Counts{Items: 2, Unassigned: 2}, c.Store().Len())
	assert.Zero(t, c.Selection().Count(library.LevelCollection))
}

func TestCatalog_MarkSelected(t *testing.T) {
	c, _ := setupCatalog(t)
	v := c.View(library.Query{Filter: library.Filter{Ownership: domain.OwnershipWishlist}})
	c.Selection().SelectAll(library.LevelItem, v)

	owned := domain.OwnershipOwned
	res, err := c.MarkSelected(context.Background(), v, domain.ItemPatch{Ownership: &owned})
	require.NoError(t, err)

	assert.Equal(t, []string{"v2", "v5"}, res.Done)
	for _, id := range res.Done {
		it, _ := c.Store().Item(id)
		assert.Equal(t, domain.OwnershipOwned, it.Ownership, id)
	}

	res, err = c.MarkSelected(context.Background(), v, domain.ItemPatch{})
	require.NoError(t, err)
	assert.Empty(t, res.Done)
}

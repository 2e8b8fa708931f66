package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/sse"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newCollection(id, owner, title string, items ...domain.Item) *domain.CollectionWithItems {
	c := &domain.CollectionWithItems{
		Collection: domain.Collection{
			Syncable: domain.Syncable{ID: id, CreatedAt: baseTime, UpdatedAt: baseTime},
			OwnerID:  owner,
			Title:    title,
			Category: "manga",
		},
		Items: items,
	}
	return c
}

func newItem(id string, number float64) domain.Item {
	return domain.Item{
		Syncable:  domain.Syncable{ID: id, CreatedAt: baseTime, UpdatedAt: baseTime},
		Title:     fmt.Sprintf("Volume %v", number),
		Number:    number,
		Ownership: domain.OwnershipOwned,
		Progress:  domain.ProgressUnread,
	}
}

func TestCreateCollection_WithEmbeddedItems(t *testing.T) {
	s, rec := setupRecordingStore(t)
	ctx := context.Background()

	c := newCollection("col-1", "usr-1", "Berserk", newItem("itm-1", 1), newItem("itm-2", 2))
	require.NoError(t, s.CreateCollection(ctx, c))

	got, err := s.GetCollectionWithItems(ctx, "usr-1", "col-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"itm-1", "itm-2"}, got.ItemIDs)
	require.Len(t, got.Items, 2)
	for _, it := range got.Items {
		assert.Equal(t, "col-1", it.CollectionID)
		assert.Equal(t, "usr-1", it.OwnerID)
	}

	assert.Equal(t, []sse.EventType{
		sse.EventCollectionCreated, sse.EventItemCreated, sse.EventItemCreated,
	}, rec.types())

	err = s.CreateCollection(ctx, newCollection("col-1", "usr-1", "Again"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestCreateCollection_RejectsDuplicateItems(t *testing.T) {
	s, _ := setupRecordingStore(t)

	c := newCollection("col-1", "usr-1", "Dup", newItem("itm-1", 1), newItem("itm-1", 2))
	require.ErrorIs(t, s.CreateCollection(context.Background(), c), store.ErrInvalidInput)

	_, err := s.GetCollection(context.Background(), "usr-1", "col-1")
	require.ErrorIs(t, err, store.ErrCollectionNotFound)
}

func TestGetCollection_ScopedToOwner(t *testing.T) {
	s, _ := setupRecordingStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, newCollection("col-1", "usr-1", "Berserk")))

	_, err := s.GetCollection(ctx, "usr-2", "col-1")
	require.ErrorIs(t, err, store.ErrCollectionNotFound)
	_, err = s.GetCollectionWithItems(ctx, "usr-2", "col-1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateCollection_KeepsItemsAndReindexes(t *testing.T) {
	s, rec := setupRecordingStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, newCollection("col-a", "usr-1", "Alpha", newItem("itm-1", 1))))
	require.NoError(t, s.CreateCollection(ctx, newCollection("col-b", "usr-1", "Beta")))

	c, err := s.GetCollection(ctx, "usr-1", "col-a")
	require.NoError(t, err)
	c.Title = "Zeta"
	c.ItemIDs = nil
	c.TouchAt(baseTime.Add(time.Hour))
	require.NoError(t, s.UpdateCollection(ctx, c))
	assert.Equal(t, sse.EventCollectionUpdated, rec.last().Type)

	got, err := s.GetCollectionWithItems(ctx, "usr-1", "col-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"itm-1"}, got.ItemIDs)

	page, err := s.ListCollections(ctx, "usr-1", store.CollectionListParams{Sort: store.SortByTitle})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Beta", page.Items[0].Title)
	assert.Equal(t, "Zeta", page.Items[1].Title)
	assert.Equal(t, 2, page.Total, "stale index entries are removed")

	foreign := c.Clone()
	foreign.OwnerID = "usr-2"
	require.ErrorIs(t, s.UpdateCollection(ctx, &foreign), store.ErrCollectionNotFound)
}

func TestDeleteCollection_Cascades(t *testing.T) {
	s, rec := setupRecordingStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, newCollection("col-1", "usr-1", "Berserk", newItem("itm-1", 1), newItem("itm-2", 2))))
	loose := newItem("itm-3", 1)
	loose.OwnerID = "usr-1"
	require.NoError(t, s.CreateItem(ctx, &loose))

	_, err := s.DeleteCollection(ctx, "usr-2", "col-1")
	require.ErrorIs(t, err, store.ErrCollectionNotFound)

	deleted, err := s.DeleteCollection(ctx, "usr-1", "col-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"itm-1", "itm-2"}, deleted)

	ev := rec.last()
	assert.Equal(t, sse.EventCollectionDeleted, ev.Type)
	assert.Equal(t, "usr-1", ev.UserID)

	_, err = s.GetItem(ctx, "usr-1", "itm-1")
	require.ErrorIs(t, err, store.ErrItemNotFound)

	items, err := s.ListItems(ctx, "usr-1", store.ItemListParams{})
	require.NoError(t, err)
	require.Len(t, items.Items, 1)
	assert.Equal(t, "itm-3", items.Items[0].ID)

	collections, err := s.ListCollections(ctx, "usr-1", store.CollectionListParams{})
	require.NoError(t, err)
	assert.Empty(t, collections.Items)
	assert.Zero(t, collections.Total)
}

func TestListCollections_PaginatesInOrder(t *testing.T) {
	s, _ := setupRecordingStore(t)
	ctx := context.Background()

	titles := []string{"delta", "Alpha", "charlie", "Écho", "bravo"}
	for i, title := range titles {
		c := newCollection(fmt.Sprintf("col-%d", i), "usr-1", title)
		c.CreatedAt = baseTime.Add(time.Duration(i) * time.Minute)
		c.UpdatedAt = c.CreatedAt
		require.NoError(t, s.CreateCollection(ctx, c))
	}
	require.NoError(t, s.CreateCollection(ctx, newCollection("col-x", "usr-2", "Aardvark")))

	walk := func(params store.CollectionListParams) []string {
		t.Helper()
		var out []string
		for {
			page, err := s.ListCollections(ctx, "usr-1", params)
			require.NoError(t, err)
			assert.Equal(t, 5, page.Total)
			for _, c := range page.Items {
				out = append(out, c.Title)
			}
			if !page.HasMore {
				assert.Empty(t, page.NextCursor)
				return out
			}
			params.Cursor = page.NextCursor
		}
	}

	assert.Equal(t, []string{"Alpha", "bravo", "charlie", "delta", "Écho"},
		walk(store.CollectionListParams{PaginationParams: store.PaginationParams{Limit: 2}}))
	assert.Equal(t, []string{"Écho", "delta", "charlie", "bravo", "Alpha"},
		walk(store.CollectionListParams{PaginationParams: store.PaginationParams{Limit: 2}, Direction: store.Descending}))
	assert.Equal(t, titles,
		walk(store.CollectionListParams{PaginationParams: store.PaginationParams{Limit: 3}, Sort: store.SortByCreatedAt}))

	first, err := s.ListCollections(ctx, "usr-1", store.CollectionListParams{PaginationParams: store.PaginationParams{Limit: 1}})
	require.NoError(t, err)
	_, err = s.ListCollections(ctx, "usr-1", store.CollectionListParams{
		PaginationParams: store.PaginationParams{Limit: 1, Cursor: first.NextCursor},
		Sort:             store.SortByUpdatedAt,
	})
	require.ErrorIs(t, err, store.ErrInvalidCursor, "cursor from another ordering")
}

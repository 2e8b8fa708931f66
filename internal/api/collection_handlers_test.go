package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

func (ts *testServer) createCollection(t *testing.T, bearer string, body map[string]any) domain.CollectionWithItems {
	t.Helper()

	resp := ts.api.Post("/api/v1/collections", bearer, body)
	require.Equal(t, http.StatusCreated, resp.Code, "create collection failed: %s", resp.Body.String())
	return decodeEnvelope[domain.CollectionWithItems](t, resp.Body.Bytes()).Data
}

func TestCreateCollection_WithItems(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.registerUser(t, "reader@example.com")

	c := ts.createCollection(t, bearer, map[string]any{
		"title":    "  Berserk ",
		"creator":  "Kentaro Miura",
		"tags":     []string{"Seinen", "dark fantasy", "seinen"},
		"status":   "ongoing",
		"category": "manga",
		"items": []map[string]any{
			{"title": "Berserk Vol. 1", "number": 1},
			{"title": "Berserk Vol. 2", "number": 2, "ownership": "wishlist"},
		},
	})

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "Berserk", c.Title)
	require.Len(t, c.Items, 2)
	assert.Equal(t, []string{c.Items[0].ID, c.Items[1].ID}, c.ItemIDs)
	assert.Equal(t, domain.OwnershipOwned, c.Items[0].Ownership)
	assert.Equal(t, domain.OwnershipWishlist, c.Items[1].Ownership)
	assert.Equal(t, domain.ProgressUnread, c.Items[0].Progress)
	for _, it := range c.Items {
		assert.Equal(t, c.ID, it.CollectionID)
	}

	resp := ts.api.Get("/api/v1/collections/"+c.ID, bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeEnvelope[domain.CollectionWithItems](t, resp.Body.Bytes()).Data
	assert.Equal(t, c.ItemIDs, got.ItemIDs)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Berserk Vol. 1", got.Items[0].Title)
}

func TestCreateCollection_RequiresAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/collections", map[string]any{"title": "Berserk"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateCollection_InvalidStatus(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.registerUser(t, "reader@example.com")

	resp := ts.api.Post("/api/v1/collections", bearer, map[string]any{
		"title":  "Berserk",
		"status": "abandoned",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	env := decodeEnvelope[any](t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION", env.Error.Code)
}

func TestGetCollection_OtherOwnerIsNotFound(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.registerUser(t, "alice@example.com")
	bob := ts.registerUser(t, "bob@example.com")

	c := ts.createCollection(t, alice, map[string]any{"title": "Akira"})

	resp := ts.api.Get("/api/v1/collections/"+c.ID, bob)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	env := decodeEnvelope[any](t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	resp = ts.api.Delete("/api/v1/collections/"+c.ID, bob)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/collections/"+c.ID, alice)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestListCollections_SortAndPaging(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.registerUser(t, "reader@example.com")

	for _, title := range []string{"Berserk", "Akira", "Claymore"} {
		ts.createCollection(t, bearer, map[string]any{"title": title})
	}

	titles := func(page store.PaginatedResult[domain.CollectionWithItems]) []string {
		out := make([]string, 0, len(page.Items))
		for _, c := range page.Items {
			out = append(out, c.Title)
		}
		return out
	}

	resp := ts.api.Get("/api/v1/collections", bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decodeEnvelope[store.PaginatedResult[domain.CollectionWithItems]](t, resp.Body.Bytes()).Data
	assert.Equal(t, []string{"Akira", "Berserk", "Claymore"}, titles(page))
	assert.Equal(t, 3, page.Total)
	assert.False(t, page.HasMore)

	resp = ts.api.Get("/api/v1/collections?direction=desc", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	page = decodeEnvelope[store.PaginatedResult[domain.CollectionWithItems]](t, resp.Body.Bytes()).Data
	assert.Equal(t, []string{"Claymore", "Berserk", "Akira"}, titles(page))

	resp = ts.api.Get("/api/v1/collections?limit=2", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	first := decodeEnvelope[store.PaginatedResult[domain.CollectionWithItems]](t, resp.Body.Bytes()).Data
	assert.Equal(t, []string{"Akira", "Berserk"}, titles(first))
	assert.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	resp = ts.api.Get("/api/v1/collections?limit=2&cursor="+first.NextCursor, bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	second := decodeEnvelope[store.PaginatedResult[domain.CollectionWithItems]](t, resp.Body.Bytes()).Data
	assert.Equal(t, []string{"Claymore"}, titles(second))
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
}

func TestListCollections_InvalidParams(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.registerUser(t, "reader@example.com")

	for _, query := range []string{"?sort=rating", "?direction=sideways", "?cursor=!!!"} {
		t.Run(query, func(t *testing.T) {
			resp := ts.api.Get("/api/v1/collections"+query, bearer)
			assert.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
		})
	}
}

func TestListCollections_OnlyOwn(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.registerUser(t, "alice@example.com")
	bob := ts.registerUser(t, "bob@example.com")

	ts.createCollection(t, alice, map[string]any{"title": "Akira"})

	resp := ts.api.Get("/api/v1/collections", bob)
	require.Equal(t, http.StatusOK, resp.Code)
	page := decodeEnvelope[store.PaginatedResult[domain.CollectionWithItems]](t, resp.Body.Bytes()).Data
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
}

func TestUpdateCollection(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.registerUser(t, "reader@example.com")

	c := ts.createCollection(t, bearer, map[string]any{
		"title": "Berserk",
		"items": []map[string]any{{"title": "Vol. 1", "number": 1}},
	})

	resp := ts.api.Patch("/api/v1/collections/"+c.ID, bearer, map[string]any{
		"status": "completed",
		"tags":   []string{"classic"},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decodeEnvelope[domain.Collection](t, resp.Body.Bytes()).Data
	assert.Equal(t, "Berserk", updated.Title)
	assert.Equal(t, domain.CollectionStatusCompleted, updated.Status)
	assert.Equal(t, []string{"classic"}, updated.Tags)
	assert.Equal(t, c.ItemIDs, updated.ItemIDs)
	assert.True(t, updated.UpdatedAt.After(c.UpdatedAt) || updated.UpdatedAt.Equal(c.UpdatedAt))
}

func TestUpdateCollection_EmptyPatchIsNoop(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.registerUser(t, "reader@example.com")
	c := ts.createCollection(t, bearer, map[string]any{"title": "Berserk"})

	resp := ts.api.Patch("/api/v1/collections/"+c.ID, bearer, map[string]any{})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated := decodeEnvelope[domain.Collection](t, resp.Body.Bytes()).Data
	assert.True(t, c.UpdatedAt.Equal(updated.UpdatedAt))
}

func TestDeleteCollection_CascadesItems(t *testing.T) {
	ts := setupTestServer(t)
	bearer := ts.registerUser(t, "reader@example.com")

	c := ts.createCollection(t, bearer, map[string]any{
		"title": "Berserk",
		"items": []map[string]any{
			{"title": "Vol. 1", "number": 1},
			{"title": "Vol. 2", "number": 2},
		},
	})

	resp := ts.api.Delete("/api/v1/collections/"+c.ID, bearer)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	deleted := decodeEnvelope[DeleteCollectionResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, c.ID, deleted.ID)
	assert.ElementsMatch(t, c.ItemIDs, deleted.DeletedItemIDs)

	resp = ts.api.Get("/api/v1/collections/"+c.ID, bearer)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/items", bearer)
	require.Equal(t, http.StatusOK, resp.Code)
	items := decodeEnvelope[store.PaginatedResult[domain.Item]](t, resp.Body.Bytes()).Data
	assert.Empty(t, items.Items)
}

package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/api"
	"github.com/shelfkeeper/shelfkeeper/internal/apiclient"
	"github.com/shelfkeeper/shelfkeeper/internal/auth"
	"github.com/shelfkeeper/shelfkeeper/internal/catalog"
	"github.com/shelfkeeper/shelfkeeper/internal/config"
	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	domainerrors "github.com/shelfkeeper/shelfkeeper/internal/errors"
	"github.com/shelfkeeper/shelfkeeper/internal/fetch"
	"github.com/shelfkeeper/shelfkeeper/internal/library"
	"github.com/shelfkeeper/shelfkeeper/internal/service"
	"github.com/shelfkeeper/shelfkeeper/internal/sse"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
	"github.com/shelfkeeper/shelfkeeper/internal/validation"
)

var (
	_ fetch.Source   = (*apiclient.Client)(nil)
	_ catalog.Remote = (*apiclient.Client)(nil)
)

func startServer(t *testing.T) string {
	t.Helper()

	st, err := store.Open("", nil, nil, store.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	key, err := auth.GenerateKey()
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	v := validation.New()
	hasher := auth.NewHasher(auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	services := &api.Services{
		Auth:        service.NewAuthService(st, tokens, hasher, v, nil),
		Collections: service.NewCollectionService(st, v, nil, nil),
		Items:       service.NewItemService(st, v, nil, nil),
	}

	srv := api.NewServer(st, services, sse.NewManager(nil), config.ServerConfig{CORSOrigins: []string{"*"}}, nil, nil)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts.URL
}

func newSignedInClient(t *testing.T, baseURL string) *apiclient.Client {
	t.Helper()

	c, err := apiclient.New(baseURL)
	require.NoError(t, err)
	res, err := c.Register(context.Background(), "reader@example.com", "correct horse", "Reader")
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	assert.Equal(t, res.AccessToken, c.Token())
	return c
}

func TestNew_RejectsBadURL(t *testing.T) {
	for _, raw := range []string{"localhost:8080", "ftp://example.com", "://nope"} {
		_, err := apiclient.New(raw)
		assert.Error(t, err, raw)
	}
}

func TestClient_LoginAndMe(t *testing.T) {
	baseURL := startServer(t)
	ctx := context.Background()
	newSignedInClient(t, baseURL)

	c, err := apiclient.New(baseURL + "/")
	require.NoError(t, err)

	_, err = c.Me(ctx)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized), "got %v", err)

	_, err = c.Login(ctx, "reader@example.com", "wrong horse")
	assert.Equal(t, domainerrors.CodeInvalidCredentials, domainerrors.CodeOf(err))

	res, err := c.Login(ctx, "reader@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", res.User.Email)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, me.ID)
}

func TestClient_CollectionRoundTrip(t *testing.T) {
	c := newSignedInClient(t, startServer(t))
	ctx := context.Background()

	created, err := c.CreateCollection(ctx, domain.CollectionWithItems{
		Collection: domain.Collection{Title: "Berserk", Tags: []string{"seinen"}},
		Items: []domain.Item{
			{Title: "Vol. 1", Number: 1},
			{Title: "Vol. 2", Number: 2, Notes: "signed"},
		},
	})
	require.NoError(t, err)
	require.Len(t, created.Items, 2)
	assert.Equal(t, created.ID, created.Items[0].CollectionID)

	page, err := c.ListCollections(ctx, fetch.PageRequest{Limit: 10, Sort: "title", Direction: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasMore)

	empty := []string{}
	updated, err := c.UpdateCollection(ctx, created.ID, domain.CollectionPatch{Tags: &empty})
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)

	blank := ""
	it, err := c.UpdateItem(ctx, created.Items[1].ID, domain.ItemPatch{Notes: &blank})
	require.NoError(t, err)
	assert.Empty(t, it.Notes)

	require.NoError(t, c.DeleteCollection(ctx, created.ID))

	_, err = c.GetCollection(ctx, created.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}

func TestClient_ItemFiling(t *testing.T) {
	c := newSignedInClient(t, startServer(t))
	ctx := context.Background()

	col, err := c.CreateCollection(ctx, domain.CollectionWithItems{Collection: domain.Collection{Title: "Akira"}})
	require.NoError(t, err)

	loose, err := c.CreateItem(ctx, domain.Item{Title: "Akira Vol. 1", Number: 1})
	require.NoError(t, err)
	assert.Empty(t, loose.CollectionID)

	unassigned, err := c.ListUnassignedItems(ctx, fetch.PageRequest{Limit: 10})
	require.NoError(t, err)
	require.Len(t, unassigned.Items, 1)

	moved, err := c.MoveItem(ctx, loose.ID, col.ID)
	require.NoError(t, err)
	assert.Equal(t, col.ID, moved.CollectionID)

	unassigned, err = c.ListUnassignedItems(ctx, fetch.PageRequest{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, unassigned.Items)

	back, err := c.MoveItem(ctx, loose.ID, "")
	require.NoError(t, err)
	assert.Empty(t, back.CollectionID)

	require.NoError(t, c.DeleteItem(ctx, loose.ID))
	err = c.DeleteItem(ctx, loose.ID)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrNotFound), "got %v", err)
}

func TestClient_FeedsCatalog(t *testing.T) {
	c := newSignedInClient(t, startServer(t))
	ctx := context.Background()

	for _, title := range []string{"Claymore", "Akira"} {
		_, err := c.CreateCollection(ctx, domain.CollectionWithItems{
			Collection: domain.Collection{Title: title},
			Items:      []domain.Item{{Title: title + " Vol. 1", Number: 1}},
		})
		require.NoError(t, err)
	}
	_, err := c.CreateItem(ctx, domain.Item{Title: "One-shot", Number: 1})
	require.NoError(t, err)

	ls := library.NewStore()
	cfg := fetch.DefaultConfig()
	cfg.PageSize = 1
	cfg.RequestsPerSecond = 0
	cat := catalog.New(c, ls, fetch.New(c, ls, cfg, nil), nil)

	res, err := cat.Refresh(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Collections)
	assert.Equal(t, 1, res.Unassigned)
	require.NoError(t, ls.CheckInvariants())

	counts := ls.Len()
	assert.Equal(t, 2, counts.Collections)
	assert.Equal(t, 3, counts.Items)
}

func TestClient_NonEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode domainerrors.Code
	}{
		{"plain not found", http.StatusNotFound, "404 page not found", domainerrors.CodeNotFound},
		{"bad gateway", http.StatusBadGateway, "", domainerrors.CodeInternal},
		{"rate limited", http.StatusTooManyRequests, `{"v":1,"success":false,"error":{"code":"RATE_LIMITED","message":"slow down"}}`, domainerrors.CodeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := apiclient.New(srv.URL, apiclient.WithToken("t"))
			require.NoError(t, err)

			_, err = c.ListCollections(context.Background(), fetch.PageRequest{})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, domainerrors.CodeOf(err))
		})
	}
}

func TestClient_SendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"v":1,"success":true,"data":{"items":[],"has_more":false,"total":0}}`))
	}))
	defer srv.Close()

	c, err := apiclient.New(srv.URL, apiclient.WithToken("secret"), apiclient.WithRateLimit(100, 1))
	require.NoError(t, err)

	page, err := c.ListUnassignedItems(context.Background(), fetch.PageRequest{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.NotEmpty(t, got.Get("X-Request-Id"))
}

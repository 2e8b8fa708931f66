package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/fetch"
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User        domain.User `json:"user"`
	AccessToken string      `json:"access_token"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Register creates an account and adopts its access token.
func (c *Client) Register(ctx context.Context, email, password, displayName string) (*AuthResult, error) {
	body := struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name,omitempty"`
	}{email, password, displayName}

	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// Login signs in and adopts the returned access token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out domain.User
	err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, nil, &out)
	return out, err
}

type page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total"`
}

func (p page[T]) toFetch() fetch.Page[T] {
	return fetch.Page[T]{Items: p.Items, NextCursor: p.NextCursor, HasMore: p.HasMore, Total: p.Total}
}

func pageQuery(req fetch.PageRequest) url.Values {
	q := url.Values{}
	if req.Cursor != "" {
		q.Set("cursor", req.Cursor)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	return q
}

// ListCollections fetches one page of collections with their items.
func (c *Client) ListCollections(ctx context.Context, req fetch.PageRequest) (fetch.Page[domain.CollectionWithItems], error) {
	q := pageQuery(req)
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Direction != "" {
		q.Set("direction", req.Direction)
	}

	var out page[domain.CollectionWithItems]
	if err := c.do(ctx, http.MethodGet, "/api/v1/collections", q, nil, &out); err != nil {
		return fetch.Page[domain.CollectionWithItems]{}, err
	}
	return out.toFetch(), nil
}

// ListUnassignedItems fetches one page of items not filed under a collection.
func (c *Client) ListUnassignedItems(ctx context.Context, req fetch.PageRequest) (fetch.Page[domain.Item], error) {
	q := pageQuery(req)
	q.Set("unassigned", "true")

	var out page[domain.Item]
	if err := c.do(ctx, http.MethodGet, "/api/v1/items", q, nil, &out); err != nil {
		return fetch.Page[domain.Item]{}, err
	}
	return out.toFetch(), nil
}

// GetCollection fetches one collection with its items.
func (c *Client) GetCollection(ctx context.Context, id string) (domain.CollectionWithItems, error) {
	var out domain.CollectionWithItems
	err := c.do(ctx, http.MethodGet, collectionPath(id), nil, nil, &out)
	return out, err
}

// CreateCollection creates a collection and its embedded items. Server-owned
// fields of the input are ignored.
func (c *Client) CreateCollection(ctx context.Context, in domain.CollectionWithItems) (domain.CollectionWithItems, error) {
	body := createCollectionBody{
		Title:       in.Title,
		Creator:     in.Creator,
		Description: in.Description,
		Category:    in.Category,
		Tags:        in.Tags,
		Status:      in.Status,
		Items:       make([]createItemBody, 0, len(in.Items)),
	}
	for i := range in.Items {
		body.Items = append(body.Items, newCreateItemBody(&in.Items[i], ""))
	}

	var out domain.CollectionWithItems
	err := c.do(ctx, http.MethodPost, "/api/v1/collections", nil, body, &out)
	return out, err
}

// UpdateCollection applies patch and returns the stored collection.
func (c *Client) UpdateCollection(ctx context.Context, id string, patch domain.CollectionPatch) (domain.Collection, error) {
	var out domain.Collection
	err := c.do(ctx, http.MethodPatch, collectionPath(id), nil, collectionPatchBody(patch), &out)
	return out, err
}

// DeleteCollection deletes a collection and its items.
func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, collectionPath(id), nil, nil, nil)
}

// CreateItem creates an item, filed under in.CollectionID when set.
func (c *Client) CreateItem(ctx context.Context, in domain.Item) (domain.Item, error) {
	var out domain.Item
	err := c.do(ctx, http.MethodPost, "/api/v1/items", nil, newCreateItemBody(&in, in.CollectionID), &out)
	return out, err
}

// UpdateItem applies patch and returns the stored item.
func (c *Client) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (domain.Item, error) {
	var out domain.Item
	err := c.do(ctx, http.MethodPatch, itemPath(id), nil, newItemPatchBody(patch, nil), &out)
	return out, err
}

// MoveItem re-files an item; an empty collectionID un-assigns it.
func (c *Client) MoveItem(ctx context.Context, id, collectionID string) (domain.Item, error) {
	var out domain.Item
	err := c.do(ctx, http.MethodPatch, itemPath(id), nil, newItemPatchBody(domain.ItemPatch{}, &collectionID), &out)
	return out, err
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, itemPath(id), nil, nil, nil)
}

func collectionPath(id string) string {
	return "/api/v1/collections/" + url.PathEscape(id)
}

func itemPath(id string) string {
	return "/api/v1/items/" + url.PathEscape(id)
}

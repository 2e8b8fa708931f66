package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/id"
	"github.com/shelfkeeper/shelfkeeper/internal/logger"
	"github.com/shelfkeeper/shelfkeeper/internal/normalize"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
	"github.com/shelfkeeper/shelfkeeper/internal/validation"
)

// ItemService manages an owner's items.
type ItemService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
	now       Clock
}

// NewItemService creates an item service. A nil clock means time.Now.
func NewItemService(s *store.Store, v *validation.Validator, log *slog.Logger, clock Clock) *ItemService {
	return &ItemService{
		store:     s,
		validator: v,
		logger:    logger.OrDiscard(log),
		now:       clockOrNow(clock),
	}
}

// CreateItemRequest creates an item. An empty CollectionID files it as
// unassigned. Ownership defaults to owned and progress to unread.
type CreateItemRequest struct {
	CollectionID string                 `json:"collection_id,omitempty"`
	Title        string                 `json:"title" validate:"required,max=500"`
	Number       float64                `json:"number" validate:"gte=0"`
	Ownership    domain.OwnershipStatus `json:"ownership,omitempty" validate:"ownership"`
	Progress     domain.ProgressStatus  `json:"progress,omitempty" validate:"progress"`
	ISBN         string                 `json:"isbn,omitempty" validate:"omitempty,isbn"`
	CoverURL     string                 `json:"cover_url,omitempty" validate:"omitempty,http_url"`
	Price        *float64               `json:"price,omitempty" validate:"omitempty,gte=0"`
	Rating       *float64               `json:"rating,omitempty" validate:"omitempty,gte=0,lte=10"`
	PageCount    *int                   `json:"page_count,omitempty" validate:"omitempty,gte=0"`
	Notes        string                 `json:"notes,omitempty" validate:"max=10000"`
	ReleaseDate  *time.Time             `json:"release_date,omitempty"`
	PurchasedAt  *time.Time             `json:"purchased_at,omitempty"`
}

// UpdateItemRequest merges Patch into an item. A non-nil CollectionID
// re-files the item; an empty string un-assigns it.
type UpdateItemRequest struct {
	Patch        domain.ItemPatch
	CollectionID *string
}

// ListItemsRequest selects a page of items.
type ListItemsRequest struct {
	Cursor     string
	Limit      int
	Unassigned bool
}

// Create stores a new item owned by ownerID.
func (s *ItemService) Create(ctx context.Context, ownerID string, req CreateItemRequest) (*domain.Item, error) {
	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	it, err := newItem(ownerID, req.CollectionID, req, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateItem(ctx, it); err != nil {
		return nil, storeError("create item", err)
	}

	s.logger.Info("item created",
		"item_id", it.ID,
		"collection_id", it.CollectionID)
	return it, nil
}

// Get returns one of the owner's items.
func (s *ItemService) Get(ctx context.Context, ownerID, itemID string) (*domain.Item, error) {
	it, err := s.store.GetItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, storeError("get item", err)
	}
	return it, nil
}

// Update merges the patch and applies any re-filing. A request that changes
// nothing returns the stored item unchanged.
func (s *ItemService) Update(ctx context.Context, ownerID, itemID string, req UpdateItemRequest) (*domain.Item, error) {
	patch := normalizeItemPatch(req.Patch)
	if err := s.validateItemPatch(patch); err != nil {
		return nil, err
	}

	it, err := s.store.GetItem(ctx, ownerID, itemID)
	if err != nil {
		return nil, storeError("get item", err)
	}

	now := s.now()
	changed := patch.ApplyTo(it, now)
	if req.CollectionID != nil && *req.CollectionID != it.CollectionID {
		it.CollectionID = *req.CollectionID
		changed = true
	}
	if !changed {
		return it, nil
	}

	it.TouchAt(now)
	from, err := s.store.UpdateItem(ctx, it)
	if err != nil {
		return nil, storeError("update item", err)
	}

	if from != it.CollectionID {
		s.logger.Info("item moved", "item_id", itemID, "from", from, "to", it.CollectionID)
	} else {
		s.logger.Info("item updated", "item_id", itemID)
	}
	return it, nil
}

// Delete removes one of the owner's items.
func (s *ItemService) Delete(ctx context.Context, ownerID, itemID string) error {
	if err := s.store.DeleteItem(ctx, ownerID, itemID); err != nil {
		return storeError("delete item", err)
	}
	s.logger.Info("item deleted", "item_id", itemID)
	return nil
}

// List returns a page of the owner's items in creation order.
func (s *ItemService) List(ctx context.Context, ownerID string, req ListItemsRequest) (*store.PaginatedResult[domain.Item], error) {
	page, err := s.store.ListItems(ctx, ownerID, store.ItemListParams{
		PaginationParams: store.PaginationParams{Limit: req.Limit, Cursor: req.Cursor},
		UnassignedOnly:   req.Unassigned,
	})
	if err != nil {
		return nil, storeError("list items", err)
	}
	return page, nil
}

// newItem builds a validated request into a new item record.
func newItem(ownerID, collectionID string, req CreateItemRequest, now time.Time) (*domain.Item, error) {
	itemID, err := id.Generate(id.PrefixItem)
	if err != nil {
		return nil, fmt.Errorf("generate item ID: %w", err)
	}

	return &domain.Item{
		Syncable:     domain.Syncable{ID: itemID, CreatedAt: now, UpdatedAt: now},
		OwnerID:      ownerID,
		CollectionID: collectionID,
		Title:        req.Title,
		Number:       req.Number,
		Ownership:    req.Ownership,
		Progress:     req.Progress,
		ISBN:         req.ISBN,
		CoverURL:     req.CoverURL,
		Price:        req.Price,
		Rating:       req.Rating,
		PageCount:    req.PageCount,
		Notes:        req.Notes,
		ReleaseDate:  req.ReleaseDate,
		PurchasedAt:  req.PurchasedAt,
	}, nil
}

func (r *CreateItemRequest) normalize() {
	r.Title = normalize.Title(r.Title)
	r.ISBN = normalize.ISBN(r.ISBN)
	if r.Ownership == "" {
		r.Ownership = domain.OwnershipOwned
	}
	if r.Progress == "" {
		r.Progress = domain.ProgressUnread
	}
}

func normalizeItemPatch(p domain.ItemPatch) domain.ItemPatch {
	p.Title = mapPtr(p.Title, normalize.Title)
	p.ISBN = mapPtr(p.ISBN, normalize.ISBN)
	return p
}

func (s *ItemService) validateItemPatch(p domain.ItemPatch) error {
	checks := []struct {
		field string
		value any
		tag   string
		set   bool
	}{
		{"title", deref(p.Title), "required,max=500", p.Title != nil},
		{"number", deref(p.Number), "gte=0", p.Number != nil},
		{"ownership", string(deref(p.Ownership)), "ownership", p.Ownership != nil},
		{"progress", string(deref(p.Progress)), "progress", p.Progress != nil},
		{"isbn", deref(p.ISBN), "omitempty,isbn", p.ISBN != nil},
		{"cover_url", deref(p.CoverURL), "omitempty,http_url", p.CoverURL != nil},
		{"price", deref(p.Price), "gte=0", p.Price != nil},
		{"rating", deref(p.Rating), "gte=0,lte=10", p.Rating != nil},
		{"page_count", deref(p.PageCount), "gte=0", p.PageCount != nil},
		{"notes", deref(p.Notes), "max=10000", p.Notes != nil},
	}
	for _, c := range checks {
		if !c.set {
			continue
		}
		if err := s.validator.Var(c.field, c.value, c.tag); err != nil {
			return err
		}
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

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

// CollectionService manages an owner's collections.
type CollectionService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
	now       Clock
}

// NewCollectionService creates a collection service. A nil clock means time.Now.
func NewCollectionService(s *store.Store, v *validation.Validator, log *slog.Logger, clock Clock) *CollectionService {
	return &CollectionService{
		store:     s,
		validator: v,
		logger:    logger.OrDiscard(log),
		now:       clockOrNow(clock),
	}
}

// CreateCollectionRequest creates a collection, optionally with its first items.
type CreateCollectionRequest struct {
	Title       string                  `json:"title" validate:"required,max=500"`
	Creator     string                  `json:"creator,omitempty" validate:"max=500"`
	Description string                  `json:"description,omitempty" validate:"max=20000"`
	Category    string                  `json:"category,omitempty" validate:"max=100"`
	Tags        []string                `json:"tags,omitempty" validate:"max=50,dive,max=100"`
	Status      domain.CollectionStatus `json:"status,omitempty" validate:"collection_status"`
	Items       []CreateItemRequest     `json:"items,omitempty" validate:"max=1000,dive"`
}

// ListCollectionsRequest selects a page of collections.
type ListCollectionsRequest struct {
	Cursor    string
	Limit     int
	Sort      string
	Direction string
}

// Create stores a new collection owned by ownerID.
func (s *CollectionService) Create(ctx context.Context, ownerID string, req CreateCollectionRequest) (*domain.CollectionWithItems, error) {
	req.normalize()
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	collectionID, err := id.Generate(id.PrefixCollection)
	if err != nil {
		return nil, fmt.Errorf("generate collection ID: %w", err)
	}

	now := s.now()
	c := &domain.CollectionWithItems{
		Collection: domain.Collection{
			Syncable:    domain.Syncable{ID: collectionID, CreatedAt: now, UpdatedAt: now},
			OwnerID:     ownerID,
			Title:       req.Title,
			Creator:     req.Creator,
			Description: req.Description,
			Category:    req.Category,
			Tags:        domain.NormalizeTags(req.Tags),
			Status:      req.Status,
		},
		Items: make([]domain.Item, 0, len(req.Items)),
	}

	for i, itemReq := range req.Items {
		// Offset creation times so embedded items list in the order given.
		it, err := newItem(ownerID, collectionID, itemReq, now.Add(time.Duration(i)))
		if err != nil {
			return nil, err
		}
		c.Items = append(c.Items, *it)
	}

	if err := s.store.CreateCollection(ctx, c); err != nil {
		return nil, storeError("create collection", err)
	}

	s.logger.Info("collection created",
		"collection_id", collectionID,
		"owner_id", ownerID,
		"items", len(c.Items))
	return c, nil
}

// Get returns one of the owner's collections with its items.
func (s *CollectionService) Get(ctx context.Context, ownerID, collectionID string) (*domain.CollectionWithItems, error) {
	c, err := s.store.GetCollectionWithItems(ctx, ownerID, collectionID)
	if err != nil {
		return nil, storeError("get collection", err)
	}
	return c, nil
}

// Update merges patch into the owner's collection. An empty or no-op patch
// returns the stored collection unchanged.
func (s *CollectionService) Update(ctx context.Context, ownerID, collectionID string, patch domain.CollectionPatch) (*domain.Collection, error) {
	patch = normalizeCollectionPatch(patch)
	if err := s.validateCollectionPatch(patch); err != nil {
		return nil, err
	}

	c, err := s.store.GetCollection(ctx, ownerID, collectionID)
	if err != nil {
		return nil, storeError("get collection", err)
	}
	if !patch.ApplyTo(c) {
		return c, nil
	}

	c.TouchAt(s.now())
	if err := s.store.UpdateCollection(ctx, c); err != nil {
		return nil, storeError("update collection", err)
	}

	s.logger.Info("collection updated", "collection_id", collectionID)
	return c, nil
}

// Delete removes the owner's collection and its items, returning the
// deleted item IDs.
func (s *CollectionService) Delete(ctx context.Context, ownerID, collectionID string) ([]string, error) {
	itemIDs, err := s.store.DeleteCollection(ctx, ownerID, collectionID)
	if err != nil {
		return nil, storeError("delete collection", err)
	}

	s.logger.Info("collection deleted",
		"collection_id", collectionID,
		"items", len(itemIDs))
	return itemIDs, nil
}

// List returns a page of the owner's collections with their items.
func (s *CollectionService) List(ctx context.Context, ownerID string, req ListCollectionsRequest) (*store.PaginatedResult[domain.CollectionWithItems], error) {
	sort, err := store.ParseSortField(req.Sort)
	if err != nil {
		return nil, storeError("list collections", err)
	}
	dir, err := store.ParseDirection(req.Direction)
	if err != nil {
		return nil, storeError("list collections", err)
	}

	page, err := s.store.ListCollections(ctx, ownerID, store.CollectionListParams{
		PaginationParams: store.PaginationParams{Limit: req.Limit, Cursor: req.Cursor},
		Sort:             sort,
		Direction:        dir,
	})
	if err != nil {
		return nil, storeError("list collections", err)
	}
	return page, nil
}

func (r *CreateCollectionRequest) normalize() {
	r.Title = normalize.Title(r.Title)
	r.Creator = normalize.Title(r.Creator)
	r.Description = normalize.Description(r.Description)
	r.Category = normalize.Category(r.Category)
	for i := range r.Items {
		r.Items[i].normalize()
	}
}

func normalizeCollectionPatch(p domain.CollectionPatch) domain.CollectionPatch {
	p.Title = mapPtr(p.Title, normalize.Title)
	p.Creator = mapPtr(p.Creator, normalize.Title)
	p.Description = mapPtr(p.Description, normalize.Description)
	p.Category = mapPtr(p.Category, normalize.Category)
	return p
}

func (s *CollectionService) validateCollectionPatch(p domain.CollectionPatch) error {
	if p.Title != nil {
		if err := s.validator.Var("title", *p.Title, "required,max=500"); err != nil {
			return err
		}
	}
	if p.Creator != nil {
		if err := s.validator.Var("creator", *p.Creator, "max=500"); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := s.validator.Var("description", *p.Description, "max=20000"); err != nil {
			return err
		}
	}
	if p.Category != nil {
		if err := s.validator.Var("category", *p.Category, "max=100"); err != nil {
			return err
		}
	}
	if p.Tags != nil {
		if err := s.validator.Var("tags", *p.Tags, "max=50,dive,max=100"); err != nil {
			return err
		}
	}
	if p.Status != nil {
		if err := s.validator.Var("status", string(*p.Status), "collection_status"); err != nil {
			return err
		}
	}
	return nil
}

func mapPtr[T any](p *T, fn func(T) T) *T {
	if p == nil {
		return nil
	}
	v := fn(*p)
	return &v
}

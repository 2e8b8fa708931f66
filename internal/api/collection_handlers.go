package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/service"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

func (s *Server) registerCollectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCollections",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections",
		Summary:     "List collections",
		Description: "Returns a page of the user's collections with their items",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCollections)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCollection",
		Method:        http.MethodPost,
		Path:          "/api/v1/collections",
		Summary:       "Create collection",
		Description:   "Creates a collection, optionally with its first items",
		Tags:          []string{"Collections"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCollection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Get collection",
		Description: "Returns a collection with its items in order",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCollection",
		Method:      http.MethodPatch,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Update collection",
		Description: "Updates the provided collection fields",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCollection",
		Method:      http.MethodDelete,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Delete collection",
		Description: "Deletes a collection and every item filed under it",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteCollection)
}

// ListCollectionsInput contains parameters for listing collections.
type ListCollectionsInput struct {
	Authorization string `header:"Authorization"`
	Cursor        string `query:"cursor" doc:"Pagination cursor from a previous page"`
	Limit         int    `query:"limit" minimum:"0" maximum:"1000" doc:"Items per page (default 100)"`
	Sort          string `query:"sort" doc:"Sort field: title, created_at or updated_at"`
	Direction     string `query:"direction" doc:"Sort direction: asc or desc"`
}

// CollectionPageOutput wraps a page of collections for Huma.
type CollectionPageOutput struct {
	Body *store.PaginatedResult[domain.CollectionWithItems]
}

// CreateCollectionInput wraps the create collection request for Huma.
type CreateCollectionInput struct {
	Authorization string `header:"Authorization"`
	Body          service.CreateCollectionRequest
}

// CollectionWithItemsOutput wraps a collection and its items for Huma.
type CollectionWithItemsOutput struct {
	Body *domain.CollectionWithItems
}

// CollectionIDInput identifies a collection.
type CollectionIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection ID"`
}

// UpdateCollectionInput wraps the update collection request for Huma.
type UpdateCollectionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection ID"`
	Body          domain.CollectionPatch
}

// CollectionOutput wraps a collection without its items for Huma.
type CollectionOutput struct {
	Body *domain.Collection
}

// DeleteCollectionResponse lists what a cascade delete removed.
type DeleteCollectionResponse struct {
	ID             string   `json:"id" doc:"Deleted collection ID"`
	DeletedItemIDs []string `json:"deleted_item_ids" doc:"Items deleted with the collection"`
}

// DeleteCollectionOutput wraps the delete response for Huma.
type DeleteCollectionOutput struct {
	Body DeleteCollectionResponse
}

func (s *Server) handleListCollections(ctx context.Context, input *ListCollectionsInput) (*CollectionPageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Collections.List(ctx, userID, service.ListCollectionsRequest{
		Cursor:    input.Cursor,
		Limit:     input.Limit,
		Sort:      input.Sort,
		Direction: input.Direction,
	})
	if err != nil {
		return nil, err
	}
	return &CollectionPageOutput{Body: page}, nil
}

func (s *Server) handleCreateCollection(ctx context.Context, input *CreateCollectionInput) (*CollectionWithItemsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.services.Collections.Create(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &CollectionWithItemsOutput{Body: c}, nil
}

func (s *Server) handleGetCollection(ctx context.Context, input *CollectionIDInput) (*CollectionWithItemsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.services.Collections.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &CollectionWithItemsOutput{Body: c}, nil
}

func (s *Server) handleUpdateCollection(ctx context.Context, input *UpdateCollectionInput) (*CollectionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.services.Collections.Update(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: c}, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, input *CollectionIDInput) (*DeleteCollectionOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	itemIDs, err := s.services.Collections.Delete(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	if itemIDs == nil {
		itemIDs = []string{}
	}
	return &DeleteCollectionOutput{Body: DeleteCollectionResponse{ID: input.ID, DeletedItemIDs: itemIDs}}, nil
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/service"
	"github.com/shelfkeeper/shelfkeeper/internal/store"
)

func (s *Server) registerItemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List items",
		Description: "Returns a page of the user's items in creation order",
		Tags:        []string{"Items"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createItem",
		Method:        http.MethodPost,
		Path:          "/api/v1/items",
		Summary:       "Create item",
		Description:   "Creates an item, filed under collection_id when given",
		Tags:          []string{"Items"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateItem",
		Method:      http.MethodPatch,
		Path:        "/api/v1/items/{id}",
		Summary:     "Update item",
		Description: "Updates the provided item fields; collection_id re-files the item",
		Tags:        []string{"Items"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteItem",
		Method:      http.MethodDelete,
		Path:        "/api/v1/items/{id}",
		Summary:     "Delete item",
		Description: "Deletes an item and removes it from its collection",
		Tags:        []string{"Items"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteItem)
}

// ListItemsInput contains parameters for listing items.
type ListItemsInput struct {
	Authorization string `header:"Authorization"`
	Cursor        string `query:"cursor" doc:"Pagination cursor from a previous page"`
	Limit         int    `query:"limit" minimum:"0" maximum:"1000" doc:"Items per page (default 100)"`
	Unassigned    bool   `query:"unassigned" doc:"Only items not filed under a collection"`
}

// ItemPageOutput wraps a page of items for Huma.
type ItemPageOutput struct {
	Body *store.PaginatedResult[domain.Item]
}

// CreateItemInput wraps the create item request for Huma.
type CreateItemInput struct {
	Authorization string `header:"Authorization"`
	Body          service.CreateItemRequest
}

// UpdateItemBody is an item patch plus an optional re-filing.
type UpdateItemBody struct {
	domain.ItemPatch
	CollectionID *string `json:"collection_id,omitempty" doc:"Collection to file the item under; empty un-assigns it"`
}

// UpdateItemInput wraps the update item request for Huma.
type UpdateItemInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Item ID"`
	Body          UpdateItemBody
}

// ItemIDInput identifies an item.
type ItemIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Item ID"`
}

// ItemOutput wraps an item for Huma.
type ItemOutput struct {
	Body *domain.Item
}

// DeleteItemResponse confirms an item deletion.
type DeleteItemResponse struct {
	ID string `json:"id" doc:"Deleted item ID"`
}

// DeleteItemOutput wraps the delete response for Huma.
type DeleteItemOutput struct {
	Body DeleteItemResponse
}

func (s *Server) handleListItems(ctx context.Context, input *ListItemsInput) (*ItemPageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Items.List(ctx, userID, service.ListItemsRequest{
		Cursor:     input.Cursor,
		Limit:      input.Limit,
		Unassigned: input.Unassigned,
	})
	if err != nil {
		return nil, err
	}
	return &ItemPageOutput{Body: page}, nil
}

func (s *Server) handleCreateItem(ctx context.Context, input *CreateItemInput) (*ItemOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	it, err := s.services.Items.Create(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &ItemOutput{Body: it}, nil
}

func (s *Server) handleUpdateItem(ctx context.Context, input *UpdateItemInput) (*ItemOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	it, err := s.services.Items.Update(ctx, userID, input.ID, service.UpdateItemRequest{
		Patch:        input.Body.ItemPatch,
		CollectionID: input.Body.CollectionID,
	})
	if err != nil {
		return nil, err
	}
	return &ItemOutput{Body: it}, nil
}

func (s *Server) handleDeleteItem(ctx context.Context, input *ItemIDInput) (*DeleteItemOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Items.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &DeleteItemOutput{Body: DeleteItemResponse{ID: input.ID}}, nil
}

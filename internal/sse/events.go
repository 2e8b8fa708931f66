// Package sse streams collection and item changes to the owner's connected
// clients as Server-Sent Events.
package sse

import (
	"time"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

// EventType is the SSE event name.
type EventType string

const (
	EventCollectionCreated EventType = "collection.created"
	EventCollectionUpdated EventType = "collection.updated"
	EventCollectionDeleted EventType = "collection.deleted"

	EventItemCreated EventType = "item.created"
	EventItemUpdated EventType = "item.updated"
	// EventItemMoved is sent when an item changes collection, including to
	// and from the unassigned list.
	EventItemMoved   EventType = "item.moved"
	EventItemDeleted EventType = "item.deleted"

	// EventHeartbeat keeps idle connections open.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message on the stream. UserID scopes delivery and is never
// sent to the client.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	UserID    string    `json:"-"`
}

// CollectionEventData carries a created or updated collection.
type CollectionEventData struct {
	Collection *domain.Collection `json:"collection"`
}

// CollectionDeletedEventData carries a deleted collection and the items
// removed with it.
type CollectionDeletedEventData struct {
	DeletedAt    time.Time `json:"deleted_at"`
	CollectionID string    `json:"collection_id"`
	ItemIDs      []string  `json:"item_ids"`
}

// ItemEventData carries a created or updated item.
type ItemEventData struct {
	Item *domain.Item `json:"item"`
}

// ItemMovedEventData carries a re-filed item and where it came from.
type ItemMovedEventData struct {
	Item           *domain.Item `json:"item"`
	FromCollection string       `json:"from_collection_id,omitempty"`
}

// ItemDeletedEventData carries a deleted item.
type ItemDeletedEventData struct {
	DeletedAt    time.Time `json:"deleted_at"`
	ItemID       string    `json:"item_id"`
	CollectionID string    `json:"collection_id,omitempty"`
}

// HeartbeatEventData carries the server clock.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newEvent(t EventType, userID string, data any) Event {
	return Event{Type: t, UserID: userID, Data: data, Timestamp: time.Now()}
}

// NewCollectionCreatedEvent creates a collection.created event for the owner.
func NewCollectionCreatedEvent(c *domain.Collection) Event {
	return newEvent(EventCollectionCreated, c.OwnerID, CollectionEventData{Collection: c})
}

// NewCollectionUpdatedEvent creates a collection.updated event for the owner.
func NewCollectionUpdatedEvent(c *domain.Collection) Event {
	return newEvent(EventCollectionUpdated, c.OwnerID, CollectionEventData{Collection: c})
}

// NewCollectionDeletedEvent creates a collection.deleted event.
func NewCollectionDeletedEvent(ownerID, collectionID string, itemIDs []string, deletedAt time.Time) Event {
	return newEvent(EventCollectionDeleted, ownerID, CollectionDeletedEventData{
		DeletedAt:    deletedAt,
		CollectionID: collectionID,
		ItemIDs:      itemIDs,
	})
}

// NewItemCreatedEvent creates an item.created event for the owner.
func NewItemCreatedEvent(item *domain.Item) Event {
	return newEvent(EventItemCreated, item.OwnerID, ItemEventData{Item: item})
}

// NewItemUpdatedEvent creates an item.updated event for the owner.
func NewItemUpdatedEvent(item *domain.Item) Event {
	return newEvent(EventItemUpdated, item.OwnerID, ItemEventData{Item: item})
}

// NewItemMovedEvent creates an item.moved event for the owner.
func NewItemMovedEvent(item *domain.Item, from string) Event {
	return newEvent(EventItemMoved, item.OwnerID, ItemMovedEventData{Item: item, FromCollection: from})
}

// NewItemDeletedEvent creates an item.deleted event.
func NewItemDeletedEvent(ownerID, itemID, collectionID string, deletedAt time.Time) Event {
	return newEvent(EventItemDeleted, ownerID, ItemDeletedEventData{
		DeletedAt:    deletedAt,
		ItemID:       itemID,
		CollectionID: collectionID,
	})
}

// NewHeartbeatEvent creates a heartbeat for every client.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{Type: EventHeartbeat, Data: HeartbeatEventData{ServerTime: now}, Timestamp: now}
}

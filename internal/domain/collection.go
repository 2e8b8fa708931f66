package domain

import (
	"slices"
	"strings"
)

// Collection is a series: a titled grouping of items owned by one user.
// ItemIDs is derived from the items filed under the collection; records in
// normalized storage never embed the items themselves.
type Collection struct {
	Syncable
	OwnerID     string           `json:"owner_id"`
	Title       string           `json:"title"`
	Creator     string           `json:"creator,omitempty"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Status      CollectionStatus `json:"status,omitempty"`
	ItemIDs     []string         `json:"item_ids"`
}

// CollectionWithItems is a collection with its items embedded, in item-list order.
// It is the shape of the paginated collection listing and of the open projection.
type CollectionWithItems struct {
	Collection
	Items []Item `json:"items"`
}

// Clone returns a deep copy.
func (c Collection) Clone() Collection {
	c.Tags = slices.Clone(c.Tags)
	c.ItemIDs = slices.Clone(c.ItemIDs)
	if c.DeletedAt != nil {
		t := *c.DeletedAt
		c.DeletedAt = &t
	}
	return c
}

// Clone returns a deep copy.
func (c CollectionWithItems) Clone() CollectionWithItems {
	out := CollectionWithItems{Collection: c.Collection.Clone()}
	if c.Items != nil {
		out.Items = make([]Item, len(c.Items))
		for i := range c.Items {
			out.Items[i] = c.Items[i].Clone()
		}
	}
	return out
}

// AddItem appends an item ID if not already present.
func (c *Collection) AddItem(itemID string) bool {
	if slices.Contains(c.ItemIDs, itemID) {
		return false
	}
	c.ItemIDs = append(c.ItemIDs, itemID)
	return true
}

// RemoveItem removes an item ID, keeping the order of the rest.
func (c *Collection) RemoveItem(itemID string) bool {
	i := slices.Index(c.ItemIDs, itemID)
	if i < 0 {
		return false
	}
	c.ItemIDs = slices.Delete(c.ItemIDs, i, i+1)
	return true
}

// ContainsItem reports whether the item ID is filed under this collection.
func (c *Collection) ContainsItem(itemID string) bool {
	return slices.Contains(c.ItemIDs, itemID)
}

// NormalizeTags trims tags and drops empty and case-insensitive duplicates,
// keeping the first spelling.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

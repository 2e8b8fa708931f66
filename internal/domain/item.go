package domain

import (
	"time"
)

// Item is a single tracked volume. CollectionID is empty when the item is unassigned.
type Item struct {
	Syncable
	OwnerID      string          `json:"owner_id"`
	CollectionID string          `json:"collection_id,omitempty"`
	Title        string          `json:"title"`
	Number       float64         `json:"number"` // Volume number; fractional for specials (e.g. 4.5)
	Ownership    OwnershipStatus `json:"ownership"`
	Progress     ProgressStatus  `json:"progress"`

	ISBN      string   `json:"isbn,omitempty"`
	CoverURL  string   `json:"cover_url,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Rating    *float64 `json:"rating,omitempty"` // 0 to 10
	PageCount *int     `json:"page_count,omitempty"`
	Notes     string   `json:"notes,omitempty"`

	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	PurchasedAt     *time.Time `json:"purchased_at,omitempty"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
}

// IsUnassigned reports whether the item is not filed under any collection.
func (i *Item) IsUnassigned() bool {
	return i.CollectionID == ""
}

// HasCover reports whether a cover image is recorded.
func (i *Item) HasCover() bool {
	return i.CoverURL != ""
}

// HasExternalID reports whether an external identifier (ISBN) is recorded.
func (i *Item) HasExternalID() bool {
	return i.ISBN != ""
}

// Clone returns a deep copy.
func (i Item) Clone() Item {
	i.Price = clonePtr(i.Price)
	i.Rating = clonePtr(i.Rating)
	i.PageCount = clonePtr(i.PageCount)
	i.ReleaseDate = clonePtr(i.ReleaseDate)
	i.PurchasedAt = clonePtr(i.PurchasedAt)
	i.StatusChangedAt = clonePtr(i.StatusChangedAt)
	i.DeletedAt = clonePtr(i.DeletedAt)
	return i
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

package apiclient

import (
	"time"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

// Request bodies use omitzero so that set-but-empty values (a cleared note,
// an emptied tag list, an empty collection ID) still reach the server.

type createCollectionBody struct {
	Title       string                  `json:"title"`
	Creator     string                  `json:"creator,omitzero"`
	Description string                  `json:"description,omitzero"`
	Category    string                  `json:"category,omitzero"`
	Tags        []string                `json:"tags,omitzero"`
	Status      domain.CollectionStatus `json:"status,omitzero"`
	Items       []createItemBody        `json:"items,omitzero"`
}

type createItemBody struct {
	CollectionID string                 `json:"collection_id,omitzero"`
	Title        string                 `json:"title"`
	Number       float64                `json:"number"`
	Ownership    domain.OwnershipStatus `json:"ownership,omitzero"`
	Progress     domain.ProgressStatus  `json:"progress,omitzero"`
	ISBN         string                 `json:"isbn,omitzero"`
	CoverURL     string                 `json:"cover_url,omitzero"`
	Price        *float64               `json:"price,omitzero"`
	Rating       *float64               `json:"rating,omitzero"`
	PageCount    *int                   `json:"page_count,omitzero"`
	Notes        string                 `json:"notes,omitzero"`
	ReleaseDate  *time.Time             `json:"release_date,omitzero"`
	PurchasedAt  *time.Time             `json:"purchased_at,omitzero"`
}

func newCreateItemBody(it *domain.Item, collectionID string) createItemBody {
	return createItemBody{
		CollectionID: collectionID,
		Title:        it.Title,
		Number:       it.Number,
		Ownership:    it.Ownership,
		Progress:     it.Progress,
		ISBN:         it.ISBN,
		CoverURL:     it.CoverURL,
		Price:        it.Price,
		Rating:       it.Rating,
		PageCount:    it.PageCount,
		Notes:        it.Notes,
		ReleaseDate:  it.ReleaseDate,
		PurchasedAt:  it.PurchasedAt,
	}
}

type collectionPatchWire struct {
	Title       *string                  `json:"title,omitzero"`
	Creator     *string                  `json:"creator,omitzero"`
	Description *string                  `json:"description,omitzero"`
	Category    *string                  `json:"category,omitzero"`
	Tags        *[]string                `json:"tags,omitzero"`
	Status      *domain.CollectionStatus `json:"status,omitzero"`
}

func collectionPatchBody(p domain.CollectionPatch) collectionPatchWire {
	w := collectionPatchWire(p)
	if w.Tags != nil && *w.Tags == nil {
		empty := []string{}
		w.Tags = &empty
	}
	return w
}

type itemPatchWire struct {
	CollectionID *string                 `json:"collection_id,omitzero"`
	Title        *string                 `json:"title,omitzero"`
	Number       *float64                `json:"number,omitzero"`
	Ownership    *domain.OwnershipStatus `json:"ownership,omitzero"`
	Progress     *domain.ProgressStatus  `json:"progress,omitzero"`
	ISBN         *string                 `json:"isbn,omitzero"`
	CoverURL     *string                 `json:"cover_url,omitzero"`
	Price        *float64                `json:"price,omitzero"`
	Rating       *float64                `json:"rating,omitzero"`
	PageCount    *int                    `json:"page_count,omitzero"`
	Notes        *string                 `json:"notes,omitzero"`
	ReleaseDate  *time.Time              `json:"release_date,omitzero"`
	PurchasedAt  *time.Time              `json:"purchased_at,omitzero"`

	ClearPrice     bool `json:"clear_price,omitzero"`
	ClearRating    bool `json:"clear_rating,omitzero"`
	ClearPageCount bool `json:"clear_page_count,omitzero"`
}

func newItemPatchBody(p domain.ItemPatch, collectionID *string) itemPatchWire {
	return itemPatchWire{
		CollectionID:   collectionID,
		Title:          p.Title,
		Number:         p.Number,
		Ownership:      p.Ownership,
		Progress:       p.Progress,
		ISBN:           p.ISBN,
		CoverURL:       p.CoverURL,
		Price:          p.Price,
		Rating:         p.Rating,
		PageCount:      p.PageCount,
		Notes:          p.Notes,
		ReleaseDate:    p.ReleaseDate,
		PurchasedAt:    p.PurchasedAt,
		ClearPrice:     p.ClearPrice,
		ClearRating:    p.ClearRating,
		ClearPageCount: p.ClearPageCount,
	}
}

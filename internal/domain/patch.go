package domain

import (
	"slices"
	"time"
)

// CollectionPatch is a partial update. Nil fields are left untouched.
type CollectionPatch struct {
	Title       *string           `json:"title,omitempty"`
	Creator     *string           `json:"creator,omitempty"`
	Description *string           `json:"description,omitempty"`
	Category    *string           `json:"category,omitempty"`
	Tags        *[]string         `json:"tags,omitempty"`
	Status      *CollectionStatus `json:"status,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (p CollectionPatch) IsEmpty() bool {
	return p.Title == nil && p.Creator == nil && p.Description == nil &&
		p.Category == nil && p.Tags == nil && p.Status == nil
}

// ApplyTo merges the provided fields into c and reports whether anything changed.
func (p CollectionPatch) ApplyTo(c *Collection) bool {
	changed := false
	changed = setIfDiff(&c.Title, p.Title) || changed
	changed = setIfDiff(&c.Creator, p.Creator) || changed
	changed = setIfDiff(&c.Description, p.Description) || changed
	changed = setIfDiff(&c.Category, p.Category) || changed
	changed = setIfDiff(&c.Status, p.Status) || changed
	if p.Tags != nil {
		tags := NormalizeTags(*p.Tags)
		if !slices.Equal(tags, c.Tags) {
			c.Tags = tags
			changed = true
		}
	}
	return changed
}

// ItemPatch is a partial update. Nil fields are left untouched; the Clear
// flags null an optional scalar and win over a value in the same patch.
type ItemPatch struct {
	Title       *string          `json:"title,omitempty"`
	Number      *float64         `json:"number,omitempty"`
	Ownership   *OwnershipStatus `json:"ownership,omitempty"`
	Progress    *ProgressStatus  `json:"progress,omitempty"`
	ISBN        *string          `json:"isbn,omitempty"`
	CoverURL    *string          `json:"cover_url,omitempty"`
	Price       *float64         `json:"price,omitempty"`
	Rating      *float64         `json:"rating,omitempty"`
	PageCount   *int             `json:"page_count,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	ReleaseDate *time.Time       `json:"release_date,omitempty"`
	PurchasedAt *time.Time       `json:"purchased_at,omitempty"`

	ClearPrice     bool `json:"clear_price,omitempty"`
	ClearRating    bool `json:"clear_rating,omitempty"`
	ClearPageCount bool `json:"clear_page_count,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (p ItemPatch) IsEmpty() bool {
	return p.Title == nil && p.Number == nil && p.Ownership == nil && p.Progress == nil &&
		p.ISBN == nil && p.CoverURL == nil && p.Price == nil && p.Rating == nil &&
		p.PageCount == nil && p.Notes == nil && p.ReleaseDate == nil && p.PurchasedAt == nil &&
		!p.ClearPrice && !p.ClearRating && !p.ClearPageCount
}

// ApplyTo merges the provided fields into item and reports whether anything changed.
// A change of ownership or progress stamps StatusChangedAt with now.
func (p ItemPatch) ApplyTo(item *Item, now time.Time) bool {
	changed := false
	statusChanged := false

	changed = setIfDiff(&item.Title, p.Title) || changed
	changed = setIfDiff(&item.Number, p.Number) || changed
	if setIfDiff(&item.Ownership, p.Ownership) {
		statusChanged = true
	}
	if setIfDiff(&item.Progress, p.Progress) {
		statusChanged = true
	}
	changed = setIfDiff(&item.ISBN, p.ISBN) || changed
	changed = setIfDiff(&item.CoverURL, p.CoverURL) || changed
	changed = setIfDiff(&item.Notes, p.Notes) || changed

	changed = setOptional(&item.Price, p.Price, p.ClearPrice) || changed
	changed = setOptional(&item.Rating, p.Rating, p.ClearRating) || changed
	changed = setOptional(&item.PageCount, p.PageCount, p.ClearPageCount) || changed
	changed = setOptional(&item.ReleaseDate, p.ReleaseDate, false) || changed
	changed = setOptional(&item.PurchasedAt, p.PurchasedAt, false) || changed

	if statusChanged {
		t := now
		item.StatusChangedAt = &t
		changed = true
	}
	return changed
}

func setIfDiff[T comparable](dst *T, src *T) bool {
	if src == nil || *dst == *src {
		return false
	}
	*dst = *src
	return true
}

func setOptional[T comparable](dst **T, src *T, unset bool) bool {
	if unset {
		if *dst == nil {
			return false
		}
		*dst = nil
		return true
	}
	if src == nil {
		return false
	}
	if *dst != nil && **dst == *src {
		return false
	}
	v := *src
	*dst = &v
	return true
}

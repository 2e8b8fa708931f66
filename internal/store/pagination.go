package store

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // Items per page; defaults to 100, capped at 1000
	Cursor string // Opaque cursor for the next page (empty for the first page)
}

// PaginatedResult contains one page and its metadata.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"` // Empty when there are no more pages
	HasMore    bool   `json:"has_more"`
	Total      int    `json:"total"`
}

// DefaultPaginationParams returns the first page with the default limit.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{Limit: defaultPageLimit}
}

// Validate clamps the limit into range.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
}

// SortField orders collection listings.
type SortField string

const (
	SortByTitle     SortField = "title"
	SortByCreatedAt SortField = "created_at"
	SortByUpdatedAt SortField = "updated_at"
)

// ParseSortField maps a wire name to a SortField; "" means title.
func ParseSortField(s string) (SortField, error) {
	switch SortField(s) {
	case "", SortByTitle:
		return SortByTitle, nil
	case SortByCreatedAt, SortByUpdatedAt:
		return SortField(s), nil
	default:
		return "", ErrInvalidInput.WithMessage(fmt.Sprintf("unknown sort field %q", s))
	}
}

// Direction is the listing direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseDirection maps a wire name to a Direction; "" means ascending.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	default:
		return "", ErrInvalidInput.WithMessage(fmt.Sprintf("unknown direction %q", s))
	}
}

// CollectionListParams selects a page of collections.
type CollectionListParams struct {
	PaginationParams
	Sort      SortField
	Direction Direction
}

// ItemListParams selects a page of items in creation order.
type ItemListParams struct {
	PaginationParams
	UnassignedOnly bool
}

// EncodeCursor creates an opaque cursor from an index key.
func EncodeCursor(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(key)
}

// DecodeCursor decodes a cursor back to an index key.
func DecodeCursor(cursor string) ([]byte, error) {
	if cursor == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor.WithCause(err)
	}
	return decoded, nil
}

// indexPage is one page of IDs read from an index scope.
type indexPage struct {
	ids     []string
	lastKey []byte
	hasMore bool
}

// pageIndex walks the index keys under scope, starting after cursor, and
// collects up to limit entity IDs. A cursor from another scope is rejected.
func pageIndex(txn *badger.Txn, scope string, cursor []byte, limit int, reverse bool) (indexPage, error) {
	prefix := []byte(scope)
	if cursor != nil && !bytes.HasPrefix(cursor, prefix) {
		return indexPage{}, ErrInvalidCursor
	}

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	opts.Reverse = reverse

	it := txn.NewIterator(opts)
	defer it.Close()

	switch {
	case cursor != nil:
		it.Seek(cursor)
		if it.Valid() && bytes.Equal(it.Item().Key(), cursor) {
			it.Next()
		}
	case reverse:
		// Seek lands on the last key <= target in reverse mode.
		it.Seek(append(bytes.Clone(prefix), 0xFF))
	default:
		it.Seek(prefix)
	}

	var page indexPage
	for ; it.ValidForPrefix(prefix); it.Next() {
		if len(page.ids) == limit {
			page.hasMore = true
			break
		}
		key := it.Item().KeyCopy(nil)
		id, err := idFromIndexKey(key)
		if err != nil {
			return indexPage{}, err
		}
		page.ids = append(page.ids, id)
		page.lastKey = key
	}
	return page, nil
}

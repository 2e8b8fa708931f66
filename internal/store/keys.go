package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/normalize"
)

// Key layout:
//
//	collection:{id}                                  collection record
//	item:{id}                                        item record
//	idx:collections:{sort}:{owner}:{value}\x00{id}   listing order per sort field
//	idx:items:owner:{owner}:{created}\x00{id}        every item of an owner
//	idx:items:unassigned:{owner}:{created}\x00{id}   items without a collection
//
// Index keys end with a NUL and the entity ID so the ID can be read back
// from the key alone.
const (
	collectionPrefix = "collection:"
	itemPrefix       = "item:"

	collectionIndexPrefix = "idx:collections:"
	itemsByOwnerPrefix    = "idx:items:owner:"
	itemsUnassignedPrefix = "idx:items:unassigned:"

	idSeparator = '\x00'
)

func collectionKey(id string) []byte { return []byte(collectionPrefix + id) }

func itemKey(id string) []byte { return []byte(itemPrefix + id) }

// collectionIndexScope is the prefix of one owner's entries for a sort field.
func collectionIndexScope(field SortField, ownerID string) string {
	return collectionIndexPrefix + string(field) + ":" + ownerID + ":"
}

func itemScope(prefix, ownerID string) string {
	return prefix + ownerID + ":"
}

func indexKey(scope, value, id string) []byte {
	buf := make([]byte, 0, len(scope)+len(value)+1+len(id))
	buf = append(buf, scope...)
	buf = append(buf, value...)
	buf = append(buf, idSeparator)
	buf = append(buf, id...)
	return buf
}

// idFromIndexKey returns the entity ID encoded after the last NUL.
func idFromIndexKey(key []byte) (string, error) {
	s := string(key)
	i := strings.LastIndexByte(s, idSeparator)
	if i < 0 || i == len(s)-1 {
		return "", fmt.Errorf("malformed index key %q", s)
	}
	return s[i+1:], nil
}

// formatTimestamp renders t with fixed-width nanoseconds so keys sort
// chronologically.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + fmt.Sprintf(".%09d", t.Nanosecond()) + "Z"
}

// titleSortValue folds the title for case- and accent-insensitive ordering.
func titleSortValue(title string) string {
	return strings.ReplaceAll(normalize.Fold(title), string(idSeparator), "")
}

// collectionIndexKeys returns the listing keys for c under every sort field.
func collectionIndexKeys(c *domain.Collection) [][]byte {
	return [][]byte{
		indexKey(collectionIndexScope(SortByTitle, c.OwnerID), titleSortValue(c.Title), c.ID),
		indexKey(collectionIndexScope(SortByCreatedAt, c.OwnerID), formatTimestamp(c.CreatedAt), c.ID),
		indexKey(collectionIndexScope(SortByUpdatedAt, c.OwnerID), formatTimestamp(c.UpdatedAt), c.ID),
	}
}

func itemOwnerKey(it *domain.Item) []byte {
	return indexKey(itemScope(itemsByOwnerPrefix, it.OwnerID), formatTimestamp(it.CreatedAt), it.ID)
}

func itemUnassignedKey(it *domain.Item) []byte {
	return indexKey(itemScope(itemsUnassignedPrefix, it.OwnerID), formatTimestamp(it.CreatedAt), it.ID)
}

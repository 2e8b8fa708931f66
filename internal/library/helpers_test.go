package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func coll(id, title string, tags ...string) domain.Collection {
	return domain.Collection{
		Syncable: domain.Syncable{ID: id},
		Title:    title,
		Tags:     tags,
	}
}

func item(id string, ownership domain.OwnershipStatus) domain.Item {
	return domain.Item{
		Syncable:  domain.Syncable{ID: id},
		Title:     "Volume " + id,
		Ownership: ownership,
		Progress:  domain.ProgressUnread,
	}
}

// setupScenario builds S1 {v1 owned, v2 wishlist}, S2 {v3 owned, with ISBN}
// and the unassigned item v4.
func setupScenario(t *testing.T) *Store {
	t.Helper()

	v3 := item("v3", domain.OwnershipOwned)
	v3.ISBN = "9781593070205"

	s := NewStore()
	s.ReplaceCollections([]domain.CollectionWithItems{
		{
			Collection: domain.Collection{
				Syncable: domain.Syncable{ID: "S1"},
				Title:    "Berserk",
				Creator:  "Kentaro Miura",
				Category: "manga",
				Tags:     []string{"dark fantasy", "seinen"},
				Status:   domain.CollectionStatusHiatus,
			},
			Items: []domain.Item{item("v1", domain.OwnershipOwned), item("v2", domain.OwnershipWishlist)},
		},
		{
			Collection: domain.Collection{
				Syncable: domain.Syncable{ID: "S2"},
				Title:    "Monster",
				Creator:  "Naoki Urasawa",
				Category: "manga",
				Tags:     []string{"thriller", "seinen"},
				Status:   domain.CollectionStatusCompleted,
			},
			Items: []domain.Item{v3},
		},
	})
	s.ReplaceUnassignedItems([]domain.Item{item("v4", domain.OwnershipOwned)})

	require.NoError(t, s.CheckInvariants())
	return s
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

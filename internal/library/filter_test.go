package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
)

func visibleCollections(v *View) []string {
	return v.CollectionOrder
}

func TestFilter_Scenario(t *testing.T) {
	s := setupScenario(t)

	v := s.View(Query{Filter: Filter{Ownership: domain.OwnershipWishlist}})
	assert.Equal(t, []string{"S1"}, visibleCollections(v))

	v = s.View(Query{Filter: Filter{ExternalID: CompletenessMissing}})
	assert.Equal(t, []string{"S1"}, visibleCollections(v))

	v = s.View(Query{Filter: Filter{ExternalID: CompletenessHas}})
	assert.Equal(t, []string{"S2"}, visibleCollections(v))
}

func TestFilter_CollectionChecks(t *testing.T) {
	s := setupScenario(t)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "zero filter", filter: Filter{}, want: []string{"S1", "S2"}},
		{name: "search title", filter: Filter{Search: "BERSERK"}, want: []string{"S1"}},
		{name: "search creator", filter: Filter{Search: "urasawa"}, want: []string{"S2"}},
		{name: "search misses", filter: Filter{Search: "pluto"}, want: nil},
		{name: "category catch-all", filter: Filter{Category: "All"}, want: []string{"S1", "S2"}},
		{name: "category exact", filter: Filter{Category: "Manga"}, want: []string{"S1", "S2"}},
		{name: "category other", filter: Filter{Category: "light novel"}, want: nil},
		{name: "collection status", filter: Filter{CollectionStatus: domain.CollectionStatusCompleted}, want: []string{"S2"}},
		{name: "progress any item", filter: Filter{Progress: domain.ProgressUnread}, want: []string{"S1", "S2"}},
		{name: "progress none", filter: Filter{Progress: domain.ProgressRead}, want: nil},
		{name: "include tags conjunctive", filter: Filter{IncludeTags: []string{"Seinen", "thriller"}}, want: []string{"S2"}},
		{name: "include tag shared", filter: Filter{IncludeTags: []string{"seinen"}}, want: []string{"S1", "S2"}},
		{name: "exclude any tag", filter: Filter{ExcludeTags: []string{"thriller", "nothing"}}, want: []string{"S1"}},
		{name: "cover missing everywhere", filter: Filter{Cover: CompletenessMissing}, want: []string{"S1", "S2"}},
		{name: "cover has none", filter: Filter{Cover: CompletenessHas}, want: nil},
		{name: "scope", filter: Filter{Scope: NewIDSet("v2", "v4")}, want: []string{"S1"}},
		{name: "empty scope", filter: Filter{Scope: NewIDSet()}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := s.View(Query{Filter: tt.filter})
			assert.Equal(t, tt.want, visibleCollections(v))
		})
	}
}

func TestMatchItem_UsesOwner(t *testing.T) {
	owner := domain.Collection{Title: "Vinland Saga", Category: "manga", Tags: []string{"historical"}}
	v := domain.Item{Syncable: domain.Syncable{ID: "i1"}, Title: "Volume 4", Number: 4, ISBN: "978-1-61262-420-4", Ownership: domain.OwnershipOwned}

	assert.True(t, MatchItem(v, &owner, Filter{Search: "vinland"}), "owner fields are searched")
	assert.True(t, MatchItem(v, &owner, Filter{Search: "9781612624204"}), "ISBN matches without hyphens")
	assert.True(t, MatchItem(v, &owner, Filter{Search: "4"}), "volume number matches")
	assert.True(t, MatchItem(v, &owner, Filter{IncludeTags: []string{"Historical"}}))
	assert.False(t, MatchItem(v, &owner, Filter{Ownership: domain.OwnershipWishlist}))
	assert.True(t, MatchItem(v, &owner, Filter{ExternalID: CompletenessHas}))

	// Unassigned items have no collection-level fields to match.
	assert.False(t, MatchItem(v, nil, Filter{Category: "manga"}))
	assert.False(t, MatchItem(v, nil, Filter{CollectionStatus: domain.CollectionStatusOngoing}))
	assert.False(t, MatchItem(v, nil, Filter{IncludeTags: []string{"historical"}}))
	assert.True(t, MatchItem(v, nil, Filter{ExcludeTags: []string{"historical"}}))
	assert.True(t, MatchItem(v, nil, Filter{Category: CategoryAll}))
	assert.False(t, MatchItem(v, nil, Filter{Search: "vinland"}))
}

func TestMatchItem_VolumeNumberIsExact(t *testing.T) {
	vol := func(n float64) domain.Item {
		return domain.Item{Syncable: domain.Syncable{ID: "i"}, Title: "Untitled", Number: n}
	}

	assert.True(t, MatchItem(vol(1), nil, Filter{Search: "1"}))
	assert.True(t, MatchItem(vol(1), nil, Filter{Search: " 1.0 "}))
	assert.True(t, MatchItem(vol(1.5), nil, Filter{Search: "1.5"}))
	for _, n := range []float64{10, 11, 21, 1.5} {
		assert.False(t, MatchItem(vol(n), nil, Filter{Search: "1"}), "volume %v", n)
	}
}

func TestMatchCollection_EmptyCollection(t *testing.T) {
	c := domain.Collection{Title: "Placeholder"}

	assert.True(t, MatchCollection(c, nil, Filter{Cover: CompletenessMissing}))
	assert.False(t, MatchCollection(c, nil, Filter{Cover: CompletenessHas}))
	assert.False(t, MatchCollection(c, nil, Filter{Ownership: domain.OwnershipOwned}))
}

// permutations returns every ordering of checks.
func permutations(checks []Check) [][]Check {
	if len(checks) <= 1 {
		return [][]Check{append([]Check(nil), checks...)}
	}
	var out [][]Check
	for i := range checks {
		rest := make([]Check, 0, len(checks)-1)
		rest = append(rest, checks[:i]...)
		rest = append(rest, checks[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]Check{checks[i]}, p...))
		}
	}
	return out
}

func TestFilter_OrderIndependent(t *testing.T) {
	s := setupScenario(t)
	collections := s.Collections()
	unassigned := s.Unassigned()

	filters := []Filter{
		{},
		{Ownership: domain.OwnershipWishlist, ExternalID: CompletenessMissing},
		{Search: "miura", IncludeTags: []string{"seinen"}},
		{Category: "manga", ExcludeTags: []string{"dark fantasy"}, Scope: NewIDSet("v3")},
		{CollectionStatus: domain.CollectionStatusHiatus, Progress: domain.ProgressUnread, Cover: CompletenessMissing},
		{Search: "v4", Ownership: domain.OwnershipOwned},
	}

	// Ten checks have 3.6M orderings; permute the six checks that read items
	// and keep the rest in front, then separately rotate the full list.
	itemChecks := []Check{CheckSearch, CheckOwnership, CheckProgress, CheckCover, CheckExternalID, CheckScope}
	front := []Check{CheckCategory, CheckCollectionStatus, CheckIncludeTags, CheckExcludeTags}
	var orders [][]Check
	for _, p := range permutations(itemChecks) {
		orders = append(orders, append(append([]Check(nil), front...), p...))
		orders = append(orders, append(append([]Check(nil), p...), front...))
	}
	all := AllChecks()
	for i := range all {
		orders = append(orders, append(append([]Check(nil), all[i:]...), all[:i]...))
	}
	require.Len(t, orders, 2*720+len(all))

	for _, f := range filters {
		for _, c := range collections {
			items := s.ItemsOf(c.ID)
			want := MatchCollection(c, items, f)
			for _, order := range orders {
				require.Equal(t, want, MatchCollectionInOrder(c, items, f, order), "collection %s order %v", c.ID, order)
			}
			for _, it := range items {
				wantItem := MatchItem(it, &c, f)
				for _, order := range orders {
					require.Equal(t, wantItem, MatchItemInOrder(it, &c, f, order), "item %s order %v", it.ID, order)
				}
			}
		}
		for _, it := range unassigned {
			wantItem := MatchItem(it, nil, f)
			for _, order := range orders {
				require.Equal(t, wantItem, MatchItemInOrder(it, nil, f, order))
			}
		}
	}
}

func TestParseCompleteness(t *testing.T) {
	for _, c := range []Completeness{CompletenessAny, CompletenessHas, CompletenessMissing} {
		got, err := ParseCompleteness(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompleteness("maybe")
	assert.Error(t, err)
}

func TestFilter_IsZero(t *testing.T) {
	assert.True(t, Filter{}.IsZero())
	assert.True(t, Filter{Category: "all", IncludeTags: []string{" "}}.IsZero())
	assert.False(t, Filter{Scope: NewIDSet()}.IsZero())
	assert.False(t, Filter{Search: "x"}.IsZero())
}

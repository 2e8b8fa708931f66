package library

import (
	"fmt"
	"slices"
)

// Level is one of the two selection namespaces.
type Level int

const (
	LevelCollection Level = iota
	LevelItem

	levelCount
)

// String returns "collection" or "item".
func (l Level) String() string {
	switch l {
	case LevelCollection:
		return "collection"
	case LevelItem:
		return "item"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Modifiers is the modifier-key state at the time of a click.
// Toggle is ctrl on most platforms and cmd on macOS.
type Modifiers struct {
	Shift  bool
	Toggle bool
}

// ClickResult tells the caller what a click did.
type ClickResult int

const (
	// ClickNavigate means the selection was untouched and the caller should open the target.
	ClickNavigate ClickResult = iota
	// ClickToggled means the target was added to or removed from the selection.
	ClickToggled
	// ClickRange means a range was added to the selection.
	ClickRange
	// ClickRangeIgnored means a shift-click whose endpoints are no longer visible.
	ClickRangeIgnored
)

// String returns the result name.
func (r ClickResult) String() string {
	switch r {
	case ClickNavigate:
		return "navigate"
	case ClickToggled:
		return "toggled"
	case ClickRange:
		return "range"
	case ClickRangeIgnored:
		return "range_ignored"
	default:
		return fmt.Sprintf("ClickResult(%d)", int(r))
	}
}

// Selection tracks selected IDs and the last-clicked anchor per level.
// The two levels never affect each other. A Selection is not safe for
// concurrent use.
type Selection struct {
	sets    [levelCount]map[string]struct{}
	anchors [levelCount]string
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	s := &Selection{}
	for l := range s.sets {
		s.sets[l] = make(map[string]struct{})
	}
	return s
}

// Toggle adds id to the level's selection, or removes it if present, and
// makes it the anchor. It reports whether id is selected afterwards.
func (s *Selection) Toggle(level Level, id string) bool {
	set := s.sets[level]
	s.anchors[level] = id
	if _, ok := set[id]; ok {
		delete(set, id)
		return false
	}
	set[id] = struct{}{}
	return true
}

// SelectAll replaces the level's selection with every visible ID of v.
// At item level that includes visible unassigned items.
func (s *Selection) SelectAll(level Level, v *View) {
	set := make(map[string]struct{})
	for _, id := range v.Order(level) {
		set[id] = struct{}{}
	}
	s.sets[level] = set
}

// Click applies a click on id given the modifier state and the level's
// visible ordering.
//
// Shift with an anchor adds the contiguous range between anchor and id; it
// never removes. Otherwise a toggle modifier, or an existing selection,
// toggles id. A bare click on an empty selection returns ClickNavigate and
// leaves the selection untouched. The anchor becomes id in every case.
func (s *Selection) Click(level Level, id string, mods Modifiers, order []string) ClickResult {
	anchor := s.anchors[level]
	s.anchors[level] = id

	if mods.Shift && anchor != "" {
		from, to := slices.Index(order, anchor), slices.Index(order, id)
		if from < 0 || to < 0 {
			return ClickRangeIgnored
		}
		if from > to {
			from, to = to, from
		}
		for _, rid := range order[from : to+1] {
			s.sets[level][rid] = struct{}{}
		}
		return ClickRange
	}

	if mods.Toggle || len(s.sets[level]) > 0 {
		s.Toggle(level, id)
		return ClickToggled
	}

	return ClickNavigate
}

// Deselect removes ids from the level's selection. The anchor is kept.
func (s *Selection) Deselect(level Level, ids ...string) {
	for _, id := range ids {
		delete(s.sets[level], id)
	}
}

// Anchor returns the level's anchor, or "" if none.
func (s *Selection) Anchor(level Level) string {
	return s.anchors[level]
}

// IsSelected reports whether id is selected at level.
func (s *Selection) IsSelected(level Level, id string) bool {
	_, ok := s.sets[level][id]
	return ok
}

// Count returns the number of selected IDs at level.
func (s *Selection) Count(level Level) int {
	return len(s.sets[level])
}

// Selectable returns how many IDs v shows at level.
func (s *Selection) Selectable(v *View, level Level) int {
	return len(v.Order(level))
}

// AllSelected reports whether every visible ID at level is selected. The
// visible set is the universe, so equal counts suffice.
func (s *Selection) AllSelected(v *View, level Level) bool {
	n := s.Selectable(v, level)
	return n > 0 && s.Count(level) == n
}

// Selected returns the level's selected IDs sorted lexically.
func (s *Selection) Selected(level Level) []string {
	out := make([]string, 0, len(s.sets[level]))
	for id := range s.sets[level] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// SelectedInOrder returns the selected IDs that v shows at level, in visible order.
func (s *Selection) SelectedInOrder(v *View, level Level) []string {
	var out []string
	for _, id := range v.Order(level) {
		if s.IsSelected(level, id) {
			out = append(out, id)
		}
	}
	return out
}

// SelectedUnassigned returns the selected item-level IDs that are visible
// unassigned items, in visible order.
func (s *Selection) SelectedUnassigned(v *View) []string {
	var out []string
	for _, id := range v.Order(LevelItem) {
		if v.IsUnassigned(id) && s.IsSelected(LevelItem, id) {
			out = append(out, id)
		}
	}
	return out
}

// Clear empties both levels and both anchors.
func (s *Selection) Clear() {
	for l := range s.sets {
		s.sets[l] = make(map[string]struct{})
		s.anchors[l] = ""
	}
}

// Prune drops selected IDs and anchors that v no longer shows.
func (s *Selection) Prune(v *View) {
	for l := range levelCount {
		visible := make(map[string]struct{})
		for _, id := range v.Order(l) {
			visible[id] = struct{}{}
		}
		for id := range s.sets[l] {
			if _, ok := visible[id]; !ok {
				delete(s.sets[l], id)
			}
		}
		if _, ok := visible[s.anchors[l]]; !ok {
			s.anchors[l] = ""
		}
	}
}

package domain

// SelectionFlags drive the select-all checkbox.
type SelectionFlags struct {
	// CheckAll is true when every visible document is selected.
	CheckAll bool `json:"checkAll"`

	// Indeterminate is true when some, but not all, are selected.
	Indeterminate bool `json:"indeterminate"`
}

// ComputeFlags derives the select-all flags from counts.
func ComputeFlags(visibleCount, selectedCount int) SelectionFlags {
	return SelectionFlags{
		CheckAll:      visibleCount > 0 && selectedCount == visibleCount,
		Indeterminate: selectedCount > 0 && selectedCount < visibleCount,
	}
}

// Selection tracks selected document IDs against the visible collection.
// The selected set is always a subset of the visible set.
//
// Selection is not safe for concurrent use; each view owns its own.
type Selection struct {
	visible    []string
	visibleSet map[string]struct{}
	selected   map[string]struct{}
}

// NewSelection creates an empty selection with nothing visible.
func NewSelection() *Selection {
	return &Selection{
		visibleSet: make(map[string]struct{}),
		selected:   make(map[string]struct{}),
	}
}

// SetVisible replaces the visible collection and drops any selected ID
// that is no longer visible.
func (s *Selection) SetVisible(ids []string) {
	s.visible = make([]string, 0, len(ids))
	s.visibleSet = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := s.visibleSet[id]; dup {
			continue
		}
		s.visibleSet[id] = struct{}{}
		s.visible = append(s.visible, id)
	}
	for id := range s.selected {
		if _, ok := s.visibleSet[id]; !ok {
			delete(s.selected, id)
		}
	}
}

// SelectAll makes visibleIDs the visible collection and selects all of it.
func (s *Selection) SelectAll(visibleIDs []string) {
	s.SetVisible(visibleIDs)
	s.selected = make(map[string]struct{}, len(s.visible))
	for _, id := range s.visible {
		s.selected[id] = struct{}{}
	}
}

// Clear deselects everything.
func (s *Selection) Clear() {
	s.selected = make(map[string]struct{})
}

// SetSelection replaces the selection with ids that are currently visible.
// IDs that are not visible are dropped silently.
func (s *Selection) SetSelection(ids []string) {
	s.selected = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.visibleSet[id]; ok {
			s.selected[id] = struct{}{}
		}
	}
}

// IsSelected reports whether id is selected.
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

// Selected returns the selected IDs in visible order.
func (s *Selection) Selected() []string {
	ids := make([]string, 0, len(s.selected))
	for _, id := range s.visible {
		if _, ok := s.selected[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// VisibleCount returns the number of visible documents.
func (s *Selection) VisibleCount() int {
	return len(s.visible)
}

// SelectedCount returns the number of selected documents.
func (s *Selection) SelectedCount() int {
	return len(s.selected)
}

// Flags returns the select-all flags for the current state.
func (s *Selection) Flags() SelectionFlags {
	return ComputeFlags(len(s.visible), len(s.selected))
}

package edit

// Selection tracks the set of selected frame indices plus the last
// touched index used as the anchor for range selection. Membership is
// by committed frame index; range selection resolves adjacency through
// the currently displayed order, which may be a staged reorder.
type Selection struct {
	members map[int]bool
	anchor  int // last touched frame index, -1 when unset
}

// NewSelection returns an empty selection with no anchor.
func NewSelection() *Selection {
	return &Selection{members: make(map[int]bool), anchor: -1}
}

// Select clears the set and selects only index.
func (s *Selection) Select(index int) {
	s.members = map[int]bool{index: true}
	s.anchor = index
}

// Toggle flips membership of index.
func (s *Selection) Toggle(index int) {
	if s.members[index] {
		delete(s.members, index)
	} else {
		s.members[index] = true
	}
	s.anchor = index
}

// SelectRange adds every frame between the anchor and end, inclusive,
// where "between" means visual adjacency in displayOrder (position p
// displays frame displayOrder[p]). Frames selected outside the span
// stay selected. Without a prior anchor, or when either endpoint is
// not displayed, the call is a no-op.
func (s *Selection) SelectRange(end int, displayOrder []int) {
	if s.anchor < 0 {
		return
	}
	a := displayPosition(displayOrder, s.anchor)
	b := displayPosition(displayOrder, end)
	if a < 0 || b < 0 {
		return
	}
	if a > b {
		a, b = b, a
	}
	for pos := a; pos <= b; pos++ {
		s.members[displayOrder[pos]] = true
	}
	s.anchor = end
}

func displayPosition(displayOrder []int, frame int) int {
	for pos, f := range displayOrder {
		if f == frame {
			return pos
		}
	}
	return -1
}

// Clear empties the set. The anchor is retained so a following range
// selection still has its starting point.
func (s *Selection) Clear() {
	s.members = make(map[int]bool)
}

// ResetAnchor drops the range selection anchor.
func (s *Selection) ResetAnchor() { s.anchor = -1 }

// Has reports whether index is selected.
func (s *Selection) Has(index int) bool { return s.members[index] }

// Count returns the number of selected frames.
func (s *Selection) Count() int { return len(s.members) }

// Anchor returns the last touched index, -1 when unset.
func (s *Selection) Anchor() int { return s.anchor }

// Indices returns the selected frame indices in ascending order.
func (s *Selection) Indices() []int { return sortedIndices(s.members) }

// Prune removes indices that no longer name a frame after the
// collection shrank to frameCount frames. An anchor past the end is
// dropped too.
func (s *Selection) Prune(frameCount int) {
	for i := range s.members {
		if i >= frameCount {
			delete(s.members, i)
		}
	}
	if s.anchor >= frameCount {
		s.anchor = -1
	}
}

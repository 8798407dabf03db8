package edit

// DefaultHistoryLimit bounds the number of retained snapshots.
const DefaultHistoryLimit = 50

// State is one immutable history entry: a deep copy of the collection,
// the frame that was active when it was captured, and a label naming
// the action that produced it.
type State struct {
	Collection  *Collection
	ActiveFrame int
	Label       string
}

// History is a bounded log of full collection snapshots with a cursor.
// Entry 0 is always the collection as loaded, so a single undo after
// the first edit restores the unmodified file.
type History struct {
	entries   []State
	cursor    int
	limit     int
	replaying bool
}

// NewHistory returns an empty history retaining at most limit entries.
// Non-positive limits fall back to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit, cursor: -1}
}

// Len returns the number of retained entries.
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the index of the current entry, -1 when empty.
func (h *History) Cursor() int { return h.cursor }

// CanUndo reports whether an earlier entry exists.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether a later entry exists.
func (h *History) CanRedo() bool { return h.cursor >= 0 && h.cursor < len(h.entries)-1 }

// Snapshot deep-copies the collection and appends it as the new current
// entry. Entries beyond the cursor (an undone "future") are discarded
// first; the oldest entry is evicted once the limit is exceeded.
// Snapshots are suppressed while a replay is in progress so that
// installing an undo/redo state does not re-enter the log.
func (h *History) Snapshot(c *Collection, activeFrame int, label string) {
	if h.replaying {
		return
	}

	if h.cursor < len(h.entries)-1 {
		h.entries = h.entries[:h.cursor+1]
	}
	h.entries = append(h.entries, State{
		Collection:  c.Clone(),
		ActiveFrame: activeFrame,
		Label:       label,
	})
	h.cursor = len(h.entries) - 1

	if len(h.entries) > h.limit {
		over := len(h.entries) - h.limit
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
		h.cursor -= over
	}
}

// Undo steps the cursor back and returns a deep copy of the entry now
// at the cursor, or nil at the log's edge. The caller installs the
// returned state as the live collection.
func (h *History) Undo() *State {
	if !h.CanUndo() {
		return nil
	}
	h.cursor--
	return h.current()
}

// Redo steps the cursor forward and returns a deep copy of the entry
// now at the cursor, or nil at the log's edge.
func (h *History) Redo() *State {
	if !h.CanRedo() {
		return nil
	}
	h.cursor++
	return h.current()
}

// Peek returns a deep copy of the current entry without moving the
// cursor, or nil when the log is empty.
func (h *History) Peek() *State { return h.current() }

func (h *History) current() *State {
	if h.cursor < 0 || h.cursor >= len(h.entries) {
		return nil
	}
	e := h.entries[h.cursor]
	return &State{
		Collection:  e.Collection.Clone(),
		ActiveFrame: e.ActiveFrame,
		Label:       e.Label,
	}
}

// Label returns the label of the entry at index i.
func (h *History) Label(i int) string {
	if i < 0 || i >= len(h.entries) {
		return ""
	}
	return h.entries[i].Label
}

// BeginReplay suppresses snapshots until EndReplay. Used while an
// undo/redo state is being installed.
func (h *History) BeginReplay() { h.replaying = true }

// EndReplay re-enables snapshots.
func (h *History) EndReplay() { h.replaying = false }

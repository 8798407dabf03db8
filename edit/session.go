package edit

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-sti/sti"
)

// Service is the external persistence/codec service a session calls out
// to. Calls are long-running round trips; package store implements it.
type Service interface {
	// EnterEdit decodes the file at path into an editable payload.
	EnterEdit(ctx context.Context, path string) (*sti.File, error)
	// Encode persists the full collection to path, atomically.
	Encode(ctx context.Context, path string, f *sti.File) error
	// InvalidateCache drops any cached decoded representation so a
	// later decode observes fresh data.
	InvalidateCache()
}

// Session is the facade over one collection under edit. It owns the
// live collection, its history, the frame selection and the staged
// reorder, and translates user intents into mutations under the
// snapshot policy. Sessions are not safe for concurrent use; all
// mutations are expected to arrive from a single event loop.
type Session struct {
	svc  Service
	path string

	col     *Collection
	hist    *History
	sel     *Selection
	staging *Staging

	active int   // active frame index
	color  Color // selected paint color

	stroke      bool // a paint gesture is in progress
	strokeDirty bool

	saving bool
}

// NewSession enters edit mode on the file at path.
func NewSession(ctx context.Context, svc Service, path string) (*Session, error) {
	f, err := svc.EnterEdit(ctx, path)
	if err != nil {
		return nil, errors.Wrap(err, "entering edit mode")
	}
	col, err := FromFile(f)
	if err != nil {
		return nil, errors.Wrap(err, "seeding collection")
	}

	s := &Session{
		svc:     svc,
		path:    path,
		col:     col,
		hist:    NewHistory(DefaultHistoryLimit),
		sel:     NewSelection(),
		staging: NewStaging(col.FrameCount()),
	}
	// The as-loaded state is entry 0, so one undo after the first edit
	// returns to the unmodified file.
	s.hist.Snapshot(s.col, 0, "loaded")
	return s, nil
}

// Collection returns the live collection. Callers must treat it as
// read-only; mutations go through session intents.
func (s *Session) Collection() *Collection { return s.col }

// History returns the session's history log.
func (s *Session) History() *History { return s.hist }

// Selection returns the session's frame selection.
func (s *Session) Selection() *Selection { return s.sel }

// Staging returns the session's staged reorder.
func (s *Session) Staging() *Staging { return s.staging }

// Path returns the file path the session was entered on.
func (s *Session) Path() string { return s.path }

// ActiveFrame returns the index of the frame being painted.
func (s *Session) ActiveFrame() int { return s.active }

// SetActiveFrame changes the painted frame. Out of range indices are
// ignored.
func (s *Session) SetActiveFrame(i int) {
	if i >= 0 && i < s.col.FrameCount() {
		s.active = i
	}
}

// SelectedColor returns the color subsequent brush strokes paint with.
func (s *Session) SelectedColor() Color { return s.color }

// SetColor replaces the selected paint color.
func (s *Session) SetColor(c Color) { s.color = c }

// Pick reads the sample under (x, y) on the active frame and makes it
// the selected color. No-op out of bounds.
func (s *Session) Pick(x, y int) {
	picked, _ := Paint(s.col, s.col.Frames[s.active], x, y, ToolEyedropper, s.color)
	s.color = picked
}

// BeginStroke starts a paint gesture. Pixels painted until EndStroke
// form one history entry.
func (s *Session) BeginStroke() {
	s.stroke = true
	s.strokeDirty = false
}

// PaintAt applies the given tool at (x, y) on the active frame as part
// of the current gesture. Out of range coordinates are silently
// ignored.
func (s *Session) PaintAt(x, y int, tool Tool) {
	picked, mutated := Paint(s.col, s.col.Frames[s.active], x, y, tool, s.color)
	if tool == ToolEyedropper {
		s.color = picked
		return
	}
	if mutated {
		s.strokeDirty = true
	}
}

// EndStroke completes the gesture. If any pixel changed, exactly one
// snapshot covering the whole stroke is recorded.
func (s *Session) EndStroke() {
	if s.stroke && s.strokeDirty {
		s.hist.Snapshot(s.col, s.active, "paint")
	}
	s.stroke = false
	s.strokeDirty = false
}

// AddFrame appends a frame filled with the transparent index and
// records a snapshot. Selection and staged order reset to identity.
func (s *Session) AddFrame(width, height int, fill uint8) error {
	if err := s.col.AddFrame(width, height, fill); err != nil {
		return err
	}
	s.hist.Snapshot(s.col, s.active, "add frame")
	s.structuralReset()
	return nil
}

// RemoveFrames removes the named frames in one atomic step. Removing
// every frame is rejected with ErrLastFrame and the collection is left
// untouched. Selection is remapped to the surviving frames' new
// indices; staged order resets to identity.
func (s *Session) RemoveFrames(indices []int) error {
	keepSelected := s.remainingSelection(indices)
	if err := s.col.RemoveFrames(indices); err != nil {
		return err
	}
	s.hist.Snapshot(s.col, s.active, "delete frames")

	s.sel = keepSelected
	s.sel.Prune(s.col.FrameCount())
	s.staging.Reset(s.col.FrameCount())
	if s.active >= s.col.FrameCount() {
		s.active = s.col.FrameCount() - 1
	}
	return nil
}

// remainingSelection maps the current selection onto the indices
// surviving frames will have once the named frames are removed.
func (s *Session) remainingSelection(removed []int) *Selection {
	drop := make(map[int]bool, len(removed))
	for _, i := range removed {
		drop[i] = true
	}
	out := NewSelection()
	next := 0
	for i := 0; i < s.col.FrameCount(); i++ {
		if drop[i] {
			continue
		}
		if s.sel.Has(i) {
			out.members[next] = true
		}
		next++
	}
	return out
}

// RemoveSelected removes every selected frame.
func (s *Session) RemoveSelected() error {
	if s.sel.Count() == 0 {
		return nil
	}
	return s.RemoveFrames(s.sel.Indices())
}

// Stage replaces the staged frame order.
func (s *Session) Stage(order []int) error {
	return s.staging.Stage(order)
}

// CommitReorder applies the staged order to the authoritative
// collection and records a snapshot. It returns the applied order for
// propagation to the persistence service, or ok=false when nothing was
// staged. Selection and the active frame follow their frames to the
// new positions.
func (s *Session) CommitReorder() (order []int, ok bool) {
	order, ok = s.staging.Commit()
	if !ok {
		return nil, false
	}
	// Staging only ever holds validated permutations.
	if err := s.col.ApplyOrder(order); err != nil {
		glog.Errorf("staged order failed to apply: %v", err)
		return nil, false
	}
	s.hist.Snapshot(s.col, s.active, "reorder frames")

	remapped := NewSelection()
	for pos, orig := range order {
		if s.sel.Has(orig) {
			remapped.members[pos] = true
		}
		if orig == s.active {
			s.active = pos
		}
	}
	s.sel = remapped
	return order, true
}

// CancelReorder discards the staged order, leaving the authoritative
// collection untouched.
func (s *Session) CancelReorder() {
	s.staging.Cancel()
}

// Undo installs the previous history state. Returns false at the log's
// edge; that is not an error.
func (s *Session) Undo() bool { return s.replay(s.hist.Undo) }

// Redo installs the next history state. Returns false at the log's
// edge.
func (s *Session) Redo() bool { return s.replay(s.hist.Redo) }

func (s *Session) replay(step func() *State) bool {
	s.hist.BeginReplay()
	defer s.hist.EndReplay()

	st := step()
	if st == nil {
		return false
	}
	s.col = st.Collection
	s.active = st.ActiveFrame
	if s.active >= s.col.FrameCount() {
		s.active = s.col.FrameCount() - 1
	}
	s.structuralReset()
	return true
}

// structuralReset re-syncs selection and staging after the committed
// frame set changed shape.
func (s *Session) structuralReset() {
	s.sel.Prune(s.col.FrameCount())
	s.staging.Reset(s.col.FrameCount())
}

// Save persists the collection through the service and reloads the
// session from the saved file. While a save is outstanding, a second
// save for the same session is rejected with ErrSaveInFlight rather
// than queued; interleaving two encodes of one collection could
// persist an inconsistent snapshot.
func (s *Session) Save(ctx context.Context) error {
	if s.saving {
		return ErrSaveInFlight
	}
	s.saving = true
	defer func() { s.saving = false }()

	f, err := s.col.ToFile()
	if err != nil {
		return errors.Wrap(err, "converting collection for save")
	}
	if err := s.svc.Encode(ctx, s.path, f); err != nil {
		return errors.Wrap(err, "saving collection")
	}
	s.svc.InvalidateCache()

	glog.V(1).Infof("saved %q, reloading", s.path)

	reloaded, err := s.svc.EnterEdit(ctx, s.path)
	if err != nil {
		return errors.Wrap(err, "reloading after save")
	}
	col, err := FromFile(reloaded)
	if err != nil {
		return errors.Wrap(err, "seeding reloaded collection")
	}
	s.col = col
	s.hist = NewHistory(DefaultHistoryLimit)
	s.hist.Snapshot(s.col, 0, "loaded")
	if s.active >= s.col.FrameCount() {
		s.active = s.col.FrameCount() - 1
	}
	s.structuralReset()
	return nil
}

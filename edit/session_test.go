package edit

import (
	"context"
	"testing"

	"badc0de.net/pkg/go-sti/sti"
	"badc0de.net/pkg/go-sti/ttesting"
)

// fakeService is an in-memory Service: EnterEdit serves a stored file,
// Encode replaces it.
type fakeService struct {
	file        *sti.File
	enters      int
	encodes     int
	invalidates int
	encodeHook  func() // runs inside Encode, before the store
}

func (f *fakeService) EnterEdit(ctx context.Context, path string) (*sti.File, error) {
	f.enters++
	return f.file.Clone(), nil
}

func (f *fakeService) Encode(ctx context.Context, path string, file *sti.File) error {
	f.encodes++
	if f.encodeHook != nil {
		f.encodeHook()
	}
	f.file = file.Clone()
	return nil
}

func (f *fakeService) InvalidateCache() { f.invalidates++ }

func testServiceFile(frames int) *sti.File {
	f := &sti.File{
		Header:  sti.Header{Flags: sti.FlagIndexed | sti.FlagETRLE | sti.FlagTransparent},
		Palette: sti.Palette{{0, 0, 0}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255}},
	}
	for i := 0; i < frames; i++ {
		f.Images = append(f.Images, sti.Image{Width: 4, Height: 4, Data: make([]byte, 16)})
	}
	return f
}

func testSession(t *testing.T, frames int) (*Session, *fakeService) {
	t.Helper()
	svc := &fakeService{file: testServiceFile(frames)}
	s, err := NewSession(context.Background(), svc, "fixture.sti")
	if err != nil {
		t.Fatalf("failed to enter edit mode: %s", err)
	}
	return s, svc
}

func activePixel(t *testing.T, s *Session, x, y int) uint8 {
	t.Helper()
	v, ok := s.Collection().Frames[s.ActiveFrame()].SampleIndexed(x, y)
	if !ok {
		t.Fatalf("sample (%d,%d) out of range", x, y)
	}
	return v
}

func TestSessionPaintUndoRedo(t *testing.T) {
	s, _ := testSession(t, 4)
	s.SetColor(Color{Index: 1})

	s.BeginStroke()
	s.PaintAt(0, 0, ToolBrush)
	s.EndStroke()

	ttesting.AssertEqualInt(t, "history length", s.History().Len(), 2)
	if got := s.History().Label(1); got != "paint" {
		t.Errorf("label = %q; want %q", got, "paint")
	}
	ttesting.AssertEqualInt(t, "painted", int(activePixel(t, s, 0, 0)), 1)

	ttesting.AssertEqualBool(t, "undo", s.Undo(), true)
	ttesting.AssertEqualInt(t, "after undo", int(activePixel(t, s, 0, 0)), 0)

	ttesting.AssertEqualBool(t, "redo", s.Redo(), true)
	ttesting.AssertEqualInt(t, "after redo", int(activePixel(t, s, 0, 0)), 1)

	ttesting.AssertEqualBool(t, "redo at edge", s.Redo(), false)
}

func TestSessionStrokeIsOneEntry(t *testing.T) {
	s, _ := testSession(t, 1)
	s.SetColor(Color{Index: 2})

	s.BeginStroke()
	s.PaintAt(0, 0, ToolBrush)
	s.PaintAt(1, 0, ToolBrush)
	s.PaintAt(2, 0, ToolBrush)
	s.EndStroke()

	ttesting.AssertEqualInt(t, "history length", s.History().Len(), 2)

	s.Undo()
	for x := 0; x < 3; x++ {
		ttesting.AssertEqualInt(t, "undone pixel", int(activePixel(t, s, x, 0)), 0)
	}
}

func TestSessionEmptyStrokeRecordsNothing(t *testing.T) {
	s, _ := testSession(t, 1)

	s.BeginStroke()
	s.PaintAt(0, 0, ToolEyedropper)
	s.PaintAt(0, 0, ToolPan)
	s.EndStroke()

	ttesting.AssertEqualInt(t, "history length", s.History().Len(), 1)
}

func TestSessionPickUpdatesColor(t *testing.T) {
	s, _ := testSession(t, 1)
	s.SetColor(Color{Index: 3})
	s.BeginStroke()
	s.PaintAt(2, 2, ToolBrush)
	s.EndStroke()

	s.SetColor(Color{Index: 0})
	s.Pick(2, 2)
	got := s.SelectedColor()
	ttesting.AssertEqualInt(t, "picked index", int(got.Index), 3)
	ttesting.AssertEqualInt(t, "picked blue", int(got.B), 255)
}

func TestSessionReorderCommit(t *testing.T) {
	s, _ := testSession(t, 4)
	// Mark each frame with its original index.
	for i, b := range s.Collection().Frames {
		b.SetIndexed(0, 0, uint8(i))
	}
	s.Selection().Select(3)
	s.SetActiveFrame(3)

	if err := s.Stage([]int{3, 1, 0, 2}); err != nil {
		t.Fatalf("failed to stage: %s", err)
	}
	// Nothing moves until commit.
	if v, _ := s.Collection().Frames[0].SampleIndexed(0, 0); v != 0 {
		t.Fatalf("staging mutated the collection")
	}

	order, ok := s.CommitReorder()
	ttesting.AssertEqualBool(t, "committed", ok, true)
	ttesting.AssertEqualInts(t, "applied order", order, []int{3, 1, 0, 2})

	want := []uint8{3, 1, 0, 2}
	for pos := range want {
		if v, _ := s.Collection().Frames[pos].SampleIndexed(0, 0); v != want[pos] {
			t.Errorf("position %d holds frame %d; want %d", pos, v, want[pos])
		}
	}
	// Selection and active frame follow the frame to its new position.
	ttesting.AssertEqualBool(t, "selection followed", s.Selection().Has(0), true)
	ttesting.AssertEqualInt(t, "selection count", s.Selection().Count(), 1)
	ttesting.AssertEqualInt(t, "active frame", s.ActiveFrame(), 0)
	ttesting.AssertEqualBool(t, "staging clean", s.Staging().Dirty(), false)
	ttesting.AssertEqualInt(t, "history length", s.History().Len(), 2)
}

func TestSessionReorderCancel(t *testing.T) {
	s, _ := testSession(t, 4)
	for i, b := range s.Collection().Frames {
		b.SetIndexed(0, 0, uint8(i))
	}

	if err := s.Stage([]int{3, 1, 0, 2}); err != nil {
		t.Fatalf("failed to stage: %s", err)
	}
	s.CancelReorder()

	for i := 0; i < 4; i++ {
		if v, _ := s.Collection().Frames[i].SampleIndexed(0, 0); v != uint8(i) {
			t.Errorf("cancel moved frame at %d to %d", i, v)
		}
	}
	ttesting.AssertEqualBool(t, "staging clean", s.Staging().Dirty(), false)
	ttesting.AssertEqualInt(t, "history length", s.History().Len(), 1)

	if _, ok := s.CommitReorder(); ok {
		t.Errorf("commit after cancel reported a change")
	}
}

func TestSessionRemoveFramesRemapsSelection(t *testing.T) {
	s, _ := testSession(t, 4)
	s.Selection().Select(1)
	s.Selection().Select(3)
	s.SetActiveFrame(3)

	if err := s.RemoveFrames([]int{0, 3}); err != nil {
		t.Fatalf("failed to remove: %s", err)
	}
	ttesting.AssertEqualInt(t, "frame count", s.Collection().FrameCount(), 2)
	// Old frame 1 is now frame 0; old frame 3 is gone.
	ttesting.AssertEqualBool(t, "remapped selection", s.Selection().Has(0), true)
	ttesting.AssertEqualInt(t, "selection count", s.Selection().Count(), 1)
	ttesting.AssertEqualInt(t, "active clamped", s.ActiveFrame(), 1)
}

func TestSessionRemoveLastFrameRejected(t *testing.T) {
	s, _ := testSession(t, 1)
	if err := s.RemoveFrames([]int{0}); err != ErrLastFrame {
		t.Fatalf("RemoveFrames(all) = %v; want ErrLastFrame", err)
	}
	ttesting.AssertEqualInt(t, "frame count", s.Collection().FrameCount(), 1)
	ttesting.AssertEqualInt(t, "history length", s.History().Len(), 1)
}

func TestSessionRemoveSelected(t *testing.T) {
	s, _ := testSession(t, 3)
	s.Selection().Select(0)
	s.Selection().Select(2)

	if err := s.RemoveSelected(); err != nil {
		t.Fatalf("failed to remove selected: %s", err)
	}
	ttesting.AssertEqualInt(t, "frame count", s.Collection().FrameCount(), 1)
	ttesting.AssertEqualInt(t, "selection count", s.Selection().Count(), 0)
}

func TestSessionAddFrameResetsStaging(t *testing.T) {
	s, _ := testSession(t, 2)
	if err := s.Stage([]int{1, 0}); err != nil {
		t.Fatalf("failed to stage: %s", err)
	}

	if err := s.AddFrame(4, 4, 0); err != nil {
		t.Fatalf("failed to add frame: %s", err)
	}
	ttesting.AssertEqualInt(t, "frame count", s.Collection().FrameCount(), 3)
	ttesting.AssertEqualBool(t, "staging clean", s.Staging().Dirty(), false)
	ttesting.AssertEqualInts(t, "staged identity", s.Staging().Order(), []int{0, 1, 2})
}

func TestSessionSaveReloads(t *testing.T) {
	s, svc := testSession(t, 2)
	s.SetColor(Color{Index: 2})
	s.BeginStroke()
	s.PaintAt(1, 1, ToolBrush)
	s.EndStroke()

	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("failed to save: %s", err)
	}
	ttesting.AssertEqualInt(t, "encodes", svc.encodes, 1)
	ttesting.AssertEqualInt(t, "cache invalidations", svc.invalidates, 1)
	// Save reloads from the service and restarts the history.
	ttesting.AssertEqualInt(t, "history length", s.History().Len(), 1)
	if got := s.History().Label(0); got != "loaded" {
		t.Errorf("label = %q; want %q", got, "loaded")
	}
	ttesting.AssertEqualInt(t, "painted pixel survives", int(activePixel(t, s, 1, 1)), 2)
	ttesting.AssertEqualBool(t, "no undo past save", s.Undo(), false)
}

func TestSessionSaveRejectsOverlap(t *testing.T) {
	s, svc := testSession(t, 1)

	var nested error
	svc.encodeHook = func() {
		nested = s.Save(context.Background())
	}
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("failed to save: %s", err)
	}
	if nested != ErrSaveInFlight {
		t.Errorf("overlapping save = %v; want ErrSaveInFlight", nested)
	}
	ttesting.AssertEqualInt(t, "encodes", svc.encodes, 1)
}

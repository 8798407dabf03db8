package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"badc0de.net/pkg/go-sti/sti"
	"badc0de.net/pkg/go-sti/ttesting"
)

func testFile(frames int) *sti.File {
	f := &sti.File{
		Header:  sti.Header{Flags: sti.FlagIndexed | sti.FlagETRLE | sti.FlagTransparent},
		Palette: sti.Palette{{0, 0, 0}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255}},
	}
	for i := 0; i < frames; i++ {
		data := make([]byte, 16)
		data[0] = uint8(i) // marker tracking the frame through rewrites
		f.Images = append(f.Images, sti.Image{Width: 4, Height: 4, Data: data})
	}
	return f
}

func writeFixture(t *testing.T, f *sti.File) string {
	t.Helper()
	raw, err := f.EncodeBytes()
	if err != nil {
		t.Fatalf("failed to encode fixture: %s", err)
	}
	path := filepath.Join(t.TempDir(), "fixture.sti")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to write fixture: %s", err)
	}
	return path
}

func markers(t *testing.T, s *Store, path string) []uint8 {
	t.Helper()
	f, err := s.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to decode: %s", err)
	}
	out := make([]uint8, len(f.Images))
	for i := range f.Images {
		out[i] = f.Images[i].Data[0]
	}
	return out
}

func TestDecodeAndStat(t *testing.T) {
	path := writeFixture(t, testFile(3))
	s := New()

	f, err := s.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to decode: %s", err)
	}
	ttesting.AssertEqualInt(t, "images", len(f.Images), 3)
	ttesting.AssertEqualBool(t, "8-bit", f.Is8Bit(), true)

	fi, err := s.Stat(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to stat: %s", err)
	}
	ttesting.AssertEqualInt(t, "stat images", fi.NumImages, 3)
	ttesting.AssertEqualInt(t, "stat width", int(fi.Width), 4)
	ttesting.AssertEqualInt(t, "stat height", int(fi.Height), 4)
	ttesting.AssertEqualBool(t, "stat 8-bit", fi.Is8Bit, true)
	ttesting.AssertEqualBool(t, "stat compressed", fi.Compressed, true)
	if fi.FileSize <= 0 {
		t.Errorf("file size = %d; want > 0", fi.FileSize)
	}
}

func TestDecodeMissingFile(t *testing.T) {
	s := New()
	if _, err := s.Decode(context.Background(), filepath.Join(t.TempDir(), "nope.sti")); err == nil {
		t.Fatalf("decoded a missing file")
	}
}

func TestDecodeReturnsIndependentCopies(t *testing.T) {
	path := writeFixture(t, testFile(1))
	s := New()

	a, err := s.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to decode: %s", err)
	}
	a.Images[0].Data[0] = 99

	b, err := s.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to decode: %s", err)
	}
	ttesting.AssertEqualInt(t, "cache uncorrupted", int(b.Images[0].Data[0]), 0)
}

func TestConcurrentDecode(t *testing.T) {
	path := writeFixture(t, testFile(2))
	s := New()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := s.Decode(context.Background(), path)
			if err == nil && len(f.Images) != 2 {
				err = sti.FormatError("wrong image count")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("decode %d: %s", i, err)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	path := writeFixture(t, testFile(2))
	s := New()

	f, err := s.Decode(context.Background(), path)
	if err != nil {
		t.Fatalf("failed to decode: %s", err)
	}
	f.Images[1].Data[0] = 3
	if err := s.Encode(context.Background(), path, f); err != nil {
		t.Fatalf("failed to encode: %s", err)
	}

	// Encode dropped the stale cache entry, so this decode reads disk.
	got := markers(t, s, path)
	ttesting.AssertEqualInt(t, "rewritten marker", int(got[1]), 3)
}

func TestEncodeRejectsOverlappingWrite(t *testing.T) {
	path := writeFixture(t, testFile(1))
	s := New()
	s.writing[path] = true

	if err := s.Encode(context.Background(), path, testFile(1)); err != ErrWriteInFlight {
		t.Fatalf("overlapping encode = %v; want ErrWriteInFlight", err)
	}
	// Other paths are unaffected.
	other := writeFixture(t, testFile(1))
	if err := s.Encode(context.Background(), other, testFile(1)); err != nil {
		t.Errorf("encode of other path: %s", err)
	}
}

func TestEncodeFailureLeavesFileUntouched(t *testing.T) {
	path := writeFixture(t, testFile(1))
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture: %s", err)
	}

	s := New()
	bad := testFile(1)
	bad.Palette = nil // indexed file without a palette will not encode
	if err := s.Encode(context.Background(), path, bad); err == nil {
		t.Fatalf("encoded an invalid file")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to re-read fixture: %s", err)
	}
	ttesting.AssertEqualBytes(t, "file intact", after, before)
}

func TestInvalidateCache(t *testing.T) {
	path := writeFixture(t, testFile(1))
	s := New()

	got := markers(t, s, path)
	ttesting.AssertEqualInt(t, "initial marker", int(got[0]), 0)

	// Replace the file behind the store's back.
	next := testFile(1)
	next.Images[0].Data[0] = 2
	raw, err := next.EncodeBytes()
	if err != nil {
		t.Fatalf("failed to encode replacement: %s", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("failed to replace fixture: %s", err)
	}

	got = markers(t, s, path)
	ttesting.AssertEqualInt(t, "cached marker", int(got[0]), 0)

	s.InvalidateCache()
	got = markers(t, s, path)
	ttesting.AssertEqualInt(t, "fresh marker", int(got[0]), 2)
}

func TestUpdateFrame(t *testing.T) {
	path := writeFixture(t, testFile(2))
	s := New()

	data := make([]byte, 16)
	data[0] = 3
	if err := s.UpdateFrame(context.Background(), path, 1, data); err != nil {
		t.Fatalf("failed to update frame: %s", err)
	}
	got := markers(t, s, path)
	ttesting.AssertEqualInt(t, "updated marker", int(got[1]), 3)

	if err := s.UpdateFrame(context.Background(), path, 1, make([]byte, 5)); err == nil {
		t.Errorf("accepted mismatched frame data length")
	}
	if err := s.UpdateFrame(context.Background(), path, 7, data); err == nil {
		t.Errorf("accepted out of range frame index")
	}
}

func TestAddFrame(t *testing.T) {
	path := writeFixture(t, testFile(1))
	s := New()

	if err := s.AddFrame(context.Background(), path, 4, 4); err != nil {
		t.Fatalf("failed to add frame: %s", err)
	}
	got := markers(t, s, path)
	ttesting.AssertEqualInt(t, "frame count", len(got), 2)

	if err := s.AddFrame(context.Background(), path, 0, 4); err == nil {
		t.Errorf("accepted zero width frame")
	}
}

func TestReorderFrames(t *testing.T) {
	path := writeFixture(t, testFile(4))
	s := New()

	if err := s.ReorderFrames(context.Background(), path, []int{3, 1, 0, 2}); err != nil {
		t.Fatalf("failed to reorder: %s", err)
	}
	got := markers(t, s, path)
	want := []uint8{3, 1, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d holds frame %d; want %d", i, got[i], want[i])
		}
	}

	if err := s.ReorderFrames(context.Background(), path, []int{0, 0, 1, 2}); err == nil {
		t.Errorf("accepted a non-permutation order")
	}
}

func TestDeleteFrames(t *testing.T) {
	path := writeFixture(t, testFile(3))
	s := New()

	if err := s.DeleteFrames(context.Background(), path, []int{0, 2}); err != nil {
		t.Fatalf("failed to delete: %s", err)
	}
	got := markers(t, s, path)
	ttesting.AssertEqualInt(t, "frame count", len(got), 1)
	ttesting.AssertEqualInt(t, "survivor", int(got[0]), 1)

	if err := s.DeleteFrames(context.Background(), path, []int{0}); err == nil {
		t.Errorf("deleted the last frame")
	}
}

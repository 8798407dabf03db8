// Package store is the sprite persistence and codec service consumed by
// package edit.
//
// It decodes and encodes STI files on disk, keeps a cache of decoded
// payloads, coalesces concurrent decodes of the same path, and rejects
// concurrent writes to the same path. Writes are atomic: the file is
// either fully rewritten or untouched.
package store

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"badc0de.net/pkg/go-sti/sti"
)

// ErrWriteInFlight is returned when a write is requested for a path
// that another write is still rewriting.
var ErrWriteInFlight = errors.New("a write for this path is already in flight")

// FileInfo summarizes a decoded file without exposing pixel data.
type FileInfo struct {
	Width      uint16
	Height     uint16
	NumImages  int
	Is8Bit     bool
	Is16Bit    bool
	Animated   bool
	Compressed bool
	FileSize   int64
}

// Store implements edit.Service over the local filesystem.
type Store struct {
	mu      sync.Mutex
	cache   map[string]*sti.File
	writing map[string]bool

	group singleflight.Group
}

// New returns an empty store.
func New() *Store {
	return &Store{
		cache:   make(map[string]*sti.File),
		writing: make(map[string]bool),
	}
}

// Decode reads and decodes the file at path. Decoded payloads are
// cached; concurrent decodes of the same path are coalesced into one
// read. The returned file is the caller's to mutate.
func (s *Store) Decode(ctx context.Context, path string) (*sti.File, error) {
	s.mu.Lock()
	if f, ok := s.cache[path]; ok {
		s.mu.Unlock()
		return f.Clone(), nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(path, func() (interface{}, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading sti file")
		}
		f, err := sti.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %q", path)
		}
		s.mu.Lock()
		s.cache[path] = f
		s.mu.Unlock()
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sti.File).Clone(), nil
}

// Stat decodes path and returns a summary of its contents.
func (s *Store) Stat(ctx context.Context, path string) (FileInfo, error) {
	f, err := s.Decode(ctx, path)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, errors.Wrap(err, "statting sti file")
	}

	fi := FileInfo{
		NumImages:  len(f.Images),
		Is8Bit:     f.Is8Bit(),
		Is16Bit:    f.Is16Bit(),
		Animated:   f.IsAnimated(),
		Compressed: f.IsCompressed(),
		FileSize:   info.Size(),
	}
	if len(f.Images) > 0 {
		fi.Width = f.Images[0].Width
		fi.Height = f.Images[0].Height
	}
	return fi, nil
}

// EnterEdit decodes path into a payload pre-shaped for mutation. The
// returned file shares no storage with the cache.
func (s *Store) EnterEdit(ctx context.Context, path string) (*sti.File, error) {
	return s.Decode(ctx, path)
}

// Encode persists f to path, overwriting the previous file. The write
// goes to a temporary file in the target directory which is renamed
// over path, so a failed write leaves the original untouched. A second
// Encode for the same path while one is in flight is rejected with
// ErrWriteInFlight.
func (s *Store) Encode(ctx context.Context, path string, f *sti.File) error {
	s.mu.Lock()
	if s.writing[path] {
		s.mu.Unlock()
		return ErrWriteInFlight
	}
	s.writing[path] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.writing, path)
		s.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := f.EncodeBytes()
	if err != nil {
		return errors.Wrapf(err, "encoding %q", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".sti-write-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replacing sti file")
	}

	glog.V(1).Infof("store: wrote %q (%d bytes, %d images)", path, len(raw), len(f.Images))

	// The previous decode of this path is stale now.
	s.mu.Lock()
	delete(s.cache, path)
	s.mu.Unlock()
	return nil
}

// InvalidateCache drops every cached decoded payload. Required after
// structural saves so that a later Decode or EnterEdit observes fresh
// data.
func (s *Store) InvalidateCache() {
	s.mu.Lock()
	s.cache = make(map[string]*sti.File)
	s.mu.Unlock()
}

// rewrite decodes path, applies mutate and encodes the result back.
// The incremental mirrors below are equivalent in effect to a full
// Encode of the mutated collection.
func (s *Store) rewrite(ctx context.Context, path string, mutate func(*sti.File) error) error {
	f, err := s.Decode(ctx, path)
	if err != nil {
		return err
	}
	if err := mutate(f); err != nil {
		return err
	}
	return s.Encode(ctx, path, f)
}

// UpdateFrame replaces the decompressed pixel data of one frame on
// disk.
func (s *Store) UpdateFrame(ctx context.Context, path string, idx int, data []byte) error {
	return s.rewrite(ctx, path, func(f *sti.File) error {
		if idx < 0 || idx >= len(f.Images) {
			return errors.Errorf("frame index %d out of range", idx)
		}
		img := &f.Images[idx]
		want := int(img.Width) * int(img.Height)
		if f.Is16Bit() {
			want *= 2
		}
		if len(data) != want {
			return sti.FormatError("frame data length does not match dimensions")
		}
		img.Data = append([]byte(nil), data...)
		return nil
	})
}

// AddFrame appends a transparent frame of the given dimensions on
// disk. Indexed files only.
func (s *Store) AddFrame(ctx context.Context, path string, width, height uint16) error {
	return s.rewrite(ctx, path, func(f *sti.File) error {
		if !f.Is8Bit() {
			return sti.FormatError("frames can only be added to indexed files")
		}
		if width == 0 || height == 0 {
			return sti.FormatError("frame dimensions must be positive")
		}
		f.Images = append(f.Images, sti.Image{
			Width:  width,
			Height: height,
			Data:   make([]byte, int(width)*int(height)),
		})
		return nil
	})
}

// ReorderFrames permanently applies the passed frame order on disk.
func (s *Store) ReorderFrames(ctx context.Context, path string, order []int) error {
	return s.rewrite(ctx, path, func(f *sti.File) error {
		if len(order) != len(f.Images) {
			return sti.FormatError("order length does not match image count")
		}
		seen := make([]bool, len(order))
		next := make([]sti.Image, len(order))
		for pos, orig := range order {
			if orig < 0 || orig >= len(f.Images) || seen[orig] {
				return sti.FormatError("order is not a permutation of the image set")
			}
			seen[orig] = true
			next[pos] = f.Images[orig]
		}
		f.Images = next
		return nil
	})
}

// DeleteFrames removes the named frames on disk. Removing every frame
// is rejected.
func (s *Store) DeleteFrames(ctx context.Context, path string, indices []int) error {
	return s.rewrite(ctx, path, func(f *sti.File) error {
		drop := make(map[int]bool, len(indices))
		for _, i := range indices {
			if i < 0 || i >= len(f.Images) {
				return errors.Errorf("frame index %d out of range", i)
			}
			drop[i] = true
		}
		if len(drop) >= len(f.Images) {
			return sti.FormatError("cannot delete every frame")
		}
		kept := f.Images[:0:0]
		for i := range f.Images {
			if !drop[i] {
				kept = append(kept, f.Images[i])
			}
		}
		f.Images = kept
		return nil
	})
}

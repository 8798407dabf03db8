package edit

import (
	"sort"

	"github.com/pkg/errors"

	"badc0de.net/pkg/go-sti/sti"
)

// ColorMode selects how a collection's frame samples are interpreted.
type ColorMode int

const (
	// ModeIndexed stores one palette index byte per pixel, resolved
	// through the collection's palette.
	ModeIndexed ColorMode = iota
	// Mode565 stores two bytes per pixel, packing red, green and blue
	// at 5, 6 and 5 bits.
	Mode565
)

// Collection is the authoritative in-memory form of a sprite set under
// edit: the palette (indexed mode only), the color mode, the
// transparency and compression flags carried for re-encode, the
// animation trailer and an ordered list of frames. A collection always
// has at least one frame.
type Collection struct {
	Mode        ColorMode
	Palette     sti.Palette // nil unless ModeIndexed
	Transparent uint8       // transparent palette index, conventionally 0
	Flags       sti.Flags
	AnimData    []sti.AnimBlock
	Frames      []*Buffer
}

// BytesPerPixel returns the sample width for the collection's mode.
func (c *Collection) BytesPerPixel() int {
	if c.Mode == Mode565 {
		return 2
	}
	return 1
}

// FrameCount returns the number of frames.
func (c *Collection) FrameCount() int { return len(c.Frames) }

// Clone returns a deep copy sharing no mutable storage with the
// receiver. History snapshots rely on this.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		Mode:        c.Mode,
		Palette:     c.Palette.Clone(),
		Transparent: c.Transparent,
		Flags:       c.Flags,
		AnimData:    append([]sti.AnimBlock(nil), c.AnimData...),
		Frames:      make([]*Buffer, len(c.Frames)),
	}
	for i, f := range c.Frames {
		out.Frames[i] = f.Clone()
	}
	return out
}

// FromFile seeds a collection from a decoded STI payload.
func FromFile(f *sti.File) (*Collection, error) {
	if len(f.Images) == 0 {
		return nil, errors.New("decoded file contains no images")
	}

	c := &Collection{
		Transparent: uint8(f.Header.TransparentColor),
		Flags:       f.Header.Flags,
		AnimData:    append([]sti.AnimBlock(nil), f.AnimData...),
	}
	switch {
	case f.Is8Bit():
		c.Mode = ModeIndexed
		c.Palette = f.Palette.Clone()
	case f.Is16Bit():
		c.Mode = Mode565
	default:
		return nil, errors.New("decoded file selects no known color mode")
	}

	bpp := c.BytesPerPixel()
	for i := range f.Images {
		img := &f.Images[i]
		want := int(img.Width) * int(img.Height) * bpp
		if len(img.Data) != want {
			return nil, errors.Errorf("image %d data length %d, want %d", i, len(img.Data), want)
		}
		c.Frames = append(c.Frames, &Buffer{
			Width:  int(img.Width),
			Height: int(img.Height),
			Pix:    append([]byte(nil), img.Data...),
		})
	}
	return c, nil
}

// ToFile converts the collection back into an encodable STI payload.
func (c *Collection) ToFile() (*sti.File, error) {
	if len(c.Frames) == 0 {
		return nil, errors.New("collection has no frames")
	}

	f := &sti.File{
		Header: sti.Header{
			TransparentColor: uint32(c.Transparent),
			Flags:            c.Flags,
		},
		AnimData: append([]sti.AnimBlock(nil), c.AnimData...),
	}
	if c.Mode == ModeIndexed {
		f.Header.Flags |= sti.FlagIndexed
		f.Header.Flags &^= sti.FlagRGB
		f.Palette = c.Palette.Clone()
	} else {
		f.Header.Flags |= sti.FlagRGB
		f.Header.Flags &^= sti.FlagIndexed
	}

	for _, b := range c.Frames {
		f.Images = append(f.Images, sti.Image{
			Width:  uint16(b.Width),
			Height: uint16(b.Height),
			Data:   append([]byte(nil), b.Pix...),
		})
	}
	return f, nil
}

// AddFrame appends a new frame of the given dimensions with every
// sample byte set to fill.
func (c *Collection) AddFrame(width, height int, fill uint8) error {
	b, err := NewBuffer(width, height, c.BytesPerPixel(), fill)
	if err != nil {
		return err
	}
	c.Frames = append(c.Frames, b)
	return nil
}

// RemoveFrames removes all named frames in one step. Removing every
// frame is rejected with ErrLastFrame; the collection is left untouched
// on any error.
func (c *Collection) RemoveFrames(indices []int) error {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(c.Frames) {
			return errors.Errorf("frame index %d out of range", i)
		}
		drop[i] = true
	}
	if len(drop) == 0 {
		return nil
	}
	if len(drop) >= len(c.Frames) {
		return ErrLastFrame
	}

	kept := c.Frames[:0:0]
	for i, f := range c.Frames {
		if !drop[i] {
			kept = append(kept, f)
		}
	}
	c.Frames = kept
	return nil
}

// ApplyOrder permanently reorders frames so that position p holds the
// frame previously at order[p].
func (c *Collection) ApplyOrder(order []int) error {
	if err := validatePermutation(order, len(c.Frames)); err != nil {
		return err
	}
	next := make([]*Buffer, len(c.Frames))
	for pos, orig := range order {
		next[pos] = c.Frames[orig]
	}
	c.Frames = next
	return nil
}

func validatePermutation(order []int, n int) error {
	if len(order) != n {
		return ErrInvalidPermutation
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return ErrInvalidPermutation
		}
		seen[v] = true
	}
	return nil
}

func sortedIndices(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

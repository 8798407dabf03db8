package edit

// Buffer owns one frame's raw samples: one palette index byte per pixel
// in indexed mode, two little-endian bytes per pixel in packed 16-bit
// mode. len(Pix) is always Width*Height times the collection's bytes
// per pixel.
type Buffer struct {
	Width  int
	Height int
	Pix    []byte
}

// NewBuffer allocates a frame of the given dimensions, bytesPerPixel 1
// or 2, with every sample byte set to fill.
func NewBuffer(width, height, bytesPerPixel int, fill byte) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrBadDimensions
	}
	b := &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*bytesPerPixel),
	}
	if fill != 0 {
		for i := range b.Pix {
			b.Pix[i] = fill
		}
	}
	return b, nil
}

// Clone returns a deep copy sharing no storage with the receiver.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{
		Width:  b.Width,
		Height: b.Height,
		Pix:    append([]byte(nil), b.Pix...),
	}
}

func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

// SampleIndexed reads the palette index at (x, y). ok is false out of
// bounds.
func (b *Buffer) SampleIndexed(x, y int) (v uint8, ok bool) {
	if !b.inBounds(x, y) {
		return 0, false
	}
	return b.Pix[y*b.Width+x], true
}

// SetIndexed writes the palette index at (x, y). Out of bounds writes
// are dropped; pointer drags routinely report coordinates outside the
// canvas.
func (b *Buffer) SetIndexed(x, y int, v uint8) bool {
	if !b.inBounds(x, y) {
		return false
	}
	b.Pix[y*b.Width+x] = v
	return true
}

// Sample565 reads the packed 16-bit sample at (x, y).
func (b *Buffer) Sample565(x, y int) (v uint16, ok bool) {
	if !b.inBounds(x, y) {
		return 0, false
	}
	off := (y*b.Width + x) * 2
	return uint16(b.Pix[off]) | uint16(b.Pix[off+1])<<8, true
}

// Set565 writes the packed 16-bit sample at (x, y), little endian.
func (b *Buffer) Set565(x, y int, v uint16) bool {
	if !b.inBounds(x, y) {
		return false
	}
	off := (y*b.Width + x) * 2
	b.Pix[off] = byte(v)
	b.Pix[off+1] = byte(v >> 8)
	return true
}

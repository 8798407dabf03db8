package sti

// This file contains code directly related to decoding and encoding
// the STCI file format container: the fixed 64-byte header, the
// palette, the per-image headers and the app data trailer.

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Signature is the four byte magic at the start of every STI file.
var Signature = [4]byte{'S', 'T', 'C', 'I'}

// Flags is the bitfield at byte 16 of the header describing the storage
// format of the file.
type Flags uint32

const (
	// FlagTransparent marks palette index 0 as transparent.
	FlagTransparent Flags = 1 << iota
	// FlagAlpha marks the file as carrying an alpha channel. Unused by
	// known files.
	FlagAlpha
	// FlagRGB marks a 16-bit packed-color file.
	FlagRGB
	// FlagIndexed marks an 8-bit palette-indexed file.
	FlagIndexed
	// FlagZlib marks zlib stream compression. Round-tripped but never
	// produced by this package.
	FlagZlib
	// FlagETRLE marks per-image ETRLE compression.
	FlagETRLE
)

// FormatError describes a structurally invalid STI payload (bad
// signature, contradictory flags, truncated data).
type FormatError string

func (e FormatError) Error() string { return "sti: invalid format: " + string(e) }

// Header is the decoded 64-byte STCI header. Fields that do not apply
// to the file's color mode are zero.
type Header struct {
	OriginalSize     uint32 // uncompressed pixel data size in bytes
	CompressedSize   uint32 // on-disk pixel data size in bytes
	TransparentColor uint32 // palette index treated as transparent (8-bit only)
	Flags            Flags

	// 16-bit files only.
	Height, Width                              uint16
	RedMask, GreenMask, BlueMask, AlphaMask    uint32
	RedDepth, GreenDepth, BlueDepth, AlphaDepth uint8

	// 8-bit files only.
	PaletteColors uint32
	NumImages     uint16

	ColorDepth  uint8 // bits per pixel, 8 or 16
	AppDataSize uint32
}

// SubImageHeader precedes each image's data in an 8-bit multi-image file.
type SubImageHeader struct {
	DataOffset uint32 // offset into the image data section
	DataSize   uint32
	OffsetX    int16
	OffsetY    int16
	Height     uint16
	Width      uint16
}

// AnimBlock is one 16-byte app data record. One record exists per image
// in animated files; FrameCount is nonzero on the first image of each
// animation direction.
type AnimBlock struct {
	Unknown1   [8]byte
	FrameCount uint8
	Unknown2   uint8
	Unknown3   [6]byte
}

// Palette is an ordered list of RGB triples shared by all images of an
// 8-bit file. On disk it is always 256 entries.
type Palette [][3]uint8

// Clone returns a deep copy of the palette.
func (p Palette) Clone() Palette {
	if p == nil {
		return nil
	}
	q := make(Palette, len(p))
	copy(q, p)
	return q
}

// Image is a single frame of an STI file. Data holds decompressed
// samples: one byte per pixel for indexed files, two little-endian bytes
// per pixel for 16-bit files. Raw holds the on-disk form and is
// refreshed on encode.
type Image struct {
	Header *SubImageHeader // nil for 16-bit files
	Raw    []byte
	Data   []byte
	Width  uint16
	Height uint16
}

// File is a fully decoded STI file.
type File struct {
	Header   Header
	Palette  Palette // nil unless indexed
	Images   []Image
	AnimData []AnimBlock
}

// Is8Bit reports whether the file is palette indexed.
func (f *File) Is8Bit() bool {
	return f.Header.Flags&FlagIndexed != 0 && f.Header.Flags&FlagRGB == 0
}

// Is16Bit reports whether the file stores packed 16-bit color.
func (f *File) Is16Bit() bool {
	return f.Header.Flags&FlagRGB != 0 && f.Header.Flags&FlagIndexed == 0
}

// IsAnimated reports whether the file holds more than one image.
func (f *File) IsAnimated() bool { return len(f.Images) > 1 }

// IsCompressed reports whether any stream or run-length compression flag
// is set.
func (f *File) IsCompressed() bool {
	return f.Header.Flags&(FlagETRLE|FlagZlib) != 0
}

// Clone returns a deep copy sharing no mutable storage with the
// receiver.
func (f *File) Clone() *File {
	out := &File{
		Header:   f.Header,
		Palette:  f.Palette.Clone(),
		Images:   make([]Image, len(f.Images)),
		AnimData: append([]AnimBlock(nil), f.AnimData...),
	}
	for i := range f.Images {
		img := f.Images[i]
		img.Raw = append([]byte(nil), img.Raw...)
		img.Data = append([]byte(nil), img.Data...)
		if img.Header != nil {
			h := *img.Header
			img.Header = &h
		}
		out.Images[i] = img
	}
	return out
}

func skip(r io.Reader, n int64) error {
	_, err := io.CopyN(io.Discard, r, n)
	return err
}

// Decode reads a complete STI file from r.
func Decode(r io.Reader) (*File, error) {
	h, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}

	f := &File{Header: h}
	switch {
	case f.Is8Bit():
		err = decode8Bit(r, f)
	case f.Is16Bit():
		err = decode16Bit(r, f)
	default:
		return nil, FormatError("flags select neither 8-bit nor 16-bit storage")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func decodeHeader(r io.Reader) (Header, error) {
	var h Header

	var sig [4]byte
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return h, errors.Wrap(err, "reading sti signature")
	}
	if sig != Signature {
		return h, FormatError("bad signature")
	}

	var fixed struct {
		OriginalSize     uint32
		CompressedSize   uint32
		TransparentColor uint32
		Flags            uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &fixed); err != nil {
		return h, errors.Wrap(err, "reading sti header")
	}
	h.OriginalSize = fixed.OriginalSize
	h.CompressedSize = fixed.CompressedSize
	h.TransparentColor = fixed.TransparentColor
	h.Flags = Flags(fixed.Flags)

	switch {
	case h.Flags&FlagRGB != 0 && h.Flags&FlagIndexed == 0:
		var rgb struct {
			Height, Width                               uint16
			RedMask, GreenMask, BlueMask, AlphaMask     uint32
			RedDepth, GreenDepth, BlueDepth, AlphaDepth uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &rgb); err != nil {
			return h, errors.Wrap(err, "reading sti rgb header")
		}
		h.Height, h.Width = rgb.Height, rgb.Width
		h.RedMask, h.GreenMask, h.BlueMask, h.AlphaMask = rgb.RedMask, rgb.GreenMask, rgb.BlueMask, rgb.AlphaMask
		h.RedDepth, h.GreenDepth, h.BlueDepth, h.AlphaDepth = rgb.RedDepth, rgb.GreenDepth, rgb.BlueDepth, rgb.AlphaDepth
	case h.Flags&FlagIndexed != 0 && h.Flags&FlagRGB == 0:
		// In indexed files bytes 20..23 hold no meaning. Palette and
		// image count follow at byte 24.
		if err := skip(r, 4); err != nil {
			return h, errors.Wrap(err, "reading sti indexed header")
		}
		var idx struct {
			PaletteColors                    uint32
			NumImages                        uint16
			RedDepth, GreenDepth, BlueDepth uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return h, errors.Wrap(err, "reading sti indexed header")
		}
		h.PaletteColors = idx.PaletteColors
		h.NumImages = idx.NumImages
		h.RedDepth, h.GreenDepth, h.BlueDepth = idx.RedDepth, idx.GreenDepth, idx.BlueDepth
		if err := skip(r, 11); err != nil {
			return h, errors.Wrap(err, "reading sti indexed header")
		}
	default:
		return h, FormatError("flags must select exactly one of RGB or indexed")
	}

	var tail struct {
		ColorDepth  uint8
		AppDataSize uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &tail); err != nil {
		return h, errors.Wrap(err, "reading sti header tail")
	}
	h.ColorDepth = tail.ColorDepth
	h.AppDataSize = tail.AppDataSize

	// Unused trailing bytes up to the full 64-byte header.
	if err := skip(r, 15); err != nil {
		return h, errors.Wrap(err, "reading sti header padding")
	}

	return h, nil
}

func decode8Bit(r io.Reader, f *File) error {
	pal := make(Palette, 256)
	for i := range pal {
		if _, err := io.ReadFull(r, pal[i][:]); err != nil {
			return errors.Wrap(err, "reading sti palette")
		}
	}
	f.Palette = pal

	subs := make([]SubImageHeader, f.Header.NumImages)
	for i := range subs {
		if err := binary.Read(r, binary.LittleEndian, &subs[i]); err != nil {
			return errors.Wrapf(err, "reading sti subimage header %d", i)
		}
	}

	for i := range subs {
		sub := subs[i]
		img := Image{
			Header: &sub,
			Width:  sub.Width,
			Height: sub.Height,
			Raw:    make([]byte, sub.DataSize),
		}
		if _, err := io.ReadFull(r, img.Raw); err != nil {
			return errors.Wrapf(err, "reading sti image %d data", i)
		}
		if f.Header.Flags&FlagETRLE != 0 {
			data, err := DecompressETRLE(img.Raw, int(sub.Width), int(sub.Height))
			if err != nil {
				return errors.Wrapf(err, "decompressing sti image %d", i)
			}
			img.Data = data
		} else {
			img.Data = append([]byte(nil), img.Raw...)
		}
		f.Images = append(f.Images, img)
	}

	if f.Header.AppDataSize > 0 {
		n := int(f.Header.AppDataSize / 16)
		f.AnimData = make([]AnimBlock, n)
		for i := range f.AnimData {
			if err := binary.Read(r, binary.LittleEndian, &f.AnimData[i]); err != nil {
				return errors.Wrapf(err, "reading sti app data block %d", i)
			}
		}
	}

	return nil
}

func decode16Bit(r io.Reader, f *File) error {
	size := 2 * int(f.Header.Width) * int(f.Header.Height)
	if size == 0 {
		return FormatError("16-bit file with zero dimensions")
	}
	img := Image{
		Width:  f.Header.Width,
		Height: f.Header.Height,
		Raw:    make([]byte, size),
	}
	if _, err := io.ReadFull(r, img.Raw); err != nil {
		return errors.Wrap(err, "reading sti 16-bit image data")
	}
	// 16-bit data is stored uncompressed.
	img.Data = append([]byte(nil), img.Raw...)
	f.Images = append(f.Images, img)
	return nil
}

// Encode writes the file to w, recompressing image data and recomputing
// the header size fields and the subimage offset chain.
func (f *File) Encode(w io.Writer) error {
	switch {
	case f.Is8Bit():
		return f.encode8Bit(w)
	case f.Is16Bit():
		return f.encode16Bit(w)
	}
	return FormatError("flags select neither 8-bit nor 16-bit storage")
}

func (f *File) encode8Bit(w io.Writer) error {
	if f.Palette == nil {
		return FormatError("8-bit file requires a palette")
	}
	if len(f.Palette) > 256 {
		return FormatError("palette exceeds 256 colors")
	}
	if len(f.Images) == 0 {
		return FormatError("8-bit file requires at least one image")
	}

	// Refresh raw data and the subimage header chain from the
	// authoritative decompressed samples.
	subs := make([]SubImageHeader, len(f.Images))
	var offset, original, compressed uint32
	for i := range f.Images {
		img := &f.Images[i]
		want := int(img.Width) * int(img.Height)
		if len(img.Data) != want {
			return FormatError("image data length does not match dimensions")
		}
		if f.Header.Flags&FlagETRLE != 0 {
			raw, err := CompressETRLE(img.Data, int(img.Width), int(img.Height))
			if err != nil {
				return err
			}
			img.Raw = raw
		} else {
			img.Raw = append([]byte(nil), img.Data...)
		}
		subs[i] = SubImageHeader{
			DataOffset: offset,
			DataSize:   uint32(len(img.Raw)),
			Height:     img.Height,
			Width:      img.Width,
		}
		if img.Header != nil {
			subs[i].OffsetX = img.Header.OffsetX
			subs[i].OffsetY = img.Header.OffsetY
		}
		sub := subs[i]
		img.Header = &sub
		offset += uint32(len(img.Raw))
		original += uint32(want)
		compressed += uint32(len(img.Raw))
	}

	h := f.Header
	h.OriginalSize = original
	h.CompressedSize = compressed
	h.PaletteColors = 256
	h.NumImages = uint16(len(f.Images))
	h.ColorDepth = 8
	h.AppDataSize = uint32(16 * len(f.AnimData))
	f.Header = h

	if err := encodeHeader(w, h); err != nil {
		return err
	}

	for i := 0; i < 256; i++ {
		var c [3]uint8
		if i < len(f.Palette) {
			c = f.Palette[i]
		}
		if _, err := w.Write(c[:]); err != nil {
			return errors.Wrap(err, "writing sti palette")
		}
	}
	for i := range subs {
		if err := binary.Write(w, binary.LittleEndian, &subs[i]); err != nil {
			return errors.Wrapf(err, "writing sti subimage header %d", i)
		}
	}
	for i := range f.Images {
		if _, err := w.Write(f.Images[i].Raw); err != nil {
			return errors.Wrapf(err, "writing sti image %d data", i)
		}
	}
	for i := range f.AnimData {
		if err := binary.Write(w, binary.LittleEndian, &f.AnimData[i]); err != nil {
			return errors.Wrapf(err, "writing sti app data block %d", i)
		}
	}
	return nil
}

func (f *File) encode16Bit(w io.Writer) error {
	if len(f.Images) != 1 {
		return FormatError("16-bit file requires exactly one image")
	}
	img := &f.Images[0]
	want := 2 * int(img.Width) * int(img.Height)
	if len(img.Data) != want {
		return FormatError("image data length does not match dimensions")
	}
	img.Raw = append([]byte(nil), img.Data...)

	h := f.Header
	h.Width = img.Width
	h.Height = img.Height
	h.OriginalSize = uint32(want)
	h.CompressedSize = uint32(want)
	h.ColorDepth = 16
	h.RedMask, h.GreenMask, h.BlueMask = 0xF800, 0x07E0, 0x001F
	h.RedDepth, h.GreenDepth, h.BlueDepth = 5, 6, 5
	h.AppDataSize = 0
	f.Header = h

	if err := encodeHeader(w, h); err != nil {
		return err
	}
	if _, err := w.Write(img.Raw); err != nil {
		return errors.Wrap(err, "writing sti 16-bit image data")
	}
	return nil
}

func encodeHeader(w io.Writer, h Header) error {
	buf := make([]byte, 64)
	copy(buf, Signature[:])
	le := binary.LittleEndian
	le.PutUint32(buf[4:], h.OriginalSize)
	le.PutUint32(buf[8:], h.CompressedSize)
	le.PutUint32(buf[12:], h.TransparentColor)
	le.PutUint32(buf[16:], uint32(h.Flags))

	if h.Flags&FlagRGB != 0 {
		le.PutUint16(buf[20:], h.Height)
		le.PutUint16(buf[22:], h.Width)
		le.PutUint32(buf[24:], h.RedMask)
		le.PutUint32(buf[28:], h.GreenMask)
		le.PutUint32(buf[32:], h.BlueMask)
		le.PutUint32(buf[36:], h.AlphaMask)
		buf[40] = h.RedDepth
		buf[41] = h.GreenDepth
		buf[42] = h.BlueDepth
		buf[43] = h.AlphaDepth
	} else {
		le.PutUint32(buf[24:], h.PaletteColors)
		le.PutUint16(buf[28:], h.NumImages)
		buf[30] = h.RedDepth
		buf[31] = h.GreenDepth
		buf[32] = h.BlueDepth
	}

	buf[44] = h.ColorDepth
	le.PutUint32(buf[45:], h.AppDataSize)

	_, err := w.Write(buf)
	return errors.Wrap(err, "writing sti header")
}

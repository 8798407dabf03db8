package sti

// This file contains sti package's functions related to implementing
// image.Image and related interfaces. The multi-image nature of the
// format is modeled after the public interface of the image/gif
// package.

import (
	"bytes"
	"image"
	"image/color"
	"io"
)

func init() {
	image.RegisterFormat("sti", "STCI", DecodeImage, DecodeConfig)
}

// Pack565 converts an RGB triple into the file's little-endian packed
// 16-bit form, truncating each channel toward zero.
func Pack565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// Unpack565 expands a packed 16-bit sample back into an RGB triple.
func Unpack565(v uint16) (r, g, b uint8) {
	r = uint8(v>>11&0x1F) << 3
	g = uint8(v>>5&0x3F) << 2
	b = uint8(v&0x1F) << 3
	return
}

// ColorPalette converts the file palette into an image/color palette.
// When transparent is true, entry 0 becomes fully transparent.
func (p Palette) ColorPalette(transparent bool) color.Palette {
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xFF}
	}
	if transparent && len(out) > 0 {
		out[0] = color.RGBA{}
	}
	return out
}

// Frame converts the image at the passed index into an image.Image:
// an *image.Paletted for indexed files, an *image.RGBA for 16-bit
// files.
func (f *File) Frame(idx int) (image.Image, error) {
	if idx < 0 || idx >= len(f.Images) {
		return nil, FormatError("image index out of range")
	}
	img := &f.Images[idx]
	rect := image.Rect(0, 0, int(img.Width), int(img.Height))

	if f.Is8Bit() {
		pal := f.Palette.ColorPalette(f.Header.Flags&FlagTransparent != 0)
		out := image.NewPaletted(rect, pal)
		copy(out.Pix, img.Data)
		return out, nil
	}

	out := image.NewRGBA(rect)
	for i := 0; i+1 < len(img.Data); i += 2 {
		v := uint16(img.Data[i]) | uint16(img.Data[i+1])<<8
		r, g, b := Unpack565(v)
		out.Pix[i*2] = r
		out.Pix[i*2+1] = g
		out.Pix[i*2+2] = b
		out.Pix[i*2+3] = 0xFF
	}
	return out, nil
}

// DecodeImage returns the first image of the STI file in r.
func DecodeImage(r io.Reader) (image.Image, error) {
	f, err := Decode(r)
	if err != nil {
		return nil, err
	}
	if len(f.Images) == 0 {
		return nil, FormatError("file contains no images")
	}
	return f.Frame(0)
}

// DecodeConfig returns the dimensions and color model of the first
// image in the STI file in r.
func DecodeConfig(r io.Reader) (image.Config, error) {
	f, err := Decode(r)
	if err != nil {
		return image.Config{}, err
	}
	if len(f.Images) == 0 {
		return image.Config{}, FormatError("file contains no images")
	}
	cfg := image.Config{
		Width:  int(f.Images[0].Width),
		Height: int(f.Images[0].Height),
	}
	if f.Is8Bit() {
		cfg.ColorModel = f.Palette.ColorPalette(f.Header.Flags&FlagTransparent != 0)
	} else {
		cfg.ColorModel = color.RGBAModel
	}
	return cfg, nil
}

// EncodeBytes is a convenience wrapper returning the encoded file as a
// byte slice.
func (f *File) EncodeBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

package sti

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"badc0de.net/pkg/go-sti/ttesting"
)

func TestPack565(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint16
	}{
		{0, 0, 0, 0x0000},
		{255, 255, 255, 0xFFFF},
		{255, 0, 0, 0xF800},
		{0, 255, 0, 0x07E0},
		{0, 0, 255, 0x001F},
	}
	for _, tc := range tests {
		if got := Pack565(tc.r, tc.g, tc.b); got != tc.want {
			t.Errorf("Pack565(%d,%d,%d) = %04x; want %04x", tc.r, tc.g, tc.b, got, tc.want)
		}
	}
}

func TestUnpack565RoundTrip(t *testing.T) {
	// Channel values already on the 565 grid survive the round trip
	// exactly.
	r, g, b := Unpack565(Pack565(248, 252, 8))
	if r != 248 || g != 252 || b != 8 {
		t.Errorf("round trip = (%d,%d,%d); want (248,252,8)", r, g, b)
	}
}

func TestFrameIndexed(t *testing.T) {
	f := testIndexedFile()

	img, err := f.Frame(0)
	if err != nil {
		t.Fatalf("failed to extract frame: %s", err)
	}
	pal, ok := img.(*image.Paletted)
	if !ok {
		t.Fatalf("frame is %T; want *image.Paletted", img)
	}
	ttesting.AssertEqualInt(t, "width", pal.Bounds().Dx(), 4)
	ttesting.AssertEqualInt(t, "height", pal.Bounds().Dy(), 2)
	ttesting.AssertEqualBytes(t, "pix", pal.Pix, f.Images[0].Data)

	// FlagTransparent makes palette entry 0 fully transparent.
	_, _, _, a := pal.Palette[0].RGBA()
	ttesting.AssertEqualInt(t, "entry 0 alpha", int(a), 0)
}

func TestFrame16Bit(t *testing.T) {
	v := Pack565(248, 252, 8)
	f := &File{
		Header: Header{Flags: FlagRGB},
		Images: []Image{
			{Width: 1, Height: 1, Data: []byte{byte(v), byte(v >> 8)}},
		},
	}
	img, err := f.Frame(0)
	if err != nil {
		t.Fatalf("failed to extract frame: %s", err)
	}
	got := img.(*image.RGBA).RGBAAt(0, 0)
	if got != (color.RGBA{R: 248, G: 252, B: 8, A: 0xFF}) {
		t.Errorf("pixel = %v; want {248 252 8 255}", got)
	}
}

func TestFrameOutOfRange(t *testing.T) {
	f := testIndexedFile()
	if _, err := f.Frame(5); err == nil {
		t.Errorf("extracted frame 5 of a 2-frame file; want error")
	}
	if _, err := f.Frame(-1); err == nil {
		t.Errorf("extracted frame -1; want error")
	}
}

func TestDecodeConfig(t *testing.T) {
	raw, err := testIndexedFile().EncodeBytes()
	if err != nil {
		t.Fatalf("failed to encode: %s", err)
	}
	cfg, err := DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("failed to decode config: %s", err)
	}
	ttesting.AssertEqualInt(t, "width", cfg.Width, 4)
	ttesting.AssertEqualInt(t, "height", cfg.Height, 2)
}

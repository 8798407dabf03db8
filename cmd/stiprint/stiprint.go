// Command stiprint prints frames, palettes and summaries of STI sprite
// files on the terminal.
//
// Usage:
//
//	stiprint --frame 3 tileset.sti
//	stiprint --palette --sti_path tileset.sti
//	stiprint --info tileset.sti
package main

import (
	"context"
	"flag"
	"fmt"

	"badc0de.net/pkg/flagutil/v1"

	"github.com/golang/glog"

	"badc0de.net/pkg/go-sti/imageprint"
	"badc0de.net/pkg/go-sti/paths"
	"badc0de.net/pkg/go-sti/store"
)

var (
	frame    = flag.Int("frame", 0, "frame to print")
	palette  = flag.Bool("palette", false, "print the palette swatch grid instead of a frame")
	info     = flag.Bool("info", false, "print a file summary instead of a frame")
	col      = flag.Bool("col", true, "whether to print in color at all")
	col256   = flag.Bool("col256", false, "whether to use 256 col instead of 24 bit")
	iterm    = flag.Bool("iterm", false, "whether to print with iterm escape code instead of 24 bit")
	rasterm  = flag.Bool("rasterm", false, "whether to print with the rasterm library (kitty, iterm, sixel)")
	blanks   = flag.Bool("blanks", true, "whether to just use colored blanks instead of some bad ascii art")
	downsize = flag.Bool("downsize", false, "whether to shrink the frame to fit the terminal")

	stiPath string
)

func main() {
	paths.SetupFilePathFlag("sample.sti", "sti_path", &stiPath)
	flagutil.Parse()

	path := flag.Arg(0)
	if path == "" {
		path = stiPath
	}
	if path == "" {
		glog.Exit("usage: stiprint [flags] file.sti")
	}

	ctx := context.Background()
	st := store.New()

	if *info {
		fi, err := st.Stat(ctx, path)
		if err != nil {
			glog.Exitf("error reading %q: %v", path, err)
		}
		mode := "16-bit rgb565"
		if fi.Is8Bit {
			mode = "8-bit indexed"
		}
		fmt.Printf("%s: %dx%d, %d frame(s), %s, compressed=%v, %d bytes\n",
			path, fi.Width, fi.Height, fi.NumImages, mode, fi.Compressed, fi.FileSize)
		return
	}

	f, err := st.Decode(ctx, path)
	if err != nil {
		glog.Exitf("error decoding %q: %v", path, err)
	}

	if *palette {
		if !f.Is8Bit() {
			glog.Exitf("%q is a 16-bit file and carries no palette", path)
		}
		imageprint.PrintPalette(f.Palette)
		return
	}

	img, err := f.Frame(*frame)
	if err != nil {
		glog.Exitf("error extracting frame %d: %v", *frame, err)
	}
	out(img)
}

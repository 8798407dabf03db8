package imageprint

import (
	"fmt"

	"github.com/bradfitz/iter"
	"github.com/gookit/color"

	"badc0de.net/pkg/go-sti/sti"
)

// PrintPalette draws a sprite palette as a 16x16 swatch grid using
// 24bit background escapes.
func PrintPalette(p sti.Palette) {
	for row := range iter.N(16) {
		for col := range iter.N(16) {
			i := row*16 + col
			if i >= len(p) {
				break
			}
			c := p[i]
			color.RGB(c[0], c[1], c[2], true).Printf("  ")
		}
		fmt.Printf("\x1b[0m\n")
	}
}

package edit

import (
	"badc0de.net/pkg/go-sti/sti"
)

// Tool selects a pixel painting behavior.
type Tool int

const (
	// ToolBrush writes the selected color at the target pixel.
	ToolBrush Tool = iota
	// ToolEraser writes the transparent index. Indexed mode only.
	ToolEraser
	// ToolEyedropper reads the target pixel without mutating it.
	ToolEyedropper
	// ToolPan is a viewport operation and never touches pixels.
	ToolPan
	// ToolFill is reserved. It is declared for tool palettes but
	// performs no mutation.
	ToolFill
)

// Color is a paint operand: the palette index applies in indexed mode,
// the RGB triple in packed mode.
type Color struct {
	Index   uint8
	R, G, B uint8
}

// Paint applies tool at (x, y) on frame b of collection c. Out of range
// coordinates are silently ignored. The returned color is meaningful
// only for ToolEyedropper, where it carries the sample under the
// cursor as the new selected color; mutated reports whether a write
// landed on the frame.
func Paint(c *Collection, b *Buffer, x, y int, tool Tool, col Color) (picked Color, mutated bool) {
	switch tool {
	case ToolBrush:
		if c.Mode == ModeIndexed {
			return col, b.SetIndexed(x, y, col.Index)
		}
		return col, b.Set565(x, y, sti.Pack565(col.R, col.G, col.B))

	case ToolEraser:
		// Erasing has no meaning without a transparent palette slot.
		if c.Mode != ModeIndexed {
			return col, false
		}
		return col, b.SetIndexed(x, y, 0)

	case ToolEyedropper:
		if c.Mode == ModeIndexed {
			v, ok := b.SampleIndexed(x, y)
			if !ok {
				return col, false
			}
			picked = Color{Index: v}
			if int(v) < len(c.Palette) {
				rgb := c.Palette[v]
				picked.R, picked.G, picked.B = rgb[0], rgb[1], rgb[2]
			}
			return picked, false
		}
		v, ok := b.Sample565(x, y)
		if !ok {
			return col, false
		}
		r, g, bl := sti.Unpack565(v)
		return Color{R: r, G: g, B: bl}, false
	}

	// ToolPan, ToolFill.
	return col, false
}

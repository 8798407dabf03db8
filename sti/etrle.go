package sti

// ETRLE (extended transparent run length encoding) codecs.
//
// Each control byte either encodes a transparent run or announces
// literal pixels: with bit 7 set, the low 7 bits count transparent
// pixels (palette index 0); with bit 7 clear, the low 7 bits count
// literal palette index bytes that follow. Every row is terminated by a
// zero control byte.

// DecompressETRLE expands compressed data into width*height palette
// index bytes. Rows that end short of the full width are padded with
// transparent pixels, matching how the format's consumers behave on
// slightly short payloads.
func DecompressETRLE(compressed []byte, width, height int) ([]byte, error) {
	out := make([]byte, 0, width*height)
	pos := 0
	row := 0
	col := 0

	for pos < len(compressed) && row < height {
		ctrl := compressed[pos]
		pos++

		if ctrl == 0 {
			for col < width {
				out = append(out, 0)
				col++
			}
			row++
			col = 0
			continue
		}

		if ctrl&0x80 != 0 {
			n := int(ctrl & 0x7F)
			for i := 0; i < n; i++ {
				if col >= width {
					return nil, FormatError("etrle transparent run exceeds row width")
				}
				out = append(out, 0)
				col++
			}
		} else {
			n := int(ctrl & 0x7F)
			if pos+n > len(compressed) {
				return nil, FormatError("etrle literal run truncated")
			}
			for i := 0; i < n; i++ {
				if col >= width {
					return nil, FormatError("etrle literal run exceeds row width")
				}
				out = append(out, compressed[pos+i])
				col++
			}
			pos += n
		}
	}

	if len(out) != width*height {
		padded := make([]byte, width*height)
		copy(padded, out)
		out = padded
	}
	return out, nil
}

// CompressETRLE packs width*height palette index bytes into ETRLE form.
func CompressETRLE(pixels []byte, width, height int) ([]byte, error) {
	if len(pixels) != width*height {
		return nil, FormatError("etrle pixel data length does not match dimensions")
	}

	var out []byte
	for row := 0; row < height; row++ {
		rowData := pixels[row*width : (row+1)*width]
		pos := 0
		for pos < len(rowData) {
			if rowData[pos] == 0 {
				n := 0
				for pos+n < len(rowData) && rowData[pos+n] == 0 && n < 127 {
					n++
				}
				out = append(out, 0x80|uint8(n))
				pos += n
			} else {
				n := 0
				for pos+n < len(rowData) && rowData[pos+n] != 0 && n < 127 {
					n++
				}
				out = append(out, uint8(n))
				out = append(out, rowData[pos:pos+n]...)
				pos += n
			}
		}
		out = append(out, 0)
	}
	return out, nil
}

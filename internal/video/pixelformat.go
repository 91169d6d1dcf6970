// Package video decodes the libretro pixel formats a core may push through
// video_refresh into the RGBA8888 the protocol carries across the wire.
// The rendering surface itself (window, GPU upload) is out of scope here;
// only the decode math lives in this package.
package video

import (
	"encoding/binary"
	"fmt"
)

// PixelFormat identifies the core's chosen video_refresh pixel layout,
// set via the SetPixelFormat environment command.
type PixelFormat int

const (
	PixelFormat0RGB1555 PixelFormat = iota
	PixelFormatXRGB8888
	PixelFormatRGB565
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormat0RGB1555:
		return "0RGB1555"
	case PixelFormatXRGB8888:
		return "XRGB8888"
	case PixelFormatRGB565:
		return "RGB565"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the packed pixel size for f.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormat0RGB1555, PixelFormatRGB565:
		return 2
	case PixelFormatXRGB8888:
		return 4
	default:
		return 0
	}
}

// expand5 replicates a 5-bit channel into 8 bits the way 0RGB1555 does:
// (v * 256) / 32, i.e. a pure bit-shift scale with no rounding.
func expand5(v uint16) byte { return byte((uint32(v) * 256) / 32) }

// expand565_5 expands a RGB565 5-bit channel using the standard rounding
// formula so 31 maps to 255 instead of 248.
func expand565_5(v uint16) byte { return byte((uint32(v)*527 + 23) >> 6) }

// expand565_6 expands a RGB565 6-bit channel with the matching rounding
// formula for the green channel's extra bit.
func expand565_6(v uint16) byte { return byte((uint32(v)*259 + 33) >> 6) }

// Decode0RGB1555 decodes one little-endian 0RGB1555 pixel (bit 15 unused,
// 5 bits each of R, G, B) into RGBA8888 channels.
func Decode0RGB1555(src []byte) (r, g, b, a byte) {
	v := binary.LittleEndian.Uint16(src)
	r = expand5((v >> 10) & 0x1F)
	g = expand5((v >> 5) & 0x1F)
	b = expand5(v & 0x1F)
	return r, g, b, 255
}

// DecodeXRGB8888 decodes one little-endian XRGB8888 pixel (top byte
// unused) into RGBA8888 channels.
func DecodeXRGB8888(src []byte) (r, g, b, a byte) {
	v := binary.LittleEndian.Uint32(src)
	r = byte(v >> 16)
	g = byte(v >> 8)
	b = byte(v)
	return r, g, b, 255
}

// DecodeRGB565 decodes one little-endian RGB565 pixel (5 bits red, 6 bits
// green, 5 bits blue) into RGBA8888 channels.
func DecodeRGB565(src []byte) (r, g, b, a byte) {
	v := binary.LittleEndian.Uint16(src)
	r = expand565_5((v >> 11) & 0x1F)
	g = expand565_6((v >> 5) & 0x3F)
	b = expand565_5(v & 0x1F)
	return r, g, b, 255
}

func decodePixel(fmtID PixelFormat, src []byte) (r, g, b, a byte) {
	switch fmtID {
	case PixelFormat0RGB1555:
		return Decode0RGB1555(src)
	case PixelFormatXRGB8888:
		return DecodeXRGB8888(src)
	case PixelFormatRGB565:
		return DecodeRGB565(src)
	default:
		return 0, 0, 0, 0
	}
}

// ErrPitchTooSmall is returned when a core reports a pitch narrower than
// width*bytesPerPixel, which would read past the end of a row instead of
// across the intended padding.
var ErrPitchTooSmall = fmt.Errorf("video: pitch smaller than width*bytesPerPixel")

// ConvertFrame walks a padded framebuffer at the given stride (pitch) and
// emits a tightly packed RGBA8888 buffer of width*height*4 bytes.
func ConvertFrame(fmtID PixelFormat, src []byte, width, height, pitch int) ([]byte, error) {
	bpp := fmtID.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("video: unknown pixel format %v", fmtID)
	}
	if pitch < width*bpp {
		return nil, fmt.Errorf("%w: pitch=%d width=%d bpp=%d", ErrPitchTooSmall, pitch, width, bpp)
	}
	if len(src) < pitch*(height-1)+width*bpp {
		return nil, fmt.Errorf("video: source buffer too small for %dx%d at pitch %d", width, height, pitch)
	}

	out := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		row := src[y*pitch:]
		for x := 0; x < width; x++ {
			r, g, b, a := decodePixel(fmtID, row[x*bpp:])
			i := (y*width + x) * 4
			out[i] = r
			out[i+1] = g
			out[i+2] = b
			out[i+3] = a
		}
	}
	return out, nil
}

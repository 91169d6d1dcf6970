package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecode0RGB1555_MaxBlueChannel covers bytes [0x1F, 0x00], which carry
// blue=31 in the low 5 bits and everything else zero.
func TestDecode0RGB1555_MaxBlueChannel(t *testing.T) {
	t.Parallel()

	r, g, b, a := Decode0RGB1555([]byte{0x1F, 0x00})
	assert.Equal(t, []byte{r, g, b, a}, []byte{0, 0, 248, 255})
}

// TestDecodeRGB565_MaxRedChannel covers bytes [0x00, 0xF8], which carry
// red=31 in the top 5 bits.
func TestDecodeRGB565_MaxRedChannel(t *testing.T) {
	t.Parallel()

	r, g, b, a := DecodeRGB565([]byte{0x00, 0xF8})
	assert.Equal(t, []byte{r, g, b, a}, []byte{255, 0, 0, 255})
}

func TestDecodeXRGB8888_TopByteIgnored(t *testing.T) {
	t.Parallel()

	// Little-endian word 0xFF224466: top byte 0xFF must be dropped.
	r, g, b, a := DecodeXRGB8888([]byte{0x66, 0x44, 0x22, 0xFF})
	assert.Equal(t, []byte{0x22, 0x44, 0x66, 0xFF}, []byte{r, g, b, a})
}

func TestConvertFrame_TightlyPacksPaddedRows(t *testing.T) {
	t.Parallel()

	// 2x2 frame of 0RGB1555 pixels at pitch 6 (2 extra padding bytes/row).
	src := []byte{
		0x1F, 0x00, 0x00, 0x00, 0xAA, 0xAA, // row 0: blue, black, padding
		0x00, 0x00, 0x1F, 0x00, 0xAA, 0xAA, // row 1: black, blue, padding
	}

	out, err := ConvertFrame(PixelFormat0RGB1555, src, 2, 2, 6)
	require.NoError(t, err)
	require.Len(t, out, 2*2*4)

	assert.Equal(t, []byte{0, 0, 248, 255}, out[0:4])
	assert.Equal(t, []byte{0, 0, 0, 255}, out[4:8])
	assert.Equal(t, []byte{0, 0, 0, 255}, out[8:12])
	assert.Equal(t, []byte{0, 0, 248, 255}, out[12:16])
}

// TestConvertFrame_RejectsPitchSmallerThanRowWidth covers a pitch narrower
// than width*bytesPerPixel: it must be rejected rather than silently read
// out of bounds into the next row.
func TestConvertFrame_RejectsPitchSmallerThanRowWidth(t *testing.T) {
	t.Parallel()

	src := make([]byte, 64)
	_, err := ConvertFrame(PixelFormat0RGB1555, src, 10, 4, 16)
	require.ErrorIs(t, err, ErrPitchTooSmall)
}

func TestConvertFrame_RejectsShortSourceBuffer(t *testing.T) {
	t.Parallel()

	src := make([]byte, 4)
	_, err := ConvertFrame(PixelFormatXRGB8888, src, 4, 4, 16)
	require.Error(t, err)
}

func TestPixelFormat_BytesPerPixel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, PixelFormat0RGB1555.BytesPerPixel())
	assert.Equal(t, 2, PixelFormatRGB565.BytesPerPixel())
	assert.Equal(t, 4, PixelFormatXRGB8888.BytesPerPixel())
}

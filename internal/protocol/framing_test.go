package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFraming_WriteThenReadRoundTrips(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a := []byte("first body")
	b := []byte{}

	require.NoError(t, WriteFrame(&buf, a))
	require.NoError(t, WriteFrame(&buf, b))

	got1, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, a, got1)

	got2, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, b, got2)
}

func TestFraming_ShortReadIsFatal(t *testing.T) {
	t.Parallel()

	r := bytes.NewReader([]byte{1, 2, 3})
	_, err := ReadFrame(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFraming_OversizeLengthIsDistinctError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, make([]byte, 0)))
	// Overwrite with an oversize length prefix (S6: peer writes len = 2^40).
	raw := buf.Bytes()
	oversized := append([]byte(nil), raw...)
	oversized[0] = 0
	oversized[1] = 0
	oversized[2] = 0
	oversized[3] = 0
	oversized[4] = 0
	oversized[5] = 0x01 // low bytes of 2^40

	_, err := ReadFrame(bytes.NewReader(oversized))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOversize)
}

func TestFraming_SingleWriteCallPerFrame(t *testing.T) {
	t.Parallel()

	cw := &countingWriter{}
	require.NoError(t, WriteFrame(cw, []byte("hello")))
	assert.Equal(t, 1, cw.calls)
}

type countingWriter struct {
	calls int
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.calls++
	return len(p), nil
}

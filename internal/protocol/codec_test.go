package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, m Message) Message {
	t.Helper()
	body, err := Marshal(m)
	require.NoError(t, err)
	got, err := Unmarshal(body)
	require.NoError(t, err)
	return got
}

func TestCodec_RoundTripsEveryVariant(t *testing.T) {
	t.Parallel()

	defaultVar := "2"
	messages := []Message{
		{ID: 1, Payload: Init{}},
		{ID: 2, Payload: Deinit{}},
		{ID: 3, Payload: Load{Path: "/roms/game.gba"}},
		{ID: 4, Payload: Unload{}},
		{ID: 5, Payload: Reset{}},
		{ID: 6, Payload: Run{}},
		{ID: 6, Payload: RunResponse{}},
		{ID: 7, Payload: SystemInfoRequest{}},
		{ID: 7, Payload: SystemInfoResponse{Info: SystemInfo{
			LibraryName:     "TestCore",
			LibraryVersion:  "1.0",
			ValidExtensions: []string{"gba", "gbc"},
			NeedFullpath:    false,
			BlockExtract:    true,
		}}},
		{ID: 8, Payload: AVInfoRequest{}},
		{ID: 8, Payload: AVInfoResponse{Info: AVInfo{
			BaseWidth: 240, BaseHeight: 160,
			MaxWidth: 240, MaxHeight: 160,
			AspectRatio: 1.5, FPS: 59.73, SampleRate: 32768,
		}}},
		{ID: 9, Payload: APIVersionRequest{}},
		{ID: 9, Payload: APIVersionResponse{Version: 1}},
		{ID: 10, Payload: VideoRefresh{Software: &SoftwareFrame{
			Framebuffer: []byte{1, 2, 3, 4, 5, 6, 7, 8},
			Width:       2, Height: 1,
		}}},
		{ID: 11, Payload: VideoRefresh{Software: nil}},
		{ID: 12, Payload: AudioSample{Samples: []int16{-32768, 0, 32767, 1}}},
		{ID: 13, Payload: PollInput{}},
		{ID: 14, Payload: InputState{Port: 0, Device: 1, Index: 0, ID: 4}},
		{ID: 14, Payload: InputResponse{Value: -1}},
		{ID: 15, Payload: SetVariables{Variables: []Variable{
			{Key: "core_difficulty", Description: "Difficulty", Options: []string{"easy", "normal", "hard"}, Default: "normal"},
		}}},
		{ID: 16, Payload: GetVariable{Key: "core_difficulty"}},
		{ID: 16, Payload: GetVariableResponse{Value: &defaultVar}},
		{ID: 17, Payload: GetVariableResponse{Value: nil}},
		{ID: 18, Payload: Unsupported{For: TagGetVariable}},
	}

	for _, m := range messages {
		got := roundTrip(t, m)
		assert.Equal(t, m, got)
		assert.Equal(t, m.Payload.Tag().IsBlocking(), got.Payload.Tag().IsBlocking())
		assert.Equal(t, m.Payload.Tag().IsResponse(), got.Payload.Tag().IsResponse())
	}
}

func TestCodec_RoundTripsLargeFramebuffer(t *testing.T) {
	t.Parallel()

	fb := make([]byte, 256*240*4)
	for i := range fb {
		fb[i] = byte(i)
	}
	m := Message{ID: 1, Payload: VideoRefresh{Software: &SoftwareFrame{
		Framebuffer: fb, Width: 256, Height: 240,
	}}}

	got := roundTrip(t, m)
	require.IsType(t, VideoRefresh{}, got.Payload)
	vr := got.Payload.(VideoRefresh)
	require.NotNil(t, vr.Software)
	assert.Equal(t, fb, vr.Software.Framebuffer)
}

func TestCodec_RoundTripsLargeAudioBatch(t *testing.T) {
	t.Parallel()

	samples := make([]int16, 32768*2)
	for i := range samples {
		samples[i] = int16(i)
	}
	m := Message{ID: 1, Payload: AudioSample{Samples: samples}}

	got := roundTrip(t, m)
	require.IsType(t, AudioSample{}, got.Payload)
	assert.Equal(t, samples, got.Payload.(AudioSample).Samples)
}

func TestCodec_UnmarshalRejectsUnknownTag(t *testing.T) {
	t.Parallel()

	w := &byteWriter{}
	w.u64(1)
	w.u8(255)
	_, err := Unmarshal(w.buf)
	require.ErrorIs(t, err, ErrUnknownTag)
}

func TestCodec_UnmarshalRejectsTruncatedBody(t *testing.T) {
	t.Parallel()

	body, err := Marshal(Message{ID: 1, Payload: Load{Path: "/roms/longer-than-one-byte.gba"}})
	require.NoError(t, err)

	_, err = Unmarshal(body[:len(body)-3])
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestCodec_UnmarshalRejectsOversizeFieldLength(t *testing.T) {
	t.Parallel()

	w := &byteWriter{}
	w.u64(1)
	w.u8(uint8(TagLoad))
	w.u64(lengthCap + 1)
	_, err := Unmarshal(w.buf)
	require.ErrorIs(t, err, ErrOversize)
}

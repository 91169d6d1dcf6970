package frontend

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/retrohost/retrohost/internal/audio"
	"github.com/retrohost/retrohost/internal/input"
	"github.com/retrohost/retrohost/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrontendPair(t *testing.T, sink audio.Sink, in input.Backend, onFrame FrameHandler) (*Frontend, *protocol.Adapter) {
	t.Helper()
	c1, c2 := net.Pipe()
	back, _ := protocol.New("backend", c1, c1, nil)
	front, frontEvents := protocol.New("frontend", c2, c2, nil)
	t.Cleanup(func() {
		_ = c1.Close()
		_ = c2.Close()
		back.Close()
		front.Close()
	})

	fe := New(nil, front, frontEvents, sink, in, onFrame)
	go fe.Serve(context.Background())
	return fe, back
}

func TestFrontend_InputStateAnswersFromBackend(t *testing.T) {
	t.Parallel()

	snap := input.NewSnapshot()
	snap.Set(0, 1, 0, 4, 9)
	snap.Poll()

	_, back := newFrontendPair(t, nil, snap, nil)

	resp, err := protocol.Expect[protocol.InputResponse](back.Send(protocol.InputState{Port: 0, Device: 1, Index: 0, ID: 4}))
	require.NoError(t, err)
	assert.Equal(t, int16(9), resp.Value)
}

func TestFrontend_AudioSampleReachesSink(t *testing.T) {
	t.Parallel()

	sink := audio.NewRingSink(100)
	_, back := newFrontendPair(t, sink, nil, nil)

	back.Send(protocol.AudioSample{Samples: []int16{1, 2, 3, 4}})

	require.Eventually(t, func() bool { return sink.OccupancyFrames() == 2 }, time.Second, time.Millisecond)
}

func TestFrontend_VideoRefreshInvokesHandler(t *testing.T) {
	t.Parallel()

	got := make(chan *protocol.SoftwareFrame, 1)
	_, back := newFrontendPair(t, nil, nil, func(f *protocol.SoftwareFrame) { got <- f })

	frame := &protocol.SoftwareFrame{Framebuffer: []byte{1, 2, 3, 4}, Width: 1, Height: 1}
	back.Send(protocol.VideoRefresh{Software: frame})

	select {
	case f := <-got:
		assert.Equal(t, frame, f)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame handler call")
	}
}

func TestFrontend_SetVariableOverridesCoreDefault(t *testing.T) {
	t.Parallel()

	fe, back := newFrontendPair(t, nil, nil, nil)
	fe.SetVariable("core_difficulty", "hard")

	// The core announces a default of "normal"; the frontend's explicit
	// override must win.
	back.Send(protocol.SetVariables{Variables: []protocol.Variable{
		{Key: "core_difficulty", Default: "normal"},
	}})

	require.Eventually(t, func() bool {
		resp, err := protocol.Expect[protocol.GetVariableResponse](back.Send(protocol.GetVariable{Key: "core_difficulty"}))
		return err == nil && resp.Value != nil && *resp.Value == "hard"
	}, time.Second, time.Millisecond)
}

func TestFrontend_GetVariableUnknownKeyReturnsNilValue(t *testing.T) {
	t.Parallel()

	_, back := newFrontendPair(t, nil, nil, nil)

	resp, err := protocol.Expect[protocol.GetVariableResponse](back.Send(protocol.GetVariable{Key: "nonexistent"}))
	require.NoError(t, err)
	assert.Nil(t, resp.Value)
}

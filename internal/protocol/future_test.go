package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_PollTwiceIsAnError(t *testing.T) {
	t.Parallel()

	f, ch := newFuture()
	ch <- reply{msg: Message{ID: 1, Payload: RunResponse{}}}

	_, err := f.Poll()
	require.NoError(t, err)

	_, err = f.Poll()
	assert.ErrorIs(t, err, ErrFuturePolled)
}

func TestFuture_TryPollWithoutReadyValueDoesNotConsume(t *testing.T) {
	t.Parallel()

	f, ch := newFuture()
	_, err, ok := f.TryPoll()
	assert.False(t, ok)
	assert.NoError(t, err)

	ch <- reply{msg: Message{ID: 1, Payload: RunResponse{}}}
	msg, err, ok := f.TryPoll()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, TagRunResponse, msg.Payload.Tag())
}

func TestExpect_MismatchedTagIsUnexpectedReplyType(t *testing.T) {
	t.Parallel()

	f, ch := newFuture()
	ch <- reply{msg: Message{ID: 1, Payload: AVInfoResponse{}}}

	_, err := Expect[SystemInfoResponse](f)
	assert.ErrorIs(t, err, ErrUnexpectedReplyType)
}

func TestExpect_UnsupportedBecomesErrUnsupported(t *testing.T) {
	t.Parallel()

	f, ch := newFuture()
	ch <- reply{msg: Message{ID: 1, Payload: Unsupported{For: TagGetVariable}}}

	_, err := Expect[GetVariableResponse](f)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestExpect_DisconnectPropagates(t *testing.T) {
	t.Parallel()

	f, ch := newFuture()
	ch <- reply{err: ErrDisconnected}

	_, err := Expect[RunResponse](f)
	assert.ErrorIs(t, err, ErrDisconnected)
}

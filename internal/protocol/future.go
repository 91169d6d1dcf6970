package protocol

import (
	"fmt"
	"sync/atomic"
)

// reply is what the outbound router's reply channel carries back to a
// Future: either the peer's correlated response or a cancellation error
// (disconnect).
type reply struct {
	msg Message
	err error
}

// Future is a single-use handle bound to one outbound blocking message.
// Poll blocks until the peer's response (or a disconnect) arrives; polling
// it a second time is a programming error.
type Future struct {
	ch     chan reply
	polled atomic.Bool
}

func newFuture() (*Future, chan<- reply) {
	ch := make(chan reply, 1)
	return &Future{ch: ch}, ch
}

// Poll blocks until the response arrives and returns it. It is an error to
// call Poll (or TryPoll) more than once on the same Future.
func (f *Future) Poll() (Message, error) {
	if !f.polled.CompareAndSwap(false, true) {
		return Message{}, ErrFuturePolled
	}
	r := <-f.ch
	return r.msg, r.err
}

// TryPoll is the non-blocking variant: it returns ok=false without
// consuming the Future if the response has not arrived yet.
func (f *Future) TryPoll() (msg Message, err error, ok bool) {
	if f.polled.Load() {
		return Message{}, ErrFuturePolled, true
	}
	select {
	case r := <-f.ch:
		if !f.polled.CompareAndSwap(false, true) {
			return Message{}, ErrFuturePolled, true
		}
		return r.msg, r.err, true
	default:
		return Message{}, nil, false
	}
}

// Expect polls f and asserts the resolved payload has type T, translating
// an Unsupported negative-acknowledgement into ErrUnsupported and any
// other tag mismatch into ErrUnexpectedReplyType. Backend callback
// translation code uses this to avoid repeating type switches at every
// call site.
func Expect[T Payload](f *Future) (T, error) {
	var zero T
	msg, err := f.Poll()
	if err != nil {
		return zero, err
	}
	if payload, ok := msg.Payload.(T); ok {
		return payload, nil
	}
	if u, ok := msg.Payload.(Unsupported); ok {
		return zero, fmt.Errorf("%w: request tag %s", ErrUnsupported, u.For)
	}
	return zero, fmt.Errorf("%w: got %s", ErrUnexpectedReplyType, msg.Payload.Tag())
}

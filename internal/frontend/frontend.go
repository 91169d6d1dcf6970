// Package frontend drives the backend process from the I/O side: it
// services the callback-originated messages (video, audio, input,
// variables) the backend forwards, and paces the blocking Run requests
// that actually advance the core.
package frontend

import (
	"context"
	"log/slog"
	"sync"

	"github.com/retrohost/retrohost/internal/audio"
	"github.com/retrohost/retrohost/internal/input"
	"github.com/retrohost/retrohost/internal/protocol"
)

// FrameHandler receives a decoded frame as it arrives. It must not block
// for long; the dispatch loop has no buffering beyond the adapter's own
// internal queue.
type FrameHandler func(*protocol.SoftwareFrame)

// Frontend owns one backend connection's frontend-side state: the
// variable overlay a user has configured, the input and audio backends,
// and the dispatch loop that answers the backend's requests.
type Frontend struct {
	log     *slog.Logger
	adapter *protocol.Adapter
	events  *protocol.Events

	input input.Backend
	audio audio.Sink

	onFrame FrameHandler

	varsMu sync.RWMutex
	vars   map[string]string
}

// New builds a Frontend. audioSink and inputBackend may be nil, in which
// case audio samples are dropped and all input reads as unpressed.
func New(log *slog.Logger, adapter *protocol.Adapter, events *protocol.Events, audioSink audio.Sink, inputBackend input.Backend, onFrame FrameHandler) *Frontend {
	if log == nil {
		log = slog.Default()
	}
	if inputBackend == nil {
		inputBackend = input.Null{}
	}
	return &Frontend{
		log:     log,
		adapter: adapter,
		events:  events,
		input:   inputBackend,
		audio:   audioSink,
		onFrame: onFrame,
		vars:    make(map[string]string),
	}
}

// SetVariable overrides a core variable's value ahead of the core asking
// for it, e.g. from a config file or command-line flag.
func (f *Frontend) SetVariable(key, value string) {
	f.varsMu.Lock()
	defer f.varsMu.Unlock()
	f.vars[key] = value
}

// Serve answers backend-originated messages until the adapter shuts down
// or ctx is cancelled. ctx is checked between messages only: while Serve
// waits for the next message, cancellation takes effect once a message
// arrives or the adapter shuts down.
func (f *Frontend) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, reply, ok := f.events.Poll()
		if !ok {
			return f.adapter.Err()
		}
		f.dispatch(msg, reply)
	}
}

func (f *Frontend) dispatch(msg protocol.Message, reply protocol.ReplyFunc) {
	switch p := msg.Payload.(type) {
	case protocol.VideoRefresh:
		if f.onFrame != nil {
			f.onFrame(p.Software)
		}
	case protocol.AudioSample:
		if f.audio != nil {
			f.audio.Push(p.Samples)
		}
	case protocol.PollInput:
		f.input.Poll()
	case protocol.InputState:
		reply(protocol.InputResponse{Value: f.input.State(p.Port, p.Device, p.Index, p.ID)})
	case protocol.SetVariables:
		f.recordDefaults(p.Variables)
	case protocol.GetVariable:
		reply(protocol.GetVariableResponse{Value: f.lookupVariable(p.Key)})
	default:
		if msg.IsBlocking() {
			reply(protocol.Unsupported{For: msg.Payload.Tag()})
		} else {
			f.log.Warn("unhandled non-blocking message", "tag", msg.Payload.Tag())
		}
	}
}

// recordDefaults seeds the variable overlay with a core's declared
// defaults, without clobbering a value a caller already set via
// SetVariable.
func (f *Frontend) recordDefaults(defs []protocol.Variable) {
	f.varsMu.Lock()
	defer f.varsMu.Unlock()
	for _, d := range defs {
		if _, exists := f.vars[d.Key]; !exists {
			f.vars[d.Key] = d.Default
		}
	}
}

func (f *Frontend) lookupVariable(key string) *string {
	f.varsMu.RLock()
	defer f.varsMu.RUnlock()
	v, ok := f.vars[key]
	if !ok {
		return nil
	}
	return &v
}

package protocol

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/retrohost/retrohost/internal/metrics"
)

// queueCapacity sizes the adapter's internal channels. It bounds how far a
// fast producer can run ahead of a slow consumer without blocking; it is
// not a protocol-level limit.
const queueCapacity = 256

// ReplyFunc answers a request the local side received from the peer. It is
// one-shot: calling it posts a non-blocking outbound message that reuses
// the originating request's id, so the outbound router doesn't mint a new
// correlation id for a reply.
type ReplyFunc func(Payload)

type event struct {
	msg   Message
	reply ReplyFunc
}

// Events is the receive-only handle for messages the peer originated.
// Poll blocks until a fresh request arrives or the adapter has shut down,
// in which case ok is false (the "terminator").
type Events struct {
	ch <-chan event
}

func (e *Events) Poll() (msg Message, reply ReplyFunc, ok bool) {
	item, open := <-e.ch
	if !open {
		return Message{}, nil, false
	}
	return item.msg, item.reply, true
}

// Adapter is the per-side protocol engine: a decoder and inbound
// dispatcher running as background goroutines, an encoder guarded by a
// mutex so writes are serialized exactly as a single-threaded encoder
// would order them, and an outbound router that runs inline on the
// caller's goroutine (Send assigns ids and registers pending replies
// itself, merging the router into the caller's thread rather than
// running it as a separate goroutine).
type Adapter struct {
	name string
	log  *slog.Logger

	w       io.Writer
	writeMu sync.Mutex // serializes WriteFrame calls; stands in for a dedicated encoder goroutine

	nextID atomic.Uint64

	// pendingMu also guards closed's observability from route(): a message
	// racing the adapter's shutdown must either land in pending (and then
	// be drained by shutdown) or see closed already fired (and never be
	// inserted at all). See route and shutdown.
	pendingMu sync.Mutex
	pending   map[uint64]chan<- reply

	events chan event

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
	closeMu   sync.Mutex
}

// New wires an Adapter around a duplex byte stream split into its reader
// and writer halves (typically two handles onto the same connection) and
// starts its background decode/dispatch goroutines. name tags log lines
// only.
func New(name string, r io.Reader, w io.Writer, logger *slog.Logger) (*Adapter, *Events) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		name:    name,
		log:     logger.With("component", "protocol.adapter", "side", name),
		w:       w,
		pending: make(map[uint64]chan<- reply),
		events:  make(chan event, queueCapacity),
		closed:  make(chan struct{}),
	}
	decoded := make(chan Message, queueCapacity)
	go a.readLoop(r, decoded)
	go a.dispatchLoop(decoded)
	return a, &Events{ch: a.events}
}

// Done is closed once the adapter has shut down, whether because the
// transport reached EOF, a decode/encode error occurred, or Close was
// called explicitly.
func (a *Adapter) Done() <-chan struct{} { return a.closed }

// Err returns the cause of shutdown, or nil if the adapter is still
// running or was closed cleanly by the caller.
func (a *Adapter) Err() error {
	a.closeMu.Lock()
	defer a.closeMu.Unlock()
	return a.closeErr
}

// Close shuts the adapter down and wakes every pending Future with
// ErrDisconnected. It is idempotent.
func (a *Adapter) Close() { a.shutdown(nil) }

// shutdown marks the adapter closed and drains the pending-reply table,
// waking every waiter with a cancellation error instead of leaving it
// parked forever. Closing closed and swapping out the pending map happen
// under the same lock route() uses to test-and-insert, so a message can
// never be registered after the drain has already run past it.
func (a *Adapter) shutdown(cause error) {
	a.closeOnce.Do(func() {
		a.closeMu.Lock()
		a.closeErr = cause
		a.closeMu.Unlock()

		a.pendingMu.Lock()
		close(a.closed)
		drained := a.pending
		a.pending = nil
		a.pendingMu.Unlock()

		for _, ch := range drained {
			metrics.PendingRepliesInFlight.Dec()
			ch <- reply{err: disconnectError(cause)}
		}
	})
}

func disconnectError(cause error) error {
	if cause == nil {
		return ErrDisconnected
	}
	return fmt.Errorf("%w: %v", ErrDisconnected, cause)
}

// readLoop is the decoder worker: it reads framed packets in order and
// deserializes them, handing each to the dispatcher via decoded. A short
// read or deserialization error is fatal and tears the adapter down.
func (a *Adapter) readLoop(r io.Reader, decoded chan<- Message) {
	defer close(decoded)
	for {
		body, err := ReadFrame(r)
		if err != nil {
			if err != io.EOF {
				a.log.Debug("decoder stopped", "error", err)
			}
			a.shutdown(err)
			return
		}
		msg, err := Unmarshal(body)
		if err != nil {
			a.log.Warn("malformed message, shutting down adapter", "error", err)
			a.shutdown(err)
			return
		}
		select {
		case decoded <- msg:
		case <-a.closed:
			return
		}
	}
}

// dispatchLoop is the inbound dispatcher: it routes responses to their
// waiting Future and fresh requests to the events queue. It is the sole
// writer of a.events, and closes it itself once the decoder has stopped,
// so Events.Poll never races a send against a close.
func (a *Adapter) dispatchLoop(decoded <-chan Message) {
	defer close(a.events)
	for msg := range decoded {
		metrics.MessagesReceivedTotal.WithLabelValues(msg.Payload.Tag().String()).Inc()

		if msg.IsResponse() {
			a.pendingMu.Lock()
			var ch chan<- reply
			var ok bool
			if a.pending != nil {
				ch, ok = a.pending[msg.ID]
				if ok {
					delete(a.pending, msg.ID)
				}
			}
			a.pendingMu.Unlock()
			if !ok {
				a.log.Warn("dropping response for unknown id", "id", msg.ID, "tag", msg.Payload.Tag())
				continue
			}
			metrics.PendingRepliesInFlight.Dec()
			ch <- reply{msg: msg}
			continue
		}

		id := msg.ID
		ev := event{
			msg: msg,
			reply: func(p Payload) {
				a.route(p, &id, nil)
			},
		}
		select {
		case a.events <- ev:
		case <-a.closed:
			return
		}
	}
}

// Send originates a message. It returns a Future if payload is blocking,
// or nil if it is fire-and-forget.
func (a *Adapter) Send(payload Payload) *Future {
	if !payload.Tag().IsBlocking() {
		a.route(payload, nil, nil)
		return nil
	}
	future, ch := newFuture()
	a.route(payload, nil, ch)
	return future
}

// route implements the outbound router: it assigns a packet id (or
// reuses the caller-supplied one, for replies), registers the
// pending-reply entry *before* handing the encoded packet to the writer
// so a response racing ahead of registration can never be missed, then
// serializes and writes the packet.
func (a *Adapter) route(payload Payload, reuseID *uint64, replyCh chan<- reply) uint64 {
	var id uint64
	if reuseID != nil {
		id = *reuseID
	} else {
		id = a.nextID.Add(1)
	}

	a.pendingMu.Lock()
	if a.pending == nil {
		// Adapter already shut down: never touch the map shutdown just
		// swapped out, and never block a caller waiting on a response
		// that will now never arrive.
		a.pendingMu.Unlock()
		if replyCh != nil {
			replyCh <- reply{err: disconnectError(a.Err())}
		}
		return id
	}
	if replyCh != nil {
		a.pending[id] = replyCh
		metrics.PendingRepliesInFlight.Inc()
	}
	a.pendingMu.Unlock()

	metrics.MessagesSentTotal.WithLabelValues(payload.Tag().String()).Inc()

	msg := Message{ID: id, Payload: payload}
	body, err := Marshal(msg)
	if err != nil {
		a.log.Error("failed to marshal outbound message", "error", err, "tag", payload.Tag())
		return id
	}

	a.writeMu.Lock()
	writeErr := WriteFrame(a.w, body)
	a.writeMu.Unlock()
	if writeErr != nil {
		a.log.Debug("encoder stopped", "error", writeErr)
		a.shutdown(writeErr)
	}
	return id
}

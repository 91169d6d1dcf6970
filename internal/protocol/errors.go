package protocol

import "errors"

// ErrOversize is returned when a frame or field length prefix exceeds the
// configured cap, keeping corrupt streams distinguishable from merely
// truncated ones.
var ErrOversize = errors.New("protocol: frame exceeds maximum length")

// ErrDisconnected is the cancellation value delivered to every pending
// Future once the adapter has shut down. Events.Poll reports the same
// shutdown by returning ok=false rather than an error.
var ErrDisconnected = errors.New("protocol: adapter disconnected")

// ErrFuturePolled is returned by a second call to Future.Poll or
// Future.TryPoll on the same Future.
var ErrFuturePolled = errors.New("protocol: future already polled")

// ErrUnexpectedReplyType is returned by Expect when the peer's
// response carries a tag the caller did not expect for its request.
var ErrUnexpectedReplyType = errors.New("protocol: unexpected reply type")

// ErrUnsupported wraps the Unsupported negative-acknowledgement a peer
// sends back for a blocking request it has no handler for.
var ErrUnsupported = errors.New("protocol: peer does not support this request")

package tracking

import "errors"

// Error kinds surfaced by a session. Callers classify with errors.Is.
var (
	// ErrSourceUnavailable: the frame source cannot be opened or became
	// unreadable. Fatal; the session still flushes before surfacing it.
	ErrSourceUnavailable = errors.New("frame source unavailable")

	// ErrSinkUnavailable: a frame sink cannot be opened or failed while
	// writing. Fatal; the session still flushes before surfacing it.
	ErrSinkUnavailable = errors.New("frame sink unavailable")

	// ErrEncodeFailed: one frame failed to compress for transport.
	// Recoverable; the frame is dropped and the loop continues.
	ErrEncodeFailed = errors.New("frame encode failed")

	// ErrStreamClosed: the transport consumer went away. The session ends
	// the stream early after a final flush; not reported as a failure.
	ErrStreamClosed = errors.New("transport stream closed")

	// ErrLogWrite: the detection log could not be written. Periodic flush
	// failures are retried at the next checkpoint; only a failing final
	// flush reaches the caller.
	ErrLogWrite = errors.New("detection log write failed")
)

package tracking

import (
	"fmt"
	"io"

	"gocv.io/x/gocv"

	"whalecam/video"
)

// OpenWriterSink opens a video-file sink, mapping open failures to
// ErrSinkUnavailable. The returned writer satisfies FrameSink.
func OpenWriterSink(path string, fps float64, width, height int) (*video.Writer, error) {
	w, err := video.NewWriter(path, fps, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return w, nil
}

// mjpegBoundary frames each chunk of the live stream; the value pairs with
// the multipart/x-mixed-replace content type announced by the server.
const mjpegBoundary = "--frame\r\nContent-Type: image/jpeg\r\n\r\n"

// MJPEGSink emits each annotated frame as one self-delimited chunk of a
// multipart live-video stream. Writes block until the consumer keeps up, so
// downstream demand throttles the whole session.
type MJPEGSink struct {
	w     io.Writer
	flush func()
}

// NewMJPEGSink wraps a transport writer. flush, when non-nil, is called
// after every chunk so a buffering transport delivers frames promptly.
func NewMJPEGSink(w io.Writer, flush func()) *MJPEGSink {
	return &MJPEGSink{w: w, flush: flush}
}

// Write compresses the frame to JPEG and sends one chunk. A failed encode
// is reported as ErrEncodeFailed (the session drops the frame); a failed
// transport write as ErrStreamClosed (the consumer is gone).
func (m *MJPEGSink) Write(frame gocv.Mat) error {
	jpeg, err := video.EncodeJPEG(frame)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	if _, err := io.WriteString(m.w, mjpegBoundary); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamClosed, err)
	}
	if _, err := m.w.Write(jpeg); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamClosed, err)
	}
	if _, err := io.WriteString(m.w, "\r\n"); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamClosed, err)
	}

	if m.flush != nil {
		m.flush()
	}
	return nil
}

// Close is a no-op; the transport writer's lifetime belongs to the caller.
func (m *MJPEGSink) Close() error { return nil }

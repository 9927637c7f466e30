package tracking

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func testFrame(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestMJPEGSinkChunkFraming(t *testing.T) {
	var buf bytes.Buffer
	flushed := 0
	sink := NewMJPEGSink(&buf, func() { flushed++ })

	frame := testFrame(t)
	require.NoError(t, sink.Write(frame))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"))
	assert.True(t, strings.HasSuffix(out, "\r\n"))
	assert.Greater(t, buf.Len(), len(mjpegBoundary)+2, "a JPEG payload sits between boundary and trailer")
	assert.Equal(t, 1, flushed, "the transport is flushed once per chunk")

	// JPEG magic right after the boundary header.
	payload := out[len(mjpegBoundary):]
	assert.Equal(t, "\xff\xd8", payload[:2])
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestMJPEGSinkConsumerGone(t *testing.T) {
	sink := NewMJPEGSink(brokenWriter{}, nil)

	err := sink.Write(testFrame(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestOpenWriterSinkBadPath(t *testing.T) {
	_, err := OpenWriterSink("/nonexistent-dir/out.mp4", 30, 640, 480)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSinkUnavailable)
}

// Package video wraps the gocv capture, writer and still-image encode
// primitives used by the tracking pipeline.
package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Source reads successive frames from a video file.
type Source struct {
	cap    *gocv.VideoCapture
	fps    float64
	width  int
	height int
}

// Open opens a video file for reading. A missing or unreadable file is
// reported as an error; a source frame rate of zero falls back to 30 fps.
func Open(path string) (*Source, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open video %s: %w", path, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("cannot open video %s", path)
	}

	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 30.0
	}

	return &Source{
		cap:    cap,
		fps:    fps,
		width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
	}, nil
}

// Read decodes the next frame into m. It returns false at end of stream or
// when the source produces an empty frame.
func (s *Source) Read(m *gocv.Mat) bool {
	if ok := s.cap.Read(m); !ok {
		return false
	}
	return !m.Empty()
}

// FPS returns the source frame rate.
func (s *Source) FPS() float64 { return s.fps }

// Width returns the frame width in pixels.
func (s *Source) Width() int { return s.width }

// Height returns the frame height in pixels.
func (s *Source) Height() int { return s.height }

// Close releases the capture handle.
func (s *Source) Close() error {
	return s.cap.Close()
}

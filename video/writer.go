package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Writer appends frames to an mp4 video file.
type Writer struct {
	w    *gocv.VideoWriter
	path string
}

// NewWriter opens a video file sink with the given geometry and frame rate.
func NewWriter(path string, fps float64, width, height int) (*Writer, error) {
	w, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("cannot open video writer %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("cannot open video writer %s", path)
	}
	return &Writer{w: w, path: path}, nil
}

// Write appends one frame.
func (w *Writer) Write(frame gocv.Mat) error {
	if err := w.w.Write(frame); err != nil {
		return fmt.Errorf("writing frame to %s: %w", w.path, err)
	}
	return nil
}

// Path returns the output file path.
func (w *Writer) Path() string { return w.path }

// Close finalizes the video file.
func (w *Writer) Close() error {
	return w.w.Close()
}

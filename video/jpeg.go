package video

import (
	"fmt"

	"gocv.io/x/gocv"
)

// EncodeJPEG compresses a frame to JPEG bytes for transport. The returned
// slice is an owned copy, valid after the native buffer is released.
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

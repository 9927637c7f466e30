package detection

import (
	"fmt"
	"image"
	"os"
	"strings"

	"gocv.io/x/gocv"
)

// loadNames reads the class name list, one label per line.
func loadNames(path string) ([]string, error) {
	namesBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read class names: %w", err)
	}

	var names []string
	for _, line := range strings.Split(string(namesBytes), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names, nil
}

// decodeOutput converts a darknet-style forward pass (rows of
// [cx, cy, w, h, objectness, class scores...], coordinates normalized to the
// network input) into frame-space rectangles, keeping the best class per row
// and suppressing overlapping boxes with NMS.
func decodeOutput(output gocv.Mat, frame gocv.Mat, opts ModelOptions, numClasses int) *Result {
	frameWidth := float32(frame.Cols())
	frameHeight := float32(frame.Rows())

	var rects []image.Rectangle
	var classIDs []int
	var scores []float32

	for i := 0; i < output.Rows(); i++ {
		row := output.RowRange(i, i+1)
		data := row.Clone()
		classScores := data.ColRange(5, data.Cols())
		_, maxVal, _, maxLoc := gocv.MinMaxLoc(classScores)
		classID := maxLoc.X
		confidence := maxVal

		if confidence > float32(opts.ConfThreshold) && classID < numClasses {
			centerX := data.GetFloatAt(0, 0) * frameWidth
			centerY := data.GetFloatAt(0, 1) * frameHeight
			width := data.GetFloatAt(0, 2) * frameWidth
			height := data.GetFloatAt(0, 3) * frameHeight

			left := int(centerX - width/2)
			top := int(centerY - height/2)
			rects = append(rects, image.Rect(left, top, left+int(width), top+int(height)))
			classIDs = append(classIDs, classID)
			scores = append(scores, confidence)
		}

		classScores.Close()
		data.Close()
		row.Close()
	}

	result := &Result{}
	if len(rects) == 0 {
		return result
	}

	keep := gocv.NMSBoxes(rects, scores, float32(opts.ConfThreshold), float32(opts.NMSThreshold))
	for _, idx := range keep {
		result.Rects = append(result.Rects, rects[idx])
		result.ClassIDs = append(result.ClassIDs, classIDs[idx])
		result.Confidences = append(result.Confidences, float64(scores[idx]))
	}
	return result
}

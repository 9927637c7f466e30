// Package tracking contains the per-frame tracking, smoothing, annotation
// and logging pipeline: the session state machine and its supporting parts.
package tracking

import "image"

// Box is an axis-aligned bounding box in integer pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 int
}

// BoxFromRect converts an image.Rectangle.
func BoxFromRect(r image.Rectangle) Box {
	return Box{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Rect converts back to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Smoother applies exponential moving-average smoothing to bounding boxes,
// independently per track id and per coordinate. The first box seen for a
// track is taken verbatim; afterwards each coordinate is smoothed against
// the previous smoothed value, never the previous raw one.
//
// Entries are created on first sighting and never removed: track ids are not
// recycled and a session is bounded by one video, so the map's growth is
// bounded by the video's track count. A future live-feed mode would need an
// eviction policy here.
type Smoother struct {
	alpha float64
	boxes map[int]Box
}

// NewSmoother creates a Smoother with the given smoothing constant. Higher
// alpha follows new input more responsively; lower alpha suppresses jitter.
func NewSmoother(alpha float64) *Smoother {
	return &Smoother{
		alpha: alpha,
		boxes: make(map[int]Box),
	}
}

// smoothValue blends one coordinate, truncating toward zero to match
// integer pixel coordinates.
func smoothValue(previous, incoming int, alpha float64) int {
	return int(alpha*float64(incoming) + (1-alpha)*float64(previous))
}

// Apply smooths box against the stored state for trackID and stores the
// result. Two calls for the same track within a frame are last-write-wins:
// the second update simply replaces the first.
func (s *Smoother) Apply(trackID int, box Box) Box {
	prev, ok := s.boxes[trackID]
	if !ok {
		s.boxes[trackID] = box
		return box
	}

	smoothed := Box{
		X1: smoothValue(prev.X1, box.X1, s.alpha),
		Y1: smoothValue(prev.Y1, box.Y1, s.alpha),
		X2: smoothValue(prev.X2, box.X2, s.alpha),
		Y2: smoothValue(prev.Y2, box.Y2, s.alpha),
	}
	s.boxes[trackID] = smoothed
	return smoothed
}

// Tracks returns the number of track ids seen so far.
func (s *Smoother) Tracks() int {
	return len(s.boxes)
}

package detection

import (
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// TrackerOptions tunes the cross-frame association.
type TrackerOptions struct {
	// IoUThreshold is the minimum overlap between a detection and a track's
	// last box for the two to be linked.
	IoUThreshold float64
	// NewTrackThreshold is the minimum confidence for an unmatched detection
	// to open a new track. Weaker unmatched detections are reported with
	// TrackID == Unassigned.
	NewTrackThreshold float64
	// MaxLostFrames drops a track after this many consecutive frames
	// without a matching detection. Ids are never reused.
	MaxLostFrames int
}

// DefaultTrackerOptions returns the association defaults.
func DefaultTrackerOptions() TrackerOptions {
	return TrackerOptions{
		IoUThreshold:      0.30,
		NewTrackThreshold: 0.50,
		MaxLostFrames:     30,
	}
}

// Tracker links a provider's raw detections into temporally stable track
// ids by greedy IoU matching against the previous frame. It is stateful per
// video: one Tracker must be created per session so track-id continuity
// never leaks across unrelated videos.
type Tracker struct {
	provider Provider
	opts     TrackerOptions

	nextID int
	tracks map[int]*track
}

type track struct {
	box  image.Rectangle
	lost int
}

// NewTracker creates a tracker on top of an initialized provider.
func NewTracker(provider Provider, opts TrackerOptions) *Tracker {
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = DefaultTrackerOptions().IoUThreshold
	}
	if opts.NewTrackThreshold <= 0 {
		opts.NewTrackThreshold = DefaultTrackerOptions().NewTrackThreshold
	}
	if opts.MaxLostFrames <= 0 {
		opts.MaxLostFrames = DefaultTrackerOptions().MaxLostFrames
	}
	return &Tracker{
		provider: provider,
		opts:     opts,
		tracks:   make(map[int]*track),
	}
}

// Track runs detection on the frame and returns the detections with track
// ids assigned. Returns an empty slice, not an error, when nothing is found.
func (t *Tracker) Track(frame gocv.Mat) ([]Detection, error) {
	result, err := t.provider.Detect(frame)
	if err != nil {
		return nil, err
	}

	detections := make([]Detection, len(result.Rects))
	for i := range result.Rects {
		detections[i] = Detection{
			ClassID:    result.ClassIDs[i],
			TrackID:    Unassigned,
			Box:        result.Rects[i],
			Confidence: result.Confidences[i],
		}
	}

	// Strongest detections claim tracks first.
	order := make([]int, len(detections))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return detections[order[a]].Confidence > detections[order[b]].Confidence
	})

	matched := make(map[int]bool, len(t.tracks))
	for _, di := range order {
		d := &detections[di]

		bestID := Unassigned
		bestIoU := t.opts.IoUThreshold
		for id, tr := range t.tracks {
			if matched[id] {
				continue
			}
			if overlap := iou(d.Box, tr.box); overlap >= bestIoU {
				bestIoU = overlap
				bestID = id
			}
		}

		if bestID != Unassigned {
			d.TrackID = bestID
			t.tracks[bestID].box = d.Box
			t.tracks[bestID].lost = 0
			matched[bestID] = true
			continue
		}

		if d.Confidence >= t.opts.NewTrackThreshold {
			t.nextID++
			d.TrackID = t.nextID
			t.tracks[t.nextID] = &track{box: d.Box}
			matched[t.nextID] = true
		}
	}

	for id, tr := range t.tracks {
		if matched[id] {
			continue
		}
		tr.lost++
		if tr.lost > t.opts.MaxLostFrames {
			delete(t.tracks, id)
		}
	}

	return detections, nil
}

// ActiveTracks returns the number of tracks currently held.
func (t *Tracker) ActiveTracks() int {
	return len(t.tracks)
}

// iou computes intersection over union of two rectangles.
func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

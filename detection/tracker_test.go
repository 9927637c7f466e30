package detection

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// scriptedProvider plays back one prepared Result per Detect call.
type scriptedProvider struct {
	results []*Result
	call    int
}

func (p *scriptedProvider) Initialize(opts ModelOptions) error { return nil }

func (p *scriptedProvider) Detect(frame gocv.Mat) (*Result, error) {
	if p.call >= len(p.results) {
		return &Result{}, nil
	}
	r := p.results[p.call]
	p.call++
	return r, nil
}

func (p *scriptedProvider) Close() error { return nil }

func (p *scriptedProvider) GetProviderInfo() ProviderInfo {
	return ProviderInfo{Type: "CPU", Backend: "scripted"}
}

func result(dets ...Detection) *Result {
	r := &Result{}
	for _, d := range dets {
		r.Rects = append(r.Rects, d.Box)
		r.ClassIDs = append(r.ClassIDs, d.ClassID)
		r.Confidences = append(r.Confidences, d.Confidence)
	}
	return r
}

func det(classID int, box image.Rectangle, conf float64) Detection {
	return Detection{ClassID: classID, Box: box, Confidence: conf}
}

func TestTrackerAssignsStableIDs(t *testing.T) {
	t.Parallel()

	box := image.Rect(100, 100, 200, 200)
	shifted := image.Rect(105, 102, 205, 202)

	provider := &scriptedProvider{results: []*Result{
		result(det(0, box, 0.9)),
		result(det(0, shifted, 0.88)),
	}}
	tracker := NewTracker(provider, DefaultTrackerOptions())

	var frame gocv.Mat
	first, err := tracker.Track(frame)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, first[0].TrackID, "ids start at 1")

	second, err := tracker.Track(frame)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, second[0].TrackID, "an overlapping detection keeps its id")
	assert.Equal(t, 1, tracker.ActiveTracks())
}

func TestTrackerOpensNewTrackForDistantDetection(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{results: []*Result{
		result(det(0, image.Rect(0, 0, 50, 50), 0.9)),
		result(
			det(0, image.Rect(2, 1, 52, 51), 0.9),
			det(1, image.Rect(400, 400, 480, 460), 0.8),
		),
	}}
	tracker := NewTracker(provider, DefaultTrackerOptions())

	var frame gocv.Mat
	_, err := tracker.Track(frame)
	require.NoError(t, err)

	second, err := tracker.Track(frame)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, 1, second[0].TrackID)
	assert.Equal(t, 2, second[1].TrackID, "a non-overlapping detection opens a new track")
	assert.Equal(t, 2, tracker.ActiveTracks())
}

func TestTrackerWeakUnmatchedStaysUnassigned(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{results: []*Result{
		result(det(0, image.Rect(0, 0, 50, 50), 0.45)),
	}}
	tracker := NewTracker(provider, DefaultTrackerOptions())

	var frame gocv.Mat
	out, err := tracker.Track(frame)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, Unassigned, out[0].TrackID,
		"below the new-track threshold no track is opened")
	assert.False(t, out[0].Assigned())
	assert.Equal(t, 0, tracker.ActiveTracks())
}

func TestTrackerStrongestDetectionClaimsTrackFirst(t *testing.T) {
	t.Parallel()

	box := image.Rect(100, 100, 200, 200)
	provider := &scriptedProvider{results: []*Result{
		result(det(0, box, 0.9)),
		// Two candidates overlap the same track. The stronger one, listed
		// second, must win the existing id.
		result(
			det(0, image.Rect(102, 100, 202, 200), 0.6),
			det(0, box, 0.95),
		),
	}}
	tracker := NewTracker(provider, DefaultTrackerOptions())

	var frame gocv.Mat
	_, err := tracker.Track(frame)
	require.NoError(t, err)

	out, err := tracker.Track(frame)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[1].TrackID, "the stronger detection keeps the existing track")
	assert.Equal(t, 2, out[0].TrackID, "the weaker one opens a new track")
}

func TestTrackerDropsLostTracksWithoutReusingIDs(t *testing.T) {
	t.Parallel()

	opts := DefaultTrackerOptions()
	opts.MaxLostFrames = 2

	results := []*Result{
		result(det(0, image.Rect(0, 0, 50, 50), 0.9)),
	}
	// Three empty frames push the track past the lost limit.
	for i := 0; i < 3; i++ {
		results = append(results, result())
	}
	results = append(results, result(det(0, image.Rect(0, 0, 50, 50), 0.9)))

	tracker := NewTracker(&scriptedProvider{results: results}, opts)

	var frame gocv.Mat
	for i := 0; i < 4; i++ {
		_, err := tracker.Track(frame)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, tracker.ActiveTracks(), "the track is dropped after the lost limit")

	out, err := tracker.Track(frame)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].TrackID, "a reappearing object gets a fresh id, never a recycled one")
}

func TestIoU(t *testing.T) {
	t.Parallel()

	a := image.Rect(0, 0, 100, 100)
	assert.InDelta(t, 1.0, iou(a, a), 1e-9)
	assert.InDelta(t, 0.0, iou(a, image.Rect(200, 200, 300, 300)), 1e-9)

	// Half-overlapping squares: intersection 5000, union 15000.
	b := image.Rect(50, 0, 150, 100)
	assert.InDelta(t, 1.0/3.0, iou(a, b), 1e-9)
}

package tracking

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmootherFirstSightingIsVerbatim(t *testing.T) {
	t.Parallel()

	s := NewSmoother(0.30)
	box := Box{X1: 10, Y1: 20, X2: 110, Y2: 220}

	got := s.Apply(1, box)
	assert.Equal(t, box, got, "first box for a track must pass through unchanged")
	assert.Equal(t, 1, s.Tracks())
}

func TestSmootherBlendsAgainstPreviousSmoothed(t *testing.T) {
	t.Parallel()

	s := NewSmoother(0.30)
	s.Apply(1, Box{X1: 100, Y1: 100, X2: 100, Y2: 100})

	// 0.3*200 + 0.7*100 truncated
	got := s.Apply(1, Box{X1: 200, Y1: 200, X2: 200, Y2: 200})
	assert.Equal(t, Box{X1: 130, Y1: 130, X2: 130, Y2: 130}, got)

	// The next update blends against 130, not against the raw 200.
	got = s.Apply(1, Box{X1: 200, Y1: 200, X2: 200, Y2: 200})
	assert.Equal(t, Box{X1: 151, Y1: 151, X2: 151, Y2: 151}, got)
}

func TestSmootherConstantInputIsStable(t *testing.T) {
	t.Parallel()

	s := NewSmoother(0.30)
	box := Box{X1: 10, Y1: 10, X2: 50, Y2: 50}

	for i := 0; i < 50; i++ {
		got := s.Apply(7, box)
		assert.Equal(t, box, got, "constant input must not drift, frame %d", i)
	}
}

func TestSmootherNeverOvershoots(t *testing.T) {
	t.Parallel()

	s := NewSmoother(0.30)
	s.Apply(1, Box{X1: 0, Y1: 0, X2: 100, Y2: 100})

	target := Box{X1: 40, Y1: 40, X2: 300, Y2: 300}
	prev := Box{X1: 0, Y1: 0, X2: 100, Y2: 100}
	for i := 0; i < 100; i++ {
		got := s.Apply(1, target)
		assert.GreaterOrEqual(t, got.X1, prev.X1)
		assert.LessOrEqual(t, got.X1, target.X1)
		assert.GreaterOrEqual(t, got.X2, prev.X2)
		assert.LessOrEqual(t, got.X2, target.X2)
		prev = got
	}
}

func TestSmootherTracksAreIndependent(t *testing.T) {
	t.Parallel()

	s := NewSmoother(0.30)
	s.Apply(1, Box{X1: 0, Y1: 0, X2: 100, Y2: 100})
	s.Apply(2, Box{X1: 500, Y1: 500, X2: 600, Y2: 600})

	got := s.Apply(1, Box{X1: 100, Y1: 100, X2: 200, Y2: 200})
	assert.Equal(t, Box{X1: 30, Y1: 30, X2: 130, Y2: 130}, got,
		"track 2 state must not bleed into track 1")
	assert.Equal(t, 2, s.Tracks())
}

func TestSmootherLastWriteWins(t *testing.T) {
	t.Parallel()

	s := NewSmoother(0.30)
	s.Apply(1, Box{X1: 100, Y1: 100, X2: 100, Y2: 100})

	s.Apply(1, Box{X1: 200, Y1: 200, X2: 200, Y2: 200})
	second := s.Apply(1, Box{X1: 200, Y1: 200, X2: 200, Y2: 200})

	// The second call in the same frame blends against the first call's
	// output, exactly as if a frame boundary had passed.
	assert.Equal(t, Box{X1: 151, Y1: 151, X2: 151, Y2: 151}, second)
}

func TestBoxRectRoundTrip(t *testing.T) {
	t.Parallel()

	r := image.Rect(3, 7, 45, 92)
	assert.Equal(t, r, BoxFromRect(r).Rect())
}

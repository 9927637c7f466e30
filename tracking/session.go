package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"gocv.io/x/gocv"

	"whalecam/conf"
	"whalecam/detection"
	"whalecam/overlay"
	"whalecam/video"
)

// State is the lifecycle phase of a session.
type State int

const (
	StateOpening State = iota
	StateRunning
	StateFlushing
	StateClosed
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateRunning:
		return "running"
	case StateFlushing:
		return "flushing"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// FrameSource supplies decoded frames. Read returns false at end of stream.
type FrameSource interface {
	Read(m *gocv.Mat) bool
	FPS() float64
	Close() error
}

// Tracker produces track-id-bearing detections for successive frames of one
// video. It is stateful: one Tracker per session.
type Tracker interface {
	Track(frame gocv.Mat) ([]detection.Detection, error)
}

// Annotator draws one detection onto a frame in place.
type Annotator interface {
	Annotate(img *gocv.Mat, box image.Rectangle, label string, c color.RGBA)
}

// FrameSink receives each annotated frame. Write errors are classified by
// sentinel: ErrEncodeFailed drops the frame and continues, ErrStreamClosed
// ends the session early and cleanly, anything else is fatal.
type FrameSink interface {
	Write(frame gocv.Mat) error
	Close() error
}

// Config assembles a session. Source, Tracker and LogPath are required.
type Config struct {
	Source    FrameSource
	Tracker   Tracker
	Annotator Annotator // nil for the default overlay annotator
	Classes   conf.ClassTable
	LogPath   string

	Alpha      float64 // smoothing constant, 0 for the 0.30 default
	FlushEvery int     // periodic flush cadence in frames, 0 for 100
}

// Session drives one full tracking pass over one video: detect, smooth,
// annotate, log, emit. All state is owned by the session and mutated only
// from Run's goroutine; independent sessions share nothing but the detector
// weights behind their providers.
type Session struct {
	cfg      Config
	smoother *Smoother
	sinks    []FrameSink

	fps        float64
	frameIndex int
	rows       []Row

	state State
}

// OpenSource opens a video file as a session frame source, mapping open
// failures to ErrSourceUnavailable.
func OpenSource(path string) (*video.Source, error) {
	src, err := video.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return src, nil
}

// New validates the configuration and builds a session in the Opening state.
func New(cfg Config) (*Session, error) {
	if cfg.Source == nil {
		return nil, errors.New("session: frame source is required")
	}
	if cfg.Tracker == nil {
		return nil, errors.New("session: tracker is required")
	}
	if cfg.LogPath == "" {
		return nil, errors.New("session: log path is required")
	}
	if cfg.Annotator == nil {
		cfg.Annotator = overlay.New()
	}
	if len(cfg.Classes.Styles) == 0 {
		cfg.Classes = conf.DefaultClassTable()
	}
	if cfg.Alpha <= 0 {
		cfg.Alpha = 0.30
	}
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 100
	}

	return &Session{
		cfg:      cfg,
		smoother: NewSmoother(cfg.Alpha),
		fps:      cfg.Source.FPS(),
		state:    StateOpening,
	}, nil
}

// AddSink attaches a frame sink. Must be called before Run.
func (s *Session) AddSink(sink FrameSink) {
	s.sinks = append(s.sinks, sink)
}

// State returns the current lifecycle phase.
func (s *Session) State() State { return s.state }

// Frames returns the number of frames processed so far.
func (s *Session) Frames() int { return s.frameIndex }

// Rows returns the accumulated log rows.
func (s *Session) Rows() []Row { return s.rows }

// Run drives the session to completion: pull a frame, track, smooth,
// annotate, log, flush periodically, emit to every sink. Cancellation of
// ctx ends the loop like an end of stream. Whether the run ends cleanly,
// is cancelled or fails, the final flush runs and the source and sinks are
// released. Run may be called once.
func (s *Session) Run(ctx context.Context) (err error) {
	if s.state != StateOpening {
		return fmt.Errorf("session: Run called in state %s", s.state)
	}
	s.state = StateRunning

	defer func() {
		s.state = StateFlushing
		flushErr := s.flush()
		s.release()
		if flushErr != nil {
			slog.Error("final log flush failed", "path", s.cfg.LogPath, "error", flushErr)
			if err == nil {
				err = flushErr
			}
		}
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			s.state = StateErrored
		} else {
			s.state = StateClosed
		}
	}()

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ok := s.cfg.Source.Read(&frame); !ok {
			return nil // end of stream
		}

		s.frameIndex++
		timeSeconds := float64(s.frameIndex) / s.fps

		detections, trackErr := s.cfg.Tracker.Track(frame)
		if trackErr != nil {
			return fmt.Errorf("detector failed on frame %d: %w", s.frameIndex, trackErr)
		}

		for _, d := range detections {
			// Detections without a track id have no temporal identity to
			// smooth or report against; they are neither drawn nor logged.
			if !d.Assigned() {
				continue
			}

			box := s.smoother.Apply(d.TrackID, BoxFromRect(d.Box))
			label, style := s.cfg.Classes.Resolve(d.ClassID)

			labelText := fmt.Sprintf("%s ID:%d", label, d.TrackID)
			s.cfg.Annotator.Annotate(&frame, box.Rect(), labelText, style.Color)

			s.rows = append(s.rows, Row{
				Frame:    s.frameIndex,
				Time:     timeSeconds,
				TrackID:  d.TrackID,
				Class:    label,
				X1:       box.X1,
				Y1:       box.Y1,
				X2:       box.X2,
				Y2:       box.Y2,
				Behavior: style.Behavior,
				Conf:     d.Confidence,
			})
		}

		if s.frameIndex%s.cfg.FlushEvery == 0 {
			if flushErr := s.flush(); flushErr != nil {
				// Rows stay in memory; the write is retried at the next
				// checkpoint and again at the final flush.
				slog.Warn("periodic log flush failed", "path", s.cfg.LogPath, "frame", s.frameIndex, "error", flushErr)
			}
		}

		if emitErr := s.emit(frame); emitErr != nil {
			if errors.Is(emitErr, ErrStreamClosed) {
				slog.Info("transport consumer gone, ending session early", "frame", s.frameIndex)
				return nil
			}
			return emitErr
		}
	}
}

// emit writes the annotated frame to every sink. The detector has already
// run once for this frame; sinks only pay for encoding.
func (s *Session) emit(frame gocv.Mat) error {
	for _, sink := range s.sinks {
		err := sink.Write(frame)
		switch {
		case err == nil:
		case errors.Is(err, ErrEncodeFailed):
			slog.Warn("frame dropped from transport", "frame", s.frameIndex, "error", err)
		case errors.Is(err, ErrStreamClosed):
			return err
		default:
			return fmt.Errorf("%w: frame %d: %v", ErrSinkUnavailable, s.frameIndex, err)
		}
	}
	return nil
}

// flush rewrites the whole log with the rows accumulated so far. With no
// rows yet there is nothing to overwrite and the log is left untouched.
func (s *Session) flush() error {
	if len(s.rows) == 0 {
		return nil
	}
	if err := WriteRows(s.cfg.LogPath, s.rows); err != nil {
		return fmt.Errorf("%w: %v", ErrLogWrite, err)
	}
	return nil
}

// release closes the source and all sinks, once, on the way out.
func (s *Session) release() {
	if err := s.cfg.Source.Close(); err != nil {
		slog.Warn("closing frame source", "error", err)
	}
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			slog.Warn("closing frame sink", "error", err)
		}
	}
}

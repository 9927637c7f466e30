package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"whalecam/datastore"
	"whalecam/tracking"
)

// handleTrack accepts a video upload, saves it and registers a stream.
// Responds with the stream URL the client should open next.
func (s *Server) handleTrack(c echo.Context) error {
	file, err := c.FormFile("video")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no video file part")
	}
	if file.Filename == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "no selected file")
	}

	streamID := uuid.New().String()
	ts := time.Now().Format("20060102_150405")

	videoPath := filepath.Join(s.Settings.UploadDir, streamID+"_"+filepath.Base(file.Filename))
	if err := saveUpload(file, videoPath); err != nil {
		slog.Error("saving upload", "path", videoPath, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "could not save upload")
	}

	logPath := filepath.Join(s.Settings.OutputDir, "tracking_"+ts+"_"+streamID+".csv")

	s.Streams.Put(StreamInfo{
		ID:        streamID,
		VideoPath: videoPath,
		LogPath:   logPath,
		CreatedAt: time.Now(),
	})

	if err := s.DS.Save(&datastore.Session{
		ID:        streamID,
		VideoPath: videoPath,
		LogPath:   logPath,
		Status:    datastore.StatusPending,
		CreatedAt: time.Now(),
	}); err != nil {
		slog.Warn("recording session", "id", streamID, "error", err)
	}

	slog.Info("video registered", "id", streamID, "path", videoPath)

	return c.JSON(http.StatusOK, map[string]string{
		"stream_url": "/stream/" + streamID,
	})
}

// handleStream drives one tracking session as a multipart MJPEG stream.
// Frame production is pull-driven: each chunk write blocks until the client
// accepts it, so client backpressure throttles the whole pipeline. A client
// disconnect cancels the request context; the session's final flush still
// runs.
func (s *Server) handleStream(c echo.Context) error {
	id := c.Param("id")
	info, ok := s.Streams.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown stream id: "+id)
	}

	src, err := tracking.OpenSource(info.VideoPath)
	if err != nil {
		s.completeSession(id, datastore.StatusFailed, 0, 0, err)
		return echo.NewHTTPError(http.StatusNotFound, "cannot open video for stream "+id)
	}

	tracker, err := s.NewTracker()
	if err != nil {
		src.Close()
		return echo.NewHTTPError(http.StatusInternalServerError, "tracker unavailable")
	}

	sess, err := tracking.New(tracking.Config{
		Source:     src,
		Tracker:    tracker,
		Classes:    s.Settings.Classes,
		LogPath:    info.LogPath,
		Alpha:      s.Settings.Tracking.Alpha,
		FlushEvery: s.Settings.Tracking.FlushEveryFrames,
	})
	if err != nil {
		src.Close()
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "multipart/x-mixed-replace; boundary=frame")
	res.WriteHeader(http.StatusOK)

	sess.AddSink(tracking.NewMJPEGSink(res, func() { res.Flush() }))

	if err := s.DS.SetStatus(id, datastore.StatusStreaming); err != nil {
		slog.Warn("updating session status", "id", id, "error", err)
	}
	activeStreams.Inc()
	defer activeStreams.Dec()

	runErr := sess.Run(c.Request().Context())

	status := datastore.StatusDone
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		status = datastore.StatusFailed
		slog.Error("stream session failed", "id", id, "error", runErr)
	}
	s.completeSession(id, status, sess.Frames(), len(sess.Rows()), runErr)

	// A stream that fails after partial emission just ends early; no error
	// frame is injected into the transport.
	return nil
}

// handleStreamLog serves the CSV log written so far for a stream.
func (s *Server) handleStreamLog(c echo.Context) error {
	id := c.Param("id")

	logPath := ""
	if info, ok := s.Streams.Get(id); ok {
		logPath = info.LogPath
	} else if rec, err := s.DS.Get(id); err == nil {
		logPath = rec.LogPath
	}
	if logPath == "" {
		return echo.NewHTTPError(http.StatusNotFound, "unknown stream id: "+id)
	}

	if _, err := os.Stat(logPath); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "no log written yet for "+id)
	}
	return c.Attachment(logPath, "tracking.csv")
}

// handleRecentSessions lists the newest session records.
func (s *Server) handleRecentSessions(c echo.Context) error {
	sessions, err := s.DS.Recent(20)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not list sessions")
	}
	return c.JSON(http.StatusOK, sessions)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"active_streams": s.Streams.Len(),
	})
}

func (s *Server) completeSession(id, status string, frames, rows int, runErr error) {
	framesProcessed.Add(float64(frames))
	sessionsTotal.WithLabelValues(status).Inc()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if err := s.DS.Complete(id, status, frames, rows, runErr); err != nil {
		slog.Warn("finalizing session record", "id", id, "error", err)
	}
}

func saveUpload(file *multipart.FileHeader, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}

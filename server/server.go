// Package server is the HTTP service layer: video upload, live MJPEG
// tracking streams, log download and service introspection. The tracking
// core only ever sees a frame source, a tracker and sinks; everything
// HTTP-shaped stays here.
package server

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"whalecam/conf"
	"whalecam/datastore"
	"whalecam/tracking"
)

// Server bundles the echo instance with its collaborators.
type Server struct {
	Echo     *echo.Echo
	Settings *conf.Settings
	Streams  *StreamRegistry
	DS       *datastore.Store

	// NewTracker builds a fresh stateful tracker for each session so
	// track-id continuity never crosses videos. The detector weights
	// behind it are shared and safe for serialized concurrent inference.
	NewTracker func() (tracking.Tracker, error)
}

// New assembles the server: middleware, routes and the TTL-bound stream
// registry replacing the original unbounded in-memory map.
func New(settings *conf.Settings, ds *datastore.Store, newTracker func() (tracking.Tracker, error)) *Server {
	s := &Server{
		Echo:       echo.New(),
		Settings:   settings,
		Streams:    NewStreamRegistry(time.Duration(settings.Server.StreamTTLMinutes) * time.Minute),
		DS:         ds,
		NewTracker: newTracker,
	}

	s.Echo.HideBanner = true
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.CORS())

	s.initRoutes()
	return s
}

func (s *Server) initRoutes() {
	s.Echo.POST("/track", s.handleTrack)
	s.Echo.GET("/stream/:id", s.handleStream)
	s.Echo.GET("/stream/:id/log", s.handleStreamLog)
	s.Echo.GET("/sessions/recent", s.handleRecentSessions)
	s.Echo.GET("/healthz", s.handleHealth)
	s.Echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	addr := ":" + s.Settings.Server.Port
	slog.Info("whalecam server listening", "addr", addr)
	if err := s.Echo.Start(addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

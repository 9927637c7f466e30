package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whalecam/conf"
	"whalecam/datastore"
	"whalecam/tracking"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	settings, err := conf.Load("")
	require.NoError(t, err)
	settings.OutputDir = filepath.Join(dir, "results")
	settings.UploadDir = filepath.Join(dir, "uploads")
	settings.Server.StreamTTLMinutes = 60

	ds, err := datastore.Open(filepath.Join(dir, "sessions.db"))
	require.NoError(t, err)

	return New(settings, ds, func() (tracking.Tracker, error) {
		t.Fatal("no stream handler test should reach the tracker")
		return nil, nil
	})
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/track", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestHandleTrackRegistersStream(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, uploadRequest(t, "video", "drone.mp4", []byte("not really a video")))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp["stream_url"], "/stream/")

	id := strings.TrimPrefix(resp["stream_url"], "/stream/")
	info, ok := srv.Streams.Get(id)
	require.True(t, ok)

	// The upload landed on disk under the registered path.
	data, err := os.ReadFile(info.VideoPath)
	require.NoError(t, err)
	assert.Equal(t, "not really a video", string(data))
	assert.Contains(t, filepath.Base(info.VideoPath), "drone.mp4")

	// And a durable pending record exists.
	sess, err := srv.DS.Get(id)
	require.NoError(t, err)
	assert.Equal(t, datastore.StatusPending, sess.Status)
	assert.Equal(t, info.LogPath, sess.LogPath)
}

func TestHandleTrackMissingFilePart(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, uploadRequest(t, "wrong_field", "drone.mp4", []byte("x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStreamUnknownID(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStreamLog(t *testing.T) {
	srv := newTestServer(t)

	logPath := filepath.Join(srv.Settings.OutputDir, "tracking.csv")
	require.NoError(t, os.MkdirAll(srv.Settings.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(logPath, []byte("Frame,Time (s)\n1,0.04\n"), 0o644))

	srv.Streams.Put(StreamInfo{ID: "abc", LogPath: logPath})

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/abc/log", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Frame,Time (s)")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tracking.csv")
}

func TestHandleStreamLogFallsBackToDatastore(t *testing.T) {
	srv := newTestServer(t)

	logPath := filepath.Join(srv.Settings.OutputDir, "tracking.csv")
	require.NoError(t, os.MkdirAll(srv.Settings.OutputDir, 0o755))
	require.NoError(t, os.WriteFile(logPath, []byte("Frame\n"), 0o644))

	// Registry entry expired; only the durable record remains.
	require.NoError(t, srv.DS.Save(&datastore.Session{
		ID:      "expired",
		LogPath: logPath,
		Status:  datastore.StatusDone,
	}))

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/expired/log", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleStreamLogNotYetWritten(t *testing.T) {
	srv := newTestServer(t)
	srv.Streams.Put(StreamInfo{ID: "abc", LogPath: filepath.Join(srv.Settings.OutputDir, "missing.csv")})

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream/abc/log", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleRecentSessions(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, srv.DS.Save(&datastore.Session{ID: "one", Status: datastore.StatusDone}))

	rec := httptest.NewRecorder()
	srv.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/recent", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []datastore.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "one", sessions[0].ID)
}

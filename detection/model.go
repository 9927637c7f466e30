package detection

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// EnsureModel makes sure the weights file exists, downloading it from url
// when missing. A model already on disk is never re-fetched. With an empty
// url a missing file is an error.
func EnsureModel(weightsPath, url string) error {
	if _, err := os.Stat(weightsPath); err == nil {
		return nil
	}

	if url == "" {
		return fmt.Errorf("model weights not found at %s and no model URL configured", weightsPath)
	}

	if err := os.MkdirAll(filepath.Dir(weightsPath), 0o755); err != nil {
		return fmt.Errorf("creating model directory: %w", err)
	}

	slog.Info("downloading model weights", "url", url, "dest", weightsPath)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("downloading model weights: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading model weights: unexpected status %s", resp.Status)
	}

	// Download to a temp file first so a partial fetch never masquerades
	// as a usable model.
	tmp, err := os.CreateTemp(filepath.Dir(weightsPath), ".model-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("writing model weights: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing model weights: %w", err)
	}

	if err := os.Rename(tmp.Name(), weightsPath); err != nil {
		return fmt.Errorf("moving model weights into place: %w", err)
	}

	slog.Info("model weights downloaded", "path", weightsPath)
	return nil
}

package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"rent-estimator/models"
)

// Save writes a to path atomically: the JSON goes to a temp file in the same
// directory, is fsynced, then renamed over path. A failed save leaves any
// existing file at path untouched.
func Save(path string, a *Artifact) (err error) {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("artifact: refusing to save: %w", err)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("artifact: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("artifact: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("artifact: write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("artifact: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close: %w", err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("artifact: chmod: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("artifact: rename: %w", err)
	}

	// Persist the rename itself. Not every platform can fsync a directory.
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Load reads and validates the artifact at path. Every failure is a
// *models.LoadError.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.LoadError{Path: path, Err: err}
	}
	a := &Artifact{}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, &models.LoadError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	if err := a.Validate(); err != nil {
		return nil, &models.LoadError{Path: path, Err: err}
	}
	return a, nil
}

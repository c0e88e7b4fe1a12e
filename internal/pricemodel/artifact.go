package pricemodel

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"RebarForecast/internal/forest"
	"RebarForecast/internal/model"
)

const artifactVersion = 1

// artifactHeader precedes the encoded ensemble in the artifact file.
type artifactHeader struct {
	Version int
	Info    Info
}

// SaveArtifact writes the model to path, replacing any existing file.
func SaveArtifact(path string, m *Model) error {
	if m == nil || m.ensemble == nil {
		return model.ErrModelUnavailable
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w: %w", model.ErrArtifactIO, err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create artifact: %w: %w", model.ErrArtifactIO, err)
	}
	w := bufio.NewWriter(f)
	err = gob.NewEncoder(w).Encode(artifactHeader{Version: artifactVersion, Info: m.info})
	if err == nil {
		err = m.ensemble.Encode(w)
	}
	if err == nil {
		err = w.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write artifact: %w: %w", model.ErrArtifactIO, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace artifact: %w: %w", model.ErrArtifactIO, err)
	}
	return nil
}

// LoadArtifact reads a model written by SaveArtifact.
func LoadArtifact(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w: %w", model.ErrArtifactIO, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var hdr artifactHeader
	if err := gob.NewDecoder(r).Decode(&hdr); err != nil {
		return nil, fmt.Errorf("read artifact header: %w: %w", model.ErrArtifactIO, err)
	}
	if hdr.Version != artifactVersion {
		return nil, fmt.Errorf("%w: artifact version %d, want %d", model.ErrArtifactIO, hdr.Version, artifactVersion)
	}
	e, err := forest.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w: %w", model.ErrArtifactIO, err)
	}
	if e.Features != model.FeatureCount {
		return nil, fmt.Errorf("%w: artifact has %d features, want %d", model.ErrArtifactIO, e.Features, model.FeatureCount)
	}
	return NewModel(e, hdr.Info), nil
}

// ArtifactExists reports whether a regular file exists at path.
func ArtifactExists(path string) (bool, error) {
	st, err := os.Stat(path)
	if err == nil {
		return st.Mode().IsRegular(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat artifact: %w: %w", model.ErrArtifactIO, err)
}

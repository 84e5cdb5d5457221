package storage

import (
	"encoding/json"
	"errors"
	"io"
	"os"
)

type ExportData struct {
	RunMetadata
	Timesteps *Timesteps `json:"timesteps,omitempty"`
}

// Export writes a run's metadata and time step history as indented JSON.
// A run without timesteps.txt exports metadata only.
func (s *Store) Export(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data := ExportData{RunMetadata: *meta}

	ts, err := s.LoadTimesteps(runID)
	switch {
	case err == nil:
		data.Timesteps = ts
	case !isNotExist(err):
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func isNotExist(err error) bool {
	return errors.Is(err, ErrRunNotFound) || os.IsNotExist(err)
}

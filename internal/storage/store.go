// Package storage keeps simulation runs on disk, one directory per run
// holding metadata.json next to the files written by package output.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/astrosim/internal/output"
	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/scenario"
)

const (
	metadataFile = "metadata.json"
	initialFile  = "initial.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Scenario    string             `json:"scenario"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	Force       string             `json:"force"`
	Dt          float64            `json:"dt"`
	MinDt       float64            `json:"min_dt"`
	MaxDt       float64            `json:"max_dt,omitempty"`
	FixedDt     bool               `json:"fixed_dt"`
	TargetError float64            `json:"target_error"`
	Particles   int                `json:"particles"`
	MassCutoff  int                `json:"mass_cutoff"`
	Duration    float64            `json:"duration"`
	Outputs     int                `json:"outputs,omitempty"`
	From        string             `json:"from,omitempty"`
	FinalTime   float64            `json:"final_time"`
	Steps       uint64             `json:"steps"`
	Completed   bool               `json:"completed"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
}

// Create allocates a run directory, fills in meta.ID and meta.Timestamp
// and writes the metadata. The initial particles are kept as initial.csv
// so a run can be repeated.
func (s *Store) Create(meta *RunMetadata, initial []particle.Particle) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	now := time.Now()
	base := fmt.Sprintf("%s_%d", meta.Scenario, now.Unix())
	id := base
	for i := 2; ; i++ {
		err := os.Mkdir(filepath.Join(s.baseDir, id), 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", err
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}

	meta.ID = id
	meta.Timestamp = now
	if err := s.writeMetadata(meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(s.Dir(id), initialFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := scenario.WriteCSV(f, initial); err != nil {
		return "", err
	}
	return id, f.Close()
}

// Finish rewrites the metadata of a run created earlier.
func (s *Store) Finish(meta *RunMetadata) error {
	if _, err := os.Stat(s.Dir(meta.ID)); err != nil {
		return fmt.Errorf("%w: %s", ErrRunNotFound, meta.ID)
	}
	meta.Completed = true
	return s.writeMetadata(meta)
}

func (s *Store) writeMetadata(meta *RunMetadata) error {
	metaFile, err := os.Create(filepath.Join(s.Dir(meta.ID), metadataFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(encodable(meta)); err != nil {
		return err
	}
	return metaFile.Close()
}

// encodable drops the values JSON cannot carry: an unbounded MaxDt is
// stored as absent, non-finite metrics are left out.
func encodable(meta *RunMetadata) *RunMetadata {
	out := *meta
	if math.IsInf(out.MaxDt, 0) || math.IsNaN(out.MaxDt) {
		out.MaxDt = 0
	}
	if len(meta.Metrics) > 0 {
		out.Metrics = make(map[string]float64, len(meta.Metrics))
		for k, v := range meta.Metrics {
			if !math.IsInf(v, 0) && !math.IsNaN(v) {
				out.Metrics[k] = v
			}
		}
	}
	return &out
}

// Dir is the directory holding the files of a run.
func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// List returns all readable runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

// LoadInitial reads back the particles a run started from.
func (s *Store) LoadInitial(runID string) ([]particle.Particle, error) {
	f, err := os.Open(filepath.Join(s.Dir(runID), initialFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()
	return scenario.ReadCSV(f)
}

// Timesteps is the parsed content of a run's timesteps.txt.
type Timesteps struct {
	Times  []float64 `json:"times"`
	Dts    []float64 `json:"dts"`
	Errors []float64 `json:"errors"`
}

func (s *Store) LoadTimesteps(runID string) (*Timesteps, error) {
	ts, err := ReadTimestepsFile(filepath.Join(s.Dir(runID), output.TimestepsFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s has no %s", ErrRunNotFound, runID, output.TimestepsFile)
	}
	return ts, err
}

// ReadTimesteps parses tab-separated "time dt error" rows. Rows that do
// not parse are skipped.
func ReadTimesteps(r io.Reader) (*Timesteps, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	ts := &Timesteps{
		Times:  make([]float64, 0, len(records)),
		Dts:    make([]float64, 0, len(records)),
		Errors: make([]float64, 0, len(records)),
	}
	for _, record := range records {
		if len(record) != 3 {
			continue
		}
		var v [3]float64
		ok := true
		for j, field := range record {
			f, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			v[j] = f
		}
		if !ok {
			continue
		}
		ts.Times = append(ts.Times, v[0])
		ts.Dts = append(ts.Dts, v[1])
		ts.Errors = append(ts.Errors, v[2])
	}
	return ts, nil
}

// ReadTimestepsFile parses a timesteps.txt outside the store.
func ReadTimestepsFile(path string) (*Timesteps, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTimesteps(f)
}

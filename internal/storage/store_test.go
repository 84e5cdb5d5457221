package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/astrosim/internal/output"
	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/vec"
)

func initial() []particle.Particle {
	return []particle.Particle{
		particle.New(1, vec.Zero, vec.Zero),
		particle.New(0, vec.New(0, 1), vec.New(1, 0)),
	}
}

func TestStoreCreateLoad(t *testing.T) {
	st := New(t.TempDir())

	meta := &RunMetadata{
		Scenario:    "kepler",
		Seed:        42,
		Force:       "bounded",
		Dt:          1e-5,
		MaxDt:       math.Inf(1),
		TargetError: 1e-3,
		Particles:   2,
		MassCutoff:  1,
		Duration:    6.28,
		Metrics:     map[string]float64{"energy_drift": 1.5e-9, "bad": math.NaN()},
	}
	runID, err := st.Create(meta, initial())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if runID == "" || meta.ID != runID {
		t.Fatalf("expected run id to be recorded, got %q / %q", runID, meta.ID)
	}
	if !strings.HasPrefix(runID, "kepler_") {
		t.Errorf("expected id prefixed by scenario, got %q", runID)
	}

	got, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.Scenario != "kepler" {
		t.Errorf("expected scenario 'kepler', got '%s'", got.Scenario)
	}
	if got.Seed != 42 {
		t.Errorf("expected seed 42, got %d", got.Seed)
	}
	if got.MaxDt != 0 {
		t.Errorf("expected unbounded max dt stored as 0, got %v", got.MaxDt)
	}
	if got.Metrics["energy_drift"] != 1.5e-9 {
		t.Errorf("expected drift 1.5e-9, got %v", got.Metrics["energy_drift"])
	}
	if _, ok := got.Metrics["bad"]; ok {
		t.Error("expected NaN metric to be dropped")
	}
	if got.Completed {
		t.Error("run should not be completed before Finish")
	}
	if !math.IsInf(meta.MaxDt, 1) {
		t.Error("Create must not modify the caller's MaxDt")
	}

	ps, err := st.LoadInitial(runID)
	if err != nil {
		t.Fatalf("load initial: %v", err)
	}
	if len(ps) != 2 || ps[1] != initial()[1] {
		t.Errorf("unexpected initial particles %+v", ps)
	}

	meta.FinalTime = 6.28
	meta.Steps = 1234
	if err := st.Finish(meta); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	got, _ = st.Load(runID)
	if !got.Completed || got.Steps != 1234 {
		t.Errorf("expected completed run with 1234 steps, got %+v", got)
	}
}

func TestLoadInitialIsExact(t *testing.T) {
	st := New(t.TempDir())
	in := []particle.Particle{
		particle.New(1, vec.Zero, vec.Zero),
		particle.New(1e-3, vec.New(1, 0), vec.New(0, 1)),
		particle.New(3e-7, vec.New(0.9123456789, -1e-9), vec.New(0.1+0.2, 1.0481231712)),
	}
	id, err := st.Create(&RunMetadata{Scenario: "migration"}, in)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	out, err := st.LoadInitial(id)
	if err != nil {
		t.Fatalf("load initial failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d particles, got %d", len(in), len(out))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("particle %d: expected %+v, got %+v", i, in[i], out[i])
		}
	}
}

func TestCreateUniqueIDs(t *testing.T) {
	st := New(t.TempDir())
	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		id, err := st.Create(&RunMetadata{Scenario: "binary"}, initial())
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs, got %d", len(runs))
	}
}

func TestStoreNotFound(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := st.Finish(&RunMetadata{ID: "missing"}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadTimesteps("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStoreListEmpty(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nonexistent"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreListSkipsBroken(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	st.Create(&RunMetadata{Scenario: "kepler"}, initial())
	os.MkdirAll(filepath.Join(dir, "junk"), 0755)
	os.WriteFile(filepath.Join(dir, "junk", metadataFile), []byte("{"), 0644)
	os.WriteFile(filepath.Join(dir, "stray.txt"), nil, 0644)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestReadTimesteps(t *testing.T) {
	input := "# time dt error\n0\t0.00001\t0\n0.5\t0.25\t0.001\nnot\ta\trow\n"
	ts, err := ReadTimesteps(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadTimesteps: %v", err)
	}
	if len(ts.Times) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ts.Times))
	}
	if ts.Times[1] != 0.5 || ts.Dts[0] != 1e-5 || ts.Errors[1] != 0.001 {
		t.Errorf("unexpected values %+v", ts)
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	id, _ := st.Create(&RunMetadata{Scenario: "kepler", Steps: 2}, initial())

	var buf bytes.Buffer
	if err := st.Export(&buf, id); err != nil {
		t.Fatalf("export without timesteps: %v", err)
	}
	if strings.Contains(buf.String(), `"timesteps"`) {
		t.Error("expected no timesteps key")
	}

	o, _ := output.New(st.Dir(id))
	o.WithTimesteps(true)
	o.Close()
	os.WriteFile(filepath.Join(st.Dir(id), output.TimestepsFile),
		[]byte("# time dt error\n0\t0.1\t0\n0.1\t0.1\t0.002\n"), 0644)

	buf.Reset()
	if err := st.Export(&buf, id); err != nil {
		t.Fatalf("export: %v", err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.ID != id || data.Steps != 2 {
		t.Errorf("unexpected metadata %+v", data.RunMetadata)
	}
	if data.Timesteps == nil || len(data.Timesteps.Errors) != 2 || data.Timesteps.Errors[1] != 0.002 {
		t.Errorf("unexpected timesteps %+v", data.Timesteps)
	}
}

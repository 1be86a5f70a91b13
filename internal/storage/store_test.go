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

	"github.com/google/uuid"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/results"
)

func testResult() *results.SimulationResult {
	res := &results.SimulationResult{
		StepsTaken: 10,
		Metrics:    map[string]float64{"max_tension": 1.5},
	}
	res.AddSample(results.SimulationSample{
		Time: 0,
		Step: 0,
		Yarn: results.SegmentKinematicsSample{SegmentPositions: []geom.Vec3{
			geom.V(0.05, 0.9, 0), geom.V(0.15, 0.9, 0),
		}},
		JointTensions: []float64{0.5, 1.5},
		GuideForce:    0.25,
		MaxJointGap:   1e-5,
	})
	res.AddSample(results.SimulationSample{
		Time: 0.01,
		Step: 10,
		Yarn: results.SegmentKinematicsSample{SegmentPositions: []geom.Vec3{
			geom.V(0.05, 0.8, 0), geom.V(0.15, 0.8, 0),
		}},
		JointTensions: []float64{0.75},
		GuideForce:    0.5,
		MaxJointGap:   2e-5,
	})
	return res
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	sc := config.DefaultScenario()
	runID, err := st.Save(MetadataFor(sc), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "falling_yarn_NSC_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.ID != runID {
		t.Errorf("expected id %s, got %s", runID, meta.ID)
	}
	if _, err := uuid.Parse(meta.UUID); err != nil {
		t.Errorf("run uuid %q: %v", meta.UUID, err)
	}
	if meta.Samples != 2 || meta.StepsTaken != 10 {
		t.Errorf("expected 2 samples and 10 steps, got %d and %d", meta.Samples, meta.StepsTaken)
	}
	if meta.Metrics["max_tension"] != 1.5 {
		t.Errorf("expected max_tension 1.5, got %f", meta.Metrics["max_tension"])
	}
	if meta.Scenario == nil || meta.Scenario.Yarn.SegmentCount != sc.Yarn.SegmentCount {
		t.Errorf("scenario not stored with the run")
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}

	s := samples[1]
	if s.Step != 10 || s.Time != 0.01 {
		t.Errorf("expected step 10 at 0.01, got %d at %f", s.Step, s.Time)
	}
	if s.MaxTension() != 0.75 || s.GuideForce != 0.5 || s.MaxJointGap != 2e-5 {
		t.Errorf("scalar columns did not round trip: %+v", s)
	}
	if len(s.Yarn.SegmentPositions) != 2 || s.Yarn.SegmentPositions[1] != geom.V(0.15, 0.8, 0) {
		t.Errorf("positions did not round trip: %v", s.Yarn.SegmentPositions)
	}
	if math.Abs(s.CenterOfMass.X-0.1) > 1e-12 || math.Abs(s.Tip.X-0.2) > 1e-12 {
		t.Errorf("derived com/tip wrong: %v %v", s.CenterOfMass, s.Tip)
	}
}

func TestLoadSamplesIsCached(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	runID, err := st.Save(MetadataFor(config.DefaultScenario()), testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := st.LoadSamples(runID); err != nil {
		t.Fatalf("load samples failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, runID, samplesFile)); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		t.Fatalf("cached load failed: %v", err)
	}
	if len(samples) != 2 {
		t.Errorf("expected 2 cached samples, got %d", len(samples))
	}

	if _, err := New(dir).LoadSamples(runID); err == nil {
		t.Error("fresh store should read the file and fail")
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
	if _, err := st.Latest(); err == nil {
		t.Error("expected error for empty store")
	}

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := st.Save(MetadataFor(config.DefaultScenario()), testResult())
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		ids = append(ids, id)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs, got %d", len(runs))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate run id %s", id)
		}
		seen[id] = true
	}
}

func TestWriteCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testResult()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	want := "time,step,guide_force,gap,tension_max,x0,y0,z0,x1,y1,z1"
	if header != want {
		t.Errorf("expected header %q, got %q", want, header)
	}
}

func TestReadCSVRejectsGarbage(t *testing.T) {
	in := "time,step,guide_force,gap,tension_max\n0,0,abc,0,0\n"
	if _, err := ReadCSV(strings.NewReader(in)); err == nil {
		t.Error("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	res := testResult()
	var buf bytes.Buffer
	if err := ExportJSON(&buf, RunMetadata{ID: "run"}, res.Samples); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data.Run.ID != "run" || len(data.Times) != 2 {
		t.Errorf("unexpected export: %+v", data)
	}
	if got := data.Series[results.SeriesTensionMax]; len(got) != 2 || got[0] != 1.5 {
		t.Errorf("unexpected tension series %v", got)
	}
}

func TestStoreResolve(t *testing.T) {
	st := New(t.TempDir())
	first, err := st.Save(MetadataFor(config.DefaultScenario()), testResult())
	if err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(first)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ref  string
		want string
		ok   bool
	}{
		{"latest", "", first, true},
		{"by id", first, first, true},
		{"by uuid", meta.UUID, first, true},
		{"by uuid prefix", meta.UUID[:8], first, true},
		{"short prefix", meta.UUID[:4], "", false},
		{"missing", "guide_pull_SMC_19700101-000000", "", false},
		{"parent dir", "..", "", false},
		{"path", "../" + first, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.Resolve(tt.ref)
			if (err == nil) != tt.ok {
				t.Fatalf("Resolve(%q) error = %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestStoreResolveAmbiguousPrefix(t *testing.T) {
	st := New(t.TempDir())
	var ids []string
	for i, u := range []string{"abcd1234-0000-4000-8000-000000000001", "abcd1234-0000-4000-8000-000000000002"} {
		id, err := st.Save(MetadataFor(config.DefaultScenario()), testResult())
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
		meta, err := st.Load(id)
		if err != nil {
			t.Fatal(err)
		}
		meta.UUID = u
		data, err := json.Marshal(meta)
		if err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(st.BaseDir(), id, metadataFile), data, 0644); err != nil {
			t.Fatalf("rewrite metadata %d: %v", i, err)
		}
	}

	if _, err := st.Resolve("abcd1234"); !errors.Is(err, ErrAmbiguousRef) {
		t.Errorf("Resolve(shared prefix) error = %v, want ErrAmbiguousRef", err)
	}
	got, err := st.Resolve("abcd1234-0000-4000-8000-000000000002")
	if err != nil {
		t.Fatal(err)
	}
	if got != ids[1] {
		t.Errorf("Resolve(full uuid) = %q, want %q", got, ids[1])
	}
}

func TestStoreSaveFailureLeavesNoRun(t *testing.T) {
	st := New(t.TempDir())
	sc := config.DefaultScenario()
	sc.Simulation.Gravity.Y = math.NaN()

	if _, err := st.Save(MetadataFor(sc), testResult()); err == nil {
		t.Fatal("Save with an unencodable scenario succeeded")
	}
	entries, err := os.ReadDir(st.BaseDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("failed save left %d entries behind", len(entries))
	}
	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("List() = %d runs after failed save, want 0", len(runs))
	}
}

// Package storage persists runs as directories holding metadata.json and
// samples.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter/v2"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/results"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.csv"
	cacheSize    = 32
)

// ErrAmbiguousRef is returned by Resolve when a UUID prefix names more than
// one run.
var ErrAmbiguousRef = errors.New("ambiguous run reference")

// fixed CSV columns ahead of the per-segment x/y/z triples
var baseColumns = []string{"time", "step", "guide_force", "gap", "tension_max"}

type Store struct {
	baseDir string
	samples *otter.Cache[string, []results.SimulationSample]
}

func New(baseDir string) *Store {
	return &Store{
		baseDir: baseDir,
		samples: otter.Must(&otter.Options[string, []results.SimulationSample]{
			MaximumSize: cacheSize,
		}),
	}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

type RunMetadata struct {
	ID                string             `json:"id"`
	UUID              string             `json:"uuid"`
	Name              string             `json:"name"`
	Scene             string             `json:"scene"`
	ContactModel      string             `json:"contact_model"`
	Timestamp         time.Time          `json:"timestamp"`
	Dt                float64            `json:"dt"`
	TEnd              float64            `json:"t_end"`
	SampleEveryNSteps int                `json:"sample_every_n_steps"`
	SegmentCount      int                `json:"segment_count"`
	StepsTaken        int                `json:"steps_taken"`
	Samples           int                `json:"samples"`
	Metrics           map[string]float64 `json:"metrics"`
	Scenario          *config.Scenario   `json:"scenario,omitempty"`
}

// MetadataFor fills the run description from the scenario that produced it.
func MetadataFor(sc *config.Scenario) RunMetadata {
	return RunMetadata{
		Name:              sc.Name,
		Scene:             sc.Scene,
		ContactModel:      string(sc.Simulation.ContactModel),
		Dt:                sc.Simulation.Dt,
		TEnd:              sc.Simulation.TEnd,
		SampleEveryNSteps: sc.Simulation.SampleEveryNSteps,
		SegmentCount:      sc.Yarn.SegmentCount,
		Scenario:          sc.Clone(),
	}
}

// Save writes a new run directory and returns its ID.
func (s *Store) Save(meta RunMetadata, result *results.SimulationResult) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	now := time.Now()
	runID, runDir, err := s.newRunDir(meta.Scene, meta.ContactModel, now)
	if err != nil {
		return "", err
	}

	meta.ID = runID
	meta.UUID = uuid.NewString()
	meta.Timestamp = now
	meta.StepsTaken = result.StepsTaken
	meta.Samples = result.Len()
	meta.Metrics = finite(result.Metrics)

	if err := writeRun(runDir, meta, result); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func writeRun(runDir string, meta RunMetadata, result *results.SimulationResult) error {
	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		metaFile.Close()
		return err
	}
	if err := metaFile.Close(); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(runDir, samplesFile))
	if err != nil {
		return err
	}
	if err := WriteCSV(csvFile, result); err != nil {
		csvFile.Close()
		return err
	}
	return csvFile.Close()
}

// finite drops metrics that were never observed (NaN) or diverged; JSON
// cannot encode them.
func finite(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func (s *Store) newRunDir(scene, model string, now time.Time) (string, string, error) {
	base := fmt.Sprintf("%s_%s_%s", scene, model, now.Format("20060102-150405"))
	for i := 0; ; i++ {
		id := base
		if i > 0 {
			id = fmt.Sprintf("%s-%d", base, i)
		}
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
	}
}

// WriteCSV writes one row per sample: the fixed columns followed by the
// x, y and z of every segment centre.
func WriteCSV(out io.Writer, result *results.SimulationResult) error {
	w := csv.NewWriter(out)

	segments := 0
	if len(result.Samples) > 0 {
		segments = len(result.Samples[0].Yarn.SegmentPositions)
	}

	header := append([]string(nil), baseColumns...)
	for i := 0; i < segments; i++ {
		header = append(header, fmt.Sprintf("x%d", i), fmt.Sprintf("y%d", i), fmt.Sprintf("z%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, smp := range result.Samples {
		row := []string{
			formatFloat(smp.Time),
			strconv.Itoa(smp.Step),
			formatFloat(smp.GuideForce),
			formatFloat(smp.MaxJointGap),
			formatFloat(smp.MaxTension()),
		}
		for i := 0; i < segments; i++ {
			p := geom.Zero
			if i < len(smp.Yarn.SegmentPositions) {
				p = smp.Yarn.SegmentPositions[i]
			}
			row = append(row, formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 10, 64)
}

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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

// Latest returns the ID of the most recent run.
func (s *Store) Latest() (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no runs in %s", s.baseDir)
	}
	return runs[len(runs)-1].ID, nil
}

// Resolve maps a run reference to a run ID. The reference may be a run ID,
// a full run UUID or a UUID prefix of at least 8 characters; an empty
// reference means the latest run. A prefix shared by several runs is
// ErrAmbiguousRef.
func (s *Store) Resolve(ref string) (string, error) {
	if ref == "" {
		return s.Latest()
	}
	if strings.ContainsAny(ref, `/\`) || ref == "." || ref == ".." {
		return "", fmt.Errorf("run reference %q is not a run ID or UUID", ref)
	}
	if _, err := os.Stat(filepath.Join(s.baseDir, ref, metadataFile)); err == nil {
		return ref, nil
	}
	if len(ref) >= 8 {
		runs, err := s.List()
		if err != nil {
			return "", err
		}
		var matches []string
		for _, r := range runs {
			if strings.HasPrefix(r.UUID, ref) {
				matches = append(matches, r.ID)
			}
		}
		switch len(matches) {
		case 0:
		case 1:
			return matches[0], nil
		default:
			return "", fmt.Errorf("%w: %q matches %d runs (%s)", ErrAmbiguousRef, ref, len(matches), strings.Join(matches, ", "))
		}
	}
	return "", fmt.Errorf("run %q not found in %s", ref, s.baseDir)
}

// LoadSamples reads samples.csv back. Joint tensions hold only the recorded
// maximum; the centre of mass is the mean segment centre and the tip is
// extrapolated from the last two segment centres.
func (s *Store) LoadSamples(runID string) ([]results.SimulationSample, error) {
	if cached, ok := s.samples.GetIfPresent(runID); ok {
		return cached, nil
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, samplesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	out, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	s.samples.Set(runID, out)
	return out, nil
}

// ReadCSV parses rows written by WriteCSV.
func ReadCSV(in io.Reader) ([]results.SimulationSample, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []results.SimulationSample{}, nil
	}

	out := make([]results.SimulationSample, 0, len(records)-1)
	for line, rec := range records[1:] {
		if len(rec) < len(baseColumns) {
			continue
		}
		vals := make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line+2, j+1, err)
			}
			vals[j] = v
		}

		smp := results.SimulationSample{
			Time:          vals[0],
			Step:          int(vals[1]),
			GuideForce:    vals[2],
			MaxJointGap:   vals[3],
			JointTensions: []float64{vals[4]},
		}
		coords := vals[len(baseColumns):]
		for j := 0; j+2 < len(coords); j += 3 {
			smp.Yarn.SegmentPositions = append(smp.Yarn.SegmentPositions, geom.V(coords[j], coords[j+1], coords[j+2]))
		}
		smp.CenterOfMass, smp.Tip = summarize(smp.Yarn.SegmentPositions)
		out = append(out, smp)
	}
	return out, nil
}

func summarize(pos []geom.Vec3) (com, tip geom.Vec3) {
	if len(pos) == 0 {
		return geom.Zero, geom.Zero
	}
	for _, p := range pos {
		com = com.Add(p)
	}
	com = com.Scale(1 / float64(len(pos)))

	last := pos[len(pos)-1]
	if len(pos) == 1 {
		return com, last
	}
	return com, last.Add(last.Sub(pos[len(pos)-2]).Scale(0.5))
}

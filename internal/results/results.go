// Package results holds the sampled output of a simulation run.
package results

import (
	"math"

	"github.com/san-kum/yarnsim/internal/geom"
)

// Series names understood by SimulationResult.Series.
const (
	SeriesTensionMax = "tension_max"
	SeriesGuideForce = "guide_force"
	SeriesTipY       = "tip_y"
	SeriesComY       = "com_y"
	SeriesGap        = "gap"
)

// SeriesNames lists every series in display order.
var SeriesNames = []string{SeriesTensionMax, SeriesGuideForce, SeriesTipY, SeriesComY, SeriesGap}

// SegmentKinematicsSample is the yarn state at one instant.
type SegmentKinematicsSample struct {
	SegmentPositions []geom.Vec3 `json:"segment_positions"`
}

// SimulationSample is one recorded point of a run.
type SimulationSample struct {
	Time          float64                 `json:"time"`
	Step          int                     `json:"step"`
	Yarn          SegmentKinematicsSample `json:"yarn"`
	JointTensions []float64               `json:"joint_tensions,omitempty"`
	GuideForce    float64                 `json:"guide_force"`
	MaxJointGap   float64                 `json:"max_joint_gap"`
	Tip           geom.Vec3               `json:"tip"`
	CenterOfMass  geom.Vec3               `json:"center_of_mass"`
}

// MaxTension is the largest joint tension in the sample.
func (s SimulationSample) MaxTension() float64 {
	m := 0.0
	for _, t := range s.JointTensions {
		m = math.Max(m, t)
	}
	return m
}

// SimulationResult collects the samples of one run.
type SimulationResult struct {
	Samples    []SimulationSample `json:"samples"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	StepsTaken int                `json:"steps_taken"`
}

func (r *SimulationResult) AddSample(s SimulationSample) {
	r.Samples = append(r.Samples, s)
}

func (r *SimulationResult) Len() int { return len(r.Samples) }

func (r *SimulationResult) Times() []float64 {
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Time
	}
	return out
}

// Last returns the final sample, or false for an empty result.
func (r *SimulationResult) Last() (SimulationSample, bool) {
	if len(r.Samples) == 0 {
		return SimulationSample{}, false
	}
	return r.Samples[len(r.Samples)-1], true
}

// Series extracts one scalar per sample. Unknown names return nil.
func (r *SimulationResult) Series(name string) []float64 {
	var get func(SimulationSample) float64
	switch name {
	case SeriesTensionMax:
		get = SimulationSample.MaxTension
	case SeriesGuideForce:
		get = func(s SimulationSample) float64 { return s.GuideForce }
	case SeriesTipY:
		get = func(s SimulationSample) float64 { return s.Tip.Y }
	case SeriesComY:
		get = func(s SimulationSample) float64 { return s.CenterOfMass.Y }
	case SeriesGap:
		get = func(s SimulationSample) float64 { return s.MaxJointGap }
	default:
		return nil
	}
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = get(s)
	}
	return out
}

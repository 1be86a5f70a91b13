package metrics

import (
	"math"

	"github.com/san-kum/yarnsim/internal/results"
)

type MaxTension struct {
	max float64
}

func NewMaxTension() *MaxTension { return &MaxTension{} }

func (m *MaxTension) Name() string { return "max_tension" }

func (m *MaxTension) Observe(s results.SimulationSample) {
	m.max = math.Max(m.max, s.MaxTension())
}

func (m *MaxTension) Value() float64 { return m.max }
func (m *MaxTension) Reset()         { m.max = 0 }

// MeanGuideForce averages the guide contact force over all samples.
type MeanGuideForce struct {
	sum     float64
	samples int
}

func NewMeanGuideForce() *MeanGuideForce { return &MeanGuideForce{} }

func (m *MeanGuideForce) Name() string { return "mean_guide_force" }

func (m *MeanGuideForce) Observe(s results.SimulationSample) {
	m.sum += s.GuideForce
	m.samples++
}

func (m *MeanGuideForce) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanGuideForce) Reset() {
	m.sum = 0
	m.samples = 0
}

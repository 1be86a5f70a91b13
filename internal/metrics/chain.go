package metrics

import (
	"math"

	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/results"
)

// MaxJointGap tracks the worst joint separation seen in the run.
type MaxJointGap struct {
	max float64
}

func NewMaxJointGap() *MaxJointGap { return &MaxJointGap{} }

func (m *MaxJointGap) Name() string { return "max_joint_gap" }

func (m *MaxJointGap) Observe(s results.SimulationSample) {
	m.max = math.Max(m.max, s.MaxJointGap)
}

func (m *MaxJointGap) Value() float64 { return m.max }
func (m *MaxJointGap) Reset()         { m.max = 0 }

type FinalTipHeight struct {
	y    float64
	seen bool
}

func NewFinalTipHeight() *FinalTipHeight { return &FinalTipHeight{} }

func (m *FinalTipHeight) Name() string { return "final_tip_height" }

func (m *FinalTipHeight) Observe(s results.SimulationSample) {
	m.y = s.Tip.Y
	m.seen = true
}

func (m *FinalTipHeight) Value() float64 {
	if !m.seen {
		return math.NaN()
	}
	return m.y
}

func (m *FinalTipHeight) Reset() {
	m.y = 0
	m.seen = false
}

// SettleTime is the sample time after which the yarn centre of mass never
// again moves faster than the threshold speed.
type SettleTime struct {
	threshold float64
	prev      geom.Vec3
	prevT     float64
	settled   float64
	samples   int
}

func NewSettleTime(threshold float64) *SettleTime {
	return &SettleTime{threshold: threshold}
}

func (m *SettleTime) Name() string { return "settle_time" }

func (m *SettleTime) Observe(s results.SimulationSample) {
	if m.samples > 0 && s.Time > m.prevT {
		speed := s.CenterOfMass.Dist(m.prev) / (s.Time - m.prevT)
		if speed > m.threshold {
			m.settled = s.Time
		}
	}
	m.prev = s.CenterOfMass
	m.prevT = s.Time
	m.samples++
}

func (m *SettleTime) Value() float64 { return m.settled }

func (m *SettleTime) Reset() {
	m.prev = geom.Zero
	m.prevT = 0
	m.settled = 0
	m.samples = 0
}

package fea

import (
	"math"

	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/geom"
)

// SolverConfig controls how a cable scene is advanced. SubSteps of zero
// picks the number of inner steps from the cable's stability limit.
type SolverConfig struct {
	Dt         float64   `yaml:"dt"`
	Gravity    geom.Vec3 `yaml:"gravity"`
	Integrator string    `yaml:"integrator"`
	SubSteps   int       `yaml:"sub_steps"`
}

func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		Dt:         2e-4,
		Gravity:    geom.V(0, -9.81, 0),
		Integrator: "verlet",
	}
}

func (c SolverConfig) Validate() error {
	if !(c.Dt > 0) {
		return dynamo.Invalid("dt", "must be positive, got %g", c.Dt)
	}
	if c.SubSteps < 0 {
		return dynamo.Invalid("sub_steps", "must not be negative, got %d", c.SubSteps)
	}
	if !c.Gravity.IsFinite() {
		return dynamo.Invalid("gravity", "must be finite")
	}
	return nil
}

// HangingYarnConfig describes a single strand laid out straight from Start
// to End. The layout is the rest shape; Length is the nominal strand length
// reported through ElementLength.
type HangingYarnConfig struct {
	Length          float64   `yaml:"length"`
	ElementCount    int       `yaml:"element_count"`
	Radius          float64   `yaml:"radius"`
	Density         float64   `yaml:"density"`
	YoungModulus    float64   `yaml:"young_modulus"`
	RayleighDamping float64   `yaml:"rayleigh_damping"`
	Start           geom.Vec3 `yaml:"start"`
	End             geom.Vec3 `yaml:"end"`
	FixStartNode    bool      `yaml:"fix_start_node"`
	FixEndNode      bool      `yaml:"fix_end_node"`
}

func DefaultHangingYarnConfig() HangingYarnConfig {
	return HangingYarnConfig{
		Length:          1.0,
		ElementCount:    80,
		Radius:          0.0015,
		Density:         1200,
		YoungModulus:    5e8,
		RayleighDamping: 2e-4,
		Start:           geom.V(-0.55, 0.75, 0),
		End:             geom.V(0.45, 0.75, 0),
		FixStartNode:    true,
	}
}

// ElementLength is the rest length of one element.
func (c HangingYarnConfig) ElementLength() float64 {
	if c.ElementCount <= 0 {
		return 0
	}
	return c.Length / float64(c.ElementCount)
}

// Area is the cross-section area of the strand.
func (c HangingYarnConfig) Area() float64 { return math.Pi * c.Radius * c.Radius }

func (c HangingYarnConfig) Validate() error {
	switch {
	case c.ElementCount <= 0:
		return dynamo.Invalid("element_count", "must be positive, got %d", c.ElementCount)
	case !(c.Length > 0):
		return dynamo.Invalid("length", "must be positive, got %g", c.Length)
	case !(c.Radius > 0):
		return dynamo.Invalid("radius", "must be positive, got %g", c.Radius)
	case !(c.Density > 0):
		return dynamo.Invalid("density", "must be positive, got %g", c.Density)
	case !(c.YoungModulus > 0):
		return dynamo.Invalid("young_modulus", "must be positive, got %g", c.YoungModulus)
	case c.RayleighDamping < 0:
		return dynamo.Invalid("rayleigh_damping", "must not be negative, got %g", c.RayleighDamping)
	case c.Start == c.End:
		return dynamo.Invalid("end", "must differ from start")
	}
	return nil
}

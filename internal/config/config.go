// Package config defines the inputs used by scene builders and simulation
// runners. The structs are plain values with YAML tags so scenarios can be
// written by hand, loaded from disk, or built in tests without touching the
// engine.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/geom"
	"gopkg.in/yaml.v3"
)

// ContactModel selects the contact formulation.
type ContactModel string

const (
	// NSC is the non-smooth (impulse, complementarity) contact formulation.
	NSC ContactModel = "NSC"
	// SMC is the smooth (penalty) contact formulation.
	SMC ContactModel = "SMC"
)

const (
	SceneFallingYarn = "falling_yarn"
	SceneGuidePull   = "guide_pull"
)

const (
	DefaultDt                = 1e-3
	DefaultTEnd              = 1.0
	DefaultSampleEveryNSteps = 10
	DefaultGravityY          = -9.81
	DefaultMaxIterations     = 50
)

func (m ContactModel) Valid() bool { return m == NSC || m == SMC }

// SolverTuning holds low-level solver and collision parameters. They are
// kept apart from SimulationConfig so their defaults can evolve on their own.
type SolverTuning struct {
	CollisionEnvelope           float64 `yaml:"collision_envelope"`
	CollisionMargin             float64 `yaml:"collision_margin"`
	SingleThread                bool    `yaml:"single_thread"`
	MaxIterations               int     `yaml:"max_iterations"`
	Tolerance                   float64 `yaml:"tolerance"`
	MaxPenetrationRecoverySpeed float64 `yaml:"max_penetration_recovery_speed"`
	MinBounceSpeed              float64 `yaml:"min_bounce_speed"`
}

// SimulationConfig holds the top-level settings of a run.
type SimulationConfig struct {
	ContactModel      ContactModel `yaml:"contact_model"`
	Dt                float64      `yaml:"dt"`
	TEnd              float64      `yaml:"t_end"`
	Gravity           geom.Vec3    `yaml:"gravity"`
	SampleEveryNSteps int          `yaml:"sample_every_n_steps"`
	Solver            SolverTuning `yaml:"solver"`
}

// YarnConfig describes the segmented yarn. Length and SegmentCount define
// the discretization.
type YarnConfig struct {
	Length         float64   `yaml:"length"`
	SegmentCount   int       `yaml:"segment_count"`
	Radius         float64   `yaml:"radius"`
	Density        float64   `yaml:"density"`
	StartPosition  geom.Vec3 `yaml:"start_position"`
	StartDirection geom.Vec3 `yaml:"start_direction"`
	Friction       float64   `yaml:"friction"`
	Restitution    float64   `yaml:"restitution"`
}

// SegmentLength is the nominal length of each segment in meters.
func (y YarnConfig) SegmentLength() float64 {
	if y.SegmentCount <= 0 {
		return 0
	}
	return y.Length / float64(y.SegmentCount)
}

// FloorConfig describes an axis-aligned box floor.
type FloorConfig struct {
	HalfSize    geom.Vec3 `yaml:"half_size"`
	Position    geom.Vec3 `yaml:"position"`
	Friction    float64   `yaml:"friction"`
	Restitution float64   `yaml:"restitution"`
}

// Top is the height of the floor's upper face.
func (f FloorConfig) Top() float64 { return f.Position.Y + f.HalfSize.Y }

// GuideConfig describes the ring the yarn is threaded through.
type GuideConfig struct {
	Position    geom.Vec3 `yaml:"position"`
	Axis        geom.Vec3 `yaml:"axis"`
	InnerRadius float64   `yaml:"inner_radius"`
	WireRadius  float64   `yaml:"wire_radius"`
	Friction    float64   `yaml:"friction"`
	Restitution float64   `yaml:"restitution"`
}

// PullConfig drives the leading end of the yarn at constant velocity.
type PullConfig struct {
	Speed        float64   `yaml:"speed"`
	Direction    geom.Vec3 `yaml:"direction"`
	AnchorTail   bool      `yaml:"anchor_tail"`
	StartDelay   float64   `yaml:"start_delay"`
	PullerRadius float64   `yaml:"puller_radius"`
}

// BendingConfig adds compliant bending resistance on top of the pure
// spherical-joint chain.
type BendingConfig struct {
	RSDAStiffness float64 `yaml:"rsda_stiffness"`
	RSDADamping   float64 `yaml:"rsda_damping"`
	TSDASpan      int     `yaml:"tsda_span"`
	TSDAStiffness float64 `yaml:"tsda_stiffness"`
	TSDADamping   float64 `yaml:"tsda_damping"`
}

func (b BendingConfig) HasRSDA() bool { return b.RSDAStiffness != 0 || b.RSDADamping != 0 }
func (b BendingConfig) HasTSDA() bool { return b.TSDASpan >= 2 && b.TSDAStiffness != 0 }

// Scenario is the document stored in scenario YAML files.
type Scenario struct {
	Name       string           `yaml:"name"`
	Scene      string           `yaml:"scene"`
	Simulation SimulationConfig `yaml:"simulation"`
	Yarn       YarnConfig       `yaml:"yarn"`
	Floor      FloorConfig      `yaml:"floor"`
	Guide      GuideConfig      `yaml:"guide"`
	Pull       PullConfig       `yaml:"pull"`
	Bending    BendingConfig    `yaml:"bending"`
}

func DefaultSolverTuning() SolverTuning {
	return SolverTuning{
		CollisionEnvelope:           0.003,
		CollisionMargin:             0.002,
		SingleThread:                true,
		MaxIterations:               DefaultMaxIterations,
		Tolerance:                   1e-6,
		MaxPenetrationRecoverySpeed: 0.5,
		MinBounceSpeed:              0.05,
	}
}

func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		ContactModel:      NSC,
		Dt:                DefaultDt,
		TEnd:              DefaultTEnd,
		Gravity:           geom.V(0, DefaultGravityY, 0),
		SampleEveryNSteps: DefaultSampleEveryNSteps,
		Solver:            DefaultSolverTuning(),
	}
}

func DefaultYarnConfig() YarnConfig {
	return YarnConfig{
		Length:         0.75,
		SegmentCount:   20,
		Radius:         0.01,
		Density:        500.0,
		StartPosition:  geom.V(0, 0.9, 0),
		StartDirection: geom.V(1, 0, 0),
		Friction:       0.3,
		Restitution:    0.05,
	}
}

func DefaultFloorConfig() FloorConfig {
	return FloorConfig{
		HalfSize:    geom.V(1.0, 0.05, 1.0),
		Position:    geom.V(0, 0.05, 0),
		Friction:    0.3,
		Restitution: 0.05,
	}
}

func DefaultGuideConfig() GuideConfig {
	return GuideConfig{
		Position:    geom.V(0, 0.5, 0),
		Axis:        geom.V(1, 0, 0),
		InnerRadius: 0.03,
		WireRadius:  0.004,
		Friction:    0.2,
		Restitution: 0.0,
	}
}

func DefaultPullConfig() PullConfig {
	return PullConfig{
		Speed:        0.2,
		Direction:    geom.V(1, 0, 0),
		AnchorTail:   false,
		PullerRadius: 0.015,
	}
}

func DefaultBendingConfig() BendingConfig {
	return BendingConfig{}
}

func DefaultScenario() *Scenario {
	return &Scenario{
		Name:       "default",
		Scene:      SceneFallingYarn,
		Simulation: DefaultSimulationConfig(),
		Yarn:       DefaultYarnConfig(),
		Floor:      DefaultFloorConfig(),
		Guide:      DefaultGuideConfig(),
		Pull:       DefaultPullConfig(),
		Bending:    DefaultBendingConfig(),
	}
}

// Load reads a scenario file on top of the defaults, so a file only needs
// to carry the values it changes. Files ending in .hcl are read as HCL,
// everything else as YAML.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultScenario()
	if isHCL(path) {
		err = decodeHCL(data, path, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as HCL or YAML depending on the extension of path.
func Save(path string, cfg *Scenario) error {
	var (
		data []byte
		err  error
	)
	if isHCL(path) {
		data, err = encodeHCL(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isHCL(path string) bool { return strings.EqualFold(filepath.Ext(path), ".hcl") }

// Clone returns a deep copy; every field is a value so a struct copy is enough.
func (s *Scenario) Clone() *Scenario {
	c := *s
	return &c
}

// Validate reports the first out-of-range value as a wrapped
// dynamo.ErrInvalidConfig or dynamo.ErrUnsupportedContactModel.
func (s *Scenario) Validate() error {
	if err := s.Simulation.Validate(); err != nil {
		return err
	}
	if err := s.Yarn.Validate(); err != nil {
		return err
	}
	if !positive(s.Floor.HalfSize.X) || !positive(s.Floor.HalfSize.Y) || !positive(s.Floor.HalfSize.Z) {
		return dynamo.Invalid("floor.half_size", "must be positive, got %v", s.Floor.HalfSize)
	}
	if !s.Floor.Position.IsFinite() {
		return dynamo.Invalid("floor.position", "must be finite, got %v", s.Floor.Position)
	}
	if !finite(s.Floor.Friction, s.Floor.Restitution) {
		return dynamo.Invalid("floor", "friction and restitution must be finite")
	}
	if s.Scene == SceneGuidePull {
		if !positive(s.Guide.InnerRadius) || s.Guide.InnerRadius <= s.Yarn.Radius {
			return dynamo.Invalid("guide.inner_radius", "must exceed yarn radius %g, got %g", s.Yarn.Radius, s.Guide.InnerRadius)
		}
		if !positive(s.Guide.WireRadius) {
			return dynamo.Invalid("guide.wire_radius", "must be positive, got %g", s.Guide.WireRadius)
		}
		if !s.Guide.Position.IsFinite() {
			return dynamo.Invalid("guide.position", "must be finite, got %v", s.Guide.Position)
		}
		if !s.Guide.Axis.IsFinite() || s.Guide.Axis.Length() == 0 {
			return dynamo.Invalid("guide.axis", "must be finite and non-zero")
		}
		if !finite(s.Guide.Friction, s.Guide.Restitution) {
			return dynamo.Invalid("guide", "friction and restitution must be finite")
		}
		if !finite(s.Pull.Speed) || s.Pull.Speed < 0 {
			return dynamo.Invalid("pull.speed", "must be non-negative, got %g", s.Pull.Speed)
		}
		if !s.Pull.Direction.IsFinite() || (s.Pull.Speed > 0 && s.Pull.Direction.Length() == 0) {
			return dynamo.Invalid("pull.direction", "must be finite and non-zero")
		}
		if !finite(s.Pull.StartDelay, s.Pull.PullerRadius) {
			return dynamo.Invalid("pull", "start delay and puller radius must be finite")
		}
	}
	if s.Bending.TSDASpan == 1 {
		return dynamo.Invalid("bending.tsda_span", "must be >= 2 for a bending proxy")
	}
	return nil
}

func (c SimulationConfig) Validate() error {
	if !c.ContactModel.Valid() {
		return fmt.Errorf("%w: %q", dynamo.ErrUnsupportedContactModel, c.ContactModel)
	}
	if !positive(c.Dt) {
		return dynamo.Invalid("simulation.dt", "must be positive and finite, got %g", c.Dt)
	}
	if !positive(c.TEnd) {
		return dynamo.Invalid("simulation.t_end", "must be positive and finite, got %g", c.TEnd)
	}
	if c.TEnd/c.Dt+0.5 > MaxSteps {
		return dynamo.Invalid("simulation.t_end", "t_end/dt exceeds %d steps, got %g", MaxSteps, c.TEnd/c.Dt)
	}
	if !c.Gravity.IsFinite() {
		return dynamo.Invalid("simulation.gravity", "must be finite, got %v", c.Gravity)
	}
	if c.SampleEveryNSteps <= 0 {
		return dynamo.Invalid("simulation.sample_every_n_steps", "must be positive, got %d", c.SampleEveryNSteps)
	}
	if c.Solver.MaxIterations <= 0 {
		return dynamo.Invalid("simulation.solver.max_iterations", "must be positive, got %d", c.Solver.MaxIterations)
	}
	st := c.Solver
	if !finite(st.CollisionEnvelope, st.CollisionMargin, st.Tolerance, st.MaxPenetrationRecoverySpeed, st.MinBounceSpeed) {
		return dynamo.Invalid("simulation.solver", "tuning values must be finite")
	}
	if st.CollisionEnvelope < 0 || st.CollisionMargin < 0 {
		return dynamo.Invalid("simulation.solver", "collision envelope and margin must be non-negative")
	}
	return nil
}

func (y YarnConfig) Validate() error {
	if y.SegmentCount <= 0 {
		return dynamo.Invalid("yarn.segment_count", "must be > 0, got %d", y.SegmentCount)
	}
	if !positive(y.Length) {
		return dynamo.Invalid("yarn.length", "must be > 0, got %g", y.Length)
	}
	if !positive(y.Radius) {
		return dynamo.Invalid("yarn.radius", "must be > 0, got %g", y.Radius)
	}
	if !positive(y.Density) {
		return dynamo.Invalid("yarn.density", "must be > 0, got %g", y.Density)
	}
	if !y.StartPosition.IsFinite() {
		return dynamo.Invalid("yarn.start_position", "must be finite, got %v", y.StartPosition)
	}
	if !y.StartDirection.IsFinite() || y.StartDirection.Length() == 0 {
		return dynamo.Invalid("yarn.start_direction", "must be finite and non-zero")
	}
	if !finite(y.Friction, y.Restitution) {
		return dynamo.Invalid("yarn", "friction and restitution must be finite")
	}
	return nil
}

// MaxSteps bounds round(TEnd/Dt) for a single run.
const MaxSteps = math.MaxInt32

// Steps is the number of fixed steps needed to reach TEnd. Settings that
// Validate rejects give 0.
func (c SimulationConfig) Steps() int {
	if !positive(c.Dt) || !positive(c.TEnd) {
		return 0
	}
	n := c.TEnd/c.Dt + 0.5
	if n > MaxSteps {
		return 0
	}
	return int(n)
}

// positive is false for NaN and the infinities as well as for v <= 0.
func positive(v float64) bool { return v > 0 && !math.IsInf(v, 1) }

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

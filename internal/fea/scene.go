package fea

import (
	"fmt"
	"math"

	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/integrators"
	"github.com/san-kum/yarnsim/internal/results"
)

// stabilitySafety scales the estimated stable step when SubSteps is automatic.
const stabilitySafety = 0.5

// Scene is a hanging cable ready to be stepped by a runner.
type Scene struct {
	Cable  *Cable
	State  dynamo.State
	Solver SolverConfig
	Yarn   HangingYarnConfig

	integ    dynamo.Integrator
	subSteps int
	initial  dynamo.State
	time     float64
	steps    int
}

// BuildHangingScene builds the strand and picks the inner step count.
func BuildHangingScene(solver SolverConfig, yarn HangingYarnConfig) (*Scene, error) {
	if err := solver.Validate(); err != nil {
		return nil, err
	}
	cable, x, err := BuildCable(yarn, solver.Gravity)
	if err != nil {
		return nil, err
	}
	integ, err := integrators.New(solver.Integrator)
	if err != nil {
		return nil, err
	}
	sub := solver.SubSteps
	if sub == 0 {
		sub = int(math.Ceil(solver.Dt / (stabilitySafety * cable.StableStep())))
		sub = max(sub, 1)
	}
	return &Scene{
		Cable:    cable,
		State:    x,
		Solver:   solver,
		Yarn:     yarn,
		integ:    integ,
		subSteps: sub,
		initial:  x.Clone(),
	}, nil
}

func (s *Scene) SubSteps() int  { return s.subSteps }
func (s *Scene) Time() float64  { return s.time }
func (s *Scene) StepCount() int { return s.steps }

// Step advances the cable by dt in SubSteps equal inner steps.
func (s *Scene) Step(dt float64) error {
	h := dt / float64(s.subSteps)
	for i := 0; i < s.subSteps; i++ {
		s.State = s.integ.Step(s.Cable, s.State, s.time, h)
		s.time += h
	}
	s.steps++
	if !s.State.IsValid() {
		return &dynamo.SimulationError{
			Step:    s.steps,
			Time:    s.time,
			Wrapped: fmt.Errorf("%w: cable node state", dynamo.ErrUnstable),
		}
	}
	return nil
}

// Reset restores the initial layout and rewinds time.
func (s *Scene) Reset() {
	s.State = s.initial.Clone()
	s.time = 0
	s.steps = 0
}

// Sample reports node positions as the yarn positions and element axial
// forces as the tensions. A cable has no joints, so MaxJointGap stays zero.
func (s *Scene) Sample(t float64) results.SimulationSample {
	pos := s.Cable.NodePositions(s.State)
	return results.SimulationSample{
		Time:          t,
		Step:          s.steps,
		Yarn:          results.SegmentKinematicsSample{SegmentPositions: pos},
		JointTensions: s.Cable.ElementTensions(s.State),
		Tip:           pos[len(pos)-1],
		CenterOfMass:  s.centerOfMass(),
	}
}

func (s *Scene) centerOfMass() geom.Vec3 {
	var sum geom.Vec3
	for i := 0; i < s.Cable.nodes; i++ {
		sum = sum.Add(s.Cable.pos(s.State, i).Scale(s.Cable.mass[i]))
	}
	return sum.Scale(1 / s.Cable.TotalMass())
}

// TipPosition is the position of the last node.
func TipPosition(s *Scene) geom.Vec3 {
	return s.Cable.pos(s.State, s.Cable.nodes-1)
}

// MaxSag is the largest drop of any node below referenceY, or zero when no
// node is below it.
func MaxSag(s *Scene, referenceY float64) float64 {
	sag := 0.0
	for i := 0; i < s.Cable.nodes; i++ {
		sag = math.Max(sag, referenceY-s.State[3*i+1])
	}
	return sag
}

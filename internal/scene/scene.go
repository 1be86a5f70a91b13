// Package scene composes floors, guides and yarn chains into runnable
// simulations.
package scene

import (
	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/engine"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/results"
	"github.com/san-kum/yarnsim/internal/yarn"
)

// Handles references the objects of a built scene. Guide and Puller are nil
// for scenes without them.
type Handles struct {
	Name   string
	System *engine.System
	Floor  *engine.Body
	Guide  *engine.Body
	Puller *engine.Body
	Chain  *yarn.Chain

	pull config.PullConfig
}

// Step advances the scene by dt, driving the puller first.
func (h *Handles) Step(dt float64) error {
	if h.Puller != nil {
		v := geom.Zero
		if h.System.Time() >= h.pull.StartDelay && h.pull.Speed > 0 {
			v = h.pull.Direction.Normalize().Scale(h.pull.Speed)
		}
		h.Puller.SetLinVel(v)
	}
	return h.System.DoStepDynamics(dt)
}

// Sample records the yarn state and the guide load at time t.
func (h *Handles) Sample(t float64) results.SimulationSample {
	s := results.SimulationSample{
		Time: t,
		Step: h.System.StepCount(),
		Yarn: results.SegmentKinematicsSample{
			SegmentPositions: yarn.ExtractSegmentPositions(h.Chain),
		},
		JointTensions: yarn.JointTensions(h.Chain),
		MaxJointGap:   yarn.MaxNeighborJointGap(h.Chain),
		Tip:           yarn.TipPosition(h.Chain),
		CenterOfMass:  yarn.CenterOfMass(h.Chain),
	}
	if h.Guide != nil {
		s.GuideForce = h.System.ContactForceOn(h.Guide).Length()
	}
	return s
}

func newSystem(sim config.SimulationConfig) (*engine.System, error) {
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	sys, err := engine.NewSystem(sim.ContactModel, sim.Solver)
	if err != nil {
		return nil, err
	}
	sys.SetGravity(sim.Gravity)
	return sys, nil
}

func applyBending(sys *engine.System, ch *yarn.Chain, b config.BendingConfig) error {
	if b.HasRSDA() {
		yarn.AddBendingRSDAs(sys, ch, b.RSDAStiffness, b.RSDADamping, 0)
	}
	if b.HasTSDA() {
		if _, err := yarn.AddBendingProxyTSDAs(sys, ch, b.TSDASpan, b.TSDAStiffness, b.TSDADamping); err != nil {
			return err
		}
	}
	return nil
}

package scene

import (
	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/engine"
	"github.com/san-kum/yarnsim/internal/geometry"
	"github.com/san-kum/yarnsim/internal/material"
	"github.com/san-kum/yarnsim/internal/yarn"
)

// BuildGuidePull threads the yarn through the guide ring and drags its
// leading end with a kinematic puller. The guide is where the yarn load is
// measured.
func BuildGuidePull(sc *config.Scenario) (*Handles, error) {
	checked := sc.Clone()
	checked.Scene = config.SceneGuidePull
	if err := checked.Validate(); err != nil {
		return nil, err
	}

	sys, err := newSystem(sc.Simulation)
	if err != nil {
		return nil, err
	}
	model := sc.Simulation.ContactModel

	floorMat, err := material.MakeContactMaterial(model, sc.Floor.Friction, sc.Floor.Restitution)
	if err != nil {
		return nil, err
	}
	guideMat, err := material.MakeContactMaterial(model, sc.Guide.Friction, sc.Guide.Restitution)
	if err != nil {
		return nil, err
	}
	yarnMat, err := material.MakeContactMaterial(model, sc.Yarn.Friction, sc.Yarn.Restitution)
	if err != nil {
		return nil, err
	}

	floor := geometry.AddFloorBox(sys, sc.Floor.HalfSize, sc.Floor.Position, floorMat)
	guide := geometry.AddGuideRing(sys, sc.Guide, guideMat)

	yc := sc.Yarn
	dir := yc.StartDirection.Normalize()
	lead := yc.StartPosition.Add(dir.Scale(yc.Length))
	puller := geometry.AddPuller(sys, lead, sc.Pull.PullerRadius)

	var anchor *engine.Body
	if sc.Pull.AnchorTail {
		anchor = engine.NewBody()
		anchor.Name = "anchor"
		anchor.SetFixed(true)
		anchor.SetPos(yc.StartPosition)
		sys.Add(anchor)
	}

	ch, err := yarn.BuildChain(sys, yc, yarnMat, anchor, yarn.Options{Lead: puller})
	if err != nil {
		return nil, err
	}
	if err := applyBending(sys, ch, sc.Bending); err != nil {
		return nil, err
	}

	return &Handles{
		Name:   config.SceneGuidePull,
		System: sys,
		Floor:  floor,
		Guide:  guide,
		Puller: puller,
		Chain:  ch,
		pull:   sc.Pull,
	}, nil
}

package scene

import (
	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/geometry"
	"github.com/san-kum/yarnsim/internal/material"
	"github.com/san-kum/yarnsim/internal/yarn"
)

// BuildFallingYarn drops a free yarn chain onto a floor.
func BuildFallingYarn(sim config.SimulationConfig, yc config.YarnConfig, fc config.FloorConfig) (*Handles, error) {
	if err := yc.Validate(); err != nil {
		return nil, err
	}
	sys, err := newSystem(sim)
	if err != nil {
		return nil, err
	}

	floorMat, err := material.MakeContactMaterial(sim.ContactModel, fc.Friction, fc.Restitution)
	if err != nil {
		return nil, err
	}
	yarnMat, err := material.MakeContactMaterial(sim.ContactModel, yc.Friction, yc.Restitution)
	if err != nil {
		return nil, err
	}

	floor := geometry.AddFloorBox(sys, fc.HalfSize, fc.Position, floorMat)
	ch, err := yarn.BuildChain(sys, yc, yarnMat, nil, yarn.Options{})
	if err != nil {
		return nil, err
	}

	return &Handles{
		Name:   config.SceneFallingYarn,
		System: sys,
		Floor:  floor,
		Chain:  ch,
	}, nil
}

func buildFallingYarnScenario(sc *config.Scenario) (*Handles, error) {
	h, err := BuildFallingYarn(sc.Simulation, sc.Yarn, sc.Floor)
	if err != nil {
		return nil, err
	}
	if err := applyBending(h.System, h.Chain, sc.Bending); err != nil {
		return nil, err
	}
	return h, nil
}

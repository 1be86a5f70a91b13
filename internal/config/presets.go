package config

import (
	"sort"

	"github.com/san-kum/yarnsim/internal/geom"
)

// Presets holds named scenario constructors per scene. Each call returns
// a fresh scenario the caller may modify.
var Presets = map[string]map[string]func() *Scenario{
	SceneFallingYarn: {
		"default": fallingYarn,
		"long": func() *Scenario {
			sc := fallingYarn()
			sc.Name = "falling_yarn/long"
			sc.Yarn.Length = 1.5
			sc.Yarn.SegmentCount = 40
			sc.Yarn.StartPosition = geom.V(-0.75, 0.9, 0)
			sc.Simulation.TEnd = 2.0
			return sc
		},
		"smc": func() *Scenario {
			sc := fallingYarn()
			sc.Name = "falling_yarn/smc"
			sc.Simulation.ContactModel = SMC
			sc.Simulation.Dt = 2e-4
			sc.Simulation.SampleEveryNSteps = 50
			return sc
		},
		"stiff": func() *Scenario {
			sc := fallingYarn()
			sc.Name = "falling_yarn/stiff"
			sc.Bending.RSDAStiffness = 0.002
			sc.Bending.RSDADamping = 1e-4
			return sc
		},
	},
	SceneGuidePull: {
		"default": guidePull,
		"slow": func() *Scenario {
			sc := guidePull()
			sc.Name = "guide_pull/slow"
			sc.Pull.Speed = 0.05
			sc.Simulation.TEnd = 3.0
			return sc
		},
		"stiff": func() *Scenario {
			sc := guidePull()
			sc.Name = "guide_pull/stiff"
			sc.Bending.RSDAStiffness = 0.001
			sc.Bending.RSDADamping = 5e-5
			return sc
		},
		"smc": func() *Scenario {
			sc := guidePull()
			sc.Name = "guide_pull/smc"
			sc.Simulation.ContactModel = SMC
			sc.Simulation.Dt = 2e-4
			sc.Simulation.SampleEveryNSteps = 50
			return sc
		},
	},
}

func fallingYarn() *Scenario {
	sc := DefaultScenario()
	sc.Name = "falling_yarn/default"
	return sc
}

// guidePull threads a thin yarn straight through the default guide.
func guidePull() *Scenario {
	sc := DefaultScenario()
	sc.Name = "guide_pull/default"
	sc.Scene = SceneGuidePull
	sc.Yarn.Radius = 0.005
	sc.Yarn.Length = 0.6
	sc.Yarn.StartPosition = geom.V(-0.4, 0.5, 0)
	sc.Yarn.StartDirection = geom.UnitX
	return sc
}

// GetPreset returns nil when either the scene or the preset is unknown.
func GetPreset(scene, preset string) *Scenario {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	fn, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scenes lists the scenes that have presets.
func Scenes() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package fea

import (
	"fmt"
	"sort"

	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/geom"
)

const (
	PresetHangingKnittingCotton  = "hanging_knitting_cotton"
	PresetFreeFallKnittingCotton = "free_fall_knitting_cotton"
)

// knittingCotton is a 2.2 mm knitting cotton yarn.
func knittingCotton() HangingYarnConfig {
	c := DefaultHangingYarnConfig()
	c.Radius = 0.0011
	c.Density = 750
	c.YoungModulus = 8e7
	return c
}

var presets = map[string]func() HangingYarnConfig{
	PresetHangingKnittingCotton: knittingCotton,
	PresetFreeFallKnittingCotton: func() HangingYarnConfig {
		c := knittingCotton()
		c.RayleighDamping = 5e-5
		c.Start = geom.V(-0.15, 0.95, 0)
		c.End = geom.V(0.15, 0.95, 0)
		c.FixStartNode = false
		c.FixEndNode = false
		return c
	},
}

// Preset returns a named strand configuration.
func Preset(name string) (HangingYarnConfig, error) {
	fn, ok := presets[name]
	if !ok {
		return HangingYarnConfig{}, fmt.Errorf("%w: unknown cable preset %q", dynamo.ErrInvalidConfig, name)
	}
	return fn(), nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Package material centralizes NSC/SMC surface material creation so scene
// builders can stay focused on geometry and composition.
package material

import (
	"fmt"
	"math"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/dynamo"
)

const (
	DefaultFriction     = 0.3
	DefaultRestitution  = 0.05
	DefaultYoungModulus = 5e6
	DefaultPoissonRatio = 0.3
)

// Surface is a contact material. NSC materials only use friction and
// restitution; SMC materials also carry elastic properties.
type Surface struct {
	Model        config.ContactModel
	Friction     float64
	Restitution  float64
	YoungModulus float64
	PoissonRatio float64
}

// MakeNSC creates a non-smooth contact material.
func MakeNSC(mu, e float64) *Surface {
	return &Surface{Model: config.NSC, Friction: mu, Restitution: e}
}

// MakeSMC creates a smooth contact material with elastic properties.
func MakeSMC(mu, e, young, nu float64) *Surface {
	return &Surface{
		Model:        config.SMC,
		Friction:     mu,
		Restitution:  e,
		YoungModulus: young,
		PoissonRatio: nu,
	}
}

// MakeContactMaterial creates the material matching model.
func MakeContactMaterial(model config.ContactModel, friction, restitution float64) (*Surface, error) {
	switch model {
	case config.NSC:
		return MakeNSC(friction, restitution), nil
	case config.SMC:
		return MakeSMC(friction, restitution, DefaultYoungModulus, DefaultPoissonRatio), nil
	default:
		return nil, fmt.Errorf("%w: %q", dynamo.ErrUnsupportedContactModel, model)
	}
}

// Pair is the composite material of two touching surfaces.
type Pair struct {
	Friction    float64
	Restitution float64
	EffectiveE  float64 // E* = 1 / ((1-nu1^2)/E1 + (1-nu2^2)/E2)
}

// Combine composes two surfaces. Friction and restitution take the smaller
// value; a nil surface behaves as frictionless and perfectly inelastic.
func Combine(a, b *Surface) Pair {
	if a == nil || b == nil {
		return Pair{}
	}
	p := Pair{
		Friction:    math.Min(a.Friction, b.Friction),
		Restitution: math.Min(a.Restitution, b.Restitution),
	}
	ca := compliance(a)
	cb := compliance(b)
	if ca+cb > 0 {
		p.EffectiveE = 1 / (ca + cb)
	}
	return p
}

func compliance(s *Surface) float64 {
	if s.YoungModulus <= 0 {
		return 0
	}
	return (1 - s.PoissonRatio*s.PoissonRatio) / s.YoungModulus
}

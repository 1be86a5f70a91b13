package geometry

import (
	"math"
	"testing"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/engine"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/material"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystem(t *testing.T) *engine.System {
	t.Helper()
	sys, err := engine.NewSystem(config.NSC, config.DefaultSolverTuning())
	require.NoError(t, err)
	return sys
}

func TestCapsuleMass(t *testing.T) {
	tests := []struct {
		name    string
		halfLen float64
		radius  float64
		density float64
		want    float64
	}{
		{"sphere", 0, 1, 3 / (4 * math.Pi), 1},
		{"cylinder plus caps", 0.5, 1, 1, math.Pi + 4.0/3.0*math.Pi},
		{"zero density clamps", 0.1, 0.01, 0, minSegmentMass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CapsuleMass(tt.halfLen, tt.radius, tt.density), 1e-9)
		})
	}
}

func TestCapsuleInertia(t *testing.T) {
	in := CapsuleInertia(2, 0.5, 0.1)
	total := 1.2
	assert.InDelta(t, 2*total*total/12+0.25*2*0.01, in.X, 1e-12)
	assert.Equal(t, in.X, in.Z)
	assert.InDelta(t, 0.01, in.Y, 1e-12)
	assert.Less(t, in.Y, in.X)
}

func TestAddFloorBox(t *testing.T) {
	sys := newSystem(t)
	floor := AddFloorBox(sys, geom.V(1, 0.05, 1), geom.V(0, -0.05, 0), material.MakeNSC(0.3, 0))

	assert.True(t, floor.Fixed())
	assert.True(t, floor.Collide())
	assert.Equal(t, geom.V(0, -0.05, 0), floor.Pos())
	assert.Len(t, sys.Bodies(), 1)

	visual := AddFloorBox(sys, geom.V(1, 0.05, 1), geom.Zero, nil)
	assert.False(t, visual.Collide())
}

func TestAddYarnSegmentCapsule(t *testing.T) {
	sys := newSystem(t)
	seg := AddYarnSegmentCapsule(sys, 0.02, 0.005, 500, material.MakeNSC(0.3, 0))

	assert.InDelta(t, CapsuleMass(0.02, 0.005, 500), seg.Mass(), 1e-15)
	assert.True(t, seg.Collide())
	assert.True(t, seg.Dynamic())
	c, ok := seg.Shape().(engine.Capsule)
	require.True(t, ok)
	assert.Equal(t, 0.02, c.HalfLength)

	ghost := AddYarnSegmentCapsule(sys, 0.02, 0.005, 500, nil)
	assert.False(t, ghost.Collide())
}

func TestAddGuideRing(t *testing.T) {
	sys := newSystem(t)
	cfg := config.DefaultGuideConfig()
	ring := AddGuideRing(sys, cfg, material.MakeNSC(cfg.Friction, cfg.Restitution))

	assert.True(t, ring.Fixed())
	tor, ok := ring.Shape().(engine.Torus)
	require.True(t, ok)
	assert.InDelta(t, cfg.InnerRadius+cfg.WireRadius, tor.Radius, 1e-12)

	axis := ring.Rot().Rotate(geom.UnitY)
	assert.InDelta(t, 1, axis.Dot(cfg.Axis.Normalize()), 1e-9)
}

func TestAddPuller(t *testing.T) {
	sys := newSystem(t)
	p := AddPuller(sys, geom.V(1, 0, 0), 0.01)
	assert.True(t, p.Kinematic())
	assert.False(t, p.Collide())
	assert.False(t, p.Dynamic())
}

func TestAddBox(t *testing.T) {
	sys := newSystem(t)
	b := AddBox(sys, geom.V(0.05, 0.05, 0.05), 500, nil)

	assert.InDelta(t, 0.5, b.Mass(), 1e-12)
	assert.InDelta(t, 0.5*0.02/12, b.Inertia().X, 1e-12)
	assert.Equal(t, b.Inertia().X, b.Inertia().Y)
	assert.False(t, b.Collide())
}

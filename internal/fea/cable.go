// Package fea models a yarn strand as a continuous cable: a line of lumped
// nodes joined by axial spring-dampers and advanced with the explicit ODE
// integrators, without rigid segments or joints.
package fea

import (
	"math"

	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/geom"
)

// Cable is a lumped-mass strand. Its state is laid out as
// [x0, y0, z0, x1, ..., vx0, vy0, vz0, vx1, ...].
type Cable struct {
	nodes     int
	restLen   float64
	stiffness float64 // EA / L0
	damping   float64 // Rayleigh beta * stiffness
	mass      []float64
	fixed     []bool
	gravity   geom.Vec3
}

// BuildCable lays the nodes out evenly from cfg.Start to cfg.End and
// returns the cable with its initial state at rest.
func BuildCable(cfg HangingYarnConfig, gravity geom.Vec3) (*Cable, dynamo.State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	n := cfg.ElementCount + 1
	span := cfg.End.Sub(cfg.Start)
	l0 := span.Length() / float64(cfg.ElementCount)
	area := cfg.Area()
	elemMass := cfg.Density * area * l0
	k := cfg.YoungModulus * area / l0

	c := &Cable{
		nodes:     n,
		restLen:   l0,
		stiffness: k,
		damping:   cfg.RayleighDamping * k,
		mass:      make([]float64, n),
		fixed:     make([]bool, n),
		gravity:   gravity,
	}
	for e := 0; e < cfg.ElementCount; e++ {
		c.mass[e] += elemMass / 2
		c.mass[e+1] += elemMass / 2
	}
	c.fixed[0] = cfg.FixStartNode
	c.fixed[n-1] = cfg.FixEndNode

	x := make(dynamo.State, 6*n)
	for i := 0; i < n; i++ {
		p := geom.Lerp(cfg.Start, cfg.End, float64(i)/float64(cfg.ElementCount))
		x[3*i], x[3*i+1], x[3*i+2] = p.X, p.Y, p.Z
	}
	return c, x, nil
}

func (c *Cable) StateDim() int       { return 6 * c.nodes }
func (c *Cable) NodeCount() int      { return c.nodes }
func (c *Cable) RestLength() float64 { return c.restLen }
func (c *Cable) Fixed(i int) bool    { return c.fixed[i] }

func (c *Cable) TotalMass() float64 {
	m := 0.0
	for _, v := range c.mass {
		m += v
	}
	return m
}

func (c *Cable) pos(x dynamo.State, i int) geom.Vec3 {
	return geom.V(x[3*i], x[3*i+1], x[3*i+2])
}

func (c *Cable) vel(x dynamo.State, i int) geom.Vec3 {
	o := 3 * c.nodes
	return geom.V(x[o+3*i], x[o+3*i+1], x[o+3*i+2])
}

// elementForce is the axial force of element e, positive in tension, and
// the unit vector from node e to node e+1.
func (c *Cable) elementForce(x dynamo.State, e int) (float64, geom.Vec3) {
	d := c.pos(x, e+1).Sub(c.pos(x, e))
	l := d.Length()
	if l < 1e-12 {
		return 0, geom.Zero
	}
	u := d.Scale(1 / l)
	ldot := c.vel(x, e+1).Sub(c.vel(x, e)).Dot(u)
	return c.stiffness*(l-c.restLen) + c.damping*ldot, u
}

func (c *Cable) Derive(x dynamo.State, _ float64) dynamo.State {
	o := 3 * c.nodes
	dx := make(dynamo.State, len(x))
	forces := make([]geom.Vec3, c.nodes)
	for i := range forces {
		forces[i] = c.gravity.Scale(c.mass[i])
	}
	for e := 0; e < c.nodes-1; e++ {
		f, u := c.elementForce(x, e)
		forces[e] = forces[e].Add(u.Scale(f))
		forces[e+1] = forces[e+1].Sub(u.Scale(f))
	}
	for i := 0; i < c.nodes; i++ {
		if c.fixed[i] {
			continue
		}
		v := c.vel(x, i)
		a := forces[i].Scale(1 / c.mass[i])
		dx[3*i], dx[3*i+1], dx[3*i+2] = v.X, v.Y, v.Z
		dx[o+3*i], dx[o+3*i+1], dx[o+3*i+2] = a.X, a.Y, a.Z
	}
	return dx
}

// Energy is kinetic plus gravitational plus elastic energy.
func (c *Cable) Energy(x dynamo.State) float64 {
	e := 0.0
	for i := 0; i < c.nodes; i++ {
		e += 0.5*c.mass[i]*c.vel(x, i).LengthSq() - c.mass[i]*c.gravity.Dot(c.pos(x, i))
	}
	for j := 0; j < c.nodes-1; j++ {
		stretch := c.pos(x, j+1).Dist(c.pos(x, j)) - c.restLen
		e += 0.5 * c.stiffness * stretch * stretch
	}
	return e
}

// ElementTensions returns the axial force of every element.
func (c *Cable) ElementTensions(x dynamo.State) []float64 {
	out := make([]float64, c.nodes-1)
	for e := range out {
		out[e], _ = c.elementForce(x, e)
	}
	return out
}

// NodePositions extracts the node positions from x.
func (c *Cable) NodePositions(x dynamo.State) []geom.Vec3 {
	out := make([]geom.Vec3, c.nodes)
	for i := range out {
		out[i] = c.pos(x, i)
	}
	return out
}

// StableStep estimates the largest explicit step that stays stable, from
// the highest axial mode and its stiffness-proportional damping ratio.
func (c *Cable) StableStep() float64 {
	if c.nodes < 2 {
		return math.Inf(1)
	}
	elemMass := math.Inf(1)
	for i := 1; i < c.nodes-1; i++ {
		elemMass = math.Min(elemMass, c.mass[i])
	}
	if math.IsInf(elemMass, 1) {
		elemMass = 2 * c.mass[0]
	}
	omega := 2 * math.Sqrt(c.stiffness/elemMass)
	zeta := 0.5 * omega * c.damping / c.stiffness
	return 2 / omega * (math.Sqrt(1+zeta*zeta) - zeta)
}

package engine

import (
	"fmt"
	"math"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/geom"
)

const parallelMinChunk = 16

// System owns bodies and links and advances them in fixed steps.
// A System is not safe for concurrent use.
type System struct {
	model    config.ContactModel
	tuning   config.SolverTuning
	gravity  geom.Vec3
	bodies   []*Body
	links    []Link
	contacts []*Contact
	time     float64
	steps    int
	iters    int
}

// NewSystem creates an empty system for the given contact model.
func NewSystem(model config.ContactModel, tuning config.SolverTuning) (*System, error) {
	if !model.Valid() {
		return nil, fmt.Errorf("%w: %q", dynamo.ErrUnsupportedContactModel, model)
	}
	if tuning.MaxIterations <= 0 {
		tuning.MaxIterations = config.DefaultMaxIterations
	}
	return &System{
		model:   model,
		tuning:  tuning,
		gravity: geom.V(0, config.DefaultGravityY, 0),
	}, nil
}

func (s *System) ContactModel() config.ContactModel { return s.model }
func (s *System) Tuning() config.SolverTuning       { return s.tuning }
func (s *System) SetGravity(g geom.Vec3)            { s.gravity = g }
func (s *System) Gravity() geom.Vec3                { return s.gravity }
func (s *System) Bodies() []*Body                   { return s.bodies }
func (s *System) Links() []Link                     { return s.links }
func (s *System) Contacts() []*Contact              { return s.contacts }
func (s *System) Time() float64                     { return s.time }
func (s *System) StepCount() int                    { return s.steps }

// Iterations is the number of PGS sweeps used by the last step.
func (s *System) Iterations() int { return s.iters }

// SetSingleThread toggles intra-step fan-out across bodies and pairs.
func (s *System) SetSingleThread(v bool) { s.tuning.SingleThread = v }

func (s *System) Add(b *Body) {
	b.index = len(s.bodies)
	s.bodies = append(s.bodies, b)
}

func (s *System) AddLink(l Link) { s.links = append(s.links, l) }

// DoStepDynamics advances the system by dt.
func (s *System) DoStepDynamics(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) {
		return dynamo.Invalid("dt", "must be positive, got %g", dt)
	}

	s.forEachBody(func(b *Body) {
		b.refreshInertia()
		b.force = geom.Zero
		b.torque = geom.Zero
		b.contactF = geom.Zero
		if b.Dynamic() {
			b.force = s.gravity.Scale(b.mass)
		}
	})

	for _, l := range s.links {
		if fl, ok := l.(forceLink); ok {
			fl.applyForces()
		}
	}

	contacts, err := s.collide()
	if err != nil {
		return &dynamo.SimulationError{Step: s.steps, Time: s.time, Wrapped: err}
	}
	s.contacts = contacts

	if s.model == config.SMC {
		applySMC(contacts, dt)
	}

	s.forEachBody(func(b *Body) {
		if !b.Dynamic() {
			return
		}
		b.linVel = b.linVel.Add(b.force.Scale(dt / b.mass))
		b.angVel = b.angVel.Add(b.invInertia.MulVec(b.torque).Scale(dt))
	})

	s.solveConstraints(dt)

	s.forEachBody(func(b *Body) {
		if b.fixed {
			return
		}
		b.pos = b.pos.Add(b.linVel.Scale(dt))
		b.rot = b.rot.Integrate(b.angVel, dt)
	})

	s.time += dt
	s.steps++

	for _, b := range s.bodies {
		if !b.pos.IsFinite() || !b.linVel.IsFinite() || !b.angVel.IsFinite() {
			return &dynamo.SimulationError{
				Step:    s.steps,
				Time:    s.time,
				Wrapped: fmt.Errorf("%w: body %q", dynamo.ErrUnstable, b.Name),
			}
		}
	}
	return nil
}

func (s *System) solveConstraints(dt float64) {
	var cs []constraint
	for _, l := range s.links {
		if c, ok := l.(constraint); ok {
			cs = append(cs, c)
		}
	}
	if s.model == config.NSC {
		for _, c := range s.contacts {
			cs = append(cs, &contactConstraint{Contact: c, tuning: s.tuning})
		}
	}

	for _, c := range cs {
		c.prepare(dt)
	}
	for _, c := range cs {
		c.warmStart()
	}

	s.iters = 0
	for s.iters < s.tuning.MaxIterations {
		s.iters++
		maxDelta := 0.0
		for _, c := range cs {
			if d := c.solve(); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < s.tuning.Tolerance {
			break
		}
	}

	for _, c := range cs {
		c.finish(dt)
	}
}

func (s *System) collide() ([]*Contact, error) {
	pairs := broadPhase(s.bodies, s.tuning.CollisionEnvelope)
	if len(pairs) == 0 {
		return nil, nil
	}

	found := make([][]*Contact, len(pairs))
	errs := make([]error, len(pairs))
	run := func(start, end int) {
		for i := start; i < end; i++ {
			found[i], errs[i] = narrowPhase(pairs[i], s.tuning.CollisionEnvelope)
		}
	}
	if s.tuning.SingleThread {
		run(0, len(pairs))
	} else {
		dynamo.ParallelFor(len(pairs), parallelMinChunk, run)
	}

	var out []*Contact
	for i := range pairs {
		if errs[i] != nil {
			return nil, errs[i]
		}
		out = append(out, found[i]...)
	}
	return out, nil
}

func (s *System) forEachBody(fn func(b *Body)) {
	if s.tuning.SingleThread {
		for _, b := range s.bodies {
			fn(b)
		}
		return
	}
	dynamo.ParallelFor(len(s.bodies), parallelMinChunk, func(start, end int) {
		for _, b := range s.bodies[start:end] {
			fn(b)
		}
	})
}

// KineticEnergy sums the kinetic energy of all dynamic bodies.
func (s *System) KineticEnergy() float64 {
	e := 0.0
	for _, b := range s.bodies {
		e += b.KineticEnergy()
	}
	return e
}

// PotentialEnergy is the gravitational potential relative to the origin.
func (s *System) PotentialEnergy() float64 {
	e := 0.0
	for _, b := range s.bodies {
		if b.Dynamic() {
			e -= b.mass * s.gravity.Dot(b.pos)
		}
	}
	return e
}

// ContactForceOn is the total contact force b received during the last step.
func (s *System) ContactForceOn(b *Body) geom.Vec3 { return b.ContactForce() }

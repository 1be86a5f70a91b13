package engine_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/dynamo"
	"github.com/san-kum/yarnsim/internal/engine"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/material"
)

func newSystem(model config.ContactModel) *engine.System {
	sys, err := engine.NewSystem(model, config.DefaultSolverTuning())
	Expect(err).NotTo(HaveOccurred())
	return sys
}

func addFloor(sys *engine.System, mat *material.Surface) *engine.Body {
	floor := engine.NewBody()
	floor.Name = "floor"
	floor.SetFixed(true)
	floor.SetPos(geom.V(0, -0.05, 0))
	floor.SetShape(engine.Box{HalfSize: geom.V(1, 0.05, 1)}, mat)
	sys.Add(floor)
	return floor
}

func addBox(sys *engine.System, y float64, mat *material.Surface) *engine.Body {
	box := engine.NewBody()
	box.Name = "box"
	box.SetMass(0.5)
	box.SetInertiaXX(geom.V(1, 1, 1).Scale(0.5 * 0.02 / 12))
	box.SetPos(geom.V(0, y, 0))
	box.SetShape(engine.Box{HalfSize: geom.V(0.05, 0.05, 0.05)}, mat)
	sys.Add(box)
	return box
}

func stepFor(sys *engine.System, dt, seconds float64) {
	n := int(seconds/dt + 0.5)
	for i := 0; i < n; i++ {
		Expect(sys.DoStepDynamics(dt)).To(Succeed())
	}
}

var _ = Describe("System", func() {
	Describe("construction", func() {
		It("rejects unknown contact models", func() {
			_, err := engine.NewSystem("DEM", config.DefaultSolverTuning())
			Expect(err).To(MatchError(dynamo.ErrUnsupportedContactModel))
		})

		It("rejects non-positive steps", func() {
			sys := newSystem(config.NSC)
			Expect(sys.DoStepDynamics(0)).To(MatchError(dynamo.ErrInvalidConfig))
			Expect(sys.DoStepDynamics(-1e-3)).To(MatchError(dynamo.ErrInvalidConfig))
		})
	})

	Describe("free fall", func() {
		It("follows the ballistic trajectory", func() {
			sys := newSystem(config.NSC)
			b := engine.NewBody()
			b.SetPos(geom.V(0, 10, 0))
			sys.Add(b)

			stepFor(sys, 1e-3, 1.0)

			Expect(sys.Time()).To(BeNumerically("~", 1.0, 1e-9))
			Expect(sys.StepCount()).To(Equal(1000))
			Expect(b.Pos().Y).To(BeNumerically("~", 10-0.5*9.81, 0.02))
			Expect(b.LinVel().Y).To(BeNumerically("~", -9.81, 1e-6))
		})

		It("leaves fixed bodies in place", func() {
			sys := newSystem(config.NSC)
			b := engine.NewBody()
			b.SetFixed(true)
			b.SetPos(geom.V(1, 2, 3))
			sys.Add(b)

			stepFor(sys, 1e-3, 0.1)
			Expect(b.Pos()).To(Equal(geom.V(1, 2, 3)))
		})

		It("moves kinematic bodies with their velocity only", func() {
			sys := newSystem(config.NSC)
			b := engine.NewBody()
			b.SetKinematic(true)
			b.SetLinVel(geom.V(0.5, 0, 0))
			sys.Add(b)

			stepFor(sys, 1e-3, 1.0)
			Expect(b.Pos().X).To(BeNumerically("~", 0.5, 1e-9))
			Expect(b.Pos().Y).To(BeNumerically("~", 0, 1e-12))
		})
	})

	DescribeTable("box dropped on a floor comes to rest on top",
		func(model config.ContactModel, dt float64) {
			sys := newSystem(model)
			mat, err := material.MakeContactMaterial(model, 0.3, 0.05)
			Expect(err).NotTo(HaveOccurred())
			addFloor(sys, mat)
			box := addBox(sys, 0.5, mat)

			stepFor(sys, dt, 1.0)

			Expect(box.Pos().Y).To(BeNumerically("~", 0.05, 0.01))
			Expect(box.LinVel().Length()).To(BeNumerically("<", 0.05))
			Expect(box.ContactForce().Y).To(BeNumerically("~", 0.5*9.81, 0.5))
		},
		Entry("NSC", config.NSC, 1e-3),
		Entry("SMC", config.SMC, 2e-4),
	)

	It("gives identical results with intra-step fan-out", func() {
		run := func(single bool) geom.Vec3 {
			sys := newSystem(config.NSC)
			sys.SetSingleThread(single)
			mat := material.MakeNSC(0.3, 0.05)
			addFloor(sys, mat)
			box := addBox(sys, 0.3, mat)
			stepFor(sys, 1e-3, 0.5)
			return box.Pos()
		}
		Expect(run(false)).To(Equal(run(true)))
	})

	Describe("spherical joint", func() {
		It("carries the weight of a hanging body", func() {
			sys := newSystem(config.NSC)
			anchor := engine.NewBody()
			anchor.SetFixed(true)
			anchor.SetPos(geom.V(0, 1, 0))
			sys.Add(anchor)

			bob := engine.NewBody()
			bob.SetMass(2)
			bob.SetInertiaXX(geom.V(0.01, 0.01, 0.01))
			bob.SetPos(geom.V(0, 0.5, 0))
			sys.Add(bob)

			joint := engine.NewSphericalJoint(bob, anchor, geom.V(0, 1, 0))
			sys.AddLink(joint)

			stepFor(sys, 1e-3, 0.5)

			Expect(joint.Tension()).To(BeNumerically("~", 2*9.81, 0.2))
			Expect(joint.ReactionForce().Y).To(BeNumerically(">", 0))
			Expect(joint.Violation()).To(BeNumerically("<", 1e-3))
		})

		It("keeps a swinging pendulum at its length", func() {
			sys := newSystem(config.NSC)
			anchor := engine.NewBody()
			anchor.SetFixed(true)
			sys.Add(anchor)

			bob := engine.NewBody()
			bob.SetInertiaXX(geom.V(1e-3, 1e-3, 1e-3))
			bob.SetPos(geom.V(0.5, 0, 0))
			sys.Add(bob)
			joint := engine.NewSphericalJoint(bob, anchor, geom.Zero)
			sys.AddLink(joint)

			stepFor(sys, 1e-3, 0.4)

			Expect(bob.Pos().Length()).To(BeNumerically("~", 0.5, 0.01))
			Expect(bob.Pos().Y).To(BeNumerically("<", -0.3))
		})
	})

	It("settles a spring-damper at its static extension", func() {
		sys := newSystem(config.NSC)
		top := engine.NewBody()
		top.SetFixed(true)
		top.SetPos(geom.V(0, 1, 0))
		sys.Add(top)

		weight := engine.NewBody()
		weight.SetPos(geom.V(0, 0.5, 0))
		sys.Add(weight)

		spring := engine.NewTSDA(weight, top, geom.Zero, geom.Zero, 0.5, 100, 5)
		sys.AddLink(spring)

		stepFor(sys, 1e-3, 6.0)

		Expect(spring.Length()).To(BeNumerically("~", 0.5+9.81/100, 0.005))
		Expect(spring.Force()).To(BeNumerically("~", 9.81, 0.1))
	})

	It("rests a sphere on the wire of a guide ring", func() {
		sys := newSystem(config.NSC)
		ring := engine.NewBody()
		ring.SetFixed(true)
		ring.SetShape(engine.Torus{Radius: 0.05, Tube: 0.005}, material.MakeNSC(0.5, 0))
		sys.Add(ring)

		ball := engine.NewBody()
		ball.SetMass(0.01)
		ball.SetInertiaXX(geom.V(1e-6, 1e-6, 1e-6))
		ball.SetPos(geom.V(0.05, 0.1, 0))
		ball.SetShape(engine.Sphere{Radius: 0.01}, material.MakeNSC(0.5, 0))
		sys.Add(ball)

		stepFor(sys, 1e-3, 0.5)

		Expect(ball.Pos().Y).To(BeNumerically("~", 0.015, 0.003))
		Expect(math.Abs(ball.Pos().X - 0.05)).To(BeNumerically("<", 0.005))
	})

	Describe("collision dispatch", func() {
		It("skips pairs in the same collision family", func() {
			sys := newSystem(config.NSC)
			sys.SetGravity(geom.Zero)
			for i := 0; i < 2; i++ {
				c := engine.NewBody()
				c.SetFamily(1)
				c.SetPos(geom.V(float64(i)*0.01, 0, 0))
				c.SetShape(engine.Capsule{HalfLength: 0.02, Radius: 0.01}, material.MakeNSC(0.3, 0))
				sys.Add(c)
			}
			Expect(sys.DoStepDynamics(1e-3)).To(Succeed())
			Expect(sys.Contacts()).To(BeEmpty())
		})

		It("reports pairs without a narrow phase", func() {
			sys := newSystem(config.NSC)
			sys.SetGravity(geom.Zero)
			mat := material.MakeNSC(0.3, 0)
			addBox(sys, 0, mat)
			addBox(sys, 0.05, mat)

			err := sys.DoStepDynamics(1e-3)
			Expect(err).To(MatchError(dynamo.ErrNotImplemented))
			var simErr *dynamo.SimulationError
			Expect(err).To(BeAssignableToTypeOf(simErr))
		})
	})

	It("flags diverged state", func() {
		sys := newSystem(config.NSC)
		b := engine.NewBody()
		b.Name = "runaway"
		b.SetLinVel(geom.V(math.NaN(), 0, 0))
		sys.Add(b)

		err := sys.DoStepDynamics(1e-3)
		Expect(err).To(MatchError(dynamo.ErrUnstable))
		Expect(err.Error()).To(ContainSubstring("runaway"))
	})
})

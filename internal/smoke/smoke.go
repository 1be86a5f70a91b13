// Package smoke checks that the engine can build and step a contact scene
// to rest for each contact model.
package smoke

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/engine"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/geometry"
	"github.com/san-kum/yarnsim/internal/material"
)

const (
	dt        = 1e-3
	tEnd      = 0.5
	dropY     = 0.5
	boxHalf   = 0.05
	restY     = boxHalf
	tolerance = 0.02
)

type Result struct {
	Model  config.ContactModel
	Time   float64
	FinalY float64
	OK     bool
	Err    error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: FAIL (%v)", r.Model, r.Err)
	}
	status := "OK"
	if !r.OK {
		status = "FAIL"
	}
	return fmt.Sprintf("%s: %s t=%.3fs box y=%.3f m (want %.3f±%.3f)", r.Model, status, r.Time, r.FinalY, restY, tolerance)
}

// Check drops a 0.1 m box from 0.5 m onto a floor whose top is at y=0 and
// reports whether it came to rest on it.
func Check(ctx context.Context, model config.ContactModel) Result {
	res := Result{Model: model}

	tuning := config.DefaultSolverTuning()
	sys, err := engine.NewSystem(model, tuning)
	if err != nil {
		res.Err = err
		return res
	}
	mat, err := material.MakeContactMaterial(model, material.DefaultFriction, material.DefaultRestitution)
	if err != nil {
		res.Err = err
		return res
	}

	geometry.AddFloorBox(sys, geom.V(1, 0.05, 1), geom.V(0, -0.05, 0), mat)
	box := geometry.AddBox(sys, geom.V(boxHalf, boxHalf, boxHalf), 500, mat)
	box.Name = "box"
	box.SetPos(geom.V(0, dropY, 0))

	for sys.Time() < tEnd-dt/2 {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		if err := sys.DoStepDynamics(dt); err != nil {
			res.Err = err
			return res
		}
	}

	res.Time = sys.Time()
	res.FinalY = box.Pos().Y
	res.OK = math.Abs(res.FinalY-restY) <= tolerance
	return res
}

// RunAll checks both contact models and reports whether every check passed.
func RunAll(ctx context.Context) ([]Result, bool) {
	var out []Result
	ok := true
	for _, m := range []config.ContactModel{config.NSC, config.SMC} {
		r := Check(ctx, m)
		ok = ok && r.OK
		out = append(out, r)
	}
	return out, ok
}

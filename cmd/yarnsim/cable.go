package main

import (
	"fmt"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/fea"
	"github.com/san-kum/yarnsim/internal/metrics"
	"github.com/san-kum/yarnsim/internal/runner"
	"github.com/san-kum/yarnsim/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const cableScene = "fea_cable"

var (
	cablePreset      string
	cableTime        float64
	cableDt          float64
	cableSampleEvery int
	cableElements    int
	cableSubSteps    int
	cableIntegrator  string
	cableSave        bool
)

func runCable(cmd *cobra.Command, args []string) error {
	yarn := fea.DefaultHangingYarnConfig()
	name := "default"
	if cablePreset != "" {
		p, err := fea.Preset(cablePreset)
		if err != nil {
			return err
		}
		yarn, name = p, cablePreset
	}
	if cableElements > 0 {
		yarn.ElementCount = cableElements
	}

	solver := fea.DefaultSolverConfig()
	if cableDt > 0 {
		solver.Dt = cableDt
	}
	solver.SubSteps = cableSubSteps
	solver.Integrator = cableIntegrator

	s, err := fea.BuildHangingScene(solver, yarn)
	if err != nil {
		return err
	}
	logger.Info("cable built",
		zap.String("preset", name),
		zap.Int("elements", yarn.ElementCount),
		zap.Float64("element_length", yarn.ElementLength()),
		zap.Int("sub_steps", s.SubSteps()),
		zap.Float64("stable_step", s.Cable.StableStep()),
	)

	// the stepper ignores contact settings; the rest drives the runner
	sim := config.DefaultSimulationConfig()
	sim.Dt = solver.Dt
	sim.TEnd = cableTime
	sim.Gravity = solver.Gravity
	sim.SampleEveryNSteps = cableSampleEvery

	ctx, cancel := signalContext()
	defer cancel()

	r := runner.New(sim, logger.With(zap.String("scene", cableScene)))
	for _, m := range metrics.Defaults() {
		r.AddMetric(m)
	}
	res, runErr := r.Run(ctx, s)
	if res == nil {
		return runErr
	}

	tip := fea.TipPosition(s)
	fmt.Printf("cable: %s  elements: %d  sub-steps: %d  steps: %d\n",
		name, yarn.ElementCount, s.SubSteps(), res.StepsTaken)
	fmt.Printf("tip: (%.4f, %.4f, %.4f)  max sag below start: %.4f m\n\n",
		tip.X, tip.Y, tip.Z, fea.MaxSag(s, yarn.Start.Y))
	if err := printMetrics(res.Metrics); err != nil {
		return err
	}

	if cableSave {
		meta := storage.RunMetadata{
			Name:              name,
			Scene:             cableScene,
			ContactModel:      "none",
			Dt:                sim.Dt,
			TEnd:              sim.TEnd,
			SampleEveryNSteps: sim.SampleEveryNSteps,
			SegmentCount:      yarn.ElementCount,
		}
		id, err := storage.New(dataDir).Save(meta, res)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun: %s\n", id)
	}
	if runErr != nil {
		return fmt.Errorf("cable run stopped early: %w", runErr)
	}
	return nil
}

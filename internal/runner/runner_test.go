package runner

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/metrics"
	"github.com/san-kum/yarnsim/internal/results"
	"github.com/san-kum/yarnsim/internal/scene"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStepper counts steps and can fail or cancel on a chosen step.
type fakeStepper struct {
	steps    int
	failAt   int
	cancelAt int
	cancel   context.CancelFunc
}

var errBoom = errors.New("boom")

func (f *fakeStepper) Step(dt float64) error {
	f.steps++
	if f.steps == f.failAt {
		return errBoom
	}
	if f.steps == f.cancelAt && f.cancel != nil {
		f.cancel()
	}
	return nil
}

func (f *fakeStepper) Sample(t float64) results.SimulationSample {
	return results.SimulationSample{
		Time:          t,
		Step:          f.steps,
		JointTensions: []float64{float64(f.steps)},
		Tip:           geom.V(0, 1-t, 0),
	}
}

func simConfig(dt, tEnd float64, every int) config.SimulationConfig {
	c := config.DefaultSimulationConfig()
	c.Dt = dt
	c.TEnd = tEnd
	c.SampleEveryNSteps = every
	return c
}

func TestRun_SampleCount(t *testing.T) {
	tests := []struct {
		name        string
		tEnd        float64
		every       int
		wantSamples int
		wantSteps   int
	}{
		{"exact multiple", 0.1, 10, 11, 100},
		{"remainder", 0.105, 10, 12, 105},
		{"every step", 0.01, 1, 11, 10},
		{"stride beyond end", 0.005, 10, 2, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(simConfig(1e-3, tt.tEnd, tt.every), zap.NewNop())
			f := &fakeStepper{}
			res, err := r.Run(context.Background(), f)
			require.NoError(t, err)

			assert.Equal(t, tt.wantSteps, res.StepsTaken)
			assert.Equal(t, tt.wantSteps, f.steps)
			require.Len(t, res.Samples, tt.wantSamples)
			assert.Zero(t, res.Samples[0].Time)
			assert.Zero(t, res.Samples[0].Step)

			last, _ := res.Last()
			assert.Equal(t, tt.wantSteps, last.Step)
			assert.InDelta(t, float64(tt.wantSteps)*1e-3, last.Time, 1e-12)
		})
	}
}

func TestRun_SampleTimesAreStrided(t *testing.T) {
	r := New(simConfig(1e-3, 0.05, 10), nil)
	res, err := r.Run(context.Background(), &fakeStepper{})
	require.NoError(t, err)

	for i, s := range res.Samples {
		assert.Equal(t, i*10, s.Step)
		assert.InDelta(t, float64(i)*0.01, s.Time, 1e-12)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SimulationConfig
	}{
		{"zero dt", simConfig(0, 1, 10)},
		{"negative end", simConfig(1e-3, -1, 10)},
		{"zero stride", simConfig(1e-3, 1, 0)},
		{"NaN dt", simConfig(math.NaN(), 1, 10)},
		{"NaN end", simConfig(1e-3, math.NaN(), 10)},
		{"infinite end", simConfig(1e-3, math.Inf(1), 10)},
		{"step count overflow", simConfig(1e-3, 1e20, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeStepper{}
			var err error
			require.NotPanics(t, func() {
				_, err = New(tt.cfg, nil).Run(context.Background(), f)
			})
			assert.Error(t, err)
			assert.Zero(t, f.steps)
		})
	}
}

func TestRun_StepFailureKeepsPartialResult(t *testing.T) {
	r := New(simConfig(1e-3, 0.1, 10), zap.NewNop())
	res, err := r.Run(context.Background(), &fakeStepper{failAt: 35})

	assert.ErrorIs(t, err, errBoom)
	require.NotNil(t, res)
	assert.Equal(t, 34, res.StepsTaken)
	assert.Len(t, res.Samples, 4)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := New(simConfig(1e-3, 1, 10), zap.NewNop())
	res, err := r.Run(ctx, &fakeStepper{cancelAt: 20, cancel: cancel})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 20, res.StepsTaken)
	assert.Len(t, res.Samples, 3)
}

func TestRun_MetricsAndObservers(t *testing.T) {
	r := New(simConfig(1e-3, 0.1, 10), zap.NewNop())
	r.AddMetric(metrics.NewMaxTension())
	r.AddMetric(metrics.NewFinalTipHeight())

	seen := 0
	r.AddObserver(ObserverFunc(func(results.SimulationSample) { seen++ }))

	res, err := r.Run(context.Background(), &fakeStepper{})
	require.NoError(t, err)

	assert.Equal(t, res.Len(), seen)
	assert.Equal(t, 100.0, res.Metrics["max_tension"])
	assert.InDelta(t, 0.9, res.Metrics["final_tip_height"], 1e-12)
}

func buildFake(*config.Scenario) (Stepper, error) { return &fakeStepper{}, nil }

func TestSweep_Order(t *testing.T) {
	var jobs []Job
	for i, end := range []float64{0.01, 0.02, 0.03, 0.04} {
		sc := config.DefaultScenario()
		sc.Simulation.TEnd = end
		sc.Simulation.SampleEveryNSteps = 1
		jobs = append(jobs, Job{Name: string(rune('a' + i)), Scenario: sc})
	}

	out, err := Sweep(context.Background(), jobs, buildFake, 2, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, out, 4)
	for i, res := range out {
		assert.Equal(t, (i+1)*10, res.StepsTaken)
		assert.Contains(t, res.Metrics, "max_tension")
	}
}

func TestSweep_FirstErrorWins(t *testing.T) {
	bad := config.DefaultScenario()
	bad.Simulation.Dt = -1

	jobs := []Job{
		{Name: "good", Scenario: config.DefaultScenario()},
		{Name: "bad", Scenario: bad},
	}
	_, err := Sweep(context.Background(), jobs, buildFake, 0, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestSweep_BuildError(t *testing.T) {
	build := func(*config.Scenario) (Stepper, error) { return nil, errBoom }
	_, err := Sweep(context.Background(), []Job{{Name: "x", Scenario: config.DefaultScenario()}}, build, 1, nil)
	assert.ErrorIs(t, err, errBoom)
}

func TestSweep_Scenes(t *testing.T) {
	reg := scene.NewRegistry()
	build := func(sc *config.Scenario) (Stepper, error) {
		return reg.Build(sc.Scene, sc)
	}

	var jobs []Job
	for _, model := range []config.ContactModel{config.NSC, config.SMC} {
		sc := config.DefaultScenario()
		sc.Simulation.ContactModel = model
		sc.Simulation.TEnd = 0.05
		sc.Yarn.SegmentCount = 5
		jobs = append(jobs, Job{Name: string(model), Scenario: sc})
	}

	out, err := Sweep(context.Background(), jobs, build, 2, zap.NewNop())
	require.NoError(t, err)
	for _, res := range out {
		assert.Equal(t, 50, res.StepsTaken)
		assert.Len(t, res.Samples, 6)
		first, last := res.Samples[0], res.Samples[len(res.Samples)-1]
		assert.Less(t, last.CenterOfMass.Y, first.CenterOfMass.Y)
	}
}

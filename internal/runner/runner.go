// Package runner advances a built scene with a fixed step and records
// samples at a fixed stride.
package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/metrics"
	"github.com/san-kum/yarnsim/internal/results"
)

// Stepper is anything the runner can advance and sample.
type Stepper interface {
	Step(dt float64) error
	Sample(t float64) results.SimulationSample
}

// Observer is notified of every recorded sample.
type Observer interface {
	OnSample(s results.SimulationSample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(results.SimulationSample)

func (f ObserverFunc) OnSample(s results.SimulationSample) { f(s) }

type SimulationRunner struct {
	Config    config.SimulationConfig
	Logger    *zap.Logger
	Metrics   []metrics.Metric
	Observers []Observer
}

func New(cfg config.SimulationConfig, logger *zap.Logger) *SimulationRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulationRunner{Config: cfg, Logger: logger}
}

func (r *SimulationRunner) AddMetric(m metrics.Metric) { r.Metrics = append(r.Metrics, m) }
func (r *SimulationRunner) AddObserver(o Observer)     { r.Observers = append(r.Observers, o) }

// Run steps s round(TEnd/Dt) times. Samples are taken at t=0, after every
// SampleEveryNSteps-th step and after the final step. On cancellation or a
// stepping failure the samples recorded so far are returned with the error.
func (r *SimulationRunner) Run(ctx context.Context, s Stepper) (*results.SimulationResult, error) {
	if err := r.Config.Validate(); err != nil {
		return nil, err
	}
	log := r.logger()

	steps := r.Config.Steps()
	every := r.Config.SampleEveryNSteps
	dt := r.Config.Dt
	res := &results.SimulationResult{
		Samples: make([]results.SimulationSample, 0, steps/every+2),
		Metrics: make(map[string]float64),
	}
	for _, m := range r.Metrics {
		m.Reset()
	}

	log.Debug("run started",
		zap.String("contact_model", string(r.Config.ContactModel)),
		zap.Float64("dt", dt),
		zap.Int("steps", steps),
		zap.Int("sample_every", every),
	)

	r.record(res, s.Sample(0))

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			r.finish(res)
			log.Warn("run cancelled", zap.Int("step", res.StepsTaken))
			return res, ctx.Err()
		default:
		}

		if err := s.Step(dt); err != nil {
			r.finish(res)
			log.Error("step failed", zap.Int("step", i), zap.Error(err))
			return res, err
		}
		res.StepsTaken = i

		if i%every == 0 || i == steps {
			r.record(res, s.Sample(float64(i)*dt))
		}
	}

	r.finish(res)
	log.Info("run finished",
		zap.Int("steps", res.StepsTaken),
		zap.Int("samples", res.Len()),
		zap.Any("metrics", res.Metrics),
	)
	return res, nil
}

func (r *SimulationRunner) record(res *results.SimulationResult, s results.SimulationSample) {
	res.AddSample(s)
	for _, m := range r.Metrics {
		m.Observe(s)
	}
	for _, o := range r.Observers {
		o.OnSample(s)
	}
}

func (r *SimulationRunner) finish(res *results.SimulationResult) {
	for k, v := range metrics.Collect(r.Metrics) {
		res.Metrics[k] = v
	}
}

func (r *SimulationRunner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

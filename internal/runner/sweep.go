package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/metrics"
	"github.com/san-kum/yarnsim/internal/results"
)

// Job is one scenario of a sweep.
type Job struct {
	Name     string
	Scenario *config.Scenario
}

// BuildFunc turns a scenario into something the runner can step.
type BuildFunc func(*config.Scenario) (Stepper, error)

// Sweep runs jobs concurrently, at most limit at a time (no limit when
// limit <= 0). Results come back in job order. The first failure cancels
// the remaining runs.
func Sweep(ctx context.Context, jobs []Job, build BuildFunc, limit int, logger *zap.Logger) ([]*results.SimulationResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	out := make([]*results.SimulationResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, job := range jobs {
		g.Go(func() error {
			st, err := build(job.Scenario)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			r := New(job.Scenario.Simulation, logger.With(zap.String("job", job.Name)))
			for _, m := range metrics.Defaults() {
				r.AddMetric(m)
			}
			res, err := r.Run(gctx, st)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

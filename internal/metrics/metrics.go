// Package metrics reduces the samples of a run to scalar figures.
package metrics

import "github.com/san-kum/yarnsim/internal/results"

// Metric observes every recorded sample of a run.
type Metric interface {
	Name() string
	Observe(s results.SimulationSample)
	Value() float64
	Reset()
}

// Defaults is the metric set attached to every run.
func Defaults() []Metric {
	return []Metric{
		NewMaxTension(),
		NewMeanGuideForce(),
		NewMaxJointGap(),
		NewFinalTipHeight(),
		NewSettleTime(0.01),
	}
}

// Collect returns the current value of every metric keyed by name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

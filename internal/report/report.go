// Package report summarises a stored run as Markdown and renders it for
// the terminal with glamour.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/yarnsim/internal/analysis"
	"github.com/san-kum/yarnsim/internal/results"
	"github.com/san-kum/yarnsim/internal/storage"
)

// SeriesStats summarises one sampled series.
type SeriesStats struct {
	Name       string
	Min, Max   float64
	Final      float64
	DominantHz float64
}

// Summarize computes stats for every known series. sampleDt is the time
// between samples; the dominant frequency is zero when it is not positive.
func Summarize(samples []results.SimulationSample, sampleDt float64) []SeriesStats {
	if len(samples) == 0 {
		return nil
	}
	res := &results.SimulationResult{Samples: samples}
	out := make([]SeriesStats, 0, len(results.SeriesNames))
	for _, name := range results.SeriesNames {
		data := res.Series(name)
		st := SeriesStats{Name: name, Min: data[0], Max: data[0], Final: data[len(data)-1]}
		for _, v := range data {
			st.Min, st.Max = min(st.Min, v), max(st.Max, v)
		}
		if sampleDt > 0 {
			st.DominantHz = analysis.DominantFrequency(data, sampleDt)
		}
		out = append(out, st)
	}
	return out
}

// Markdown describes the run: its parameters, metrics, series and the
// scenario it was run with.
func Markdown(meta storage.RunMetadata, samples []results.SimulationSample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run `%s`\n\n", meta.ID)
	if meta.Name != "" {
		fmt.Fprintf(&b, "%s\n\n", meta.Name)
	}

	b.WriteString("| Parameter | Value |\n|---|---|\n")
	row := func(k, v string) { fmt.Fprintf(&b, "| %s | %s |\n", k, v) }
	row("Scene", meta.Scene)
	row("Contact model", meta.ContactModel)
	row("Created", meta.Timestamp.Format("2006-01-02 15:04:05"))
	row("Time step", fmt.Sprintf("%g s", meta.Dt))
	row("End time", fmt.Sprintf("%g s", meta.TEnd))
	row("Segments", fmt.Sprint(meta.SegmentCount))
	row("Steps taken", fmt.Sprint(meta.StepsTaken))
	row("Samples", fmt.Sprint(meta.Samples))

	if len(meta.Metrics) > 0 {
		b.WriteString("\n## Metrics\n\n| Metric | Value |\n|---|---|\n")
		names := make([]string, 0, len(meta.Metrics))
		for k := range meta.Metrics {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			row(k, fmt.Sprintf("%.6g", meta.Metrics[k]))
		}
	}

	sampleDt := meta.Dt * float64(meta.SampleEveryNSteps)
	if stats := Summarize(samples, sampleDt); len(stats) > 0 {
		b.WriteString("\n## Series\n\n| Series | Min | Max | Final | Dominant Hz |\n|---|---|---|---|---|\n")
		for _, s := range stats {
			fmt.Fprintf(&b, "| %s | %.4g | %.4g | %.4g | %.3f |\n", s.Name, s.Min, s.Max, s.Final, s.DominantHz)
		}
	}

	if meta.Scenario != nil {
		if data, err := yaml.Marshal(meta.Scenario); err == nil {
			b.WriteString("\n## Scenario\n\n```yaml\n")
			b.Write(data)
			b.WriteString("```\n")
		}
	}
	return b.String()
}

// Render formats md for a terminal of the given width. style is a glamour
// standard style ("dark", "light", "notty", "ascii") or "auto" to follow
// the terminal background.
func Render(md string, width int, style string) (string, error) {
	opt := glamour.WithStandardStyle(style)
	if style == "" || style == "auto" {
		opt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

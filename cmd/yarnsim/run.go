package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/metrics"
	"github.com/san-kum/yarnsim/internal/results"
	"github.com/san-kum/yarnsim/internal/runner"
	"github.com/san-kum/yarnsim/internal/scene"
	"github.com/san-kum/yarnsim/internal/smoke"
	"github.com/san-kum/yarnsim/internal/storage"
	"github.com/san-kum/yarnsim/internal/stream"
	"github.com/san-kum/yarnsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	stepsPerFrame int
	watchConfig   bool

	publishURL       string
	publishNamespace string
	publishEvery     int

	sweepContacts []string
	sweepDts      []float64
	sweepSegments []int
	sweepParallel int
	sweepSave     bool
)

// loadScenario resolves the scenario from --config, --preset or the scene
// defaults, then applies the flags the user actually set.
func loadScenario(cmd *cobra.Command, args []string) (*config.Scenario, error) {
	sc, err := baseScenario(args)
	if err != nil {
		return nil, err
	}
	applyOverrides(cmd, sc)
	return sc, sc.Validate()
}

// applyOverrides copies the scenario flags the user set onto sc.
func applyOverrides(cmd *cobra.Command, sc *config.Scenario) {
	flags := cmd.Flags()
	if flags.Changed("dt") {
		sc.Simulation.Dt = dt
	}
	if flags.Changed("time") {
		sc.Simulation.TEnd = duration
	}
	if flags.Changed("contact") {
		sc.Simulation.ContactModel = config.ContactModel(strings.ToUpper(contactModel))
	}
	if flags.Changed("segments") {
		sc.Yarn.SegmentCount = segments
	}
	if flags.Changed("sample-every") {
		sc.Simulation.SampleEveryNSteps = sampleEvery
	}
	if flags.Changed("name") {
		sc.Name = runName
	}
}

func baseScenario(args []string) (*config.Scenario, error) {
	sceneName := ""
	if len(args) > 0 {
		sceneName = args[0]
	}

	var sc *config.Scenario
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		sc = loaded
	default:
		s := sceneName
		if s == "" {
			s = config.SceneFallingYarn
		}
		name := preset
		if name == "" {
			name = "default"
		}
		sc = config.GetPreset(s, name)
		if sc == nil {
			if preset != "" {
				return nil, fmt.Errorf("unknown preset %q for scene %q (see 'yarnsim presets')", preset, s)
			}
			sc = config.DefaultScenario()
		}
	}
	if sceneName != "" {
		sc.Scene = sceneName
	}
	return sc, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func buildStepper(reg *scene.Registry) runner.BuildFunc {
	return func(sc *config.Scenario) (runner.Stepper, error) {
		h, err := reg.Build(sc.Scene, sc)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	h, err := scene.NewRegistry().Build(sc.Scene, sc)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	r := runner.New(sc.Simulation, logger.With(zap.String("scene", sc.Scene)))
	for _, m := range metrics.Defaults() {
		r.AddMetric(m)
	}

	var pub *stream.Publisher
	if publishURL != "" {
		pub, err = stream.Dial(ctx, publishURL, publishNamespace, logger)
		if err != nil {
			return err
		}
		defer pub.Close()
		pub.Every = publishEvery
		pub.Start(sc)
		r.AddObserver(pub)
	}

	res, runErr := r.Run(ctx, h)
	if res == nil {
		return runErr
	}
	if pub != nil {
		pub.Finish(res)
	}

	st := storage.New(dataDir)
	runID, err := st.Save(storage.MetadataFor(sc), res)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("scene: %s  contact: %s  steps: %d  samples: %d\n\n",
		sc.Scene, sc.Simulation.ContactModel, res.StepsTaken, res.Len())
	if err := printMetrics(res.Metrics); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("run stopped early (partial results saved): %w", runErr)
	}
	return nil
}

func printMetrics(m map[string]float64) error {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, k := range names {
		fmt.Fprintf(w, "%s\t%.6g\n", k, m[k])
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	reg := scene.NewRegistry()
	opts := liveOptions(sc)

	if watchConfig {
		if configFile == "" {
			return fmt.Errorf("--watch needs --config")
		}
		ctx, cancel := signalContext()
		defer cancel()
		changes, err := config.Watch(ctx, configFile, logger)
		if err != nil {
			return err
		}
		opts.Reload = liveReloads(ctx, cmd, args, reg, changes)
	}
	return viz.RunLive(liveFactory(reg, sc), opts)
}

func liveFactory(reg *scene.Registry, sc *config.Scenario) viz.SceneFactory {
	return func() (viz.Scene, error) {
		h, err := reg.Build(sc.Scene, sc)
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

func liveOptions(sc *config.Scenario) viz.LiveOptions {
	spf := stepsPerFrame
	if spf <= 0 {
		spf = int(math.Max(1, math.Round((1.0/30)/sc.Simulation.Dt)))
	}
	return viz.LiveOptions{
		Title:         fmt.Sprintf("%s (%s)", sc.Scene, sc.Simulation.ContactModel),
		Dt:            sc.Simulation.Dt,
		StepsPerFrame: spf,
		TEnd:          sc.Simulation.TEnd,
		Layout:        viz.LayoutForScenario(sc),
	}
}

// liveReloads turns scenario file reloads into live view reloads, keeping
// the scene argument and flag overrides of the original command line.
func liveReloads(ctx context.Context, cmd *cobra.Command, args []string, reg *scene.Registry, changes <-chan config.Reload) <-chan viz.LiveReload {
	out := make(chan viz.LiveReload)
	go func() {
		defer close(out)
		for c := range changes {
			r := viz.LiveReload{Err: c.Err}
			if c.Err == nil {
				sc := c.Scenario
				if len(args) > 0 {
					sc.Scene = args[0]
				}
				applyOverrides(cmd, sc)
				if err := sc.Validate(); err != nil {
					r.Err = err
				} else {
					logger.Debug("scenario reloaded", zap.String("scene", sc.Scene))
					r = viz.LiveReload{Build: liveFactory(reg, sc), Options: liveOptions(sc)}
				}
			}
			select {
			case out <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := baseScenario(args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("time") {
		base.Simulation.TEnd = duration
	}
	dts := sweepDts
	if len(dts) == 0 {
		dts = []float64{base.Simulation.Dt}
	}
	segs := sweepSegments
	if len(segs) == 0 {
		segs = []int{base.Yarn.SegmentCount}
	}

	var jobs []runner.Job
	for _, c := range sweepContacts {
		for _, d := range dts {
			for _, n := range segs {
				sc := base.Clone()
				sc.Simulation.ContactModel = config.ContactModel(strings.ToUpper(c))
				sc.Simulation.Dt = d
				sc.Yarn.SegmentCount = n
				if err := sc.Validate(); err != nil {
					return err
				}
				jobs = append(jobs, runner.Job{
					Name:     fmt.Sprintf("%s_dt%g_n%d", sc.Simulation.ContactModel, d, n),
					Scenario: sc,
				})
			}
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	out, err := runner.Sweep(ctx, jobs, buildStepper(scene.NewRegistry()), sweepParallel, logger)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tMAX_TENSION\tMEAN_GUIDE_FORCE\tMAX_GAP\tFINAL_TIP_Y\tRUN")
	for i, res := range out {
		id := "-"
		if sweepSave {
			meta := storage.MetadataFor(jobs[i].Scenario)
			meta.Name = jobs[i].Name
			if id, err = st.Save(meta, res); err != nil {
				return err
			}
		}
		m := res.Metrics
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%.3g\t%.4f\t%s\n", jobs[i].Name,
			m["max_tension"], m["mean_guide_force"], m["max_joint_gap"], m["final_tip_height"], id)
	}
	return w.Flush()
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	checks, ok := smoke.RunAll(ctx)
	for _, c := range checks {
		fmt.Println(c.String())
	}
	if !ok {
		return fmt.Errorf("engine verification failed")
	}
	fmt.Println("engine OK")
	return nil
}

// resultOf wraps loaded samples so the result helpers can be reused.
func resultOf(samples []results.SimulationSample) *results.SimulationResult {
	return &results.SimulationResult{Samples: samples}
}

package main

import (
	"fmt"
	"os"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	// scenario selection and overrides shared by run and live
	configFile   string
	preset       string
	runName      string
	dt           float64
	duration     float64
	contactModel string
	segments     int
	sampleEvery  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "yarnsim",
		Short: "yarn and guide multibody simulation",
		Long: `yarnsim simulates a yarn, modelled as a chain of rigid capsule segments
joined by spherical joints, falling onto a floor or being pulled through a
guide ring. Runs are stored as metadata.json + samples.csv under --data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".yarnsim", "run directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [scene]",
		Short: "run a scene and store the samples",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().StringVar(&runName, "name", "", "run name stored in metadata")
	runCmd.Flags().StringVar(&publishURL, "publish", "", "stream samples to this socket.io server (e.g. http://localhost:3000)")
	runCmd.Flags().StringVar(&publishNamespace, "publish-namespace", "/", "socket.io namespace for --publish")
	runCmd.Flags().IntVar(&publishEvery, "publish-every", 1, "forward one recorded sample in N")

	liveCmd := &cobra.Command{
		Use:   "live [scene]",
		Short: "run a scene with live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 0, "physics steps per frame (0 = real time)")
	liveCmd.Flags().BoolVar(&watchConfig, "watch", false, "restart the scene when the --config file changes")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "filter and rank stored runs through the sqlite catalog",
		Args:  cobra.NoArgs,
		RunE:  queryRuns,
	}
	queryCmd.Flags().StringVar(&queryScene, "scene", "", "only runs of this scene")
	queryCmd.Flags().StringVar(&queryContact, "contact", "", "only runs with this contact model")
	queryCmd.Flags().StringVar(&queryMetric, "by", "", "rank by this metric (e.g. max_tension)")
	queryCmd.Flags().BoolVar(&queryDesc, "desc", false, "largest metric first")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "at most this many runs (0 = all)")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run series (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotSeries, "series", []string{"tension_max", "guide_force", "tip_y"}, "series to plot")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "dominant frequencies and tip trajectory of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}

	reportCmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "markdown summary of a run (latest run by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  reportRun,
	}
	reportCmd.Flags().BoolVar(&reportRaw, "raw", false, "print the markdown source")
	reportCmd.Flags().StringVar(&reportStyle, "style", "auto", "glamour style: auto, dark, light, notty or ascii")
	reportCmd.Flags().IntVar(&reportWidth, "width", 100, "word wrap width")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write run samples as csv to stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata, series and samples as json",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (stdout when empty)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render one sample of a run as svg",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (stdout when empty)")
	exportSVGCmd.Flags().IntVar(&sampleIndex, "sample", -1, "sample index (negative counts from the end)")
	exportSVGCmd.Flags().Float64Var(&svgScale, "scale", 4, "svg units per dot")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scene]",
		Short: "run a grid of contact models, steps and resolutions in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "scenario file (.yaml or .hcl)")
	sweepCmd.Flags().StringVar(&preset, "preset", "", "scenario preset")
	sweepCmd.Flags().Float64Var(&duration, "time", 0, "simulated time")
	sweepCmd.Flags().StringSliceVar(&sweepContacts, "contact", []string{"NSC", "SMC"}, "contact models")
	sweepCmd.Flags().Float64SliceVar(&sweepDts, "dt", nil, "time steps (scenario dt when empty)")
	sweepCmd.Flags().IntSliceVar(&sweepSegments, "segments", nil, "segment counts (scenario count when empty)")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 0, "concurrent runs (0 = GOMAXPROCS)")
	sweepCmd.Flags().BoolVar(&sweepSave, "save", false, "store every run")

	doctorCmd := &cobra.Command{
		Use:   "doctor",
		Short: "verify the engine with a box drop under NSC and SMC",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scene]",
		Short: "list scenario and cable presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a scenario file to start from (.yaml or .hcl)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initConfigCmd.Flags().StringVar(&initScene, "scene", config.SceneFallingYarn, "scene")
	initConfigCmd.Flags().StringVar(&initPreset, "preset", "default", "scenario preset")
	initConfigCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cableCmd := &cobra.Command{
		Use:   "cable",
		Short: "simulate a hanging lumped-mass cable strand",
		Args:  cobra.NoArgs,
		RunE:  runCable,
	}
	cableCmd.Flags().StringVar(&cablePreset, "preset", "", "cable preset (default strand when empty)")
	cableCmd.Flags().Float64Var(&cableTime, "time", 0.5, "simulated time")
	cableCmd.Flags().Float64Var(&cableDt, "dt", 0, "outer time step (solver default when zero)")
	cableCmd.Flags().IntVar(&cableSampleEvery, "sample-every", 50, "sample every n steps")
	cableCmd.Flags().IntVar(&cableElements, "elements", 0, "element count override")
	cableCmd.Flags().IntVar(&cableSubSteps, "sub-steps", 0, "inner steps per step (0 = from stability limit)")
	cableCmd.Flags().StringVar(&cableIntegrator, "integrator", "verlet", "euler, symplectic_euler, rk4 or verlet")
	cableCmd.Flags().BoolVar(&cableSave, "save", false, "store the run")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, queryCmd, plotCmd, analyzeCmd, reportCmd, exportCSVCmd, exportJSONCmd,
		exportSVGCmd, sweepCmd, doctorCmd, presetsCmd, initConfigCmd, cableCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (.yaml or .hcl)")
	cmd.Flags().StringVar(&preset, "preset", "", "scenario preset (see presets)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "time step")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultTEnd, "simulated time")
	cmd.Flags().StringVar(&contactModel, "contact", string(config.NSC), "contact model (NSC or SMC)")
	cmd.Flags().IntVar(&segments, "segments", 20, "yarn segment count")
	cmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEveryNSteps, "sample every n steps")
}

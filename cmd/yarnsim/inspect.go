package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/yarnsim/internal/analysis"
	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/fea"
	"github.com/san-kum/yarnsim/internal/geom"
	"github.com/san-kum/yarnsim/internal/report"
	"github.com/san-kum/yarnsim/internal/results"
	"github.com/san-kum/yarnsim/internal/storage"
	"github.com/san-kum/yarnsim/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	plotSeries  []string
	outPath     string
	sampleIndex int
	svgScale    float64
	initScene   string
	initPreset  string
	force       bool

	queryScene   string
	queryContact string
	queryMetric  string
	queryDesc    bool
	queryLimit   int

	reportRaw   bool
	reportStyle string
	reportWidth int
)

// resolveRun picks the run named in args or the latest stored run.
func resolveRun(st *storage.Store, args []string) (string, error) {
	ref := ""
	if len(args) == 1 {
		ref = args[0]
	}
	return st.Resolve(ref)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tCONTACT\tTIME\tT_END\tDT\tSEGMENTS\tSAMPLES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%gs\t%d\t%d\n",
			run.ID,
			run.Scene,
			run.ContactModel,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.TEnd,
			run.Dt,
			run.SegmentCount,
			run.Samples,
		)
	}
	return w.Flush()
}

// queryRuns refreshes the run catalog from the run directories and prints
// the matching runs, ranked by a metric when one is given.
func queryRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	cat, err := storage.OpenCatalog(filepath.Join(st.BaseDir(), storage.CatalogFile))
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx := cmd.Context()
	n, err := cat.Sync(ctx, st)
	if err != nil {
		return err
	}
	logger.Debug("catalog synced", zap.Int("runs", n))

	entries, err := cat.Find(ctx, storage.Query{
		Scene:        queryScene,
		ContactModel: queryContact,
		Metric:       queryMetric,
		Desc:         queryDesc,
		Limit:        queryLimit,
	})
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no matching runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "ID\tSCENE\tCONTACT\tCREATED\tSTEPS"
	if queryMetric != "" {
		header += "\t" + strings.ToUpper(queryMetric)
	}
	fmt.Fprintln(w, header)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d", e.ID, e.Scene, e.ContactModel, e.Created.Format("2006-01-02 15:04:05"), e.Steps)
		if queryMetric != "" {
			if math.IsNaN(e.Value) {
				fmt.Fprint(w, "\t-")
			} else {
				fmt.Fprintf(w, "\t%.6g", e.Value)
			}
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s  contact: %s\n", meta.Scene, meta.ContactModel)
	fmt.Printf("samples: %d\n\n", len(samples))

	res := resultOf(samples)
	for _, name := range plotSeries {
		data := res.Series(name)
		if data == nil {
			return fmt.Errorf("unknown series %q (have %v)", name, results.SeriesNames)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) < 4 {
		return fmt.Errorf("need at least 4 samples, have %d", len(samples))
	}

	sampleDt := meta.Dt * float64(meta.SampleEveryNSteps)
	fmt.Printf("run: %s  sample interval: %gs\n\n", runID, sampleDt)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIES\tDOMINANT_HZ\tMIN\tMAX\tFINAL")
	for _, st := range report.Summarize(samples, sampleDt) {
		fmt.Fprintf(w, "%s\t%.3f\t%.4g\t%.4g\t%.4g\n", st.Name, st.DominantHz, st.Min, st.Max, st.Final)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	pts := make([]analysis.Point, len(samples))
	for i, s := range samples {
		pts[i] = analysis.Point{X: s.Tip.X, Y: s.Tip.Y}
	}
	fmt.Println("\ntip trajectory (x right, y up):")
	fmt.Print(analysis.TrajectoryToASCII(pts, 70, 20))
	return nil
}

func reportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	md := report.Markdown(*meta, samples)
	if reportRaw {
		fmt.Print(md)
		return nil
	}
	out, err := report.Render(md, reportWidth, reportStyle)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to export")
	}
	return storage.WriteCSV(os.Stdout, resultOf(samples))
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if outPath == "" {
		return storage.ExportJSON(os.Stdout, *meta, samples)
	}
	if err := storage.ExportJSONFile(outPath, *meta, samples); err != nil {
		return err
	}
	fmt.Printf("exported %s to %s\n", runID, outPath)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to export")
	}

	idx := sampleIndex
	if idx < 0 {
		idx += len(samples)
	}
	if idx < 0 || idx >= len(samples) {
		return fmt.Errorf("sample %d out of range [0, %d)", sampleIndex, len(samples))
	}

	var layout viz.Layout
	if meta.Scenario != nil {
		layout = viz.LayoutForScenario(meta.Scenario)
	} else {
		var pts []geom.Vec3
		for _, s := range samples {
			pts = append(pts, s.Yarn.SegmentPositions...)
		}
		layout = viz.LayoutForPoints(pts, 0.05)
	}
	canvas := viz.Render(layout, samples[idx], 80, 30)

	if outPath == "" {
		return viz.WriteSVG(os.Stdout, canvas, svgScale)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := viz.WriteSVG(f, canvas, svgScale); err != nil {
		return err
	}
	fmt.Printf("sample %d (t=%.3fs) of %s written to %s\n", idx, samples[idx].Time, runID, outPath)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenes := config.Scenes()
	if len(args) == 1 {
		if config.ListPresets(args[0]) == nil {
			return fmt.Errorf("no presets for scene %q (have %v)", args[0], scenes)
		}
		scenes = args
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENE\tPRESET\tCONTACT\tDT\tT_END\tSEGMENTS")
	for _, s := range scenes {
		for _, name := range config.ListPresets(s) {
			sc := config.GetPreset(s, name)
			fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%d\n", s, name,
				sc.Simulation.ContactModel, sc.Simulation.Dt, sc.Simulation.TEnd, sc.Yarn.SegmentCount)
		}
	}
	if len(args) == 0 {
		for _, name := range fea.PresetNames() {
			fmt.Fprintf(w, "cable\t%s\t-\t-\t-\t-\n", name)
		}
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "scenario.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	sc := config.GetPreset(initScene, initPreset)
	if sc == nil {
		return fmt.Errorf("unknown preset %q for scene %q", initPreset, initScene)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	if err := config.Save(path, sc); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s/%s)\n", path, initScene, initPreset)
	return nil
}

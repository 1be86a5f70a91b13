package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/yarnsim/internal/results"
)

type ExportData struct {
	Run     RunMetadata                `json:"run"`
	Times   []float64                  `json:"times"`
	Series  map[string][]float64       `json:"series"`
	Samples []results.SimulationSample `json:"samples"`
}

// ExportJSON writes the run metadata, every named series and the raw
// samples as one indented JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, samples []results.SimulationSample) error {
	res := &results.SimulationResult{Samples: samples}
	data := ExportData{
		Run:     meta,
		Times:   res.Times(),
		Series:  make(map[string][]float64, len(results.SeriesNames)),
		Samples: samples,
	}
	for _, name := range results.SeriesNames {
		data.Series[name] = res.Series(name)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func ExportJSONFile(path string, meta RunMetadata, samples []results.SimulationSample) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, meta, samples)
}

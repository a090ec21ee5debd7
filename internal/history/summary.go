package history

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/turbofuel/fueltwin/pkg/core"
)

// Stats describes one plotted series.
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary maps series name to its statistics.
type Summary struct {
	Samples int              `json:"samples"`
	From    float64          `json:"from"`
	To      float64          `json:"to"`
	Series  map[string]Stats `json:"series"`
}

// Series names as plotted.
const (
	SeriesN1       = "N1 RPM"
	SeriesFuelFlow = "Fuel Flow"
	SeriesHP       = "HP"
	SeriesT45      = "T45"
)

// Summarize computes per-series statistics over samples. An empty input
// yields an empty summary.
func Summarize(samples []core.HistorySample) (Summary, error) {
	sum := Summary{Samples: len(samples), Series: map[string]Stats{}}
	if len(samples) == 0 {
		return sum, nil
	}
	sum.From = samples[0].Time
	sum.To = samples[len(samples)-1].Time

	cols := map[string][]float64{}
	for _, s := range samples {
		cols[SeriesN1] = append(cols[SeriesN1], s.N1RPM)
		cols[SeriesFuelFlow] = append(cols[SeriesFuelFlow], s.FuelFlowLPH)
		cols[SeriesHP] = append(cols[SeriesHP], s.HighPressure)
		cols[SeriesT45] = append(cols[SeriesT45], s.T45TempK)
	}

	for name, data := range cols {
		st, err := describe(data)
		if err != nil {
			return Summary{}, fmt.Errorf("summarizing %s: %w", name, err)
		}
		sum.Series[name] = st
	}
	return sum, nil
}

func describe(data stats.Float64Data) (Stats, error) {
	var (
		out Stats
		err error
	)
	if out.Mean, err = stats.Mean(data); err != nil {
		return out, err
	}
	if out.StdDev, err = stats.StandardDeviation(data); err != nil {
		return out, err
	}
	if out.Min, err = stats.Min(data); err != nil {
		return out, err
	}
	if out.Max, err = stats.Max(data); err != nil {
		return out, err
	}
	return out, nil
}

package stats

import (
	"io"

	"github.com/aybabtme/uniplot/histogram"
)

// Samples keeps every pushed value alongside the running statistic so that
// the distribution can be plotted afterwards.
type Samples struct {
	Statistic
	vals []float64
}

func (s *Samples) Push(val float64) {
	s.Statistic.Push(val)
	s.vals = append(s.vals, val)
}

func (s *Samples) Values() []float64 {
	return s.vals
}

// FprintHistogram draws a text histogram of the samples.
func (s *Samples) FprintHistogram(w io.Writer, bins, width int) error {
	if len(s.vals) == 0 {
		_, err := io.WriteString(w, "(no samples)\n")
		return err
	}
	h := histogram.Hist(bins, s.vals)
	return histogram.Fprint(w, h, histogram.Linear(width))
}

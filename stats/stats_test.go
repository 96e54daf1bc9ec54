package stats

import (
	"bytes"
	"testing"

	"github.com/matryer/is"
)

func TestRunningStat(t *testing.T) {
	is := is.New(t)
	type tc struct {
		scores []int
		mean   float64
		stdev  float64
	}
	cases := []tc{
		{[]int{10, 12, 23, 23, 16, 23, 21, 16}, 18, 5.2372293656638},
		{[]int{14, 35, 71, 124, 10, 24, 55, 33, 87, 19}, 47.2, 36.937785531891},
		{[]int{1}, 1, 0},
		{[]int{}, 0, 0},
		{[]int{1, 1}, 1, 0},
	}
	for _, c := range cases {
		s := &Statistic{}
		for _, score := range c.scores {
			s.Push(float64(score))
		}
		is.True(FuzzyEqual(s.Mean(), c.mean))
		is.True(FuzzyEqual(s.Stdev(), c.stdev))
	}
}

func TestMinMaxAndInterval(t *testing.T) {
	is := is.New(t)
	s := &Statistic{}
	for _, v := range []float64{3, -2, 8, 5} {
		s.Push(v)
	}
	is.Equal(s.Min(), -2.0)
	is.Equal(s.Max(), 8.0)
	is.Equal(s.Last(), 5.0)
	is.True(FuzzyEqual(ZVal(95), 1.959963984540054))
	is.True(FuzzyEqual(s.ConfidenceInterval(95), 1.959963984540054*s.StandardError()))
}

func TestHistogram(t *testing.T) {
	is := is.New(t)
	s := &Samples{}
	var buf bytes.Buffer
	is.NoErr(s.FprintHistogram(&buf, 5, 20))
	is.Equal(buf.String(), "(no samples)\n")

	for i := 0; i < 50; i++ {
		s.Push(float64(i % 10))
	}
	buf.Reset()
	is.NoErr(s.FprintHistogram(&buf, 5, 20))
	is.True(buf.Len() > 0)
	is.Equal(len(s.Values()), 50)
	is.Equal(s.Iterations(), 50)
}

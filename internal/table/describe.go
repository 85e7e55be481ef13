package table

import (
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
)

// quantileAccuracy is the relative accuracy of the quantile sketches.
const quantileAccuracy = 0.01

// Summary holds descriptive statistics of one scalar column.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Min    float64
	Max    float64
	P50    float64
	P90    float64
	P99    float64
}

// Describe summarizes every column holding at least one finite scalar.
// Nulls, NaNs and non-scalar cells are skipped. Quantiles come from a
// DDSketch and are accurate to within 1% relative error.
func Describe(t *Table) ([]Summary, error) {
	var out []Summary
	for _, name := range t.Columns() {
		sketch, err := ddsketch.NewDefaultDDSketch(quantileAccuracy)
		if err != nil {
			return nil, fmt.Errorf("create sketch: %w", err)
		}

		s := Summary{Column: name, Min: math.Inf(1), Max: math.Inf(-1)}
		var sum float64
		for _, v := range t.cells[name] {
			f, ok := v.Float()
			if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
				continue
			}
			if err := sketch.Add(f); err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			s.Count++
			sum += f
			s.Min = math.Min(s.Min, f)
			s.Max = math.Max(s.Max, f)
		}
		if s.Count == 0 {
			continue
		}
		s.Mean = sum / float64(s.Count)

		for q, dst := range map[float64]*float64{0.50: &s.P50, 0.90: &s.P90, 0.99: &s.P99} {
			v, err := sketch.GetValueAtQuantile(q)
			if err != nil {
				return nil, fmt.Errorf("column %s: quantile %g: %w", name, q, err)
			}
			*dst = v
		}
		out = append(out, s)
	}
	return out, nil
}

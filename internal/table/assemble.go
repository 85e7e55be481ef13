package table

import (
	"fmt"
	"sort"
	"time"

	"github.com/apoyet/cl2pd/internal/models"
)

// Assemble merges per-variable series into one table. Variables are joined
// in sorted-name order; series timestamps are UTC epoch seconds and are
// tagged UTC exactly once. No input yields an empty table.
func Assemble(series map[string]models.Series) (*Table, error) {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	out := New()
	for _, name := range names {
		frame, err := seriesFrame(name, series[name])
		if err != nil {
			return nil, err
		}
		out = OuterJoin(out, frame)
	}
	return out, nil
}

func seriesFrame(name string, s models.Series) (*Table, error) {
	n := len(s.Timestamps)
	values := make([]Value, n)

	if s.IsVector() {
		if len(s.Vectors) != n {
			return nil, fmt.Errorf("%w: %s has %d timestamps and %d arrays", ErrLengthMismatch, name, n, len(s.Vectors))
		}
		for i, v := range s.Vectors {
			values[i] = VectorValue(v)
		}
	} else {
		if len(s.Scalars) != n {
			return nil, fmt.Errorf("%w: %s has %d timestamps and %d values", ErrLengthMismatch, name, n, len(s.Scalars))
		}
		for i, f := range s.Scalars {
			values[i] = ScalarValue(f)
		}
	}

	index := make([]time.Time, n)
	for i, ts := range s.Timestamps {
		index[i] = models.TimeFromEpoch(ts)
	}
	return FromSeries(name, index, values)
}

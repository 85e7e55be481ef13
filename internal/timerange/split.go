package timerange

import (
	"math"
	"time"
)

// Split divides r into n contiguous windows of equal width. Values of n
// below 1 are treated as 1. Adjacent windows share their boundary instant;
// the first window starts at r.Start and the last ends at r.End exactly.
func Split(r Range, n int) []Range {
	if n < 1 {
		n = 1
	}

	span := float64(r.End.Sub(r.Start))
	bounds := make([]time.Time, n+1)
	for i := range bounds {
		switch i {
		case 0:
			bounds[i] = r.Start
		case n:
			bounds[i] = r.End
		default:
			offset := math.Round(span * float64(i) / float64(n))
			bounds[i] = r.Start.Add(time.Duration(offset))
		}
	}

	windows := make([]Range, n)
	for i := range windows {
		windows[i] = Range{Start: bounds[i], End: bounds[i+1]}
	}
	return windows
}

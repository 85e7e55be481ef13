package timerange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitContiguous(t *testing.T) {
	zone := cet(t)
	ranges := []Range{
		{Start: time.Date(2018, 3, 27, 6, 0, 0, 0, zone), End: time.Date(2018, 3, 27, 6, 10, 0, 0, zone)},
		{Start: time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2017, 1, 1, 0, 0, 0, 7, time.UTC)},
		{Start: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Start: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, r := range ranges {
		for _, n := range []int{1, 2, 3, 7, 10, 64} {
			windows := Split(r, n)
			require.Len(t, windows, n)
			assert.True(t, windows[0].Start.Equal(r.Start))
			assert.True(t, windows[n-1].End.Equal(r.End))
			for i := 0; i < n-1; i++ {
				assert.True(t, windows[i].End.Equal(windows[i+1].Start), "window %d of %d not contiguous", i, n)
				assert.False(t, windows[i].End.Before(windows[i].Start))
			}
		}
	}
}

func TestSplitEqualWidth(t *testing.T) {
	start := time.Date(2018, 3, 27, 6, 0, 0, 0, time.UTC)
	r := Range{Start: start, End: start.Add(10 * time.Minute)}

	windows := Split(r, 4)
	for _, w := range windows {
		assert.Equal(t, 150*time.Second, w.Duration())
	}
}

func TestSplitClamps(t *testing.T) {
	start := time.Date(2018, 3, 27, 6, 0, 0, 0, time.UTC)
	r := Range{Start: start, End: start.Add(time.Hour)}

	for _, n := range []int{0, -3} {
		windows := Split(r, n)
		require.Len(t, windows, 1)
		assert.Equal(t, r, windows[0])
	}
}

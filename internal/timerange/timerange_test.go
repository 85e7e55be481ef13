package timerange

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cet(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("CET")
	require.NoError(t, err)
	return loc
}

func TestParseBound(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		now     bool
		wantErr bool
	}{
		{name: "naive minutes", input: "2017-10-01 17:30", want: time.Date(2017, 10, 1, 17, 30, 0, 0, time.UTC)},
		{name: "naive date", input: "2017-10-01", want: time.Date(2017, 10, 1, 0, 0, 0, 0, time.UTC)},
		{name: "naive fraction", input: "2018-05-01 00:00:00.125", want: time.Date(2018, 5, 1, 0, 0, 0, 125e6, time.UTC)},
		{name: "rfc3339 offset", input: "2017-10-01T17:30:00+02:00", want: time.Date(2017, 10, 1, 15, 30, 0, 0, time.UTC)},
		{name: "space offset", input: "2017-10-01 17:30:00+01:00", want: time.Date(2017, 10, 1, 16, 30, 0, 0, time.UTC)},
		{name: "now sentinel", input: " NOW ", now: true},
		{name: "garbage", input: "yesterday-ish", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBound(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTimeInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.now, b.IsNow())
			if !tt.now {
				assert.True(t, tt.want.Equal(b.utc()), "got %s want %s", b.utc(), tt.want)
			}
		})
	}
}

func TestFromValue(t *testing.T) {
	ts := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

	b, err := FromValue(ts)
	require.NoError(t, err)
	assert.Equal(t, At(ts), b)

	b, err = FromValue(&ts)
	require.NoError(t, err)
	assert.Equal(t, At(ts), b)

	b, err = FromValue("now")
	require.NoError(t, err)
	assert.True(t, b.IsNow())

	_, err = FromValue(42)
	assert.ErrorIs(t, err, ErrInvalidTimeInput)

	_, err = FromValue((*time.Time)(nil))
	assert.ErrorIs(t, err, ErrInvalidTimeInput)

	_, err = FromValue(Bound{})
	assert.ErrorIs(t, err, ErrInvalidTimeInput)
}

func TestNormalize(t *testing.T) {
	zone := cet(t)
	fixedNow := time.Date(2021, 6, 1, 8, 0, 0, 0, time.UTC)
	n := NewNormalizer(zone).WithClock(func() time.Time { return fixedNow })

	t.Run("naive is read as UTC", func(t *testing.T) {
		// The wall clock must be taken as UTC even though the value carries CET.
		local := time.Date(2017, 10, 1, 17, 30, 0, 0, zone)
		r, err := n.Normalize(Naive(local), Now())
		require.NoError(t, err)
		assert.True(t, r.Start.Equal(time.Date(2017, 10, 1, 17, 30, 0, 0, time.UTC)))
		assert.Equal(t, zone, r.Start.Location())
		assert.True(t, r.End.Equal(fixedNow))
		assert.Equal(t, zone, r.End.Location())
	})

	t.Run("aware is converted", func(t *testing.T) {
		start := time.Date(2017, 10, 1, 17, 30, 0, 0, zone)
		end := start.Add(time.Minute).UTC()
		r, err := n.Normalize(At(start), At(end))
		require.NoError(t, err)
		assert.True(t, r.Start.Equal(start))
		assert.True(t, r.End.Equal(end))
		assert.Equal(t, "CET", r.End.Location().String())
	})

	t.Run("now start rejected", func(t *testing.T) {
		_, err := n.Normalize(Now(), Now())
		assert.ErrorIs(t, err, ErrInvalidTimeInput)
	})

	t.Run("values", func(t *testing.T) {
		r, err := n.NormalizeValues("2017-10-01 17:30", "2017-10-01T17:31:00+02:00")
		require.NoError(t, err)
		assert.Equal(t, time.Minute*(-119), r.Duration())

		_, err = n.NormalizeValues(3.14, "now")
		assert.ErrorIs(t, err, ErrInvalidTimeInput)
	})

	t.Run("caller value untouched", func(t *testing.T) {
		orig := time.Date(2017, 10, 1, 17, 30, 0, 0, time.UTC)
		copyOf := orig
		_, err := n.Normalize(At(orig), At(orig))
		require.NoError(t, err)
		assert.Equal(t, copyOf, orig)
	})
}

func TestLoadNormalizer(t *testing.T) {
	n, err := LoadNormalizer("")
	require.NoError(t, err)
	assert.Equal(t, DefaultZone, n.Zone().String())

	_, err = LoadNormalizer("Not/AZone")
	assert.Error(t, err)
}

func TestParseInstant(t *testing.T) {
	ts, err := ParseInstant("2018-05-01 10:00:00.500")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
	assert.True(t, ts.Equal(time.Date(2018, 5, 1, 10, 0, 0, 5e8, time.UTC)))

	_, err = ParseInstant("now")
	assert.ErrorIs(t, err, ErrInvalidTimeInput)
}

package server

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/apoyet/cl2pd/internal/table"
	"github.com/apoyet/cl2pd/internal/timerange"
)

func TestRequestAccessors(t *testing.T) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"name":   "A",
		"flag":   true,
		"split":  3,
		"frac":   1.5,
		"names":  []interface{}{"A", "B"},
		"mixed":  []interface{}{"A", 1},
		"fills":  []interface{}{6666, 6667},
		"stamps": []interface{}{"2018-05-01T10:00:00Z", 1525168800.5},
		"start":  1525168800,
		"null":   nil,
	})
	require.NoError(t, err)
	r := newRequest(s)

	name, err := r.string("name")
	require.NoError(t, err)
	assert.Equal(t, "A", name)

	_, err = r.string("split")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	missing, err := r.string("missing")
	require.NoError(t, err)
	assert.Equal(t, "", missing)

	flag, err := r.bool("flag")
	require.NoError(t, err)
	assert.True(t, flag)

	split, err := r.int("split", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, split)
	def, err := r.int("null", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, def)
	_, err = r.int("frac", 1)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	names, err := r.strings("names")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
	_, err = r.strings("mixed")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	fills, err := r.ints("fills")
	require.NoError(t, err)
	assert.Equal(t, []int{6666, 6667}, fills)

	stamps, err := r.instants("stamps")
	require.NoError(t, err)
	require.Len(t, stamps, 2)
	assert.Equal(t, 500*time.Millisecond, stamps[1].Sub(stamps[0]))

	start, err := r.bound("start")
	require.NoError(t, err)
	rng, err := timerange.NewNormalizer(time.UTC).Normalize(start, timerange.Now())
	require.NoError(t, err)
	assert.True(t, rng.Start.Equal(time.Date(2018, 5, 1, 10, 0, 0, 0, time.UTC)))

	_, err = r.bound("end")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEncodeTable(t *testing.T) {
	base := time.Date(2018, 5, 1, 10, 0, 0, 0, time.UTC)
	tbl := table.OuterJoin(
		table.FromRow(base, map[string]table.Value{
			"scalar": table.ScalarValue(math.NaN()),
			"text":   table.TextValue("injection"),
			"object": table.ObjectValue(map[string]any{
				"v":   []float64{1, 2},
				"c":   complex(1, -1),
				"arr": []map[string]any{{"n": int64(3)}},
			}),
		}),
		table.FromRow(base.Add(time.Second), map[string]table.Value{
			"vector": table.VectorValue([]float64{1, 2, 3}),
		}),
	)

	v, err := encodeTable(tbl)
	require.NoError(t, err)
	fields := v.GetStructValue().Fields

	assert.Len(t, fields["index"].GetListValue().GetValues(), 2)
	assert.Len(t, fields["columns"].GetListValue().GetValues(), 4)

	data := fields["data"].GetStructValue().Fields
	assert.True(t, math.IsNaN(data["scalar"].GetListValue().GetValues()[0].GetNumberValue()))
	assert.Equal(t, "injection", data["text"].GetListValue().GetValues()[0].GetStringValue())

	obj := data["object"].GetListValue().GetValues()[0].GetStructValue().AsMap()
	assert.Equal(t, []interface{}{1.0, 2.0}, obj["v"])
	assert.Equal(t, map[string]interface{}{"real": 1.0, "imag": -1.0}, obj["c"])

	vector := data["vector"].GetListValue().GetValues()
	_, isNull := vector[0].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)
	assert.Len(t, vector[1].GetListValue().GetValues(), 3)
}

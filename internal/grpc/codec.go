package server

import (
	"fmt"
	"math"
	"sort"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/apoyet/cl2pd/internal/fills"
	"github.com/apoyet/cl2pd/internal/flatfile"
	"github.com/apoyet/cl2pd/internal/models"
	"github.com/apoyet/cl2pd/internal/table"
	"github.com/apoyet/cl2pd/internal/timerange"
	"github.com/apoyet/cl2pd/internal/trim"
)

// wireTime is the layout of every instant in responses.
const wireTime = time.RFC3339Nano

// request wraps a Struct with typed, validating accessors.
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(s *structpb.Struct) request {
	return request{fields: s.GetFields()}
}

func (r request) has(key string) bool {
	v, ok := r.fields[key]
	if !ok {
		return false
	}
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return !null
}

func (r request) string(key string) (string, error) {
	if !r.has(key) {
		return "", nil
	}
	s, ok := r.fields[key].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", invalidf("%s must be a string", key)
	}
	return s.StringValue, nil
}

func (r request) bool(key string) (bool, error) {
	if !r.has(key) {
		return false, nil
	}
	b, ok := r.fields[key].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, invalidf("%s must be a boolean", key)
	}
	return b.BoolValue, nil
}

func (r request) int(key string, def int) (int, error) {
	if !r.has(key) {
		return def, nil
	}
	n, ok := r.fields[key].GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, invalidf("%s must be an integer", key)
	}
	return int(n.NumberValue), nil
}

func (r request) strings(key string) ([]string, error) {
	if !r.has(key) {
		return nil, nil
	}
	list, ok := r.fields[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, invalidf("%s must be a list of strings", key)
	}
	out := make([]string, 0, len(list.ListValue.GetValues()))
	for _, v := range list.ListValue.GetValues() {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, invalidf("%s must be a list of strings", key)
		}
		out = append(out, s.StringValue)
	}
	return out, nil
}

func (r request) ints(key string) ([]int, error) {
	if !r.has(key) {
		return nil, nil
	}
	list, ok := r.fields[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, invalidf("%s must be a list of integers", key)
	}
	out := make([]int, 0, len(list.ListValue.GetValues()))
	for _, v := range list.ListValue.GetValues() {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
			return nil, invalidf("%s must be a list of integers", key)
		}
		out = append(out, int(n.NumberValue))
	}
	return out, nil
}

// bound reads an instant given as a string or as UTC epoch seconds. A
// missing bound is reported as invalid.
func (r request) bound(key string) (timerange.Bound, error) {
	if !r.has(key) {
		return timerange.Bound{}, invalidf("%s is required", key)
	}
	return boundValue(r.fields[key])
}

func (r request) instants(key string) ([]time.Time, error) {
	if !r.has(key) {
		return nil, nil
	}
	list, ok := r.fields[key].GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, invalidf("%s must be a list of instants", key)
	}
	out := make([]time.Time, 0, len(list.ListValue.GetValues()))
	for _, v := range list.ListValue.GetValues() {
		if n, ok := v.GetKind().(*structpb.Value_NumberValue); ok {
			out = append(out, models.TimeFromEpoch(n.NumberValue))
			continue
		}
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, invalidf("%s must be a list of instants", key)
		}
		t, err := timerange.ParseInstant(s.StringValue)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func boundValue(v *structpb.Value) (timerange.Bound, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return timerange.At(models.TimeFromEpoch(k.NumberValue)), nil
	case *structpb.Value_StringValue:
		return timerange.FromValue(k.StringValue)
	default:
		return timerange.FromValue(v.AsInterface())
	}
}

// encodeTable renders t as {index, columns, data}. Instants are RFC 3339
// strings in UTC; each data entry is a list aligned with index.
func encodeTable(t *table.Table) (*structpb.Value, error) {
	index := make([]*structpb.Value, 0, t.Len())
	for _, ts := range t.Index() {
		index = append(index, structpb.NewStringValue(ts.UTC().Format(wireTime)))
	}

	columns := make([]*structpb.Value, 0, t.Width())
	data := make(map[string]*structpb.Value, t.Width())
	for _, name := range t.Columns() {
		columns = append(columns, structpb.NewStringValue(name))
		col, _ := t.Column(name)
		cells := make([]*structpb.Value, 0, len(col))
		for _, v := range col {
			cell, err := encodeCell(v)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", name, err)
			}
			cells = append(cells, cell)
		}
		data[name] = structpb.NewListValue(&structpb.ListValue{Values: cells})
	}

	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"index":   structpb.NewListValue(&structpb.ListValue{Values: index}),
		"columns": structpb.NewListValue(&structpb.ListValue{Values: columns}),
		"data":    structpb.NewStructValue(&structpb.Struct{Fields: data}),
	}}), nil
}

func encodeCell(v table.Value) (*structpb.Value, error) {
	switch v.Kind() {
	case table.Null:
		return structpb.NewNullValue(), nil
	case table.Scalar:
		f, _ := v.Float()
		return structpb.NewNumberValue(f), nil
	case table.Vector:
		vec, _ := v.Floats()
		return numberList(vec), nil
	case table.Text:
		s, _ := v.Text()
		return structpb.NewStringValue(s), nil
	default:
		o, _ := v.Object()
		return structpb.NewValue(plain(o))
	}
}

func numberList(vals []float64) *structpb.Value {
	list := make([]*structpb.Value, len(vals))
	for i, f := range vals {
		list[i] = structpb.NewNumberValue(f)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: list})
}

// plain converts decoded record values into the shapes structpb accepts.
func plain(v any) any {
	switch x := v.(type) {
	case nil, bool, string, float64, int64:
		return x
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out
	case []int64:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out
	case []bool:
		out := make([]any, len(x))
		for i, b := range x {
			out[i] = b
		}
		return out
	case complex128:
		return map[string]any{"real": real(x), "imag": imag(x)}
	case []complex128:
		out := make([]any, len(x))
		for i, c := range x {
			out[i] = plain(c)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = plain(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, m := range x {
			out[i] = plain(m)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	default:
		return fmt.Sprint(x)
	}
}

func timeValue(t *time.Time) *structpb.Value {
	if t == nil {
		return structpb.NewNullValue()
	}
	return structpb.NewStringValue(t.UTC().Format(wireTime))
}

func durationValue(d *time.Duration) *structpb.Value {
	if d == nil {
		return structpb.NewNullValue()
	}
	return structpb.NewNumberValue(d.Seconds())
}

func encodeFills(summary []fills.SummaryRow, detail []fills.DetailRow) *structpb.Struct {
	s := make([]*structpb.Value, 0, len(summary))
	for _, row := range summary {
		start := row.Start
		s = append(s, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"fill_number": structpb.NewNumberValue(float64(row.FillNumber)),
			"start":       timeValue(&start),
			"end":         timeValue(row.End),
			"duration_s":  durationValue(row.Duration),
		}}))
	}
	d := make([]*structpb.Value, 0, len(detail))
	for _, row := range detail {
		start := row.Start
		d = append(d, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"fill_number": structpb.NewNumberValue(float64(row.FillNumber)),
			"mode":        structpb.NewStringValue(row.Mode),
			"start":       timeValue(&start),
			"end":         timeValue(row.End),
			"duration_s":  durationValue(row.Duration),
		}}))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"summary": structpb.NewListValue(&structpb.ListValue{Values: s}),
		"detail":  structpb.NewListValue(&structpb.ListValue{Values: d}),
	}}
}

func encodeLumiRows(rows []flatfile.LumiRow) *structpb.Value {
	out := make([]*structpb.Value, 0, len(rows))
	for _, r := range rows {
		ts := r.Timestamp
		out = append(out, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"timestamp":                 timeValue(&ts),
			"fill":                      structpb.NewNumberValue(float64(r.Fill)),
			"stable_beams":              structpb.NewBoolValue(r.StableBeams),
			"experiment":                structpb.NewStringValue(r.Experiment),
			"bunch":                     structpb.NewNumberValue(float64(r.Bunch)),
			"luminosity":                structpb.NewNumberValue(r.Luminosity),
			"luminosity_error":          structpb.NewNumberValue(r.LuminosityError),
			"specific_luminosity":       structpb.NewNumberValue(r.SpecificLuminosity),
			"specific_luminosity_error": structpb.NewNumberValue(r.SpecificLuminosityError),
		}}))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: out})
}

func encodeSnapshot(snap *trim.Snapshot) *structpb.Value {
	if snap == nil {
		return structpb.NewNullValue()
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
		"x": numberList(snap.X),
		"y": numberList(snap.Y),
	}})
}

func encodeSummaries(summaries []table.Summary) *structpb.Value {
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].Column < summaries[j].Column })
	out := make([]*structpb.Value, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"column": structpb.NewStringValue(s.Column),
			"count":  structpb.NewNumberValue(float64(s.Count)),
			"mean":   structpb.NewNumberValue(s.Mean),
			"min":    structpb.NewNumberValue(s.Min),
			"max":    structpb.NewNumberValue(s.Max),
			"p50":    structpb.NewNumberValue(s.P50),
			"p90":    structpb.NewNumberValue(s.P90),
			"p99":    structpb.NewNumberValue(s.P99),
		}}))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: out})
}

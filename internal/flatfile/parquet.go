package flatfile

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/apoyet/cl2pd/internal/table"
)

// ExtractRow is one reading of a long-format Parquet extract.
type ExtractRow struct {
	Variable    string    `parquet:"variable,dict,zstd"`
	TimestampNs int64     `parquet:"timestamp_ns"`
	Value       float64   `parquet:"value"`
	Valid       bool      `parquet:"valid"`
	ArrayValue  []float64 `parquet:"array_value,list"`
	IsArray     bool      `parquet:"is_array"`
}

const extractBatch = 4096

// ReadParquetExtract reads a long-format extract into a table with one
// column per variable. Rows marked invalid become nulls.
func ReadParquetExtract(r io.ReaderAt, size int64) (*table.Table, error) {
	// NewGenericReader panics on input it cannot open; given a *parquet.File
	// it reads that handle without parsing the footer again.
	f, err := parquet.OpenFile(r, size, parquet.ReadBufferSize(1024*1024))
	if err != nil {
		return nil, fmt.Errorf("open parquet extract: %w", err)
	}

	reader := parquet.NewGenericReader[ExtractRow](f)
	defer reader.Close()

	type column struct {
		index  []time.Time
		values []table.Value
	}
	columns := map[string]*column{}

	buf := make([]ExtractRow, extractBatch)
	for {
		n, err := reader.Read(buf)
		for _, row := range buf[:n] {
			c, ok := columns[row.Variable]
			if !ok {
				c = &column{}
				columns[row.Variable] = c
			}
			c.index = append(c.index, time.Unix(0, row.TimestampNs).UTC())
			c.values = append(c.values, extractValue(row))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet extract: %w", err)
		}
		if n == 0 {
			break
		}
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	out := table.New()
	for _, name := range names {
		c := columns[name]
		frame, err := table.FromSeries(name, c.index, c.values)
		if err != nil {
			return nil, err
		}
		out = table.OuterJoin(out, frame)
	}
	return out, nil
}

func extractValue(row ExtractRow) table.Value {
	switch {
	case !row.Valid:
		return table.NullValue()
	case row.IsArray:
		return table.VectorValue(row.ArrayValue)
	default:
		return table.ScalarValue(row.Value)
	}
}

// WriteParquetExtract writes the scalar and vector cells of t in long
// format and returns the number of rows written. Nulls are implied by
// absence; text and object cells are not representable and are skipped.
func WriteParquetExtract(w io.Writer, t *table.Table) (int, error) {
	var rows []ExtractRow
	index := t.Index()
	for _, name := range t.Columns() {
		col, _ := t.Column(name)
		for i, v := range col {
			row := ExtractRow{Variable: name, TimestampNs: index[i].UnixNano()}
			switch v.Kind() {
			case table.Scalar:
				row.Value, _ = v.Float()
				row.Valid = true
			case table.Vector:
				vec, _ := v.Floats()
				row.ArrayValue = append([]float64{}, vec...)
				row.IsArray = true
				row.Valid = true
			default:
				continue
			}
			rows = append(rows, row)
		}
	}

	writer := parquet.NewGenericWriter[ExtractRow](w)
	n, err := writer.Write(rows)
	if err != nil {
		return n, fmt.Errorf("write parquet extract: %w", err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("close parquet extract: %w", err)
	}
	return n, nil
}

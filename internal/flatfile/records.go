package flatfile

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apoyet/cl2pd/internal/matfile"
	"github.com/apoyet/cl2pd/internal/storage"
	"github.com/apoyet/cl2pd/internal/table"
)

const (
	// DefaultRecordVariable is the top-level struct read from each file.
	DefaultRecordVariable = "myDataStruct"

	// FilePathColumn holds the resolved location of the source file.
	FilePathColumn = "matlabFilePath"
	// FullInfoColumn holds the whole decoded record when requested.
	FullInfoColumn = "matlabFullInfo"

	cycleStampsField = "headerCycleStamps"
)

var (
	ErrMissingRecord     = errors.New("record variable not found")
	ErrMissingCycleStamp = errors.New("record has no cycle stamps")
)

// RecordReader turns acquisition records stored as MAT-files into rows.
type RecordReader struct {
	opener   storage.Opener
	variable string
	fullInfo bool
	logger   *logrus.Logger
}

// RecordOption configures a RecordReader.
type RecordOption func(*RecordReader)

// WithRecordVariable reads a top-level struct other than myDataStruct.
func WithRecordVariable(name string) RecordOption {
	return func(r *RecordReader) { r.variable = name }
}

// WithFullInfo adds the whole decoded record as a column.
func WithFullInfo() RecordOption {
	return func(r *RecordReader) { r.fullInfo = true }
}

func NewRecordReader(opener storage.Opener, logger *logrus.Logger, opts ...RecordOption) *RecordReader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &RecordReader{
		opener:   opener,
		variable: DefaultRecordVariable,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadRecords reads one row per file. The row instant is the latest of the
// record's cycle stamps (nanoseconds since the epoch, UTC). Each field path
// becomes a column holding the field's value, or null when the record has
// no such field. Files are read one after another and any unreadable file
// aborts the call.
func (r *RecordReader) ReadRecords(ctx context.Context, fieldPaths []string, locations []string) (*table.Table, error) {
	out := table.New()
	for _, loc := range locations {
		r.logger.WithField("file", loc).Debug("Reading record")

		raw, resolved, err := storage.ReadAll(ctx, r.opener, loc)
		if err != nil {
			return nil, err
		}
		f, err := matfile.DecodeBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", resolved, err)
		}
		rec, ok := f.Variable(r.variable)
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingRecord, r.variable, resolved)
		}

		ts, cells, err := RecordRow(rec, fieldPaths)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", resolved, err)
		}
		cells[FilePathColumn] = table.TextValue(resolved)
		if r.fullInfo {
			cells[FullInfoColumn] = table.ObjectValue(rec.Value())
		}
		out = table.OuterJoin(out, table.FromRow(ts, cells))
	}
	return out, nil
}

// RecordRow extracts the row instant and the requested fields of one
// record. Missing fields are null.
func RecordRow(rec *matfile.Array, fieldPaths []string) (time.Time, map[string]table.Value, error) {
	stamps, ok := rec.Lookup(cycleStampsField)
	if !ok || !stamps.Class.IsNumeric() || len(stamps.Real) == 0 {
		return time.Time{}, nil, ErrMissingCycleStamp
	}

	cells := make(map[string]table.Value, len(fieldPaths)+2)
	for _, path := range fieldPaths {
		if a, ok := rec.Lookup(path); ok {
			cells[path] = cellValue(a)
		} else {
			cells[path] = table.NullValue()
		}
	}
	return time.Unix(0, maxStamp(stamps)).UTC(), cells, nil
}

func maxStamp(a *matfile.Array) int64 {
	if len(a.Ints) > 0 {
		m := a.Ints[0]
		for _, v := range a.Ints[1:] {
			if v > m {
				m = v
			}
		}
		return m
	}
	m := a.Real[0]
	for _, v := range a.Real[1:] {
		if v > m {
			m = v
		}
	}
	if m >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(m)
}

func cellValue(a *matfile.Array) table.Value {
	switch {
	case a.Class == matfile.ClassChar:
		return table.TextValue(a.Text)
	case a.Class.IsNumeric() && !a.Complex && !a.Logical:
		if a.Len() == 1 && len(a.Real) == 1 {
			return table.ScalarValue(a.Real[0])
		}
		return table.VectorValue(a.Real)
	default:
		return table.ObjectValue(a.Value())
	}
}

// Package flatfile reads logged data dumped to files into canonical tables.
//
// Supported inputs:
//   - CSV logs exported from the logging database, one section per variable
//   - MAT-files holding one acquisition record each
//   - Massi luminosity archives (.tgz)
//   - Parquet extracts in long format
package flatfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/apoyet/cl2pd/internal/table"
	"github.com/apoyet/cl2pd/internal/timerange"
)

var (
	ErrUnsupportedVariableType = errors.New("unsupported variable type")
	ErrMalformedLog            = errors.New("malformed log file")
)

const (
	variablePrefix  = "VARIABLE"
	timestampPrefix = "Timestamp"

	scalarType = "Value"
	arrayType  = "Array Values"
)

type csvSection struct {
	name   string
	kind   string
	line   int
	index  []time.Time
	values []table.Value
}

// ParseCSVLog reads a CSV log export. Each section starts with a
// "VARIABLE: <name>" line followed by a "Timestamp (UTC_TIME),<type>"
// header where type is "Value" or "Array Values". Timestamps are UTC.
// Sections are outer-joined into one table sorted by time.
func ParseCSVLog(r io.Reader) (*table.Table, error) {
	var (
		sections []*csvSection
		cur      *csvSection
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, variablePrefix):
			_, name, ok := strings.Cut(line, ":")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: line %d: variable header without a name", ErrMalformedLog, lineNo)
			}
			cur = &csvSection{name: name, line: lineNo}
			sections = append(sections, cur)

		case strings.HasPrefix(line, timestampPrefix):
			if cur == nil {
				return nil, fmt.Errorf("%w: line %d: column header outside a variable section", ErrMalformedLog, lineNo)
			}
			_, kind, _ := strings.Cut(line, ",")
			kind = strings.TrimSpace(kind)
			if kind != scalarType && kind != arrayType {
				return nil, fmt.Errorf("%w: %q for %s", ErrUnsupportedVariableType, kind, cur.name)
			}
			cur.kind = kind

		default:
			if cur == nil || cur.kind == "" {
				return nil, fmt.Errorf("%w: line %d: data row outside a variable section", ErrMalformedLog, lineNo)
			}
			if err := cur.parseRow(line); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedLog, lineNo, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := table.New()
	for _, s := range sections {
		frame, err := table.FromSeries(s.name, s.index, s.values)
		if err != nil {
			return nil, err
		}
		out = table.OuterJoin(out, frame)
	}
	return out, nil
}

func (s *csvSection) parseRow(line string) error {
	fields := strings.Split(line, ",")
	ts, err := timerange.ParseInstant(strings.TrimSpace(fields[0]))
	if err != nil {
		return err
	}

	var v table.Value
	switch s.kind {
	case scalarType:
		if len(fields) != 2 {
			return fmt.Errorf("%s: expected one value, got %d", s.name, len(fields)-1)
		}
		f, err := parseFloat(fields[1])
		if err != nil {
			return err
		}
		v = table.ScalarValue(f)
	case arrayType:
		vec := make([]float64, 0, len(fields)-1)
		for _, field := range fields[1:] {
			f, err := parseFloat(field)
			if err != nil {
				return err
			}
			vec = append(vec, f)
		}
		v = table.VectorValue(vec)
	}

	s.index = append(s.index, ts)
	s.values = append(s.values, v)
	return nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

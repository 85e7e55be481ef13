package server

import (
	"errors"
	"fmt"

	"github.com/apoyet/cl2pd/internal/timerange"
)

// ErrInvalidRequest marks requests rejected before any remote call.
var ErrInvalidRequest = errors.New("invalid request")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// File formats accepted by ReadFiles.
const (
	FormatCSV     = "csv"
	FormatMAT     = "mat"
	FormatMassi   = "massi"
	FormatParquet = "parquet"

	// OutputTable is the default QueryVariables output.
	OutputTable = "table"
)

type RequestValidator struct {
	maxSplit     int
	validFormats map[string]bool
}

func NewRequestValidator(maxSplit int) *RequestValidator {
	if maxSplit < 1 {
		maxSplit = 1
	}
	return &RequestValidator{
		maxSplit: maxSplit,
		validFormats: map[string]bool{
			FormatCSV:     true,
			FormatMAT:     true,
			FormatMassi:   true,
			FormatParquet: true,
		},
	}
}

// ValidateVariables checks a variable query. split values below 1 are
// accepted and mean a single window.
func (v *RequestValidator) ValidateVariables(vars []string, split int) error {
	if len(vars) == 0 {
		return invalidf("at least one variable is required")
	}
	for _, name := range vars {
		if name == "" {
			return invalidf("empty variable name")
		}
	}
	if split > v.maxSplit {
		return invalidf("split %d exceeds maximum %d", split, v.maxSplit)
	}
	return nil
}

// ValidateRange checks that start is not after end.
func (v *RequestValidator) ValidateRange(r timerange.Range) error {
	if r.Start.After(r.End) {
		return invalidf("start %s is after end %s", r.Start, r.End)
	}
	return nil
}

// ValidateFiles checks a ReadFiles request.
func (v *RequestValidator) ValidateFiles(format string, files []string) error {
	if !v.validFormats[format] {
		return invalidf("invalid format: %q", format)
	}
	if len(files) == 0 {
		return invalidf("at least one file is required")
	}
	for _, f := range files {
		if f == "" {
			return invalidf("empty file location")
		}
	}
	return nil
}

// ValidateFills requires exactly one of a time range or fill numbers.
func (v *RequestValidator) ValidateFills(hasRange bool, numbers []int) error {
	switch {
	case hasRange && len(numbers) > 0:
		return invalidf("give either start/end or fills, not both")
	case !hasRange && len(numbers) == 0:
		return invalidf("start/end or fills is required")
	}
	for _, n := range numbers {
		if n <= 0 {
			return invalidf("invalid fill number %d", n)
		}
	}
	return nil
}

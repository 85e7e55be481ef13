package server

import (
	"errors"
	"testing"
	"time"

	"github.com/apoyet/cl2pd/internal/timerange"
)

func TestRequestValidator_ValidateVariables(t *testing.T) {
	validator := NewRequestValidator(8)

	tests := []struct {
		name       string
		vars       []string
		split      int
		wantErr    bool
		errMessage string
	}{
		{name: "valid request", vars: []string{"A", "B"}, split: 4},
		{name: "split below one", vars: []string{"A"}, split: 0},
		{name: "no variables", split: 1, wantErr: true, errMessage: "invalid request: at least one variable is required"},
		{name: "empty name", vars: []string{"A", ""}, split: 1, wantErr: true, errMessage: "invalid request: empty variable name"},
		{name: "split too large", vars: []string{"A"}, split: 9, wantErr: true, errMessage: "invalid request: split 9 exceeds maximum 8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateVariables(tt.vars, tt.split)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVariables() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && err.Error() != tt.errMessage {
				t.Errorf("ValidateVariables() error message = %v, want %v", err.Error(), tt.errMessage)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("ValidateVariables() error %v does not wrap ErrInvalidRequest", err)
			}
		})
	}
}

func TestRequestValidator_ValidateRange(t *testing.T) {
	validator := NewRequestValidator(1)
	now := time.Now()

	if err := validator.ValidateRange(timerange.Range{Start: now, End: now}); err != nil {
		t.Errorf("zero-width range rejected: %v", err)
	}
	if err := validator.ValidateRange(timerange.Range{Start: now, End: now.Add(-time.Hour)}); err == nil {
		t.Error("reversed range accepted")
	}
}

func TestRequestValidator_ValidateFiles(t *testing.T) {
	validator := NewRequestValidator(1)

	tests := []struct {
		name    string
		format  string
		files   []string
		wantErr bool
	}{
		{name: "csv", format: FormatCSV, files: []string{"a.csv"}},
		{name: "mat on s3", format: FormatMAT, files: []string{"s3://b/a.mat"}},
		{name: "massi", format: FormatMassi, files: []string{"6666.tgz"}},
		{name: "parquet", format: FormatParquet, files: []string{"x.parquet"}},
		{name: "unknown format", format: "xlsx", files: []string{"a"}, wantErr: true},
		{name: "no files", format: FormatCSV, wantErr: true},
		{name: "empty location", format: FormatCSV, files: []string{""}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateFiles(tt.format, tt.files)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFiles() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestValidator_ValidateFills(t *testing.T) {
	validator := NewRequestValidator(1)

	tests := []struct {
		name     string
		hasRange bool
		numbers  []int
		wantErr  bool
	}{
		{name: "range", hasRange: true},
		{name: "numbers", numbers: []int{6666}},
		{name: "both", hasRange: true, numbers: []int{6666}, wantErr: true},
		{name: "neither", wantErr: true},
		{name: "bad number", numbers: []int{0}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateFills(tt.hasRange, tt.numbers)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFills() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package models

import (
	"math"
	"time"
)

// SeriesRequest describes one retrieval from the logging service.
type SeriesRequest struct {
	Names    []string
	Start    time.Time
	End      time.Time
	Selector string
}

// Series is the raw reading sequence of one logged variable.
// Timestamps are UTC epoch seconds. Exactly one of Scalars or Vectors is set.
type Series struct {
	Timestamps []float64
	Scalars    []float64
	Vectors    [][]float64
}

// IsVector reports whether the variable carries one array per timestamp.
func (s Series) IsVector() bool {
	return s.Vectors != nil
}

// Len returns the number of timestamps.
func (s Series) Len() int {
	return len(s.Timestamps)
}

// BeamMode is a named sub-phase of a fill.
type BeamMode struct {
	Mode  string
	Start time.Time
	End   *time.Time
}

// Fill is one operational period of the machine. End is nil while the
// beam has not been dumped yet.
type Fill struct {
	Number    int
	Start     time.Time
	End       *time.Time
	BeamModes []BeamMode
}

// TrimHeader is a recorded setting change.
type TrimHeader struct {
	ID          int64
	Created     time.Time
	Description string
	Parameters  []string
}

// BeamProcess is one segment of a cycle. StartTime is the offset of the
// segment inside the cycle, in the same unit as function setting abscissas.
type BeamProcess struct {
	Name      string
	StartTime float64
}

// Cycle is a stand-alone control-system context.
type Cycle struct {
	Name          string
	BeamProcesses []BeamProcess
}

// SettingKind distinguishes scalar from function settings.
type SettingKind string

const (
	ScalarSetting   SettingKind = "scalar"
	FunctionSetting SettingKind = "function"
)

// SettingValue holds one part of a setting. Scalar settings use Scalar,
// function settings use X and Y.
type SettingValue struct {
	Scalar float64
	X      []float64
	Y      []float64
}

// Setting is the value of one parameter for one beam process.
type Setting struct {
	Kind       SettingKind
	Value      SettingValue
	Target     SettingValue
	Correction SettingValue
}

// ContextSettings maps parameter name to beam process name to setting.
type ContextSettings map[string]map[string]Setting

// TimeFromEpoch converts UTC epoch seconds to a UTC instant.
func TimeFromEpoch(seconds float64) time.Time {
	sec, frac := math.Modf(seconds)
	nsec := math.Round(frac * 1e9)
	return time.Unix(int64(sec), int64(nsec)).UTC()
}

// EpochSeconds converts an instant to UTC epoch seconds.
func EpochSeconds(t time.Time) float64 {
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

//go:generate go run github.com/golang/mock/mockgen -destination=./mocks/settings_service.go -package=mocks . SettingsService

// Package trim reconstructs the history of setting changes of control
// system parameters.
package trim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apoyet/cl2pd/internal/models"
	"github.com/apoyet/cl2pd/internal/timerange"
)

var (
	ErrEmptySetting     = errors.New("setting has no value for any beam process")
	ErrInvalidPart      = errors.New("invalid setting part")
	ErrUnknownCycle     = errors.New("unknown cycle")
	ErrUnknownParameter = errors.New("no parameter matches")
)

// Part selects which part of a setting is read.
type Part string

const (
	PartValue      Part = "value"
	PartTarget     Part = "target"
	PartCorrection Part = "correction"
)

// ParsePart validates s. An empty string selects the value part.
func ParsePart(s string) (Part, error) {
	switch p := Part(s); p {
	case "":
		return PartValue, nil
	case PartValue, PartTarget, PartCorrection:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPart, s)
	}
}

// SettingsService is the control system's settings database.
type SettingsService interface {
	FindCycle(ctx context.Context, name string) (*models.Cycle, error)
	FindParameters(ctx context.Context, name, group string) ([]string, error)
	FindTrimHeaders(ctx context.Context, cycle string, parameters []string) ([]models.TrimHeader, error)
	FindContextSettings(ctx context.Context, cycle string, parameters []string, at time.Time) (models.ContextSettings, error)
}

// Snapshot is the setting of one parameter across a whole cycle. X is the
// offset inside the cycle: function abscissas shifted by the start of their
// beam process, or the beam process start for scalar settings.
type Snapshot struct {
	X []float64
	Y []float64
}

// Trim is the setting of one parameter right after a recorded change.
type Trim struct {
	ID          int64
	Created     time.Time
	Description string
	Parameter   string
	Snapshot
}

// Query selects trims of parameters matching Parameter and Group within
// Range (inclusive).
type Query struct {
	Cycle     string
	Parameter string
	Group     string
	Range     timerange.Range
	Part      Part
}

type History struct {
	service SettingsService
	logger  *logrus.Logger
}

func NewHistory(service SettingsService, logger *logrus.Logger) *History {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &History{service: service, logger: logger}
}

// Trims returns one Trim per matching parameter for every trim header
// created within the query range, ordered by creation time. Each header
// costs one settings snapshot request. Parameters absent from a snapshot
// are skipped; a parameter present but without any usable beam process
// setting fails with ErrEmptySetting.
func (h *History) Trims(ctx context.Context, q Query) ([]Trim, error) {
	part, err := ParsePart(string(q.Part))
	if err != nil {
		return nil, err
	}
	cycle, err := h.cycle(ctx, q.Cycle)
	if err != nil {
		return nil, err
	}
	params, err := h.parameters(ctx, q.Parameter, q.Group)
	if err != nil {
		return nil, err
	}

	headers, err := h.service.FindTrimHeaders(ctx, cycle.Name, params)
	if err != nil {
		return nil, err
	}
	headers = within(headers, q.Range)
	h.logger.WithFields(logrus.Fields{
		"cycle":   cycle.Name,
		"params":  len(params),
		"headers": len(headers),
		"range":   q.Range.String(),
	}).Debug("Fetching trim snapshots")

	var out []Trim
	for _, th := range headers {
		settings, err := h.service.FindContextSettings(ctx, cycle.Name, params, th.Created)
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			bySegment, ok := settings[p]
			if !ok {
				continue
			}
			snap, err := assemble(cycle.BeamProcesses, bySegment, part)
			if err != nil {
				return nil, fmt.Errorf("%s at %s: %w", p, th.Created.UTC().Format(time.RFC3339), err)
			}
			out = append(out, Trim{
				ID:          th.ID,
				Created:     th.Created.UTC(),
				Description: th.Description,
				Parameter:   p,
				Snapshot:    snap,
			})
		}
	}
	return out, nil
}

// Setting returns the setting of the first parameter matching name and
// group at the given instant, or nil when that parameter has no setting
// in the cycle.
func (h *History) Setting(ctx context.Context, cycleName, name, group string, at time.Time, part Part) (*Snapshot, error) {
	part, err := ParsePart(string(part))
	if err != nil {
		return nil, err
	}
	cycle, err := h.cycle(ctx, cycleName)
	if err != nil {
		return nil, err
	}
	params, err := h.parameters(ctx, name, group)
	if err != nil {
		return nil, err
	}

	settings, err := h.service.FindContextSettings(ctx, cycle.Name, params, at)
	if err != nil {
		return nil, err
	}
	bySegment, ok := settings[params[0]]
	if !ok {
		return nil, nil
	}
	snap, err := assemble(cycle.BeamProcesses, bySegment, part)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", params[0], err)
	}
	return &snap, nil
}

func (h *History) cycle(ctx context.Context, name string) (*models.Cycle, error) {
	cycle, err := h.service.FindCycle(ctx, name)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCycle, name)
	}
	return cycle, nil
}

func (h *History) parameters(ctx context.Context, name, group string) ([]string, error) {
	params, err := h.service.FindParameters(ctx, name, group)
	if err != nil {
		return nil, err
	}
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: %s (group %q)", ErrUnknownParameter, name, group)
	}
	return params, nil
}

func within(headers []models.TrimHeader, r timerange.Range) []models.TrimHeader {
	out := make([]models.TrimHeader, 0, len(headers))
	for _, th := range headers {
		if th.Created.Before(r.Start) || th.Created.After(r.End) {
			continue
		}
		out = append(out, th)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Created.Before(out[j].Created)
	})
	return out
}

// assemble concatenates the beam process settings in cycle order.
func assemble(processes []models.BeamProcess, bySegment map[string]models.Setting, part Part) (Snapshot, error) {
	var snap Snapshot
	for _, bp := range processes {
		s, ok := bySegment[bp.Name]
		if !ok {
			continue
		}
		v := pick(s, part)
		switch s.Kind {
		case models.ScalarSetting:
			snap.X = append(snap.X, bp.StartTime)
			snap.Y = append(snap.Y, v.Scalar)
		case models.FunctionSetting:
			for _, x := range v.X {
				snap.X = append(snap.X, x+bp.StartTime)
			}
			snap.Y = append(snap.Y, v.Y...)
		}
	}
	if len(snap.Y) == 0 {
		return Snapshot{}, ErrEmptySetting
	}
	return snap, nil
}

func pick(s models.Setting, part Part) models.SettingValue {
	switch part {
	case PartTarget:
		return s.Target
	case PartCorrection:
		return s.Correction
	default:
		return s.Value
	}
}

// Package fills expands fill records into a per-fill summary and a
// per-beam-mode detail listing.
package fills

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apoyet/cl2pd/internal/models"
	"github.com/apoyet/cl2pd/internal/timerange"
)

// SummaryRow describes one fill. End and Duration are nil while the fill
// is still open.
type SummaryRow struct {
	FillNumber int
	Start      time.Time
	End        *time.Time
	Duration   *time.Duration
}

// DetailRow describes one beam mode of a fill. Several rows share a fill
// number.
type DetailRow struct {
	FillNumber int
	Mode       string
	Start      time.Time
	End        *time.Time
	Duration   *time.Duration
}

// Expand converts fill records into summary and detail rows, both sorted
// by start time. Rows starting at the same instant keep their input order.
// All times are UTC. The input is not modified.
func Expand(records []models.Fill) ([]SummaryRow, []DetailRow) {
	summary := make([]SummaryRow, 0, len(records))
	var detail []DetailRow

	for _, f := range records {
		start, end, dur := interval(f.Start, f.End)
		summary = append(summary, SummaryRow{
			FillNumber: f.Number,
			Start:      start,
			End:        end,
			Duration:   dur,
		})
		for _, bm := range f.BeamModes {
			start, end, dur := interval(bm.Start, bm.End)
			detail = append(detail, DetailRow{
				FillNumber: f.Number,
				Mode:       bm.Mode,
				Start:      start,
				End:        end,
				Duration:   dur,
			})
		}
	}

	sort.SliceStable(summary, func(i, j int) bool {
		return summary[i].Start.Before(summary[j].Start)
	})
	sort.SliceStable(detail, func(i, j int) bool {
		return detail[i].Start.Before(detail[j].Start)
	})
	return summary, detail
}

func interval(start time.Time, end *time.Time) (time.Time, *time.Time, *time.Duration) {
	start = start.UTC()
	if end == nil {
		return start, nil, nil
	}
	e := end.UTC()
	d := e.Sub(start)
	return start, &e, &d
}

// Source is the part of the logging service that serves fills.
type Source interface {
	GetFillsByTime(ctx context.Context, start, end time.Time) ([]models.Fill, error)
	GetFillData(ctx context.Context, number int) (*models.Fill, error)
}

// Fetcher retrieves fills and expands them.
type Fetcher struct {
	source Source
	zone   *time.Location
	logger *logrus.Logger
}

// NewFetcher returns a Fetcher that queries source in the given wire zone.
func NewFetcher(source Source, zone *time.Location, logger *logrus.Logger) *Fetcher {
	if zone == nil {
		zone = time.UTC
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Fetcher{source: source, zone: zone, logger: logger}
}

// ByTime expands the fills overlapping r.
func (f *Fetcher) ByTime(ctx context.Context, r timerange.Range) ([]SummaryRow, []DetailRow, error) {
	wire := r.In(f.zone)
	records, err := f.source.GetFillsByTime(ctx, wire.Start, wire.End)
	if err != nil {
		return nil, nil, err
	}
	summary, detail := Expand(records)
	return summary, detail, nil
}

// ByNumber fetches each fill on its own, in the order given, and expands
// them together. Unknown fills are skipped.
func (f *Fetcher) ByNumber(ctx context.Context, numbers []int) ([]SummaryRow, []DetailRow, error) {
	records := make([]models.Fill, 0, len(numbers))
	for _, n := range numbers {
		f.logger.WithField("fill", n).Debug("Fetching fill")

		fill, err := f.source.GetFillData(ctx, n)
		if err != nil {
			return nil, nil, err
		}
		if fill == nil {
			f.logger.WithField("fill", n).Debug("Fill not found")
			continue
		}
		records = append(records, *fill)
	}
	summary, detail := Expand(records)
	return summary, detail, nil
}

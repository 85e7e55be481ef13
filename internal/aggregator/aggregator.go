// Package aggregator drives windowed retrieval: it splits a range, fetches
// and assembles each window in order, and stacks the results into one
// canonical table.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apoyet/cl2pd/internal/models"
	"github.com/apoyet/cl2pd/internal/table"
	"github.com/apoyet/cl2pd/internal/timerange"
)

// Fetcher retrieves raw series for one window. api.SeriesFetcher
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context, names []string, r timerange.Range, selector string) (map[string]models.Series, error)
}

// Aggregator fetches variables over arbitrary ranges. Windows are processed
// strictly one after another.
type Aggregator struct {
	fetcher    Fetcher
	normalizer *timerange.Normalizer
	logger     *logrus.Logger
}

func NewAggregator(fetcher Fetcher, normalizer *timerange.Normalizer, logger *logrus.Logger) *Aggregator {
	if normalizer == nil {
		normalizer = timerange.NewNormalizer(nil)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Aggregator{
		fetcher:    fetcher,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Aggregate returns the readings of vars over r as one table. With split
// above 1 the range is fetched in that many contiguous windows; rows
// repeated at shared window boundaries collapse into one. Any failing
// window aborts the whole call.
func (a *Aggregator) Aggregate(ctx context.Context, vars []string, r timerange.Range, split int, selector string) (*table.Table, error) {
	if split <= 1 {
		return a.window(ctx, vars, r, selector)
	}

	windows := timerange.Split(r, split)
	parts := make([]*table.Table, 0, len(windows))
	for i, w := range windows {
		a.logger.WithFields(logrus.Fields{
			"window": fmt.Sprintf("%d/%d", i+1, len(windows)),
			"start":  w.Start.Format(time.RFC3339),
			"end":    w.End.Format(time.RFC3339),
		}).Debug("Fetching window")

		part, err := a.window(ctx, vars, w, selector)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return table.Concat(parts...), nil
}

// AggregateBounds normalizes start and end before aggregating. The end
// bound may be "now".
func (a *Aggregator) AggregateBounds(ctx context.Context, vars []string, start, end timerange.Bound, split int, selector string) (*table.Table, error) {
	r, err := a.normalizer.Normalize(start, end)
	if err != nil {
		return nil, err
	}
	return a.Aggregate(ctx, vars, r, split, selector)
}

// AtCycleStamps looks up vars at each exact instant and merges the rows.
// An instant already present keeps its first non-null readings.
func (a *Aggregator) AtCycleStamps(ctx context.Context, vars []string, stamps []time.Time) (*table.Table, error) {
	out := table.New()
	for _, ts := range stamps {
		a.logger.WithField("cycle_stamp", ts.UTC().Format(time.RFC3339Nano)).Debug("Fetching cycle stamp")

		aux, err := a.Aggregate(ctx, vars, timerange.Range{Start: ts, End: ts}, 1, "")
		if err != nil {
			return nil, err
		}
		out = table.OuterJoin(out, aux)
	}
	return out, nil
}

func (a *Aggregator) window(ctx context.Context, vars []string, r timerange.Range, selector string) (*table.Table, error) {
	series, err := a.fetcher.Fetch(ctx, vars, r, selector)
	if err != nil {
		return nil, err
	}
	return table.Assemble(series)
}

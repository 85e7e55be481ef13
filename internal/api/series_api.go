package api

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/apoyet/cl2pd/internal/models"
	"github.com/apoyet/cl2pd/internal/timerange"
)

// SeriesFetcher retrieves raw variable series over one window.
type SeriesFetcher struct {
	service LoggingService
	zone    *time.Location
	logger  *logrus.Logger
}

// NewSeriesFetcher returns a fetcher that sends windows to the service in
// the named wire zone.
func NewSeriesFetcher(service LoggingService, zone string, logger *logrus.Logger) (*SeriesFetcher, error) {
	if zone == "" {
		zone = timerange.DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load wire zone %q: %w", zone, err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SeriesFetcher{
		service: service,
		zone:    loc,
		logger:  logger,
	}, nil
}

// Fetch issues one Get call for the distinct names over r. Names are sent
// as a sorted set. Errors from the service are returned unchanged, and an
// empty remote result yields an empty map.
func (f *SeriesFetcher) Fetch(ctx context.Context, names []string, r timerange.Range, selector string) (map[string]models.Series, error) {
	set := uniqueNames(names)
	if len(set) == 0 {
		return map[string]models.Series{}, nil
	}

	wire := r.In(f.zone)
	f.logger.WithFields(logrus.Fields{
		"variables": len(set),
		"start":     wire.Start.Format(time.RFC3339Nano),
		"end":       wire.End.Format(time.RFC3339Nano),
		"selector":  selector,
	}).Debug("Fetching variables")

	result, err := f.service.Get(ctx, models.SeriesRequest{
		Names:    set,
		Start:    wire.Start,
		End:      wire.End,
		Selector: selector,
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.Series, len(result))
	for _, name := range set {
		s, ok := result[name]
		if !ok {
			f.logger.WithField("variable", name).Debug("No data returned")
			continue
		}
		out[name] = s
	}
	return out, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

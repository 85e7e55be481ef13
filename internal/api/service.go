//go:generate go run github.com/golang/mock/mockgen -destination=./mocks/logging_service.go -package=mocks . LoggingService

// Package api talks to the remote logging service.
//
// LoggingService is the single collaborator every data-path component
// depends on. It is built once at startup and handed to the fetchers; no
// package keeps a global handle. Two implementations exist: HTTPService
// (JSON over HTTP) and database.PostgresRepo (direct SQL on the logging
// tables).
//
// Example usage:
//
//	svc := api.NewHTTPService("http://logging:8080", 30*time.Second)
//	fetcher, err := api.NewSeriesFetcher(svc, "CET", logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	series, err := fetcher.Fetch(ctx, []string{"LHC.BCTDC.A6R4.B1:BEAM_INTENSITY"}, r, "")
package api

import (
	"context"
	"time"

	"github.com/apoyet/cl2pd/internal/models"
)

// LoggingService is the remote logging database.
type LoggingService interface {
	// Get returns the readings of the requested variables within
	// [req.Start, req.End]. Variables with no readings may be absent from
	// the result. An empty result is not an error.
	Get(ctx context.Context, req models.SeriesRequest) (map[string]models.Series, error)

	// GetFillsByTime returns the fills overlapping [start, end].
	GetFillsByTime(ctx context.Context, start, end time.Time) ([]models.Fill, error)

	// GetFillData returns one fill, or nil when it does not exist.
	GetFillData(ctx context.Context, number int) (*models.Fill, error)
}

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/apoyet/cl2pd/internal/fills"
	"github.com/apoyet/cl2pd/internal/flatfile"
	middleware "github.com/apoyet/cl2pd/internal/grpc/middlewares"
	"github.com/apoyet/cl2pd/internal/storage"
	"github.com/apoyet/cl2pd/internal/table"
	"github.com/apoyet/cl2pd/internal/timerange"
	"github.com/apoyet/cl2pd/internal/trim"
)

// ServerConfig holds configuration options for the gRPC server
type ServerConfig struct {
	CacheSize      int     // Size of the LRU response cache, 0 disables it
	RateLimit      float64 // Requests per second, 0 disables the limit
	RateLimitBurst int     // Maximum burst size for rate limiting
	MaxSplit       int     // Largest accepted window split
}

// DefaultServerConfig returns a ServerConfig with sensible defaults
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		CacheSize:      0,
		RateLimit:      100,
		RateLimitBurst: 20,
		MaxSplit:       64,
	}
}

// VariableQuerier fetches logged variables into tables.
type VariableQuerier interface {
	AggregateBounds(ctx context.Context, vars []string, start, end timerange.Bound, split int, selector string) (*table.Table, error)
	AtCycleStamps(ctx context.Context, vars []string, stamps []time.Time) (*table.Table, error)
}

// FillQuerier lists fills and their beam modes.
type FillQuerier interface {
	ByTime(ctx context.Context, r timerange.Range) ([]fills.SummaryRow, []fills.DetailRow, error)
	ByNumber(ctx context.Context, numbers []int) ([]fills.SummaryRow, []fills.DetailRow, error)
}

// TrimQuerier reads trim history.
type TrimQuerier interface {
	Trims(ctx context.Context, q trim.Query) ([]trim.Trim, error)
	Setting(ctx context.Context, cycle, parameter, group string, at time.Time, part trim.Part) (*trim.Snapshot, error)
}

// Dependencies are the components behind the service. Trims and Files may
// be nil, in which case the matching methods report Unimplemented.
type Dependencies struct {
	Variables  VariableQuerier
	Fills      FillQuerier
	Trims      TrimQuerier
	Files      storage.Opener
	Normalizer *timerange.Normalizer
	Logger     *logrus.Logger
}

// TableService serves logged data as tables.
type TableService struct {
	deps      Dependencies
	validator *RequestValidator
}

func NewTableService(deps Dependencies, validator *RequestValidator) *TableService {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Normalizer == nil {
		deps.Normalizer = timerange.NewNormalizer(nil)
	}
	if validator == nil {
		validator = NewRequestValidator(DefaultServerConfig().MaxSplit)
	}
	return &TableService{deps: deps, validator: validator}
}

var _ TableServiceServer = (*TableService)(nil)

// QueryVariables fetches {variables, start, end, split, selector} and
// returns {table} plus {summary} when describe is true. With {output}
// "parquet" the table comes back as a base64 long-format extract in
// {parquet} instead.
func (s *TableService) QueryVariables(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	vars, err := r.strings("variables")
	if err != nil {
		return nil, toStatus(err)
	}
	split, err := r.int("split", 1)
	if err != nil {
		return nil, toStatus(err)
	}
	selector, err := r.string("selector")
	if err != nil {
		return nil, toStatus(err)
	}
	describe, err := r.bool("describe")
	if err != nil {
		return nil, toStatus(err)
	}
	output, err := r.string("output")
	if err != nil {
		return nil, toStatus(err)
	}
	if output != "" && output != OutputTable && output != FormatParquet {
		return nil, toStatus(invalidf("invalid output: %q", output))
	}
	if err := s.validator.ValidateVariables(vars, split); err != nil {
		return nil, toStatus(err)
	}
	start, end, err := s.bounds(r)
	if err != nil {
		return nil, toStatus(err)
	}

	t, err := s.deps.Variables.AggregateBounds(ctx, vars, start, end, split, selector)
	if err != nil {
		return nil, toStatus(err)
	}
	var out *structpb.Struct
	if output == FormatParquet {
		out, err = parquetResponse(t)
	} else {
		out, err = tableResponse(t)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	if describe {
		summaries, err := table.Describe(t)
		if err != nil {
			return nil, toStatus(err)
		}
		out.Fields["summary"] = encodeSummaries(summaries)
	}
	return out, nil
}

// QueryFills takes either {start, end} or {fills: [numbers]} and returns
// {summary, detail}.
func (s *TableService) QueryFills(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	numbers, err := r.ints("fills")
	if err != nil {
		return nil, toStatus(err)
	}
	hasRange := r.has("start") || r.has("end")
	if err := s.validator.ValidateFills(hasRange, numbers); err != nil {
		return nil, toStatus(err)
	}

	var (
		summary []fills.SummaryRow
		detail  []fills.DetailRow
	)
	if hasRange {
		rng, err := s.normalizedRange(r)
		if err != nil {
			return nil, toStatus(err)
		}
		summary, detail, err = s.deps.Fills.ByTime(ctx, rng)
		if err != nil {
			return nil, toStatus(err)
		}
	} else {
		summary, detail, err = s.deps.Fills.ByNumber(ctx, numbers)
		if err != nil {
			return nil, toStatus(err)
		}
	}
	return encodeFills(summary, detail), nil
}

// QueryCycleStamps fetches {variables} at each of {stamps} and returns
// {table}.
func (s *TableService) QueryCycleStamps(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := newRequest(req)
	vars, err := r.strings("variables")
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.validator.ValidateVariables(vars, 1); err != nil {
		return nil, toStatus(err)
	}
	stamps, err := r.instants("stamps")
	if err != nil {
		return nil, toStatus(err)
	}
	if len(stamps) == 0 {
		return nil, toStatus(invalidf("at least one stamp is required"))
	}

	t, err := s.deps.Variables.AtCycleStamps(ctx, vars, stamps)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := tableResponse(t)
	return out, toStatus(err)
}

// ReadFiles reads {files} of {format}. MAT records take {fields},
// {full_info} and {variable}. Massi archives return {rows}; every other
// format returns {table}.
func (s *TableService) ReadFiles(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Files == nil {
		return nil, status.Error(codes.Unimplemented, "file access is not configured")
	}
	r := newRequest(req)
	format, err := r.string("format")
	if err != nil {
		return nil, toStatus(err)
	}
	files, err := r.strings("files")
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.validator.ValidateFiles(format, files); err != nil {
		return nil, toStatus(err)
	}

	switch format {
	case FormatMAT:
		fields, err := r.strings("fields")
		if err != nil {
			return nil, toStatus(err)
		}
		var opts []flatfile.RecordOption
		if full, err := r.bool("full_info"); err != nil {
			return nil, toStatus(err)
		} else if full {
			opts = append(opts, flatfile.WithFullInfo())
		}
		if variable, err := r.string("variable"); err != nil {
			return nil, toStatus(err)
		} else if variable != "" {
			opts = append(opts, flatfile.WithRecordVariable(variable))
		}
		t, err := flatfile.NewRecordReader(s.deps.Files, s.deps.Logger, opts...).ReadRecords(ctx, fields, files)
		if err != nil {
			return nil, toStatus(err)
		}
		out, err := tableResponse(t)
		return out, toStatus(err)

	case FormatMassi:
		var rows []flatfile.LumiRow
		for _, loc := range files {
			raw, _, err := storage.ReadAll(ctx, s.deps.Files, loc)
			if err != nil {
				return nil, toStatus(err)
			}
			fileRows, err := flatfile.ReadMassiArchive(bytes.NewReader(raw), s.deps.Logger)
			if err != nil {
				return nil, toStatus(fmt.Errorf("%s: %w", loc, err))
			}
			rows = append(rows, fileRows...)
		}
		return &structpb.Struct{Fields: map[string]*structpb.Value{"rows": encodeLumiRows(rows)}}, nil

	default:
		t := table.New()
		for _, loc := range files {
			raw, _, err := storage.ReadAll(ctx, s.deps.Files, loc)
			if err != nil {
				return nil, toStatus(err)
			}
			var part *table.Table
			if format == FormatCSV {
				part, err = flatfile.ParseCSVLog(bytes.NewReader(raw))
			} else {
				part, err = flatfile.ReadParquetExtract(bytes.NewReader(raw), int64(len(raw)))
			}
			if err != nil {
				return nil, toStatus(fmt.Errorf("%s: %w", loc, err))
			}
			t = table.OuterJoin(t, part)
		}
		out, err := tableResponse(t)
		return out, toStatus(err)
	}
}

// QueryTrims reads {cycle, parameter, group, start, end, part} and returns
// {table} indexed by trim creation time. Given {at} instead of start and
// end, it returns the {setting} in force at that instant, null when the
// parameter has none in the cycle.
func (s *TableService) QueryTrims(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.deps.Trims == nil {
		return nil, status.Error(codes.Unimplemented, "settings service is not configured")
	}
	r := newRequest(req)
	var q trim.Query
	var err error
	if q.Cycle, err = r.string("cycle"); err != nil {
		return nil, toStatus(err)
	}
	if q.Parameter, err = r.string("parameter"); err != nil {
		return nil, toStatus(err)
	}
	if q.Group, err = r.string("group"); err != nil {
		return nil, toStatus(err)
	}
	part, err := r.string("part")
	if err != nil {
		return nil, toStatus(err)
	}
	if q.Part, err = trim.ParsePart(part); err != nil {
		return nil, toStatus(err)
	}
	if q.Cycle == "" || q.Parameter == "" {
		return nil, toStatus(invalidf("cycle and parameter are required"))
	}
	if r.has("at") {
		if r.has("start") || r.has("end") {
			return nil, toStatus(invalidf("give either at or start/end, not both"))
		}
		b, err := r.bound("at")
		if err != nil {
			return nil, toStatus(err)
		}
		at, err := s.deps.Normalizer.Instant(b, true)
		if err != nil {
			return nil, toStatus(err)
		}
		snap, err := s.deps.Trims.Setting(ctx, q.Cycle, q.Parameter, q.Group, at, q.Part)
		if err != nil {
			return nil, toStatus(err)
		}
		return &structpb.Struct{Fields: map[string]*structpb.Value{"setting": encodeSnapshot(snap)}}, nil
	}
	if q.Range, err = s.normalizedRange(r); err != nil {
		return nil, toStatus(err)
	}

	trims, err := s.deps.Trims.Trims(ctx, q)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := tableResponse(trim.ToTable(trims))
	return out, toStatus(err)
}

func (s *TableService) bounds(r request) (timerange.Bound, timerange.Bound, error) {
	start, err := r.bound("start")
	if err != nil {
		return timerange.Bound{}, timerange.Bound{}, err
	}
	end, err := r.bound("end")
	if err != nil {
		return timerange.Bound{}, timerange.Bound{}, err
	}
	return start, end, nil
}

func (s *TableService) normalizedRange(r request) (timerange.Range, error) {
	start, end, err := s.bounds(r)
	if err != nil {
		return timerange.Range{}, err
	}
	rng, err := s.deps.Normalizer.Normalize(start, end)
	if err != nil {
		return timerange.Range{}, err
	}
	return rng, s.validator.ValidateRange(rng)
}

func tableResponse(t *table.Table) (*structpb.Struct, error) {
	v, err := encodeTable(t)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{"table": v}}, nil
}

func parquetResponse(t *table.Table) (*structpb.Struct, error) {
	var buf bytes.Buffer
	n, err := flatfile.WriteParquetExtract(&buf, t)
	if err != nil {
		return nil, err
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"parquet": structpb.NewStringValue(base64.StdEncoding.EncodeToString(buf.Bytes())),
		"rows":    structpb.NewNumberValue(float64(n)),
	}}, nil
}

// toStatus maps caller mistakes to InvalidArgument, disabled local reads to
// Unimplemented and everything else to Internal. A nil error stays nil.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, timerange.ErrInvalidTimeInput),
		errors.Is(err, trim.ErrInvalidPart),
		errors.Is(err, trim.ErrUnknownCycle),
		errors.Is(err, trim.ErrUnknownParameter),
		errors.Is(err, storage.ErrNoS3),
		errors.Is(err, storage.ErrOutsideRoot):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrNoLocal):
		return status.Error(codes.Unimplemented, err.Error())
	default:
		return status.Errorf(codes.Internal, "query failed: %v", err)
	}
}

// gRPC Server Configuration without the middleware (for development and debug only)
func ConfigureGRPCServer(svc TableServiceServer, opts ...grpc.ServerOption) *grpc.Server {
	srv := grpc.NewServer(opts...)
	RegisterTableServiceServer(srv, svc)
	return srv
}

// SetupServer initializes and configures the gRPC server with all middleware
// and the health service. Metrics are registered with reg.
func SetupServer(
	svc TableServiceServer,
	config ServerConfig,
	reg prometheus.Registerer,
	logger *logrus.Logger,
) (*grpc.Server, *HealthChecker, error) {
	caching, err := middleware.NewCachingInterceptor(config.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	// Create server with chained interceptors
	server := grpc.NewServer(
		grpc.UnaryInterceptor(
			chainUnaryInterceptors(
				middleware.ContextMiddleware, // Add request ID first
				middleware.NewRecoveryInterceptor(logger),
				middleware.NewRateLimitingInterceptor(config.RateLimit, config.RateLimitBurst),
				middleware.NewLoggingInterceptor(logger),
				metrics.Interceptor(),
				caching, // Cache last to avoid caching errors
			),
		),
	)

	RegisterTableServiceServer(server, svc)

	health := NewHealthChecker()
	health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	health.SetServingStatus(TableServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(server, health)

	return server, health, nil
}

// chainUnaryInterceptors creates a single interceptor from multiple interceptors
func chainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		chain := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			interceptor := interceptors[i]
			chainedInterceptor := chain
			chain = func(currentCtx context.Context, currentReq interface{}) (interface{}, error) {
				return interceptor(currentCtx, currentReq, info, chainedInterceptor)
			}
		}
		return chain(ctx, req)
	}
}

//go:build integration
// +build integration

package integration_test

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/apoyet/cl2pd/internal/aggregator"
	"github.com/apoyet/cl2pd/internal/api"
	"github.com/apoyet/cl2pd/internal/database"
	"github.com/apoyet/cl2pd/internal/fills"
	server "github.com/apoyet/cl2pd/internal/grpc"
	"github.com/apoyet/cl2pd/internal/models"
	"github.com/apoyet/cl2pd/internal/storage"
	"github.com/apoyet/cl2pd/internal/timerange"
)

const bufSize = 1024 * 1024

var t0 = time.Date(2018, 5, 1, 10, 0, 0, 0, time.UTC)

func connString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnvOrDefault("DB_HOST", "db"),
		getEnvOrDefault("DB_PORT", "5432"),
		getEnvOrDefault("DB_USER", "cl2pd"),
		getEnvOrDefault("DB_PASSWORD", "cl2pd"),
		getEnvOrDefault("DB_NAME", "cl2pd"),
	)
}

// Helper function to get environment variables with defaults
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setupTestDB(t *testing.T) *database.PostgresRepo {
	t.Helper()
	repo, err := database.NewPostgresRepo(connString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	require.NoError(t, repo.EnsureSchema(ctx))

	// Clean up any existing test data
	db, err := sql.Open("postgres", connString())
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("TRUNCATE TABLE logged_values, beam_modes, fills")
	require.NoError(t, err)

	return repo
}

func seed(t *testing.T, repo *database.PostgresRepo) {
	t.Helper()
	ctx := context.Background()
	epoch := func(d time.Duration) float64 { return models.EpochSeconds(t0.Add(d)) }

	require.NoError(t, repo.InsertSeries(ctx, "LHC.BCT:INTENSITY", "", models.Series{
		Timestamps: []float64{epoch(0), epoch(10 * time.Second), epoch(20 * time.Second)},
		Scalars:    []float64{1.5, 2.5, 3.5},
	}))
	require.NoError(t, repo.InsertSeries(ctx, "LHC.BQM:LENGTHS", "", models.Series{
		Timestamps: []float64{epoch(10 * time.Second)},
		Vectors:    [][]float64{{1.1, 1.2}},
	}))

	end := t0.Add(2 * time.Hour)
	stable := t0.Add(30 * time.Minute)
	require.NoError(t, repo.InsertFill(ctx, models.Fill{
		Number: 6666,
		Start:  t0,
		End:    &end,
		BeamModes: []models.BeamMode{
			{Mode: "INJPROT", Start: t0, End: &stable},
			{Mode: "STABLE", Start: stable},
		},
	}))
}

func setupTestClient(t *testing.T, repo *database.PostgresRepo) *server.TableServiceClient {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	fetcher, err := api.NewSeriesFetcher(repo, "UTC", logger)
	require.NoError(t, err)
	normalizer := timerange.NewNormalizer(time.UTC)

	svc := server.NewTableService(server.Dependencies{
		Variables:  aggregator.NewAggregator(fetcher, normalizer, logger),
		Fills:      fills.NewFetcher(repo, time.UTC, logger),
		Files:      storage.NewRouter(os.TempDir(), nil),
		Normalizer: normalizer,
		Logger:     logger,
	}, nil)

	cfg := server.DefaultServerConfig()
	cfg.CacheSize = 16
	srv, _, err := server.SetupServer(svc, cfg, prometheus.NewRegistry(), logger)
	require.NoError(t, err)

	lis := bufconn.Listen(bufSize)
	go func() {
		if err := srv.Serve(lis); err != nil {
			logger.Errorf("Error serving: %v", err)
		}
	}()
	t.Cleanup(func() {
		srv.Stop()
		lis.Close()
	})

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return server.NewTableServiceClient(conn)
}

func setupTestEnvironment(t *testing.T) *server.TableServiceClient {
	repo := setupTestDB(t)
	seed(t, repo)
	return setupTestClient(t, repo)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestQueryVariablesE2E(t *testing.T) {
	client := setupTestEnvironment(t)
	ctx := context.Background()

	resp, err := client.QueryVariables(ctx, mustStruct(t, map[string]interface{}{
		"variables": []interface{}{"LHC.BCT:INTENSITY", "LHC.BQM:LENGTHS", "LHC.MISSING:VAR"},
		"start":     "2018-05-01 10:00:00",
		"end":       "2018-05-01 10:01:00",
	}))
	require.NoError(t, err)

	tbl := resp.Fields["table"].GetStructValue()
	index := tbl.Fields["index"].GetListValue().GetValues()
	require.Len(t, index, 3)
	assert.Equal(t, "2018-05-01T10:00:00Z", index[0].GetStringValue())
	assert.Equal(t, "2018-05-01T10:00:20Z", index[2].GetStringValue())

	data := tbl.Fields["data"].GetStructValue().Fields
	assert.NotContains(t, data, "LHC.MISSING:VAR")

	intensity := data["LHC.BCT:INTENSITY"].GetListValue().GetValues()
	assert.Equal(t, 2.5, intensity[1].GetNumberValue())

	lengths := data["LHC.BQM:LENGTHS"].GetListValue().GetValues()
	_, isNull := lengths[0].GetKind().(*structpb.Value_NullValue)
	assert.True(t, isNull)
	vec := lengths[1].GetListValue().GetValues()
	require.Len(t, vec, 2)
	assert.Equal(t, 1.2, vec[1].GetNumberValue())
}

func TestQuerySplitE2E(t *testing.T) {
	client := setupTestEnvironment(t)

	resp, err := client.QueryVariables(context.Background(), mustStruct(t, map[string]interface{}{
		"variables": []interface{}{"LHC.BCT:INTENSITY"},
		"start":     "2018-05-01 10:00:00",
		"end":       "2018-05-01 10:00:30",
		"split":     3,
	}))
	require.NoError(t, err)

	index := resp.Fields["table"].GetStructValue().Fields["index"].GetListValue().GetValues()
	assert.Len(t, index, 3)
}

func TestQueryCycleStampsE2E(t *testing.T) {
	client := setupTestEnvironment(t)

	resp, err := client.QueryCycleStamps(context.Background(), mustStruct(t, map[string]interface{}{
		"variables": []interface{}{"LHC.BCT:INTENSITY"},
		"stamps":    []interface{}{"2018-05-01 10:00:10", "2018-05-01 10:00:20"},
	}))
	require.NoError(t, err)

	data := resp.Fields["table"].GetStructValue().Fields["data"].GetStructValue().Fields
	values := data["LHC.BCT:INTENSITY"].GetListValue().GetValues()
	require.Len(t, values, 2)
	assert.Equal(t, 2.5, values[0].GetNumberValue())
	assert.Equal(t, 3.5, values[1].GetNumberValue())
}

func TestQueryFillsE2E(t *testing.T) {
	client := setupTestEnvironment(t)
	ctx := context.Background()

	testCases := []struct {
		name    string
		request map[string]interface{}
	}{
		{
			name: "by time",
			request: map[string]interface{}{
				"start": "2018-05-01 09:00:00",
				"end":   "2018-05-01 11:00:00",
			},
		},
		{
			name:    "by number",
			request: map[string]interface{}{"fills": []interface{}{6666}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := client.QueryFills(ctx, mustStruct(t, tc.request))
			require.NoError(t, err)

			summary := resp.Fields["summary"].GetListValue().GetValues()
			require.Len(t, summary, 1)
			fill := summary[0].GetStructValue().Fields
			assert.Equal(t, 6666.0, fill["fill_number"].GetNumberValue())
			assert.Equal(t, 7200.0, fill["duration_s"].GetNumberValue())

			detail := resp.Fields["detail"].GetListValue().GetValues()
			require.Len(t, detail, 2)
			assert.Equal(t, "INJPROT", detail[0].GetStructValue().Fields["mode"].GetStringValue())
			stable := detail[1].GetStructValue().Fields
			_, isNull := stable["duration_s"].GetKind().(*structpb.Value_NullValue)
			assert.True(t, isNull)
		})
	}
}

func TestErrorCasesE2E(t *testing.T) {
	client := setupTestEnvironment(t)
	ctx := context.Background()

	testCases := []struct {
		name    string
		request map[string]interface{}
		code    codes.Code
	}{
		{
			name:    "no variables",
			request: map[string]interface{}{"start": "2018-05-01", "end": "2018-05-02"},
			code:    codes.InvalidArgument,
		},
		{
			name: "bad bound",
			request: map[string]interface{}{
				"variables": []interface{}{"LHC.BCT:INTENSITY"},
				"start":     "first of may",
				"end":       "2018-05-02",
			},
			code: codes.InvalidArgument,
		},
		{
			name: "split too large",
			request: map[string]interface{}{
				"variables": []interface{}{"LHC.BCT:INTENSITY"},
				"start":     "2018-05-01",
				"end":       "2018-05-02",
				"split":     100000,
			},
			code: codes.InvalidArgument,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.QueryVariables(ctx, mustStruct(t, tc.request))
			require.Error(t, err)
			assert.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestCachedResponsesE2E(t *testing.T) {
	client := setupTestEnvironment(t)
	ctx := context.Background()

	req := mustStruct(t, map[string]interface{}{
		"variables": []interface{}{"LHC.BCT:INTENSITY"},
		"start":     "2018-05-01 10:00:00",
		"end":       "2018-05-01 10:01:00",
	})
	first, err := client.QueryVariables(ctx, req)
	require.NoError(t, err)
	second, err := client.QueryVariables(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.AsMap(), second.AsMap(), "Cache should return same response")
}

package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apoyet/cl2pd/internal/api"
	"github.com/apoyet/cl2pd/internal/models"
)

func newServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range routes {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPServiceGet(t *testing.T) {
	var query map[string][]string
	mux := http.NewServeMux()
	mux.HandleFunc("/variables/data", func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`{"result":{
			"I": {"timestamps":[1525168800.5, 1525168801], "values":[1.5, 2]},
			"P": {"timestamps":[1525168800], "values":[[1,2,3,4]]}
		}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := api.NewHTTPService(srv.URL, time.Second)
	start := time.Date(2018, 5, 1, 12, 0, 0, 0, time.UTC)
	got, err := svc.Get(context.Background(), models.SeriesRequest{
		Names:    []string{"I", "P"},
		Start:    start,
		End:      start.Add(time.Hour),
		Selector: "CPS:USER:LHC1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"I", "P"}, query["name"])
	assert.Equal(t, []string{"2018-05-01T12:00:00Z"}, query["start"])
	assert.Equal(t, []string{"CPS:USER:LHC1"}, query["selector"])

	require.Len(t, got, 2)
	assert.False(t, got["I"].IsVector())
	assert.Equal(t, []float64{1.5, 2}, got["I"].Scalars)
	assert.True(t, got["P"].IsVector())
	assert.Equal(t, [][]float64{{1, 2, 3, 4}}, got["P"].Vectors)
}

func TestHTTPServiceErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/variables/data", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/fills", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": [`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	svc := api.NewHTTPService(srv.URL, time.Second)
	_, err := svc.Get(context.Background(), models.SeriesRequest{Names: []string{"X"}})
	assert.ErrorIs(t, err, api.ErrHTTPStatus)

	_, err = svc.GetFillsByTime(context.Background(), time.Now(), time.Now())
	assert.ErrorIs(t, err, api.ErrHTTPResponse)

	_, err = api.NewHTTPService("http://127.0.0.1:0", time.Second).
		GetFillData(context.Background(), 1)
	assert.ErrorIs(t, err, api.ErrHTTPRequest)
}

func TestHTTPServiceFills(t *testing.T) {
	srv := newServer(t, map[string]string{
		"/fills": `{"result":[
			{"fillNumber": 6666, "startTime": 1525168800, "endTime": 1525172400,
			 "beamModes": [{"mode":"INJPHYS","startTime":1525168800,"endTime":1525170000},
			               {"mode":"STABLE","startTime":1525170000,"endTime":null}]},
			{"fillNumber": 6667, "startTime": 1525172500, "endTime": null, "beamModes": []}
		]}`,
		"/fills/6666": `{"fillNumber": 6666, "startTime": 1525168800, "endTime": 1525172400, "beamModes": []}`,
	})
	svc := api.NewHTTPService(srv.URL, time.Second)

	fills, err := svc.GetFillsByTime(context.Background(), time.Now(), time.Now())
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, 6666, fills[0].Number)
	require.NotNil(t, fills[0].End)
	assert.Equal(t, time.Hour, fills[0].End.Sub(fills[0].Start))
	require.Len(t, fills[0].BeamModes, 2)
	assert.Nil(t, fills[0].BeamModes[1].End)
	assert.Nil(t, fills[1].End)

	fill, err := svc.GetFillData(context.Background(), 6666)
	require.NoError(t, err)
	require.NotNil(t, fill)
	assert.Equal(t, time.UTC, fill.Start.Location())

	fill, err = svc.GetFillData(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, fill)
}

func TestHTTPSettings(t *testing.T) {
	srv := newServer(t, map[string]string{
		"/cycles/LHC1": `{"name":"LHC1","beamProcesses":[{"name":"INJ","startTime":0},{"name":"RAMP","startTime":1200}]}`,
		"/parameters":  `{"result":["RF/Voltage"]}`,
		"/trims":       `{"result":[{"id":7,"createdDate":1525168800,"description":"bump","parameters":["RF/Voltage"]}]}`,
		"/settings": `{"result":{"RF/Voltage":{
			"INJ":{"kind":"function","value":{"x":[0,10],"y":[1,2]}},
			"RAMP":{"kind":"scalar","value":{"scalar":3},"target":{"scalar":4}}
		}}}`,
	})
	svc := api.NewHTTPSettings(srv.URL, time.Second)
	ctx := context.Background()

	cycle, err := svc.FindCycle(ctx, "LHC1")
	require.NoError(t, err)
	require.NotNil(t, cycle)
	assert.Equal(t, []models.BeamProcess{{Name: "INJ"}, {Name: "RAMP", StartTime: 1200}}, cycle.BeamProcesses)

	missing, err := svc.FindCycle(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, missing)

	params, err := svc.FindParameters(ctx, "RF/%", "RF")
	require.NoError(t, err)
	assert.Equal(t, []string{"RF/Voltage"}, params)

	headers, err := svc.FindTrimHeaders(ctx, "LHC1", params)
	require.NoError(t, err)
	require.Len(t, headers, 1)
	assert.Equal(t, int64(7), headers[0].ID)
	assert.Equal(t, "bump", headers[0].Description)

	settings, err := svc.FindContextSettings(ctx, "LHC1", params, headers[0].Created)
	require.NoError(t, err)
	inj := settings["RF/Voltage"]["INJ"]
	assert.Equal(t, models.FunctionSetting, inj.Kind)
	assert.Equal(t, []float64{1, 2}, inj.Value.Y)
	ramp := settings["RF/Voltage"]["RAMP"]
	assert.Equal(t, models.ScalarSetting, ramp.Kind)
	assert.Equal(t, 4.0, ramp.Target.Scalar)
}

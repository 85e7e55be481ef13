package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apoyet/cl2pd/internal/models"
)

var (
	ErrHTTPRequest  = errors.New("error making logging service request")
	ErrHTTPStatus   = errors.New("error status from logging service")
	ErrHTTPResponse = errors.New("malformed logging service response")

	errNotFound = errors.New("not found")
)

// wireLayout is the instant format sent on the query string.
const wireLayout = time.RFC3339Nano

type seriesResponse struct {
	Result map[string]struct {
		Timestamps []float64       `json:"timestamps"`
		Values     json.RawMessage `json:"values"`
	} `json:"result"`
}

type beamModeJSON struct {
	Mode      string   `json:"mode"`
	StartTime float64  `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
}

type fillJSON struct {
	FillNumber int            `json:"fillNumber"`
	StartTime  float64        `json:"startTime"`
	EndTime    *float64       `json:"endTime"`
	BeamModes  []beamModeJSON `json:"beamModes"`
}

type fillsResponse struct {
	Result []fillJSON `json:"result"`
}

// restClient issues GET requests against a JSON API and decodes the body.
type restClient struct {
	baseURL string
	client  *http.Client
}

func newRestClient(baseURL string, timeout time.Duration) restClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return restClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c restClient) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHTTPRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: got %d from %s", ErrHTTPStatus, resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrHTTPResponse, err)
	}
	return nil
}

// HTTPService is a LoggingService speaking JSON over HTTP.
//
// Endpoints:
//
//	GET /variables/data?name=...&start=...&end=...[&selector=...]
//	GET /fills?start=...&end=...
//	GET /fills/{number}
//
// Instants on the query string are RFC 3339 in the zone the caller chose.
// Instants in responses are UTC epoch seconds.
type HTTPService struct {
	rest restClient
}

// NewHTTPService returns a client for the service at baseURL.
func NewHTTPService(baseURL string, timeout time.Duration) *HTTPService {
	return &HTTPService{rest: newRestClient(baseURL, timeout)}
}

func (s *HTTPService) Get(ctx context.Context, req models.SeriesRequest) (map[string]models.Series, error) {
	q := url.Values{}
	for _, name := range req.Names {
		q.Add("name", name)
	}
	q.Set("start", req.Start.Format(wireLayout))
	q.Set("end", req.End.Format(wireLayout))
	if req.Selector != "" {
		q.Set("selector", req.Selector)
	}

	var resp seriesResponse
	if err := s.rest.get(ctx, "/variables/data", q, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return map[string]models.Series{}, nil
		}
		return nil, err
	}

	out := make(map[string]models.Series, len(resp.Result))
	for name, raw := range resp.Result {
		series, err := decodeSeries(raw.Timestamps, raw.Values)
		if err != nil {
			return nil, fmt.Errorf("%w: variable %s: %v", ErrHTTPResponse, name, err)
		}
		out[name] = series
	}
	return out, nil
}

// decodeSeries accepts either one number or one array of numbers per
// timestamp.
func decodeSeries(timestamps []float64, values json.RawMessage) (models.Series, error) {
	s := models.Series{Timestamps: timestamps}
	if len(values) == 0 || string(values) == "null" {
		s.Scalars = []float64{}
		return s, nil
	}

	var scalars []float64
	if err := json.Unmarshal(values, &scalars); err == nil {
		s.Scalars = scalars
		return s, nil
	}

	var vectors [][]float64
	if err := json.Unmarshal(values, &vectors); err != nil {
		return models.Series{}, fmt.Errorf("values are neither numbers nor arrays: %v", err)
	}
	s.Vectors = vectors
	return s, nil
}

func (s *HTTPService) GetFillsByTime(ctx context.Context, start, end time.Time) ([]models.Fill, error) {
	q := url.Values{}
	q.Set("start", start.Format(wireLayout))
	q.Set("end", end.Format(wireLayout))

	var resp fillsResponse
	if err := s.rest.get(ctx, "/fills", q, &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	fills := make([]models.Fill, len(resp.Result))
	for i, f := range resp.Result {
		fills[i] = f.model()
	}
	return fills, nil
}

func (s *HTTPService) GetFillData(ctx context.Context, number int) (*models.Fill, error) {
	var resp fillJSON
	err := s.rest.get(ctx, "/fills/"+strconv.Itoa(number), nil, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fill := resp.model()
	return &fill, nil
}

func (f fillJSON) model() models.Fill {
	fill := models.Fill{
		Number: f.FillNumber,
		Start:  models.TimeFromEpoch(f.StartTime),
		End:    optionalTime(f.EndTime),
	}
	for _, bm := range f.BeamModes {
		fill.BeamModes = append(fill.BeamModes, models.BeamMode{
			Mode:  bm.Mode,
			Start: models.TimeFromEpoch(bm.StartTime),
			End:   optionalTime(bm.EndTime),
		})
	}
	return fill
}

func optionalTime(seconds *float64) *time.Time {
	if seconds == nil {
		return nil
	}
	t := models.TimeFromEpoch(*seconds)
	return &t
}

var _ LoggingService = (*HTTPService)(nil)

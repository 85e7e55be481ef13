package api

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/apoyet/cl2pd/internal/models"
)

type beamProcessJSON struct {
	Name      string  `json:"name"`
	StartTime float64 `json:"startTime"`
}

type cycleJSON struct {
	Name          string            `json:"name"`
	BeamProcesses []beamProcessJSON `json:"beamProcesses"`
}

type parametersResponse struct {
	Result []string `json:"result"`
}

type trimHeaderJSON struct {
	ID          int64    `json:"id"`
	Created     float64  `json:"createdDate"`
	Description string   `json:"description"`
	Parameters  []string `json:"parameters"`
}

type trimHeadersResponse struct {
	Result []trimHeaderJSON `json:"result"`
}

type settingValueJSON struct {
	Scalar float64   `json:"scalar"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
}

type settingJSON struct {
	Kind       string           `json:"kind"`
	Value      settingValueJSON `json:"value"`
	Target     settingValueJSON `json:"target"`
	Correction settingValueJSON `json:"correction"`
}

type contextSettingsResponse struct {
	Result map[string]map[string]settingJSON `json:"result"`
}

// HTTPSettings reads cycles, parameters and trim history from the control
// system's settings API.
//
// Endpoints:
//
//	GET /cycles/{name}
//	GET /parameters?name=...[&group=...]
//	GET /trims?cycle=...&parameter=...
//	GET /settings?cycle=...&parameter=...&at=...
type HTTPSettings struct {
	rest restClient
}

// NewHTTPSettings returns a client for the settings API at baseURL.
func NewHTTPSettings(baseURL string, timeout time.Duration) *HTTPSettings {
	return &HTTPSettings{rest: newRestClient(baseURL, timeout)}
}

// FindCycle returns the named stand-alone cycle, or nil when unknown.
func (s *HTTPSettings) FindCycle(ctx context.Context, name string) (*models.Cycle, error) {
	var resp cycleJSON
	err := s.rest.get(ctx, "/cycles/"+url.PathEscape(name), nil, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cycle := &models.Cycle{Name: resp.Name}
	for _, bp := range resp.BeamProcesses {
		cycle.BeamProcesses = append(cycle.BeamProcesses, models.BeamProcess{
			Name:      bp.Name,
			StartTime: bp.StartTime,
		})
	}
	return cycle, nil
}

// FindParameters returns the parameters matching name, optionally
// restricted to a parameter group.
func (s *HTTPSettings) FindParameters(ctx context.Context, name, group string) ([]string, error) {
	q := url.Values{}
	q.Set("name", name)
	if group != "" {
		q.Set("group", group)
	}

	var resp parametersResponse
	err := s.rest.get(ctx, "/parameters", q, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// FindTrimHeaders returns every trim recorded on the parameters within the
// cycle's beam processes.
func (s *HTTPSettings) FindTrimHeaders(ctx context.Context, cycle string, parameters []string) ([]models.TrimHeader, error) {
	q := url.Values{}
	q.Set("cycle", cycle)
	for _, p := range parameters {
		q.Add("parameter", p)
	}

	var resp trimHeadersResponse
	err := s.rest.get(ctx, "/trims", q, &resp)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	headers := make([]models.TrimHeader, len(resp.Result))
	for i, th := range resp.Result {
		headers[i] = models.TrimHeader{
			ID:          th.ID,
			Created:     models.TimeFromEpoch(th.Created),
			Description: th.Description,
			Parameters:  th.Parameters,
		}
	}
	return headers, nil
}

// FindContextSettings returns the settings of the parameters in effect at
// the given instant.
func (s *HTTPSettings) FindContextSettings(ctx context.Context, cycle string, parameters []string, at time.Time) (models.ContextSettings, error) {
	q := url.Values{}
	q.Set("cycle", cycle)
	for _, p := range parameters {
		q.Add("parameter", p)
	}
	q.Set("at", at.Format(wireLayout))

	var resp contextSettingsResponse
	err := s.rest.get(ctx, "/settings", q, &resp)
	if errors.Is(err, errNotFound) {
		return models.ContextSettings{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(models.ContextSettings, len(resp.Result))
	for param, byProcess := range resp.Result {
		out[param] = make(map[string]models.Setting, len(byProcess))
		for bp, st := range byProcess {
			out[param][bp] = models.Setting{
				Kind:       models.SettingKind(st.Kind),
				Value:      models.SettingValue(st.Value),
				Target:     models.SettingValue(st.Target),
				Correction: models.SettingValue(st.Correction),
			}
		}
	}
	return out, nil
}

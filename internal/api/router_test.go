package api

import (
	"context"
	"delivery-planner/internal/adapters/distance"
	"delivery-planner/internal/api/dto"
	"delivery-planner/internal/domain"
	"delivery-planner/internal/platform/metrics"
	"delivery-planner/internal/services"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	got    services.PlanRequest
	result *domain.PlanResult
	err    error
}

func (f *fakePlanner) Plan(_ context.Context, req services.PlanRequest) (*domain.PlanResult, error) {
	f.got = req
	return f.result, f.err
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	provider, err := distance.NewStraightLineProvider(50)
	require.NoError(t, err)
	adapter, err := distance.NewAdapter(provider, nil, distance.DefaultOptions())
	require.NoError(t, err)
	planner, err := services.NewPlanner(adapter, services.DefaultPlannerOptions())
	require.NoError(t, err)

	return NewRouter(planner, 100)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestPlanEndpoint(t *testing.T) {
	body := `{
		"capacity": 100,
		"depot": {"id": "WH", "lat": 0, "lon": 0},
		"shipments": [
			{"destination_id": "A", "source_id": "v1", "item_id": "i1", "quantity": 3, "unit_volume": 20, "lat": 0, "lon": 0.01},
			{"destination_id": "B", "source_id": "v2", "item_id": "i2", "quantity": 1, "unit_volume": 50, "lat": 0.01, "lon": 0},
			{"destination_id": "FAR", "source_id": "v3", "item_id": "i3", "quantity": 1, "unit_volume": 100, "lat": 20, "lon": 0}
		]
	}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/plans", strings.NewReader(body))
	req.Header.Set(requestIDHeader, "req-123")
	newTestRouter(t).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	var res dto.PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	assert.Equal(t, "partial", res.Status)
	assert.Equal(t, "distance", res.Metric)
	require.Len(t, res.Vehicles, 3)

	failed := 0
	for _, v := range res.Vehicles {
		if v.Error != "" {
			failed++
			assert.Equal(t, []string{"FAR"}, v.DestinationIDs)
			assert.Nil(t, v.TotalCost)
			continue
		}
		require.NotNil(t, v.TotalCost)
		assert.Positive(t, *v.TotalCost)
		assert.NotEmpty(t, v.ItemAssignments)
	}
	assert.Equal(t, 1, failed)
}

func TestPlanEndpointMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		err    error
		want   int
	}{
		{"wrong method", http.MethodGet, "", nil, http.StatusMethodNotAllowed},
		{"bad json", http.MethodPost, "{", nil, http.StatusBadRequest},
		{"unknown field", http.MethodPost, `{"trucks": 3}`, nil, http.StatusBadRequest},
		{"trailing data", http.MethodPost, `{} {}`, nil, http.StatusBadRequest},
		{"invalid input", http.MethodPost, `{}`, &domain.InvalidInputError{Field: "capacity", Reason: "must be positive"}, http.StatusBadRequest},
		{"cancelled", http.MethodPost, `{}`, context.Canceled, http.StatusServiceUnavailable},
		{"internal", http.MethodPost, `{}`, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := &fakePlanner{err: tt.err, result: &domain.PlanResult{}}
			rec := httptest.NewRecorder()
			NewRouter(planner, 10).ServeHTTP(rec, httptest.NewRequest(tt.method, "/plans", strings.NewReader(tt.body)))

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestPlanEndpointDefaultCapacity(t *testing.T) {
	planner := &fakePlanner{result: &domain.PlanResult{RunID: "run"}}
	rec := httptest.NewRecorder()
	NewRouter(planner, 42).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/plans",
		strings.NewReader(`{"depot": {"id": "WH", "lat": 1, "lon": 2}, "shipments": []}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 42.0, planner.got.Capacity)
	assert.Equal(t, domain.RoleDepot, planner.got.Depot.Role)
	assert.Equal(t, 2.0, planner.got.Depot.Coordinates.Lon)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.RegisterDefault()
	router := newTestRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",path="/health",status="200"}`)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/risk"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/vendor"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Stub services
// =============================================================================

type stubVendorService struct {
	vendors    map[string]*models.Vendor
	lastFilter vendor.Filter
}

func newStubVendorService() *stubVendorService {
	return &stubVendorService{vendors: make(map[string]*models.Vendor)}
}

func (s *stubVendorService) Create(ctx context.Context, req vendor.CreateRequest) (*models.Vendor, error) {
	if req.Name == "" {
		return nil, errors.NewValidationError("name", "name is required")
	}
	v := &models.Vendor{
		ID:        "11111111-1111-1111-1111-111111111111",
		Name:      req.Name,
		Status:    models.VendorStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.vendors[v.ID] = v
	return v, nil
}

func (s *stubVendorService) Get(ctx context.Context, id string) (*models.Vendor, error) {
	v, ok := s.vendors[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return v, nil
}

func (s *stubVendorService) List(ctx context.Context, filter vendor.Filter, limit, offset int) ([]*models.Vendor, int, error) {
	s.lastFilter = filter
	var out []*models.Vendor
	for _, v := range s.vendors {
		out = append(out, v)
	}
	return out, len(out), nil
}

func (s *stubVendorService) Update(ctx context.Context, id string, req vendor.UpdateRequest) (*models.Vendor, error) {
	v, ok := s.vendors[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	if req.Name != nil {
		v.Name = *req.Name
	}
	return v, nil
}

func (s *stubVendorService) Delete(ctx context.Context, id string) error {
	if _, ok := s.vendors[id]; !ok {
		return errors.ErrNotFound
	}
	delete(s.vendors, id)
	return nil
}

func (s *stubVendorService) AddAssessment(ctx context.Context, vendorID string, req vendor.AssessmentRequest) (*models.VendorAssessment, error) {
	if _, ok := s.vendors[vendorID]; !ok {
		return nil, errors.ErrNotFound
	}
	return &models.VendorAssessment{ID: "a-1", VendorID: vendorID, RiskRating: req.RiskRating}, nil
}

func (s *stubVendorService) ListAssessments(ctx context.Context, vendorID string) ([]*models.VendorAssessment, error) {
	if _, ok := s.vendors[vendorID]; !ok {
		return nil, errors.ErrNotFound
	}
	return nil, nil
}

func (s *stubVendorService) Stats(ctx context.Context) (*vendor.Stats, error) {
	return &vendor.Stats{Total: len(s.vendors)}, nil
}

type stubSearchService struct{}

func (s *stubSearchService) Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	if query == "" {
		return nil, errors.NewValidationError("q", "query is required")
	}
	return []*models.SearchResult{
		{
			ID:       "vendor:22222222-2222-2222-2222-222222222222",
			EntityID: "22222222-2222-2222-2222-222222222222",
			Type:     "vendor",
			Title:    "Acme Corp",
			Path:     "/vendors/22222222-2222-2222-2222-222222222222",
		},
	}, nil
}

type stubRiskService struct{}

func (s *stubRiskService) Create(ctx context.Context, req risk.CreateRequest) (*models.Risk, error) {
	return nil, errors.ErrInvalidInput
}

func (s *stubRiskService) Get(ctx context.Context, id string) (*models.Risk, error) {
	return nil, errors.ErrNotFound
}

func (s *stubRiskService) List(ctx context.Context, filter risk.Filter, limit, offset int) ([]*models.Risk, int, error) {
	return nil, 0, nil
}

func (s *stubRiskService) Update(ctx context.Context, id string, req risk.UpdateRequest) (*models.Risk, error) {
	return nil, errors.ErrNotFound
}

func (s *stubRiskService) Delete(ctx context.Context, id string) error {
	return errors.ErrNotFound
}

func (s *stubRiskService) Heatmap(ctx context.Context) (*risk.Heatmap, error) {
	return &risk.Heatmap{
		Cells:   []risk.HeatmapCell{{Likelihood: 5, Impact: 5, Level: models.RiskLevelCritical, Count: 2}},
		ByLevel: map[string]int{"critical": 2},
		Total:   2,
	}, nil
}

func newTestRouter(services *Services) http.Handler {
	config := DefaultRouterConfig()
	config.MiddlewareConfig.RequireAuth = false
	return NewRouter(config, services)
}

// =============================================================================
// Tests
// =============================================================================

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(&Services{})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "healthy")
	})

	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestVendorEndpoints(t *testing.T) {
	service := newStubVendorService()
	router := newTestRouter(&Services{Vendor: service})

	t.Run("create returns 201", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"name": "Acme Corp"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/vendors", bytes.NewReader(body)))

		require.Equal(t, http.StatusCreated, rec.Code)

		var v models.Vendor
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
		assert.Equal(t, "Acme Corp", v.Name)
		assert.NotEmpty(t, v.ID)
	})

	t.Run("create without name returns 400", func(t *testing.T) {
		body, _ := json.Marshal(map[string]string{"description": "no name"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/vendors", bytes.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
	})

	t.Run("create with malformed JSON returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/v1/vendors", bytes.NewReader([]byte("{not json"))))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_JSON")
	})

	t.Run("get unknown vendor returns 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/vendors/99999999-9999-9999-9999-999999999999", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "NOT_FOUND")
	})

	t.Run("list wraps results with totals", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/vendors?limit=10", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Vendors []*models.Vendor `json:"vendors"`
			Total   int              `json:"total"`
			Limit   int              `json:"limit"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Total)
		assert.Equal(t, 10, resp.Limit)
	})

	t.Run("list reads search and enum filters", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/vendors?search=acme&status=active", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acme", service.lastFilter.Query)
		assert.Equal(t, models.VendorStatus("active"), service.lastFilter.Status)
	})

	t.Run("list accepts q as search shorthand", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/vendors?q=acme", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "acme", service.lastFilter.Query)
	})

	t.Run("delete returns 204", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/v1/vendors/11111111-1111-1111-1111-111111111111", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestSearchEndpoint(t *testing.T) {
	router := newTestRouter(&Services{Search: &stubSearchService{}})

	t.Run("returns hits with paths", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/search?q=acme", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var resp SearchResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "acme", resp.Query)
		assert.Equal(t, 1, resp.Total)
		assert.Equal(t, "/vendors/22222222-2222-2222-2222-222222222222", resp.Results[0].Path)
	})

	t.Run("missing query returns 400", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/search", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRiskHeatmapEndpoint(t *testing.T) {
	router := newTestRouter(&Services{Risk: &stubRiskService{}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/risks/heatmap", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var heatmap risk.Heatmap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &heatmap))
	assert.Equal(t, 2, heatmap.Total)
	require.Len(t, heatmap.Cells, 1)
	assert.Equal(t, models.RiskLevelCritical, heatmap.Cells[0].Level)
}

func TestPaginationParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 50, 0},
		{"explicit values", "limit=25&offset=100", 25, 100},
		{"limit above cap ignored", "limit=500", 50, 0},
		{"negative offset ignored", "offset=-5", 50, 0},
		{"garbage ignored", "limit=abc&offset=xyz", 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/vendors?"+tt.query, nil)
			limit, offset := getPaginationParams(req)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

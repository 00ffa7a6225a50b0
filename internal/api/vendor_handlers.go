package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/vendor"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Vendor Handler
// =============================================================================

// VendorHandler handles vendor API requests.
type VendorHandler struct {
	service vendor.Service
}

// NewVendorHandler creates a new vendor handler.
func NewVendorHandler(service vendor.Service) *VendorHandler {
	return &VendorHandler{service: service}
}

// Create handles POST /api/v1/vendors.
func (h *VendorHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req vendor.CreateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	v, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// List handles GET /api/v1/vendors.
func (h *VendorHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := r.URL.Query()
	filter := vendor.Filter{
		Query:       getSearchParam(q),
		Status:      models.VendorStatus(q.Get("status")),
		Criticality: models.Criticality(q.Get("criticality")),
		Category:    q.Get("category"),
	}

	vendors, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vendors": vendors,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// Get handles GET /api/v1/vendors/{id}.
func (h *VendorHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Update handles PUT /api/v1/vendors/{id}.
func (h *VendorHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req vendor.UpdateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	v, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Delete handles DELETE /api/v1/vendors/{id}.
func (h *VendorHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAssessment handles POST /api/v1/vendors/{id}/assessments.
func (h *VendorHandler) AddAssessment(w http.ResponseWriter, r *http.Request) {
	var req vendor.AssessmentRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	a, err := h.service.AddAssessment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ListAssessments handles GET /api/v1/vendors/{id}/assessments.
func (h *VendorHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	assessments, err := h.service.ListAssessments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assessments": assessments,
		"count":       len(assessments),
	})
}

// Stats handles GET /api/v1/vendors/stats.
func (h *VendorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

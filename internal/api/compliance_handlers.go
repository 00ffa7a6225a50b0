package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/control"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/framework"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Framework Handler
// =============================================================================

// FrameworkHandler handles framework and requirement API requests.
type FrameworkHandler struct {
	service framework.Service
}

// NewFrameworkHandler creates a new framework handler.
func NewFrameworkHandler(service framework.Service) *FrameworkHandler {
	return &FrameworkHandler{service: service}
}

// Create handles POST /api/v1/frameworks.
func (h *FrameworkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req framework.CreateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	fw, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fw)
}

// List handles GET /api/v1/frameworks.
func (h *FrameworkHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := r.URL.Query()
	filter := framework.Filter{
		Query:    getSearchParam(q),
		Category: q.Get("category"),
	}

	frameworks, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"frameworks": frameworks,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}

// Get handles GET /api/v1/frameworks/{id}.
func (h *FrameworkHandler) Get(w http.ResponseWriter, r *http.Request) {
	fw, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fw)
}

// Update handles PUT /api/v1/frameworks/{id}.
func (h *FrameworkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req framework.UpdateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	fw, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fw)
}

// Delete handles DELETE /api/v1/frameworks/{id}.
func (h *FrameworkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddRequirement handles POST /api/v1/frameworks/{id}/requirements.
func (h *FrameworkHandler) AddRequirement(w http.ResponseWriter, r *http.Request) {
	var req framework.RequirementRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	requirement, err := h.service.AddRequirement(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, requirement)
}

// ListRequirements handles GET /api/v1/frameworks/{id}/requirements.
func (h *FrameworkHandler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	requirements, err := h.service.ListRequirements(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requirements": requirements,
		"count":        len(requirements),
	})
}

// GetRequirement handles GET /api/v1/requirements/{id}.
func (h *FrameworkHandler) GetRequirement(w http.ResponseWriter, r *http.Request) {
	requirement, err := h.service.GetRequirement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requirement)
}

// UpdateRequirement handles PUT /api/v1/requirements/{id}.
func (h *FrameworkHandler) UpdateRequirement(w http.ResponseWriter, r *http.Request) {
	var req framework.RequirementRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	requirement, err := h.service.UpdateRequirement(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, requirement)
}

// DeleteRequirement handles DELETE /api/v1/requirements/{id}. Descendants of
// the requirement are removed with it.
func (h *FrameworkHandler) DeleteRequirement(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRequirement(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GapAnalysis handles GET /api/v1/frameworks/{id}/gap-analysis.
func (h *FrameworkHandler) GapAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Analyze(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// =============================================================================
// Control Handler
// =============================================================================

// ControlHandler handles control API requests.
type ControlHandler struct {
	service control.Service
}

// NewControlHandler creates a new control handler.
func NewControlHandler(service control.Service) *ControlHandler {
	return &ControlHandler{service: service}
}

// Create handles POST /api/v1/controls.
func (h *ControlHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req control.CreateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	c, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// List handles GET /api/v1/controls.
func (h *ControlHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := r.URL.Query()
	filter := control.Filter{
		Query:       getSearchParam(q),
		ControlType: models.ControlType(q.Get("type")),
		Status:      models.ControlStatus(q.Get("status")),
		FrameworkID: q.Get("framework_id"),
	}

	controls, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controls": controls,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Get handles GET /api/v1/controls/{id}.
func (h *ControlHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PUT /api/v1/controls/{id}.
func (h *ControlHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req control.UpdateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	c, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/controls/{id}.
func (h *ControlHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MapRequirementsRequest is a batch of requirement IDs to map to a control.
type MapRequirementsRequest struct {
	RequirementIDs []string `json:"requirement_ids"`
}

// MapRequirements handles POST /api/v1/controls/{id}/requirements.
func (h *ControlHandler) MapRequirements(w http.ResponseWriter, r *http.Request) {
	var req MapRequirementsRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	mapped, err := h.service.MapRequirements(r.Context(), chi.URLParam(r, "id"), req.RequirementIDs)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requirements": mapped,
		"count":        len(mapped),
	})
}

// UnmapRequirement handles DELETE /api/v1/controls/{id}/requirements/{requirementId}.
func (h *ControlHandler) UnmapRequirement(w http.ResponseWriter, r *http.Request) {
	err := h.service.UnmapRequirement(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "requirementId"))
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CandidateRequirements handles GET /api/v1/controls/{id}/requirements/candidates.
func (h *ControlHandler) CandidateRequirements(w http.ResponseWriter, r *http.Request) {
	frameworkID := r.URL.Query().Get("framework_id")
	candidates, err := h.service.CandidateRequirements(r.Context(), chi.URLParam(r, "id"), frameworkID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requirements": candidates,
		"count":        len(candidates),
	})
}

// Stats handles GET /api/v1/controls/stats.
func (h *ControlHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/asset"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/integration"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Asset Handler
// =============================================================================

// AssetHandler handles asset inventory API requests.
type AssetHandler struct {
	service asset.Service
}

// NewAssetHandler creates a new asset handler.
func NewAssetHandler(service asset.Service) *AssetHandler {
	return &AssetHandler{service: service}
}

// Create handles POST /api/v1/assets.
func (h *AssetHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req asset.CreateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	a, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// List handles GET /api/v1/assets.
func (h *AssetHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := r.URL.Query()
	filter := asset.Filter{
		Query:          getSearchParam(q),
		AssetType:      q.Get("type"),
		Category:       q.Get("category"),
		Classification: models.DataClassification(q.Get("classification")),
		LifecycleStage: models.LifecycleStage(q.Get("lifecycle")),
		Source:         q.Get("source"),
	}

	assets, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assets": assets,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Get handles GET /api/v1/assets/{id}.
func (h *AssetHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Update handles PUT /api/v1/assets/{id}.
func (h *AssetHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req asset.UpdateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	a, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Delete handles DELETE /api/v1/assets/{id}.
func (h *AssetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LinkControlsRequest is a batch of control IDs to link to an asset.
type LinkControlsRequest struct {
	ControlIDs []string `json:"control_ids"`
}

// LinkControls handles POST /api/v1/assets/{id}/controls.
func (h *AssetHandler) LinkControls(w http.ResponseWriter, r *http.Request) {
	var req LinkControlsRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	linked, err := h.service.LinkControls(r.Context(), chi.URLParam(r, "id"), req.ControlIDs)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controls": linked,
		"count":    len(linked),
	})
}

// UnlinkControl handles DELETE /api/v1/assets/{id}/controls/{controlId}.
func (h *AssetHandler) UnlinkControl(w http.ResponseWriter, r *http.Request) {
	err := h.service.UnlinkControl(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "controlId"))
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CandidateControls handles GET /api/v1/assets/{id}/controls/candidates.
func (h *AssetHandler) CandidateControls(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.service.CandidateControls(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controls": candidates,
		"count":    len(candidates),
	})
}

// Stats handles GET /api/v1/assets/stats.
func (h *AssetHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// Integration Handler
// =============================================================================

// IntegrationHandler handles integration status and sync API requests.
type IntegrationHandler struct {
	service integration.Service
}

// NewIntegrationHandler creates a new integration handler.
func NewIntegrationHandler(service integration.Service) *IntegrationHandler {
	return &IntegrationHandler{service: service}
}

// Status handles GET /api/v1/integrations.
func (h *IntegrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	statuses := h.service.Status(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"integrations": statuses,
		"count":        len(statuses),
	})
}

// Sync handles POST /api/v1/integrations/{name}/sync.
func (h *IntegrationHandler) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Sync(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SyncAll handles POST /api/v1/integrations/sync.
func (h *IntegrationHandler) SyncAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.SyncAll(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

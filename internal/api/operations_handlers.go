package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/risk"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/search"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/task"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Task Handler
// =============================================================================

// TaskHandler handles task API requests.
type TaskHandler struct {
	service task.Service
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(service task.Service) *TaskHandler {
	return &TaskHandler{service: service}
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req task.CreateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	t, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// List handles GET /api/v1/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := r.URL.Query()
	filter := task.Filter{
		Query:    getSearchParam(q),
		Status:   models.TaskStatus(q.Get("status")),
		Priority: models.TaskPriority(q.Get("priority")),
		Assignee: q.Get("assignee"),
		TaskType: q.Get("type"),
		Overdue:  q.Get("overdue") == "true",
	}

	tasks, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks":  tasks,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Get handles GET /api/v1/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /api/v1/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req task.UpdateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/v1/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddComment handles POST /api/v1/tasks/{id}/comments. The comment author
// defaults to the authenticated user.
func (h *TaskHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req task.CommentRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Author == "" {
		if user := currentUser(r); user != nil {
			req.Author = user.Email
		}
	}

	c, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// ListComments handles GET /api/v1/tasks/{id}/comments.
func (h *TaskHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.service.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"comments": comments,
		"count":    len(comments),
	})
}

// Stats handles GET /api/v1/tasks/stats.
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// Risk Handler
// =============================================================================

// RiskHandler handles risk register API requests.
type RiskHandler struct {
	service risk.Service
}

// NewRiskHandler creates a new risk handler.
func NewRiskHandler(service risk.Service) *RiskHandler {
	return &RiskHandler{service: service}
}

// Create handles POST /api/v1/risks.
func (h *RiskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req risk.CreateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	rk, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rk)
}

// List handles GET /api/v1/risks.
func (h *RiskHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := r.URL.Query()
	filter := risk.Filter{
		Query:    getSearchParam(q),
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Level:    models.RiskLevel(q.Get("level")),
		Owner:    q.Get("owner"),
	}

	risks, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"risks":  risks,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// Get handles GET /api/v1/risks/{id}.
func (h *RiskHandler) Get(w http.ResponseWriter, r *http.Request) {
	rk, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rk)
}

// Update handles PUT /api/v1/risks/{id}.
func (h *RiskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req risk.UpdateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	rk, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rk)
}

// Delete handles DELETE /api/v1/risks/{id}.
func (h *RiskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Heatmap handles GET /api/v1/risks/heatmap.
func (h *RiskHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	heatmap, err := h.service.Heatmap(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, heatmap)
}

// =============================================================================
// Search Handler
// =============================================================================

// SearchHandler handles unified search requests.
type SearchHandler struct {
	service search.Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service search.Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// SearchResponse wraps search hits with query metadata.
type SearchResponse struct {
	Results          []*models.SearchResult `json:"results"`
	Total            int                    `json:"total"`
	Query            string                 `json:"query"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
}

// Search handles GET /api/v1/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	start := time.Now()
	results, err := h.service.Search(r.Context(), query, limit)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Results:          results,
		Total:            len(results),
		Query:            query,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	})
}

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/policy"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/template"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Policy Handler
// =============================================================================

// PolicyHandler handles policy document API requests.
type PolicyHandler struct {
	service policy.Service
}

// NewPolicyHandler creates a new policy handler.
func NewPolicyHandler(service policy.Service) *PolicyHandler {
	return &PolicyHandler{service: service}
}

// Create handles POST /api/v1/policies.
func (h *PolicyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req policy.CreateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// List handles GET /api/v1/policies.
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	q := r.URL.Query()
	filter := policy.Filter{
		Query:    getSearchParam(q),
		Status:   models.PolicyStatus(q.Get("status")),
		Category: q.Get("category"),
	}

	policies, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"policies": policies,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Get handles GET /api/v1/policies/{id}.
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/v1/policies/{id}. Content changes bump the policy
// version and append to the version history.
func (h *PolicyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req policy.UpdateRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/v1/policies/{id}.
func (h *PolicyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TransitionRequest names the target lifecycle status.
type TransitionRequest struct {
	Status models.PolicyStatus `json:"status"`
}

// Transition handles POST /api/v1/policies/{id}/transition.
func (h *PolicyHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	p, err := h.service.Transition(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListVersions handles GET /api/v1/policies/{id}/versions.
func (h *PolicyHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.service.ListVersions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"versions": versions,
		"count":    len(versions),
	})
}

// Acknowledge handles POST /api/v1/policies/{id}/acknowledge. The
// acknowledgment is recorded for the authenticated user against the policy's
// current version.
func (h *PolicyHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "AUTH_REQUIRED", "authentication required")
		return
	}

	ack, err := h.service.Acknowledge(r.Context(), chi.URLParam(r, "id"), user.ID)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ack)
}

// AcknowledgmentStatus handles GET /api/v1/policies/{id}/acknowledgments.
func (h *PolicyHandler) AcknowledgmentStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.AcknowledgmentStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// maxAttachmentSize caps policy attachment uploads at 32 MiB.
const maxAttachmentSize = 32 << 20

// AttachmentResponse describes an accepted policy attachment upload.
type AttachmentResponse struct {
	PolicyID   string    `json:"policy_id"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// UploadAttachment handles POST /api/v1/policies/{id}/attachments. The file
// is accepted as multipart form data under the "file" field. Attachments are
// not persisted, the endpoint validates the upload and reports its metadata.
func (h *PolicyHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	policyID := chi.URLParam(r, "id")
	p, err := h.service.Get(r.Context(), policyID)
	if err != nil {
		handleError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "MISSING_FILE", "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_FILE", "failed to read uploaded file")
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentResponse{
		PolicyID:   p.ID,
		FileName:   header.Filename,
		SizeBytes:  size,
		UploadedAt: time.Now().UTC(),
	})
}

// =============================================================================
// Template Handler
// =============================================================================

// TemplateHandler serves the built-in policy template library.
type TemplateHandler struct {
	service template.Service
}

// NewTemplateHandler creates a new template handler.
func NewTemplateHandler(service template.Service) *TemplateHandler {
	return &TemplateHandler{service: service}
}

// List handles GET /api/v1/policy-templates.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.service.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

// Get handles GET /api/v1/policy-templates/{id}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

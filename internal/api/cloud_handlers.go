package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/cloud"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Cloud Inventory Handler
// =============================================================================

// CloudHandler serves read-only cloud inventory viewers and accepts
// collector snapshot uploads.
type CloudHandler struct {
	service cloud.Service
}

// NewCloudHandler creates a new cloud inventory handler.
func NewCloudHandler(service cloud.Service) *CloudHandler {
	return &CloudHandler{service: service}
}

func cloudFilter(r *http.Request) cloud.Filter {
	q := r.URL.Query()
	return cloud.Filter{
		AccountID:        q.Get("account_id"),
		Region:           q.Get("region"),
		Query:            getSearchParam(q),
		Severity:         q.Get("severity"),
		ComplianceStatus: q.Get("compliance"),
		State:            q.Get("state"),
		EventName:        q.Get("event_name"),
	}
}

// ImportSnapshot handles POST /api/v1/cloud/snapshot.
func (h *CloudHandler) ImportSnapshot(w http.ResponseWriter, r *http.Request) {
	var snapshot models.CloudSnapshot
	if err := readJSON(r, &snapshot); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	if err := h.service.ImportSnapshot(r.Context(), &snapshot); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListS3Buckets handles GET /api/v1/cloud/s3-buckets.
func (h *CloudHandler) ListS3Buckets(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	buckets, total, err := h.service.ListS3Buckets(r.Context(), cloudFilter(r), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"buckets": buckets,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetS3Bucket handles GET /api/v1/cloud/s3-buckets/{id}.
func (h *CloudHandler) GetS3Bucket(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetS3Bucket(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ListEC2Instances handles GET /api/v1/cloud/ec2-instances.
func (h *CloudHandler) ListEC2Instances(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	instances, total, err := h.service.ListEC2Instances(r.Context(), cloudFilter(r), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"instances": instances,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetEC2Instance handles GET /api/v1/cloud/ec2-instances/{id}.
func (h *CloudHandler) GetEC2Instance(w http.ResponseWriter, r *http.Request) {
	in, err := h.service.GetEC2Instance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// ListRDSInstances handles GET /api/v1/cloud/rds-instances.
func (h *CloudHandler) ListRDSInstances(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	instances, total, err := h.service.ListRDSInstances(r.Context(), cloudFilter(r), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"instances": instances,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// GetRDSInstance handles GET /api/v1/cloud/rds-instances/{id}.
func (h *CloudHandler) GetRDSInstance(w http.ResponseWriter, r *http.Request) {
	in, err := h.service.GetRDSInstance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// ListIAMUsers handles GET /api/v1/cloud/iam-users.
func (h *CloudHandler) ListIAMUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	users, total, err := h.service.ListIAMUsers(r.Context(), cloudFilter(r), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetIAMUser handles GET /api/v1/cloud/iam-users/{id}.
func (h *CloudHandler) GetIAMUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetIAMUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ListIAMRoles handles GET /api/v1/cloud/iam-roles.
func (h *CloudHandler) ListIAMRoles(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	roles, total, err := h.service.ListIAMRoles(r.Context(), cloudFilter(r), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"roles":  roles,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetIAMRole handles GET /api/v1/cloud/iam-roles/{id}.
func (h *CloudHandler) GetIAMRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetIAMRole(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

// ListIAMPolicies handles GET /api/v1/cloud/iam-policies.
func (h *CloudHandler) ListIAMPolicies(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	policies, total, err := h.service.ListIAMPolicies(r.Context(), cloudFilter(r), limit, offset)
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

// GetIAMPolicy handles GET /api/v1/cloud/iam-policies/{id}.
func (h *CloudHandler) GetIAMPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetIAMPolicy(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListCloudTrailEvents handles GET /api/v1/cloud/cloudtrail-events.
func (h *CloudHandler) ListCloudTrailEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	events, total, err := h.service.ListCloudTrailEvents(r.Context(), cloudFilter(r), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetCloudTrailEvent handles GET /api/v1/cloud/cloudtrail-events/{id}.
func (h *CloudHandler) GetCloudTrailEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.service.GetCloudTrailEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// ListSecurityHubFindings handles GET /api/v1/cloud/securityhub-findings.
func (h *CloudHandler) ListSecurityHubFindings(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	findings, total, err := h.service.ListSecurityHubFindings(r.Context(), cloudFilter(r), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"findings": findings,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetSecurityHubFinding handles GET /api/v1/cloud/securityhub-findings/{id}.
func (h *CloudHandler) GetSecurityHubFinding(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.GetSecurityHubFinding(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ListConfigRuleResults handles GET /api/v1/cloud/config-rules.
func (h *CloudHandler) ListConfigRuleResults(w http.ResponseWriter, r *http.Request) {
	limit, offset := getPaginationParams(r)
	results, total, err := h.service.ListConfigRuleResults(r.Context(), cloudFilter(r), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetConfigRuleResult handles GET /api/v1/cloud/config-rules/{id}.
func (h *CloudHandler) GetConfigRuleResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.GetConfigRuleResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/auth"
	apierrors "github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Common Helpers
// =============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON reads and validates JSON request body.
func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return err
	}
	defer func() { _ = r.Body.Close() }()
	return json.Unmarshal(body, v)
}

// handleError writes appropriate error response based on error type.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apierrors.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, apierrors.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, apierrors.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, apierrors.ErrSystemFramework):
		writeJSONError(w, http.StatusForbidden, "SYSTEM_FRAMEWORK", err.Error())
	case errors.Is(err, apierrors.ErrInvalidTransition):
		writeJSONError(w, http.StatusBadRequest, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, apierrors.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, apierrors.ErrConflict):
		writeJSONError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, apierrors.ErrIntegrationSync):
		writeJSONError(w, http.StatusBadGateway, "INTEGRATION_SYNC_FAILED", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// currentUser extracts the authenticated user from context.
func currentUser(r *http.Request) *models.User {
	if user, ok := r.Context().Value(ContextKeyUser).(*models.User); ok {
		return user
	}
	return nil
}

// getPaginationParams extracts limit and offset from query params.
func getPaginationParams(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return
}

// getSearchParam extracts the free-text list filter. The documented
// parameter is "search"; "q" is accepted as a shorthand.
func getSearchParam(q url.Values) string {
	if s := q.Get("search"); s != "" {
		return s
	}
	return q.Get("q")
}

// =============================================================================
// Auth Handler
// =============================================================================

// AuthHandler handles SSO login and session introspection.
type AuthHandler struct {
	exchanger *auth.SSOExchanger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(exchanger *auth.SSOExchanger) *AuthHandler {
	return &AuthHandler{exchanger: exchanger}
}

// SSOExchangeRequest carries the authorization code from the SSO callback.
type SSOExchangeRequest struct {
	Code string `json:"code"`
}

// Exchange handles POST /api/v1/auth/sso/exchange.
func (h *AuthHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req SSOExchangeRequest
	if err := readJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	session, err := h.exchanger.Exchange(r.Context(), req.Code)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, "AUTH_REQUIRED", "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

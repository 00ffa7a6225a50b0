// Package client provides an HTTP client for the GRC API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Client is the GRC API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// New creates a new GRC API client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		token: cfg.Token,
	}
}

// SetToken sets the authentication token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// APIError is an error response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// errorEnvelope matches the server's error shape.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// request makes an HTTP request to the API.
func (c *Client) request(ctx context.Context, method, path string, body, result any) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build URL: %w", err)
	}
	// JoinPath escapes the query string, so append it afterwards.
	if i := indexQuery(path); i >= 0 {
		u, err = url.JoinPath(c.baseURL, path[:i])
		if err != nil {
			return fmt.Errorf("build URL: %w", err)
		}
		u += path[i:]
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures carry status 0 so callers can distinguish them
		// from server rejections.
		return &APIError{Status: 0, Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Message: string(respBody)}
		var envelope errorEnvelope
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error.Message != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

func indexQuery(path string) int {
	for i := 0; i < len(path); i++ {
		if path[i] == '?' {
			return i
		}
	}
	return -1
}

// Auth API

// SSOExchangeRequest carries the SSO authorization code.
type SSOExchangeRequest struct {
	Code string `json:"code"`
}

// Session is an issued session token and its user.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// ExchangeSSOCode trades an authorization code for a session token. The
// client keeps the token for subsequent requests.
func (c *Client) ExchangeSSOCode(ctx context.Context, code string) (*Session, error) {
	var result Session
	if err := c.request(ctx, http.MethodPost, "/api/v1/auth/sso/exchange", SSOExchangeRequest{Code: code}, &result); err != nil {
		return nil, err
	}
	c.token = result.Token
	return &result, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var result models.User
	if err := c.request(ctx, http.MethodGet, "/api/v1/auth/me", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// listQuery builds a list query string from pagination plus optional
// filter params. Empty values are omitted.
func listQuery(limit, offset int, params map[string]string) string {
	v := url.Values{}
	v.Set("limit", fmt.Sprintf("%d", limit))
	v.Set("offset", fmt.Sprintf("%d", offset))
	for key, val := range params {
		if val != "" {
			v.Set(key, val)
		}
	}
	return v.Encode()
}

// Vendor API

// VendorList is a page of vendors.
type VendorList struct {
	Vendors []*models.Vendor `json:"vendors"`
	Total   int              `json:"total"`
}

// VendorFilter narrows vendor listings. Zero fields are omitted.
type VendorFilter struct {
	Search      string
	Status      string
	Criticality string
	Category    string
}

// ListVendors lists vendors matching the filter.
func (c *Client) ListVendors(ctx context.Context, filter VendorFilter, limit, offset int) (*VendorList, error) {
	path := "/api/v1/vendors?" + listQuery(limit, offset, map[string]string{
		"search":      filter.Search,
		"status":      filter.Status,
		"criticality": filter.Criticality,
		"category":    filter.Category,
	})
	var result VendorList
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetVendor retrieves a vendor by ID.
func (c *Client) GetVendor(ctx context.Context, id string) (*models.Vendor, error) {
	var result models.Vendor
	if err := c.request(ctx, http.MethodGet, "/api/v1/vendors/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateVendor creates a new vendor. The request body mirrors the server's
// vendor creation request.
func (c *Client) CreateVendor(ctx context.Context, req any) (*models.Vendor, error) {
	var result models.Vendor
	if err := c.request(ctx, http.MethodPost, "/api/v1/vendors", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteVendor removes a vendor.
func (c *Client) DeleteVendor(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "/api/v1/vendors/"+id, nil, nil)
}

// Framework API

// FrameworkList is a page of frameworks.
type FrameworkList struct {
	Frameworks []*models.Framework `json:"frameworks"`
	Total      int                 `json:"total"`
}

// FrameworkFilter narrows framework listings. Zero fields are omitted.
type FrameworkFilter struct {
	Search   string
	Category string
}

// ListFrameworks lists frameworks matching the filter.
func (c *Client) ListFrameworks(ctx context.Context, filter FrameworkFilter, limit, offset int) (*FrameworkList, error) {
	path := "/api/v1/frameworks?" + listQuery(limit, offset, map[string]string{
		"search":   filter.Search,
		"category": filter.Category,
	})
	var result FrameworkList
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetFramework retrieves a framework by ID.
func (c *Client) GetFramework(ctx context.Context, id string) (*models.Framework, error) {
	var result models.Framework
	if err := c.request(ctx, http.MethodGet, "/api/v1/frameworks/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RequirementList is a framework's requirements.
type RequirementList struct {
	Requirements []*models.FrameworkRequirement `json:"requirements"`
	Count        int                            `json:"count"`
}

// ListRequirements lists a framework's requirements.
func (c *Client) ListRequirements(ctx context.Context, frameworkID string) (*RequirementList, error) {
	var result RequirementList
	if err := c.request(ctx, http.MethodGet, "/api/v1/frameworks/"+frameworkID+"/requirements", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GapAnalysis reports framework coverage by implemented controls.
type GapAnalysis struct {
	FrameworkID       string        `json:"framework_id"`
	FrameworkName     string        `json:"framework_name"`
	TotalRequirements int           `json:"total_requirements"`
	MappedAny         int           `json:"mapped_any"`
	MappedImplemented int           `json:"mapped_implemented"`
	CoveragePercent   float64       `json:"coverage_percent"`
	Categories        []CategoryGap `json:"categories"`
}

// CategoryGap reports coverage for one requirement category.
type CategoryGap struct {
	Category          string  `json:"category"`
	TotalRequirements int     `json:"total_requirements"`
	MappedAny         int     `json:"mapped_any"`
	MappedImplemented int     `json:"mapped_implemented"`
	CoveragePercent   float64 `json:"coverage_percent"`
}

// GetGapAnalysis retrieves framework coverage.
func (c *Client) GetGapAnalysis(ctx context.Context, frameworkID string) (*GapAnalysis, error) {
	var result GapAnalysis
	if err := c.request(ctx, http.MethodGet, "/api/v1/frameworks/"+frameworkID+"/gap-analysis", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Control API

// ControlList is a page of controls.
type ControlList struct {
	Controls []*models.Control `json:"controls"`
	Total    int               `json:"total"`
}

// ControlFilter narrows control listings. Zero fields are omitted.
type ControlFilter struct {
	Search      string
	ControlType string
	Status      string
	FrameworkID string
}

// ListControls lists controls matching the filter.
func (c *Client) ListControls(ctx context.Context, filter ControlFilter, limit, offset int) (*ControlList, error) {
	path := "/api/v1/controls?" + listQuery(limit, offset, map[string]string{
		"search":       filter.Search,
		"type":         filter.ControlType,
		"status":       filter.Status,
		"framework_id": filter.FrameworkID,
	})
	var result ControlList
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetControl retrieves a control by ID.
func (c *Client) GetControl(ctx context.Context, id string) (*models.Control, error) {
	var result models.Control
	if err := c.request(ctx, http.MethodGet, "/api/v1/controls/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Asset API

// AssetList is a page of assets.
type AssetList struct {
	Assets []*models.Asset `json:"assets"`
	Total  int             `json:"total"`
}

// AssetFilter narrows asset listings. Zero fields are omitted.
type AssetFilter struct {
	Search         string
	AssetType      string
	Category       string
	Classification string
	LifecycleStage string
	Source         string
}

// ListAssets lists assets matching the filter.
func (c *Client) ListAssets(ctx context.Context, filter AssetFilter, limit, offset int) (*AssetList, error) {
	path := "/api/v1/assets?" + listQuery(limit, offset, map[string]string{
		"search":         filter.Search,
		"type":           filter.AssetType,
		"category":       filter.Category,
		"classification": filter.Classification,
		"lifecycle":      filter.LifecycleStage,
		"source":         filter.Source,
	})
	var result AssetList
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAsset retrieves an asset by ID.
func (c *Client) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	var result models.Asset
	if err := c.request(ctx, http.MethodGet, "/api/v1/assets/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Policy API

// PolicyList is a page of policies.
type PolicyList struct {
	Policies []*models.PolicyDocument `json:"policies"`
	Total    int                      `json:"total"`
}

// PolicyFilter narrows policy listings. Zero fields are omitted.
type PolicyFilter struct {
	Search   string
	Status   string
	Category string
}

// ListPolicies lists policies matching the filter.
func (c *Client) ListPolicies(ctx context.Context, filter PolicyFilter, limit, offset int) (*PolicyList, error) {
	path := "/api/v1/policies?" + listQuery(limit, offset, map[string]string{
		"search":   filter.Search,
		"status":   filter.Status,
		"category": filter.Category,
	})
	var result PolicyList
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPolicy retrieves a policy by ID.
func (c *Client) GetPolicy(ctx context.Context, id string) (*models.PolicyDocument, error) {
	var result models.PolicyDocument
	if err := c.request(ctx, http.MethodGet, "/api/v1/policies/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// TransitionPolicy moves a policy through its publication lifecycle.
func (c *Client) TransitionPolicy(ctx context.Context, id string, status models.PolicyStatus) (*models.PolicyDocument, error) {
	var result models.PolicyDocument
	body := map[string]models.PolicyStatus{"status": status}
	if err := c.request(ctx, http.MethodPost, "/api/v1/policies/"+id+"/transition", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AcknowledgePolicy records the caller's acknowledgment of a policy.
func (c *Client) AcknowledgePolicy(ctx context.Context, id string) (*models.PolicyAcknowledgment, error) {
	var result models.PolicyAcknowledgment
	if err := c.request(ctx, http.MethodPost, "/api/v1/policies/"+id+"/acknowledge", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Task API

// TaskList is a page of tasks.
type TaskList struct {
	Tasks []*models.Task `json:"tasks"`
	Total int            `json:"total"`
}

// TaskFilter narrows task listings. Zero fields are omitted.
type TaskFilter struct {
	Search   string
	Status   string
	Priority string
	Assignee string
	TaskType string
	Overdue  bool
}

// ListTasks lists tasks matching the filter.
func (c *Client) ListTasks(ctx context.Context, filter TaskFilter, limit, offset int) (*TaskList, error) {
	params := map[string]string{
		"search":   filter.Search,
		"status":   filter.Status,
		"priority": filter.Priority,
		"assignee": filter.Assignee,
		"type":     filter.TaskType,
	}
	if filter.Overdue {
		params["overdue"] = "true"
	}
	path := "/api/v1/tasks?" + listQuery(limit, offset, params)
	var result TaskList
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTask retrieves a task by ID.
func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var result models.Task
	if err := c.request(ctx, http.MethodGet, "/api/v1/tasks/"+id, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Risk API

// RiskList is a page of risks.
type RiskList struct {
	Risks []*models.Risk `json:"risks"`
	Total int            `json:"total"`
}

// RiskFilter narrows risk listings. Zero fields are omitted.
type RiskFilter struct {
	Search   string
	Status   string
	Category string
	Level    string
	Owner    string
}

// ListRisks lists risks matching the filter.
func (c *Client) ListRisks(ctx context.Context, filter RiskFilter, limit, offset int) (*RiskList, error) {
	path := "/api/v1/risks?" + listQuery(limit, offset, map[string]string{
		"search":   filter.Search,
		"status":   filter.Status,
		"category": filter.Category,
		"level":    filter.Level,
		"owner":    filter.Owner,
	})
	var result RiskList
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// HeatmapCell is one likelihood/impact cell with its risk count.
type HeatmapCell struct {
	Likelihood int              `json:"likelihood"`
	Impact     int              `json:"impact"`
	Level      models.RiskLevel `json:"level"`
	Count      int              `json:"count"`
}

// Heatmap is the likelihood/impact matrix plus per-level totals.
type Heatmap struct {
	Cells   []HeatmapCell  `json:"cells"`
	ByLevel map[string]int `json:"by_level"`
	Total   int            `json:"total"`
}

// GetRiskHeatmap retrieves the risk heatmap.
func (c *Client) GetRiskHeatmap(ctx context.Context) (*Heatmap, error) {
	var result Heatmap
	if err := c.request(ctx, http.MethodGet, "/api/v1/risks/heatmap", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search API

// SearchResponse wraps search hits with query metadata.
type SearchResponse struct {
	Results          []*models.SearchResult `json:"results"`
	Total            int                    `json:"total"`
	Query            string                 `json:"query"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
}

// Search runs a unified search.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	path := "/api/v1/search?q=" + url.QueryEscape(query)
	if limit > 0 {
		path += fmt.Sprintf("&limit=%d", limit)
	}
	var result SearchResponse
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Integration API

// IntegrationStatus reports a registered integration and its last sync.
type IntegrationStatus struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	LastCount   int        `json:"last_count"`
	LastError   string     `json:"last_error,omitempty"`
}

// IntegrationStatusList wraps integration statuses.
type IntegrationStatusList struct {
	Integrations []*IntegrationStatus `json:"integrations"`
	Count        int                  `json:"count"`
}

// ListIntegrations lists registered integrations and their sync state.
func (c *Client) ListIntegrations(ctx context.Context) (*IntegrationStatusList, error) {
	var result IntegrationStatusList
	if err := c.request(ctx, http.MethodGet, "/api/v1/integrations", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SyncResult reports one provider sync run.
type SyncResult struct {
	Provider string    `json:"provider"`
	Synced   int       `json:"synced"`
	SyncedAt time.Time `json:"synced_at"`
}

// SyncIntegration runs a sync for one provider.
func (c *Client) SyncIntegration(ctx context.Context, name string) (*SyncResult, error) {
	var result SyncResult
	if err := c.request(ctx, http.MethodPost, "/api/v1/integrations/"+name+"/sync", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health checks API health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.request(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

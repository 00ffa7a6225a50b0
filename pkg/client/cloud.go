package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Feature API

// Features reports which optional server features are enabled.
type Features struct {
	Search bool `json:"search"`
}

// GetFeatures fetches the server's feature status. Callers use it to decide
// whether to render optional controls such as search.
func (c *Client) GetFeatures(ctx context.Context) (*Features, error) {
	var result Features
	if err := c.request(ctx, http.MethodGet, "/api/v1/features", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Cloud inventory API

// CloudFilter narrows cloud inventory listings. Zero fields are omitted.
type CloudFilter struct {
	AccountID        string
	Region           string
	Query            string
	Severity         string
	ComplianceStatus string
	State            string
	EventName        string
}

func (f CloudFilter) encode(limit, offset int) string {
	v := url.Values{}
	v.Set("limit", fmt.Sprintf("%d", limit))
	v.Set("offset", fmt.Sprintf("%d", offset))
	if f.AccountID != "" {
		v.Set("account_id", f.AccountID)
	}
	if f.Region != "" {
		v.Set("region", f.Region)
	}
	if f.Query != "" {
		v.Set("search", f.Query)
	}
	if f.Severity != "" {
		v.Set("severity", f.Severity)
	}
	if f.ComplianceStatus != "" {
		v.Set("compliance", f.ComplianceStatus)
	}
	if f.State != "" {
		v.Set("state", f.State)
	}
	if f.EventName != "" {
		v.Set("event_name", f.EventName)
	}
	return v.Encode()
}

// S3BucketList is a page of collected buckets.
type S3BucketList struct {
	Buckets []*models.S3Bucket `json:"buckets"`
	Total   int                `json:"total"`
}

// ListS3Buckets lists collected object storage buckets.
func (c *Client) ListS3Buckets(ctx context.Context, filter CloudFilter, limit, offset int) (*S3BucketList, error) {
	var result S3BucketList
	path := "/api/v1/cloud/s3-buckets?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EC2InstanceList is a page of collected compute instances.
type EC2InstanceList struct {
	Instances []*models.EC2Instance `json:"instances"`
	Total     int                   `json:"total"`
}

// ListEC2Instances lists collected compute instances.
func (c *Client) ListEC2Instances(ctx context.Context, filter CloudFilter, limit, offset int) (*EC2InstanceList, error) {
	var result EC2InstanceList
	path := "/api/v1/cloud/ec2-instances?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RDSInstanceList is a page of collected database instances.
type RDSInstanceList struct {
	Instances []*models.RDSInstance `json:"instances"`
	Total     int                   `json:"total"`
}

// ListRDSInstances lists collected managed database instances.
func (c *Client) ListRDSInstances(ctx context.Context, filter CloudFilter, limit, offset int) (*RDSInstanceList, error) {
	var result RDSInstanceList
	path := "/api/v1/cloud/rds-instances?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IAMUserList is a page of collected identity users.
type IAMUserList struct {
	Users []*models.IAMUser `json:"users"`
	Total int               `json:"total"`
}

// ListIAMUsers lists collected identity users.
func (c *Client) ListIAMUsers(ctx context.Context, filter CloudFilter, limit, offset int) (*IAMUserList, error) {
	var result IAMUserList
	path := "/api/v1/cloud/iam-users?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IAMRoleList is a page of collected identity roles.
type IAMRoleList struct {
	Roles []*models.IAMRole `json:"roles"`
	Total int               `json:"total"`
}

// ListIAMRoles lists collected identity roles.
func (c *Client) ListIAMRoles(ctx context.Context, filter CloudFilter, limit, offset int) (*IAMRoleList, error) {
	var result IAMRoleList
	path := "/api/v1/cloud/iam-roles?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IAMPolicyList is a page of collected identity policies.
type IAMPolicyList struct {
	Policies []*models.IAMPolicy `json:"policies"`
	Total    int                 `json:"total"`
}

// ListIAMPolicies lists collected identity policies.
func (c *Client) ListIAMPolicies(ctx context.Context, filter CloudFilter, limit, offset int) (*IAMPolicyList, error) {
	var result IAMPolicyList
	path := "/api/v1/cloud/iam-policies?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CloudTrailEventList is a page of collected audit events.
type CloudTrailEventList struct {
	Events []*models.CloudTrailEvent `json:"events"`
	Total  int                       `json:"total"`
}

// ListCloudTrailEvents lists collected API audit events, newest first.
func (c *Client) ListCloudTrailEvents(ctx context.Context, filter CloudFilter, limit, offset int) (*CloudTrailEventList, error) {
	var result CloudTrailEventList
	path := "/api/v1/cloud/cloudtrail-events?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SecurityHubFindingList is a page of collected security findings.
type SecurityHubFindingList struct {
	Findings []*models.SecurityHubFinding `json:"findings"`
	Total    int                          `json:"total"`
}

// ListSecurityHubFindings lists collected security findings.
func (c *Client) ListSecurityHubFindings(ctx context.Context, filter CloudFilter, limit, offset int) (*SecurityHubFindingList, error) {
	var result SecurityHubFindingList
	path := "/api/v1/cloud/securityhub-findings?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConfigRuleResultList is a page of collected compliance evaluations.
type ConfigRuleResultList struct {
	Results []*models.ConfigRuleResult `json:"results"`
	Total   int                        `json:"total"`
}

// ListConfigRuleResults lists collected rule compliance evaluations.
func (c *Client) ListConfigRuleResults(ctx context.Context, filter CloudFilter, limit, offset int) (*ConfigRuleResultList, error) {
	var result ConfigRuleResultList
	path := "/api/v1/cloud/config-rules?" + filter.encode(limit, offset)
	if err := c.request(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ImportCloudSnapshot replaces the account's stored inventory with the
// snapshot contents. Collector agents call this after each run.
func (c *Client) ImportCloudSnapshot(ctx context.Context, snapshot *models.CloudSnapshot) error {
	return c.request(ctx, http.MethodPost, "/api/v1/cloud/snapshot", snapshot, nil)
}

// Attachments

// Attachment describes an accepted policy attachment upload.
type Attachment struct {
	PolicyID   string `json:"policy_id"`
	FileName   string `json:"file_name"`
	SizeBytes  int64  `json:"size_bytes"`
	UploadedAt string `json:"uploaded_at"`
}

// UploadPolicyAttachment uploads a file as a policy attachment.
func (c *Client) UploadPolicyAttachment(ctx context.Context, policyID, filename string, file io.Reader) (*Attachment, error) {
	var result Attachment
	path := "/api/v1/policies/" + policyID + "/attachments"
	if err := c.upload(ctx, path, "file", filename, file, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// upload sends a single file as multipart form data.
func (c *Client) upload(ctx context.Context, path, field, filename string, file io.Reader, result any) error {
	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build URL: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
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

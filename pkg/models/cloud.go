package models

import (
	"encoding/json"
	"time"
)

// Cloud inventory records are populated by external collector agents, never
// by users. Derived security flags are recomputed on every read so they
// always reflect the stored facts.

// S3Bucket is a collected object storage bucket.
type S3Bucket struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	AccountID         string    `json:"account_id"`
	Region            string    `json:"region"`
	PublicACL         bool      `json:"public_acl"`
	PublicPolicy      bool      `json:"public_policy"`
	EncryptionEnabled bool      `json:"encryption_enabled"`
	VersioningEnabled bool      `json:"versioning_enabled"`
	LoggingEnabled    bool      `json:"logging_enabled"`
	BucketCreatedAt   time.Time `json:"bucket_created_at"`
	LastSyncedAt      time.Time `json:"last_synced_at"`

	// Derived
	Public    bool `json:"public"`
	RiskScore int  `json:"risk_score"`
}

// Derive recomputes the bucket's security flags.
func (b *S3Bucket) Derive() {
	b.Public = b.PublicACL || b.PublicPolicy
	score := 0
	if b.Public {
		score += 5
	}
	if !b.EncryptionEnabled {
		score += 3
	}
	if !b.VersioningEnabled {
		score++
	}
	if !b.LoggingEnabled {
		score++
	}
	b.RiskScore = score
}

// EC2Instance is a collected compute instance.
type EC2Instance struct {
	ID             string    `json:"id"`
	InstanceID     string    `json:"instance_id"`
	Name           string    `json:"name,omitempty"`
	InstanceType   string    `json:"instance_type"`
	State          string    `json:"state"`
	AccountID      string    `json:"account_id"`
	Region         string    `json:"region"`
	PublicIP       string    `json:"public_ip,omitempty"`
	PrivateIP      string    `json:"private_ip,omitempty"`
	IMDSv2Required bool      `json:"imdsv2_required"`
	LaunchedAt     time.Time `json:"launched_at"`
	LastSyncedAt   time.Time `json:"last_synced_at"`

	// Derived
	PubliclyAccessible bool `json:"publicly_accessible"`
	RiskScore          int  `json:"risk_score"`
}

// Derive recomputes the instance's security flags.
func (i *EC2Instance) Derive() {
	i.PubliclyAccessible = i.PublicIP != ""
	score := 0
	if i.PubliclyAccessible {
		score += 4
	}
	if !i.IMDSv2Required {
		score += 2
	}
	i.RiskScore = score
}

// RDSInstance is a collected managed database instance.
type RDSInstance struct {
	ID                 string    `json:"id"`
	Identifier         string    `json:"identifier"`
	Engine             string    `json:"engine"`
	EngineVersion      string    `json:"engine_version,omitempty"`
	Status             string    `json:"status"`
	AccountID          string    `json:"account_id"`
	Region             string    `json:"region"`
	StorageEncrypted   bool      `json:"storage_encrypted"`
	PubliclyAccessible bool      `json:"publicly_accessible"`
	MultiAZ            bool      `json:"multi_az"`
	LastSyncedAt       time.Time `json:"last_synced_at"`

	// Derived
	RiskScore int `json:"risk_score"`
}

// Derive recomputes the instance's security flags.
func (r *RDSInstance) Derive() {
	score := 0
	if r.PubliclyAccessible {
		score += 5
	}
	if !r.StorageEncrypted {
		score += 3
	}
	if !r.MultiAZ {
		score++
	}
	r.RiskScore = score
}

// IAMUser is a collected identity user.
type IAMUser struct {
	ID               string     `json:"id"`
	UserName         string     `json:"user_name"`
	ARN              string     `json:"arn"`
	AccountID        string     `json:"account_id"`
	MFAEnabled       bool       `json:"mfa_enabled"`
	AccessKeyCount   int        `json:"access_key_count"`
	PasswordLastUsed *time.Time `json:"password_last_used,omitempty"`
	UserCreatedAt    time.Time  `json:"user_created_at"`
	LastSyncedAt     time.Time  `json:"last_synced_at"`

	// Derived
	RiskScore int `json:"risk_score"`
}

// Derive recomputes the user's security flags.
func (u *IAMUser) Derive() {
	score := 0
	if !u.MFAEnabled {
		score += 4
	}
	if u.AccessKeyCount > 1 {
		score += 2
	}
	u.RiskScore = score
}

// IAMRole is a collected identity role.
type IAMRole struct {
	ID            string     `json:"id"`
	RoleName      string     `json:"role_name"`
	ARN           string     `json:"arn"`
	AccountID     string     `json:"account_id"`
	TrustPolicy   string     `json:"trust_policy,omitempty"`
	RoleLastUsed  *time.Time `json:"role_last_used,omitempty"`
	RoleCreatedAt time.Time  `json:"role_created_at"`
	LastSyncedAt  time.Time  `json:"last_synced_at"`

	// Derived
	WildcardTrust bool `json:"wildcard_trust"`
	RiskScore     int  `json:"risk_score"`
}

// Derive recomputes the role's security flags.
func (r *IAMRole) Derive() {
	r.WildcardTrust = policyHasWildcardPrincipal(r.TrustPolicy)
	score := 0
	if r.WildcardTrust {
		score += 5
	}
	r.RiskScore = score
}

// IAMPolicy is a collected identity policy document.
type IAMPolicy struct {
	ID              string    `json:"id"`
	PolicyName      string    `json:"policy_name"`
	ARN             string    `json:"arn"`
	AccountID       string    `json:"account_id"`
	Document        string    `json:"document,omitempty"`
	AttachmentCount int       `json:"attachment_count"`
	AWSManaged      bool      `json:"aws_managed"`
	LastSyncedAt    time.Time `json:"last_synced_at"`

	// Derived
	WildcardActions   bool `json:"wildcard_actions"`
	WildcardResources bool `json:"wildcard_resources"`
	RiskScore         int  `json:"risk_score"`
}

// Derive recomputes the policy's security flags.
func (p *IAMPolicy) Derive() {
	p.WildcardActions, p.WildcardResources = policyWildcards(p.Document)
	score := 0
	if p.WildcardActions {
		score += 3
	}
	if p.WildcardResources {
		score += 3
	}
	if p.WildcardActions && p.WildcardResources {
		score += 2
	}
	p.RiskScore = score
}

// CloudTrailEvent is a collected API audit event.
type CloudTrailEvent struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	EventName    string    `json:"event_name"`
	EventSource  string    `json:"event_source"`
	Username     string    `json:"username,omitempty"`
	AccountID    string    `json:"account_id"`
	Region       string    `json:"region"`
	SourceIP     string    `json:"source_ip,omitempty"`
	ReadOnly     bool      `json:"read_only"`
	EventTime    time.Time `json:"event_time"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// SecurityHubFinding is a collected security finding.
type SecurityHubFinding struct {
	ID              string    `json:"id"`
	FindingID       string    `json:"finding_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Severity        string    `json:"severity"`
	ResourceType    string    `json:"resource_type,omitempty"`
	ResourceID      string    `json:"resource_id,omitempty"`
	Status          string    `json:"status"`
	WorkflowState   string    `json:"workflow_state,omitempty"`
	AccountID       string    `json:"account_id"`
	Region          string    `json:"region"`
	FirstObservedAt time.Time `json:"first_observed_at"`
	LastObservedAt  time.Time `json:"last_observed_at"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
}

// ConfigRuleResult is one resource's compliance evaluation against a rule.
type ConfigRuleResult struct {
	ID               string    `json:"id"`
	RuleName         string    `json:"rule_name"`
	ResourceType     string    `json:"resource_type"`
	ResourceID       string    `json:"resource_id"`
	ComplianceStatus string    `json:"compliance_status"`
	Annotation       string    `json:"annotation,omitempty"`
	AccountID        string    `json:"account_id"`
	Region           string    `json:"region"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
	LastSyncedAt     time.Time `json:"last_synced_at"`
}

// CloudSnapshot is a full inventory snapshot one collector run pushes for a
// single account. Import replaces the account's previous snapshot.
type CloudSnapshot struct {
	AccountID           string                `json:"account_id"`
	S3Buckets           []*S3Bucket           `json:"s3_buckets,omitempty"`
	EC2Instances        []*EC2Instance        `json:"ec2_instances,omitempty"`
	RDSInstances        []*RDSInstance        `json:"rds_instances,omitempty"`
	IAMUsers            []*IAMUser            `json:"iam_users,omitempty"`
	IAMRoles            []*IAMRole            `json:"iam_roles,omitempty"`
	IAMPolicies         []*IAMPolicy          `json:"iam_policies,omitempty"`
	CloudTrailEvents    []*CloudTrailEvent    `json:"cloudtrail_events,omitempty"`
	SecurityHubFindings []*SecurityHubFinding `json:"securityhub_findings,omitempty"`
	ConfigRuleResults   []*ConfigRuleResult   `json:"config_rule_results,omitempty"`
}

// policyStatement is the subset of an IAM policy statement the wildcard
// checks need. Action, Resource and principal entries may be a single string
// or a list.
type policyStatement struct {
	Effect    string          `json:"Effect"`
	Action    json.RawMessage `json:"Action"`
	Resource  json.RawMessage `json:"Resource"`
	Principal json.RawMessage `json:"Principal"`
}

type policyDocument struct {
	Statement []policyStatement `json:"Statement"`
}

// policyWildcards reports whether any Allow statement uses a wildcard action
// or a wildcard resource. Malformed documents report no wildcards.
func policyWildcards(document string) (actions, resources bool) {
	if document == "" {
		return false, false
	}
	var doc policyDocument
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return false, false
	}
	for _, st := range doc.Statement {
		if st.Effect != "Allow" {
			continue
		}
		if rawContainsWildcard(st.Action) {
			actions = true
		}
		if rawContainsWildcard(st.Resource) {
			resources = true
		}
	}
	return actions, resources
}

// policyHasWildcardPrincipal reports whether any Allow statement of a trust
// policy names "*" as its principal, directly or as the AWS principal.
func policyHasWildcardPrincipal(document string) bool {
	if document == "" {
		return false
	}
	var doc policyDocument
	if err := json.Unmarshal([]byte(document), &doc); err != nil {
		return false
	}
	for _, st := range doc.Statement {
		if st.Effect != "Allow" || len(st.Principal) == 0 {
			continue
		}
		var direct string
		if err := json.Unmarshal(st.Principal, &direct); err == nil {
			if direct == "*" {
				return true
			}
			continue
		}
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(st.Principal, &nested); err != nil {
			continue
		}
		if rawContainsWildcard(nested["AWS"]) {
			return true
		}
	}
	return false
}

// rawContainsWildcard reports whether a string-or-list JSON value contains "*".
func rawContainsWildcard(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single == "*"
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return false
	}
	for _, v := range list {
		if v == "*" {
			return true
		}
	}
	return false
}

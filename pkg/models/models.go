// Package models defines the core domain types for the GRC platform.
package models

import (
	"time"
)

// Criticality represents how critical a vendor or risk rating is to the business.
type Criticality string

const (
	CriticalityCritical Criticality = "critical"
	CriticalityHigh     Criticality = "high"
	CriticalityMedium   Criticality = "medium"
	CriticalityLow      Criticality = "low"
)

// DataClassification represents the sensitivity of data an entity handles.
type DataClassification string

const (
	DataClassificationPublic       DataClassification = "public"
	DataClassificationInternal     DataClassification = "internal"
	DataClassificationConfidential DataClassification = "confidential"
	DataClassificationRestricted   DataClassification = "restricted"
)

// VendorStatus represents the operating status of a vendor relationship.
type VendorStatus string

const (
	VendorStatusActive      VendorStatus = "active"
	VendorStatusInactive    VendorStatus = "inactive"
	VendorStatusUnderReview VendorStatus = "under_review"
)

// Vendor represents a third party the organization does business with.
// LastRiskRating, LastAssessmentDate and NextAssessmentDate are derived from
// the most recent assessment and never set directly.
type Vendor struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	Description        string              `json:"description,omitempty"`
	Category           string              `json:"category,omitempty"`
	Criticality        Criticality         `json:"criticality"`
	DataClassification DataClassification  `json:"data_classification,omitempty"`
	Status             VendorStatus        `json:"status"`
	Website            string              `json:"website,omitempty"`
	ContractStart      *time.Time          `json:"contract_start,omitempty"`
	ContractEnd        *time.Time          `json:"contract_end,omitempty"`
	LastRiskRating     Criticality         `json:"last_risk_rating,omitempty"`
	LastAssessmentDate *time.Time          `json:"last_assessment_date,omitempty"`
	NextAssessmentDate *time.Time          `json:"next_assessment_date,omitempty"`
	Assessments        []*VendorAssessment `json:"assessments,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// VendorAssessment represents a single risk assessment of a vendor.
type VendorAssessment struct {
	ID                 string      `json:"id"`
	VendorID           string      `json:"vendor_id"`
	AssessmentType     string      `json:"assessment_type"`
	RiskRating         Criticality `json:"risk_rating"`
	Findings           string      `json:"findings,omitempty"`
	Recommendations    string      `json:"recommendations,omitempty"`
	AssessedAt         time.Time   `json:"assessed_at"`
	NextAssessmentDate *time.Time  `json:"next_assessment_date,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// ControlType classifies how a control acts on risk.
type ControlType string

const (
	ControlTypePreventive ControlType = "preventive"
	ControlTypeDetective  ControlType = "detective"
	ControlTypeCorrective ControlType = "corrective"
)

// ControlStatus represents the implementation state of a control.
type ControlStatus string

const (
	ControlStatusNotImplemented ControlStatus = "not_implemented"
	ControlStatusInProgress     ControlStatus = "in_progress"
	ControlStatusImplemented    ControlStatus = "implemented"
	ControlStatusNotApplicable  ControlStatus = "not_applicable"
)

// Control represents an internal control mapped against framework requirements.
type Control struct {
	ID                  string                  `json:"id"`
	Code                string                  `json:"code"`
	Name                string                  `json:"name"`
	Description         string                  `json:"description,omitempty"`
	ControlType         ControlType             `json:"control_type"`
	Frequency           string                  `json:"frequency,omitempty"`
	Status              ControlStatus           `json:"status"`
	ImplementationNotes string                  `json:"implementation_notes,omitempty"`
	MappedRequirements  []*FrameworkRequirement `json:"mapped_requirements,omitempty"`
	LinkedAssets        []*Asset                `json:"linked_assets,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// Framework represents a compliance framework (e.g. SOC 2, ISO 27001).
// System frameworks ship with the platform and are not user-editable.
type Framework struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FrameworkRequirement is one requirement within a framework. Requirements
// form a tree via ParentID; SortOrder orders siblings and Category groups
// root-level requirements for display.
type FrameworkRequirement struct {
	ID          string    `json:"id"`
	FrameworkID string    `json:"framework_id"`
	ParentID    string    `json:"parent_id,omitempty"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LifecycleStage represents where an asset is in its lifecycle.
type LifecycleStage string

const (
	LifecycleStageProcurement     LifecycleStage = "procurement"
	LifecycleStageDeployment      LifecycleStage = "deployment"
	LifecycleStageActive          LifecycleStage = "active"
	LifecycleStageMaintenance     LifecycleStage = "maintenance"
	LifecycleStageDecommissioning LifecycleStage = "decommissioning"
	LifecycleStageDecommissioned  LifecycleStage = "decommissioned"
)

// Asset represents a tracked asset, either user-created or synced from an
// external integration (IntegrationSource and ExternalID set by the collector).
type Asset struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	AssetType         string             `json:"asset_type,omitempty"`
	Category          string             `json:"category,omitempty"`
	Classification    DataClassification `json:"classification,omitempty"`
	Status            string             `json:"status,omitempty"`
	Location          string             `json:"location,omitempty"`
	IPAddress         string             `json:"ip_address,omitempty"`
	LifecycleStage    LifecycleStage     `json:"lifecycle_stage,omitempty"`
	MaintenanceExpiry *time.Time         `json:"maintenance_expiry,omitempty"`
	SupportExpiry     *time.Time         `json:"support_expiry,omitempty"`
	IntegrationSource string             `json:"integration_source,omitempty"`
	ExternalID        string             `json:"external_id,omitempty"`
	LastSyncedAt      *time.Time         `json:"last_synced_at,omitempty"`
	LinkedControls    []*Control         `json:"linked_controls,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// PolicyStatus represents the publication state of a policy document.
type PolicyStatus string

const (
	PolicyStatusDraft           PolicyStatus = "draft"
	PolicyStatusPendingApproval PolicyStatus = "pending_approval"
	PolicyStatusPublished       PolicyStatus = "published"
	PolicyStatusArchived        PolicyStatus = "archived"
)

// PolicyDocument represents a governance policy with versioned Markdown content.
type PolicyDocument struct {
	ID              string                  `json:"id"`
	Code            string                  `json:"code"`
	Title           string                  `json:"title"`
	Category        string                  `json:"category,omitempty"`
	Content         string                  `json:"content,omitempty"`
	Version         int                     `json:"version"`
	Status          PolicyStatus            `json:"status"`
	EffectiveDate   *time.Time              `json:"effective_date,omitempty"`
	ReviewDate      *time.Time              `json:"review_date,omitempty"`
	Versions        []*PolicyVersion        `json:"versions,omitempty"`
	Acknowledgments []*PolicyAcknowledgment `json:"acknowledgments,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// PolicyVersion is one row of a policy's append-only version history.
type PolicyVersion struct {
	ID            string    `json:"id"`
	PolicyID      string    `json:"policy_id"`
	Version       int       `json:"version"`
	Content       string    `json:"content"`
	ChangeSummary string    `json:"change_summary,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PolicyAcknowledgment records that a user acknowledged a specific policy
// version. It counts only while PolicyVersion equals the policy's current version.
type PolicyAcknowledgment struct {
	ID             string    `json:"id"`
	PolicyID       string    `json:"policy_id"`
	UserID         string    `json:"user_id"`
	PolicyVersion  int       `json:"policy_version"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

// HasAcknowledged reports whether userID has acknowledged the policy's current version.
func (p *PolicyDocument) HasAcknowledged(userID string) bool {
	for _, ack := range p.Acknowledgments {
		if ack.UserID == userID && ack.PolicyVersion == p.Version {
			return true
		}
	}
	return false
}

// TaskPriority represents task urgency.
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "low"
	TaskPriorityMedium   TaskPriority = "medium"
	TaskPriorityHigh     TaskPriority = "high"
	TaskPriorityCritical TaskPriority = "critical"
)

// TaskStatus represents the completion state of a task.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "open"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Task represents a compliance work item with an append-only comment thread.
type Task struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	TaskType    string         `json:"task_type,omitempty"`
	Priority    TaskPriority   `json:"priority"`
	Status      TaskStatus     `json:"status"`
	Assignee    string         `json:"assignee,omitempty"`
	DueAt       *time.Time     `json:"due_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Comments    []*TaskComment `json:"comments,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsOverdue reports whether the task is past due and not completed.
// Overdue is always computed, never persisted.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueAt != nil && t.DueAt.Before(now) && t.Status != TaskStatusCompleted
}

// TaskComment is one entry in a task's comment thread.
type TaskComment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// RiskLevel is the bucketed severity of a risk on the heatmap.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "low"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelCritical RiskLevel = "critical"
)

// Risk represents an entry in the risk register. Likelihood and Impact are
// 1-5 scores; the level is derived from their product.
type Risk struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Likelihood  int       `json:"likelihood"`
	Impact      int       `json:"impact"`
	Status      string    `json:"status"`
	Owner       string    `json:"owner,omitempty"`
	VendorID    string    `json:"vendor_id,omitempty"`
	AssetID     string    `json:"asset_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Score returns likelihood x impact.
func (r *Risk) Score() int {
	return r.Likelihood * r.Impact
}

// Level buckets the risk score for heatmap display.
func (r *Risk) Level() RiskLevel {
	return BucketRiskScore(r.Score())
}

// BucketRiskScore maps a 1-25 likelihood x impact score to a heatmap level.
func BucketRiskScore(score int) RiskLevel {
	switch {
	case score > 14:
		return RiskLevelCritical
	case score > 9:
		return RiskLevelHigh
	case score > 4:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// PolicyTemplate is a built-in Markdown template used to seed new policies.
// Templates are static library content, never user-created.
type PolicyTemplate struct {
	ID                string   `json:"id"`
	Code              string   `json:"code"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	Category          string   `json:"category,omitempty"`
	Frameworks        []string `json:"frameworks,omitempty"`
	ReviewFrequency   string   `json:"review_frequency,omitempty"`
	RelatedTemplates  []string `json:"related_templates,omitempty"`
	SuggestedControls []string `json:"suggested_controls,omitempty"`
	Content           string   `json:"content,omitempty"`
}

// SearchResult is one hit from the unified cross-entity search. Path is the
// canonical client route for the entity and is used verbatim for navigation.
type SearchResult struct {
	ID          string `json:"id"`
	EntityID    string `json:"entity_id"`
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status,omitempty"`
	Path        string `json:"path"`
}

// User is the minimal identity attached to a session token.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

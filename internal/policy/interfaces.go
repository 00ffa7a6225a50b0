// Package policy manages governance policy documents, their version history
// and user acknowledgments.
package policy

import (
	"context"
	"time"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Filter narrows policy listings. All set fields must match.
type Filter struct {
	Query    string
	Status   models.PolicyStatus
	Category string
}

// Repository defines policy persistence operations.
type Repository interface {
	// Create persists a new policy and its initial version row.
	Create(ctx context.Context, policy *models.PolicyDocument) error
	// Get retrieves a policy by ID with versions and acknowledgments.
	Get(ctx context.Context, id string) (*models.PolicyDocument, error)
	// GetByCode retrieves a policy by its unique code.
	GetByCode(ctx context.Context, code string) (*models.PolicyDocument, error)
	// List returns policies matching the filter with the total match count.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.PolicyDocument, int, error)
	// Update updates an existing policy.
	Update(ctx context.Context, policy *models.PolicyDocument) error
	// Delete removes a policy and its history.
	Delete(ctx context.Context, id string) error

	// CreateVersion appends a version row to a policy's history.
	CreateVersion(ctx context.Context, version *models.PolicyVersion) error
	// ListVersions returns a policy's versions, newest first.
	ListVersions(ctx context.Context, policyID string) ([]*models.PolicyVersion, error)

	// CreateAcknowledgment records a user acknowledgment. Re-acknowledging
	// the same version is a no-op.
	CreateAcknowledgment(ctx context.Context, ack *models.PolicyAcknowledgment) error
	// ListAcknowledgments returns all acknowledgments for a policy.
	ListAcknowledgments(ctx context.Context, policyID string) ([]*models.PolicyAcknowledgment, error)
}

// CreateRequest represents a policy creation request.
type CreateRequest struct {
	Code          string     `json:"code"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	Content       string     `json:"content"`
	EffectiveDate *time.Time `json:"effective_date"`
	ReviewDate    *time.Time `json:"review_date"`
}

// UpdateRequest represents a sparse policy update. Setting Content bumps the
// policy version and appends to the version history.
type UpdateRequest struct {
	Title         *string    `json:"title"`
	Category      *string    `json:"category"`
	Content       *string    `json:"content"`
	ChangeSummary string     `json:"change_summary"`
	EffectiveDate *time.Time `json:"effective_date"`
	ReviewDate    *time.Time `json:"review_date"`
}

// AckStatus reports acknowledgment coverage of a policy's current version.
type AckStatus struct {
	PolicyID       string `json:"policy_id"`
	CurrentVersion int    `json:"current_version"`
	Acknowledged   int    `json:"acknowledged"`
	// Stale counts users whose latest acknowledgment is for an older version.
	Stale int `json:"stale"`
}

// Service defines policy business operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.PolicyDocument, error)
	Get(ctx context.Context, id string) (*models.PolicyDocument, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.PolicyDocument, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*models.PolicyDocument, error)
	Delete(ctx context.Context, id string) error

	// Transition moves a policy through its publication lifecycle.
	Transition(ctx context.Context, id string, to models.PolicyStatus) (*models.PolicyDocument, error)

	ListVersions(ctx context.Context, policyID string) ([]*models.PolicyVersion, error)
	Acknowledge(ctx context.Context, policyID, userID string) (*models.PolicyAcknowledgment, error)
	AcknowledgmentStatus(ctx context.Context, policyID string) (*AckStatus, error)
}

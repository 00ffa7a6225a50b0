// Package control manages internal controls and their framework mappings.
package control

import (
	"context"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Filter narrows control listings. All set fields must match.
type Filter struct {
	Query       string
	ControlType models.ControlType
	Status      models.ControlStatus
	FrameworkID string
}

// Repository defines control persistence operations.
type Repository interface {
	// Create persists a new control.
	Create(ctx context.Context, control *models.Control) error
	// Get retrieves a control by ID with mapped requirements and linked assets.
	Get(ctx context.Context, id string) (*models.Control, error)
	// GetByCode retrieves a control by its unique code.
	GetByCode(ctx context.Context, code string) (*models.Control, error)
	// List returns controls matching the filter with the total match count.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Control, int, error)
	// Update updates an existing control.
	Update(ctx context.Context, control *models.Control) error
	// Delete removes a control and its mappings.
	Delete(ctx context.Context, id string) error

	// MapRequirements links requirements to a control. Already linked pairs
	// are skipped; the call is idempotent.
	MapRequirements(ctx context.Context, controlID string, requirementIDs []string) error
	// UnmapRequirement removes a single control-requirement link.
	UnmapRequirement(ctx context.Context, controlID, requirementID string) error
	// ListMappedRequirements returns the requirements mapped to a control.
	ListMappedRequirements(ctx context.Context, controlID string) ([]*models.FrameworkRequirement, error)
	// ListCandidateRequirements returns a framework's requirements not yet
	// mapped to the control.
	ListCandidateRequirements(ctx context.Context, controlID, frameworkID string) ([]*models.FrameworkRequirement, error)
}

// CreateRequest represents a control creation request.
type CreateRequest struct {
	Code                string               `json:"code"`
	Name                string               `json:"name"`
	Description         string               `json:"description"`
	ControlType         models.ControlType   `json:"control_type"`
	Frequency           string               `json:"frequency"`
	Status              models.ControlStatus `json:"status"`
	ImplementationNotes string               `json:"implementation_notes"`
}

// UpdateRequest represents a sparse control update. Nil fields are left unchanged.
type UpdateRequest struct {
	Code                *string               `json:"code"`
	Name                *string               `json:"name"`
	Description         *string               `json:"description"`
	ControlType         *models.ControlType   `json:"control_type"`
	Frequency           *string               `json:"frequency"`
	Status              *models.ControlStatus `json:"status"`
	ImplementationNotes *string               `json:"implementation_notes"`
}

// Stats summarizes the control catalog.
type Stats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByType      map[string]int `json:"by_type"`
	Implemented int            `json:"implemented"`
}

// Service defines control business operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Control, error)
	Get(ctx context.Context, id string) (*models.Control, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Control, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*models.Control, error)
	Delete(ctx context.Context, id string) error

	MapRequirements(ctx context.Context, controlID string, requirementIDs []string) ([]*models.FrameworkRequirement, error)
	UnmapRequirement(ctx context.Context, controlID, requirementID string) error
	CandidateRequirements(ctx context.Context, controlID, frameworkID string) ([]*models.FrameworkRequirement, error)

	Stats(ctx context.Context) (*Stats, error)
}

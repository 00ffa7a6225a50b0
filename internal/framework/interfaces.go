// Package framework manages compliance frameworks and their requirement trees.
package framework

import (
	"context"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Filter narrows framework listings.
type Filter struct {
	Query    string
	Category string
}

// Repository defines framework persistence operations.
type Repository interface {
	// Create persists a new framework.
	Create(ctx context.Context, fw *models.Framework) error
	// Get retrieves a framework by ID.
	Get(ctx context.Context, id string) (*models.Framework, error)
	// List returns frameworks matching the filter with the total match count.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Framework, int, error)
	// Update updates an existing framework.
	Update(ctx context.Context, fw *models.Framework) error
	// Delete removes a framework and all its requirements.
	Delete(ctx context.Context, id string) error

	// CreateRequirement persists a new requirement.
	CreateRequirement(ctx context.Context, req *models.FrameworkRequirement) error
	// GetRequirement retrieves a requirement by ID.
	GetRequirement(ctx context.Context, id string) (*models.FrameworkRequirement, error)
	// ListRequirements returns all requirements of a framework ordered by
	// category, sort order and code.
	ListRequirements(ctx context.Context, frameworkID string) ([]*models.FrameworkRequirement, error)
	// UpdateRequirement updates an existing requirement.
	UpdateRequirement(ctx context.Context, req *models.FrameworkRequirement) error
	// DeleteRequirement removes a requirement and all its descendants.
	DeleteRequirement(ctx context.Context, id string) error

	// MappedRequirementIDs returns, for a framework, the IDs of requirements
	// mapped to at least one control with the given status. An empty status
	// matches mappings to any control.
	MappedRequirementIDs(ctx context.Context, frameworkID string, status models.ControlStatus) ([]string, error)
}

// CreateRequest represents a framework creation request.
type CreateRequest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// UpdateRequest represents a sparse framework update.
type UpdateRequest struct {
	Name        *string `json:"name"`
	Version     *string `json:"version"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// RequirementRequest represents a requirement create or full update.
type RequirementRequest struct {
	ParentID    string `json:"parent_id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SortOrder   int    `json:"sort_order"`
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

// Service defines framework business operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Framework, error)
	Get(ctx context.Context, id string) (*models.Framework, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Framework, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*models.Framework, error)
	Delete(ctx context.Context, id string) error

	AddRequirement(ctx context.Context, frameworkID string, req RequirementRequest) (*models.FrameworkRequirement, error)
	GetRequirement(ctx context.Context, id string) (*models.FrameworkRequirement, error)
	ListRequirements(ctx context.Context, frameworkID string) ([]*models.FrameworkRequirement, error)
	UpdateRequirement(ctx context.Context, id string, req RequirementRequest) (*models.FrameworkRequirement, error)
	DeleteRequirement(ctx context.Context, id string) error

	Analyze(ctx context.Context, frameworkID string) (*GapAnalysis, error)
}

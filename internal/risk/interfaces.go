// Package risk manages the risk register and the likelihood/impact heatmap.
package risk

import (
	"context"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Filter narrows risk listings. All set fields must match.
type Filter struct {
	Query    string
	Status   string
	Category string
	Level    models.RiskLevel
	Owner    string
}

// Repository defines risk persistence operations.
type Repository interface {
	// Create persists a new risk.
	Create(ctx context.Context, risk *models.Risk) error
	// Get retrieves a risk by ID.
	Get(ctx context.Context, id string) (*models.Risk, error)
	// List returns risks matching the filter with the total match count.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Risk, int, error)
	// Update updates an existing risk.
	Update(ctx context.Context, risk *models.Risk) error
	// Delete removes a risk.
	Delete(ctx context.Context, id string) error
}

// CreateRequest represents a risk creation request.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Likelihood  int    `json:"likelihood"`
	Impact      int    `json:"impact"`
	Status      string `json:"status"`
	Owner       string `json:"owner"`
	VendorID    string `json:"vendor_id"`
	AssetID     string `json:"asset_id"`
}

// UpdateRequest represents a sparse risk update. Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Likelihood  *int    `json:"likelihood"`
	Impact      *int    `json:"impact"`
	Status      *string `json:"status"`
	Owner       *string `json:"owner"`
	VendorID    *string `json:"vendor_id"`
	AssetID     *string `json:"asset_id"`
}

// HeatmapCell is one likelihood/impact cell with its risk count.
type HeatmapCell struct {
	Likelihood int              `json:"likelihood"`
	Impact     int              `json:"impact"`
	Level      models.RiskLevel `json:"level"`
	Count      int              `json:"count"`
}

// Heatmap is the 5x5 likelihood/impact matrix plus per-level totals.
type Heatmap struct {
	Cells   []HeatmapCell  `json:"cells"`
	ByLevel map[string]int `json:"by_level"`
	Total   int            `json:"total"`
}

// Service defines risk business operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Risk, error)
	Get(ctx context.Context, id string) (*models.Risk, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Risk, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*models.Risk, error)
	Delete(ctx context.Context, id string) error
	Heatmap(ctx context.Context) (*Heatmap, error)
}

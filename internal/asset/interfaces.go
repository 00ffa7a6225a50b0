// Package asset manages the asset inventory, both user-created assets and
// assets synced from external integrations.
package asset

import (
	"context"
	"time"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Filter narrows asset listings. All set fields must match.
type Filter struct {
	Query          string
	AssetType      string
	Category       string
	Classification models.DataClassification
	LifecycleStage models.LifecycleStage
	Source         string
}

// Repository defines asset persistence operations.
type Repository interface {
	// Create persists a new asset.
	Create(ctx context.Context, asset *models.Asset) error
	// Get retrieves an asset by ID with linked controls.
	Get(ctx context.Context, id string) (*models.Asset, error)
	// GetByExternalID retrieves an asset by integration source and external ID.
	GetByExternalID(ctx context.Context, source, externalID string) (*models.Asset, error)
	// List returns assets matching the filter with the total match count.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Asset, int, error)
	// Update updates an existing asset.
	Update(ctx context.Context, asset *models.Asset) error
	// Delete removes an asset and its control links.
	Delete(ctx context.Context, id string) error

	// LinkControls links controls to an asset. Already linked pairs are
	// skipped; the call is idempotent.
	LinkControls(ctx context.Context, assetID string, controlIDs []string) error
	// UnlinkControl removes a single asset-control link.
	UnlinkControl(ctx context.Context, assetID, controlID string) error
	// ListLinkedControls returns the controls linked to an asset.
	ListLinkedControls(ctx context.Context, assetID string) ([]*models.Control, error)
	// ListCandidateControls returns controls not yet linked to the asset.
	ListCandidateControls(ctx context.Context, assetID string) ([]*models.Control, error)
}

// CreateRequest represents an asset creation request.
type CreateRequest struct {
	Name              string                    `json:"name"`
	Description       string                    `json:"description"`
	AssetType         string                    `json:"asset_type"`
	Category          string                    `json:"category"`
	Classification    models.DataClassification `json:"classification"`
	Status            string                    `json:"status"`
	Location          string                    `json:"location"`
	IPAddress         string                    `json:"ip_address"`
	LifecycleStage    models.LifecycleStage     `json:"lifecycle_stage"`
	MaintenanceExpiry *time.Time                `json:"maintenance_expiry"`
	SupportExpiry     *time.Time                `json:"support_expiry"`
}

// UpdateRequest represents a sparse asset update. Nil fields are left unchanged.
type UpdateRequest struct {
	Name              *string                    `json:"name"`
	Description       *string                    `json:"description"`
	AssetType         *string                    `json:"asset_type"`
	Category          *string                    `json:"category"`
	Classification    *models.DataClassification `json:"classification"`
	Status            *string                    `json:"status"`
	Location          *string                    `json:"location"`
	IPAddress         *string                    `json:"ip_address"`
	LifecycleStage    *models.LifecycleStage     `json:"lifecycle_stage"`
	MaintenanceExpiry *time.Time                 `json:"maintenance_expiry"`
	SupportExpiry     *time.Time                 `json:"support_expiry"`
}

// Stats summarizes the asset inventory.
type Stats struct {
	Total       int            `json:"total"`
	ByType      map[string]int `json:"by_type"`
	ByLifecycle map[string]int `json:"by_lifecycle"`
	BySource    map[string]int `json:"by_source"`
	ExpiringSupport int        `json:"expiring_support"`
}

// Service defines asset business operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Asset, error)
	Get(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Asset, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*models.Asset, error)
	Delete(ctx context.Context, id string) error

	LinkControls(ctx context.Context, assetID string, controlIDs []string) ([]*models.Control, error)
	UnlinkControl(ctx context.Context, assetID, controlID string) error
	CandidateControls(ctx context.Context, assetID string) ([]*models.Control, error)

	// UpsertSynced creates or refreshes an asset discovered by an
	// integration, matching on (source, external ID).
	UpsertSynced(ctx context.Context, asset *models.Asset) (*models.Asset, error)

	Stats(ctx context.Context) (*Stats, error)
}

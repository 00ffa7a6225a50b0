// Package asset manages the asset inventory, both user-created assets and
// assets synced from external integrations.
package asset

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// NewService creates a new asset service.
func NewService(repo Repository) Service {
	return &serviceImpl{repo: repo}
}

type serviceImpl struct {
	repo Repository
}

func (s *serviceImpl) Create(ctx context.Context, req CreateRequest) (*models.Asset, error) {
	if req.Name == "" {
		return nil, errors.NewValidationError("name", "name is required")
	}
	if req.LifecycleStage == "" {
		req.LifecycleStage = models.LifecycleStageActive
	}
	if !validLifecycle(req.LifecycleStage) {
		return nil, errors.NewValidationError("lifecycle_stage", "unknown lifecycle stage")
	}

	now := time.Now()
	a := &models.Asset{
		ID:                uuid.New().String(),
		Name:              req.Name,
		Description:       req.Description,
		AssetType:         req.AssetType,
		Category:          req.Category,
		Classification:    req.Classification,
		Status:            req.Status,
		Location:          req.Location,
		IPAddress:         req.IPAddress,
		LifecycleStage:    req.LifecycleStage,
		MaintenanceExpiry: req.MaintenanceExpiry,
		SupportExpiry:     req.SupportExpiry,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}
	return a, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*models.Asset, error) {
	return s.repo.Get(ctx, id)
}

func (s *serviceImpl) List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Asset, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *serviceImpl) Update(ctx context.Context, id string, req UpdateRequest) (*models.Asset, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.NewValidationError("name", "name cannot be empty")
		}
		a.Name = *req.Name
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.AssetType != nil {
		a.AssetType = *req.AssetType
	}
	if req.Category != nil {
		a.Category = *req.Category
	}
	if req.Classification != nil {
		a.Classification = *req.Classification
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	if req.Location != nil {
		a.Location = *req.Location
	}
	if req.IPAddress != nil {
		a.IPAddress = *req.IPAddress
	}
	if req.LifecycleStage != nil {
		if !validLifecycle(*req.LifecycleStage) {
			return nil, errors.NewValidationError("lifecycle_stage", "unknown lifecycle stage")
		}
		a.LifecycleStage = *req.LifecycleStage
	}
	if req.MaintenanceExpiry != nil {
		a.MaintenanceExpiry = req.MaintenanceExpiry
	}
	if req.SupportExpiry != nil {
		a.SupportExpiry = req.SupportExpiry
	}
	a.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}
	return a, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *serviceImpl) LinkControls(ctx context.Context, assetID string, controlIDs []string) ([]*models.Control, error) {
	if len(controlIDs) == 0 {
		return nil, errors.NewValidationError("control_ids", "at least one control required")
	}
	if _, err := s.repo.Get(ctx, assetID); err != nil {
		return nil, err
	}
	if err := s.repo.LinkControls(ctx, assetID, controlIDs); err != nil {
		return nil, fmt.Errorf("failed to link controls: %w", err)
	}
	return s.repo.ListLinkedControls(ctx, assetID)
}

func (s *serviceImpl) UnlinkControl(ctx context.Context, assetID, controlID string) error {
	if _, err := s.repo.Get(ctx, assetID); err != nil {
		return err
	}
	return s.repo.UnlinkControl(ctx, assetID, controlID)
}

func (s *serviceImpl) CandidateControls(ctx context.Context, assetID string) ([]*models.Control, error) {
	if _, err := s.repo.Get(ctx, assetID); err != nil {
		return nil, err
	}
	return s.repo.ListCandidateControls(ctx, assetID)
}

func (s *serviceImpl) UpsertSynced(ctx context.Context, incoming *models.Asset) (*models.Asset, error) {
	if incoming.IntegrationSource == "" || incoming.ExternalID == "" {
		return nil, errors.NewValidationError("external_id", "integration source and external id are required")
	}

	now := time.Now()
	existing, err := s.repo.GetByExternalID(ctx, incoming.IntegrationSource, incoming.ExternalID)
	if err != nil {
		if !stderrors.Is(err, errors.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up synced asset: %w", err)
		}
		incoming.ID = uuid.New().String()
		if incoming.LifecycleStage == "" {
			incoming.LifecycleStage = models.LifecycleStageActive
		}
		incoming.LastSyncedAt = &now
		incoming.CreatedAt = now
		incoming.UpdatedAt = now
		if err := s.repo.Create(ctx, incoming); err != nil {
			return nil, fmt.Errorf("failed to create synced asset: %w", err)
		}
		return incoming, nil
	}

	// Refresh discovered attributes; user-managed fields (classification,
	// category, lifecycle) are kept as-is.
	existing.Name = incoming.Name
	existing.Description = incoming.Description
	existing.AssetType = incoming.AssetType
	existing.Status = incoming.Status
	existing.Location = incoming.Location
	existing.IPAddress = incoming.IPAddress
	existing.LastSyncedAt = &now
	existing.UpdatedAt = now
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to refresh synced asset: %w", err)
	}
	return existing, nil
}

func (s *serviceImpl) Stats(ctx context.Context) (*Stats, error) {
	assets, _, err := s.repo.List(ctx, Filter{}, allAssetsLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	stats := &Stats{
		Total:       len(assets),
		ByType:      make(map[string]int),
		ByLifecycle: make(map[string]int),
		BySource:    make(map[string]int),
	}
	horizon := time.Now().Add(90 * 24 * time.Hour)
	for _, a := range assets {
		if a.AssetType != "" {
			stats.ByType[a.AssetType]++
		}
		if a.LifecycleStage != "" {
			stats.ByLifecycle[string(a.LifecycleStage)]++
		}
		if a.IntegrationSource != "" {
			stats.BySource[a.IntegrationSource]++
		}
		if a.SupportExpiry != nil && a.SupportExpiry.Before(horizon) {
			stats.ExpiringSupport++
		}
	}
	return stats, nil
}

const allAssetsLimit = 10000

func validLifecycle(ls models.LifecycleStage) bool {
	switch ls {
	case models.LifecycleStageProcurement, models.LifecycleStageDeployment,
		models.LifecycleStageActive, models.LifecycleStageMaintenance,
		models.LifecycleStageDecommissioning, models.LifecycleStageDecommissioned:
		return true
	}
	return false
}

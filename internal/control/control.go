// Package control manages internal controls and their framework mappings.
package control

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// NewService creates a new control service.
func NewService(repo Repository) Service {
	return &serviceImpl{repo: repo}
}

type serviceImpl struct {
	repo Repository
}

func (s *serviceImpl) Create(ctx context.Context, req CreateRequest) (*models.Control, error) {
	if req.Code == "" {
		return nil, errors.NewValidationError("code", "code is required")
	}
	if req.Name == "" {
		return nil, errors.NewValidationError("name", "name is required")
	}
	if req.ControlType == "" {
		req.ControlType = models.ControlTypePreventive
	}
	if req.Status == "" {
		req.Status = models.ControlStatusNotImplemented
	}
	if !validType(req.ControlType) {
		return nil, errors.NewValidationError("control_type", "unknown control type")
	}
	if !validStatus(req.Status) {
		return nil, errors.NewValidationError("status", "unknown status")
	}

	// Control codes are unique across the catalog.
	if existing, err := s.repo.GetByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, errors.ErrConflict
	} else if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check control code: %w", err)
	}

	now := time.Now()
	c := &models.Control{
		ID:                  uuid.New().String(),
		Code:                req.Code,
		Name:                req.Name,
		Description:         req.Description,
		ControlType:         req.ControlType,
		Frequency:           req.Frequency,
		Status:              req.Status,
		ImplementationNotes: req.ImplementationNotes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create control: %w", err)
	}
	return c, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*models.Control, error) {
	return s.repo.Get(ctx, id)
}

func (s *serviceImpl) List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Control, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *serviceImpl) Update(ctx context.Context, id string, req UpdateRequest) (*models.Control, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil && *req.Code != c.Code {
		if *req.Code == "" {
			return nil, errors.NewValidationError("code", "code cannot be empty")
		}
		if existing, err := s.repo.GetByCode(ctx, *req.Code); err == nil && existing != nil {
			return nil, errors.ErrConflict
		} else if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
			return nil, fmt.Errorf("failed to check control code: %w", err)
		}
		c.Code = *req.Code
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.NewValidationError("name", "name cannot be empty")
		}
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.ControlType != nil {
		if !validType(*req.ControlType) {
			return nil, errors.NewValidationError("control_type", "unknown control type")
		}
		c.ControlType = *req.ControlType
	}
	if req.Frequency != nil {
		c.Frequency = *req.Frequency
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, errors.NewValidationError("status", "unknown status")
		}
		c.Status = *req.Status
	}
	if req.ImplementationNotes != nil {
		c.ImplementationNotes = *req.ImplementationNotes
	}
	c.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update control: %w", err)
	}
	return c, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *serviceImpl) MapRequirements(ctx context.Context, controlID string, requirementIDs []string) ([]*models.FrameworkRequirement, error) {
	if len(requirementIDs) == 0 {
		return nil, errors.NewValidationError("requirement_ids", "at least one requirement required")
	}
	if _, err := s.repo.Get(ctx, controlID); err != nil {
		return nil, err
	}
	if err := s.repo.MapRequirements(ctx, controlID, requirementIDs); err != nil {
		return nil, fmt.Errorf("failed to map requirements: %w", err)
	}
	return s.repo.ListMappedRequirements(ctx, controlID)
}

func (s *serviceImpl) UnmapRequirement(ctx context.Context, controlID, requirementID string) error {
	if _, err := s.repo.Get(ctx, controlID); err != nil {
		return err
	}
	return s.repo.UnmapRequirement(ctx, controlID, requirementID)
}

func (s *serviceImpl) CandidateRequirements(ctx context.Context, controlID, frameworkID string) ([]*models.FrameworkRequirement, error) {
	if frameworkID == "" {
		return nil, errors.NewValidationError("framework_id", "framework_id is required")
	}
	if _, err := s.repo.Get(ctx, controlID); err != nil {
		return nil, err
	}
	return s.repo.ListCandidateRequirements(ctx, controlID, frameworkID)
}

func (s *serviceImpl) Stats(ctx context.Context) (*Stats, error) {
	controls, _, err := s.repo.List(ctx, Filter{}, allControlsLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load controls: %w", err)
	}

	stats := &Stats{
		Total:    len(controls),
		ByStatus: make(map[string]int),
		ByType:   make(map[string]int),
	}
	for _, c := range controls {
		stats.ByStatus[string(c.Status)]++
		stats.ByType[string(c.ControlType)]++
		if c.Status == models.ControlStatusImplemented {
			stats.Implemented++
		}
	}
	return stats, nil
}

const allControlsLimit = 10000

func validType(t models.ControlType) bool {
	switch t {
	case models.ControlTypePreventive, models.ControlTypeDetective, models.ControlTypeCorrective:
		return true
	}
	return false
}

func validStatus(s models.ControlStatus) bool {
	switch s {
	case models.ControlStatusNotImplemented, models.ControlStatusInProgress,
		models.ControlStatusImplemented, models.ControlStatusNotApplicable:
		return true
	}
	return false
}

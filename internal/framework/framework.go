// Package framework manages compliance frameworks and their requirement trees.
package framework

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// NewService creates a new framework service.
func NewService(repo Repository) Service {
	return &serviceImpl{repo: repo}
}

type serviceImpl struct {
	repo Repository
}

func (s *serviceImpl) Create(ctx context.Context, req CreateRequest) (*models.Framework, error) {
	if req.Name == "" {
		return nil, errors.NewValidationError("name", "name is required")
	}

	now := time.Now()
	fw := &models.Framework{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Version:     req.Version,
		Description: req.Description,
		Category:    req.Category,
		IsSystem:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, fw); err != nil {
		return nil, fmt.Errorf("failed to create framework: %w", err)
	}
	return fw, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*models.Framework, error) {
	return s.repo.Get(ctx, id)
}

func (s *serviceImpl) List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Framework, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *serviceImpl) Update(ctx context.Context, id string, req UpdateRequest) (*models.Framework, error) {
	fw, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if fw.IsSystem {
		return nil, errors.ErrSystemFramework
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.NewValidationError("name", "name cannot be empty")
		}
		fw.Name = *req.Name
	}
	if req.Version != nil {
		fw.Version = *req.Version
	}
	if req.Description != nil {
		fw.Description = *req.Description
	}
	if req.Category != nil {
		fw.Category = *req.Category
	}
	fw.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, fw); err != nil {
		return nil, fmt.Errorf("failed to update framework: %w", err)
	}
	return fw, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	fw, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if fw.IsSystem {
		return errors.ErrSystemFramework
	}
	return s.repo.Delete(ctx, id)
}

func (s *serviceImpl) AddRequirement(ctx context.Context, frameworkID string, req RequirementRequest) (*models.FrameworkRequirement, error) {
	if req.Code == "" {
		return nil, errors.NewValidationError("code", "code is required")
	}
	if req.Title == "" {
		return nil, errors.NewValidationError("title", "title is required")
	}

	if _, err := s.repo.Get(ctx, frameworkID); err != nil {
		return nil, err
	}
	if req.ParentID != "" {
		parent, err := s.repo.GetRequirement(ctx, req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.FrameworkID != frameworkID {
			return nil, errors.NewValidationError("parent_id", "parent belongs to a different framework")
		}
	}

	now := time.Now()
	r := &models.FrameworkRequirement{
		ID:          uuid.New().String(),
		FrameworkID: frameworkID,
		ParentID:    req.ParentID,
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		SortOrder:   req.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateRequirement(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create requirement: %w", err)
	}
	return r, nil
}

func (s *serviceImpl) GetRequirement(ctx context.Context, id string) (*models.FrameworkRequirement, error) {
	return s.repo.GetRequirement(ctx, id)
}

func (s *serviceImpl) ListRequirements(ctx context.Context, frameworkID string) ([]*models.FrameworkRequirement, error) {
	if _, err := s.repo.Get(ctx, frameworkID); err != nil {
		return nil, err
	}
	return s.repo.ListRequirements(ctx, frameworkID)
}

func (s *serviceImpl) UpdateRequirement(ctx context.Context, id string, req RequirementRequest) (*models.FrameworkRequirement, error) {
	r, err := s.repo.GetRequirement(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, errors.NewValidationError("code", "code is required")
	}
	if req.Title == "" {
		return nil, errors.NewValidationError("title", "title is required")
	}
	if req.ParentID != "" {
		if req.ParentID == id {
			return nil, errors.NewValidationError("parent_id", "requirement cannot be its own parent")
		}
		parent, err := s.repo.GetRequirement(ctx, req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.FrameworkID != r.FrameworkID {
			return nil, errors.NewValidationError("parent_id", "parent belongs to a different framework")
		}
		// Walk up from the new parent. Moving a requirement under one of
		// its own descendants would detach the subtree into a cycle.
		seen := map[string]bool{parent.ID: true}
		for cur := parent; cur.ParentID != ""; {
			if cur.ParentID == id {
				return nil, errors.NewValidationError("parent_id", "requirement cannot be moved under its own descendant")
			}
			if seen[cur.ParentID] {
				break
			}
			seen[cur.ParentID] = true
			next, err := s.repo.GetRequirement(ctx, cur.ParentID)
			if err != nil {
				return nil, err
			}
			cur = next
		}
	}

	r.ParentID = req.ParentID
	r.Code = req.Code
	r.Title = req.Title
	r.Description = req.Description
	r.Category = req.Category
	r.SortOrder = req.SortOrder
	r.UpdatedAt = time.Now()

	if err := s.repo.UpdateRequirement(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update requirement: %w", err)
	}
	return r, nil
}

func (s *serviceImpl) DeleteRequirement(ctx context.Context, id string) error {
	if _, err := s.repo.GetRequirement(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteRequirement(ctx, id)
}

// Analyze computes coverage: the share of a framework's requirements mapped
// to at least one implemented control, overall and per requirement category.
func (s *serviceImpl) Analyze(ctx context.Context, frameworkID string) (*GapAnalysis, error) {
	fw, err := s.repo.Get(ctx, frameworkID)
	if err != nil {
		return nil, err
	}

	reqs, err := s.repo.ListRequirements(ctx, frameworkID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	anyIDs, err := s.repo.MappedRequirementIDs(ctx, frameworkID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list mapped requirements: %w", err)
	}
	implIDs, err := s.repo.MappedRequirementIDs(ctx, frameworkID, models.ControlStatusImplemented)
	if err != nil {
		return nil, fmt.Errorf("failed to list implemented mappings: %w", err)
	}

	mappedAny := make(map[string]bool, len(anyIDs))
	for _, id := range anyIDs {
		mappedAny[id] = true
	}
	mappedImpl := make(map[string]bool, len(implIDs))
	for _, id := range implIDs {
		mappedImpl[id] = true
	}

	ga := &GapAnalysis{
		FrameworkID:       fw.ID,
		FrameworkName:     fw.Name,
		TotalRequirements: len(reqs),
		MappedAny:         len(mappedAny),
		MappedImplemented: len(mappedImpl),
	}
	if ga.TotalRequirements > 0 {
		ga.CoveragePercent = float64(ga.MappedImplemented) / float64(ga.TotalRequirements) * 100
	}

	byCategory := make(map[string]*CategoryGap)
	var order []string
	for _, r := range reqs {
		cat := r.Category
		if cat == "" {
			cat = "uncategorized"
		}
		cg, ok := byCategory[cat]
		if !ok {
			cg = &CategoryGap{Category: cat}
			byCategory[cat] = cg
			order = append(order, cat)
		}
		cg.TotalRequirements++
		if mappedAny[r.ID] {
			cg.MappedAny++
		}
		if mappedImpl[r.ID] {
			cg.MappedImplemented++
		}
	}
	sort.Strings(order)
	for _, cat := range order {
		cg := byCategory[cat]
		cg.CoveragePercent = float64(cg.MappedImplemented) / float64(cg.TotalRequirements) * 100
		ga.Categories = append(ga.Categories, *cg)
	}
	return ga, nil
}

// Package risk manages the risk register and the likelihood/impact heatmap.
package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// NewService creates a new risk service.
func NewService(repo Repository) Service {
	return &serviceImpl{repo: repo}
}

type serviceImpl struct {
	repo Repository
}

func (s *serviceImpl) Create(ctx context.Context, req CreateRequest) (*models.Risk, error) {
	if req.Title == "" {
		return nil, errors.NewValidationError("title", "title is required")
	}
	if err := validScore("likelihood", req.Likelihood); err != nil {
		return nil, err
	}
	if err := validScore("impact", req.Impact); err != nil {
		return nil, err
	}
	if req.Status == "" {
		req.Status = "open"
	}

	now := time.Now()
	r := &models.Risk{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Likelihood:  req.Likelihood,
		Impact:      req.Impact,
		Status:      req.Status,
		Owner:       req.Owner,
		VendorID:    req.VendorID,
		AssetID:     req.AssetID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to create risk: %w", err)
	}
	return r, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*models.Risk, error) {
	return s.repo.Get(ctx, id)
}

func (s *serviceImpl) List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Risk, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *serviceImpl) Update(ctx context.Context, id string, req UpdateRequest) (*models.Risk, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, errors.NewValidationError("title", "title cannot be empty")
		}
		r.Title = *req.Title
	}
	if req.Description != nil {
		r.Description = *req.Description
	}
	if req.Category != nil {
		r.Category = *req.Category
	}
	if req.Likelihood != nil {
		if err := validScore("likelihood", *req.Likelihood); err != nil {
			return nil, err
		}
		r.Likelihood = *req.Likelihood
	}
	if req.Impact != nil {
		if err := validScore("impact", *req.Impact); err != nil {
			return nil, err
		}
		r.Impact = *req.Impact
	}
	if req.Status != nil {
		r.Status = *req.Status
	}
	if req.Owner != nil {
		r.Owner = *req.Owner
	}
	if req.VendorID != nil {
		r.VendorID = *req.VendorID
	}
	if req.AssetID != nil {
		r.AssetID = *req.AssetID
	}
	r.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update risk: %w", err)
	}
	return r, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *serviceImpl) Heatmap(ctx context.Context) (*Heatmap, error) {
	risks, _, err := s.repo.List(ctx, Filter{}, allRisksLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load risks: %w", err)
	}

	counts := make(map[[2]int]int)
	for _, r := range risks {
		counts[[2]int{r.Likelihood, r.Impact}]++
	}

	hm := &Heatmap{ByLevel: make(map[string]int), Total: len(risks)}
	for likelihood := 1; likelihood <= 5; likelihood++ {
		for impact := 1; impact <= 5; impact++ {
			level := models.BucketRiskScore(likelihood * impact)
			count := counts[[2]int{likelihood, impact}]
			hm.Cells = append(hm.Cells, HeatmapCell{
				Likelihood: likelihood,
				Impact:     impact,
				Level:      level,
				Count:      count,
			})
			hm.ByLevel[string(level)] += count
		}
	}
	return hm, nil
}

const allRisksLimit = 10000

func validScore(field string, v int) error {
	if v < 1 || v > 5 {
		return errors.NewValidationError(field, "must be between 1 and 5")
	}
	return nil
}

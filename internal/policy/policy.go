// Package policy manages governance policy documents, their version history
// and user acknowledgments.
package policy

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// transitions is the allowed publication lifecycle. A published policy goes
// back to draft when a new revision cycle starts.
var transitions = map[models.PolicyStatus][]models.PolicyStatus{
	models.PolicyStatusDraft:           {models.PolicyStatusPendingApproval, models.PolicyStatusArchived},
	models.PolicyStatusPendingApproval: {models.PolicyStatusPublished, models.PolicyStatusDraft},
	models.PolicyStatusPublished:       {models.PolicyStatusDraft, models.PolicyStatusArchived},
	models.PolicyStatusArchived:        {models.PolicyStatusDraft},
}

// NewService creates a new policy service.
func NewService(repo Repository) Service {
	return &serviceImpl{repo: repo}
}

type serviceImpl struct {
	repo Repository
}

func (s *serviceImpl) Create(ctx context.Context, req CreateRequest) (*models.PolicyDocument, error) {
	if req.Code == "" {
		return nil, errors.NewValidationError("code", "code is required")
	}
	if req.Title == "" {
		return nil, errors.NewValidationError("title", "title is required")
	}
	if existing, err := s.repo.GetByCode(ctx, req.Code); err == nil && existing != nil {
		return nil, errors.ErrConflict
	} else if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check policy code: %w", err)
	}

	now := time.Now()
	p := &models.PolicyDocument{
		ID:            uuid.New().String(),
		Code:          req.Code,
		Title:         req.Title,
		Category:      req.Category,
		Content:       req.Content,
		Version:       1,
		Status:        models.PolicyStatusDraft,
		EffectiveDate: req.EffectiveDate,
		ReviewDate:    req.ReviewDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create policy: %w", err)
	}
	return p, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*models.PolicyDocument, error) {
	return s.repo.Get(ctx, id)
}

func (s *serviceImpl) List(ctx context.Context, filter Filter, limit, offset int) ([]*models.PolicyDocument, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *serviceImpl) Update(ctx context.Context, id string, req UpdateRequest) (*models.PolicyDocument, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, errors.NewValidationError("title", "title cannot be empty")
		}
		p.Title = *req.Title
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.EffectiveDate != nil {
		p.EffectiveDate = req.EffectiveDate
	}
	if req.ReviewDate != nil {
		p.ReviewDate = req.ReviewDate
	}

	// The version row is recorded only after the policy row persists, so a
	// failed update cannot leave an orphan history entry for a version the
	// policy never reached.
	var v *models.PolicyVersion
	if req.Content != nil && *req.Content != p.Content {
		p.Content = *req.Content
		p.Version++
		v = &models.PolicyVersion{
			ID:            uuid.New().String(),
			PolicyID:      p.ID,
			Version:       p.Version,
			Content:       p.Content,
			ChangeSummary: req.ChangeSummary,
			CreatedAt:     time.Now(),
		}
	}

	p.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}
	if v != nil {
		if err := s.repo.CreateVersion(ctx, v); err != nil {
			return nil, fmt.Errorf("failed to record policy version: %w", err)
		}
	}
	return s.repo.Get(ctx, id)
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *serviceImpl) Transition(ctx context.Context, id string, to models.PolicyStatus) (*models.PolicyDocument, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range transitions[p.Status] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, errors.NewTransitionError("policy", string(p.Status), string(to))
	}

	if to == models.PolicyStatusPublished && p.EffectiveDate == nil {
		now := time.Now()
		p.EffectiveDate = &now
	}
	p.Status = to
	p.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to transition policy: %w", err)
	}
	return p, nil
}

func (s *serviceImpl) ListVersions(ctx context.Context, policyID string) ([]*models.PolicyVersion, error) {
	if _, err := s.repo.Get(ctx, policyID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, policyID)
}

func (s *serviceImpl) Acknowledge(ctx context.Context, policyID, userID string) (*models.PolicyAcknowledgment, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "user is required")
	}
	p, err := s.repo.Get(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PolicyStatusPublished {
		return nil, errors.NewValidationError("status", "only published policies can be acknowledged")
	}

	ack := &models.PolicyAcknowledgment{
		ID:             uuid.New().String(),
		PolicyID:       policyID,
		UserID:         userID,
		PolicyVersion:  p.Version,
		AcknowledgedAt: time.Now(),
	}
	if err := s.repo.CreateAcknowledgment(ctx, ack); err != nil {
		return nil, fmt.Errorf("failed to record acknowledgment: %w", err)
	}
	return ack, nil
}

func (s *serviceImpl) AcknowledgmentStatus(ctx context.Context, policyID string) (*AckStatus, error) {
	p, err := s.repo.Get(ctx, policyID)
	if err != nil {
		return nil, err
	}
	acks, err := s.repo.ListAcknowledgments(ctx, policyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list acknowledgments: %w", err)
	}

	// keep only each user's latest acknowledged version
	latest := make(map[string]int)
	for _, ack := range acks {
		if v, ok := latest[ack.UserID]; !ok || ack.PolicyVersion > v {
			latest[ack.UserID] = ack.PolicyVersion
		}
	}

	st := &AckStatus{PolicyID: p.ID, CurrentVersion: p.Version}
	for _, v := range latest {
		if v == p.Version {
			st.Acknowledged++
		} else {
			st.Stale++
		}
	}
	return st, nil
}

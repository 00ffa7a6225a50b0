// Package task manages compliance work items and their comment threads.
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// NewService creates a new task service.
func NewService(repo Repository) Service {
	return &serviceImpl{repo: repo}
}

type serviceImpl struct {
	repo Repository
}

func (s *serviceImpl) Create(ctx context.Context, req CreateRequest) (*models.Task, error) {
	if req.Title == "" {
		return nil, errors.NewValidationError("title", "title is required")
	}
	if req.Priority == "" {
		req.Priority = models.TaskPriorityMedium
	}
	if !validPriority(req.Priority) {
		return nil, errors.NewValidationError("priority", "unknown priority")
	}

	now := time.Now()
	t := &models.Task{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		TaskType:    req.TaskType,
		Priority:    req.Priority,
		Status:      models.TaskStatusOpen,
		Assignee:    req.Assignee,
		DueAt:       req.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return t, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*models.Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *serviceImpl) List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Task, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *serviceImpl) Update(ctx context.Context, id string, req UpdateRequest) (*models.Task, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, errors.NewValidationError("title", "title cannot be empty")
		}
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.TaskType != nil {
		t.TaskType = *req.TaskType
	}
	if req.Priority != nil {
		if !validPriority(*req.Priority) {
			return nil, errors.NewValidationError("priority", "unknown priority")
		}
		t.Priority = *req.Priority
	}
	if req.Assignee != nil {
		t.Assignee = *req.Assignee
	}
	if req.DueAt != nil {
		t.DueAt = req.DueAt
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, errors.NewValidationError("status", "unknown status")
		}
		if *req.Status != t.Status {
			if *req.Status == models.TaskStatusCompleted {
				now := time.Now()
				t.CompletedAt = &now
			} else {
				t.CompletedAt = nil
			}
			t.Status = *req.Status
		}
	}
	t.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return t, nil
}

func (s *serviceImpl) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *serviceImpl) AddComment(ctx context.Context, taskID string, req CommentRequest) (*models.TaskComment, error) {
	if req.Content == "" {
		return nil, errors.NewValidationError("content", "content is required")
	}
	if req.Author == "" {
		return nil, errors.NewValidationError("author", "author is required")
	}
	if _, err := s.repo.Get(ctx, taskID); err != nil {
		return nil, err
	}

	c := &models.TaskComment{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		Content:   req.Content,
		Author:    req.Author,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return c, nil
}

func (s *serviceImpl) ListComments(ctx context.Context, taskID string) ([]*models.TaskComment, error) {
	if _, err := s.repo.Get(ctx, taskID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, taskID)
}

func (s *serviceImpl) Stats(ctx context.Context) (*Stats, error) {
	tasks, _, err := s.repo.List(ctx, Filter{}, allTasksLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}

	stats := &Stats{
		Total:      len(tasks),
		ByStatus:   make(map[string]int),
		ByPriority: make(map[string]int),
	}
	now := time.Now()
	for _, t := range tasks {
		stats.ByStatus[string(t.Status)]++
		stats.ByPriority[string(t.Priority)]++
		if t.IsOverdue(now) {
			stats.Overdue++
		}
	}
	return stats, nil
}

const allTasksLimit = 10000

func validPriority(p models.TaskPriority) bool {
	switch p {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityCritical:
		return true
	}
	return false
}

func validStatus(s models.TaskStatus) bool {
	switch s {
	case models.TaskStatusOpen, models.TaskStatusInProgress, models.TaskStatusCompleted:
		return true
	}
	return false
}

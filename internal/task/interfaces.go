// Package task manages compliance work items and their comment threads.
package task

import (
	"context"
	"time"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Filter narrows task listings. All set fields must match. Overdue filters to
// tasks past due and not completed.
type Filter struct {
	Query    string
	Status   models.TaskStatus
	Priority models.TaskPriority
	Assignee string
	TaskType string
	Overdue  bool
}

// Repository defines task persistence operations.
type Repository interface {
	// Create persists a new task.
	Create(ctx context.Context, task *models.Task) error
	// Get retrieves a task by ID with its comments.
	Get(ctx context.Context, id string) (*models.Task, error)
	// List returns tasks matching the filter with the total match count.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Task, int, error)
	// Update updates an existing task.
	Update(ctx context.Context, task *models.Task) error
	// Delete removes a task and its comments.
	Delete(ctx context.Context, id string) error

	// CreateComment appends a comment to a task.
	CreateComment(ctx context.Context, comment *models.TaskComment) error
	// ListComments returns a task's comments, oldest first.
	ListComments(ctx context.Context, taskID string) ([]*models.TaskComment, error)
}

// CreateRequest represents a task creation request.
type CreateRequest struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	TaskType    string              `json:"task_type"`
	Priority    models.TaskPriority `json:"priority"`
	Assignee    string              `json:"assignee"`
	DueAt       *time.Time          `json:"due_at"`
}

// UpdateRequest represents a sparse task update. Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	TaskType    *string              `json:"task_type"`
	Priority    *models.TaskPriority `json:"priority"`
	Status      *models.TaskStatus   `json:"status"`
	Assignee    *string              `json:"assignee"`
	DueAt       *time.Time           `json:"due_at"`
}

// CommentRequest represents a new task comment.
type CommentRequest struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// Stats summarizes the task queue.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	Overdue    int            `json:"overdue"`
}

// Service defines task business operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]*models.Task, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*models.Task, error)
	Delete(ctx context.Context, id string) error

	AddComment(ctx context.Context, taskID string, req CommentRequest) (*models.TaskComment, error)
	ListComments(ctx context.Context, taskID string) ([]*models.TaskComment, error)

	Stats(ctx context.Context) (*Stats, error)
}

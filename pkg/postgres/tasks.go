package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/task"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Task Repository
// =============================================================================

// TaskRepository implements task persistence.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `t.id, t.title, t.description, t.task_type, t.priority,
	t.status, t.assignee, t.due_at, t.completed_at, t.created_at, t.updated_at`

// Create persists a new task.
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("invalid task ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, task_type, priority, status,
			assignee, due_at, completed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, t.Title, nullStr(t.Description), nullStr(t.TaskType), string(t.Priority),
		string(t.Status), nullStr(t.Assignee), t.DueAt, t.CompletedAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Get retrieves a task by ID with its comments.
func (r *TaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid task ID: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = $1`, uid)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if t.Comments, err = r.ListComments(ctx, id); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns tasks matching the filter with the total match count.
func (r *TaskRepository) List(ctx context.Context, filter task.Filter, limit, offset int) ([]*models.Task, int, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("t.status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		conds = append(conds, fmt.Sprintf("t.priority = $%d", len(args)))
	}
	if filter.Assignee != "" {
		args = append(args, filter.Assignee)
		conds = append(conds, fmt.Sprintf("t.assignee = $%d", len(args)))
	}
	if filter.TaskType != "" {
		args = append(args, filter.TaskType)
		conds = append(conds, fmt.Sprintf("t.task_type = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(t.title ILIKE $%d OR t.description ILIKE $%d)", len(args), len(args)))
	}
	if filter.Overdue {
		conds = append(conds, "t.due_at IS NOT NULL AND t.due_at < NOW() AND t.status != 'completed'")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks t`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks t` + where +
		fmt.Sprintf(` ORDER BY t.due_at ASC NULLS LAST, t.created_at DESC LIMIT $%d OFFSET $%d`,
			len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

// Update updates an existing task.
func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("invalid task ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $2, description = $3, task_type = $4, priority = $5,
			status = $6, assignee = $7, due_at = $8, completed_at = $9, updated_at = $10
		 WHERE id = $1`,
		id, t.Title, nullStr(t.Description), nullStr(t.TaskType), string(t.Priority),
		string(t.Status), nullStr(t.Assignee), t.DueAt, t.CompletedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Delete removes a task and its comments.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid task ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// CreateComment appends a comment to a task.
func (r *TaskRepository) CreateComment(ctx context.Context, c *models.TaskComment) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("invalid comment ID: %w", err)
	}
	tid, err := uuid.Parse(c.TaskID)
	if err != nil {
		return fmt.Errorf("invalid task ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO task_comments (id, task_id, content, author, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, tid, c.Content, c.Author, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListComments returns a task's comments, oldest first.
func (r *TaskRepository) ListComments(ctx context.Context, taskID string) ([]*models.TaskComment, error) {
	tid, err := uuid.Parse(taskID)
	if err != nil {
		return nil, fmt.Errorf("invalid task ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, task_id, content, author, created_at
		 FROM task_comments WHERE task_id = $1
		 ORDER BY created_at ASC`, tid)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*models.TaskComment
	for rows.Next() {
		c := &models.TaskComment{}
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Content, &c.Author, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func scanTask(row rowScanner) (*models.Task, error) {
	t := &models.Task{}
	var description, taskType, assignee sql.NullString
	var priority, status string
	err := row.Scan(&t.ID, &t.Title, &description, &taskType, &priority, &status,
		&assignee, &t.DueAt, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Description = description.String
	t.TaskType = taskType.String
	t.Priority = models.TaskPriority(priority)
	t.Status = models.TaskStatus(status)
	t.Assignee = assignee.String
	return t, nil
}

var _ task.Repository = (*TaskRepository)(nil)

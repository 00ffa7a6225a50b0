package task

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// mockRepository is an in-memory task repository for testing.
type mockRepository struct {
	tasks    map[string]*models.Task
	comments map[string][]*models.TaskComment
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		tasks:    make(map[string]*models.Task),
		comments: make(map[string][]*models.TaskComment),
	}
}

func (m *mockRepository) Create(_ context.Context, t *models.Task) error {
	m.tasks[t.ID] = t
	return nil
}

func (m *mockRepository) Get(_ context.Context, id string) (*models.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := *t
	out.Comments = m.sortedComments(id)
	return &out, nil
}

func (m *mockRepository) List(_ context.Context, filter Filter, limit, offset int) ([]*models.Task, int, error) {
	now := time.Now()
	var all []*models.Task
	for _, t := range m.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if filter.Assignee != "" && t.Assignee != filter.Assignee {
			continue
		}
		if filter.TaskType != "" && t.TaskType != filter.TaskType {
			continue
		}
		if filter.Overdue && !t.IsOverdue(now) {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(filter.Query)) {
			continue
		}
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Title < all[j].Title })
	total := len(all)
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (m *mockRepository) Update(_ context.Context, t *models.Task) error {
	if _, ok := m.tasks[t.ID]; !ok {
		return errors.ErrNotFound
	}
	m.tasks[t.ID] = t
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.tasks[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.tasks, id)
	delete(m.comments, id)
	return nil
}

func (m *mockRepository) CreateComment(_ context.Context, c *models.TaskComment) error {
	m.comments[c.TaskID] = append(m.comments[c.TaskID], c)
	return nil
}

func (m *mockRepository) ListComments(_ context.Context, taskID string) ([]*models.TaskComment, error) {
	return m.sortedComments(taskID), nil
}

func (m *mockRepository) sortedComments(taskID string) []*models.TaskComment {
	list := append([]*models.TaskComment(nil), m.comments[taskID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

func TestTaskLifecycle(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Title: "Review access logs"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusOpen, created.Status)
	assert.Equal(t, models.TaskPriorityMedium, created.Priority)

	t.Run("completing a task stamps completed_at", func(t *testing.T) {
		st := models.TaskStatusCompleted
		done, err := svc.Update(ctx, created.ID, UpdateRequest{Status: &st})
		require.NoError(t, err)
		require.NotNil(t, done.CompletedAt)
	})

	t.Run("reopening clears completed_at", func(t *testing.T) {
		st := models.TaskStatusInProgress
		reopened, err := svc.Update(ctx, created.ID, UpdateRequest{Status: &st})
		require.NoError(t, err)
		assert.Nil(t, reopened.CompletedAt)
	})

	t.Run("title is required", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateRequest{})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestOverdue(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	late, err := svc.Create(ctx, CreateRequest{Title: "Late task", DueAt: &past})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Title: "On-time task", DueAt: &future})
	require.NoError(t, err)
	doneLate, err := svc.Create(ctx, CreateRequest{Title: "Done late task", DueAt: &past})
	require.NoError(t, err)
	st := models.TaskStatusCompleted
	_, err = svc.Update(ctx, doneLate.ID, UpdateRequest{Status: &st})
	require.NoError(t, err)

	t.Run("overdue filter excludes completed tasks", func(t *testing.T) {
		got, total, err := svc.List(ctx, Filter{Overdue: true}, 50, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, got, 1)
		assert.Equal(t, late.ID, got[0].ID)
	})

	t.Run("stats count overdue", func(t *testing.T) {
		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.Overdue)
	})
}

func TestComments(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateRequest{Title: "Review access logs"})
	require.NoError(t, err)

	t.Run("comments are append-only and ordered", func(t *testing.T) {
		_, err := svc.AddComment(ctx, created.ID, CommentRequest{Content: "first", Author: "alice"})
		require.NoError(t, err)
		_, err = svc.AddComment(ctx, created.ID, CommentRequest{Content: "second", Author: "bob"})
		require.NoError(t, err)

		comments, err := svc.ListComments(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "first", comments[0].Content)
		assert.Equal(t, "second", comments[1].Content)
	})

	t.Run("comment requires author and content", func(t *testing.T) {
		_, err := svc.AddComment(ctx, created.ID, CommentRequest{Content: "x"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
		_, err = svc.AddComment(ctx, created.ID, CommentRequest{Author: "alice"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("comment on missing task fails", func(t *testing.T) {
		_, err := svc.AddComment(ctx, "missing", CommentRequest{Content: "x", Author: "alice"})
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

package control

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// mockRepository is an in-memory control repository for testing.
type mockRepository struct {
	controls     map[string]*models.Control
	requirements map[string]*models.FrameworkRequirement
	// control ID -> set of requirement IDs
	mapped map[string]map[string]bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		controls:     make(map[string]*models.Control),
		requirements: make(map[string]*models.FrameworkRequirement),
		mapped:       make(map[string]map[string]bool),
	}
}

func (m *mockRepository) Create(_ context.Context, c *models.Control) error {
	m.controls[c.ID] = c
	return nil
}

func (m *mockRepository) Get(_ context.Context, id string) (*models.Control, error) {
	c, ok := m.controls[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := *c
	reqs, _ := m.ListMappedRequirements(context.Background(), id)
	out.MappedRequirements = reqs
	return &out, nil
}

func (m *mockRepository) GetByCode(_ context.Context, code string) (*models.Control, error) {
	for _, c := range m.controls {
		if c.Code == code {
			out := *c
			return &out, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (m *mockRepository) List(_ context.Context, filter Filter, limit, offset int) ([]*models.Control, int, error) {
	var all []*models.Control
	for id, c := range m.controls {
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.ControlType != "" && c.ControlType != filter.ControlType {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.Code), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.FrameworkID != "" {
			found := false
			for rid := range m.mapped[id] {
				if r, ok := m.requirements[rid]; ok && r.FrameworkID == filter.FrameworkID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
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

func (m *mockRepository) Update(_ context.Context, c *models.Control) error {
	if _, ok := m.controls[c.ID]; !ok {
		return errors.ErrNotFound
	}
	m.controls[c.ID] = c
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.controls[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.controls, id)
	delete(m.mapped, id)
	return nil
}

func (m *mockRepository) MapRequirements(_ context.Context, controlID string, requirementIDs []string) error {
	for _, rid := range requirementIDs {
		if _, ok := m.requirements[rid]; !ok {
			return errors.ErrNotFound
		}
	}
	if m.mapped[controlID] == nil {
		m.mapped[controlID] = make(map[string]bool)
	}
	for _, rid := range requirementIDs {
		m.mapped[controlID][rid] = true
	}
	return nil
}

func (m *mockRepository) UnmapRequirement(_ context.Context, controlID, requirementID string) error {
	if !m.mapped[controlID][requirementID] {
		return errors.ErrNotFound
	}
	delete(m.mapped[controlID], requirementID)
	return nil
}

func (m *mockRepository) ListMappedRequirements(_ context.Context, controlID string) ([]*models.FrameworkRequirement, error) {
	var list []*models.FrameworkRequirement
	for rid := range m.mapped[controlID] {
		if r, ok := m.requirements[rid]; ok {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (m *mockRepository) ListCandidateRequirements(_ context.Context, controlID, frameworkID string) ([]*models.FrameworkRequirement, error) {
	var list []*models.FrameworkRequirement
	for rid, r := range m.requirements {
		if r.FrameworkID != frameworkID {
			continue
		}
		if m.mapped[controlID][rid] {
			continue
		}
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	return list, nil
}

func (m *mockRepository) addRequirement(frameworkID, code string) *models.FrameworkRequirement {
	r := &models.FrameworkRequirement{ID: code + "-id", FrameworkID: frameworkID, Code: code, Title: code}
	m.requirements[r.ID] = r
	return r
}

func TestCreateControl(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	t.Run("creates control with defaults", func(t *testing.T) {
		c, err := svc.Create(ctx, CreateRequest{Code: "AC-1", Name: "Access Control Policy"})
		require.NoError(t, err)
		assert.Equal(t, models.ControlTypePreventive, c.ControlType)
		assert.Equal(t, models.ControlStatusNotImplemented, c.Status)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateRequest{Code: "AC-1", Name: "Duplicate"})
		assert.ErrorIs(t, err, errors.ErrConflict)
	})

	t.Run("code is required", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateRequest{Name: "No code"})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestRequirementMapping(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateRequest{Code: "AC-1", Name: "Access Control Policy"})
	require.NoError(t, err)

	r1 := repo.addRequirement("fw-1", "CC1.1")
	r2 := repo.addRequirement("fw-1", "CC1.2")
	r3 := repo.addRequirement("fw-1", "CC2.1")
	repo.addRequirement("fw-2", "A.5.1")

	t.Run("batch map is idempotent", func(t *testing.T) {
		mapped, err := svc.MapRequirements(ctx, c.ID, []string{r1.ID, r2.ID})
		require.NoError(t, err)
		assert.Len(t, mapped, 2)

		// mapping an already-linked requirement again is not an error
		mapped, err = svc.MapRequirements(ctx, c.ID, []string{r2.ID, r3.ID})
		require.NoError(t, err)
		assert.Len(t, mapped, 3)
	})

	t.Run("candidates exclude mapped and other frameworks", func(t *testing.T) {
		candidates, err := svc.CandidateRequirements(ctx, c.ID, "fw-1")
		require.NoError(t, err)
		assert.Empty(t, candidates)

		require.NoError(t, svc.UnmapRequirement(ctx, c.ID, r3.ID))
		candidates, err = svc.CandidateRequirements(ctx, c.ID, "fw-1")
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "CC2.1", candidates[0].Code)
	})

	t.Run("framework_id is required for candidates", func(t *testing.T) {
		_, err := svc.CandidateRequirements(ctx, c.ID, "")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("unmapping a missing link fails", func(t *testing.T) {
		err := svc.UnmapRequirement(ctx, c.ID, r3.ID)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		_, err := svc.MapRequirements(ctx, c.ID, nil)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestControlFilterByFramework(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	c1, err := svc.Create(ctx, CreateRequest{Code: "AC-1", Name: "Access"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Code: "CM-1", Name: "Change"})
	require.NoError(t, err)

	r := repo.addRequirement("fw-1", "CC1.1")
	_, err = svc.MapRequirements(ctx, c1.ID, []string{r.ID})
	require.NoError(t, err)

	got, total, err := svc.List(ctx, Filter{FrameworkID: "fw-1"}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "AC-1", got[0].Code)
}

func TestControlStats(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	st := models.ControlStatusImplemented
	_, err := svc.Create(ctx, CreateRequest{Code: "AC-1", Name: "a", Status: st})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Code: "AC-2", Name: "b"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Implemented)
	assert.Equal(t, 1, stats.ByStatus["not_implemented"])
}

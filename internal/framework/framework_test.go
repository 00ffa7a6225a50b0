package framework

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

// mockRepository is an in-memory framework repository for testing.
type mockRepository struct {
	frameworks   map[string]*models.Framework
	requirements map[string]*models.FrameworkRequirement
	// requirement ID -> control statuses mapped to it
	mappings map[string][]models.ControlStatus
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		frameworks:   make(map[string]*models.Framework),
		requirements: make(map[string]*models.FrameworkRequirement),
		mappings:     make(map[string][]models.ControlStatus),
	}
}

func (m *mockRepository) Create(_ context.Context, fw *models.Framework) error {
	m.frameworks[fw.ID] = fw
	return nil
}

func (m *mockRepository) Get(_ context.Context, id string) (*models.Framework, error) {
	fw, ok := m.frameworks[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := *fw
	return &out, nil
}

func (m *mockRepository) List(_ context.Context, filter Filter, limit, offset int) ([]*models.Framework, int, error) {
	var all []*models.Framework
	for _, fw := range m.frameworks {
		if filter.Category != "" && fw.Category != filter.Category {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(fw.Name), strings.ToLower(filter.Query)) {
			continue
		}
		all = append(all, fw)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
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

func (m *mockRepository) Update(_ context.Context, fw *models.Framework) error {
	if _, ok := m.frameworks[fw.ID]; !ok {
		return errors.ErrNotFound
	}
	m.frameworks[fw.ID] = fw
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.frameworks[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.frameworks, id)
	for rid, r := range m.requirements {
		if r.FrameworkID == id {
			delete(m.requirements, rid)
		}
	}
	return nil
}

func (m *mockRepository) CreateRequirement(_ context.Context, r *models.FrameworkRequirement) error {
	m.requirements[r.ID] = r
	return nil
}

func (m *mockRepository) GetRequirement(_ context.Context, id string) (*models.FrameworkRequirement, error) {
	r, ok := m.requirements[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (m *mockRepository) ListRequirements(_ context.Context, frameworkID string) ([]*models.FrameworkRequirement, error) {
	var list []*models.FrameworkRequirement
	for _, r := range m.requirements {
		if r.FrameworkID == frameworkID {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].SortOrder != list[j].SortOrder {
			return list[i].SortOrder < list[j].SortOrder
		}
		return list[i].Code < list[j].Code
	})
	return list, nil
}

func (m *mockRepository) UpdateRequirement(_ context.Context, r *models.FrameworkRequirement) error {
	if _, ok := m.requirements[r.ID]; !ok {
		return errors.ErrNotFound
	}
	m.requirements[r.ID] = r
	return nil
}

func (m *mockRepository) DeleteRequirement(_ context.Context, id string) error {
	if _, ok := m.requirements[id]; !ok {
		return errors.ErrNotFound
	}
	// delete the subtree rooted at id
	removed := map[string]bool{id: true}
	delete(m.requirements, id)
	for changed := true; changed; {
		changed = false
		for rid, r := range m.requirements {
			if removed[r.ParentID] {
				removed[rid] = true
				delete(m.requirements, rid)
				changed = true
			}
		}
	}
	return nil
}

func (m *mockRepository) MappedRequirementIDs(_ context.Context, frameworkID string, status models.ControlStatus) ([]string, error) {
	var ids []string
	for rid, r := range m.requirements {
		if r.FrameworkID != frameworkID {
			continue
		}
		for _, st := range m.mappings[rid] {
			if status == "" || st == status {
				ids = append(ids, rid)
				break
			}
		}
	}
	return ids, nil
}

func TestFrameworkLifecycle(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	t.Run("create and update", func(t *testing.T) {
		fw, err := svc.Create(ctx, CreateRequest{Name: "SOC 2", Version: "2017"})
		require.NoError(t, err)
		assert.False(t, fw.IsSystem)

		desc := "Trust Services Criteria"
		updated, err := svc.Update(ctx, fw.ID, UpdateRequest{Description: &desc})
		require.NoError(t, err)
		assert.Equal(t, desc, updated.Description)
		assert.Equal(t, "SOC 2", updated.Name)
	})

	t.Run("system frameworks are read-only", func(t *testing.T) {
		fw, err := svc.Create(ctx, CreateRequest{Name: "ISO 27001"})
		require.NoError(t, err)
		repo.frameworks[fw.ID].IsSystem = true

		name := "renamed"
		_, err = svc.Update(ctx, fw.ID, UpdateRequest{Name: &name})
		assert.ErrorIs(t, err, errors.ErrSystemFramework)
		assert.ErrorIs(t, svc.Delete(ctx, fw.ID), errors.ErrSystemFramework)
	})
}

func TestRequirements(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	fw, err := svc.Create(ctx, CreateRequest{Name: "SOC 2"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, CreateRequest{Name: "ISO 27001"})
	require.NoError(t, err)

	t.Run("parent must belong to the same framework", func(t *testing.T) {
		foreign, err := svc.AddRequirement(ctx, other.ID, RequirementRequest{Code: "A.1", Title: "Foreign"})
		require.NoError(t, err)

		_, err = svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "CC1.1", Title: "X", ParentID: foreign.ID})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("deleting a parent removes descendants", func(t *testing.T) {
		root, err := svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "CC1", Title: "Control Environment"})
		require.NoError(t, err)
		child, err := svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "CC1.1", Title: "COSO 1", ParentID: root.ID})
		require.NoError(t, err)
		grandchild, err := svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "CC1.1.1", Title: "Detail", ParentID: child.ID})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteRequirement(ctx, root.ID))
		_, err = svc.GetRequirement(ctx, child.ID)
		assert.ErrorIs(t, err, errors.ErrNotFound)
		_, err = svc.GetRequirement(ctx, grandchild.ID)
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("reparenting rejects self and descendants", func(t *testing.T) {
		root, err := svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "A1", Title: "Root"})
		require.NoError(t, err)
		child, err := svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "A1.1", Title: "Child", ParentID: root.ID})
		require.NoError(t, err)
		grandchild, err := svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "A1.1.1", Title: "Grandchild", ParentID: child.ID})
		require.NoError(t, err)

		_, err = svc.UpdateRequirement(ctx, root.ID, RequirementRequest{Code: "A1", Title: "Root", ParentID: root.ID})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)

		_, err = svc.UpdateRequirement(ctx, root.ID, RequirementRequest{Code: "A1", Title: "Root", ParentID: child.ID})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)

		_, err = svc.UpdateRequirement(ctx, root.ID, RequirementRequest{Code: "A1", Title: "Root", ParentID: grandchild.ID})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)

		require.NoError(t, svc.DeleteRequirement(ctx, root.ID))
	})

	t.Run("requirements ordered by sort order then code", func(t *testing.T) {
		_, err := svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "CC3", Title: "c", SortOrder: 2})
		require.NoError(t, err)
		_, err = svc.AddRequirement(ctx, fw.ID, RequirementRequest{Code: "CC2", Title: "b", SortOrder: 1})
		require.NoError(t, err)

		list, err := svc.ListRequirements(ctx, fw.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "CC2", list[0].Code)
		assert.Equal(t, "CC3", list[1].Code)
	})
}

func TestGapAnalysis(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	fw, err := svc.Create(ctx, CreateRequest{Name: "SOC 2"})
	require.NoError(t, err)

	var ids []string
	for _, rr := range []RequirementRequest{
		{Code: "CC1.1", Title: "CC1.1", Category: "Control Environment"},
		{Code: "CC1.2", Title: "CC1.2", Category: "Control Environment"},
		{Code: "CC2.1", Title: "CC2.1", Category: "Communication"},
		{Code: "CC3.1", Title: "CC3.1"},
	} {
		r, err := svc.AddRequirement(ctx, fw.ID, rr)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	// two requirements covered by implemented controls, one only by an
	// in-progress control, one unmapped
	repo.mappings[ids[0]] = []models.ControlStatus{models.ControlStatusImplemented}
	repo.mappings[ids[1]] = []models.ControlStatus{models.ControlStatusInProgress, models.ControlStatusImplemented}
	repo.mappings[ids[2]] = []models.ControlStatus{models.ControlStatusInProgress}

	ga, err := svc.Analyze(ctx, fw.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, ga.TotalRequirements)
	assert.Equal(t, 3, ga.MappedAny)
	assert.Equal(t, 2, ga.MappedImplemented)
	assert.InDelta(t, 50.0, ga.CoveragePercent, 0.01)

	require.Len(t, ga.Categories, 3)
	assert.Equal(t, []CategoryGap{
		{Category: "Communication", TotalRequirements: 1, MappedAny: 1},
		{Category: "Control Environment", TotalRequirements: 2, MappedAny: 2, MappedImplemented: 2, CoveragePercent: 100},
		{Category: "uncategorized", TotalRequirements: 1},
	}, ga.Categories)
}

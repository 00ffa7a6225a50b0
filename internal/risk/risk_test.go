package risk

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

// mockRepository is an in-memory risk repository for testing.
type mockRepository struct {
	risks map[string]*models.Risk
}

func newMockRepository() *mockRepository {
	return &mockRepository{risks: make(map[string]*models.Risk)}
}

func (m *mockRepository) Create(_ context.Context, r *models.Risk) error {
	m.risks[r.ID] = r
	return nil
}

func (m *mockRepository) Get(_ context.Context, id string) (*models.Risk, error) {
	r, ok := m.risks[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (m *mockRepository) List(_ context.Context, filter Filter, limit, offset int) ([]*models.Risk, int, error) {
	var all []*models.Risk
	for _, r := range m.risks {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		if filter.Owner != "" && r.Owner != filter.Owner {
			continue
		}
		if filter.Level != "" && r.Level() != filter.Level {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(r.Title), strings.ToLower(filter.Query)) {
			continue
		}
		all = append(all, r)
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

func (m *mockRepository) Update(_ context.Context, r *models.Risk) error {
	if _, ok := m.risks[r.ID]; !ok {
		return errors.ErrNotFound
	}
	m.risks[r.ID] = r
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.risks[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.risks, id)
	return nil
}

func TestRiskScoring(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	t.Run("level derives from likelihood times impact", func(t *testing.T) {
		r, err := svc.Create(ctx, CreateRequest{Title: "Data breach", Likelihood: 4, Impact: 4})
		require.NoError(t, err)
		assert.Equal(t, 16, r.Score())
		assert.Equal(t, models.RiskLevelCritical, r.Level())
	})

	t.Run("score bounds are enforced", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateRequest{Title: "x", Likelihood: 0, Impact: 3})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
		_, err = svc.Create(ctx, CreateRequest{Title: "x", Likelihood: 3, Impact: 6})
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})
}

func TestBucketBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  models.RiskLevel
	}{
		{1, models.RiskLevelLow},
		{4, models.RiskLevelLow},
		{5, models.RiskLevelMedium},
		{9, models.RiskLevelMedium},
		{10, models.RiskLevelHigh},
		{14, models.RiskLevelHigh},
		{15, models.RiskLevelCritical},
		{25, models.RiskLevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, models.BucketRiskScore(tc.score), "score %d", tc.score)
	}
}

func TestHeatmap(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	mk := func(title string, l, i int) {
		t.Helper()
		_, err := svc.Create(ctx, CreateRequest{Title: title, Likelihood: l, Impact: i})
		require.NoError(t, err)
	}
	mk("a", 1, 1)
	mk("b", 1, 1)
	mk("c", 5, 5)
	mk("d", 2, 3)

	hm, err := svc.Heatmap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, hm.Total)
	assert.Len(t, hm.Cells, 25)

	byCell := make(map[[2]int]HeatmapCell)
	for _, c := range hm.Cells {
		byCell[[2]int{c.Likelihood, c.Impact}] = c
	}
	assert.Equal(t, 2, byCell[[2]int{1, 1}].Count)
	assert.Equal(t, 1, byCell[[2]int{5, 5}].Count)
	assert.Equal(t, models.RiskLevelCritical, byCell[[2]int{5, 5}].Level)
	assert.Equal(t, models.RiskLevelMedium, byCell[[2]int{2, 3}].Level)

	assert.Equal(t, 2, hm.ByLevel["low"])
	assert.Equal(t, 1, hm.ByLevel["medium"])
	assert.Equal(t, 1, hm.ByLevel["critical"])
}

func TestRiskLevelFilter(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateRequest{Title: "minor", Likelihood: 1, Impact: 2})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateRequest{Title: "major", Likelihood: 5, Impact: 4})
	require.NoError(t, err)

	got, total, err := svc.List(ctx, Filter{Level: models.RiskLevelCritical}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, "major", got[0].Title)
}

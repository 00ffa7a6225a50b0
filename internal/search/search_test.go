package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

type mockRepository struct {
	entries   []*models.SearchResult
	lastLimit int
}

func (m *mockRepository) Search(_ context.Context, query string, limit int) ([]*models.SearchResult, error) {
	m.lastLimit = limit
	var out []*models.SearchResult
	for _, e := range m.entries {
		if strings.Contains(strings.ToLower(e.Title), strings.ToLower(query)) {
			copy := *e
			out = append(out, &copy)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func TestSearch(t *testing.T) {
	repo := &mockRepository{entries: []*models.SearchResult{
		{ID: "control:c1", EntityID: "c1", Type: "control", Code: "AC-1", Title: "Access Control Policy"},
		{ID: "policy:p1", EntityID: "p1", Type: "policy", Code: "POL-1", Title: "Access Review Policy"},
		{ID: "vendor:v1", EntityID: "v1", Type: "vendor", Title: "Acme Hosting"},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	t.Run("assigns canonical paths", func(t *testing.T) {
		results, err := svc.Search(ctx, "access", 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "/controls/c1", results[0].Path)
		assert.Equal(t, "/policies/p1", results[1].Path)
	})

	t.Run("empty query rejected", func(t *testing.T) {
		_, err := svc.Search(ctx, "   ", 10)
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	t.Run("limit defaults and caps", func(t *testing.T) {
		_, err := svc.Search(ctx, "access", 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultLimit, repo.lastLimit)

		_, err = svc.Search(ctx, "access", 5000)
		require.NoError(t, err)
		assert.Equal(t, MaxLimit, repo.lastLimit)
	})
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, "/vendors/v1", PathFor("vendor", "v1"))
	assert.Equal(t, "/requirements/r1", PathFor("requirement", "r1"))
	assert.Equal(t, "/assets/a1", PathFor("asset", "a1"))
	assert.Equal(t, "/tasks/t1", PathFor("task", "t1"))
	assert.Equal(t, "/risks/r1", PathFor("risk", "r1"))
}

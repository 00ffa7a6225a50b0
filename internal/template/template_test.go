package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
)

func TestTemplateLibrary(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	t.Run("list returns catalog without content", func(t *testing.T) {
		all, err := svc.List(ctx, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(all), 5)
		for _, tpl := range all {
			assert.Empty(t, tpl.Content)
		}
	})

	t.Run("list filters by category", func(t *testing.T) {
		sec, err := svc.List(ctx, "security")
		require.NoError(t, err)
		require.NotEmpty(t, sec)
		for _, tpl := range sec {
			assert.Equal(t, "security", tpl.Category)
		}
	})

	t.Run("get loads embedded markdown", func(t *testing.T) {
		tpl, err := svc.Get(ctx, "access-control")
		require.NoError(t, err)
		assert.Equal(t, "Access Control Policy", tpl.Title)
		assert.Contains(t, tpl.Content, "# Access Control Policy")
		assert.Contains(t, tpl.Content, "least privilege")
	})

	t.Run("every catalog entry has embedded content", func(t *testing.T) {
		all, err := svc.List(ctx, "")
		require.NoError(t, err)
		for _, tpl := range all {
			got, err := svc.Get(ctx, tpl.ID)
			require.NoError(t, err, "template %s", tpl.ID)
			assert.NotEmpty(t, got.Content)
		}
	})

	t.Run("unknown template not found", func(t *testing.T) {
		_, err := svc.Get(ctx, "nope")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})
}

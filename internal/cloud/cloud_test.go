package cloud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgErrors "github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// mockRepository records replaced snapshots. Reader methods beyond the ones
// defined here are not exercised by these tests.
type mockRepository struct {
	Reader
	replaced []*models.CloudSnapshot
}

func (m *mockRepository) ReplaceSnapshot(_ context.Context, snapshot *models.CloudSnapshot) error {
	m.replaced = append(m.replaced, snapshot)
	return nil
}

func (m *mockRepository) ListS3Buckets(_ context.Context, filter Filter, limit, offset int) ([]*models.S3Bucket, int, error) {
	return []*models.S3Bucket{{Name: "logs"}}, 1, nil
}

func TestImportSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("valid snapshot replaces stored inventory", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo)

		err := svc.ImportSnapshot(ctx, &models.CloudSnapshot{
			AccountID: "123456789012",
			S3Buckets: []*models.S3Bucket{{Name: "logs", Region: "eu-west-1"}},
			EC2Instances: []*models.EC2Instance{
				{InstanceID: "i-0abc123", Region: "eu-west-1"},
			},
			SecurityHubFindings: []*models.SecurityHubFinding{
				{FindingID: "arn:finding/1", Title: "Root account used", Severity: "HIGH"},
			},
		})
		require.NoError(t, err)
		require.Len(t, repo.replaced, 1)
		assert.Equal(t, "123456789012", repo.replaced[0].AccountID)
	})

	t.Run("empty snapshot clears account inventory", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo)

		err := svc.ImportSnapshot(ctx, &models.CloudSnapshot{AccountID: "123456789012"})
		require.NoError(t, err)
		require.Len(t, repo.replaced, 1)
	})

	t.Run("nil snapshot rejected", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo)

		err := svc.ImportSnapshot(ctx, nil)
		assert.ErrorIs(t, err, pkgErrors.ErrInvalidInput)
		assert.Empty(t, repo.replaced)
	})

	t.Run("missing account id rejected", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo)

		err := svc.ImportSnapshot(ctx, &models.CloudSnapshot{})
		assert.ErrorIs(t, err, pkgErrors.ErrInvalidInput)
		assert.Empty(t, repo.replaced)
	})

	t.Run("bucket without name rejected", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo)

		err := svc.ImportSnapshot(ctx, &models.CloudSnapshot{
			AccountID: "123456789012",
			S3Buckets: []*models.S3Bucket{{Region: "eu-west-1"}},
		})
		assert.ErrorIs(t, err, pkgErrors.ErrInvalidInput)
		assert.Empty(t, repo.replaced)
	})

	t.Run("instance without instance id rejected", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo)

		err := svc.ImportSnapshot(ctx, &models.CloudSnapshot{
			AccountID:    "123456789012",
			EC2Instances: []*models.EC2Instance{{Region: "eu-west-1"}},
		})
		assert.ErrorIs(t, err, pkgErrors.ErrInvalidInput)
		assert.Empty(t, repo.replaced)
	})

	t.Run("finding without title rejected", func(t *testing.T) {
		repo := &mockRepository{}
		svc := NewService(repo)

		err := svc.ImportSnapshot(ctx, &models.CloudSnapshot{
			AccountID:           "123456789012",
			SecurityHubFindings: []*models.SecurityHubFinding{{FindingID: "arn:finding/1"}},
		})
		assert.ErrorIs(t, err, pkgErrors.ErrInvalidInput)
		assert.Empty(t, repo.replaced)
	})
}

func TestServiceDelegatesReads(t *testing.T) {
	svc := NewService(&mockRepository{})

	buckets, total, err := svc.ListS3Buckets(context.Background(), Filter{}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, buckets, 1)
	assert.Equal(t, "logs", buckets[0].Name)
}

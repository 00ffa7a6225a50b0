package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// fakeAssets records upserts keyed by (source, external id).
type fakeAssets struct {
	upserts map[string]*models.Asset
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{upserts: make(map[string]*models.Asset)}
}

func (f *fakeAssets) UpsertSynced(_ context.Context, a *models.Asset) (*models.Asset, error) {
	f.upserts[a.IntegrationSource+"/"+a.ExternalID] = a
	return a, nil
}

type staticProvider struct {
	name   string
	assets []*models.Asset
	err    error
}

func (p *staticProvider) Name() string        { return p.name }
func (p *staticProvider) Description() string { return "static test provider" }
func (p *staticProvider) FetchAssets(context.Context) ([]*models.Asset, error) {
	return p.assets, p.err
}

func TestSync(t *testing.T) {
	ctx := context.Background()

	t.Run("sync upserts discovered assets and stamps source", func(t *testing.T) {
		store := newFakeAssets()
		svc := NewService(store)
		svc.Register(&staticProvider{name: "aws", assets: []*models.Asset{
			{ExternalID: "i-1", Name: "web-1"},
			{ExternalID: "i-2", Name: "web-2"},
		}})

		res, err := svc.Sync(ctx, "aws")
		require.NoError(t, err)
		assert.Equal(t, 2, res.Synced)
		assert.Len(t, store.upserts, 2)
		assert.Equal(t, "aws", store.upserts["aws/i-1"].IntegrationSource)

		statuses := svc.Status(ctx)
		require.Len(t, statuses, 1)
		assert.NotNil(t, statuses[0].LastSyncAt)
		assert.Equal(t, 2, statuses[0].LastCount)
		assert.Empty(t, statuses[0].LastError)
	})

	t.Run("provider failure is recorded in status", func(t *testing.T) {
		store := newFakeAssets()
		svc := NewService(store)
		svc.Register(&staticProvider{name: "azure", err: fmt.Errorf("throttled")})

		_, err := svc.Sync(ctx, "azure")
		require.Error(t, err)
		var ie *errors.IntegrationError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "azure", ie.Provider)

		statuses := svc.Status(ctx)
		require.Len(t, statuses, 1)
		assert.Contains(t, statuses[0].LastError, "throttled")
	})

	t.Run("unknown provider not found", func(t *testing.T) {
		svc := NewService(newFakeAssets())
		_, err := svc.Sync(ctx, "gcp")
		assert.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("sync all runs providers in name order", func(t *testing.T) {
		store := newFakeAssets()
		svc := NewService(store)
		svc.Register(&staticProvider{name: "b", assets: []*models.Asset{{ExternalID: "1", Name: "x"}}})
		svc.Register(&staticProvider{name: "a", assets: []*models.Asset{{ExternalID: "2", Name: "y"}}})

		results, err := svc.SyncAll(ctx)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].Provider)
		assert.Equal(t, "b", results[1].Provider)
	})
}

func TestHTTPProvider(t *testing.T) {
	t.Run("fetches and maps collector snapshot", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"external_id":"i-1","name":"web-1","asset_type":"ec2_instance","status":"running","ip_address":"10.0.0.5"}]`))
		}))
		defer srv.Close()

		p := NewHTTPProvider("aws", "AWS collector", srv.URL, "sekrit")
		assets, err := p.FetchAssets(context.Background())
		require.NoError(t, err)
		require.Len(t, assets, 1)
		assert.Equal(t, "i-1", assets[0].ExternalID)
		assert.Equal(t, "ec2_instance", assets[0].AssetType)
		assert.Equal(t, "10.0.0.5", assets[0].IPAddress)
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		p := NewHTTPProvider("aws", "AWS collector", srv.URL, "")
		_, err := p.FetchAssets(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
	})
}

// Package integration syncs assets discovered by external collectors into the
// inventory. Providers are read-only: the platform never mutates the remote
// system.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// AssetWriter is the slice of the asset service that syncs write through.
type AssetWriter interface {
	UpsertSynced(ctx context.Context, asset *models.Asset) (*models.Asset, error)
}

// Provider fetches discovered assets from an external system.
type Provider interface {
	// Name is the stable identifier recorded on synced assets.
	Name() string
	// Description is a human-readable summary shown in status listings.
	Description() string
	// FetchAssets returns the assets currently visible to the provider.
	FetchAssets(ctx context.Context) ([]*models.Asset, error)
}

// Status describes one provider's sync state.
type Status struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	LastCount   int        `json:"last_count"`
	LastError   string     `json:"last_error,omitempty"`
}

// SyncResult reports the outcome of a single provider sync.
type SyncResult struct {
	Provider string    `json:"provider"`
	Synced   int       `json:"synced"`
	SyncedAt time.Time `json:"synced_at"`
}

// Service manages registered providers and runs syncs.
type Service interface {
	Register(p Provider)
	Status(ctx context.Context) []*Status
	Sync(ctx context.Context, name string) (*SyncResult, error)
	SyncAll(ctx context.Context) ([]*SyncResult, error)
}

// NewService creates an integration service writing into the asset inventory.
func NewService(assets AssetWriter) Service {
	return &serviceImpl{
		assets:    assets,
		providers: make(map[string]Provider),
		state:     make(map[string]*Status),
	}
}

type serviceImpl struct {
	assets AssetWriter

	mu        sync.Mutex
	providers map[string]Provider
	state     map[string]*Status
}

func (s *serviceImpl) Register(p Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.Name()] = p
	s.state[p.Name()] = &Status{Name: p.Name(), Description: p.Description()}
}

func (s *serviceImpl) Status(_ context.Context) []*Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Status
	for _, st := range s.state {
		copy := *st
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *serviceImpl) Sync(ctx context.Context, name string) (*SyncResult, error) {
	s.mu.Lock()
	p, ok := s.providers[name]
	s.mu.Unlock()
	if !ok {
		return nil, errors.ErrNotFound
	}

	discovered, err := p.FetchAssets(ctx)
	if err != nil {
		s.recordError(name, err)
		return nil, errors.NewIntegrationError(name, "fetch", err)
	}

	synced := 0
	for _, a := range discovered {
		a.IntegrationSource = name
		if _, err := s.assets.UpsertSynced(ctx, a); err != nil {
			s.recordError(name, err)
			return nil, errors.NewIntegrationError(name, "upsert", err)
		}
		synced++
	}

	now := time.Now()
	s.mu.Lock()
	s.state[name].LastSyncAt = &now
	s.state[name].LastCount = synced
	s.state[name].LastError = ""
	s.mu.Unlock()

	return &SyncResult{Provider: name, Synced: synced, SyncedAt: now}, nil
}

func (s *serviceImpl) SyncAll(ctx context.Context) ([]*SyncResult, error) {
	s.mu.Lock()
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)

	var results []*SyncResult
	for _, name := range names {
		res, err := s.Sync(ctx, name)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *serviceImpl) recordError(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state[name]; ok {
		st.LastError = err.Error()
	}
}

// =============================================================================
// HTTP collector provider
// =============================================================================

// collectorAsset is the wire format collector agents publish.
type collectorAsset struct {
	ExternalID  string `json:"external_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AssetType   string `json:"asset_type"`
	Status      string `json:"status"`
	Location    string `json:"location"`
	IPAddress   string `json:"ip_address"`
}

// HTTPProvider reads discovered assets from a collector agent's HTTP endpoint.
// Collector agents run next to the cloud account (AWS, Azure) and expose an
// inventory snapshot as JSON.
type HTTPProvider struct {
	name        string
	description string
	url         string
	token       string
	client      *http.Client
}

// NewHTTPProvider creates a provider reading from a collector endpoint.
func NewHTTPProvider(name, description, url, token string) *HTTPProvider {
	return &HTTPProvider{
		name:        name,
		description: description,
		url:         url,
		token:       token,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *HTTPProvider) Name() string        { return p.name }
func (p *HTTPProvider) Description() string { return p.description }

// FetchAssets retrieves the collector's current inventory snapshot.
func (p *HTTPProvider) FetchAssets(ctx context.Context) ([]*models.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collector request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("collector returned %d: %s", resp.StatusCode, string(body))
	}

	var wire []collectorAsset
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode collector response: %w", err)
	}

	assets := make([]*models.Asset, 0, len(wire))
	for _, w := range wire {
		assets = append(assets, &models.Asset{
			ExternalID:  w.ExternalID,
			Name:        w.Name,
			Description: w.Description,
			AssetType:   w.AssetType,
			Status:      w.Status,
			Location:    w.Location,
			IPAddress:   w.IPAddress,
		})
	}
	return assets, nil
}

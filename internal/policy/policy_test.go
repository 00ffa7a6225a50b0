package policy

import (
	"context"
	stderrors "errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// mockRepository is an in-memory policy repository for testing.
type mockRepository struct {
	policies  map[string]*models.PolicyDocument
	versions  map[string][]*models.PolicyVersion
	acks      map[string][]*models.PolicyAcknowledgment
	updateErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		policies: make(map[string]*models.PolicyDocument),
		versions: make(map[string][]*models.PolicyVersion),
		acks:     make(map[string][]*models.PolicyAcknowledgment),
	}
}

func (m *mockRepository) Create(_ context.Context, p *models.PolicyDocument) error {
	m.policies[p.ID] = p
	m.versions[p.ID] = append(m.versions[p.ID], &models.PolicyVersion{
		ID: p.ID + "-v1", PolicyID: p.ID, Version: 1, Content: p.Content, CreatedAt: p.CreatedAt,
	})
	return nil
}

func (m *mockRepository) Get(_ context.Context, id string) (*models.PolicyDocument, error) {
	p, ok := m.policies[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	out := *p
	out.Versions = m.sortedVersions(id)
	out.Acknowledgments = append([]*models.PolicyAcknowledgment(nil), m.acks[id]...)
	return &out, nil
}

func (m *mockRepository) GetByCode(_ context.Context, code string) (*models.PolicyDocument, error) {
	for _, p := range m.policies {
		if p.Code == code {
			out := *p
			return &out, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (m *mockRepository) List(_ context.Context, filter Filter, limit, offset int) ([]*models.PolicyDocument, int, error) {
	var all []*models.PolicyDocument
	for _, p := range m.policies {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(filter.Query)) {
			continue
		}
		all = append(all, p)
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

func (m *mockRepository) Update(_ context.Context, p *models.PolicyDocument) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.policies[p.ID]; !ok {
		return errors.ErrNotFound
	}
	stored := *p
	stored.Versions = nil
	stored.Acknowledgments = nil
	m.policies[p.ID] = &stored
	return nil
}

func (m *mockRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.policies[id]; !ok {
		return errors.ErrNotFound
	}
	delete(m.policies, id)
	delete(m.versions, id)
	delete(m.acks, id)
	return nil
}

func (m *mockRepository) CreateVersion(_ context.Context, v *models.PolicyVersion) error {
	m.versions[v.PolicyID] = append(m.versions[v.PolicyID], v)
	return nil
}

func (m *mockRepository) ListVersions(_ context.Context, policyID string) ([]*models.PolicyVersion, error) {
	return m.sortedVersions(policyID), nil
}

func (m *mockRepository) CreateAcknowledgment(_ context.Context, ack *models.PolicyAcknowledgment) error {
	for _, existing := range m.acks[ack.PolicyID] {
		if existing.UserID == ack.UserID && existing.PolicyVersion == ack.PolicyVersion {
			return nil
		}
	}
	m.acks[ack.PolicyID] = append(m.acks[ack.PolicyID], ack)
	return nil
}

func (m *mockRepository) ListAcknowledgments(_ context.Context, policyID string) ([]*models.PolicyAcknowledgment, error) {
	return append([]*models.PolicyAcknowledgment(nil), m.acks[policyID]...), nil
}

func (m *mockRepository) sortedVersions(policyID string) []*models.PolicyVersion {
	list := append([]*models.PolicyVersion(nil), m.versions[policyID]...)
	sort.Slice(list, func(i, j int) bool { return list[i].Version > list[j].Version })
	return list
}

func TestPolicyVersioning(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Code: "POL-1", Title: "Acceptable Use", Content: "v1 text"})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, models.PolicyStatusDraft, p.Status)

	t.Run("content change bumps version and appends history", func(t *testing.T) {
		content := "v2 text"
		updated, err := svc.Update(ctx, p.ID, UpdateRequest{Content: &content, ChangeSummary: "clarified scope"})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		versions, err := svc.ListVersions(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, versions, 2)
		assert.Equal(t, 2, versions[0].Version)
		assert.Equal(t, "clarified scope", versions[0].ChangeSummary)
		assert.Equal(t, "v1 text", versions[1].Content)
	})

	t.Run("failed update records no version", func(t *testing.T) {
		repo.updateErr = stderrors.New("connection reset")
		defer func() { repo.updateErr = nil }()

		content := "v3 text"
		_, err := svc.Update(ctx, p.ID, UpdateRequest{Content: &content})
		require.Error(t, err)

		versions, err := svc.ListVersions(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, versions, 2)

		stored, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.Version)
		assert.Equal(t, "v2 text", stored.Content)
	})

	t.Run("metadata-only update keeps version", func(t *testing.T) {
		title := "Acceptable Use Policy"
		updated, err := svc.Update(ctx, p.ID, UpdateRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)
		assert.Equal(t, title, updated.Title)
	})

	t.Run("identical content does not bump version", func(t *testing.T) {
		content := "v2 text"
		updated, err := svc.Update(ctx, p.ID, UpdateRequest{Content: &content})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateRequest{Code: "POL-1", Title: "Dup"})
		assert.ErrorIs(t, err, errors.ErrConflict)
	})
}

func TestPolicyTransitions(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Code: "POL-1", Title: "Acceptable Use"})
	require.NoError(t, err)

	t.Run("draft cannot publish directly", func(t *testing.T) {
		_, err := svc.Transition(ctx, p.ID, models.PolicyStatusPublished)
		assert.ErrorIs(t, err, errors.ErrInvalidTransition)
	})

	t.Run("approval path publishes and sets effective date", func(t *testing.T) {
		_, err := svc.Transition(ctx, p.ID, models.PolicyStatusPendingApproval)
		require.NoError(t, err)
		published, err := svc.Transition(ctx, p.ID, models.PolicyStatusPublished)
		require.NoError(t, err)
		assert.Equal(t, models.PolicyStatusPublished, published.Status)
		assert.NotNil(t, published.EffectiveDate)
	})

	t.Run("published can return to draft for revision", func(t *testing.T) {
		back, err := svc.Transition(ctx, p.ID, models.PolicyStatusDraft)
		require.NoError(t, err)
		assert.Equal(t, models.PolicyStatusDraft, back.Status)
	})
}

func TestAcknowledgments(t *testing.T) {
	svc := NewService(newMockRepository())
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateRequest{Code: "POL-1", Title: "Acceptable Use", Content: "v1"})
	require.NoError(t, err)

	t.Run("draft policies cannot be acknowledged", func(t *testing.T) {
		_, err := svc.Acknowledge(ctx, p.ID, "alice")
		assert.ErrorIs(t, err, errors.ErrInvalidInput)
	})

	_, err = svc.Transition(ctx, p.ID, models.PolicyStatusPendingApproval)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, p.ID, models.PolicyStatusPublished)
	require.NoError(t, err)

	t.Run("acknowledgment binds to current version", func(t *testing.T) {
		ack, err := svc.Acknowledge(ctx, p.ID, "alice")
		require.NoError(t, err)
		assert.Equal(t, 1, ack.PolicyVersion)

		got, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, got.HasAcknowledged("alice"))
		assert.False(t, got.HasAcknowledged("bob"))
	})

	t.Run("new version makes prior acknowledgments stale", func(t *testing.T) {
		content := "v2"
		_, err := svc.Update(ctx, p.ID, UpdateRequest{Content: &content})
		require.NoError(t, err)

		got, err := svc.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, got.HasAcknowledged("alice"))

		st, err := svc.AcknowledgmentStatus(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, st.CurrentVersion)
		assert.Equal(t, 0, st.Acknowledged)
		assert.Equal(t, 1, st.Stale)

		_, err = svc.Acknowledge(ctx, p.ID, "alice")
		require.NoError(t, err)
		st, err = svc.AcknowledgmentStatus(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, st.Acknowledged)
		assert.Equal(t, 0, st.Stale)
	})
}

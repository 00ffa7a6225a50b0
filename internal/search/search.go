// Package search provides unified cross-entity search.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// DefaultLimit caps result counts when the caller does not specify one.
const DefaultLimit = 20

// MaxLimit is the hard ceiling on result counts.
const MaxLimit = 100

// Repository defines the search index query. Implementations match the query
// case-insensitively against codes, names, titles and descriptions of all
// searchable entities. Results carry no Path; the service assigns it.
type Repository interface {
	Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error)
}

// Service defines unified search.
type Service interface {
	Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error)
}

// NewService creates a new search service.
func NewService(repo Repository) Service {
	return &serviceImpl{repo: repo}
}

type serviceImpl struct {
	repo Repository
}

func (s *serviceImpl) Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError("q", "query is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	results, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	for _, r := range results {
		r.Path = PathFor(r.Type, r.EntityID)
	}
	return results, nil
}

// PathFor returns the canonical client route for an entity. Every hit of a
// given entity uses the same route regardless of how it matched.
func PathFor(entityType, id string) string {
	switch entityType {
	case "vendor":
		return "/vendors/" + id
	case "control":
		return "/controls/" + id
	case "framework":
		return "/frameworks/" + id
	case "requirement":
		return "/requirements/" + id
	case "asset":
		return "/assets/" + id
	case "policy":
		return "/policies/" + id
	case "task":
		return "/tasks/" + id
	case "risk":
		return "/risks/" + id
	default:
		return "/" + entityType + "/" + id
	}
}

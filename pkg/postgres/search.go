package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/search"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Search Repository
// =============================================================================

// SearchRepository implements unified cross-entity search over a UNION of
// per-table ILIKE queries.
type SearchRepository struct {
	db *DB
}

// NewSearchRepository creates a new search repository.
func NewSearchRepository(db *DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Each arm projects into the same shape: type, entity id, code, title,
// description, category, status. Exact code matches sort first, then title
// matches, then the rest.
const searchQuery = `
SELECT * FROM (
	SELECT 'vendor' AS entity_type, id::text AS entity_id, '' AS code, name AS title,
		COALESCE(description, '') AS description, COALESCE(category, '') AS category,
		status::text AS status
	FROM vendors
	WHERE name ILIKE $1 OR description ILIKE $1
	UNION ALL
	SELECT 'control', id::text, code, name, COALESCE(description, ''),
		COALESCE(control_type::text, ''), status::text
	FROM controls
	WHERE code ILIKE $1 OR name ILIKE $1 OR description ILIKE $1
	UNION ALL
	SELECT 'framework', id::text, '', name, COALESCE(description, ''), '', ''
	FROM frameworks
	WHERE name ILIKE $1 OR description ILIKE $1
	UNION ALL
	SELECT 'requirement', fr.id::text, fr.code, fr.title,
		COALESCE(fr.description, ''), COALESCE(fr.category, ''), ''
	FROM framework_requirements fr
	WHERE fr.code ILIKE $1 OR fr.title ILIKE $1 OR fr.description ILIKE $1
	UNION ALL
	SELECT 'asset', id::text, '', name, COALESCE(description, ''),
		COALESCE(category, ''), COALESCE(status, '')
	FROM assets
	WHERE name ILIKE $1 OR description ILIKE $1 OR ip_address ILIKE $1
	UNION ALL
	SELECT 'policy', id::text, code, title, '', COALESCE(category, ''), status::text
	FROM policies
	WHERE code ILIKE $1 OR title ILIKE $1
	UNION ALL
	SELECT 'task', id::text, '', title, COALESCE(description, ''), '', status::text
	FROM tasks
	WHERE title ILIKE $1 OR description ILIKE $1
	UNION ALL
	SELECT 'risk', id::text, '', title, COALESCE(description, ''),
		COALESCE(category, ''), status::text
	FROM risks
	WHERE title ILIKE $1 OR description ILIKE $1
) hits
ORDER BY (code ILIKE $2) DESC, (title ILIKE $2) DESC, entity_type ASC, title ASC
LIMIT $3`

// Search matches the query case-insensitively across all searchable entities.
// Results carry no Path; the search service assigns it.
func (r *SearchRepository) Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	rows, err := r.db.QueryContext(ctx, searchQuery, "%"+query+"%", query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*models.SearchResult
	for rows.Next() {
		res, err := scanSearchResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func scanSearchResult(rows *sql.Rows) (*models.SearchResult, error) {
	res := &models.SearchResult{}
	err := rows.Scan(&res.Type, &res.EntityID, &res.Code, &res.Title,
		&res.Description, &res.Category, &res.Status)
	if err != nil {
		return nil, err
	}
	res.ID = res.Type + ":" + res.EntityID
	return res, nil
}

var _ search.Repository = (*SearchRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/framework"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Framework Repository
// =============================================================================

// FrameworkRepository implements framework persistence.
type FrameworkRepository struct {
	db *DB
}

// NewFrameworkRepository creates a new framework repository.
func NewFrameworkRepository(db *DB) *FrameworkRepository {
	return &FrameworkRepository{db: db}
}

const requirementColumns = `fr.id, fr.framework_id, fr.parent_id, fr.code, fr.title,
	fr.description, fr.category, fr.sort_order, fr.created_at, fr.updated_at`

// Create persists a new framework.
func (r *FrameworkRepository) Create(ctx context.Context, fw *models.Framework) error {
	id, err := uuid.Parse(fw.ID)
	if err != nil {
		return fmt.Errorf("invalid framework ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO frameworks (id, name, version, description, category, is_system, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, fw.Name, nullStr(fw.Version), nullStr(fw.Description), nullStr(fw.Category),
		fw.IsSystem, fw.CreatedAt, fw.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create framework: %w", err)
	}
	return nil
}

// Get retrieves a framework by ID.
func (r *FrameworkRepository) Get(ctx context.Context, id string) (*models.Framework, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid framework ID: %w", err)
	}

	fw := &models.Framework{}
	var version, description, category sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT id, name, version, description, category, is_system, created_at, updated_at
		 FROM frameworks WHERE id = $1`, uid,
	).Scan(&fw.ID, &fw.Name, &version, &description, &category, &fw.IsSystem, &fw.CreatedAt, &fw.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get framework: %w", err)
	}
	fw.Version = version.String
	fw.Description = description.String
	fw.Category = category.String
	return fw, nil
}

// List returns frameworks matching the filter with the total match count.
func (r *FrameworkRepository) List(ctx context.Context, filter framework.Filter, limit, offset int) ([]*models.Framework, int, error) {
	var conds []string
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM frameworks`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count frameworks: %w", err)
	}

	query := `SELECT id, name, version, description, category, is_system, created_at, updated_at
		 FROM frameworks` + where +
		fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list frameworks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var frameworks []*models.Framework
	for rows.Next() {
		fw := &models.Framework{}
		var version, description, category sql.NullString
		if err := rows.Scan(&fw.ID, &fw.Name, &version, &description, &category,
			&fw.IsSystem, &fw.CreatedAt, &fw.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan framework: %w", err)
		}
		fw.Version = version.String
		fw.Description = description.String
		fw.Category = category.String
		frameworks = append(frameworks, fw)
	}
	return frameworks, total, rows.Err()
}

// Update updates an existing framework.
func (r *FrameworkRepository) Update(ctx context.Context, fw *models.Framework) error {
	id, err := uuid.Parse(fw.ID)
	if err != nil {
		return fmt.Errorf("invalid framework ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE frameworks SET name = $2, version = $3, description = $4, category = $5, updated_at = $6
		 WHERE id = $1`,
		id, fw.Name, nullStr(fw.Version), nullStr(fw.Description), nullStr(fw.Category), fw.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update framework: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Delete removes a framework and all its requirements.
func (r *FrameworkRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid framework ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM frameworks WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete framework: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// CreateRequirement persists a new requirement.
func (r *FrameworkRepository) CreateRequirement(ctx context.Context, req *models.FrameworkRequirement) error {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return fmt.Errorf("invalid requirement ID: %w", err)
	}
	fid, err := uuid.Parse(req.FrameworkID)
	if err != nil {
		return fmt.Errorf("invalid framework ID: %w", err)
	}
	var parentID any
	if req.ParentID != "" {
		pid, err := uuid.Parse(req.ParentID)
		if err != nil {
			return fmt.Errorf("invalid parent ID: %w", err)
		}
		parentID = pid
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO framework_requirements (id, framework_id, parent_id, code, title,
			description, category, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, fid, parentID, req.Code, req.Title, nullStr(req.Description),
		nullStr(req.Category), req.SortOrder, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create requirement: %w", err)
	}
	return nil
}

// GetRequirement retrieves a requirement by ID.
func (r *FrameworkRepository) GetRequirement(ctx context.Context, id string) (*models.FrameworkRequirement, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid requirement ID: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+requirementColumns+` FROM framework_requirements fr WHERE fr.id = $1`, uid)
	req, err := scanRequirement(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get requirement: %w", err)
	}
	return req, nil
}

// ListRequirements returns all requirements of a framework ordered for display.
func (r *FrameworkRepository) ListRequirements(ctx context.Context, frameworkID string) ([]*models.FrameworkRequirement, error) {
	fid, err := uuid.Parse(frameworkID)
	if err != nil {
		return nil, fmt.Errorf("invalid framework ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+requirementColumns+`
		 FROM framework_requirements fr
		 WHERE fr.framework_id = $1
		 ORDER BY fr.category ASC NULLS FIRST, fr.sort_order ASC, fr.code ASC`, fid)
	if err != nil {
		return nil, fmt.Errorf("failed to list requirements: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRequirements(rows)
}

// UpdateRequirement updates an existing requirement.
func (r *FrameworkRepository) UpdateRequirement(ctx context.Context, req *models.FrameworkRequirement) error {
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return fmt.Errorf("invalid requirement ID: %w", err)
	}
	var parentID any
	if req.ParentID != "" {
		pid, err := uuid.Parse(req.ParentID)
		if err != nil {
			return fmt.Errorf("invalid parent ID: %w", err)
		}
		parentID = pid
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE framework_requirements SET parent_id = $2, code = $3, title = $4,
			description = $5, category = $6, sort_order = $7, updated_at = $8
		 WHERE id = $1`,
		id, parentID, req.Code, req.Title, nullStr(req.Description),
		nullStr(req.Category), req.SortOrder, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update requirement: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// DeleteRequirement removes a requirement. Descendants cascade via the
// parent_id foreign key.
func (r *FrameworkRepository) DeleteRequirement(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid requirement ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM framework_requirements WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete requirement: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// MappedRequirementIDs returns, for a framework, the IDs of requirements
// mapped to at least one control with the given status. An empty status
// matches mappings to any control.
func (r *FrameworkRepository) MappedRequirementIDs(ctx context.Context, frameworkID string, status models.ControlStatus) ([]string, error) {
	fid, err := uuid.Parse(frameworkID)
	if err != nil {
		return nil, fmt.Errorf("invalid framework ID: %w", err)
	}

	query := `SELECT DISTINCT fr.id
		 FROM framework_requirements fr
		 JOIN control_requirements cr ON cr.requirement_id = fr.id
		 JOIN controls c ON c.id = cr.control_id
		 WHERE fr.framework_id = $1`
	args := []any{fid}
	if status != "" {
		query += ` AND c.status = $2`
		args = append(args, string(status))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mapped requirements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan requirement ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanRequirement(row rowScanner) (*models.FrameworkRequirement, error) {
	req := &models.FrameworkRequirement{}
	var parentID, description, category sql.NullString
	err := row.Scan(&req.ID, &req.FrameworkID, &parentID, &req.Code, &req.Title,
		&description, &category, &req.SortOrder, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	req.ParentID = parentID.String
	req.Description = description.String
	req.Category = category.String
	return req, nil
}

func scanRequirements(rows *sql.Rows) ([]*models.FrameworkRequirement, error) {
	var reqs []*models.FrameworkRequirement
	for rows.Next() {
		req, err := scanRequirement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

var _ framework.Repository = (*FrameworkRepository)(nil)

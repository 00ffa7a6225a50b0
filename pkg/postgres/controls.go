package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/control"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Control Repository
// =============================================================================

// ControlRepository implements control persistence.
type ControlRepository struct {
	db *DB
}

// NewControlRepository creates a new control repository.
func NewControlRepository(db *DB) *ControlRepository {
	return &ControlRepository{db: db}
}

const controlColumns = `c.id, c.code, c.name, c.description, c.control_type,
	c.frequency, c.status, c.implementation_notes, c.created_at, c.updated_at`

// Create persists a new control.
func (r *ControlRepository) Create(ctx context.Context, c *models.Control) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("invalid control ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO controls (id, code, name, description, control_type, frequency, status,
			implementation_notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, c.Code, c.Name, nullStr(c.Description), string(c.ControlType),
		nullStr(c.Frequency), string(c.Status), nullStr(c.ImplementationNotes),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrConflict
		}
		return fmt.Errorf("failed to create control: %w", err)
	}
	return nil
}

// Get retrieves a control by ID with mapped requirements and linked assets.
func (r *ControlRepository) Get(ctx context.Context, id string) (*models.Control, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid control ID: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+controlColumns+` FROM controls c WHERE c.id = $1`, uid)
	c, err := scanControl(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get control: %w", err)
	}

	if c.MappedRequirements, err = r.ListMappedRequirements(ctx, id); err != nil {
		return nil, err
	}
	if c.LinkedAssets, err = r.listLinkedAssets(ctx, uid); err != nil {
		return nil, err
	}
	return c, nil
}

// GetByCode retrieves a control by its unique code.
func (r *ControlRepository) GetByCode(ctx context.Context, code string) (*models.Control, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+controlColumns+` FROM controls c WHERE c.code = $1`, code)
	c, err := scanControl(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get control by code: %w", err)
	}
	return c, nil
}

// List returns controls matching the filter with the total match count.
func (r *ControlRepository) List(ctx context.Context, filter control.Filter, limit, offset int) ([]*models.Control, int, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if filter.ControlType != "" {
		args = append(args, string(filter.ControlType))
		conds = append(conds, fmt.Sprintf("c.control_type = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(c.code ILIKE $%d OR c.name ILIKE $%d OR c.description ILIKE $%d)",
			len(args), len(args), len(args)))
	}
	if filter.FrameworkID != "" {
		args = append(args, filter.FrameworkID)
		conds = append(conds, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM control_requirements cr
			JOIN framework_requirements fr ON fr.id = cr.requirement_id
			WHERE cr.control_id = c.id AND fr.framework_id = $%d)`, len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM controls c`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count controls: %w", err)
	}

	query := `SELECT ` + controlColumns + ` FROM controls c` + where +
		fmt.Sprintf(` ORDER BY c.code ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list controls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var controls []*models.Control
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan control: %w", err)
		}
		controls = append(controls, c)
	}
	return controls, total, rows.Err()
}

// Update updates an existing control.
func (r *ControlRepository) Update(ctx context.Context, c *models.Control) error {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return fmt.Errorf("invalid control ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE controls SET code = $2, name = $3, description = $4, control_type = $5,
			frequency = $6, status = $7, implementation_notes = $8, updated_at = $9
		 WHERE id = $1`,
		id, c.Code, c.Name, nullStr(c.Description), string(c.ControlType),
		nullStr(c.Frequency), string(c.Status), nullStr(c.ImplementationNotes), c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.ErrConflict
		}
		return fmt.Errorf("failed to update control: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Delete removes a control and its mappings.
func (r *ControlRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid control ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM controls WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete control: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// MapRequirements links requirements to a control, skipping existing pairs.
func (r *ControlRepository) MapRequirements(ctx context.Context, controlID string, requirementIDs []string) error {
	cid, err := uuid.Parse(controlID)
	if err != nil {
		return fmt.Errorf("invalid control ID: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *Tx) error {
		for _, reqID := range requirementIDs {
			rid, err := uuid.Parse(reqID)
			if err != nil {
				return fmt.Errorf("invalid requirement ID: %w", err)
			}
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM framework_requirements WHERE id = $1)`, rid).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check requirement: %w", err)
			}
			if !exists {
				return errors.ErrNotFound
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO control_requirements (control_id, requirement_id)
				 VALUES ($1, $2) ON CONFLICT DO NOTHING`, cid, rid); err != nil {
				return fmt.Errorf("failed to map requirement: %w", err)
			}
		}
		return nil
	})
}

// UnmapRequirement removes a single control-requirement link.
func (r *ControlRepository) UnmapRequirement(ctx context.Context, controlID, requirementID string) error {
	cid, err := uuid.Parse(controlID)
	if err != nil {
		return fmt.Errorf("invalid control ID: %w", err)
	}
	rid, err := uuid.Parse(requirementID)
	if err != nil {
		return fmt.Errorf("invalid requirement ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM control_requirements WHERE control_id = $1 AND requirement_id = $2`, cid, rid)
	if err != nil {
		return fmt.Errorf("failed to unmap requirement: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// ListMappedRequirements returns the requirements mapped to a control.
func (r *ControlRepository) ListMappedRequirements(ctx context.Context, controlID string) ([]*models.FrameworkRequirement, error) {
	cid, err := uuid.Parse(controlID)
	if err != nil {
		return nil, fmt.Errorf("invalid control ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+requirementColumns+`
		 FROM framework_requirements fr
		 JOIN control_requirements cr ON cr.requirement_id = fr.id
		 WHERE cr.control_id = $1
		 ORDER BY fr.code ASC`, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to list mapped requirements: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRequirements(rows)
}

// ListCandidateRequirements returns a framework's requirements not yet mapped
// to the control.
func (r *ControlRepository) ListCandidateRequirements(ctx context.Context, controlID, frameworkID string) ([]*models.FrameworkRequirement, error) {
	cid, err := uuid.Parse(controlID)
	if err != nil {
		return nil, fmt.Errorf("invalid control ID: %w", err)
	}
	fid, err := uuid.Parse(frameworkID)
	if err != nil {
		return nil, fmt.Errorf("invalid framework ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+requirementColumns+`
		 FROM framework_requirements fr
		 WHERE fr.framework_id = $1
		   AND NOT EXISTS (
			SELECT 1 FROM control_requirements cr
			WHERE cr.requirement_id = fr.id AND cr.control_id = $2)
		 ORDER BY fr.category ASC NULLS FIRST, fr.sort_order ASC, fr.code ASC`, fid, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate requirements: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRequirements(rows)
}

func (r *ControlRepository) listLinkedAssets(ctx context.Context, controlID uuid.UUID) ([]*models.Asset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assetColumns+`
		 FROM assets a
		 JOIN asset_controls ac ON ac.asset_id = a.id
		 WHERE ac.control_id = $1
		 ORDER BY a.name ASC`, controlID)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []*models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func scanControl(row rowScanner) (*models.Control, error) {
	c := &models.Control{}
	var description, frequency, notes sql.NullString
	err := row.Scan(&c.ID, &c.Code, &c.Name, &description, &c.ControlType,
		&frequency, &c.Status, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	c.Frequency = frequency.String
	c.ImplementationNotes = notes.String
	return c, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

var _ control.Repository = (*ControlRepository)(nil)

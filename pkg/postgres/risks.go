package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/risk"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Risk Repository
// =============================================================================

// RiskRepository implements risk register persistence.
type RiskRepository struct {
	db *DB
}

// NewRiskRepository creates a new risk repository.
func NewRiskRepository(db *DB) *RiskRepository {
	return &RiskRepository{db: db}
}

const riskColumns = `r.id, r.title, r.description, r.category, r.likelihood,
	r.impact, r.status, r.owner, r.vendor_id, r.asset_id, r.created_at, r.updated_at`

// Create persists a new risk.
func (r *RiskRepository) Create(ctx context.Context, rk *models.Risk) error {
	id, err := uuid.Parse(rk.ID)
	if err != nil {
		return fmt.Errorf("invalid risk ID: %w", err)
	}
	vendorID, err := nullUUID(rk.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}
	assetID, err := nullUUID(rk.AssetID)
	if err != nil {
		return fmt.Errorf("invalid asset ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO risks (id, title, description, category, likelihood, impact,
			status, owner, vendor_id, asset_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, rk.Title, nullStr(rk.Description), nullStr(rk.Category), rk.Likelihood,
		rk.Impact, rk.Status, nullStr(rk.Owner), vendorID, assetID, rk.CreatedAt, rk.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create risk: %w", err)
	}
	return nil
}

// Get retrieves a risk by ID.
func (r *RiskRepository) Get(ctx context.Context, id string) (*models.Risk, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid risk ID: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+riskColumns+` FROM risks r WHERE r.id = $1`, uid)
	rk, err := scanRisk(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk: %w", err)
	}
	return rk, nil
}

// List returns risks matching the filter with the total match count. The Level
// filter is translated to a likelihood*impact score range.
func (r *RiskRepository) List(ctx context.Context, filter risk.Filter, limit, offset int) ([]*models.Risk, int, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("r.category = $%d", len(args)))
	}
	if filter.Owner != "" {
		args = append(args, filter.Owner)
		conds = append(conds, fmt.Sprintf("r.owner = $%d", len(args)))
	}
	if filter.Level != "" {
		if cond := levelScoreCond(filter.Level); cond != "" {
			conds = append(conds, cond)
		}
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(r.title ILIKE $%d OR r.description ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM risks r`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count risks: %w", err)
	}

	query := `SELECT ` + riskColumns + ` FROM risks r` + where +
		fmt.Sprintf(` ORDER BY r.likelihood * r.impact DESC, r.title ASC LIMIT $%d OFFSET $%d`,
			len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list risks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var risks []*models.Risk
	for rows.Next() {
		rk, err := scanRisk(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan risk: %w", err)
		}
		risks = append(risks, rk)
	}
	return risks, total, rows.Err()
}

// Update updates an existing risk.
func (r *RiskRepository) Update(ctx context.Context, rk *models.Risk) error {
	id, err := uuid.Parse(rk.ID)
	if err != nil {
		return fmt.Errorf("invalid risk ID: %w", err)
	}
	vendorID, err := nullUUID(rk.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}
	assetID, err := nullUUID(rk.AssetID)
	if err != nil {
		return fmt.Errorf("invalid asset ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE risks SET title = $2, description = $3, category = $4, likelihood = $5,
			impact = $6, status = $7, owner = $8, vendor_id = $9, asset_id = $10, updated_at = $11
		 WHERE id = $1`,
		id, rk.Title, nullStr(rk.Description), nullStr(rk.Category), rk.Likelihood,
		rk.Impact, rk.Status, nullStr(rk.Owner), vendorID, assetID, rk.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update risk: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Delete removes a risk.
func (r *RiskRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid risk ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM risks WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete risk: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

func levelScoreCond(level models.RiskLevel) string {
	switch level {
	case models.RiskLevelCritical:
		return "r.likelihood * r.impact > 14"
	case models.RiskLevelHigh:
		return "r.likelihood * r.impact > 9 AND r.likelihood * r.impact <= 14"
	case models.RiskLevelMedium:
		return "r.likelihood * r.impact > 4 AND r.likelihood * r.impact <= 9"
	case models.RiskLevelLow:
		return "r.likelihood * r.impact <= 4"
	}
	return ""
}

// nullUUID parses an optional UUID string into a driver value, mapping the
// empty string to NULL.
func nullUUID(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return id, nil
}

func scanRisk(row rowScanner) (*models.Risk, error) {
	rk := &models.Risk{}
	var description, category, owner, vendorID, assetID sql.NullString
	err := row.Scan(&rk.ID, &rk.Title, &description, &category, &rk.Likelihood,
		&rk.Impact, &rk.Status, &owner, &vendorID, &assetID, &rk.CreatedAt, &rk.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rk.Description = description.String
	rk.Category = category.String
	rk.Owner = owner.String
	rk.VendorID = vendorID.String
	rk.AssetID = assetID.String
	return rk, nil
}

var _ risk.Repository = (*RiskRepository)(nil)

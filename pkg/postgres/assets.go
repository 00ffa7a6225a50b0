package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/asset"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Asset Repository
// =============================================================================

// AssetRepository implements asset persistence.
type AssetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository.
func NewAssetRepository(db *DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `a.id, a.name, a.description, a.asset_type, a.category,
	a.classification, a.status, a.location, a.ip_address, a.lifecycle_stage,
	a.maintenance_expiry, a.support_expiry, a.integration_source, a.external_id,
	a.last_synced_at, a.created_at, a.updated_at`

// Create persists a new asset.
func (r *AssetRepository) Create(ctx context.Context, a *models.Asset) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("invalid asset ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO assets (id, name, description, asset_type, category, classification,
			status, location, ip_address, lifecycle_stage, maintenance_expiry, support_expiry,
			integration_source, external_id, last_synced_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		id, a.Name, nullStr(a.Description), nullStr(a.AssetType), nullStr(a.Category),
		nullStr(string(a.Classification)), nullStr(a.Status), nullStr(a.Location),
		nullStr(a.IPAddress), nullStr(string(a.LifecycleStage)), a.MaintenanceExpiry,
		a.SupportExpiry, nullStr(a.IntegrationSource), nullStr(a.ExternalID),
		a.LastSyncedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

// Get retrieves an asset by ID with linked controls.
func (r *AssetRepository) Get(ctx context.Context, id string) (*models.Asset, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid asset ID: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets a WHERE a.id = $1`, uid)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	if a.LinkedControls, err = r.ListLinkedControls(ctx, id); err != nil {
		return nil, err
	}
	return a, nil
}

// GetByExternalID retrieves an asset by integration source and external ID.
func (r *AssetRepository) GetByExternalID(ctx context.Context, source, externalID string) (*models.Asset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets a
		 WHERE a.integration_source = $1 AND a.external_id = $2`, source, externalID)
	a, err := scanAsset(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get synced asset: %w", err)
	}
	return a, nil
}

// List returns assets matching the filter with the total match count.
func (r *AssetRepository) List(ctx context.Context, filter asset.Filter, limit, offset int) ([]*models.Asset, int, error) {
	var conds []string
	var args []any
	if filter.AssetType != "" {
		args = append(args, filter.AssetType)
		conds = append(conds, fmt.Sprintf("a.asset_type = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("a.category = $%d", len(args)))
	}
	if filter.Classification != "" {
		args = append(args, string(filter.Classification))
		conds = append(conds, fmt.Sprintf("a.classification = $%d", len(args)))
	}
	if filter.LifecycleStage != "" {
		args = append(args, string(filter.LifecycleStage))
		conds = append(conds, fmt.Sprintf("a.lifecycle_stage = $%d", len(args)))
	}
	if filter.Source != "" {
		args = append(args, filter.Source)
		conds = append(conds, fmt.Sprintf("a.integration_source = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(a.name ILIKE $%d OR a.description ILIKE $%d OR a.ip_address ILIKE $%d)",
			len(args), len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets a`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assets: %w", err)
	}

	query := `SELECT ` + assetColumns + ` FROM assets a` + where +
		fmt.Sprintf(` ORDER BY a.name ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assets []*models.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, total, rows.Err()
}

// Update updates an existing asset.
func (r *AssetRepository) Update(ctx context.Context, a *models.Asset) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("invalid asset ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE assets SET name = $2, description = $3, asset_type = $4, category = $5,
			classification = $6, status = $7, location = $8, ip_address = $9,
			lifecycle_stage = $10, maintenance_expiry = $11, support_expiry = $12,
			integration_source = $13, external_id = $14, last_synced_at = $15, updated_at = $16
		 WHERE id = $1`,
		id, a.Name, nullStr(a.Description), nullStr(a.AssetType), nullStr(a.Category),
		nullStr(string(a.Classification)), nullStr(a.Status), nullStr(a.Location),
		nullStr(a.IPAddress), nullStr(string(a.LifecycleStage)), a.MaintenanceExpiry,
		a.SupportExpiry, nullStr(a.IntegrationSource), nullStr(a.ExternalID),
		a.LastSyncedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Delete removes an asset and its control links.
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid asset ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// LinkControls links controls to an asset, skipping existing pairs.
func (r *AssetRepository) LinkControls(ctx context.Context, assetID string, controlIDs []string) error {
	aid, err := uuid.Parse(assetID)
	if err != nil {
		return fmt.Errorf("invalid asset ID: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *Tx) error {
		for _, ctrlID := range controlIDs {
			cid, err := uuid.Parse(ctrlID)
			if err != nil {
				return fmt.Errorf("invalid control ID: %w", err)
			}
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM controls WHERE id = $1)`, cid).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check control: %w", err)
			}
			if !exists {
				return errors.ErrNotFound
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO asset_controls (asset_id, control_id)
				 VALUES ($1, $2) ON CONFLICT DO NOTHING`, aid, cid); err != nil {
				return fmt.Errorf("failed to link control: %w", err)
			}
		}
		return nil
	})
}

// UnlinkControl removes a single asset-control link.
func (r *AssetRepository) UnlinkControl(ctx context.Context, assetID, controlID string) error {
	aid, err := uuid.Parse(assetID)
	if err != nil {
		return fmt.Errorf("invalid asset ID: %w", err)
	}
	cid, err := uuid.Parse(controlID)
	if err != nil {
		return fmt.Errorf("invalid control ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM asset_controls WHERE asset_id = $1 AND control_id = $2`, aid, cid)
	if err != nil {
		return fmt.Errorf("failed to unlink control: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// ListLinkedControls returns the controls linked to an asset.
func (r *AssetRepository) ListLinkedControls(ctx context.Context, assetID string) ([]*models.Control, error) {
	aid, err := uuid.Parse(assetID)
	if err != nil {
		return nil, fmt.Errorf("invalid asset ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+controlColumns+`
		 FROM controls c
		 JOIN asset_controls ac ON ac.control_id = c.id
		 WHERE ac.asset_id = $1
		 ORDER BY c.code ASC`, aid)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked controls: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanControls(rows)
}

// ListCandidateControls returns controls not yet linked to the asset.
func (r *AssetRepository) ListCandidateControls(ctx context.Context, assetID string) ([]*models.Control, error) {
	aid, err := uuid.Parse(assetID)
	if err != nil {
		return nil, fmt.Errorf("invalid asset ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+controlColumns+`
		 FROM controls c
		 WHERE NOT EXISTS (
			SELECT 1 FROM asset_controls ac
			WHERE ac.control_id = c.id AND ac.asset_id = $1)
		 ORDER BY c.code ASC`, aid)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate controls: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanControls(rows)
}

func scanControls(rows *sql.Rows) ([]*models.Control, error) {
	var controls []*models.Control
	for rows.Next() {
		c, err := scanControl(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan control: %w", err)
		}
		controls = append(controls, c)
	}
	return controls, rows.Err()
}

func scanAsset(row rowScanner) (*models.Asset, error) {
	a := &models.Asset{}
	var description, assetType, category, classification, status sql.NullString
	var location, ipAddress, lifecycle, source, externalID sql.NullString
	err := row.Scan(&a.ID, &a.Name, &description, &assetType, &category,
		&classification, &status, &location, &ipAddress, &lifecycle,
		&a.MaintenanceExpiry, &a.SupportExpiry, &source, &externalID,
		&a.LastSyncedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Description = description.String
	a.AssetType = assetType.String
	a.Category = category.String
	a.Classification = models.DataClassification(classification.String)
	a.Status = status.String
	a.Location = location.String
	a.IPAddress = ipAddress.String
	a.LifecycleStage = models.LifecycleStage(lifecycle.String)
	a.IntegrationSource = source.String
	a.ExternalID = externalID.String
	return a, nil
}

var _ asset.Repository = (*AssetRepository)(nil)

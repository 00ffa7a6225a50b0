package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/vendor"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Vendor Repository
// =============================================================================

// VendorRepository implements vendor persistence.
type VendorRepository struct {
	db *DB
}

// NewVendorRepository creates a new vendor repository.
func NewVendorRepository(db *DB) *VendorRepository {
	return &VendorRepository{db: db}
}

// vendorColumns selects vendor rows together with the derived fields from the
// latest assessment.
const vendorColumns = `v.id, v.name, v.description, v.category, v.criticality,
	v.data_classification, v.status, v.website, v.contract_start, v.contract_end,
	la.risk_rating, la.assessed_at, la.next_assessment_date,
	v.created_at, v.updated_at`

const vendorLatestJoin = `LEFT JOIN LATERAL (
	SELECT risk_rating, assessed_at, next_assessment_date
	FROM vendor_assessments a WHERE a.vendor_id = v.id
	ORDER BY a.assessed_at DESC LIMIT 1
) la ON TRUE`

// Create persists a new vendor.
func (r *VendorRepository) Create(ctx context.Context, v *models.Vendor) error {
	id, err := uuid.Parse(v.ID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO vendors (id, name, description, category, criticality, data_classification,
			status, website, contract_start, contract_end, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, v.Name, nullStr(v.Description), nullStr(v.Category), string(v.Criticality),
		nullStr(string(v.DataClassification)), string(v.Status), nullStr(v.Website),
		v.ContractStart, v.ContractEnd, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create vendor: %w", err)
	}
	return nil
}

// Get retrieves a vendor by ID with assessments and derived fields.
func (r *VendorRepository) Get(ctx context.Context, id string) (*models.Vendor, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid vendor ID: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors v `+vendorLatestJoin+` WHERE v.id = $1`, uid)
	v, err := scanVendor(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vendor: %w", err)
	}

	assessments, err := r.ListAssessments(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Assessments = assessments
	return v, nil
}

// List returns vendors matching the filter with the total match count.
func (r *VendorRepository) List(ctx context.Context, filter vendor.Filter, limit, offset int) ([]*models.Vendor, int, error) {
	where, args := vendorWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM vendors v ` + vendorLatestJoin + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count vendors: %w", err)
	}

	query := `SELECT ` + vendorColumns + ` FROM vendors v ` + vendorLatestJoin + where +
		fmt.Sprintf(` ORDER BY v.name ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vendors []*models.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, total, rows.Err()
}

// Update updates an existing vendor.
func (r *VendorRepository) Update(ctx context.Context, v *models.Vendor) error {
	id, err := uuid.Parse(v.ID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE vendors SET name = $2, description = $3, category = $4, criticality = $5,
			data_classification = $6, status = $7, website = $8, contract_start = $9,
			contract_end = $10, updated_at = $11
		 WHERE id = $1`,
		id, v.Name, nullStr(v.Description), nullStr(v.Category), string(v.Criticality),
		nullStr(string(v.DataClassification)), string(v.Status), nullStr(v.Website),
		v.ContractStart, v.ContractEnd, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update vendor: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Delete removes a vendor and its assessments.
func (r *VendorRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM vendors WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// CreateAssessment persists a new assessment for a vendor.
func (r *VendorRepository) CreateAssessment(ctx context.Context, a *models.VendorAssessment) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return fmt.Errorf("invalid assessment ID: %w", err)
	}
	vendorID, err := uuid.Parse(a.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO vendor_assessments (id, vendor_id, assessment_type, risk_rating, findings,
			recommendations, assessed_at, next_assessment_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, vendorID, a.AssessmentType, string(a.RiskRating), nullStr(a.Findings),
		nullStr(a.Recommendations), a.AssessedAt, a.NextAssessmentDate, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

// ListAssessments returns a vendor's assessments, newest first.
func (r *VendorRepository) ListAssessments(ctx context.Context, vendorID string) ([]*models.VendorAssessment, error) {
	uid, err := uuid.Parse(vendorID)
	if err != nil {
		return nil, fmt.Errorf("invalid vendor ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, vendor_id, assessment_type, risk_rating, findings, recommendations,
			assessed_at, next_assessment_date, created_at
		 FROM vendor_assessments WHERE vendor_id = $1 ORDER BY assessed_at DESC`, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assessments []*models.VendorAssessment
	for rows.Next() {
		a := &models.VendorAssessment{}
		var findings, recommendations sql.NullString
		if err := rows.Scan(&a.ID, &a.VendorID, &a.AssessmentType, &a.RiskRating,
			&findings, &recommendations, &a.AssessedAt, &a.NextAssessmentDate, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		a.Findings = findings.String
		a.Recommendations = recommendations.String
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}

func vendorWhere(filter vendor.Filter) (string, []any) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("v.status = $%d", len(args)))
	}
	if filter.Criticality != "" {
		args = append(args, string(filter.Criticality))
		conds = append(conds, fmt.Sprintf("v.criticality = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("v.category = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(v.name ILIKE $%d OR v.description ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (*models.Vendor, error) {
	v := &models.Vendor{}
	var description, category, dataClass, website, lastRating sql.NullString
	var lastAssessed, nextAssessment sql.NullTime
	err := row.Scan(&v.ID, &v.Name, &description, &category, &v.Criticality,
		&dataClass, &v.Status, &website, &v.ContractStart, &v.ContractEnd,
		&lastRating, &lastAssessed, &nextAssessment, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Description = description.String
	v.Category = category.String
	v.DataClassification = models.DataClassification(dataClass.String)
	v.Website = website.String
	v.LastRiskRating = models.Criticality(lastRating.String)
	if lastAssessed.Valid {
		t := lastAssessed.Time
		v.LastAssessmentDate = &t
	}
	if nextAssessment.Valid {
		t := nextAssessment.Time
		v.NextAssessmentDate = &t
	}
	return v, nil
}

// nullStr maps empty strings to SQL NULL.
func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ vendor.Repository = (*VendorRepository)(nil)

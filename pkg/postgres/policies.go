package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/policy"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Policy Repository
// =============================================================================

// PolicyRepository implements policy persistence.
type PolicyRepository struct {
	db *DB
}

// NewPolicyRepository creates a new policy repository.
func NewPolicyRepository(db *DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

const policyColumns = `p.id, p.code, p.title, p.category, p.content, p.version,
	p.status, p.effective_date, p.review_date, p.created_at, p.updated_at`

// Create persists a new policy and its initial version row.
func (r *PolicyRepository) Create(ctx context.Context, p *models.PolicyDocument) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("invalid policy ID: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO policies (id, code, title, category, content, version, status,
				effective_date, review_date, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			id, p.Code, p.Title, nullStr(p.Category), p.Content, p.Version,
			string(p.Status), p.EffectiveDate, p.ReviewDate, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return errors.ErrConflict
			}
			return fmt.Errorf("failed to create policy: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO policy_versions (id, policy_id, version, content, change_summary, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), id, p.Version, p.Content, nullStr("Initial version"), p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create initial policy version: %w", err)
		}
		return nil
	})
}

// Get retrieves a policy by ID with versions and acknowledgments.
func (r *PolicyRepository) Get(ctx context.Context, id string) (*models.PolicyDocument, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid policy ID: %w", err)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies p WHERE p.id = $1`, uid)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	if p.Versions, err = r.ListVersions(ctx, id); err != nil {
		return nil, err
	}
	if p.Acknowledgments, err = r.ListAcknowledgments(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// GetByCode retrieves a policy by its unique code.
func (r *PolicyRepository) GetByCode(ctx context.Context, code string) (*models.PolicyDocument, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+policyColumns+` FROM policies p WHERE p.code = $1`, code)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get policy by code: %w", err)
	}
	return p, nil
}

// List returns policies matching the filter with the total match count.
// Listed policies omit content; use Get for the full document.
func (r *PolicyRepository) List(ctx context.Context, filter policy.Filter, limit, offset int) ([]*models.PolicyDocument, int, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, fmt.Sprintf("p.category = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(p.title ILIKE $%d OR p.code ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM policies p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count policies: %w", err)
	}

	query := `SELECT p.id, p.code, p.title, p.category, '' AS content, p.version,
		p.status, p.effective_date, p.review_date, p.created_at, p.updated_at
		FROM policies p` + where +
		fmt.Sprintf(` ORDER BY p.code ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list policies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var policies []*models.PolicyDocument
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan policy: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, total, rows.Err()
}

// Update updates an existing policy.
func (r *PolicyRepository) Update(ctx context.Context, p *models.PolicyDocument) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return fmt.Errorf("invalid policy ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE policies SET title = $2, category = $3, content = $4, version = $5,
			status = $6, effective_date = $7, review_date = $8, updated_at = $9
		 WHERE id = $1`,
		id, p.Title, nullStr(p.Category), p.Content, p.Version, string(p.Status),
		p.EffectiveDate, p.ReviewDate, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// Delete removes a policy and its history.
func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid policy ID: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM policies WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrNotFound
	}
	return nil
}

// CreateVersion appends a version row to a policy's history.
func (r *PolicyRepository) CreateVersion(ctx context.Context, v *models.PolicyVersion) error {
	id, err := uuid.Parse(v.ID)
	if err != nil {
		return fmt.Errorf("invalid version ID: %w", err)
	}
	pid, err := uuid.Parse(v.PolicyID)
	if err != nil {
		return fmt.Errorf("invalid policy ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO policy_versions (id, policy_id, version, content, change_summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, pid, v.Version, v.Content, nullStr(v.ChangeSummary), v.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create policy version: %w", err)
	}
	return nil
}

// ListVersions returns a policy's versions, newest first.
func (r *PolicyRepository) ListVersions(ctx context.Context, policyID string) ([]*models.PolicyVersion, error) {
	pid, err := uuid.Parse(policyID)
	if err != nil {
		return nil, fmt.Errorf("invalid policy ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, policy_id, version, content, change_summary, created_at
		 FROM policy_versions WHERE policy_id = $1
		 ORDER BY version DESC`, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to list policy versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []*models.PolicyVersion
	for rows.Next() {
		v := &models.PolicyVersion{}
		var summary sql.NullString
		if err := rows.Scan(&v.ID, &v.PolicyID, &v.Version, &v.Content, &summary, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan policy version: %w", err)
		}
		v.ChangeSummary = summary.String
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// CreateAcknowledgment records a user acknowledgment. Re-acknowledging the
// same version is a no-op.
func (r *PolicyRepository) CreateAcknowledgment(ctx context.Context, ack *models.PolicyAcknowledgment) error {
	id, err := uuid.Parse(ack.ID)
	if err != nil {
		return fmt.Errorf("invalid acknowledgment ID: %w", err)
	}
	pid, err := uuid.Parse(ack.PolicyID)
	if err != nil {
		return fmt.Errorf("invalid policy ID: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO policy_acknowledgments (id, policy_id, user_id, policy_version, acknowledged_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (policy_id, user_id, policy_version) DO NOTHING`,
		id, pid, ack.UserID, ack.PolicyVersion, ack.AcknowledgedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create acknowledgment: %w", err)
	}
	return nil
}

// ListAcknowledgments returns all acknowledgments for a policy.
func (r *PolicyRepository) ListAcknowledgments(ctx context.Context, policyID string) ([]*models.PolicyAcknowledgment, error) {
	pid, err := uuid.Parse(policyID)
	if err != nil {
		return nil, fmt.Errorf("invalid policy ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, policy_id, user_id, policy_version, acknowledged_at
		 FROM policy_acknowledgments WHERE policy_id = $1
		 ORDER BY acknowledged_at DESC`, pid)
	if err != nil {
		return nil, fmt.Errorf("failed to list acknowledgments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var acks []*models.PolicyAcknowledgment
	for rows.Next() {
		ack := &models.PolicyAcknowledgment{}
		if err := rows.Scan(&ack.ID, &ack.PolicyID, &ack.UserID, &ack.PolicyVersion, &ack.AcknowledgedAt); err != nil {
			return nil, fmt.Errorf("failed to scan acknowledgment: %w", err)
		}
		acks = append(acks, ack)
	}
	return acks, rows.Err()
}

func scanPolicy(row rowScanner) (*models.PolicyDocument, error) {
	p := &models.PolicyDocument{}
	var category sql.NullString
	var status string
	err := row.Scan(&p.ID, &p.Code, &p.Title, &category, &p.Content, &p.Version,
		&status, &p.EffectiveDate, &p.ReviewDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Category = category.String
	p.Status = models.PolicyStatus(status)
	return p, nil
}

var _ policy.Repository = (*PolicyRepository)(nil)

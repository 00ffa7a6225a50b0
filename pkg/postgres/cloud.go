package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/internal/cloud"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// =============================================================================
// Cloud Inventory Repository
// =============================================================================

// CloudRepository implements persistence for collector-populated cloud
// inventory records. All reads recompute derived security flags.
type CloudRepository struct {
	db *DB
}

// NewCloudRepository creates a new cloud inventory repository.
func NewCloudRepository(db *DB) *CloudRepository {
	return &CloudRepository{db: db}
}

// commonConds appends account/region equality conditions shared by every
// cloud table.
func commonConds(filter cloud.Filter, conds []string, args []any) ([]string, []any) {
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conds = append(conds, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		conds = append(conds, fmt.Sprintf("region = $%d", len(args)))
	}
	return conds, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func (r *CloudRepository) countRows(ctx context.Context, table, where string, args []any) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return total, nil
}

// ===== S3 buckets =====

const s3BucketColumns = `id, name, account_id, region, public_acl, public_policy,
	encryption_enabled, versioning_enabled, logging_enabled, bucket_created_at, last_synced_at`

// ListS3Buckets returns stored buckets matching the filter with the total
// match count.
func (r *CloudRepository) ListS3Buckets(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.S3Bucket, int, error) {
	var conds []string
	var args []any
	conds, args = commonConds(filter, conds, args)
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_s3_buckets", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + s3BucketColumns + ` FROM cloud_s3_buckets` + where +
		fmt.Sprintf(` ORDER BY name ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list s3 buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var buckets []*models.S3Bucket
	for rows.Next() {
		b, err := scanS3Bucket(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan s3 bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, total, rows.Err()
}

// GetS3Bucket retrieves one bucket by ID.
func (r *CloudRepository) GetS3Bucket(ctx context.Context, id string) (*models.S3Bucket, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid bucket ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+s3BucketColumns+` FROM cloud_s3_buckets WHERE id = $1`, uid)
	b, err := scanS3Bucket(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get s3 bucket: %w", err)
	}
	return b, nil
}

func scanS3Bucket(row rowScanner) (*models.S3Bucket, error) {
	b := &models.S3Bucket{}
	var created sql.NullTime
	err := row.Scan(&b.ID, &b.Name, &b.AccountID, &b.Region, &b.PublicACL, &b.PublicPolicy,
		&b.EncryptionEnabled, &b.VersioningEnabled, &b.LoggingEnabled, &created, &b.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	b.BucketCreatedAt = created.Time
	b.Derive()
	return b, nil
}

// ===== EC2 instances =====

const ec2InstanceColumns = `id, instance_id, name, instance_type, state, account_id,
	region, public_ip, private_ip, imdsv2_required, launched_at, last_synced_at`

// ListEC2Instances returns stored instances matching the filter with the
// total match count.
func (r *CloudRepository) ListEC2Instances(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.EC2Instance, int, error) {
	var conds []string
	var args []any
	conds, args = commonConds(filter, conds, args)
	if filter.State != "" {
		args = append(args, filter.State)
		conds = append(conds, fmt.Sprintf("state = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR instance_id ILIKE $%d)", len(args), len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_ec2_instances", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ec2InstanceColumns + ` FROM cloud_ec2_instances` + where +
		fmt.Sprintf(` ORDER BY instance_id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ec2 instances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var instances []*models.EC2Instance
	for rows.Next() {
		in, err := scanEC2Instance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ec2 instance: %w", err)
		}
		instances = append(instances, in)
	}
	return instances, total, rows.Err()
}

// GetEC2Instance retrieves one instance by ID.
func (r *CloudRepository) GetEC2Instance(ctx context.Context, id string) (*models.EC2Instance, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid instance ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+ec2InstanceColumns+` FROM cloud_ec2_instances WHERE id = $1`, uid)
	in, err := scanEC2Instance(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ec2 instance: %w", err)
	}
	return in, nil
}

func scanEC2Instance(row rowScanner) (*models.EC2Instance, error) {
	in := &models.EC2Instance{}
	var name, instanceType, state, publicIP, privateIP sql.NullString
	var launched sql.NullTime
	err := row.Scan(&in.ID, &in.InstanceID, &name, &instanceType, &state, &in.AccountID,
		&in.Region, &publicIP, &privateIP, &in.IMDSv2Required, &launched, &in.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	in.Name = name.String
	in.InstanceType = instanceType.String
	in.State = state.String
	in.PublicIP = publicIP.String
	in.PrivateIP = privateIP.String
	in.LaunchedAt = launched.Time
	in.Derive()
	return in, nil
}

// ===== RDS instances =====

const rdsInstanceColumns = `id, identifier, engine, engine_version, status, account_id,
	region, storage_encrypted, publicly_accessible, multi_az, last_synced_at`

// ListRDSInstances returns stored database instances matching the filter with
// the total match count.
func (r *CloudRepository) ListRDSInstances(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.RDSInstance, int, error) {
	var conds []string
	var args []any
	conds, args = commonConds(filter, conds, args)
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("identifier ILIKE $%d", len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_rds_instances", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + rdsInstanceColumns + ` FROM cloud_rds_instances` + where +
		fmt.Sprintf(` ORDER BY identifier ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rds instances: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var instances []*models.RDSInstance
	for rows.Next() {
		in, err := scanRDSInstance(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan rds instance: %w", err)
		}
		instances = append(instances, in)
	}
	return instances, total, rows.Err()
}

// GetRDSInstance retrieves one database instance by ID.
func (r *CloudRepository) GetRDSInstance(ctx context.Context, id string) (*models.RDSInstance, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid instance ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+rdsInstanceColumns+` FROM cloud_rds_instances WHERE id = $1`, uid)
	in, err := scanRDSInstance(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rds instance: %w", err)
	}
	return in, nil
}

func scanRDSInstance(row rowScanner) (*models.RDSInstance, error) {
	in := &models.RDSInstance{}
	var engine, engineVersion, status sql.NullString
	err := row.Scan(&in.ID, &in.Identifier, &engine, &engineVersion, &status, &in.AccountID,
		&in.Region, &in.StorageEncrypted, &in.PubliclyAccessible, &in.MultiAZ, &in.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	in.Engine = engine.String
	in.EngineVersion = engineVersion.String
	in.Status = status.String
	in.Derive()
	return in, nil
}

// ===== IAM users =====

const iamUserColumns = `id, user_name, arn, account_id, mfa_enabled, access_key_count,
	password_last_used, user_created_at, last_synced_at`

// ListIAMUsers returns stored users matching the filter with the total match count.
func (r *CloudRepository) ListIAMUsers(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.IAMUser, int, error) {
	var conds []string
	var args []any
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conds = append(conds, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("user_name ILIKE $%d", len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_iam_users", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + iamUserColumns + ` FROM cloud_iam_users` + where +
		fmt.Sprintf(` ORDER BY user_name ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list iam users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.IAMUser
	for rows.Next() {
		u, err := scanIAMUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan iam user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// GetIAMUser retrieves one user by ID.
func (r *CloudRepository) GetIAMUser(ctx context.Context, id string) (*models.IAMUser, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+iamUserColumns+` FROM cloud_iam_users WHERE id = $1`, uid)
	u, err := scanIAMUser(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get iam user: %w", err)
	}
	return u, nil
}

func scanIAMUser(row rowScanner) (*models.IAMUser, error) {
	u := &models.IAMUser{}
	var passwordLastUsed, created sql.NullTime
	err := row.Scan(&u.ID, &u.UserName, &u.ARN, &u.AccountID, &u.MFAEnabled, &u.AccessKeyCount,
		&passwordLastUsed, &created, &u.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	if passwordLastUsed.Valid {
		u.PasswordLastUsed = &passwordLastUsed.Time
	}
	u.UserCreatedAt = created.Time
	u.Derive()
	return u, nil
}

// ===== IAM roles =====

const iamRoleColumns = `id, role_name, arn, account_id, trust_policy, role_last_used,
	role_created_at, last_synced_at`

// ListIAMRoles returns stored roles matching the filter with the total match count.
func (r *CloudRepository) ListIAMRoles(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.IAMRole, int, error) {
	var conds []string
	var args []any
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conds = append(conds, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("role_name ILIKE $%d", len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_iam_roles", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + iamRoleColumns + ` FROM cloud_iam_roles` + where +
		fmt.Sprintf(` ORDER BY role_name ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list iam roles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var roles []*models.IAMRole
	for rows.Next() {
		role, err := scanIAMRole(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan iam role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, total, rows.Err()
}

// GetIAMRole retrieves one role by ID.
func (r *CloudRepository) GetIAMRole(ctx context.Context, id string) (*models.IAMRole, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid role ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+iamRoleColumns+` FROM cloud_iam_roles WHERE id = $1`, uid)
	role, err := scanIAMRole(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get iam role: %w", err)
	}
	return role, nil
}

func scanIAMRole(row rowScanner) (*models.IAMRole, error) {
	role := &models.IAMRole{}
	var trustPolicy sql.NullString
	var lastUsed, created sql.NullTime
	err := row.Scan(&role.ID, &role.RoleName, &role.ARN, &role.AccountID, &trustPolicy,
		&lastUsed, &created, &role.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	role.TrustPolicy = trustPolicy.String
	if lastUsed.Valid {
		role.RoleLastUsed = &lastUsed.Time
	}
	role.RoleCreatedAt = created.Time
	role.Derive()
	return role, nil
}

// ===== IAM policies =====

const iamPolicyColumns = `id, policy_name, arn, account_id, document, attachment_count,
	aws_managed, last_synced_at`

// ListIAMPolicies returns stored policies matching the filter with the total
// match count.
func (r *CloudRepository) ListIAMPolicies(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.IAMPolicy, int, error) {
	var conds []string
	var args []any
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		conds = append(conds, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("policy_name ILIKE $%d", len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_iam_policies", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + iamPolicyColumns + ` FROM cloud_iam_policies` + where +
		fmt.Sprintf(` ORDER BY policy_name ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list iam policies: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var policies []*models.IAMPolicy
	for rows.Next() {
		p, err := scanIAMPolicy(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan iam policy: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, total, rows.Err()
}

// GetIAMPolicy retrieves one policy by ID.
func (r *CloudRepository) GetIAMPolicy(ctx context.Context, id string) (*models.IAMPolicy, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid policy ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+iamPolicyColumns+` FROM cloud_iam_policies WHERE id = $1`, uid)
	p, err := scanIAMPolicy(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get iam policy: %w", err)
	}
	return p, nil
}

func scanIAMPolicy(row rowScanner) (*models.IAMPolicy, error) {
	p := &models.IAMPolicy{}
	var document sql.NullString
	err := row.Scan(&p.ID, &p.PolicyName, &p.ARN, &p.AccountID, &document,
		&p.AttachmentCount, &p.AWSManaged, &p.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	p.Document = document.String
	p.Derive()
	return p, nil
}

// ===== CloudTrail events =====

const cloudTrailEventColumns = `id, event_id, event_name, event_source, username,
	account_id, region, source_ip, read_only, event_time, last_synced_at`

// ListCloudTrailEvents returns stored audit events matching the filter, newest
// first, with the total match count.
func (r *CloudRepository) ListCloudTrailEvents(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.CloudTrailEvent, int, error) {
	var conds []string
	var args []any
	conds, args = commonConds(filter, conds, args)
	if filter.EventName != "" {
		args = append(args, filter.EventName)
		conds = append(conds, fmt.Sprintf("event_name = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(event_name ILIKE $%d OR username ILIKE $%d)", len(args), len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_cloudtrail_events", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + cloudTrailEventColumns + ` FROM cloud_cloudtrail_events` + where +
		fmt.Sprintf(` ORDER BY event_time DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cloudtrail events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []*models.CloudTrailEvent
	for rows.Next() {
		ev, err := scanCloudTrailEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan cloudtrail event: %w", err)
		}
		events = append(events, ev)
	}
	return events, total, rows.Err()
}

// GetCloudTrailEvent retrieves one audit event by ID.
func (r *CloudRepository) GetCloudTrailEvent(ctx context.Context, id string) (*models.CloudTrailEvent, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid event ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+cloudTrailEventColumns+` FROM cloud_cloudtrail_events WHERE id = $1`, uid)
	ev, err := scanCloudTrailEvent(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cloudtrail event: %w", err)
	}
	return ev, nil
}

func scanCloudTrailEvent(row rowScanner) (*models.CloudTrailEvent, error) {
	ev := &models.CloudTrailEvent{}
	var source, username, sourceIP sql.NullString
	err := row.Scan(&ev.ID, &ev.EventID, &ev.EventName, &source, &username,
		&ev.AccountID, &ev.Region, &sourceIP, &ev.ReadOnly, &ev.EventTime, &ev.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	ev.EventSource = source.String
	ev.Username = username.String
	ev.SourceIP = sourceIP.String
	return ev, nil
}

// ===== Security Hub findings =====

const securityHubFindingColumns = `id, finding_id, title, description, severity,
	resource_type, resource_id, status, workflow_state, account_id, region,
	first_observed_at, last_observed_at, last_synced_at`

// ListSecurityHubFindings returns stored findings matching the filter, most
// recently observed first, with the total match count.
func (r *CloudRepository) ListSecurityHubFindings(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.SecurityHubFinding, int, error) {
	var conds []string
	var args []any
	conds, args = commonConds(filter, conds, args)
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		conds = append(conds, fmt.Sprintf("severity = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR resource_id ILIKE $%d)", len(args), len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_securityhub_findings", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + securityHubFindingColumns + ` FROM cloud_securityhub_findings` + where +
		fmt.Sprintf(` ORDER BY last_observed_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list securityhub findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var findings []*models.SecurityHubFinding
	for rows.Next() {
		f, err := scanSecurityHubFinding(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan securityhub finding: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, total, rows.Err()
}

// GetSecurityHubFinding retrieves one finding by ID.
func (r *CloudRepository) GetSecurityHubFinding(ctx context.Context, id string) (*models.SecurityHubFinding, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid finding ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+securityHubFindingColumns+` FROM cloud_securityhub_findings WHERE id = $1`, uid)
	f, err := scanSecurityHubFinding(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get securityhub finding: %w", err)
	}
	return f, nil
}

func scanSecurityHubFinding(row rowScanner) (*models.SecurityHubFinding, error) {
	f := &models.SecurityHubFinding{}
	var description, resourceType, resourceID, status, workflowState sql.NullString
	var firstObserved, lastObserved sql.NullTime
	err := row.Scan(&f.ID, &f.FindingID, &f.Title, &description, &f.Severity,
		&resourceType, &resourceID, &status, &workflowState, &f.AccountID, &f.Region,
		&firstObserved, &lastObserved, &f.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	f.Description = description.String
	f.ResourceType = resourceType.String
	f.ResourceID = resourceID.String
	f.Status = status.String
	f.WorkflowState = workflowState.String
	f.FirstObservedAt = firstObserved.Time
	f.LastObservedAt = lastObserved.Time
	return f, nil
}

// ===== Config rule results =====

const configRuleResultColumns = `id, rule_name, resource_type, resource_id,
	compliance_status, annotation, account_id, region, evaluated_at, last_synced_at`

// ListConfigRuleResults returns stored compliance evaluations matching the
// filter with the total match count.
func (r *CloudRepository) ListConfigRuleResults(ctx context.Context, filter cloud.Filter, limit, offset int) ([]*models.ConfigRuleResult, int, error) {
	var conds []string
	var args []any
	conds, args = commonConds(filter, conds, args)
	if filter.ComplianceStatus != "" {
		args = append(args, filter.ComplianceStatus)
		conds = append(conds, fmt.Sprintf("compliance_status = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(rule_name ILIKE $%d OR resource_id ILIKE $%d)", len(args), len(args)))
	}
	where := whereClause(conds)

	total, err := r.countRows(ctx, "cloud_config_rule_results", where, args)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + configRuleResultColumns + ` FROM cloud_config_rule_results` + where +
		fmt.Sprintf(` ORDER BY rule_name ASC, resource_id ASC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list config rule results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*models.ConfigRuleResult
	for rows.Next() {
		res, err := scanConfigRuleResult(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan config rule result: %w", err)
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}

// GetConfigRuleResult retrieves one compliance evaluation by ID.
func (r *CloudRepository) GetConfigRuleResult(ctx context.Context, id string) (*models.ConfigRuleResult, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid result ID: %w", err)
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+configRuleResultColumns+` FROM cloud_config_rule_results WHERE id = $1`, uid)
	res, err := scanConfigRuleResult(row)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config rule result: %w", err)
	}
	return res, nil
}

func scanConfigRuleResult(row rowScanner) (*models.ConfigRuleResult, error) {
	res := &models.ConfigRuleResult{}
	var annotation sql.NullString
	var evaluated sql.NullTime
	err := row.Scan(&res.ID, &res.RuleName, &res.ResourceType, &res.ResourceID,
		&res.ComplianceStatus, &annotation, &res.AccountID, &res.Region,
		&evaluated, &res.LastSyncedAt)
	if err != nil {
		return nil, err
	}
	res.Annotation = annotation.String
	res.EvaluatedAt = evaluated.Time
	return res, nil
}

// ===== Snapshot import =====

var cloudTables = []string{
	"cloud_s3_buckets",
	"cloud_ec2_instances",
	"cloud_rds_instances",
	"cloud_iam_users",
	"cloud_iam_roles",
	"cloud_iam_policies",
	"cloud_cloudtrail_events",
	"cloud_securityhub_findings",
	"cloud_config_rule_results",
}

// ReplaceSnapshot atomically replaces an account's stored inventory with the
// snapshot contents.
func (r *CloudRepository) ReplaceSnapshot(ctx context.Context, snapshot *models.CloudSnapshot) error {
	now := time.Now()
	return r.db.WithTx(ctx, func(tx *Tx) error {
		for _, table := range cloudTables {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE account_id = $1`, snapshot.AccountID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for _, b := range snapshot.S3Buckets {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_s3_buckets (id, name, account_id, region, public_acl,
					public_policy, encryption_enabled, versioning_enabled, logging_enabled,
					bucket_created_at, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				uuid.New(), b.Name, snapshot.AccountID, b.Region, b.PublicACL,
				b.PublicPolicy, b.EncryptionEnabled, b.VersioningEnabled, b.LoggingEnabled,
				nullTimeVal(b.BucketCreatedAt), now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert s3 bucket %q: %w", b.Name, err)
			}
		}

		for _, in := range snapshot.EC2Instances {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_ec2_instances (id, instance_id, name, instance_type, state,
					account_id, region, public_ip, private_ip, imdsv2_required, launched_at, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
				uuid.New(), in.InstanceID, nullStr(in.Name), nullStr(in.InstanceType), nullStr(in.State),
				snapshot.AccountID, in.Region, nullStr(in.PublicIP), nullStr(in.PrivateIP),
				in.IMDSv2Required, nullTimeVal(in.LaunchedAt), now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert ec2 instance %q: %w", in.InstanceID, err)
			}
		}

		for _, in := range snapshot.RDSInstances {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_rds_instances (id, identifier, engine, engine_version, status,
					account_id, region, storage_encrypted, publicly_accessible, multi_az, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				uuid.New(), in.Identifier, nullStr(in.Engine), nullStr(in.EngineVersion), nullStr(in.Status),
				snapshot.AccountID, in.Region, in.StorageEncrypted, in.PubliclyAccessible, in.MultiAZ, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert rds instance %q: %w", in.Identifier, err)
			}
		}

		for _, u := range snapshot.IAMUsers {
			var passwordLastUsed any
			if u.PasswordLastUsed != nil {
				passwordLastUsed = *u.PasswordLastUsed
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_iam_users (id, user_name, arn, account_id, mfa_enabled,
					access_key_count, password_last_used, user_created_at, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				uuid.New(), u.UserName, u.ARN, snapshot.AccountID, u.MFAEnabled,
				u.AccessKeyCount, passwordLastUsed, nullTimeVal(u.UserCreatedAt), now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert iam user %q: %w", u.UserName, err)
			}
		}

		for _, role := range snapshot.IAMRoles {
			var lastUsed any
			if role.RoleLastUsed != nil {
				lastUsed = *role.RoleLastUsed
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_iam_roles (id, role_name, arn, account_id, trust_policy,
					role_last_used, role_created_at, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.New(), role.RoleName, role.ARN, snapshot.AccountID, nullStr(role.TrustPolicy),
				lastUsed, nullTimeVal(role.RoleCreatedAt), now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert iam role %q: %w", role.RoleName, err)
			}
		}

		for _, p := range snapshot.IAMPolicies {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_iam_policies (id, policy_name, arn, account_id, document,
					attachment_count, aws_managed, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.New(), p.PolicyName, p.ARN, snapshot.AccountID, nullStr(p.Document),
				p.AttachmentCount, p.AWSManaged, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert iam policy %q: %w", p.PolicyName, err)
			}
		}

		for _, ev := range snapshot.CloudTrailEvents {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_cloudtrail_events (id, event_id, event_name, event_source,
					username, account_id, region, source_ip, read_only, event_time, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				uuid.New(), ev.EventID, ev.EventName, nullStr(ev.EventSource),
				nullStr(ev.Username), snapshot.AccountID, ev.Region, nullStr(ev.SourceIP),
				ev.ReadOnly, ev.EventTime, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert cloudtrail event %q: %w", ev.EventID, err)
			}
		}

		for _, f := range snapshot.SecurityHubFindings {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_securityhub_findings (id, finding_id, title, description,
					severity, resource_type, resource_id, status, workflow_state, account_id,
					region, first_observed_at, last_observed_at, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
				uuid.New(), f.FindingID, f.Title, nullStr(f.Description),
				f.Severity, nullStr(f.ResourceType), nullStr(f.ResourceID), nullStr(f.Status),
				nullStr(f.WorkflowState), snapshot.AccountID, f.Region,
				nullTimeVal(f.FirstObservedAt), nullTimeVal(f.LastObservedAt), now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert securityhub finding %q: %w", f.FindingID, err)
			}
		}

		for _, res := range snapshot.ConfigRuleResults {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cloud_config_rule_results (id, rule_name, resource_type, resource_id,
					compliance_status, annotation, account_id, region, evaluated_at, last_synced_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				uuid.New(), res.RuleName, res.ResourceType, res.ResourceID,
				res.ComplianceStatus, nullStr(res.Annotation), snapshot.AccountID, res.Region,
				nullTimeVal(res.EvaluatedAt), now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert config rule result %q/%q: %w", res.RuleName, res.ResourceID, err)
			}
		}

		return nil
	})
}

// nullTimeVal maps the zero time to NULL.
func nullTimeVal(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ cloud.Repository = (*CloudRepository)(nil)

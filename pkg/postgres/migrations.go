// Package postgres provides PostgreSQL repository implementations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns all database migrations in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create vendors table",
			SQL: `CREATE TABLE IF NOT EXISTS vendors (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				category VARCHAR(100),
				criticality VARCHAR(20) NOT NULL DEFAULT 'medium',
				data_classification VARCHAR(20),
				status VARCHAR(20) NOT NULL DEFAULT 'active',
				website VARCHAR(512),
				contract_start TIMESTAMP,
				contract_end TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     2,
			Description: "Create vendor_assessments table",
			SQL: `CREATE TABLE IF NOT EXISTS vendor_assessments (
				id UUID PRIMARY KEY,
				vendor_id UUID NOT NULL REFERENCES vendors(id) ON DELETE CASCADE,
				assessment_type VARCHAR(100) NOT NULL,
				risk_rating VARCHAR(20) NOT NULL,
				findings TEXT,
				recommendations TEXT,
				assessed_at TIMESTAMP NOT NULL,
				next_assessment_date TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     3,
			Description: "Create frameworks table",
			SQL: `CREATE TABLE IF NOT EXISTS frameworks (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				version VARCHAR(50),
				description TEXT,
				category VARCHAR(100),
				is_system BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     4,
			Description: "Create framework_requirements table",
			SQL: `CREATE TABLE IF NOT EXISTS framework_requirements (
				id UUID PRIMARY KEY,
				framework_id UUID NOT NULL REFERENCES frameworks(id) ON DELETE CASCADE,
				parent_id UUID REFERENCES framework_requirements(id) ON DELETE CASCADE,
				code VARCHAR(100) NOT NULL,
				title VARCHAR(512) NOT NULL,
				description TEXT,
				category VARCHAR(255),
				sort_order INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     5,
			Description: "Create controls table",
			SQL: `CREATE TABLE IF NOT EXISTS controls (
				id UUID PRIMARY KEY,
				code VARCHAR(100) NOT NULL UNIQUE,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				control_type VARCHAR(20) NOT NULL DEFAULT 'preventive',
				frequency VARCHAR(50),
				status VARCHAR(30) NOT NULL DEFAULT 'not_implemented',
				implementation_notes TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     6,
			Description: "Create control_requirements mapping table",
			SQL: `CREATE TABLE IF NOT EXISTS control_requirements (
				control_id UUID NOT NULL REFERENCES controls(id) ON DELETE CASCADE,
				requirement_id UUID NOT NULL REFERENCES framework_requirements(id) ON DELETE CASCADE,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				PRIMARY KEY (control_id, requirement_id)
			)`,
		},
		{
			Version:     7,
			Description: "Create assets table",
			SQL: `CREATE TABLE IF NOT EXISTS assets (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT,
				asset_type VARCHAR(100),
				category VARCHAR(100),
				classification VARCHAR(20),
				status VARCHAR(50),
				location VARCHAR(255),
				ip_address VARCHAR(64),
				lifecycle_stage VARCHAR(30),
				maintenance_expiry TIMESTAMP,
				support_expiry TIMESTAMP,
				integration_source VARCHAR(100),
				external_id VARCHAR(255),
				last_synced_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     8,
			Description: "Create asset_controls mapping table",
			SQL: `CREATE TABLE IF NOT EXISTS asset_controls (
				asset_id UUID NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
				control_id UUID NOT NULL REFERENCES controls(id) ON DELETE CASCADE,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				PRIMARY KEY (asset_id, control_id)
			)`,
		},
		{
			Version:     9,
			Description: "Create policies table",
			SQL: `CREATE TABLE IF NOT EXISTS policies (
				id UUID PRIMARY KEY,
				code VARCHAR(100) NOT NULL UNIQUE,
				title VARCHAR(255) NOT NULL,
				category VARCHAR(100),
				content TEXT,
				version INT NOT NULL DEFAULT 1,
				status VARCHAR(30) NOT NULL DEFAULT 'draft',
				effective_date TIMESTAMP,
				review_date TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     10,
			Description: "Create policy_versions table",
			SQL: `CREATE TABLE IF NOT EXISTS policy_versions (
				id UUID PRIMARY KEY,
				policy_id UUID NOT NULL REFERENCES policies(id) ON DELETE CASCADE,
				version INT NOT NULL,
				content TEXT NOT NULL,
				change_summary TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				UNIQUE(policy_id, version)
			)`,
		},
		{
			Version:     11,
			Description: "Create policy_acknowledgments table",
			SQL: `CREATE TABLE IF NOT EXISTS policy_acknowledgments (
				id UUID PRIMARY KEY,
				policy_id UUID NOT NULL REFERENCES policies(id) ON DELETE CASCADE,
				user_id VARCHAR(255) NOT NULL,
				policy_version INT NOT NULL,
				acknowledged_at TIMESTAMP NOT NULL DEFAULT NOW(),
				UNIQUE(policy_id, user_id, policy_version)
			)`,
		},
		{
			Version:     12,
			Description: "Create tasks table",
			SQL: `CREATE TABLE IF NOT EXISTS tasks (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				description TEXT,
				task_type VARCHAR(100),
				priority VARCHAR(20) NOT NULL DEFAULT 'medium',
				status VARCHAR(20) NOT NULL DEFAULT 'open',
				assignee VARCHAR(255),
				due_at TIMESTAMP,
				completed_at TIMESTAMP,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     13,
			Description: "Create task_comments table",
			SQL: `CREATE TABLE IF NOT EXISTS task_comments (
				id UUID PRIMARY KEY,
				task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
				content TEXT NOT NULL,
				author VARCHAR(255) NOT NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     14,
			Description: "Create risks table",
			SQL: `CREATE TABLE IF NOT EXISTS risks (
				id UUID PRIMARY KEY,
				title VARCHAR(255) NOT NULL,
				description TEXT,
				category VARCHAR(100),
				likelihood INT NOT NULL,
				impact INT NOT NULL,
				status VARCHAR(30) NOT NULL DEFAULT 'open',
				owner VARCHAR(255),
				vendor_id UUID REFERENCES vendors(id) ON DELETE SET NULL,
				asset_id UUID REFERENCES assets(id) ON DELETE SET NULL,
				created_at TIMESTAMP NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     15,
			Description: "Create migrations tracking table",
			SQL: `CREATE TABLE IF NOT EXISTS schema_migrations (
				version INT PRIMARY KEY,
				applied_at TIMESTAMP NOT NULL DEFAULT NOW()
			)`,
		},
		{
			Version:     16,
			Description: "Create lookup indexes",
			SQL: `CREATE INDEX IF NOT EXISTS idx_vendor_assessments_vendor ON vendor_assessments(vendor_id);
				  CREATE INDEX IF NOT EXISTS idx_requirements_framework ON framework_requirements(framework_id);
				  CREATE INDEX IF NOT EXISTS idx_requirements_parent ON framework_requirements(parent_id);
				  CREATE INDEX IF NOT EXISTS idx_control_requirements_req ON control_requirements(requirement_id);
				  CREATE INDEX IF NOT EXISTS idx_asset_controls_control ON asset_controls(control_id);
				  CREATE INDEX IF NOT EXISTS idx_policy_versions_policy ON policy_versions(policy_id);
				  CREATE INDEX IF NOT EXISTS idx_policy_acks_policy ON policy_acknowledgments(policy_id);
				  CREATE INDEX IF NOT EXISTS idx_task_comments_task ON task_comments(task_id);
				  CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
				  CREATE INDEX IF NOT EXISTS idx_risks_status ON risks(status);
				  CREATE INDEX IF NOT EXISTS idx_assets_source ON assets(integration_source, external_id)`,
		},
		{
			Version:     17,
			Description: "Create cloud inventory tables",
			SQL: `CREATE TABLE IF NOT EXISTS cloud_s3_buckets (
					id UUID PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					account_id VARCHAR(32) NOT NULL,
					region VARCHAR(32) NOT NULL,
					public_acl BOOLEAN NOT NULL DEFAULT FALSE,
					public_policy BOOLEAN NOT NULL DEFAULT FALSE,
					encryption_enabled BOOLEAN NOT NULL DEFAULT FALSE,
					versioning_enabled BOOLEAN NOT NULL DEFAULT FALSE,
					logging_enabled BOOLEAN NOT NULL DEFAULT FALSE,
					bucket_created_at TIMESTAMP,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, name)
				);
				CREATE TABLE IF NOT EXISTS cloud_ec2_instances (
					id UUID PRIMARY KEY,
					instance_id VARCHAR(64) NOT NULL,
					name VARCHAR(255),
					instance_type VARCHAR(64),
					state VARCHAR(32),
					account_id VARCHAR(32) NOT NULL,
					region VARCHAR(32) NOT NULL,
					public_ip VARCHAR(64),
					private_ip VARCHAR(64),
					imdsv2_required BOOLEAN NOT NULL DEFAULT FALSE,
					launched_at TIMESTAMP,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, instance_id)
				);
				CREATE TABLE IF NOT EXISTS cloud_rds_instances (
					id UUID PRIMARY KEY,
					identifier VARCHAR(255) NOT NULL,
					engine VARCHAR(64),
					engine_version VARCHAR(64),
					status VARCHAR(32),
					account_id VARCHAR(32) NOT NULL,
					region VARCHAR(32) NOT NULL,
					storage_encrypted BOOLEAN NOT NULL DEFAULT FALSE,
					publicly_accessible BOOLEAN NOT NULL DEFAULT FALSE,
					multi_az BOOLEAN NOT NULL DEFAULT FALSE,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, identifier)
				);
				CREATE TABLE IF NOT EXISTS cloud_iam_users (
					id UUID PRIMARY KEY,
					user_name VARCHAR(255) NOT NULL,
					arn VARCHAR(512) NOT NULL,
					account_id VARCHAR(32) NOT NULL,
					mfa_enabled BOOLEAN NOT NULL DEFAULT FALSE,
					access_key_count INT NOT NULL DEFAULT 0,
					password_last_used TIMESTAMP,
					user_created_at TIMESTAMP,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, arn)
				);
				CREATE TABLE IF NOT EXISTS cloud_iam_roles (
					id UUID PRIMARY KEY,
					role_name VARCHAR(255) NOT NULL,
					arn VARCHAR(512) NOT NULL,
					account_id VARCHAR(32) NOT NULL,
					trust_policy TEXT,
					role_last_used TIMESTAMP,
					role_created_at TIMESTAMP,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, arn)
				);
				CREATE TABLE IF NOT EXISTS cloud_iam_policies (
					id UUID PRIMARY KEY,
					policy_name VARCHAR(255) NOT NULL,
					arn VARCHAR(512) NOT NULL,
					account_id VARCHAR(32) NOT NULL,
					document TEXT,
					attachment_count INT NOT NULL DEFAULT 0,
					aws_managed BOOLEAN NOT NULL DEFAULT FALSE,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, arn)
				);
				CREATE TABLE IF NOT EXISTS cloud_cloudtrail_events (
					id UUID PRIMARY KEY,
					event_id VARCHAR(64) NOT NULL,
					event_name VARCHAR(255) NOT NULL,
					event_source VARCHAR(255),
					username VARCHAR(255),
					account_id VARCHAR(32) NOT NULL,
					region VARCHAR(32) NOT NULL,
					source_ip VARCHAR(64),
					read_only BOOLEAN NOT NULL DEFAULT FALSE,
					event_time TIMESTAMP NOT NULL,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, event_id)
				);
				CREATE TABLE IF NOT EXISTS cloud_securityhub_findings (
					id UUID PRIMARY KEY,
					finding_id VARCHAR(512) NOT NULL,
					title VARCHAR(512) NOT NULL,
					description TEXT,
					severity VARCHAR(20) NOT NULL,
					resource_type VARCHAR(128),
					resource_id VARCHAR(512),
					status VARCHAR(32),
					workflow_state VARCHAR(32),
					account_id VARCHAR(32) NOT NULL,
					region VARCHAR(32) NOT NULL,
					first_observed_at TIMESTAMP,
					last_observed_at TIMESTAMP,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, finding_id)
				);
				CREATE TABLE IF NOT EXISTS cloud_config_rule_results (
					id UUID PRIMARY KEY,
					rule_name VARCHAR(255) NOT NULL,
					resource_type VARCHAR(128) NOT NULL,
					resource_id VARCHAR(512) NOT NULL,
					compliance_status VARCHAR(32) NOT NULL,
					annotation TEXT,
					account_id VARCHAR(32) NOT NULL,
					region VARCHAR(32) NOT NULL,
					evaluated_at TIMESTAMP,
					last_synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(account_id, rule_name, resource_id)
				);
				CREATE INDEX IF NOT EXISTS idx_cloudtrail_events_time ON cloud_cloudtrail_events(event_time);
				CREATE INDEX IF NOT EXISTS idx_securityhub_severity ON cloud_securityhub_findings(severity);
				CREATE INDEX IF NOT EXISTS idx_config_results_status ON cloud_config_rule_results(compliance_status)`,
		},
	}
}

// RunMigrations executes all pending migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	// Ensure schema_migrations table exists
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	migrations := Migrations()
	for _, m := range migrations {
		// Check if migration already applied
		var exists bool
		err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}

		if exists {
			continue
		}

		// Apply migration
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		// Record migration
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// CurrentVersion returns the current schema version.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

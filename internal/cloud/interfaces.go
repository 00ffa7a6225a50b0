// Package cloud serves read-only cloud inventory and finding records
// collected by external agents. Nothing here has a user write path; the only
// mutation is a full snapshot import per account.
package cloud

import (
	"context"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// Filter narrows cloud record listings. All set fields must match; Query is
// a case-insensitive substring over the record's name-like columns.
type Filter struct {
	AccountID string
	Region    string
	Query     string

	// Severity applies to Security Hub findings only.
	Severity string
	// ComplianceStatus applies to Config rule results only.
	ComplianceStatus string
	// State applies to EC2 instances only.
	State string
	// EventName applies to CloudTrail events only.
	EventName string
}

// Reader lists and retrieves stored cloud records. List methods return the
// page and the total match count.
type Reader interface {
	ListS3Buckets(ctx context.Context, filter Filter, limit, offset int) ([]*models.S3Bucket, int, error)
	GetS3Bucket(ctx context.Context, id string) (*models.S3Bucket, error)

	ListEC2Instances(ctx context.Context, filter Filter, limit, offset int) ([]*models.EC2Instance, int, error)
	GetEC2Instance(ctx context.Context, id string) (*models.EC2Instance, error)

	ListRDSInstances(ctx context.Context, filter Filter, limit, offset int) ([]*models.RDSInstance, int, error)
	GetRDSInstance(ctx context.Context, id string) (*models.RDSInstance, error)

	ListIAMUsers(ctx context.Context, filter Filter, limit, offset int) ([]*models.IAMUser, int, error)
	GetIAMUser(ctx context.Context, id string) (*models.IAMUser, error)

	ListIAMRoles(ctx context.Context, filter Filter, limit, offset int) ([]*models.IAMRole, int, error)
	GetIAMRole(ctx context.Context, id string) (*models.IAMRole, error)

	ListIAMPolicies(ctx context.Context, filter Filter, limit, offset int) ([]*models.IAMPolicy, int, error)
	GetIAMPolicy(ctx context.Context, id string) (*models.IAMPolicy, error)

	ListCloudTrailEvents(ctx context.Context, filter Filter, limit, offset int) ([]*models.CloudTrailEvent, int, error)
	GetCloudTrailEvent(ctx context.Context, id string) (*models.CloudTrailEvent, error)

	ListSecurityHubFindings(ctx context.Context, filter Filter, limit, offset int) ([]*models.SecurityHubFinding, int, error)
	GetSecurityHubFinding(ctx context.Context, id string) (*models.SecurityHubFinding, error)

	ListConfigRuleResults(ctx context.Context, filter Filter, limit, offset int) ([]*models.ConfigRuleResult, int, error)
	GetConfigRuleResult(ctx context.Context, id string) (*models.ConfigRuleResult, error)
}

// Repository defines cloud inventory persistence operations.
type Repository interface {
	Reader

	// ReplaceSnapshot atomically replaces an account's stored inventory with
	// the snapshot contents.
	ReplaceSnapshot(ctx context.Context, snapshot *models.CloudSnapshot) error
}

// Service defines the cloud inventory operations exposed over the API.
type Service interface {
	Reader

	// ImportSnapshot validates and stores a collector snapshot.
	ImportSnapshot(ctx context.Context, snapshot *models.CloudSnapshot) error
}

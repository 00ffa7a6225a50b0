package cloud

import (
	"context"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/errors"
	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

// NewService creates a cloud inventory service over a repository.
func NewService(repo Repository) Service {
	return &serviceImpl{Reader: repo, repo: repo}
}

type serviceImpl struct {
	Reader
	repo Repository
}

func (s *serviceImpl) ImportSnapshot(ctx context.Context, snapshot *models.CloudSnapshot) error {
	if snapshot == nil {
		return errors.NewValidationError("snapshot", "is required")
	}
	if snapshot.AccountID == "" {
		return errors.NewValidationError("account_id", "is required")
	}
	for _, f := range snapshot.SecurityHubFindings {
		if f.FindingID == "" {
			return errors.NewValidationError("securityhub_findings", "finding_id is required")
		}
		if f.Title == "" {
			return errors.NewValidationError("securityhub_findings", "title is required")
		}
	}
	for _, b := range snapshot.S3Buckets {
		if b.Name == "" {
			return errors.NewValidationError("s3_buckets", "name is required")
		}
	}
	for _, i := range snapshot.EC2Instances {
		if i.InstanceID == "" {
			return errors.NewValidationError("ec2_instances", "instance_id is required")
		}
	}
	return s.repo.ReplaceSnapshot(ctx, snapshot)
}

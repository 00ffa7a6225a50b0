package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

func TestS3BucketDerive(t *testing.T) {
	tests := []struct {
		name       string
		bucket     models.S3Bucket
		wantPublic bool
		wantScore  int
	}{
		{
			name:       "fully hardened",
			bucket:     models.S3Bucket{EncryptionEnabled: true, VersioningEnabled: true, LoggingEnabled: true},
			wantPublic: false,
			wantScore:  0,
		},
		{
			name:       "public via acl",
			bucket:     models.S3Bucket{PublicACL: true, EncryptionEnabled: true, VersioningEnabled: true, LoggingEnabled: true},
			wantPublic: true,
			wantScore:  5,
		},
		{
			name:       "public via policy",
			bucket:     models.S3Bucket{PublicPolicy: true, EncryptionEnabled: true, VersioningEnabled: true, LoggingEnabled: true},
			wantPublic: true,
			wantScore:  5,
		},
		{
			name:       "everything wrong",
			bucket:     models.S3Bucket{PublicACL: true},
			wantPublic: true,
			wantScore:  10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.bucket.Derive()
			assert.Equal(t, tt.wantPublic, tt.bucket.Public)
			assert.Equal(t, tt.wantScore, tt.bucket.RiskScore)
		})
	}
}

func TestEC2InstanceDerive(t *testing.T) {
	t.Run("private with imdsv2", func(t *testing.T) {
		in := models.EC2Instance{IMDSv2Required: true}
		in.Derive()
		assert.False(t, in.PubliclyAccessible)
		assert.Equal(t, 0, in.RiskScore)
	})

	t.Run("public without imdsv2", func(t *testing.T) {
		in := models.EC2Instance{PublicIP: "203.0.113.10"}
		in.Derive()
		assert.True(t, in.PubliclyAccessible)
		assert.Equal(t, 6, in.RiskScore)
	})
}

func TestRDSInstanceDerive(t *testing.T) {
	t.Run("hardened", func(t *testing.T) {
		in := models.RDSInstance{StorageEncrypted: true, MultiAZ: true}
		in.Derive()
		assert.Equal(t, 0, in.RiskScore)
	})

	t.Run("public unencrypted single az", func(t *testing.T) {
		in := models.RDSInstance{PubliclyAccessible: true}
		in.Derive()
		assert.Equal(t, 9, in.RiskScore)
	})
}

func TestIAMUserDerive(t *testing.T) {
	t.Run("mfa single key", func(t *testing.T) {
		u := models.IAMUser{MFAEnabled: true, AccessKeyCount: 1}
		u.Derive()
		assert.Equal(t, 0, u.RiskScore)
	})

	t.Run("no mfa multiple keys", func(t *testing.T) {
		u := models.IAMUser{AccessKeyCount: 2}
		u.Derive()
		assert.Equal(t, 6, u.RiskScore)
	})
}

func TestIAMRoleDerive(t *testing.T) {
	tests := []struct {
		name         string
		trustPolicy  string
		wantWildcard bool
	}{
		{
			name:         "empty policy",
			trustPolicy:  "",
			wantWildcard: false,
		},
		{
			name:         "service principal",
			trustPolicy:  `{"Statement":[{"Effect":"Allow","Principal":{"Service":"ec2.amazonaws.com"}}]}`,
			wantWildcard: false,
		},
		{
			name:         "direct wildcard principal",
			trustPolicy:  `{"Statement":[{"Effect":"Allow","Principal":"*"}]}`,
			wantWildcard: true,
		},
		{
			name:         "wildcard aws principal",
			trustPolicy:  `{"Statement":[{"Effect":"Allow","Principal":{"AWS":"*"}}]}`,
			wantWildcard: true,
		},
		{
			name:         "wildcard in aws principal list",
			trustPolicy:  `{"Statement":[{"Effect":"Allow","Principal":{"AWS":["arn:aws:iam::123456789012:root","*"]}}]}`,
			wantWildcard: true,
		},
		{
			name:         "deny statement ignored",
			trustPolicy:  `{"Statement":[{"Effect":"Deny","Principal":"*"}]}`,
			wantWildcard: false,
		},
		{
			name:         "malformed document",
			trustPolicy:  `not json`,
			wantWildcard: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role := models.IAMRole{TrustPolicy: tt.trustPolicy}
			role.Derive()
			assert.Equal(t, tt.wantWildcard, role.WildcardTrust)
			if tt.wantWildcard {
				assert.Equal(t, 5, role.RiskScore)
			} else {
				assert.Equal(t, 0, role.RiskScore)
			}
		})
	}
}

func TestIAMPolicyDerive(t *testing.T) {
	tests := []struct {
		name          string
		document      string
		wantActions   bool
		wantResources bool
		wantScore     int
	}{
		{
			name:      "empty document",
			document:  "",
			wantScore: 0,
		},
		{
			name:        "wildcard action only",
			document:    `{"Statement":[{"Effect":"Allow","Action":"*","Resource":"arn:aws:s3:::reports"}]}`,
			wantActions: true,
			wantScore:   3,
		},
		{
			name:          "wildcard resource only",
			document:      `{"Statement":[{"Effect":"Allow","Action":"s3:GetObject","Resource":"*"}]}`,
			wantResources: true,
			wantScore:     3,
		},
		{
			name:          "admin policy",
			document:      `{"Statement":[{"Effect":"Allow","Action":"*","Resource":"*"}]}`,
			wantActions:   true,
			wantResources: true,
			wantScore:     8,
		},
		{
			name:      "scoped action list",
			document:  `{"Statement":[{"Effect":"Allow","Action":["s3:GetObject","s3:PutObject"],"Resource":"arn:aws:s3:::reports/*"}]}`,
			wantScore: 0,
		},
		{
			name:        "wildcard in action list",
			document:    `{"Statement":[{"Effect":"Allow","Action":["s3:GetObject","*"],"Resource":"arn:aws:s3:::reports"}]}`,
			wantActions: true,
			wantScore:   3,
		},
		{
			name:      "deny wildcard ignored",
			document:  `{"Statement":[{"Effect":"Deny","Action":"*","Resource":"*"}]}`,
			wantScore: 0,
		},
		{
			name:      "malformed document",
			document:  `{{`,
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.IAMPolicy{Document: tt.document}
			p.Derive()
			assert.Equal(t, tt.wantActions, p.WildcardActions)
			assert.Equal(t, tt.wantResources, p.WildcardResources)
			assert.Equal(t, tt.wantScore, p.RiskScore)
		})
	}
}

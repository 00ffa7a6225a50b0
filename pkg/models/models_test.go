package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ZerosAndOnesLLC/OpenGRC-sub001/pkg/models"
)

func TestBucketRiskScore(t *testing.T) {
	tests := []struct {
		score int
		want  models.RiskLevel
	}{
		{1, models.RiskLevelLow},
		{4, models.RiskLevelLow},
		{5, models.RiskLevelMedium},
		{9, models.RiskLevelMedium},
		{10, models.RiskLevelHigh},
		{12, models.RiskLevelHigh},
		{14, models.RiskLevelHigh},
		{15, models.RiskLevelCritical},
		{25, models.RiskLevelCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, models.BucketRiskScore(tt.score), "score %d", tt.score)
	}
}

func TestRiskScoreAndLevel(t *testing.T) {
	r := &models.Risk{Likelihood: 4, Impact: 4}
	assert.Equal(t, 16, r.Score())
	assert.Equal(t, models.RiskLevelCritical, r.Level())

	r = &models.Risk{Likelihood: 2, Impact: 2}
	assert.Equal(t, 4, r.Score())
	assert.Equal(t, models.RiskLevelLow, r.Level())
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)

	t.Run("past due and open", func(t *testing.T) {
		task := &models.Task{Status: models.TaskStatusOpen, DueAt: &past}
		assert.True(t, task.IsOverdue(now))
	})

	t.Run("past due but completed", func(t *testing.T) {
		task := &models.Task{Status: models.TaskStatusCompleted, DueAt: &past}
		assert.False(t, task.IsOverdue(now))
	})

	t.Run("not yet due", func(t *testing.T) {
		task := &models.Task{Status: models.TaskStatusInProgress, DueAt: &future}
		assert.False(t, task.IsOverdue(now))
	})

	t.Run("no due date", func(t *testing.T) {
		task := &models.Task{Status: models.TaskStatusOpen}
		assert.False(t, task.IsOverdue(now))
	})
}

func TestHasAcknowledged(t *testing.T) {
	p := &models.PolicyDocument{
		Version: 3,
		Acknowledgments: []*models.PolicyAcknowledgment{
			{UserID: "u1", PolicyVersion: 3},
			{UserID: "u2", PolicyVersion: 2},
		},
	}

	assert.True(t, p.HasAcknowledged("u1"))
	// Acknowledgment of a prior version does not count
	assert.False(t, p.HasAcknowledged("u2"))
	assert.False(t, p.HasAcknowledged("u3"))
}

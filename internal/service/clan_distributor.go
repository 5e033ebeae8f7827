package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/internal/progression"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
)

type teamStore interface {
	Contribute(ctx context.Context, entry *models.ClanLogEntry) (int, error)
}

// ClanDistributor credits a share of a student's XP gain to their clan.
type ClanDistributor struct {
	teams   teamStore
	metrics *MetricsService
	logger  *zap.Logger
}

// NewClanDistributor constructs a ClanDistributor.
func NewClanDistributor(teams teamStore, metrics *MetricsService, logger *zap.Logger) *ClanDistributor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClanDistributor{teams: teams, metrics: metrics, logger: logger}
}

// Contribute credits the clan share of xpGained and returns the amount
// credited. Nothing is written when clans are off, the student has no clan, or
// the share rounds to zero.
func (d *ClanDistributor) Contribute(ctx context.Context, student *models.StudentProfile, classroom *models.Classroom, xpGained int, reason string) (int, error) {
	if !classroom.ClansEnabled || student.TeamID == nil || *student.TeamID == "" {
		return 0, nil
	}
	amount := progression.ClanContribution(xpGained, classroom.ClanXPPercentage)
	if amount <= 0 {
		return 0, nil
	}
	studentID := student.ID
	total, err := d.teams.Contribute(ctx, &models.ClanLogEntry{
		TeamID:    *student.TeamID,
		StudentID: &studentID,
		Action:    models.ClanLogXPContributed,
		XPAmount:  amount,
		Reason:    reason,
	})
	if err != nil {
		return 0, appErrors.Internal(err, "failed to credit clan xp")
	}
	d.metrics.RecordClanContribution(amount)
	d.logger.Debug("clan xp credited",
		zap.String("team_id", *student.TeamID),
		zap.String("student_id", student.ID),
		zap.Int("amount", amount),
		zap.Int("team_total", total))
	return amount, nil
}

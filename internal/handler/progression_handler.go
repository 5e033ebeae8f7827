package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jerson3105/juriv2-sub007/internal/dto"
	"github.com/jerson3105/juriv2-sub007/internal/middleware"
	"github.com/jerson3105/juriv2-sub007/internal/models"
	"github.com/jerson3105/juriv2-sub007/internal/service"
	appErrors "github.com/jerson3105/juriv2-sub007/pkg/errors"
	"github.com/jerson3105/juriv2-sub007/pkg/response"
)

type progressionService interface {
	ApplyBehavior(ctx context.Context, actor *models.JWTClaims, req service.ApplyBehaviorRequest) (*dto.BatchResult, error)
	ApplyPoints(ctx context.Context, actor *models.JWTClaims, req service.ApplyPointsRequest) (*dto.BatchResult, error)
	CompleteActivity(ctx context.Context, actor *models.JWTClaims, req service.CompleteActivityRequest) (*dto.BatchResult, error)
	History(ctx context.Context, actor *models.JWTClaims, studentID string, filter models.PointLogFilter) ([]models.PointHistoryItem, *models.Pagination, error)
	ClaimDailyLogin(ctx context.Context, actor *models.JWTClaims, studentID string) (*dto.LoginClaimResult, error)
	ClaimMissionReward(ctx context.Context, actor *models.JWTClaims, studentMissionID string) (*dto.MissionClaimResult, error)
	ClaimStreakMilestone(ctx context.Context, actor *models.JWTClaims, studentID string, days int) (*dto.MilestoneClaimResult, error)
	AwardBadge(ctx context.Context, actor *models.JWTClaims, classroomID, badgeID, studentID string) (*dto.BadgeAwardResult, error)
	StudentProgress(ctx context.Context, actor *models.JWTClaims, studentID string) (*dto.StudentProgressResponse, error)
}

// ProgressionHandler exposes the reward engine over HTTP.
type ProgressionHandler struct {
	service progressionService
}

// NewProgressionHandler builds a new handler.
func NewProgressionHandler(service progressionService) *ProgressionHandler {
	return &ProgressionHandler{service: service}
}

// ApplyBehavior godoc
// @Summary Apply a behavior to students
// @Tags Progression
// @Accept json
// @Produce json
// @Param payload body service.ApplyBehaviorRequest true "Behavior application"
// @Success 200 {object} response.Envelope
// @Router /progression/behaviors/apply [post]
func (h *ProgressionHandler) ApplyBehavior(c *gin.Context) {
	var req service.ApplyBehaviorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid behavior payload"))
		return
	}
	result, err := h.service.ApplyBehavior(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondBatch(c, result)
}

// ApplyPoints godoc
// @Summary Give or remove points manually
// @Tags Progression
// @Accept json
// @Produce json
// @Param payload body service.ApplyPointsRequest true "Manual points"
// @Success 200 {object} response.Envelope
// @Router /progression/points [post]
func (h *ProgressionHandler) ApplyPoints(c *gin.Context) {
	var req service.ApplyPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid points payload"))
		return
	}
	result, err := h.service.ApplyPoints(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondBatch(c, result)
}

// CompleteActivity godoc
// @Summary Reward students for completing an activity
// @Tags Progression
// @Accept json
// @Produce json
// @Param payload body service.CompleteActivityRequest true "Activity completion"
// @Success 200 {object} response.Envelope
// @Router /progression/activities/complete [post]
func (h *ProgressionHandler) CompleteActivity(c *gin.Context) {
	var req service.CompleteActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}
	result, err := h.service.CompleteActivity(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respondBatch(c, result)
}

// History godoc
// @Summary Point history of a student
// @Tags Progression
// @Produce json
// @Param studentId path string true "Student profile ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/points/history [get]
func (h *ProgressionHandler) History(c *gin.Context) {
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if to != nil {
		end := to.AddDate(0, 0, 1).Add(-1)
		to = &end
	}
	filter := models.PointLogFilter{
		From:     from,
		To:       to,
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "limit", 20),
	}
	items, pagination, err := h.service.History(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Progress godoc
// @Summary Level and streak state of a student
// @Tags Progression
// @Produce json
// @Param studentId path string true "Student profile ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/progress [get]
func (h *ProgressionHandler) Progress(c *gin.Context) {
	result, err := h.service.StudentProgress(c.Request.Context(), claimsFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClaimDailyLogin godoc
// @Summary Claim today's login reward
// @Tags Progression
// @Produce json
// @Param studentId path string true "Student profile ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/login [post]
func (h *ProgressionHandler) ClaimDailyLogin(c *gin.Context) {
	result, err := h.service.ClaimDailyLogin(c.Request.Context(), claimsFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ClaimStreakMilestone godoc
// @Summary Claim a mission streak milestone
// @Tags Progression
// @Produce json
// @Param studentId path string true "Student profile ID"
// @Param days path int true "Milestone length in days"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/streak/milestones/{days}/claim [post]
func (h *ProgressionHandler) ClaimStreakMilestone(c *gin.Context) {
	days, err := strconv.Atoi(c.Param("days"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be a number"))
		return
	}
	result, err := h.service.ClaimStreakMilestone(c.Request.Context(), claimsFromContext(c), c.Param("studentId"), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Milestones godoc
// @Summary List streak milestones
// @Tags Progression
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /progression/streak-milestones [get]
func (h *ProgressionHandler) Milestones(c *gin.Context) {
	response.JSON(c, http.StatusOK, service.StreakMilestones(), nil)
}

// ClaimMission godoc
// @Summary Claim the reward of a completed mission
// @Tags Progression
// @Produce json
// @Param studentMissionId path string true "Student mission ID"
// @Success 200 {object} response.Envelope
// @Router /missions/{studentMissionId}/claim [post]
func (h *ProgressionHandler) ClaimMission(c *gin.Context) {
	result, err := h.service.ClaimMissionReward(c.Request.Context(), claimsFromContext(c), c.Param("studentMissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AwardBadge godoc
// @Summary Award a badge manually
// @Tags Progression
// @Accept json
// @Produce json
// @Param classroomId path string true "Classroom ID"
// @Param badgeId path string true "Badge ID"
// @Param payload body dto.AwardBadgeRequest true "Recipient"
// @Success 201 {object} response.Envelope
// @Router /classrooms/{classroomId}/badges/{badgeId}/award [post]
func (h *ProgressionHandler) AwardBadge(c *gin.Context) {
	var req dto.AwardBadgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid award payload"))
		return
	}
	if strings.TrimSpace(req.StudentID) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "student_id is required"))
		return
	}
	result, err := h.service.AwardBadge(c.Request.Context(), claimsFromContext(c), c.Param("classroomId"), c.Param("badgeId"), req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *ProgressionHandler) respondBatch(c *gin.Context, result *dto.BatchResult) {
	if result != nil {
		middleware.SetMeta(c, "students", len(result.Students))
	}
	response.JSON(c, http.StatusOK, result, nil, middleware.ResponseMeta(c))
}

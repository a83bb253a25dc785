// Package jobopening provides HTTP handlers for job openings of HR, AI extraction of
// hiring criteria and talent pool matching against an opening.
package jobopening

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/matching"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/utilities"
)

// JobOpeningController handles job opening endpoints
type JobOpeningController struct {
	DB *database.DBinstanceStruct
	// AI is nil when no AI provider is configured
	AI    integrations.TextGenerator
	Quota *quota.Service
	Log   *logrus.Entry
}

// NewJobOpeningController creates a new instance of JobOpeningController
func NewJobOpeningController(db *database.DBinstanceStruct, ai integrations.TextGenerator, q *quota.Service, log *logrus.Entry) *JobOpeningController {
	if log == nil {
		log = logrus.WithField("component", "jobopening")
	}
	return &JobOpeningController{
		DB:    db,
		AI:    ai,
		Quota: q,
		Log:   log,
	}
}

type extractRequest struct {
	Description string `json:"description" binding:"required"`
}

// CreateOpeningRequest is body of job opening creation, structured fields are optional
type CreateOpeningRequest struct {
	Description string `json:"description" binding:"required"`
	model.JobCriteria
}

// MatchResponse is talent pool result for one opening
type MatchResponse struct {
	Opening    model.JobOpening         `json:"opening"`
	Count      int                      `json:"count"`
	Candidates []model.CandidateSummary `json:"candidates"`
}

// ExtractCriteria ask AI to read hiring criteria out of job description
// @Summary Extract hiring criteria from job description with AI
// @Tags HR
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body extractRequest true "Free text job description"
// @Success 200 {object} model.JobCriteria
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 502 {object} utilities.ErrorResponse "AI service error"
// @Failure 503 {object} utilities.ErrorResponse "AI is not configured"
// @Router /hr/jobs/extract [post]
func (jc *JobOpeningController) ExtractCriteria(c *gin.Context) {
	req := extractRequest{}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Description) == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid request body: description is required"})
		return
	}

	crit, err := integrations.ExtractJob(c.Request.Context(), jc.AI, req.Description)
	if err != nil {
		c.JSON(integrations.HTTPStatus(err), utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to extract job criteria: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, crit)
}

// fillMissing copy extracted value into field that HR left empty
func fillMissing(dst *model.JobCriteria, src model.JobCriteria) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if len(dst.Skills) == 0 {
		dst.Skills = src.Skills
	}
	if dst.MinExperience == 0 {
		dst.MinExperience = src.MinExperience
	}
	if dst.Education == "" {
		dst.Education = src.Education
	}
	if dst.Location == "" {
		dst.Location = src.Location
	}
	if dst.EmploymentType == "" {
		dst.EmploymentType = src.EmploymentType
	}
	if dst.Summary == "" {
		dst.Summary = src.Summary
	}
}

func complete(crit model.JobCriteria) bool {
	return crit.Title != "" && len(crit.Skills) > 0 && crit.Summary != ""
}

// CreateOpening create job opening, empty structured field are filled by AI when it is available
// @Summary Create job opening
// @Description When title, skills or summary is missing and AI is configured, the description is sent to AI
// @Description and extracted value fill the missing field. AI failure does not block creation.
// @Tags HR
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body CreateOpeningRequest true "Job opening"
// @Success 201 {object} model.JobOpening
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/jobs [post]
func (jc *JobOpeningController) CreateOpening(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	req := CreateOpeningRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if req.MinExperience < 0 {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Invalid request body: min_experience must not be negative",
		})
		return
	}

	opening := model.JobOpening{
		HRUserID:    user.ID,
		Description: strings.TrimSpace(req.Description),
		JobCriteria: req.JobCriteria,
	}

	if !complete(opening.JobCriteria) && jc.AI != nil {
		extracted, err := integrations.ExtractJob(c.Request.Context(), jc.AI, opening.Description)
		if err != nil {
			jc.Log.WithError(err).Warn("job extraction failed, opening is saved without it")
		} else {
			fillMissing(&opening.JobCriteria, extracted)
		}
	}

	if err := jc.DB.WithContext(c.Request.Context()).Create(&opening).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprint("Failed to create job opening: ", err),
		})
		return
	}
	c.JSON(http.StatusCreated, opening)
}

// GetMyOpenings list openings of current HR, newest first
// @Summary List job openings of HR
// @Tags HR
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} model.JobOpening
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/jobs [get]
func (jc *JobOpeningController) GetMyOpenings(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	openings := []model.JobOpening{}
	if err := jc.DB.WithContext(c.Request.Context()).
		Where("hr_user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&openings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, openings)
}

// ownOpening load opening from :id path and check it belongs to user
func (jc *JobOpeningController) ownOpening(c *gin.Context, user model.User) (model.JobOpening, bool) {
	opening := model.JobOpening{}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid job opening id"})
		return opening, false
	}

	err = jc.DB.WithContext(c.Request.Context()).First(&opening, id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Job opening not found"})
		return opening, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return opening, false
	}

	if opening.HRUserID != user.ID {
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{Error: "You do not own this job opening"})
		return opening, false
	}
	return opening, true
}

// GetMatches search the talent pool with criteria of the opening
// @Summary Match candidates against job opening
// @Description Results count into matches found of HR, company must be verified
// @Tags HR
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job opening ID"
// @Param limit query int false "Maximum results (default 50, max 200)"
// @Success 200 {object} MatchResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not owner of opening, company is not verified"
// @Failure 404 {object} utilities.ErrorResponse "Job opening not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/jobs/{id}/matches [get]
func (jc *JobOpeningController) GetMatches(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	opening, ok := jc.ownOpening(c, user)
	if !ok {
		return
	}

	limit, err := utilities.QueryInt(c, "limit", matching.DefaultLimit, 1, matching.MaxLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: fmt.Sprintf("Invalid query: %s", err.Error())})
		return
	}

	ctx := c.Request.Context()
	results, err := matching.Search(ctx, jc.DB.DB, matching.FromJob(opening.JobCriteria, limit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	if len(results) > 0 {
		if err := jc.Quota.RecordMatches(ctx, user.ID, len(results)); err != nil {
			jc.Log.WithError(err).WithField("hr_user_id", user.ID).Warn("failed to record matches")
		}
	}

	c.JSON(http.StatusOK, MatchResponse{
		Opening:    opening,
		Count:      len(results),
		Candidates: matching.Summaries(results),
	})
}

// DeleteOpening remove opening of current HR
// @Summary Delete job opening
// @Tags HR
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path int true "Job opening ID"
// @Success 200 {object} utilities.MessageResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or id"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not owner of opening"
// @Failure 404 {object} utilities.ErrorResponse "Job opening not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/jobs/{id} [delete]
func (jc *JobOpeningController) DeleteOpening(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	opening, ok := jc.ownOpening(c, user)
	if !ok {
		return
	}

	if err := jc.DB.WithContext(c.Request.Context()).Delete(&opening).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to delete job opening: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{
		Message: fmt.Sprintf("Job opening %d deleted", opening.ID),
	})
}

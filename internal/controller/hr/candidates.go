package hr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"talentpool-backend/internal/matching"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/utilities"
)

// SearchResponse is result of talent pool search
type SearchResponse struct {
	Count      int                      `json:"count"`
	Candidates []model.CandidateSummary `json:"candidates"`
}

// CandidateDetailResponse is full candidate record with quota state after the view
type CandidateDetailResponse struct {
	Candidate model.CandidateProfile `json:"candidate"`
	Charged   bool                   `json:"charged"`
	QuotaLeft int                    `json:"quota_left"`
}

// CriteriaFromQuery read talent pool criteria from query string
func CriteriaFromQuery(c *gin.Context) (matching.Criteria, error) {
	minExp, err := utilities.QueryInt(c, "min_exp", 0, 0, 100)
	if err != nil {
		return matching.Criteria{}, err
	}
	limit, err := utilities.QueryInt(c, "limit", matching.DefaultLimit, 1, matching.MaxLimit)
	if err != nil {
		return matching.Criteria{}, err
	}
	return matching.Criteria{
		Query:         strings.TrimSpace(c.Query("q")),
		Skills:        matching.ParseList(c.Query("skills")),
		Title:         strings.TrimSpace(c.Query("title")),
		Education:     strings.TrimSpace(c.Query("education")),
		MinExperience: minExp,
		Limit:         limit,
	}, nil
}

// SearchCandidates filter and rank the talent pool
// @Summary Search talent pool
// @Description Every skill must match one of candidate skill and every word of q must be found
// @Description in candidate record, typo of one or two letters are tolerated.
// @Description Only summary is returned, contact and resume need /hr/candidates/{email} which use quota.
// @Tags HR
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param q query string false "Free text keywords"
// @Param skills query string false "Comma separated skills" example(go,postgresql)
// @Param title query string false "Job title"
// @Param education query string false "Education"
// @Param min_exp query int false "Minimum years of experience"
// @Param limit query int false "Maximum results (default 50, max 200)"
// @Success 200 {object} SearchResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or query"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, company is not verified"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/candidates [get]
func (hc *HRController) SearchCandidates(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	crit, err := CriteriaFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid query: %s", err.Error()),
		})
		return
	}

	c.JSON(hc.search(c, user, crit))
}

// search run criteria against the talent pool and count results into matchesFound of user.
// It return status code and body ready to be written.
func (hc *HRController) search(c *gin.Context, user model.User, crit matching.Criteria) (int, interface{}) {
	ctx := c.Request.Context()
	results, err := matching.Search(ctx, hc.DB.DB, crit)
	if err != nil {
		return http.StatusInternalServerError, utilities.ErrorResponse{Error: err.Error()}
	}

	if len(results) > 0 {
		if err := hc.Quota.RecordMatches(ctx, user.ID, len(results)); err != nil {
			hc.Log.WithError(err).WithField("hr_user_id", user.ID).Warn("failed to record matches")
		}
	}

	return http.StatusOK, SearchResponse{
		Count:      len(results),
		Candidates: matching.Summaries(results),
	}
}

// GetCandidateDetail return full candidate record, the first view of a candidate in
// a billing period use one quota
// @Summary View candidate detail
// @Description Viewing the same candidate again during the same month is free
// @Tags HR
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param email path string true "Email of candidate"
// @Success 200 {object} CandidateDetailResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 402 {object} utilities.ErrorResponse "Quota exhausted"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, company is not verified"
// @Failure 404 {object} utilities.ErrorResponse "Candidate not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/candidates/{email} [get]
func (hc *HRController) GetCandidateDetail(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	email := strings.TrimSpace(c.Param("email"))
	candidate := model.CandidateProfile{}
	err = hc.DB.WithContext(c.Request.Context()).
		Where("lower(email) = lower(?)", email).
		First(&candidate).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Candidate not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve candidate: %s", err.Error()),
		})
		return
	}

	view, err := hc.Quota.ChargeView(c.Request.Context(), user.ID, candidate.UserID)
	switch {
	case errors.Is(err, quota.ErrQuotaExhausted):
		c.JSON(http.StatusPaymentRequired, utilities.ErrorResponse{
			Error: "Quota exhausted, upgrade your plan to view more candidates",
		})
		return
	case errors.Is(err, quota.ErrNoUsage):
		c.JSON(http.StatusPaymentRequired, utilities.ErrorResponse{
			Error: "No active plan for this account",
		})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to charge quota: %s", err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, CandidateDetailResponse{
		Candidate: candidate,
		Charged:   view.Charged,
		QuotaLeft: view.Usage.QuotaLeft,
	})
}

// Package dashboard serves the role specific summary shown after login.
package dashboard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/utilities"
)

// RecentLimit is how many recent items a dashboard lists
const RecentLimit = 5

type DashboardController struct {
	DB    *database.DBinstanceStruct
	Quota *quota.Service
}

func NewDashboardController(db *database.DBinstanceStruct, q *quota.Service) *DashboardController {
	return &DashboardController{DB: db, Quota: q}
}

// AdminDashboard is platform wide counters
type AdminDashboard struct {
	Role          string           `json:"role"`
	Candidates    int64            `json:"candidates"`
	HRUsers       int64            `json:"hr_users"`
	Companies     map[string]int64 `json:"companies"`
	Interviews    int64            `json:"interviews"`
	PaymentsTotal int64            `json:"payments_total"`
	Visitors      int64            `json:"visitors"`
}

// InterviewCounts split interviews by status
type InterviewCounts struct {
	Scheduled int64 `json:"scheduled"`
	Completed int64 `json:"completed"`
}

// HRDashboard is what HR see on its dashboard
type HRDashboard struct {
	Role           string              `json:"role"`
	Usage          *model.UsageMetrics `json:"usage"`
	CompanyStatus  string              `json:"company_status"`
	Interviews     InterviewCounts     `json:"interviews"`
	RecentOpenings []model.JobOpening  `json:"recent_openings"`
}

// CandidateDashboard is what candidate see on its dashboard
type CandidateDashboard struct {
	Role       string            `json:"role"`
	Score      int               `json:"score"`
	HasResume  bool              `json:"has_resume"`
	Interviews []model.Interview `json:"interviews"`
}

// GetDashboard return dashboard of the role of current user
// @Summary Dashboard summary
// @Description Response shape depend on role: AdminDashboard, HRDashboard or CandidateDashboard
// @Tags Dashboard
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} HRDashboard
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 404 {object} utilities.ErrorResponse "Profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /dashboard [get]
func (dc *DashboardController) GetDashboard(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	var body interface{}
	switch user.Role {
	case model.RoleAdmin:
		body, err = dc.admin(c)
	case model.RoleHR:
		body, err = dc.hr(c, user)
	case model.RoleCandidate:
		body, err = dc.candidate(c, user)
	default:
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{Error: "User doesn't have permission to access"})
		return
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Profile not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to build dashboard: %s", err.Error()),
		})
	default:
		c.JSON(http.StatusOK, body)
	}
}

func (dc *DashboardController) admin(c *gin.Context) (AdminDashboard, error) {
	db := dc.DB.WithContext(c.Request.Context())
	d := AdminDashboard{Role: model.RoleAdmin, Companies: map[string]int64{}}

	if err := db.Model(&model.CandidateProfile{}).Count(&d.Candidates).Error; err != nil {
		return d, err
	}
	if err := db.Model(&model.HRUser{}).Count(&d.HRUsers).Error; err != nil {
		return d, err
	}
	if err := db.Model(&model.Interview{}).Count(&d.Interviews).Error; err != nil {
		return d, err
	}
	if err := db.Model(&model.Visitor{}).Distinct("visitor_id").Count(&d.Visitors).Error; err != nil {
		return d, err
	}
	if err := db.Model(&model.Payment{}).
		Where("status = ?", model.PaymentPaid).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&d.PaymentsTotal).Error; err != nil {
		return d, err
	}

	var byStatus []struct {
		VerifiedStatus string
		Count          int64
	}
	if err := db.Model(&model.Company{}).
		Select("verified_status, COUNT(*) AS count").
		Group("verified_status").
		Scan(&byStatus).Error; err != nil {
		return d, err
	}
	for _, s := range byStatus {
		d.Companies[s.VerifiedStatus] = s.Count
	}
	return d, nil
}

func (dc *DashboardController) hr(c *gin.Context, user model.User) (HRDashboard, error) {
	ctx := c.Request.Context()
	db := dc.DB.WithContext(ctx)
	d := HRDashboard{Role: model.RoleHR, RecentOpenings: []model.JobOpening{}}

	if dc.Quota != nil {
		usage, err := dc.Quota.Snapshot(ctx, user.ID)
		switch {
		case err == nil:
			d.Usage = &usage
		case !errors.Is(err, quota.ErrNoUsage):
			return d, err
		}
	}

	company := model.Company{}
	if err := db.Where("hr_user_id = ?", user.ID).Limit(1).Find(&company).Error; err != nil {
		return d, err
	}
	d.CompanyStatus = company.VerifiedStatus

	if err := db.Model(&model.Interview{}).
		Where("hr_user_id = ? AND status = ?", user.ID, model.InterviewScheduled).
		Count(&d.Interviews.Scheduled).Error; err != nil {
		return d, err
	}
	if err := db.Model(&model.Interview{}).
		Where("hr_user_id = ? AND status = ?", user.ID, model.InterviewCompleted).
		Count(&d.Interviews.Completed).Error; err != nil {
		return d, err
	}

	err := db.Where("hr_user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(RecentLimit).
		Find(&d.RecentOpenings).Error
	return d, err
}

func (dc *DashboardController) candidate(c *gin.Context, user model.User) (CandidateDashboard, error) {
	db := dc.DB.WithContext(c.Request.Context())
	d := CandidateDashboard{Role: model.RoleCandidate, Interviews: []model.Interview{}}

	profile := model.CandidateProfile{}
	if err := db.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		return d, err
	}
	d.Score = profile.Score
	d.HasResume = profile.ResumeID != nil || profile.ResumeURL != ""

	query := db.Where("candidate_id = ?", user.ID)
	if email := user.VerifiedEmail(); email != "" {
		query = query.Or("candidate_id IS NULL AND lower(participant_email) = lower(?)", email)
	}
	err := query.Order("scheduled_at ASC NULLS LAST").Order("id ASC").Find(&d.Interviews).Error
	return d, err
}

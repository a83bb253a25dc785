package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/referral"
	"talentpool-backend/internal/utilities"
)

type AdminController struct {
	DB       *database.DBinstanceStruct
	Quota    *quota.Service
	Referral *referral.Service
}

func NewAdminController(db *database.DBinstanceStruct, q *quota.Service, ref *referral.Service) *AdminController {
	return &AdminController{
		DB:       db,
		Quota:    q,
		Referral: ref,
	}
}

// CreateAdminRequest is body of admin creation
type CreateAdminRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// SetQuotaRequest is body of quota overwrite
type SetQuotaRequest struct {
	QuotaLeft *int `json:"quota_left" binding:"required"`
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// withPunishment keep only rows whose user in userColumn has active punishment of a type in raw
func withPunishment(query *gorm.DB, userColumn string, raw string) *gorm.DB {
	if raw == "" {
		return query
	}
	punishment := strings.Fields(strings.ToLower(raw))
	return query.Joins(fmt.Sprintf("JOIN users ON users.id = %s", userColumn)).
		Joins("JOIN punishment_structs ON punishment_structs.id = users.punishment_id").
		Where("punishment_type IN ?", punishment).
		Where("(punish_end > ? OR punish_end IS NULL)", time.Now())
}

// GetAdmins list every admin account
// @Summary Get admins
// @Description Only admin can access this endpoints
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} model.User
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/admins [get]
func (jc *AdminController) GetAdmins(c *gin.Context) {
	var admins []model.User
	if err := jc.DB.WithContext(c.Request.Context()).
		Where("role = ?", model.RoleAdmin).
		Order("created_at ASC").
		Find(&admins).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, admins)
}

// CreateAdmin add another admin account
// @Summary Create admin
// @Description Only admin can access this endpoints
// @Tags Admin
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body CreateAdminRequest true "Admin credentials, password at least 8 characters"
// @Success 201 {object} model.User
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, request body or username already exist"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/admins [post]
func (jc *AdminController) CreateAdmin(c *gin.Context) {
	req := CreateAdminRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Password) < 8 {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Password should longer or equal to 8 characters",
		})
		return
	}

	db := jc.DB.WithContext(c.Request.Context())
	var count int64
	if err := db.Model(&model.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	if count > 0 {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: utilities.UsernameTakenMessage})
		return
	}

	admin, err := utilities.CreateAdmin(db, req.Username, req.Password, strings.TrimSpace(req.Email), strings.TrimSpace(req.Name))
	if database.IsUniqueViolationOn(err, database.UsernameIndex) {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: utilities.UsernameTakenMessage})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, admin)
}

// GetCompanies function query the result from the database based on given query "verify" and "punishment"
// @Summary Get companies based on given query
// @Description Only admin can access this endpoints
// @Description If no query given, the server will return all companies
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param verify query string false "Only pending, unverified, or verified with case insensitive" example(pending unverified)
// @Param punishment query string false "Only ban, or suspend with case insensitive, applied to HR of company" example(ban suspend)
// @Success 200 {array} model.Company
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/companies [get]
func (jc *AdminController) GetCompanies(c *gin.Context) {
	result := jc.DB.WithContext(c.Request.Context()).Model(&model.Company{})
	if rawVerify := c.Query("verify"); rawVerify != "" {
		verify := strings.Fields(rawVerify)
		for i := range verify {
			verify[i] = titleCase(verify[i])
		}
		result = result.Where("verified_status IN ?", verify)
	}
	result = withPunishment(result, "companies.hr_user_id", c.Query("punishment"))

	var companies []model.Company
	if err := result.Order("companies.created_at ASC").Find(&companies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, companies)
}

// GetCandidates function query the result from the database based on given query "punishment"
// @Summary Get candidates based on given query
// @Description Only admin can access this endpoints
// @Description If no query given, the server will return all candidates
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param punishment query string false "Only ban, or suspend with case insensitive" example(ban suspend)
// @Success 200 {array} model.CandidateProfile
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/candidates [get]
func (jc *AdminController) GetCandidates(c *gin.Context) {
	result := jc.DB.WithContext(c.Request.Context()).Preload("User").Preload("User.Punishment")
	result = withPunishment(result, "candidate_profiles.user_id", c.Query("punishment"))

	var candidates []model.CandidateProfile
	if err := result.Find(&candidates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, candidates)
}

// GetHRUsers function query the result from the database based on given query "punishment"
// @Summary Get HR users based on given query
// @Description Only admin can access this endpoints
// @Description If no query given, the server will return all HR with company and usage
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param punishment query string false "Only ban, or suspend with case insensitive" example(ban suspend)
// @Success 200 {array} model.HRUser
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/hr [get]
func (jc *AdminController) GetHRUsers(c *gin.Context) {
	result := jc.DB.WithContext(c.Request.Context()).
		Preload("User").Preload("User.Punishment").
		Preload("Company").Preload("Usage")
	result = withPunishment(result, "hr_users.user_id", c.Query("punishment"))

	var hrUsers []model.HRUser
	if err := result.Find(&hrUsers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, hrUsers)
}

// VerifyCompany function allow admin to change status of given company id to Verified or Unverified
// @Summary Verify, or unverify companies
// @Description Only admin can access this endpoints
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param company_id path string true "Company ID"
// @Param status query string false "Status is case insensitive and allow only unverified, or verified (verified by default)" default(verified)
// @Success 200 {object} model.Company
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, or Invalid request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 404 {object} utilities.ErrorResponse "Given company ID not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/companies/{company_id}/verify [patch]
func (jc *AdminController) VerifyCompany(c *gin.Context) {
	companyID := c.Param("company_id")
	status := c.Query("status")
	if status == "" {
		status = "verified"
	}
	status = titleCase(status)

	allowedStatus := map[string]bool{
		model.StatusVerified:   true,
		model.StatusUnverified: true,
	}
	if !allowedStatus[status] {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Unknown status: %s", status),
		})
		return
	}

	db := jc.DB.WithContext(c.Request.Context())
	var company model.Company
	err := gorm.ErrRecordNotFound
	if id, parseErr := uuid.Parse(companyID); parseErr == nil {
		err = db.Where("id = ?", id).First(&company).Error
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{
			Error: fmt.Sprintf("%s does not exist in the database", companyID),
		})
		return

	case err == nil:
		// Do nothing

	default:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}

	company.VerifiedStatus = status
	if err := db.Model(&company).Update("verified_status", status).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to update company: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, company)
}

// SetHRQuota overwrite quota left of HR in current period
// @Summary Set quota of HR
// @Description Only admin can access this endpoints
// @Tags Admin
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param user_id path string true "HR user ID"
// @Param body body SetQuotaRequest true "New quota, zero or more"
// @Success 200 {object} model.UsageMetrics
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, or Invalid request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 404 {object} utilities.ErrorResponse "HR not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/hr/{user_id}/quota [put]
func (jc *AdminController) SetHRQuota(c *gin.Context) {
	hrID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "HR not found"})
		return
	}

	req := SetQuotaRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	usage, err := jc.Quota.SetQuota(c.Request.Context(), hrID, *req.QuotaLeft)
	switch {
	case errors.Is(err, quota.ErrInvalidQuota):
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "quota_left must not be negative"})
	case errors.Is(err, quota.ErrNoUsage):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "HR not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
	default:
		c.JSON(http.StatusOK, usage)
	}
}

// GetReferrals summarise every referral code with visitors
// @Summary Get referral stats
// @Description Only admin can access this endpoints
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} model.ReferralStats
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/referrals [get]
func (jc *AdminController) GetReferrals(c *gin.Context) {
	stats, err := jc.Referral.AllStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	if stats == nil {
		stats = []model.ReferralStats{}
	}
	c.JSON(http.StatusOK, stats)
}

// GetPayments list payments of every user, newest first
// @Summary Get payments
// @Description Only admin can access this endpoints
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "created, paid or failed"
// @Success 200 {array} model.Payment
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Do not logged in as admin"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/payments [get]
func (jc *AdminController) GetPayments(c *gin.Context) {
	result := jc.DB.WithContext(c.Request.Context())
	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
		result = result.Where("status = ?", status)
	}

	payments := []model.Payment{}
	if err := result.Order("created_at DESC").Order("id DESC").Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, payments)
}

// Package company provides HTTP handlers for the company that HR recruit for.
package company

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// CompanyController handles company endpoints
type CompanyController struct {
	DB *database.DBinstanceStruct
	// BypassVerification mark new company as verified right away
	BypassVerification bool
}

// NewCompanyController create company controller
func NewCompanyController(db *database.DBinstanceStruct, bypassVerification bool) *CompanyController {
	return &CompanyController{
		DB:                 db,
		BypassVerification: bypassVerification,
	}
}

// EditMyCompany function create company of HR on first call and overwrite it afterward,
// then response edited company as JSON format.
// @Summary Create or edit company of HR
// @Description Overwrite company profile and save into database, empty field are left unchanged.
// @Description New company start in Pending status until admin verify it.
// @Description Sensitive field like id and verified status can't be overwritten
// @Tags HR
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param company body model.EditableCompanyInfo true "Company info to be written"
// @Success 200 {object} model.Company "Successfully overwrite"
// @Success 201 {object} model.Company "Successfully create company"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, User is banned"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/company [patch]
func (jc *CompanyController) EditMyCompany(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	edited := model.EditableCompanyInfo{}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&edited); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	db := jc.DB.WithContext(c.Request.Context())
	company := model.Company{}
	created := false
	err = db.Where("hr_user_id = ?", user.ID).First(&company).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if strings.TrimSpace(edited.Name) == "" {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
				Error: "Invalid request body: name is required for new company",
			})
			return
		}
		created = true
		company = model.Company{
			HRUserID:       user.ID,
			VerifiedStatus: model.StatusPending,
		}
		if jc.BypassVerification {
			company.VerifiedStatus = model.StatusVerified
		}
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Fail to retrieve company information from database: %s", err.Error()),
		})
		return
	}

	utilities.MergeNonEmpty(&company.EditableCompanyInfo, &edited)

	if created {
		err = db.Create(&company).Error
	} else {
		err = db.Save(&company).Error
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to update company information: %s", err.Error()),
		})
		return
	}

	if created {
		c.JSON(http.StatusCreated, company)
		return
	}
	c.JSON(http.StatusOK, company)
}

// GetCompanyByID retrieves a company by its ID
// @Summary Retrieve company profile from database by given ID
// @Tags Company
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param company_id path string true "ID of company"
// @Success 200 {object} model.Company "Successfully retrieve company profile"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "User is banned"
// @Failure 404 {object} utilities.ErrorResponse "Company not exist"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /company/{company_id} [get]
func (jc *CompanyController) GetCompanyByID(c *gin.Context) {
	companyID, err := uuid.Parse(c.Param("company_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Company not found"})
		return
	}

	company := model.Company{}
	if err := jc.DB.WithContext(c.Request.Context()).Where("id = ?", companyID).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Company not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve company information from database: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, company)
}

// Package candidate provides HTTP handlers for job seeker profile operations.
package candidate

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/matching"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// CandidateController handles candidate related endpoints
type CandidateController struct {
	DB *database.DBinstanceStruct
}

// NewCandidateController creates a new instance of CandidateController
func NewCandidateController(db *database.DBinstanceStruct) *CandidateController {
	return &CandidateController{
		DB: db,
	}
}

type editCandidateUser struct {
	model.EditableCandidateInfo
	model.EditableUserInfo
}

func (jc *CandidateController) loadProfile(c *gin.Context, user model.User) (model.CandidateProfile, bool) {
	profile := model.CandidateProfile{}
	err := jc.DB.WithContext(c.Request.Context()).Preload("User").Where("user_id = ?", user.ID).First(&profile).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Candidate profile not found"})
		return profile, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve user information from database: %s", err.Error()),
		})
		return profile, false
	}
	return profile, true
}

// EditCandidateProfile merge non-empty fields of request body into candidate profile
// and recompute profile score.
// @Summary Edit candidate profile
// @Description Overwrite candidate profile and save into database, empty field are left unchanged.
// @Description Sensitive field like id, resume, score and parsed text can't be overwritten
// @Tags Candidate
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param candidate_profile body editCandidateUser true "Candidate info to be written"
// @Success 200 {object} model.CandidateProfile "Successfully overwrite"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as candidate, User is banned"
// @Failure 404 {object} utilities.ErrorResponse "Candidate profile not found"
// @Failure 409 {object} utilities.ErrorResponse "Email already used by another candidate"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidate/profile [patch]
func (jc *CandidateController) EditCandidateProfile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	profile, ok := jc.loadProfile(c, user)
	if !ok {
		return
	}

	edited := editCandidateUser{}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&edited); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if edited.ExperienceYears < 0 {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Invalid request body: experience_years must not be negative",
		})
		return
	}

	utilities.MergeNonEmpty(&profile.User.EditableUserInfo, &edited.EditableUserInfo)
	utilities.MergeNonEmpty(&profile.EditableCandidateInfo, &edited.EditableCandidateInfo)
	profile.Score = matching.ProfileScore(profile)

	err = jc.DB.WithContext(c.Request.Context()).Session(&gorm.Session{FullSaveAssociations: true}).Save(&profile).Error
	if database.IsUniqueViolationOn(err, database.CandidateEmailIndex) {
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: utilities.EmailInUseMessage})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to update user information: %s", err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetMyCandidateProfile retrieves candidate profile of current user
// @Summary Retrieve candidate profile from database
// @Tags Candidate
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.CandidateProfile "Successfully retrieve candidate profile"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as candidate, User is banned"
// @Failure 404 {object} utilities.ErrorResponse "Candidate profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidate/myprofile [get]
func (jc *CandidateController) GetMyCandidateProfile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	profile, ok := jc.loadProfile(c, user)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetMyInterviews list interviews that candidate take part in, either linked to the
// account or sent to its google verified email
// @Summary List interviews of current candidate
// @Tags Candidate
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} model.Interview "Interviews ordered by schedule"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as candidate, User is banned"
// @Failure 404 {object} utilities.ErrorResponse "Candidate profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /candidate/interviews [get]
func (jc *CandidateController) GetMyInterviews(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	if _, ok := jc.loadProfile(c, user); !ok {
		return
	}

	query := jc.DB.WithContext(c.Request.Context()).Where("candidate_id = ?", user.ID)
	if email := user.VerifiedEmail(); email != "" {
		query = query.Or("candidate_id IS NULL AND lower(participant_email) = lower(?)", email)
	}

	interviews := []model.Interview{}
	if err := query.Order("scheduled_at ASC NULLS LAST").Order("id ASC").Find(&interviews).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve interviews: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, interviews)
}

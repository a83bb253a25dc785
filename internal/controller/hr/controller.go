// Package hr provides HTTP handlers for recruiters: their profile, the talent pool search,
// metered candidate detail and live usage counters.
package hr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/events"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/utilities"
)

// HRController handles HR endpoints
type HRController struct {
	DB     *database.DBinstanceStruct
	Quota  *quota.Service
	Broker events.Broker
	Log    *logrus.Entry
}

// NewHRController create HR controller
func NewHRController(db *database.DBinstanceStruct, q *quota.Service, broker events.Broker, log *logrus.Entry) *HRController {
	if log == nil {
		log = logrus.WithField("component", "hr")
	}
	return &HRController{
		DB:     db,
		Quota:  q,
		Broker: broker,
		Log:    log,
	}
}

type editHRUser struct {
	model.EditableHRInfo
	model.EditableUserInfo
}

func (hc *HRController) loadProfile(c *gin.Context, user model.User) (model.HRUser, bool) {
	profile := model.HRUser{}
	err := hc.DB.WithContext(c.Request.Context()).
		Preload("User").
		Preload("Company").
		Where("user_id = ?", user.ID).
		First(&profile).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "HR profile not found"})
		return profile, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve user information from database: %s", err.Error()),
		})
		return profile, false
	}
	return profile, true
}

// GetMyHRProfile retrieve profile of current HR together with company and usage counters
// @Summary Retrieve HR profile from database
// @Tags HR
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.HRUser "Successfully retrieve HR profile"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, User is banned"
// @Failure 404 {object} utilities.ErrorResponse "HR profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/myprofile [get]
func (hc *HRController) GetMyHRProfile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	profile, ok := hc.loadProfile(c, user)
	if !ok {
		return
	}

	usage, err := hc.Quota.Snapshot(c.Request.Context(), user.ID)
	switch {
	case errors.Is(err, quota.ErrNoUsage):
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve usage metrics: %s", err.Error()),
		})
		return
	default:
		profile.Usage = &usage
	}

	c.JSON(http.StatusOK, profile)
}

// EditHRProfile merge non-empty field of request into HR profile
// @Summary Edit HR profile
// @Description Overwrite HR profile and save into database, empty field are left unchanged.
// @Description Company is edited through /hr/company
// @Tags HR
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param hr_profile body editHRUser true "HR info to be written"
// @Success 200 {object} model.HRUser "Successfully overwrite"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header or request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR, User is banned"
// @Failure 404 {object} utilities.ErrorResponse "HR profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /hr/profile [patch]
func (hc *HRController) EditHRProfile(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	profile, ok := hc.loadProfile(c, user)
	if !ok {
		return
	}

	edited := editHRUser{}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&edited); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	utilities.MergeNonEmpty(&profile.EditableHRInfo, &edited.EditableHRInfo)
	utilities.MergeNonEmpty(&profile.User.EditableUserInfo, &edited.EditableUserInfo)

	err = hc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.HRUser{}).Where("user_id = ?", user.ID).
			Updates(map[string]interface{}{
				"full_name": profile.FullName,
				"position":  profile.Position,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("id = ?", user.ID).
			Updates(map[string]interface{}{
				"name": profile.User.Name,
				"tel":  profile.User.Tel,
			}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to update user information: %s", err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, profile)
}

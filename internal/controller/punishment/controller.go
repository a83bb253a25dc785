// Package punishment lets admin ban or suspend users.
package punishment

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// PunishmentController handles admin punishment endpoints
type PunishmentController struct {
	DB *database.DBinstanceStruct
}

// NewPunishmentController create punishment controller
func NewPunishmentController(db *database.DBinstanceStruct) *PunishmentController {
	return &PunishmentController{
		DB: db,
	}
}

func (jc *PunishmentController) findUser(c *gin.Context) (model.User, bool) {
	user := model.User{}
	id, err := uuid.Parse(c.Param("user_id"))
	if err == nil {
		err = jc.DB.WithContext(c.Request.Context()).Where("id = ?", id).First(&user).Error
	} else {
		err = gorm.ErrRecordNotFound
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "User not found"})
		return user, false
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve user: %s", err.Error()),
		})
		return user, false
	}
	return user, true
}

// PunishUser handles ban and suspend process for admin
// @Summary Ban or suspend user
// @Description Type of punishment (Only 'ban' or 'suspend' with case insensitive),
// @Description 'at' and 'end' fields must be in 'YYYY-MM-DDTHH:mm:ssZ' format.
// @Description Only 'type' is required 'at' and 'end' are optional
// @Description 'at' will be current time by default
// @Description 'end' leave empty mean permanent punishment
// @Tags Admin
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param user_id path string true "ID of user to be punished"
// @Param Detail body model.PunishmentStruct true "Detail of punishment"
// @Success 200 {object} utilities.MessageResponse "Successfully punish a user"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, request body"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as Admin, trying to punish other Admin"
// @Failure 404 {object} utilities.ErrorResponse "User not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/punish/{user_id} [put]
func (jc *PunishmentController) PunishUser(c *gin.Context) {
	user, ok := jc.findUser(c)
	if !ok {
		return
	}

	if user.Role == model.RoleAdmin {
		c.JSON(http.StatusForbidden, utilities.ErrorResponse{
			Error: "Unable to punish other admin",
		})
		return
	}

	punishment := model.PunishmentStruct{}
	if err := c.ShouldBindJSON(&punishment); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}
	if punishment.PunishAt == nil {
		now := time.Now()
		punishment.PunishAt = &now
	}

	allowedType := []string{model.BanPunishment, model.SuspendPunishment}
	punishment.PunishmentType = strings.ToLower(punishment.PunishmentType)
	if !slices.Contains(allowedType, punishment.PunishmentType) {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Invalid request body: type can be only 'ban' or 'suspend'",
		})
		return
	}
	if punishment.PunishEnd != nil && punishment.PunishAt.After(*punishment.PunishEnd) {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Invalid request body: 'end' time must more than 'at' time",
		})
		return
	}

	oldID := user.PunishmentID
	err := jc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&punishment).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("id = ?", user.ID).Update("punishment_id", punishment.ID).Error; err != nil {
			return err
		}
		if oldID != nil {
			return tx.Delete(&model.PunishmentStruct{}, *oldID).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to update user information: %s", err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, utilities.MessageResponse{
		Message: fmt.Sprintf("Successfully %s %s", punishment.PunishmentType, user.Username),
	})
}

// DeletePunishmentRecord removes punishment record from user
// @Summary Remove punishment record from user
// @Tags Admin
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param user_id path string true "ID of user to be unpunished"
// @Success 200 {object} utilities.MessageResponse "Successfully remove punishment record from user"
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as Admin"
// @Failure 404 {object} utilities.ErrorResponse "User not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /admin/punish/{user_id} [delete]
func (jc *PunishmentController) DeletePunishmentRecord(c *gin.Context) {
	user, ok := jc.findUser(c)
	if !ok {
		return
	}

	if user.PunishmentID != nil {
		punishmentID := *user.PunishmentID
		err := jc.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&model.User{}).Where("id = ?", user.ID).Update("punishment_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&model.PunishmentStruct{}, punishmentID).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to delete punishment record: %s", err.Error()),
			})
			return
		}
	}

	c.JSON(http.StatusOK, utilities.MessageResponse{
		Message: fmt.Sprintf("Successfully removed punishment record of %s", user.Username),
	})
}

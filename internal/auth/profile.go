package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// LoadProfile fetch role profile of user: *model.CandidateProfile, *model.HRUser,
// or the user itself for admin.
func LoadProfile(db *gorm.DB, user model.User) (interface{}, error) {
	switch user.Role {
	case model.RoleCandidate:
		var profile model.CandidateProfile
		err := db.Preload("User").Preload("User.Punishment").
			Where("user_id = ?", user.ID).First(&profile).Error
		if err != nil {
			return nil, err
		}
		return &profile, nil
	case model.RoleHR:
		var profile model.HRUser
		err := db.Preload("User").Preload("User.Punishment").Preload("Company").Preload("Usage").
			Where("user_id = ?", user.ID).First(&profile).Error
		if err != nil {
			return nil, err
		}
		return &profile, nil
	default:
		return user, nil
	}
}

func loginResponse(db *gorm.DB, user model.User, accessToken string) (interface{}, error) {
	profile, err := LoadProfile(db, user)
	if err != nil {
		return nil, err
	}
	if um, ok := profile.(model.UserModel); ok {
		return um.GetLoginResponse(accessToken), nil
	}
	return model.AdminResponse{User: user, AccessToken: accessToken}, nil
}

// MeController serve profile of the current user
type MeController struct {
	DB *database.DBinstanceStruct
}

// NewMeController create MeController
func NewMeController(db *database.DBinstanceStruct) *MeController {
	return &MeController{DB: db}
}

// MeHandler return current user with its role profile
// @Summary Get current user
// @Description Returns candidate profile, HR profile with company and usage, or admin user depending on role
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.CandidateProfile "If role is candidate"
// @Success 200 {object} model.HRUser "If role is hr"
// @Success 200 {object} model.User "If role is admin"
// @Failure 401 {object} utilities.ErrorResponse "User not found in context"
// @Failure 404 {object} utilities.ErrorResponse "Profile not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /me [get]
func (mc *MeController) MeHandler(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	profile, err := LoadProfile(mc.DB.WithContext(c.Request.Context()), user)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, profile)
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Profile not found"})
	default:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
	}
}

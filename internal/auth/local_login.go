package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/matching"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/referral"
	"talentpool-backend/internal/utilities"
)

// LocalAuthHandler holds DB reference for username/password handler methods.
type LocalAuthHandler struct {
	DB       *database.DBinstanceStruct
	Referral *referral.Service
}

// NewLocalAuthHandler creates a new instance of LocalAuthHandler. ref may be nil,
// then referral code on registration is ignored.
func NewLocalAuthHandler(db *database.DBinstanceStruct, ref *referral.Service) *LocalAuthHandler {
	return &LocalAuthHandler{
		DB:       db,
		Referral: ref,
	}
}

type registerInfo struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	Role         string `json:"role" binding:"required,oneof=candidate hr"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	ReferralCode string `json:"referral_code"`
	VisitorID    string `json:"visitor_id"`
}

type loginInfo struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LocalRegisterHandler handles local registration by receiving username and password
// do nothing if username already exist in the database
// do nothing if password is shorter than 8 characters
// @Summary Handles local registration by receiving username and password
// @Description Username must not already exist and password must longer or equal to 8 characters long.
// @Description A referral code (and visitor id from POST /referral/visit) marks the referral visitor as signed up.
// @Tags Auth
// @Accept json
// @Produce json
// @Param Info body registerInfo true "role can be only 'candidate' or 'hr'"
// @Success 201 {object} model.CandidateResponse "If role is candidate"
// @Success 201 {object} model.HRResponse "If role is hr"
// @Failure 400 {object} utilities.ErrorResponse "Info provided not met the condition"
// @Failure 409 {object} utilities.ErrorResponse "Email already used by another candidate"
// @Failure 500 {object} utilities.ErrorResponse "Database or password hashing error"
// @Router /auth/register [post]
func (lh *LocalAuthHandler) LocalRegisterHandler(c *gin.Context) {
	var info registerInfo

	if err := c.ShouldBindJSON(&info); err != nil {
		logging.AuthAttempt("warning", "Local", "Fail", "", "Register with invalid body")
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Username, password, and Role (Only 'candidate' or 'hr') must be provided",
		})
		return
	}
	info.Username = strings.TrimSpace(info.Username)

	db := lh.DB.WithContext(c.Request.Context())

	var user model.User
	err := db.Where("username = ?", info.Username).First(&user).Error

	switch {
	case err == nil:
		logging.AuthAttempt("info", "Local", "Fail", info.Username, "Username already exist")
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: utilities.UsernameTakenMessage,
		})
		return

	case errors.Is(err, gorm.ErrRecordNotFound):
		// Do nothing

	default:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}

	if len(info.Password) < 8 {
		logging.AuthAttempt("info", "Local", "Fail", info.Username, "Password too short")
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Password should longer or equal to 8 characters",
		})
		return
	}

	hashedPassword, err := utilities.HashPassword(info.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed hash password: %s", err.Error()),
		})
		return
	}

	base := model.User{
		Username: info.Username,
		Password: hashedPassword,
		Role:     info.Role,
	}
	if email := strings.TrimSpace(info.Email); email != "" {
		base.Email = &email
	}
	if name := strings.TrimSpace(info.Name); name != "" {
		base.Name = &name
	}

	var profile model.UserModel
	switch info.Role {
	case model.RoleCandidate:
		candidate := &model.CandidateProfile{
			User: base,
			EditableCandidateInfo: model.EditableCandidateInfo{
				FullName: strings.TrimSpace(info.Name),
				Email:    strings.TrimSpace(info.Email),
			},
		}
		candidate.Score = matching.ProfileScore(*candidate)
		profile = candidate
	case model.RoleHR:
		usage := model.NewUsageMetrics(model.PlanFree, time.Now())
		profile = &model.HRUser{
			User: base,
			EditableHRInfo: model.EditableHRInfo{
				FullName: strings.TrimSpace(info.Name),
			},
			Usage: &usage,
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		if lh.Referral == nil || info.ReferralCode == "" {
			return nil
		}
		err := lh.Referral.MarkSignup(tx, info.ReferralCode, info.VisitorID, profile.GetID())
		if errors.Is(err, referral.ErrUnknownCode) {
			// unknown code never block registration
			return nil
		}
		return err
	})
	switch {
	case database.IsUniqueViolationOn(err, database.UsernameIndex):
		logging.AuthAttempt("info", "Local", "Fail", info.Username, "Username already exist")
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: utilities.UsernameTakenMessage})
		return
	case database.IsUniqueViolationOn(err, database.CandidateEmailIndex):
		logging.AuthAttempt("info", "Local", "Fail", info.Username, "Email used by another candidate")
		c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: utilities.EmailInUseMessage})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to create user: %s", err.Error()),
		})
		return
	}

	accessToken, err := GenerateStandardToken(profile.GetID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to generate access token: %s", err.Error()),
		})
		return
	}

	logging.AuthAttempt("info", "Local", "Success", info.Username, "Registered as "+info.Role)
	c.JSON(http.StatusCreated, profile.GetLoginResponse(accessToken))
}

// LocalLoginHandler function handles local login by receiving username and password
// do nothing if username does not exist in the database
// do nothing if password is incorrect
// @Summary Handles local login by receiving username and password
// @Description Username must exist and password match. Expired punishment is lifted on login.
// @Tags Auth
// @Accept json
// @Produce json
// @Param Info body loginInfo true "Credentials for login"
// @Success 200 {object} model.CandidateResponse "If role is candidate"
// @Success 200 {object} model.HRResponse "If role is hr"
// @Success 200 {object} model.AdminResponse "If role is admin"
// @Failure 400 {object} utilities.ErrorResponse "Info provided not met the condition"
// @Failure 401 {object} utilities.ErrorResponse "Username not exist or password incorrect"
// @Failure 500 {object} utilities.ErrorResponse "Database or password hashing error"
// @Router /auth/login [post]
func (lh *LocalAuthHandler) LocalLoginHandler(c *gin.Context) {
	var info loginInfo

	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Username or password is not provided",
		})
		return
	}

	db := lh.DB.WithContext(c.Request.Context())

	var user model.User
	err := db.Preload("Punishment").Where("username = ?", info.Username).First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		logging.AuthAttempt("info", "Local", "Fail", info.Username, "Username not exist")
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{
			Error: "Username or password is incorrect",
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

	if user.Password == "" || !utilities.VerifyPassword(info.Password, user.Password) {
		logging.AuthAttempt("info", "Local", "Fail", info.Username, "Wrong password")
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{
			Error: "Username or password is incorrect",
		})
		return
	}

	if _, err := database.LiftExpiredPunishment(db, &user, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to update punishment: %s", err.Error()),
		})
		return
	}

	accessToken, err := GenerateStandardToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to generate access token: %s", err.Error()),
		})
		return
	}

	resp, err := loginResponse(db, user, accessToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to retrieve user data: %s", err.Error()),
		})
		return
	}

	logging.AuthAttempt("info", "Local", "Success", info.Username, "Logged in as "+user.Role)
	c.JSON(http.StatusOK, resp)
}

// Package auth contains handler relate to log in and create user account
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/logging"
	"talentpool-backend/internal/matching"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// GoogleUserInfoEndpoint is where user information is fetched after code exchange
const GoogleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v3/userinfo"

// NewGoogleOAuthConfig build oauth2 config for google sign in
func NewGoogleOAuthConfig(clientID string, clientSecret string, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
			"openid",
		},
		Endpoint: google.Endpoint,
	}
}

// OauthLoginHandler struct holds the database connection and OAuth2 configuration for handling OAuth login.
type OauthLoginHandler struct {
	DB               *database.DBinstanceStruct
	OauthConfig      *oauth2.Config
	UserInfoEndpoint string
}

type code struct {
	Code string `json:"code" binding:"required"`
}

// NewOauthLoginHandler creates a new instance of OauthLoginHandler with the provided database connection and OAuth2 configuration.
func NewOauthLoginHandler(db *database.DBinstanceStruct, oauthConfig *oauth2.Config, userInfoEndpoint string) *OauthLoginHandler {
	return &OauthLoginHandler{
		DB:               db,
		OauthConfig:      oauthConfig,
		UserInfoEndpoint: userInfoEndpoint,
	}
}

func (h *OauthLoginHandler) getUserInfo(c *gin.Context) (model.GoogleUserInfo, error) {
	var code code
	var uInfo model.GoogleUserInfo

	// check does body has code
	if err := c.ShouldBindJSON(&code); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("No authorization code provided: %v", err.Error()),
		})
		return uInfo, err
	}

	ctx := c.Request.Context()

	// Exchange code with google and get userinfo
	token, err := h.OauthConfig.Exchange(ctx, code.Code)
	if err != nil {
		logging.AuthAttempt("warning", "Google", "Fail", "", "Code exchange failed")
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to receive token: %v", err.Error()),
		})
		return uInfo, err
	}

	client := h.OauthConfig.Client(ctx, token)
	resp, err := client.Get(h.UserInfoEndpoint)
	if err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to fetch user information: %v", err.Error()),
		})
		return uInfo, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close userinfo response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to fetch user information: status=%d body=%s", resp.StatusCode, string(bodyBytes)),
		})
		return uInfo, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&uInfo); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to decode user info: %v", err.Error()),
		})
		return uInfo, err
	}
	if uInfo.GID == "" {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Google account id is missing from user information",
		})
		return uInfo, errors.New("empty google id")
	}
	return uInfo, nil
}

func (h *OauthLoginHandler) loginOrRegisterUser(userModel model.UserModel, role string, uinfo model.GoogleUserInfo, c *gin.Context) {
	db := h.DB.WithContext(c.Request.Context())

	var user model.User
	respStatus := http.StatusOK

	err := db.Preload("Punishment").Where("google_id = ?", uinfo.GID).First(&user).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		userModel.FillGoogleInfo(uinfo)
		if cp, ok := userModel.(*model.CandidateProfile); ok {
			cp.Score = matching.ProfileScore(*cp)
		}

		if err := db.Create(userModel).Error; err != nil {
			if database.IsUniqueViolationOn(err, database.CandidateEmailIndex) {
				logging.AuthAttempt("info", "Google", "Fail", uinfo.Email, "Email used by another candidate")
				c.JSON(http.StatusConflict, utilities.ErrorResponse{Error: utilities.EmailInUseMessage})
				return
			}
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to create user: %v", err.Error()),
			})
			return
		}

		respStatus = http.StatusCreated
	case err == nil:
		if user.Role != role {
			logging.AuthAttempt("info", "Google", "Fail", uinfo.Email, "Registered as "+user.Role)
			c.JSON(http.StatusConflict, utilities.ErrorResponse{
				Error: "You already registered as a different user type",
			})
			return
		}

		if _, err := database.LiftExpiredPunishment(db, &user, time.Now()); err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to update punishment: %s", err.Error()),
			})
			return
		}

		query := db.Preload("User").Preload("User.Punishment")
		if role == model.RoleHR {
			query = query.Preload("Company").Preload("Usage")
		}
		if err := query.Where("user_id = ?", user.ID).First(userModel).Error; err != nil {
			c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to retrieve user data: %v", err.Error()),
			})
			return
		}
	default:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %v", err.Error()),
		})
		return
	}

	if role == model.RoleCandidate {
		linked, err := database.LinkInterviews(db, userModel.GetID(), uinfo.Email)
		if err != nil {
			logrus.WithError(err).Warn("Failed to link interviews to candidate")
		} else if linked > 0 {
			logrus.WithField("count", linked).Info("Linked interviews to candidate")
		}
	}

	accessToken, err := GenerateStandardToken(userModel.GetID())
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to generate access token: %s", err.Error()),
		})
		return
	}

	logging.AuthAttempt("info", "Google", "Success", uinfo.Email, "Signed in as "+role)
	c.JSON(respStatus, userModel.GetLoginResponse(accessToken))
}

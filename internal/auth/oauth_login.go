package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"talentpool-backend/internal/model"
)

// CandidateGoogleLoginHandler handles Google login authentication for candidate role, exchanges code for user
// info, checks and creates user in the database, generates an access token, and returns user
// information with the access token.
// @Summary Handles Google login authentication for candidate role, exchanges code for user
// @Description Checks and creates user in the database, generates an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param Code body code true "Authentication code from google"
// @Success 200 {object} model.CandidateResponse "Login success"
// @Success 201 {object} model.CandidateResponse "Register success"
// @Failure 400 {object} utilities.ErrorResponse "Fail to receive token or fetch user info"
// @Failure 409 {object} utilities.ErrorResponse "Google account registered as another role"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /auth/google/candidate [post]
func (h *OauthLoginHandler) CandidateGoogleLoginHandler(c *gin.Context) {
	uInfo, err := h.getUserInfo(c)
	if err != nil {
		return
	}

	h.loginOrRegisterUser(&model.CandidateProfile{}, model.RoleCandidate, uInfo, c)
}

// HRGoogleLoginHandler handles Google login authentication for hr role. New HR start on free plan.
// @Summary Handles Google login authentication for hr role, exchanges code for user
// @Description Checks and creates user in the database, generates an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param Code body code true "Authentication code from google"
// @Success 200 {object} model.HRResponse "Login success"
// @Success 201 {object} model.HRResponse "Register success"
// @Failure 400 {object} utilities.ErrorResponse "Fail to receive token or fetch user info"
// @Failure 409 {object} utilities.ErrorResponse "Google account registered as another role"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /auth/google/hr [post]
func (h *OauthLoginHandler) HRGoogleLoginHandler(c *gin.Context) {
	uInfo, err := h.getUserInfo(c)
	if err != nil {
		return
	}

	h.loginOrRegisterUser(&model.HRUser{}, model.RoleHR, uInfo, c)
}

// Callback function in Go retrieves a query parameter named "code" from the request and returns it
// in a JSON response.
// @Summary Retrieves a query parameter named "code" from the request and returns it in a JSON response
// @Tags Auth
// @Produce json
// @Param Code query string false "Authentication code from google"
// @Success 200 {object} code
// @Router /auth/google/callback [get]
func (h *OauthLoginHandler) Callback(c *gin.Context) {
	aCode := c.Query("code")
	c.JSON(http.StatusOK, code{
		Code: aCode,
	})
}

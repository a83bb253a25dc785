// Package referral provides HTTP handlers for referral links.
package referral

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"talentpool-backend/internal/referral"
	"talentpool-backend/internal/utilities"
)

type ReferralController struct {
	Service *referral.Service
}

func NewReferralController(s *referral.Service) *ReferralController {
	return &ReferralController{Service: s}
}

// VisitRequest is body of referral link visit
type VisitRequest struct {
	Code      string `json:"code" binding:"required"`
	VisitorID string `json:"visitor_id"`
}

// VisitResponse carry visitor id that browser should keep and send on registration
type VisitResponse struct {
	VisitorID string `json:"visitor_id"`
}

// GetMyReferral return referral code of current user with its stats, code is created on first call
// @Summary Get my referral code and stats
// @Tags Referral
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {object} model.ReferralStats
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /referral/me [get]
func (rc *ReferralController) GetMyReferral(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	ctx := c.Request.Context()
	code, err := rc.Service.EnsureCode(ctx, &user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to assign referral code: %s", err.Error()),
		})
		return
	}

	stats, err := rc.Service.Stats(ctx, code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RecordVisit store a visit of referral link, location come from client IP
// @Summary Record referral link visit
// @Description Public endpoint. Send visitor_id again on later visits to count the same visitor once.
// @Tags Referral
// @Accept json
// @Produce json
// @Param body body VisitRequest true "Referral code"
// @Success 201 {object} VisitResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid request body"
// @Failure 404 {object} utilities.ErrorResponse "Referral code not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /referral/visit [post]
func (rc *ReferralController) RecordVisit(c *gin.Context) {
	req := VisitRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	visitor, err := rc.Service.RecordVisit(c.Request.Context(), req.Code, req.VisitorID, c.ClientIP())
	switch {
	case errors.Is(err, referral.ErrUnknownCode):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Referral code not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, VisitResponse{VisitorID: visitor.VisitorID})
}

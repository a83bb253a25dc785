// Package payment provides HTTP handlers for buying plans through the payment gateway.
package payment

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/queue"
	"talentpool-backend/internal/quota"
	"talentpool-backend/internal/referral"
	"talentpool-backend/internal/utilities"
)

// PaymentController handles payment endpoints, Gateway is nil when payment is not configured
type PaymentController struct {
	DB       *database.DBinstanceStruct
	Gateway  integrations.PaymentGateway
	Currency string
	Quota    *quota.Service
	Referral *referral.Service
	Notifier *queue.Notifier
	Log      *logrus.Entry
}

func NewPaymentController(
	db *database.DBinstanceStruct,
	gateway integrations.PaymentGateway,
	currency string,
	q *quota.Service,
	ref *referral.Service,
	notifier *queue.Notifier,
	log *logrus.Entry,
) *PaymentController {
	if log == nil {
		log = logrus.WithField("component", "payment")
	}
	return &PaymentController{
		DB:       db,
		Gateway:  gateway,
		Currency: currency,
		Quota:    q,
		Referral: ref,
		Notifier: notifier,
		Log:      log,
	}
}

// OrderRequest is body of order creation
type OrderRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// OrderResponse is what checkout widget need to collect payment
type OrderResponse struct {
	OrderID  string `json:"order_id"`
	Plan     string `json:"plan"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// VerifyRequest is checkout result sent back by browser
type VerifyRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// CreateOrder create gateway order for price of plan
// @Summary Create payment order
// @Tags Payment
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body OrderRequest true "Plan to buy"
// @Success 200 {object} OrderResponse
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, request body or plan"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Failure 502 {object} utilities.ErrorResponse "Payment gateway error"
// @Failure 503 {object} utilities.ErrorResponse "Payment is not configured"
// @Router /payment/order [post]
func (pc *PaymentController) CreateOrder(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	req := OrderRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	plan, ok := model.PlanByName(req.Plan)
	if !ok || plan.Price <= 0 {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Plan '%s' can not be bought", req.Plan),
		})
		return
	}
	if pc.Gateway == nil {
		c.JSON(http.StatusServiceUnavailable, utilities.ErrorResponse{Error: integrations.ErrDisabled.Error()})
		return
	}

	ctx := c.Request.Context()
	receipt := fmt.Sprintf("tp_%s_%d", user.ID.String()[:8], time.Now().Unix())
	order, err := pc.Gateway.CreateOrder(ctx, plan.Price, pc.Currency, receipt)
	if err != nil {
		c.JSON(integrations.HTTPStatus(err), utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to create order: %s", err.Error()),
		})
		return
	}

	payment := model.Payment{
		UserID:   user.ID,
		Plan:     plan.Name,
		OrderID:  order.ID,
		Amount:   plan.Price,
		Currency: pc.Currency,
		Status:   model.PaymentCreated,
	}
	if err := pc.DB.WithContext(ctx).Create(&payment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to save payment: %s", err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, OrderResponse{
		OrderID:  order.ID,
		Plan:     plan.Name,
		Amount:   plan.Price,
		Currency: pc.Currency,
		KeyID:    pc.Gateway.KeyID(),
	})
}

func receiptEmail(to string, p model.Payment) integrations.Email {
	plan, _ := model.PlanByName(p.Plan)
	return integrations.Email{
		To:      to,
		Subject: fmt.Sprintf("Payment receipt for %s plan", plan.Title),
		HTML: fmt.Sprintf("<p>Thank you for your payment.</p><p>Plan: <b>%s</b><br>Amount: %.2f %s<br>Order: %s<br>Payment: %s</p>",
			html.EscapeString(plan.Title), float64(p.Amount)/100, html.EscapeString(p.Currency),
			html.EscapeString(p.OrderID), html.EscapeString(p.PaymentID)),
	}
}

// VerifyPayment check checkout signature then credit plan quota to buyer
// @Summary Verify payment
// @Description Verifying an order that is already paid return it without crediting again
// @Tags Payment
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param body body VerifyRequest true "Checkout result"
// @Success 200 {object} model.Payment
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header, request body or signature"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 403 {object} utilities.ErrorResponse "Not logged in as HR"
// @Failure 404 {object} utilities.ErrorResponse "Payment not found"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Failure 503 {object} utilities.ErrorResponse "Payment is not configured"
// @Router /payment/verify [post]
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	req := VerifyRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
		})
		return
	}

	ctx := c.Request.Context()
	db := pc.DB.WithContext(ctx)

	payment := model.Payment{}
	err = db.Where("order_id = ? AND user_id = ?", req.OrderID, user.ID).First(&payment).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, utilities.ErrorResponse{Error: "Payment not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}

	if payment.Status == model.PaymentPaid {
		c.JSON(http.StatusOK, payment)
		return
	}
	if pc.Gateway == nil {
		c.JSON(http.StatusServiceUnavailable, utilities.ErrorResponse{Error: integrations.ErrDisabled.Error()})
		return
	}

	if err := pc.Gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature); err != nil {
		if !errors.Is(err, integrations.ErrInvalidSignature) {
			c.JSON(integrations.HTTPStatus(err), utilities.ErrorResponse{Error: err.Error()})
			return
		}
		if err := db.Model(&model.Payment{}).
			Where("id = ? AND status <> ?", payment.ID, model.PaymentPaid).
			Update("status", model.PaymentFailed).Error; err != nil {
			pc.Log.WithError(err).WithField("order_id", payment.OrderID).Error("failed to mark payment failed")
		}
		pc.Log.WithFields(logrus.Fields{"order_id": payment.OrderID, "user_id": user.ID}).Warn("payment signature mismatch")
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{Error: "Invalid payment signature"})
		return
	}

	credited := false
	var usage model.UsageMetrics
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Payment{}).
			Where("id = ? AND status <> ?", payment.ID, model.PaymentPaid).
			Updates(map[string]interface{}{"status": model.PaymentPaid, "payment_id": req.PaymentID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// paid by concurrent request
			return nil
		}

		var err error
		if usage, err = pc.Quota.CreditTx(tx, user.ID, payment.Plan); err != nil {
			return err
		}
		if pc.Referral != nil {
			if err := pc.Referral.CreditPayment(tx, user.ID, payment.Amount); err != nil {
				return err
			}
		}
		credited = true
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Failed to complete payment: %s", err.Error()),
		})
		return
	}
	if err := db.First(&payment, payment.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}

	if credited {
		pc.Quota.PublishCredit(ctx, usage)
		pc.Log.WithFields(logrus.Fields{
			"order_id": payment.OrderID,
			"user_id":  user.ID,
			"plan":     payment.Plan,
		}).Info("payment completed")

		if user.Email != nil && pc.Notifier.CanSend(queue.KindEmail) {
			if err := pc.Notifier.Send(ctx, queue.EmailNotification(receiptEmail(*user.Email, payment))); err != nil {
				pc.Log.WithError(err).WithField("order_id", payment.OrderID).Warn("failed to queue payment receipt")
			}
		}
	}
	c.JSON(http.StatusOK, payment)
}

// GetMyPayments list payments of current user, newest first
// @Summary Payment history
// @Tags Payment
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} model.Payment
// @Failure 400 {object} utilities.ErrorResponse "Invalid authorization header"
// @Failure 401 {object} utilities.ErrorResponse "Invalid token"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /payment/history [get]
func (pc *PaymentController) GetMyPayments(c *gin.Context) {
	user, err := utilities.ExtractUser(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	payments := []model.Payment{}
	if err := pc.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", user.ID).
		Order("created_at DESC").Order("id DESC").
		Find(&payments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: fmt.Sprintf("Database error: %s", err.Error()),
		})
		return
	}
	c.JSON(http.StatusOK, payments)
}

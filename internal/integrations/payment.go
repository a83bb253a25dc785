package integrations

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrInvalidSignature is returned when payment signature does not match
var ErrInvalidSignature = errors.New("invalid payment signature")

// Order is an order created at payment gateway
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// PaymentGateway create order and verify checkout signature
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string, receipt string) (Order, error)
	VerifySignature(orderID string, paymentID string, signature string) error
	KeyID() string
}

// Razorpay is client of Razorpay orders API
type Razorpay struct {
	apiURL    string
	keyID     string
	keySecret string
}

// NewRazorpay create client, disabled when key is empty
func NewRazorpay(apiURL string, keyID string, keySecret string) *Razorpay {
	return &Razorpay{apiURL: apiURL, keyID: keyID, keySecret: keySecret}
}

func (r *Razorpay) enabled() bool {
	return r != nil && r.apiURL != "" && r.keyID != "" && r.keySecret != ""
}

// KeyID is public key handed to checkout widget
func (r *Razorpay) KeyID() string {
	if r == nil {
		return ""
	}
	return r.keyID
}

// CreateOrder implements PaymentGateway
func (r *Razorpay) CreateOrder(ctx context.Context, amount int64, currency string, receipt string) (Order, error) {
	if !r.enabled() {
		return Order{}, ErrDisabled
	}
	if amount <= 0 {
		return Order{}, errors.New("amount must be positive")
	}

	var order Order
	resp, err := newClient(r.apiURL, 15*time.Second).R().
		SetContext(ctx).
		SetBasicAuth(r.keyID, r.keySecret).
		SetBody(map[string]interface{}{
			"amount":   amount,
			"currency": currency,
			"receipt":  receipt,
		}).
		SetResult(&order).
		ForceContentType(jsonContentType).
		Post("/orders")
	if err := checkResponse("payment", resp, err); err != nil {
		return Order{}, err
	}
	if order.ID == "" {
		return Order{}, errors.New("payment gateway returned order without id")
	}
	return order, nil
}

// VerifySignature implements PaymentGateway
func (r *Razorpay) VerifySignature(orderID string, paymentID string, signature string) error {
	if !r.enabled() {
		return ErrDisabled
	}
	expected := Sign(r.keySecret, orderID+"|"+paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign returns hex HMAC-SHA256 of payload
func Sign(secret string, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

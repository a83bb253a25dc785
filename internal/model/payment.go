package model

import (
	"time"

	"github.com/google/uuid"
)

// Payment status
const (
	PaymentCreated = "created"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// Payment is an order created with payment gateway
type Payment struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;->" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Plan      string    `gorm:"type:text;not null" json:"plan"`
	OrderID   string    `gorm:"type:text;not null;uniqueIndex" json:"order_id"`
	PaymentID string    `gorm:"type:text" json:"payment_id"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"type:text;not null" json:"currency"`
	Status    string    `gorm:"type:text;not null;default:'created'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Visitor is one visit coming from a referral link
type Visitor struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReferralCode string     `gorm:"type:text;not null;index" json:"referral_code"`
	VisitorID    string     `gorm:"type:text;not null;index" json:"visitor_id"`
	VisitedAt    time.Time  `gorm:"autoCreateTime" json:"visited_at"`
	Country      string     `gorm:"type:text" json:"country"`
	City         string     `gorm:"type:text" json:"city"`
	SignupAt     *time.Time `json:"signup_at"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Amount       int64      `gorm:"not null;default:0" json:"amount"`
}

// ReferralStats is summary of visitor coming from one referral code
type ReferralStats struct {
	Code        string `json:"code"`
	Visitors    int64  `json:"visitors"`
	Signups     int64  `json:"signups"`
	TotalAmount int64  `json:"total_amount"`
}

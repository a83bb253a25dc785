package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role of each user
const (
	RoleAdmin     = "admin"
	RoleHR        = "hr"
	RoleCandidate = "candidate"
)

// Type of punishment
const (
	BanPunishment     = "ban"
	SuspendPunishment = "suspend"
)

// EditableUserInfo is part of user that owner can edit
type EditableUserInfo struct {
	Name *string `json:"name"`
	Tel  *string `json:"tel"`
}

// User is the base account shared by every role.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username string    `gorm:"type:text;index" json:"username"`
	Password string    `json:"-"`
	GoogleID string    `gorm:"type:text;index" json:"-"`
	Email    *string   `gorm:"type:text" json:"email"`
	EditableUserInfo
	ProfilePicture string            `json:"profile_picture"`
	Role           string            `gorm:"type:text;not null" json:"role"`
	ReferralCode   *string           `gorm:"type:text;uniqueIndex" json:"referral_code,omitempty"`
	PunishmentID   *uint             `json:"-"`
	Punishment     *PunishmentStruct `gorm:"foreignKey:PunishmentID;constraint:OnDelete:SET NULL" json:"punishment,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"-"`
}

// BeforeCreate assign new uuid to user when it doesn't have one
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// VerifiedEmail return email of user only when it was confirmed by google login,
// empty otherwise. Emails typed in at registration or profile edit are never verified.
func (u *User) VerifiedEmail() string {
	if u.GoogleID == "" || u.Email == nil {
		return ""
	}
	return strings.TrimSpace(*u.Email)
}

// ActivePunishment return punishment of user if it is still in effect at given time
func (u *User) ActivePunishment(now time.Time) *PunishmentStruct {
	if u.Punishment == nil {
		return nil
	}
	if u.Punishment.PunishEnd != nil && now.After(*u.Punishment.PunishEnd) {
		return nil
	}
	return u.Punishment
}

// PunishmentStruct is punishment record that admin give to user
type PunishmentStruct struct {
	ID             uint       `gorm:"primaryKey" json:"-"`
	PunishmentType string     `gorm:"type:text" json:"type" binding:"required"`
	PunishAt       *time.Time `json:"at"`
	PunishEnd      *time.Time `json:"end"`
}

// GoogleUserInfo is user information retrieved from google userinfo endpoint
type GoogleUserInfo struct {
	GID            string `json:"sub"`
	Email          string `json:"email"`
	FirstName      string `json:"given_name"`
	LastName       string `json:"family_name"`
	ProfilePicture string `json:"picture"`
}

// UserModel is a role profile that can be created from google login
type UserModel interface {
	FillGoogleInfo(info GoogleUserInfo)
	GetID() uuid.UUID
	GetLoginResponse(accessToken string) interface{}
}

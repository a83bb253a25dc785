package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Company verification status
const (
	StatusPending    = "Pending"
	StatusVerified   = "Verified"
	StatusUnverified = "Unverified"
)

// EditableHRInfo is part of HR profile that HR can edit
type EditableHRInfo struct {
	FullName string `gorm:"type:text" json:"full_name"`
	Position string `gorm:"type:text" json:"position"`
}

// HRUser is recruiter profile, each HR own at most one company and one usage counter set
type HRUser struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	User   User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"user"`
	EditableHRInfo
	Company *Company      `gorm:"foreignKey:HRUserID;references:UserID;constraint:OnDelete:CASCADE" json:"company,omitempty"`
	Usage   *UsageMetrics `gorm:"foreignKey:HRUserID;references:UserID;constraint:OnDelete:CASCADE" json:"usage,omitempty"`
}

// HRResponse is login or register response of HR
type HRResponse struct {
	User        HRUser `json:"user"`
	AccessToken string `json:"access_token"`
}

// FillGoogleInfo fill HR profile with information from google, new HR start with free plan
func (h *HRUser) FillGoogleInfo(info GoogleUserInfo) {
	name := strings.TrimSpace(info.FirstName + " " + info.LastName)
	email := info.Email
	h.User.GoogleID = info.GID
	h.User.Email = &email
	h.User.Name = &name
	h.User.ProfilePicture = info.ProfilePicture
	h.User.Role = RoleHR
	h.FullName = name
	if h.Usage == nil {
		usage := NewUsageMetrics(PlanFree, time.Now())
		h.Usage = &usage
	}
}

// GetID return user id of HR
func (h *HRUser) GetID() uuid.UUID {
	if h.UserID == uuid.Nil {
		return h.User.ID
	}
	return h.UserID
}

// GetLoginResponse wrap HR profile with access token
func (h *HRUser) GetLoginResponse(accessToken string) interface{} {
	return HRResponse{
		User:        *h,
		AccessToken: accessToken,
	}
}

// EditableCompanyInfo is part of company that HR can edit
type EditableCompanyInfo struct {
	Name     string  `gorm:"type:text" json:"name"`
	Overview string  `gorm:"type:text" json:"overview"`
	Industry string  `gorm:"type:text" json:"industry"`
	Size     *string `gorm:"type:text" json:"size"`
	Website  string  `gorm:"type:text" json:"website"`
}

// Company is the tenant that HR recruit for
type Company struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	HRUserID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"hr_user_id"`
	EditableCompanyInfo
	VerifiedStatus string    `gorm:"type:text;default:'Pending'" json:"verified_status"`
	CreatedAt      time.Time `json:"created_at"`
}

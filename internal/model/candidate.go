package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EditableCandidateInfo is part of candidate profile that candidate can edit
type EditableCandidateInfo struct {
	FullName        string         `gorm:"type:text" json:"full_name"`
	Email           string         `gorm:"type:text;index" json:"email"`
	Phone           string         `gorm:"type:text" json:"phone"`
	Skills          pq.StringArray `gorm:"type:text[]" json:"skills"`
	Experience      string         `gorm:"type:text" json:"experience"`
	ExperienceYears int            `json:"experience_years"`
	Education       string         `gorm:"type:text" json:"education"`
	JobTitle        string         `gorm:"type:text" json:"job_title"`
}

// CandidateProfile is gorm model of job seeker in talent pool
type CandidateProfile struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	User   User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"user"`
	EditableCandidateInfo
	ResumeID   *int      `json:"-"`
	Resume     *File     `gorm:"foreignKey:ResumeID;constraint:OnDelete:SET NULL" json:"-"`
	ResumeURL  string    `gorm:"type:text" json:"resume_url"`
	Score      int       `json:"score"`
	ParsedText string    `gorm:"type:text" json:"parsed_text"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CandidateResponse is login or register response of candidate
type CandidateResponse struct {
	User        CandidateProfile `json:"user"`
	AccessToken string           `json:"access_token"`
}

// CandidateSummary is the part of candidate that HR can see before spending quota
type CandidateSummary struct {
	ID              uuid.UUID `json:"id"`
	FullName        string    `json:"full_name"`
	JobTitle        string    `json:"job_title"`
	Skills          []string  `json:"skills"`
	ExperienceYears int       `json:"experience_years"`
	Education       string    `json:"education"`
	Score           int       `json:"score"`
	MatchScore      float64   `json:"match_score"`
}

// FillGoogleInfo fill candidate profile with information from google
func (p *CandidateProfile) FillGoogleInfo(info GoogleUserInfo) {
	name := strings.TrimSpace(info.FirstName + " " + info.LastName)
	email := info.Email
	p.User.GoogleID = info.GID
	p.User.Email = &email
	p.User.Name = &name
	p.User.ProfilePicture = info.ProfilePicture
	p.User.Role = RoleCandidate
	p.FullName = name
	p.Email = info.Email
}

// GetID return user id of candidate
func (p *CandidateProfile) GetID() uuid.UUID {
	if p.UserID == uuid.Nil {
		return p.User.ID
	}
	return p.UserID
}

// GetLoginResponse wrap candidate profile with access token
func (p *CandidateProfile) GetLoginResponse(accessToken string) interface{} {
	return CandidateResponse{
		User:        *p,
		AccessToken: accessToken,
	}
}

// Summary strip contact information and resume out of candidate profile
func (p *CandidateProfile) Summary(matchScore float64) CandidateSummary {
	skills := []string(p.Skills)
	if skills == nil {
		skills = []string{}
	}
	return CandidateSummary{
		ID:              p.UserID,
		FullName:        p.FullName,
		JobTitle:        p.JobTitle,
		Skills:          skills,
		ExperienceYears: p.ExperienceYears,
		Education:       p.Education,
		Score:           p.Score,
		MatchScore:      matchScore,
	}
}

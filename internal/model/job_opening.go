package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// JobCriteria is structured information of a job, either written by HR or extracted by AI
type JobCriteria struct {
	Title          string         `gorm:"type:text" json:"title"`
	Skills         pq.StringArray `gorm:"type:text[]" json:"skills"`
	MinExperience  int            `json:"min_experience"`
	Education      string         `gorm:"type:text" json:"education"`
	Location       string         `gorm:"type:text" json:"location"`
	EmploymentType string         `gorm:"type:text" json:"employment_type"`
	Summary        string         `gorm:"type:text" json:"summary"`
}

// JobOpening is gorm model of an opening that HR look for candidate
type JobOpening struct {
	ID          uint      `gorm:"primaryKey;autoIncrement;->" json:"id"`
	HRUserID    uuid.UUID `gorm:"type:uuid;not null;index;<-:create" json:"hr_user_id"`
	Description string    `gorm:"type:text" json:"description"`
	JobCriteria
	CreatedAt time.Time `json:"created_at"`
}

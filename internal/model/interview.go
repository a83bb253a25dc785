package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Interview status
const (
	InterviewScheduled = "scheduled"
	InterviewCompleted = "completed"
)

// TranscriptEntry is one line spoken during interview
type TranscriptEntry struct {
	Speaker string    `json:"speaker" binding:"required"`
	Text    string    `json:"text" binding:"required"`
	At      time.Time `json:"at"`
}

// Feedback is HR evaluation of an interview
type Feedback struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	OverallScore int      `json:"overall_score"`
}

// Interview is gorm model of interview between HR and a participant
type Interview struct {
	ID               uint                                 `gorm:"primaryKey;autoIncrement;->" json:"id"`
	HRUserID         uuid.UUID                            `gorm:"type:uuid;not null;index;<-:create" json:"hr_user_id"`
	CandidateID      *uuid.UUID                           `gorm:"type:uuid;index" json:"candidate_id"`
	ParticipantName  string                               `gorm:"type:text;not null" json:"participant_name"`
	ParticipantEmail string                               `gorm:"type:text;not null" json:"participant_email"`
	Position         string                               `gorm:"type:text" json:"position"`
	ScheduledAt      *time.Time                           `json:"scheduled_at"`
	Status           string                               `gorm:"type:text;default:'scheduled'" json:"status"`
	Transcript       datatypes.JSONSlice[TranscriptEntry] `json:"transcript"`
	Feedback         datatypes.JSONType[Feedback]         `json:"feedback"`
	RecordingURL     string                               `gorm:"type:text" json:"recording_url"`
	CreatedAt        time.Time                            `json:"created_at"`
	UpdatedAt        time.Time                            `json:"updated_at"`
}

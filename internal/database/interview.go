package database

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"talentpool-backend/internal/model"
)

// LinkInterviews attach interviews sent to email but not yet linked to any account to
// candidateID. Only call it with an email confirmed by google login.
func LinkInterviews(db *gorm.DB, candidateID uuid.UUID, email string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, nil
	}
	res := db.Model(&model.Interview{}).
		Where("candidate_id IS NULL AND lower(participant_email) = lower(?)", email).
		Update("candidate_id", candidateID)
	return res.RowsAffected, res.Error
}

package database

import (
	"time"

	"gorm.io/gorm"

	"talentpool-backend/internal/model"
)

// LiftExpiredPunishment remove punishment of user whose end time already passed.
// It returns true when a punishment was lifted. Permanent punishment is never lifted.
func LiftExpiredPunishment(db *gorm.DB, user *model.User, now time.Time) (bool, error) {
	if user.Punishment == nil || user.ActivePunishment(now) != nil {
		return false, nil
	}

	punishmentID := user.Punishment.ID
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.User{}).Where("id = ?", user.ID).Update("punishment_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PunishmentStruct{}, punishmentID).Error
	})
	if err != nil {
		return false, err
	}

	user.Punishment = nil
	user.PunishmentID = nil
	return true, nil
}

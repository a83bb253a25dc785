// Package referral tracks visitors arriving from user referral links and what they bring.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"talentpool-backend/internal/database"
	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/utilities"
)

// CodeLength is length of generated referral code
const CodeLength = 8

// ErrUnknownCode is returned when referral code does not belong to any user
var ErrUnknownCode = errors.New("referral code not found")

// Service record visits, signups and payments of referred users
type Service struct {
	DB  *gorm.DB
	Geo integrations.GeoLocator
	Log *logrus.Entry
}

// NewService create referral service, geo may be nil
func NewService(db *gorm.DB, geo integrations.GeoLocator, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.WithField("component", "referral")
	}
	return &Service{DB: db, Geo: geo, Log: log}
}

// EnsureCode assign referral code to user that does not have one yet and return it
func (s *Service) EnsureCode(ctx context.Context, user *model.User) (string, error) {
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := utilities.RandomCode(CodeLength)
		if err != nil {
			return "", err
		}

		res := s.DB.WithContext(ctx).
			Model(&model.User{}).
			Where("id = ? AND referral_code IS NULL", user.ID).
			Update("referral_code", code)
		if res.Error != nil {
			if database.IsUniqueViolation(res.Error) {
				continue
			}
			return "", fmt.Errorf("failed to assign referral code: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			// assigned by concurrent request
			var current model.User
			if err := s.DB.WithContext(ctx).Select("referral_code").First(&current, "id = ?", user.ID).Error; err != nil {
				return "", err
			}
			if current.ReferralCode == nil {
				return "", gorm.ErrRecordNotFound
			}
			code = *current.ReferralCode
		}
		user.ReferralCode = &code
		return code, nil
	}
	return "", errors.New("failed to generate unique referral code")
}

// Stats summarise visitors of one code
func (s *Service) Stats(ctx context.Context, code string) (model.ReferralStats, error) {
	stats := model.ReferralStats{Code: code}
	err := s.DB.WithContext(ctx).
		Model(&model.Visitor{}).
		Select("COUNT(DISTINCT visitor_id) AS visitors, COUNT(signup_at) AS signups, COALESCE(SUM(amount), 0) AS total_amount").
		Where("referral_code = ?", code).
		Row().
		Scan(&stats.Visitors, &stats.Signups, &stats.TotalAmount)
	if err != nil {
		return stats, fmt.Errorf("failed to count referral visitors: %w", err)
	}
	return stats, nil
}

// AllStats summarise every referral code that has at least one visitor
func (s *Service) AllStats(ctx context.Context) ([]model.ReferralStats, error) {
	var stats []model.ReferralStats
	err := s.DB.WithContext(ctx).
		Model(&model.Visitor{}).
		Select("referral_code AS code, COUNT(DISTINCT visitor_id) AS visitors, COUNT(signup_at) AS signups, COALESCE(SUM(amount), 0) AS total_amount").
		Group("referral_code").
		Order("signups DESC, visitors DESC, code").
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list referral stats: %w", err)
	}
	return stats, nil
}

func (s *Service) codeExists(db *gorm.DB, code string) (bool, error) {
	var count int64
	if err := db.Model(&model.User{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordVisit store a visit of referral link. Empty visitorID get a new id.
func (s *Service) RecordVisit(ctx context.Context, code string, visitorID string, ip string) (model.Visitor, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	db := s.DB.WithContext(ctx)

	exists, err := s.codeExists(db, code)
	if err != nil {
		return model.Visitor{}, err
	}
	if !exists {
		return model.Visitor{}, ErrUnknownCode
	}

	if strings.TrimSpace(visitorID) == "" {
		visitorID = uuid.NewString()
	}

	visitor := model.Visitor{ReferralCode: code, VisitorID: visitorID}
	if s.Geo != nil && ip != "" {
		loc, err := s.Geo.Locate(ctx, ip)
		if err != nil {
			s.Log.WithError(err).WithField("ip", ip).Debug("geolocation lookup failed")
		} else {
			visitor.Country = loc.Country
			visitor.City = loc.City
		}
	}

	if err := db.Create(&visitor).Error; err != nil {
		return model.Visitor{}, fmt.Errorf("failed to record visit: %w", err)
	}
	return visitor, nil
}

// MarkSignup bind newly registered user to the visitor that came from code.
// It runs on tx so registration and signup are committed together.
func (s *Service) MarkSignup(tx *gorm.DB, code string, visitorID string, userID uuid.UUID) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	exists, err := s.codeExists(tx, code)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUnknownCode
	}

	now := time.Now()
	if visitorID != "" {
		res := tx.Model(&model.Visitor{}).
			Where("id = (?)", tx.Model(&model.Visitor{}).
				Select("id").
				Where("referral_code = ? AND visitor_id = ? AND user_id IS NULL", code, visitorID).
				Order("visited_at DESC").
				Limit(1)).
			Updates(map[string]interface{}{"signup_at": now, "user_id": userID})
		if res.Error != nil {
			return fmt.Errorf("failed to mark referral signup: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
	} else {
		visitorID = uuid.NewString()
	}

	// signed up without recorded visit
	visitor := model.Visitor{
		ReferralCode: code,
		VisitorID:    visitorID,
		SignupAt:     &now,
		UserID:       &userID,
	}
	if err := tx.Create(&visitor).Error; err != nil {
		return fmt.Errorf("failed to mark referral signup: %w", err)
	}
	return nil
}

// CreditPayment add amount paid by referred user to its visitor record.
// User that was not referred is ignored.
func (s *Service) CreditPayment(tx *gorm.DB, userID uuid.UUID, amount int64) error {
	var visitor model.Visitor
	err := tx.Where("user_id = ?", userID).Order("signup_at DESC").First(&visitor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return tx.Model(&visitor).Update("amount", gorm.Expr("amount + ?", amount)).Error
}

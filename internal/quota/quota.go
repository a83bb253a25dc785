// Package quota meters candidate detail views against the quota of each HR account.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"talentpool-backend/internal/events"
	"talentpool-backend/internal/model"
)

var (
	// ErrQuotaExhausted is returned when HR has no view left in current period
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrNoUsage is returned when HR has no usage counter set
	ErrNoUsage = errors.New("usage metrics not found")
	// ErrInvalidQuota is returned for negative quota
	ErrInvalidQuota = errors.New("quota must not be negative")
	// ErrUnknownPlan is returned when plan name is not in model.Plans
	ErrUnknownPlan = errors.New("unknown plan")
)

// ViewResult tell whether a view consumed quota and the counters after it
type ViewResult struct {
	Charged bool               `json:"charged"`
	Usage   model.UsageMetrics `json:"usage"`
}

// Service update usage counters and publish the change to the broker
type Service struct {
	DB     *gorm.DB
	Broker events.Broker
	Log    *logrus.Entry
	Now    func() time.Time
}

// NewService create quota service, broker may be nil
func NewService(db *gorm.DB, broker events.Broker, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.WithField("component", "quota")
	}
	return &Service{DB: db, Broker: broker, Log: log, Now: time.Now}
}

// WithTx return copy of service that run inside tx
func (s *Service) WithTx(tx *gorm.DB) *Service {
	cp := *s
	cp.DB = tx
	return &cp
}

func planQuota(plan string) int {
	p, ok := model.PlanByName(plan)
	if !ok {
		p, _ = model.PlanByName(model.PlanFree)
	}
	return p.Quota
}

// Snapshot return current counters of HR, rolling over to a new period when needed
func (s *Service) Snapshot(ctx context.Context, hrID uuid.UUID) (model.UsageMetrics, error) {
	var usage model.UsageMetrics
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadUsage(tx, hrID, &usage); err != nil {
			return err
		}
		return s.rollover(tx, &usage)
	})
	return usage, err
}

func loadUsage(tx *gorm.DB, hrID uuid.UUID, usage *model.UsageMetrics) error {
	err := tx.First(usage, "hr_user_id = ?", hrID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoUsage
	}
	if err != nil {
		return fmt.Errorf("failed to load usage: %w", err)
	}
	return nil
}

// rollover reset counters lazily when period of usage is already over
func (s *Service) rollover(tx *gorm.DB, usage *model.UsageMetrics) error {
	start := model.PeriodStart(s.Now())
	if !usage.PeriodStart.Before(start) {
		return nil
	}
	quota := planQuota(usage.Plan)
	err := tx.Model(&model.UsageMetrics{}).
		Where("hr_user_id = ? AND period_start < ?", usage.HRUserID, start).
		Updates(map[string]interface{}{
			"quota_left":        quota,
			"candidates_viewed": 0,
			"matches_found":     0,
			"period_start":      start,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to roll over usage: %w", err)
	}
	return tx.First(usage, "hr_user_id = ?", usage.HRUserID).Error
}

// ChargeView spend one quota for HR viewing candidate. Viewing the same candidate again in the
// same period is free. The insert of the view and the decrement commit together or not at all.
func (s *Service) ChargeView(ctx context.Context, hrID uuid.UUID, candidateID uuid.UUID) (ViewResult, error) {
	var result ViewResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var usage model.UsageMetrics
		if err := loadUsage(tx, hrID, &usage); err != nil {
			return err
		}
		if err := s.rollover(tx, &usage); err != nil {
			return err
		}

		view := model.CandidateView{
			HRUserID:    hrID,
			CandidateID: candidateID,
			PeriodStart: usage.PeriodStart,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&view)
		if res.Error != nil {
			return fmt.Errorf("failed to record view: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			result.Usage = usage
			return nil
		}

		res = tx.Model(&model.UsageMetrics{}).
			Where("hr_user_id = ? AND quota_left > 0", hrID).
			Updates(map[string]interface{}{
				"quota_left":        gorm.Expr("quota_left - 1"),
				"candidates_viewed": gorm.Expr("candidates_viewed + 1"),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to decrement quota: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrQuotaExhausted
		}

		result.Charged = true
		return tx.First(&result.Usage, "hr_user_id = ?", hrID).Error
	})
	if err != nil {
		return ViewResult{}, err
	}
	if result.Charged {
		s.publish(ctx, events.UsageViewed, result.Usage)
	}
	return result, nil
}

// HasViewed tell whether HR already paid for candidate in current period
func (s *Service) HasViewed(ctx context.Context, hrID uuid.UUID, candidateID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&model.CandidateView{}).
		Where("hr_user_id = ? AND candidate_id = ? AND period_start = ?", hrID, candidateID, model.PeriodStart(s.Now())).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check view: %w", err)
	}
	return count > 0, nil
}

// RecordMatches add n to matches found of HR
func (s *Service) RecordMatches(ctx context.Context, hrID uuid.UUID, n int) error {
	if n <= 0 {
		return nil
	}
	res := s.DB.WithContext(ctx).
		Model(&model.UsageMetrics{}).
		Where("hr_user_id = ?", hrID).
		Update("matches_found", gorm.Expr("matches_found + ?", n))
	if res.Error != nil {
		return fmt.Errorf("failed to record matches: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoUsage
	}
	s.publishCurrent(ctx, events.UsageMatched, hrID)
	return nil
}

// Credit add quota of plan to HR and switch HR to that plan
func (s *Service) Credit(ctx context.Context, hrID uuid.UUID, planName string) (model.UsageMetrics, error) {
	var usage model.UsageMetrics
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		usage, err = s.CreditTx(tx, hrID, planName)
		return err
	})
	if err != nil {
		return model.UsageMetrics{}, err
	}
	s.PublishCredit(ctx, usage)
	return usage, nil
}

// CreditTx is Credit running on caller transaction. No event is published,
// call PublishCredit once tx is committed.
func (s *Service) CreditTx(tx *gorm.DB, hrID uuid.UUID, planName string) (model.UsageMetrics, error) {
	plan, ok := model.PlanByName(planName)
	if !ok {
		return model.UsageMetrics{}, ErrUnknownPlan
	}

	res := tx.Model(&model.UsageMetrics{}).
		Where("hr_user_id = ?", hrID).
		Updates(map[string]interface{}{
			"quota_left": gorm.Expr("quota_left + ?", plan.Quota),
			"plan":       plan.Name,
		})
	if res.Error != nil {
		return model.UsageMetrics{}, fmt.Errorf("failed to credit quota: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		fresh := model.NewUsageMetrics(plan.Name, s.Now())
		fresh.HRUserID = hrID
		if err := tx.Create(&fresh).Error; err != nil {
			return model.UsageMetrics{}, fmt.Errorf("failed to create usage: %w", err)
		}
	}

	var usage model.UsageMetrics
	if err := tx.First(&usage, "hr_user_id = ?", hrID).Error; err != nil {
		return model.UsageMetrics{}, err
	}
	return usage, nil
}

// PublishCredit announce usage after credit
func (s *Service) PublishCredit(ctx context.Context, usage model.UsageMetrics) {
	s.publish(ctx, events.UsageCredit, usage)
}

// SetQuota overwrite quota left of HR
func (s *Service) SetQuota(ctx context.Context, hrID uuid.UUID, quota int) (model.UsageMetrics, error) {
	if quota < 0 {
		return model.UsageMetrics{}, ErrInvalidQuota
	}
	res := s.DB.WithContext(ctx).
		Model(&model.UsageMetrics{}).
		Where("hr_user_id = ?", hrID).
		Update("quota_left", quota)
	if res.Error != nil {
		return model.UsageMetrics{}, fmt.Errorf("failed to set quota: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.UsageMetrics{}, ErrNoUsage
	}

	var usage model.UsageMetrics
	if err := s.DB.WithContext(ctx).First(&usage, "hr_user_id = ?", hrID).Error; err != nil {
		return model.UsageMetrics{}, err
	}
	s.publish(ctx, events.UsageSet, usage)
	return usage, nil
}

// ResetPeriod start new billing period for every counter set that belong to an older period.
// Periods are calendar months, a second call within the same month reset nothing.
// It return number of HR that were reset.
func (s *Service) ResetPeriod(ctx context.Context, now time.Time) (int, error) {
	start := model.PeriodStart(now)

	var stale []model.UsageMetrics
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("period_start < ?", start).Find(&stale).Error; err != nil {
			return fmt.Errorf("failed to list usage: %w", err)
		}
		for _, p := range model.Plans {
			err := tx.Model(&model.UsageMetrics{}).
				Where("period_start < ? AND plan = ?", start, p.Name).
				Updates(map[string]interface{}{
					"quota_left":        p.Quota,
					"candidates_viewed": 0,
					"matches_found":     0,
					"period_start":      start,
				}).Error
			if err != nil {
				return fmt.Errorf("failed to reset %s usage: %w", p.Name, err)
			}
		}
		// unknown plan fall back to free
		err := tx.Model(&model.UsageMetrics{}).
			Where("period_start < ?", start).
			Updates(map[string]interface{}{
				"plan":              model.PlanFree,
				"quota_left":        planQuota(model.PlanFree),
				"candidates_viewed": 0,
				"matches_found":     0,
				"period_start":      start,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to reset usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, u := range stale {
		s.publishCurrent(ctx, events.UsageReset, u.HRUserID)
	}
	return len(stale), nil
}

func (s *Service) publishCurrent(ctx context.Context, typ string, hrID uuid.UUID) {
	if s.Broker == nil {
		return
	}
	var usage model.UsageMetrics
	if err := s.DB.WithContext(ctx).First(&usage, "hr_user_id = ?", hrID).Error; err != nil {
		s.Log.WithError(err).WithField("hr_user_id", hrID).Warn("failed to load usage for event")
		return
	}
	s.publish(ctx, typ, usage)
}

func (s *Service) publish(ctx context.Context, typ string, usage model.UsageMetrics) {
	if s.Broker == nil {
		return
	}
	ev := events.UsageEvent{Type: typ, HRUserID: usage.HRUserID, Usage: usage, At: s.Now()}
	if err := s.Broker.Publish(ctx, ev); err != nil {
		s.Log.WithError(err).WithField("type", typ).Warn("failed to publish usage event")
	}
}

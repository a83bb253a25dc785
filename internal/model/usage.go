package model

import (
	"time"

	"github.com/google/uuid"
)

// Name of each subscription plan
const (
	PlanFree    = "free"
	PlanStarter = "starter"
	PlanPro     = "pro"
)

// Plan is a subscription plan that HR can buy, Price is in minor currency unit
type Plan struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Price    int64    `json:"price"`
	Quota    int      `json:"quota"`
	Features []string `json:"features"`
}

// Plans is list of every plan ordered by price
var Plans = []Plan{
	{
		Name:     PlanFree,
		Title:    "Free",
		Price:    0,
		Quota:    10,
		Features: []string{"10 candidate profiles per month", "Talent pool search", "Interview notes"},
	},
	{
		Name:     PlanStarter,
		Title:    "Starter",
		Price:    49900,
		Quota:    100,
		Features: []string{"100 candidate profiles", "AI job description extraction", "Email and WhatsApp invites"},
	},
	{
		Name:     PlanPro,
		Title:    "Pro",
		Price:    149900,
		Quota:    500,
		Features: []string{"500 candidate profiles", "AI interview feedback", "Priority support"},
	},
}

// PlanByName look up plan by its name
func PlanByName(name string) (Plan, bool) {
	for _, p := range Plans {
		if p.Name == name {
			return p, true
		}
	}
	return Plan{}, false
}

// UsageMetrics is counter set of one HR user for the current billing period
type UsageMetrics struct {
	HRUserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"hr_user_id"`
	Plan             string    `gorm:"type:text;not null;default:'free'" json:"plan"`
	CandidatesViewed int       `gorm:"not null;default:0" json:"candidates_viewed"`
	MatchesFound     int       `gorm:"not null;default:0" json:"matches_found"`
	QuotaLeft        int       `gorm:"not null;default:0;check:quota_left >= 0" json:"quota_left"`
	PeriodStart      time.Time `gorm:"not null" json:"period_start"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewUsageMetrics build fresh counter set for given plan starting at the period of now
func NewUsageMetrics(plan string, now time.Time) UsageMetrics {
	p, ok := PlanByName(plan)
	if !ok {
		p, _ = PlanByName(PlanFree)
	}
	return UsageMetrics{
		Plan:        p.Name,
		QuotaLeft:   p.Quota,
		PeriodStart: PeriodStart(now),
	}
}

// PeriodStart return start of billing period (first day of month, UTC) that t belong to
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CandidateView record that HR already paid to see a candidate during a period
type CandidateView struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	HRUserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_candidate_view" json:"hr_user_id"`
	CandidateID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_candidate_view" json:"candidate_id"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_candidate_view" json:"period_start"`
	ViewedAt    time.Time `gorm:"autoCreateTime" json:"viewed_at"`
}

package matching

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"talentpool-backend/internal/model"
)

// Prefilter narrow candidate query with conditions that can never reject a candidate
// Match would accept: minimum experience and the presence of skills. Candidates under
// an active ban are never searchable.
func Prefilter(db *gorm.DB, crit Criteria, now time.Time) *gorm.DB {
	q := db.Model(&model.CandidateProfile{}).
		Where(`NOT EXISTS (
			SELECT 1 FROM users u JOIN punishment_structs p ON p.id = u.punishment_id
			WHERE u.id = candidate_profiles.user_id AND p.punishment_type = ?
			AND (p.punish_end IS NULL OR p.punish_end > ?))`, model.BanPunishment, now)
	if crit.MinExperience > 0 {
		q = q.Where("experience_years >= ?", crit.MinExperience)
	}
	if len(SearchableSkills(crit.Skills)) > 0 {
		q = q.Where("cardinality(skills) > 0")
	}
	return q
}

// Search run Prefilter against database and rank what is left in memory
func Search(ctx context.Context, db *gorm.DB, crit Criteria) ([]Result, error) {
	var candidates []model.CandidateProfile
	if err := Prefilter(db.WithContext(ctx), crit, time.Now()).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	return Filter(candidates, crit), nil
}

// Summaries turn results into what HR may see before paying quota
func Summaries(results []Result) []model.CandidateSummary {
	out := make([]model.CandidateSummary, 0, len(results))
	for _, r := range results {
		out = append(out, r.Candidate.Summary(r.Score))
	}
	return out
}

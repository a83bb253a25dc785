package matching

import (
	"strings"
	"unicode/utf8"

	"talentpool-backend/internal/model"
)

// Resume text longer than this does not raise the score further
const parsedTextFull = 500

// ProfileScore rate completeness of candidate profile from 0 to 100.
//
//	name, email, phone, experience, education, job title, resume  10 each
//	skills                                                         4 each, up to 5
//	parsed resume text                                             up to 10, by length
func ProfileScore(p model.CandidateProfile) int {
	score := 0
	for _, v := range []string{p.FullName, p.Email, p.Phone, p.Experience, p.Education, p.JobTitle, p.ResumeURL} {
		if strings.TrimSpace(v) != "" {
			score += 10
		}
	}

	skills := 0
	for _, s := range p.Skills {
		if strings.TrimSpace(s) != "" {
			skills++
		}
	}
	score += min(skills, 5) * 4

	textLen := utf8.RuneCountInString(strings.TrimSpace(p.ParsedText))
	score += min(textLen, parsedTextFull) * 10 / parsedTextFull

	return min(score, 100)
}

package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"talentpool-backend/internal/model"
)

// ErrBadAnswer is returned when generator answer cannot be parsed
var ErrBadAnswer = errors.New("AI answer could not be parsed")

const extractJobPrompt = `Extract structured hiring criteria from this job description.

Job description:
"""
%s
"""

Return JSON with exactly these keys:
{
  "title": "job title",
  "skills": ["skill", "..."],
  "min_experience": 0,
  "education": "minimum education or empty string",
  "location": "location or empty string",
  "employment_type": "full-time|part-time|contract|internship or empty string",
  "summary": "one sentence summary"
}`

const feedbackPrompt = `You are reviewing a job interview for the position "%s".
Read the transcript and draft feedback for the candidate.

Transcript:
%s

Return JSON with exactly these keys:
{
  "strengths": ["..."],
  "improvements": ["..."],
  "overall_score": 0
}
overall_score is an integer from 0 to 10.`

// ExtractJob turn free text job description into JobCriteria
func ExtractJob(ctx context.Context, gen TextGenerator, description string) (model.JobCriteria, error) {
	if gen == nil {
		return model.JobCriteria{}, ErrDisabled
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return model.JobCriteria{}, errors.New("description is required")
	}

	answer, err := gen.GenerateJSON(ctx, fmt.Sprintf(extractJobPrompt, description))
	if err != nil {
		return model.JobCriteria{}, err
	}
	return parseJob(answer)
}

func parseJob(answer string) (model.JobCriteria, error) {
	var raw struct {
		Title          string      `json:"title"`
		Skills         []string    `json:"skills"`
		MinExperience  json.Number `json:"min_experience"`
		Education      string      `json:"education"`
		Location       string      `json:"location"`
		EmploymentType string      `json:"employment_type"`
		Summary        string      `json:"summary"`
	}
	dec := json.NewDecoder(strings.NewReader(cleanJSON(answer)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return model.JobCriteria{}, fmt.Errorf("%w: %v", ErrBadAnswer, err)
	}

	minExp := 0
	if raw.MinExperience != "" {
		f, err := raw.MinExperience.Float64()
		if err != nil {
			return model.JobCriteria{}, fmt.Errorf("%w: min_experience: %v", ErrBadAnswer, err)
		}
		if f > 0 {
			minExp = int(f)
		}
	}

	skills := make([]string, 0, len(raw.Skills))
	seen := make(map[string]bool)
	for _, s := range raw.Skills {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		skills = append(skills, s)
	}

	return model.JobCriteria{
		Title:          strings.TrimSpace(raw.Title),
		Skills:         skills,
		MinExperience:  minExp,
		Education:      strings.TrimSpace(raw.Education),
		Location:       strings.TrimSpace(raw.Location),
		EmploymentType: strings.TrimSpace(raw.EmploymentType),
		Summary:        strings.TrimSpace(raw.Summary),
	}, nil
}

// DraftFeedback ask generator to evaluate interview transcript
func DraftFeedback(ctx context.Context, gen TextGenerator, position string, transcript []model.TranscriptEntry) (model.Feedback, error) {
	if gen == nil {
		return model.Feedback{}, ErrDisabled
	}
	if len(transcript) == 0 {
		return model.Feedback{}, errors.New("interview has no transcript")
	}

	var sb strings.Builder
	for _, e := range transcript {
		fmt.Fprintf(&sb, "%s: %s\n", e.Speaker, e.Text)
	}

	answer, err := gen.GenerateJSON(ctx, fmt.Sprintf(feedbackPrompt, position, sb.String()))
	if err != nil {
		return model.Feedback{}, err
	}

	var fb model.Feedback
	if err := json.Unmarshal([]byte(cleanJSON(answer)), &fb); err != nil {
		return model.Feedback{}, fmt.Errorf("%w: %v", ErrBadAnswer, err)
	}
	fb.OverallScore = min(max(fb.OverallScore, 0), 10)
	if fb.Strengths == nil {
		fb.Strengths = []string{}
	}
	if fb.Improvements == nil {
		fb.Improvements = []string{}
	}
	return fb, nil
}

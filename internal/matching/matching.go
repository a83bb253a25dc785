// Package matching implements keyword and fuzzy filtering of the talent pool and the
// candidate profile completeness score.
package matching

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"talentpool-backend/internal/model"
)

// Result limit
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Ranking weights, the sum is 100
const (
	weightSkills  = 50
	weightQuery   = 25
	weightTitle   = 15
	weightProfile = 10
)

// Criteria is what HR search the talent pool with
type Criteria struct {
	Query         string
	Skills        []string
	Title         string
	Education     string
	MinExperience int
	Limit         int
}

// FromJob build criteria out of a job opening
func FromJob(job model.JobCriteria, limit int) Criteria {
	return Criteria{
		Skills:        SearchableSkills(job.Skills),
		Title:         job.Title,
		Education:     job.Education,
		MinExperience: job.MinExperience,
		Limit:         limit,
	}
}

// Result is candidate that pass every filter with its ranking score (0-100)
type Result struct {
	Candidate model.CandidateProfile
	Score     float64
}

// NormalizeLimit apply default and maximum to limit
func NormalizeLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// ParseList split comma separated query value, dropping item without any token
// ("--" or " , ") so it can not act as a skill every candidate satisfy
func ParseList(raw string) []string {
	return SearchableSkills(strings.Split(raw, ","))
}

// SearchableSkills trim skills and drop those Tokenize reduce to nothing
func SearchableSkills(skills []string) []string {
	var out []string
	for _, s := range skills {
		if s = strings.TrimSpace(s); len(Tokenize(s)) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.'
}

// Tokenize lower-case s and split it on anything that is not a letter, digit, '+', '#' or '.'.
// Trailing dots are dropped so sentence ends don't stick to words; "node.js" and "c++" survive.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return !isTokenRune(r) })
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimRight(f, ".")
		if f == "" || strings.Trim(f, "+#.") == "" {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// FuzzyMatch report whether term and token are the same word allowing small difference:
// equal, one contain the other when the shorter has at least 3 runes, or Levenshtein
// distance at most 1 for words of 4+ runes and at most 2 for words of 8+ runes.
func FuzzyMatch(term string, token string) bool {
	if term == "" || token == "" {
		return false
	}
	if term == token {
		return true
	}

	shorter := utf8.RuneCountInString(term)
	if n := utf8.RuneCountInString(token); n < shorter {
		shorter = n
	}

	if shorter >= 3 && (strings.Contains(token, term) || strings.Contains(term, token)) {
		return true
	}

	switch {
	case shorter >= 8:
		return Levenshtein(term, token) <= 2
	case shorter >= 4:
		return Levenshtein(term, token) <= 1
	default:
		return false
	}
}

// Levenshtein return edit distance between a and b counted in runes
func Levenshtein(a string, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func anyTokenMatch(term string, tokens []string) bool {
	for _, tok := range tokens {
		if FuzzyMatch(term, tok) {
			return true
		}
	}
	return false
}

// phraseMatch report whether every token of phrase fuzzy match some token of tokens
func phraseMatch(phrase []string, tokens []string) bool {
	if len(phrase) == 0 {
		return false
	}
	for _, p := range phrase {
		if !anyTokenMatch(p, tokens) {
			return false
		}
	}
	return true
}

// skillQuality return 1 for exact skill, 0.8 for fuzzy skill and 0 when no candidate skill match
func skillQuality(requested string, skills []string) float64 {
	req := Tokenize(requested)
	if len(req) == 0 {
		return 1
	}
	joinedReq := strings.Join(req, " ")

	best := 0.0
	for _, s := range skills {
		tokens := Tokenize(s)
		if strings.Join(tokens, " ") == joinedReq {
			return 1
		}
		if FuzzyMatch(joinedReq, strings.Join(tokens, " ")) || phraseMatch(req, tokens) {
			best = 0.8
		}
	}
	return best
}

type candidateTokens struct {
	title     []string
	skills    []string
	name      []string
	education []string
	exp       []string
	parsed    []string
}

func tokensOf(c model.CandidateProfile) candidateTokens {
	var skills []string
	for _, s := range c.Skills {
		skills = append(skills, Tokenize(s)...)
	}
	return candidateTokens{
		title:     Tokenize(c.JobTitle),
		skills:    skills,
		name:      Tokenize(c.FullName),
		education: Tokenize(c.Education),
		exp:       Tokenize(c.Experience),
		parsed:    Tokenize(c.ParsedText),
	}
}

// queryTermWeight return how strongly term hit the candidate: 1 in title or skills,
// 0.75 in name, education or experience, 0.5 only in resume text, 0 when missing
func (ct candidateTokens) queryTermWeight(term string) float64 {
	switch {
	case anyTokenMatch(term, ct.title), anyTokenMatch(term, ct.skills):
		return 1
	case anyTokenMatch(term, ct.name), anyTokenMatch(term, ct.education), anyTokenMatch(term, ct.exp):
		return 0.75
	case anyTokenMatch(term, ct.parsed):
		return 0.5
	default:
		return 0
	}
}

// Match evaluate one candidate against criteria. ok is false when candidate is filtered out.
func Match(c model.CandidateProfile, crit Criteria) (score float64, ok bool) {
	if c.ExperienceYears < crit.MinExperience {
		return 0, false
	}

	ct := tokensOf(c)

	titleHit := false
	if title := Tokenize(crit.Title); len(title) > 0 {
		if !phraseMatch(title, ct.title) {
			return 0, false
		}
		titleHit = true
	}

	if edu := Tokenize(crit.Education); len(edu) > 0 && !phraseMatch(edu, ct.education) {
		return 0, false
	}

	skillCoverage := 0.0
	if skills := SearchableSkills(crit.Skills); len(skills) > 0 {
		total := 0.0
		for _, s := range skills {
			q := skillQuality(s, c.Skills)
			if q == 0 {
				return 0, false
			}
			total += q
		}
		skillCoverage = total / float64(len(skills))
	}

	queryCoverage := 0.0
	if terms := Tokenize(crit.Query); len(terms) > 0 {
		total := 0.0
		for _, term := range terms {
			w := ct.queryTermWeight(term)
			if w == 0 {
				return 0, false
			}
			total += w
			if !titleHit && anyTokenMatch(term, ct.title) {
				titleHit = true
			}
		}
		queryCoverage = total / float64(len(terms))
	}

	titleScore := 0.0
	if titleHit {
		titleScore = 1
	}

	profile := float64(c.Score)
	if profile < 0 {
		profile = 0
	}
	if profile > 100 {
		profile = 100
	}

	score = weightSkills*skillCoverage +
		weightQuery*queryCoverage +
		weightTitle*titleScore +
		weightProfile*profile/100
	return math.Round(score*100) / 100, true
}

// Filter keep candidates matching criteria, ordered by score descending then name,
// and cut to the normalized limit.
func Filter(candidates []model.CandidateProfile, crit Criteria) []Result {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if score, ok := Match(c, crit); ok {
			results = append(results, Result{Candidate: c, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ni := strings.ToLower(results[i].Candidate.FullName)
		nj := strings.ToLower(results[j].Candidate.FullName)
		if ni != nj {
			return ni < nj
		}
		return results[i].Candidate.UserID.String() < results[j].Candidate.UserID.String()
	})

	if limit := NormalizeLimit(crit.Limit); len(results) > limit {
		results = results[:limit]
	}
	return results
}

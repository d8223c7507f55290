package skillmatch

import (
	"math"
	"strings"
)

const (
	pointsPerSkill    = 20
	maxScoredSkills   = 5
	impliedBonus      = 5
	impliedMinLength  = 20
	maxMissingPenalty = 10
)

// ServerScore computes the deterministic score from input facts only.
//
// With no matching skills from the model, the catalog skills present in both
// the job description and the resume stand in, and when missing skills are
// also empty the catalog skills the resume lacks fill that list. The score is
// min(5, matching)*20, plus 5 for an implied-skills narrative over 20 chars,
// minus one point per missing skill up to 10, clamped to 0-100.
func ServerScore(r *Result, in Input, cat *Catalog) (int, []CategoryCoverage) {
	var coverage []CategoryCoverage
	if cat != nil {
		catMatching, catMissing, cov := cat.Compare(in.JobDescription, in.Resume)
		coverage = cov
		if len(r.MatchingSkills) == 0 {
			r.MatchingSkills = catMatching
			if len(r.MissingSkills) == 0 {
				r.MissingSkills = catMissing
			}
		}
	}

	m := len(r.MatchingSkills)
	score := float64(min(maxScoredSkills, m) * pointsPerSkill)
	if len(strings.TrimSpace(r.ImpliedSkills)) > impliedMinLength {
		score += impliedBonus
	}
	score -= float64(min(maxMissingPenalty, len(r.MissingSkills)))
	return clampScore(score), coverage
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

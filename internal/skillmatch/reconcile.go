package skillmatch

import (
	"fmt"
	"math"
	"strings"
)

// Assemble builds a candidate from direct field lookups and, when that yields
// no score and no matching skills, merges in whatever ExtractFromText recovers
// from the model text.
func Assemble(parsed map[string]any, normalized any, rawJSON, text string) (Candidate, Source) {
	c := candidateFromLookup(parsed, normalized, rawJSON)
	source := SourceNone
	if parsed != nil {
		source = SourceJSON
	}

	noScore := !c.MatchScore.Present || (c.MatchScore.Numeric && c.MatchScore.Value == 0)
	if !noScore || len(c.MatchingSkills.Value) > 0 {
		return c, source
	}

	ext, extSource, ok := ExtractFromText(text, normalized)
	if !ok {
		return c, source
	}
	source = extSource
	if ext.MatchScore.Present {
		c.MatchScore = ext.MatchScore
	}
	if ext.Status.Present && ext.Status.Value != "" {
		c.Status = ext.Status
	}
	if len(ext.MatchingSkills.Value) > 0 {
		c.MatchingSkills = ext.MatchingSkills
	}
	if len(ext.MissingSkills.Value) > 0 {
		c.MissingSkills = ext.MissingSkills
	}
	if strings.TrimSpace(ext.ImpliedSkills.Value) != "" {
		c.ImpliedSkills = ext.ImpliedSkills
	}
	if strings.TrimSpace(ext.ScoreRationale.Value) != "" {
		c.ScoreRationale = ext.ScoreRationale
	}
	return c, source
}

// ModelScoreValid reports whether the candidate carries a finite model score in [0,100].
func ModelScoreValid(c Candidate) bool {
	s := c.MatchScore
	return s.Present && s.Numeric && !math.IsNaN(s.Value) && !math.IsInf(s.Value, 0) && s.Value >= 0 && s.Value <= 100
}

// Reconcile picks between the model score and ServerScore. The server score
// wins under strict mode or when the model score is absent or invalid. The
// status is always recomputed from the final score.
func Reconcile(c Candidate, in Input, strict bool, cat *Catalog) (Result, bool) {
	r := Result{
		ScoreRationale: strings.TrimSpace(c.ScoreRationale.Value),
		MatchingSkills: nonNil(c.MatchingSkills.Value),
		MissingSkills:  nonNil(c.MissingSkills.Value),
		ImpliedSkills:  c.ImpliedSkills.Value,
	}

	serverScored := strict || !ModelScoreValid(c)
	if serverScored {
		score, coverage := ServerScore(&r, in, cat)
		r.MatchScore = score
		r.ScoreRationale = fmt.Sprintf("Server-side computed score: %d based on %d matching skills, %d missing skills.",
			score, len(r.MatchingSkills), len(r.MissingSkills))
		if cov := FormatCoverage(coverage); cov != "" {
			r.ScoreRationale += " Category coverage: " + cov + "."
		}
	} else {
		r.MatchScore = clampScore(c.MatchScore.Value)
		if r.ScoreRationale == "" {
			r.ScoreRationale = "Model-provided score accepted."
		}
	}
	r.Status = StatusFor(r.MatchScore)
	return r, serverScored
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

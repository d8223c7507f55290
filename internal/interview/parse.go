package interview

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"careerpilot-backend/internal/skillmatch"
)

var (
	listItemRe      = regexp.MustCompile(`^\s*(?:\*\*)?(?:Q(?:uestion)?\s*\d{1,2}\s*[:.)\-]|\d{1,2}\s*[.)]|[-*•])(?:\*\*)?\s+(.+)$`)
	scoreLabelRe    = regexp.MustCompile(`(?i)score\s*\*{0,2}\s*[:\-=]?\s*\*{0,2}\s*(\d{1,2}(?:\.\d+)?)\s*(?:/\s*10)?`)
	feedbackLabelRe = regexp.MustCompile(`(?is)feedback\s*\*{0,2}\s*[:\-]\s*\*{0,2}\s*(.+)`)
)

// decodeObject returns the model's JSON object: the whole text when it is
// one, otherwise one embedded in the prose.
func decodeObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		if obj, ok := skillmatch.Normalize(v).(map[string]any); ok {
			return obj, true
		}
	}
	obj, _, ok := skillmatch.ExtractObject(text)
	return obj, ok
}

// ParseQuestions reads questions from a {"questions":[...]} object, a bare
// JSON array, or a numbered/bulleted list. Blank entries are dropped.
func ParseQuestions(text string) []string {
	if obj, ok := decodeObject(text); ok {
		if qs := questionStrings(obj["questions"]); len(qs) > 0 {
			return qs
		}
	}
	var arr []any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &arr); err == nil {
		if qs := questionStrings(arr); len(qs) > 0 {
			return qs
		}
	}
	return scanQuestionList(text)
}

func questionStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		var q string
		switch it := item.(type) {
		case string:
			q = it
		case map[string]any:
			for _, k := range []string{"question", "text"} {
				if s, ok := it[k].(string); ok {
					q = s
					break
				}
			}
		}
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func scanQuestionList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		q := strings.TrimSpace(strings.ReplaceAll(m[1], "**", ""))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}

// ParseEvaluation reads a score and feedback from a JSON object or from
// "Score: 7/10" and "Feedback: ..." labels. ok is false when either is missing.
func ParseEvaluation(text string) (Evaluation, bool) {
	var (
		score    float64
		hasScore bool
		feedback string
	)
	if obj, found := decodeObject(text); found {
		score, hasScore = numberOf(obj["score"])
		feedback, _ = obj["feedback"].(string)
	}
	if !hasScore {
		if m := scoreLabelRe.FindStringSubmatch(text); m != nil {
			score, hasScore = numberOf(m[1])
		}
	}
	if strings.TrimSpace(feedback) == "" {
		if m := feedbackLabelRe.FindStringSubmatch(text); m != nil {
			feedback = m[1]
		}
	}
	feedback = strings.TrimSpace(strings.ReplaceAll(feedback, "**", ""))

	eval := Evaluation{Score: clampScore(score), Feedback: feedback}
	return eval, hasScore && feedback != ""
}

func numberOf(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case string:
		s := strings.TrimSpace(t)
		if i := strings.Index(s, "/"); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return 0, false
	}
}

func clampScore(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}

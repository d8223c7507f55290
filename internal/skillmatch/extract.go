package skillmatch

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var fieldKeys = []string{"matchScore", "scoreRationale", "matchingSkills", "missingSkills", "impliedSkills", "status"}

// ExtractField looks key up in parsed, then normalized.properties[key].value,
// then raw.properties[key].value, then raw[key].value.
func ExtractField(key string, parsed map[string]any, normalized any, rawJSON string) (any, bool) {
	if v, ok := parsed[key]; ok {
		return v, true
	}
	if nm, ok := normalized.(map[string]any); ok {
		if props, ok := nm["properties"].(map[string]any); ok {
			if p, ok := props[key].(map[string]any); ok {
				if v, ok := p["value"]; ok {
					return v, true
				}
			}
		}
	}
	if rawJSON == "" || !gjson.Valid(rawJSON) {
		return nil, false
	}
	k := gjsonEscape(key)
	if r := gjson.Get(rawJSON, "properties."+k+".value"); r.Exists() {
		return r.Value(), true
	}
	if obj := gjson.Get(rawJSON, k); obj.IsObject() {
		if r := obj.Get("value"); r.Exists() {
			return r.Value(), true
		}
	}
	return nil, false
}

func gjsonEscape(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// candidateFromLookup builds a Candidate from ExtractField lookups.
func candidateFromLookup(parsed map[string]any, normalized any, rawJSON string) Candidate {
	values := make(map[string]any, len(fieldKeys))
	for _, key := range fieldKeys {
		if v, ok := ExtractField(key, parsed, normalized, rawJSON); ok {
			values[key] = v
		}
	}
	return candidateFromMap(values)
}

// candidateFromMap coerces loosely typed model values into a Candidate. JSON nulls count as absent.
func candidateFromMap(m map[string]any) Candidate {
	var c Candidate
	if v, ok := m["matchScore"]; ok && v != nil {
		c.MatchScore = coerceScore(v)
	}
	if v, ok := m["scoreRationale"]; ok && v != nil {
		c.ScoreRationale = present(coerceText(v))
	}
	if v, ok := m["matchingSkills"]; ok && v != nil {
		c.MatchingSkills = present(coerceSkills(v))
	}
	if v, ok := m["missingSkills"]; ok && v != nil {
		c.MissingSkills = present(coerceSkills(v))
	}
	if v, ok := m["impliedSkills"]; ok && v != nil {
		c.ImpliedSkills = present(coerceText(v))
	}
	if v, ok := m["status"]; ok && v != nil {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			c.Status = present(strings.TrimSpace(s))
		}
	}
	return c
}

func coerceScore(v any) Score {
	switch t := v.(type) {
	case float64:
		return Score{Value: t, Present: true, Numeric: !math.IsNaN(t) && !math.IsInf(t, 0)}
	case int:
		return Score{Value: float64(t), Present: true, Numeric: true}
	case json.Number:
		f, err := t.Float64()
		return Score{Value: f, Present: true, Numeric: err == nil}
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Score{Present: true}
		}
		return Score{Value: f, Present: true, Numeric: true}
	default:
		return Score{Present: true}
	}
}

func coerceText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

var listSplit = regexp.MustCompile(`[,;\n]+`)

// coerceSkills accepts string arrays, arrays of {name|skill} objects, or a delimited string.
func coerceSkills(v any) []string {
	var raw []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			switch it := item.(type) {
			case string:
				raw = append(raw, it)
			case map[string]any:
				for _, k := range []string{"name", "skill"} {
					if s, ok := it[k].(string); ok {
						raw = append(raw, s)
						break
					}
				}
			case nil:
			default:
				raw = append(raw, fmt.Sprint(it))
			}
		}
	case []string:
		raw = t
	case string:
		raw = listSplit.Split(t, -1)
	}
	return dedupe(raw)
}

func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var (
	sentinelRe = regexp.MustCompile(`(?s)<JSON_START>\s*(.*?)\s*<JSON_END>`)
	fencedRe   = regexp.MustCompile("(?is)```json\\s*(.*?)```")
)

// maxTrailingStarts bounds the balanced-brace scan on very long answers.
const maxTrailingStarts = 256

// ExtractFromText recovers a candidate from free-form model text: sentinel
// block, fenced json block, trailing {...} object, then the label scan.
// It returns false only for blank text.
func ExtractFromText(text string, normalized any) (Candidate, Source, bool) {
	if strings.TrimSpace(text) == "" {
		return Candidate{}, SourceNone, false
	}
	if obj, source, ok := ExtractObject(text); ok {
		return candidateFromMap(obj), source, true
	}
	return scanText(text, normalized), SourceTextScan, true
}

// ExtractObject finds an embedded JSON object in model text: the sentinel
// block first, then a fenced json block, then a trailing {...} object.
// The object is normalized before it is returned.
func ExtractObject(text string) (map[string]any, Source, bool) {
	if m := sentinelRe.FindStringSubmatch(text); m != nil {
		if obj, ok := parseObject(m[1]); ok {
			return obj, SourceSentinel, true
		}
	}
	if m := fencedRe.FindStringSubmatch(text); m != nil {
		if obj, ok := parseObject(m[1]); ok {
			return obj, SourceFenced, true
		}
	}
	if obj, ok := trailingObject(text); ok {
		return obj, SourceTrailing, true
	}
	return nil, SourceNone, false
}

// parseObject decodes s as a JSON object and normalizes it.
func parseObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := Normalize(v).(map[string]any)
	return obj, ok
}

// trailingObject finds a JSON object that closes at the end of text, trying
// the first '{' first and then each later '{' in turn.
func trailingObject(text string) (map[string]any, bool) {
	trimmed := strings.TrimRightFunc(text, isSpace)
	if !strings.HasSuffix(trimmed, "}") {
		return nil, false
	}
	starts := 0
	for i := 0; i < len(trimmed) && starts < maxTrailingStarts; i++ {
		if trimmed[i] != '{' {
			continue
		}
		starts++
		if obj, ok := parseObject(trimmed[i:]); ok {
			return obj, true
		}
	}
	return nil, false
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

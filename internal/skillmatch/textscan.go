package skillmatch

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	scoreLabelRe  = regexp.MustCompile(`(?i)match\s*score\s*\*{0,2}\s*[:\-]?\s*\*{0,2}\s*(\d{1,3})`)
	scoreApproxRe = regexp.MustCompile(`≈\s*(\d{1,3})`)
	statusBoldRe  = regexp.MustCompile(`(?i)\*\*Status\*\*:\s*([A-Za-z ]{2,20})`)
	statusPlainRe = regexp.MustCompile(`(?i)Status:\s*([A-Za-z ]{2,20})`)
	impliedDictRe = regexp.MustCompile("(?is)```(?:python)?.*?impliedSkills\\s*=\\s*(\\{.*?\\}).*?```")
	dictKeyRe     = regexp.MustCompile(`([A-Za-z0-9_\-]+)\s*:`)
	listHeaderRe  = regexp.MustCompile(`(?i)^(matching skills|missing skills):?`)
	boldHeaderRe  = regexp.MustCompile(`(?m)^\s*\*\*`)
	missingEndRe  = regexp.MustCompile(`(?i)\*{0,2}Weighted Match Score`)
	matchStartRe  = regexp.MustCompile(`(?i)Matching Skills:`)
	missingLabel  = regexp.MustCompile(`(?i)Missing Skills:`)
)

// scanText reads label-keyed human prose: "Match Score: **N**", "Status: X",
// and bullet lists under "Matching Skills:" / "Missing Skills:".
func scanText(text string, normalized any) Candidate {
	var c Candidate

	if m := scoreLabelRe.FindStringSubmatch(text); m != nil {
		c.MatchScore = scoreFromDigits(m[1])
	} else if m := scoreApproxRe.FindStringSubmatch(text); m != nil {
		c.MatchScore = scoreFromDigits(m[1])
	}

	if m := statusBoldRe.FindStringSubmatch(text); m != nil {
		c.Status = present(strings.TrimSpace(m[1]))
	} else if m := statusPlainRe.FindStringSubmatch(text); m != nil {
		c.Status = present(strings.TrimSpace(m[1]))
	}

	c.MatchingSkills = present(listBetween(text, matchStartRe, missingLabel))
	c.MissingSkills = present(listBetween(text, missingLabel, missingEndRe))

	if implied := impliedFromText(text, normalized); implied != "" {
		c.ImpliedSkills = present(implied)
	}
	return c
}

func scoreFromDigits(s string) Score {
	n, err := strconv.Atoi(s)
	if err != nil {
		return Score{Present: true}
	}
	return Score{Value: float64(n), Present: true, Numeric: true}
}

// listBetween collects bullet lines after start up to end. Without an end
// label the block runs to the next "**" header line, or the end of the text.
func listBetween(text string, start, end *regexp.Regexp) []string {
	loc := start.FindStringIndex(text)
	if loc == nil {
		return []string{}
	}
	rest := text[loc[0]:]
	if e := end.FindStringIndex(rest[loc[1]-loc[0]:]); e != nil {
		rest = rest[:loc[1]-loc[0]+e[0]]
	} else {
		body := rest[loc[1]-loc[0]:]
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			if h := boldHeaderRe.FindStringIndex(body[nl+1:]); h != nil {
				rest = rest[:loc[1]-loc[0]+nl+1+h[0]]
			}
		}
	}

	var items []string
	for _, line := range splitLines(rest) {
		line = strings.TrimSpace(line)
		bullet := strings.TrimSpace(strings.TrimLeft(line, "-*\t•+ "))
		bullet = strings.TrimSpace(strings.ReplaceAll(bullet, "**", ""))
		if bullet == "" {
			continue
		}
		if listHeaderRe.MatchString(line) || strings.HasPrefix(line, "**") {
			continue
		}
		if hasLetter(bullet) && len(bullet) < 200 {
			items = append(items, bullet)
		}
	}
	return dedupe(items)
}

func splitLines(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
}

func hasLetter(s string) bool {
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// impliedFromText converts a python impliedSkills = {...} dict into JSON when it
// can, otherwise keeps the dict text. Failing that it pretty-prints normalized.
func impliedFromText(text string, normalized any) string {
	if m := impliedDictRe.FindStringSubmatch(text); m != nil {
		jsonish := dictKeyRe.ReplaceAllString(m[1], `"$1":`)
		jsonish = strings.ReplaceAll(jsonish, "'", `"`)
		var v any
		if err := json.Unmarshal([]byte(jsonish), &v); err == nil {
			if b, err := json.MarshalIndent(v, "", "  "); err == nil {
				return string(b)
			}
		}
		return m[1]
	}
	if nm, ok := normalized.(map[string]any); ok && len(nm) > 0 {
		if b, err := json.MarshalIndent(nm, "", "  "); err == nil {
			return string(b)
		}
	}
	return ""
}

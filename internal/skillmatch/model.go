package skillmatch

// Input is one resume/job-description pair.
type Input struct {
	JobDescription string `json:"jobDescription"`
	Resume         string `json:"resume"`
}

// Result is the strict record returned to callers.
type Result struct {
	MatchScore     int      `json:"matchScore"`
	ScoreRationale string   `json:"scoreRationale"`
	MatchingSkills []string `json:"matchingSkills"`
	MissingSkills  []string `json:"missingSkills"`
	ImpliedSkills  string   `json:"impliedSkills"`
	Status         string   `json:"status"`
}

const (
	StatusApproved         = "Approved"
	StatusNeedsImprovement = "Needs Improvement"
	StatusNotAMatch        = "Not a Match"
)

// StatusFor maps a 0-100 score onto its status label.
func StatusFor(score int) string {
	switch {
	case score >= 75:
		return StatusApproved
	case score >= 50:
		return StatusNeedsImprovement
	default:
		return StatusNotAMatch
	}
}

// Field is an optional value; Present distinguishes "missing" from the zero value.
type Field[T any] struct {
	Value   T
	Present bool
}

func present[T any](v T) Field[T] {
	return Field[T]{Value: v, Present: true}
}

// Score is the model's match score as recovered. Numeric is false when the field
// was present but could not be read as a number.
type Score struct {
	Value   float64
	Present bool
	Numeric bool
}

// Candidate is a partially recovered record.
type Candidate struct {
	MatchScore     Score
	ScoreRationale Field[string]
	MatchingSkills Field[[]string]
	MissingSkills  Field[[]string]
	ImpliedSkills  Field[string]
	Status         Field[string]
}

// Source names where the winning candidate came from.
type Source string

const (
	SourceJSON     Source = "json"
	SourceSentinel Source = "sentinel"
	SourceFenced   Source = "fenced"
	SourceTrailing Source = "trailing"
	SourceTextScan Source = "textscan"
	SourceNone     Source = "none"
)

// Trace records how a Result was produced.
type Trace struct {
	Raw         string `json:"raw"`
	Normalized  any    `json:"normalized"`
	Source      Source `json:"source"`
	ServerScore bool   `json:"serverScore"`
	Strict      bool   `json:"strict"`
	PromptHash  string `json:"promptHash,omitempty"`
}

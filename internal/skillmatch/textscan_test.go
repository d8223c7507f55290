package skillmatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proseAnswer = `### Analysis
Matching Skills:
- Python
- Docker
* SQL
  • Python
Missing Skills:
- Kubernetes
- AWS
**Weighted Match Score**: ≈ 42
**Status**: Not a Match
`

func TestScanTextProse(t *testing.T) {
	c := scanText(proseAnswer, nil)

	assert.Equal(t, Score{Value: 42, Present: true, Numeric: true}, c.MatchScore)
	assert.Equal(t, "Not a Match", c.Status.Value)
	assert.Equal(t, []string{"Python", "Docker", "SQL"}, c.MatchingSkills.Value)
	assert.Equal(t, []string{"Kubernetes", "AWS"}, c.MissingSkills.Value)
	assert.False(t, c.ImpliedSkills.Present)
}

func TestScanTextScoreLabels(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{text: "Match Score: **88**", want: 88},
		{text: "match score - 61", want: 61},
		{text: "**Match Score**: 14", want: 14},
		{text: "MatchScore 7", want: 7},
		{text: "= 13.56 ≈ 14", want: 14},
	}
	for _, tt := range tests {
		c := scanText(tt.text, nil)
		assert.Equal(t, tt.want, c.MatchScore.Value, tt.text)
	}
	assert.False(t, scanText("no numbers here", nil).MatchScore.Present)
}

func TestScanTextMissingEndLabelStopsAtHeader(t *testing.T) {
	text := "Missing Skills:\n- Rust\n- Go\n**Summary**\n- not a skill\n"
	c := scanText(text, nil)
	assert.Equal(t, []string{"Rust", "Go"}, c.MissingSkills.Value)

	tail := scanText("Missing Skills:\n- Rust\n- Terraform", nil)
	assert.Equal(t, []string{"Rust", "Terraform"}, tail.MissingSkills.Value)
}

func TestScanTextSkipsNoise(t *testing.T) {
	text := "Matching Skills:\n- 12345\n- **Go**\n**Backend**\n- " + strings.Repeat("x", 250) + "\nMissing Skills:\n"
	c := scanText(text, nil)
	assert.Equal(t, []string{"Go"}, c.MatchingSkills.Value)
}

func TestScanTextImpliedPythonDict(t *testing.T) {
	text := "Some analysis\n```python\nimpliedSkills = {'Go': 'built APIs', Docker: 'containers'}\n```\nMatch Score: 55"
	c := scanText(text, nil)
	require.True(t, c.ImpliedSkills.Present)
	assert.Contains(t, c.ImpliedSkills.Value, `"Docker": "containers"`)
	assert.Contains(t, c.ImpliedSkills.Value, `"Go": "built APIs"`)

	broken := scanText("```python\nimpliedSkills = {'a': 'has: colon'}\n```", nil)
	assert.Equal(t, "{'a': 'has: colon'}", broken.ImpliedSkills.Value)
}

func TestScanTextImpliedFromNormalized(t *testing.T) {
	c := scanText("nothing useful", map[string]any{"note": "x"})
	assert.Equal(t, "{\n  \"note\": \"x\"\n}", c.ImpliedSkills.Value)
}

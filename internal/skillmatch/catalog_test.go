package skillmatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleJD     = "We need Go, Kubernetes and AWS; PostgreSQL a plus"
	sampleResume = "Built services in Golang on AWS with Docker"
)

func TestCatalogCompare(t *testing.T) {
	cat := DefaultCatalog()

	matching, missing, coverage := cat.Compare(sampleJD, sampleResume)
	assert.Equal(t, []string{"Go", "AWS"}, matching)
	assert.Equal(t, []string{"PostgreSQL", "Kubernetes"}, missing)
	assert.Equal(t, "languages 1/1, databases 0/1, cloud 1/1, devops 0/1", FormatCoverage(coverage))
}

func TestCatalogWordBoundaries(t *testing.T) {
	cat := DefaultCatalog()
	tests := []struct {
		text string
		want []string
	}{
		{text: "Expert in C++ and C#", want: []string{"C++", "C#"}},
		{text: "JavaScript only", want: []string{"JavaScript"}},
		{text: "Node.js and Express.js", want: []string{"Node.js", "Express"}},
		{text: "PostgreSQL", want: []string{"PostgreSQL"}},
		{text: "CI/CD with Jenkins", want: []string{"Jenkins", "CI/CD"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cat.Find(tt.text), tt.text)
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - name: ops\n    skills:\n      - name: Ansible\n        aliases: [ansible-playbook]\n"), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Len())
	assert.Equal(t, []string{"Ansible"}, cat.Find("wrote ansible-playbook roles"))

	def, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Greater(t, def.Len(), 40)
}

func TestParseCatalogErrors(t *testing.T) {
	_, err := ParseCatalog([]byte("categories: [}"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("categories: []"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("categories:\n  - name: x\n    skills:\n      - name: ''\n"))
	assert.Error(t, err)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

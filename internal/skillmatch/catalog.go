package skillmatch

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed skills.yaml
var defaultCatalogYAML []byte

// Catalog is the known-skill list used by the deterministic scorer.
type Catalog struct {
	Categories []Category `yaml:"categories"`
}

// Category groups related skills for coverage reporting.
type Category struct {
	Name   string  `yaml:"name"`
	Skills []Skill `yaml:"skills"`
}

// Skill is one canonical skill name plus the spellings that count as it.
type Skill struct {
	Name     string   `yaml:"name"`
	Aliases  []string `yaml:"aliases"`
	patterns []*regexp.Regexp
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded skill catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog from path, or returns the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("skill catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes YAML and compiles each skill's matchers.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	total := 0
	for ci := range c.Categories {
		for si := range c.Categories[ci].Skills {
			s := &c.Categories[ci].Skills[si]
			s.Name = strings.TrimSpace(s.Name)
			if s.Name == "" {
				return nil, fmt.Errorf("category %q: skill with empty name", c.Categories[ci].Name)
			}
			for _, term := range append([]string{s.Name}, s.Aliases...) {
				term = strings.TrimSpace(term)
				if term == "" {
					continue
				}
				s.patterns = append(s.patterns, wordPattern(term))
			}
			total++
		}
	}
	if total == 0 {
		return nil, fmt.Errorf("catalog has no skills")
	}
	return &c, nil
}

// wordPattern matches term on word boundaries that also respect '+', '#' and '.'
// so "C" does not match inside "C++" and "js" does not match inside "node.js".
func wordPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^a-z0-9+#.])` + regexp.QuoteMeta(term) + `(?:$|[^a-z0-9+#])`)
}

func (s Skill) foundIn(text string) bool {
	for _, p := range s.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Find returns the catalog skills mentioned in text, in catalog order.
func (c *Catalog) Find(text string) []string {
	var out []string
	for _, cat := range c.Categories {
		for _, s := range cat.Skills {
			if s.foundIn(text) {
				out = append(out, s.Name)
			}
		}
	}
	return dedupe(out)
}

// Len returns the number of skills in the catalog.
func (c *Catalog) Len() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Skills)
	}
	return n
}

// CategoryCoverage counts the JD-required skills of a category the resume covers.
type CategoryCoverage struct {
	Category string
	Required int
	Covered  int
}

// Compare splits the job description's catalog skills into those the resume
// has and those it lacks, and reports per-category coverage.
func (c *Catalog) Compare(jobDescription, resume string) (matching, missing []string, coverage []CategoryCoverage) {
	matching, missing = []string{}, []string{}
	for _, cat := range c.Categories {
		cov := CategoryCoverage{Category: cat.Name}
		for _, s := range cat.Skills {
			if !s.foundIn(jobDescription) {
				continue
			}
			cov.Required++
			if s.foundIn(resume) {
				cov.Covered++
				matching = append(matching, s.Name)
			} else {
				missing = append(missing, s.Name)
			}
		}
		if cov.Required > 0 {
			coverage = append(coverage, cov)
		}
	}
	return dedupe(matching), dedupe(missing), coverage
}

// FormatCoverage renders coverage as "languages 2/3, cloud 0/1".
func FormatCoverage(coverage []CategoryCoverage) string {
	parts := make([]string, 0, len(coverage))
	for _, cov := range coverage {
		parts = append(parts, fmt.Sprintf("%s %d/%d", cov.Category, cov.Covered, cov.Required))
	}
	return strings.Join(parts, ", ")
}

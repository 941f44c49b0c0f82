package planner

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/planforge/planforge/internal/errors"
)

// PRDDocument is a parsed PRD file: an optional YAML front matter block and
// the free-text body. Front matter values override configured defaults for
// one planning run.
type PRDDocument struct {
	// Title is an optional display name for the plan.
	Title string `yaml:"title"`

	// MaxIterations overrides the configured refinement bound when set.
	MaxIterations *int `yaml:"max_iterations"`

	// ConsistencyThreshold overrides the configured score threshold when set.
	ConsistencyThreshold *float64 `yaml:"consistency_threshold"`

	// Body is the PRD text with the front matter stripped.
	Body string `yaml:"-"`
}

const frontMatterDelim = "---"

// ParsePRDDocument splits an optional leading "---" YAML front matter block
// from the PRD body. Raw text without front matter parses as a bare body.
func ParsePRDDocument(raw string) (*PRDDocument, error) {
	doc := &PRDDocument{Body: raw}

	trimmed := strings.TrimLeft(raw, "\n")
	if !strings.HasPrefix(trimmed, frontMatterDelim+"\n") {
		return doc, nil
	}

	rest := trimmed[len(frontMatterDelim)+1:]

	// The terminator must be a line that is exactly "---"; lines that merely
	// start with three dashes (horizontal rules, "----") belong to the body
	// or the YAML block.
	end, bodyStart := -1, -1
	for off := 0; off < len(rest); {
		line := rest[off:]
		next := len(rest)
		if nl := strings.IndexByte(line, '\n'); nl >= 0 {
			line = line[:nl]
			next = off + nl + 1
		}
		if line == frontMatterDelim {
			end, bodyStart = off, next
			break
		}
		off = next
	}
	if end < 0 {
		return nil, errors.NewValidationError("unterminated front matter block").
			WithField("prd")
	}

	if err := yaml.Unmarshal([]byte(rest[:end]), doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse PRD front matter")
	}

	doc.Body = rest[bodyStart:]
	return doc, nil
}

// Requirement-line patterns. A PRD line counts as requirement-like when it
// contains an obligation keyword, describes a user capability, or is an
// explicit feature bullet.
var requirementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(must|should|shall)\b`),
	regexp.MustCompile(`(?i)\busers?\s+can\b`),
	regexp.MustCompile(`(?i)^\s*(?:[-*]\s*)?feature:`),
}

// ExtractRequirements returns the requirement-like lines of a PRD, trimmed,
// in document order. Used by both PRD-coverage validation and the offline
// generator backend.
func ExtractRequirements(prd string) []string {
	var out []string
	for _, line := range strings.Split(prd, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, pat := range requirementPatterns {
			if pat.MatchString(line) {
				out = append(out, line)
				break
			}
		}
	}
	return out
}

var (
	listMarkerRe = regexp.MustCompile(`^(?:[-*+]|\d+[.)])\s+`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// NormalizeRequirement lowercases a requirement line, strips list markers
// and trailing punctuation, and collapses runs of whitespace, producing the
// canonical form used for coverage substring matching.
func NormalizeRequirement(line string) string {
	s := strings.ToLower(strings.TrimSpace(line))
	s = listMarkerRe.ReplaceAllString(s, "")
	s = strings.TrimRight(s, ".!?:;,")
	return whitespaceRe.ReplaceAllString(s, " ")
}

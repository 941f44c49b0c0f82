package planner

import (
	"fmt"
	"strings"

	"github.com/planforge/planforge/internal/taskgraph"
)

// PRD coverage thresholds: coverage below errorThreshold fails the check,
// coverage below warnThreshold warns.
const (
	coverageErrorThreshold = 0.5
	coverageWarnThreshold  = 0.8
)

// missingFileRefErrorRatio is the fraction of missing task file references
// above which the file-structure check escalates to an error. Zero means any
// missing reference escalates.
const missingFileRefErrorRatio = 0.0

// RuleContext is the read-only input to one consistency rule: the project
// context, its dependency graph, and a dependency-safe execution order (nil
// when the graph is cyclic).
type RuleContext struct {
	Context *ProjectContext
	Graph   *graphHandle
	Order   []string
}

// graphHandle aliases the concrete graph type so rule signatures stay short.
type graphHandle = taskgraph.Graph[*Task]

// Rule is one independent, order-insensitive consistency check. Rules are
// pure: deterministic for identical textual input, no generation calls.
type Rule struct {
	// Name identifies the check in logs and summaries.
	Name string

	// Check inspects the rule context and returns zero or more issues.
	Check func(*RuleContext) []ValidationIssue
}

// Validator is the cross-component consistency rule engine. It is stateless
// and safe for concurrent use across context instances.
type Validator struct {
	rules []Rule
}

// NewValidator creates a validator with the standard rule set:
// architecture completeness, file-structure alignment, task/dependency
// integrity, logical ordering, and PRD coverage.
func NewValidator() *Validator {
	return &Validator{
		rules: []Rule{
			{Name: "architecture_completeness", Check: ruleArchitectureCompleteness},
			{Name: "file_structure_alignment", Check: ruleFileStructureAlignment},
			{Name: "task_integrity", Check: ruleTaskIntegrity},
			{Name: "logical_ordering", Check: ruleLogicalOrdering},
			{Name: "prd_coverage", Check: rulePRDCoverage},
		},
	}
}

// Validate runs every rule against the context and aggregates the findings
// into a report. Validation is exhaustive and non-throwing: heuristic
// mismatches are data, not errors, and the caller always receives the
// complete issue list. A nil context yields a failed report rather than a
// panic.
func (v *Validator) Validate(pc *ProjectContext) *ValidationReport {
	report := &ValidationReport{Issues: make([]ValidationIssue, 0)}

	if pc == nil {
		report.Status = ValidationFailed
		report.Failed = 1
		report.Total = 1
		report.Issues = append(report.Issues, ValidationIssue{
			Component: ComponentTasks,
			Severity:  SeverityError,
			Message:   "project context is nil",
		})
		report.Summary = summarize(report)
		return report
	}

	rc := &RuleContext{Context: pc, Graph: BuildGraph(pc.Tasks)}
	if order, err := rc.Graph.TopologicalOrder(); err == nil {
		rc.Order = order
	}

	for _, rule := range v.rules {
		issues := rule.Check(rc)
		report.Issues = append(report.Issues, issues...)
		report.Total++

		switch worstSeverity(issues) {
		case SeverityError:
			report.Failed++
		case SeverityWarning:
			report.Warnings++
		default:
			report.Passed++
		}
	}

	switch {
	case report.Failed > 0:
		report.Status = ValidationFailed
	case report.Warnings > 0 || report.Total == 0:
		report.Status = ValidationWarning
	default:
		report.Status = ValidationPassed
	}
	report.Summary = summarize(report)
	return report
}

// worstSeverity returns the highest severity among issues; info-only or
// empty slices rank below warning.
func worstSeverity(issues []ValidationIssue) IssueSeverity {
	worst := SeverityInfo
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityError:
			return SeverityError
		case SeverityWarning:
			worst = SeverityWarning
		}
	}
	return worst
}

func summarize(r *ValidationReport) string {
	return fmt.Sprintf("validation %s: %d/%d checks passed, %d warned, %d failed (%d issues)",
		r.Status, r.Passed, r.Total, r.Warnings, r.Failed, len(r.Issues))
}

// -----------------------------------------------------------------------------
// Rule: architecture completeness
// -----------------------------------------------------------------------------

// architectureTopics are the description areas an architecture blob is
// expected to cover, with the keywords that satisfy each.
var architectureTopics = []struct {
	name     string
	keywords []string
}{
	{"structural/component description", []string{"component", "module", "layer", "structure", "service"}},
	{"data/storage description", []string{"database", "storage", "data", "persistence", "schema"}},
	{"API/service description", []string{"api", "endpoint", "interface", "protocol", "service"}},
}

func ruleArchitectureCompleteness(rc *RuleContext) []ValidationIssue {
	arch := strings.ToLower(rc.Context.Architecture)
	if strings.TrimSpace(arch) == "" {
		return []ValidationIssue{{
			Component: ComponentArchitecture,
			Severity:  SeverityWarning,
			Message:   "no architecture description provided",
		}}
	}

	var issues []ValidationIssue
	for _, topic := range architectureTopics {
		if !containsAny(arch, topic.keywords) {
			issues = append(issues, ValidationIssue{
				Component: ComponentArchitecture,
				Severity:  SeverityWarning,
				Message:   fmt.Sprintf("architecture lacks a %s", topic.name),
			})
		}
	}
	return issues
}

// -----------------------------------------------------------------------------
// Rule: file-structure alignment
// -----------------------------------------------------------------------------

// structurePatterns map architecture vocabulary to directory names the file
// tree is expected to contain.
var structurePatterns = []struct {
	name     string
	triggers []string
	dirs     []string
}{
	{"frontend", []string{"react", "vue", "angular", "frontend", "ui framework"}, []string{"frontend", "ui", "client", "components"}},
	{"API layer", []string{"api", "endpoint", "rest", "graphql"}, []string{"api", "server", "handlers", "routes"}},
	{"database layer", []string{"database", "persistence", "schema"}, []string{"db", "database", "storage", "migrations", "models"}},
	{"test suite", []string{"test"}, []string{"test", "tests", "spec"}},
}

func ruleFileStructureAlignment(rc *RuleContext) []ValidationIssue {
	tree := strings.ToLower(rc.Context.FileStructure)
	if strings.TrimSpace(tree) == "" {
		return []ValidationIssue{{
			Component: ComponentFileStructure,
			Severity:  SeverityWarning,
			Message:   "no file structure provided",
		}}
	}

	var issues []ValidationIssue

	arch := strings.ToLower(rc.Context.Architecture)
	for _, pat := range structurePatterns {
		if containsAny(arch, pat.triggers) && !containsAny(tree, pat.dirs) {
			issues = append(issues, ValidationIssue{
				Component: ComponentFileStructure,
				Severity:  SeverityWarning,
				Message: fmt.Sprintf("architecture mentions a %s but the file tree has no matching directory (expected one of: %s)",
					pat.name, strings.Join(pat.dirs, ", ")),
			})
		}
	}

	// Task-declared file references must appear in the tree.
	var totalRefs, missingRefs int
	seen := make(map[string]bool)
	for _, task := range rc.Context.Tasks {
		for _, file := range task.Files {
			totalRefs++
			if strings.Contains(tree, strings.ToLower(file)) {
				continue
			}
			missingRefs++
			if seen[file] {
				continue
			}
			seen[file] = true
			issues = append(issues, ValidationIssue{
				Component:       ComponentFileStructure,
				Severity:        SeverityWarning,
				Message:         fmt.Sprintf("task file reference '%s' is absent from the file tree", file),
				AffectedTaskIDs: []string{task.ID},
			})
		}
	}
	if totalRefs > 0 && float64(missingRefs)/float64(totalRefs) > missingFileRefErrorRatio {
		issues = append(issues, ValidationIssue{
			Component: ComponentFileStructure,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("%d of %d task file references are missing from the file tree", missingRefs, totalRefs),
		})
	}
	return issues
}

// -----------------------------------------------------------------------------
// Rule: task/dependency integrity
// -----------------------------------------------------------------------------

func ruleTaskIntegrity(rc *RuleContext) []ValidationIssue {
	issues := graphIssues(rc.Graph)

	if len(rc.Context.Tasks) > 0 && len(rc.Context.TasksByCategory(CategorySetup)) == 0 {
		issues = append(issues, ValidationIssue{
			Component: ComponentTasks,
			Severity:  SeverityWarning,
			Message:   "plan has no setup task",
		})
	}

	mentionsTesting := strings.Contains(strings.ToLower(rc.Context.Architecture), "test")
	if mentionsTesting && len(rc.Context.Tasks) > 0 && len(rc.Context.TasksByCategory(CategoryTesting)) == 0 {
		issues = append(issues, ValidationIssue{
			Component: ComponentTasks,
			Severity:  SeverityWarning,
			Message:   "architecture mentions testing but the plan has no testing task",
		})
	}
	return issues
}

// -----------------------------------------------------------------------------
// Rule: logical ordering
// -----------------------------------------------------------------------------

func ruleLogicalOrdering(rc *RuleContext) []ValidationIssue {
	var issues []ValidationIssue

	archIDs := make(map[string]bool)
	for _, t := range rc.Context.TasksByCategory(CategoryArchitecture) {
		archIDs[t.ID] = true
	}

	if len(archIDs) > 0 {
		var unanchored []string
		for _, t := range rc.Context.TasksByCategory(CategoryFeature) {
			anchored := false
			for _, dep := range t.DependsOn {
				if archIDs[dep] {
					anchored = true
					break
				}
			}
			if !anchored {
				unanchored = append(unanchored, t.ID)
			}
		}
		if len(unanchored) > 0 {
			issues = append(issues, ValidationIssue{
				Component:       ComponentTasks,
				Severity:        SeverityWarning,
				Message:         fmt.Sprintf("%d feature task(s) do not depend on any architecture task", len(unanchored)),
				AffectedTaskIDs: unanchored,
			})
		}
	}

	// Setup tasks should come before everything else in the chosen order.
	// Skipped when the graph is cyclic and no dependency-safe order exists.
	if rc.Order != nil {
		category := make(map[string]TaskCategory, len(rc.Context.Tasks))
		for _, t := range rc.Context.Tasks {
			category[t.ID] = t.Category
		}
		nonSetupSeen := false
		var lateSetup []string
		for _, id := range rc.Order {
			if category[id] == CategorySetup {
				if nonSetupSeen {
					lateSetup = append(lateSetup, id)
				}
			} else if _, ok := category[id]; ok {
				nonSetupSeen = true
			}
		}
		if len(lateSetup) > 0 {
			issues = append(issues, ValidationIssue{
				Component:       ComponentTasks,
				Severity:        SeverityWarning,
				Message:         fmt.Sprintf("%d setup task(s) are scheduled after non-setup work", len(lateSetup)),
				AffectedTaskIDs: lateSetup,
			})
		}
	}
	return issues
}

// -----------------------------------------------------------------------------
// Rule: PRD coverage
// -----------------------------------------------------------------------------

func rulePRDCoverage(rc *RuleContext) []ValidationIssue {
	requirements := ExtractRequirements(rc.Context.PRD)
	if len(requirements) == 0 {
		return nil
	}

	var sb strings.Builder
	for _, t := range rc.Context.Tasks {
		sb.WriteString(t.Title)
		sb.WriteByte('\n')
		sb.WriteString(t.Details)
		sb.WriteByte('\n')
	}
	haystack := NormalizeRequirement(sb.String())

	covered := 0
	var uncovered []string
	for _, req := range requirements {
		if strings.Contains(haystack, NormalizeRequirement(req)) {
			covered++
		} else {
			uncovered = append(uncovered, req)
		}
	}
	coverage := float64(covered) / float64(len(requirements))

	severity := SeverityInfo
	switch {
	case coverage < coverageErrorThreshold:
		severity = SeverityError
	case coverage < coverageWarnThreshold:
		severity = SeverityWarning
	default:
		return nil
	}

	msg := fmt.Sprintf("tasks cover %d of %d PRD requirements (%.0f%%)",
		covered, len(requirements), coverage*100)
	if len(uncovered) > 0 {
		preview := uncovered
		if len(preview) > 3 {
			preview = preview[:3]
		}
		msg += "; uncovered: " + strings.Join(preview, "; ")
	}
	return []ValidationIssue{{
		Component: ComponentPRDCoverage,
		Severity:  severity,
		Message:   msg,
	}}
}

// containsAny reports whether haystack contains at least one keyword.
func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/planforge/planforge/internal/config"
	"github.com/planforge/planforge/internal/errors"
	"github.com/planforge/planforge/internal/logging"
	"github.com/planforge/planforge/internal/planner"
)

// CommandBackend generates plans by invoking an external command. The prompt
// is written to the command's stdin and its stdout must contain a single
// JSON plan object, optionally wrapped in a markdown code fence.
type CommandBackend struct {
	command string
	args    []string
	cfg     config.GeneratorConfig
	logger  *logging.Logger
}

// NewCommandBackend creates a command backend from generator config.
func NewCommandBackend(cfg config.GeneratorConfig, logger *logging.Logger) *CommandBackend {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &CommandBackend{
		command: cfg.Command,
		args:    append([]string(nil), cfg.Args...),
		cfg:     cfg,
		logger:  logger.WithComponent("collab.command"),
	}
}

func (c *CommandBackend) Name() BackendName { return BackendCommand }

func (c *CommandBackend) DisplayName() string { return "Command: " + c.command }

// wirePlan is the JSON contract the external generator must produce.
type wirePlan struct {
	Architecture   string     `json:"architecture"`
	Specifications string     `json:"specifications"`
	FileStructure  string     `json:"file_structure"`
	Tasks          []wireTask `json:"tasks"`
}

// wireTask tolerates the field-name drift generators tend to produce:
// "depends" for "depends_on" and "description" for "details".
type wireTask struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Details           string   `json:"details"`
	Description       string   `json:"description"` // Alternative name
	Category          string   `json:"category"`
	Priority          int      `json:"priority"`
	DependsOn         []string `json:"depends_on"`
	Depends           []string `json:"depends"` // Alternative name
	Files             []string `json:"files,omitempty"`
	EstimatedDuration string   `json:"estimated_duration,omitempty"`
}

// Generate invokes the external command with a generation prompt and parses
// its output into a refined context.
func (c *CommandBackend) Generate(ctx context.Context, req planner.GenerationRequest) (*planner.RefinedContext, error) {
	prompt := buildGeneratePrompt(req)
	output, err := c.run(ctx, prompt)
	if err != nil {
		return nil, errors.NewGenerationError("generator command failed", err).
			WithStage("generate").
			WithRetryable(true)
	}
	return parsePlanOutput(output)
}

// Refine invokes the external command with the current plan and its
// validation findings, asking for targeted improvements.
func (c *CommandBackend) Refine(ctx context.Context, pc *planner.ProjectContext, report *planner.ValidationReport) (*planner.RefinedContext, error) {
	prompt := buildRefinePrompt(pc, report)
	output, err := c.run(ctx, prompt)
	if err != nil {
		return nil, errors.NewGenerationError("refiner command failed", err).
			WithStage("refine").
			WithRetryable(true)
	}
	return parsePlanOutput(output)
}

// run executes the configured command with the prompt on stdin and returns
// its stdout. The configured timeout bounds the whole invocation.
func (c *CommandBackend) run(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.command) == "" {
		return "", fmt.Errorf("no generator command configured")
	}

	if t := c.cfg.Timeout(); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.command, c.args...)
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("running generator command", "command", c.command, "prompt_bytes", len(prompt))
	if err := cmd.Run(); err != nil {
		c.logger.Error("generator command failed",
			"command", c.command, "error", err, "stderr", truncateForLog(stderr.String()))
		return "", fmt.Errorf("%s: %w", c.command, err)
	}
	return stdout.String(), nil
}

// parsePlanOutput extracts and decodes the JSON plan object from raw command
// output. Output with no parseable plan is a structural failure, not a
// transient one.
func parsePlanOutput(output string) (*planner.RefinedContext, error) {
	jsonStr := extractJSONObject(output)
	if jsonStr == "" {
		return nil, errors.NewInvalidTaskError(-1, "no JSON plan object in generator output")
	}

	var plan wirePlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return nil, errors.NewInvalidTaskError(-1, fmt.Sprintf("malformed plan JSON: %v", err))
	}

	rc := &planner.RefinedContext{}
	if plan.Architecture != "" {
		rc.Architecture = &plan.Architecture
	}
	if plan.Specifications != "" {
		rc.Specifications = &plan.Specifications
	}
	if plan.FileStructure != "" {
		rc.FileStructure = &plan.FileStructure
	}
	for _, wt := range plan.Tasks {
		details := wt.Details
		if details == "" {
			details = wt.Description
		}
		deps := wt.DependsOn
		if len(deps) == 0 {
			deps = wt.Depends
		}
		rc.Tasks = append(rc.Tasks, planner.Task{
			ID:                wt.ID,
			Title:             wt.Title,
			Details:           details,
			Category:          planner.ParseCategory(wt.Category),
			Priority:          wt.Priority,
			DependsOn:         deps,
			Files:             wt.Files,
			EstimatedDuration: parseWireDuration(wt.EstimatedDuration),
		})
	}
	return rc, nil
}

// parseWireDuration converts a generator duration estimate into a
// time.Duration. Go syntax ("2h", "90m") is tried first, then the "2 hours" /
// "30 minutes" phrasing generators tend to produce. Anything unparseable
// maps to zero; estimates are advisory.
func parseWireDuration(s string) time.Duration {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	switch strings.TrimSuffix(fields[1], "s") {
	case "minute", "min":
		return time.Duration(n * float64(time.Minute))
	case "hour", "hr":
		return time.Duration(n * float64(time.Hour))
	case "day":
		return time.Duration(n * 24 * float64(time.Hour))
	}
	return 0
}

// extractJSONObject returns the first balanced top-level JSON object in the
// text, stripping markdown code fences first. Returns "" when none exists.
func extractJSONObject(text string) string {
	text = stripCodeFences(text)

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// stripCodeFences removes markdown ``` fences so fenced JSON parses cleanly.
func stripCodeFences(text string) string {
	var sb strings.Builder
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func truncateForLog(s string) string {
	const max = 500
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// buildGeneratePrompt assembles the generation prompt: the PRD plus the
// output contract.
func buildGeneratePrompt(req planner.GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString("You are a project planning assistant. Read the PRD below and produce an implementation plan.\n\n")
	sb.WriteString("# PRD\n\n")
	sb.WriteString(req.PRD)
	sb.WriteString("\n\n")
	if req.Architecture != "" {
		sb.WriteString("# Existing Architecture\n\n")
		sb.WriteString(req.Architecture)
		sb.WriteString("\n\n")
	}
	if req.FileStructure != "" {
		sb.WriteString("# Existing File Structure\n\n")
		sb.WriteString(req.FileStructure)
		sb.WriteString("\n\n")
	}
	sb.WriteString(outputContract)
	return sb.String()
}

// buildRefinePrompt assembles the refinement prompt: current plan state plus
// the validation findings to address.
func buildRefinePrompt(pc *planner.ProjectContext, report *planner.ValidationReport) string {
	var sb strings.Builder
	sb.WriteString("You are a project planning assistant. Improve the plan below so it resolves the listed issues.\n\n")
	sb.WriteString("# PRD\n\n")
	sb.WriteString(pc.PRD)
	sb.WriteString("\n\n# Current Architecture\n\n")
	sb.WriteString(pc.Architecture)
	sb.WriteString("\n\n# Current File Structure\n\n")
	sb.WriteString(pc.FileStructure)
	sb.WriteString("\n\n# Current Tasks\n\n")
	if data, err := json.MarshalIndent(pc.Tasks, "", "  "); err == nil {
		sb.Write(data)
	}
	sb.WriteString("\n\n# Validation Issues\n\n")
	if report != nil {
		for _, issue := range report.Issues {
			fmt.Fprintf(&sb, "- [%s/%s] %s\n", issue.Component, issue.Severity, issue.Message)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(outputContract)
	return sb.String()
}

const outputContract = `# Output

Respond with exactly one JSON object, no prose, in this shape:

{
  "architecture": "description of components, data storage, and APIs",
  "file_structure": "indented directory tree",
  "tasks": [
    {
      "id": "task-1",
      "title": "short imperative title",
      "details": "what to build",
      "category": "setup|architecture|feature|testing|documentation|deployment",
      "priority": 5,
      "depends_on": ["task-ids"],
      "files": ["paths/from/file_structure"]
    }
  ]
}
`

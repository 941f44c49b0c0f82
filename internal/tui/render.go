package tui

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/planforge/planforge/internal/planner"
	"github.com/planforge/planforge/internal/util"
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 100

// TerminalWidth returns the current terminal width, or a sane default when
// output is redirected.
func TerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultWidth
}

// RenderReport formats a validation report for terminal output.
func RenderReport(report *planner.ValidationReport, width int) string {
	if report == nil {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}

	var sb strings.Builder
	sb.WriteString(SectionHeader.Render("Validation"))
	sb.WriteByte('\n')

	score := fmt.Sprintf("%.0f%%", report.Score()*100)
	switch report.Status {
	case planner.ValidationPassed:
		score = scorePassStyle.Render(score)
	case planner.ValidationWarning:
		score = scoreWarnStyle.Render(score)
	default:
		score = scoreFailStyle.Render(score)
	}
	fmt.Fprintf(&sb, "  score %s  (%d passed, %d warned, %d failed of %d checks)\n",
		score, report.Passed, report.Warnings, report.Failed, report.Total)

	if len(report.Issues) == 0 {
		sb.WriteString(Muted.Render("  no issues"))
		sb.WriteByte('\n')
		return sb.String()
	}

	for _, issue := range report.Issues {
		marker := SeverityStyle(string(issue.Severity)).Render(severityMarker(issue.Severity))
		line := fmt.Sprintf("  %s [%s] %s", marker, issue.Component, issue.Message)
		if len(issue.AffectedTaskIDs) > 0 {
			line += Muted.Render(" (" + strings.Join(issue.AffectedTaskIDs, ", ") + ")")
		}
		sb.WriteString(util.TruncateANSI(line, width))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func severityMarker(severity planner.IssueSeverity) string {
	switch severity {
	case planner.SeverityError:
		return "✗"
	case planner.SeverityWarning:
		return "!"
	default:
		return "·"
	}
}

// RenderOrder formats an execution order with its parallel batches.
func RenderOrder(pc *planner.ProjectContext, order *planner.ExecutionOrder, width int) string {
	if order == nil {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}

	var sb strings.Builder
	sb.WriteString(SectionHeader.Render("Execution Order"))
	sb.WriteByte('\n')
	if order.Degraded {
		sb.WriteString(Warning.Render("  dependency cycle detected; order is category/priority only"))
		sb.WriteByte('\n')
	}

	for i, id := range order.Order {
		sb.WriteString(util.TruncateANSI("  "+orderLine(pc, i+1, id), width))
		sb.WriteByte('\n')
	}

	if order.BatchCount() > 0 {
		sb.WriteByte('\n')
		sb.WriteString(SectionHeader.Render("Parallel Batches"))
		sb.WriteByte('\n')
		for i, batch := range order.Batches {
			line := fmt.Sprintf("  batch %d: %s", i+1, strings.Join(batch, ", "))
			sb.WriteString(util.TruncateANSI(line, width))
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func orderLine(pc *planner.ProjectContext, position int, id string) string {
	if pc != nil {
		if task := pc.TaskByID(id); task != nil {
			category := CategoryStyle(string(task.Category)).Render(string(task.Category))
			return fmt.Sprintf("%2d. %s  %s  %s", position, id, category, task.Title)
		}
	}
	return fmt.Sprintf("%2d. %s", position, id)
}

// RenderResult formats a complete orchestration result: summary line,
// validation report, and execution order.
func RenderResult(result *planner.Result, width int) string {
	if result == nil {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}

	var sb strings.Builder
	sb.WriteString(Title.Render("Plan"))
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "  %d tasks, %d refinement iteration(s), context version %d\n\n",
		len(result.Context.Tasks), result.Iterations, result.Context.Version)

	sb.WriteString(RenderReport(result.Report, width))
	sb.WriteByte('\n')
	sb.WriteString(RenderOrder(result.Context, result.Order, width))
	return sb.String()
}

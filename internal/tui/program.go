package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/planforge/planforge/internal/planner"
	"github.com/planforge/planforge/internal/util"
)

// maxVisibleEvents bounds the scrollback shown while a run is in flight.
const maxVisibleEvents = 8

// maxEventLineLen bounds one scrollback line so long generator messages do
// not wrap mid-render.
const maxEventLineLen = 96

// eventMsg wraps an orchestrator event for the bubbletea loop.
type eventMsg planner.Event

// eventsClosedMsg signals that the orchestrator closed its event stream.
type eventsClosedMsg struct{}

// ProgressModel is a bubbletea model that displays orchestration progress
// from a planner event stream.
type ProgressModel struct {
	spinner spinner.Model
	events  <-chan planner.Event

	phase     planner.Phase
	iteration int
	score     float64
	recent    []string
	done      bool
	canceled  bool
}

// NewProgressModel creates a progress model consuming the given event stream.
func NewProgressModel(events <-chan planner.Event) ProgressModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = Primary
	return ProgressModel{
		spinner: sp,
		events:  events,
		phase:   planner.PhaseGenerate,
	}
}

// NewProgram wraps the progress model in a ready-to-run bubbletea program.
func NewProgram(events <-chan planner.Event) *tea.Program {
	return tea.NewProgram(NewProgressModel(events))
}

// Canceled reports whether the user interrupted the run.
func (m ProgressModel) Canceled() bool { return m.canceled }

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.canceled = true
			return m, tea.Quit
		}
		return m, nil

	case eventMsg:
		ev := planner.Event(msg)
		m.phase = ev.Phase
		m.iteration = ev.Iteration
		if ev.Score > 0 {
			m.score = ev.Score
		}
		m.recent = append(m.recent, ev.Message)
		if len(m.recent) > maxVisibleEvents {
			m.recent = m.recent[len(m.recent)-maxVisibleEvents:]
		}
		if ev.Phase == planner.PhaseComplete || ev.Phase == planner.PhaseFailed {
			m.done = true
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var sb strings.Builder

	if m.done {
		sb.WriteString(Secondary.Render("✓ planning finished"))
	} else {
		fmt.Fprintf(&sb, "%s %s", m.spinner.View(), phaseLabel(m.phase))
		if m.iteration > 0 {
			fmt.Fprintf(&sb, " (iteration %d)", m.iteration)
		}
		if m.score > 0 {
			fmt.Fprintf(&sb, "  score %.2f", m.score)
		}
	}
	sb.WriteByte('\n')

	for _, line := range m.recent {
		sb.WriteString(Muted.Render("  " + util.TruncateString(line, maxEventLineLen)))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// waitForEvent blocks on the next orchestrator event.
func waitForEvent(events <-chan planner.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func phaseLabel(phase planner.Phase) string {
	switch phase {
	case planner.PhaseGenerate:
		return "generating plan"
	case planner.PhaseValidate:
		return "validating plan"
	case planner.PhaseRefine:
		return "refining plan"
	case planner.PhaseOrder:
		return "ordering tasks"
	default:
		return string(phase)
	}
}

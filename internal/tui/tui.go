package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	stepStyle  = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	severityStyles = map[model.Severity]lipgloss.Style{
		model.SeverityCritical: lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		model.SeverityHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		model.SeverityMedium:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		model.SeverityLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		model.SeverityInfo:     lipgloss.NewStyle().Faint(true),
	}
)

type eventMsg model.ProgressEvent

type closedMsg struct{}

type modelT struct {
	events   <-chan model.ProgressEvent
	progress int
	step     string
	status   model.JobStatus
	result   *model.MergedResult
	errMsg   string
}

func waitForEvent(ch <-chan model.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m modelT) Init() tea.Cmd { return waitForEvent(m.events) }

func (m modelT) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.progress = msg.Progress
		m.step = msg.CurrentStep
		m.status = msg.Status
		m.result = msg.Result
		m.errMsg = msg.Error
		if msg.Status.Terminal() {
			return m, tea.Quit
		}
		return m, waitForEvent(m.events)
	case closedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m modelT) View() string {
	var b strings.Builder
	fmt.Fprintln(&b, titleStyle.Render("Contract analysis"))
	fmt.Fprintf(&b, "status: %s  progress: %d%%\n", m.status, m.progress)
	if m.step != "" {
		fmt.Fprintln(&b, stepStyle.Render(m.step))
	}
	if m.errMsg != "" {
		fmt.Fprintln(&b, errStyle.Render("error: "+m.errMsg))
	}
	if m.result != nil {
		fmt.Fprintf(&b, "\nVulnerabilities (%d)\n", m.result.Statistics.TotalVulnerabilities)
		for _, f := range m.result.Vulnerabilities {
			sev := severityStyles[f.Severity].Render(string(f.Severity))
			fmt.Fprintf(&b, "  [%s] %s line %d: %s (conf=%.2f)\n", sev, f.Kind, f.Line, f.Message, f.Confidence)
		}
		for _, f := range m.result.Warnings {
			sev := severityStyles[f.Severity].Render(string(f.Severity))
			fmt.Fprintf(&b, "  [%s] %s line %d: %s\n", sev, f.Kind, f.Line, f.Message)
		}
	}
	return b.String()
}

// Run renders a job's progress stream until it terminates.
func Run(events <-chan model.ProgressEvent) error {
	p := tea.NewProgram(modelT{events: events})
	_, err := p.Run()
	return err
}

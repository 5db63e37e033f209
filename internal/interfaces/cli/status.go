package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/realies/rpi-compute-node/internal/core/domain/provision"
	"github.com/realies/rpi-compute-node/internal/interfaces/di"
)

// NewStatusCommand creates the status command: a read-only convergence view
// of every provisioning step.
func NewStatusCommand() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how far the host has converged",
		Long: `Evaluate every provisioning step's convergence check and display the
result. Nothing on the host is modified.

By default an interactive view opens; --plain prints one line per step and
exits, for use in scripts and over dumb terminals.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			container, err := di.NewContainer(configPath, os.Stderr)
			if err != nil {
				return err
			}

			if plain {
				printReports(cmd, container)
				return nil
			}

			model := newStatusModel(container)
			program := tea.NewProgram(model)
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("status view failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Print step status without the interactive view")

	return cmd
}

var (
	statusTitleStyle  = lipgloss.NewStyle().Bold(true)
	statusDetailStyle = lipgloss.NewStyle().Faint(true)
)

// reportsMsg carries the evaluated step reports into the model.
type reportsMsg []provision.StepReport

// statusModel is the Bubble Tea model behind the status view.
type statusModel struct {
	container *di.Container
	reports   []provision.StepReport
	loaded    bool
	quitting  bool
}

func newStatusModel(container *di.Container) statusModel {
	return statusModel{container: container}
}

// Init implements the Bubble Tea init method.
func (m statusModel) Init() tea.Cmd {
	return m.evaluateCmd()
}

func (m statusModel) evaluateCmd() tea.Cmd {
	return func() tea.Msg {
		return reportsMsg(m.container.Provisioner.Evaluate(context.Background()))
	}
}

// Update implements the Bubble Tea update method.
func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsMsg:
		m.reports = msg
		m.loaded = true
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			m.loaded = false
			return m, m.evaluateCmd()
		}
	}
	return m, nil
}

// View implements the Bubble Tea view method.
func (m statusModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(statusTitleStyle.Render("rpi-compute-node convergence"))
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString("evaluating steps...\n")
		return b.String()
	}

	converged := 0
	for _, report := range m.reports {
		var mark string
		switch {
		case report.Err != nil:
			mark = errStyle.Render("✗")
		case report.Converged:
			mark = okStyle.Render("✓")
			converged++
		default:
			mark = pendingStyle.Render("…")
		}
		detail := report.Detail
		if report.Err != nil {
			detail = report.Err.Error()
		}
		b.WriteString(fmt.Sprintf("%s %-18s %s\n", mark, report.Name, statusDetailStyle.Render(detail)))
	}

	b.WriteString(fmt.Sprintf("\n%d/%d steps satisfied · r to re-check · q to quit\n",
		converged, len(m.reports)))
	return b.String()
}

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/bnema/opsbot/internal/application"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type sessionDoneMsg struct {
	err error
}

type stepStartedMsg application.StepProgress

var (
	spinnerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// sessionSpinnerModel shows the connect label until the first step starts,
// then the running step and how many remain.
type sessionSpinnerModel struct {
	spinner spinner.Model
	label   string
	step    application.StepProgress
	work    tea.Cmd
	err     error
	done    bool
}

func newSessionSpinnerModel(label string, work tea.Cmd) sessionSpinnerModel {
	return sessionSpinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		label:   label,
		work:    work,
	}
}

func (m sessionSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.work)
}

func (m sessionSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case stepStartedMsg:
		m.step = application.StepProgress(msg)
		return m, nil
	case sessionDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m sessionSpinnerModel) View() string {
	if m.done {
		return ""
	}
	if m.step.Index == 0 {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
	}

	counter := progressStyle.Render(fmt.Sprintf("[%d/%d]", m.step.Index, m.step.Total))
	return fmt.Sprintf("%s %s %s", m.spinner.View(), counter, m.step.Action)
}

// runWithSpinner animates output while work runs, following the steps work
// reports through progress. The program is not bound to ctx: work observes
// ctx itself so its result is never dropped.
func runWithSpinner(ctx context.Context, output io.Writer, label string, work func(ctx context.Context, progress func(application.StepProgress)) error) error {
	var p *tea.Program
	progress := func(step application.StepProgress) {
		p.Send(stepStartedMsg(step))
	}
	workCmd := func() tea.Msg {
		return sessionDoneMsg{err: work(ctx, progress)}
	}

	p = tea.NewProgram(
		newSessionSpinnerModel(label, workCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
	)

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(sessionSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}

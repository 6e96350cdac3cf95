package outcome

import (
	"errors"
	"io"

	"github.com/bnema/opsbot/internal/application"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

// model renders once on its first message and quits; View returns the frame.
type model struct {
	view   func(styles) string
	styles styles
	output string
}

func newModel(view func(styles) string) model {
	return model{view: view, styles: newStyles()}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func run(view func(styles) string) (string, error) {
	p := tea.NewProgram(
		newModel(view),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

// Render draws one line per outcome plus thread and message tables.
func Render(result application.Result, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return renderResult(result, opts, s)
	})
}

func RenderPlan(plan application.Plan) (string, error) {
	return run(func(s styles) string {
		return renderPlan(plan, s)
	})
}

func RenderAutomation(report application.AutomationReport) (string, error) {
	return run(func(s styles) string {
		return renderAutomation(report, s)
	})
}

func RenderSecretStatus(statuses []application.SecretStatus) (string, error) {
	return run(func(s styles) string {
		return renderSecretStatus(statuses, s)
	})
}

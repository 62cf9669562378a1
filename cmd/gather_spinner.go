package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type gatherDoneMsg struct {
	err error
}

type gatherSpinnerModel struct {
	spinner spinner.Model
	label   string
	err     error
	done    bool
}

func (m gatherSpinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m gatherSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case gatherDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m gatherSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runGatherSpinner shows a spinner on output while gather runs in its own
// goroutine; the result arrives at the model as a message.
func runGatherSpinner(ctx context.Context, output io.Writer, gather func(context.Context) error) error {
	m := gatherSpinnerModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		label: "Sampling sessions...",
	}

	p := tea.NewProgram(
		m,
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	go func() {
		p.Send(gatherDoneMsg{err: gather(ctx)})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := finalModel.(gatherSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.err
}

package inspect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned by RunLoader when the user presses ctrl+c.
var ErrCancelled = errors.New("cancelled")

type loadDoneMsg[T any] struct {
	value T
	err   error
}

type loaderModel[T any] struct {
	label   string
	loadFn  func(ctx context.Context) (T, error)
	timeout time.Duration
	spin    spinner.Model
	result  T
	err     error
	done    bool
}

func (m loaderModel[T]) Init() tea.Cmd {
	return tea.Batch(m.load(), m.spin.Tick)
}

func (m loaderModel[T]) load() tea.Cmd {
	loadFn, timeout := m.loadFn, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		v, err := loadFn(ctx)
		return loadDoneMsg[T]{value: v, err: err}
	}
}

func (m loaderModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadDoneMsg[T]:
		m.result = msg.value
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel[T]) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s...\n", m.spin.View(), m.label)
}

func newLoader[T any](label string, timeout time.Duration, loadFn func(ctx context.Context) (T, error)) loaderModel[T] {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel[T]{label: label, loadFn: loadFn, timeout: timeout, spin: s}
}

// RunLoader shows a spinner labelled label while loadFn runs. It renders
// inline (no alt screen).
func RunLoader[T any](label string, timeout time.Duration, loadFn func(ctx context.Context) (T, error)) (T, error) {
	p := tea.NewProgram(newLoader(label, timeout, loadFn))
	result, err := p.Run()
	if err != nil {
		var zero T
		return zero, err
	}
	final := result.(loaderModel[T])
	return final.result, final.err
}

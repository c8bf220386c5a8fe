package progress

import (
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// Terminal is an Observer that drives a bubbletea program rendering a
// live progress bar plus a scrolling log of Info/Warn messages. It is
// safe for concurrent use: every event is forwarded to the program
// through tea.Program.Send, which bubbletea serializes onto its own
// update loop.
type Terminal struct {
	prog       *tea.Program
	done       chan struct{}
	finishOnce sync.Once
}

// NewTerminal starts a bubbletea program on stderr so stdout stays free
// for machine-readable command output (e.g. inspect --json).
func NewTerminal(label string) *Terminal {
	m := terminalModel{label: label, bar: progress.New(progress.WithDefaultGradient())}
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	t := &Terminal{prog: p, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		p.Run()
	}()
	return t
}

func (t *Terminal) Start(total int) { t.prog.Send(startMsg{total: total}) }
func (t *Terminal) Inc(n int)       { t.prog.Send(incMsg{n: n}) }
func (t *Terminal) Info(msg string) { t.prog.Send(logMsg{text: msg}) }
func (t *Terminal) Warn(msg string) { t.prog.Send(logMsg{text: msg, warn: true}) }

// Finish is idempotent: both the core pipeline (on success) and the CLI
// command's own deferred cleanup (on an early error, before the pipeline
// ever reaches its own Finish) call it, and only the first call should
// actually stop the program.
func (t *Terminal) Finish(msg string) {
	t.finishOnce.Do(func() {
		t.prog.Send(finishMsg{text: msg})
		<-t.done
	})
}

type startMsg struct{ total int }
type incMsg struct{ n int }
type logMsg struct {
	text string
	warn bool
}
type finishMsg struct{ text string }

type terminalModel struct {
	label    string
	bar      progress.Model
	total    int
	current  int
	messages []string
	final    string
	quitting bool
}

func (m terminalModel) Init() tea.Cmd { return nil }

func (m terminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		m.total = msg.total
		return m, nil
	case incMsg:
		m.current += msg.n
		percent := 0.0
		if m.total > 0 {
			percent = float64(m.current) / float64(m.total)
		}
		return m, m.bar.SetPercent(percent)
	case logMsg:
		line := labelStyle.Render(msg.text)
		if msg.warn {
			line = warnStyle.Render("warn: " + msg.text)
		}
		m.messages = append(m.messages, line)
		if len(m.messages) > 5 {
			m.messages = m.messages[len(m.messages)-5:]
		}
		return m, nil
	case finishMsg:
		m.final = msg.text
		m.quitting = true
		return m, tea.Quit
	case progress.FrameMsg:
		newModel, cmd := m.bar.Update(msg)
		m.bar = newModel.(progress.Model)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m terminalModel) View() string {
	if m.quitting {
		return headerStyle.Render(m.label) + ": " + m.final + "\n"
	}
	out := headerStyle.Render(m.label) + "\n" + m.bar.View() + "\n"
	for _, line := range m.messages {
		out += line + "\n"
	}
	return out
}

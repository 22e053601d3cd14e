package plot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// figureMsg carries a new figure to draw.
type figureMsg struct{ fig Figure }

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// statusMsg replaces the status line.
type statusMsg struct{ line string }

const (
	maxLogLines = 1000
	chartHeight = 6
	minChartW   = 10
)

// TUIRenderer draws figures in a live bubbletea dashboard. It also implements
// io.Writer so a log handler can stream into the dashboard log pane.
type TUIRenderer struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
	// fallback receives log lines once the dashboard has exited.
	fallback io.Writer

	mu      sync.Mutex
	partial []byte
}

// NewTUIRenderer starts a bubbletea program and returns a TUIRenderer. When
// the user quits the dashboard the process receives an interrupt. Log lines
// written after the dashboard exits go to fallback.
func NewTUIRenderer(title string, fallback io.Writer) *TUIRenderer {
	w := &TUIRenderer{done: make(chan struct{}), fallback: fallback}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(title), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Render implements Renderer.
func (w *TUIRenderer) Render(fig Figure) error {
	w.program.Send(figureMsg{fig: fig})
	return nil
}

// Write splits p into lines and appends them to the log pane.
func (w *TUIRenderer) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.partial = append(w.partial, p...)
	var lines []string
	for {
		i := bytes.IndexByte(w.partial, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(w.partial[:i], "\r")))
		w.partial = w.partial[i+1:]
	}
	w.mu.Unlock()
	if w.exited() {
		if w.fallback == nil {
			return len(p), nil
		}
		for _, l := range lines {
			if _, err := fmt.Fprintln(w.fallback, l); err != nil {
				return 0, err
			}
		}
		return len(p), nil
	}
	for _, l := range lines {
		w.program.Send(logMsg{line: l})
	}
	return len(p), nil
}

// exited reports whether the dashboard program has stopped.
func (w *TUIRenderer) exited() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// SetStatus replaces the dashboard status line.
func (w *TUIRenderer) SetStatus(line string) {
	w.program.Send(statusMsg{line: line})
}

// Close stops the dashboard without interrupting the process.
func (w *TUIRenderer) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	title      string
	table      table.Model
	vp         viewport.Model
	logs       []string
	fig        Figure
	status     string
	wrap       bool
	autoscroll bool
	help       bool
	width      int
	height     int
}

func newTUIModel(title string) tuiModel {
	cols := []table.Column{
		{Title: "Series", Width: 22},
		{Title: "Latest", Width: 10},
		{Title: "Min", Width: 10},
		{Title: "Max", Width: 10},
		{Title: "Samples", Width: 8},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(3))
	return tuiModel{
		title:      title,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
		status:     "waiting for telemetry",
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.vp.Width = msg.Width
		m.table.SetWidth(msg.Width)
		m.updateViewportHeight()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			case "q", "ctrl+c":
				return m, tea.Quit
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case "h", "?":
			m.help = !m.help
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown":
				m.vp.LineDown(10)
			case "pgup":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
	case figureMsg:
		m.fig = msg.fig
		m.table.SetRows(summaryRows(msg.fig))
		m.updateViewportHeight()
	case logMsg:
		m.logs = append(m.logs, msg.line)
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		m.refreshViewport()
	case statusMsg:
		m.status = msg.line
	}
	return m, nil
}

func summaryRows(fig Figure) []table.Row {
	rows := make([]table.Row, 0, len(fig.Panels))
	for _, s := range fig.Panels {
		latest, ok := s.Latest()
		if !ok {
			rows = append(rows, table.Row{s.Title(), "-", "-", "-", "0"})
			continue
		}
		lo, hi := latest, latest
		for _, v := range s.Values {
			lo = min(lo, v)
			hi = max(hi, v)
		}
		rows = append(rows, table.Row{
			s.Title(),
			fmt.Sprintf("%.2f", latest),
			fmt.Sprintf("%.2f", lo),
			fmt.Sprintf("%.2f", hi),
			fmt.Sprintf("%d", len(s.Values)),
		})
	}
	return rows
}

func (m *tuiModel) updateViewportHeight() {
	used := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderCharts()) + lipgloss.Height(m.renderBottom())
	h := m.height - used - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		if m.wrap && m.vp.Width > 0 {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.width)
	sections := []string{
		m.renderHeader(),
		divider,
		m.renderCharts(),
		divider,
		m.vp.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render(m.title)
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.status)
	return lipgloss.JoinVertical(lipgloss.Left, title+"  "+status, m.table.View())
}

func (m tuiModel) renderCharts() string {
	if len(m.fig.Panels) == 0 {
		return emptyChart
	}
	w := max(m.width-labelWidth-3, minChartW)
	var parts []string
	for _, s := range m.fig.Panels {
		heading := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Render(s.Title())
		parts = append(parts, heading)
		parts = append(parts, Chart(s.Values, w, chartHeight)...)
	}
	if m.fig.XLabel != "" {
		parts = append(parts, strings.Repeat(" ", labelWidth)+" "+m.fig.XLabel+" →")
	}
	return strings.Join(parts, "\n")
}

func (m tuiModel) renderBottom() string {
	wrapColor := lipgloss.Color("9")
	if m.wrap {
		wrapColor = lipgloss.Color("10")
	}
	scrollColor := lipgloss.Color("10")
	if !m.autoscroll {
		scrollColor = lipgloss.Color("9")
	}
	wrapIndicator := lipgloss.NewStyle().Foreground(wrapColor).Render("●")
	scrollIndicator := lipgloss.NewStyle().Foreground(scrollColor).Render("●")
	return fmt.Sprintf("Wrap %s | Scroll %s | h help | q quit", wrapIndicator, scrollIndicator)
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for log lines",
		" s  toggle auto-scroll",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}

package plot

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeProgram struct{ msgs []tea.Msg }

func (f *fakeProgram) Send(msg tea.Msg) { f.msgs = append(f.msgs, msg) }

func telemetryFigure(volts, temps []float64) Figure {
	return Figure{
		Title:  "Spacecraft Telemetry",
		XLabel: "Time",
		Panels: []Series{
			{Label: "Battery Voltage", Unit: "V", Values: volts},
			{Label: "Temperature", Unit: "°C", Values: temps},
		},
	}
}

func TestChartSinglePoint(t *testing.T) {
	lines := Chart([]float64{12.3}, 10, 4)
	if len(lines) != 5 {
		t.Fatalf("expected 4 rows plus axis, got %d", len(lines))
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, pointGlyph) {
		t.Errorf("expected a plotted point:\n%s", joined)
	}
	if !strings.Contains(joined, "13.30") || !strings.Contains(joined, "11.30") {
		t.Errorf("expected padded axis around 12.3:\n%s", joined)
	}
}

func TestChartKeepsRecentWindow(t *testing.T) {
	var values []float64
	for i := 1; i <= 20; i++ {
		values = append(values, float64(i))
	}
	lines := Chart(values, 5, 3)
	if !strings.Contains(lines[0], "20.00") {
		t.Errorf("top label should be newest max: %q", lines[0])
	}
	if !strings.Contains(lines[2], "16.00") {
		t.Errorf("bottom label should be window min: %q", lines[2])
	}
	if got := strings.Count(strings.Join(lines, ""), pointGlyph); got != 5 {
		t.Errorf("expected 5 points, got %d", got)
	}
}

func TestChartEmpty(t *testing.T) {
	if lines := Chart(nil, 10, 4); len(lines) != 1 || lines[0] != emptyChart {
		t.Fatalf("unexpected empty chart %q", lines)
	}
}

func TestTextRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewTextRenderer(&buf)
	if err := r.Render(telemetryFigure([]float64{12.3}, []float64{21.5})); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Spacecraft Telemetry", "Battery Voltage (V)", "Temperature (°C)", "latest=12.30", "latest=21.50", "Time"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestTextRendererWriteError(t *testing.T) {
	r := NewTextRenderer(failingWriter{})
	if err := r.Render(telemetryFigure([]float64{1}, []float64{2})); err == nil {
		t.Fatal("expected write error")
	}
}

func TestTUIRendererMessages(t *testing.T) {
	p := &fakeProgram{}
	w := &TUIRenderer{program: p}
	if err := w.Render(telemetryFigure([]float64{12.3}, []float64{21.5})); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, ok := p.msgs[0].(figureMsg); !ok {
		t.Fatalf("expected figureMsg, got %T", p.msgs[0])
	}
	n, err := w.Write([]byte("first\nsec"))
	if err != nil || n != 9 {
		t.Fatalf("write = %d, %v", n, err)
	}
	w.Write([]byte("ond\n"))
	if len(p.msgs) != 3 {
		t.Fatalf("expected 2 log lines, got %d msgs", len(p.msgs)-1)
	}
	if lm := p.msgs[2].(logMsg); lm.line != "second" {
		t.Errorf("expected buffered partial line, got %q", lm.line)
	}
	w.SetStatus("connected")
	if _, ok := p.msgs[3].(statusMsg); !ok {
		t.Fatalf("expected statusMsg, got %T", p.msgs[3])
	}
}

func TestTUIRendererFallbackAfterExit(t *testing.T) {
	p := &fakeProgram{}
	var out bytes.Buffer
	w := &TUIRenderer{program: p, done: make(chan struct{}), fallback: &out}
	w.Write([]byte("Command sent\n"))
	if len(p.msgs) != 1 || out.Len() != 0 {
		t.Fatalf("running dashboard should get the line, msgs=%d out=%q", len(p.msgs), out.String())
	}

	close(w.done)
	n, err := w.Write([]byte("Exiting ground station simulation...\n"))
	if err != nil || n != 37 {
		t.Fatalf("write = %d, %v", n, err)
	}
	if len(p.msgs) != 1 {
		t.Errorf("exited dashboard should not receive messages")
	}
	if out.String() != "Exiting ground station simulation...\n" {
		t.Errorf("expected line on fallback writer, got %q", out.String())
	}
}

func TestTUIModelView(t *testing.T) {
	m := newTUIModel("Spacecraft Telemetry")
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	m = mi.(tuiModel)
	mi, _ = m.Update(figureMsg{fig: telemetryFigure([]float64{12.3, 12.8}, []float64{21.5, 20.1})})
	m = mi.(tuiModel)
	mi, _ = m.Update(logMsg{line: "Telemetry received"})
	m = mi.(tuiModel)
	view := m.View()
	for _, want := range []string{"Battery Voltage (V)", "Temperature (°C)", "12.80", "Telemetry received"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestTUIModelKeys(t *testing.T) {
	m := newTUIModel("t")
	mi, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !m.wrap {
		t.Errorf("expected wrap enabled")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = mi.(tuiModel)
	if m.autoscroll {
		t.Errorf("expected autoscroll disabled")
	}
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	m = mi.(tuiModel)
	if !m.help || !strings.Contains(m.View(), "Key Bindings") {
		t.Errorf("expected help view")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("expected tea.QuitMsg")
	}
}

func TestWrapToggle(t *testing.T) {
	m := newTUIModel("t")
	mi, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 60})
	m = mi.(tuiModel)
	long := "one two three four five six seven"
	mi, _ = m.Update(logMsg{line: long})
	m = mi.(tuiModel)
	mi, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}})
	m = mi.(tuiModel)
	if !strings.Contains(m.vp.View(), "one two three") || strings.Contains(m.vp.View(), long) {
		t.Errorf("expected wrapped log line, got %q", m.vp.View())
	}
}

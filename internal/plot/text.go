package plot

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// TextRenderer writes each figure as plain text charts.
type TextRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	Width  int
	Height int
}

// NewTextRenderer returns a TextRenderer writing 60x8 charts to out.
func NewTextRenderer(out io.Writer) *TextRenderer {
	return &TextRenderer{out: out, Width: 60, Height: 8}
}

// Render implements Renderer.
func (r *TextRenderer) Render(fig Figure) error {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", fig.Title)
	for _, s := range fig.Panels {
		latest, _ := s.Latest()
		fmt.Fprintf(&b, "%s  latest=%.2f samples=%d\n", s.Title(), latest, len(s.Values))
		for _, line := range Chart(s.Values, r.Width, r.Height) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	if fig.XLabel != "" {
		fmt.Fprintf(&b, "%s %s →\n", strings.Repeat(" ", labelWidth), fig.XLabel)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.out, b.String()); err != nil {
		return fmt.Errorf("write figure: %w", err)
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"groundstation/internal/plot"
	"groundstation/internal/station"
)

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// display bundles the renderer, the log destination and cycle hook of one
// output mode.
type display struct {
	Mode      string
	Renderer  plot.Renderer
	LogWriter io.Writer
	OnCycle   func(station.CycleReport)
	closeFn   func() error
}

func (d *display) Close() error {
	if d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// newDisplay builds the display for mode. auto picks the dashboard when
// stdout is a terminal and plain text otherwise.
func newDisplay(mode string, out io.Writer) (*display, error) {
	if mode == "auto" || mode == "" {
		mode = "text"
		if isTerminal(os.Stdout) {
			mode = "tui"
		}
	}
	switch mode {
	case "tui":
		r := plot.NewTUIRenderer(station.FigureTitle, out)
		return &display{
			Mode:      mode,
			Renderer:  r,
			LogWriter: r,
			OnCycle: func(rep station.CycleReport) {
				r.SetStatus(cycleStatus(rep))
			},
			closeFn: r.Close,
		}, nil
	case "text":
		return &display{Mode: mode, Renderer: plot.NewTextRenderer(out), LogWriter: out}, nil
	case "none":
		return &display{Mode: mode, Renderer: plot.Discard{}, LogWriter: out}, nil
	}
	return nil, fmt.Errorf("unknown display %q (want auto, tui, text or none)", mode)
}

func cycleStatus(rep station.CycleReport) string {
	s := fmt.Sprintf("cycle %d | received %t | sent %t", rep.Seq, rep.Received, rep.Sent)
	if len(rep.Errors) > 0 {
		s += fmt.Sprintf(" | %d error(s): %v", len(rep.Errors), rep.Errors[0])
	}
	return s
}

// newLogOutput tees w into a size-rotated file when path is set.
func newLogOutput(w io.Writer, path string) (io.Writer, func() error) {
	if path == "" {
		return w, func() error { return nil }
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return io.MultiWriter(w, lj), lj.Close
}

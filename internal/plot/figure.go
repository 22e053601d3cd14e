// Package plot draws telemetry series as terminal line charts.
package plot

// Series is one line plot: a label, its unit and the sampled values in order.
type Series struct {
	Label  string
	Unit   string
	Values []float64
}

// Title returns the panel heading, e.g. "Battery Voltage (V)".
func (s Series) Title() string {
	if s.Unit == "" {
		return s.Label
	}
	return s.Label + " (" + s.Unit + ")"
}

// Latest returns the last value and whether the series has any.
func (s Series) Latest() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// Figure is a set of panels sharing an x axis.
type Figure struct {
	Title  string
	XLabel string
	Panels []Series
}

// Renderer displays a figure. Render is called once per processed record.
type Renderer interface {
	Render(Figure) error
}

// Discard renders nothing.
type Discard struct{}

func (Discard) Render(Figure) error { return nil }

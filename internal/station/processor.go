package station

import (
	"groundstation/internal/plot"
	"groundstation/internal/telemetry"
)

// Figure labels.
const (
	FigureTitle      = "Spacecraft Telemetry"
	FigureXLabel     = "Time"
	VoltageLabel     = "Battery Voltage"
	VoltageUnit      = "V"
	TemperatureLabel = "Temperature"
	TemperatureUnit  = "°C"
)

// Processor decodes payloads into records and renders the plotting window.
type Processor struct {
	renderer plot.Renderer
	history  *telemetry.History
}

// NewProcessor returns a processor rendering to r over a window of
// historySize records. A nil renderer discards figures.
func NewProcessor(r plot.Renderer, historySize int) *Processor {
	if r == nil {
		r = plot.Discard{}
	}
	return &Processor{renderer: r, history: telemetry.NewHistory(historySize)}
}

// Process parses payload, appends the record to the window and renders the
// figure once. A render failure still keeps the record.
func (p *Processor) Process(payload []byte) (telemetry.Record, error) {
	rec, err := telemetry.Parse(payload)
	if err != nil {
		return telemetry.Record{}, newError(KindParseFailed, "parse telemetry", err)
	}
	p.history.Add(rec)
	if err := p.renderer.Render(p.Figure()); err != nil {
		return rec, newError(KindRenderFailed, "render telemetry", err)
	}
	return rec, nil
}

// Figure builds the two-panel figure of the current window.
func (p *Processor) Figure() plot.Figure {
	return plot.Figure{
		Title:  FigureTitle,
		XLabel: FigureXLabel,
		Panels: []plot.Series{
			{Label: VoltageLabel, Unit: VoltageUnit, Values: p.history.Voltages()},
			{Label: TemperatureLabel, Unit: TemperatureUnit, Values: p.history.Temperatures()},
		},
	}
}

// History returns the plotting window.
func (p *Processor) History() *telemetry.History { return p.history }

// Telemetry record types and the in-memory plotting window
package telemetry

import (
	"sync"
	"time"
)

// Record is one decoded telemetry sample.
type Record struct {
	BatteryVoltage float64   `json:"battery_voltage"` // volts
	Temperature    float64   `json:"temperature"`     // degrees Celsius
	Timestamp      time.Time `json:"ts"`              // local receive time
}

// Simulated value ranges, lower bound inclusive.
const (
	VoltageMin     = 10.0
	VoltageMax     = 15.0
	TemperatureMin = -40.0
	TemperatureMax = 100.0
)

// History keeps the most recent records up to a fixed capacity.
type History struct {
	mu       sync.Mutex
	capacity int
	records  []Record
}

// NewHistory returns a History holding at most capacity records.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity}
}

// Add appends r, dropping the oldest record once full.
func (h *History) Add(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r)
	if len(h.records) > h.capacity {
		h.records = h.records[len(h.records)-h.capacity:]
	}
}

// Records returns a copy of the window, oldest first.
func (h *History) Records() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// Len reports how many records are held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// Voltages returns the battery voltage series of the window.
func (h *History) Voltages() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.records))
	for i, r := range h.records {
		out[i] = r.BatteryVoltage
	}
	return out
}

// Temperatures returns the temperature series of the window.
func (h *History) Temperatures() []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.records))
	for i, r := range h.records {
		out[i] = r.Temperature
	}
	return out
}

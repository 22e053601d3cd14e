package telemetry

import (
	"math/rand"
	"sync"
	"time"
)

// Generator simulates the telemetry a spacecraft would send.
type Generator struct {
	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

// NewGenerator creates a generator. A zero seed seeds from the clock.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rand: rand.New(rand.NewSource(seed)), now: time.Now}
}

// Generate returns a record with battery voltage in [10,15) and temperature
// in [-40,100).
func (g *Generator) Generate() Record {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Record{
		BatteryVoltage: uniform(g.rand, VoltageMin, VoltageMax),
		Temperature:    uniform(g.rand, TemperatureMin, TemperatureMax),
		Timestamp:      g.now().UTC(),
	}
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	v := lo + r.Float64()*(hi-lo)
	// guard against rounding up onto the exclusive bound
	if v >= hi {
		v = lo
	}
	return v
}

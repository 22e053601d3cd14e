package telemetry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Format selects the textual payload encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatLiteral Format = "literal"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatLiteral:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown payload format %q", s)
}

type wireRecord struct {
	BatteryVoltage float64 `json:"battery_voltage"`
	Temperature    float64 `json:"temperature"`
}

// Encode renders the two telemetry fields of r in format f.
func Encode(r Record, f Format) ([]byte, error) {
	switch f {
	case FormatJSON, "":
		return json.Marshal(wireRecord{BatteryVoltage: r.BatteryVoltage, Temperature: r.Temperature})
	case FormatLiteral:
		return []byte(fmt.Sprintf("{'%s': %s, '%s': %s}",
			KeyBatteryVoltage, formatFloat(r.BatteryVoltage),
			KeyTemperature, formatFloat(r.Temperature))), nil
	}
	return nil, fmt.Errorf("unknown payload format %q", f)
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.ContainsRune(s, '.') {
		return s
	}
	return s + ".0"
}

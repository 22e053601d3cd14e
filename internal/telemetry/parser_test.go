package telemetry

import (
	"errors"
	"strings"
	"testing"
)

func TestParseAccepted(t *testing.T) {
	cases := map[string]string{
		"literal":      "{'battery_voltage': 12.3, 'temperature': 21.5}",
		"json":         `{"battery_voltage": 12.3, "temperature": 21.5}`,
		"reordered":    "{'temperature': 21.5, 'battery_voltage': 12.3}",
		"whitespace":   "  {'battery_voltage': 12.3, 'temperature': 21.5}\r\n",
		"compact json": `{"battery_voltage":12.3,"temperature":21.5}`,
	}
	for name, in := range cases {
		r, err := Parse([]byte(in))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
			continue
		}
		if r.BatteryVoltage != 12.3 || r.Temperature != 21.5 {
			t.Errorf("%s: unexpected record %+v", name, r)
		}
		if r.Timestamp.IsZero() {
			t.Errorf("%s: expected receive timestamp", name)
		}
	}
}

func TestParseIntegerValues(t *testing.T) {
	r, err := Parse([]byte("{'battery_voltage': 12, 'temperature': -40}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.BatteryVoltage != 12 || r.Temperature != -40 {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestParseRejected(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"blank":          "   \n",
		"executable":     "__import__('os').system('rm -rf /')",
		"call in value":  "{'battery_voltage': __import__('os').getpid(), 'temperature': 1.0}",
		"string value":   "{'battery_voltage': '12.3', 'temperature': 21.5}",
		"missing key":    "{'battery_voltage': 12.3}",
		"unknown key":    "{'battery_voltage': 12.3, 'temperature': 21.5, 'cmd': 1}",
		"duplicate key":  "{'battery_voltage': 12.3, 'battery_voltage': 13.0, 'temperature': 21.5}",
		"list":           "[12.3, 21.5]",
		"block mapping":  "battery_voltage: 12.3\ntemperature: 21.5",
		"nested":         "{'battery_voltage': {'v': 1}, 'temperature': 21.5}",
		"infinite":       "{'battery_voltage': .inf, 'temperature': 21.5}",
		"nan":            "{'battery_voltage': .nan, 'temperature': 21.5}",
		"tagged":         "{'battery_voltage': !!float 12.3, 'temperature': 21.5}",
		"anchor":         "{'battery_voltage': &a 12.3, 'temperature': *a}",
		"truncated":      "{'battery_voltage': 12.3, 'temp",
		"trailing junk":  "{'battery_voltage': 12.3, 'temperature': 21.5} extra",
		"second doc":     "{'battery_voltage': 12.3, 'temperature': 21.5}\n---\n{}",
		"null value":     "{'battery_voltage': null, 'temperature': 21.5}",
		"boolean value":  "{'battery_voltage': true, 'temperature': 21.5}",
		"invalid utf8":   "{'battery_voltage': 12.3, 'temperature': 21.5, '\xff': 1}",
		"set expression": "{12.3, 21.5}",
	}
	for name, in := range cases {
		_, err := Parse([]byte(in))
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: expected *ParseError, got %T", name, err)
		}
	}
}

func TestParseOversize(t *testing.T) {
	in := "{'battery_voltage': 12.3, 'temperature': 21.5" + strings.Repeat(" ", MaxPayloadSize) + ", 'x': 1}"
	_, err := Parse([]byte(in))
	var pe *ParseError
	if !errors.As(err, &pe) || !strings.Contains(pe.Reason, "exceeds") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestParseErrorMessage(t *testing.T) {
	_, err := Parse([]byte("{'battery_voltage': 12.3}"))
	if err == nil || !strings.Contains(err.Error(), `missing key "temperature"`) {
		t.Fatalf("unexpected error %v", err)
	}
}

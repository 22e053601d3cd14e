package telemetry

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Wire keys of a telemetry mapping.
const (
	KeyBatteryVoltage = "battery_voltage"
	KeyTemperature    = "temperature"
)

// MaxPayloadSize bounds the payload handed to the decoder.
const MaxPayloadSize = 64 * 1024

// ParseError reports a payload that is not a well-formed telemetry mapping.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telemetry: %s: %v", e.Reason, e.Err)
	}
	return "telemetry: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErr(reason string, err error) error {
	return &ParseError{Reason: reason, Err: err}
}

// Parse decodes a telemetry payload. It accepts exactly one flow mapping, as
// a JSON object or with single-quoted keys, holding the numeric keys
// battery_voltage and temperature. Nothing in the payload is evaluated.
func Parse(payload []byte) (Record, error) {
	return parseAt(payload, time.Now().UTC())
}

func parseAt(payload []byte, ts time.Time) (Record, error) {
	data := bytes.TrimSpace(payload)
	switch {
	case len(data) == 0:
		return Record{}, parseErr("empty payload", nil)
	case len(data) > MaxPayloadSize:
		return Record{}, parseErr(fmt.Sprintf("payload exceeds %d bytes", MaxPayloadSize), nil)
	case !utf8.Valid(data):
		return Record{}, parseErr("payload is not valid UTF-8", nil)
	case data[0] != '{':
		return Record{}, parseErr("payload is not a mapping literal", nil)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		return Record{}, parseErr("malformed mapping", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Record{}, parseErr("trailing content after mapping", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return Record{}, parseErr("payload is not a single document", nil)
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode || m.Style&yaml.FlowStyle == 0 {
		return Record{}, parseErr("payload is not a mapping literal", nil)
	}
	if err := checkPlain(m); err != nil {
		return Record{}, err
	}

	var voltage, temp *float64
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], m.Content[i+1]
		if k.Kind != yaml.ScalarNode || k.ShortTag() != "!!str" {
			return Record{}, parseErr("mapping keys must be strings", nil)
		}
		var dst **float64
		switch k.Value {
		case KeyBatteryVoltage:
			dst = &voltage
		case KeyTemperature:
			dst = &temp
		default:
			return Record{}, parseErr(fmt.Sprintf("unknown key %q", k.Value), nil)
		}
		if *dst != nil {
			return Record{}, parseErr(fmt.Sprintf("duplicate key %q", k.Value), nil)
		}
		f, err := number(k.Value, v)
		if err != nil {
			return Record{}, err
		}
		*dst = &f
	}
	if voltage == nil {
		return Record{}, parseErr(fmt.Sprintf("missing key %q", KeyBatteryVoltage), nil)
	}
	if temp == nil {
		return Record{}, parseErr(fmt.Sprintf("missing key %q", KeyTemperature), nil)
	}
	return Record{BatteryVoltage: *voltage, Temperature: *temp, Timestamp: ts}, nil
}

// checkPlain rejects anchors, aliases and explicit tags anywhere in the tree.
func checkPlain(n *yaml.Node) error {
	if n.Kind == yaml.AliasNode || n.Anchor != "" {
		return parseErr("anchors and aliases are not allowed", nil)
	}
	if n.Style&yaml.TaggedStyle != 0 {
		return parseErr("explicit tags are not allowed", nil)
	}
	for _, c := range n.Content {
		if err := checkPlain(c); err != nil {
			return err
		}
	}
	return nil
}

func number(key string, v *yaml.Node) (float64, error) {
	if v.Kind != yaml.ScalarNode {
		return 0, parseErr(fmt.Sprintf("%s must be a number", key), nil)
	}
	switch v.ShortTag() {
	case "!!float", "!!int":
	default:
		return 0, parseErr(fmt.Sprintf("%s must be a number, got %q", key, v.Value), nil)
	}
	var f float64
	if err := v.Decode(&f); err != nil {
		return 0, parseErr(fmt.Sprintf("%s must be a number", key), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, parseErr(fmt.Sprintf("%s must be finite", key), nil)
	}
	return f, nil
}

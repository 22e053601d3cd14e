// Package link is the stream transport between the ground station and the
// spacecraft: dialing, message framing and deadline-bounded send/receive.
package link

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Framing selects how messages are delimited on the stream.
type Framing string

const (
	// FramingLine terminates each message with '\n'.
	FramingLine Framing = "line"
	// FramingLength prefixes each message with a 4-byte big-endian length.
	FramingLength Framing = "length"
	// FramingRaw treats the bytes of a single read as one message.
	FramingRaw Framing = "raw"
)

const lengthPrefixSize = 4

var (
	ErrNoData         = errors.New("no data received")
	ErrDisconnected   = errors.New("peer disconnected")
	ErrFrameTooLarge  = errors.New("frame exceeds buffer size")
	ErrClosed         = errors.New("connection closed")
	ErrInvalidText    = errors.New("payload is not valid UTF-8")
	ErrInvalidPayload = errors.New("payload cannot be framed")
)

// ParseFraming validates a framing name. The empty string selects line framing.
func ParseFraming(s string) (Framing, error) {
	switch Framing(s) {
	case "":
		return FramingLine, nil
	case FramingLine, FramingLength, FramingRaw:
		return Framing(s), nil
	}
	return "", fmt.Errorf("unknown framing %q", s)
}

// AppendFrame appends payload to dst framed for f.
func AppendFrame(dst []byte, f Framing, payload []byte) ([]byte, error) {
	switch f {
	case FramingLine, "":
		if bytes.IndexByte(payload, '\n') >= 0 {
			return dst, fmt.Errorf("%w: newline in line-framed payload", ErrInvalidPayload)
		}
		dst = append(dst, payload...)
		return append(dst, '\n'), nil
	case FramingLength:
		if uint64(len(payload)) > math.MaxUint32 {
			return dst, fmt.Errorf("%w: %d bytes", ErrInvalidPayload, len(payload))
		}
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
		return append(dst, payload...), nil
	case FramingRaw:
		return append(dst, payload...), nil
	}
	return dst, fmt.Errorf("unknown framing %q", f)
}

// decoder accumulates stream bytes and splits them into frames. Bytes of an
// incomplete frame are kept across reads.
type decoder struct {
	framing Framing
	max     int
	buf     []byte
	// skip counts bytes still to drop from an oversize frame; -1 drops up
	// to the next newline.
	skip int
}

func newDecoder(f Framing, max int) *decoder {
	return &decoder{framing: f, max: max}
}

func (d *decoder) feed(p []byte) {
	d.buf = append(d.buf, p...)
}

func (d *decoder) pending() bool { return len(d.buf) > 0 || d.skip != 0 }

func (d *decoder) reset() {
	d.buf = d.buf[:0]
	d.skip = 0
}

// next returns the next complete frame. ok is false when more bytes are
// needed. An oversize frame yields ErrFrameTooLarge once and is then dropped.
func (d *decoder) next() (frame []byte, ok bool, err error) {
	if !d.drop() {
		return nil, false, nil
	}
	switch d.framing {
	case FramingLength:
		return d.nextLength()
	default:
		return d.nextLine()
	}
}

// drop discards the remainder of an oversize frame and reports whether the
// buffer is positioned at a frame boundary.
func (d *decoder) drop() bool {
	switch {
	case d.skip == 0:
		return true
	case d.skip < 0:
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			d.buf = d.buf[:0]
			return false
		}
		d.buf = d.buf[i+1:]
		d.skip = 0
		return true
	default:
		n := min(d.skip, len(d.buf))
		d.buf = d.buf[n:]
		d.skip -= n
		return d.skip == 0
	}
}

func (d *decoder) nextLine() ([]byte, bool, error) {
	i := bytes.IndexByte(d.buf, '\n')
	if i < 0 {
		if len(d.buf) > d.max {
			d.buf = d.buf[:0]
			d.skip = -1
			return nil, false, ErrFrameTooLarge
		}
		return nil, false, nil
	}
	line := d.take(i + 1)
	line = line[:len(line)-1]
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(line) > d.max {
		return nil, false, ErrFrameTooLarge
	}
	return line, true, nil
}

func (d *decoder) nextLength() ([]byte, bool, error) {
	if len(d.buf) < lengthPrefixSize {
		return nil, false, nil
	}
	n := int(binary.BigEndian.Uint32(d.buf))
	if n > d.max {
		d.buf = d.buf[lengthPrefixSize:]
		d.skip = n
		d.drop()
		return nil, false, ErrFrameTooLarge
	}
	if len(d.buf) < lengthPrefixSize+n {
		return nil, false, nil
	}
	frame := d.take(lengthPrefixSize + n)
	return frame[lengthPrefixSize:], true, nil
}

// take removes and returns a copy of the first n buffered bytes.
func (d *decoder) take(n int) []byte {
	out := make([]byte, n)
	copy(out, d.buf[:n])
	d.buf = d.buf[n:]
	return out
}

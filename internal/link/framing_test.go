package link

import (
	"bytes"
	"errors"
	"testing"
)

func TestParseFraming(t *testing.T) {
	for in, want := range map[string]Framing{"": FramingLine, "line": FramingLine, "length": FramingLength, "raw": FramingRaw} {
		got, err := ParseFraming(in)
		if err != nil || got != want {
			t.Errorf("ParseFraming(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFraming("udp"); err == nil {
		t.Errorf("expected error for udp")
	}
}

func TestAppendFrame(t *testing.T) {
	b, err := AppendFrame(nil, FramingLine, []byte("SET_ORBIT_POSITION"))
	if err != nil || string(b) != "SET_ORBIT_POSITION\n" {
		t.Fatalf("line frame = %q, %v", b, err)
	}
	b, err = AppendFrame(nil, FramingLength, []byte("abc"))
	if err != nil || !bytes.Equal(b, []byte{0, 0, 0, 3, 'a', 'b', 'c'}) {
		t.Fatalf("length frame = %v, %v", b, err)
	}
	if _, err := AppendFrame(nil, FramingLine, []byte("a\nb")); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestDecoderRoundTrip(t *testing.T) {
	for _, f := range []Framing{FramingLine, FramingLength} {
		var stream []byte
		msgs := []string{"one", "two", "", "{'battery_voltage': 12.3, 'temperature': 21.5}"}
		for _, m := range msgs {
			var err error
			stream, err = AppendFrame(stream, f, []byte(m))
			if err != nil {
				t.Fatalf("%s: AppendFrame: %v", f, err)
			}
		}
		d := newDecoder(f, 64)
		// feed one byte at a time
		var got []string
		for _, c := range stream {
			d.feed([]byte{c})
			for {
				frame, ok, err := d.next()
				if err != nil {
					t.Fatalf("%s: next: %v", f, err)
				}
				if !ok {
					break
				}
				got = append(got, string(frame))
			}
		}
		if len(got) != len(msgs) {
			t.Fatalf("%s: expected %d frames, got %q", f, len(msgs), got)
		}
		for i := range msgs {
			if got[i] != msgs[i] {
				t.Errorf("%s: frame %d = %q, want %q", f, i, got[i], msgs[i])
			}
		}
	}
}

func TestDecoderTrimsCR(t *testing.T) {
	d := newDecoder(FramingLine, 64)
	d.feed([]byte("hello\r\n"))
	frame, ok, err := d.next()
	if err != nil || !ok || string(frame) != "hello" {
		t.Fatalf("got %q %v %v", frame, ok, err)
	}
}

func TestDecoderOversize(t *testing.T) {
	d := newDecoder(FramingLine, 4)
	d.feed([]byte("toolong"))
	if _, _, err := d.next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	d.feed([]byte("still\nok\n"))
	frame, ok, err := d.next()
	if err != nil || !ok || string(frame) != "ok" {
		t.Fatalf("expected recovery at next frame, got %q %v %v", frame, ok, err)
	}

	d = newDecoder(FramingLength, 4)
	stream, _ := AppendFrame(nil, FramingLength, []byte("0123456789"))
	stream, _ = AppendFrame(stream, FramingLength, []byte("ok"))
	d.feed(stream[:6])
	if _, _, err := d.next(); !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
	d.feed(stream[6:])
	frame, ok, err = d.next()
	if err != nil || !ok || string(frame) != "ok" {
		t.Fatalf("expected recovery at next frame, got %q %v %v", frame, ok, err)
	}
}

package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"
)

// DefaultMaxFrameSize bounds a received frame when Options leaves it unset.
const DefaultMaxFrameSize = 1024

// Options configures a Conn.
type Options struct {
	Address      string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Framing      Framing
	MaxFrameSize int
}

// Conn is a framed stream connection. Send and Receive may run on different
// goroutines but neither is safe for concurrent use with itself. Close may be
// called from anywhere, any number of times.
type Conn struct {
	nc      net.Conn
	opts    Options
	dec     *decoder
	readBuf []byte

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a TCP connection to opts.Address.
func Dial(ctx context.Context, opts Options) (*Conn, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}
	nc, err := d.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.Address, err)
	}
	return NewConn(nc, opts), nil
}

// NewConn wraps an established connection.
func NewConn(nc net.Conn, opts Options) *Conn {
	if opts.MaxFrameSize <= 0 {
		opts.MaxFrameSize = DefaultMaxFrameSize
	}
	if opts.Framing == "" {
		opts.Framing = FramingLine
	}
	return &Conn{
		nc:      nc,
		opts:    opts,
		dec:     newDecoder(opts.Framing, opts.MaxFrameSize),
		readBuf: make([]byte, opts.MaxFrameSize),
	}
}

// RemoteAddr returns the peer address, or "" for a nil Conn.
func (c *Conn) RemoteAddr() string {
	if c == nil || c.nc == nil || c.nc.RemoteAddr() == nil {
		return ""
	}
	return c.nc.RemoteAddr().String()
}

// Send frames payload and writes it in full.
func (c *Conn) Send(payload []byte) error {
	if c == nil || c.nc == nil || c.closed.Load() {
		return ErrClosed
	}
	frame, err := AppendFrame(nil, c.opts.Framing, payload)
	if err != nil {
		return err
	}
	if c.opts.WriteTimeout > 0 {
		if err := c.nc.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return c.ioErr(err)
		}
	}
	if _, err := c.nc.Write(frame); err != nil {
		return c.ioErr(err)
	}
	return nil
}

// Receive returns the next complete frame. It returns ErrNoData when the read
// deadline passes or the peer sends nothing, ErrDisconnected at end of
// stream and ErrFrameTooLarge for frames above MaxFrameSize.
func (c *Conn) Receive() ([]byte, error) {
	if c == nil || c.nc == nil || c.closed.Load() {
		return nil, ErrClosed
	}
	if c.opts.Framing != FramingRaw {
		if frame, ok, err := c.dec.next(); err != nil || ok {
			return checkText(frame, err)
		}
	}
	if c.opts.ReadTimeout > 0 {
		// The deadline only fails on a dead stream; Read reports how it ended.
		_ = c.nc.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	}
	for {
		n, err := c.nc.Read(c.readBuf)
		if n > 0 {
			if c.opts.Framing == FramingRaw {
				frame := make([]byte, n)
				copy(frame, c.readBuf[:n])
				return checkText(frame, nil)
			}
			c.dec.feed(c.readBuf[:n])
			if frame, ok, ferr := c.dec.next(); ferr != nil || ok {
				return checkText(frame, ferr)
			}
		}
		switch {
		case err == nil && n == 0:
			return nil, ErrNoData
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			c.dec.reset()
			return nil, ErrDisconnected
		case errors.Is(err, os.ErrDeadlineExceeded):
			return nil, ErrNoData
		default:
			return nil, c.ioErr(err)
		}
	}
}

// Close closes the underlying connection once.
func (c *Conn) Close() error {
	if c == nil || c.nc == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.nc.Close()
	})
	return c.closeErr
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c == nil || c.closed.Load()
}

func (c *Conn) ioErr(err error) error {
	if c.closed.Load() || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}

func checkText(frame []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(frame) {
		return nil, ErrInvalidText
	}
	return frame, nil
}

// Package spacecraft plays the spacecraft side of the link for local runs:
// it streams simulated telemetry and logs the commands it receives.
package spacecraft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"groundstation/internal/link"
	"groundstation/internal/logging"
	"groundstation/internal/telemetry"
)

const writeTimeout = 5 * time.Second

// Options configures the simulator server.
type Options struct {
	Listen       string
	Interval     time.Duration
	Format       telemetry.Format
	Framing      link.Framing
	MaxFrameSize int
}

// Generator produces the telemetry to emit.
type Generator interface {
	Generate() telemetry.Record
}

// Server accepts one ground station connection at a time.
type Server struct {
	opts Options
	gen  Generator

	mu          sync.Mutex
	commands    []string
	connections int
	addr        net.Addr
}

// NewServer returns a server emitting records from gen.
func NewServer(opts Options, gen Generator) *Server {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Format == "" {
		opts.Format = telemetry.FormatJSON
	}
	if opts.Framing == "" {
		opts.Framing = link.FramingLine
	}
	return &Server{opts: opts, gen: gen}
}

// ListenAndServe listens on opts.Listen and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. The listener is closed
// on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logging.FromContext(ctx)
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer ln.Close()

	log.Info("spacecraft simulator listening",
		"addr", ln.Addr().String(),
		"interval", s.opts.Interval,
		"format", s.opts.Format,
		"framing", s.opts.Framing)
	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("spacecraft simulator stopped")
				return nil
			}
			log.Warn("failed to accept connection", "error", err)
			continue
		}
		s.handle(ctx, nc)
	}
}

// Addr returns the listening address once Serve has started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Commands returns the commands received so far.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Connections returns how many connections have been served.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections
}

func (s *Server) handle(ctx context.Context, nc net.Conn) {
	id := uuid.NewString()
	log := logging.FromContext(ctx).With("conn", id, "remote", nc.RemoteAddr().String())
	s.mu.Lock()
	s.connections++
	s.mu.Unlock()

	conn := link.NewConn(nc, link.Options{
		Framing:      s.opts.Framing,
		MaxFrameSize: s.opts.MaxFrameSize,
		WriteTimeout: writeTimeout,
	})
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(connCtx, func() { conn.Close() })
	defer stop()
	defer conn.Close()
	log.Info("ground station connected")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		s.readCommands(log, conn)
	}()

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
loop:
	for {
		if err := s.emit(conn); err != nil {
			if connCtx.Err() == nil {
				log.Warn("telemetry write failed", "error", err)
			}
			break
		}
		select {
		case <-connCtx.Done():
			break loop
		case <-ticker.C:
		}
	}
	conn.Close()
	wg.Wait()
	log.Info("ground station disconnected")
}

func (s *Server) emit(conn *link.Conn) error {
	payload, err := telemetry.Encode(s.gen.Generate(), s.opts.Format)
	if err != nil {
		return err
	}
	return conn.Send(payload)
}

func (s *Server) readCommands(log *slog.Logger, conn *link.Conn) {
	for {
		frame, err := conn.Receive()
		switch {
		case err == nil:
			log.Info("command received", "command", string(frame))
			s.mu.Lock()
			s.commands = append(s.commands, string(frame))
			s.mu.Unlock()
		case errors.Is(err, link.ErrNoData):
		case errors.Is(err, link.ErrFrameTooLarge), errors.Is(err, link.ErrInvalidText):
			log.Warn("dropped command frame", "error", err)
		case errors.Is(err, link.ErrDisconnected), errors.Is(err, link.ErrClosed):
			return
		default:
			log.Warn("command read failed", "error", err)
			return
		}
	}
}

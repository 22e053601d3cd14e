// Package station runs the ground station loop: connect to the spacecraft,
// then receive telemetry, plot it and send the command once per poll interval.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"groundstation/internal/config"
	"groundstation/internal/link"
	"groundstation/internal/logging"
	"groundstation/internal/plot"
	"groundstation/internal/telemetry"
)

// State of the loop.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateTerminated   State = "terminated"
)

// Transport is the connection the loop drives. *link.Conn implements it.
type Transport interface {
	Send(payload []byte) error
	Receive() ([]byte, error)
	Close() error
	RemoteAddr() string
}

// Dialer opens a Transport.
type Dialer func(ctx context.Context, opts link.Options) (Transport, error)

// Source produces simulated telemetry. *telemetry.Generator implements it.
type Source interface {
	Generate() telemetry.Record
}

// Options carries the collaborators of a Station. Zero values select the
// TCP dialer, no rendering and, in simulate mode, a clock-seeded generator.
type Options struct {
	Renderer plot.Renderer
	Dial     Dialer
	Source   Source
	OnCycle  func(CycleReport)
}

// CycleReport describes one loop iteration.
type CycleReport struct {
	Seq      uint64
	Received bool
	Record   *telemetry.Record
	Sent     bool
	Errors   []error
}

// Status is a point-in-time snapshot of the loop.
type Status struct {
	SessionID        string            `json:"session_id"`
	State            State             `json:"state"`
	RemoteAddr       string            `json:"remote_addr,omitempty"`
	Cycles           uint64            `json:"cycles"`
	CommandsSent     uint64            `json:"commands_sent"`
	RecordsProcessed uint64            `json:"records_processed"`
	NoData           uint64            `json:"no_data"`
	Errors           map[string]uint64 `json:"errors"`
	LastRecord       *telemetry.Record `json:"last_record,omitempty"`
	LastError        string            `json:"last_error,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
}

// Station owns the connection and the loop state.
type Station struct {
	cfg      *config.Config
	linkOpts link.Options
	dial     Dialer
	source   Source
	proc     *Processor
	onCycle  func(CycleReport)

	mu     sync.Mutex
	conn   Transport
	status Status
}

// New creates a station from cfg.
func New(cfg *config.Config, opts Options) (*Station, error) {
	framing, err := link.ParseFraming(cfg.Framing)
	if err != nil {
		return nil, fmt.Errorf("station: %w", err)
	}
	if opts.Dial == nil {
		opts.Dial = DialTCP
	}
	if cfg.Simulate && opts.Source == nil {
		opts.Source = telemetry.NewGenerator(0)
	}
	return &Station{
		cfg: cfg,
		linkOpts: link.Options{
			Address:      cfg.Endpoint(),
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			Framing:      framing,
			MaxFrameSize: cfg.BufferSize,
		},
		dial:    opts.Dial,
		source:  opts.Source,
		proc:    NewProcessor(opts.Renderer, cfg.HistorySize),
		onCycle: opts.OnCycle,
		status: Status{
			SessionID: uuid.NewString(),
			State:     StateDisconnected,
			Errors:    map[string]uint64{},
			StartedAt: time.Now().UTC(),
		},
	}, nil
}

// DialTCP dials the spacecraft over TCP.
func DialTCP(ctx context.Context, opts link.Options) (Transport, error) {
	c, err := link.Dial(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Connect opens the connection. Failures are returned as connection_failed.
func (s *Station) Connect(ctx context.Context) error {
	conn, err := s.dial(ctx, s.linkOpts)
	if err != nil {
		e := newError(KindConnectionFailed, "connect "+s.linkOpts.Address, err)
		s.countError(e)
		return e
	}
	s.mu.Lock()
	s.conn = conn
	s.status.State = StateConnected
	s.status.RemoteAddr = conn.RemoteAddr()
	s.mu.Unlock()
	logging.FromContext(ctx).Info("Connected to spacecraft", "address", s.linkOpts.Address)
	return nil
}

// Run connects once and then cycles until ctx is cancelled. It returns nil
// on cancellation and a connection_failed error if the first connect fails.
func (s *Station) Run(ctx context.Context) error {
	log := logging.FromContext(ctx).With("session", s.status.SessionID)
	ctx = logging.NewContext(ctx, log)
	log.Info("starting ground station",
		"address", s.linkOpts.Address,
		"poll_interval", s.cfg.PollInterval,
		"framing", s.linkOpts.Framing,
		"simulate", s.cfg.Simulate,
		"reconnect", s.cfg.Reconnect)

	if err := s.Connect(ctx); err != nil {
		log.Error("Failed to connect to spacecraft. Exiting.", "error", err)
		s.setState(StateTerminated)
		return err
	}
	stop := context.AfterFunc(ctx, s.closeTransport)
	defer stop()
	defer s.shutdown(log)

	for {
		if ctx.Err() != nil {
			return nil
		}
		rep := s.Cycle(ctx)
		if s.onCycle != nil {
			s.onCycle(rep)
		}
		timer := time.NewTimer(s.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Cycle runs one receive, process and send iteration.
func (s *Station) Cycle(ctx context.Context) CycleReport {
	log := logging.FromContext(ctx)
	s.mu.Lock()
	s.status.Cycles++
	rep := CycleReport{Seq: s.status.Cycles}
	s.mu.Unlock()

	if s.transport() == nil && s.cfg.Reconnect {
		if err := s.Connect(ctx); err != nil {
			log.Warn("reconnect failed", "error", err)
			rep.Errors = append(rep.Errors, err)
			return rep
		}
	}

	payload, err := s.receive()
	if ctx.Err() != nil {
		return rep
	}
	switch {
	case err == nil:
		rep.Received = true
		log.Info("Telemetry received", "payload", string(payload))
		rec, perr := s.proc.Process(payload)
		if perr != nil {
			s.fail(log, perr)
			rep.Errors = append(rep.Errors, perr)
		}
		if perr == nil || errors.Is(perr, ErrRenderFailed) {
			rep.Record = &rec
			s.mu.Lock()
			s.status.RecordsProcessed++
			s.status.LastRecord = &rec
			s.mu.Unlock()
		}
	case errors.Is(err, link.ErrNoData):
		log.Info("No data received.")
		s.mu.Lock()
		s.status.NoData++
		s.mu.Unlock()
	default:
		s.fail(log, err)
		rep.Errors = append(rep.Errors, err)
		s.dropLost(log, err)
	}

	if s.transport() == nil {
		return rep
	}
	if err := s.Send(); err != nil {
		if ctx.Err() != nil {
			return rep
		}
		s.fail(log, err)
		rep.Errors = append(rep.Errors, err)
		s.dropLost(log, err)
		return rep
	}
	rep.Sent = true
	log.Info("Command sent", "command", s.cfg.Command)
	return rep
}

// Send writes the configured command.
func (s *Station) Send() error {
	conn := s.transport()
	if conn == nil {
		return newError(KindSendFailed, "send command", link.ErrClosed)
	}
	if err := conn.Send([]byte(s.cfg.Command)); err != nil {
		return newError(KindSendFailed, "send command", err)
	}
	s.mu.Lock()
	s.status.CommandsSent++
	s.mu.Unlock()
	return nil
}

// receive returns the next payload, link.ErrNoData, or a receive_failed error.
func (s *Station) receive() ([]byte, error) {
	if s.cfg.Simulate {
		payload, err := telemetry.Encode(s.source.Generate(), telemetry.FormatJSON)
		if err != nil {
			return nil, newError(KindReceiveFailed, "simulate telemetry", err)
		}
		return payload, nil
	}
	conn := s.transport()
	if conn == nil {
		return nil, newError(KindReceiveFailed, "receive telemetry", link.ErrClosed)
	}
	payload, err := conn.Receive()
	switch {
	case errors.Is(err, link.ErrNoData):
		return nil, link.ErrNoData
	case err != nil:
		return nil, newError(KindReceiveFailed, "receive telemetry", err)
	case len(payload) == 0:
		return nil, link.ErrNoData
	}
	return payload, nil
}

// Status returns a snapshot of the loop.
func (s *Station) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Errors = make(map[string]uint64, len(s.status.Errors))
	for k, v := range s.status.Errors {
		st.Errors[k] = v
	}
	if s.status.LastRecord != nil {
		rec := *s.status.LastRecord
		st.LastRecord = &rec
	}
	return st
}

// Records returns the current plotting window.
func (s *Station) Records() []telemetry.Record {
	return s.proc.History().Records()
}

// State returns the loop state.
func (s *Station) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.State
}

func (s *Station) transport() Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Station) setState(st State) {
	s.mu.Lock()
	s.status.State = st
	s.mu.Unlock()
}

// closeTransport releases the connection. Safe to call from any goroutine.
func (s *Station) closeTransport() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.status.RemoteAddr = ""
	s.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *Station) shutdown(log *slog.Logger) {
	s.closeTransport()
	s.setState(StateTerminated)
	st := s.Status()
	log.Info("Exiting ground station simulation...",
		"cycles", st.Cycles,
		"commands_sent", st.CommandsSent,
		"records", st.RecordsProcessed)
}

// lostConnection reports whether err means the stream to the spacecraft is
// gone and a redial is the only way forward.
func lostConnection(err error) bool {
	return errors.Is(err, link.ErrDisconnected) ||
		errors.Is(err, link.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// dropLost releases a lost connection when reconnect is on so the next cycle
// redials.
func (s *Station) dropLost(log *slog.Logger, err error) {
	if !s.cfg.Reconnect || !lostConnection(err) {
		return
	}
	log.Warn("spacecraft connection lost, redialing next cycle", "error", err)
	s.closeTransport()
	s.setState(StateDisconnected)
}

func (s *Station) fail(log *slog.Logger, err error) {
	s.countError(err)
	log.Warn("cycle step failed", "error", err)
}

func (s *Station) countError(err error) {
	var e *Error
	kind := "unknown"
	if errors.As(err, &e) {
		kind = e.Kind.String()
	}
	s.mu.Lock()
	s.status.Errors[kind]++
	s.status.LastError = err.Error()
	s.mu.Unlock()
}

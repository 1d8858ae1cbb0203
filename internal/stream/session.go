// Package stream implements the server-sent event feeds: the per-connection
// handshake/capabilities/heartbeat session and the legacy status feed.
package stream

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"sdrelay/pkg/types"
)

// Event types emitted on the wire.
const (
	EventHandshake = "handshake"
	EventMessage   = "message"
	EventPing      = "ping"
)

const (
	// ProtocolVersion is the service protocol version sent in the handshake.
	ProtocolVersion = "1.0.0"
	// ServerName identifies the stream endpoint in the handshake.
	ServerName = "stable-diffusion-mcp"
)

// Event is one server-sent event.
type Event struct {
	ID    uint64
	Type  string
	Data  string
	Retry time.Duration
}

// Emitter delivers events to a peer. An error means the peer is gone.
type Emitter interface {
	Emit(Event) error
}

// State is the position of a session in its lifecycle.
type State int

const (
	StateHandshake State = iota
	StateCapabilities
	StateHeartbeat
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateCapabilities:
		return "capabilities"
	case StateHeartbeat:
		return "heartbeat"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Options configures a Service.
type Options struct {
	// Interval between heartbeats.
	Interval time.Duration
	// StatusInterval between legacy status events.
	StatusInterval time.Duration
	// Capabilities returns the list advertised after the handshake.
	Capabilities func() []types.Capability
	// Status probes the backend for the legacy feed.
	Status func(ctx context.Context) types.ServiceStatus
	Logger zerolog.Logger
}

// Service runs streams. It is stateless across connections.
type Service struct {
	opts Options
}

// New constructs a stream service. Zero intervals fall back to 15s and 1s.
func New(opts Options) *Service {
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Second
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = time.Second
	}
	if opts.Capabilities == nil {
		opts.Capabilities = func() []types.Capability { return nil }
	}
	return &Service{opts: opts}
}

// Interval returns the configured heartbeat interval.
func (s *Service) Interval() time.Duration { return s.opts.Interval }

// Session is one connection's heartbeat stream.
type Session struct {
	ID    string
	state State
	seq   uint64
	svc   *Service
	em    Emitter
	log   zerolog.Logger
}

// NewSession prepares a session writing to em.
func (s *Service) NewSession(em Emitter) *Session {
	id := uuid.NewString()
	return &Session{
		ID:  id,
		svc: s,
		em:  em,
		log: s.opts.Logger.With().Str("session", id).Logger(),
	}
}

// State returns the current state.
func (ss *Session) State() State { return ss.state }

// Run drives the session until ctx is done or the peer stops accepting events.
// Disconnects are not errors: Run returns nil for them. Only a failure to
// encode a payload is returned.
func (ss *Session) Run(ctx context.Context) error {
	streamsActive.WithLabelValues("sse").Inc()
	defer streamsActive.WithLabelValues("sse").Dec()
	defer func() { ss.state = StateClosed }()

	timer := time.NewTimer(ss.svc.opts.Interval)
	timer.Stop()
	defer timer.Stop()

	for {
		switch ss.state {
		case StateHandshake:
			data, err := ss.result(types.Handshake{
				Version:         ProtocolVersion,
				ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
				Transport:       "sse",
				Name:            ServerName,
				Status:          "ready",
				Session:         ss.ID,
			})
			if err != nil {
				return err
			}
			if !ss.emit(EventHandshake, data) {
				return nil
			}
			ss.log.Debug().Msg("sent handshake")
			ss.state = StateCapabilities
		case StateCapabilities:
			data, err := ss.result(types.ToolList{Tools: ss.svc.opts.Capabilities()})
			if err != nil {
				return err
			}
			if !ss.emit(EventMessage, data) {
				return nil
			}
			ss.log.Debug().Msg("sent tools list")
			ss.state = StateHeartbeat
			timer.Reset(ss.svc.opts.Interval)
		case StateHeartbeat:
			select {
			case <-ctx.Done():
				ss.log.Debug().Msg("client disconnected")
				return nil
			case <-timer.C:
			}
			if ctx.Err() != nil {
				return nil
			}
			if !ss.emit(EventPing, "") {
				return nil
			}
			heartbeatsTotal.Inc()
			timer.Reset(ss.svc.opts.Interval)
		default:
			return nil
		}
	}
}

// result wraps payload in an envelope whose id matches the next event id.
func (ss *Session) result(payload any) (string, error) {
	env := types.NewResult("", types.StringID(strconv.FormatUint(ss.seq, 10)), payload)
	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// emit sends one event with the next sequence id; false means the peer is gone.
func (ss *Session) emit(typ, data string) bool {
	ev := Event{ID: ss.seq, Type: typ, Data: data, Retry: ss.svc.opts.Interval}
	if err := ss.em.Emit(ev); err != nil {
		ss.log.Debug().Err(err).Str("event", typ).Msg("emit failed, closing stream")
		return false
	}
	ss.seq++
	eventsTotal.WithLabelValues(typ).Inc()
	return true
}

// StatusFeed emits a status notification every StatusInterval, probing the
// backend before each one, until ctx is done or the peer is gone.
func (s *Service) StatusFeed(ctx context.Context, em Emitter) error {
	if s.opts.Status == nil {
		return nil
	}
	streamsActive.WithLabelValues("status").Inc()
	defer streamsActive.WithLabelValues("status").Dec()

	var seq uint64
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		env, err := types.NewNotification("status", s.opts.Status(ctx))
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		b, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := em.Emit(Event{ID: seq, Type: EventMessage, Data: string(b)}); err != nil {
			s.opts.Logger.Debug().Err(err).Msg("status feed closed")
			return nil
		}
		seq++
		eventsTotal.WithLabelValues("status").Inc()
		timer.Reset(s.opts.StatusInterval)
	}
}

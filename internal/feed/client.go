// Package feed implements the pump.fun socket.io trade feed client.
package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"pump-trade-feed/internal/observability"
)

// DefaultURL is the pump.fun frontend socket.io endpoint.
const DefaultURL = "wss://frontend-api-v2.pump.fun/socket.io/?EIO=4&transport=websocket"

// Config configures the streaming client.
type Config struct {
	// URL is the socket.io WebSocket endpoint.
	URL string
	// ReconnectDelay is the wait between a disconnect and the next attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay enables exponential backoff up to this value when it
	// exceeds ReconnectDelay. Zero keeps the delay fixed.
	MaxReconnectDelay time.Duration
	// HandshakeTimeout bounds the dial and the open/connect exchange.
	HandshakeTimeout time.Duration
	// ReadTimeout is the silence tolerated while streaming when the server's
	// open frame did not announce ping timing.
	ReadTimeout time.Duration
	// WriteTimeout is the deadline for each outbound frame.
	WriteTimeout time.Duration
	// MaxMessageSize limits inbound frame size (bytes).
	MaxMessageSize int64
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		ReconnectDelay:   5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   1 << 20,
	}
}

// TradeHandler receives the payload of every tradeCreated event.
// It runs on the read loop and must not block.
type TradeHandler interface {
	HandleTrade(ctx context.Context, sessionID string, payload []byte)
}

// Options holds client dependencies.
type Options struct {
	Config  Config
	Handler TradeHandler
	Dialer  Dialer             // nil uses NewWSDialer
	Logger  *logrus.Entry      // nil uses the standard logger
	OnState func(state State) // optional transition observer
}

// Status is a point-in-time view of the client.
type Status struct {
	State       State
	SessionID   string
	Reconnects  int64
	LastFrameAt time.Time // zero before the first frame
}

// Client maintains one logical connection to the feed until its context ends.
type Client struct {
	cfg     Config
	handler TradeHandler
	dialer  Dialer
	logger  *logrus.Entry
	onState func(State)

	state      atomic.Int32
	reconnects atomic.Int64
	lastFrame  atomic.Int64 // unix nanos

	mu        sync.RWMutex
	sessionID string
}

// NewClient creates a streaming client.
func NewClient(opts Options) *Client {
	cfg := opts.Config
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = NewWSDialer(cfg.HandshakeTimeout, cfg.MaxMessageSize)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Client{
		cfg:     cfg,
		handler: opts.Handler,
		dialer:  dialer,
		logger:  logger,
		onState: opts.OnState,
	}
}

// Status returns the current client status. Safe for concurrent use.
func (c *Client) Status() Status {
	c.mu.RLock()
	sid := c.sessionID
	c.mu.RUnlock()

	st := Status{
		State:      State(c.state.Load()),
		SessionID:  sid,
		Reconnects: c.reconnects.Load(),
	}
	if ns := c.lastFrame.Load(); ns > 0 {
		st.LastFrameAt = time.Unix(0, ns)
	}
	return st
}

// Run connects and streams until ctx is cancelled, reconnecting after every
// transport or protocol failure. It always returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	policy := c.newBackOff()

	for {
		authorized, err := c.session(ctx)
		c.setState(StateDisconnected)

		if ctx.Err() != nil {
			c.logger.Info("Feed client stopped")
			return ctx.Err()
		}

		if authorized {
			policy.Reset()
		}
		delay := policy.NextBackOff()
		c.reconnects.Add(1)
		observability.RecordReconnect()
		entry := c.logger.WithError(err).WithField("delay", delay)
		if IsClosed(err) {
			entry.Info("WebSocket connection closed, reconnecting")
		} else {
			entry.Warn("Feed connection lost, reconnecting")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.logger.Info("Feed client stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) newBackOff() backoff.BackOff {
	if c.cfg.MaxReconnectDelay > c.cfg.ReconnectDelay {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.cfg.ReconnectDelay
		b.MaxInterval = c.cfg.MaxReconnectDelay
		b.MaxElapsedTime = 0 // retry forever
		// No jitter: MaxReconnectDelay is a hard ceiling.
		b.RandomizationFactor = 0
		b.Reset()
		return b
	}
	return backoff.NewConstantBackOff(c.cfg.ReconnectDelay)
}

// session runs one connection from dial to failure. authorized reports
// whether the handshake completed.
func (c *Client) session(ctx context.Context) (authorized bool, err error) {
	c.setState(StateConnecting)
	observability.RecordSessionStart()

	sid := uuid.NewString()
	c.mu.Lock()
	c.sessionID = sid
	c.mu.Unlock()
	log := c.logger.WithField("session", sid)

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	conn, err := c.dialer.DialContext(dialCtx, c.cfg.URL)
	cancel()
	if err != nil {
		return false, &TransportError{Op: "dial", Err: err}
	}
	defer conn.Close()

	// Unblock a pending read as soon as ctx is cancelled.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	liveness, err := c.handshake(conn, log)
	if err != nil {
		return false, err
	}

	c.setState(StateAuthorized)
	log.Info("Authorized to trade room")

	c.setState(StateStreaming)
	if liveness <= 0 {
		liveness = c.cfg.ReadTimeout
	}
	return true, c.stream(ctx, conn, sid, liveness, log)
}

// handshake reads the open frame, joins the default namespace and waits for
// the connect ack. It returns the server-announced liveness window.
func (c *Client) handshake(conn Conn, log *logrus.Entry) (time.Duration, error) {
	raw, err := c.read(conn, c.cfg.HandshakeTimeout)
	if err != nil {
		return 0, err
	}

	var liveness time.Duration
	frame := ParseFrame(raw)
	if frame.Type == FrameOpen {
		info, err := ParseOpen(frame.Payload)
		if err != nil {
			log.WithError(err).Warn("Ignoring malformed open frame")
		}
		liveness = info.Liveness()
		log.WithField("sid", info.SID).Info("Connected to pump.fun feed")
	} else {
		log.WithField("frame", truncate(raw, 64)).Warn("Unexpected initial frame")
		if frame.Type == FramePing {
			if err := c.pong(conn); err != nil {
				return 0, err
			}
		}
	}
	c.setState(StateHandshakePending)

	if err := c.write(conn, frameConnect); err != nil {
		return 0, err
	}

	for {
		raw, err := c.read(conn, c.cfg.HandshakeTimeout)
		if err != nil {
			return 0, err
		}

		frame := ParseFrame(raw)
		switch frame.Type {
		case FrameConnect:
			return liveness, nil
		case FramePing:
			if err := c.pong(conn); err != nil {
				return 0, err
			}
		default:
			return 0, &ProtocolError{State: StateHandshakePending, Frame: raw, Msg: "expected connect ack"}
		}
	}
}

// stream is the steady-state receive loop.
func (c *Client) stream(ctx context.Context, conn Conn, sid string, liveness time.Duration, log *logrus.Entry) error {
	for {
		raw, err := c.read(conn, liveness)
		if err != nil {
			return err
		}

		frame := ParseFrame(raw)
		switch frame.Type {
		case FramePing:
			// Reply before anything else is read or processed.
			if err := c.pong(conn); err != nil {
				return err
			}

		case FrameEvent:
			ev, err := DecodeEvent(frame.Payload)
			if err != nil {
				observability.RecordDecodeError()
				log.WithError(err).Warn("Discarding malformed event frame")
				continue
			}
			if ev.Name != EventTradeCreated {
				log.WithField("event", ev.Name).Debug("Unknown event")
				continue
			}
			if c.handler != nil {
				c.handler.HandleTrade(ctx, sid, ev.Payload)
			}

		case FrameClose, FrameDisconnect, FrameConnectError:
			return &ProtocolError{State: StateStreaming, Frame: raw, Msg: "server closed the session"}

		case FramePong, FrameConnect, FrameOpen:
			// Nothing to do.

		default:
			log.WithField("frame", truncate(raw, 64)).Debug("Unknown message")
		}
	}
}

func (c *Client) read(conn Conn, timeout time.Duration) (string, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return "", &TransportError{Op: "read", Err: err}
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", &TransportError{Op: "read", Err: err}
	}

	now := time.Now()
	c.lastFrame.Store(now.UnixNano())
	raw := string(data)
	observability.RecordFrame(ParseFrame(raw).Type.String(), now.Unix())
	return raw, nil
}

func (c *Client) write(conn Conn, frame string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (c *Client) pong(conn Conn) error {
	if err := c.write(conn, framePong); err != nil {
		return err
	}
	observability.RecordPong()
	return nil
}

func (c *Client) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	observability.SetConnectionState(int(s))
	if c.onState != nil {
		c.onState(s)
	}
}

// IsClosed reports whether err is a normal WebSocket close.
func IsClosed(err error) bool {
	var ce *websocket.CloseError
	return errors.As(err, &ce)
}

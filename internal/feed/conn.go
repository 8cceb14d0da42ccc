package feed

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn used by the client.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens feed connections.
type Dialer interface {
	DialContext(ctx context.Context, url string) (Conn, error)
}

// WSDialer dials with gorilla/websocket.
type WSDialer struct {
	dialer      websocket.Dialer
	maxReadSize int64
}

// NewWSDialer creates a dialer with the given handshake timeout and read limit.
func NewWSDialer(handshakeTimeout time.Duration, maxReadSize int64) *WSDialer {
	return &WSDialer{
		dialer: websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
		maxReadSize: maxReadSize,
	}
}

// DialContext establishes a WebSocket connection.
func (d *WSDialer) DialContext(ctx context.Context, url string) (Conn, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if d.maxReadSize > 0 {
		conn.SetReadLimit(d.maxReadSize)
	}
	return conn, nil
}

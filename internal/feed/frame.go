package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// FrameType classifies an engine.io / socket.io text frame.
type FrameType int

const (
	FrameUnknown      FrameType = iota
	FrameOpen                   // "0{...}" engine.io open
	FrameClose                  // "1" engine.io close
	FramePing                   // "2"
	FramePong                   // "3"
	FrameConnect                // "40..." namespace connect ack
	FrameDisconnect             // "41..." namespace disconnect
	FrameEvent                  // "42[...]"
	FrameConnectError           // "44..." namespace connect error
)

// Outbound frames.
const (
	framePong    = "3"
	frameConnect = "40"
)

// EventTradeCreated is the event name carrying trades.
const EventTradeCreated = "tradeCreated"

var frameTypeNames = map[FrameType]string{
	FrameUnknown:      "unknown",
	FrameOpen:         "open",
	FrameClose:        "close",
	FramePing:         "ping",
	FramePong:         "pong",
	FrameConnect:      "connect",
	FrameDisconnect:   "disconnect",
	FrameEvent:        "event",
	FrameConnectError: "connect_error",
}

func (t FrameType) String() string {
	if name, ok := frameTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("frame(%d)", int(t))
}

// Frame is a classified inbound frame. Payload is the text after the type prefix.
type Frame struct {
	Type    FrameType
	Payload string
}

// ParseFrame classifies a raw text frame. Ping and pong must match exactly.
func ParseFrame(raw string) Frame {
	switch {
	case raw == "2":
		return Frame{Type: FramePing}
	case raw == "3":
		return Frame{Type: FramePong}
	case raw == "1":
		return Frame{Type: FrameClose}
	case strings.HasPrefix(raw, "42"):
		return Frame{Type: FrameEvent, Payload: raw[2:]}
	case strings.HasPrefix(raw, "40"):
		return Frame{Type: FrameConnect, Payload: raw[2:]}
	case strings.HasPrefix(raw, "41"):
		return Frame{Type: FrameDisconnect, Payload: raw[2:]}
	case strings.HasPrefix(raw, "44"):
		return Frame{Type: FrameConnectError, Payload: raw[2:]}
	case strings.HasPrefix(raw, "0"):
		return Frame{Type: FrameOpen, Payload: raw[1:]}
	default:
		return Frame{Type: FrameUnknown, Payload: raw}
	}
}

// OpenInfo is the engine.io open frame body.
type OpenInfo struct {
	SID          string `json:"sid"`
	PingInterval int64  `json:"pingInterval"` // ms
	PingTimeout  int64  `json:"pingTimeout"`  // ms
}

// ParseOpen decodes the open frame body. An empty body yields a zero OpenInfo.
func ParseOpen(payload string) (OpenInfo, error) {
	var info OpenInfo
	if strings.TrimSpace(payload) == "" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return OpenInfo{}, fmt.Errorf("decode open frame: %w", err)
	}
	return info, nil
}

// Liveness returns how long the server may stay silent before the
// connection is considered dead, or 0 when the open frame carried no timing.
func (o OpenInfo) Liveness() time.Duration {
	if o.PingInterval <= 0 || o.PingTimeout <= 0 {
		return 0
	}
	return time.Duration(o.PingInterval+o.PingTimeout) * time.Millisecond
}

// Event is a decoded "42" frame.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// DecodeEvent decodes the JSON array body of an event frame: [name, payload].
func DecodeEvent(body string) (Event, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(body), &parts); err != nil {
		return Event{}, &DecodeError{Err: err}
	}
	if len(parts) == 0 {
		return Event{}, &DecodeError{Err: fmt.Errorf("empty event array")}
	}

	var ev Event
	if err := json.Unmarshal(parts[0], &ev.Name); err != nil {
		return Event{}, &DecodeError{Err: fmt.Errorf("event name: %w", err)}
	}
	if len(parts) > 1 {
		ev.Payload = parts[1]
	}
	return ev, nil
}

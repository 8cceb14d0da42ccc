package feed

import "fmt"

// TransportError is a dial, read or write failure. Always followed by a reconnect.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is an unexpected frame during handshake or a server-side
// disconnect. Handled like a TransportError.
type ProtocolError struct {
	State State
	Frame string
	Msg   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error in %s: %s (frame %q)", e.State, e.Msg, truncate(e.Frame, 64))
}

// DecodeError is a malformed event frame. Only the single event is discarded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode event: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

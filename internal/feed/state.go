package feed

// State is the streaming client's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshakePending
	StateAuthorized
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshakePending:
		return "handshake_pending"
	case StateAuthorized:
		return "authorized"
	case StateStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

package client

// ConnectionState is the lifecycle state of a Session.
type ConnectionState int32

const (
	// Loading is the initial state of every session.
	Loading ConnectionState = iota
	// Connected is entered on the first successfully decoded server line.
	Connected
	// Disconnected means the connection ended after reaching Connected.
	Disconnected
	// Failed means the connection ended without ever reaching Connected.
	Failed
)

// String returns the string representation of ConnectionState
func (s ConnectionState) String() string {
	switch s {
	case Loading:
		return "LOADING"
	case Connected:
		return "CONNECTED"
	case Disconnected:
		return "DISCONNECTED"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition can happen.
func (s ConnectionState) Terminal() bool {
	return s == Disconnected || s == Failed
}

// ended returns the terminal state reached when the reader stops in s.
func (s ConnectionState) ended() ConnectionState {
	if s == Connected {
		return Disconnected
	}
	return Failed
}

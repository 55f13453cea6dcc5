// Package protocol implements the line-oriented chat wire protocol.
//
// The protocol is asymmetric: clients send a display name followed by
// "m <text>" lines and slash commands, while servers send tagged lines
// carrying the originating user ("m <sender> <body>", "c <name>", ...).
package protocol

// EventType represents the type of an inbound event
type EventType int

const (
	EventTypeMessage EventType = iota
	EventTypeJoin
	EventTypeLeave
	EventTypeRename
)

// String returns the string representation of EventType
func (et EventType) String() string {
	switch et {
	case EventTypeMessage:
		return "MESSAGE"
	case EventTypeJoin:
		return "JOIN"
	case EventTypeLeave:
		return "LEAVE"
	case EventTypeRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Event is one decoded server occurrence. The concrete types are Message,
// PresenceJoined, PresenceLeft and Renamed.
type Event interface {
	Type() EventType
	event()
}

// Message is a chat line relayed by the server.
type Message struct {
	Sender string
	Body   string
}

// PresenceJoined reports a user connecting to the server.
type PresenceJoined struct {
	Name string
}

// PresenceLeft reports a user disconnecting from the server.
type PresenceLeft struct {
	Name string
}

// Renamed reports a user changing display name.
type Renamed struct {
	OldName string
	NewName string
}

func (Message) Type() EventType        { return EventTypeMessage }
func (PresenceJoined) Type() EventType { return EventTypeJoin }
func (PresenceLeft) Type() EventType   { return EventTypeLeave }
func (Renamed) Type() EventType        { return EventTypeRename }

func (Message) event()        {}
func (PresenceJoined) event() {}
func (PresenceLeft) event()   {}
func (Renamed) event()        {}

package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Terminator ends every line on the wire.
const Terminator = '\n'

// ErrDecode is matched by every error returned from Decode.
var ErrDecode = errors.New("malformed line")

// DecodeError describes an inbound line that could not be decoded.
type DecodeError struct {
	Line   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %s", e.Line, e.Reason)
}

// Is reports whether target is ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// Decode parses one server line with its terminator already stripped.
func Decode(line string) (Event, error) {
	tag, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, &DecodeError{Line: line, Reason: "missing tag separator"}
	}

	switch tag {
	case "m", "msg":
		sender, body, ok := strings.Cut(rest, " ")
		if !ok {
			return nil, &DecodeError{Line: line, Reason: "message without body"}
		}
		return Message{Sender: sender, Body: body}, nil
	case "c", "connect":
		return PresenceJoined{Name: rest}, nil
	case "d", "disconnect":
		return PresenceLeft{Name: rest}, nil
	case "r", "rename":
		oldName, newName, ok := strings.Cut(rest, " ")
		if !ok {
			return nil, &DecodeError{Line: line, Reason: "rename without new name"}
		}
		return Renamed{OldName: oldName, NewName: newName}, nil
	default:
		return nil, &DecodeError{Line: line, Reason: fmt.Sprintf("unknown tag %q", tag)}
	}
}

// EncodeOutbound encodes text typed by the local user. A leading slash
// marks a server command which is sent verbatim without the slash;
// anything else becomes a chat message.
func EncodeOutbound(text string) []byte {
	if cmd, ok := strings.CutPrefix(text, "/"); ok {
		return appendLine(make([]byte, 0, len(cmd)+1), cmd)
	}
	buf := make([]byte, 0, len(text)+3)
	buf = append(buf, "m "...)
	return appendLine(buf, text)
}

// EncodeHandshake encodes the session-opening line carrying the display name.
func EncodeHandshake(name string) []byte {
	return appendLine(make([]byte, 0, len(name)+1), name)
}

// RenameCommand returns the slash command asking the server to rename
// the current user.
func RenameCommand(name string) string {
	return "/n " + name
}

// EncodeEvent encodes an event the way a server relays it to clients.
func EncodeEvent(ev Event) []byte {
	switch e := ev.(type) {
	case Message:
		return appendLine(nil, "m "+e.Sender+" "+e.Body)
	case PresenceJoined:
		return appendLine(nil, "c "+e.Name)
	case PresenceLeft:
		return appendLine(nil, "d "+e.Name)
	case Renamed:
		return appendLine(nil, "r "+e.OldName+" "+e.NewName)
	default:
		return nil
	}
}

// TrimLine removes the line terminator and an optional carriage return.
func TrimLine(line string) string {
	line = strings.TrimSuffix(line, string(Terminator))
	return strings.TrimSuffix(line, "\r")
}

func appendLine(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, Terminator)
}

package protocol

import "strings"

// CommandKind represents the type of a client line received by a server
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandSay
	CommandRename
)

// String returns the string representation of CommandKind
func (ck CommandKind) String() string {
	switch ck {
	case CommandSay:
		return "SAY"
	case CommandRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Command is a client line sent after the handshake.
type Command struct {
	Kind CommandKind
	Arg  string
}

// DecodeCommand parses a client line with its terminator already stripped.
// Lines the relay does not understand come back as CommandUnknown with the
// raw line in Arg.
func DecodeCommand(line string) Command {
	tag, rest, ok := strings.Cut(line, " ")
	if !ok {
		return Command{Kind: CommandUnknown, Arg: line}
	}
	switch tag {
	case "m":
		return Command{Kind: CommandSay, Arg: rest}
	case "n":
		if rest == "" || strings.Contains(rest, " ") {
			return Command{Kind: CommandUnknown, Arg: line}
		}
		return Command{Kind: CommandRename, Arg: rest}
	default:
		return Command{Kind: CommandUnknown, Arg: line}
	}
}

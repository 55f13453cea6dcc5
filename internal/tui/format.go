package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/omochice/linechat/internal/client"
	"github.com/omochice/linechat/pkg/protocol"
)

var errUsage = errors.New("usage: <address> [name]")

// formatEvent renders one chat event as a log line.
func formatEvent(ev protocol.Event) string {
	switch ev := ev.(type) {
	case protocol.Message:
		return senderStyle.Render(ev.Sender) + ": " + ev.Body
	case protocol.PresenceJoined:
		return joinStyle.Render("+") + " " + ev.Name + " connected"
	case protocol.PresenceLeft:
		return leaveStyle.Render("-") + " " + ev.Name + " disconnected"
	case protocol.Renamed:
		return noticeStyle.Render("!") + " " + ev.OldName + " changed names to " + ev.NewName
	default:
		return ""
	}
}

// formatEnd renders the line appended when a session reaches a terminal state.
func formatEnd(state client.ConnectionState, err error) string {
	if err != nil {
		return errorStyle.Render(fmt.Sprintf("%s: %v", strings.ToLower(state.String()), err))
	}
	return noticeStyle.Render(strings.ToLower(state.String()))
}

// parseConnection reads "<address> [name]" from the edit prompt. A missing
// name falls back to fallbackName.
func parseConnection(input, fallbackName string) (client.ConnectionConfig, error) {
	fields := strings.Fields(input)
	switch len(fields) {
	case 0:
		return client.ConnectionConfig{}, errUsage
	case 1:
		return client.ConnectionConfig{Server: fields[0], Name: fallbackName}, nil
	case 2:
		return client.ConnectionConfig{Server: fields[0], Name: fields[1]}, nil
	default:
		return client.ConnectionConfig{}, fmt.Errorf("names cannot contain spaces: %w", errUsage)
	}
}

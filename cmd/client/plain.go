package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/omochice/linechat/internal/client"
	"github.com/omochice/linechat/internal/tui"
	"github.com/omochice/linechat/pkg/protocol"
)

// runPlain chats over one supervisor using line-oriented stdin and stdout.
// It returns on quit, end of input, ctx cancellation or session end.
func runPlain(ctx context.Context, sup *client.Supervisor, waker *tui.Waker, in io.Reader, out io.Writer) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintf(out, "Connecting to %s as %s (type 'quit' to exit)\n", sup.Config().Server, sup.Config().Name)

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-waker.C():
			}
			if printPending(out, sup) {
				return
			}
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Warn().Err(err).Msg("error reading input")
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "quit" || text == "exit" {
				break loop
			}
			// No UI thread to keep responsive, so a full queue is waited out.
			if err := sup.SendContext(ctx, text); err != nil {
				if errors.Is(err, client.ErrSessionClosed) || ctx.Err() != nil {
					break loop
				}
				fmt.Fprintf(out, "*** failed to send message: %v ***\n", err)
			}
		}
	}

	sup.Close()
	cancel()
	<-printed
}

// tab is the part of a supervisor the printer reads.
type tab interface {
	Poll() []protocol.Event
	State() client.ConnectionState
	Err() error
}

// printPending prints queued events and, once the session has ended, the
// end line. It reports whether the session has ended.
func printPending(out io.Writer, t tab) bool {
	for _, ev := range t.Poll() {
		fmt.Fprintln(out, formatPlain(ev))
	}
	state := t.State()
	if !state.Terminal() {
		return false
	}
	// The reader may queue its last events between Poll and State.
	for _, ev := range t.Poll() {
		fmt.Fprintln(out, formatPlain(ev))
	}
	if err := t.Err(); err != nil {
		fmt.Fprintf(out, "*** %s: %v ***\n", strings.ToLower(state.String()), err)
	} else {
		fmt.Fprintf(out, "*** %s ***\n", strings.ToLower(state.String()))
	}
	return true
}

func formatPlain(ev protocol.Event) string {
	switch ev := ev.(type) {
	case protocol.Message:
		return fmt.Sprintf("[%s]: %s", ev.Sender, ev.Body)
	case protocol.PresenceJoined:
		return fmt.Sprintf("*** %s joined the chat ***", ev.Name)
	case protocol.PresenceLeft:
		return fmt.Sprintf("*** %s left the chat ***", ev.Name)
	case protocol.Renamed:
		return fmt.Sprintf("*** %s is now known as %s ***", ev.OldName, ev.NewName)
	default:
		return ""
	}
}

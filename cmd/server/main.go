package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/linechat/internal/chat"
	"github.com/omochice/linechat/internal/logging"
	"github.com/omochice/linechat/internal/transport/mux"
	"github.com/omochice/linechat/internal/transport/tcp"
	"github.com/omochice/linechat/internal/transport/ws"
)

var rootCmd = &cobra.Command{
	Use:          "linechat-server",
	Short:        "Relay server for the line protocol chat",
	RunE:         runServer,
	SilenceUsage: true,
}

var (
	flagAddr      string
	flagWSAddr    string
	flagLogLevel  string
	flagLogFormat string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagAddr, "addr", ":6078", "listen address; serves TCP and WebSocket unless --ws-addr is set")
	flags.StringVar(&flagWSAddr, "ws-addr", "", "separate WebSocket listen address (e.g. :8080); --addr then serves TCP only")
	flags.StringVar(&flagLogLevel, "log-level", "info", "log level")
	flags.StringVar(&flagLogFormat, "log-format", "console", "log format: console or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute server command")
	}
}

// listener is the common shape of the relay servers.
type listener interface {
	Listen() error
	Start() error
	Stop()
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(os.Stderr, flagLogLevel, flagLogFormat)
	if err != nil {
		return err
	}
	log.Logger = logger

	hub := chat.NewHub(logger.With().Str("component", "hub").Logger())
	servers := newServers(hub, logger)

	errChan := make(chan error, len(servers))
	for i, srv := range servers {
		if err := srv.Listen(); err != nil {
			for _, started := range servers[:i] {
				started.Stop()
			}
			return err
		}
		go func() {
			errChan <- srv.Start()
		}()
	}

	// Wait for either error or shutdown signal
	select {
	case err = <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	for _, srv := range servers {
		srv.Stop()
	}
	log.Info().Msg("server stopped")
	return err
}

func newServers(hub *chat.Hub, logger zerolog.Logger) []listener {
	if flagWSAddr == "" {
		return []listener{mux.New(flagAddr, hub, logger.With().Str("component", "mux").Logger())}
	}
	return []listener{
		tcp.New(flagAddr, hub, logger.With().Str("component", "tcp").Logger()),
		ws.New(flagWSAddr, hub, logger.With().Str("component", "ws").Logger()),
	}
}

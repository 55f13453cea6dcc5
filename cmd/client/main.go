package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/omochice/linechat/internal/client"
	"github.com/omochice/linechat/internal/config"
	"github.com/omochice/linechat/internal/logging"
	"github.com/omochice/linechat/internal/store"
	"github.com/omochice/linechat/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:          "linechat",
	Short:        "Line protocol chat client",
	RunE:         runClient,
	SilenceUsage: true,
}

var (
	flagConfig   string
	flagServer   string
	flagName     string
	flagStateDir string
	flagPlain    bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "config file (default ~/.linechat/config.yaml)")
	rootCmd.Flags().StringVar(&flagServer, "server", "", "open an extra tab for this server address and select it")
	rootCmd.Flags().StringVar(&flagName, "name", "", "display name for --server and new default tabs")
	rootCmd.Flags().StringVar(&flagStateDir, "state-dir", "", "directory of the saved tab list (overrides config)")
	rootCmd.Flags().BoolVar(&flagPlain, "plain", false, "line mode on stdin/stdout for the selected tab instead of the terminal UI")

	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute client command")
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagStateDir != "" {
		cfg.StateDir = flagStateDir
	}
	if flagName != "" {
		cfg.Default.Name = flagName
	}

	// The terminal UI owns stdout, so logs go to a file unless in line mode.
	var out io.Writer = os.Stderr
	if !flagPlain {
		f, err := logging.OpenFile(cfg.Logging.File)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	logger, err := logging.New(out, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	log.Logger = logger

	st, err := store.Open(cfg.StateDir, logger.With().Str("component", "store").Logger())
	if err != nil {
		log.Warn().Err(err).Msg("open state failed; tabs will not be saved")
		st = nil
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("close state failed")
		}
	}()

	cfgs, err := st.Load()
	if err != nil {
		log.Warn().Err(err).Msg("load saved tabs failed")
	}
	cfgs, start := initialTabs(cfgs, flagServer, cfg.Default)

	waker := tui.NewWaker()
	opts := append(cfg.Session.Options(),
		client.WithLogger(logger.With().Str("component", "session").Logger()),
		client.WithNotify(waker.Notify),
	)

	if flagPlain {
		sup := client.NewSupervisor(cfgs[start], opts...)
		defer sup.Close()
		runPlain(ctx, sup, waker, os.Stdin, os.Stdout)
		saveTabs(st, cfgs)
		return nil
	}

	tabs := client.OpenTabs(cfgs, opts...)
	defer tabs.Close()
	if err := tabs.Select(start); err != nil {
		return err
	}

	if err := tui.Run(ctx, tabs, waker); err != nil {
		return err
	}
	saveTabs(st, tabs.Configs())
	return nil
}

// initialTabs returns the tab list to open and the tab to select. An
// explicit server is appended and selected; an empty list gets def.
func initialTabs(saved []client.ConnectionConfig, server string, def client.ConnectionConfig) ([]client.ConnectionConfig, int) {
	cfgs := append([]client.ConnectionConfig(nil), saved...)
	start := 0
	if server != "" {
		cfgs = append(cfgs, client.ConnectionConfig{Server: server, Name: def.Name})
		start = len(cfgs) - 1
	}
	if len(cfgs) == 0 {
		cfgs = append(cfgs, def)
	}
	return cfgs, start
}

func saveTabs(st *store.Store, cfgs []client.ConnectionConfig) {
	if err := st.Save(cfgs); err != nil {
		log.Error().Err(err).Msg("save tabs failed")
		return
	}
	log.Debug().Int("tabs", len(cfgs)).Msg("tabs saved")
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sbchat/sbchat/internal/config"
	"github.com/sbchat/sbchat/internal/logging"
	"github.com/sbchat/sbchat/internal/router"
	"github.com/sbchat/sbchat/internal/shared/cmdutils"
)

var routerListen string

var routerCmd = &cobra.Command{
	Use:   "router",
	Short: "Run the bus router that chat nodes connect to",
	RunE:  runRouter,
}

func init() {
	routerCmd.Flags().StringVarP(&routerListen, "listen", "l", "", "Listen address (overrides router.listen)")
}

func runRouter(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if routerListen != "" {
		cfg.Router.Listen = routerListen
	}
	// The router has no conversation to keep quiet, so default to info.
	if logLevel == "" && cfg.Log.Level == config.DefaultConfig().Log.Level {
		cfg.Log.Level = "info"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.Setup(cfg.Log, os.Stderr)

	srv := router.NewServer(cfg.Router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmdutils.Banner(os.Stdout, "sbchat router on %s%s. Press Ctrl+C to stop.", cfg.Router.Listen, cfg.Router.Path)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}

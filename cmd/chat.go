package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sbchat/sbchat/internal/console"
	"github.com/sbchat/sbchat/internal/dependency"
	"github.com/sbchat/sbchat/internal/logging"
	"github.com/sbchat/sbchat/internal/shared/cmdutils"
)

var (
	chatRouter   string
	chatID       string
	chatLoopback bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session.

Type "=<node id>" to choose who you are talking to, then type messages.
Messages from other nodes are printed as they arrive. Ctrl-D quits.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatRouter, "router", "", "Router websocket URL (overrides node.routerUrl)")
	chatCmd.Flags().StringVar(&chatID, "id", "", "Node id (overrides node.id)")
	chatCmd.Flags().BoolVar(&chatLoopback, "loopback", false, "Use an in-process bus with an echo peer instead of the router")
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if chatRouter != "" {
		cfg.Node.RouterURL = chatRouter
	}
	if chatID != "" {
		cfg.Node.ID = chatID
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.Console.Color {
		color.NoColor = true
	}

	con, err := console.Open(os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer con.Close()

	logging.Setup(cfg.Log, con.Errors)

	container, err := dependency.New(cfg, con, dependency.Loopback(chatLoopback))
	if err != nil {
		return err
	}

	where := cfg.Node.RouterURL
	if chatLoopback {
		where = "loopback (try =" + dependency.EchoNodeID + ")"
	}
	cmdutils.Banner(con.Sink, "sbchat %s as %s via %s", version, cfg.Node.ID, where)
	_ = con.Sink.Print(cmdutils.HintText("type =<node id> to pick a peer, Ctrl-D to quit"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	linkCtx, stopLink := context.WithCancel(gctx)
	defer stopLink()

	g.Go(func() error {
		err := container.Link().Run(linkCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// Input closed: the session is over, so drop the router connection too.
		defer stopLink()
		err := container.ChatClient().Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("chat: session ended", "messages", con.History.Len())
	_ = con.Sink.Print("bye")
	return nil
}

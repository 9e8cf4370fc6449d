package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sbchat/sbchat/internal/bus"
	"github.com/sbchat/sbchat/internal/chat"
	"github.com/sbchat/sbchat/internal/dependency"
	"github.com/sbchat/sbchat/internal/logging"
)

var (
	sendTo      string
	sendMessage string
	sendID      string
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single chat message and exit",
	RunE:  runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "Recipient node id")
	sendCmd.Flags().StringVarP(&sendMessage, "message", "m", "", "Message text")
	sendCmd.Flags().StringVar(&sendID, "id", "", "Sender node id (default node.id, or a one-off id)")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 10*time.Second, "Give up after this long")
	_ = sendCmd.MarkFlagRequired("to")
	_ = sendCmd.MarkFlagRequired("message")
}

func runSend(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if sendID != "" {
		cfg.Node.ID = sendID
	}
	if cfg.Node.ID == "" {
		cfg.Node.ID = "send-" + uuid.NewString()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logging.Setup(cfg.Log, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	client := dependency.NewTransport(cfg)
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run(ctx) }()

	connected := make(chan error, 1)
	go func() { connected <- client.WaitConnected(ctx) }()

	select {
	case err := <-runErr:
		return fmt.Errorf("connect to %s: %w", cfg.Node.RouterURL, err)
	case err := <-connected:
		if err != nil {
			return fmt.Errorf("connect to %s: %w", cfg.Node.RouterURL, err)
		}
	}

	if err := bus.CallChat(ctx, client, sendTo, bus.ChatMsg{Msg: sendMessage}); err != nil {
		return err
	}
	fmt.Println(chat.SendDoneText)
	return nil
}

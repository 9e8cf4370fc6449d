package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbchat/sbchat/internal/router"
	"github.com/sbchat/sbchat/internal/shared/cmdutils"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sbchat config and router health",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := configPath()

	fmt.Printf("%s sbchat Status\n\n", cmdutils.Logo)

	_, statErr := os.Stat(cfgPath)
	fmt.Printf("Config:  %s %s\n", cfgPath, cmdutils.Mark(statErr == nil))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	nodeID := cfg.Node.ID
	if nodeID == "" {
		nodeID = "(not set, run sbchat onboard)"
	}
	fmt.Printf("Node id: %s\n", nodeID)
	fmt.Printf("Router:  %s\n", cfg.Node.RouterURL)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	st, err := router.FetchStats(ctx, http.DefaultClient, cfg.Node.RouterURL)
	if err != nil {
		fmt.Printf("Health:  %s unreachable (%v)\n", cmdutils.Mark(false), err)
		return nil
	}
	fmt.Printf("Health:  %s %d nodes, %d calls (%d failed), up %s\n",
		cmdutils.Mark(true), st.Nodes, st.Calls, st.Failed, time.Duration(st.UptimeSec)*time.Second)
	for _, id := range st.NodeIDs {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

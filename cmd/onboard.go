package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sbchat/sbchat/internal/config"
	"github.com/sbchat/sbchat/internal/shared/cmdutils"
)

var onboardForce bool

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Write a default config with a fresh node id",
	RunE:  runOnboard,
}

func init() {
	onboardCmd.Flags().BoolVarP(&onboardForce, "force", "f", false, "Overwrite an existing config")
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := configPath()

	if _, err := os.Stat(cfgPath); err == nil && !onboardForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", cfgPath)
	}

	cfg := config.DefaultConfig()
	cfg.Node.ID = uuid.NewString()
	if err := config.Save(&cfg, cfgPath); err != nil {
		return err
	}

	fmt.Printf("%s Created config at %s\n", cmdutils.Mark(true), cfgPath)
	fmt.Printf("%s Node id %s\n", cmdutils.Mark(true), cfg.Node.ID)
	fmt.Printf("\n%s sbchat is ready!\n\n", cmdutils.Logo)
	fmt.Println("Next steps:")
	fmt.Println("  1. Start a router:   sbchat router")
	fmt.Println("  2. Start chatting:   sbchat chat")
	fmt.Println("     then type =<peer id> and your message")
	return nil
}

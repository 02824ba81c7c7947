package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "linegpt",
	Short: "linegpt — LINE webhook relay for OpenAI-compatible backends",
	Long:  "linegpt-go relays LINE message events to a chat-completion backend and delivers the generated replies back to the chat.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.linegpt/config.json)")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayato/linegpt-go/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	cfg := config.DefaultConfig()
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("✓ Wrote %s\n", path)
	fmt.Println("Fill in line.channelSecret, line.channelAccessToken and openai.apiUrl,")
	fmt.Println("or set LINE_CHANNEL_SECRET, LINE_CHANNEL_ACCESS_TOKEN and OPENAI_API_URL.")
	return nil
}

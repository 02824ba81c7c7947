package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ayato/linegpt-go/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show resolved configuration",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("linegpt status")
	fmt.Println()
	fmt.Printf("Config: %s\n", path)
	fmt.Printf("Listen: :%d%s\n", cfg.Server.Port, cfg.Server.WebhookPath)
	fmt.Printf("Backend: %s\n", cfg.OpenAI.APIURL)
	fmt.Printf("Model: %s\n", orUnset(cfg.OpenAI.Model))
	fmt.Printf("Channel secret: %s\n", present(cfg.Line.ChannelSecret))
	fmt.Printf("Access token: %s\n", present(cfg.Line.ChannelAccessToken))
	fmt.Printf("Backend key: %s\n", present(cfg.OpenAI.APIKey))
	fmt.Printf("Push on timeout: %v\n", cfg.Relay.PushOnTimeoutEnabled())
	fmt.Printf("Timeouts: short %ds, long %ds\n",
		cfg.Relay.ShortTimeoutSeconds, cfg.Relay.LongTimeoutSeconds)

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\n⚠ not runnable: %v\n", err)
	} else {
		fmt.Println("\n✓ ready to serve")
	}
	return nil
}

func present(secret string) string {
	if secret == "" {
		return "✗ missing"
	}
	return "✓ set"
}

func orUnset(s string) string {
	if s == "" {
		return "(backend default)"
	}
	return s
}

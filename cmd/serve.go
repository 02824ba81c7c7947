package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayato/linegpt-go/internal/config"
	"github.com/ayato/linegpt-go/internal/line"
	"github.com/ayato/linegpt-go/internal/llm"
	"github.com/ayato/linegpt-go/internal/relay"
	"github.com/ayato/linegpt-go/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook relay",
	RunE:  runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	lineClient := line.NewClient(cfg.Line.APIBase, cfg.Line.ChannelAccessToken, logger)
	completer := llm.NewClient(llm.Config{
		APIURL:       cfg.OpenAI.APIURL,
		APIKey:       cfg.OpenAI.APIKey,
		Model:        cfg.OpenAI.Model,
		Temperature:  cfg.OpenAI.Temperature,
		SystemPrompt: cfg.OpenAI.SystemPrompt,
	}, logger)

	orch := relay.NewOrchestrator(completer, lineClient, relay.Policy{
		ShortTimeout:   time.Duration(cfg.Relay.ShortTimeoutSeconds) * time.Second,
		LongTimeout:    time.Duration(cfg.Relay.LongTimeoutSeconds) * time.Second,
		LoadingSeconds: cfg.Relay.LoadingSeconds,
		PushOnTimeout:  cfg.Relay.PushOnTimeoutEnabled(),
		PendingText:    cfg.Relay.PendingText,
		FailText:       cfg.Relay.FailText,
		EmptyText:      cfg.Relay.EmptyText,
	}, logger)

	dispatcher := relay.NewDispatcher(orch, logger)

	srv := server.New(server.Config{
		Port:          cfg.Server.Port,
		WebhookPath:   cfg.Server.WebhookPath,
		ChannelSecret: cfg.Line.ChannelSecret,
	}, dispatcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	go dispatcher.Run(ctx)

	logger.Info("linegpt starting",
		zap.String("model", cfg.OpenAI.Model),
		zap.Bool("push_on_timeout", cfg.Relay.PushOnTimeoutEnabled()))
	return srv.Start(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

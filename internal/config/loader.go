package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultTemperature is used when the configured temperature is absent or unparseable.
const DefaultTemperature = 0.7

// GetConfigPath returns the default config file path (~/.linegpt/config.json).
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".linegpt", "config.json")
}

// DefaultConfig returns the configuration defaults applied before file and
// environment values.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:        8080,
			WebhookPath: "/webhook/line",
		},
		Line: LineConfig{
			APIBase: "https://api.line.me",
		},
		OpenAI: OpenAIConfig{
			Temperature: DefaultTemperature,
		},
		Relay: RelayConfig{
			ShortTimeoutSeconds: 10,
			LongTimeoutSeconds:  60,
			LoadingSeconds:      20,
			PendingText:         "Still thinking... I'll send the answer in a moment.",
			FailText:            "Sorry, something went wrong. Please try again.",
			EmptyText:           "(no answer)",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from a JSON file and applies environment overrides.
// If path is empty, uses the default config path.
// If the file doesn't exist, starts from DefaultConfig().
func Load(path string) (Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg := DefaultConfig() // start with defaults so zero-value fields get filled
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), err
		}
	case os.IsNotExist(err):
		// fine, env-only deployments carry no config file
	default:
		return Config{}, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Save writes configuration to a JSON file.
// If path is empty, uses the default config path.
func Save(cfg Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnv overlays environment variables on top of file values. Environment
// wins so containerized deployments need no config file at all.
func applyEnv(cfg *Config) {
	if v := os.Getenv("LINE_CHANNEL_SECRET"); v != "" {
		cfg.Line.ChannelSecret = v
	}
	if v := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"); v != "" {
		cfg.Line.ChannelAccessToken = v
	}
	if v := os.Getenv("OPENAI_API_URL"); v != "" {
		cfg.OpenAI.APIURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.Model = v
	}
	if v := os.Getenv("SYSTEM_PROMPT"); v != "" {
		cfg.OpenAI.SystemPrompt = v
	}
	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.OpenAI.Temperature = t
		} else {
			cfg.OpenAI.Temperature = DefaultTemperature
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

// Validate checks the settings the process cannot run without.
func (c Config) Validate() error {
	if c.Line.ChannelSecret == "" {
		return errors.New("line.channelSecret is required (or LINE_CHANNEL_SECRET)")
	}
	if c.Line.ChannelAccessToken == "" {
		return errors.New("line.channelAccessToken is required (or LINE_CHANNEL_ACCESS_TOKEN)")
	}
	if c.OpenAI.APIURL == "" {
		return errors.New("openai.apiUrl is required (or OPENAI_API_URL)")
	}
	return nil
}

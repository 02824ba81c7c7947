// Package config handles configuration loading, saving, and schema definition.
package config

// Config is the top-level linegpt configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Server   ServerConfig `json:"server"`
	Line     LineConfig   `json:"line"`
	OpenAI   OpenAIConfig `json:"openai"`
	Relay    RelayConfig  `json:"relay"`
	LogLevel string       `json:"logLevel,omitempty"`
}

// ServerConfig holds the inbound HTTP listener settings.
type ServerConfig struct {
	Port        int    `json:"port"`
	WebhookPath string `json:"webhookPath"`
}

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelSecret      string `json:"channelSecret"`
	ChannelAccessToken string `json:"channelAccessToken"`
	APIBase            string `json:"apiBase,omitempty"` // default https://api.line.me
}

// OpenAIConfig holds the completion backend settings.
// APIURL is the full chat-completions URL, not a base path.
type OpenAIConfig struct {
	APIURL       string  `json:"apiUrl"`
	APIKey       string  `json:"apiKey,omitempty"`
	Model        string  `json:"model,omitempty"`
	Temperature  float64 `json:"temperature"`
	SystemPrompt string  `json:"systemPrompt,omitempty"`
}

// RelayConfig holds per-event processing policy.
type RelayConfig struct {
	ShortTimeoutSeconds int    `json:"shortTimeoutSeconds"`
	LongTimeoutSeconds  int    `json:"longTimeoutSeconds"`
	LoadingSeconds      int    `json:"loadingSeconds"`
	PushOnTimeout       *bool  `json:"pushOnTimeout,omitempty"` // nil = enabled
	PendingText         string `json:"pendingText"`
	FailText            string `json:"failText"`
	EmptyText           string `json:"emptyText"`
}

// PushOnTimeoutEnabled reports whether the deferred push tier is active.
func (r RelayConfig) PushOnTimeoutEnabled() bool {
	return r.PushOnTimeout == nil || *r.PushOnTimeout
}

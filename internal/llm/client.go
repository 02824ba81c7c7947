// Package llm provides the chat-completion client for OpenAI-compatible
// backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrTimeout marks a completion attempt that exceeded its deadline. Callers
// distinguish it from generic network failure to decide on the deferred push
// path.
var ErrTimeout = errors.New("completion timed out")

// UpstreamError is a non-2xx response from the completion backend. Status
// and body are carried for logs only.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion backend HTTP %d: %s", e.Status, e.Body)
}

// Config holds the completion backend settings.
type Config struct {
	APIURL       string // full chat-completions URL
	APIKey       string
	Model        string
	Temperature  float64
	SystemPrompt string
}

// Client sends chat-completion requests. Exactly one HTTP attempt per call;
// retries at a higher deadline tier are the caller's decision.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a completion client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	httpc := resty.New().
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpc.SetAuthToken(cfg.APIKey)
	}
	return &Client{http: httpc, cfg: cfg, logger: logger}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	User        string    `json:"user,omitempty"`
}

// completionResponse accepts both known response shapes:
// chat ({choices:[{message:{content}}]}) and legacy ({choices:[{text}]}).
type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete sends one completion request bounded by timeout and returns the
// extracted reply text. An empty string is a valid result, distinct from an
// error: absent response fields do not fail the call.
func (c *Client) Complete(ctx context.Context, userID, text string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msgs := make([]message, 0, 2)
	if c.cfg.SystemPrompt != "" {
		msgs = append(msgs, message{Role: "system", Content: c.cfg.SystemPrompt})
	}
	msgs = append(msgs, message{Role: "user", Content: text})

	req := completionRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		Temperature: c.cfg.Temperature,
		User:        userID,
	}

	var out completionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(c.cfg.APIURL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w after %s", ErrTimeout, timeout)
		}
		return "", fmt.Errorf("completion request: %w", err)
	}
	if resp.IsError() {
		return "", &UpstreamError{Status: resp.StatusCode(), Body: resp.String()}
	}

	c.logger.Debug("completion ok",
		zap.Int("status", resp.StatusCode()),
		zap.Int("choices", len(out.Choices)))

	if len(out.Choices) == 0 {
		return "", nil
	}
	choice := out.Choices[0]
	if choice.Message.Content != "" {
		return choice.Message.Content, nil
	}
	return choice.Text, nil
}

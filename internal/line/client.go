package line

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	replyPath   = "/v2/bot/message/reply"
	pushPath    = "/v2/bot/message/push"
	loadingPath = "/v2/bot/chat/loading/start"

	// MaxTextLength is the platform limit for one text message.
	MaxTextLength = 5000

	// DefaultLoadingSeconds is used when a configured loading duration is
	// outside the platform's allowed range.
	DefaultLoadingSeconds = 20
)

// APIError is a non-2xx response from the LINE Messaging API.
type APIError struct {
	Op     string // "reply" | "push" | "loading"
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line %s: HTTP %d: %s", e.Op, e.Status, e.Body)
}

// Client sends messages through the LINE Messaging API.
// Every operation is a one-shot POST with bearer auth: no retry, no queuing.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a LINE API client. apiBase defaults to the production
// endpoint and is overridable for tests.
func NewClient(apiBase, channelAccessToken string, logger *zap.Logger) *Client {
	if apiBase == "" {
		apiBase = "https://api.line.me"
	}
	httpc := resty.New().
		SetBaseURL(apiBase).
		SetAuthToken(channelAccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &Client{http: httpc, logger: logger}
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reply consumes the single-use reply token bound to one inbound event.
// A no-op when the token is empty: a malformed request is never sent.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return nil
	}
	body := map[string]any{
		"replyToken": replyToken,
		"messages":   []textMessage{{Type: "text", Text: Truncate(text)}},
	}
	return c.post(ctx, "reply", replyPath, body)
}

// Push delivers a message to a durable recipient identifier, usable any time
// after the originating event. A no-op when the recipient is empty.
func (c *Client) Push(ctx context.Context, to, text string) error {
	if to == "" {
		return nil
	}
	body := map[string]any{
		"to":       to,
		"messages": []textMessage{{Type: "text", Text: Truncate(text)}},
	}
	return c.post(ctx, "push", pushPath, body)
}

// StartLoading shows the typing/loading indicator in the chat for the given
// duration. Advisory only; callers swallow the error after logging it.
func (c *Client) StartLoading(ctx context.Context, chatID string, seconds int) error {
	if chatID == "" {
		return nil
	}
	body := map[string]any{
		"chatId":         chatID,
		"loadingSeconds": ClampLoadingSeconds(seconds),
	}
	return c.post(ctx, "loading", loadingPath, body)
}

func (c *Client) post(ctx context.Context, op, path string, body any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return fmt.Errorf("line %s: %w", op, err)
	}
	if resp.IsError() {
		return &APIError{Op: op, Status: resp.StatusCode(), Body: resp.String()}
	}
	c.logger.Debug("line send ok", zap.String("op", op))
	return nil
}

// ClampLoadingSeconds snaps a duration onto the platform's allowed set
// (5..60 in steps of 5). Out-of-range input snaps to the default.
func ClampLoadingSeconds(s int) int {
	if s < 5 || s > 60 {
		return DefaultLoadingSeconds
	}
	return s - s%5
}

// Truncate caps message text at the platform limit without splitting a rune.
func Truncate(s string) string {
	if len(s) <= MaxTextLength {
		return s
	}
	runes := []rune(s)
	if len(runes) <= MaxTextLength {
		return s
	}
	return string(runes[:MaxTextLength])
}

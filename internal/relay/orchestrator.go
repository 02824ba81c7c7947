package relay

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ayato/linegpt-go/internal/line"
	"github.com/ayato/linegpt-go/internal/llm"
)

// Completer produces a reply text for one inbound message within a deadline.
type Completer interface {
	Complete(ctx context.Context, userID, text string, timeout time.Duration) (string, error)
}

// Messenger delivers messages back to the chat platform.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, to, text string) error
	StartLoading(ctx context.Context, chatID string, seconds int) error
}

// Policy holds the per-event processing settings.
type Policy struct {
	ShortTimeout   time.Duration
	LongTimeout    time.Duration
	LoadingSeconds int // 0 disables the loading indicator
	PushOnTimeout  bool
	PendingText    string
	FailText       string
	EmptyText      string // placeholder when the completion result is empty
}

// Orchestrator runs the state machine for one event: completion with the
// short deadline, reply, and on timeout the deferred push tier with the long
// deadline. Events are independent; the orchestrator keeps no state between
// calls.
type Orchestrator struct {
	completer Completer
	messenger Messenger
	policy    Policy
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(completer Completer, messenger Messenger, policy Policy, logger *zap.Logger) *Orchestrator {
	if policy.ShortTimeout <= 0 {
		policy.ShortTimeout = 10 * time.Second
	}
	if policy.LongTimeout <= 0 {
		policy.LongTimeout = 60 * time.Second
	}
	return &Orchestrator{
		completer: completer,
		messenger: messenger,
		policy:    policy,
		logger:    logger,
	}
}

// Process runs one event to a terminal outcome. All steps are sequential
// except the detached loading-indicator call. Failures never escape: every
// error path ends in a logged outcome, not a panic or a propagated error.
func (o *Orchestrator) Process(ctx context.Context, ev line.Event) Outcome {
	log := o.logger.With(zap.String("event_id", ev.WebhookEventID))

	if ev.DeliveryContext != nil && ev.DeliveryContext.IsRedelivery {
		// No event-id cache exists: redelivered events are processed again
		// and may produce duplicate replies. Surfaced for operators.
		log.Warn("processing platform redelivery")
	}

	if !ev.IsTextMessage() {
		log.Debug("skipping event", zap.String("type", ev.Type))
		return OutcomeSkipped
	}

	text := ev.Message.Text
	userID := ev.Source.UserID
	replyToken := ev.ReplyToken

	if o.policy.LoadingSeconds > 0 && userID != "" {
		go func() {
			if err := o.messenger.StartLoading(ctx, userID, o.policy.LoadingSeconds); err != nil {
				log.Warn("loading indicator failed", zap.Error(err))
			}
		}()
	}

	result, err := o.completer.Complete(ctx, userID, text, o.policy.ShortTimeout)
	if err == nil {
		if replyErr := o.messenger.Reply(ctx, replyToken, o.orEmpty(result)); replyErr != nil {
			log.Warn("reply failed, attempting fallback", zap.Error(replyErr))
			return o.fallback(ctx, log, replyToken)
		}
		log.Info("replied", zap.Int("len", len(result)))
		return OutcomeReplied
	}

	if errors.Is(err, llm.ErrTimeout) && o.policy.PushOnTimeout && userID != "" {
		return o.deferAndPush(ctx, log, userID, text, replyToken)
	}

	log.Error("completion failed", zap.Error(err))
	return o.fallback(ctx, log, replyToken)
}

// deferAndPush handles the slow path: tell the user a result is coming via
// the reply token, retry the completion with the long deadline, and push the
// result (or the fail text) to the durable user id. The reply token is
// consumed by the pending reply, so push is the only channel left afterward.
func (o *Orchestrator) deferAndPush(ctx context.Context, log *zap.Logger, userID, text, replyToken string) Outcome {
	log.Info("completion deadline exceeded, deferring to push",
		zap.Duration("short_timeout", o.policy.ShortTimeout))

	if err := o.messenger.Reply(ctx, replyToken, o.policy.PendingText); err != nil {
		// The user is still reachable via push, keep going.
		log.Warn("pending reply failed", zap.Error(err))
	}

	result, err := o.completer.Complete(ctx, userID, text, o.policy.LongTimeout)
	if err != nil {
		log.Error("deferred completion failed", zap.Error(err))
		if pushErr := o.messenger.Push(ctx, userID, o.policy.FailText); pushErr != nil {
			log.Error("failure push failed", zap.Error(pushErr))
		}
		return OutcomeDeferredPushFailed
	}

	if err := o.messenger.Push(ctx, userID, o.orEmpty(result)); err != nil {
		log.Error("result push failed", zap.Error(err))
		return OutcomeDeferredPushFailed
	}
	log.Info("deferred result pushed", zap.Int("len", len(result)))
	return OutcomeDeferredPushed
}

// fallback makes the single user-visible failure attempt. Its own failure is
// logged and swallowed; the pipeline never retries past this point.
func (o *Orchestrator) fallback(ctx context.Context, log *zap.Logger, replyToken string) Outcome {
	if err := o.messenger.Reply(ctx, replyToken, o.policy.FailText); err != nil {
		log.Error("fallback reply failed", zap.Error(err))
		return OutcomeFallbackFailed
	}
	return OutcomeFallbackReplied
}

func (o *Orchestrator) orEmpty(s string) string {
	if s == "" {
		return o.policy.EmptyText
	}
	return s
}

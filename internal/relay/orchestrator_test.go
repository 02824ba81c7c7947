package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayato/linegpt-go/internal/line"
	"github.com/ayato/linegpt-go/internal/llm"
)

// --- fakes ---

type fakeCompleter struct {
	mu       sync.Mutex
	timeouts []time.Duration
	queue    []func() (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeouts = append(f.timeouts, timeout)
	if len(f.queue) == 0 {
		return "", nil
	}
	fn := f.queue[0]
	f.queue = f.queue[1:]
	return fn()
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timeouts)
}

func completes(text string) func() (string, error) {
	return func() (string, error) { return text, nil }
}

func fails(err error) func() (string, error) {
	return func() (string, error) { return "", err }
}

type sendCall struct {
	Op     string // "reply" | "push" | "loading"
	Target string
	Text   string
}

type fakeMessenger struct {
	mu        sync.Mutex
	calls     []sendCall
	replyErrs []error
	pushErrs  []error
	loadingCh chan sendCall
}

func (m *fakeMessenger) Reply(_ context.Context, token, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sendCall{"reply", token, text})
	if len(m.replyErrs) > 0 {
		err := m.replyErrs[0]
		m.replyErrs = m.replyErrs[1:]
		return err
	}
	return nil
}

func (m *fakeMessenger) Push(_ context.Context, to, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, sendCall{"push", to, text})
	if len(m.pushErrs) > 0 {
		err := m.pushErrs[0]
		m.pushErrs = m.pushErrs[1:]
		return err
	}
	return nil
}

func (m *fakeMessenger) StartLoading(_ context.Context, chatID string, seconds int) error {
	call := sendCall{"loading", chatID, fmt.Sprintf("%d", seconds)}
	if m.loadingCh != nil {
		m.loadingCh <- call
	}
	return nil
}

func (m *fakeMessenger) sent() []sendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]sendCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func textEvent(text string) line.Event {
	return line.Event{
		Type:       "message",
		ReplyToken: "rtok",
		Source:     line.Source{Type: "user", UserID: "U1"},
		Message:    &line.Message{ID: "m1", Type: "text", Text: text},
	}
}

func testPolicy() Policy {
	return Policy{
		ShortTimeout:  100 * time.Millisecond,
		LongTimeout:   500 * time.Millisecond,
		PushOnTimeout: true,
		PendingText:   "pending",
		FailText:      "fail",
		EmptyText:     "empty",
	}
}

func newTestOrchestrator(c *fakeCompleter, m *fakeMessenger, policy Policy) *Orchestrator {
	return NewOrchestrator(c, m, policy, zap.NewNop())
}

// --- filtering ---

func TestProcess_SkipsNonMessageEvent(t *testing.T) {
	c := &fakeCompleter{}
	m := &fakeMessenger{}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), line.Event{Type: "follow", ReplyToken: "rtok"})
	assert.Equal(t, OutcomeSkipped, out)
	assert.Zero(t, c.callCount())
	assert.Empty(t, m.sent()) // zero outbound calls
}

func TestProcess_SkipsNonTextMessage(t *testing.T) {
	c := &fakeCompleter{}
	m := &fakeMessenger{}
	o := newTestOrchestrator(c, m, testPolicy())

	ev := line.Event{
		Type:       "message",
		ReplyToken: "rtok",
		Source:     line.Source{UserID: "U1"},
		Message:    &line.Message{Type: "sticker"},
	}
	assert.Equal(t, OutcomeSkipped, o.Process(context.Background(), ev))
	assert.Zero(t, c.callCount())
	assert.Empty(t, m.sent())
}

// --- happy path ---

func TestProcess_RepliesWithCompletionText(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){completes("hi")}}
	m := &fakeMessenger{}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeReplied, out)
	assert.Equal(t, []sendCall{{"reply", "rtok", "hi"}}, m.sent())
	require.Equal(t, 1, c.callCount())
	assert.Equal(t, 100*time.Millisecond, c.timeouts[0]) // short tier
}

func TestProcess_EmptyCompletionUsesPlaceholder(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){completes("")}}
	m := &fakeMessenger{}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeReplied, out)
	assert.Equal(t, []sendCall{{"reply", "rtok", "empty"}}, m.sent())
}

func TestProcess_ReplyFailureFallsBack(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){completes("hi")}}
	m := &fakeMessenger{replyErrs: []error{errors.New("token expired")}}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeFallbackReplied, out)
	assert.Equal(t, []sendCall{
		{"reply", "rtok", "hi"},
		{"reply", "rtok", "fail"},
	}, m.sent())
}

// --- timeout / deferred push tier ---

func TestProcess_TimeoutDefersToPush(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){
		fails(llm.ErrTimeout),
		completes("ok"),
	}}
	m := &fakeMessenger{}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeDeferredPushed, out)
	// Exact sequence: pending reply, then the pushed result. No fallback.
	assert.Equal(t, []sendCall{
		{"reply", "rtok", "pending"},
		{"push", "U1", "ok"},
	}, m.sent())
	require.Equal(t, 2, c.callCount())
	assert.Equal(t, 500*time.Millisecond, c.timeouts[1]) // long tier
}

func TestProcess_DeferredFailurePushesFailText(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){
		fails(llm.ErrTimeout),
		fails(&llm.UpstreamError{Status: 502, Body: "bad gateway"}),
	}}
	m := &fakeMessenger{}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeDeferredPushFailed, out)
	assert.Equal(t, []sendCall{
		{"reply", "rtok", "pending"},
		{"push", "U1", "fail"},
	}, m.sent())
}

func TestProcess_DeferredResultPushFailure(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){
		fails(llm.ErrTimeout),
		completes("ok"),
	}}
	m := &fakeMessenger{pushErrs: []error{errors.New("blocked")}}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), textEvent("hello"))
	// Reply token already consumed by the pending reply; nothing more to try.
	assert.Equal(t, OutcomeDeferredPushFailed, out)
}

func TestProcess_PendingReplyFailureStillPushes(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){
		fails(llm.ErrTimeout),
		completes("ok"),
	}}
	m := &fakeMessenger{replyErrs: []error{errors.New("token expired")}}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeDeferredPushed, out)
	assert.Equal(t, []sendCall{
		{"reply", "rtok", "pending"},
		{"push", "U1", "ok"},
	}, m.sent())
}

func TestProcess_TimeoutWithPushDisabledFallsBack(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){fails(llm.ErrTimeout)}}
	m := &fakeMessenger{}
	policy := testPolicy()
	policy.PushOnTimeout = false
	o := newTestOrchestrator(c, m, policy)

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeFallbackReplied, out)
	assert.Equal(t, []sendCall{{"reply", "rtok", "fail"}}, m.sent())
	assert.Equal(t, 1, c.callCount()) // no long-tier retry
}

func TestProcess_TimeoutWithoutUserIDFallsBack(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){fails(llm.ErrTimeout)}}
	m := &fakeMessenger{}
	o := newTestOrchestrator(c, m, testPolicy())

	ev := textEvent("hello")
	ev.Source.UserID = ""
	out := o.Process(context.Background(), ev)
	assert.Equal(t, OutcomeFallbackReplied, out)
	assert.Equal(t, []sendCall{{"reply", "rtok", "fail"}}, m.sent())
}

// --- generic failures ---

func TestProcess_UpstreamErrorRepliesFailTextOnce(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){
		fails(&llm.UpstreamError{Status: 500, Body: "boom"}),
	}}
	m := &fakeMessenger{}
	policy := testPolicy()
	policy.PushOnTimeout = false
	o := newTestOrchestrator(c, m, policy)

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeFallbackReplied, out)
	// Exactly one reply(failText), no push calls.
	assert.Equal(t, []sendCall{{"reply", "rtok", "fail"}}, m.sent())
}

func TestProcess_FallbackFailureIsTerminal(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){
		fails(errors.New("connection refused")),
	}}
	m := &fakeMessenger{replyErrs: []error{errors.New("down")}}
	o := newTestOrchestrator(c, m, testPolicy())

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeFallbackFailed, out)
	assert.Equal(t, []sendCall{{"reply", "rtok", "fail"}}, m.sent())
}

// --- loading indicator ---

func TestProcess_FiresLoadingIndicator(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){completes("hi")}}
	m := &fakeMessenger{loadingCh: make(chan sendCall, 1)}
	policy := testPolicy()
	policy.LoadingSeconds = 30
	o := newTestOrchestrator(c, m, policy)

	out := o.Process(context.Background(), textEvent("hello"))
	assert.Equal(t, OutcomeReplied, out)

	select {
	case call := <-m.loadingCh:
		assert.Equal(t, sendCall{"loading", "U1", "30"}, call)
	case <-time.After(time.Second):
		t.Fatal("loading indicator was never fired")
	}
}

func TestProcess_NoLoadingWithoutUserID(t *testing.T) {
	c := &fakeCompleter{queue: []func() (string, error){completes("hi")}}
	loadingCh := make(chan sendCall, 1)
	m := &fakeMessenger{loadingCh: loadingCh}
	policy := testPolicy()
	policy.LoadingSeconds = 30
	o := newTestOrchestrator(c, m, policy)

	ev := textEvent("hello")
	ev.Source.UserID = ""
	o.Process(context.Background(), ev)

	select {
	case <-loadingCh:
		t.Fatal("loading indicator fired without a user id")
	case <-time.After(50 * time.Millisecond):
	}
}

// --- independence / idempotence ---

func TestProcess_SameEventTwiceRunsTwoPipelines(t *testing.T) {
	// No dedup exists: reprocessing is two full, independent pipelines.
	c := &fakeCompleter{queue: []func() (string, error){completes("a"), completes("b")}}
	m := &fakeMessenger{}
	o := newTestOrchestrator(c, m, testPolicy())

	ev := textEvent("hello")
	assert.Equal(t, OutcomeReplied, o.Process(context.Background(), ev))
	assert.Equal(t, OutcomeReplied, o.Process(context.Background(), ev))
	assert.Len(t, m.sent(), 2)
	assert.Equal(t, 2, c.callCount())
}

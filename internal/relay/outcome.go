// Package relay contains the per-event processing pipeline: the orchestrator
// state machine and the fire-and-forget dispatcher feeding it.
package relay

// Outcome is the terminal state of one event's pipeline. Observability only;
// nothing is stored.
type Outcome string

const (
	// OutcomeSkipped: not an actionable text message; nothing was sent.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeReplied: completion succeeded and the reply was delivered.
	OutcomeReplied Outcome = "replied"
	// OutcomeDeferredPushed: short tier timed out, pending reply sent, long
	// tier succeeded and the result was pushed.
	OutcomeDeferredPushed Outcome = "deferred-and-pushed"
	// OutcomeDeferredPushFailed: the deferred tier ran but the final push
	// (result or fail text) did not land.
	OutcomeDeferredPushFailed Outcome = "deferred-and-push-failed"
	// OutcomeFallbackReplied: the pipeline failed and the fail text reached
	// the user via the reply token.
	OutcomeFallbackReplied Outcome = "failed-with-fallback-reply"
	// OutcomeFallbackFailed: even the fallback reply failed; the user got
	// silence and the failure lives only in logs.
	OutcomeFallbackFailed Outcome = "failed-fallback-also-failed"
)

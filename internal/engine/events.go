package engine

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventRunStart        EventType = "run_start"
	EventRunComplete     EventType = "run_complete"
	EventRunAborted      EventType = "run_aborted"
	EventIterationStart  EventType = "iteration_start"
	EventStreamDelta     EventType = "stream_delta"
	EventUnitDetected    EventType = "unit_detected"
	EventAuditAccepted   EventType = "audit_accepted"
	EventAuditRejected   EventType = "audit_rejected"
	EventAuditFailOpen   EventType = "audit_fail_open"
	EventAuditDropped    EventType = "audit_dropped"
	EventGuardrailWait   EventType = "guardrail_wait"
	EventGuardrailPassed EventType = "guardrail_passed"
	EventTakeover        EventType = "takeover"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType EventType
	Iteration int
	Unit      int
	Text      string
	Details   map[string]any
}

// OnProgress registers a progress listener
func (e *Engine) OnProgress(listener ProgressListener) {
	e.progressMu.Lock()
	defer e.progressMu.Unlock()
	e.listeners = append(e.listeners, listener)
}

func (e *Engine) notifyProgress(event ProgressEvent) {
	e.progressMu.Lock()
	listeners := make([]ProgressListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

package bridge

import "log"

// ResponseState tracks whether a model response is being generated.
type ResponseState int

const (
	// StateIdle means no response is pending or in flight.
	StateIdle ResponseState = iota
	// StateRequested means a response.create was sent but the model has not
	// yet confirmed creation.
	StateRequested
	// StateInProgress means the model confirmed it is generating.
	StateInProgress
)

// Responder owns the response lifecycle for one session. Requests issued
// while a response is active are coalesced: only the most recent pending
// instruction is kept, and it is flushed when the channel frees. Multiple
// tool results or state changes can legitimately want to speak in quick
// succession; honoring only the latest prevents a backlog of stale
// utterances.
//
// Not safe for concurrent use; the session event loop is the only caller.
type Responder struct {
	state      ResponseState
	pending    string
	hasPending bool
	suppress   bool

	// send transmits a response.create; injected so the tracker is
	// testable without a socket.
	send func(instructions string) error
	// canFlush reports whether a pending instruction may be replayed once
	// the channel frees (no barge-in asserted, caller not speaking).
	canFlush func() bool
}

func newResponder(send func(string) error, canFlush func() bool) *Responder {
	if canFlush == nil {
		canFlush = func() bool { return true }
	}
	return &Responder{send: send, canFlush: canFlush}
}

// Request sends a response-creation message when idle, or records the
// instruction as the single pending one when a response is active.
func (r *Responder) Request(instructions string) {
	if r.state != StateIdle {
		r.pending = instructions
		r.hasPending = true
		return
	}
	if err := r.send(instructions); err != nil {
		log.Printf("[bridge] response.create failed: %v", err)
		return
	}
	r.state = StateRequested
}

// OnCreated records the model's confirmation that generation started.
func (r *Responder) OnCreated() {
	r.state = StateInProgress
}

// OnTerminal handles completion, failure, or cancellation: the channel is
// free again, suppression ends, and any pending instruction is either
// replayed or discarded.
func (r *Responder) OnTerminal() {
	r.state = StateIdle
	r.suppress = false
	if !r.hasPending {
		return
	}
	instructions := r.pending
	r.pending = ""
	r.hasPending = false
	if r.canFlush() {
		r.Request(instructions)
	}
}

// Busy reports whether a response is pending or in flight.
func (r *Responder) Busy() bool { return r.state != StateIdle }

// SuppressOutput stops audio-delta forwarding until the next terminal event.
func (r *Responder) SuppressOutput() { r.suppress = true }

// Suppressed reports whether audio deltas are currently being dropped.
func (r *Responder) Suppressed() bool { return r.suppress }

// ClearPending discards any coalesced instruction; an interrupted turn's
// follow-up is moot.
func (r *Responder) ClearPending() {
	r.pending = ""
	r.hasPending = false
}

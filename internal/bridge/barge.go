package bridge

import "time"

type bargePhase int

const (
	// phaseQuiet: no caller speech of interest.
	phaseQuiet bargePhase = iota
	// phaseSpeechPending: caller speech detected while a response was
	// active; the debounce timer is running.
	phaseSpeechPending
	// phaseInterrupting: confirmed barge-in; the active response is being
	// torn down and audio is suppressed until its terminal event.
	phaseInterrupting
)

// playbackCursor tracks the model utterance currently streaming to the
// caller: which item it is, how much audio has been forwarded, and when
// forwarding began.
type playbackCursor struct {
	itemID      string
	forwardedMs int
	startedAt   time.Time
}

// Interrupt describes a confirmed barge-in: cancel the response, flush
// queued playback, and (when audio was already heard) truncate the model's
// record of the utterance.
type Interrupt struct {
	ItemID     string
	AudioEndMs int
	Truncate   bool
}

// bargeController debounces caller-speech signals and decides when an
// in-progress response must be interrupted. The voice detector can fire on
// brief noise; acting on every blip would make the assistant stutter, so a
// short debounce trades fixed latency for interruption stability.
//
// Not safe for concurrent use; the session event loop is the only caller.
type bargeController struct {
	phase  bargePhase
	cursor playbackCursor
	now    func() time.Time
}

func newBargeController(now func() time.Time) *bargeController {
	if now == nil {
		now = time.Now
	}
	return &bargeController{now: now}
}

// SpeechStarted handles a caller-speech-start signal. It reports whether
// the debounce timer should be armed. With no response active the signal is
// pure information: the caller is talking into silence.
func (b *bargeController) SpeechStarted(responseActive bool) bool {
	if b.phase != phaseQuiet || !responseActive {
		return false
	}
	b.phase = phaseSpeechPending
	return true
}

// SpeechStopped handles a caller-speech-stop signal. A stop inside the
// debounce window is treated as noise; it reports whether the timer should
// be cancelled.
func (b *bargeController) SpeechStopped() bool {
	if b.phase != phaseSpeechPending {
		return false
	}
	b.phase = phaseQuiet
	return true
}

// DebounceElapsed handles the timer firing. If the response is still active
// this is a confirmed barge-in: it returns the actions to take and resets
// the playback cursor. Otherwise the speech burst outlived the response and
// nothing needs interrupting.
func (b *bargeController) DebounceElapsed(responseActive bool) *Interrupt {
	if b.phase != phaseSpeechPending {
		return nil
	}
	if !responseActive {
		b.phase = phaseQuiet
		return nil
	}
	b.phase = phaseInterrupting

	intr := &Interrupt{ItemID: b.cursor.itemID}
	if b.cursor.itemID != "" && !b.cursor.startedAt.IsZero() {
		elapsed := int(b.now().Sub(b.cursor.startedAt).Milliseconds())
		// Never claim the caller heard more than was actually sent.
		if elapsed > b.cursor.forwardedMs {
			elapsed = b.cursor.forwardedMs
		}
		if elapsed > 0 {
			intr.AudioEndMs = elapsed
			intr.Truncate = true
		}
	}
	b.cursor = playbackCursor{}
	return intr
}

// NoteAudio accounts for one forwarded audio delta. A new item id means the
// model started a new utterance, which resets the cursor.
func (b *bargeController) NoteAudio(itemID string, durMs int) {
	if itemID != b.cursor.itemID {
		b.cursor = playbackCursor{itemID: itemID, startedAt: b.now()}
	}
	b.cursor.forwardedMs += durMs
}

// ResponseTerminal is called on any response terminal event: an interrupt in
// progress is finished and the utterance cursor is stale either way.
func (b *bargeController) ResponseTerminal() {
	if b.phase == phaseInterrupting {
		b.phase = phaseQuiet
	}
	b.cursor = playbackCursor{}
}

// CallerSpeaking reports whether caller speech is pending or has already
// confirmed an interruption; pending responder instructions are discarded
// rather than flushed while this holds.
func (b *bargeController) CallerSpeaking() bool {
	return b.phase != phaseQuiet
}

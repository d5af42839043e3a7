// Package bridge owns the per-call session that connects a Twilio media
// stream to an OpenAI realtime session: audio is forwarded in both
// directions, caller interruptions are debounced and acted on, and
// model-invoked tool calls are dispatched mid-conversation.
package bridge

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/umarsabra/realtime-agent/internal/audio"
	"github.com/umarsabra/realtime-agent/internal/realtime"
	"github.com/umarsabra/realtime-agent/internal/telephony"
	"github.com/umarsabra/realtime-agent/internal/tools"
)

// Conn is the subset of *websocket.Conn the session needs, split out so
// tests can drive a session with in-memory fakes.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// DefaultInstructions is the assistant persona sent in the session config.
const DefaultInstructions = "You are Wendy, friendly, playful, and human-sounding customer service agent. " +
	"You work at Midwest Solutions Inc, a dedicated solar energy solutions company. " +
	"Speak in clear, natural American English. " +
	"Keep responses short and conversational, use contractions, and avoid sounding robotic. " +
	"Start by greeting the caller, introducing yourself, and asking how you can help. " +
	"If the caller says goodbye or asks to end the call, say goodbye and use the end_call tool. " +
	"Your main job is to provide updates on customers' jobs/projects when they call in. " +
	"Ask for the job ID and use the get_job_updates tool. " +
	"Every update has \"reference_doctype\" (stage) and \"content\" (the actual update). " +
	"You can also provide details for a job/project using get_job_details after asking for the job ID."

const (
	defaultGreetingSeed = "Please greet the caller in clear American English, introduce yourself as Wendy " +
		"from Midwest Solutions Inc, and ask how you can help."
	defaultGreetingInstructions = "Greet the caller and ask how you can help."
)

// Options configures one bridge session.
type Options struct {
	Model        string
	Voice        string
	Instructions string

	// Debounce is how long caller speech must persist before an in-progress
	// response is interrupted. Defaults to 180ms.
	Debounce time.Duration

	VADThreshold         float64
	VADPrefixPaddingMs   int
	VADSilenceDurationMs int

	// BuildTools constructs the session's tool registry. The callSid getter
	// resolves lazily because the call identifier only arrives with the
	// telephony start frame.
	BuildTools func(callSid func() string) *tools.Registry

	// Now overrides the clock for tests.
	Now func() time.Time
}

type eventSource int

const (
	srcTwilio eventSource = iota
	srcModel
	srcTimer
)

type event struct {
	src  eventSource
	data []byte
	err  error
}

// Session bridges one telephony connection to one realtime model
// connection. All state is mutated by the single Run loop; the two socket
// readers and the debounce timer only post events into it.
type Session struct {
	opts   Options
	twilio Conn
	model  Conn

	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	responder  *Responder
	barge      *bargeController

	events chan event
	done   chan struct{}
	once   sync.Once

	streamSid        string
	callSid          string
	sessionReady     bool
	assistantStarted bool
	debounceTimer    *time.Timer
}

// NewSession wires a session over an accepted telephony connection and an
// open model connection. Neither connection is shared with anything else;
// teardown closes both.
func NewSession(twilioConn, modelConn Conn, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = 180 * time.Millisecond
	}
	if opts.Instructions == "" {
		opts.Instructions = DefaultInstructions
	}
	s := &Session{
		opts:   opts,
		twilio: twilioConn,
		model:  modelConn,
		events: make(chan event, 16),
		done:   make(chan struct{}),
		barge:  newBargeController(opts.Now),
	}
	s.responder = newResponder(s.sendResponseCreate, func() bool { return !s.barge.CallerSpeaking() })
	if opts.BuildTools != nil {
		s.registry = opts.BuildTools(s.CallSid)
	} else {
		s.registry = tools.NewRegistry()
	}
	s.dispatcher = tools.NewDispatcher(s.registry, s)
	return s
}

// CallSid returns the telephony call identifier, empty until the start
// frame arrives.
func (s *Session) CallSid() string { return s.callSid }

// Close tears the session down; safe to call multiple times and from any
// goroutine.
func (s *Session) Close() { s.closeAll("session closed") }

// Run drives the session until either connection closes or fails. It blocks
// the caller for the life of the call.
func (s *Session) Run(ctx context.Context) {
	if err := s.sendSessionConfig(); err != nil {
		log.Printf("[bridge] session config failed: %v", err)
		s.closeAll("session config failed")
		return
	}

	go s.readPump(s.twilio, srcTwilio)
	go s.readPump(s.model, srcModel)

	for {
		select {
		case <-ctx.Done():
			s.closeAll("context cancelled")
			return
		case <-s.done:
			return
		case ev := <-s.events:
			switch ev.src {
			case srcTwilio:
				if ev.err != nil {
					log.Printf("[twilio ws] error: %v", ev.err)
					s.closeAll("twilio error")
					return
				}
				s.handleTwilioFrame(ev.data)
			case srcModel:
				if ev.err != nil {
					log.Printf("[openai ws] error: %v", ev.err)
					s.closeAll("openai error")
					return
				}
				s.handleModelEvent(ctx, ev.data)
			case srcTimer:
				s.handleDebounceElapsed()
			}
			if s.closed() {
				return
			}
		}
	}
}

func (s *Session) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// closeAll tears down both connections symmetrically; the readers unblock
// with errors that are discarded once done is closed.
func (s *Session) closeAll(why string) {
	s.once.Do(func() {
		log.Printf("[bridge] closing: %s", why)
		close(s.done)
		if err := s.twilio.Close(); err != nil {
			log.Printf("[twilio ws] close: %v", err)
		}
		if err := s.model.Close(); err != nil {
			log.Printf("[openai ws] close: %v", err)
		}
	})
}

func (s *Session) readPump(conn Conn, src eventSource) {
	for {
		_, data, err := conn.ReadMessage()
		select {
		case s.events <- event{src: src, data: data, err: err}:
		case <-s.done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) writeTwilio(data []byte) {
	if err := s.twilio.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[twilio ws] write error: %v", err)
		s.closeAll("twilio write error")
	}
}

func (s *Session) writeModel(data []byte) {
	if err := s.model.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("[openai ws] write error: %v", err)
		s.closeAll("openai write error")
	}
}

func (s *Session) sendSessionConfig() error {
	msg, err := realtime.SessionUpdate(realtime.SessionConfig{
		Model:             s.opts.Model,
		Modalities:        []string{"audio", "text"},
		InputAudioFormat:  realtime.AudioFormatMulaw,
		OutputAudioFormat: realtime.AudioFormatMulaw,
		Voice:             s.opts.Voice,
		Instructions:      s.opts.Instructions,
		TurnDetection: &realtime.TurnDetection{
			Type:              "server_vad",
			Threshold:         s.opts.VADThreshold,
			PrefixPaddingMs:   s.opts.VADPrefixPaddingMs,
			SilenceDurationMs: s.opts.VADSilenceDurationMs,
			CreateResponse:    true,
			InterruptResponse: true,
		},
		Tools:      s.registry.Definitions(),
		ToolChoice: "auto",
	})
	if err != nil {
		return err
	}
	return s.model.WriteMessage(websocket.TextMessage, msg)
}

func (s *Session) sendResponseCreate(instructions string) error {
	msg, err := realtime.ResponseCreate(instructions)
	if err != nil {
		return err
	}
	return s.model.WriteMessage(websocket.TextMessage, msg)
}

// --- Twilio -> OpenAI ---

func (s *Session) handleTwilioFrame(raw []byte) {
	frame, err := telephony.DecodeFrame(raw)
	if err != nil {
		log.Printf("[twilio] dropping malformed frame: %v", err)
		return
	}

	switch frame.Event {
	case telephony.EventStart:
		if frame.Start != nil {
			s.streamSid = frame.Start.StreamSid
			s.callSid = frame.Start.CallSid
			log.Printf("[twilio] start streamSid: %s callSid: %s", s.streamSid, s.callSid)
			log.Printf("[twilio] mediaFormat: %+v", frame.Start.MediaFormat)
		}
	case telephony.EventMedia:
		if frame.Media == nil || frame.Media.Payload == "" {
			return
		}
		msg, err := realtime.AppendAudio(frame.Media.Payload)
		if err != nil {
			return
		}
		s.writeModel(msg)
	case telephony.EventStop:
		log.Printf("[twilio] stop")
		s.closeAll("twilio stop")
	}
}

// --- OpenAI -> Twilio ---

func (s *Session) handleModelEvent(ctx context.Context, raw []byte) {
	ev, err := realtime.DecodeEvent(raw)
	if err != nil {
		log.Printf("[openai] dropping malformed event: %v", err)
		return
	}

	switch ev.Kind {
	case realtime.KindError:
		log.Printf("[openai] error event: %s", ev.ErrorMessage)

	case realtime.KindSessionCreated:
		log.Printf("[openai] session created model: %s", ev.SessionModel)

	case realtime.KindSessionUpdated:
		s.handleSessionUpdated(ev)

	case realtime.KindResponseCreated:
		s.responder.OnCreated()

	case realtime.KindAudioDelta:
		s.handleAudioDelta(ev)

	case realtime.KindSpeechStarted:
		s.handleSpeechStarted()

	case realtime.KindSpeechStopped:
		s.handleSpeechStopped()

	case realtime.KindFunctionArgsDelta:
		s.dispatcher.AppendArguments(ev.CallID, ev.Delta)

	case realtime.KindFunctionArgsDone:
		log.Printf("[openai] tool args done for call_id: %s", ev.CallID)

	case realtime.KindOutputItemDone:
		// Primary dispatch path for completed tool calls.
		for _, fc := range ev.FunctionCalls {
			s.dispatcher.Complete(ctx, fc.CallID, fc.Name, fc.Arguments)
		}

	case realtime.KindResponseDone:
		s.responder.OnTerminal()
		s.barge.ResponseTerminal()
		// Fallback delivery path: the dispatcher deduplicates call ids that
		// already arrived via output_item.done.
		for _, fc := range ev.FunctionCalls {
			s.dispatcher.Complete(ctx, fc.CallID, fc.Name, fc.Arguments)
		}

	case realtime.KindResponseFailed, realtime.KindResponseCancelled:
		s.responder.OnTerminal()
		s.barge.ResponseTerminal()
	}
}

// handleSessionUpdated confirms the session config. If the model negotiated
// a different audio format than requested, correct it first and wait for
// the next confirmation. The first valid confirmation seeds a synthetic
// user turn so the assistant always speaks first.
func (s *Session) handleSessionUpdated(ev realtime.Event) {
	if ev.OutputAudioFormat != "" && ev.OutputAudioFormat != realtime.AudioFormatMulaw {
		msg, err := realtime.SessionUpdate(realtime.SessionConfig{
			InputAudioFormat:  realtime.AudioFormatMulaw,
			OutputAudioFormat: realtime.AudioFormatMulaw,
		})
		if err == nil {
			s.writeModel(msg)
		}
		return
	}

	s.sessionReady = true
	if s.assistantStarted {
		return
	}
	s.assistantStarted = true

	seed, err := realtime.UserText(defaultGreetingSeed)
	if err == nil {
		s.writeModel(seed)
	}
	s.responder.Request(defaultGreetingInstructions)
}

func (s *Session) handleAudioDelta(ev realtime.Event) {
	if s.responder.Suppressed() {
		return
	}
	if ev.Delta == "" || s.streamSid == "" {
		return
	}
	s.barge.NoteAudio(ev.ItemID, audio.PayloadDurationMs(ev.Delta))
	msg, err := telephony.MediaMessage(s.streamSid, ev.Delta)
	if err != nil {
		return
	}
	s.writeTwilio(msg)
}

func (s *Session) handleSpeechStarted() {
	if !s.barge.SpeechStarted(s.responder.Busy()) {
		return
	}
	s.debounceTimer = time.AfterFunc(s.opts.Debounce, func() {
		select {
		case s.events <- event{src: srcTimer}:
		case <-s.done:
		}
	})
}

func (s *Session) handleSpeechStopped() {
	if s.barge.SpeechStopped() && s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
}

// handleDebounceElapsed runs a confirmed barge-in: cancel the in-flight
// response, flush Twilio's playback queue, align the model's record of what
// was heard, and suppress audio until the response's terminal event.
func (s *Session) handleDebounceElapsed() {
	intr := s.barge.DebounceElapsed(s.responder.Busy())
	if intr == nil {
		return
	}

	if msg, err := realtime.ResponseCancel(); err == nil {
		s.writeModel(msg)
	}
	if s.streamSid != "" {
		if msg, err := telephony.ClearMessage(s.streamSid); err == nil {
			s.writeTwilio(msg)
		}
	}
	if intr.Truncate {
		if msg, err := realtime.TruncateItem(intr.ItemID, intr.AudioEndMs); err == nil {
			s.writeModel(msg)
		}
	}
	s.responder.SuppressOutput()
	s.responder.ClearPending()
}

// --- tools.Sink ---

// SendToolResult forwards a tool result envelope to the model.
func (s *Session) SendToolResult(callID string, output []byte) {
	msg, err := realtime.FunctionOutput(callID, output)
	if err != nil {
		return
	}
	s.writeModel(msg)
}

// RequestNarration asks the model to speak the latest tool result.
func (s *Session) RequestNarration(instructions string) {
	s.responder.Request(instructions)
}

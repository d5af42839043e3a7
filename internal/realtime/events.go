package realtime

import (
	"encoding/json"
	"fmt"
)

// EventKind is the closed set of server event types the bridge consumes.
// Decoding happens once at the socket boundary; everything downstream
// switches on the kind instead of re-parsing type strings.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindError
	KindSessionCreated
	KindSessionUpdated
	KindResponseCreated
	KindAudioDelta
	KindSpeechStarted
	KindSpeechStopped
	KindFunctionArgsDelta
	KindFunctionArgsDone
	KindOutputItemDone
	KindResponseDone
	KindResponseFailed
	KindResponseCancelled
)

// FunctionCall is a completed tool invocation surfaced by the model, either
// on output_item.done or in the response.done output list.
type FunctionCall struct {
	CallID    string
	Name      string
	Arguments string
}

// Event is one decoded server event. Only the fields relevant to the
// event's kind are populated.
type Event struct {
	Kind EventKind

	// KindError
	ErrorMessage string

	// KindSessionCreated / KindSessionUpdated
	SessionModel      string
	OutputAudioFormat string

	// KindAudioDelta: utterance item id plus base64 audio chunk.
	ItemID string
	Delta  string

	// KindFunctionArgsDelta / KindFunctionArgsDone
	CallID string

	// KindOutputItemDone (at most one) and KindResponseDone (fallback list).
	FunctionCalls []FunctionCall
}

type wireItem struct {
	Type      string `json:"type"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireEvent struct {
	Type    string    `json:"type"`
	ItemID  string    `json:"item_id"`
	Delta   string    `json:"delta"`
	CallID  string    `json:"call_id"`
	Item    *wireItem `json:"item"`
	Session *struct {
		Model             string `json:"model"`
		OutputAudioFormat string `json:"output_audio_format"`
	} `json:"session"`
	Response *struct {
		Output []wireItem `json:"output"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// DecodeEvent parses one raw server frame into an Event. Unrecognized types
// decode to KindUnknown rather than an error; unparseable frames error.
func DecodeEvent(raw []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, fmt.Errorf("decode realtime event: %w", err)
	}

	ev := Event{Kind: kindOf(w.Type)}
	switch ev.Kind {
	case KindError:
		if w.Error != nil {
			ev.ErrorMessage = w.Error.Message
		}
	case KindSessionCreated, KindSessionUpdated:
		if w.Session != nil {
			ev.SessionModel = w.Session.Model
			ev.OutputAudioFormat = w.Session.OutputAudioFormat
		}
	case KindAudioDelta:
		ev.ItemID = w.ItemID
		ev.Delta = w.Delta
	case KindFunctionArgsDelta:
		ev.CallID = w.CallID
		ev.Delta = w.Delta
	case KindFunctionArgsDone:
		ev.CallID = w.CallID
	case KindOutputItemDone:
		if w.Item != nil && w.Item.Type == "function_call" {
			ev.FunctionCalls = []FunctionCall{{
				CallID:    w.Item.CallID,
				Name:      w.Item.Name,
				Arguments: w.Item.Arguments,
			}}
		}
	case KindResponseDone:
		if w.Response != nil {
			for _, item := range w.Response.Output {
				if item.Type != "function_call" {
					continue
				}
				ev.FunctionCalls = append(ev.FunctionCalls, FunctionCall{
					CallID:    item.CallID,
					Name:      item.Name,
					Arguments: item.Arguments,
				})
			}
		}
	}
	return ev, nil
}

func kindOf(t string) EventKind {
	switch t {
	case "error":
		return KindError
	case "session.created":
		return KindSessionCreated
	case "session.updated":
		return KindSessionUpdated
	case "response.created":
		return KindResponseCreated
	case "response.output_audio.delta", "response.audio.delta", "output_audio_buffer.delta":
		return KindAudioDelta
	case "input_audio_buffer.speech_started":
		return KindSpeechStarted
	case "input_audio_buffer.speech_stopped":
		return KindSpeechStopped
	case "response.function_call_arguments.delta":
		return KindFunctionArgsDelta
	case "response.function_call_arguments.done":
		return KindFunctionArgsDone
	case "response.output_item.done":
		return KindOutputItemDone
	case "response.done":
		return KindResponseDone
	case "response.failed":
		return KindResponseFailed
	case "response.cancelled":
		return KindResponseCancelled
	default:
		return KindUnknown
	}
}

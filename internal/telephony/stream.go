// Package telephony covers the Twilio side of the bridge: media-stream
// frame encoding/decoding, webhook signature validation, and the REST
// call-termination client.
package telephony

import (
	"encoding/json"
	"fmt"
)

// Inbound media-stream event names.
const (
	EventStart = "start"
	EventMedia = "media"
	EventStop  = "stop"
)

// MediaFormat is the negotiated audio format announced on start.
type MediaFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sampleRate"`
	Channels   int    `json:"channels"`
}

// StartPayload carries the stream and call identifiers for the session.
type StartPayload struct {
	StreamSid   string      `json:"streamSid"`
	CallSid     string      `json:"callSid"`
	MediaFormat MediaFormat `json:"mediaFormat"`
}

// MediaPayload carries one base64 audio chunk.
type MediaPayload struct {
	Payload string `json:"payload"`
}

// Frame is one decoded inbound media-stream message.
type Frame struct {
	Event string        `json:"event"`
	Start *StartPayload `json:"start,omitempty"`
	Media *MediaPayload `json:"media,omitempty"`
}

// DecodeFrame parses one inbound text frame. Unknown event names decode
// fine; callers ignore them. Unparseable frames error and are dropped.
func DecodeFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("decode twilio frame: %w", err)
	}
	return f, nil
}

// MediaMessage builds an outbound media frame keyed by stream sid. Twilio
// plays payloads in the order they arrive.
func MediaMessage(streamSid, payload string) ([]byte, error) {
	return json.Marshal(struct {
		Event     string       `json:"event"`
		StreamSid string       `json:"streamSid"`
		Media     MediaPayload `json:"media"`
	}{Event: EventMedia, StreamSid: streamSid, Media: MediaPayload{Payload: payload}})
}

// ClearMessage builds an outbound clear frame, telling Twilio to discard
// any audio queued for playback but not yet heard.
func ClearMessage(streamSid string) ([]byte, error) {
	return json.Marshal(struct {
		Event     string `json:"event"`
		StreamSid string `json:"streamSid"`
	}{Event: "clear", StreamSid: streamSid})
}

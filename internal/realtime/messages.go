// Package realtime implements the client side of the OpenAI realtime
// websocket protocol: outbound control messages, inbound server event
// decoding, and an authenticated dialer.
package realtime

import "encoding/json"

// Tool describes one function-call tool advertised in the session config.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// TurnDetection holds the server-side VAD configuration.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
	CreateResponse    bool    `json:"create_response"`
	InterruptResponse bool    `json:"interrupt_response"`
}

// SessionConfig is the session.update payload sent once per connection.
type SessionConfig struct {
	Model             string         `json:"model,omitempty"`
	Modalities        []string       `json:"modalities,omitempty"`
	InputAudioFormat  string         `json:"input_audio_format,omitempty"`
	OutputAudioFormat string         `json:"output_audio_format,omitempty"`
	Voice             string         `json:"voice,omitempty"`
	Instructions      string         `json:"instructions,omitempty"`
	TurnDetection     *TurnDetection `json:"turn_detection,omitempty"`
	Tools             []Tool         `json:"tools,omitempty"`
	ToolChoice        string         `json:"tool_choice,omitempty"`
}

// AudioFormatMulaw is the narrowband telephony encoding used in both
// directions so payloads pass through unmodified.
const AudioFormatMulaw = "g711_ulaw"

type typedMessage struct {
	Type string `json:"type"`
}

// SessionUpdate builds a session.update message.
func SessionUpdate(cfg SessionConfig) ([]byte, error) {
	return json.Marshal(struct {
		Type    string        `json:"type"`
		Session SessionConfig `json:"session"`
	}{Type: "session.update", Session: cfg})
}

// AppendAudio builds an input_audio_buffer.append carrying base64 audio.
func AppendAudio(payload string) ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Audio string `json:"audio"`
	}{Type: "input_audio_buffer.append", Audio: payload})
}

// ResponseCreate builds a response.create with ad hoc instructions.
func ResponseCreate(instructions string) ([]byte, error) {
	type resp struct {
		Instructions string `json:"instructions"`
	}
	return json.Marshal(struct {
		Type     string `json:"type"`
		Response resp   `json:"response"`
	}{Type: "response.create", Response: resp{Instructions: instructions}})
}

// ResponseCancel builds a response.cancel.
func ResponseCancel() ([]byte, error) {
	return json.Marshal(typedMessage{Type: "response.cancel"})
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// UserText builds a conversation.item.create with a synthetic user turn.
func UserText(text string) ([]byte, error) {
	type item struct {
		Type    string        `json:"type"`
		Role    string        `json:"role"`
		Content []contentPart `json:"content"`
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Item item   `json:"item"`
	}{
		Type: "conversation.item.create",
		Item: item{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	})
}

// FunctionOutput builds a conversation.item.create carrying a tool result
// tagged with the originating call id.
func FunctionOutput(callID string, output []byte) ([]byte, error) {
	type item struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Output string `json:"output"`
	}
	return json.Marshal(struct {
		Type string `json:"type"`
		Item item   `json:"item"`
	}{
		Type: "conversation.item.create",
		Item: item{Type: "function_call_output", CallID: callID, Output: string(output)},
	})
}

// TruncateItem builds a conversation.item.truncate so the model's record of
// what the caller heard matches the audio actually played back.
func TruncateItem(itemID string, audioEndMs int) ([]byte, error) {
	return json.Marshal(struct {
		Type         string `json:"type"`
		ItemID       string `json:"item_id"`
		ContentIndex int    `json:"content_index"`
		AudioEndMs   int    `json:"audio_end_ms"`
	}{Type: "conversation.item.truncate", ItemID: itemID, AudioEndMs: audioEndMs})
}

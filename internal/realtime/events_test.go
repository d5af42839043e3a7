package realtime

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeEvent_AudioDelta(t *testing.T) {
	raw := `{"type":"response.audio.delta","item_id":"item_1","delta":"AAAA"}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindAudioDelta {
		t.Fatalf("expected audio delta kind, got %v", ev.Kind)
	}
	if ev.ItemID != "item_1" || ev.Delta != "AAAA" {
		t.Fatalf("unexpected fields: %+v", ev)
	}
}

func TestDecodeEvent_AudioDeltaAliases(t *testing.T) {
	for _, typ := range []string{"response.output_audio.delta", "response.audio.delta", "output_audio_buffer.delta"} {
		ev, err := DecodeEvent([]byte(`{"type":"` + typ + `","delta":"x"}`))
		if err != nil {
			t.Fatalf("decode %s: %v", typ, err)
		}
		if ev.Kind != KindAudioDelta {
			t.Fatalf("expected %s to decode as audio delta", typ)
		}
	}
}

func TestDecodeEvent_OutputItemDoneFunctionCall(t *testing.T) {
	raw := `{"type":"response.output_item.done","item":{"type":"function_call","call_id":"call_9","name":"get_job_updates","arguments":"{\"job_id\":\"J-1\"}"}}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ev.FunctionCalls) != 1 {
		t.Fatalf("expected one function call, got %d", len(ev.FunctionCalls))
	}
	fc := ev.FunctionCalls[0]
	if fc.CallID != "call_9" || fc.Name != "get_job_updates" {
		t.Fatalf("unexpected call: %+v", fc)
	}
}

func TestDecodeEvent_OutputItemDoneNonFunction(t *testing.T) {
	raw := `{"type":"response.output_item.done","item":{"type":"message"}}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ev.FunctionCalls) != 0 {
		t.Fatalf("expected no function calls for message item")
	}
}

func TestDecodeEvent_ResponseDoneCollectsFunctionCalls(t *testing.T) {
	raw := `{"type":"response.done","response":{"output":[{"type":"message"},{"type":"function_call","call_id":"c1","name":"end_call","arguments":"{}"}]}}`
	ev, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != KindResponseDone {
		t.Fatalf("expected response.done kind")
	}
	if len(ev.FunctionCalls) != 1 || ev.FunctionCalls[0].Name != "end_call" {
		t.Fatalf("expected end_call fallback, got %+v", ev.FunctionCalls)
	}
}

func TestDecodeEvent_UnknownAndMalformed(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"type":"rate_limits.updated"}`))
	if err != nil {
		t.Fatalf("unknown type should not error: %v", err)
	}
	if ev.Kind != KindUnknown {
		t.Fatalf("expected unknown kind")
	}
	if _, err := DecodeEvent([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestSessionUpdate_Shape(t *testing.T) {
	msg, err := SessionUpdate(SessionConfig{
		Model:             "gpt-realtime",
		InputAudioFormat:  AudioFormatMulaw,
		OutputAudioFormat: AudioFormatMulaw,
		TurnDetection: &TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			CreateResponse:    true,
			InterruptResponse: true,
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if got["type"] != "session.update" {
		t.Fatalf("expected session.update type, got %v", got["type"])
	}
	session := got["session"].(map[string]any)
	if session["output_audio_format"] != AudioFormatMulaw {
		t.Fatalf("expected mulaw output format")
	}
}

func TestTruncateItem(t *testing.T) {
	msg, err := TruncateItem("item_7", 340)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(msg)
	if !strings.Contains(s, `"conversation.item.truncate"`) || !strings.Contains(s, `"audio_end_ms":340`) {
		t.Fatalf("unexpected truncate message: %s", s)
	}
}

func TestFunctionOutput_TagsCallID(t *testing.T) {
	msg, err := FunctionOutput("call_3", []byte(`{"status":"ok"}`))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got struct {
		Type string `json:"type"`
		Item struct {
			Type   string `json:"type"`
			CallID string `json:"call_id"`
			Output string `json:"output"`
		} `json:"item"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if got.Item.CallID != "call_3" || got.Item.Type != "function_call_output" {
		t.Fatalf("unexpected item: %+v", got.Item)
	}
}

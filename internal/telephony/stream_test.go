package telephony

import (
	"encoding/json"
	"testing"
)

func TestDecodeFrame_Start(t *testing.T) {
	raw := `{"event":"start","start":{"streamSid":"MZ123","callSid":"CA456","mediaFormat":{"encoding":"audio/x-mulaw","sampleRate":8000,"channels":1}}}`
	f, err := DecodeFrame([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Event != EventStart {
		t.Fatalf("expected start event, got %q", f.Event)
	}
	if f.Start == nil || f.Start.StreamSid != "MZ123" || f.Start.CallSid != "CA456" {
		t.Fatalf("unexpected start payload: %+v", f.Start)
	}
	if f.Start.MediaFormat.SampleRate != 8000 {
		t.Fatalf("unexpected media format: %+v", f.Start.MediaFormat)
	}
}

func TestDecodeFrame_MediaAndMalformed(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"event":"media","media":{"payload":"AAAA"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Media == nil || f.Media.Payload != "AAAA" {
		t.Fatalf("unexpected media payload: %+v", f.Media)
	}

	if _, err := DecodeFrame([]byte("garbage")); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestMediaMessage(t *testing.T) {
	msg, err := MediaMessage("MZ123", "AAAA")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got struct {
		Event     string `json:"event"`
		StreamSid string `json:"streamSid"`
		Media     struct {
			Payload string `json:"payload"`
		} `json:"media"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if got.Event != "media" || got.StreamSid != "MZ123" || got.Media.Payload != "AAAA" {
		t.Fatalf("unexpected frame: %+v", got)
	}
}

func TestClearMessage(t *testing.T) {
	msg, err := ClearMessage("MZ123")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if got["event"] != "clear" || got["streamSid"] != "MZ123" {
		t.Fatalf("unexpected clear frame: %v", got)
	}
}

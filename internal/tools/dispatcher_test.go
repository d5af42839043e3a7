package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeSink struct {
	results    []string // raw envelopes
	callIDs    []string
	narrations []string
}

func (s *fakeSink) SendToolResult(callID string, output []byte) {
	s.callIDs = append(s.callIDs, callID)
	s.results = append(s.results, string(output))
}

func (s *fakeSink) RequestNarration(instructions string) {
	s.narrations = append(s.narrations, instructions)
}

func (s *fakeSink) lastResult(t *testing.T) Result {
	t.Helper()
	if len(s.results) == 0 {
		t.Fatalf("no results sent")
	}
	var r Result
	if err := json.Unmarshal([]byte(s.results[len(s.results)-1]), &r); err != nil {
		t.Fatalf("bad envelope %q: %v", s.results[len(s.results)-1], err)
	}
	return r
}

func echoRegistry() *Registry {
	r := NewRegistry()
	r.Register(Tool{
		Name:      "echo",
		Narration: "Tell the caller what came back.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	})
	r.Register(Tool{
		Name:      "boom",
		Narration: "Apologize for the hiccup.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, &Error{Code: "BOOM", Message: "it broke"}
		},
	})
	r.Register(Tool{
		Name: "plain-error",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("untyped failure")
		},
	})
	return r
}

func TestDispatcher_BufferedArgumentsOrderPreserving(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(echoRegistry(), sink)

	d.AppendArguments("call_1", `{"job`)
	d.AppendArguments("call_1", `_id":"J`)
	d.AppendArguments("call_1", `-001"}`)
	d.Complete(context.Background(), "call_1", "echo", "")

	r := sink.lastResult(t)
	if r.Status != "ok" {
		t.Fatalf("expected ok, got %+v", r)
	}
	data := r.Data.(map[string]any)
	if data["job_id"] != "J-001" {
		t.Fatalf("fragments reassembled wrong: %v", data)
	}
	if sink.callIDs[0] != "call_1" {
		t.Fatalf("result not tagged with call id")
	}
}

func TestDispatcher_DuplicateCompletionDispatchesOnce(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(echoRegistry(), sink)

	d.AppendArguments("call_1", `{"a":1}`)
	// Streamed completion, then the terminal-response fallback repeats it.
	d.Complete(context.Background(), "call_1", "echo", "")
	d.Complete(context.Background(), "call_1", "echo", `{"a":1}`)

	if len(sink.results) != 1 {
		t.Fatalf("expected exactly one dispatch, got %d", len(sink.results))
	}
	if len(sink.narrations) != 1 {
		t.Fatalf("expected exactly one narration, got %d", len(sink.narrations))
	}
}

func TestDispatcher_FallbackArgsWhenNothingBuffered(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(echoRegistry(), sink)

	d.Complete(context.Background(), "call_2", "echo", `{"reason":"done"}`)
	r := sink.lastResult(t)
	if r.Data.(map[string]any)["reason"] != "done" {
		t.Fatalf("fallback args not used: %+v", r)
	}
}

func TestDispatcher_UnparseableArgsBecomeEmptyObject(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(echoRegistry(), sink)

	d.AppendArguments("call_3", `{"truncated`)
	d.Complete(context.Background(), "call_3", "echo", "")
	r := sink.lastResult(t)
	if r.Status != "ok" {
		t.Fatalf("parse failure must not fail the call: %+v", r)
	}
	if data, ok := r.Data.(map[string]any); ok && len(data) != 0 {
		t.Fatalf("expected empty args, got %v", data)
	}
}

func TestDispatcher_UnknownToolYieldsErrorEnvelope(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(echoRegistry(), sink)

	d.Complete(context.Background(), "call_4", "foo", "{}")
	r := sink.lastResult(t)
	if r.Status != "error" || r.Code != "UNKNOWN_TOOL" {
		t.Fatalf("expected UNKNOWN_TOOL envelope, got %+v", r)
	}
	if len(sink.narrations) != 1 {
		t.Fatalf("expected a follow-up narration even for unknown tools")
	}
}

func TestDispatcher_TypedAndUntypedErrors(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(echoRegistry(), sink)

	d.Complete(context.Background(), "call_5", "boom", "{}")
	r := sink.lastResult(t)
	if r.Code != "BOOM" || r.Message != "it broke" {
		t.Fatalf("typed error not preserved: %+v", r)
	}

	d.Complete(context.Background(), "call_6", "plain-error", "{}")
	r = sink.lastResult(t)
	if r.Status != "error" || r.Code != "TOOL_FAILED" {
		t.Fatalf("untyped error not normalized: %+v", r)
	}
}

func TestDispatcher_BufferRemovedAfterDispatch(t *testing.T) {
	sink := &fakeSink{}
	d := NewDispatcher(echoRegistry(), sink)

	d.AppendArguments("call_7", `{"x":1}`)
	d.Complete(context.Background(), "call_7", "echo", "")
	if _, ok := d.buffers["call_7"]; ok {
		t.Fatalf("buffer should be removed after dispatch")
	}
}

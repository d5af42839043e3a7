package tools

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Sink receives the dispatcher's outputs. The bridge session implements it;
// the dispatcher itself never touches a socket.
type Sink interface {
	// SendToolResult delivers the result envelope tagged with the call id.
	SendToolResult(callID string, output []byte)
	// RequestNarration asks for a spoken summary of the result.
	RequestNarration(instructions string)
}

const dispatchTimeout = 15 * time.Second

// Dispatcher buffers streamed tool-call arguments and resolves completed
// calls against the registry. A call id is dispatched at most once even if
// both the streamed-completion path and the response-terminal fallback
// report it.
type Dispatcher struct {
	registry   *Registry
	sink       Sink
	buffers    map[string]string
	dispatched map[string]bool
}

// NewDispatcher builds a Dispatcher over a fixed registry.
func NewDispatcher(registry *Registry, sink Sink) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		sink:       sink,
		buffers:    make(map[string]string),
		dispatched: make(map[string]bool),
	}
}

// AppendArguments accumulates one streamed argument fragment for a call.
func (d *Dispatcher) AppendArguments(callID, fragment string) {
	if callID == "" || fragment == "" {
		return
	}
	d.buffers[callID] += fragment
}

// Complete resolves and dispatches a finished tool call. fallbackArgs is the
// argument text carried by the terminal event itself, used when nothing was
// buffered. Duplicate completions for the same call id are ignored.
func (d *Dispatcher) Complete(ctx context.Context, callID, name, fallbackArgs string) {
	if callID == "" || name == "" {
		return
	}
	if d.dispatched[callID] {
		return
	}
	d.dispatched[callID] = true

	argsJSON := d.buffers[callID]
	if argsJSON == "" {
		argsJSON = fallbackArgs
	}
	if argsJSON == "" {
		argsJSON = "{}"
	}
	delete(d.buffers, callID)

	args := map[string]any{}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		log.Printf("[tool call] %s: unparseable arguments %q, treating as empty", name, argsJSON)
		args = map[string]any{}
	}

	result, narration := d.invoke(ctx, name, args)
	log.Printf("[tool call] %s(%s) => %s", name, argsJSON, result.Status)

	output, err := json.Marshal(result)
	if err != nil {
		// Data payloads come from JSON APIs, so this should not happen;
		// fall back to a bare error envelope.
		output, _ = json.Marshal(Err("RESULT_ENCODING_FAILED", err.Error(), nil))
	}
	d.sink.SendToolResult(callID, output)
	d.sink.RequestNarration(narration)
}

func (d *Dispatcher) invoke(ctx context.Context, name string, args map[string]any) (Result, string) {
	tool, ok := d.registry.Get(name)
	if !ok {
		return Err("UNKNOWN_TOOL", "Unknown tool: "+name, nil),
			"Apologize briefly that you could not complete that request."
	}

	ctx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	data, err := tool.Handler(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*Error); ok {
			return Err(toolErr.Code, toolErr.Message, toolErr.Details), tool.Narration
		}
		return Err("TOOL_FAILED", err.Error(), nil), tool.Narration
	}
	return Ok(data), tool.Narration
}

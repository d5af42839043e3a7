// Package tools defines the tool registry the assistant can invoke
// mid-conversation, the normalized result envelope sent back to the model,
// and the dispatcher that assembles streamed tool-call arguments.
package tools

import (
	"context"
	"encoding/json"

	"github.com/umarsabra/realtime-agent/internal/realtime"
)

// Error is a typed tool failure with a machine-readable code. Handlers
// return it for expected failures; anything else is wrapped with a
// tool-specific fallback code.
type Error struct {
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string { return e.Message }

// Result is the envelope delivered to the model for every tool call,
// success or failure. The model narrates it; the caller never sees it raw.
type Result struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Ok wraps a successful payload.
func Ok(data any) Result {
	return Result{Status: "ok", Data: data}
}

// Err builds an error envelope.
func Err(code, message string, details any) Result {
	return Result{Status: "error", Code: code, Message: message, Details: details}
}

// Handler executes one tool call with parsed arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Tool is one named capability exposed to the model.
type Tool struct {
	Name        string
	Description string
	// Parameters is a JSON-schema object describing the arguments.
	Parameters json.RawMessage
	// Narration is the response instruction issued after this tool runs so
	// the assistant reports the result in its own words.
	Narration string
	Handler   Handler
}

// Registry is a fixed set of tools, preserving registration order for the
// session config catalog.
type Registry struct {
	byName map[string]Tool
	order  []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces it in place.
func (r *Registry) Register(t Tool) {
	if _, exists := r.byName[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.byName[t.Name] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// Definitions exports the catalog in the realtime session-config shape.
func (r *Registry) Definitions() []realtime.Tool {
	defs := make([]realtime.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		defs = append(defs, realtime.Tool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}

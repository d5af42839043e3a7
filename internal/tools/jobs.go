package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/umarsabra/realtime-agent/internal/frappe"
)

// JobStore is the data-access surface the job tools need.
type JobStore interface {
	GetDoc(ctx context.Context, doctype, name string) (frappe.Doc, error)
	List(ctx context.Context, doctype string, opts frappe.ListOptions) ([]frappe.Doc, error)
}

// CallEnder hangs up the active call; nil disables the end_call tool's
// effect (it still reports an error envelope).
type CallEnder interface {
	EndCall(callSid, reason string) error
}

var jobIDSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"job_id": {
			"type": "string",
			"description": "Job ID provided by the caller to look up their job."
		}
	},
	"required": ["job_id"]
}`)

var endCallSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"reason": {
			"type": "string",
			"description": "Brief reason for ending the call."
		}
	},
	"required": ["reason"]
}`)

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// RegisterJobTools populates the registry with the job lookup tools and the
// end_call tool. callSid resolves lazily because the call identifier only
// becomes known once the telephony stream starts.
func RegisterJobTools(r *Registry, store JobStore, calls CallEnder, callSid func() string) {
	r.Register(Tool{
		Name:        "get_job_updates",
		Description: "Look up the updates for a customer's job/project based on the job ID provided by the caller.",
		Parameters:  jobIDSchema,
		Narration:   "Tell the caller the job updates in plain English.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			jobID := stringArg(args, "job_id")
			if jobID == "" {
				return nil, &Error{Code: "MISSING_JOB_ID", Message: "Missing job_id"}
			}
			updates, err := store.List(ctx, "Update", frappe.ListOptions{
				Filter:  []string{"job", "=", jobID},
				OrderBy: "modified desc",
				Limit:   50,
			})
			if err != nil {
				return nil, &Error{
					Code:    "GET_JOB_UPDATES_FAILED",
					Message: fmt.Sprintf("Failed to retrieve job updates for job_id: %s", jobID),
					Details: err.Error(),
				}
			}
			return updates, nil
		},
	})

	r.Register(Tool{
		Name:        "get_job_details",
		Description: "Look up the details for a customer's job/project based on the job ID provided by the caller.",
		Parameters:  jobIDSchema,
		Narration:   "Tell the caller the job details in plain English.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			jobID := stringArg(args, "job_id")
			if jobID == "" {
				return nil, &Error{Code: "MISSING_JOB_ID", Message: "Missing job_id"}
			}
			job, err := store.GetDoc(ctx, "Job", jobID)
			if err != nil {
				return nil, &Error{
					Code:    "GET_JOB_DETAILS_FAILED",
					Message: fmt.Sprintf("Failed to retrieve job details for job_id: %s", jobID),
					Details: err.Error(),
				}
			}
			return job, nil
		},
	})

	r.Register(Tool{
		Name:        "end_call",
		Description: "Say goodbye and hang up the call when the caller requests to end the call.",
		Parameters:  endCallSchema,
		Narration:   "Say goodbye briefly.",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			sid := callSid()
			if sid == "" {
				return nil, &Error{Code: "MISSING_CALL_SID", Message: "Missing callSid"}
			}
			if calls == nil {
				return nil, &Error{Code: "MISSING_TWILIO_CLIENT", Message: "Missing Twilio client"}
			}
			reason := stringArg(args, "reason")
			if reason == "" {
				reason = "caller requested"
			}
			if err := calls.EndCall(sid, reason); err != nil {
				return nil, &Error{Code: "END_CALL_FAILED", Message: err.Error()}
			}
			return map[string]string{"message": "Call ended: " + reason}, nil
		},
	})
}

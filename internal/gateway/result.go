package gateway

import (
	"errors"
	"fmt"

	"github.com/danmuck/rsvpctl/internal/protocol/candid"
	"github.com/danmuck/rsvpctl/internal/protocol/envelope"
)

// ServiceResult is the uniform outcome of every gateway operation.
type ServiceResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// MapResult converts an Outcome into a ServiceResult. It never fails: every
// error class becomes Success=false with a readable message.
//
// Successful data is projected onto plain values: text becomes string, nat
// becomes uint64, vec becomes []any, and event or RSVP records become
// rsvp.Event or rsvp.RSVP. A record that matches neither shape is kept as the
// raw candid.Value.
func MapResult(kind envelope.Kind, o Outcome) ServiceResult {
	if o.Err == nil {
		if kind == envelope.KindQuery {
			return ServiceResult{Success: true, Message: "Success", Data: project(o.Value)}
		}
		return ServiceResult{Success: true, Message: "Success", Data: callData(o.Body)}
	}

	var httpErr *HTTPError
	if errors.As(o.Err, &httpErr) {
		return failure(fmt.Sprintf("HTTP %d: %s", httpErr.Status, httpErr.Body))
	}
	var rejection *RemoteRejection
	if errors.As(o.Err, &rejection) {
		// Only reachable for calls through a finalizer such as RejectedReply.
		if kind == envelope.KindCall {
			return failure("Call failed: " + rejection.Message)
		}
		return failure("Query failed: " + rejection.Message)
	}
	if kind == envelope.KindCall {
		return failure("Error calling canister: " + o.Err.Error())
	}
	return failure("Error querying canister: " + o.Err.Error())
}

func failure(msg string) ServiceResult {
	return ServiceResult{Success: false, Message: msg}
}

func project(v candid.Value) any {
	if v.Kind == 0 {
		return nil
	}
	p, err := candid.Project(v)
	if err != nil {
		return v
	}
	return p
}

// callData unwraps {"status": "replied", "reply": {"arg": ...}} call bodies
// into the decoded argument. Any other body is returned as is.
func callData(body map[string]any) any {
	reply, ok := body["reply"].(map[string]any)
	if !ok {
		return body
	}
	arg, ok := reply["arg"].([]byte)
	if !ok {
		return body
	}
	v, err := candid.Decode(arg)
	if err != nil {
		return body
	}
	return project(v)
}

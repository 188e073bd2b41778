package gateway

import (
	"context"

	"github.com/danmuck/rsvpctl/internal/protocol/envelope"
)

// CallFinalizer turns the body of an accepted call POST into the reply the
// result mapper sees. A gateway that only acknowledges receipt needs a
// finalizer that polls for the certified result.
type CallFinalizer interface {
	FinalizeCall(ctx context.Context, req envelope.Envelope, body map[string]any) (map[string]any, error)
}

// SyncReply treats the POST body as the final reply.
type SyncReply struct{}

func (SyncReply) FinalizeCall(_ context.Context, _ envelope.Envelope, body map[string]any) (map[string]any, error) {
	return body, nil
}

// RejectedReply fails calls whose body reports status "rejected" or carries
// a reject_message. SyncReply passes such bodies through as successes.
type RejectedReply struct{}

func (RejectedReply) FinalizeCall(_ context.Context, _ envelope.Envelope, body map[string]any) (map[string]any, error) {
	status, _ := body["status"].(string)
	msg, hasMsg := body["reject_message"].(string)
	if status != envelope.StatusRejected && !hasMsg {
		return body, nil
	}
	code, _ := body["reject_code"].(uint64)
	return body, &RemoteRejection{Status: status, Code: code, Message: msg}
}

// FinalizerFunc adapts a function to CallFinalizer.
type FinalizerFunc func(ctx context.Context, req envelope.Envelope, body map[string]any) (map[string]any, error)

func (f FinalizerFunc) FinalizeCall(ctx context.Context, req envelope.Envelope, body map[string]any) (map[string]any, error) {
	return f(ctx, req, body)
}

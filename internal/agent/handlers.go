package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/rsvpctl/internal/action"
	"github.com/danmuck/rsvpctl/internal/format"
	"github.com/danmuck/rsvpctl/internal/gateway"
	"github.com/danmuck/rsvpctl/internal/mailbox"
)

var ErrNoReplyAddress = errors.New("agent: no reply address")

// handleChat forwards the user's text to the LLM, tagging it with the address
// the final answer should reach.
func (a *Agent) handleChat(ctx context.Context, sender string, env mailbox.Envelope, _ action.Service) error {
	var msg ChatMessage
	if err := env.Decode(&msg); err != nil {
		return err
	}
	if strings.TrimSpace(msg.Message) == "" {
		return fmt.Errorf("%w: empty chat message", mailbox.ErrInvalidEnvelope)
	}
	user := sender
	if strings.TrimSpace(msg.SenderAddress) != "" {
		user = msg.SenderAddress
	}
	a.log.Info().Str("user", user).Str("llm", a.cfg.LLMAddress).Msg("forwarding chat to llm")
	return a.Send(ctx, a.cfg.LLMAddress, TypeStructuredOutputRequest, StructuredOutputRequest{
		Message:     msg.Message,
		UserAddress: user,
	})
}

// handleStructuredOutput validates the LLM payload, runs the action and
// replies to the user. Invalid payloads get a formatted failure reply.
func (a *Agent) handleStructuredOutput(ctx context.Context, _ string, env mailbox.Envelope, svc action.Service) error {
	var out StructuredOutputResponse
	if err := env.Decode(&out); err != nil {
		return err
	}
	user := strings.TrimSpace(out.UserAddress)
	if user == "" {
		return fmt.Errorf("%w: structured output has no user_address", ErrNoReplyAddress)
	}

	act, err := action.Parse(out.Payload)
	if err != nil {
		a.log.Warn().Err(err).Str("action", out.Action).Msg("rejecting structured output")
		return a.Send(ctx, user, TypeRSVPResponse, RSVPResponse{
			Success: false,
			Message: format.Format(gateway.ServiceResult{Message: parseFailure(out.Action, err)}, ""),
		})
	}

	res := action.Execute(ctx, svc, act)
	a.log.Info().Str("action", string(act.Kind())).Bool("success", res.Success).Str("user", user).Msg("action executed")
	return a.Send(ctx, user, TypeRSVPResponse, RSVPResponse{
		Success: res.Success,
		Message: format.Format(res, string(act.Kind())),
		Data:    res.Data,
	})
}

// handleRSVPResponse accepts answers addressed to this agent and logs them.
func (a *Agent) handleRSVPResponse(_ context.Context, sender string, env mailbox.Envelope, _ action.Service) error {
	var resp RSVPResponse
	if err := env.Decode(&resp); err != nil {
		return err
	}
	a.log.Info().Str("from", sender).Bool("success", resp.Success).Str("message", resp.Message).Msg("rsvp response received")
	return nil
}

func parseFailure(name string, err error) string {
	if errors.Is(err, action.ErrUnknownAction) {
		return "Unknown action: " + name
	}
	return "Invalid request: " + err.Error()
}

func failureResponse(err error) RSVPResponse {
	return RSVPResponse{
		Success: false,
		Message: format.Format(gateway.ServiceResult{Message: "Error processing request: " + err.Error()}, ""),
	}
}

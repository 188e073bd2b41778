package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/rsvpctl/internal/action"
	"github.com/danmuck/rsvpctl/internal/agent"
	"github.com/danmuck/rsvpctl/internal/mailbox"
)

// DefaultAddress is the simulator's mailbox address.
const DefaultAddress = "rsvp-llm"

// DefaultConfig returns agent settings for the simulator process.
func DefaultConfig() agent.Config {
	cfg := agent.DefaultConfig()
	cfg.Name = DefaultAddress
	cfg.LLMAddress = ""
	return cfg
}

// NewAgent builds an agent that answers structured_output_request envelopes
// with a structured_output_response sent back to the requester.
func NewAgent(cfg agent.Config, mb mailbox.Mailbox, r Responder) (*agent.Agent, error) {
	if r == nil {
		r = Keyword{}
	}
	a, err := agent.New(cfg, mb, nil)
	if err != nil {
		return nil, err
	}
	a.Router().Handle(agent.TypeStructuredOutputRequest, func(ctx context.Context, sender string, env mailbox.Envelope, _ action.Service) error {
		var req agent.StructuredOutputRequest
		if err := env.Decode(&req); err != nil {
			return err
		}
		if strings.TrimSpace(req.UserAddress) == "" {
			return fmt.Errorf("%w: structured output request has no user_address", agent.ErrNoReplyAddress)
		}
		payload, err := r.Respond(ctx, req.Message)
		if err != nil {
			return fmt.Errorf("llm: respond: %w", err)
		}
		return a.Send(ctx, sender, agent.TypeStructuredOutputResponse, agent.StructuredOutputResponse{
			Payload:     payload,
			UserAddress: req.UserAddress,
		})
	})
	return a, nil
}

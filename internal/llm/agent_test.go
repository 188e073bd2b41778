package llm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/rsvpctl/internal/action"
	"github.com/danmuck/rsvpctl/internal/agent"
	"github.com/danmuck/rsvpctl/internal/gateway"
	"github.com/danmuck/rsvpctl/internal/gateway/gatewaytest"
	"github.com/danmuck/rsvpctl/internal/llm"
	"github.com/danmuck/rsvpctl/internal/mailbox"
	"github.com/danmuck/rsvpctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type failingResponder struct{}

func (failingResponder) Respond(context.Context, string) (action.Payload, error) {
	return action.Payload{}, errors.New("model offline")
}

func receive(t *testing.T, ch <-chan mailbox.Envelope) mailbox.Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed")
		}
		return env
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for reply")
	}
	return mailbox.Envelope{}
}

func TestSimulatorAnswersRequester(t *testing.T) {
	testlog.Start(t)

	mb := mailbox.NewMemory(8)
	t.Cleanup(func() { _ = mb.Close() })
	sim, err := llm.NewAgent(llm.DefaultConfig(), mb, nil)
	require.NoError(t, err)

	req, err := mailbox.NewEnvelope(agent.TypeStructuredOutputRequest, "rsvp-manager", agent.StructuredOutputRequest{
		Message:     "list events",
		UserAddress: "user-1",
	})
	require.NoError(t, err)
	require.NoError(t, sim.Submit(context.Background(), req))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := mb.Subscribe(ctx, "rsvp-manager")
	require.NoError(t, err)
	env := receive(t, ch)
	require.Equal(t, agent.TypeStructuredOutputResponse, env.Type)
	require.Equal(t, llm.DefaultAddress, env.Sender)

	var out agent.StructuredOutputResponse
	require.NoError(t, env.Decode(&out))
	require.Equal(t, "list_events", out.Action)
	require.Equal(t, "user-1", out.UserAddress)
}

func TestSimulatorFailureIsReported(t *testing.T) {
	testlog.Start(t)

	mb := mailbox.NewMemory(8)
	t.Cleanup(func() { _ = mb.Close() })
	sim, err := llm.NewAgent(llm.DefaultConfig(), mb, failingResponder{})
	require.NoError(t, err)

	req, err := mailbox.NewEnvelope(agent.TypeStructuredOutputRequest, "rsvp-manager", agent.StructuredOutputRequest{
		Message:     "anything",
		UserAddress: "user-1",
	})
	require.NoError(t, err)
	require.Error(t, sim.Submit(context.Background(), req))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := mb.Subscribe(ctx, "rsvp-manager")
	require.NoError(t, err)
	env := receive(t, ch)
	require.Equal(t, agent.TypeRSVPResponse, env.Type)
	var resp agent.RSVPResponse
	require.NoError(t, env.Decode(&resp))
	require.False(t, resp.Success)
	require.Contains(t, resp.Message, "model offline")
}

// The full chat loop: user -> manager -> simulator -> manager -> canister -> user.
func TestChatRoundTrip(t *testing.T) {
	testlog.Start(t)

	canister := gatewaytest.NewCanister()
	srv := canister.Serve(t)
	gcfg := gateway.DefaultConfig()
	gcfg.BaseURL = srv.URL
	gcfg.RequestTimeout = 2 * time.Second
	client, err := gateway.Open(gcfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	mb := mailbox.NewMemory(16)
	t.Cleanup(func() { _ = mb.Close() })

	manager, err := agent.NewManager(agent.DefaultConfig(), mb, client)
	require.NoError(t, err)
	sim, err := llm.NewAgent(llm.DefaultConfig(), mb, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(gctx) })
	g.Go(func() error { return sim.Run(gctx) })
	t.Cleanup(func() {
		cancel()
		_ = g.Wait()
	})

	inbox, err := mb.Subscribe(ctx, "user-1")
	require.NoError(t, err)
	chat := func(text string) agent.RSVPResponse {
		t.Helper()
		env, err := mailbox.NewEnvelope(agent.TypeChatMessage, "user-1", agent.ChatMessage{Message: text})
		require.NoError(t, err)
		require.NoError(t, mb.Send(ctx, manager.Name(), env))
		reply := receive(t, inbox)
		require.Equal(t, agent.TypeRSVPResponse, reply.Type)
		var resp agent.RSVPResponse
		require.NoError(t, reply.Decode(&resp))
		return resp
	}

	created := chat("please create an event")
	require.True(t, created.Success)
	require.Equal(t, "✅ Event 'Hackathon Afterparty from Simulator' created successfully", created.Message)

	listed := chat("list events")
	require.True(t, listed.Success)
	require.Contains(t, listed.Message, "• **Hackathon Afterparty from Simulator**")
	require.Contains(t, listed.Message, "👥 0/50 participants")

	// the simulator RSVPs to an event that does not exist; the canister
	// rejects it in the call body, which is reported only with reject_calls
	rsvp := chat("add rsvp")
	require.True(t, rsvp.Success)
	require.Equal(t, "✅ RSVP added successfully!", rsvp.Message)

	health := chat("health")
	require.True(t, health.Success)
	require.Equal(t, "🟢 ok", health.Message)

	require.Len(t, canister.Events(), 1)
}

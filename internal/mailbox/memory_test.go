package mailbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danmuck/rsvpctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Text string `json:"text"`
}

func mustEnvelope(t *testing.T, text string) Envelope {
	t.Helper()
	env, err := NewEnvelope("ping", "tester", ping{Text: text})
	require.NoError(t, err)
	return env
}

func receive(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		if !ok {
			t.Fatalf("subscription closed early")
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for envelope")
	}
	return Envelope{}
}

func TestNewEnvelopeStampsIDAndPayload(t *testing.T) {
	testlog.Start(t)

	env := mustEnvelope(t, "hello")
	require.NotEmpty(t, env.ID)
	require.Equal(t, "ping", env.Type)
	require.Equal(t, "tester", env.Sender)
	require.JSONEq(t, `{"text":"hello"}`, string(env.Payload))

	var got ping
	require.NoError(t, env.Decode(&got))
	require.Equal(t, "hello", got.Text)

	other := mustEnvelope(t, "hello")
	require.NotEqual(t, env.ID, other.ID)
}

func TestEnvelopeValidate(t *testing.T) {
	testlog.Start(t)

	base := mustEnvelope(t, "x")
	cases := map[string]func(*Envelope){
		"missing id":     func(e *Envelope) { e.ID = "" },
		"missing type":   func(e *Envelope) { e.Type = " " },
		"missing sender": func(e *Envelope) { e.Sender = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			env := base
			mutate(&env)
			if err := env.Validate(); !errors.Is(err, ErrInvalidEnvelope) {
				t.Fatalf("expected ErrInvalidEnvelope, got %v", err)
			}
		})
	}

	var out ping
	empty := base
	empty.Payload = nil
	require.ErrorIs(t, empty.Decode(&out), ErrInvalidEnvelope)
	bad := base
	bad.Payload = []byte(`{"text":`)
	require.ErrorIs(t, bad.Decode(&out), ErrInvalidEnvelope)
}

func TestMemoryDeliversInOrder(t *testing.T) {
	testlog.Start(t)

	mb := NewMemory(0)
	t.Cleanup(func() { _ = mb.Close() })
	ctx := context.Background()

	first := mustEnvelope(t, "one")
	second := mustEnvelope(t, "two")
	require.NoError(t, mb.Send(ctx, "agent", first))
	require.NoError(t, mb.Send(ctx, "agent", second))
	require.Equal(t, 2, mb.Pending("agent"))

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch, err := mb.Subscribe(subCtx, "agent")
	require.NoError(t, err)

	require.Equal(t, first.ID, receive(t, ch).ID)
	require.Equal(t, second.ID, receive(t, ch).ID)
}

func TestMemoryIsolatesAddresses(t *testing.T) {
	testlog.Start(t)

	mb := NewMemory(4)
	t.Cleanup(func() { _ = mb.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, mb.Send(ctx, "a", mustEnvelope(t, "for-a")))
	ch, err := mb.Subscribe(ctx, "b")
	require.NoError(t, err)

	select {
	case env := <-ch:
		t.Fatalf("unexpected delivery to b: %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, 1, mb.Pending("a"))
}

func TestMemorySubscriptionEndsWithContext(t *testing.T) {
	testlog.Start(t)

	mb := NewMemory(4)
	t.Cleanup(func() { _ = mb.Close() })
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := mb.Subscribe(ctx, "agent")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription did not end")
	}

	// a message sent after the subscriber left waits for the next one
	require.NoError(t, mb.Send(context.Background(), "agent", mustEnvelope(t, "later")))
	require.Equal(t, 1, mb.Pending("agent"))
}

func TestMemoryRequeueKeepsOrderWhenFull(t *testing.T) {
	testlog.Start(t)

	mb := NewMemory(1)
	t.Cleanup(func() { _ = mb.Close() })
	first := mustEnvelope(t, "first")
	second := mustEnvelope(t, "second")
	require.NoError(t, mb.Send(context.Background(), "agent", first))

	// the subscriber takes first but nobody reads its channel
	subCtx, cancel := context.WithCancel(context.Background())
	_, err := mb.Subscribe(subCtx, "agent")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mb.Pending("agent") == 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, mb.Send(context.Background(), "agent", second))
	cancel()
	require.Eventually(t, func() bool { return mb.Pending("agent") == 2 }, 2*time.Second, 5*time.Millisecond)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	ch, err := mb.Subscribe(ctx, "agent")
	require.NoError(t, err)
	require.Equal(t, first.ID, receive(t, ch).ID)
	require.Equal(t, second.ID, receive(t, ch).ID)
}

func TestMemorySendBlocksUntilContextDone(t *testing.T) {
	testlog.Start(t)

	mb := NewMemory(1)
	t.Cleanup(func() { _ = mb.Close() })
	require.NoError(t, mb.Send(context.Background(), "agent", mustEnvelope(t, "fill")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := mb.Send(ctx, "agent", mustEnvelope(t, "overflow"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryRejectsBadInput(t *testing.T) {
	testlog.Start(t)

	mb := NewMemory(1)
	ctx := context.Background()
	require.ErrorIs(t, mb.Send(ctx, "", mustEnvelope(t, "x")), ErrInvalidAddress)
	require.ErrorIs(t, mb.Send(ctx, "two words", mustEnvelope(t, "x")), ErrInvalidAddress)
	require.ErrorIs(t, mb.Send(ctx, "agent", Envelope{}), ErrInvalidEnvelope)
	_, err := mb.Subscribe(ctx, " ")
	require.ErrorIs(t, err, ErrInvalidAddress)

	require.NoError(t, mb.Close())
	require.NoError(t, mb.Close())
	require.ErrorIs(t, mb.Send(ctx, "agent", mustEnvelope(t, "x")), ErrClosed)
	_, err = mb.Subscribe(ctx, "agent")
	require.ErrorIs(t, err, ErrClosed)
}

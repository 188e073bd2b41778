package envelope

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/rsvpctl/internal/clock"
	"github.com/danmuck/rsvpctl/internal/protocol/candid"
	"github.com/danmuck/rsvpctl/internal/testutil/testlog"
)

const testCanister = "uxrrr-q7777-77774-qaaaq-cai"

func TestBuildStampsExpiryAndSender(t *testing.T) {
	testlog.Start(t)
	start := time.Unix(1_700_000_000, 123)
	b := NewBuilder(clock.NewFake(start))

	env, err := b.Build(KindCall, testCanister, "create_event", candid.EncodeEmpty())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	require.Equal(t, uint64(start.Add(300*time.Second).UnixNano()), env.Expiry)
	require.Equal(t, []byte{0x04}, env.Sender)
	require.Equal(t, KindCall, env.Kind)

	env.Sender[0] = 0xff
	require.Equal(t, []byte{0x04}, AnonymousSender)
}

func TestBuildRejectsPreEpochClock(t *testing.T) {
	testlog.Start(t)
	b := NewBuilder(clock.NewFake(time.Unix(-10, 0)))
	_, err := b.Build(KindQuery, testCanister, "list_events", candid.EncodeEmpty())
	if !errors.Is(err, ErrExpiryComputation) {
		t.Fatalf("expected ErrExpiryComputation, got %v", err)
	}
}

func TestBuildRejectsMalformedRequests(t *testing.T) {
	testlog.Start(t)
	b := NewBuilder(clock.NewFake(time.Unix(1_700_000_000, 0)))
	cases := []struct {
		name   string
		kind   Kind
		target string
		method string
		arg    []byte
		want   error
	}{
		{"kind", Kind(9), testCanister, "m", candid.EncodeEmpty(), ErrUnknownKind},
		{"target", KindCall, " ", "m", candid.EncodeEmpty(), ErrInvalidEnvelope},
		{"method", KindCall, testCanister, "", candid.EncodeEmpty(), ErrInvalidEnvelope},
		{"magic", KindQuery, testCanister, "m", []byte("XXXX"), ErrInvalidEnvelope},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := b.Build(tc.kind, tc.target, tc.method, tc.arg)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateRejectsExpiredEnvelope(t *testing.T) {
	testlog.Start(t)
	fake := clock.NewFake(time.Unix(1_700_000_000, 0))
	env, err := NewBuilder(fake).Build(KindQuery, testCanister, "health", candid.EncodeEmpty())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	fake.Advance(299 * time.Second)
	if err := env.Validate(fake.Now()); err != nil {
		t.Fatalf("expected valid envelope, got %v", err)
	}
	fake.Advance(time.Second)
	if err := env.Validate(fake.Now()); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestSerializeWireShape(t *testing.T) {
	testlog.Start(t)
	arg, err := candid.EncodeText("Tech Meetup")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := NewBuilder(clock.NewFake(time.Unix(1_700_000_000, 0))).Build(KindQuery, testCanister, "get_event_by_name", arg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	b, err := Serialize(env)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	again, err := Serialize(env)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	require.Equal(t, b, again, "serialization must be deterministic")

	body, err := DecodeBody(b)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	require.Len(t, body, 1)
	c, ok := body["content"].(map[string]any)
	if !ok {
		t.Fatalf("content is %T", body["content"])
	}
	require.Equal(t, "query", c["request_type"])
	require.Equal(t, testCanister, c["canister_id"])
	require.Equal(t, "get_event_by_name", c["method_name"])
	require.Equal(t, arg, c["arg"])
	require.Equal(t, env.Expiry, c["ingress_expiry"])
	require.Equal(t, []byte{0x04}, c["sender"])

	parsed, err := Parse(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	require.Equal(t, env, parsed)
}

func TestDecodeReply(t *testing.T) {
	testlog.Start(t)
	replied, err := EncodeReply(Reply{Status: StatusReplied, Arg: candid.EncodeEmpty()})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r, err := DecodeReply(replied)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	require.True(t, r.Replied())
	require.Equal(t, candid.EncodeEmpty(), r.Arg)

	rejected, err := EncodeReply(Reply{Status: StatusRejected, RejectCode: 5, RejectMessage: "Event not found"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r, err = DecodeReply(rejected)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	require.False(t, r.Replied())
	require.Equal(t, uint64(5), r.RejectCode)
	require.Equal(t, "Event not found", r.RejectMessage)
}

func TestDecodeReplyWithoutStatusKeepsRejectMessage(t *testing.T) {
	testlog.Start(t)
	b, err := EncodeBody(map[string]any{"reject_message": "boom"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	r, err := DecodeReply(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	require.False(t, r.Replied())
	require.Equal(t, "", r.Status)
	require.Equal(t, "boom", r.RejectMessage)
}

func TestDecodeReplyMalformed(t *testing.T) {
	testlog.Start(t)
	noArg, err := EncodeBody(map[string]any{"status": "replied"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for name, in := range map[string][]byte{
		"garbage": {0xff, 0x00},
		"no arg":  noArg,
	} {
		if _, err := DecodeReply(in); !errors.Is(err, ErrMalformedReply) {
			t.Fatalf("%s: expected ErrMalformedReply, got %v", name, err)
		}
	}
}

func TestDecodeBodyEmpty(t *testing.T) {
	testlog.Start(t)
	body, err := DecodeBody(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	require.Empty(t, body)
	require.NotEmpty(t, Diagnose([]byte{0xa0}))
}

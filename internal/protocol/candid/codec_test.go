package candid_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/danmuck/rsvpctl/internal/protocol/candid"
	"github.com/danmuck/rsvpctl/internal/protocol/candid/candidtest"
	"github.com/danmuck/rsvpctl/internal/protocol/schema"
	"github.com/danmuck/rsvpctl/internal/rsvp"
	"github.com/danmuck/rsvpctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestEncodeEventInputRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := rsvp.EventInput{Name: "Tech Meetup", Description: "d", Date: "2025-01-01", MaxParticipants: 50}

	b, err := candid.EncodeEventInput(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("DIDL")) {
		t.Fatalf("missing magic: %x", b[:4])
	}

	v, err := candid.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Kind != candid.KindRecord || v.Len() != 4 {
		t.Fatalf("expected record with 4 fields, got %s", v)
	}
	require.Equal(t, "Tech Meetup", v.TextField(schema.FieldEventInputName, ""))
	require.Equal(t, "d", v.TextField(schema.FieldEventInputDescription, ""))
	require.Equal(t, "2025-01-01", v.TextField(schema.FieldEventInputDate, ""))
	require.Equal(t, uint64(50), v.NatField(schema.FieldEventInputMaxParticipants, 0))

	got, err := candid.DecodeEventInput(v)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	require.Equal(t, in, got)
}

func TestEncodeEventInputLayout(t *testing.T) {
	testlog.Start(t)
	b, err := candid.EncodeEventInput(rsvp.EventInput{Name: "a", Date: "b", MaxParticipants: 7})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := []byte("DIDL")
	want = append(want, 0x01, 0x6c, 0x04, 0x00, 0x71, 0x01, 0x71, 0x02, 0x71, 0x03, 0x78)
	want = append(want, 0x01, 0x00)
	want = append(want, 1, 0, 0, 0, 'a')
	want = append(want, 0, 0, 0, 0)
	want = append(want, 1, 0, 0, 0, 'b')
	want = append(want, 7, 0, 0, 0, 0, 0, 0, 0)
	require.Equal(t, want, b)
}

func TestEncodeRSVPInputRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := rsvp.RSVPInput{EventName: "Tech Meetup", ParticipantName: "Ada", ParticipantEmail: "ada@example.com"}

	b, err := candid.EncodeRSVPInput(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	v, err := candid.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := candid.DecodeRSVPInput(v)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	require.Equal(t, in, got)
}

func TestEncodeTextLayout(t *testing.T) {
	testlog.Start(t)
	b, err := candid.EncodeText("hi")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	require.Equal(t, []byte{'D', 'I', 'D', 'L', 0x00, 0x01, 0x71, 2, 0, 0, 0, 'h', 'i'}, b)

	v, err := candid.Decode(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	s, err := v.AsText()
	if err != nil {
		t.Fatalf("as text: %v", err)
	}
	require.Equal(t, "hi", s)
}

func TestEncodeEmpty(t *testing.T) {
	testlog.Start(t)
	require.Equal(t, []byte("DIDL\x00\x00"), candid.EncodeEmpty())

	args, err := candid.DecodeArgs(candid.EncodeEmpty())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	require.Empty(t, args)

	if _, err := candid.Decode(candid.EncodeEmpty()); !errors.Is(err, candid.ErrArgCount) {
		t.Fatalf("expected ErrArgCount, got %v", err)
	}
}

func TestEncodeRejectsInvalidUTF8(t *testing.T) {
	testlog.Start(t)
	if _, err := candid.EncodeText("\xff"); !errors.Is(err, candid.ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
	_, err := candid.EncodeEventInput(rsvp.EventInput{Name: "ok", Date: "\xc3\x28"})
	if !errors.Is(err, candid.ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	testlog.Start(t)
	full, err := candid.EncodeEventInput(rsvp.EventInput{Name: "x", Date: "y"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	text, err := candid.EncodeText("x")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	deep := []byte("DIDL\x01\x6d\x00\x01\x00")
	for i := 0; i < candid.MaxDepth+4; i++ {
		deep = binary.LittleEndian.AppendUint32(deep, 1)
	}

	cases := []struct {
		name string
		in   []byte
		want error
	}{
		{"short", []byte("DI"), candid.ErrTruncated},
		{"magic", []byte("DIDX\x00\x00"), candid.ErrInvalidMagic},
		{"truncated value", full[:len(full)-3], candid.ErrTruncated},
		{"truncated table", []byte("DIDL\x01\x6c\x02\x00"), candid.ErrTruncated},
		{"trailing", append(append([]byte{}, text...), 0x00), candid.ErrTrailingBytes},
		{"unknown arg type", []byte("DIDL\x00\x01\x7f"), candid.ErrUnknownType},
		{"unknown table entry", []byte("DIDL\x01\x7e\x00"), candid.ErrUnknownType},
		{"dangling ref", []byte("DIDL\x01\x6d\x05\x00"), candid.ErrUnknownType},
		{"field order", []byte("DIDL\x01\x6c\x02\x01\x71\x00\x71\x01\x00"), candid.ErrFieldOrder},
		{"table too large", []byte("DIDL\x41"), candid.ErrTypeTableTooLarge},
		{"too deep", deep, candid.ErrTooDeep},
		{"bad utf8", []byte("DIDL\x00\x01\x71\x01\x00\x00\x00\xff"), candid.ErrInvalidUTF8},
		{"text overrun", []byte("DIDL\x00\x01\x71\x09\x00\x00\x00ab"), candid.ErrTruncated},
		{"vec overrun", []byte("DIDL\x01\x6d\x71\x01\x00\xff\xff\xff\xff"), candid.ErrInvalidLength},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := candid.DecodeArgs(tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDecodeBoundsZeroWidthElements(t *testing.T) {
	testlog.Start(t)
	// vec<vec<record{}>>: empty records take no bytes on the wire.
	header := []byte("DIDL\x03\x6c\x00\x6d\x00\x6d\x01\x01\x02")

	fanout := binary.LittleEndian.AppendUint32(append([]byte{}, header...), 64)
	for i := 0; i < 64; i++ {
		fanout = binary.LittleEndian.AppendUint32(fanout, candid.MaxVecLen)
	}
	if _, err := candid.Decode(fanout); !errors.Is(err, candid.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}

	single := []byte("DIDL\x02\x6c\x00\x6d\x00\x01\x01")
	single = binary.LittleEndian.AppendUint32(single, 1<<16)
	if _, err := candid.Decode(single); !errors.Is(err, candid.ErrInvalidLength) {
		t.Fatalf("expected ErrInvalidLength for wide vec, got %v", err)
	}

	small := binary.LittleEndian.AppendUint32(append([]byte{}, header...), 2)
	small = binary.LittleEndian.AppendUint32(small, 3)
	small = binary.LittleEndian.AppendUint32(small, 0)
	v, err := candid.Decode(small)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	require.Equal(t, 2, v.Len())
	require.Equal(t, 3, v.Items[0].Len())
	require.Equal(t, 0, v.Items[1].Len())
}

func TestDecodeEventRecordRejectsWrongShape(t *testing.T) {
	testlog.Start(t)
	v := candid.NewRecord(
		candid.Field{ID: schema.FieldEventName, Value: candid.NewText("a")},
		candid.Field{ID: schema.FieldEventDescription, Value: candid.NewNat(1)},
	)
	if _, err := candid.DecodeEvent(v); !errors.Is(err, candid.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := candid.DecodeEvent(candid.NewText("a")); !errors.Is(err, candid.ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
}

func TestProjectReplyTrees(t *testing.T) {
	testlog.Start(t)
	event := candid.NewRecord(
		candid.Field{ID: schema.FieldEventName, Value: candid.NewText("Tech Meetup")},
		candid.Field{ID: schema.FieldEventDescription, Value: candid.NewText("talks")},
		candid.Field{ID: schema.FieldEventDate, Value: candid.NewText("2025-01-01")},
		candid.Field{ID: schema.FieldEventMaxParticipants, Value: candid.NewNat(50)},
		candid.Field{ID: schema.FieldEventCurrentParticipants, Value: candid.NewNat(3)},
		candid.Field{ID: schema.FieldEventCreatedAt, Value: candid.NewNat(1700000000)},
	)
	reservation := candid.NewRecord(
		candid.Field{ID: schema.FieldRSVPID, Value: candid.NewText("r-1")},
		candid.Field{ID: schema.FieldRSVPEventName, Value: candid.NewText("Tech Meetup")},
		candid.Field{ID: schema.FieldRSVPParticipantName, Value: candid.NewText("Ada")},
		candid.Field{ID: schema.FieldRSVPParticipantEmail, Value: candid.NewText("ada@example.com")},
		candid.Field{ID: schema.FieldRSVPTimestamp, Value: candid.NewNat(1700000001)},
		candid.Field{ID: schema.FieldRSVPStatus, Value: candid.NewText("confirmed")},
	)

	v, err := candid.Decode(candidtest.EventsReply(event, event))
	if err != nil {
		t.Fatalf("decode events: %v", err)
	}
	p, err := candid.Project(v)
	if err != nil {
		t.Fatalf("project events: %v", err)
	}
	events, ok := p.([]any)
	if !ok || len(events) != 2 {
		t.Fatalf("expected 2 projected events, got %#v", p)
	}
	ev, ok := events[0].(rsvp.Event)
	if !ok {
		t.Fatalf("expected rsvp.Event, got %T", events[0])
	}
	require.Equal(t, "Tech Meetup", ev.Name)
	require.Equal(t, uint64(3), ev.CurrentParticipants)

	v, err = candid.Decode(candidtest.Encode(reservation))
	if err != nil {
		t.Fatalf("decode rsvp: %v", err)
	}
	p, err = candid.Project(v)
	if err != nil {
		t.Fatalf("project rsvp: %v", err)
	}
	r, ok := p.(rsvp.RSVP)
	if !ok {
		t.Fatalf("expected rsvp.RSVP, got %T", p)
	}
	require.Equal(t, rsvp.StatusConfirmed, r.Status)
	require.Equal(t, "r-1", r.ID)

	v, err = candid.Decode(candidtest.Encode(candid.NewVec()))
	if err != nil {
		t.Fatalf("decode empty vec: %v", err)
	}
	p, err = candid.Project(v)
	if err != nil {
		t.Fatalf("project empty vec: %v", err)
	}
	require.Empty(t, p)

	odd := candid.NewRecord(candid.Field{ID: 9, Value: candid.NewText("?")})
	if _, err := candid.Project(odd); !errors.Is(err, candid.ErrUnrecognizedRecord) {
		t.Fatalf("expected ErrUnrecognizedRecord, got %v", err)
	}
}

func TestValueString(t *testing.T) {
	testlog.Start(t)
	v := candid.NewVec(candid.NewRecord(
		candid.Field{ID: 0, Value: candid.NewText("a")},
		candid.Field{ID: 1, Value: candid.NewNat(2)},
	))
	require.Equal(t, `vec {record {0 = "a"; 1 = 2}}`, v.String())
}

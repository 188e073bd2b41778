// Package candidtest encodes arbitrary value trees so tests can fake canister
// replies. Production code only encodes the fixed input shapes.
package candidtest

import (
	"encoding/binary"

	"github.com/danmuck/rsvpctl/internal/protocol/candid"
	"github.com/danmuck/rsvpctl/internal/protocol/schema"
	"github.com/danmuck/rsvpctl/internal/rsvp"
)

type encoder struct {
	table [][]byte
}

// Encode serializes args as one payload. An empty vec is typed as vec text.
func Encode(args ...candid.Value) []byte {
	e := &encoder{}
	refs := make([]uint8, 0, len(args))
	for _, a := range args {
		refs = append(refs, e.typeRef(a))
	}

	out := []byte(candid.Magic)
	out = append(out, byte(len(e.table)))
	for _, def := range e.table {
		out = append(out, def...)
	}
	out = append(out, byte(len(refs)))
	out = append(out, refs...)
	for _, a := range args {
		out = appendValue(out, a)
	}
	return out
}

// EventsReply wraps records in a vec the way list replies arrive.
func EventsReply(records ...candid.Value) []byte {
	return Encode(candid.NewVec(records...))
}

// EventRecord builds the reply record for ev.
func EventRecord(ev rsvp.Event) candid.Value {
	return candid.NewRecord(
		candid.Field{ID: schema.FieldEventName, Value: candid.NewText(ev.Name)},
		candid.Field{ID: schema.FieldEventDescription, Value: candid.NewText(ev.Description)},
		candid.Field{ID: schema.FieldEventDate, Value: candid.NewText(ev.Date)},
		candid.Field{ID: schema.FieldEventMaxParticipants, Value: candid.NewNat(ev.MaxParticipants)},
		candid.Field{ID: schema.FieldEventCurrentParticipants, Value: candid.NewNat(ev.CurrentParticipants)},
		candid.Field{ID: schema.FieldEventCreatedAt, Value: candid.NewNat(ev.CreatedAt)},
	)
}

// RSVPRecord builds the reply record for r.
func RSVPRecord(r rsvp.RSVP) candid.Value {
	return candid.NewRecord(
		candid.Field{ID: schema.FieldRSVPID, Value: candid.NewText(r.ID)},
		candid.Field{ID: schema.FieldRSVPEventName, Value: candid.NewText(r.EventName)},
		candid.Field{ID: schema.FieldRSVPParticipantName, Value: candid.NewText(r.ParticipantName)},
		candid.Field{ID: schema.FieldRSVPParticipantEmail, Value: candid.NewText(r.ParticipantEmail)},
		candid.Field{ID: schema.FieldRSVPTimestamp, Value: candid.NewNat(r.Timestamp)},
		candid.Field{ID: schema.FieldRSVPStatus, Value: candid.NewText(string(r.Status))},
	)
}

func (e *encoder) typeRef(v candid.Value) uint8 {
	switch v.Kind {
	case candid.KindText:
		return schema.TypeText
	case candid.KindNat:
		return schema.TypeNat64
	case candid.KindRecord:
		def := []byte{schema.TypeRecord, byte(len(v.Fields))}
		for _, f := range v.Fields {
			def = append(def, f.ID, e.typeRef(f.Value))
		}
		e.table = append(e.table, def)
		return uint8(len(e.table) - 1)
	case candid.KindVec:
		elem := schema.TypeText
		if len(v.Items) > 0 {
			elem = e.typeRef(v.Items[0])
		}
		e.table = append(e.table, []byte{schema.TypeVec, elem})
		return uint8(len(e.table) - 1)
	default:
		panic("candidtest: invalid value kind")
	}
}

func appendValue(out []byte, v candid.Value) []byte {
	switch v.Kind {
	case candid.KindText:
		out = binary.LittleEndian.AppendUint32(out, uint32(len(v.Text)))
		return append(out, v.Text...)
	case candid.KindNat:
		return binary.LittleEndian.AppendUint64(out, v.Nat)
	case candid.KindRecord:
		for _, f := range v.Fields {
			out = appendValue(out, f.Value)
		}
		return out
	case candid.KindVec:
		out = binary.LittleEndian.AppendUint32(out, uint32(len(v.Items)))
		for _, item := range v.Items {
			out = appendValue(out, item)
		}
		return out
	default:
		panic("candidtest: invalid value kind")
	}
}

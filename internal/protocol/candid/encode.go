package candid

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/danmuck/rsvpctl/internal/protocol/schema"
	"github.com/danmuck/rsvpctl/internal/rsvp"
)

// Magic prefixes every encoded argument list.
const Magic = "DIDL"

// MaxTextLen bounds one encoded text value.
const MaxTextLen = 16 << 20

const (
	textPrefixLen = 4
	nat64Len      = 8
)

// EncodeEventInput encodes the create_event argument record.
func EncodeEventInput(in rsvp.EventInput) ([]byte, error) {
	return encodeRecord(schema.ShapeEventInput, []Value{
		NewText(in.Name),
		NewText(in.Description),
		NewText(in.Date),
		NewNat(in.MaxParticipants),
	})
}

// EncodeRSVPInput encodes the add_rsvp argument record.
func EncodeRSVPInput(in rsvp.RSVPInput) ([]byte, error) {
	return encodeRecord(schema.ShapeRSVPInput, []Value{
		NewText(in.EventName),
		NewText(in.ParticipantName),
		NewText(in.ParticipantEmail),
	})
}

// EncodeText encodes a single text argument.
func EncodeText(s string) ([]byte, error) {
	if err := checkText(s); err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(Magic)+3+textPrefixLen+len(s))
	buf = append(buf, Magic...)
	// empty type table, one text argument
	buf = append(buf, 0x00, 0x01, schema.TypeText)
	return appendText(buf, s), nil
}

// EncodeEmpty encodes an empty argument list, used by methods without input.
func EncodeEmpty() []byte {
	return []byte{'D', 'I', 'D', 'L', 0x00, 0x00}
}

func encodeRecord(shape schema.Shape, values []Value) ([]byte, error) {
	reqs, ok := schema.Requirements(shape)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedShape, shape)
	}
	if len(reqs) != len(values) {
		return nil, fmt.Errorf("%w: %s has %d fields, got %d", ErrUnsupportedShape, shape, len(reqs), len(values))
	}

	size := len(Magic) + 3 + 2*len(reqs) + 2
	for i, req := range reqs {
		v := values[i]
		code, ok := v.typeCode()
		if !ok || code != req.Type {
			return nil, fmt.Errorf("candid: encode %s field %q: %w", shape, req.Name, ErrKindMismatch)
		}
		if v.Kind == KindText {
			if err := checkText(v.Text); err != nil {
				return nil, fmt.Errorf("candid: encode %s field %q: %w", shape, req.Name, err)
			}
			size += textPrefixLen + len(v.Text)
		} else {
			size += nat64Len
		}
	}

	buf := make([]byte, 0, size)
	buf = append(buf, Magic...)
	buf = append(buf, 0x01, schema.TypeRecord, byte(len(reqs)))
	for _, req := range reqs {
		buf = append(buf, req.ID, req.Type)
	}
	buf = append(buf, 0x01, 0x00) // one argument of table type 0
	for _, v := range values {
		switch v.Kind {
		case KindText:
			buf = appendText(buf, v.Text)
		case KindNat:
			buf = binary.LittleEndian.AppendUint64(buf, v.Nat)
		}
	}
	return buf, nil
}

func checkText(s string) error {
	if len(s) > MaxTextLen {
		return ErrTextTooLong
	}
	if !utf8.ValidString(s) {
		return ErrInvalidUTF8
	}
	return nil
}

func appendText(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

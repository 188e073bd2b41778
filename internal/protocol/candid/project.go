package candid

import (
	"fmt"

	"github.com/danmuck/rsvpctl/internal/protocol/schema"
	"github.com/danmuck/rsvpctl/internal/rsvp"
)

// DecodeEvent projects a record value onto an Event.
func DecodeEvent(v Value) (rsvp.Event, error) {
	if err := validateRecord(v, schema.ShapeEvent); err != nil {
		return rsvp.Event{}, err
	}
	return rsvp.Event{
		Name:                v.TextField(schema.FieldEventName, ""),
		Description:         v.TextField(schema.FieldEventDescription, ""),
		Date:                v.TextField(schema.FieldEventDate, ""),
		MaxParticipants:     v.NatField(schema.FieldEventMaxParticipants, 0),
		CurrentParticipants: v.NatField(schema.FieldEventCurrentParticipants, 0),
		CreatedAt:           v.NatField(schema.FieldEventCreatedAt, 0),
	}, nil
}

// DecodeRSVP projects a record value onto an RSVP.
func DecodeRSVP(v Value) (rsvp.RSVP, error) {
	if err := validateRecord(v, schema.ShapeRSVP); err != nil {
		return rsvp.RSVP{}, err
	}
	return rsvp.RSVP{
		ID:               v.TextField(schema.FieldRSVPID, ""),
		EventName:        v.TextField(schema.FieldRSVPEventName, ""),
		ParticipantName:  v.TextField(schema.FieldRSVPParticipantName, ""),
		ParticipantEmail: v.TextField(schema.FieldRSVPParticipantEmail, ""),
		Timestamp:        v.NatField(schema.FieldRSVPTimestamp, 0),
		Status:           rsvp.Status(v.TextField(schema.FieldRSVPStatus, "")),
	}, nil
}

// DecodeEventInput projects a record value onto an EventInput.
func DecodeEventInput(v Value) (rsvp.EventInput, error) {
	if err := validateRecord(v, schema.ShapeEventInput); err != nil {
		return rsvp.EventInput{}, err
	}
	return rsvp.EventInput{
		Name:            v.TextField(schema.FieldEventInputName, ""),
		Description:     v.TextField(schema.FieldEventInputDescription, ""),
		Date:            v.TextField(schema.FieldEventInputDate, ""),
		MaxParticipants: v.NatField(schema.FieldEventInputMaxParticipants, 0),
	}, nil
}

// DecodeRSVPInput projects a record value onto an RSVPInput.
func DecodeRSVPInput(v Value) (rsvp.RSVPInput, error) {
	if err := validateRecord(v, schema.ShapeRSVPInput); err != nil {
		return rsvp.RSVPInput{}, err
	}
	return rsvp.RSVPInput{
		EventName:        v.TextField(schema.FieldRSVPInputEventName, ""),
		ParticipantName:  v.TextField(schema.FieldRSVPInputParticipantName, ""),
		ParticipantEmail: v.TextField(schema.FieldRSVPInputParticipantEmail, ""),
	}, nil
}

// Project converts a reply tree into plain Go values for JSON responses.
// Records become rsvp.Event or rsvp.RSVP when they match either shape.
func Project(v Value) (any, error) {
	switch v.Kind {
	case KindText:
		return v.Text, nil
	case KindNat:
		return v.Nat, nil
	case KindVec:
		out := make([]any, 0, len(v.Items))
		for i, item := range v.Items {
			p, err := Project(item)
			if err != nil {
				return nil, fmt.Errorf("candid: vec item %d: %w", i, err)
			}
			out = append(out, p)
		}
		return out, nil
	case KindRecord:
		if ev, err := DecodeEvent(v); err == nil {
			return ev, nil
		}
		if r, err := DecodeRSVP(v); err == nil {
			return r, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnrecognizedRecord, v)
	default:
		return nil, fmt.Errorf("%w: %s", ErrKindMismatch, v.Kind)
	}
}

func validateRecord(v Value, shape schema.Shape) error {
	if v.Kind != KindRecord {
		return fmt.Errorf("%w: got %s want record", ErrKindMismatch, v.Kind)
	}
	if err := schema.Validate(shape, v.fieldRefs()); err != nil {
		return fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	return nil
}

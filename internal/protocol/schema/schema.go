package schema

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Type codes used in the argument type table.
const (
	TypeText   uint8 = 0x71
	TypeNat64  uint8 = 0x78
	TypeRecord uint8 = 0x6c
	TypeVec    uint8 = 0x6d
)

// MaxTableIndex bounds type references that point into the type table.
// Any reference at or above it must be a primitive or composite type code.
const MaxTableIndex uint8 = 0x40

// Shape names one of the fixed record layouts agreed with the canister.
type Shape uint8

const (
	ShapeEventInput Shape = iota + 1
	ShapeRSVPInput
	ShapeEvent
	ShapeRSVP
)

func (s Shape) String() string {
	switch s {
	case ShapeEventInput:
		return "event_input"
	case ShapeRSVPInput:
		return "rsvp_input"
	case ShapeEvent:
		return "event"
	case ShapeRSVP:
		return "rsvp"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

// EventInput field ids.
const (
	FieldEventInputName            uint8 = 0
	FieldEventInputDescription     uint8 = 1
	FieldEventInputDate            uint8 = 2
	FieldEventInputMaxParticipants uint8 = 3
)

// RSVPInput field ids.
const (
	FieldRSVPInputEventName        uint8 = 0
	FieldRSVPInputParticipantName  uint8 = 1
	FieldRSVPInputParticipantEmail uint8 = 2
)

// Event field ids.
const (
	FieldEventName                uint8 = 0
	FieldEventDescription         uint8 = 1
	FieldEventDate                uint8 = 2
	FieldEventMaxParticipants     uint8 = 3
	FieldEventCurrentParticipants uint8 = 4
	FieldEventCreatedAt           uint8 = 5
)

// RSVP field ids.
const (
	FieldRSVPID               uint8 = 0
	FieldRSVPEventName        uint8 = 1
	FieldRSVPParticipantName  uint8 = 2
	FieldRSVPParticipantEmail uint8 = 3
	FieldRSVPTimestamp        uint8 = 4
	FieldRSVPStatus           uint8 = 5
)

// Requirement is one field of a fixed shape, listed in wire order.
type Requirement struct {
	ID   uint8
	Name string
	Type uint8
}

// FieldRef is the id/type pair of one field present on the wire.
type FieldRef struct {
	ID   uint8
	Type uint8
}

type ValidationError struct {
	Shape   Shape
	FieldID uint8
	Reason  string
}

func (e ValidationError) Error() string {
	if e.Reason == "unknown shape" {
		return fmt.Sprintf("schema: shape=%s: %s", e.Shape, e.Reason)
	}
	return fmt.Sprintf("schema: shape=%s field=%d: %s", e.Shape, e.FieldID, e.Reason)
}

var requirements = map[Shape][]Requirement{
	ShapeEventInput: {
		{FieldEventInputName, "name", TypeText},
		{FieldEventInputDescription, "description", TypeText},
		{FieldEventInputDate, "date", TypeText},
		{FieldEventInputMaxParticipants, "max_participants", TypeNat64},
	},
	ShapeRSVPInput: {
		{FieldRSVPInputEventName, "event_name", TypeText},
		{FieldRSVPInputParticipantName, "participant_name", TypeText},
		{FieldRSVPInputParticipantEmail, "participant_email", TypeText},
	},
	ShapeEvent: {
		{FieldEventName, "name", TypeText},
		{FieldEventDescription, "description", TypeText},
		{FieldEventDate, "date", TypeText},
		{FieldEventMaxParticipants, "max_participants", TypeNat64},
		{FieldEventCurrentParticipants, "current_participants", TypeNat64},
		{FieldEventCreatedAt, "created_at", TypeNat64},
	},
	ShapeRSVP: {
		{FieldRSVPID, "id", TypeText},
		{FieldRSVPEventName, "event_name", TypeText},
		{FieldRSVPParticipantName, "participant_name", TypeText},
		{FieldRSVPParticipantEmail, "participant_email", TypeText},
		{FieldRSVPTimestamp, "timestamp", TypeNat64},
		{FieldRSVPStatus, "status", TypeText},
	},
}

// Requirements returns the fields of shape in ascending wire order.
func Requirements(shape Shape) ([]Requirement, bool) {
	reqs, ok := requirements[shape]
	if !ok {
		return nil, false
	}
	out := make([]Requirement, len(reqs))
	copy(out, reqs)
	return out, true
}

// FieldName returns the field's name within shape, or "" when unknown.
func FieldName(shape Shape, id uint8) string {
	for _, req := range requirements[shape] {
		if req.ID == id {
			return req.Name
		}
	}
	return ""
}

// Validate enforces required fields and their types for a shape.
// Unknown fields are ignored so the canister can grow its records.
func Validate(shape Shape, fields []FieldRef) error {
	reqs, ok := requirements[shape]
	if !ok {
		log.Error().Str("shape", shape.String()).Msg("schema.Validate unknown shape")
		return ValidationError{Shape: shape, Reason: "unknown shape"}
	}
	for _, req := range reqs {
		f, found := getField(fields, req.ID)
		if !found {
			log.Debug().
				Str("shape", shape.String()).
				Uint8("field_id", req.ID).
				Msg("schema.Validate missing field")
			return ValidationError{Shape: shape, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			log.Debug().
				Str("shape", shape.String()).
				Uint8("field_id", req.ID).
				Uint8("got", f.Type).
				Uint8("want", req.Type).
				Msg("schema.Validate type mismatch")
			return ValidationError{Shape: shape, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}

func getField(fields []FieldRef, id uint8) (FieldRef, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldRef{}, false
}

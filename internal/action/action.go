// Package action turns structured LLM output into a closed set of validated
// gateway operations.
package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/rsvpctl/internal/rsvp"
)

var (
	ErrUnknownAction    = errors.New("action: unknown action")
	ErrMalformedPayload = errors.New("action: malformed payload")
)

// Kind is the operation name shared by the LLM payload and the formatter.
type Kind string

const (
	KindCreateEvent      Kind = "create_event"
	KindAddRSVP          Kind = "add_rsvp"
	KindCancelRSVP       Kind = "cancel_rsvp"
	KindListEvents       Kind = "list_events"
	KindListRSVPs        Kind = "list_rsvps"
	KindListRSVPsByEvent Kind = "list_rsvps_by_event"
	KindGetRSVP          Kind = "get_rsvp"
	KindGetEventByName   Kind = "get_event_by_name"
	KindHealthCheck      Kind = "health_check"
	KindUnknown          Kind = "unknown"
)

// Action is one validated request. The concrete types below are the only
// implementations.
type Action interface {
	Kind() Kind
	isAction()
}

type CreateEvent struct{ Input rsvp.EventInput }
type AddRSVP struct{ Input rsvp.RSVPInput }
type CancelRSVP struct{ RSVPID string }
type ListEvents struct{}
type ListRSVPs struct{}
type ListRSVPsByEvent struct{ EventName string }
type GetRSVP struct{ RSVPID string }
type GetEventByName struct{ EventName string }
type HealthCheck struct{}

func (CreateEvent) Kind() Kind { return KindCreateEvent }
func (AddRSVP) Kind() Kind { return KindAddRSVP }
func (CancelRSVP) Kind() Kind { return KindCancelRSVP }
func (ListEvents) Kind() Kind { return KindListEvents }
func (ListRSVPs) Kind() Kind { return KindListRSVPs }
func (ListRSVPsByEvent) Kind() Kind { return KindListRSVPsByEvent }
func (GetRSVP) Kind() Kind { return KindGetRSVP }
func (GetEventByName) Kind() Kind { return KindGetEventByName }
func (HealthCheck) Kind() Kind { return KindHealthCheck }

func (CreateEvent) isAction() {}
func (AddRSVP) isAction() {}
func (CancelRSVP) isAction() {}
func (ListEvents) isAction() {}
func (ListRSVPs) isAction() {}
func (ListRSVPsByEvent) isAction() {}
func (GetRSVP) isAction() {}
func (GetEventByName) isAction() {}
func (HealthCheck) isAction() {}

// EventInputPayload is event_input as the LLM sends it. MaxParticipants is
// optional.
type EventInputPayload struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Date            string  `json:"date"`
	MaxParticipants *uint64 `json:"max_participants,omitempty"`
}

// Payload is the raw structured output of the LLM.
type Payload struct {
	Action     string             `json:"action"`
	EventInput *EventInputPayload `json:"event_input,omitempty"`
	RSVPInput  *rsvp.RSVPInput    `json:"rsvp_input,omitempty"`
	EventName  string             `json:"event_name,omitempty"`
	RSVPID     string             `json:"rsvp_id,omitempty"`
	UserQuery  string             `json:"user_query,omitempty"`
}

// Decode parses a JSON payload and validates it.
func Decode(raw []byte) (Action, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return Parse(p)
}

// Parse validates p into an Action. Unrecognized actions fail with
// ErrUnknownAction and missing required fields with ErrMalformedPayload.
func Parse(p Payload) (Action, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(p.Action)))
	switch kind {
	case KindCreateEvent:
		if p.EventInput == nil {
			return nil, fmt.Errorf("%w: %s requires event_input", ErrMalformedPayload, kind)
		}
		in := rsvp.EventInput{
			Name:            strings.TrimSpace(p.EventInput.Name),
			Description:     p.EventInput.Description,
			Date:            strings.TrimSpace(p.EventInput.Date),
			MaxParticipants: rsvp.DefaultMaxParticipants,
		}
		if p.EventInput.MaxParticipants != nil {
			in.MaxParticipants = *p.EventInput.MaxParticipants
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		return CreateEvent{Input: in}, nil
	case KindAddRSVP:
		if p.RSVPInput == nil {
			return nil, fmt.Errorf("%w: %s requires rsvp_input", ErrMalformedPayload, kind)
		}
		in := rsvp.RSVPInput{
			EventName:        strings.TrimSpace(p.RSVPInput.EventName),
			ParticipantName:  strings.TrimSpace(p.RSVPInput.ParticipantName),
			ParticipantEmail: strings.TrimSpace(p.RSVPInput.ParticipantEmail),
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
		}
		return AddRSVP{Input: in}, nil
	case KindCancelRSVP:
		id, err := required(kind, "rsvp_id", p.RSVPID)
		if err != nil {
			return nil, err
		}
		return CancelRSVP{RSVPID: id}, nil
	case KindGetRSVP:
		id, err := required(kind, "rsvp_id", p.RSVPID)
		if err != nil {
			return nil, err
		}
		return GetRSVP{RSVPID: id}, nil
	case KindListRSVPsByEvent:
		name, err := required(kind, "event_name", p.EventName)
		if err != nil {
			return nil, err
		}
		return ListRSVPsByEvent{EventName: name}, nil
	case KindGetEventByName:
		name, err := required(kind, "event_name", p.EventName)
		if err != nil {
			return nil, err
		}
		return GetEventByName{EventName: name}, nil
	case KindListEvents:
		return ListEvents{}, nil
	case KindListRSVPs:
		return ListRSVPs{}, nil
	case KindHealthCheck:
		return HealthCheck{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)
	}
}

func required(kind Kind, field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%w: %s requires %s", ErrMalformedPayload, kind, field)
	}
	return v, nil
}

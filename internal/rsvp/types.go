// Package rsvp owns the event and RSVP shapes exchanged with the canister.
//
// Ownership boundary:
// - input records sent on create_event / add_rsvp
// - read-only projections decoded from canister replies
package rsvp

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInput = errors.New("rsvp: invalid input")

// DefaultMaxParticipants is applied when a request omits a capacity.
const DefaultMaxParticipants uint64 = 50

// Status is the lifecycle state of one RSVP as reported by the canister.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusPending   Status = "pending"
	StatusCancelled Status = "cancelled"
)

// EventInput is the create_event argument record.
type EventInput struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	MaxParticipants uint64 `json:"max_participants"`
}

func (in EventInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Date) == "" {
		return fmt.Errorf("%w: missing date", ErrInvalidInput)
	}
	return nil
}

// RSVPInput is the add_rsvp argument record.
type RSVPInput struct {
	EventName        string `json:"event_name"`
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
}

func (in RSVPInput) Validate() error {
	if strings.TrimSpace(in.EventName) == "" {
		return fmt.Errorf("%w: missing event_name", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ParticipantName) == "" {
		return fmt.Errorf("%w: missing participant_name", ErrInvalidInput)
	}
	if strings.TrimSpace(in.ParticipantEmail) == "" {
		return fmt.Errorf("%w: missing participant_email", ErrInvalidInput)
	}
	return nil
}

// Event is the canister's view of one event.
type Event struct {
	Name                string `json:"name"`
	Description         string `json:"description"`
	Date                string `json:"date"`
	MaxParticipants     uint64 `json:"max_participants"`
	CurrentParticipants uint64 `json:"current_participants"`
	CreatedAt           uint64 `json:"created_at"`
}

// RSVP is the canister's view of one submission.
type RSVP struct {
	ID               string `json:"id"`
	EventName        string `json:"event_name"`
	ParticipantName  string `json:"participant_name"`
	ParticipantEmail string `json:"participant_email"`
	Timestamp        uint64 `json:"timestamp"`
	Status           Status `json:"status"`
}

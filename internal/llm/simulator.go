// Package llm stands in for the language model that turns chat text into
// structured action payloads.
package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/danmuck/rsvpctl/internal/action"
	"github.com/danmuck/rsvpctl/internal/rsvp"
)

// Responder turns free text into an action payload.
type Responder interface {
	Respond(ctx context.Context, message string) (action.Payload, error)
}

var rsvpIDPattern = regexp.MustCompile(`rsvp-[a-z0-9]+`)

// Keyword is a deterministic Responder driven by keyword rules. Unmatched text
// falls back to creating a default event.
type Keyword struct{}

var _ Responder = Keyword{}

func (Keyword) Respond(_ context.Context, message string) (action.Payload, error) {
	return Simulate(message), nil
}

// Simulate applies the keyword rules to message.
func Simulate(message string) action.Payload {
	m := strings.ToLower(message)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(m, w) {
				return true
			}
		}
		return false
	}
	id := rsvpIDPattern.FindString(m)

	switch {
	case has("event") && has("buat", "create"):
		return createEvent("Hackathon Afterparty from Simulator", "Perayaan selesai hackathon", "2025-08-24", 50)
	case has("rsvp") && has("daftar", "add"):
		return action.Payload{
			Action: string(action.KindAddRSVP),
			RSVPInput: &rsvp.RSVPInput{
				EventName:        "Hackathon Afterparty",
				ParticipantName:  "Test User",
				ParticipantEmail: "test@example.com",
			},
		}
	case has("cancel", "batal") && id != "":
		return action.Payload{Action: string(action.KindCancelRSVP), RSVPID: id}
	case has("list") && has("rsvp"):
		return action.Payload{Action: string(action.KindListRSVPs)}
	case has("list") && has("event"):
		return action.Payload{Action: string(action.KindListEvents)}
	case id != "":
		return action.Payload{Action: string(action.KindGetRSVP), RSVPID: id}
	case has("health"):
		return action.Payload{Action: string(action.KindHealthCheck)}
	default:
		return createEvent("Default Test Event", "Event created from default parsing", "2025-08-25", 30)
	}
}

func createEvent(name, desc, date string, capacity uint64) action.Payload {
	return action.Payload{
		Action: string(action.KindCreateEvent),
		EventInput: &action.EventInputPayload{
			Name:            name,
			Description:     desc,
			Date:            date,
			MaxParticipants: &capacity,
		},
	}
}
